package statemachine

import (
	"errors"
	"fmt"

	"github.com/shenikar/dispatch_coordination_system/internal/models"
)

// ErrIllegalTransition возвращается, когда запрошенный переход нарушает
// жизненный цикл сущности
var ErrIllegalTransition = errors.New("illegal status transition")

// Порядок стадий инцидента: движение только вперед
var incidentRank = map[models.IncidentStatus]int{
	models.IncidentStatusNew:        0,
	models.IncidentStatusDispatched: 1,
	models.IncidentStatusOnScene:    2,
	models.IncidentStatusResolved:   3,
}

// IncidentTransition проверяет переход статуса инцидента и возвращает новый
// статус. Разрешено любое строго прямое движение по жизненному циклу
// new -> dispatched -> on_scene -> resolved, плюс cancelled из любого
// нетерминального состояния. Межсущностные условия (например, что on_scene
// требует прибывшего юнита) проверяет координатор, не машина состояний.
func IncidentTransition(current, requested models.IncidentStatus) (models.IncidentStatus, error) {
	if current.Terminal() {
		return "", fmt.Errorf("%w: incident is already %s", ErrIllegalTransition, current)
	}

	if requested == models.IncidentStatusCancelled {
		return requested, nil
	}

	from, ok := incidentRank[current]
	if !ok {
		return "", fmt.Errorf("%w: unknown incident status %q", ErrIllegalTransition, current)
	}
	to, ok := incidentRank[requested]
	if !ok {
		return "", fmt.Errorf("%w: unknown incident status %q", ErrIllegalTransition, requested)
	}

	if to <= from {
		return "", fmt.Errorf("%w: incident cannot move from %s to %s", ErrIllegalTransition, current, requested)
	}
	return requested, nil
}
