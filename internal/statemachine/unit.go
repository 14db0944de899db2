package statemachine

import (
	"fmt"

	"github.com/shenikar/dispatch_coordination_system/internal/models"
)

// Допустимые переходы статуса юнита. Цикл
// available -> en_route -> on_scene -> available, unavailable достижим из
// любого состояния и возвращается только в available.
var unitTransitions = map[models.UnitStatus]map[models.UnitStatus]bool{
	models.UnitStatusAvailable: {
		models.UnitStatusEnRoute:     true,
		models.UnitStatusUnavailable: true,
	},
	models.UnitStatusEnRoute: {
		models.UnitStatusOnScene:     true,
		models.UnitStatusAvailable:   true,
		models.UnitStatusUnavailable: true,
	},
	models.UnitStatusOnScene: {
		models.UnitStatusAvailable:   true,
		models.UnitStatusUnavailable: true,
	},
	models.UnitStatusUnavailable: {
		models.UnitStatusAvailable: true,
	},
}

// UnitTransition проверяет переход статуса юнита и возвращает новый статус
func UnitTransition(current, requested models.UnitStatus) (models.UnitStatus, error) {
	allowed, ok := unitTransitions[current]
	if !ok {
		return "", fmt.Errorf("%w: unknown unit status %q", ErrIllegalTransition, current)
	}
	if !allowed[requested] {
		return "", fmt.Errorf("%w: unit cannot move from %s to %s", ErrIllegalTransition, current, requested)
	}
	return requested, nil
}

// AttachmentRequired сообщает, обязан ли юнит в данном статусе иметь привязку
// к инциденту. Инвариант: привязка непуста <=> статус en_route или on_scene.
func AttachmentRequired(s models.UnitStatus) bool {
	return s == models.UnitStatusEnRoute || s == models.UnitStatusOnScene
}
