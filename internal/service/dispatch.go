package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shenikar/dispatch_coordination_system/internal/models"
	"github.com/shenikar/dispatch_coordination_system/internal/statemachine"
	"github.com/sirupsen/logrus"
)

type dispatchService struct {
	store       TxStore
	broadcaster EventBroadcaster
	audit       AuditSink
	logger      *logrus.Logger
}

// NewDispatchService создает координатор реагирования. Все публичные операции
// атомарны: мутации сущностей и запись событий фиксируются одной транзакцией,
// рассылка подписчикам и аудиту выполняется после коммита.
func NewDispatchService(store TxStore, broadcaster EventBroadcaster, audit AuditSink, logger *logrus.Logger) DispatchService {
	return &dispatchService{
		store:       store,
		broadcaster: broadcaster,
		audit:       audit,
		logger:      logger,
	}
}

// newEvent собирает доменное событие. Идентификатор и точное время создания
// присваивает хранилище при записи.
func newEvent(eventType models.EventType, incidentID uuid.UUID, unitID *uuid.UUID, message string, details map[string]any) *models.Event {
	event := &models.Event{
		Type:      eventType,
		UnitID:    unitID,
		Message:   message,
		Details:   details,
		CreatedAt: time.Now().UTC(),
	}
	if incidentID != uuid.Nil {
		event.IncidentID = &incidentID
	}
	return event
}

// publish рассылает зафиксированные события. Сбой доставки никогда не влияет
// на уже завершившуюся команду.
func (s *dispatchService) publish(ctx context.Context, events []*models.Event) {
	for _, event := range events {
		s.broadcaster.PublishEvent(event)
		if err := s.audit.Record(ctx, event); err != nil {
			s.logger.WithError(err).WithField("event_type", event.Type).Warn("Failed to hand event to audit sink")
		}
	}
}

// Assign привязывает юнит к инциденту и переводит его в en_route
func (s *dispatchService) Assign(ctx context.Context, incidentID, unitID uuid.UUID, notes string) (*models.Incident, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":     "dispatch",
		"method":      "Assign",
		"incident_id": incidentID,
		"unit_id":     unitID,
	})
	log.Info("Assigning unit to incident")

	var (
		incident *models.Incident
		events   []*models.Event
	)
	err := s.store.WithinTx(ctx, func(tx EntityStore) error {
		var err error
		incident, err = tx.GetIncidentForUpdate(ctx, incidentID)
		if err != nil {
			return err
		}
		unit, err := tx.GetUnitForUpdate(ctx, unitID)
		if err != nil {
			return err
		}

		if incident.Status.Terminal() {
			return fmt.Errorf("%w: incident %s is %s", statemachine.ErrIllegalTransition, incidentID, incident.Status)
		}
		if unit.Status != models.UnitStatusAvailable {
			return fmt.Errorf("%w: unit %s is %s", ErrUnitUnavailable, unitID, unit.Status)
		}
		if unit.Attached() {
			return fmt.Errorf("%w: unit %s is attached to incident %s", ErrAlreadyAssigned, unitID, *unit.CurrentIncidentID)
		}

		next, err := statemachine.UnitTransition(unit.Status, models.UnitStatusEnRoute)
		if err != nil {
			return err
		}
		unit.Status = next
		unit.CurrentIncidentID = &incidentID
		if err := tx.UpdateUnit(ctx, unit); err != nil {
			return err
		}

		if incident.Status == models.IncidentStatusNew {
			next, err := statemachine.IncidentTransition(incident.Status, models.IncidentStatusDispatched)
			if err != nil {
				return err
			}
			incident.Status = next
			if err := tx.UpdateIncident(ctx, incident); err != nil {
				return err
			}
		}

		events = append(events, newEvent(models.EventUnitAssigned, incidentID, &unitID,
			fmt.Sprintf("Unit %s dispatched to incident %s", unit.Name, incidentID),
			map[string]any{"unit_name": unit.Name, "incident_status": incident.Status}))
		if notes != "" {
			events = append(events, newEvent(models.EventStatusNoteAdded, incidentID, &unitID, notes, nil))
		}
		return appendEvents(ctx, tx, events)
	})
	if err != nil {
		log.WithError(err).Warn("Failed to assign unit")
		return nil, fmt.Errorf("service: could not assign unit: %w", err)
	}

	if err := s.store.InvalidateIncidentCache(ctx, incidentID); err != nil {
		log.WithError(err).Warn("Failed to invalidate incident cache")
	}
	s.publish(ctx, events)

	log.Info("Unit assigned successfully")
	return incident, nil
}

// Arrive отмечает прибытие юнита на место. Повторный вызов для уже прибывшего
// юнита - идемпотентный no-op, чтобы переживать дубли клиентских ретраев.
func (s *dispatchService) Arrive(ctx context.Context, unitID uuid.UUID, notes string) (*models.Unit, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service": "dispatch",
		"method":  "Arrive",
		"unit_id": unitID,
	})
	log.Info("Marking unit on scene")

	var (
		unit       *models.Unit
		incidentID uuid.UUID
		events     []*models.Event
	)
	err := s.store.WithinTx(ctx, func(tx EntityStore) error {
		var err error
		unit, err = tx.GetUnitForUpdate(ctx, unitID)
		if err != nil {
			return err
		}
		if !unit.Attached() {
			return fmt.Errorf("%w: unit %s", ErrNotAssigned, unitID)
		}
		incidentID = *unit.CurrentIncidentID

		// Дубль ретрая: юнит уже на месте
		if unit.Status == models.UnitStatusOnScene {
			return nil
		}

		next, err := statemachine.UnitTransition(unit.Status, models.UnitStatusOnScene)
		if err != nil {
			return err
		}
		unit.Status = next
		if err := tx.UpdateUnit(ctx, unit); err != nil {
			return err
		}

		incident, err := tx.GetIncidentForUpdate(ctx, incidentID)
		if err != nil {
			return err
		}
		// Первый прибывший юнит переводит инцидент в on_scene
		if incident.Status == models.IncidentStatusDispatched {
			nextInc, err := statemachine.IncidentTransition(incident.Status, models.IncidentStatusOnScene)
			if err != nil {
				return err
			}
			incident.Status = nextInc
			if err := tx.UpdateIncident(ctx, incident); err != nil {
				return err
			}
		}

		events = append(events, newEvent(models.EventUnitArrived, incidentID, &unitID,
			fmt.Sprintf("Unit %s arrived on scene", unit.Name),
			map[string]any{"unit_name": unit.Name, "incident_status": incident.Status}))
		if notes != "" {
			events = append(events, newEvent(models.EventStatusNoteAdded, incidentID, &unitID, notes, nil))
		}
		return appendEvents(ctx, tx, events)
	})
	if err != nil {
		log.WithError(err).Warn("Failed to mark unit on scene")
		return nil, fmt.Errorf("service: could not mark arrival: %w", err)
	}

	if len(events) > 0 {
		if err := s.store.InvalidateIncidentCache(ctx, incidentID); err != nil {
			log.WithError(err).Warn("Failed to invalidate incident cache")
		}
		s.publish(ctx, events)
	}

	log.Info("Unit marked on scene")
	return unit, nil
}

// Clear освобождает юнит после отработки. Статус инцидента не меняется:
// к нему могут оставаться привязаны другие юниты.
func (s *dispatchService) Clear(ctx context.Context, unitID uuid.UUID, resolutionCode, notes string) (*models.Unit, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service": "dispatch",
		"method":  "Clear",
		"unit_id": unitID,
	})
	log.Info("Clearing unit from incident")

	var (
		unit   *models.Unit
		events []*models.Event
	)
	err := s.store.WithinTx(ctx, func(tx EntityStore) error {
		var err error
		unit, err = tx.GetUnitForUpdate(ctx, unitID)
		if err != nil {
			return err
		}
		if !unit.Attached() {
			// Дубль ретрая: уже освобожденный юнит снова available
			if unit.Status == models.UnitStatusAvailable {
				return nil
			}
			return fmt.Errorf("%w: unit %s", ErrNotAssigned, unitID)
		}
		incidentID := *unit.CurrentIncidentID

		next, err := statemachine.UnitTransition(unit.Status, models.UnitStatusAvailable)
		if err != nil {
			return err
		}
		unit.Status = next
		unit.CurrentIncidentID = nil
		if err := tx.UpdateUnit(ctx, unit); err != nil {
			return err
		}

		details := map[string]any{"unit_name": unit.Name}
		if resolutionCode != "" {
			details["resolution_code"] = resolutionCode
		}
		events = append(events, newEvent(models.EventUnitCleared, incidentID, &unitID,
			fmt.Sprintf("Unit %s cleared from incident %s", unit.Name, incidentID), details))
		if notes != "" {
			events = append(events, newEvent(models.EventStatusNoteAdded, incidentID, &unitID, notes, nil))
		}
		return appendEvents(ctx, tx, events)
	})
	if err != nil {
		log.WithError(err).Warn("Failed to clear unit")
		return nil, fmt.Errorf("service: could not clear unit: %w", err)
	}

	s.publish(ctx, events)
	log.Info("Unit cleared")
	return unit, nil
}

// Resolve закрывает инцидент и освобождает все привязанные юниты одной
// транзакцией. Гонка с параллельным Assign сериализуется блокировками строк:
// либо назначение успело раньше и юнит попадает в освобождаемый набор, либо
// Resolve раньше и назначение отклоняется на терминальном инциденте.
func (s *dispatchService) Resolve(ctx context.Context, incidentID uuid.UUID, summary string) (*models.Incident, []*models.Unit, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":     "dispatch",
		"method":      "Resolve",
		"incident_id": incidentID,
	})
	log.Info("Resolving incident")

	incident, freed, err := s.closeIncident(ctx, incidentID, models.IncidentStatusResolved, summary)
	if err != nil {
		log.WithError(err).Warn("Failed to resolve incident")
		return nil, nil, fmt.Errorf("service: could not resolve incident: %w", err)
	}

	log.WithField("freed_units", len(freed)).Info("Incident resolved")
	return incident, freed, nil
}

// CancelIncident - симметричный откат: инцидент становится cancelled,
// привязанные юниты освобождаются с теми же гарантиями, что у Resolve
func (s *dispatchService) CancelIncident(ctx context.Context, incidentID uuid.UUID) (*models.Incident, []*models.Unit, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":     "dispatch",
		"method":      "CancelIncident",
		"incident_id": incidentID,
	})
	log.Info("Cancelling incident")

	incident, freed, err := s.closeIncident(ctx, incidentID, models.IncidentStatusCancelled, "")
	if err != nil {
		log.WithError(err).Warn("Failed to cancel incident")
		return nil, nil, fmt.Errorf("service: could not cancel incident: %w", err)
	}

	log.WithField("freed_units", len(freed)).Info("Incident cancelled")
	return incident, freed, nil
}

// closeIncident - общий терминальный путь для Resolve и CancelIncident
func (s *dispatchService) closeIncident(ctx context.Context, incidentID uuid.UUID, terminal models.IncidentStatus, summary string) (*models.Incident, []*models.Unit, error) {
	var (
		incident *models.Incident
		freed    []*models.Unit
		events   []*models.Event
	)
	err := s.store.WithinTx(ctx, func(tx EntityStore) error {
		var err error
		incident, err = tx.GetIncidentForUpdate(ctx, incidentID)
		if err != nil {
			return err
		}
		// Дубль ретрая: терминальное состояние уже достигнуто
		if incident.Status == terminal {
			return nil
		}

		next, err := statemachine.IncidentTransition(incident.Status, terminal)
		if err != nil {
			return err
		}

		units, err := tx.UnitsByIncidentForUpdate(ctx, incidentID)
		if err != nil {
			return err
		}
		for _, unit := range units {
			nextUnit, err := statemachine.UnitTransition(unit.Status, models.UnitStatusAvailable)
			if err != nil {
				return err
			}
			unit.Status = nextUnit
			unit.CurrentIncidentID = nil
			if err := tx.UpdateUnit(ctx, unit); err != nil {
				return err
			}
			unitID := unit.ID
			events = append(events, newEvent(models.EventUnitCleared, incidentID, &unitID,
				fmt.Sprintf("Unit %s released, incident %s", unit.Name, terminal),
				map[string]any{"unit_name": unit.Name}))
			freed = append(freed, unit)
		}

		incident.Status = next
		if terminal == models.IncidentStatusResolved {
			now := time.Now().UTC()
			incident.ResolvedAt = &now
			incident.ResolvedSummary = summary
			events = append(events, newEvent(models.EventIncidentResolved, incidentID, nil,
				fmt.Sprintf("Incident %s resolved: %s", incidentID, summary), nil))
		} else {
			events = append(events, newEvent(models.EventIncidentUpdated, incidentID, nil,
				fmt.Sprintf("Incident %s cancelled", incidentID),
				map[string]any{"status": terminal}))
		}
		if err := tx.UpdateIncident(ctx, incident); err != nil {
			return err
		}
		return appendEvents(ctx, tx, events)
	})
	if err != nil {
		return nil, nil, err
	}

	if len(events) > 0 {
		if err := s.store.InvalidateIncidentCache(ctx, incidentID); err != nil {
			s.logger.WithError(err).WithField("incident_id", incidentID).Warn("Failed to invalidate incident cache")
		}
		s.publish(ctx, events)
	}
	return incident, freed, nil
}

// CancelDispatch отменяет назначение одного юнита, не трогая инцидент
func (s *dispatchService) CancelDispatch(ctx context.Context, unitID uuid.UUID) (*models.Unit, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service": "dispatch",
		"method":  "CancelDispatch",
		"unit_id": unitID,
	})
	log.Info("Cancelling dispatch for unit")

	var (
		unit   *models.Unit
		events []*models.Event
	)
	err := s.store.WithinTx(ctx, func(tx EntityStore) error {
		var err error
		unit, err = tx.GetUnitForUpdate(ctx, unitID)
		if err != nil {
			return err
		}
		if !unit.Attached() {
			return fmt.Errorf("%w: unit %s", ErrNotAssigned, unitID)
		}
		incidentID := *unit.CurrentIncidentID

		next, err := statemachine.UnitTransition(unit.Status, models.UnitStatusAvailable)
		if err != nil {
			return err
		}
		unit.Status = next
		unit.CurrentIncidentID = nil
		if err := tx.UpdateUnit(ctx, unit); err != nil {
			return err
		}

		events = append(events, newEvent(models.EventUnitCleared, incidentID, &unitID,
			fmt.Sprintf("Dispatch cancelled for unit %s", unit.Name),
			map[string]any{"unit_name": unit.Name, "action": "cancelled"}))
		return appendEvents(ctx, tx, events)
	})
	if err != nil {
		log.WithError(err).Warn("Failed to cancel dispatch")
		return nil, fmt.Errorf("service: could not cancel dispatch: %w", err)
	}

	s.publish(ctx, events)
	log.Info("Dispatch cancelled")
	return unit, nil
}

func appendEvents(ctx context.Context, tx EntityStore, events []*models.Event) error {
	for _, event := range events {
		if err := tx.AppendEvent(ctx, event); err != nil {
			return err
		}
	}
	return nil
}
