package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shenikar/dispatch_coordination_system/internal/models"
	"github.com/shenikar/dispatch_coordination_system/internal/statemachine"
	"github.com/sirupsen/logrus"
)

// CreateIncident регистрирует новый инцидент в статусе new
func (s *dispatchService) CreateIncident(ctx context.Context, incident *models.Incident) error {
	log := s.logger.WithFields(logrus.Fields{
		"service": "dispatch",
		"method":  "CreateIncident",
		"type":    incident.Type,
	})
	log.Info("Attempting to create a new incident")

	if incident.Priority < 1 || incident.Priority > 4 {
		return fmt.Errorf("%w: priority must be between 1 and 4", ErrValidation)
	}

	incident.Status = models.IncidentStatusNew
	var events []*models.Event
	err := s.store.WithinTx(ctx, func(tx EntityStore) error {
		if err := tx.CreateIncident(ctx, incident); err != nil {
			return err
		}
		events = append(events, newEvent(models.EventIncidentCreated, incident.ID, nil,
			fmt.Sprintf("Incident %s created: %s, priority %d", incident.ID, incident.Type, incident.Priority),
			map[string]any{"type": incident.Type, "priority": incident.Priority, "address": incident.Address}))
		return appendEvents(ctx, tx, events)
	})
	if err != nil {
		log.WithError(err).Error("Failed to create incident in repository")
		return fmt.Errorf("service: could not create incident: %w", err)
	}

	s.publish(ctx, events)
	log.WithField("incident_id", incident.ID).Info("Incident created successfully")
	return nil
}

// GetIncident получает инцидент по ID, сначала пробуя кеш
func (s *dispatchService) GetIncident(ctx context.Context, id uuid.UUID) (*models.Incident, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":     "dispatch",
		"method":      "GetIncident",
		"incident_id": id,
	})

	cached, err := s.store.GetIncidentFromCache(ctx, id)
	if err != nil {
		log.WithError(err).Warn("Incident cache read failed, falling back to database")
	}
	if cached != nil {
		return cached, nil
	}

	incident, err := s.store.GetIncident(ctx, id)
	if err != nil {
		log.WithError(err).Warn("Failed to get incident from repository")
		return nil, fmt.Errorf("service: could not get incident: %w", err)
	}

	if err := s.store.SetIncidentCache(ctx, incident); err != nil {
		log.WithError(err).Warn("Failed to cache incident")
	}
	return incident, nil
}

// ListIncidents возвращает инциденты с фильтрами и пагинацией
func (s *dispatchService) ListIncidents(ctx context.Context, filter IncidentFilter) ([]*models.Incident, int, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 100 {
		filter.PageSize = 20
	}

	log := s.logger.WithFields(logrus.Fields{
		"service":   "dispatch",
		"method":    "ListIncidents",
		"page":      filter.Page,
		"page_size": filter.PageSize,
	})

	incidents, total, err := s.store.ListIncidents(ctx, filter)
	if err != nil {
		log.WithError(err).Error("Failed to list incidents from repository")
		return nil, 0, fmt.Errorf("service: could not list incidents: %w", err)
	}

	log.WithField("count", len(incidents)).Info("Incidents listed successfully")
	return incidents, total, nil
}

// ListIncidentEvents возвращает журнал событий инцидента, новые первыми
func (s *dispatchService) ListIncidentEvents(ctx context.Context, incidentID uuid.UUID, limit int) ([]*models.Event, error) {
	if limit < 1 || limit > 500 {
		limit = 100
	}

	if _, err := s.store.GetIncident(ctx, incidentID); err != nil {
		return nil, fmt.Errorf("service: could not get incident: %w", err)
	}

	events, err := s.store.ListIncidentEvents(ctx, incidentID, limit)
	if err != nil {
		return nil, fmt.Errorf("service: could not list incident events: %w", err)
	}
	return events, nil
}

// CreateUnit регистрирует новый юнит в статусе available
func (s *dispatchService) CreateUnit(ctx context.Context, unit *models.Unit) error {
	log := s.logger.WithFields(logrus.Fields{
		"service": "dispatch",
		"method":  "CreateUnit",
		"name":    unit.Name,
	})
	log.Info("Attempting to create a new unit")

	unit.Status = models.UnitStatusAvailable
	unit.CurrentIncidentID = nil
	if err := s.store.CreateUnit(ctx, unit); err != nil {
		log.WithError(err).Error("Failed to create unit in repository")
		return fmt.Errorf("service: could not create unit: %w", err)
	}

	log.WithField("unit_id", unit.ID).Info("Unit created successfully")
	return nil
}

// GetUnit получает юнит по ID
func (s *dispatchService) GetUnit(ctx context.Context, id uuid.UUID) (*models.Unit, error) {
	unit, err := s.store.GetUnit(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service: could not get unit: %w", err)
	}
	return unit, nil
}

// ListUnits возвращает юниты с фильтрами и пагинацией
func (s *dispatchService) ListUnits(ctx context.Context, filter UnitFilter) ([]*models.Unit, int, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 100 {
		filter.PageSize = 20
	}

	units, total, err := s.store.ListUnits(ctx, filter)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list units from repository")
		return nil, 0, fmt.Errorf("service: could not list units: %w", err)
	}
	return units, total, nil
}

// SetUnitStatus выводит юнит из эксплуатации или возвращает в строй.
// Принимает только available и unavailable: остальные статусы управляются
// протоколом назначения. Привязанный юнит сначала нужно освободить.
func (s *dispatchService) SetUnitStatus(ctx context.Context, unitID uuid.UUID, status models.UnitStatus) (*models.Unit, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service": "dispatch",
		"method":  "SetUnitStatus",
		"unit_id": unitID,
		"status":  status,
	})
	log.Info("Changing unit availability")

	if status != models.UnitStatusAvailable && status != models.UnitStatusUnavailable {
		return nil, fmt.Errorf("%w: status must be available or unavailable", ErrValidation)
	}

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
		if unit.Status == status {
			return nil
		}
		if unit.Attached() {
			return fmt.Errorf("%w: clear or cancel the dispatch first", ErrAlreadyAssigned)
		}

		next, err := statemachine.UnitTransition(unit.Status, status)
		if err != nil {
			return err
		}
		previous := unit.Status
		unit.Status = next
		if err := tx.UpdateUnit(ctx, unit); err != nil {
			return err
		}

		events = append(events, newEvent(models.EventUnitStatusChanged, uuid.Nil, &unitID,
			fmt.Sprintf("Unit %s status changed from %s to %s", unit.Name, previous, status),
			map[string]any{"old_status": previous, "new_status": status}))
		return appendEvents(ctx, tx, events)
	})
	if err != nil {
		log.WithError(err).Warn("Failed to change unit availability")
		return nil, fmt.Errorf("service: could not change unit status: %w", err)
	}

	s.publish(ctx, events)
	log.Info("Unit availability changed")
	return unit, nil
}
