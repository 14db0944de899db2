package service_test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shenikar/dispatch_coordination_system/internal/models"
	"github.com/shenikar/dispatch_coordination_system/internal/service"
)

// memStore - потокобезопасное хранилище в памяти для тестов координатора.
// WithinTx держит общий мьютекс на всю транзакцию, что сериализует
// конкурирующие команды так же, как блокировки строк в Postgres, и
// откатывает все мутации при ошибке.
type memStore struct {
	mu          sync.Mutex
	incidents   map[uuid.UUID]*models.Incident
	units       map[uuid.UUID]*models.Unit
	events      []*models.Event
	nextEventID int64
	cache       map[uuid.UUID]*models.Incident
}

func newMemStore() *memStore {
	return &memStore{
		incidents: make(map[uuid.UUID]*models.Incident),
		units:     make(map[uuid.UUID]*models.Unit),
		cache:     make(map[uuid.UUID]*models.Incident),
	}
}

// memTx - вид хранилища внутри транзакции, без повторного захвата мьютекса
type memTx struct {
	s *memStore
}

func (m *memStore) WithinTx(ctx context.Context, fn func(tx service.EntityStore) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapIncidents := make(map[uuid.UUID]*models.Incident, len(m.incidents))
	for id, inc := range m.incidents {
		snapIncidents[id] = inc
	}
	snapUnits := make(map[uuid.UUID]*models.Unit, len(m.units))
	for id, u := range m.units {
		snapUnits[id] = u
	}
	eventsLen := len(m.events)

	if err := fn(&memTx{s: m}); err != nil {
		m.incidents = snapIncidents
		m.units = snapUnits
		m.events = m.events[:eventsLen]
		return err
	}
	return nil
}

func copyIncident(inc *models.Incident) *models.Incident {
	c := *inc
	return &c
}

func copyUnit(u *models.Unit) *models.Unit {
	c := *u
	return &c
}

func (t *memTx) CreateIncident(ctx context.Context, incident *models.Incident) error {
	if incident.ID == uuid.Nil {
		incident.ID = uuid.New()
	}
	now := time.Now().UTC()
	incident.CreatedAt = now
	incident.UpdatedAt = now
	t.s.incidents[incident.ID] = copyIncident(incident)
	return nil
}

func (t *memTx) GetIncident(ctx context.Context, id uuid.UUID) (*models.Incident, error) {
	inc, ok := t.s.incidents[id]
	if !ok {
		return nil, fmt.Errorf("incident %s: %w", id, service.ErrNotFound)
	}
	return copyIncident(inc), nil
}

func (t *memTx) GetIncidentForUpdate(ctx context.Context, id uuid.UUID) (*models.Incident, error) {
	return t.GetIncident(ctx, id)
}

func (t *memTx) UpdateIncident(ctx context.Context, incident *models.Incident) error {
	if _, ok := t.s.incidents[incident.ID]; !ok {
		return fmt.Errorf("incident %s: %w", incident.ID, service.ErrNotFound)
	}
	incident.UpdatedAt = time.Now().UTC()
	t.s.incidents[incident.ID] = copyIncident(incident)
	return nil
}

func (t *memTx) ListIncidents(ctx context.Context, filter service.IncidentFilter) ([]*models.Incident, int, error) {
	var matched []*models.Incident
	for _, inc := range t.s.incidents {
		if filter.Status != nil && inc.Status != *filter.Status {
			continue
		}
		if filter.Type != nil && inc.Type != *filter.Type {
			continue
		}
		if filter.Priority != nil && inc.Priority != *filter.Priority {
			continue
		}
		matched = append(matched, copyIncident(inc))
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].ID.String() < matched[j].ID.String()
	})
	total := len(matched)
	start := (filter.Page - 1) * filter.PageSize
	if start > total {
		start = total
	}
	end := start + filter.PageSize
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (t *memTx) CreateUnit(ctx context.Context, unit *models.Unit) error {
	for _, existing := range t.s.units {
		if existing.Name == unit.Name {
			return fmt.Errorf("unit name %q: %w", unit.Name, service.ErrConflict)
		}
	}
	if unit.ID == uuid.Nil {
		unit.ID = uuid.New()
	}
	now := time.Now().UTC()
	unit.CreatedAt = now
	unit.UpdatedAt = now
	t.s.units[unit.ID] = copyUnit(unit)
	return nil
}

func (t *memTx) GetUnit(ctx context.Context, id uuid.UUID) (*models.Unit, error) {
	u, ok := t.s.units[id]
	if !ok {
		return nil, fmt.Errorf("unit %s: %w", id, service.ErrNotFound)
	}
	return copyUnit(u), nil
}

func (t *memTx) GetUnitForUpdate(ctx context.Context, id uuid.UUID) (*models.Unit, error) {
	return t.GetUnit(ctx, id)
}

func (t *memTx) UpdateUnit(ctx context.Context, unit *models.Unit) error {
	if _, ok := t.s.units[unit.ID]; !ok {
		return fmt.Errorf("unit %s: %w", unit.ID, service.ErrNotFound)
	}
	unit.UpdatedAt = time.Now().UTC()
	t.s.units[unit.ID] = copyUnit(unit)
	return nil
}

func (t *memTx) ListUnits(ctx context.Context, filter service.UnitFilter) ([]*models.Unit, int, error) {
	var matched []*models.Unit
	for _, u := range t.s.units {
		if filter.Status != nil && u.Status != *filter.Status {
			continue
		}
		if filter.Type != nil && u.Type != *filter.Type {
			continue
		}
		matched = append(matched, copyUnit(u))
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].ID.String() < matched[j].ID.String()
	})
	total := len(matched)
	start := (filter.Page - 1) * filter.PageSize
	if start > total {
		start = total
	}
	end := start + filter.PageSize
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (t *memTx) UnitsByIncidentForUpdate(ctx context.Context, incidentID uuid.UUID) ([]*models.Unit, error) {
	var attached []*models.Unit
	for _, u := range t.s.units {
		if u.CurrentIncidentID != nil && *u.CurrentIncidentID == incidentID {
			attached = append(attached, copyUnit(u))
		}
	}
	sort.Slice(attached, func(i, j int) bool {
		return attached[i].ID.String() < attached[j].ID.String()
	})
	return attached, nil
}

func (t *memTx) AppendEvent(ctx context.Context, event *models.Event) error {
	t.s.nextEventID++
	event.ID = t.s.nextEventID
	event.CreatedAt = time.Now().UTC()
	stored := *event
	t.s.events = append(t.s.events, &stored)
	return nil
}

func (t *memTx) ListIncidentEvents(ctx context.Context, incidentID uuid.UUID, limit int) ([]*models.Event, error) {
	var matched []*models.Event
	for i := len(t.s.events) - 1; i >= 0 && len(matched) < limit; i-- {
		e := t.s.events[i]
		if e.IncidentID != nil && *e.IncidentID == incidentID {
			copied := *e
			matched = append(matched, &copied)
		}
	}
	return matched, nil
}

func (m *memStore) withLock(fn func(tx *memTx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(&memTx{s: m})
}

func (m *memStore) CreateIncident(ctx context.Context, incident *models.Incident) error {
	return m.withLock(func(tx *memTx) error { return tx.CreateIncident(ctx, incident) })
}

func (m *memStore) GetIncident(ctx context.Context, id uuid.UUID) (*models.Incident, error) {
	var inc *models.Incident
	err := m.withLock(func(tx *memTx) error {
		var err error
		inc, err = tx.GetIncident(ctx, id)
		return err
	})
	return inc, err
}

func (m *memStore) GetIncidentForUpdate(ctx context.Context, id uuid.UUID) (*models.Incident, error) {
	return m.GetIncident(ctx, id)
}

func (m *memStore) UpdateIncident(ctx context.Context, incident *models.Incident) error {
	return m.withLock(func(tx *memTx) error { return tx.UpdateIncident(ctx, incident) })
}

func (m *memStore) ListIncidents(ctx context.Context, filter service.IncidentFilter) ([]*models.Incident, int, error) {
	var (
		incidents []*models.Incident
		total     int
	)
	err := m.withLock(func(tx *memTx) error {
		var err error
		incidents, total, err = tx.ListIncidents(ctx, filter)
		return err
	})
	return incidents, total, err
}

func (m *memStore) CreateUnit(ctx context.Context, unit *models.Unit) error {
	return m.withLock(func(tx *memTx) error { return tx.CreateUnit(ctx, unit) })
}

func (m *memStore) GetUnit(ctx context.Context, id uuid.UUID) (*models.Unit, error) {
	var u *models.Unit
	err := m.withLock(func(tx *memTx) error {
		var err error
		u, err = tx.GetUnit(ctx, id)
		return err
	})
	return u, err
}

func (m *memStore) GetUnitForUpdate(ctx context.Context, id uuid.UUID) (*models.Unit, error) {
	return m.GetUnit(ctx, id)
}

func (m *memStore) UpdateUnit(ctx context.Context, unit *models.Unit) error {
	return m.withLock(func(tx *memTx) error { return tx.UpdateUnit(ctx, unit) })
}

func (m *memStore) ListUnits(ctx context.Context, filter service.UnitFilter) ([]*models.Unit, int, error) {
	var (
		units []*models.Unit
		total int
	)
	err := m.withLock(func(tx *memTx) error {
		var err error
		units, total, err = tx.ListUnits(ctx, filter)
		return err
	})
	return units, total, err
}

func (m *memStore) UnitsByIncidentForUpdate(ctx context.Context, incidentID uuid.UUID) ([]*models.Unit, error) {
	var units []*models.Unit
	err := m.withLock(func(tx *memTx) error {
		var err error
		units, err = tx.UnitsByIncidentForUpdate(ctx, incidentID)
		return err
	})
	return units, err
}

func (m *memStore) AppendEvent(ctx context.Context, event *models.Event) error {
	return m.withLock(func(tx *memTx) error { return tx.AppendEvent(ctx, event) })
}

func (m *memStore) ListIncidentEvents(ctx context.Context, incidentID uuid.UUID, limit int) ([]*models.Event, error) {
	var events []*models.Event
	err := m.withLock(func(tx *memTx) error {
		var err error
		events, err = tx.ListIncidentEvents(ctx, incidentID, limit)
		return err
	})
	return events, err
}

func (m *memStore) GetIncidentFromCache(ctx context.Context, id uuid.UUID) (*models.Incident, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if inc, ok := m.cache[id]; ok {
		return copyIncident(inc), nil
	}
	return nil, nil
}

func (m *memStore) SetIncidentCache(ctx context.Context, incident *models.Incident) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache[incident.ID] = copyIncident(incident)
	return nil
}

func (m *memStore) InvalidateIncidentCache(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.cache, id)
	return nil
}

// eventTypes возвращает типы всех зафиксированных событий в порядке записи
func (m *memStore) eventTypes() []models.EventType {
	m.mu.Lock()
	defer m.mu.Unlock()
	types := make([]models.EventType, len(m.events))
	for i, e := range m.events {
		types[i] = e.Type
	}
	return types
}

func (m *memStore) eventCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}
