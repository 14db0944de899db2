package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/shenikar/dispatch_coordination_system/internal/models"
)

//go:generate mockgen -source=contracts.go -destination=mocks/mock_contracts.go -package=mocks

// IncidentFilter - фильтры выборки инцидентов
type IncidentFilter struct {
	Status   *models.IncidentStatus
	Type     *models.IncidentType
	Priority *int
	Page     int
	PageSize int
}

// UnitFilter - фильтры выборки юнитов
type UnitFilter struct {
	Status   *models.UnitStatus
	Type     *models.UnitType
	Page     int
	PageSize int
}

// EntityStore определяет контракт хранилища сущностей. Методы *ForUpdate
// берут блокировку строки и допустимы только внутри WithinTx.
type EntityStore interface {
	CreateIncident(ctx context.Context, incident *models.Incident) error
	GetIncident(ctx context.Context, id uuid.UUID) (*models.Incident, error)
	GetIncidentForUpdate(ctx context.Context, id uuid.UUID) (*models.Incident, error)
	UpdateIncident(ctx context.Context, incident *models.Incident) error
	ListIncidents(ctx context.Context, filter IncidentFilter) ([]*models.Incident, int, error)

	CreateUnit(ctx context.Context, unit *models.Unit) error
	GetUnit(ctx context.Context, id uuid.UUID) (*models.Unit, error)
	GetUnitForUpdate(ctx context.Context, id uuid.UUID) (*models.Unit, error)
	UpdateUnit(ctx context.Context, unit *models.Unit) error
	ListUnits(ctx context.Context, filter UnitFilter) ([]*models.Unit, int, error)
	UnitsByIncidentForUpdate(ctx context.Context, incidentID uuid.UUID) ([]*models.Unit, error)

	AppendEvent(ctx context.Context, event *models.Event) error
	ListIncidentEvents(ctx context.Context, incidentID uuid.UUID, limit int) ([]*models.Event, error)
}

// TxStore - хранилище с транзакционной границей. WithinTx выполняет fn в
// одной транзакции: либо фиксируются все мутации и добавленные события,
// либо ни одна.
type TxStore interface {
	EntityStore
	WithinTx(ctx context.Context, fn func(tx EntityStore) error) error

	GetIncidentFromCache(ctx context.Context, id uuid.UUID) (*models.Incident, error)
	SetIncidentCache(ctx context.Context, incident *models.Incident) error
	InvalidateIncidentCache(ctx context.Context, id uuid.UUID) error
}

// EventBroadcaster доставляет доменные события живым подписчикам.
// Доставка best-effort и не должна влиять на исход команды.
type EventBroadcaster interface {
	PublishEvent(event *models.Event)
}

// AuditSink принимает доменные события для долговременного аудита
type AuditSink interface {
	Record(ctx context.Context, event *models.Event) error
}

// DispatchService определяет контракт бизнес-логики координации реагирования
type DispatchService interface {
	CreateIncident(ctx context.Context, incident *models.Incident) error
	GetIncident(ctx context.Context, id uuid.UUID) (*models.Incident, error)
	ListIncidents(ctx context.Context, filter IncidentFilter) ([]*models.Incident, int, error)
	ListIncidentEvents(ctx context.Context, incidentID uuid.UUID, limit int) ([]*models.Event, error)

	CreateUnit(ctx context.Context, unit *models.Unit) error
	GetUnit(ctx context.Context, id uuid.UUID) (*models.Unit, error)
	ListUnits(ctx context.Context, filter UnitFilter) ([]*models.Unit, int, error)
	SetUnitStatus(ctx context.Context, unitID uuid.UUID, status models.UnitStatus) (*models.Unit, error)

	Assign(ctx context.Context, incidentID, unitID uuid.UUID, notes string) (*models.Incident, error)
	Arrive(ctx context.Context, unitID uuid.UUID, notes string) (*models.Unit, error)
	Clear(ctx context.Context, unitID uuid.UUID, resolutionCode, notes string) (*models.Unit, error)
	Resolve(ctx context.Context, incidentID uuid.UUID, summary string) (*models.Incident, []*models.Unit, error)
	CancelIncident(ctx context.Context, incidentID uuid.UUID) (*models.Incident, []*models.Unit, error)
	CancelDispatch(ctx context.Context, unitID uuid.UUID) (*models.Unit, error)
}
