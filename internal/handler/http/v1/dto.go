package v1

import (
	"time"

	"github.com/google/uuid"
	"github.com/shenikar/dispatch_coordination_system/internal/models"
)

// CreateIncidentRequest DTO для регистрации инцидента
// @Description DTO для регистрации инцидента
type CreateIncidentRequest struct {
	Type        string   `json:"type" validate:"required,oneof=fire medical police traffic other"`
	Priority    int      `json:"priority" validate:"required,min=1,max=4"`
	Address     string   `json:"address" validate:"required,min=3,max=255"`
	Description string   `json:"description" validate:"required"`
	CallerName  string   `json:"caller_name,omitempty"`
	CallerPhone string   `json:"caller_phone,omitempty"`
	Latitude    *float64 `json:"latitude,omitempty" validate:"omitempty,latitude"`
	Longitude   *float64 `json:"longitude,omitempty" validate:"omitempty,longitude"`
}

// IncidentResponse DTO для ответа с информацией об инциденте
// @Description DTO для ответа с информацией об инциденте
type IncidentResponse struct {
	ID              uuid.UUID  `json:"id"`
	Type            string     `json:"type"`
	Priority        int        `json:"priority"`
	Status          string     `json:"status"`
	Address         string     `json:"address"`
	Latitude        *float64   `json:"latitude,omitempty"`
	Longitude       *float64   `json:"longitude,omitempty"`
	Description     string     `json:"description"`
	CallerName      string     `json:"caller_name,omitempty"`
	CallerPhone     string     `json:"caller_phone,omitempty"`
	ResolvedSummary string     `json:"resolved_summary,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	ResolvedAt      *time.Time `json:"resolved_at,omitempty"`
}

// IncidentListResponse DTO для страницы инцидентов
// @Description DTO для страницы инцидентов
type IncidentListResponse struct {
	Incidents []*IncidentResponse `json:"incidents"`
	Total     int                 `json:"total"`
	Page      int                 `json:"page"`
	Size      int                 `json:"size"`
}

// CreateUnitRequest DTO для регистрации юнита
// @Description DTO для регистрации юнита
type CreateUnitRequest struct {
	Name        string     `json:"name" validate:"required,min=2,max=64"`
	Type        string     `json:"type" validate:"required,oneof=police fire ems special"`
	Description string     `json:"description,omitempty"`
	ResponderID *uuid.UUID `json:"responder_id,omitempty"`
}

// UnitResponse DTO для ответа с информацией о юните
// @Description DTO для ответа с информацией о юните
type UnitResponse struct {
	ID                uuid.UUID  `json:"id"`
	Name              string     `json:"name"`
	Type              string     `json:"type"`
	Status            string     `json:"status"`
	ResponderID       *uuid.UUID `json:"responder_id,omitempty"`
	CurrentIncidentID *uuid.UUID `json:"current_incident_id,omitempty"`
	Description       string     `json:"description,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// UnitListResponse DTO для страницы юнитов
// @Description DTO для страницы юнитов
type UnitListResponse struct {
	Units []*UnitResponse `json:"units"`
	Total int             `json:"total"`
	Page  int             `json:"page"`
	Size  int             `json:"size"`
}

// UnitStatusRequest DTO для вывода юнита из эксплуатации и возврата в строй
// @Description DTO для смены доступности юнита
type UnitStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=available unavailable"`
}

// AssignRequest DTO для назначения юнита на инцидент
// @Description DTO для назначения юнита на инцидент
type AssignRequest struct {
	IncidentID uuid.UUID `json:"incident_id" validate:"required"`
	UnitID     uuid.UUID `json:"unit_id" validate:"required"`
	Notes      string    `json:"notes,omitempty"`
}

// ArriveRequest DTO для отметки прибытия
// @Description DTO для отметки прибытия
type ArriveRequest struct {
	Notes string `json:"notes,omitempty"`
}

// ClearRequest DTO для освобождения юнита
// @Description DTO для освобождения юнита
type ClearRequest struct {
	ResolutionCode string `json:"resolution_code" validate:"required,min=1,max=64"`
	Notes          string `json:"notes,omitempty"`
}

// ResolveRequest DTO для закрытия инцидента
// @Description DTO для закрытия инцидента
type ResolveRequest struct {
	Summary string `json:"summary" validate:"required"`
}

// ResolveResponse DTO для результата закрытия: инцидент и освобожденные юниты
// @Description DTO для результата закрытия инцидента
type ResolveResponse struct {
	Incident   *IncidentResponse `json:"incident"`
	FreedUnits []*UnitResponse   `json:"freed_units"`
}

// EventResponse DTO для записи журнала событий
// @Description DTO для записи журнала событий
type EventResponse struct {
	ID         int64          `json:"id"`
	Type       string         `json:"type"`
	IncidentID *uuid.UUID     `json:"incident_id,omitempty"`
	UnitID     *uuid.UUID     `json:"unit_id,omitempty"`
	Message    string         `json:"message"`
	Details    map[string]any `json:"details,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// ConnectionStatusResponse DTO для диагностики realtime-подключений
// @Description DTO для диагностики realtime-подключений
type ConnectionStatusResponse struct {
	Connections      map[models.Role]int `json:"connections"`
	TotalConnections int                 `json:"total_connections"`
}
