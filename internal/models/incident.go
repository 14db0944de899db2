package models

import (
	"time"

	"github.com/google/uuid"
)

// IncidentType - категория инцидента
type IncidentType string

const (
	IncidentTypeFire    IncidentType = "fire"
	IncidentTypeMedical IncidentType = "medical"
	IncidentTypePolice  IncidentType = "police"
	IncidentTypeTraffic IncidentType = "traffic"
	IncidentTypeOther   IncidentType = "other"
)

// IncidentStatus - статус жизненного цикла инцидента
type IncidentStatus string

const (
	IncidentStatusNew        IncidentStatus = "new"
	IncidentStatusDispatched IncidentStatus = "dispatched"
	IncidentStatusOnScene    IncidentStatus = "on_scene"
	IncidentStatusResolved   IncidentStatus = "resolved"
	IncidentStatusCancelled  IncidentStatus = "cancelled"
)

// Incident представляет зарегистрированное происшествие, требующее реагирования.
// Приоритет упорядочен: 1 - наивысший, 4 - низший.
type Incident struct {
	ID              uuid.UUID      `json:"id"`
	Type            IncidentType   `json:"type"`
	Priority        int            `json:"priority"`
	Status          IncidentStatus `json:"status"`
	Address         string         `json:"address"`
	Latitude        *float64       `json:"latitude,omitempty"`
	Longitude       *float64       `json:"longitude,omitempty"`
	Description     string         `json:"description"`
	CallerName      string         `json:"caller_name,omitempty"`
	CallerPhone     string         `json:"caller_phone,omitempty"`
	ResolvedSummary string         `json:"resolved_summary,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	ResolvedAt      *time.Time     `json:"resolved_at,omitempty"`
}

// Terminal сообщает, завершен ли жизненный цикл инцидента
func (s IncidentStatus) Terminal() bool {
	return s == IncidentStatusResolved || s == IncidentStatusCancelled
}
