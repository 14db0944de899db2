package models

import (
	"time"

	"github.com/google/uuid"
)

// EventType - тип доменного события
type EventType string

const (
	EventIncidentCreated   EventType = "incident_created"
	EventIncidentUpdated   EventType = "incident_updated"
	EventIncidentResolved  EventType = "incident_resolved"
	EventUnitAssigned      EventType = "unit_assigned"
	EventUnitArrived       EventType = "unit_arrived"
	EventUnitCleared       EventType = "unit_cleared"
	EventUnitStatusChanged EventType = "unit_status_changed"
	EventStatusNoteAdded   EventType = "status_note_added"
)

// Event - неизменяемая запись об изменении состояния. События - единственный
// канал, по которому broadcaster и аудит узнают об изменениях: напрямую
// хранилище сущностей они не читают.
type Event struct {
	ID         int64          `json:"id"`
	Type       EventType      `json:"type"`
	IncidentID *uuid.UUID     `json:"incident_id,omitempty"`
	UnitID     *uuid.UUID     `json:"unit_id,omitempty"`
	Message    string         `json:"message"`
	Details    map[string]any `json:"details,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}
