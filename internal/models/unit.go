package models

import (
	"time"

	"github.com/google/uuid"
)

// UnitType - тип ресурса реагирования
type UnitType string

const (
	UnitTypePolice  UnitType = "police"
	UnitTypeFire    UnitType = "fire"
	UnitTypeEMS     UnitType = "ems"
	UnitTypeSpecial UnitType = "special"
)

// UnitStatus - статус юнита
type UnitStatus string

const (
	UnitStatusAvailable   UnitStatus = "available"
	UnitStatusEnRoute     UnitStatus = "en_route"
	UnitStatusOnScene     UnitStatus = "on_scene"
	UnitStatusUnavailable UnitStatus = "unavailable"
)

// Unit представляет ресурс реагирования (экипаж/бригаду).
// CurrentIncidentID - единственный авторитетный факт привязки юнита к инциденту:
// он непустой тогда и только тогда, когда статус en_route или on_scene.
type Unit struct {
	ID                uuid.UUID  `json:"id"`
	Name              string     `json:"name"`
	Type              UnitType   `json:"type"`
	Status            UnitStatus `json:"status"`
	ResponderID       *uuid.UUID `json:"responder_id,omitempty"`
	CurrentIncidentID *uuid.UUID `json:"current_incident_id,omitempty"`
	Description       string     `json:"description,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// Attached сообщает, привязан ли юнит к какому-либо инциденту
func (u *Unit) Attached() bool {
	return u.CurrentIncidentID != nil
}
