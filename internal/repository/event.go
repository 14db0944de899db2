package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/shenikar/dispatch_coordination_system/internal/models"
)

// AppendEvent записывает доменное событие в журнал. Журнал append-only:
// события не обновляются и не удаляются.
func (s *Store) AppendEvent(ctx context.Context, event *models.Event) error {
	var details []byte
	if event.Details != nil {
		var err error
		details, err = json.Marshal(event.Details)
		if err != nil {
			return fmt.Errorf("failed to marshal event details: %w", err)
		}
	}

	query := `
		INSERT INTO events (type, incident_id, unit_id, message, details)
		VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at;
	`
	err := s.q.QueryRow(ctx, query,
		event.Type,
		event.IncidentID,
		event.UnitID,
		event.Message,
		details,
	).Scan(&event.ID, &event.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

// ListIncidentEvents возвращает журнал событий инцидента, новые первыми
func (s *Store) ListIncidentEvents(ctx context.Context, incidentID uuid.UUID, limit int) ([]*models.Event, error) {
	query := `
		SELECT id, type, incident_id, unit_id, message, details, created_at
		FROM events
		WHERE incident_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2;
	`
	rows, err := s.q.Query(ctx, query, incidentID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list incident events: %w", err)
	}
	defer rows.Close()

	events := make([]*models.Event, 0)
	for rows.Next() {
		event := &models.Event{}
		var details []byte
		err := rows.Scan(
			&event.ID,
			&event.Type,
			&event.IncidentID,
			&event.UnitID,
			&event.Message,
			&details,
			&event.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event row: %w", err)
		}
		if len(details) > 0 {
			if err := json.Unmarshal(details, &event.Details); err != nil {
				return nil, fmt.Errorf("failed to unmarshal event details: %w", err)
			}
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error list iteration: %w", err)
	}
	return events, nil
}
