package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shenikar/dispatch_coordination_system/internal/models"
	"github.com/shenikar/dispatch_coordination_system/internal/service"
)

const incidentColumns = `
	id,
	type,
	priority,
	status,
	address,
	latitude,
	longitude,
	description,
	caller_name,
	caller_phone,
	resolved_summary,
	created_at,
	updated_at,
	resolved_at`

func scanIncident(row pgx.Row) (*models.Incident, error) {
	incident := &models.Incident{}
	err := row.Scan(
		&incident.ID,
		&incident.Type,
		&incident.Priority,
		&incident.Status,
		&incident.Address,
		&incident.Latitude,
		&incident.Longitude,
		&incident.Description,
		&incident.CallerName,
		&incident.CallerPhone,
		&incident.ResolvedSummary,
		&incident.CreatedAt,
		&incident.UpdatedAt,
		&incident.ResolvedAt,
	)
	if err != nil {
		return nil, err
	}
	return incident, nil
}

// CreateIncident создает новую запись об инциденте в бд
func (s *Store) CreateIncident(ctx context.Context, incident *models.Incident) error {
	query := `
		INSERT INTO incidents (type, priority, status, address, latitude, longitude, description, caller_name, caller_phone)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id, created_at, updated_at;
	`
	err := s.q.QueryRow(ctx, query,
		incident.Type,
		incident.Priority,
		incident.Status,
		incident.Address,
		incident.Latitude,
		incident.Longitude,
		incident.Description,
		incident.CallerName,
		incident.CallerPhone,
	).Scan(&incident.ID, &incident.CreatedAt, &incident.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create incident: %w", err)
	}
	return nil
}

// GetIncident возвращает инцидент по его UUID
func (s *Store) GetIncident(ctx context.Context, id uuid.UUID) (*models.Incident, error) {
	query := `SELECT ` + incidentColumns + ` FROM incidents WHERE id = $1;`
	incident, err := scanIncident(s.q.QueryRow(ctx, query, id))
	if err != nil {
		return nil, translateError(err, fmt.Sprintf("incident %s", id))
	}
	return incident, nil
}

// GetIncidentForUpdate возвращает инцидент, удерживая блокировку строки до
// конца транзакции
func (s *Store) GetIncidentForUpdate(ctx context.Context, id uuid.UUID) (*models.Incident, error) {
	query := `SELECT ` + incidentColumns + ` FROM incidents WHERE id = $1 FOR UPDATE;`
	incident, err := scanIncident(s.q.QueryRow(ctx, query, id))
	if err != nil {
		return nil, translateError(err, fmt.Sprintf("incident %s", id))
	}
	return incident, nil
}

// UpdateIncident сохраняет изменившиеся поля инцидента
func (s *Store) UpdateIncident(ctx context.Context, incident *models.Incident) error {
	query := `
		UPDATE incidents SET
			type = $1,
			priority = $2,
			status = $3,
			address = $4,
			latitude = $5,
			longitude = $6,
			description = $7,
			resolved_summary = $8,
			resolved_at = $9,
			updated_at = NOW()
		WHERE id = $10;
	`
	cmdTag, err := s.q.Exec(ctx, query,
		incident.Type,
		incident.Priority,
		incident.Status,
		incident.Address,
		incident.Latitude,
		incident.Longitude,
		incident.Description,
		incident.ResolvedSummary,
		incident.ResolvedAt,
		incident.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update incident: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("incident %s: %w", incident.ID, service.ErrNotFound)
	}
	return nil
}

// ListIncidents возвращает инциденты по фильтрам с пагинацией и общим числом
func (s *Store) ListIncidents(ctx context.Context, filter service.IncidentFilter) ([]*models.Incident, int, error) {
	where := make([]string, 0, 3)
	args := make([]any, 0, 5)

	if filter.Status != nil {
		args = append(args, *filter.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Type != nil {
		args = append(args, *filter.Type)
		where = append(where, fmt.Sprintf("type = $%d", len(args)))
	}
	if filter.Priority != nil {
		args = append(args, *filter.Priority)
		where = append(where, fmt.Sprintf("priority = $%d", len(args)))
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := s.q.QueryRow(ctx, "SELECT COUNT(*) FROM incidents"+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count incidents: %w", err)
	}

	args = append(args, filter.PageSize)
	limitArg := len(args)
	args = append(args, (filter.Page-1)*filter.PageSize)
	offsetArg := len(args)

	query := fmt.Sprintf(`SELECT %s FROM incidents%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d;`,
		incidentColumns, clause, limitArg, offsetArg)

	rows, err := s.q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list incidents: %w", err)
	}
	defer rows.Close()

	incidents := make([]*models.Incident, 0)
	for rows.Next() {
		incident, err := scanIncident(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan incident row: %w", err)
		}
		incidents = append(incidents, incident)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error list iteration: %w", err)
	}
	return incidents, total, nil
}
