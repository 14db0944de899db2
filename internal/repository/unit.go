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

const unitColumns = `
	id,
	name,
	type,
	status,
	responder_id,
	current_incident_id,
	description,
	created_at,
	updated_at`

func scanUnit(row pgx.Row) (*models.Unit, error) {
	unit := &models.Unit{}
	err := row.Scan(
		&unit.ID,
		&unit.Name,
		&unit.Type,
		&unit.Status,
		&unit.ResponderID,
		&unit.CurrentIncidentID,
		&unit.Description,
		&unit.CreatedAt,
		&unit.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return unit, nil
}

// CreateUnit создает новую запись о юните в бд
func (s *Store) CreateUnit(ctx context.Context, unit *models.Unit) error {
	query := `
		INSERT INTO units (name, type, status, responder_id, description)
		VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at, updated_at;
	`
	err := s.q.QueryRow(ctx, query,
		unit.Name,
		unit.Type,
		unit.Status,
		unit.ResponderID,
		unit.Description,
	).Scan(&unit.ID, &unit.CreatedAt, &unit.UpdatedAt)
	if err != nil {
		return translateError(fmt.Errorf("failed to create unit: %w", err), fmt.Sprintf("unit %s", unit.Name))
	}
	return nil
}

// GetUnit возвращает юнит по его UUID
func (s *Store) GetUnit(ctx context.Context, id uuid.UUID) (*models.Unit, error) {
	query := `SELECT ` + unitColumns + ` FROM units WHERE id = $1;`
	unit, err := scanUnit(s.q.QueryRow(ctx, query, id))
	if err != nil {
		return nil, translateError(err, fmt.Sprintf("unit %s", id))
	}
	return unit, nil
}

// GetUnitForUpdate возвращает юнит, удерживая блокировку строки до конца
// транзакции. Так два конкурирующих назначения на один юнит сериализуются:
// проигравший увидит уже привязанный юнит.
func (s *Store) GetUnitForUpdate(ctx context.Context, id uuid.UUID) (*models.Unit, error) {
	query := `SELECT ` + unitColumns + ` FROM units WHERE id = $1 FOR UPDATE;`
	unit, err := scanUnit(s.q.QueryRow(ctx, query, id))
	if err != nil {
		return nil, translateError(err, fmt.Sprintf("unit %s", id))
	}
	return unit, nil
}

// UpdateUnit сохраняет изменившиеся поля юнита
func (s *Store) UpdateUnit(ctx context.Context, unit *models.Unit) error {
	query := `
		UPDATE units SET
			name = $1,
			type = $2,
			status = $3,
			responder_id = $4,
			current_incident_id = $5,
			description = $6,
			updated_at = NOW()
		WHERE id = $7;
	`
	cmdTag, err := s.q.Exec(ctx, query,
		unit.Name,
		unit.Type,
		unit.Status,
		unit.ResponderID,
		unit.CurrentIncidentID,
		unit.Description,
		unit.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update unit: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("unit %s: %w", unit.ID, service.ErrNotFound)
	}
	return nil
}

// ListUnits возвращает юниты по фильтрам с пагинацией и общим числом
func (s *Store) ListUnits(ctx context.Context, filter service.UnitFilter) ([]*models.Unit, int, error) {
	where := make([]string, 0, 2)
	args := make([]any, 0, 4)

	if filter.Status != nil {
		args = append(args, *filter.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Type != nil {
		args = append(args, *filter.Type)
		where = append(where, fmt.Sprintf("type = $%d", len(args)))
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := s.q.QueryRow(ctx, "SELECT COUNT(*) FROM units"+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count units: %w", err)
	}

	args = append(args, filter.PageSize)
	limitArg := len(args)
	args = append(args, (filter.Page-1)*filter.PageSize)
	offsetArg := len(args)

	query := fmt.Sprintf(`SELECT %s FROM units%s ORDER BY name LIMIT $%d OFFSET $%d;`,
		unitColumns, clause, limitArg, offsetArg)

	rows, err := s.q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list units: %w", err)
	}
	defer rows.Close()

	units := make([]*models.Unit, 0)
	for rows.Next() {
		unit, err := scanUnit(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan unit row: %w", err)
		}
		units = append(units, unit)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error list iteration: %w", err)
	}
	return units, total, nil
}

// UnitsByIncidentForUpdate возвращает все юниты, привязанные к инциденту,
// с блокировкой строк. Порядок по id фиксирован, чтобы конкурирующие
// транзакции брали блокировки в одном порядке.
func (s *Store) UnitsByIncidentForUpdate(ctx context.Context, incidentID uuid.UUID) ([]*models.Unit, error) {
	query := `SELECT ` + unitColumns + ` FROM units WHERE current_incident_id = $1 ORDER BY id FOR UPDATE;`
	rows, err := s.q.Query(ctx, query, incidentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list units by incident: %w", err)
	}
	defer rows.Close()

	units := make([]*models.Unit, 0)
	for rows.Next() {
		unit, err := scanUnit(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan unit row in UnitsByIncidentForUpdate: %w", err)
		}
		units = append(units, unit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error list iteration in UnitsByIncidentForUpdate: %w", err)
	}
	return units, nil
}
