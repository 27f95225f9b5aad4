package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ops-portal/internal/domain"
)

// EventFilter captures event listing parameters.
type EventFilter struct {
	Status        *domain.EventStatus
	AssignedRoles []domain.Role
	Scope         VisibilityScope
	Limit         int
}

// EventRepository encapsulates event persistence, including the staffing
// roster stored in meta.
type EventRepository interface {
	Create(ctx context.Context, event *domain.Event) error
	Update(ctx context.Context, event *domain.Event) error
	GetByID(ctx context.Context, id int64) (*domain.Event, error)
	ListWithFilter(ctx context.Context, filter EventFilter) ([]domain.Event, error)
	// UpdateMetaIfVersion replaces the meta payload only while its stored
	// version still matches expected. Returns false when another writer got
	// there first; the caller reloads and reapplies.
	UpdateMetaIfVersion(ctx context.Context, id int64, meta domain.EventMeta, expected int64) (bool, error)
	// MarkAssignedIfOpen flips status open -> assigned. Idempotent: a second
	// call is a harmless no-op and the flip never reverts.
	MarkAssignedIfOpen(ctx context.Context, id int64) error
}

type eventRepository struct {
	pool *pgxpool.Pool
}

// NewEventRepository instantiates the repository.
func NewEventRepository(pool *pgxpool.Pool) EventRepository {
	return &eventRepository{pool: pool}
}

const eventColumns = `id, created_by, assigned_role, assigned_user_id, status,
       title, event_date, start_time, end_time, city, state, notes, meta, created_at, updated_at`

func (r *eventRepository) Create(ctx context.Context, event *domain.Event) error {
	meta, err := json.Marshal(event.Meta)
	if err != nil {
		return err
	}
	const query = `
        INSERT INTO portal_events (created_by, assigned_role, assigned_user_id, status, title,
            event_date, start_time, end_time, city, state, notes, meta)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		event.CreatedBy,
		event.AssignedRole,
		event.AssignedUserID,
		event.Status,
		event.Title,
		event.EventDate,
		event.StartTime,
		event.EndTime,
		event.City,
		event.State,
		event.Notes,
		meta,
	).Scan(&event.ID, &event.CreatedAt, &event.UpdatedAt)
}

func (r *eventRepository) Update(ctx context.Context, event *domain.Event) error {
	meta, err := json.Marshal(event.Meta)
	if err != nil {
		return err
	}
	const query = `
        UPDATE portal_events
        SET assigned_role=$1, assigned_user_id=$2, status=$3, title=$4, event_date=$5,
            start_time=$6, end_time=$7, city=$8, state=$9, notes=$10, meta=$11, updated_at=NOW()
        WHERE id=$12`
	cmd, err := r.pool.Exec(ctx, query,
		event.AssignedRole,
		event.AssignedUserID,
		event.Status,
		event.Title,
		event.EventDate,
		event.StartTime,
		event.EndTime,
		event.City,
		event.State,
		event.Notes,
		meta,
		event.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *eventRepository) GetByID(ctx context.Context, id int64) (*domain.Event, error) {
	query := fmt.Sprintf(`SELECT %s FROM portal_events WHERE id=$1`, eventColumns)
	row := r.pool.QueryRow(ctx, query, id)
	return scanEvent(row)
}

func (r *eventRepository) UpdateMetaIfVersion(ctx context.Context, id int64, meta domain.EventMeta, expected int64) (bool, error) {
	payload, err := json.Marshal(meta)
	if err != nil {
		return false, err
	}
	const query = `
        UPDATE portal_events SET meta=$1, updated_at=NOW()
        WHERE id=$2 AND COALESCE((meta->>'version')::bigint, 0)=$3`
	cmd, err := r.pool.Exec(ctx, query, payload, id, expected)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *eventRepository) MarkAssignedIfOpen(ctx context.Context, id int64) error {
	const query = `
        UPDATE portal_events SET status='assigned', updated_at=NOW()
        WHERE id=$1 AND status='open'`
	_, err := r.pool.Exec(ctx, query, id)
	return err
}

func (r *eventRepository) ListWithFilter(ctx context.Context, filter EventFilter) ([]domain.Event, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}
	if len(filter.AssignedRoles) > 0 {
		clauses = append(clauses, roleInClause("assigned_role", filter.AssignedRoles, &args))
	}
	if clause := scopeClause(filter.Scope, &args); clause != "" {
		clauses = append(clauses, clause)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 80
	}

	query := fmt.Sprintf(`
        SELECT %s FROM portal_events
        WHERE %s
        ORDER BY event_date ASC NULLS LAST, start_time ASC, id DESC
        LIMIT %d`, eventColumns, strings.Join(clauses, " AND "), limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *event)
	}
	return result, rows.Err()
}

func scanEvent(row rowScanner) (*domain.Event, error) {
	var event domain.Event
	var meta []byte
	if err := row.Scan(
		&event.ID,
		&event.CreatedBy,
		&event.AssignedRole,
		&event.AssignedUserID,
		&event.Status,
		&event.Title,
		&event.EventDate,
		&event.StartTime,
		&event.EndTime,
		&event.City,
		&event.State,
		&event.Notes,
		&meta,
		&event.CreatedAt,
		&event.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &event.Meta); err != nil {
			return nil, err
		}
	}
	return &event, nil
}
