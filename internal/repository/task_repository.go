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

// VisibilityMode selects how a listing is scoped for a non-manager actor.
type VisibilityMode int

const (
	// VisibilityAll applies no scope clause (managers).
	VisibilityAll VisibilityMode = iota
	// VisibilityRoleInbox restricts to the unassigned role inbox (view-as
	// role browsing without a concrete member).
	VisibilityRoleInbox
	// VisibilityMine restricts to records assigned to the actor.
	VisibilityMine
	// VisibilityRole restricts to the role group, unassigned or the actor's.
	VisibilityRole
	// VisibilityDefault is mine, created by me, or my role group.
	VisibilityDefault
)

// VisibilityScope carries the acting identity for scoped listings. Roles must
// already be alias-expanded by the caller.
type VisibilityScope struct {
	Mode   VisibilityMode
	UserID string
	Roles  []domain.Role
}

// TaskFilter captures dispatch task listing parameters.
type TaskFilter struct {
	Status        *domain.TaskStatus
	Statuses      []domain.TaskStatus
	AssignedRoles []domain.Role
	LeadID        *int64
	Scope         VisibilityScope
	Limit         int
}

// TaskRepository encapsulates dispatch task persistence.
type TaskRepository interface {
	Create(ctx context.Context, task *domain.DispatchTask) error
	Update(ctx context.Context, task *domain.DispatchTask) error
	GetByID(ctx context.Context, id int64) (*domain.DispatchTask, error)
	ListWithFilter(ctx context.Context, filter TaskFilter) ([]domain.DispatchTask, error)
	// Claim conditionally self-assigns an open, unassigned task. Returns
	// false without error when another claimer won the race or the task
	// left the claimable state.
	Claim(ctx context.Context, id int64, userID string, status domain.TaskStatus) (bool, error)
	// SetMetaIfNotEscalated writes meta only while the escalation stamp is
	// still empty, guaranteeing at-most-one escalation per task even under
	// concurrent sweeps. Returns false when the guard failed.
	SetMetaIfNotEscalated(ctx context.Context, id int64, meta domain.DispatchMeta) (bool, error)
	// ListSweepCandidates returns open-or-assigned tasks that have not been
	// escalated yet, oldest due date first.
	ListSweepCandidates(ctx context.Context, limit int) ([]domain.DispatchTask, error)
}

type taskRepository struct {
	pool *pgxpool.Pool
}

// NewTaskRepository instantiates the repository.
func NewTaskRepository(pool *pgxpool.Pool) TaskRepository {
	return &taskRepository{pool: pool}
}

const taskColumns = `id, created_by, assigned_role, assigned_user_id, status,
       title, notes, due_date, due_time, meta, created_at, updated_at`

func (r *taskRepository) Create(ctx context.Context, task *domain.DispatchTask) error {
	meta, err := json.Marshal(task.Meta)
	if err != nil {
		return err
	}
	const query = `
        INSERT INTO dispatch_tasks (created_by, assigned_role, assigned_user_id, status, title, notes, due_date, due_time, meta)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		task.CreatedBy,
		task.AssignedRole,
		task.AssignedUserID,
		task.Status,
		task.Title,
		task.Notes,
		task.DueDate,
		task.DueTime,
		meta,
	).Scan(&task.ID, &task.CreatedAt, &task.UpdatedAt)
}

func (r *taskRepository) Update(ctx context.Context, task *domain.DispatchTask) error {
	meta, err := json.Marshal(task.Meta)
	if err != nil {
		return err
	}
	const query = `
        UPDATE dispatch_tasks
        SET assigned_role=$1, assigned_user_id=$2, status=$3, title=$4, notes=$5,
            due_date=$6, due_time=$7, meta=$8, updated_at=NOW()
        WHERE id=$9`
	cmd, err := r.pool.Exec(ctx, query,
		task.AssignedRole,
		task.AssignedUserID,
		task.Status,
		task.Title,
		task.Notes,
		task.DueDate,
		task.DueTime,
		meta,
		task.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *taskRepository) GetByID(ctx context.Context, id int64) (*domain.DispatchTask, error) {
	query := fmt.Sprintf(`SELECT %s FROM dispatch_tasks WHERE id=$1`, taskColumns)
	row := r.pool.QueryRow(ctx, query, id)
	return scanTask(row)
}

func (r *taskRepository) Claim(ctx context.Context, id int64, userID string, status domain.TaskStatus) (bool, error) {
	const query = `
        UPDATE dispatch_tasks
        SET assigned_user_id=$1, status=$2, updated_at=NOW()
        WHERE id=$3 AND assigned_user_id IS NULL AND status='open'`
	cmd, err := r.pool.Exec(ctx, query, userID, status, id)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *taskRepository) SetMetaIfNotEscalated(ctx context.Context, id int64, meta domain.DispatchMeta) (bool, error) {
	payload, err := json.Marshal(meta)
	if err != nil {
		return false, err
	}
	const query = `
        UPDATE dispatch_tasks
        SET meta=$1, updated_at=NOW()
        WHERE id=$2 AND meta->>'escalatedAt' IS NULL`
	cmd, err := r.pool.Exec(ctx, query, payload, id)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *taskRepository) ListSweepCandidates(ctx context.Context, limit int) ([]domain.DispatchTask, error) {
	if limit <= 0 {
		limit = 200
	}
	query := fmt.Sprintf(`
        SELECT %s FROM dispatch_tasks
        WHERE status IN ('open','assigned') AND meta->>'escalatedAt' IS NULL
        ORDER BY due_date ASC NULLS LAST, id DESC
        LIMIT %d`, taskColumns, limit)

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTasks(rows)
}

func (r *taskRepository) ListWithFilter(ctx context.Context, filter TaskFilter) ([]domain.DispatchTask, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.AssignedRoles) > 0 {
		clauses = append(clauses, roleInClause("assigned_role", filter.AssignedRoles, &args))
	}
	if filter.LeadID != nil {
		args = append(args, *filter.LeadID)
		clauses = append(clauses, fmt.Sprintf("(meta->>'leadId')::bigint=$%d", len(args)))
	}
	if clause := scopeClause(filter.Scope, &args); clause != "" {
		clauses = append(clauses, clause)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 80
	}

	query := fmt.Sprintf(`
        SELECT %s FROM dispatch_tasks
        WHERE %s
        ORDER BY due_date ASC NULLS LAST, due_time ASC, id DESC
        LIMIT %d`, taskColumns, strings.Join(clauses, " AND "), limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTasks(rows)
}

// scopeClause translates a visibility scope into SQL. Shared with the event
// and lead repositories, which carry the same ownership columns.
func scopeClause(scope VisibilityScope, args *[]any) string {
	switch scope.Mode {
	case VisibilityAll:
		return ""
	case VisibilityRoleInbox:
		if len(scope.Roles) == 0 {
			return "1=0"
		}
		return fmt.Sprintf("%s AND assigned_user_id IS NULL", roleInClause("assigned_role", scope.Roles, args))
	case VisibilityMine:
		*args = append(*args, scope.UserID)
		return fmt.Sprintf("assigned_user_id=$%d", len(*args))
	case VisibilityRole:
		if len(scope.Roles) == 0 {
			*args = append(*args, scope.UserID)
			return fmt.Sprintf("assigned_user_id=$%d", len(*args))
		}
		roleClause := roleInClause("assigned_role", scope.Roles, args)
		*args = append(*args, scope.UserID)
		return fmt.Sprintf("%s AND (assigned_user_id IS NULL OR assigned_user_id=$%d)", roleClause, len(*args))
	default:
		*args = append(*args, scope.UserID)
		uidIdx := len(*args)
		parts := []string{
			fmt.Sprintf("assigned_user_id=$%d", uidIdx),
			fmt.Sprintf("created_by=$%d", uidIdx),
		}
		if len(scope.Roles) > 0 {
			parts = append(parts, roleInClause("assigned_role", scope.Roles, args))
		}
		return "(" + strings.Join(parts, " OR ") + ")"
	}
}

func roleInClause(column string, roles []domain.Role, args *[]any) string {
	placeholders := make([]string, len(roles))
	for i, role := range roles {
		*args = append(*args, role)
		placeholders[i] = fmt.Sprintf("$%d", len(*args))
	}
	return fmt.Sprintf("%s IN (%s)", column, strings.Join(placeholders, ","))
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*domain.DispatchTask, error) {
	var task domain.DispatchTask
	var meta []byte
	if err := row.Scan(
		&task.ID,
		&task.CreatedBy,
		&task.AssignedRole,
		&task.AssignedUserID,
		&task.Status,
		&task.Title,
		&task.Notes,
		&task.DueDate,
		&task.DueTime,
		&meta,
		&task.CreatedAt,
		&task.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &task.Meta); err != nil {
			return nil, err
		}
	}
	return &task, nil
}

func scanTasks(rows pgx.Rows) ([]domain.DispatchTask, error) {
	var result []domain.DispatchTask
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *task)
	}
	return result, rows.Err()
}
