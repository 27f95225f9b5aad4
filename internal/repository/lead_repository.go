package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ops-portal/internal/domain"
)

// LeadFilter captures lead listing parameters.
type LeadFilter struct {
	Status        *domain.LeadStatus
	AssignedRoles []domain.Role
	State         *string
	SearchTerm    *string
	Scope         VisibilityScope
	Limit         int
}

// LeadRepository encapsulates lead persistence.
type LeadRepository interface {
	Create(ctx context.Context, lead *domain.Lead) error
	Update(ctx context.Context, lead *domain.Lead) error
	GetByID(ctx context.Context, id int64) (*domain.Lead, error)
	ListWithFilter(ctx context.Context, filter LeadFilter) ([]domain.Lead, error)
}

type leadRepository struct {
	pool *pgxpool.Pool
}

// NewLeadRepository instantiates the repository.
func NewLeadRepository(pool *pgxpool.Pool) LeadRepository {
	return &leadRepository{pool: pool}
}

const leadColumns = `id, created_by, assigned_role, assigned_user_id, status, priority, source,
       first_name, last_name, company, property_name, phone, email, city, state, notes,
       created_at, updated_at`

func (r *leadRepository) Create(ctx context.Context, lead *domain.Lead) error {
	const query = `
        INSERT INTO portal_leads (created_by, assigned_role, assigned_user_id, status, priority,
            source, first_name, last_name, company, property_name, phone, email, city, state, notes)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		lead.CreatedBy,
		lead.AssignedRole,
		lead.AssignedUserID,
		lead.Status,
		lead.Priority,
		lead.Source,
		lead.FirstName,
		lead.LastName,
		lead.Company,
		lead.PropertyName,
		lead.Phone,
		lead.Email,
		lead.City,
		lead.State,
		lead.Notes,
	).Scan(&lead.ID, &lead.CreatedAt, &lead.UpdatedAt)
}

func (r *leadRepository) Update(ctx context.Context, lead *domain.Lead) error {
	const query = `
        UPDATE portal_leads
        SET assigned_role=$1, assigned_user_id=$2, status=$3, priority=$4, source=$5,
            first_name=$6, last_name=$7, company=$8, property_name=$9, phone=$10,
            email=$11, city=$12, state=$13, notes=$14, updated_at=NOW()
        WHERE id=$15`
	cmd, err := r.pool.Exec(ctx, query,
		lead.AssignedRole,
		lead.AssignedUserID,
		lead.Status,
		lead.Priority,
		lead.Source,
		lead.FirstName,
		lead.LastName,
		lead.Company,
		lead.PropertyName,
		lead.Phone,
		lead.Email,
		lead.City,
		lead.State,
		lead.Notes,
		lead.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *leadRepository) GetByID(ctx context.Context, id int64) (*domain.Lead, error) {
	query := fmt.Sprintf(`SELECT %s FROM portal_leads WHERE id=$1`, leadColumns)
	row := r.pool.QueryRow(ctx, query, id)
	return scanLead(row)
}

func (r *leadRepository) ListWithFilter(ctx context.Context, filter LeadFilter) ([]domain.Lead, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}
	if len(filter.AssignedRoles) > 0 {
		clauses = append(clauses, roleInClause("assigned_role", filter.AssignedRoles, &args))
	}
	if filter.State != nil {
		args = append(args, *filter.State)
		clauses = append(clauses, fmt.Sprintf("state=$%d", len(args)))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf(
			"(LOWER(first_name) LIKE %s OR LOWER(last_name) LIKE %s OR LOWER(company) LIKE %s OR LOWER(property_name) LIKE %s OR LOWER(email) LIKE %s)",
			placeholder, placeholder, placeholder, placeholder, placeholder))
	}
	if clause := scopeClause(filter.Scope, &args); clause != "" {
		clauses = append(clauses, clause)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 80
	}

	query := fmt.Sprintf(`
        SELECT %s FROM portal_leads
        WHERE %s
        ORDER BY created_at DESC
        LIMIT %d`, leadColumns, strings.Join(clauses, " AND "), limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *lead)
	}
	return result, rows.Err()
}

func scanLead(row rowScanner) (*domain.Lead, error) {
	var lead domain.Lead
	if err := row.Scan(
		&lead.ID,
		&lead.CreatedBy,
		&lead.AssignedRole,
		&lead.AssignedUserID,
		&lead.Status,
		&lead.Priority,
		&lead.Source,
		&lead.FirstName,
		&lead.LastName,
		&lead.Company,
		&lead.PropertyName,
		&lead.Phone,
		&lead.Email,
		&lead.City,
		&lead.State,
		&lead.Notes,
		&lead.CreatedAt,
		&lead.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &lead, nil
}
