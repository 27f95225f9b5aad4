package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ops-portal/internal/domain"
)

// ProfileRepository handles persistence for portal profiles.
type ProfileRepository interface {
	Create(ctx context.Context, profile *domain.Profile) error
	Update(ctx context.Context, profile *domain.Profile) error
	GetByUserID(ctx context.Context, userID string) (*domain.Profile, error)
	// EarliestWithRoles returns the earliest-created profile whose role is
	// one of the given roles, or pgx.ErrNoRows when none exists.
	EarliestWithRoles(ctx context.Context, roles []domain.Role) (*domain.Profile, error)
	ListWithRoles(ctx context.Context, roles []domain.Role, limit int) ([]domain.Profile, error)
}

type profileRepository struct {
	pool *pgxpool.Pool
}

// NewProfileRepository instantiates the repository.
func NewProfileRepository(pool *pgxpool.Pool) ProfileRepository {
	return &profileRepository{pool: pool}
}

func (r *profileRepository) Create(ctx context.Context, profile *domain.Profile) error {
	const query = `
        INSERT INTO portal_profiles (user_id, full_name, role)
        VALUES ($1, $2, $3)
        RETURNING created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		profile.UserID,
		profile.FullName,
		profile.Role,
	).Scan(&profile.CreatedAt, &profile.UpdatedAt)
}

func (r *profileRepository) Update(ctx context.Context, profile *domain.Profile) error {
	const query = `
        UPDATE portal_profiles SET full_name=$1, role=$2, updated_at=NOW()
        WHERE user_id=$3`

	cmd, err := r.pool.Exec(ctx, query, profile.FullName, profile.Role, profile.UserID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *profileRepository) GetByUserID(ctx context.Context, userID string) (*domain.Profile, error) {
	const query = `
        SELECT user_id, full_name, role, created_at, updated_at
        FROM portal_profiles WHERE user_id=$1`

	var profile domain.Profile
	if err := r.pool.QueryRow(ctx, query, userID).Scan(
		&profile.UserID,
		&profile.FullName,
		&profile.Role,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *profileRepository) EarliestWithRoles(ctx context.Context, roles []domain.Role) (*domain.Profile, error) {
	if len(roles) == 0 {
		return nil, pgx.ErrNoRows
	}
	query := fmt.Sprintf(`
        SELECT user_id, full_name, role, created_at, updated_at
        FROM portal_profiles WHERE role IN (%s)
        ORDER BY created_at ASC LIMIT 1`, rolePlaceholders(len(roles)))

	var profile domain.Profile
	if err := r.pool.QueryRow(ctx, query, roleArgs(roles)...).Scan(
		&profile.UserID,
		&profile.FullName,
		&profile.Role,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *profileRepository) ListWithRoles(ctx context.Context, roles []domain.Role, limit int) ([]domain.Profile, error) {
	if len(roles) == 0 {
		return []domain.Profile{}, nil
	}
	if limit <= 0 {
		limit = 100
	}
	query := fmt.Sprintf(`
        SELECT user_id, full_name, role, created_at, updated_at
        FROM portal_profiles WHERE role IN (%s)
        ORDER BY created_at ASC LIMIT %d`, rolePlaceholders(len(roles)), limit)

	rows, err := r.pool.Query(ctx, query, roleArgs(roles)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Profile
	for rows.Next() {
		var profile domain.Profile
		if err := rows.Scan(
			&profile.UserID,
			&profile.FullName,
			&profile.Role,
			&profile.CreatedAt,
			&profile.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, profile)
	}
	return result, rows.Err()
}

func rolePlaceholders(n int) string {
	placeholders := make([]string, n)
	for i := range placeholders {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	return strings.Join(placeholders, ",")
}

func roleArgs(roles []domain.Role) []any {
	args := make([]any, len(roles))
	for i, role := range roles {
		args[i] = role
	}
	return args
}
