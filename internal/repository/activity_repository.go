package repository

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ops-portal/internal/domain"
)

// ActivityRepository is the append-only audit sink attached to leads.
type ActivityRepository interface {
	Create(ctx context.Context, activity *domain.LeadActivity) error
	ListByLead(ctx context.Context, leadID int64, limit int) ([]domain.LeadActivity, error)
}

type activityRepository struct {
	pool *pgxpool.Pool
}

// NewActivityRepository instantiates the repository.
func NewActivityRepository(pool *pgxpool.Pool) ActivityRepository {
	return &activityRepository{pool: pool}
}

func (r *activityRepository) Create(ctx context.Context, activity *domain.LeadActivity) error {
	payload, err := json.Marshal(activity.Payload)
	if err != nil {
		return err
	}
	const query = `
        INSERT INTO portal_lead_activities (lead_id, created_by, activity_type, outcome, notes, payload)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		activity.LeadID,
		activity.CreatedBy,
		activity.ActivityType,
		activity.Outcome,
		activity.Notes,
		payload,
	).Scan(&activity.ID, &activity.CreatedAt)
}

func (r *activityRepository) ListByLead(ctx context.Context, leadID int64, limit int) ([]domain.LeadActivity, error) {
	if limit <= 0 {
		limit = 100
	}
	const query = `
        SELECT id, lead_id, created_by, activity_type, outcome, notes, payload, created_at
        FROM portal_lead_activities
        WHERE lead_id=$1
        ORDER BY created_at DESC
        LIMIT $2`

	rows, err := r.pool.Query(ctx, query, leadID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.LeadActivity
	for rows.Next() {
		var activity domain.LeadActivity
		var payload []byte
		if err := rows.Scan(
			&activity.ID,
			&activity.LeadID,
			&activity.CreatedBy,
			&activity.ActivityType,
			&activity.Outcome,
			&activity.Notes,
			&payload,
			&activity.CreatedAt,
		); err != nil {
			return nil, err
		}
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &activity.Payload); err != nil {
				return nil, err
			}
		}
		result = append(result, activity)
	}
	return result, rows.Err()
}
