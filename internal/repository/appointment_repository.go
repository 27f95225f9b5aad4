package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ops-portal/internal/domain"
)

// AppointmentFilter captures appointment listing parameters.
type AppointmentFilter struct {
	Status *domain.AppointmentStatus
	LeadID *int64
	Scope  VisibilityScope
	Limit  int
}

// AppointmentRepository encapsulates appointment persistence.
type AppointmentRepository interface {
	Create(ctx context.Context, appointment *domain.Appointment) error
	Update(ctx context.Context, appointment *domain.Appointment) error
	GetByID(ctx context.Context, id int64) (*domain.Appointment, error)
	ListWithFilter(ctx context.Context, filter AppointmentFilter) ([]domain.Appointment, error)
}

type appointmentRepository struct {
	pool *pgxpool.Pool
}

// NewAppointmentRepository instantiates the repository.
func NewAppointmentRepository(pool *pgxpool.Pool) AppointmentRepository {
	return &appointmentRepository{pool: pool}
}

const appointmentColumns = `id, created_by, assigned_role, assigned_user_id, status,
       title, event_date, start_time, end_time, city, state, notes, lead_id, lead_label,
       created_at, updated_at`

func (r *appointmentRepository) Create(ctx context.Context, appointment *domain.Appointment) error {
	const query = `
        INSERT INTO portal_appointments (created_by, assigned_role, assigned_user_id, status,
            title, event_date, start_time, end_time, city, state, notes, lead_id, lead_label)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		appointment.CreatedBy,
		appointment.AssignedRole,
		appointment.AssignedUserID,
		appointment.Status,
		appointment.Title,
		appointment.EventDate,
		appointment.StartTime,
		appointment.EndTime,
		appointment.City,
		appointment.State,
		appointment.Notes,
		appointment.LeadID,
		appointment.LeadLabel,
	).Scan(&appointment.ID, &appointment.CreatedAt, &appointment.UpdatedAt)
}

func (r *appointmentRepository) Update(ctx context.Context, appointment *domain.Appointment) error {
	const query = `
        UPDATE portal_appointments
        SET assigned_user_id=$1, status=$2, title=$3, event_date=$4, start_time=$5,
            end_time=$6, city=$7, state=$8, notes=$9, updated_at=NOW()
        WHERE id=$10`
	cmd, err := r.pool.Exec(ctx, query,
		appointment.AssignedUserID,
		appointment.Status,
		appointment.Title,
		appointment.EventDate,
		appointment.StartTime,
		appointment.EndTime,
		appointment.City,
		appointment.State,
		appointment.Notes,
		appointment.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *appointmentRepository) GetByID(ctx context.Context, id int64) (*domain.Appointment, error) {
	query := fmt.Sprintf(`SELECT %s FROM portal_appointments WHERE id=$1`, appointmentColumns)
	row := r.pool.QueryRow(ctx, query, id)
	return scanAppointment(row)
}

func (r *appointmentRepository) ListWithFilter(ctx context.Context, filter AppointmentFilter) ([]domain.Appointment, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}
	if filter.LeadID != nil {
		args = append(args, *filter.LeadID)
		clauses = append(clauses, fmt.Sprintf("lead_id=$%d", len(args)))
	}
	if clause := scopeClause(filter.Scope, &args); clause != "" {
		clauses = append(clauses, clause)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 80
	}

	query := fmt.Sprintf(`
        SELECT %s FROM portal_appointments
        WHERE %s
        ORDER BY event_date ASC, start_time ASC, id DESC
        LIMIT %d`, appointmentColumns, strings.Join(clauses, " AND "), limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Appointment
	for rows.Next() {
		appointment, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *appointment)
	}
	return result, rows.Err()
}

func scanAppointment(row rowScanner) (*domain.Appointment, error) {
	var appointment domain.Appointment
	if err := row.Scan(
		&appointment.ID,
		&appointment.CreatedBy,
		&appointment.AssignedRole,
		&appointment.AssignedUserID,
		&appointment.Status,
		&appointment.Title,
		&appointment.EventDate,
		&appointment.StartTime,
		&appointment.EndTime,
		&appointment.City,
		&appointment.State,
		&appointment.Notes,
		&appointment.LeadID,
		&appointment.LeadLabel,
		&appointment.CreatedAt,
		&appointment.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &appointment, nil
}
