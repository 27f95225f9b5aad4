package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/ops-portal/internal/domain"
	"github.com/spec-kit/ops-portal/internal/repository"
	apperrors "github.com/spec-kit/ops-portal/pkg/util"
)

// LeadService manages the sales pipeline records dispatch tasks link to.
type LeadService struct {
	leads      repository.LeadRepository
	activities repository.ActivityRepository
}

// LeadDependencies bundles collaborators for the lead service.
type LeadDependencies struct {
	LeadRepo     repository.LeadRepository
	ActivityRepo repository.ActivityRepository
}

// NewLeadService constructs the service.
func NewLeadService(deps LeadDependencies) *LeadService {
	return &LeadService{leads: deps.LeadRepo, activities: deps.ActivityRepo}
}

// LeadCreateInput describes lead creation payload.
type LeadCreateInput struct {
	FirstName    string
	LastName     string
	Company      string
	PropertyName string
	Phone        string
	Email        string
	City         string
	State        string
	Source       string
	Notes        string
	AssignedRole domain.Role
	Priority     int
}

// LeadListInput describes listing filters.
type LeadListInput struct {
	Status       domain.LeadStatus
	AssignedRole domain.Role
	State        string
	Search       string
	Scope        string
	Limit        int
}

// LeadPatch is a partial update. Nil fields are untouched.
type LeadPatch struct {
	Status         *domain.LeadStatus
	Priority       *int
	AssignedRole   *domain.Role
	AssignedUserID *string
	Notes          *string
	Phone          *string
	Email          *string
}

// ActivityInput describes a manually logged lead activity.
type ActivityInput struct {
	ActivityType domain.ActivityType
	Outcome      string
	Notes        string
	Payload      map[string]any
}

// CreateLead records a new pipeline lead.
func (s *LeadService) CreateLead(ctx context.Context, actor domain.ActorContext, input LeadCreateInput) (*domain.Lead, error) {
	if strings.TrimSpace(input.FirstName) == "" && strings.TrimSpace(input.Company) == "" {
		return nil, apperrors.NewValidationError("first name or company required", nil)
	}
	role := input.AssignedRole
	if role == "" {
		role = domain.RoleDialer
	}
	if !domain.IsValidRole(role) {
		return nil, apperrors.NewValidationError("unknown role", map[string]any{"role": role})
	}

	lead := &domain.Lead{
		CreatedBy:    actor.ActingUserID,
		AssignedRole: role,
		Status:       domain.LeadStatusNew,
		Priority:     input.Priority,
		Source:       strings.TrimSpace(input.Source),
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		Company:      strings.TrimSpace(input.Company),
		PropertyName: strings.TrimSpace(input.PropertyName),
		Phone:        strings.TrimSpace(input.Phone),
		Email:        strings.ToLower(strings.TrimSpace(input.Email)),
		City:         strings.TrimSpace(input.City),
		State:        strings.ToUpper(strings.TrimSpace(input.State)),
		Notes:        strings.TrimSpace(input.Notes),
	}
	if err := s.leads.Create(ctx, lead); err != nil {
		return nil, apperrors.MapError(err)
	}
	return lead, nil
}

// GetLead fetches a lead the actor may see.
func (s *LeadService) GetLead(ctx context.Context, actor domain.ActorContext, id int64) (*domain.Lead, error) {
	lead, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanSee(actor, lead.Access()) {
		return nil, apperrors.NewForbidden("access denied")
	}
	return lead, nil
}

// ListLeads returns leads visible to the actor.
func (s *LeadService) ListLeads(ctx context.Context, actor domain.ActorContext, input LeadListInput) ([]domain.Lead, error) {
	filter := repository.LeadFilter{
		Scope: ScopeFor(actor, input.Scope),
		Limit: input.Limit,
	}
	if input.Status != "" {
		status := input.Status
		filter.Status = &status
	}
	if input.AssignedRole != "" {
		filter.AssignedRoles = domain.ExpandAliases(input.AssignedRole)
	}
	if state := strings.ToUpper(strings.TrimSpace(input.State)); state != "" {
		filter.State = &state
	}
	if search := strings.TrimSpace(input.Search); search != "" {
		filter.SearchTerm = &search
	}

	list, err := s.leads.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	visible := make([]domain.Lead, 0, len(list))
	for i := range list {
		if CanSee(actor, list[i].Access()) {
			visible = append(visible, list[i])
		}
	}
	return visible, nil
}

// PatchLead applies a partial update for editors.
func (s *LeadService) PatchLead(ctx context.Context, actor domain.ActorContext, id int64, patch LeadPatch) (*domain.Lead, error) {
	lead, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanEdit(actor, lead.Access()) {
		return nil, apperrors.NewForbidden("access denied")
	}

	if patch.Status != nil && *patch.Status != "" {
		lead.Status = *patch.Status
	}
	if patch.Priority != nil {
		lead.Priority = *patch.Priority
	}
	if patch.AssignedRole != nil && *patch.AssignedRole != "" {
		if !domain.IsValidRole(*patch.AssignedRole) {
			return nil, apperrors.NewValidationError("unknown role", nil)
		}
		lead.AssignedRole = *patch.AssignedRole
	}
	if patch.AssignedUserID != nil {
		if uid := strings.TrimSpace(*patch.AssignedUserID); uid != "" {
			lead.AssignedUserID = &uid
		} else {
			lead.AssignedUserID = nil
		}
	}
	if patch.Notes != nil {
		lead.Notes = strings.TrimSpace(*patch.Notes)
	}
	if patch.Phone != nil {
		lead.Phone = strings.TrimSpace(*patch.Phone)
	}
	if patch.Email != nil {
		lead.Email = strings.ToLower(strings.TrimSpace(*patch.Email))
	}

	if err := s.leads.Update(ctx, lead); err != nil {
		return nil, apperrors.MapError(err)
	}
	return lead, nil
}

// LogActivity appends an activity entry under the acting identity.
func (s *LeadService) LogActivity(ctx context.Context, actor domain.ActorContext, leadID int64, input ActivityInput) (*domain.LeadActivity, error) {
	lead, err := s.GetLead(ctx, actor, leadID)
	if err != nil {
		return nil, err
	}
	activityType := input.ActivityType
	if activityType == "" {
		activityType = domain.ActivityTypeNote
	}

	activity := &domain.LeadActivity{
		LeadID:       lead.ID,
		ActivityType: activityType,
		Outcome:      strings.TrimSpace(input.Outcome),
		Notes:        strings.TrimSpace(input.Notes),
		Payload:      input.Payload,
	}
	if actor.ActingUserID != "" {
		uid := actor.ActingUserID
		activity.CreatedBy = &uid
	}
	if err := s.activities.Create(ctx, activity); err != nil {
		return nil, apperrors.MapError(err)
	}
	return activity, nil
}

// ListActivities returns the lead's audit trail, newest first.
func (s *LeadService) ListActivities(ctx context.Context, actor domain.ActorContext, leadID int64, limit int) ([]domain.LeadActivity, error) {
	if _, err := s.GetLead(ctx, actor, leadID); err != nil {
		return nil, err
	}
	activities, err := s.activities.ListByLead(ctx, leadID, limit)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return activities, nil
}

func (s *LeadService) fetch(ctx context.Context, id int64) (*domain.Lead, error) {
	lead, err := s.leads.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("lead", map[string]any{"lead_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return lead, nil
}
