package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/ops-portal/internal/domain"
	"github.com/spec-kit/ops-portal/internal/events"
	"github.com/spec-kit/ops-portal/internal/repository"
	apperrors "github.com/spec-kit/ops-portal/pkg/util"
)

// AssignmentService manages events and their staffing rosters.
type AssignmentService struct {
	events     repository.EventRepository
	profiles   repository.ProfileRepository
	dispatcher events.Dispatcher
}

// AssignmentDependencies bundles collaborators for the assignment service.
type AssignmentDependencies struct {
	EventRepo   repository.EventRepository
	ProfileRepo repository.ProfileRepository
	Dispatcher  events.Dispatcher
}

// NewAssignmentService constructs the service.
func NewAssignmentService(deps AssignmentDependencies) *AssignmentService {
	return &AssignmentService{
		events:     deps.EventRepo,
		profiles:   deps.ProfileRepo,
		dispatcher: deps.Dispatcher,
	}
}

// EventCreateInput describes event creation payload.
type EventCreateInput struct {
	Title     string
	EventDate string
	StartTime string
	EndTime   string
	City      string
	State     string
	Notes     string
}

// EventListInput describes listing filters.
type EventListInput struct {
	Status       domain.EventStatus
	AssignedRole domain.Role
	Scope        string
	Limit        int
}

// RosterEntry is an assignment joined with the person's profile, as returned
// to roster viewers.
type RosterEntry struct {
	Assignment domain.Assignment
	FullName   string
}

// CreateEvent creates an event owned operationally by coordinators.
func (s *AssignmentService) CreateEvent(ctx context.Context, actor domain.ActorContext, input EventCreateInput) (*domain.Event, error) {
	if !actor.HasRole(domain.RoleEventCoordinator) {
		return nil, apperrors.NewForbidden("insufficient role for event creation")
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.NewValidationError("title required", nil)
	}

	event := &domain.Event{
		CreatedBy:    actor.ActingUserID,
		AssignedRole: domain.RoleEventCoordinator,
		Status:       domain.EventStatusOpen,
		Title:        title,
		StartTime:    strings.TrimSpace(input.StartTime),
		EndTime:      strings.TrimSpace(input.EndTime),
		City:         strings.TrimSpace(input.City),
		State:        strings.TrimSpace(input.State),
		Notes:        strings.TrimSpace(input.Notes),
	}
	if date := strings.TrimSpace(input.EventDate); date != "" {
		event.EventDate = &date
	}
	if err := s.events.Create(ctx, event); err != nil {
		return nil, apperrors.MapError(err)
	}
	return event, nil
}

// GetEvent fetches an event the actor may see.
func (s *AssignmentService) GetEvent(ctx context.Context, actor domain.ActorContext, id int64) (*domain.Event, error) {
	event, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.canSeeEvent(actor, event) {
		return nil, apperrors.NewForbidden("access denied")
	}
	return event, nil
}

// ListEvents returns events visible to the actor.
func (s *AssignmentService) ListEvents(ctx context.Context, actor domain.ActorContext, input EventListInput) ([]domain.Event, error) {
	filter := repository.EventFilter{
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

	list, err := s.events.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	visible := make([]domain.Event, 0, len(list))
	for i := range list {
		if s.canSeeEvent(actor, &list[i]) {
			visible = append(visible, list[i])
		}
	}
	return visible, nil
}

// Roster returns the event's assignments with display names resolved.
func (s *AssignmentService) Roster(ctx context.Context, actor domain.ActorContext, eventID int64) ([]RosterEntry, error) {
	event, err := s.GetEvent(ctx, actor, eventID)
	if err != nil {
		return nil, err
	}

	entries := make([]RosterEntry, 0, len(event.Meta.Assignments))
	for _, assignment := range event.Meta.Assignments {
		entry := RosterEntry{Assignment: assignment}
		if profile, err := s.profiles.GetByUserID(ctx, assignment.UserID); err == nil {
			entry.FullName = profile.FullName
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// AddAssignment invites a person onto the roster under one staffing role.
// A person holds at most one roster slot per event.
func (s *AssignmentService) AddAssignment(ctx context.Context, actor domain.ActorContext, eventID int64, role domain.Role, userID, note string) (*domain.Event, error) {
	if !actor.HasRole(domain.RoleEventCoordinator) {
		return nil, apperrors.NewForbidden("insufficient role for roster changes")
	}
	if !domain.IsRosterRole(role) {
		return nil, apperrors.NewValidationError("role not eligible for event staffing", map[string]any{"role": role})
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, apperrors.NewValidationError("user id required", nil)
	}

	profile, err := s.profiles.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("profile", map[string]any{"user_id": userID})
		}
		return nil, apperrors.MapError(err)
	}
	if !domain.RoleMatchesAny(profile.Role, role) && profile.Role != domain.RoleManager {
		return nil, apperrors.NewValidationError("person does not hold the staffing role", map[string]any{
			"role":      role,
			"user_role": profile.Role,
		})
	}

	event, err := s.mutateRoster(ctx, eventID, func(event *domain.Event) error {
		if event.Status.Terminal() {
			return apperrors.NewInvalidTransition("event no longer accepts staffing changes", map[string]any{"status": event.Status})
		}
		if event.Meta.HasUser(userID) {
			return apperrors.NewConflict("person already on roster", map[string]any{"user_id": userID})
		}
		event.Meta.Assignments = append(event.Meta.Assignments, domain.Assignment{
			Role:      role,
			UserID:    userID,
			Status:    domain.AssignmentPending,
			Note:      strings.TrimSpace(note),
			UpdatedAt: time.Now().UTC(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, actor, events.Event{
		Type:     events.EventAssignmentAdded,
		RecordID: event.ID,
		Payload:  events.AssignmentAddedPayload{Role: role, UserID: userID},
	})
	return event, nil
}

// RespondAssignment records the invitee's accept or decline. Decisions are
// final; the first accept moves the event out of open.
func (s *AssignmentService) RespondAssignment(ctx context.Context, actor domain.ActorContext, eventID int64, decision domain.AssignmentStatus, note string) (*domain.Event, error) {
	if decision != domain.AssignmentAccepted && decision != domain.AssignmentDeclined {
		return nil, apperrors.NewValidationError("decision must be accepted or declined", nil)
	}
	if actor.ActingUserID == "" {
		return nil, apperrors.NewForbidden("no acting identity")
	}

	var decided domain.Assignment
	event, err := s.mutateRoster(ctx, eventID, func(event *domain.Event) error {
		idx := -1
		for i := range event.Meta.Assignments {
			if event.Meta.Assignments[i].UserID == actor.ActingUserID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return apperrors.NewNotFound("assignment", map[string]any{"event_id": eventID})
		}

		current := &event.Meta.Assignments[idx]
		if current.Status != domain.AssignmentPending {
			return apperrors.NewInvalidTransition("assignment already decided", map[string]any{
				"status": current.Status,
			})
		}

		now := time.Now().UTC()
		current.Status = decision
		current.UpdatedAt = now
		current.DecidedAt = &now
		if n := strings.TrimSpace(note); n != "" {
			current.Note = n
		}
		decided = *current
		return nil
	})
	if err != nil {
		return nil, err
	}
	if decision == domain.AssignmentAccepted {
		if err := s.events.MarkAssignedIfOpen(ctx, event.ID); err != nil {
			return nil, apperrors.MapError(err)
		}
		if event.Status == domain.EventStatusOpen {
			event.Status = domain.EventStatusAssigned
		}
	}

	s.publish(ctx, actor, events.Event{
		Type:     events.EventAssignmentResponded,
		RecordID: event.ID,
		Payload: events.AssignmentRespondedPayload{
			Role:     decided.Role,
			UserID:   decided.UserID,
			Decision: decision,
		},
	})
	return event, nil
}

// RemoveAssignment drops a person from the roster. Event status never
// reverts, even when the last acceptance leaves.
func (s *AssignmentService) RemoveAssignment(ctx context.Context, actor domain.ActorContext, eventID int64, userID string) (*domain.Event, error) {
	if !actor.HasRole(domain.RoleEventCoordinator) {
		return nil, apperrors.NewForbidden("insufficient role for roster changes")
	}

	var removed domain.Assignment
	event, err := s.mutateRoster(ctx, eventID, func(event *domain.Event) error {
		// The removed entry is copied out by value before the roster is
		// rebuilt, so compaction cannot shift another entry into its place.
		kept := make([]domain.Assignment, 0, len(event.Meta.Assignments))
		found := false
		for _, assignment := range event.Meta.Assignments {
			if assignment.UserID == userID {
				removed = assignment
				found = true
				continue
			}
			kept = append(kept, assignment)
		}
		if !found {
			return apperrors.NewNotFound("assignment", map[string]any{"user_id": userID})
		}
		event.Meta.Assignments = kept
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, actor, events.Event{
		Type:     events.EventAssignmentRemoved,
		RecordID: event.ID,
		Payload:  events.AssignmentRemovedPayload{Role: removed.Role, UserID: removed.UserID},
	})
	return event, nil
}

// rosterRetries bounds the reload-and-reapply loop for lost meta writes.
const rosterRetries = 3

// mutateRoster applies a roster mutation under a meta version guard. Two
// entries responding at the same time each land on their own entry: the
// loser of the write race reloads the fresh roster and reapplies, so
// neither response can overwrite the other.
func (s *AssignmentService) mutateRoster(ctx context.Context, eventID int64, mutate func(*domain.Event) error) (*domain.Event, error) {
	for attempt := 0; attempt < rosterRetries; attempt++ {
		event, err := s.fetch(ctx, eventID)
		if err != nil {
			return nil, err
		}
		if err := mutate(event); err != nil {
			return nil, err
		}
		expected := event.Meta.Version
		event.Meta.Version = expected + 1
		ok, err := s.events.UpdateMetaIfVersion(ctx, event.ID, event.Meta, expected)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		if ok {
			return event, nil
		}
	}
	return nil, apperrors.NewConflict("roster changed concurrently", map[string]any{"event_id": eventID})
}

// canSeeEvent extends the shared predicate with roster membership: anyone on
// the roster sees the event regardless of their role group.
func (s *AssignmentService) canSeeEvent(actor domain.ActorContext, event *domain.Event) bool {
	if CanSee(actor, event.Access()) {
		return true
	}
	return actor.ActingUserID != "" && event.Meta.HasUser(actor.ActingUserID)
}

func (s *AssignmentService) fetch(ctx context.Context, id int64) (*domain.Event, error) {
	event, err := s.events.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("event", map[string]any{"event_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return event, nil
}

func (s *AssignmentService) publish(ctx context.Context, actor domain.ActorContext, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	event.ID = uuid.NewString()
	event.Timestamp = time.Now()
	event.Actor = events.Actor{UserID: actor.ActingUserID, Role: actor.ActingRole}
	s.dispatcher.Publish(ctx, event)
}
