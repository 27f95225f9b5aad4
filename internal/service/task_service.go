package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/ops-portal/internal/config"
	"github.com/spec-kit/ops-portal/internal/domain"
	"github.com/spec-kit/ops-portal/internal/events"
	"github.com/spec-kit/ops-portal/internal/repository"
	apperrors "github.com/spec-kit/ops-portal/pkg/util"
)

// SweepLocker serializes sweep runs across instances. Implementations may
// grant the lock when the coordination backend is unreachable.
type SweepLocker interface {
	AcquireLock(ctx context.Context, name string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, name string)
}

const sweepLockName = "dispatch_sweep"

// TaskService coordinates the dispatch task lifecycle: creation, claiming,
// escalation, completion, cancellation, and the scheduled escalation sweep.
type TaskService struct {
	tasks      repository.TaskRepository
	leads      repository.LeadRepository
	dispatcher events.Dispatcher
	locker     SweepLocker
	escalation config.EscalationConfig
}

// TaskDependencies bundles repositories for the task service.
type TaskDependencies struct {
	TaskRepo   repository.TaskRepository
	LeadRepo   repository.LeadRepository
	Dispatcher events.Dispatcher
	Locker     SweepLocker
	Escalation config.EscalationConfig
}

// NewTaskService constructs the service.
func NewTaskService(deps TaskDependencies) *TaskService {
	return &TaskService{
		tasks:      deps.TaskRepo,
		leads:      deps.LeadRepo,
		dispatcher: deps.Dispatcher,
		locker:     deps.Locker,
		escalation: deps.Escalation,
	}
}

// TaskCreateInput describes task creation payload.
type TaskCreateInput struct {
	Title          string
	Notes          string
	AssignedRole   domain.Role
	AssignedUserID string
	DueDate        string
	DueTime        string
	Priority       int
	Reason         string
	LeadID         *int64
}

// TaskListInput describes listing filters. Statuses wins over Status when
// both are set; the handler only ever fills one.
type TaskListInput struct {
	Status       domain.TaskStatus
	Statuses     []domain.TaskStatus
	AssignedRole domain.Role
	LeadID       *int64
	OverdueOnly  bool
	Scope        string
	Limit        int
}

// TaskPatch is a partial update. Nil fields are untouched; an empty
// AssignedUserID or DueDate clears the column.
type TaskPatch struct {
	Status         *domain.TaskStatus
	Title          *string
	Notes          *string
	DueDate        *string
	DueTime        *string
	AssignedRole   *domain.Role
	AssignedUserID *string
	Priority       *int
}

// SweepResult summarizes one escalation sweep run.
type SweepResult struct {
	Scanned   int
	Escalated int
}

// CreateTask creates a dispatch task routed to a role inbox. Restricted to
// coordinators and managers; non-managers can only pre-assign themselves.
func (s *TaskService) CreateTask(ctx context.Context, actor domain.ActorContext, input TaskCreateInput) (*domain.DispatchTask, error) {
	if !actor.HasRole(domain.RoleEventCoordinator) {
		return nil, apperrors.NewForbidden("insufficient role for task creation")
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.NewValidationError("title required", nil)
	}
	if input.AssignedRole == "" || !domain.IsValidRole(input.AssignedRole) {
		return nil, apperrors.NewValidationError("assigned role required", nil)
	}

	assignedUserID := strings.TrimSpace(input.AssignedUserID)
	if !actor.IsManager() && assignedUserID != "" && assignedUserID != actor.ActingUserID {
		assignedUserID = ""
	}

	task := &domain.DispatchTask{
		CreatedBy:    actor.ActingUserID,
		AssignedRole: input.AssignedRole,
		Status:       domain.TaskStatusOpen,
		Title:        title,
		Notes:        strings.TrimSpace(input.Notes),
		DueTime:      strings.TrimSpace(input.DueTime),
		Meta: domain.DispatchMeta{
			LeadID:   input.LeadID,
			Priority: clampPriority(input.Priority),
			Reason:   strings.TrimSpace(input.Reason),
		},
	}
	if assignedUserID != "" {
		task.AssignedUserID = &assignedUserID
	}
	if due := strings.TrimSpace(input.DueDate); due != "" {
		task.DueDate = &due
	}
	if input.LeadID != nil {
		if lead, err := s.leads.GetByID(ctx, *input.LeadID); err == nil {
			task.Meta.LeadLabel = lead.Label()
		}
	}

	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publish(ctx, actor, events.Event{
		Type:     events.EventTaskCreated,
		RecordID: task.ID,
		Payload: events.TaskCreatedPayload{
			Title:        task.Title,
			AssignedRole: task.AssignedRole,
			LeadID:       task.Meta.LeadID,
			Priority:     task.Meta.Priority,
			DueDate:      task.DueDate,
			DueTime:      task.DueTime,
		},
	})
	return task, nil
}

// GetTask fetches a task the actor may see.
func (s *TaskService) GetTask(ctx context.Context, actor domain.ActorContext, id int64) (*domain.DispatchTask, error) {
	task, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanSee(actor, task.Access()) {
		return nil, apperrors.NewForbidden("access denied")
	}
	return task, nil
}

// ListTasks returns tasks visible to the actor, scoped and filtered.
func (s *TaskService) ListTasks(ctx context.Context, actor domain.ActorContext, input TaskListInput) ([]domain.DispatchTask, error) {
	filter := repository.TaskFilter{
		LeadID: input.LeadID,
		Scope:  ScopeFor(actor, input.Scope),
		Limit:  input.Limit,
	}
	if len(input.Statuses) > 0 {
		filter.Statuses = input.Statuses
	} else if input.Status != "" {
		status := input.Status
		filter.Status = &status
	}
	if input.AssignedRole != "" {
		filter.AssignedRoles = domain.ExpandAliases(input.AssignedRole)
	}

	tasks, err := s.tasks.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	today := todayISO()
	visible := make([]domain.DispatchTask, 0, len(tasks))
	for _, task := range tasks {
		if !CanSee(actor, task.Access()) {
			continue
		}
		if input.OverdueOnly && !overdue(&task, today) {
			continue
		}
		visible = append(visible, task)
	}
	return visible, nil
}

// PatchTask applies a partial update. Full edits require CanEdit; an
// eligible non-owner may instead claim an open, unassigned task, in which
// case every field except the self-assignment and status is discarded.
func (s *TaskService) PatchTask(ctx context.Context, actor domain.ActorContext, id int64, patch TaskPatch) (*domain.DispatchTask, error) {
	task, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}

	canEdit := CanEdit(actor, task.Access())
	if canEdit {
		return s.applyEdit(ctx, actor, task, patch)
	}

	wantsSelfAssign := patch.AssignedUserID != nil &&
		*patch.AssignedUserID != "" &&
		*patch.AssignedUserID == actor.ActingUserID
	canClaim := wantsSelfAssign &&
		task.AssignedUserID == nil &&
		task.AssignedRole != "" &&
		domain.RoleMatchesAny(actor.ActingRole, task.AssignedRole) &&
		task.Status == domain.TaskStatusOpen

	if !canClaim {
		return nil, apperrors.NewForbidden("access denied")
	}
	return s.applyClaim(ctx, actor, task, patch)
}

// applyClaim performs the restricted self-assignment. The patch is rewritten
// down to the assignee and status, not merely validated, since claims arrive
// through the same endpoint as privileged edits.
func (s *TaskService) applyClaim(ctx context.Context, actor domain.ActorContext, task *domain.DispatchTask, patch TaskPatch) (*domain.DispatchTask, error) {
	status := domain.TaskStatusAssigned
	if patch.Status != nil && *patch.Status != "" {
		status = *patch.Status
	}
	if !domain.IsValidTaskTransition(task.Status, status) {
		return nil, apperrors.NewInvalidTransition("invalid status for claim", map[string]any{
			"from": task.Status,
			"to":   status,
		})
	}

	won, err := s.tasks.Claim(ctx, task.ID, actor.ActingUserID, status)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if !won {
		return nil, apperrors.NewConflict("task already claimed", map[string]any{"task_id": task.ID})
	}

	claimed, err := s.fetch(ctx, task.ID)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, actor, events.Event{
		Type:     events.EventTaskClaimed,
		RecordID: task.ID,
		Payload: events.TaskClaimedPayload{
			AssignedUserID: actor.ActingUserID,
			LeadID:         task.Meta.LeadID,
		},
	})
	return claimed, nil
}

func (s *TaskService) applyEdit(ctx context.Context, actor domain.ActorContext, task *domain.DispatchTask, patch TaskPatch) (*domain.DispatchTask, error) {
	oldStatus := task.Status

	if patch.Status != nil && *patch.Status != "" {
		if !domain.IsValidTaskTransition(task.Status, *patch.Status) {
			return nil, apperrors.NewInvalidTransition("invalid status transition", map[string]any{
				"from": task.Status,
				"to":   *patch.Status,
			})
		}
		task.Status = *patch.Status
	}
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return nil, apperrors.NewValidationError("title cannot be empty", nil)
		}
		task.Title = title
	}
	if patch.Notes != nil {
		task.Notes = strings.TrimSpace(*patch.Notes)
	}
	if patch.DueDate != nil {
		if due := strings.TrimSpace(*patch.DueDate); due != "" {
			task.DueDate = &due
		} else {
			task.DueDate = nil
		}
	}
	if patch.DueTime != nil {
		task.DueTime = strings.TrimSpace(*patch.DueTime)
	}
	if patch.AssignedRole != nil && *patch.AssignedRole != "" {
		if !domain.IsValidRole(*patch.AssignedRole) {
			return nil, apperrors.NewValidationError("unknown role", nil)
		}
		task.AssignedRole = *patch.AssignedRole
	}
	if patch.AssignedUserID != nil {
		if uid := strings.TrimSpace(*patch.AssignedUserID); uid != "" {
			task.AssignedUserID = &uid
		} else {
			task.AssignedUserID = nil
		}
	}
	if patch.Priority != nil {
		task.Meta.Priority = clampPriority(*patch.Priority)
	}

	if err := s.tasks.Update(ctx, task); err != nil {
		return nil, apperrors.MapError(err)
	}
	if task.Status != oldStatus {
		s.publish(ctx, actor, events.Event{
			Type:     events.EventTaskStatusChanged,
			RecordID: task.ID,
			Payload: events.TaskStatusChangedPayload{
				Title:     task.Title,
				OldStatus: oldStatus,
				NewStatus: task.Status,
				LeadID:    task.Meta.LeadID,
			},
		})
	}
	return task, nil
}

// EscalateTask applies the one-time priority bump. Re-invoking on an already
// escalated task is a safe no-op.
func (s *TaskService) EscalateTask(ctx context.Context, actor domain.ActorContext, id int64) (*domain.DispatchTask, error) {
	if !actor.HasRole(domain.RoleEventCoordinator) {
		return nil, apperrors.NewForbidden("insufficient role for escalation")
	}
	task, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	if task.Meta.Escalated() {
		return task, nil
	}

	escalated, wrote, err := s.escalate(ctx, task, actor.ActingUserID)
	if err != nil {
		return nil, err
	}
	if wrote {
		s.publish(ctx, actor, events.Event{
			Type:     events.EventTaskEscalated,
			RecordID: task.ID,
			Payload: events.TaskEscalatedPayload{
				Title:    task.Title,
				Priority: escalated.Meta.Priority,
				LeadID:   task.Meta.LeadID,
			},
		})
	}
	return escalated, nil
}

// SweepEscalations escalates every overdue, not-yet-escalated task exactly
// once. Safe to re-run on any schedule and concurrently with itself or with
// manual escalations: the store-level guard decides each race.
func (s *TaskService) SweepEscalations(ctx context.Context, actorUserID string) (SweepResult, error) {
	if s.locker != nil {
		acquired, _ := s.locker.AcquireLock(ctx, sweepLockName, time.Minute)
		if !acquired {
			return SweepResult{}, apperrors.NewConflict("sweep already running", nil)
		}
		defer s.locker.ReleaseLock(ctx, sweepLockName)
	}

	candidates, err := s.tasks.ListSweepCandidates(ctx, s.escalation.SweepLimit)
	if err != nil {
		return SweepResult{}, apperrors.MapError(err)
	}

	today := todayISO()
	cutoff := time.Now().UTC().Add(-s.escalation.UnduedCutoff())
	result := SweepResult{Scanned: len(candidates)}

	for i := range candidates {
		task := &candidates[i]
		if !sweepEligible(task, today, cutoff) {
			continue
		}
		_, wrote, err := s.escalate(ctx, task, actorUserID)
		if err != nil || !wrote {
			continue
		}
		result.Escalated++
		s.publish(ctx, domain.ActorContext{RealUserID: actorUserID, ActingUserID: actorUserID}, events.Event{
			Type:     events.EventTaskEscalated,
			RecordID: task.ID,
			Payload: events.TaskEscalatedPayload{
				Title:    task.Title,
				Priority: task.Meta.Priority,
				LeadID:   task.Meta.LeadID,
				Swept:    true,
			},
		})
	}
	return result, nil
}

// escalate computes the bumped meta and writes it behind the set-once guard.
// Returns the current row and whether this call won the write.
func (s *TaskService) escalate(ctx context.Context, task *domain.DispatchTask, actorUserID string) (*domain.DispatchTask, bool, error) {
	now := time.Now().UTC()
	next := task.Meta
	next.Priority = maxInt(next.Priority, s.escalation.PriorityFloor)
	next.EscalatedAt = &now
	next.EscalatedBy = actorUserID

	wrote, err := s.tasks.SetMetaIfNotEscalated(ctx, task.ID, next)
	if err != nil {
		return nil, false, apperrors.MapError(err)
	}
	if !wrote {
		// Lost a concurrent escalation; the task is already stamped.
		current, err := s.fetch(ctx, task.ID)
		if err != nil {
			return nil, false, err
		}
		return current, false, nil
	}
	task.Meta = next
	return task, true, nil
}

func (s *TaskService) fetch(ctx context.Context, id int64) (*domain.DispatchTask, error) {
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("task", map[string]any{"task_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return task, nil
}

func (s *TaskService) publish(ctx context.Context, actor domain.ActorContext, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	event.ID = uuid.NewString()
	event.Timestamp = time.Now()
	event.Actor = events.Actor{UserID: actor.ActingUserID, Role: actor.ActingRole}
	s.dispatcher.Publish(ctx, event)
}

func sweepEligible(task *domain.DispatchTask, today string, cutoff time.Time) bool {
	if task.Meta.Escalated() {
		return false
	}
	if task.DueDate != nil && *task.DueDate != "" {
		return *task.DueDate < today
	}
	return task.CreatedAt.Before(cutoff)
}

func overdue(task *domain.DispatchTask, today string) bool {
	if task.DueDate == nil || *task.DueDate == "" {
		return false
	}
	return *task.DueDate < today && !task.Status.Terminal()
}

// todayISO returns the server date in UTC, matching the lexical ordering of
// stored due dates.
func todayISO() string {
	return time.Now().UTC().Format("2006-01-02")
}

func clampPriority(p int) int {
	if p < -5 {
		return -5
	}
	if p > 5 {
		return 5
	}
	return p
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
