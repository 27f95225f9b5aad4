package service

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ops-portal/internal/config"
	"github.com/spec-kit/ops-portal/internal/domain"
	"github.com/spec-kit/ops-portal/internal/repository"
	apperrors "github.com/spec-kit/ops-portal/pkg/util"
)

type fakeTaskRepo struct {
	tasks  map[int64]*domain.DispatchTask
	nextID int64
}

func newFakeTaskRepo() *fakeTaskRepo {
	return &fakeTaskRepo{tasks: map[int64]*domain.DispatchTask{}}
}

func (f *fakeTaskRepo) Create(ctx context.Context, task *domain.DispatchTask) error {
	f.nextID++
	task.ID = f.nextID
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now().UTC()
	}
	task.UpdatedAt = task.CreatedAt
	stored := *task
	f.tasks[task.ID] = &stored
	return nil
}

func (f *fakeTaskRepo) Update(ctx context.Context, task *domain.DispatchTask) error {
	if _, ok := f.tasks[task.ID]; !ok {
		return pgx.ErrNoRows
	}
	task.UpdatedAt = time.Now().UTC()
	stored := *task
	f.tasks[task.ID] = &stored
	return nil
}

func (f *fakeTaskRepo) GetByID(ctx context.Context, id int64) (*domain.DispatchTask, error) {
	task, ok := f.tasks[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *task
	return &copied, nil
}

func (f *fakeTaskRepo) ListWithFilter(ctx context.Context, filter repository.TaskFilter) ([]domain.DispatchTask, error) {
	var result []domain.DispatchTask
	for _, task := range f.tasks {
		if len(filter.Statuses) > 0 {
			matched := false
			for _, status := range filter.Statuses {
				if task.Status == status {
					matched = true
					break
				}
			}
			if !matched {
				continue
			}
		} else if filter.Status != nil && task.Status != *filter.Status {
			continue
		}
		result = append(result, *task)
	}
	return result, nil
}

func (f *fakeTaskRepo) Claim(ctx context.Context, id int64, userID string, status domain.TaskStatus) (bool, error) {
	task, ok := f.tasks[id]
	if !ok || task.AssignedUserID != nil || task.Status != domain.TaskStatusOpen {
		return false, nil
	}
	uid := userID
	task.AssignedUserID = &uid
	task.Status = status
	task.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (f *fakeTaskRepo) SetMetaIfNotEscalated(ctx context.Context, id int64, meta domain.DispatchMeta) (bool, error) {
	task, ok := f.tasks[id]
	if !ok || task.Meta.Escalated() {
		return false, nil
	}
	task.Meta = meta
	task.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (f *fakeTaskRepo) ListSweepCandidates(ctx context.Context, limit int) ([]domain.DispatchTask, error) {
	var result []domain.DispatchTask
	for _, task := range f.tasks {
		if task.Status != domain.TaskStatusOpen && task.Status != domain.TaskStatusAssigned {
			continue
		}
		if task.Meta.Escalated() {
			continue
		}
		result = append(result, *task)
	}
	return result, nil
}

type fakeLeadRepo struct {
	leads map[int64]*domain.Lead
}

func (f *fakeLeadRepo) Create(ctx context.Context, lead *domain.Lead) error {
	f.leads[lead.ID] = lead
	return nil
}

func (f *fakeLeadRepo) Update(ctx context.Context, lead *domain.Lead) error {
	f.leads[lead.ID] = lead
	return nil
}

func (f *fakeLeadRepo) GetByID(ctx context.Context, id int64) (*domain.Lead, error) {
	lead, ok := f.leads[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return lead, nil
}

func (f *fakeLeadRepo) ListWithFilter(ctx context.Context, filter repository.LeadFilter) ([]domain.Lead, error) {
	return nil, nil
}

func newTaskFixture() (*TaskService, *fakeTaskRepo) {
	repo := newFakeTaskRepo()
	svc := NewTaskService(TaskDependencies{
		TaskRepo: repo,
		LeadRepo: &fakeLeadRepo{leads: map[int64]*domain.Lead{}},
		Escalation: config.EscalationConfig{
			PriorityFloor:     5,
			SweepLimit:        200,
			UnduedCutoffHours: 48,
		},
	})
	return svc, repo
}

func seedTask(repo *fakeTaskRepo, role domain.Role, status domain.TaskStatus) *domain.DispatchTask {
	task := &domain.DispatchTask{
		CreatedBy:    "coord",
		AssignedRole: role,
		Status:       status,
		Title:        "call back the venue",
		Meta:         domain.DispatchMeta{Priority: 2},
	}
	_ = repo.Create(context.Background(), task)
	return task
}

func TestCreateTaskRequiresCoordinator(t *testing.T) {
	svc, _ := newTaskFixture()
	dialer := domain.SelfActor("d1", domain.RoleDialer)

	_, err := svc.CreateTask(context.Background(), dialer, TaskCreateInput{
		Title:        "x",
		AssignedRole: domain.RoleDialer,
	})
	assert.True(t, apperrors.IsCode(err, "FORBIDDEN"))
}

func TestCreateTaskOpensInRoleInbox(t *testing.T) {
	svc, _ := newTaskFixture()
	coordinator := domain.SelfActor("ec1", domain.RoleEventCoordinator)

	task, err := svc.CreateTask(context.Background(), coordinator, TaskCreateInput{
		Title:        "  confirm catering  ",
		AssignedRole: domain.RoleDialer,
		Priority:     3,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusOpen, task.Status)
	assert.Equal(t, "confirm catering", task.Title)
	assert.Nil(t, task.AssignedUserID)
	assert.Equal(t, 3, task.Meta.Priority)
}

func TestClaimRewritesPatch(t *testing.T) {
	svc, repo := newTaskFixture()
	task := seedTask(repo, domain.RoleDialer, domain.TaskStatusOpen)

	// The claimer tries to smuggle extra edits alongside the
	// self-assignment; only the assignment and status survive.
	dialer := domain.SelfActor("d1", domain.RoleDialer)
	newTitle := "totally different title"
	due := "2020-01-01"
	uid := "d1"
	claimed, err := svc.PatchTask(context.Background(), dialer, task.ID, TaskPatch{
		AssignedUserID: &uid,
		Title:          &newTitle,
		DueDate:        &due,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.TaskStatusAssigned, claimed.Status)
	require.NotNil(t, claimed.AssignedUserID)
	assert.Equal(t, "d1", *claimed.AssignedUserID)
	assert.Equal(t, task.Title, claimed.Title)
	assert.Nil(t, claimed.DueDate)
}

func TestClaimHonorsRoleAliases(t *testing.T) {
	svc, repo := newTaskFixture()
	task := seedTask(repo, domain.RoleDialer, domain.TaskStatusOpen)

	setter := domain.SelfActor("rs1", domain.RoleRemoteSetter)
	uid := "rs1"
	claimed, err := svc.PatchTask(context.Background(), setter, task.ID, TaskPatch{AssignedUserID: &uid})
	require.NoError(t, err)
	assert.Equal(t, "rs1", *claimed.AssignedUserID)
}

func TestClaimRejectedOutsideRoleGroup(t *testing.T) {
	svc, repo := newTaskFixture()
	task := seedTask(repo, domain.RoleDialer, domain.TaskStatusOpen)

	closer := domain.SelfActor("c1", domain.RoleCloser)
	uid := "c1"
	_, err := svc.PatchTask(context.Background(), closer, task.ID, TaskPatch{AssignedUserID: &uid})
	assert.True(t, apperrors.IsCode(err, "FORBIDDEN"))
}

func TestClaimConflictWhenAlreadyTaken(t *testing.T) {
	svc, repo := newTaskFixture()
	task := seedTask(repo, domain.RoleDialer, domain.TaskStatusOpen)

	first := domain.SelfActor("d1", domain.RoleDialer)
	uid1 := "d1"
	_, err := svc.PatchTask(context.Background(), first, task.ID, TaskPatch{AssignedUserID: &uid1})
	require.NoError(t, err)

	second := domain.SelfActor("d2", domain.RoleDialer)
	uid2 := "d2"
	_, err = svc.PatchTask(context.Background(), second, task.ID, TaskPatch{AssignedUserID: &uid2})
	assert.True(t, apperrors.IsCode(err, "FORBIDDEN") || apperrors.IsCode(err, "CONFLICT"))

	current, err := svc.GetTask(context.Background(), domain.SelfActor("m1", domain.RoleManager), task.ID)
	require.NoError(t, err)
	assert.Equal(t, "d1", *current.AssignedUserID)
}

func TestPatchInvalidTransition(t *testing.T) {
	svc, repo := newTaskFixture()
	task := seedTask(repo, domain.RoleDialer, domain.TaskStatusOpen)

	coordinator := domain.SelfActor("ec1", domain.RoleEventCoordinator)
	completed := domain.TaskStatusCompleted
	_, err := svc.PatchTask(context.Background(), coordinator, task.ID, TaskPatch{Status: &completed})
	assert.True(t, apperrors.IsCode(err, "INVALID_TRANSITION"))
}

func TestEscalateIsIdempotent(t *testing.T) {
	svc, repo := newTaskFixture()
	task := seedTask(repo, domain.RoleDialer, domain.TaskStatusOpen)
	coordinator := domain.SelfActor("ec1", domain.RoleEventCoordinator)

	escalated, err := svc.EscalateTask(context.Background(), coordinator, task.ID)
	require.NoError(t, err)
	require.NotNil(t, escalated.Meta.EscalatedAt)
	assert.Equal(t, 5, escalated.Meta.Priority)
	assert.Equal(t, "ec1", escalated.Meta.EscalatedBy)
	firstStamp := *escalated.Meta.EscalatedAt

	again, err := svc.EscalateTask(context.Background(), coordinator, task.ID)
	require.NoError(t, err)
	require.NotNil(t, again.Meta.EscalatedAt)
	assert.Equal(t, firstStamp, *again.Meta.EscalatedAt)
}

func TestEscalateKeepsHigherPriority(t *testing.T) {
	svc, repo := newTaskFixture()
	task := seedTask(repo, domain.RoleDialer, domain.TaskStatusOpen)
	repo.tasks[task.ID].Meta.Priority = 9

	coordinator := domain.SelfActor("ec1", domain.RoleEventCoordinator)
	escalated, err := svc.EscalateTask(context.Background(), coordinator, task.ID)
	require.NoError(t, err)
	assert.Equal(t, 9, escalated.Meta.Priority)
}

func TestSweepEscalations(t *testing.T) {
	svc, repo := newTaskFixture()

	overdue := seedTask(repo, domain.RoleDialer, domain.TaskStatusOpen)
	past := "2020-01-01"
	repo.tasks[overdue.ID].DueDate = &past

	future := seedTask(repo, domain.RoleDialer, domain.TaskStatusOpen)
	tomorrow := time.Now().UTC().Add(24 * time.Hour).Format("2006-01-02")
	repo.tasks[future.ID].DueDate = &tomorrow

	staleUndated := seedTask(repo, domain.RoleCloser, domain.TaskStatusAssigned)
	repo.tasks[staleUndated.ID].CreatedAt = time.Now().UTC().Add(-72 * time.Hour)

	freshUndated := seedTask(repo, domain.RoleCloser, domain.TaskStatusOpen)

	done := seedTask(repo, domain.RoleDialer, domain.TaskStatusCompleted)

	result, err := svc.SweepEscalations(context.Background(), "scheduler")
	require.NoError(t, err)

	// The completed task never reaches the candidate list.
	assert.Equal(t, 4, result.Scanned)
	assert.Equal(t, 2, result.Escalated)

	assert.True(t, repo.tasks[overdue.ID].Meta.Escalated())
	assert.Equal(t, 5, repo.tasks[overdue.ID].Meta.Priority)
	assert.True(t, repo.tasks[staleUndated.ID].Meta.Escalated())
	assert.False(t, repo.tasks[future.ID].Meta.Escalated())
	assert.False(t, repo.tasks[freshUndated.ID].Meta.Escalated())
	assert.False(t, repo.tasks[done.ID].Meta.Escalated())

	// Statuses are untouched: escalation is a flag, not a transition.
	assert.Equal(t, domain.TaskStatusAssigned, repo.tasks[staleUndated.ID].Status)
}

func TestSweepSkipsAlreadyEscalated(t *testing.T) {
	svc, repo := newTaskFixture()
	task := seedTask(repo, domain.RoleDialer, domain.TaskStatusOpen)
	past := "2020-01-01"
	repo.tasks[task.ID].DueDate = &past

	_, err := svc.SweepEscalations(context.Background(), "scheduler")
	require.NoError(t, err)
	firstStamp := *repo.tasks[task.ID].Meta.EscalatedAt

	second, err := svc.SweepEscalations(context.Background(), "scheduler")
	require.NoError(t, err)
	assert.Equal(t, 0, second.Escalated)
	assert.Equal(t, firstStamp, *repo.tasks[task.ID].Meta.EscalatedAt)
}

func TestListTasksMultipleStatuses(t *testing.T) {
	svc, repo := newTaskFixture()
	seedTask(repo, domain.RoleDialer, domain.TaskStatusOpen)
	seedTask(repo, domain.RoleDialer, domain.TaskStatusAssigned)
	seedTask(repo, domain.RoleDialer, domain.TaskStatusCompleted)

	manager := domain.SelfActor("m1", domain.RoleManager)
	list, err := svc.ListTasks(context.Background(), manager, TaskListInput{
		Statuses: []domain.TaskStatus{domain.TaskStatusOpen, domain.TaskStatusAssigned},
	})
	require.NoError(t, err)
	require.Len(t, list, 2)
	for _, task := range list {
		assert.NotEqual(t, domain.TaskStatusCompleted, task.Status)
	}
}
