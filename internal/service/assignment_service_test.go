package service

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ops-portal/internal/domain"
	"github.com/spec-kit/ops-portal/internal/events"
	"github.com/spec-kit/ops-portal/internal/repository"
	apperrors "github.com/spec-kit/ops-portal/pkg/util"
)

type fakeEventRepo struct {
	events map[int64]*domain.Event
	nextID int64
	// beforeMetaWrite runs once before the next versioned meta write, to
	// slip a concurrent writer in between fetch and write.
	beforeMetaWrite func()
	// metaWriteRejections fails that many versioned writes outright.
	metaWriteRejections int
}

func newFakeEventRepo() *fakeEventRepo {
	return &fakeEventRepo{events: map[int64]*domain.Event{}}
}

func (f *fakeEventRepo) Create(ctx context.Context, event *domain.Event) error {
	f.nextID++
	event.ID = f.nextID
	event.CreatedAt = time.Now().UTC()
	event.UpdatedAt = event.CreatedAt
	stored := *event
	f.events[event.ID] = &stored
	return nil
}

func (f *fakeEventRepo) Update(ctx context.Context, event *domain.Event) error {
	if _, ok := f.events[event.ID]; !ok {
		return pgx.ErrNoRows
	}
	stored := *event
	f.events[event.ID] = &stored
	return nil
}

func (f *fakeEventRepo) GetByID(ctx context.Context, id int64) (*domain.Event, error) {
	event, ok := f.events[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *event
	copied.Meta.Assignments = append([]domain.Assignment(nil), event.Meta.Assignments...)
	return &copied, nil
}

func (f *fakeEventRepo) ListWithFilter(ctx context.Context, filter repository.EventFilter) ([]domain.Event, error) {
	var result []domain.Event
	for _, event := range f.events {
		if filter.Status != nil && event.Status != *filter.Status {
			continue
		}
		result = append(result, *event)
	}
	return result, nil
}

func (f *fakeEventRepo) UpdateMetaIfVersion(ctx context.Context, id int64, meta domain.EventMeta, expected int64) (bool, error) {
	if hook := f.beforeMetaWrite; hook != nil {
		f.beforeMetaWrite = nil
		hook()
	}
	if f.metaWriteRejections > 0 {
		f.metaWriteRejections--
		return false, nil
	}
	event, ok := f.events[id]
	if !ok {
		return false, nil
	}
	if event.Meta.Version != expected {
		return false, nil
	}
	stored := meta
	stored.Assignments = append([]domain.Assignment(nil), meta.Assignments...)
	event.Meta = stored
	return true, nil
}

func (f *fakeEventRepo) MarkAssignedIfOpen(ctx context.Context, id int64) error {
	event, ok := f.events[id]
	if !ok {
		return nil
	}
	if event.Status == domain.EventStatusOpen {
		event.Status = domain.EventStatusAssigned
	}
	return nil
}

type staticProfileRepo struct {
	profiles map[string]*domain.Profile
}

func (f *staticProfileRepo) Create(ctx context.Context, profile *domain.Profile) error { return nil }

func (f *staticProfileRepo) Update(ctx context.Context, profile *domain.Profile) error {
	f.profiles[profile.UserID] = profile
	return nil
}

func (f *staticProfileRepo) GetByUserID(ctx context.Context, userID string) (*domain.Profile, error) {
	profile, ok := f.profiles[userID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return profile, nil
}

func (f *staticProfileRepo) EarliestWithRoles(ctx context.Context, roles []domain.Role) (*domain.Profile, error) {
	return nil, pgx.ErrNoRows
}

func (f *staticProfileRepo) ListWithRoles(ctx context.Context, roles []domain.Role, limit int) ([]domain.Profile, error) {
	var result []domain.Profile
	for _, profile := range f.profiles {
		for _, role := range roles {
			if profile.Role == role {
				result = append(result, *profile)
				break
			}
		}
	}
	return result, nil
}

// recordingDispatcher captures published events for assertions.
type recordingDispatcher struct {
	published []events.Event
}

func (d *recordingDispatcher) Publish(ctx context.Context, event events.Event) {
	d.published = append(d.published, event)
}

func (d *recordingDispatcher) Subscribe(eventType events.EventType, handler events.EventHandler) {}

func newAssignmentFixture() (*AssignmentService, *fakeEventRepo) {
	repo := newFakeEventRepo()
	profiles := &staticProfileRepo{profiles: map[string]*domain.Profile{
		"h1":  {UserID: "h1", FullName: "Hope Host", Role: domain.RoleEventHost},
		"h2":  {UserID: "h2", FullName: "Harry Host", Role: domain.RoleEventHost},
		"mt1": {UserID: "mt1", FullName: "Mia Media", Role: domain.RoleMediaTeam},
		"d1":  {UserID: "d1", FullName: "Dana Dialer", Role: domain.RoleDialer},
	}}
	svc := NewAssignmentService(AssignmentDependencies{
		EventRepo:   repo,
		ProfileRepo: profiles,
	})
	return svc, repo
}

func seedEvent(svc *AssignmentService) *domain.Event {
	coordinator := domain.SelfActor("ec1", domain.RoleEventCoordinator)
	event, _ := svc.CreateEvent(context.Background(), coordinator, EventCreateInput{
		Title:     "spring showcase",
		EventDate: "2026-04-18",
		City:      "Austin",
		State:     "TX",
	})
	return event
}

func TestAddAssignment(t *testing.T) {
	svc, _ := newAssignmentFixture()
	event := seedEvent(svc)
	coordinator := domain.SelfActor("ec1", domain.RoleEventCoordinator)

	updated, err := svc.AddAssignment(context.Background(), coordinator, event.ID, domain.RoleEventHost, "h1", "")
	require.NoError(t, err)
	require.Len(t, updated.Meta.Assignments, 1)

	entry := updated.Meta.Assignments[0]
	assert.Equal(t, domain.AssignmentPending, entry.Status)
	assert.Equal(t, domain.RoleEventHost, entry.Role)

	// Invitations alone never move the event out of open.
	assert.Equal(t, domain.EventStatusOpen, updated.Status)
}

func TestAddAssignmentOneSlotPerPerson(t *testing.T) {
	svc, _ := newAssignmentFixture()
	event := seedEvent(svc)
	coordinator := domain.SelfActor("ec1", domain.RoleEventCoordinator)

	_, err := svc.AddAssignment(context.Background(), coordinator, event.ID, domain.RoleEventHost, "h1", "")
	require.NoError(t, err)

	// Same person, same role.
	_, err = svc.AddAssignment(context.Background(), coordinator, event.ID, domain.RoleEventHost, "h1", "")
	assert.True(t, apperrors.IsCode(err, "CONFLICT"))
}

func TestAddAssignmentValidatesRole(t *testing.T) {
	svc, _ := newAssignmentFixture()
	event := seedEvent(svc)
	coordinator := domain.SelfActor("ec1", domain.RoleEventCoordinator)

	// Dialer is not a staffing role.
	_, err := svc.AddAssignment(context.Background(), coordinator, event.ID, domain.RoleDialer, "d1", "")
	assert.True(t, apperrors.IsCode(err, "INVALID_INPUT"))

	// The invitee must actually hold the staffing role.
	_, err = svc.AddAssignment(context.Background(), coordinator, event.ID, domain.RoleEventHost, "mt1", "")
	assert.True(t, apperrors.IsCode(err, "INVALID_INPUT"))

	// Unknown person.
	_, err = svc.AddAssignment(context.Background(), coordinator, event.ID, domain.RoleEventHost, "nobody", "")
	assert.True(t, apperrors.IsCode(err, "NOT_FOUND"))
}

func TestAddAssignmentRequiresCoordinator(t *testing.T) {
	svc, _ := newAssignmentFixture()
	event := seedEvent(svc)

	host := domain.SelfActor("h1", domain.RoleEventHost)
	_, err := svc.AddAssignment(context.Background(), host, event.ID, domain.RoleEventHost, "h2", "")
	assert.True(t, apperrors.IsCode(err, "FORBIDDEN"))
}

func TestRespondAcceptFlipsEventOnce(t *testing.T) {
	svc, repo := newAssignmentFixture()
	event := seedEvent(svc)
	coordinator := domain.SelfActor("ec1", domain.RoleEventCoordinator)

	_, err := svc.AddAssignment(context.Background(), coordinator, event.ID, domain.RoleEventHost, "h1", "")
	require.NoError(t, err)
	_, err = svc.AddAssignment(context.Background(), coordinator, event.ID, domain.RoleMediaTeam, "mt1", "")
	require.NoError(t, err)

	host := domain.SelfActor("h1", domain.RoleEventHost)
	updated, err := svc.RespondAssignment(context.Background(), host, event.ID, domain.AssignmentAccepted, "glad to")
	require.NoError(t, err)
	assert.Equal(t, domain.EventStatusAssigned, updated.Status)

	// A later decline never reverts the flip.
	media := domain.SelfActor("mt1", domain.RoleMediaTeam)
	updated, err = svc.RespondAssignment(context.Background(), media, event.ID, domain.AssignmentDeclined, "")
	require.NoError(t, err)
	assert.Equal(t, domain.EventStatusAssigned, repo.events[event.ID].Status)

	for _, entry := range updated.Meta.Assignments {
		require.NotNil(t, entry.DecidedAt)
	}
}

func TestRespondDecisionsAreFinal(t *testing.T) {
	svc, _ := newAssignmentFixture()
	event := seedEvent(svc)
	coordinator := domain.SelfActor("ec1", domain.RoleEventCoordinator)

	_, err := svc.AddAssignment(context.Background(), coordinator, event.ID, domain.RoleEventHost, "h1", "")
	require.NoError(t, err)

	host := domain.SelfActor("h1", domain.RoleEventHost)
	_, err = svc.RespondAssignment(context.Background(), host, event.ID, domain.AssignmentDeclined, "")
	require.NoError(t, err)

	_, err = svc.RespondAssignment(context.Background(), host, event.ID, domain.AssignmentAccepted, "changed my mind")
	assert.True(t, apperrors.IsCode(err, "INVALID_TRANSITION"))
}

func TestRespondRequiresRosterMembership(t *testing.T) {
	svc, _ := newAssignmentFixture()
	event := seedEvent(svc)

	host := domain.SelfActor("h1", domain.RoleEventHost)
	_, err := svc.RespondAssignment(context.Background(), host, event.ID, domain.AssignmentAccepted, "")
	assert.True(t, apperrors.IsCode(err, "NOT_FOUND"))

	coordinator := domain.SelfActor("ec1", domain.RoleEventCoordinator)
	_, err = svc.RespondAssignment(context.Background(), coordinator, event.ID, "maybe", "")
	assert.True(t, apperrors.IsCode(err, "INVALID_INPUT"))
}

func TestRemoveAssignmentKeepsStatus(t *testing.T) {
	svc, repo := newAssignmentFixture()
	event := seedEvent(svc)
	coordinator := domain.SelfActor("ec1", domain.RoleEventCoordinator)

	_, err := svc.AddAssignment(context.Background(), coordinator, event.ID, domain.RoleEventHost, "h1", "")
	require.NoError(t, err)

	host := domain.SelfActor("h1", domain.RoleEventHost)
	_, err = svc.RespondAssignment(context.Background(), host, event.ID, domain.AssignmentAccepted, "")
	require.NoError(t, err)

	updated, err := svc.RemoveAssignment(context.Background(), coordinator, event.ID, "h1")
	require.NoError(t, err)
	assert.Empty(t, updated.Meta.Assignments)

	// Removing the only acceptance does not reopen the event.
	assert.Equal(t, domain.EventStatusAssigned, repo.events[event.ID].Status)
}

func TestRosterMembersSeeTheEvent(t *testing.T) {
	svc, _ := newAssignmentFixture()
	event := seedEvent(svc)
	coordinator := domain.SelfActor("ec1", domain.RoleEventCoordinator)

	_, err := svc.AddAssignment(context.Background(), coordinator, event.ID, domain.RoleEventHost, "h1", "")
	require.NoError(t, err)

	host := domain.SelfActor("h1", domain.RoleEventHost)
	got, err := svc.GetEvent(context.Background(), host, event.ID)
	require.NoError(t, err)
	assert.Equal(t, event.ID, got.ID)

	roster, err := svc.Roster(context.Background(), host, event.ID)
	require.NoError(t, err)
	require.Len(t, roster, 1)
	assert.Equal(t, "Hope Host", roster[0].FullName)

	// A dialer has no path to the event.
	dialer := domain.SelfActor("d1", domain.RoleDialer)
	_, err = svc.GetEvent(context.Background(), dialer, event.ID)
	assert.True(t, apperrors.IsCode(err, "FORBIDDEN"))
}

func TestRemoveAssignmentReportsRemovedEntry(t *testing.T) {
	repo := newFakeEventRepo()
	dispatcher := &recordingDispatcher{}
	profiles := &staticProfileRepo{profiles: map[string]*domain.Profile{
		"h1":  {UserID: "h1", FullName: "Hope Host", Role: domain.RoleEventHost},
		"h2":  {UserID: "h2", FullName: "Harry Host", Role: domain.RoleEventHost},
		"mt1": {UserID: "mt1", FullName: "Mia Media", Role: domain.RoleMediaTeam},
	}}
	svc := NewAssignmentService(AssignmentDependencies{
		EventRepo:   repo,
		ProfileRepo: profiles,
		Dispatcher:  dispatcher,
	})
	event := seedEvent(svc)
	coordinator := domain.SelfActor("ec1", domain.RoleEventCoordinator)

	for _, userID := range []string{"h1", "mt1", "h2"} {
		role := profiles.profiles[userID].Role
		_, err := svc.AddAssignment(context.Background(), coordinator, event.ID, role, userID, "")
		require.NoError(t, err)
	}

	// Removing a non-last entry must name that entry, not whichever one
	// slides into its slot.
	updated, err := svc.RemoveAssignment(context.Background(), coordinator, event.ID, "h1")
	require.NoError(t, err)
	require.Len(t, updated.Meta.Assignments, 2)
	assert.Equal(t, "mt1", updated.Meta.Assignments[0].UserID)
	assert.Equal(t, "h2", updated.Meta.Assignments[1].UserID)

	var removal *events.Event
	for i := range dispatcher.published {
		if dispatcher.published[i].Type == events.EventAssignmentRemoved {
			removal = &dispatcher.published[i]
		}
	}
	require.NotNil(t, removal)
	payload, ok := removal.Payload.(events.AssignmentRemovedPayload)
	require.True(t, ok)
	assert.Equal(t, "h1", payload.UserID)
	assert.Equal(t, domain.RoleEventHost, payload.Role)
}

func TestConcurrentAcceptsBothPersist(t *testing.T) {
	svc, repo := newAssignmentFixture()
	event := seedEvent(svc)
	coordinator := domain.SelfActor("ec1", domain.RoleEventCoordinator)

	_, err := svc.AddAssignment(context.Background(), coordinator, event.ID, domain.RoleEventHost, "h1", "")
	require.NoError(t, err)
	_, err = svc.AddAssignment(context.Background(), coordinator, event.ID, domain.RoleMediaTeam, "mt1", "")
	require.NoError(t, err)

	// The media accept lands between the host's read and write; the host's
	// stale write must lose and be reapplied on the fresh roster.
	media := domain.SelfActor("mt1", domain.RoleMediaTeam)
	repo.beforeMetaWrite = func() {
		_, err := svc.RespondAssignment(context.Background(), media, event.ID, domain.AssignmentAccepted, "")
		require.NoError(t, err)
	}

	host := domain.SelfActor("h1", domain.RoleEventHost)
	_, err = svc.RespondAssignment(context.Background(), host, event.ID, domain.AssignmentAccepted, "")
	require.NoError(t, err)

	stored := repo.events[event.ID]
	require.Len(t, stored.Meta.Assignments, 2)
	for _, entry := range stored.Meta.Assignments {
		assert.Equal(t, domain.AssignmentAccepted, entry.Status)
	}
	assert.Equal(t, domain.EventStatusAssigned, stored.Status)
}

func TestRosterWriteRaceGivesUpAsConflict(t *testing.T) {
	svc, repo := newAssignmentFixture()
	event := seedEvent(svc)
	coordinator := domain.SelfActor("ec1", domain.RoleEventCoordinator)

	_, err := svc.AddAssignment(context.Background(), coordinator, event.ID, domain.RoleEventHost, "h1", "")
	require.NoError(t, err)

	repo.metaWriteRejections = rosterRetries + 1
	host := domain.SelfActor("h1", domain.RoleEventHost)
	_, err = svc.RespondAssignment(context.Background(), host, event.ID, domain.AssignmentAccepted, "")
	assert.True(t, apperrors.IsCode(err, "CONFLICT"))
}
