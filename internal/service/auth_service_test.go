package service

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ops-portal/internal/auth"
	"github.com/spec-kit/ops-portal/internal/config"
	"github.com/spec-kit/ops-portal/internal/domain"
	apperrors "github.com/spec-kit/ops-portal/pkg/util"
)

type memAccountRepo struct {
	accounts map[string]*domain.Account
	nextID   int
}

func (f *memAccountRepo) Create(ctx context.Context, account *domain.Account) error {
	f.nextID++
	account.ID = string(rune('a' + f.nextID))
	f.accounts[account.ID] = account
	return nil
}

func (f *memAccountRepo) Update(ctx context.Context, account *domain.Account) error {
	if _, ok := f.accounts[account.ID]; !ok {
		return pgx.ErrNoRows
	}
	f.accounts[account.ID] = account
	return nil
}

func (f *memAccountRepo) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	account, ok := f.accounts[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return account, nil
}

func (f *memAccountRepo) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	for _, account := range f.accounts {
		if account.Email == email {
			return account, nil
		}
	}
	return nil, pgx.ErrNoRows
}

type memProfileRepo struct {
	staticProfileRepo
}

func (f *memProfileRepo) Create(ctx context.Context, profile *domain.Profile) error {
	f.profiles[profile.UserID] = profile
	return nil
}

func newAuthFixture() (*AuthService, *memAccountRepo) {
	accounts := &memAccountRepo{accounts: map[string]*domain.Account{}}
	profiles := &memProfileRepo{staticProfileRepo{profiles: map[string]*domain.Profile{}}}
	svc := NewAuthService(AuthDependencies{
		AccountRepo: accounts,
		ProfileRepo: profiles,
		Tokens:      auth.NewTokenManager("test-secret", 60),
		Config: config.AuthConfig{
			// Minimum bcrypt cost keeps the test fast.
			BcryptCost: 4,
		},
	})
	return svc, accounts
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := newAuthFixture()

	session, err := svc.Register(context.Background(), RegisterInput{
		Email:    "Dana@Example.com",
		Password: "hunter2hunter2",
		FullName: "Dana Dialer",
		Role:     domain.RoleDialer,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, session.Token)
	assert.Equal(t, domain.RoleDialer, session.Profile.Role)

	// Email is normalized on the way in.
	login, err := svc.Login(context.Background(), "dana@example.com", "hunter2hunter2")
	require.NoError(t, err)
	assert.Equal(t, session.Profile.UserID, login.Profile.UserID)

	_, err = svc.Login(context.Background(), "dana@example.com", "wrong")
	assert.True(t, apperrors.IsCode(err, "UNAUTHENTICATED"))
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newAuthFixture()

	_, err := svc.Register(context.Background(), RegisterInput{
		Email: "not-an-email", Password: "hunter2hunter2", FullName: "X", Role: domain.RoleDialer,
	})
	assert.True(t, apperrors.IsCode(err, "INVALID_INPUT"))

	_, err = svc.Register(context.Background(), RegisterInput{
		Email: "x@example.com", Password: "short", FullName: "X", Role: domain.RoleDialer,
	})
	assert.True(t, apperrors.IsCode(err, "INVALID_INPUT"))

	_, err = svc.Register(context.Background(), RegisterInput{
		Email: "x@example.com", Password: "hunter2hunter2", FullName: "X", Role: "astronaut",
	})
	assert.True(t, apperrors.IsCode(err, "INVALID_INPUT"))
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _ := newAuthFixture()
	input := RegisterInput{
		Email: "x@example.com", Password: "hunter2hunter2", FullName: "X",
	}
	_, err := svc.Register(context.Background(), input)
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), input)
	assert.True(t, apperrors.IsCode(err, "CONFLICT"))
}

func TestLoginSuspendedAccount(t *testing.T) {
	svc, accounts := newAuthFixture()
	session, err := svc.Register(context.Background(), RegisterInput{
		Email: "x@example.com", Password: "hunter2hunter2", FullName: "X", Role: domain.RoleDialer,
	})
	require.NoError(t, err)

	accounts.accounts[session.Account.ID].Status = domain.AccountStatusSuspended
	_, err = svc.Login(context.Background(), "x@example.com", "hunter2hunter2")
	assert.True(t, apperrors.IsCode(err, "UNAUTHENTICATED"))
}

func TestChangePassword(t *testing.T) {
	svc, _ := newAuthFixture()
	session, err := svc.Register(context.Background(), RegisterInput{
		Email: "x@example.com", Password: "hunter2hunter2", FullName: "X", Role: domain.RoleDialer,
	})
	require.NoError(t, err)
	userID := session.Account.ID

	err = svc.ChangePassword(context.Background(), userID, "wrong", "newpassword1")
	assert.True(t, apperrors.IsCode(err, "FORBIDDEN"))

	require.NoError(t, svc.ChangePassword(context.Background(), userID, "hunter2hunter2", "newpassword1"))

	_, err = svc.Login(context.Background(), "x@example.com", "hunter2hunter2")
	assert.Error(t, err)
	_, err = svc.Login(context.Background(), "x@example.com", "newpassword1")
	assert.NoError(t, err)
}

func TestSelfSignupCannotProvisionPrivilegedRole(t *testing.T) {
	svc, _ := newAuthFixture()

	_, err := svc.Register(context.Background(), RegisterInput{
		Email: "boss@example.com", Password: "hunter2hunter2", FullName: "Boss", Role: domain.RoleManager,
	})
	assert.True(t, apperrors.IsCode(err, "FORBIDDEN"))

	_, err = svc.Register(context.Background(), RegisterInput{
		Email: "coord@example.com", Password: "hunter2hunter2", FullName: "Coord", Role: domain.RoleEventCoordinator,
	})
	assert.True(t, apperrors.IsCode(err, "FORBIDDEN"))

	// Omitting the role lands on the lowest tier.
	session, err := svc.Register(context.Background(), RegisterInput{
		Email: "new@example.com", Password: "hunter2hunter2", FullName: "New Hire",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleDialer, session.Profile.Role)
}

func newDirectoryFixture() (*AuthService, *memProfileRepo) {
	accounts := &memAccountRepo{accounts: map[string]*domain.Account{}}
	profiles := &memProfileRepo{staticProfileRepo{profiles: map[string]*domain.Profile{
		"m1":  {UserID: "m1", FullName: "Mia Manager", Role: domain.RoleManager},
		"d1":  {UserID: "d1", FullName: "Dana Dialer", Role: domain.RoleDialer},
		"rs1": {UserID: "rs1", FullName: "Renee Remote", Role: domain.RoleRemoteSetter},
		"c1":  {UserID: "c1", FullName: "Cal Closer", Role: domain.RoleCloser},
	}}}
	svc := NewAuthService(AuthDependencies{
		AccountRepo: accounts,
		ProfileRepo: profiles,
		Tokens:      auth.NewTokenManager("test-secret", 60),
		Config:      config.AuthConfig{BcryptCost: 4},
	})
	return svc, profiles
}

func TestListUsersDirectory(t *testing.T) {
	svc, _ := newDirectoryFixture()
	manager := domain.SelfActor("m1", domain.RoleManager)

	// A role filter covers its whole alias group.
	list, err := svc.ListUsers(context.Background(), manager, domain.RoleDialer, 0)
	require.NoError(t, err)
	ids := make([]string, 0, len(list))
	for _, profile := range list {
		ids = append(ids, profile.UserID)
	}
	assert.ElementsMatch(t, []string{"d1", "rs1"}, ids)

	all, err := svc.ListUsers(context.Background(), manager, "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	dialer := domain.SelfActor("d1", domain.RoleDialer)
	_, err = svc.ListUsers(context.Background(), dialer, "", 0)
	assert.True(t, apperrors.IsCode(err, "FORBIDDEN"))
}

func TestSetUserRole(t *testing.T) {
	svc, profiles := newDirectoryFixture()
	manager := domain.SelfActor("m1", domain.RoleManager)

	updated, err := svc.SetUserRole(context.Background(), manager, "d1", domain.RoleCloser)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleCloser, updated.Role)
	assert.Equal(t, domain.RoleCloser, profiles.profiles["d1"].Role)

	_, err = svc.SetUserRole(context.Background(), manager, "d1", "astronaut")
	assert.True(t, apperrors.IsCode(err, "INVALID_INPUT"))

	_, err = svc.SetUserRole(context.Background(), manager, "nobody", domain.RoleCloser)
	assert.True(t, apperrors.IsCode(err, "NOT_FOUND"))

	closer := domain.SelfActor("c1", domain.RoleCloser)
	_, err = svc.SetUserRole(context.Background(), closer, "d1", domain.RoleManager)
	assert.True(t, apperrors.IsCode(err, "FORBIDDEN"))
}
