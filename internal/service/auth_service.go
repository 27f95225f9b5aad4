package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/ops-portal/internal/auth"
	"github.com/spec-kit/ops-portal/internal/config"
	"github.com/spec-kit/ops-portal/internal/domain"
	"github.com/spec-kit/ops-portal/internal/repository"
	apperrors "github.com/spec-kit/ops-portal/pkg/util"
)

// AuthService handles account registration, login, and credential changes.
type AuthService struct {
	accounts repository.AccountRepository
	profiles repository.ProfileRepository
	tokens   *auth.TokenManager
	cfg      config.AuthConfig
}

// AuthDependencies bundles collaborators for the auth service.
type AuthDependencies struct {
	AccountRepo repository.AccountRepository
	ProfileRepo repository.ProfileRepository
	Tokens      *auth.TokenManager
	Config      config.AuthConfig
}

// NewAuthService constructs the service.
func NewAuthService(deps AuthDependencies) *AuthService {
	return &AuthService{
		accounts: deps.AccountRepo,
		profiles: deps.ProfileRepo,
		tokens:   deps.Tokens,
		cfg:      deps.Config,
	}
}

// RegisterInput describes a signup request. Every account gets a profile;
// the profile carries the single role the person holds.
type RegisterInput struct {
	Email    string
	Password string
	FullName string
	Role     domain.Role
}

// Session is an issued access token plus the identity behind it.
type Session struct {
	Token     string
	ExpiresAt time.Time
	Account   *domain.Account
	Profile   *domain.Profile
}

// Register creates an account and its profile, then issues a token.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*Session, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, apperrors.NewValidationError("valid email required", nil)
	}
	if len(input.Password) < 8 {
		return nil, apperrors.NewValidationError("password must be at least 8 characters", nil)
	}
	fullName := strings.TrimSpace(input.FullName)
	if fullName == "" {
		return nil, apperrors.NewValidationError("full name required", nil)
	}
	// Self-signup always provisions the lowest privilege tier. Anything
	// else is a role grant, and role grants are a manager operation.
	role := input.Role
	if role == "" {
		role = domain.RoleDialer
	}
	if !domain.IsValidRole(role) {
		return nil, apperrors.NewValidationError("unknown role", map[string]any{"role": role})
	}
	if role != domain.RoleDialer {
		return nil, apperrors.NewForbidden("self-signup provisions the dialer role only")
	}

	if existing, err := s.accounts.GetByEmail(ctx, email); err == nil && existing != nil {
		return nil, apperrors.NewConflict("email already registered", nil)
	} else if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}

	hash, err := auth.HashPassword(input.Password, s.cfg.BcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	account := &domain.Account{
		Email:        email,
		PasswordHash: hash,
		Status:       domain.AccountStatusActive,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, apperrors.MapError(err)
	}

	profile := &domain.Profile{
		UserID:   account.ID,
		FullName: fullName,
		Role:     role,
	}
	if err := s.profiles.Create(ctx, profile); err != nil {
		return nil, apperrors.MapError(err)
	}

	return s.issue(account, profile)
}

// Login verifies credentials and issues a token. Suspended accounts and bad
// credentials are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewUnauthenticated("invalid credentials")
		}
		return nil, apperrors.MapError(err)
	}
	if account.Status != domain.AccountStatusActive {
		return nil, apperrors.NewUnauthenticated("invalid credentials")
	}
	if err := auth.ComparePassword(account.PasswordHash, password); err != nil {
		return nil, apperrors.NewUnauthenticated("invalid credentials")
	}

	profile, err := s.profiles.GetByUserID(ctx, account.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewProfileMissing()
		}
		return nil, apperrors.MapError(err)
	}

	return s.issue(account, profile)
}

// ChangePassword rotates the password after verifying the current one.
func (s *AuthService) ChangePassword(ctx context.Context, userID, current, next string) error {
	if len(next) < 8 {
		return apperrors.NewValidationError("password must be at least 8 characters", nil)
	}
	account, err := s.accounts.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewUnauthenticated("account not found")
		}
		return apperrors.MapError(err)
	}
	if err := auth.ComparePassword(account.PasswordHash, current); err != nil {
		return apperrors.NewForbidden("current password does not match")
	}

	hash, err := auth.HashPassword(next, s.cfg.BcryptCost)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	account.PasswordHash = hash
	if err := s.accounts.Update(ctx, account); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}

// ListUsers returns the user directory, optionally narrowed to one role's
// alias group. Managers only: the directory exists for view-as pickers and
// role grants.
func (s *AuthService) ListUsers(ctx context.Context, actor domain.ActorContext, role domain.Role, limit int) ([]domain.Profile, error) {
	if !actor.IsManager() {
		return nil, apperrors.NewForbidden("manager required")
	}
	roles := domain.AllRoles()
	if role != "" {
		if !domain.IsValidRole(role) {
			return nil, apperrors.NewValidationError("unknown role", map[string]any{"role": role})
		}
		roles = domain.ExpandAliases(role)
	}
	list, err := s.profiles.ListWithRoles(ctx, roles, limit)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return list, nil
}

// SetUserRole reassigns a profile's role. This is the only path off the
// signup default, and it answers to the real identity only.
func (s *AuthService) SetUserRole(ctx context.Context, actor domain.ActorContext, userID string, role domain.Role) (*domain.Profile, error) {
	if !actor.IsManager() {
		return nil, apperrors.NewForbidden("manager required")
	}
	if !domain.IsValidRole(role) {
		return nil, apperrors.NewValidationError("unknown role", map[string]any{"role": role})
	}
	profile, err := s.profiles.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("profile", map[string]any{"user_id": userID})
		}
		return nil, apperrors.MapError(err)
	}
	profile.Role = role
	if err := s.profiles.Update(ctx, profile); err != nil {
		return nil, apperrors.MapError(err)
	}
	return profile, nil
}

func (s *AuthService) issue(account *domain.Account, profile *domain.Profile) (*Session, error) {
	token, expiresAt, err := s.tokens.GenerateToken(account.ID)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &Session{
		Token:     token,
		ExpiresAt: expiresAt,
		Account:   account,
		Profile:   profile,
	}, nil
}
