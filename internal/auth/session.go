package auth

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/ops-portal/internal/domain"
	"github.com/spec-kit/ops-portal/internal/repository"
	apperrors "github.com/spec-kit/ops-portal/pkg/util"
)

// ViewAsDirective carries the optional manager impersonation request. Both
// fields come from request headers and are untrusted.
type ViewAsDirective struct {
	Role   domain.Role
	UserID string
}

// SessionResolver turns a bearer credential plus optional view-as directives
// into an ActorContext. Resolution happens fresh on every request; nothing is
// cached across requests.
type SessionResolver struct {
	tokens   *TokenManager
	accounts repository.AccountRepository
	profiles repository.ProfileRepository
}

// NewSessionResolver constructs the resolver.
func NewSessionResolver(tokens *TokenManager, accounts repository.AccountRepository, profiles repository.ProfileRepository) *SessionResolver {
	return &SessionResolver{tokens: tokens, accounts: accounts, profiles: profiles}
}

// Resolve validates the credential, loads the profile and applies view-as.
//
// Impersonation only narrows capability: it is honored solely for manager
// credentials, the target role can never be manager, and the real identity is
// always retained on the returned context. Malformed directives degrade to
// the real identity or role-only browsing rather than erroring; the privilege
// gate itself always fails closed.
func (r *SessionResolver) Resolve(ctx context.Context, bearer string, directive ViewAsDirective) (domain.ActorContext, error) {
	userID, err := r.tokens.ParseToken(bearer)
	if err != nil {
		return domain.ActorContext{}, apperrors.NewUnauthenticated("invalid token")
	}

	account, err := r.accounts.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ActorContext{}, apperrors.NewUnauthenticated("account not found")
		}
		return domain.ActorContext{}, apperrors.MapError(err)
	}
	if account.Status != domain.AccountStatusActive {
		return domain.ActorContext{}, apperrors.NewUnauthenticated("account suspended")
	}

	profile, err := r.profiles.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ActorContext{}, apperrors.NewProfileMissing()
		}
		return domain.ActorContext{}, apperrors.MapError(err)
	}

	actor := domain.SelfActor(profile.UserID, profile.Role)
	if profile.Role != domain.RoleManager || !domain.Impersonable(directive.Role) {
		return actor, nil
	}

	actor.Impersonating = true
	actor.ActingRole = directive.Role
	actor.ActingUserID = ""

	if directive.UserID != "" {
		if target, err := r.profiles.GetByUserID(ctx, directive.UserID); err == nil &&
			domain.RoleMatchesAny(target.Role, directive.Role) {
			actor.ActingUserID = target.UserID
			actor.ActingRole = target.Role
			return actor, nil
		}
		// Invalid user directive: fall through to default-member selection
		// so view-as browsing stays usable.
	}

	group := domain.ExpandAliases(directive.Role)
	fallback, err := r.profiles.EarliestWithRoles(ctx, group)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// No member in the role group: role-level browsing only.
			return actor, nil
		}
		return domain.ActorContext{}, apperrors.MapError(err)
	}

	actor.ActingUserID = fallback.UserID
	actor.ActingRole = fallback.Role
	return actor, nil
}
