package access

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	accountDomain "github.com/marrakech-reviews/service-community/internal/domain/account"
	"github.com/marrakech-reviews/service-community/pkg/auth"
	"github.com/marrakech-reviews/service-community/pkg/domain"
	"github.com/marrakech-reviews/service-community/pkg/middleware"
	"github.com/marrakech-reviews/service-community/pkg/response"
)

const contextKeyPrincipal = "principal"

// TokenVerifier checks an access token and returns its claims.
type TokenVerifier interface {
	ValidateAccessToken(token string) (*auth.Claims, error)
}

// AccountLookup loads the stored state of an account.
type AccountLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*accountDomain.Account, error)
}

// Principal is the caller of an authorized request.
type Principal struct {
	AccountID uuid.UUID
	Role      auth.Role
	TokenID   string
	ExpiresAt time.Time
}

// Authorizer runs the per-request authorization pipeline.
type Authorizer struct {
	tokens   TokenVerifier
	accounts AccountLookup
	denylist auth.Denylist
	logger   *zap.Logger
}

// NewAuthorizer creates an Authorizer. denylist may be nil.
func NewAuthorizer(tokens TokenVerifier, accounts AccountLookup, denylist auth.Denylist, logger *zap.Logger) *Authorizer {
	return &Authorizer{
		tokens:   tokens,
		accounts: accounts,
		denylist: denylist,
		logger:   logger,
	}
}

// Authorize verifies token, re-reads the account it names and checks the
// stored role against required. The first failing step wins. A returned
// error that is not an *AuthFailure is a store failure.
func (a *Authorizer) Authorize(ctx context.Context, token string, required RoleSet) (*Principal, error) {
	if token == "" {
		return nil, ErrTokenMissing
	}

	claims, err := a.tokens.ValidateAccessToken(token)
	if err != nil {
		return nil, ErrTokenInvalid
	}
	if a.denylist != nil && claims.ID != "" {
		revoked, err := a.denylist.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, fmt.Errorf("check token denylist: %w", err)
		}
		if revoked {
			return nil, ErrTokenInvalid
		}
	}

	acc, err := a.accounts.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("load account: %w", err)
	}
	if !acc.IsActive() {
		return nil, ErrAccountNotFound
	}

	if acc.Role() != claims.Role {
		return nil, ErrRoleMismatch
	}
	if !required.Allows(acc.Role()) {
		return nil, ErrInsufficientPermissions
	}

	p := &Principal{AccountID: acc.ID(), Role: acc.Role(), TokenID: claims.ID}
	if claims.ExpiresAt != nil {
		p.ExpiresAt = claims.ExpiresAt.Time
	}
	return p, nil
}

// Gate returns gin middleware that authorizes the bearer token against required.
func (a *Authorizer) Gate(required RoleSet) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := a.Authorize(c.Request.Context(), middleware.BearerToken(c), required)
		if err != nil {
			var failure *AuthFailure
			if errors.As(err, &failure) {
				response.Abort(c, failure.HTTPStatus(), failure.ErrorCode(), failure.Message)
				return
			}
			a.logger.Error("authorization failed", zap.Error(err))
			response.Abort(c, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
			return
		}

		c.Set(contextKeyPrincipal, p)
		middleware.SetUser(c, p.AccountID, p.Role)
		c.Next()
	}
}

// PrincipalFrom returns the principal set by Gate.
func PrincipalFrom(c *gin.Context) (*Principal, bool) {
	v, ok := c.Get(contextKeyPrincipal)
	if !ok {
		return nil, false
	}
	p, ok := v.(*Principal)
	return p, ok
}
