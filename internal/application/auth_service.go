package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	accountDomain "github.com/marrakech-reviews/service-community/internal/domain/account"
	"github.com/marrakech-reviews/service-community/pkg/auth"
	"github.com/marrakech-reviews/service-community/pkg/domain"
	"github.com/marrakech-reviews/service-community/pkg/events"
)

// RegisterRequest holds the data needed to create an account.
type RegisterRequest struct {
	Username  string `json:"username" binding:"required"`
	Email     string `json:"email" binding:"required"`
	Password  string `json:"password" binding:"required"`
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
}

// LoginRequest holds login credentials.
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest carries a refresh token.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// AccountDTO is the API representation of an account.
type AccountDTO struct {
	ID          uuid.UUID       `json:"id"`
	Email       string          `json:"email"`
	Username    string          `json:"username"`
	FirstName   string          `json:"first_name"`
	LastName    string          `json:"last_name"`
	FullName    string          `json:"full_name"`
	Role        string          `json:"role"`
	IsActive    bool            `json:"is_active"`
	Balance     decimal.Decimal `json:"wallet_balance"`
	LastLoginAt *time.Time      `json:"last_login_at,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// AuthDTO is returned by register and login.
type AuthDTO struct {
	Account      AccountDTO `json:"user"`
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token"`
	ExpiresIn    int64      `json:"expires_in"`
}

// TokenDTO is returned by refresh.
type TokenDTO struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// AuthService handles registration, login and token lifecycle.
type AuthService struct {
	accounts  accountDomain.Repository
	tokens    *auth.JWTManager
	denylist  auth.Denylist
	publisher EventPublisher
	logger    *zap.Logger
}

// NewAuthService creates a new AuthService. denylist may be nil, in which
// case logout only discards the token client side.
func NewAuthService(
	accounts accountDomain.Repository,
	tokens *auth.JWTManager,
	denylist auth.Denylist,
	publisher EventPublisher,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		accounts:  accounts,
		tokens:    tokens,
		denylist:  denylist,
		publisher: publisher,
		logger:    logger,
	}
}

// Register creates a user account credited with the welcome bonus.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*AuthDTO, error) {
	if !accountDomain.ValidEmail(accountDomain.NormalizeEmail(req.Email)) {
		return nil, domain.NewValidationError("invalid email format").WithCode("INVALID_EMAIL")
	}
	if err := accountDomain.ValidatePassword(req.Password); err != nil {
		return nil, err
	}

	exists, err := s.accounts.ExistsByEmailOrUsername(ctx, req.Email, req.Username)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, domain.NewConflictError("user with this email or username already exists").WithCode("USER_EXISTS")
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	acc, err := accountDomain.NewAccount(req.Email, req.Username, hash, req.FirstName, req.LastName)
	if err != nil {
		return nil, err
	}
	if _, err := acc.Credit(accountDomain.WelcomeBonus, "Welcome bonus"); err != nil {
		return nil, err
	}
	if err := s.accounts.Save(ctx, acc); err != nil {
		return nil, err
	}

	s.logger.Info("account registered", zap.String("account_id", acc.ID().String()))
	publish(ctx, s.publisher, s.logger, events.AccountRegistered, acc.ID().String(), events.AccountRegisteredEvent{
		AccountID:  acc.ID(),
		Username:   acc.Username(),
		OccurredAt: acc.CreatedAt(),
	})
	return s.issue(acc)
}

// Login checks credentials and records the login time.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthDTO, error) {
	invalid := domain.NewUnauthorizedError("INVALID_CREDENTIALS", "invalid email or password")

	acc, err := s.accounts.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, invalid
		}
		return nil, err
	}
	if !auth.CheckPassword(acc.PasswordHash(), req.Password) {
		return nil, invalid
	}
	if !acc.IsActive() {
		return nil, domain.NewForbiddenError("ACCOUNT_DISABLED", "account is disabled")
	}

	acc.RecordLogin(time.Now())
	if err := s.accounts.Update(ctx, acc, accountDomain.FieldLogin); err != nil {
		return nil, err
	}
	return s.issue(acc)
}

// Refresh exchanges a refresh token for an access token that carries the
// account's current role.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenDTO, error) {
	claims, err := s.tokens.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, domain.NewUnauthorizedError("TOKEN_INVALID", "invalid or expired refresh token")
	}

	acc, err := s.accounts.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NewUnauthorizedError("USER_NOT_FOUND", "user not found")
		}
		return nil, err
	}
	if !acc.IsActive() {
		return nil, domain.NewForbiddenError("ACCOUNT_DISABLED", "account is disabled")
	}

	access, err := s.tokens.GenerateAccessToken(acc.ID(), acc.Email(), acc.Role())
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}
	return &TokenDTO{AccessToken: access, ExpiresIn: int64(s.tokens.AccessTTL().Seconds())}, nil
}

// Logout revokes the access token identified by tokenID until it expires.
func (s *AuthService) Logout(ctx context.Context, tokenID string, expiresAt time.Time) error {
	if s.denylist == nil || tokenID == "" {
		return nil
	}
	if err := s.denylist.Revoke(ctx, tokenID, expiresAt); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// Me returns the caller's account.
func (s *AuthService) Me(ctx context.Context, accountID uuid.UUID) (*AccountDTO, error) {
	acc, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	dto := toAccountDTO(acc)
	return &dto, nil
}

func (s *AuthService) issue(acc *accountDomain.Account) (*AuthDTO, error) {
	access, err := s.tokens.GenerateAccessToken(acc.ID(), acc.Email(), acc.Role())
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}
	refresh, err := s.tokens.GenerateRefreshToken(acc.ID(), acc.Email(), acc.Role())
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}
	return &AuthDTO{
		Account:      toAccountDTO(acc),
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.tokens.AccessTTL().Seconds()),
	}, nil
}

func toAccountDTO(a *accountDomain.Account) AccountDTO {
	return AccountDTO{
		ID:          a.ID(),
		Email:       a.Email(),
		Username:    a.Username(),
		FirstName:   a.FirstName(),
		LastName:    a.LastName(),
		FullName:    a.FullName(),
		Role:        string(a.Role()),
		IsActive:    a.IsActive(),
		Balance:     a.Balance(),
		LastLoginAt: a.LastLoginAt(),
		CreatedAt:   a.CreatedAt(),
		UpdatedAt:   a.UpdatedAt(),
	}
}
