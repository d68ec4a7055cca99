package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	accountDomain "github.com/marrakech-reviews/service-community/internal/domain/account"
	"github.com/marrakech-reviews/service-community/pkg/auth"
	"github.com/marrakech-reviews/service-community/pkg/domain"
	"github.com/marrakech-reviews/service-community/pkg/events"
)

// Bulk actions.
const (
	BulkActivate   = "activate"
	BulkDeactivate = "deactivate"
	BulkDelete     = "delete"
	BulkChangeRole = "change_role"
)

// UpdateRoleRequest changes an account role.
type UpdateRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

// UpdateStatusRequest enables or disables an account.
type UpdateStatusRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

// UpdateProfileRequest changes display names. Empty fields are left unchanged.
type UpdateProfileRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// AdminUpdateUserRequest edits another account. Nil fields and an empty
// password are left unchanged.
type AdminUpdateUserRequest struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	IsActive  *bool   `json:"is_active"`
	Password  string  `json:"password"`
}

// BulkActionRequest applies one action to many accounts.
type BulkActionRequest struct {
	Action  string      `json:"action" binding:"required"`
	UserIDs []uuid.UUID `json:"user_ids" binding:"required,min=1"`
	NewRole string      `json:"new_role"`
}

// BulkActionDTO reports what a bulk action changed.
type BulkActionDTO struct {
	Action        string `json:"action"`
	Requested     int    `json:"requested"`
	AffectedCount int    `json:"affected_count"`
}

// AccountService handles account administration and profile use cases.
type AccountService struct {
	accounts  accountDomain.Repository
	publisher EventPublisher
	logger    *zap.Logger
}

// NewAccountService creates a new AccountService.
func NewAccountService(accounts accountDomain.Repository, publisher EventPublisher, logger *zap.Logger) *AccountService {
	return &AccountService{accounts: accounts, publisher: publisher, logger: logger}
}

// List returns accounts filtered by role and a case-insensitive search term.
func (s *AccountService) List(ctx context.Context, role, search string, page, limit int) ([]AccountDTO, int64, error) {
	filter := accountDomain.ListFilter{Search: search}
	if role != "" {
		r, err := auth.ParseRole(role)
		if err != nil {
			return nil, 0, domain.NewValidationError(err.Error())
		}
		filter.Role = r
	}

	accounts, total, err := s.accounts.List(ctx, filter, page, limit)
	if err != nil {
		return nil, 0, err
	}
	dtos := make([]AccountDTO, len(accounts))
	for i, a := range accounts {
		dtos[i] = toAccountDTO(a)
	}
	return dtos, total, nil
}

// Get returns one account.
func (s *AccountService) Get(ctx context.Context, id uuid.UUID) (*AccountDTO, error) {
	acc, err := s.accounts.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := toAccountDTO(acc)
	return &dto, nil
}

// UpdateRole assigns a new role. Tokens issued before the change stop
// authorizing on the next request.
func (s *AccountService) UpdateRole(ctx context.Context, actorID, id uuid.UUID, role string) (*AccountDTO, error) {
	newRole, err := auth.ParseRole(role)
	if err != nil {
		return nil, domain.NewValidationError(err.Error()).WithCode("INVALID_ROLE")
	}

	acc, err := s.accounts.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	oldRole := acc.Role()
	if err := acc.ChangeRole(newRole); err != nil {
		return nil, err
	}
	if err := s.accounts.Update(ctx, acc, accountDomain.FieldRole); err != nil {
		return nil, err
	}

	s.logger.Info("account role changed",
		zap.String("account_id", id.String()),
		zap.String("old_role", string(oldRole)),
		zap.String("new_role", string(newRole)),
		zap.String("changed_by", actorID.String()),
	)
	publish(ctx, s.publisher, s.logger, events.AccountRoleChanged, id.String(), events.AccountRoleChangedEvent{
		AccountID:  id,
		OldRole:    string(oldRole),
		NewRole:    string(newRole),
		ChangedBy:  actorID,
		OccurredAt: time.Now().UTC(),
	})
	dto := toAccountDTO(acc)
	return &dto, nil
}

// UpdateStatus enables or disables an account.
func (s *AccountService) UpdateStatus(ctx context.Context, actorID, id uuid.UUID, active bool) (*AccountDTO, error) {
	acc, err := s.accounts.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	acc.SetActive(active)
	if err := s.accounts.Update(ctx, acc, accountDomain.FieldStatus); err != nil {
		return nil, err
	}

	publish(ctx, s.publisher, s.logger, events.AccountStatusChanged, id.String(), events.AccountStatusChangedEvent{
		AccountID:  id,
		IsActive:   active,
		ChangedBy:  actorID,
		OccurredAt: time.Now().UTC(),
	})
	dto := toAccountDTO(acc)
	return &dto, nil
}

// UpdateProfile changes the caller's display names.
func (s *AccountService) UpdateProfile(ctx context.Context, id uuid.UUID, req UpdateProfileRequest) (*AccountDTO, error) {
	acc, err := s.accounts.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	acc.UpdateProfile(req.FirstName, req.LastName)
	if err := s.accounts.Update(ctx, acc, accountDomain.FieldProfile); err != nil {
		return nil, err
	}
	dto := toAccountDTO(acc)
	return &dto, nil
}

// UpdateUser lets an admin edit names, status and password of an account.
// Only the column groups present in req are written.
func (s *AccountService) UpdateUser(ctx context.Context, actorID, id uuid.UUID, req AdminUpdateUserRequest) (*AccountDTO, error) {
	acc, err := s.accounts.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var fields []accountDomain.Field
	if req.FirstName != nil || req.LastName != nil {
		first, last := acc.FirstName(), acc.LastName()
		if req.FirstName != nil {
			first = *req.FirstName
		}
		if req.LastName != nil {
			last = *req.LastName
		}
		acc.UpdateProfile(first, last)
		fields = append(fields, accountDomain.FieldProfile)
	}
	if req.IsActive != nil {
		acc.SetActive(*req.IsActive)
		fields = append(fields, accountDomain.FieldStatus)
	}
	if req.Password != "" {
		if err := accountDomain.ValidatePassword(req.Password); err != nil {
			return nil, err
		}
		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		if err := acc.SetPasswordHash(hash); err != nil {
			return nil, err
		}
		fields = append(fields, accountDomain.FieldPassword)
	}
	if len(fields) == 0 {
		return nil, domain.NewValidationError("no valid update data provided").WithCode("NO_UPDATE_DATA")
	}

	if err := s.accounts.Update(ctx, acc, fields...); err != nil {
		return nil, err
	}

	s.logger.Info("account updated by admin",
		zap.String("account_id", id.String()),
		zap.Int("field_groups", len(fields)),
		zap.String("changed_by", actorID.String()),
	)
	if req.IsActive != nil {
		publish(ctx, s.publisher, s.logger, events.AccountStatusChanged, id.String(), events.AccountStatusChangedEvent{
			AccountID:  id,
			IsActive:   *req.IsActive,
			ChangedBy:  actorID,
			OccurredAt: time.Now().UTC(),
		})
	}
	dto := toAccountDTO(acc)
	return &dto, nil
}

// DeleteUser removes an account. Admin accounts cannot be deleted.
func (s *AccountService) DeleteUser(ctx context.Context, actorID, id uuid.UUID) error {
	acc, err := s.accounts.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if acc.Role() == auth.RoleAdmin {
		return domain.NewForbiddenError("CANNOT_DELETE_ADMIN", "cannot delete admin users")
	}
	if err := s.accounts.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("account deleted",
		zap.String("account_id", id.String()),
		zap.String("deleted_by", actorID.String()),
	)
	return nil
}

// BulkAction applies one action to many accounts. A delete that names an
// admin is refused as a whole. Unknown ids are skipped.
func (s *AccountService) BulkAction(ctx context.Context, actorID uuid.UUID, req BulkActionRequest) (*BulkActionDTO, error) {
	var newRole auth.Role
	switch req.Action {
	case BulkActivate, BulkDeactivate, BulkDelete:
	case BulkChangeRole:
		r, err := auth.ParseRole(req.NewRole)
		if err != nil {
			return nil, domain.NewValidationError("invalid role specified").WithCode("INVALID_ROLE")
		}
		newRole = r
	default:
		return nil, domain.NewValidationError("invalid action specified").WithCode("INVALID_ACTION")
	}
	if len(req.UserIDs) == 0 {
		return nil, domain.NewValidationError("user_ids is required")
	}

	targets := make([]*accountDomain.Account, 0, len(req.UserIDs))
	for _, id := range req.UserIDs {
		acc, err := s.accounts.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return nil, err
		}
		if req.Action == BulkDelete && acc.Role() == auth.RoleAdmin {
			return nil, domain.NewForbiddenError("CANNOT_DELETE_ADMIN", "cannot delete admin users")
		}
		targets = append(targets, acc)
	}

	affected := 0
	for _, acc := range targets {
		var err error
		switch req.Action {
		case BulkActivate:
			acc.SetActive(true)
			err = s.accounts.Update(ctx, acc, accountDomain.FieldStatus)
		case BulkDeactivate:
			acc.SetActive(false)
			err = s.accounts.Update(ctx, acc, accountDomain.FieldStatus)
		case BulkDelete:
			err = s.accounts.Delete(ctx, acc.ID())
		case BulkChangeRole:
			old := acc.Role()
			if err = acc.ChangeRole(newRole); err == nil {
				err = s.accounts.Update(ctx, acc, accountDomain.FieldRole)
			}
			if err == nil && old != newRole {
				publish(ctx, s.publisher, s.logger, events.AccountRoleChanged, acc.ID().String(), events.AccountRoleChangedEvent{
					AccountID:  acc.ID(),
					OldRole:    string(old),
					NewRole:    string(newRole),
					ChangedBy:  actorID,
					OccurredAt: time.Now().UTC(),
				})
			}
		}
		if err != nil {
			return nil, fmt.Errorf("bulk %s failed for %s: %w", req.Action, acc.ID(), err)
		}
		affected++
	}

	s.logger.Info("bulk user action",
		zap.String("action", req.Action),
		zap.Int("requested", len(req.UserIDs)),
		zap.Int("affected", affected),
		zap.String("actor_id", actorID.String()),
	)
	return &BulkActionDTO{Action: req.Action, Requested: len(req.UserIDs), AffectedCount: affected}, nil
}

// CreateAdmin creates an active admin account without a welcome bonus.
func (s *AccountService) CreateAdmin(ctx context.Context, email, username, password, firstName, lastName string) (*AccountDTO, error) {
	if err := accountDomain.ValidatePassword(password); err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	acc, err := accountDomain.NewAccount(email, username, hash, firstName, lastName)
	if err != nil {
		return nil, err
	}
	if err := acc.ChangeRole(auth.RoleAdmin); err != nil {
		return nil, err
	}
	if err := s.accounts.Save(ctx, acc); err != nil {
		return nil, err
	}
	s.logger.Info("admin account created", zap.String("account_id", acc.ID().String()))
	dto := toAccountDTO(acc)
	return &dto, nil
}
