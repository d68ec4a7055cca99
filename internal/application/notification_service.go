package application

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	accountDomain "github.com/marrakech-reviews/service-community/internal/domain/account"
	notificationDomain "github.com/marrakech-reviews/service-community/internal/domain/notification"
	"github.com/marrakech-reviews/service-community/pkg/auth"
	"github.com/marrakech-reviews/service-community/pkg/domain"
)

// Notifier delivers a notification to one account.
type Notifier interface {
	Notify(ctx context.Context, recipientID uuid.UUID, typ notificationDomain.Type, title, message string, data map[string]any) error
}

// SendNotificationRequest targets exactly one of a single account, every
// active account with a role, or every active account.
type SendNotificationRequest struct {
	RecipientID *uuid.UUID     `json:"recipient_id"`
	Role        string         `json:"role"`
	All         bool           `json:"all"`
	Type        string         `json:"type"`
	Title       string         `json:"title" binding:"required"`
	Message     string         `json:"message" binding:"required"`
	Data        map[string]any `json:"data"`
}

// UpdatePreferencesRequest changes notification opt-ins. Nil fields keep
// their current value.
type UpdatePreferencesRequest struct {
	Email              *bool `json:"email"`
	Push               *bool `json:"push"`
	ReviewApproved     *bool `json:"review_approved"`
	ArticlePublished   *bool `json:"article_published"`
	WalletTransactions *bool `json:"wallet_transactions"`
	SystemUpdates      *bool `json:"system_updates"`
}

// NotificationCleanupRequest selects how old read notifications must be to be removed.
type NotificationCleanupRequest struct {
	DaysOld int `json:"days_old"`
}

// NotificationDTO is the API representation of a notification.
type NotificationDTO struct {
	ID        uuid.UUID      `json:"id"`
	Type      string         `json:"type"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Data      map[string]any `json:"data,omitempty"`
	IsRead    bool           `json:"is_read"`
	CreatedAt time.Time      `json:"created_at"`
}

// NotificationStatsDTO summarizes stored notifications.
type NotificationStatsDTO struct {
	Total  int64            `json:"total"`
	Unread int64            `json:"unread"`
	ByType map[string]int64 `json:"by_type"`
}

// NotificationService handles notification use cases.
type NotificationService struct {
	repo     notificationDomain.Repository
	accounts accountDomain.Repository
	logger   *zap.Logger
}

// NewNotificationService creates a new NotificationService.
func NewNotificationService(repo notificationDomain.Repository, accounts accountDomain.Repository, logger *zap.Logger) *NotificationService {
	return &NotificationService{repo: repo, accounts: accounts, logger: logger}
}

// List returns the recipient's notifications newest first.
func (s *NotificationService) List(ctx context.Context, recipientID uuid.UUID, unreadOnly bool, page, limit int) ([]NotificationDTO, int64, error) {
	ns, total, err := s.repo.ListForRecipient(ctx, recipientID, unreadOnly, page, limit)
	if err != nil {
		return nil, 0, err
	}
	dtos := make([]NotificationDTO, len(ns))
	for i, n := range ns {
		dtos[i] = toNotificationDTO(n)
	}
	return dtos, total, nil
}

// MarkRead marks one notification of the recipient read.
func (s *NotificationService) MarkRead(ctx context.Context, id, recipientID uuid.UUID) error {
	return s.repo.MarkRead(ctx, id, recipientID)
}

// MarkAllRead marks every notification of the recipient read.
func (s *NotificationService) MarkAllRead(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	return s.repo.MarkAllRead(ctx, recipientID)
}

// Delete removes one notification of the recipient.
func (s *NotificationService) Delete(ctx context.Context, id, recipientID uuid.UUID) error {
	return s.repo.Delete(ctx, id, recipientID)
}

// UnreadCount returns how many unread notifications the recipient has.
func (s *NotificationService) UnreadCount(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	return s.repo.CountUnread(ctx, recipientID)
}

// Preferences returns the account's notification opt-ins.
func (s *NotificationService) Preferences(ctx context.Context, accountID uuid.UUID) (*notificationDomain.Preferences, error) {
	p, err := s.repo.Preferences(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdatePreferences merges req into the account's opt-ins and stores them.
func (s *NotificationService) UpdatePreferences(ctx context.Context, accountID uuid.UUID, req UpdatePreferencesRequest) (*notificationDomain.Preferences, error) {
	p, err := s.repo.Preferences(ctx, accountID)
	if err != nil {
		return nil, err
	}
	for dst, src := range map[*bool]*bool{
		&p.Email:              req.Email,
		&p.Push:               req.Push,
		&p.ReviewApproved:     req.ReviewApproved,
		&p.ArticlePublished:   req.ArticlePublished,
		&p.WalletTransactions: req.WalletTransactions,
		&p.SystemUpdates:      req.SystemUpdates,
	} {
		if src != nil {
			*dst = *src
		}
	}
	if err := s.repo.SavePreferences(ctx, accountID, p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Notify stores a notification for one account unless the account opted
// out of its type.
func (s *NotificationService) Notify(ctx context.Context, recipientID uuid.UUID, typ notificationDomain.Type, title, message string, data map[string]any) error {
	prefs, err := s.repo.Preferences(ctx, recipientID)
	if err != nil {
		return err
	}
	if !prefs.Allows(typ) {
		return nil
	}
	n, err := notificationDomain.New(recipientID, typ, title, message, data)
	if err != nil {
		return err
	}
	return s.repo.SaveBatch(ctx, []*notificationDomain.Notification{n})
}

// Send delivers an admin notification and returns the number of recipients.
func (s *NotificationService) Send(ctx context.Context, req SendNotificationRequest) (int, error) {
	targets := 0
	if req.RecipientID != nil {
		targets++
	}
	if req.Role != "" {
		targets++
	}
	if req.All {
		targets++
	}
	if targets != 1 {
		return 0, domain.NewValidationError("exactly one of recipient_id, role or all is required")
	}

	var recipients []uuid.UUID
	switch {
	case req.RecipientID != nil:
		if _, err := s.accounts.FindByID(ctx, *req.RecipientID); err != nil {
			return 0, err
		}
		recipients = []uuid.UUID{*req.RecipientID}
	case req.Role != "":
		role, err := auth.ParseRole(req.Role)
		if err != nil {
			return 0, domain.NewValidationError(err.Error())
		}
		if recipients, err = s.accounts.ListActiveIDs(ctx, role); err != nil {
			return 0, err
		}
	default:
		var err error
		if recipients, err = s.accounts.ListActiveIDs(ctx, ""); err != nil {
			return 0, err
		}
	}

	typ := notificationDomain.Type(req.Type)
	if typ == "" {
		typ = notificationDomain.TypeAdmin
	}
	batch := make([]*notificationDomain.Notification, 0, len(recipients))
	for _, id := range recipients {
		n, err := notificationDomain.New(id, typ, req.Title, req.Message, req.Data)
		if err != nil {
			return 0, err
		}
		batch = append(batch, n)
	}
	if err := s.repo.SaveBatch(ctx, batch); err != nil {
		return 0, fmt.Errorf("failed to save notifications: %w", err)
	}

	s.logger.Info("notification sent", zap.Int("recipients", len(batch)), zap.String("type", string(typ)))
	return len(batch), nil
}

// Stats returns notification totals.
func (s *NotificationService) Stats(ctx context.Context) (*NotificationStatsDTO, error) {
	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return &NotificationStatsDTO{Total: stats.Total, Unread: stats.Unread, ByType: stats.ByType}, nil
}

// Cleanup removes read notifications older than days.
func (s *NotificationService) Cleanup(ctx context.Context, days int) (int64, error) {
	if days < 1 {
		return 0, domain.NewValidationError("days must be at least 1")
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -days)
	deleted, err := s.repo.DeleteReadOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	s.logger.Info("read notifications cleaned up", zap.Int64("deleted", deleted), zap.Int("days", days))
	return deleted, nil
}

// notifyBestEffort delivers a notification and only logs failures.
func notifyBestEffort(ctx context.Context, n Notifier, logger *zap.Logger, recipientID uuid.UUID, typ notificationDomain.Type, title, message string, data map[string]any) {
	if n == nil {
		return
	}
	if err := n.Notify(ctx, recipientID, typ, title, message, data); err != nil {
		logger.Warn("failed to notify account",
			zap.String("account_id", recipientID.String()),
			zap.String("title", title),
			zap.Error(err),
		)
	}
}

func toNotificationDTO(n *notificationDomain.Notification) NotificationDTO {
	return NotificationDTO{
		ID:        n.ID(),
		Type:      string(n.Type()),
		Title:     n.Title(),
		Message:   n.Message(),
		Data:      n.Data(),
		IsRead:    n.IsRead(),
		CreatedAt: n.CreatedAt(),
	}
}
