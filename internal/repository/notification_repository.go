package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	notificationDomain "github.com/marrakech-reviews/service-community/internal/domain/notification"
	"github.com/marrakech-reviews/service-community/pkg/domain"
)

// NotificationModel is the GORM model for the notifications table.
type NotificationModel struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey"`
	RecipientID uuid.UUID      `gorm:"type:uuid;not null;index"`
	Type        string         `gorm:"type:varchar(20);not null;index"`
	Title       string         `gorm:"type:varchar(200);not null"`
	Message     string         `gorm:"type:text;not null"`
	Data        datatypes.JSON `gorm:"type:json"`
	IsRead      bool           `gorm:"not null;index"`
	CreatedAt   time.Time      `gorm:"not null;index"`
}

// TableName sets the table name.
func (NotificationModel) TableName() string { return "notifications" }

// NotificationPreferenceModel is the GORM model for the notification_preferences table.
type NotificationPreferenceModel struct {
	AccountID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	Email              bool      `gorm:"not null"`
	Push               bool      `gorm:"not null"`
	ReviewApproved     bool      `gorm:"not null"`
	ArticlePublished   bool      `gorm:"not null"`
	WalletTransactions bool      `gorm:"not null"`
	SystemUpdates      bool      `gorm:"not null"`
	UpdatedAt          time.Time `gorm:"not null"`
}

// TableName sets the table name.
func (NotificationPreferenceModel) TableName() string { return "notification_preferences" }

// NotificationRepositoryImpl implements notification.Repository using GORM.
type NotificationRepositoryImpl struct {
	db *gorm.DB
}

// NewNotificationRepository creates a new NotificationRepositoryImpl.
func NewNotificationRepository(db *gorm.DB) *NotificationRepositoryImpl {
	return &NotificationRepositoryImpl{db: db}
}

// SaveBatch inserts notifications in batches.
func (r *NotificationRepositoryImpl) SaveBatch(ctx context.Context, ns []*notificationDomain.Notification) error {
	if len(ns) == 0 {
		return nil
	}
	models := make([]NotificationModel, 0, len(ns))
	for _, n := range ns {
		m, err := toNotificationModel(n)
		if err != nil {
			return err
		}
		models = append(models, *m)
	}
	return r.db.WithContext(ctx).CreateInBatches(models, 200).Error
}

// ListForRecipient returns a recipient's notifications newest first.
func (r *NotificationRepositoryImpl) ListForRecipient(ctx context.Context, recipientID uuid.UUID, unreadOnly bool, page, limit int) ([]*notificationDomain.Notification, int64, error) {
	query := r.db.WithContext(ctx).Model(&NotificationModel{}).Where("recipient_id = ?", recipientID)
	if unreadOnly {
		query = query.Where("is_read = ?", false)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var models []NotificationModel
	if err := query.Order("created_at DESC").Offset(offsetFor(page, limit)).Limit(limit).Find(&models).Error; err != nil {
		return nil, 0, err
	}

	ns := make([]*notificationDomain.Notification, len(models))
	for i := range models {
		ns[i] = toNotificationDomain(&models[i])
	}
	return ns, total, nil
}

// MarkRead marks one of the recipient's notifications read.
func (r *NotificationRepositoryImpl) MarkRead(ctx context.Context, id, recipientID uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Model(&NotificationModel{}).
		Where("id = ? AND recipient_id = ?", id, recipientID).
		Update("is_read", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.NewNotFoundError("Notification", id.String())
	}
	return nil
}

// MarkAllRead marks every unread notification of the recipient read.
func (r *NotificationRepositoryImpl) MarkAllRead(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&NotificationModel{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Update("is_read", true)
	return result.RowsAffected, result.Error
}

// Delete removes one of the recipient's notifications.
func (r *NotificationRepositoryImpl) Delete(ctx context.Context, id, recipientID uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ? AND recipient_id = ?", id, recipientID).Delete(&NotificationModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.NewNotFoundError("Notification", id.String())
	}
	return nil
}

// CountUnread counts the recipient's unread notifications.
func (r *NotificationRepositoryImpl) CountUnread(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&NotificationModel{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Count(&count).Error
	return count, err
}

// Stats returns totals across all recipients.
func (r *NotificationRepositoryImpl) Stats(ctx context.Context) (*notificationDomain.Stats, error) {
	db := r.db.WithContext(ctx)
	stats := &notificationDomain.Stats{ByType: make(map[string]int64)}

	if err := db.Model(&NotificationModel{}).Count(&stats.Total).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&NotificationModel{}).Where("is_read = ?", false).Count(&stats.Unread).Error; err != nil {
		return nil, err
	}

	type typeCount struct {
		Type  string
		Count int64
	}
	var results []typeCount
	if err := db.Model(&NotificationModel{}).
		Select("type, count(*) as count").
		Group("type").
		Find(&results).Error; err != nil {
		return nil, err
	}
	for _, tc := range results {
		stats.ByType[tc.Type] = tc.Count
	}
	return stats, nil
}

// DeleteReadOlderThan removes read notifications created before cutoff.
func (r *NotificationRepositoryImpl) DeleteReadOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("is_read = ? AND created_at < ?", true, cutoff).
		Delete(&NotificationModel{})
	return result.RowsAffected, result.Error
}

// Preferences returns the account's saved preferences or the defaults.
func (r *NotificationRepositoryImpl) Preferences(ctx context.Context, accountID uuid.UUID) (notificationDomain.Preferences, error) {
	var m NotificationPreferenceModel
	err := r.db.WithContext(ctx).Where("account_id = ?", accountID).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notificationDomain.DefaultPreferences(), nil
	}
	if err != nil {
		return notificationDomain.Preferences{}, err
	}
	return notificationDomain.Preferences{
		Email:              m.Email,
		Push:               m.Push,
		ReviewApproved:     m.ReviewApproved,
		ArticlePublished:   m.ArticlePublished,
		WalletTransactions: m.WalletTransactions,
		SystemUpdates:      m.SystemUpdates,
	}, nil
}

// SavePreferences inserts or replaces the account's preferences.
func (r *NotificationRepositoryImpl) SavePreferences(ctx context.Context, accountID uuid.UUID, p notificationDomain.Preferences) error {
	m := NotificationPreferenceModel{
		AccountID:          accountID,
		Email:              p.Email,
		Push:               p.Push,
		ReviewApproved:     p.ReviewApproved,
		ArticlePublished:   p.ArticlePublished,
		WalletTransactions: p.WalletTransactions,
		SystemUpdates:      p.SystemUpdates,
		UpdatedAt:          time.Now().UTC(),
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "account_id"}},
		UpdateAll: true,
	}).Create(&m).Error
}

func toNotificationModel(n *notificationDomain.Notification) (*NotificationModel, error) {
	var data datatypes.JSON
	if len(n.Data()) > 0 {
		raw, err := json.Marshal(n.Data())
		if err != nil {
			return nil, err
		}
		data = datatypes.JSON(raw)
	}
	return &NotificationModel{
		ID:          n.ID(),
		RecipientID: n.RecipientID(),
		Type:        string(n.Type()),
		Title:       n.Title(),
		Message:     n.Message(),
		Data:        data,
		IsRead:      n.IsRead(),
		CreatedAt:   n.CreatedAt(),
	}, nil
}

func toNotificationDomain(m *NotificationModel) *notificationDomain.Notification {
	var data map[string]any
	if len(m.Data) > 0 {
		_ = json.Unmarshal(m.Data, &data)
	}
	return notificationDomain.Reconstruct(
		m.ID, m.RecipientID, notificationDomain.Type(m.Type),
		m.Title, m.Message, data, m.IsRead, m.CreatedAt,
	)
}
