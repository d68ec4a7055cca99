package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	auditDomain "github.com/marrakech-reviews/service-community/internal/domain/audit"
)

// AuditLogModel is the GORM model for the audit_logs table.
type AuditLogModel struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey"`
	ActorID      uuid.UUID      `gorm:"type:uuid;not null;index"`
	ActorRole    string         `gorm:"type:varchar(20)"`
	Action       string         `gorm:"type:varchar(100);not null;index"`
	ResourceKind string         `gorm:"type:varchar(50);not null;index"`
	ResourceID   string         `gorm:"type:varchar(100)"`
	Details      datatypes.JSON `gorm:"type:json"`
	IPAddress    string         `gorm:"type:varchar(64)"`
	UserAgent    string         `gorm:"type:varchar(500)"`
	CreatedAt    time.Time      `gorm:"not null;index"`
}

// TableName sets the table name.
func (AuditLogModel) TableName() string { return "audit_logs" }

// AuditRepositoryImpl implements audit.Repository using GORM.
type AuditRepositoryImpl struct {
	db *gorm.DB
}

// NewAuditRepository creates a new AuditRepositoryImpl.
func NewAuditRepository(db *gorm.DB) *AuditRepositoryImpl {
	return &AuditRepositoryImpl{db: db}
}

// Save appends an entry.
func (r *AuditRepositoryImpl) Save(ctx context.Context, e auditDomain.Entry) error {
	model, err := toAuditModel(e)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(model).Error
}

// List returns entries matching filter, newest first.
func (r *AuditRepositoryImpl) List(ctx context.Context, filter auditDomain.Filter, page, limit int) ([]auditDomain.Entry, int64, error) {
	query := r.db.WithContext(ctx).Model(&AuditLogModel{})
	if filter.ActorID != uuid.Nil {
		query = query.Where("actor_id = ?", filter.ActorID)
	}
	if filter.Action != "" {
		query = query.Where("action = ?", filter.Action)
	}
	if filter.ResourceKind != "" {
		query = query.Where("resource_kind = ?", filter.ResourceKind)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var models []AuditLogModel
	if err := query.Order("created_at DESC").Offset(offsetFor(page, limit)).Limit(limit).Find(&models).Error; err != nil {
		return nil, 0, err
	}
	return toAuditEntries(models), total, nil
}

// Recent returns the latest entries.
func (r *AuditRepositoryImpl) Recent(ctx context.Context, limit int) ([]auditDomain.Entry, error) {
	var models []AuditLogModel
	if err := r.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&models).Error; err != nil {
		return nil, err
	}
	return toAuditEntries(models), nil
}

// CountSince counts entries created at or after since.
func (r *AuditRepositoryImpl) CountSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&AuditLogModel{}).Where("created_at >= ?", since).Count(&count).Error
	return count, err
}

// DeleteOlderThan removes entries created before cutoff.
func (r *AuditRepositoryImpl) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&AuditLogModel{})
	return result.RowsAffected, result.Error
}

func toAuditModel(e auditDomain.Entry) (*AuditLogModel, error) {
	var details datatypes.JSON
	if len(e.Details) > 0 {
		raw, err := json.Marshal(e.Details)
		if err != nil {
			return nil, err
		}
		details = datatypes.JSON(raw)
	}
	return &AuditLogModel{
		ID:           e.ID,
		ActorID:      e.ActorID,
		ActorRole:    e.ActorRole,
		Action:       e.Action,
		ResourceKind: e.ResourceKind,
		ResourceID:   e.ResourceID,
		Details:      details,
		IPAddress:    e.IPAddress,
		UserAgent:    e.UserAgent,
		CreatedAt:    e.CreatedAt,
	}, nil
}

func toAuditEntries(models []AuditLogModel) []auditDomain.Entry {
	entries := make([]auditDomain.Entry, len(models))
	for i, m := range models {
		var details map[string]any
		if len(m.Details) > 0 {
			_ = json.Unmarshal(m.Details, &details)
		}
		entries[i] = auditDomain.Entry{
			ID:           m.ID,
			ActorID:      m.ActorID,
			ActorRole:    m.ActorRole,
			Action:       m.Action,
			ResourceKind: m.ResourceKind,
			ResourceID:   m.ResourceID,
			Details:      details,
			IPAddress:    m.IPAddress,
			UserAgent:    m.UserAgent,
			CreatedAt:    m.CreatedAt,
		}
	}
	return entries
}
