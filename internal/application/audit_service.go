package application

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	auditDomain "github.com/marrakech-reviews/service-community/internal/domain/audit"
	"github.com/marrakech-reviews/service-community/pkg/domain"
)

// AuditEntryDTO is the API representation of an audit log entry.
type AuditEntryDTO struct {
	ID           uuid.UUID      `json:"id"`
	ActorID      uuid.UUID      `json:"user_id"`
	ActorRole    string         `json:"user_role"`
	Action       string         `json:"action"`
	ResourceKind string         `json:"resource_type"`
	ResourceID   string         `json:"resource_id,omitempty"`
	Details      map[string]any `json:"details,omitempty"`
	IPAddress    string         `json:"ip_address,omitempty"`
	UserAgent    string         `json:"user_agent,omitempty"`
	CreatedAt    time.Time      `json:"timestamp"`
}

// AuditService reads and prunes the audit log.
type AuditService struct {
	repo   auditDomain.Repository
	logger *zap.Logger
}

// NewAuditService creates a new AuditService.
func NewAuditService(repo auditDomain.Repository, logger *zap.Logger) *AuditService {
	return &AuditService{repo: repo, logger: logger}
}

// List returns entries matching filter, newest first.
func (s *AuditService) List(ctx context.Context, filter auditDomain.Filter, page, limit int) ([]AuditEntryDTO, int64, error) {
	entries, total, err := s.repo.List(ctx, filter, page, limit)
	if err != nil {
		return nil, 0, err
	}
	return toAuditDTOs(entries), total, nil
}

// Recent returns the latest limit entries.
func (s *AuditService) Recent(ctx context.Context, limit int) ([]AuditEntryDTO, error) {
	entries, err := s.repo.Recent(ctx, limit)
	if err != nil {
		return nil, err
	}
	return toAuditDTOs(entries), nil
}

// CountSince counts entries recorded at or after since.
func (s *AuditService) CountSince(ctx context.Context, since time.Time) (int64, error) {
	return s.repo.CountSince(ctx, since)
}

// Cleanup removes entries older than days.
func (s *AuditService) Cleanup(ctx context.Context, days int) (int64, error) {
	if days < 1 {
		return 0, domain.NewValidationError("days must be at least 1")
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -days)
	deleted, err := s.repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	s.logger.Info("audit log cleaned up", zap.Int64("deleted", deleted), zap.Int("days", days))
	return deleted, nil
}

func toAuditDTOs(entries []auditDomain.Entry) []AuditEntryDTO {
	dtos := make([]AuditEntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = AuditEntryDTO{
			ID:           e.ID,
			ActorID:      e.ActorID,
			ActorRole:    e.ActorRole,
			Action:       e.Action,
			ResourceKind: e.ResourceKind,
			ResourceID:   e.ResourceID,
			Details:      e.Details,
			IPAddress:    e.IPAddress,
			UserAgent:    e.UserAgent,
			CreatedAt:    e.CreatedAt,
		}
	}
	return dtos
}
