package application

import (
	"context"
	"time"

	"go.uber.org/zap"

	accountDomain "github.com/marrakech-reviews/service-community/internal/domain/account"
	"github.com/marrakech-reviews/service-community/pkg/domain"
)

// Cleanup targets.
const (
	CleanupLogs          = "logs"
	CleanupNotifications = "notifications"
	CleanupAll           = "all"

	defaultCleanupDays = 30
)

// CleanupRequest selects what to prune and how old it must be.
type CleanupRequest struct {
	Type    string `json:"type"`
	DaysOld int    `json:"days_old"`
}

// CleanupDTO reports deleted row counts per target.
type CleanupDTO struct {
	AuditLogs     *int64 `json:"audit_logs,omitempty"`
	Notifications *int64 `json:"notifications,omitempty"`
	DaysOld       int    `json:"days_old"`
}

// UserStatsDTO summarizes the account population.
type UserStatsDTO struct {
	Total       int64            `json:"total"`
	Active      int64            `json:"active"`
	NewThisWeek int64            `json:"new_this_week"`
	ByRole      map[string]int64 `json:"by_role"`
}

// DashboardDTO is the admin overview.
type DashboardDTO struct {
	Users           UserStatsDTO          `json:"users"`
	Wallet          *WalletStatsDTO       `json:"wallet"`
	Coupons         *CouponStatsDTO       `json:"coupons"`
	Notifications   *NotificationStatsDTO `json:"notifications"`
	AuditEntries24h int64                 `json:"audit_entries_24h"`
}

// AdminService aggregates dashboard statistics and system cleanup.
type AdminService struct {
	accounts      accountDomain.Repository
	wallet        *WalletService
	coupons       *CouponService
	notifications *NotificationService
	audit         *AuditService
	logger        *zap.Logger
}

// NewAdminService creates a new AdminService.
func NewAdminService(
	accounts accountDomain.Repository,
	wallet *WalletService,
	coupons *CouponService,
	notifications *NotificationService,
	audit *AuditService,
	logger *zap.Logger,
) *AdminService {
	return &AdminService{
		accounts:      accounts,
		wallet:        wallet,
		coupons:       coupons,
		notifications: notifications,
		audit:         audit,
		logger:        logger,
	}
}

// Dashboard collects statistics across accounts, wallets, coupons and notifications.
func (s *AdminService) Dashboard(ctx context.Context) (*DashboardDTO, error) {
	now := time.Now().UTC()

	users, err := s.accounts.Stats(ctx, now.AddDate(0, 0, -7))
	if err != nil {
		return nil, err
	}
	wallet, err := s.wallet.Stats(ctx)
	if err != nil {
		return nil, err
	}
	coupons, err := s.coupons.Stats(ctx)
	if err != nil {
		return nil, err
	}
	notifications, err := s.notifications.Stats(ctx)
	if err != nil {
		return nil, err
	}
	activity, err := s.audit.CountSince(ctx, now.Add(-24*time.Hour))
	if err != nil {
		return nil, err
	}

	return &DashboardDTO{
		Users: UserStatsDTO{
			Total:       users.Total,
			Active:      users.Active,
			NewThisWeek: users.NewSince,
			ByRole:      users.ByRole,
		},
		Wallet:          wallet,
		Coupons:         coupons,
		Notifications:   notifications,
		AuditEntries24h: activity,
	}, nil
}

// Cleanup prunes audit logs, read notifications, or both. Type defaults to
// all and days to 30.
func (s *AdminService) Cleanup(ctx context.Context, req CleanupRequest) (*CleanupDTO, error) {
	if req.Type == "" {
		req.Type = CleanupAll
	}
	if req.DaysOld == 0 {
		req.DaysOld = defaultCleanupDays
	}
	switch req.Type {
	case CleanupLogs, CleanupNotifications, CleanupAll:
	default:
		return nil, domain.NewValidationError("invalid cleanup type: " + req.Type).WithCode("INVALID_CLEANUP_TYPE")
	}

	result := &CleanupDTO{DaysOld: req.DaysOld}
	if req.Type == CleanupLogs || req.Type == CleanupAll {
		n, err := s.audit.Cleanup(ctx, req.DaysOld)
		if err != nil {
			return nil, err
		}
		result.AuditLogs = &n
	}
	if req.Type == CleanupNotifications || req.Type == CleanupAll {
		n, err := s.notifications.Cleanup(ctx, req.DaysOld)
		if err != nil {
			return nil, err
		}
		result.Notifications = &n
	}
	return result, nil
}
