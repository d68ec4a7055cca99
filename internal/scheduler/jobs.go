package scheduler

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/marrakech-reviews/service-community/internal/application"
	"github.com/marrakech-reviews/service-community/pkg/auth"
)

// ActiveAccounts lists the accounts eligible for weekly rewards.
type ActiveAccounts interface {
	ListActiveIDs(ctx context.Context, role auth.Role) ([]uuid.UUID, error)
}

// WeeklyRewarder issues the weekly reward coupon of one account.
type WeeklyRewarder interface {
	IssueWeeklyReward(ctx context.Context, accountID uuid.UUID) (*application.CouponDTO, bool, error)
}

// AuditCleaner prunes audit entries older than days.
type AuditCleaner interface {
	Cleanup(ctx context.Context, days int) (int64, error)
}

// WeeklyRunResult summarizes one weekly reward run.
type WeeklyRunResult struct {
	Accounts int
	Issued   int
	Existing int
	Failed   int
}

// Jobs holds the periodic maintenance tasks. They are run by the scheduler
// and by the admin CLI.
type Jobs struct {
	accounts      ActiveAccounts
	rewards       WeeklyRewarder
	audit         AuditCleaner
	retentionDays int
	logger        *zap.Logger
}

// NewJobs creates Jobs.
func NewJobs(accounts ActiveAccounts, rewards WeeklyRewarder, audit AuditCleaner, retentionDays int, logger *zap.Logger) *Jobs {
	return &Jobs{
		accounts:      accounts,
		rewards:       rewards,
		audit:         audit,
		retentionDays: retentionDays,
		logger:        logger,
	}
}

// IssueWeeklyRewards gives every active account its reward for the current
// week. Accounts that already have one are counted, not re-issued. A failure
// for one account does not stop the run.
func (j *Jobs) IssueWeeklyRewards(ctx context.Context) (WeeklyRunResult, error) {
	ids, err := j.accounts.ListActiveIDs(ctx, "")
	if err != nil {
		return WeeklyRunResult{}, err
	}

	result := WeeklyRunResult{Accounts: len(ids)}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		_, created, err := j.rewards.IssueWeeklyReward(ctx, id)
		switch {
		case err != nil:
			result.Failed++
			j.logger.Warn("weekly reward failed", zap.String("account_id", id.String()), zap.Error(err))
		case created:
			result.Issued++
		default:
			result.Existing++
		}
	}

	j.logger.Info("weekly rewards run finished",
		zap.Int("accounts", result.Accounts),
		zap.Int("issued", result.Issued),
		zap.Int("existing", result.Existing),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

// CleanupAuditLogs deletes audit entries older than days. A zero days uses
// the configured retention.
func (j *Jobs) CleanupAuditLogs(ctx context.Context, days int) (int64, error) {
	if days == 0 {
		days = j.retentionDays
	}
	if days < 1 {
		return 0, errors.New("audit retention must be at least one day")
	}
	return j.audit.Cleanup(ctx, days)
}
