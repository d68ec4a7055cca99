package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/marrakech-reviews/service-community/internal/application"
	"github.com/marrakech-reviews/service-community/internal/config"
	"github.com/marrakech-reviews/service-community/internal/repository"
	"github.com/marrakech-reviews/service-community/internal/scheduler"
	"github.com/marrakech-reviews/service-community/pkg/database"
	"github.com/marrakech-reviews/service-community/pkg/logger"
)

var Version = "dev"

// env is what every command needs: configuration, a logger and the database.
type env struct {
	cfg    *config.ServiceConfig
	logger *zap.Logger
	db     *gorm.DB
}

func setup() (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	zapLogger, err := logger.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	db, err := database.Connect(cfg.DB, zapLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return &env{cfg: cfg, logger: zapLogger.Named("guidectl"), db: db}, nil
}

func (e *env) jobs() *scheduler.Jobs {
	accountRepo := repository.NewAccountRepository(e.db)
	notifications := application.NewNotificationService(repository.NewNotificationRepository(e.db), accountRepo, e.logger)
	ledger := application.NewCouponLedger(repository.NewCouponRepository(e.db), notifications, nil, e.logger)
	audit := application.NewAuditService(repository.NewAuditRepository(e.db), e.logger)
	return scheduler.NewJobs(accountRepo, ledger, audit, e.cfg.AuditRetentionDays, e.logger)
}

func main() {
	rootCmd := &cobra.Command{
		Use:          "guidectl",
		Short:        "Operate the Marrakech Reviews community service",
		Version:      Version,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(createAdminCmd())
	rootCmd.AddCommand(weeklyRewardsCmd())
	rootCmd.AddCommand(auditCleanupCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup()
			if err != nil {
				return err
			}
			if err := repository.AutoMigrate(e.db); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
			return nil
		},
	}
}

func createAdminCmd() *cobra.Command {
	var email, username, password, firstName, lastName string

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an admin account",
		Long: `Create an active admin account. Admin accounts do not receive the
welcome bonus.

Examples:
  guidectl create-admin --email ops@example.com --username ops --password Secret123`,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup()
			if err != nil {
				return err
			}
			accounts := application.NewAccountService(repository.NewAccountRepository(e.db), nil, e.logger)
			dto, err := accounts.CreateAdmin(cmd.Context(), email, username, password, firstName, lastName)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created admin %s (%s)\n", dto.Username, dto.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "admin email")
	cmd.Flags().StringVar(&username, "username", "", "admin username")
	cmd.Flags().StringVar(&password, "password", "", "admin password")
	cmd.Flags().StringVar(&firstName, "first-name", "Site", "first name")
	cmd.Flags().StringVar(&lastName, "last-name", "Admin", "last name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}

func weeklyRewardsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "weekly-rewards",
		Short: "Issue this week's reward coupon to every active account",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup()
			if err != nil {
				return err
			}
			res, err := e.jobs().IssueWeeklyRewards(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "accounts=%d issued=%d existing=%d failed=%d\n",
				res.Accounts, res.Issued, res.Existing, res.Failed)
			return nil
		},
	}
}

func auditCleanupCmd() *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "audit-cleanup",
		Short: "Delete audit entries older than the retention window",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup()
			if err != nil {
				return err
			}
			deleted, err := e.jobs().CleanupAuditLogs(cmd.Context(), days)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d audit entries\n", deleted)
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", 0, "retention in days (0 uses AUDIT_RETENTION_DAYS)")
	return cmd
}
