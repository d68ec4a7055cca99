package application

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/marrakech-reviews/service-community/internal/repository"
	"github.com/marrakech-reviews/service-community/pkg/auth"
	"github.com/marrakech-reviews/service-community/pkg/domain"
)

type publishedEvent struct {
	Type    string
	Subject string
	Data    any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) Publish(_ context.Context, eventType, subject string, data any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{Type: eventType, Subject: subject, Data: data})
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

// stack wires every service against one in-memory database.
type stack struct {
	db            *gorm.DB
	publisher     *recordingPublisher
	tokens        *auth.JWTManager
	denylist      *auth.MemoryDenylist
	auth          *AuthService
	accounts      *AccountService
	wallet        *WalletService
	notifications *NotificationService
	ledger        *CouponLedger
	coupons       *CouponService
	audit         *AuditService
	admin         *AdminService
	reviews       *ReviewService
}

func newStack(t *testing.T) *stack {
	t.Helper()
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"), time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)
	require.NoError(t, repository.AutoMigrate(db))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	log := zap.NewNop()
	accountRepo := repository.NewAccountRepository(db)
	walletRepo := repository.NewWalletRepository(db)
	couponRepo := repository.NewCouponRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	reviewRepo := repository.NewReviewRepository(db)

	s := &stack{
		db:        db,
		publisher: &recordingPublisher{},
		tokens:    auth.NewJWTManager("test-secret", 15*time.Minute, time.Hour),
		denylist:  auth.NewMemoryDenylist(),
	}
	s.notifications = NewNotificationService(notificationRepo, accountRepo, log)
	s.auth = NewAuthService(accountRepo, s.tokens, s.denylist, s.publisher, log)
	s.accounts = NewAccountService(accountRepo, s.publisher, log)
	s.wallet = NewWalletService(accountRepo, walletRepo, s.notifications, s.publisher, log)
	s.ledger = NewCouponLedger(couponRepo, s.notifications, s.publisher, log)
	s.coupons = NewCouponService(couponRepo, log)
	s.audit = NewAuditService(auditRepo, log)
	s.admin = NewAdminService(accountRepo, s.wallet, s.coupons, s.notifications, s.audit, log)
	s.reviews = NewReviewService(reviewRepo, accountRepo, s.wallet, s.notifications, s.publisher, log)
	return s
}

// register creates an account through the auth service.
func (s *stack) register(t *testing.T, username string) *AuthDTO {
	t.Helper()
	res, err := s.auth.Register(t.Context(), RegisterRequest{
		Username:  username,
		Email:     username + "@example.com",
		Password:  "Secret123",
		FirstName: "Test",
		LastName:  "User",
	})
	require.NoError(t, err)
	return res
}

func (s *stack) setClock(now time.Time) {
	s.ledger.now = func() time.Time { return now }
	s.coupons.now = func() time.Time { return now }
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	var de *domain.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, code, de.Code)
}
