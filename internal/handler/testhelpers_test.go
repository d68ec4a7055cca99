package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/marrakech-reviews/service-community/internal/access"
	"github.com/marrakech-reviews/service-community/internal/application"
	auditDomain "github.com/marrakech-reviews/service-community/internal/domain/audit"
	"github.com/marrakech-reviews/service-community/internal/repository"
	"github.com/marrakech-reviews/service-community/pkg/auth"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Pagination *struct {
		Total int64 `json:"total"`
	} `json:"pagination"`
}

type server struct {
	router   *gin.Engine
	recorder *access.Recorder
	accounts *application.AccountService
	auth     *application.AuthService
	reviews  *application.ReviewService
	audit    *repository.AuditRepositoryImpl
}

func newServer(t *testing.T) *server {
	t.Helper()
	gin.SetMode(gin.TestMode)

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

	tokens := auth.NewJWTManager("test-secret", 15*time.Minute, time.Hour)
	denylist := auth.NewMemoryDenylist()

	notifications := application.NewNotificationService(notificationRepo, accountRepo, log)
	authSvc := application.NewAuthService(accountRepo, tokens, denylist, nil, log)
	accounts := application.NewAccountService(accountRepo, nil, log)
	wallet := application.NewWalletService(accountRepo, walletRepo, notifications, nil, log)
	ledger := application.NewCouponLedger(couponRepo, notifications, nil, log)
	coupons := application.NewCouponService(couponRepo, log)
	audit := application.NewAuditService(auditRepo, log)
	admin := application.NewAdminService(accountRepo, wallet, coupons, notifications, audit, log)
	reviews := application.NewReviewService(reviewRepo, accountRepo, wallet, notifications, nil, log)

	authz := access.NewAuthorizer(tokens, accountRepo, denylist, log)
	rec := access.NewRecorder(auditRepo, log, 16)

	router := gin.New()
	v1 := router.Group("/api/v1")
	NewAuthHandler(authSvc).RegisterRoutes(v1, authz)
	NewUserHandler(accounts).RegisterRoutes(v1, authz, rec)
	NewWalletHandler(wallet).RegisterRoutes(v1, authz, rec)
	NewCouponHandler(ledger, coupons).RegisterRoutes(v1, authz, rec)
	NewNotificationHandler(notifications).RegisterRoutes(v1, authz, rec)
	NewAdminHandler(admin, audit, accounts).RegisterRoutes(v1, authz, rec)
	NewReviewHandler(reviews).RegisterRoutes(v1, authz, rec)

	return &server{router: router, recorder: rec, accounts: accounts, auth: authSvc, reviews: reviews, audit: auditRepo}
}

func (s *server) do(t *testing.T, method, path, token string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

// signup registers a user over HTTP and returns its login payload.
func (s *server) signup(t *testing.T, username string) application.AuthDTO {
	t.Helper()
	w, env := s.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"username":   username,
		"email":      username + "@example.com",
		"password":   "Secret123",
		"first_name": "Test",
		"last_name":  "User",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var res application.AuthDTO
	require.NoError(t, json.Unmarshal(env.Data, &res))
	return res
}

// adminToken creates an admin account and logs it in.
func (s *server) adminToken(t *testing.T) (string, application.AccountDTO) {
	t.Helper()
	acc, err := s.accounts.CreateAdmin(t.Context(), "admin@example.com", "admin", "Secret123", "Site", "Admin")
	require.NoError(t, err)
	res, err := s.auth.Login(t.Context(), application.LoginRequest{Email: "admin@example.com", Password: "Secret123"})
	require.NoError(t, err)
	return res.AccessToken, *acc
}

// auditEntries drains the recorder and returns the stored entries for action.
func (s *server) auditEntries(t *testing.T, action string) []auditDomain.Entry {
	t.Helper()
	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.recorder.Close(ctx))

	entries, _, err := s.audit.List(t.Context(), auditDomain.Filter{Action: action}, 1, 50)
	require.NoError(t, err)
	return entries
}
