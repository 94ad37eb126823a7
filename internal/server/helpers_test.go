package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/blogprojesi/backend/internal/config"
	"github.com/blogprojesi/backend/internal/db"
	"github.com/blogprojesi/backend/internal/models"
	"github.com/blogprojesi/backend/internal/services"
)

const testPassword = "Secret123!"

type testEnv struct {
	e   *echo.Echo
	db  *gorm.DB
	svc *services.Services
	srv *Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dsn := "file:srv_" + strings.NewReplacer("/", "_", " ", "_").Replace(t.Name()) + "?mode=memory&cache=shared"
	gdb, err := db.Open(db.Config{DatabaseURL: dsn, LogLevel: logger.Silent})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	svc := services.NewServices(services.Deps{
		DB:       gdb,
		Hasher:   services.NewBcryptHasher(bcrypt.MinCost),
		Location: time.UTC,
	})
	require.NoError(t, services.Bootstrap(context.Background(), svc, services.BootstrapAdmin{
		Username: "admin",
		Password: testPassword,
	}))

	e := echo.New()
	cfg := config.AppConfig{
		DatabaseURL:        dsn,
		JWTSecret:          "test-secret",
		JWTExpiry:          time.Hour,
		RateLimitPerSecond: 1000,
	}
	srv := New(e, gdb, cfg, svc)
	return &testEnv{e: e, db: gdb, svc: svc, srv: srv}
}

func (env *testEnv) createUser(t *testing.T, username, role string) *models.User {
	t.Helper()
	actor := &models.User{Username: services.SystemActor, Role: models.RoleAdmin, Enabled: true}
	user, err := env.svc.Users.CreateUser(context.Background(), services.CreateUserInput{
		RegisterInput: services.RegisterInput{Username: username, Email: username + "@example.com", Password: testPassword},
		Role:          role,
	}, actor, "")
	require.NoError(t, err)
	return user
}

type requestOption func(*http.Request)

func withCookie(c *http.Cookie) requestOption {
	return func(r *http.Request) { r.AddCookie(c) }
}

func withHeader(key, value string) requestOption {
	return func(r *http.Request) { r.Header.Set(key, value) }
}

func (env *testEnv) do(req *http.Request, opts ...requestOption) *httptest.ResponseRecorder {
	for _, opt := range opts {
		opt(req)
	}
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

func (env *testEnv) postForm(path string, form url.Values, opts ...requestOption) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	return env.do(req, opts...)
}

func (env *testEnv) sendJSON(method, path string, body any, opts ...requestOption) *httptest.ResponseRecorder {
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(method, path, strings.NewReader(string(raw)))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return env.do(req, opts...)
}

func (env *testEnv) get(path string, opts ...requestOption) *httptest.ResponseRecorder {
	return env.do(httptest.NewRequest(http.MethodGet, path, nil), opts...)
}

func credentials(username, password string) url.Values {
	return url.Values{"username": {username}, "password": {password}}
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("cookie %s not set", name)
	return nil
}

// login performs a successful login on p and returns the session cookie.
func (env *testEnv) login(t *testing.T, p LoginPipeline, username string) *http.Cookie {
	t.Helper()
	rec := env.postForm(p.LoginPath, credentials(username, testPassword))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, p.SuccessPath, rec.Header().Get(echo.HeaderLocation))
	return sessionCookie(t, rec, p.CookieName)
}

func (env *testEnv) attempts(t *testing.T) []models.LoginAttempt {
	t.Helper()
	var rows []models.LoginAttempt
	require.NoError(t, env.db.Order("id").Find(&rows).Error)
	return rows
}

func (env *testEnv) auditCount(t *testing.T, action models.AdminActionType) int64 {
	t.Helper()
	var n int64
	require.NoError(t, env.db.Model(&models.AdminLog{}).Where("action_type = ?", action).Count(&n).Error)
	return n
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	out := map[string]any{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func newRequest(method, path string) *http.Request {
	return httptest.NewRequest(method, path, nil)
}
