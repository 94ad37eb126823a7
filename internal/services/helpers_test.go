package services

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/blogprojesi/backend/internal/db"
	"github.com/blogprojesi/backend/internal/models"
)

const testPassword = "Secret123!"

// newTestDB opens a private in-memory sqlite database with the full schema.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	gdb, err := db.Open(db.Config{
		DatabaseURL: "file:" + name + "?mode=memory&cache=shared",
		LogLevel:    logger.Silent,
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return gdb
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	db    *gorm.DB
	svc   *Services
	clock *testClock
	ctx   context.Context
}

// newFixture wires the services over a fresh database. The ledger, guard
// and audit log share a controllable clock.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	gdb := newTestDB(t)
	svc := NewServices(Deps{
		DB:       gdb,
		Hasher:   NewBcryptHasher(bcrypt.MinCost),
		Location: time.UTC,
	})
	clock := newTestClock()
	svc.Ledger.now = clock.Now
	svc.Guard.now = clock.Now
	svc.Audit.now = clock.Now
	return &fixture{db: gdb, svc: svc, clock: clock, ctx: context.Background()}
}

// systemActor is an admin identity that does not exist as a row.
var systemActor = &models.User{ID: 9999, Username: "root", Role: models.RoleAdmin, Enabled: true}

func (f *fixture) createUser(t *testing.T, username, role string) *models.User {
	t.Helper()
	user, err := f.svc.Users.CreateUser(f.ctx, CreateUserInput{
		RegisterInput: RegisterInput{
			Username: username,
			Email:    username + "@example.com",
			Password: testPassword,
		},
		Role: role,
	}, systemActor, "127.0.0.1")
	require.NoError(t, err)
	return user
}

func (f *fixture) createPost(t *testing.T, author *models.User, title string, published bool) *models.Post {
	t.Helper()
	post, err := f.svc.Posts.Create(f.ctx, author, PostInput{
		Title:     title,
		Content:   "Body of " + title,
		Published: published,
	})
	require.NoError(t, err)
	return post
}

func (f *fixture) auditCount(t *testing.T, action models.AdminActionType) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&models.AdminLog{}).Where("action_type = ?", action).Count(&n).Error)
	return n
}
