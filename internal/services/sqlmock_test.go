package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newMockDB returns a Postgres-dialect gorm handle over sqlmock.
func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return gdb, mock
}

func TestAttemptLedger_CountErrorPropagates(t *testing.T) {
	gdb, mock := newMockDB(t)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "login_attempts"`)).
		WillReturnError(errors.New("connection reset"))

	_, err := NewAttemptLedger(gdb).CountRecentFailures(context.Background(), "alice", time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "count failures for alice")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoginGuard_CountErrorIsReturned(t *testing.T) {
	gdb, mock := newMockDB(t)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM "system_settings"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "setting_key", "setting_value"}))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "login_attempts"`)).
		WillReturnError(errors.New("connection reset"))

	guard := NewLoginGuard(NewAttemptLedger(gdb), NewSettingsService(gdb, nil), 0)
	blocked, err := guard.IsBlocked(context.Background(), "alice")
	require.Error(t, err)
	assert.False(t, blocked)
}

func TestIsDuplicate(t *testing.T) {
	assert.True(t, isDuplicate(gorm.ErrDuplicatedKey))
	assert.True(t, isDuplicate(fmt.Errorf("create user: %w", &pgconn.PgError{Code: "23505"})))
	assert.False(t, isDuplicate(&pgconn.PgError{Code: "23503"}))
	assert.False(t, isDuplicate(errors.New("boom")))
}

func TestMessageStripsClass(t *testing.T) {
	assert.Equal(t, "post 3 not found", Message(notFound("post %d not found", 3)))
	assert.Equal(t, "boom", Message(errors.New("boom")))
	assert.Equal(t, ErrForbidden.Error(), Message(ErrForbidden))
}
