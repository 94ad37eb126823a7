package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler_AddValidates(t *testing.T) {
	s := NewScheduler(nil)
	noop := func(context.Context) error { return nil }

	assert.ErrorIs(t, s.Add(DailyTask{Run: noop}), ErrValidation)
	assert.ErrorIs(t, s.Add(DailyTask{Name: "x"}), ErrValidation)
	assert.ErrorIs(t, s.Add(DailyTask{Name: "x", Hour: 24, Run: noop}), ErrValidation)
	assert.ErrorIs(t, s.Add(DailyTask{Name: "x", Minute: -1, Run: noop}), ErrValidation)
	assert.NoError(t, s.Add(DailyTask{Name: "x", Hour: 23, Minute: 59, Run: noop}))
}

func TestScheduler_RunNow(t *testing.T) {
	s := NewScheduler(time.UTC)
	var runs int32
	require.NoError(t, s.Add(DailyTask{Name: "count", Run: func(context.Context) error {
		atomic.AddInt32(&runs, 1)
		return nil
	}}))
	boom := errors.New("boom")
	require.NoError(t, s.Add(DailyTask{Name: "fail", Run: func(context.Context) error { return boom }}))
	require.NoError(t, s.Add(DailyTask{Name: "panic", Run: func(context.Context) error { panic("bad task") }}))

	ctx := context.Background()
	require.NoError(t, s.RunNow(ctx, "count"))
	assert.Equal(t, int32(1), atomic.LoadInt32(&runs))

	assert.ErrorIs(t, s.RunNow(ctx, "fail"), boom)
	err := s.RunNow(ctx, "panic")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad task")

	assert.ErrorIs(t, s.RunNow(ctx, "missing"), ErrNotFound)
}

func TestScheduler_StartStop(t *testing.T) {
	s := NewScheduler(time.UTC)
	require.NoError(t, s.Add(DailyTask{Name: "idle", Hour: 3, Run: func(context.Context) error { return nil }}))

	s.Start(context.Background())
	s.Start(context.Background())

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
	s.Stop()
}

func TestScheduler_FiresAtNextRun(t *testing.T) {
	s := NewScheduler(time.UTC)
	// Ten milliseconds before 03:00.
	s.now = func() time.Time { return time.Date(2026, 3, 10, 2, 59, 59, 990_000_000, time.UTC) }

	fired := make(chan struct{}, 1)
	require.NoError(t, s.Add(DailyTask{Name: "tick", Hour: 3, Run: func(context.Context) error {
		select {
		case fired <- struct{}{}:
		default:
		}
		return nil
	}}))

	s.Start(context.Background())
	defer s.Stop()

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("task did not fire")
	}
}
