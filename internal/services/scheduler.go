package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/blogprojesi/backend/internal/safego"
	"github.com/blogprojesi/backend/internal/telemetry"
	"github.com/blogprojesi/backend/internal/utils"
)

// DailyTask runs once a day at Hour:Minute in the scheduler's location.
type DailyTask struct {
	Name   string
	Hour   int
	Minute int
	Run    func(ctx context.Context) error
}

// Scheduler owns the process-wide background tasks. Each task gets its own
// goroutine that sleeps until the next local run time. The mutex guards only
// the lifecycle fields; request paths never touch it.
type Scheduler struct {
	loc   *time.Location
	tasks []DailyTask
	now   func() time.Time

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

func NewScheduler(loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{loc: loc, now: time.Now}
}

// Add registers a task. Tasks added after Start wait for the next Start.
func (s *Scheduler) Add(task DailyTask) error {
	if task.Name == "" || task.Run == nil {
		return invalid("task needs a name and a run function")
	}
	if task.Hour < 0 || task.Hour > 23 || task.Minute < 0 || task.Minute > 59 {
		return invalid("task %s has an invalid time %02d:%02d", task.Name, task.Hour, task.Minute)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = append(s.tasks, task)
	return nil
}

// Start launches every registered task. Calling it twice is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.running = true

	for _, task := range s.tasks {
		task := task
		s.wg.Add(1)
		safego.Go("scheduler:"+task.Name, func() {
			defer s.wg.Done()
			s.loop(ctx, task)
		})
	}
	slog.Info("scheduler started", "tasks", len(s.tasks), "timezone", s.loc.String())
}

// Stop cancels every task loop and waits for running tasks to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.cancel()
	s.running = false
	s.mu.Unlock()

	s.wg.Wait()
	slog.Info("scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context, task DailyTask) {
	for {
		now := s.now()
		next := utils.NextDailyRun(now, s.loc, task.Hour, task.Minute)
		slog.Debug("task scheduled", "task", task.Name, "next_run", next)

		timer := time.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			s.execute(ctx, task)
		}
	}
}

// RunNow executes the named task immediately on the calling goroutine.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	s.mu.Lock()
	var found *DailyTask
	for i := range s.tasks {
		if s.tasks[i].Name == name {
			found = &s.tasks[i]
			break
		}
	}
	s.mu.Unlock()
	if found == nil {
		return notFound("task %s not registered", name)
	}
	return s.execute(ctx, *found)
}

func (s *Scheduler) execute(ctx context.Context, task DailyTask) (err error) {
	started := s.now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task %s panicked: %v", task.Name, r)
		}
		result := "success"
		if err != nil {
			result = "error"
			slog.Error("scheduled task failed", "task", task.Name, "error", err)
		} else {
			slog.Info("scheduled task finished", "task", task.Name, "duration", s.now().Sub(started))
		}
		telemetry.SchedulerTaskRunsTotal.WithLabelValues(task.Name, result).Inc()
	}()
	return task.Run(ctx)
}
