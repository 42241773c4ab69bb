package background

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Task is a named periodic cleanup job. Run reports how many items it removed.
type Task struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) (int64, error)
}

// CleanupManager runs each task on its own ticker until stopped
type CleanupManager struct {
	tasks   []Task
	logger  *slog.Logger
	timeout time.Duration
	stopCh  chan struct{}
	once    sync.Once
	wg      sync.WaitGroup
}

// NewCleanupManager creates a new cleanup manager
func NewCleanupManager(logger *slog.Logger, tasks ...Task) *CleanupManager {
	return &CleanupManager{
		tasks:   tasks,
		logger:  logger,
		timeout: 30 * time.Second,
		stopCh:  make(chan struct{}),
	}
}

// Start launches every task and returns immediately
func (cm *CleanupManager) Start(ctx context.Context) {
	for _, task := range cm.tasks {
		if task.Interval <= 0 {
			cm.logger.Warn("cleanup task disabled", slog.String("task", task.Name))
			continue
		}
		cm.wg.Add(1)
		go cm.loop(ctx, task)
	}
}

func (cm *CleanupManager) loop(ctx context.Context, task Task) {
	defer cm.wg.Done()

	ticker := time.NewTicker(task.Interval)
	defer ticker.Stop()

	// Run immediately on startup
	cm.runTask(ctx, task)

	for {
		select {
		case <-ticker.C:
			cm.runTask(ctx, task)
		case <-cm.stopCh:
			cm.logger.Debug("cleanup task stopped", slog.String("task", task.Name))
			return
		case <-ctx.Done():
			cm.logger.Debug("cleanup task context cancelled", slog.String("task", task.Name))
			return
		}
	}
}

func (cm *CleanupManager) runTask(ctx context.Context, task Task) {
	taskCtx, cancel := context.WithTimeout(ctx, cm.timeout)
	defer cancel()

	removed, err := task.Run(taskCtx)
	if err != nil {
		cm.logger.Error("cleanup task failed", slog.String("task", task.Name), slog.Any("error", err))
		return
	}

	if removed > 0 {
		cm.logger.Info("cleanup task completed", slog.String("task", task.Name), slog.Int64("removed", removed))
	}
}

// Stop signals every task to stop and waits for in-flight runs to finish
func (cm *CleanupManager) Stop() {
	cm.once.Do(func() { close(cm.stopCh) })
	cm.wg.Wait()
	cm.logger.Info("cleanup manager stopped")
}

// Sweeper is satisfied by the rate limiters and the brute-force guard
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// SweepTask adapts an in-memory sweeper to a Task
func SweepTask(name string, interval time.Duration, s Sweeper) Task {
	return Task{
		Name:     name,
		Interval: interval,
		Run: func(ctx context.Context) (int64, error) {
			n, err := s.Sweep(ctx)
			return int64(n), err
		},
	}
}
