// Package scheduler runs the engine's named background tasks on fixed
// intervals and hosts the world sweep that drives virtual time forward.
package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Task is one unit of periodic background work. The context is cancelled
// when the scheduler stops.
type Task func(ctx context.Context)

// Scheduler owns a registry of named ticker tasks. Registering a name twice
// replaces the earlier task.
type Scheduler struct {
	mu      sync.Mutex
	tickers map[string]*tickerEntry
	logger  *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
}

type tickerEntry struct {
	ticker *time.Ticker
	stopCh chan struct{}
}

// New creates a Scheduler.
func New(logger *zap.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		tickers: make(map[string]*tickerEntry),
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// AddTicker registers a task to run every interval until removed or the
// scheduler stops. A panicking task is logged and the ticker keeps running.
func (s *Scheduler) AddTicker(name string, interval time.Duration, task Task) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.tickers[name]; ok {
		close(old.stopCh)
		delete(s.tickers, name)
	}

	entry := &tickerEntry{
		ticker: time.NewTicker(interval),
		stopCh: make(chan struct{}),
	}
	s.tickers[name] = entry

	go func() {
		for {
			select {
			case <-entry.ticker.C:
				s.runTask(name, task)
			case <-entry.stopCh:
				entry.ticker.Stop()
				return
			case <-s.ctx.Done():
				entry.ticker.Stop()
				return
			}
		}
	}()
	s.logger.Info("background task registered",
		zap.String("name", name), zap.Duration("interval", interval))
}

func (s *Scheduler) runTask(name string, task Task) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("background task panicked",
				zap.String("task", name), zap.Any("recover", r))
		}
	}()
	task(s.ctx)
}

// Remove stops and unregisters a ticker task by name.
func (s *Scheduler) Remove(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.tickers[name]; ok {
		close(entry.stopCh)
		delete(s.tickers, name)
	}
}

// Stop cancels every task. The scheduler cannot be restarted.
func (s *Scheduler) Stop() {
	s.cancel()
}

// ListTickers returns the names of the registered ticker tasks.
func (s *Scheduler) ListTickers() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.tickers))
	for name := range s.tickers {
		names = append(names, name)
	}
	return names
}
