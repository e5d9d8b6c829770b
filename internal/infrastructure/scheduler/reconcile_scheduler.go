package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	appfulfillment "github.com/dropship/backend/internal/application/fulfillment"
)

// ReconcileRunner is the sweep operation the scheduler drives
type ReconcileRunner interface {
	CheckOrderUpdates(ctx context.Context) (*appfulfillment.ReconcileResult, error)
}

// ReconcileScheduler runs the supplier order reconciliation sweep on a fixed
// interval. One sweep runs at a time: the ticker loop is sequential and a
// manual trigger that overlaps a running sweep is rejected.
type ReconcileScheduler struct {
	service   ReconcileRunner
	logger    *zap.Logger
	config    ReconcileSchedulerConfig
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
	sweeping  bool
	history   []appfulfillment.ReconcileResult
}

// ReconcileSchedulerConfig holds configuration for the reconcile scheduler
type ReconcileSchedulerConfig struct {
	// Enabled determines if the scheduler is active
	Enabled bool

	// SweepInterval is how often the full reconciliation sweep runs
	SweepInterval time.Duration

	// SweepTimeout is the maximum time for one sweep
	SweepTimeout time.Duration

	// HistorySize bounds how many past sweep results are retained
	HistorySize int
}

// DefaultReconcileSchedulerConfig returns default configuration
func DefaultReconcileSchedulerConfig() ReconcileSchedulerConfig {
	return ReconcileSchedulerConfig{
		Enabled:       true,
		SweepInterval: 30 * time.Minute,
		SweepTimeout:  15 * time.Minute,
		HistorySize:   50,
	}
}

// NewReconcileScheduler creates a new reconcile scheduler
func NewReconcileScheduler(
	service ReconcileRunner,
	logger *zap.Logger,
	config ReconcileSchedulerConfig,
) *ReconcileScheduler {
	if config.HistorySize <= 0 {
		config.HistorySize = DefaultReconcileSchedulerConfig().HistorySize
	}
	return &ReconcileScheduler{
		service: service,
		logger:  logger,
		config:  config,
	}
}

// Start starts the periodic sweep loop
func (s *ReconcileScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	if !s.config.Enabled {
		s.mu.Unlock()
		s.logger.Info("Reconcile scheduler is disabled")
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.runSweepLoop(ctx)

	s.logger.Info("Reconcile scheduler started",
		zap.Duration("sweep_interval", s.config.SweepInterval),
		zap.Duration("sweep_timeout", s.config.SweepTimeout),
	)

	return nil
}

// Stop gracefully stops the scheduler
func (s *ReconcileScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Reconcile scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Reconcile scheduler stop timed out")
		return ctx.Err()
	}
}

// RunNow triggers one sweep outside the schedule. Returns ErrSweepInProgress
// when a sweep is already running.
func (s *ReconcileScheduler) RunNow(ctx context.Context) (*appfulfillment.ReconcileResult, error) {
	return s.sweep(ctx)
}

// History returns the retained sweep results, newest last
func (s *ReconcileScheduler) History() []appfulfillment.ReconcileResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]appfulfillment.ReconcileResult, len(s.history))
	copy(out, s.history)
	return out
}

// runSweepLoop runs sweeps on the configured interval until ctx is done
func (s *ReconcileScheduler) runSweepLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.sweep(ctx); err != nil {
				s.logger.Error("Scheduled reconciliation sweep failed", zap.Error(err))
			}
		}
	}
}

// sweep runs one reconciliation pass under the sweep timeout and records
// the result in the bounded history
func (s *ReconcileScheduler) sweep(ctx context.Context) (*appfulfillment.ReconcileResult, error) {
	s.mu.Lock()
	if s.sweeping {
		s.mu.Unlock()
		return nil, ErrSweepInProgress
	}
	s.sweeping = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.sweeping = false
		s.mu.Unlock()
	}()

	if s.config.SweepTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.SweepTimeout)
		defer cancel()
	}

	result, err := s.service.CheckOrderUpdates(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.history = append(s.history, *result)
	if len(s.history) > s.config.HistorySize {
		s.history = s.history[len(s.history)-s.config.HistorySize:]
	}
	s.mu.Unlock()

	return result, nil
}
