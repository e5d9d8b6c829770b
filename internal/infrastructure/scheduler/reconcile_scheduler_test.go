package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appfulfillment "github.com/dropship/backend/internal/application/fulfillment"
)

// stubRunner is a controllable ReconcileRunner
type stubRunner struct {
	calls   atomic.Int32
	block   chan struct{} // When set, CheckOrderUpdates waits until closed
	failErr error
}

func (r *stubRunner) CheckOrderUpdates(ctx context.Context) (*appfulfillment.ReconcileResult, error) {
	r.calls.Add(1)
	if r.block != nil {
		select {
		case <-r.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if r.failErr != nil {
		return nil, r.failErr
	}
	return &appfulfillment.ReconcileResult{StartedAt: time.Now()}, nil
}

func TestReconcileScheduler_StartStop(t *testing.T) {
	runner := &stubRunner{}
	s := NewReconcileScheduler(runner, zap.NewNop(), ReconcileSchedulerConfig{
		Enabled:       true,
		SweepInterval: 10 * time.Millisecond,
		SweepTimeout:  time.Second,
		HistorySize:   5,
	})

	require.NoError(t, s.Start(context.Background()))

	assert.Eventually(t, func() bool {
		return runner.calls.Load() >= 2
	}, time.Second, 5*time.Millisecond)

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(stopCtx))

	calls := runner.calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, calls, runner.calls.Load(), "no sweeps after stop")
}

func TestReconcileScheduler_Disabled(t *testing.T) {
	runner := &stubRunner{}
	s := NewReconcileScheduler(runner, zap.NewNop(), ReconcileSchedulerConfig{
		Enabled:       false,
		SweepInterval: 5 * time.Millisecond,
	})

	require.NoError(t, s.Start(context.Background()))
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(0), runner.calls.Load())
}

func TestReconcileScheduler_RunNow(t *testing.T) {
	t.Run("returns the sweep result", func(t *testing.T) {
		runner := &stubRunner{}
		s := NewReconcileScheduler(runner, zap.NewNop(), DefaultReconcileSchedulerConfig())

		result, err := s.RunNow(context.Background())
		require.NoError(t, err)
		assert.NotNil(t, result)
		assert.Len(t, s.History(), 1)
	})

	t.Run("rejects an overlapping sweep", func(t *testing.T) {
		block := make(chan struct{})
		runner := &stubRunner{block: block}
		s := NewReconcileScheduler(runner, zap.NewNop(), DefaultReconcileSchedulerConfig())

		done := make(chan error, 1)
		go func() {
			_, err := s.RunNow(context.Background())
			done <- err
		}()

		assert.Eventually(t, func() bool {
			return runner.calls.Load() == 1
		}, time.Second, time.Millisecond)

		_, err := s.RunNow(context.Background())
		assert.ErrorIs(t, err, ErrSweepInProgress)

		close(block)
		require.NoError(t, <-done)
	})

	t.Run("propagates sweep failure without recording history", func(t *testing.T) {
		runner := &stubRunner{failErr: errors.New("database down")}
		s := NewReconcileScheduler(runner, zap.NewNop(), DefaultReconcileSchedulerConfig())

		_, err := s.RunNow(context.Background())
		require.Error(t, err)
		assert.Empty(t, s.History())
	})
}

func TestReconcileScheduler_HistoryBounded(t *testing.T) {
	runner := &stubRunner{}
	s := NewReconcileScheduler(runner, zap.NewNop(), ReconcileSchedulerConfig{
		Enabled:     true,
		HistorySize: 3,
	})

	for i := 0; i < 5; i++ {
		_, err := s.RunNow(context.Background())
		require.NoError(t, err)
	}

	assert.Len(t, s.History(), 3)
}
