package reaper

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedSweeper struct {
	mu     sync.Mutex
	calls  int
	errs   []error
	stopAt int
	cancel context.CancelFunc
}

func (s *scriptedSweeper) FailStale(context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.calls >= s.stopAt {
		s.cancel()
	}
	if i := s.calls - 1; i < len(s.errs) {
		return nil, s.errs[i]
	}
	return []string{"job-" + string(rune('a'+s.calls))}, nil
}

func TestRunner_SweepsImmediatelyThenOnTick(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sw := &scriptedSweeper{stopAt: 3, cancel: cancel, errs: []error{errors.New("db down")}}

	r, err := NewRunner(RunnerOptions{
		Sweeper:  sw,
		Interval: 5 * time.Millisecond,
		Logger:   slog.New(slog.DiscardHandler),
		NoJitter: true,
	})
	require.NoError(t, err)

	require.NoError(t, r.Run(ctx))
	assert.Equal(t, 3, sw.calls, "a failed sweep does not stop the loop")
}

func TestRunner_CancelledDuringJitter(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sw := &scriptedSweeper{stopAt: 1, cancel: func() {}}

	r, err := NewRunner(RunnerOptions{Sweeper: sw, Interval: time.Hour})
	require.NoError(t, err)
	require.NoError(t, r.Run(ctx))
	assert.Zero(t, sw.calls)
}

func TestNewRunner(t *testing.T) {
	_, err := NewRunner(RunnerOptions{})
	require.Error(t, err)

	r, err := NewRunner(RunnerOptions{Sweeper: &scriptedSweeper{}})
	require.NoError(t, err)
	assert.Equal(t, defaultInterval, r.interval)
	assert.True(t, r.jitter)
}
