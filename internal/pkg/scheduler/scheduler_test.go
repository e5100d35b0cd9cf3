package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler_StartStop(t *testing.T) {
	var runs atomic.Int32
	s := New("test", 10*time.Millisecond, func(context.Context) error {
		runs.Add(1)
		return nil
	})

	assert.False(t, s.IsRunning())
	s.Start()
	s.Start()
	assert.True(t, s.IsRunning())

	require.Eventually(t, func() bool { return runs.Load() >= 2 }, time.Second, 5*time.Millisecond)

	s.Stop()
	s.Stop()
	assert.False(t, s.IsRunning())

	after := runs.Load()
	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, after, runs.Load(), "no runs after Stop")

	// restartable
	s.Start()
	require.Eventually(t, func() bool { return runs.Load() > after }, time.Second, 5*time.Millisecond)
	s.Stop()
}

func TestScheduler_SkipsOverlappingTicks(t *testing.T) {
	release := make(chan struct{})
	var runs atomic.Int32
	s := New("slow", 5*time.Millisecond, func(ctx context.Context) error {
		runs.Add(1)
		select {
		case <-release:
		case <-ctx.Done():
		}
		return nil
	})

	s.Start()
	require.Eventually(t, func() bool { return s.Skipped() >= 2 }, time.Second, 5*time.Millisecond)
	assert.EqualValues(t, 1, runs.Load())
	close(release)
	s.Stop()
}

func TestScheduler_SurvivesErrorsAndPanics(t *testing.T) {
	var runs atomic.Int32
	s := New("flaky", 5*time.Millisecond, func(context.Context) error {
		n := runs.Add(1)
		if n%2 == 0 {
			panic("boom")
		}
		return errors.New("db down")
	})

	s.Start()
	require.Eventually(t, func() bool { return runs.Load() >= 4 }, time.Second, 5*time.Millisecond)
	s.Stop()
}

func TestScheduler_RunOnceRecovers(t *testing.T) {
	s := New("manual", 0, func(context.Context) error { panic("kaboom") })
	err := s.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kaboom")
	assert.Equal(t, time.Minute, s.interval)
}

func TestScheduler_StopCancelsRun(t *testing.T) {
	started := make(chan struct{}, 1)
	var cancelled atomic.Bool
	s := New("cancel", 5*time.Millisecond, func(ctx context.Context) error {
		select {
		case started <- struct{}{}:
		default:
		}
		<-ctx.Done()
		cancelled.Store(true)
		return ctx.Err()
	})

	s.Start()
	<-started
	s.Stop()
	assert.True(t, cancelled.Load())
}
