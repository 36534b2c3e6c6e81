package scheduler_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alejandrodnm/polytipster/internal/scheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type counter struct {
	calls int
	err   error
}

func (c *counter) job(name string, interval time.Duration) scheduler.Job {
	return scheduler.Job{Name: name, Interval: interval, Run: func(context.Context) error {
		c.calls++
		return c.err
	}}
}

func TestNew_Validation(t *testing.T) {
	_, err := scheduler.New()
	assert.Error(t, err)

	_, err = scheduler.New(scheduler.Job{Name: "bad", Interval: 0, Run: func(context.Context) error { return nil }})
	assert.Error(t, err)

	_, err = scheduler.New(scheduler.Job{Name: "nil", Interval: time.Second})
	assert.Error(t, err)
}

func TestScheduler_TickIsSmallestInterval(t *testing.T) {
	var a, b counter
	s, err := scheduler.New(a.job("refresh", 6*time.Hour), b.job("poll", time.Minute))
	require.NoError(t, err)
	assert.Equal(t, time.Minute, s.TickInterval())
}

func TestScheduler_IndependentTimers(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	var scan, refresh, poll counter
	s, err := scheduler.New(
		scan.job("scanner", 6*time.Hour),
		refresh.job("refresh", 6*time.Hour),
		poll.job("poll", time.Minute),
	)
	require.NoError(t, err)
	s.WithClock(clock.Now)
	ctx := context.Background()

	// todos vencidos al arrancar
	assert.Equal(t, 3, s.Tick(ctx))

	clock.Advance(time.Minute)
	assert.Equal(t, 1, s.Tick(ctx))

	clock.Advance(30 * time.Second)
	assert.Equal(t, 0, s.Tick(ctx))

	clock.Advance(6 * time.Hour)
	assert.Equal(t, 3, s.Tick(ctx))

	assert.Equal(t, 2, scan.calls)
	assert.Equal(t, 2, refresh.calls)
	assert.Equal(t, 3, poll.calls)
}

func TestScheduler_FailedJobStaysDue(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	refresh := counter{err: errors.New("api down")}
	var poll counter
	s, err := scheduler.New(refresh.job("refresh", 6*time.Hour), poll.job("poll", time.Minute))
	require.NoError(t, err)
	s.WithClock(clock.Now)
	ctx := context.Background()

	s.Tick(ctx)
	clock.Advance(time.Minute)
	s.Tick(ctx)

	assert.Equal(t, 2, refresh.calls, "se reintenta en el siguiente tick")
	assert.Equal(t, 2, poll.calls, "los demás jobs siguen corriendo")

	refresh.err = nil
	clock.Advance(time.Minute)
	s.Tick(ctx)
	clock.Advance(time.Minute)
	s.Tick(ctx)
	assert.Equal(t, 3, refresh.calls)

	status := s.Status()
	require.Len(t, status, 2)
	assert.Equal(t, "refresh", status[0].Name)
	assert.Equal(t, 2, status[0].Failures)
	assert.Empty(t, status[0].LastError)
}

func TestScheduler_PanicIsRecovered(t *testing.T) {
	var poll counter
	s, err := scheduler.New(
		scheduler.Job{Name: "boom", Interval: time.Minute, Run: func(context.Context) error { panic("kaboom") }},
		poll.job("poll", time.Minute),
	)
	require.NoError(t, err)

	assert.NotPanics(t, func() { s.Tick(context.Background()) })
	assert.Equal(t, 1, poll.calls)

	status := s.Status()
	assert.Contains(t, status[0].LastError, "kaboom")
}

func TestScheduler_JobContextHasDeadline(t *testing.T) {
	var hasDeadline bool
	s, err := scheduler.New(scheduler.Job{Name: "j", Interval: time.Minute, Run: func(ctx context.Context) error {
		_, hasDeadline = ctx.Deadline()
		return nil
	}})
	require.NoError(t, err)

	s.Tick(context.Background())
	assert.True(t, hasDeadline)
}

func TestScheduler_Heartbeat(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	var poll counter
	s, err := scheduler.New(poll.job("poll", time.Minute))
	require.NoError(t, err)
	s.WithClock(clock.Now)

	assert.False(t, s.Alive(5*time.Minute), "sin ticks todavía")

	s.Tick(context.Background())
	assert.True(t, s.Alive(5*time.Minute))

	clock.Advance(10 * time.Minute)
	assert.False(t, s.Alive(5*time.Minute))
}

func TestScheduler_RunStopsOnCancel(t *testing.T) {
	var poll counter
	s, err := scheduler.New(poll.job("poll", time.Hour))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return s.Status()[0].Runs == 1 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}
	assert.Equal(t, 1, poll.calls)
	assert.False(t, s.LastHeartbeat().IsZero())
}
