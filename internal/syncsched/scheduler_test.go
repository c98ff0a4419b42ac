package syncsched

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/naughtyden-us/naughty-den/pkg/timeutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func immediate(time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	ch <- time.Now()
	return ch
}

func TestNewRejectsBadCron(t *testing.T) {
	_, err := New("every tuesday", func(context.Context) error { return nil }, nil)
	assert.Error(t, err)
}

func TestLoopRunsJobAndStops(t *testing.T) {
	var runs atomic.Int32
	fired := make(chan struct{}, 16)
	s, err := New("*/15 * * * *", func(context.Context) error {
		runs.Add(1)
		select {
		case fired <- struct{}{}:
		default:
		}
		return nil
	}, nil)
	require.NoError(t, err)
	s.after = immediate

	s.Start(context.Background())
	s.Start(context.Background()) // second start is a no-op
	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("job never fired")
	}
	s.Stop()
	s.Stop()
	assert.GreaterOrEqual(t, runs.Load(), int32(1))
}

func TestRunImmediateReportsJobError(t *testing.T) {
	s, err := New("* * * * *", func(context.Context) error { return errors.New("flush failed") }, nil)
	require.NoError(t, err)
	assert.EqualError(t, s.RunImmediate(context.Background()), "flush failed")
}

func TestRunImmediateSkipsOverlap(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	s, err := New("* * * * *", func(context.Context) error {
		close(started)
		<-release
		return nil
	}, nil)
	require.NoError(t, err)

	errc := make(chan error, 1)
	go func() { errc <- s.RunImmediate(context.Background()) }()
	<-started
	assert.ErrorIs(t, s.RunImmediate(context.Background()), ErrAlreadyRunning)
	close(release)
	assert.NoError(t, <-errc)
}

func TestFileLease(t *testing.T) {
	dir := t.TempDir()
	a, b := NewFileLease(dir), NewFileLease(dir)

	ok, err := a.Acquire("a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = b.Acquire("b", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.ErrorIs(t, b.Release("b"), ErrNotOwner)

	restore := timeutil.SetClock(timeutil.Fixed(time.Now().Add(2 * time.Minute)))
	ok, err = b.Acquire("b", time.Minute)
	restore()
	require.NoError(t, err)
	assert.True(t, ok, "expired lease is taken over")
	require.NoError(t, b.Release("b"))
}

func TestLeaseSkipsRunWhenHeld(t *testing.T) {
	dir := t.TempDir()
	holder := NewFileLease(dir)
	ok, err := holder.Acquire("other", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	var runs atomic.Int32
	s, err := New("* * * * *", func(context.Context) error { runs.Add(1); return nil }, NewFileLease(dir))
	require.NoError(t, err)
	require.NoError(t, s.RunImmediate(context.Background()))
	assert.Zero(t, runs.Load())
}
