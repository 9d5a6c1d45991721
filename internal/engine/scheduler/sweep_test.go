package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vetcare-reminders/internal/common/logger"
)

type fakeSource struct {
	mu       sync.Mutex
	due      []string
	claimed  map[string]bool // false marks ids that lose the claim
	released []string
}

func (f *fakeSource) DueIDs(ctx context.Context, now time.Time, leaseTTL time.Duration, limit int) ([]string, error) {
	if limit < len(f.due) {
		return f.due[:limit], nil
	}
	return f.due, nil
}

func (f *fakeSource) Claim(ctx context.Context, id string, now time.Time, leaseTTL time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	won, ok := f.claimed[id]
	if !ok {
		return true, nil
	}
	return won, nil
}

func (f *fakeSource) Release(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.released = append(f.released, id)
	return nil
}

type recordingDispatcher struct {
	mu  sync.Mutex
	ids []string
}

func (d *recordingDispatcher) Dispatch(ctx context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ids = append(d.ids, id)
	return nil
}

func newTestSweep(t *testing.T, src ReminderSource, disp Dispatcher) *Sweep {
	t.Helper()
	return NewSweep(src, disp, SweepConfig{
		Interval:  time.Minute,
		LeaseTTL:  5 * time.Minute,
		BatchSize: 10,
		Workers:   2,
	}, logger.NewTestLogger(t))
}

func TestRunOnceDispatchesClaimedReminders(t *testing.T) {
	src := &fakeSource{due: []string{"a", "b", "c"}}
	disp := &recordingDispatcher{}
	s := newTestSweep(t, src, disp)

	s.RunOnce(context.Background())

	assert.ElementsMatch(t, []string{"a", "b", "c"}, disp.ids)
}

func TestRunOnceSkipsLostClaims(t *testing.T) {
	src := &fakeSource{
		due:     []string{"a", "b"},
		claimed: map[string]bool{"b": false},
	}
	disp := &recordingDispatcher{}
	s := newTestSweep(t, src, disp)

	s.RunOnce(context.Background())

	assert.Equal(t, []string{"a"}, disp.ids)
}

func TestRunOnceHonorsBatchLimit(t *testing.T) {
	src := &fakeSource{due: []string{"a", "b", "c", "d"}}
	disp := &recordingDispatcher{}
	s := NewSweep(src, disp, SweepConfig{
		Interval:  time.Minute,
		LeaseTTL:  5 * time.Minute,
		BatchSize: 2,
		Workers:   2,
	}, logger.NewTestLogger(t))

	s.RunOnce(context.Background())

	assert.Len(t, disp.ids, 2)
}

func TestRunOnceReleasesUnstartedClaimsOnCancel(t *testing.T) {
	src := &fakeSource{due: []string{"a", "b", "c"}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	disp := &recordingDispatcher{}
	s := newTestSweep(t, src, disp)

	s.RunOnce(ctx)

	// Every claim was handed back; nothing was dispatched.
	require.Empty(t, disp.ids)
	assert.ElementsMatch(t, []string{"a", "b", "c"}, src.released)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	src := &fakeSource{}
	s := NewSweep(src, &recordingDispatcher{}, SweepConfig{
		Interval:  time.Millisecond,
		LeaseTTL:  time.Minute,
		BatchSize: 1,
		Workers:   1,
	}, logger.NewTestLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweep did not stop after cancel")
	}
}
