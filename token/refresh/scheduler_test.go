package refresh_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/jrsteele09/carebook-portal/token/refresh"
	"github.com/stretchr/testify/require"
)

func TestScheduler_DelayFromLeadTime(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := refresh.NewScheduler(refresh.WithNowFunc(func() time.Time { return now }))
	defer s.Cancel()

	delay := s.Schedule(now.Add(time.Hour), func() {})
	require.Equal(t, 55*time.Minute, delay)
	require.True(t, s.Pending())
	require.Equal(t, 5*time.Minute, s.LeadTime())
}

func TestScheduler_ScheduleAtIgnoresLeadTime(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := refresh.NewScheduler(refresh.WithNowFunc(func() time.Time { return now }))
	defer s.Cancel()

	require.Equal(t, 4*time.Minute, s.ScheduleAt(now.Add(4*time.Minute), func() {}))
	require.True(t, s.Pending())
	require.Zero(t, s.ScheduleAt(now.Add(-time.Second), func() {}))
}

func TestScheduler_FiresImmediatelyInsideLeadWindow(t *testing.T) {
	now := time.Now()
	s := refresh.NewScheduler(refresh.WithNowFunc(func() time.Time { return now }))

	fired := make(chan struct{})
	delay := s.Schedule(now.Add(4*time.Minute), func() { close(fired) })
	require.Zero(t, delay)

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("refresh inside the lead window did not fire immediately")
	}
	require.Eventually(t, func() bool { return !s.Pending() }, time.Second, 5*time.Millisecond)
}

func TestScheduler_FiresAfterExpiredInstant(t *testing.T) {
	s := refresh.NewScheduler()
	fired := make(chan struct{})
	s.Schedule(time.Now().Add(-time.Hour), func() { close(fired) })

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("expired instant did not fire")
	}
}

func TestScheduler_RescheduleReplacesPendingTimer(t *testing.T) {
	s := refresh.NewScheduler(refresh.WithLeadTime(0))
	defer s.Cancel()

	var first, second atomic.Int32
	s.Schedule(time.Now().Add(50*time.Millisecond), func() { first.Add(1) })
	s.Schedule(time.Now().Add(100*time.Millisecond), func() { second.Add(1) })

	require.Eventually(t, func() bool { return second.Load() == 1 }, 2*time.Second, 5*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	require.Zero(t, first.Load(), "replaced timer must never fire")
	require.Equal(t, int32(1), second.Load())
}

func TestScheduler_Cancel(t *testing.T) {
	s := refresh.NewScheduler(refresh.WithLeadTime(0))

	var fired atomic.Bool
	s.Schedule(time.Now().Add(30*time.Millisecond), func() { fired.Store(true) })
	s.Cancel()
	s.Cancel()
	require.False(t, s.Pending())

	time.Sleep(100 * time.Millisecond)
	require.False(t, fired.Load())
}
