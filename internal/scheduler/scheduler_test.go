package scheduler_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/elkhart-labs/actorcore/internal/scheduler"
)

func TestScheduleOnceFiresOnce(t *testing.T) {
	s := scheduler.New(nil)
	s.Start()
	defer s.Stop()

	var fired atomic.Int32
	s.ScheduleOnce(10*time.Millisecond, func() { fired.Add(1) })

	require.Eventually(t, func() bool { return fired.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, int32(1), fired.Load())
}

func TestScheduleRecurringFiresMultipleTimes(t *testing.T) {
	s := scheduler.New(nil)
	s.Start()
	defer s.Stop()

	var fired atomic.Int32
	s.ScheduleRecurring(5*time.Millisecond, func() { fired.Add(1) })

	require.Eventually(t, func() bool { return fired.Load() >= 3 }, time.Second, time.Millisecond)
}

func TestCancelScheduleStopsFutureFires(t *testing.T) {
	s := scheduler.New(nil)
	s.Start()
	defer s.Stop()

	var fired atomic.Int32
	id := s.ScheduleRecurring(5*time.Millisecond, func() { fired.Add(1) })

	require.Eventually(t, func() bool { return fired.Load() >= 1 }, time.Second, time.Millisecond)
	require.True(t, s.CancelSchedule(id))

	snapshot := fired.Load()
	time.Sleep(30 * time.Millisecond)
	require.LessOrEqual(t, fired.Load(), snapshot+1)
}

func TestCleanupRemovesAllPending(t *testing.T) {
	s := scheduler.New(nil)
	s.Start()
	defer s.Stop()

	s.ScheduleOnce(time.Hour, func() {})
	s.ScheduleRecurring(time.Hour, func() {})

	require.Equal(t, 2, s.PendingCount())
	require.Equal(t, 2, s.Cleanup())
	require.Equal(t, 0, s.PendingCount())
}
