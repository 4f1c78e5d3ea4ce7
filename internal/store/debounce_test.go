package store

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDebouncer_CoalescesRapidTriggers(t *testing.T) {
	var runs int32
	d := NewDebouncer(30*time.Millisecond, func() { atomic.AddInt32(&runs, 1) })

	for i := 0; i < 10; i++ {
		d.Trigger()
		time.Sleep(2 * time.Millisecond)
	}

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&runs) == 1
	}, time.Second, 5*time.Millisecond)

	// Quiet period passed; no further runs.
	time.Sleep(60 * time.Millisecond)
	require.EqualValues(t, 1, atomic.LoadInt32(&runs))
}

func TestDebouncer_FlushRunsPendingNow(t *testing.T) {
	var runs int32
	d := NewDebouncer(time.Hour, func() { atomic.AddInt32(&runs, 1) })

	d.Flush()
	require.EqualValues(t, 0, atomic.LoadInt32(&runs), "nothing pending")

	d.Trigger()
	d.Flush()
	require.EqualValues(t, 1, atomic.LoadInt32(&runs))

	d.Flush()
	require.EqualValues(t, 1, atomic.LoadInt32(&runs), "flush is not a trigger")
}

func TestDebouncer_StopCancelsPending(t *testing.T) {
	var runs int32
	d := NewDebouncer(10*time.Millisecond, func() { atomic.AddInt32(&runs, 1) })

	d.Trigger()
	d.Stop()
	time.Sleep(30 * time.Millisecond)
	require.EqualValues(t, 0, atomic.LoadInt32(&runs))
}

func TestDebouncer_ZeroDelayIsSynchronous(t *testing.T) {
	var runs int32
	d := NewDebouncer(0, func() { atomic.AddInt32(&runs, 1) })
	d.Trigger()
	d.Trigger()
	require.EqualValues(t, 2, atomic.LoadInt32(&runs))
}
