package panel

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDebouncerCoalescesBursts(t *testing.T) {
	var fired atomic.Int32
	d := NewChangeDebouncer(50*time.Millisecond, func() { fired.Add(1) })
	defer d.Stop()

	// A burst within one quiet period flushes exactly once.
	for i := 0; i < 10; i++ {
		d.Notify()
		time.Sleep(5 * time.Millisecond)
	}

	require.Eventually(t, func() bool { return fired.Load() == 1 },
		time.Second, 10*time.Millisecond)

	// No second flush without a new notification.
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int32(1), fired.Load())
}

func TestDebouncerFlushesAgainAfterNewNotification(t *testing.T) {
	var fired atomic.Int32
	d := NewChangeDebouncer(20*time.Millisecond, func() { fired.Add(1) })
	defer d.Stop()

	d.Notify()
	require.Eventually(t, func() bool { return fired.Load() == 1 },
		time.Second, 5*time.Millisecond)

	d.Notify()
	require.Eventually(t, func() bool { return fired.Load() == 2 },
		time.Second, 5*time.Millisecond)
}

func TestDebouncerStopCancelsPendingFlush(t *testing.T) {
	var fired atomic.Int32
	d := NewChangeDebouncer(50*time.Millisecond, func() { fired.Add(1) })

	d.Notify()
	d.Stop()

	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int32(0), fired.Load())

	// Notifications after Stop are ignored.
	d.Notify()
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(0), fired.Load())
}
