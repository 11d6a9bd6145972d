package lock

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemoryLockerExcludes(t *testing.T) {
	l := NewMemoryLocker()
	const workers = 16
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := l.Acquire(context.Background(), "MeetingRoomA|2026-08-29")
			require.NoError(t, err)
			defer release()
			// Unsynchronized increment; the race detector flags this if the
			// lock does not actually exclude.
			counter++
		}()
	}
	wg.Wait()
	require.Equal(t, workers, counter)
}

func TestMemoryLockerIndependentKeys(t *testing.T) {
	l := NewMemoryLocker()
	releaseA, err := l.Acquire(context.Background(), "RoomA|2026-08-29")
	require.NoError(t, err)
	defer releaseA()

	// A different key must not block behind RoomA.
	releaseB, err := l.Acquire(context.Background(), "RoomB|2026-08-29")
	require.NoError(t, err)
	releaseB()
}

func TestMemoryLockerCancelledContext(t *testing.T) {
	l := NewMemoryLocker()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := l.Acquire(ctx, "RoomA|2026-08-29")
	require.ErrorIs(t, err, context.Canceled)
}
