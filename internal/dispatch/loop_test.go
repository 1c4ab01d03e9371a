package dispatch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoopRunsPostedInOrder(t *testing.T) {
	l := NewLoop(16)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() { _ = l.Run(ctx) }()

	var mu sync.Mutex
	var got []int
	done := make(chan struct{})
	for i := 0; i < 5; i++ {
		i := i
		require.True(t, l.Post(func() {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
			if i == 4 {
				close(done)
			}
		}))
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not drain")
	}
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{0, 1, 2, 3, 4}, got)
}

func TestPostAfterStop(t *testing.T) {
	l := NewLoop(1)
	l.Stop()
	assert.False(t, l.Post(func() {}))
	assert.NoError(t, l.Run(context.Background()))
}

func TestRunStopsOnContext(t *testing.T) {
	l := NewLoop(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, l.Run(ctx), context.Canceled)
	assert.False(t, l.Post(func() {}))
}
