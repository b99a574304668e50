package workpool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmit_ReturnsValue(t *testing.T) {
	p := New(2)
	f := Submit(p, context.Background(), func(context.Context) (int, error) { return 42, nil })
	v, err := f.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestSubmit_PropagatesError(t *testing.T) {
	p := New(1)
	boom := errors.New("boom")
	f := Submit(p, context.Background(), func(context.Context) (string, error) { return "", boom })
	_, err := f.Await(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestPool_BoundsConcurrency(t *testing.T) {
	const size = 3
	p := New(size)

	var running, peak atomic.Int32
	var futures []*Future[struct{}]
	for i := 0; i < 20; i++ {
		futures = append(futures, Submit(p, context.Background(), func(context.Context) (struct{}, error) {
			n := running.Add(1)
			for {
				old := peak.Load()
				if n <= old || peak.CompareAndSwap(old, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			running.Add(-1)
			return struct{}{}, nil
		}))
	}
	for _, f := range futures {
		_, err := f.Await(context.Background())
		require.NoError(t, err)
	}
	assert.LessOrEqual(t, peak.Load(), int32(size))
	assert.Equal(t, size, p.Size())
}

func TestSubmit_CanceledBeforeSlot(t *testing.T) {
	p := New(1)
	release := make(chan struct{})
	blocker := Submit(p, context.Background(), func(context.Context) (int, error) {
		<-release
		return 1, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	var ran atomic.Bool
	waiting := Submit(p, ctx, func(context.Context) (int, error) {
		ran.Store(true)
		return 2, nil
	})
	cancel()

	_, err := waiting.Await(context.Background())
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, ran.Load())

	close(release)
	v, err := blocker.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestAwait_ContextEnds(t *testing.T) {
	p := New(1)
	var wg sync.WaitGroup
	wg.Add(1)
	f := Submit(p, context.Background(), func(context.Context) (int, error) {
		wg.Wait()
		return 0, nil
	})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := f.Await(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	wg.Done()
	<-f.Done()
}

func TestAwait_RepanicsInCaller(t *testing.T) {
	p := New(1)
	f := Submit(p, context.Background(), func(context.Context) (int, error) {
		panic("executor exploded")
	})
	assert.PanicsWithValue(t, "workpool task panicked: executor exploded", func() {
		_, _ = f.Await(context.Background())
	})
}
