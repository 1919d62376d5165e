package task

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRepeatingTask(t *testing.T) {
	t.Run("executes repeatedly until stopped", func(t *testing.T) {
		var runs int32
		task := NewRepeating(func(_ context.Context) {
			atomic.AddInt32(&runs, 1)
		}, 5*time.Millisecond)

		task.Start()
		task.Start()
		require.True(t, task.Running())
		require.Eventually(t, func() bool {
			return atomic.LoadInt32(&runs) >= 3
		}, time.Second, time.Millisecond)

		task.Stop(false)
		require.False(t, task.Running())
		stopped := atomic.LoadInt32(&runs)
		time.Sleep(20 * time.Millisecond)
		require.Equal(t, stopped, atomic.LoadInt32(&runs))
	})

	t.Run("forced execution on stop", func(t *testing.T) {
		var runs int32
		task := NewRepeating(func(_ context.Context) {
			atomic.AddInt32(&runs, 1)
		}, time.Hour)

		task.Start()
		task.Stop(true)
		require.Equal(t, int32(1), atomic.LoadInt32(&runs))
	})

	t.Run("stop without start is a no-op", func(t *testing.T) {
		task := NewRepeating(func(_ context.Context) {
			t.Fatal("task must not run")
		}, time.Millisecond)
		task.Stop(true)
		require.False(t, task.Running())
	})

	t.Run("running task observes cancellation", func(t *testing.T) {
		started := make(chan struct{}, 1)
		task := NewRepeating(func(ctx context.Context) {
			select {
			case started <- struct{}{}:
			default:
			}
			<-ctx.Done()
		}, time.Millisecond)

		task.Start()
		<-started
		task.Stop(false)
		require.False(t, task.Running())
	})
}
