package sandbox

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// P2: at any instant, in-flight executions <= SANDBOX_MAX_CONCURRENT.
func TestAdmission_BoundsConcurrency(t *testing.T) {
	a := NewAdmission(2)

	require.NoError(t, a.Acquire(context.Background()))
	require.NoError(t, a.Acquire(context.Background()))

	acquired := make(chan struct{})
	go func() {
		_ = a.Acquire(context.Background())
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("third acquire should block while capacity is exhausted")
	case <-time.After(50 * time.Millisecond):
	}

	a.Release()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("third acquire should unblock after a release")
	}
}

func TestAdmission_AcquireRespectsContextCancellation(t *testing.T) {
	a := NewAdmission(1)
	require.NoError(t, a.Acquire(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := a.Acquire(ctx)
	assert.Error(t, err)
}

func TestAdmission_ReleaseAllowsReacquire(t *testing.T) {
	a := NewAdmission(3)
	var count int32

	for i := 0; i < 3; i++ {
		require.NoError(t, a.Acquire(context.Background()))
		atomic.AddInt32(&count, 1)
	}
	assert.EqualValues(t, 3, count)

	a.Release()
	require.NoError(t, a.Acquire(context.Background()))
}
