package sandbox

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCleanup struct{ cancelled bool }

func (f *fakeCleanup) Cancel() { f.cancelled = true }

// I1: at most one container handle per chat key; replacing it tears down
// the previous one.
func TestReplaceSession_TearsDownPrior(t *testing.T) {
	reg := NewRegistry()

	var destroyed []ContainerHandle
	destroy := func(ctx context.Context, h ContainerHandle) error {
		destroyed = append(destroyed, h)
		return nil
	}

	err := reg.ReplaceSession(context.Background(), "chat1", ContainerHandle{ID: "c1"}, destroy)
	require.NoError(t, err)
	require.Empty(t, destroyed)

	err = reg.ReplaceSession(context.Background(), "chat1", ContainerHandle{ID: "c2"}, destroy)
	require.NoError(t, err)
	require.Len(t, destroyed, 1)
	assert.Equal(t, "c1", destroyed[0].ID)

	h, ok := reg.Container("chat1")
	require.True(t, ok)
	assert.Equal(t, "c2", h.ID)
}

func TestReplaceSession_DestroyErrorDoesNotBlockReplace(t *testing.T) {
	reg := NewRegistry()
	destroy := func(ctx context.Context, h ContainerHandle) error {
		return assertErr
	}

	require.NoError(t, reg.ReplaceSession(context.Background(), "chat1", ContainerHandle{ID: "c1"}, nil))
	err := reg.ReplaceSession(context.Background(), "chat1", ContainerHandle{ID: "c2"}, destroy)
	assert.Error(t, err)

	h, ok := reg.Container("chat1")
	require.True(t, ok)
	assert.Equal(t, "c2", h.ID)
}

// I2: replacing the cleanup task cancels the previous one.
func TestReplaceSession_CancelsPriorCleanupTask(t *testing.T) {
	reg := NewRegistry()
	prior := &fakeCleanup{}
	reg.SetCleanupTask("chat1", prior)

	require.NoError(t, reg.ReplaceSession(context.Background(), "chat1", ContainerHandle{ID: "c1"}, nil))
	assert.True(t, prior.cancelled)
}

func TestForgetContainer_OnlyRemovesMatchingHandle(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.ReplaceSession(context.Background(), "chat1", ContainerHandle{ID: "c1"}, nil))

	reg.ForgetContainer("chat1", ContainerHandle{ID: "stale"})
	_, ok := reg.Container("chat1")
	assert.True(t, ok, "forgetting a stale handle must not remove the current one")

	reg.ForgetContainer("chat1", ContainerHandle{ID: "c1"})
	_, ok = reg.Container("chat1")
	assert.False(t, ok)
}

func TestLastActivity_RoundTrips(t *testing.T) {
	reg := NewRegistry()
	now := time.Now()
	got := reg.SetLastActivity("chat1", now)
	assert.True(t, got.Equal(now))

	t2, ok := reg.LastActivity("chat1")
	require.True(t, ok)
	assert.True(t, t2.Equal(now))
}

var assertErr = &fakeError{"destroy failed"}

type fakeError struct{ msg string }

func (e *fakeError) Error() string { return e.msg }
