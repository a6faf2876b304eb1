package sandbox

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withShortIdleInterval(t *testing.T, d time.Duration) {
	t.Helper()
	orig := IdleGCInterval
	IdleGCInterval = d
	t.Cleanup(func() { IdleGCInterval = orig })
}

// P7: idle-GC no-op-on-supersede. If a newer execution starts within the
// idle interval, the prior scheduled task must perform no deletion.
func TestScheduleIdleGC_NoSupersedeCheck(t *testing.T) {
	withShortIdleInterval(t, 20*time.Millisecond)

	reg := NewRegistry()
	shareDir := t.TempDir()
	marker := filepath.Join(shareDir, "marker.txt")
	require.NoError(t, os.WriteFile(marker, []byte("x"), 0o644))

	capturedAt := reg.SetLastActivity("chat1", time.Now())

	var destroyed int32
	destroy := func(ctx context.Context, h ContainerHandle) {
		atomic.AddInt32(&destroyed, 1)
	}

	ScheduleIdleGC(reg, "chat1", shareDir, ContainerHandle{ID: "c1"}, capturedAt, destroy)

	// Newer activity supersedes before the timer fires.
	reg.SetLastActivity("chat1", time.Now().Add(time.Millisecond))

	time.Sleep(100 * time.Millisecond)

	_, err := os.Stat(marker)
	assert.NoError(t, err, "share dir must survive when a newer execution superseded the captured timestamp")
	assert.EqualValues(t, 0, atomic.LoadInt32(&destroyed))
}

func TestScheduleIdleGC_FiresWhenNotSuperseded(t *testing.T) {
	withShortIdleInterval(t, 20*time.Millisecond)

	reg := NewRegistry()
	shareDir := t.TempDir()
	marker := filepath.Join(shareDir, "marker.txt")
	require.NoError(t, os.WriteFile(marker, []byte("x"), 0o644))

	capturedAt := reg.SetLastActivity("chat1", time.Now())

	destroyedCh := make(chan struct{}, 1)
	destroy := func(ctx context.Context, h ContainerHandle) {
		destroyedCh <- struct{}{}
	}

	task := ScheduleIdleGC(reg, "chat1", shareDir, ContainerHandle{ID: "c1"}, capturedAt, destroy)
	defer task.Cancel()

	select {
	case <-destroyedCh:
	case <-time.After(time.Second):
		t.Fatal("idle gc task should have fired")
	}

	_, err := os.Stat(marker)
	assert.True(t, os.IsNotExist(err))
}

func TestScheduleIdleGC_CancelPreventsFiring(t *testing.T) {
	withShortIdleInterval(t, 20*time.Millisecond)

	reg := NewRegistry()
	shareDir := t.TempDir()
	capturedAt := reg.SetLastActivity("chat1", time.Now())

	var destroyed int32
	destroy := func(ctx context.Context, h ContainerHandle) {
		atomic.AddInt32(&destroyed, 1)
	}

	task := ScheduleIdleGC(reg, "chat1", shareDir, ContainerHandle{ID: "c1"}, capturedAt, destroy)
	task.Cancel()

	time.Sleep(100 * time.Millisecond)
	assert.EqualValues(t, 0, atomic.LoadInt32(&destroyed))
}
