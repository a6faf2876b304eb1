package sandbox

import (
	"context"
	"sync"
	"time"

	"nekroagent/sandboxd/internal/cache"
)

// ContainerHandle is the minimal surface the registry needs from a running
// container so it can tear one down without depending on the Docker SDK
// directly.
type ContainerHandle struct {
	ID   string
	Name string
}

// CleanupTask is a cancellable deferred task, satisfied by the handle
// returned from ScheduleIdleGC.
type CleanupTask interface {
	Cancel()
}

// Registry holds the three per-chat-key maps described in spec §4.6:
// the current container handle, the current idle-cleanup task, and the
// last-activity timestamp. Every container-slot replacement goes through
// ReplaceSession so invariants I1/I2 (at most one live container/cleanup-task
// per chat key) hold without the caller needing to coordinate locking
// itself; SetCleanupTask, SetLastActivity and ForgetContainer update single
// entries under the same mutex.
type Registry struct {
	mu         sync.RWMutex
	containers map[string]ContainerHandle
	cleanups   map[string]CleanupTask
	activity   map[string]time.Time

	// mirror is an optional cross-instance mirror of the last-activity map
	// (spec §4.6 note on multi-instance deployments). The in-process map
	// above remains authoritative for this instance's own idle-GC
	// decisions; the mirror only lets other instances observe activity
	// recorded here.
	mirror cache.ActivityCache
}

// NewRegistry constructs an empty registry with no cross-instance mirror.
func NewRegistry() *Registry {
	return NewRegistryWithCache(cache.NullActivityCache{})
}

// NewRegistryWithCache constructs an empty registry that mirrors every
// SetLastActivity call into mirror, e.g. a RedisActivityCache shared by a
// pool of sandboxd instances.
func NewRegistryWithCache(mirror cache.ActivityCache) *Registry {
	return &Registry{
		containers: make(map[string]ContainerHandle),
		cleanups:   make(map[string]CleanupTask),
		activity:   make(map[string]time.Time),
		mirror:     mirror,
	}
}

// ContainerDestroyer destroys a previously-registered container. Returning
// nil for "already gone" (e.g. 404 from the engine) is the caller's
// responsibility; ReplaceSession logs but never fails on a destroy error.
type ContainerDestroyer func(ctx context.Context, h ContainerHandle) error

// ReplaceSession atomically installs a new container handle for chatKey,
// first cancelling any prior idle-cleanup task and tearing down any prior
// container. An error from the container teardown is returned to the
// caller for logging but never prevents the new handle from being installed.
func (r *Registry) ReplaceSession(ctx context.Context, chatKey string, next ContainerHandle, destroy ContainerDestroyer) (teardownErr error) {
	r.mu.Lock()
	prevCleanup, hadCleanup := r.cleanups[chatKey]
	prevContainer, hadContainer := r.containers[chatKey]
	delete(r.cleanups, chatKey)
	delete(r.containers, chatKey)
	r.containers[chatKey] = next
	r.mu.Unlock()

	if hadCleanup {
		prevCleanup.Cancel()
	}
	if hadContainer && destroy != nil {
		if err := destroy(ctx, prevContainer); err != nil {
			teardownErr = err
		}
	}
	return teardownErr
}

// SetCleanupTask installs the idle-GC task handle for chatKey, replacing
// (and not separately cancelling — the caller already scheduled it after
// ReplaceSession tore down the old one) any prior entry.
func (r *Registry) SetCleanupTask(chatKey string, task CleanupTask) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cleanups[chatKey] = task
}

// SetLastActivity records the last-activity timestamp for chatKey (the
// lifecycle manager sets it once an execution has finished) and returns it, so callers can capture the exact value an
// idle-GC task should compare against later (I3).
func (r *Registry) SetLastActivity(chatKey string, t time.Time) time.Time {
	r.mu.Lock()
	r.activity[chatKey] = t
	r.mu.Unlock()

	if r.mirror != nil {
		r.mirror.SetLastActivity(context.Background(), chatKey, t)
	}
	return t
}

// LastActivity returns the last recorded activity timestamp for chatKey,
// and whether one exists.
func (r *Registry) LastActivity(chatKey string) (time.Time, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.activity[chatKey]
	return t, ok
}

// Container returns the currently registered container handle for
// chatKey, if any. Informational only — never used to make teardown
// decisions outside of ReplaceSession.
func (r *Registry) Container(chatKey string) (ContainerHandle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.containers[chatKey]
	return h, ok
}

// ForgetContainer removes chatKey's container handle without tearing
// anything down, and only if it is still h. The lifecycle manager uses it
// to drop the empty placeholder handle when a launch fails.
func (r *Registry) ForgetContainer(chatKey string, h ContainerHandle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.containers[chatKey]; ok && cur.ID == h.ID {
		delete(r.containers, chatKey)
	}
}
