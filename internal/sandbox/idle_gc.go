package sandbox

import (
	"context"
	"os"
	"time"

	"go.uber.org/zap"

	"nekroagent/sandboxd/internal/logging"
)

// IdleGCInterval is the idle interval after which a session's share
// directory is eligible for removal (spec §4.9). Variable rather than a
// constant so tests can shrink it instead of waiting on the real clock.
var IdleGCInterval = 30 * time.Minute

// idleGCTask implements CleanupTask over a time.Timer, satisfying the
// cancel-capable handle the registry stores per chat key.
type idleGCTask struct {
	timer *time.Timer
}

func (t *idleGCTask) Cancel() {
	t.timer.Stop()
}

// IdleGCDestroyer best-effort destroys a container as part of idle
// cleanup. All errors, including "not found", are ignored.
type IdleGCDestroyer func(ctx context.Context, h ContainerHandle)

// ScheduleIdleGC schedules the deferred per-session cleanup task described
// in spec §4.9. capturedActivity is the last-activity timestamp observed
// at schedule time; the task only acts if that value still equals
// registry.LastActivity(chatKey) when it wakes (invariant I3) — a losing
// race (a newer execution superseded this one) makes the task a no-op.
func ScheduleIdleGC(reg *Registry, chatKey, sharedDir string, container ContainerHandle, capturedActivity time.Time, destroy IdleGCDestroyer) CleanupTask {
	task := &idleGCTask{}
	task.timer = time.AfterFunc(IdleGCInterval, func() {
		current, ok := reg.LastActivity(chatKey)
		if !ok || !current.Equal(capturedActivity) {
			return
		}

		if err := os.RemoveAll(sharedDir); err != nil {
			logging.L().Error("idle gc: remove share directory failed",
				zap.String("chat_key", chatKey),
				zap.String("shared_dir", sharedDir),
				zap.Error(err),
			)
		}
		if destroy != nil {
			destroy(context.Background(), container)
		}
	})
	return task
}
