package sandbox

import (
	"context"

	"golang.org/x/sync/semaphore"

	"nekroagent/sandboxd/internal/metrics"
)

// Admission is a process-wide, fixed-capacity, FIFO-fair gate on
// concurrent executions (spec §4.4). Every execution must hold a permit
// for its entire duration: acquire before preparing the share directory,
// release after persisting the execution record.
type Admission struct {
	sem *semaphore.Weighted
}

// NewAdmission builds an admission controller with the given capacity.
func NewAdmission(maxConcurrent int) *Admission {
	return &Admission{sem: semaphore.NewWeighted(int64(maxConcurrent))}
}

// Acquire blocks until a permit is available or ctx is cancelled. There is
// no acquisition timeout beyond whatever deadline ctx carries, matching
// the spec's "no timeout on acquisition is required."
func (a *Admission) Acquire(ctx context.Context) error {
	metrics.Get().ExecutionQueueLength.Inc()
	defer metrics.Get().ExecutionQueueLength.Dec()

	if err := a.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	metrics.Get().ExecutionsInFlight.Inc()
	return nil
}

// Release returns the permit.
func (a *Admission) Release() {
	a.sem.Release(1)
	metrics.Get().ExecutionsInFlight.Dec()
}
