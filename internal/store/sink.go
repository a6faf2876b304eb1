package store

import "context"

// Sink is the Execution Record Sink contract: one insert per execution.
// The sandbox never retries and never treats a Sink error as fatal to the
// submit call (spec §4.7) — callers log Insert's error and continue.
type Sink interface {
	Insert(ctx context.Context, record ExecutionRecord) error
}
