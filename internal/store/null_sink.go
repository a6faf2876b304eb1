package store

import (
	"context"

	"go.uber.org/zap"

	"nekroagent/sandboxd/internal/logging"
)

// NullSink logs and drops records. Used when neither the Postgres sink
// (DATABASE_URL) nor the SQLite sink (SANDBOX_SQLITE_PATH, which defaults
// to ./sandboxd.db) can be opened, so the lifecycle manager's
// "log, don't fail" persistence policy holds even with no working store.
type NullSink struct{}

func (NullSink) Insert(_ context.Context, record ExecutionRecord) error {
	logging.L().Warn("execution record sink not configured, dropping record",
		zap.String("chat_key", record.ChatKey),
		zap.String("stop_type", record.StopType),
	)
	return nil
}
