// Package store persists immutable execution records for the sandbox
// subsystem (the Execution Record Sink).
package store

import (
	"time"

	"gorm.io/gorm"
)

// ExecutionRecord is the immutable record of one sandbox execution. It
// carries the eleven execution-record fields (chat key through trigger
// user name), plus TeardownWarning for surfacing a non-fatal
// prior-container teardown failure.
type ExecutionRecord struct {
	ID        uint           `gorm:"primarykey"`
	CreatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`

	ChatKey         string `gorm:"index;not null"`
	CodeText        string
	ThoughtChain    string
	CapturedOutput  string
	SuccessFlag     bool
	StopType        string `gorm:"index"`
	ExecTimeMs      int64
	GenerationTimeMs int64
	TotalTimeMs     int64
	TriggerUserID   int64
	TriggerUserName string

	// TeardownWarning is non-empty when the lifecycle manager's replace-slot
	// step failed to tear down the chat key's prior container.
	// Persistence is never blocked on this.
	TeardownWarning string
}

func (ExecutionRecord) TableName() string {
	return "sandbox_execution_records"
}
