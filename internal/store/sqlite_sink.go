package store

import (
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewSQLiteSink opens an embedded SQLite database at path, for standalone
// development and single-host deployments with no Postgres available.
// Exercises the teacher's secondary GORM driver instead of dropping it
// when only DATABASE_URL-less setups are wired.
func NewSQLiteSink(path string) (*GormSink, error) {
	gormCfg := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	db, err := gorm.Open(sqlite.Open(path), gormCfg)
	if err != nil {
		return nil, fmt.Errorf("open sqlite sink %s: %w", path, err)
	}

	if err := db.AutoMigrate(&ExecutionRecord{}); err != nil {
		return nil, fmt.Errorf("migrate execution records: %w", err)
	}

	return &GormSink{db: db}, nil
}
