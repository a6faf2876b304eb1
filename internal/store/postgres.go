package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// GormSink persists execution records through GORM. Grounded on the
// teacher's internal/db.NewDatabase: same Logger/NowFunc config shape and
// connection-pool tuning, swapped to this package's single table.
type GormSink struct {
	db *gorm.DB
}

// NewPostgresSink opens a Postgres connection via dsn and migrates the
// execution-record table.
func NewPostgresSink(dsn string) (*GormSink, error) {
	gormCfg := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	db, err := gorm.Open(postgres.Open(dsn), gormCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&ExecutionRecord{}); err != nil {
		return nil, fmt.Errorf("migrate execution records: %w", err)
	}

	return &GormSink{db: db}, nil
}

func (s *GormSink) Insert(ctx context.Context, record ExecutionRecord) error {
	return s.db.WithContext(ctx).Create(&record).Error
}
