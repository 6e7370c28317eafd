package config

import (
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	model "task-assignment-api.com/task-assignment-api/internal/models"
)

// NewDatabaseClient opens the sqlite store and migrates the task, user and
// pending-task tables.
func NewDatabaseClient(dsn string) (*gorm.DB, error) {
	return openDatabase(dsn, os.Stderr)
}

func openDatabase(dsn string, w io.Writer) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         newGormLogger(w),
	})
	if err != nil {
		return nil, fmt.Errorf("db open failed: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

// newGormLogger reports slow queries and failures. Lookups of missing records
// are normal 404s and stay quiet.
func newGormLogger(w io.Writer) logger.Interface {
	return logger.New(log.New(w, "", log.LstdFlags), logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  logger.Warn,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&model.Task{}, &model.User{}, &model.PendingTask{}); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

func CloseDatabaseClient(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
