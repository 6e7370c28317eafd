package model

import "time"

type User struct {
	ID           string    `gorm:"primaryKey;size:36" json:"_id"`
	Name         string    `gorm:"not null" json:"name"`
	Email        string    `gorm:"not null;uniqueIndex" json:"email"`
	PendingTasks []string  `gorm:"-" json:"pendingTasks"`
	DateCreated  time.Time `gorm:"not null;index" json:"dateCreated"`
}

// PendingTask is one entry of a user's pendingTasks set. Row ids keep the
// insertion order; the composite unique index makes additions idempotent.
type PendingTask struct {
	ID     uint   `gorm:"primaryKey;autoIncrement"`
	UserID string `gorm:"size:36;not null;uniqueIndex:idx_user_pending_task"`
	TaskID string `gorm:"size:36;not null;uniqueIndex:idx_user_pending_task;index"`
}

func (PendingTask) TableName() string {
	return "user_pending_tasks"
}
