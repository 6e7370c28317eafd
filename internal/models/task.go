package model

import "time"

type Task struct {
	ID               string    `gorm:"primaryKey;size:36" json:"_id"`
	Name             string    `gorm:"not null" json:"name"`
	Description      string    `gorm:"not null" json:"description"`
	Deadline         time.Time `gorm:"not null" json:"deadline"`
	Completed        bool      `gorm:"not null" json:"completed"`
	AssignedUser     string    `gorm:"size:36;not null;index" json:"assignedUser"`
	AssignedUserName string    `gorm:"not null" json:"assignedUserName"`
	DateCreated      time.Time `gorm:"not null;index" json:"dateCreated"`
	Version          uint      `gorm:"not null;default:1" json:"__v"`
}

