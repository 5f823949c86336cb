package models

import (
	"time"
)

// QueueItem is one row of pending background work. Claimed is NULL while the
// item is pending; a non-NULL value is an advisory time lease.
type QueueItem struct {
	ID        int64      `json:"id" gorm:"primaryKey;autoIncrement"`
	Frame     []byte     `json:"frame" gorm:"type:bytea;not null"`
	Transport string     `json:"transport" gorm:"type:text;not null;index"`
	Created   time.Time  `json:"created" gorm:"->;<-:create;type:timestamp with time zone;not null;default:clock_timestamp();index"`
	Claimed   *time.Time `json:"claimed" gorm:"type:timestamp with time zone;index"`
}
