package model

import "time"

type EventRegistration struct {
	ID        int64     `gorm:"primaryKey"`
	EventID   int64     `gorm:"column:event_id;not null;uniqueIndex:idx_event_user"`
	UserID    int64     `gorm:"column:user_id;not null;uniqueIndex:idx_event_user"`
	CreatedAt time.Time `gorm:"type:TIMESTAMP with time zone;not null"`
}

func (EventRegistration) TableName() string {
	return "event_registrations"
}
