package model

import "time"

// Match is a conversation between two users. Rows are owned by the HTTP side;
// the realtime layer only reads the participant columns.
type Match struct {
	ID        int64     `gorm:"primaryKey"`
	User1ID   int64     `gorm:"column:user1_id;not null;index"`
	User2ID   int64     `gorm:"column:user2_id;not null;index"`
	CreatedAt time.Time `gorm:"type:TIMESTAMP with time zone;not null"`
}

func (Match) TableName() string {
	return "matches"
}
