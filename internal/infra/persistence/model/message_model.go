package model

import "time"

// MessageModel mirrors the 'messages' table. ID order is append order.
type MessageModel struct {
	ID             int64     `gorm:"primaryKey;autoIncrement"`
	SenderID       int64     `gorm:"not null;index"`
	SenderUsername string    `gorm:"type:varchar(20);not null"`
	MessageText    string    `gorm:"type:text;not null"`
	Timestamp      time.Time `gorm:"not null;index"`
}

// TableName explicitly sets the table name for GORM.
func (MessageModel) TableName() string {
	return "messages"
}
