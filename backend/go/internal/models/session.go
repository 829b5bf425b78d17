package models

import "time"

// Session 是由请求指纹派生出的匿名用户会话，任务通过 SessionID 归属到会话。
type Session struct {
	ID           string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Fingerprint  string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"fingerprint"`
	CreatedAt    time.Time `gorm:"not null" json:"created_at"`
	LastActiveAt time.Time `gorm:"not null;index" json:"last_active_at"`
}

// TableName 指定表名
func (Session) TableName() string {
	return "sessions"
}
