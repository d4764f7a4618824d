package models

import (
	"time"
)

// Conversation 访客与Bot的一次会话
// (bot_id, session_id) 联合唯一：同一会话标识在同一个Bot下至多一行，
// 首条入站消息时惰性创建，核心不负责删除（删除属于管理端操作）。
type Conversation struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	BotID     uint       `gorm:"not null;uniqueIndex:uniq_bot_session" json:"bot_id"`
	SessionID string     `gorm:"size:64;not null;uniqueIndex:uniq_bot_session" json:"session_id"`
	StartedAt time.Time  `gorm:"not null" json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`

	// 会话独占其消息，删除会话时级联删除
	Messages []ConversationMessage `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// TableName 指定Conversation表名
func (Conversation) TableName() string {
	return "conversations"
}
