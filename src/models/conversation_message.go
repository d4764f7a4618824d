package models

import (
	"time"
)

// 消息角色
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// ConversationMessage 会话中的单条消息（只追加，创建后不改写、不重排）
// 回放顺序以 created_at 升序为准，created_at 相同时按 id 升序兜底。
type ConversationMessage struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	ConversationID uint      `gorm:"not null;index" json:"conversation_id"`
	Role           string    `gorm:"size:16;not null" json:"role"`
	Content        string    `gorm:"type:text;not null" json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

// TableName 指定ConversationMessage表名
func (ConversationMessage) TableName() string {
	return "conversation_messages"
}
