package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Bot 站点机器人配置表
// 由外部管理端维护（创建/编辑/停用），中继核心只读。
// Token 是嵌入端唯一的访问凭证，停用的Bot必须拒绝一切中继请求。
type Bot struct {
	ID      uint `gorm:"primaryKey" json:"id"`
	OwnerID uint `gorm:"not null;index" json:"owner_id"`

	Name           string `gorm:"size:120;not null" json:"name"`
	Description    string `gorm:"type:text" json:"description,omitempty"`
	WelcomeMessage string `gorm:"size:255;default:'Hi! How can I help you today?'" json:"welcome_message"`

	// 外观配置（主题色、位置等），仅存储，核心不解释
	Appearance datatypes.JSON `json:"appearance,omitempty"`

	// AI配置
	SystemPrompt string  `gorm:"type:text" json:"system_prompt"`
	ModelName    string  `gorm:"size:100" json:"model_name"`
	Temperature  float64 `gorm:"default:0.4" json:"temperature"`

	// 访问凭证
	Token    string `gorm:"size:64;uniqueIndex;not null" json:"token"`
	IsActive bool   `gorm:"not null;default:true" json:"is_active"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName 指定Bot表名
func (Bot) TableName() string {
	return "bots"
}
