package chat

import (
	"time"
)

// SendMessageRequest 入站消息请求体
type SendMessageRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
	NoAnswer  bool   `json:"no_answer"`
}

// SendMessageResponse 入站消息响应，no_answer 时 reply 为 null
type SendMessageResponse struct {
	ConversationID uint    `json:"conversation_id"`
	Reply          *string `json:"reply"`
}

// HistoryMessage 历史接口中的单条消息
type HistoryMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// HistoryResponse 历史接口响应
type HistoryResponse struct {
	Messages []HistoryMessage `json:"messages"`
}
