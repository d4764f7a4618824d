package types

// Message 发送给补全后端的单条对话消息
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
