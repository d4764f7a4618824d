package llm

import (
	"context"
	"fmt"
	"time"

	"sitebot-ai-server/src/core/types"
)

// ErrorTag 上游失败时回复文本的统一前缀
// 挂件端把回复当普通消息气泡渲染，调用方只能通过该前缀区分降级回复。
const ErrorTag = "[AI Error]"

// Config LLM后端配置（每次请求按Bot配置组装）
type Config struct {
	ModelName   string            // 模型名称（送入别名归一化）
	BaseURL     string            // API地址
	APIKey      string            // API密钥
	Temperature float64           // 温度参数
	MaxTokens   int               // 最大令牌数
	Timeout     time.Duration     // 单次生成超时
	ModelAlias  map[string]string // 配置层追加的模型别名映射
}

// Provider 补全后端统一接口
// 生成永不返回error：上游不可达、配置缺失、超时都会被编码成带
// ErrorTag前缀的文本，由引擎当作普通assistant回复落库。这是刻意
// 的取舍，对话永远有"一个回答"，不要改成抛错。
type Provider interface {
	// Response 阻塞式生成完整回答
	Response(ctx context.Context, messages []types.Message) string
	// ResponseStream 增量生成，通道容量为1，关闭表示生成结束
	// 零片段失败时保证以单个带标记的错误文本作为唯一片段
	ResponseStream(ctx context.Context, messages []types.Message) <-chan string
}

// ErrorText 把上游错误编码为带标记的回复文本
func ErrorText(err error) string {
	return fmt.Sprintf("%s %v", ErrorTag, err)
}
