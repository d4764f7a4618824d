package llm

import (
	"context"
	"errors"
	"io"

	"sitebot-ai-server/src/core/types"
	"sitebot-ai-server/src/core/utils"

	"github.com/sashabaranov/go-openai"
)

// OpenAIProvider 基于OpenAI兼容协议的补全后端（默认对接Groq）
type OpenAIProvider struct {
	cfg    *Config
	client *openai.Client
	logger *utils.Logger
}

// NewOpenAIProvider 创建OpenAI兼容后端实例
func NewOpenAIProvider(cfg *Config, logger *utils.Logger) *OpenAIProvider {
	p := &OpenAIProvider{
		cfg:    cfg,
		logger: logger,
	}
	if cfg.APIKey != "" {
		clientConfig := openai.DefaultConfig(cfg.APIKey)
		if cfg.BaseURL != "" {
			clientConfig.BaseURL = cfg.BaseURL
		}
		p.client = openai.NewClientWithConfig(clientConfig)
	}
	return p
}

func (p *OpenAIProvider) buildRequest(messages []types.Message, stream bool) openai.ChatCompletionRequest {
	msgs := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}
	return openai.ChatCompletionRequest{
		Model:       NormalizeModelName(p.cfg.ModelName, p.cfg.ModelAlias),
		Messages:    msgs,
		Temperature: float32(p.cfg.Temperature),
		MaxTokens:   p.cfg.MaxTokens,
		Stream:      stream,
	}
}

// Response 阻塞式生成完整回答，失败时返回带标记的错误文本
func (p *OpenAIProvider) Response(ctx context.Context, messages []types.Message) string {
	if p.client == nil {
		return ErrorTag + " GROQ_API_KEY not configured"
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	resp, err := p.client.CreateChatCompletion(ctx, p.buildRequest(messages, false))
	if err != nil {
		p.logger.Warn("LLM生成失败: %v", err)
		return ErrorText(err)
	}
	if len(resp.Choices) == 0 {
		return ErrorText(errors.New("empty response from upstream"))
	}
	return resp.Choices[0].Message.Content
}

// ResponseStream 增量生成回答片段
// 生产者最多领先消费者一个片段（容量1），消费者取消时立即停产。
func (p *OpenAIProvider) ResponseStream(ctx context.Context, messages []types.Message) <-chan string {
	out := make(chan string, 1)

	go func() {
		defer close(out)

		if p.client == nil {
			emit(ctx, out, ErrorTag+" GROQ_API_KEY not configured")
			return
		}

		sctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
		defer cancel()

		stream, err := p.client.CreateChatCompletionStream(sctx, p.buildRequest(messages, true))
		if err != nil {
			p.logger.Warn("LLM流式生成失败: %v", err)
			emit(ctx, out, ErrorText(err))
			return
		}
		defer stream.Close()

		produced := false
		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				p.logger.Warn("LLM流中断: %v", err)
				if !produced {
					// 零片段失败必须产出唯一的错误片段，保证落库的回复非空
					emit(ctx, out, ErrorText(err))
				}
				return
			}
			if len(resp.Choices) == 0 {
				continue
			}
			delta := resp.Choices[0].Delta.Content
			if delta == "" {
				continue
			}
			if !emit(ctx, out, delta) {
				return
			}
			produced = true
		}

		if !produced {
			emit(ctx, out, ErrorText(errors.New("empty response from upstream")))
		}
	}()

	return out
}

func emit(ctx context.Context, out chan<- string, fragment string) bool {
	select {
	case out <- fragment:
		return true
	case <-ctx.Done():
		return false
	}
}
