package relay

import (
	"context"
	"errors"
	"strings"
	"time"

	"sitebot-ai-server/src/configs"
	"sitebot-ai-server/src/core/providers/llm"
	"sitebot-ai-server/src/core/session"
	"sitebot-ai-server/src/core/transcript"
	"sitebot-ai-server/src/core/types"
	"sitebot-ai-server/src/core/utils"
	"sitebot-ai-server/src/models"
)

// ErrInvalidRequest 入站内容为空或缺少会话标识
var ErrInvalidRequest = errors.New("无效的请求参数")

// 追加到每个system prompt末尾的风格约束，保证挂件里的回复简洁
const styleGuidelines = "\nGuidelines: Be concise. Reply in 2-3 sentences (<= ~80 words). " +
	"Avoid repetition and boilerplate. Use short bullet points when useful."

// ProviderFactory 按请求组装补全后端（测试时注入假实现）
type ProviderFactory func(cfg *llm.Config) llm.Provider

// SendResult 同步形态的处理结果，no_answer 时 Reply 为 nil
type SendResult struct {
	ConversationID uint
	Reply          *string
}

// Engine 中继引擎：解析会话 → 追加入站消息 → 调用后端 → 追加出站消息
// 每个请求由独立的goroutine处理，除转录存储外不共享可变状态。
type Engine struct {
	store         *transcript.Store
	resolver      *session.Resolver
	baseLLM       configs.LLMConfig
	defaultPrompt string
	contextWindow int
	newProvider   ProviderFactory
	logger        *utils.Logger
}

// NewEngine 创建中继引擎
func NewEngine(store *transcript.Store, resolver *session.Resolver, cfg *configs.Config, logger *utils.Logger) *Engine {
	return &Engine{
		store:         store,
		resolver:      resolver,
		baseLLM:       cfg.LLM,
		defaultPrompt: cfg.DefaultPrompt,
		contextWindow: cfg.ContextWindow,
		newProvider: func(c *llm.Config) llm.Provider {
			return llm.NewOpenAIProvider(c, logger)
		},
		logger: logger,
	}
}

// SetProviderFactory 替换后端工厂（测试用）
func (e *Engine) SetProviderFactory(f ProviderFactory) {
	e.newProvider = f
}

// providerFor 按Bot配置组装后端：Bot字段覆盖全局默认值，温度原样透传
func (e *Engine) providerFor(bot *models.Bot) llm.Provider {
	cfg := &llm.Config{
		ModelName:   bot.ModelName,
		BaseURL:     e.baseLLM.BaseURL,
		APIKey:      e.baseLLM.APIKey,
		Temperature: e.baseLLM.Temperature,
		MaxTokens:   e.baseLLM.MaxTokens,
		Timeout:     llmTimeout(e.baseLLM.Timeout),
		ModelAlias:  e.baseLLM.ModelAlias,
	}
	if cfg.ModelName == "" {
		cfg.ModelName = e.baseLLM.ModelName
	}
	if bot.Temperature != 0 {
		cfg.Temperature = bot.Temperature
	}
	return e.newProvider(cfg)
}

func (e *Engine) systemPrompt(bot *models.Bot) string {
	prompt := bot.SystemPrompt
	if prompt == "" {
		prompt = e.defaultPrompt
	}
	return prompt + styleGuidelines
}

// buildContext 组装生成上下文：system prompt + 最近的历史消息
// 历史被截断到 contextWindow 条，避免长会话把完整转录全量送给后端。
func (e *Engine) buildContext(ctx context.Context, bot *models.Bot, conversationID uint) ([]types.Message, error) {
	history, err := e.store.RecentHistory(ctx, conversationID, e.contextWindow)
	if err != nil {
		return nil, err
	}
	messages := make([]types.Message, 0, len(history)+1)
	messages = append(messages, types.Message{Role: models.RoleSystem, Content: e.systemPrompt(bot)})
	messages = append(messages, history...)
	return messages, nil
}

// SendMessage 同步形态的中继请求
// noAnswer=true 时只落用户消息并返回会话标识（客户端随后另开流式通道）。
func (e *Engine) SendMessage(ctx context.Context, bot *models.Bot, sessionID, content string, noAnswer bool) (*SendResult, error) {
	content = strings.TrimSpace(content)
	if content == "" || strings.TrimSpace(sessionID) == "" {
		return nil, ErrInvalidRequest
	}

	conv, err := e.resolver.Resolve(ctx, bot, sessionID)
	if err != nil {
		return nil, err
	}

	// 用户消息先于生成落库，保证并发读不会先看到回答后看到提问
	if _, err := e.store.Append(ctx, conv.ID, models.RoleUser, content); err != nil {
		e.logger.Error("追加用户消息失败: conv=%d err=%v", conv.ID, err)
		return nil, err
	}

	if noAnswer {
		return &SendResult{ConversationID: conv.ID}, nil
	}

	messages, err := e.buildContext(ctx, bot, conv.ID)
	if err != nil {
		return nil, err
	}

	answer := e.providerFor(bot).Response(ctx, messages)

	if _, err := e.store.Append(ctx, conv.ID, models.RoleAssistant, answer); err != nil {
		e.logger.Error("追加回复消息失败: conv=%d err=%v", conv.ID, err)
		return nil, err
	}

	return &SendResult{ConversationID: conv.ID, Reply: &answer}, nil
}

// StreamReply 流式形态的中继请求
// 会话必须已存在（由入站接口创建）；片段边转发边累计，流结束后把
// 累计文本作为单条assistant消息落库——落库的是所有增量之和，绝不
// 逐片段落库。客户端掉线按流结束处理，已累计的部分尽力落库。
func (e *Engine) StreamReply(ctx context.Context, bot *models.Bot, sessionID string, w EventWriter) error {
	if strings.TrimSpace(sessionID) == "" {
		return ErrInvalidRequest
	}

	conv, err := e.resolver.ResolveExisting(ctx, bot, sessionID)
	if err != nil {
		return err
	}

	messages, err := e.buildContext(ctx, bot, conv.ID)
	if err != nil {
		return err
	}

	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	fragments := e.providerFor(bot).ResponseStream(streamCtx, messages)
	mux := NewMultiplexer(w, e.logger)
	answer, writeErr := mux.Forward(streamCtx, fragments)
	if writeErr != nil {
		// 对端掉线不算请求失败，没有人在听；取消上游继续拉取即可
		e.logger.Warn("流式下发中断: conv=%d err=%v", conv.ID, writeErr)
		cancel()
	}

	if answer == "" {
		return nil
	}

	// 请求上下文可能已随掉线取消，落库用独立上下文
	persistCtx := context.WithoutCancel(ctx)
	if _, err := e.store.Append(persistCtx, conv.ID, models.RoleAssistant, answer); err != nil {
		e.logger.Error("追加流式回复失败: conv=%d err=%v", conv.ID, err)
		return err
	}
	return nil
}

// History 返回会话完整历史，会话不存在时返回空列表而非错误
func (e *Engine) History(ctx context.Context, bot *models.Bot, sessionID string) ([]models.ConversationMessage, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, ErrInvalidRequest
	}

	conv, err := e.resolver.ResolveExisting(ctx, bot, sessionID)
	if err != nil {
		if errors.Is(err, transcript.ErrConversationNotFound) {
			return []models.ConversationMessage{}, nil
		}
		return nil, err
	}
	return e.store.List(ctx, conv.ID)
}

func llmTimeout(seconds int) time.Duration {
	if seconds <= 0 {
		seconds = 60
	}
	return time.Duration(seconds) * time.Second
}
