package session

import (
	"context"

	"sitebot-ai-server/src/core/transcript"
	"sitebot-ai-server/src/core/utils"
	"sitebot-ai-server/src/models"
)

// Resolver 把 (Bot, 会话标识) 解析为会话行
// 只有入站消息路径允许创建会话；历史查询和流式续接必须走只读解析，
// 不能因查询产生会话副作用。
type Resolver struct {
	store  *transcript.Store
	logger *utils.Logger
}

// NewResolver 创建会话解析器
func NewResolver(store *transcript.Store, logger *utils.Logger) *Resolver {
	return &Resolver{
		store:  store,
		logger: logger,
	}
}

// Resolve 获取或创建会话（幂等，并发下同键至多一行）
func (r *Resolver) Resolve(ctx context.Context, bot *models.Bot, sessionID string) (*models.Conversation, error) {
	conv, err := r.store.GetOrCreate(ctx, bot.ID, sessionID)
	if err != nil {
		r.logger.Error("解析会话失败: bot=%d session=%s err=%v", bot.ID, sessionID, err)
		return nil, err
	}
	return conv, nil
}

// ResolveExisting 只读解析，会话不存在时返回 transcript.ErrConversationNotFound
func (r *Resolver) ResolveExisting(ctx context.Context, bot *models.Bot, sessionID string) (*models.Conversation, error) {
	return r.store.Get(ctx, bot.ID, sessionID)
}
