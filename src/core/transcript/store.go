package transcript

import (
	"context"
	"errors"
	"time"

	"sitebot-ai-server/src/core/types"
	"sitebot-ai-server/src/core/utils"
	"sitebot-ai-server/src/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrConversationNotFound 只读解析路径下会话不存在
var ErrConversationNotFound = errors.New("会话不存在")

// Store 会话转录存储（追加式消息日志）
// 唯一的跨请求共享资源，冲突写入由数据库层的唯一约束串行化。
type Store struct {
	db     *gorm.DB
	cache  *HistoryCache
	logger *utils.Logger
}

// NewStore 创建转录存储，cache 可为 nil（不启用历史缓存）
func NewStore(db *gorm.DB, cache *HistoryCache, logger *utils.Logger) *Store {
	return &Store{
		db:     db,
		cache:  cache,
		logger: logger,
	}
}

// GetOrCreate 获取或创建会话（按 (bot_id, session_id) 原子去重）
// 并发请求同一会话时依赖唯一索引：冲突方插入0行，随后统一回读，
// 保证任何交错下该键至多一行。
func (s *Store) GetOrCreate(ctx context.Context, botID uint, sessionID string) (*models.Conversation, error) {
	conv := models.Conversation{
		BotID:     botID,
		SessionID: sessionID,
		StartedAt: time.Now(),
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "bot_id"}, {Name: "session_id"}},
			DoNothing: true,
		}).
		Create(&conv).Error
	if err != nil {
		return nil, err
	}

	// 冲突路径下Create不回填ID，统一回读拿到已存在的行
	return s.Get(ctx, botID, sessionID)
}

// Get 只读获取会话，不存在时返回 ErrConversationNotFound
func (s *Store) Get(ctx context.Context, botID uint, sessionID string) (*models.Conversation, error) {
	var conv models.Conversation
	err := s.db.WithContext(ctx).
		Where("bot_id = ? AND session_id = ?", botID, sessionID).
		First(&conv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}
	return &conv, nil
}

// Append 向会话追加一条消息（只追加，失败时不做重试）
func (s *Store) Append(ctx context.Context, conversationID uint, role, content string) (*models.ConversationMessage, error) {
	msg := models.ConversationMessage{
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
	}
	if err := s.db.WithContext(ctx).Create(&msg).Error; err != nil {
		return nil, err
	}

	// 缓存失效属尽力而为，失败只记警告
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, conversationID); err != nil {
			s.logger.Warn("历史缓存失效失败: %v", err)
		}
	}
	return &msg, nil
}

// List 按回放顺序返回会话全部消息
// created_at 相同（同一毫秒落库）时按 id 升序兜底，保证全序。
func (s *Store) List(ctx context.Context, conversationID uint) ([]models.ConversationMessage, error) {
	rows := make([]models.ConversationMessage, 0)
	err := s.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// RecentHistory 返回会话最近 limit 条消息（limit<=0 表示全部），用于构建生成上下文
// 优先读缓存，未命中时读库并回填。
func (s *Store) RecentHistory(ctx context.Context, conversationID uint, limit int) ([]types.Message, error) {
	if s.cache != nil {
		if msgs, ok := s.cache.Load(ctx, conversationID); ok {
			return trimHistory(msgs, limit), nil
		}
	}

	rows, err := s.List(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	msgs := make([]types.Message, 0, len(rows))
	for _, r := range rows {
		msgs = append(msgs, types.Message{Role: r.Role, Content: r.Content})
	}

	if s.cache != nil {
		if err := s.cache.Save(ctx, conversationID, msgs); err != nil {
			s.logger.Warn("历史缓存写入失败: %v", err)
		}
	}
	return trimHistory(msgs, limit), nil
}

func trimHistory(msgs []types.Message, limit int) []types.Message {
	if limit <= 0 || len(msgs) <= limit {
		return msgs
	}
	return msgs[len(msgs)-limit:]
}
