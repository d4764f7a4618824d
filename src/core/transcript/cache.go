package transcript

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"sitebot-ai-server/src/configs"
	"sitebot-ai-server/src/core/types"
	"sitebot-ai-server/src/core/utils"

	"github.com/redis/go-redis/v9"
)

// HistoryCache 使用Redis缓存会话历史（哈希：key 固定，field=会话ID）
// 仅服务于生成上下文的读取，数据库始终是权威存储。
type HistoryCache struct {
	client  *redis.Client
	hashKey string
	logger  *utils.Logger
	ttl     time.Duration
}

// NewHistoryCache 创建Redis历史缓存
func NewHistoryCache(cfg configs.RedisConfig, logger *utils.Logger) (*HistoryCache, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("Redis地址未配置")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("Redis连接失败: %v", err)
	}

	service := cfg.Service
	if service == "" {
		service = "sitebot"
	}

	var ttl time.Duration
	if cfg.TTL > 0 {
		ttl = time.Duration(cfg.TTL) * time.Second
	}

	return &HistoryCache{
		client:  client,
		hashKey: fmt.Sprintf("%s:transcript", service),
		logger:  logger,
		ttl:     ttl,
	}, nil
}

func (hc *HistoryCache) field(conversationID uint) string {
	return strconv.FormatUint(uint64(conversationID), 10)
}

// Load 读取会话历史，未命中或数据异常返回 ok=false
func (hc *HistoryCache) Load(ctx context.Context, conversationID uint) ([]types.Message, bool) {
	val, err := hc.client.HGet(ctx, hc.hashKey, hc.field(conversationID)).Result()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		hc.logger.Warn("历史缓存读取失败: %v", err)
		return nil, false
	}
	var msgs []types.Message
	if err := json.Unmarshal([]byte(val), &msgs); err != nil {
		hc.logger.Warn("历史缓存数据异常，忽略: %v", err)
		return nil, false
	}
	return msgs, true
}

// Save 写入会话历史
func (hc *HistoryCache) Save(ctx context.Context, conversationID uint, msgs []types.Message) error {
	bytes, err := json.Marshal(msgs)
	if err != nil {
		return err
	}
	if err := hc.client.HSet(ctx, hc.hashKey, hc.field(conversationID), bytes).Err(); err != nil {
		return err
	}
	if hc.ttl > 0 {
		_ = hc.client.Expire(ctx, hc.hashKey, hc.ttl).Err()
	}
	return nil
}

// Invalidate 追加消息后删除对应缓存
func (hc *HistoryCache) Invalidate(ctx context.Context, conversationID uint) error {
	return hc.client.HDel(ctx, hc.hashKey, hc.field(conversationID)).Err()
}
