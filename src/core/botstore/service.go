package botstore

import (
	"context"
	"errors"

	"sitebot-ai-server/src/configs"
	"sitebot-ai-server/src/core/utils"
	"sitebot-ai-server/src/models"

	"gorm.io/gorm"
)

// ErrBotNotFound token未知或Bot已停用
var ErrBotNotFound = errors.New("Bot不存在或已停用")

// Service Bot查询服务接口
// Bot的增删改由管理端负责，中继侧只按token读取。
type Service interface {
	GetActiveByToken(ctx context.Context, token string) (*models.Bot, error)
	EnsureSeedBots(ctx context.Context, seeds []configs.SeedBotConfig) error
}

// DefaultService 默认Bot查询服务实现
type DefaultService struct {
	db     *gorm.DB
	logger *utils.Logger
}

// NewService 创建Bot查询服务实例
func NewService(db *gorm.DB, logger *utils.Logger) Service {
	return &DefaultService{
		db:     db,
		logger: logger,
	}
}

// GetActiveByToken 按凭证token获取启用中的Bot
// 停用的Bot与不存在的token对外不可区分，统一返回 ErrBotNotFound。
func (s *DefaultService) GetActiveByToken(ctx context.Context, token string) (*models.Bot, error) {
	if token == "" {
		return nil, ErrBotNotFound
	}
	var bot models.Bot
	err := s.db.WithContext(ctx).
		Where("token = ? AND is_active = ?", token, true).
		First(&bot).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBotNotFound
		}
		return nil, err
	}
	return &bot, nil
}

// EnsureSeedBots 按配置预置Bot，token留空时自动生成
// 以name为稳定键做幂等：重启时同名Bot已存在则跳过，绝不重复建行，
// 否则生成token的Bot每次重启都会分裂出新身份。生成的token只在
// 创建时打一次日志，便于运维交给嵌入方。
func (s *DefaultService) EnsureSeedBots(ctx context.Context, seeds []configs.SeedBotConfig) error {
	for _, seed := range seeds {
		if seed.Name == "" {
			continue
		}

		var count int64
		if err := s.db.WithContext(ctx).Model(&models.Bot{}).
			Where("name = ?", seed.Name).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}

		token := seed.Token
		if token != "" {
			if err := s.db.WithContext(ctx).Model(&models.Bot{}).
				Where("token = ?", token).Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				continue
			}
		} else {
			token = utils.GenerateRandomKeyWithNanoid(64)
		}

		bot := models.Bot{
			Name:         seed.Name,
			SystemPrompt: seed.SystemPrompt,
			ModelName:    seed.ModelName,
			Temperature:  seed.Temperature,
			Token:        token,
			IsActive:     true,
		}
		if err := s.db.WithContext(ctx).Create(&bot).Error; err != nil {
			s.logger.Error("预置Bot创建失败: %s err=%v", seed.Name, err)
			return err
		}
		s.logger.Info("预置Bot创建成功: %s (ID: %d), token: %s", bot.Name, bot.ID, bot.Token)
	}
	return nil
}
