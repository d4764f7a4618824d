package database

import (
	"fmt"

	"sitebot-ai-server/src/configs"
	"sitebot-ai-server/src/models"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var db *gorm.DB

// InitDB 按配置初始化数据库连接并迁移表结构
// 会话创建依赖 (bot_id, session_id) 联合唯一索引在存储层保证原子性，
// 因此迁移必须先于服务启动完成。
func InitDB(cfg configs.DBConfig) error {
	var dialector gorm.Dialector
	switch cfg.Dialect {
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	case "sqlite", "":
		dialector = sqlite.Open(cfg.DSN)
	default:
		return fmt.Errorf("不支持的数据库类型: %s", cfg.Dialect)
	}

	conn, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return fmt.Errorf("连接数据库失败: %v", err)
	}

	if err := conn.AutoMigrate(
		&models.Bot{},
		&models.Conversation{},
		&models.ConversationMessage{},
	); err != nil {
		return fmt.Errorf("数据库迁移失败: %v", err)
	}

	db = conn
	return nil
}

// GetDB 获取全局数据库连接
func GetDB() *gorm.DB {
	return db
}

// SetDB 注入数据库连接（测试用）
func SetDB(conn *gorm.DB) {
	db = conn
}
