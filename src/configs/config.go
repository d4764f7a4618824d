package configs

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// RedisConfig Redis配置
type RedisConfig struct {
	Addr     string `yaml:"addr" json:"addr"`         // Redis地址，留空则不启用缓存
	Password string `yaml:"password" json:"password"` // Redis密码
	DB       int    `yaml:"db" json:"db"`             // Redis数据库
	Service  string `yaml:"service" json:"service"`   // Redis键前缀服务名
	TTL      int    `yaml:"ttl" json:"ttl"`           // 缓存过期时间(秒)，<=0 表示不过期
}

// DBConfig 数据库配置
type DBConfig struct {
	Dialect string `yaml:"dialect" json:"dialect"` // 数据库类型，可选：postgres/sqlite
	DSN     string `yaml:"dsn" json:"dsn"`         // 数据库连接字符串
}

// LLMConfig LLM配置结构
type LLMConfig struct {
	ModelName   string            `yaml:"model_name"    json:"model_name"`    // 默认模型名称（Bot未指定时使用）
	BaseURL     string            `yaml:"url"           json:"url"`           // API地址
	APIKey      string            `yaml:"api_key"       json:"api_key"`       // API密钥
	Temperature float64           `yaml:"temperature"   json:"temperature"`   // 温度参数
	MaxTokens   int               `yaml:"max_tokens"    json:"max_tokens"`    // 最大令牌数
	Timeout     int               `yaml:"timeout"       json:"timeout"`       // 单次生成超时(秒)
	ModelAlias  map[string]string `yaml:"model_aliases" json:"model_aliases"` // 旧模型名到当前别名的映射（追加到内置表）
}

// SeedBotConfig 启动时预置的Bot（token留空则自动生成）
type SeedBotConfig struct {
	Name         string  `yaml:"name"          json:"name"`
	Token        string  `yaml:"token"         json:"token"`
	SystemPrompt string  `yaml:"system_prompt" json:"system_prompt"`
	ModelName    string  `yaml:"model_name"    json:"model_name"`
	Temperature  float64 `yaml:"temperature"   json:"temperature"`
}

// Config 主配置结构
type Config struct {
	Server struct {
		IP   string `yaml:"ip" json:"ip"`
		Port int    `yaml:"port" json:"port"`
	} `yaml:"server" json:"server"`

	// 数据库配置
	DB DBConfig `yaml:"db" json:"db"`

	// Redis缓存配置（会话历史缓存，可选）
	RedisCache RedisConfig `yaml:"redis_cache" json:"redis_cache"`

	// LLM后端配置
	LLM LLMConfig `yaml:"llm" json:"llm"`

	DefaultPrompt string `yaml:"prompt" json:"prompt"` // Bot未配置system_prompt时的默认提示词

	// 构建生成上下文时最多携带的历史消息条数（<=0 表示全部）
	ContextWindow int `yaml:"context_window" json:"context_window"`

	// 预置Bot列表
	Bots []SeedBotConfig `yaml:"bots" json:"bots"`

	Log struct {
		LogLevel string `yaml:"log_level" json:"log_level"`
		LogDir   string `yaml:"log_dir" json:"log_dir"`
		LogFile  string `yaml:"log_file" json:"log_file"`
	} `yaml:"log" json:"log"`
}

var (
	Cfg *Config
)

// LoadConfig 从YAML文件加载配置并应用默认值
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %v", err)
	}

	config := &Config{}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %v", err)
	}

	// 环境变量优先：便于不落盘保存密钥
	if key := os.Getenv("GROQ_API_KEY"); key != "" {
		config.LLM.APIKey = key
	}

	applyDefaults(config)

	Cfg = config
	return config, nil
}

func applyDefaults(config *Config) {
	if config.Server.IP == "" {
		config.Server.IP = "0.0.0.0"
	}
	if config.Server.Port == 0 {
		config.Server.Port = 8080
	}
	if config.DB.Dialect == "" {
		config.DB.Dialect = "sqlite"
	}
	if config.DB.DSN == "" {
		config.DB.DSN = "sitebot.db"
	}
	if config.LLM.BaseURL == "" {
		config.LLM.BaseURL = "https://api.groq.com/openai/v1"
	}
	if config.LLM.Timeout <= 0 {
		config.LLM.Timeout = 60
	}
	if config.ContextWindow == 0 {
		config.ContextWindow = 30
	}
	if config.DefaultPrompt == "" {
		config.DefaultPrompt = "You are a helpful assistant for this website. Answer concisely and helpfully."
	}
	if config.Log.LogLevel == "" {
		config.Log.LogLevel = "INFO"
	}
}
