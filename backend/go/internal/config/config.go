package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// AppInfo 对应 'app' 部分，包含应用程序的基本信息。
type AppInfo struct {
	Name        string `yaml:"name"`        // 应用程序名称
	Version     string `yaml:"version"`     // 应用程序版本
	Environment string `yaml:"environment"` // 运行环境 (例如: "development", "production")
}

// LoggerConfig 定义了日志记录器的配置。
type LoggerConfig struct {
	Level string `yaml:"level"` // 日志级别 (例如: "info", "debug", "warn", "error")
}

// ServerConfig 定义了 HTTP 服务的配置。
type ServerConfig struct {
	Address      string `yaml:"address"`      // 监听地址 (例如: ":3001")
	CorsOrigin   string `yaml:"corsOrigin"`   // 允许跨域的前端地址
	DefaultLimit int    `yaml:"defaultLimit"` // 任务列表默认返回数量
}

// LLMConfig 包含了大模型调用的配置。
type LLMConfig struct {
	Provider       string               `yaml:"provider"`       // "openai", "ollama" 或 "gemini"
	APIKey         string               `yaml:"apiKey"`         // API 密钥，支持 ${OPENAI_API_KEY} 形式引用环境变量
	BaseURL        string               `yaml:"baseURL"`        // 兼容 OpenAI 协议的服务地址或 Ollama 地址
	Model          string               `yaml:"model"`          // 模型名称
	MaxTokens      int                  `yaml:"maxTokens"`      // 单次生成的最大 token 数
	Temperature    float32              `yaml:"temperature"`    // 采样温度
	Timeout        time.Duration        `yaml:"timeout"`        // 单次调用超时 (例如: "30s")
	MaxRetries     int                  `yaml:"maxRetries"`     // 失败后的重试次数，总尝试次数为 maxRetries+1
	RetryBackoff   time.Duration        `yaml:"retryBackoff"`   // 线性退避的基础等待时间
	CircuitBreaker CircuitBreakerConfig `yaml:"circuitBreaker"` // 保护大模型调用的熔断器
}

// AgentsConfig 定义了数字员工档案的加载方式。
type AgentsConfig struct {
	Dir         string `yaml:"dir"`         // 档案目录，为空时使用内置档案
	Watch       bool   `yaml:"watch"`       // 目录变化时自动重新加载
	AllowReload bool   `yaml:"allowReload"` // 是否开放 POST /api/agents/reload
}

// StorageConfig 选择任务存储的后端。
type StorageConfig struct {
	Driver     string        `yaml:"driver"`     // "mysql"、"mongo" 或 "memory"
	Collection string        `yaml:"collection"` // MongoDB 集合名称
	CacheTTL   time.Duration `yaml:"cacheTTL"`   // Redis 中终态任务的缓存时间，0 表示不启用缓存
}

// SessionConfig 定义了匿名会话的配置。
type SessionConfig struct {
	CleanupDays     int           `yaml:"cleanupDays"`     // 超过多少天未活跃的会话会被清理，0 表示不清理
	CleanupInterval time.Duration `yaml:"cleanupInterval"` // 清理任务的执行间隔
}

// RedisConfig 定义了 Redis 数据库的连接配置。
type RedisConfig struct {
	Address  string `yaml:"address"`  // Redis 服务器地址 (例如: "localhost:6379")
	Password string `yaml:"password"` // Redis 密码
	DB       int    `yaml:"db"`       // Redis 数据库编号
}

// MySQLConfig 定义了 MySQL 数据库的连接配置。
type MySQLConfig struct {
	Address         string `yaml:"address"`         // MySQL 服务器地址
	Username        string `yaml:"username"`        // 用户名
	Password        string `yaml:"password"`        // 密码
	Database        string `yaml:"database"`        // 数据库名称
	MaxOpenConns    int    `yaml:"maxOpenConns"`    // 最大打开连接数
	MaxIdleConns    int    `yaml:"maxIdleConns"`    // 最大空闲连接数
	ConnMaxLifetime int    `yaml:"connMaxLifetime"` // 连接最大生命周期 (秒)
}

// MongoConfig 定义了 MongoDB 数据库的连接配置。
type MongoConfig struct {
	Address  string `yaml:"address"`  // MongoDB 服务器地址
	Username string `yaml:"username"` // 用户名
	Password string `yaml:"password"` // 密码
	Database string `yaml:"database"` // 数据库名称
}

// KafkaConfig 定义了 Kafka 消息队列的连接配置。
type KafkaConfig struct {
	Brokers     []string `yaml:"brokers"`     // Kafka Broker 地址列表，为空时不发送任务事件
	EventsTopic string   `yaml:"eventsTopic"` // 任务终态事件主题
}

// DatabaseConfigs 包含所有数据库的配置。
type DatabaseConfigs struct {
	Redis   RedisConfig `yaml:"redis"`   // Redis 数据库配置
	MySQL   MySQLConfig `yaml:"mysql"`   // MySQL 数据库配置
	MongoDB MongoConfig `yaml:"mongodb"` // MongoDB 数据库配置
	Kafka   KafkaConfig `yaml:"kafka"`   // Kafka 消息队列配置
}

// MiddlewareConfig 包含所有中间件的配置。
type MiddlewareConfig struct {
	RateLimiter RateLimiterConfig `yaml:"rateLimiter"`
}

// RateLimiterConfig 定义了 /api 路由的限流配置，按客户端分别计数。
type RateLimiterConfig struct {
	Enabled     bool              `yaml:"enabled"`
	Algorithm   string            `yaml:"algorithm"` // 支持: "fixedWindow", "tokenBucket"
	FixedWindow FixedWindowConfig `yaml:"fixedWindow"`
	TokenBucket TokenBucketConfig `yaml:"tokenBucket"`
}

// FixedWindowConfig 定义了固定窗口计数器算法的配置。
type FixedWindowConfig struct {
	Limit  int           `yaml:"limit"`
	Window time.Duration `yaml:"window"` // 例如: "1h", "30s"
}

// TokenBucketConfig 定义了令牌桶算法的配置。
type TokenBucketConfig struct {
	Rate     float64 `yaml:"rate"` // 每秒速率
	Capacity int     `yaml:"capacity"`
}

// CircuitBreakerConfig 定义了熔断器的配置。
type CircuitBreakerConfig struct {
	Enabled          bool          `yaml:"enabled"`
	FailureThreshold uint32        `yaml:"failureThreshold"`
	SuccessThreshold uint32        `yaml:"successThreshold"`
	Timeout          time.Duration `yaml:"timeout"` // 例如: "30s"
}

// AppConfig 是整个 YAML 文件的根结构，包含了应用程序的所有配置。
type AppConfig struct {
	App        AppInfo          `yaml:"app"`        // 应用程序信息
	Logger     LoggerConfig     `yaml:"logger"`     // 日志记录器配置
	Server     ServerConfig     `yaml:"server"`     // HTTP 服务配置
	LLM        LLMConfig        `yaml:"llm"`        // 大模型配置
	Agents     AgentsConfig     `yaml:"agents"`     // 数字员工档案配置
	Storage    StorageConfig    `yaml:"storage"`    // 任务存储配置
	Session    SessionConfig    `yaml:"session"`    // 会话配置
	Databases  DatabaseConfigs  `yaml:"databases"`  // 数据库配置
	Middleware MiddlewareConfig `yaml:"middleware"` // 中间件配置
}

// LoadConfig 函数从指定路径加载并解析 YAML 配置文件。
// 文件中的 ${VAR} 会先被替换为环境变量的值，密钥因此不必写入文件。
//
// 参数:
//
//	path: YAML 配置文件的路径。
//
// 返回值:
//
//	*AppConfig: 解析后并填充了默认值的应用程序配置。
//	error: 如果文件读取或解析失败，则返回错误。
func LoadConfig(path string) (*AppConfig, error) {
	yamlFile, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("无法读取 YAML 文件 '%s': %w", path, err)
	}
	return Parse(yamlFile)
}

// Parse 解析 YAML 内容并填充默认值。
func Parse(data []byte) (*AppConfig, error) {
	// maxRetries 为 0 表示不重试，预置 -1 用来区分"未配置"。
	cfg := AppConfig{LLM: LLMConfig{MaxRetries: -1}}
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, fmt.Errorf("解析 YAML 文件失败: %w", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyDefaults 为未配置的项填充默认值。
func (c *AppConfig) ApplyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "AI Boss"
	}
	if c.App.Environment == "" {
		c.App.Environment = "development"
	}
	if c.Logger.Level == "" {
		c.Logger.Level = "info"
	}
	if c.Server.Address == "" {
		c.Server.Address = ":3001"
	}
	if c.Server.CorsOrigin == "" {
		c.Server.CorsOrigin = "http://localhost:3000"
	}
	if c.Server.DefaultLimit <= 0 {
		c.Server.DefaultLimit = 20
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = "openai"
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "gpt-4o-mini"
	}
	if c.LLM.MaxTokens <= 0 {
		c.LLM.MaxTokens = 4000
	}
	if c.LLM.Temperature == 0 {
		c.LLM.Temperature = 0.7
	}
	if c.LLM.Timeout <= 0 {
		c.LLM.Timeout = 30 * time.Second
	}
	if c.LLM.MaxRetries < 0 {
		c.LLM.MaxRetries = 1
	}
	if c.LLM.RetryBackoff <= 0 {
		c.LLM.RetryBackoff = time.Second
	}
	if c.LLM.CircuitBreaker.Enabled {
		if c.LLM.CircuitBreaker.FailureThreshold == 0 {
			c.LLM.CircuitBreaker.FailureThreshold = 5
		}
		if c.LLM.CircuitBreaker.SuccessThreshold == 0 {
			c.LLM.CircuitBreaker.SuccessThreshold = 1
		}
		if c.LLM.CircuitBreaker.Timeout <= 0 {
			c.LLM.CircuitBreaker.Timeout = 30 * time.Second
		}
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "mysql"
	}
	if c.Storage.Collection == "" {
		c.Storage.Collection = "tasks"
	}
	if c.Session.CleanupInterval <= 0 {
		c.Session.CleanupInterval = 24 * time.Hour
	}
	if c.Databases.Kafka.EventsTopic == "" {
		c.Databases.Kafka.EventsTopic = "task_events"
	}
	rl := &c.Middleware.RateLimiter
	if rl.Algorithm == "" {
		rl.Algorithm = "fixedWindow"
	}
	if rl.FixedWindow.Limit <= 0 {
		rl.FixedWindow.Limit = 20
	}
	if rl.FixedWindow.Window <= 0 {
		rl.FixedWindow.Window = time.Hour
	}
}

// Validate 检查配置中互相矛盾或无法使用的取值。
func (c *AppConfig) Validate() error {
	switch c.LLM.Provider {
	case "openai", "ollama", "gemini":
	default:
		return fmt.Errorf("不支持的 LLM 提供商: %s", c.LLM.Provider)
	}
	switch c.Storage.Driver {
	case "mysql", "mongo", "memory":
	default:
		return fmt.Errorf("不支持的存储类型: %s", c.Storage.Driver)
	}
	switch c.Middleware.RateLimiter.Algorithm {
	case "fixedWindow", "tokenBucket":
	default:
		return fmt.Errorf("unknown rate limiter algorithm: %s", c.Middleware.RateLimiter.Algorithm)
	}
	return nil
}
