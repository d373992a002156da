package config

import (
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Upstream  UpstreamConfig  `mapstructure:"upstream"`
	Knowledge KnowledgeConfig `mapstructure:"knowledge"`
	Writer    WriterConfig    `mapstructure:"writer"`
	CORS      CORSConfig      `mapstructure:"cors"`
	Log       LogConfig       `mapstructure:"log"`
	Session   SessionConfig   `mapstructure:"session"`
	Storage   StorageConfig   `mapstructure:"storage"`
}

type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	MaxHeaderBytes int           `mapstructure:"max_header_bytes"`
}

// UpstreamConfig 对话补全上游（OpenAI 兼容接口）
type UpstreamConfig struct {
	BaseURL  string        `mapstructure:"base_url"`
	ChatPath string        `mapstructure:"chat_path"`
	APIKey   string        `mapstructure:"api_key"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// KnowledgeConfig 知识库检索接口
type KnowledgeConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	QueryPath string        `mapstructure:"query_path"`
	AuthToken string        `mapstructure:"auth_token"`
	Timeout   time.Duration `mapstructure:"timeout"`
	TopN      int           `mapstructure:"top_n"`
}

// WriterConfig 写作助手（润色/续写）相关配置
type WriterConfig struct {
	DefaultModel   string `mapstructure:"default_model"`
	ReasoningModel string `mapstructure:"reasoning_model"`
	DefaultStyle   string `mapstructure:"default_style"`
	OutlineMaxLen  int    `mapstructure:"outline_max_len"`
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type SessionConfig struct {
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

type StorageConfig struct {
	Type      string `mapstructure:"type"`
	DataDir   string `mapstructure:"data_dir"`
	CacheSize int    `mapstructure:"cache_size"`
}

var cfg *Config

func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	viper.AutomaticEnv()
	viper.SetEnvPrefix("INKFLOW")

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	cfg = &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, err
	}

	// 配置文件优先，未设置时回落到环境变量
	if cfg.Upstream.APIKey == "" {
		if apiKey := os.Getenv("DEEPSEEK_API_KEY"); apiKey != "" {
			cfg.Upstream.APIKey = apiKey
		}
		if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
			cfg.Upstream.APIKey = apiKey
		}
	}
	if cfg.Knowledge.AuthToken == "" {
		if token := os.Getenv("KB_AUTH_TOKEN"); token != "" {
			cfg.Knowledge.AuthToken = token
		}
	}

	applyDefaults(cfg)

	return cfg, nil
}

func applyDefaults(c *Config) {
	if c.Upstream.ChatPath == "" {
		c.Upstream.ChatPath = "/v1/chat/completions"
	}
	if c.Knowledge.QueryPath == "" {
		c.Knowledge.QueryPath = "/backendApi/know/queryDocuments"
	}
	if c.Knowledge.TopN <= 0 {
		c.Knowledge.TopN = 8
	}
	if c.Writer.DefaultModel == "" {
		c.Writer.DefaultModel = "deepseek-chat"
	}
	if c.Writer.ReasoningModel == "" {
		c.Writer.ReasoningModel = "deepseek-reasoner"
	}
	if c.Writer.DefaultStyle == "" {
		c.Writer.DefaultStyle = "中性正式"
	}
	if c.Writer.OutlineMaxLen <= 0 {
		c.Writer.OutlineMaxLen = 6000
	}
	if c.Storage.CacheSize <= 0 {
		c.Storage.CacheSize = 100
	}
}

func Get() *Config {
	return cfg
}
