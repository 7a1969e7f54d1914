package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server    ServerConfig
	AI        AIConfig
	Knowledge KnowledgeConfig
	Embed     EmbedConfig
	Admin     AdminConfig
	RateLimit RateLimitConfig
	Widget    WidgetConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	knowledge, err := loadKnowledgeConfig()
	if err != nil {
		return nil, err
	}

	rateLimit, err := loadRateLimitConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:    server,
		AI:        ai,
		Knowledge: knowledge,
		Embed: EmbedConfig{
			FrameAncestors: getEnvOrDefault("FRAME_ANCESTORS", "self *"),
		},
		Admin: AdminConfig{
			Token: strings.TrimSpace(os.Getenv("ADMIN_TOKEN")),
		},
		RateLimit: rateLimit,
		Widget: WidgetConfig{
			BaseURL: strings.TrimRight(getEnvOrDefault("CHAT_BASE_URL", "http://127.0.0.1:8080"), "/"),
		},
	}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr string
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// AIConfig 描述大模型相关配置。
type AIConfig struct {
	APIKey      string
	AccessKey   string
	SecretKey   string
	Model       string
	BaseURL     string
	Region      string
	Temperature *float64
	TopP        *float64
	MaxTokens   *int
}

// Enabled 表示是否提供了必需的密钥。
func (c AIConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel 使用配置创建一个模型实例。
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("ark credentials or model missing: set ARK_API_KEY + Model, or ARK_ACCESS_KEY/ARK_SECRET_KEY + Model")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var topP *float32
	if c.TopP != nil {
		val := float32(*c.TopP)
		topP = &val
	}

	var maxTokens *int
	if c.MaxTokens != nil {
		val := *c.MaxTokens
		maxTokens = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		TopP:        topP,
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadAIConfig() (AIConfig, error) {
	temperature, err := parseOptionalFloatEnv("ARK_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}
	if temperature == nil {
		// FAQ answers should stay close to the sheet.
		defaultTemperature := 0.2
		temperature = &defaultTemperature
	}

	topP, err := parseOptionalFloatEnv("ARK_TOP_P")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("ARK_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}

	return AIConfig{
		APIKey:      strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		AccessKey:   strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey:   strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		Model:       strings.TrimSpace(os.Getenv("Model")),
		BaseURL:     getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:      getEnvOrDefault("ARK_REGION", "cn-beijing"),
		Temperature: temperature,
		TopP:        topP,
		MaxTokens:   maxTokens,
	}, nil
}

// KnowledgeConfig 描述 CSV 知识库的来源与缓存策略。
type KnowledgeConfig struct {
	CSVURL      string
	CacheTTL    time.Duration
	RedisURL    string
	MatchCutoff float64
}

func loadKnowledgeConfig() (KnowledgeConfig, error) {
	ttl := 300
	if override, err := parseOptionalIntEnv("CACHE_TTL_SECONDS"); err != nil {
		return KnowledgeConfig{}, err
	} else if override != nil {
		if *override < 0 {
			return KnowledgeConfig{}, fmt.Errorf("invalid CACHE_TTL_SECONDS value %d: must not be negative", *override)
		}
		ttl = *override
	}

	cutoff := 0.55
	if override, err := parseOptionalFloatEnv("KB_MATCH_CUTOFF"); err != nil {
		return KnowledgeConfig{}, err
	} else if override != nil {
		if *override < 0 || *override > 1 {
			return KnowledgeConfig{}, fmt.Errorf("invalid KB_MATCH_CUTOFF value %v: must be within [0, 1]", *override)
		}
		cutoff = *override
	}

	return KnowledgeConfig{
		CSVURL:      trimQuotes(os.Getenv("CSV_URL")),
		CacheTTL:    time.Duration(ttl) * time.Second,
		RedisURL:    strings.TrimSpace(os.Getenv("REDIS_URL")),
		MatchCutoff: cutoff,
	}, nil
}

// EmbedConfig 控制 iframe 嵌入相关的响应头。
type EmbedConfig struct {
	FrameAncestors string
}

// AdminConfig 管理页面的访问控制；Token 为空时不校验。
type AdminConfig struct {
	Token string
}

// RateLimitConfig 限制单个客户端调用 /api/chat 的频率。
type RateLimitConfig struct {
	PerMinute int
	Burst     int
}

func loadRateLimitConfig() (RateLimitConfig, error) {
	cfg := RateLimitConfig{PerMinute: 30, Burst: 5}

	perMinute, err := parseOptionalIntEnv("CHAT_RATE_PER_MINUTE")
	if err != nil {
		return RateLimitConfig{}, err
	}
	if perMinute != nil {
		cfg.PerMinute = *perMinute
	}

	burst, err := parseOptionalIntEnv("CHAT_RATE_BURST")
	if err != nil {
		return RateLimitConfig{}, err
	}
	if burst != nil {
		cfg.Burst = *burst
	}
	if cfg.Burst < 1 {
		cfg.Burst = 1
	}

	return cfg, nil
}

// Enabled reports whether requests should be throttled at all.
func (c RateLimitConfig) Enabled() bool {
	return c.PerMinute > 0
}

// WidgetConfig 是终端客户端连接后端所需的配置。
type WidgetConfig struct {
	BaseURL string
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

// trimQuotes drops surrounding whitespace and quotes, which .env files often carry.
func trimQuotes(raw string) string {
	return strings.Trim(strings.TrimSpace(raw), `"'`)
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
