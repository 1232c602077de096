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
	"github.com/go-playground/validator/v10"
	"github.com/samber/oops"
	"gopkg.in/yaml.v3"

	"github.com/zhouzirui/moodflip/internal/service/ai"
)

const (
	ProviderOpenAI = "openai"
	ProviderArk    = "ark"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server   ServerConfig
	AI       AIConfig
	Detector DetectorConfig
	Events   EventsConfig
	Log      LogConfig
}

// Load 从环境变量加载配置并做校验。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	aiCfg, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	detector, err := loadDetectorConfig()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server:   server,
		AI:       aiCfg,
		Detector: detector,
		Events: EventsConfig{
			NATSURL:   getEnvOrDefault("NATS_URL", ""),
			NATSToken: getEnvOrDefault("NATS_TOKEN", ""),
		},
		Log: LogConfig{
			Level: strings.ToLower(getEnvOrDefault("LOG_LEVEL", "info")),
			File:  getEnvOrDefault("LOG_FILE", ""),
		},
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(cfg); err != nil {
		return nil, oops.In("config").Errorf("failed to validate config: %w", err)
	}

	return cfg, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr string `validate:"required"`
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig() (ServerConfig, error) {
	port := getEnvOrDefault("PORT", "8080")

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		return ServerConfig{Addr: port}, nil
	}

	if _, err := strconv.Atoi(port); err != nil {
		return ServerConfig{}, oops.In("config").With("PORT", port).Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// AIConfig 描述回复引擎相关配置。
type AIConfig struct {
	Provider string        `validate:"oneof=openai ark"`
	Timeout  time.Duration `validate:"gt=0"`

	OpenAIKey     string
	OpenAIBaseURL string `validate:"omitempty,url"`
	OpenAIModel   string

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

// Enabled 表示当前 provider 是否提供了必需的密钥。
func (c AIConfig) Enabled() bool {
	if c.Provider == ProviderArk {
		return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
	}
	return c.OpenAIKey != "" && c.OpenAIModel != ""
}

// NewChatModel 使用配置创建一个模型实例。
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, oops.In("config").With("provider", c.Provider).
			Errorf("reply engine credentials or model missing for provider %s", c.Provider)
	}

	if c.Provider == ProviderOpenAI {
		return ai.NewOpenAIChatModel(ai.OpenAIConfig{
			APIKey:  c.OpenAIKey,
			BaseURL: c.OpenAIBaseURL,
			Model:   c.OpenAIModel,
		})
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

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   c.MaxTokens,
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

	topP, err := parseOptionalFloatEnv("ARK_TOP_P")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("ARK_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}

	timeout, err := parseDurationEnv("REPLY_TIMEOUT", 30*time.Second)
	if err != nil {
		return AIConfig{}, err
	}

	return AIConfig{
		Provider:      strings.ToLower(getEnvOrDefault("REPLY_PROVIDER", ProviderOpenAI)),
		Timeout:       timeout,
		OpenAIKey:     getEnvOrDefault("OPENAI_API_KEY", ""),
		OpenAIBaseURL: getEnvOrDefault("OPENAI_BASE_URL", "https://api.openai.com/v1/"),
		OpenAIModel:   getEnvOrDefault("OPENAI_MODEL", "gpt-4o-mini"),
		APIKey:        getEnvOrDefault("ARK_API_KEY", ""),
		AccessKey:     getEnvOrDefault("ARK_ACCESS_KEY", ""),
		SecretKey:     getEnvOrDefault("ARK_SECRET_KEY", ""),
		Model:         getEnvOrDefault("ARK_MODEL", ""),
		BaseURL:       getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:        getEnvOrDefault("ARK_REGION", "cn-beijing"),
		Temperature:   temperature,
		TopP:          topP,
		MaxTokens:     maxTokens,
	}, nil
}

// DetectorConfig 描述情绪检测级联的配置。
type DetectorConfig struct {
	PrimaryURL        string        `validate:"omitempty,url"`
	SecondaryURL      string        `validate:"omitempty,url"`
	InitTimeout       time.Duration `validate:"gt=0"`
	SampleTimeout     time.Duration `validate:"gt=0"`
	SampleInterval    time.Duration `validate:"gt=0"`
	SimulatedInterval time.Duration `validate:"gt=0"`
	SimulatorSeed     uint64
	LabelsFile        string
	// LabelOverrides 以后端类型为键，值为原始标签到规范标签的映射。
	LabelOverrides map[string]map[string]string
}

func loadDetectorConfig() (DetectorConfig, error) {
	initTimeout, err := parseDurationEnv("DETECTOR_INIT_TIMEOUT", 10*time.Second)
	if err != nil {
		return DetectorConfig{}, err
	}
	sampleTimeout, err := parseDurationEnv("DETECTOR_SAMPLE_TIMEOUT", 2*time.Second)
	if err != nil {
		return DetectorConfig{}, err
	}
	sampleInterval, err := parseDurationEnv("DETECTOR_SAMPLE_INTERVAL", time.Second)
	if err != nil {
		return DetectorConfig{}, err
	}
	simulatedInterval, err := parseDurationEnv("DETECTOR_SIMULATED_INTERVAL", 3*time.Second)
	if err != nil {
		return DetectorConfig{}, err
	}

	seed := uint64(time.Now().UnixNano())
	if raw := getEnvOrDefault("DETECTOR_SIMULATOR_SEED", ""); raw != "" {
		seed, err = strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return DetectorConfig{}, fmt.Errorf("invalid DETECTOR_SIMULATOR_SEED value %q: %w", raw, err)
		}
	}

	labelsFile := getEnvOrDefault("DETECTOR_LABELS_FILE", "")
	overrides, err := LoadLabelOverrides(labelsFile)
	if err != nil {
		return DetectorConfig{}, err
	}

	return DetectorConfig{
		PrimaryURL:        getEnvOrDefault("DETECTOR_PRIMARY_URL", ""),
		SecondaryURL:      getEnvOrDefault("DETECTOR_SECONDARY_URL", ""),
		InitTimeout:       initTimeout,
		SampleTimeout:     sampleTimeout,
		SampleInterval:    sampleInterval,
		SimulatedInterval: simulatedInterval,
		SimulatorSeed:     seed,
		LabelsFile:        labelsFile,
		LabelOverrides:    overrides,
	}, nil
}

// LoadLabelOverrides 读取 YAML 标签映射文件，path 为空时返回 nil。
//
//	primary:
//	  contempt: disgusted
//	secondary:
//	  fear: fearful
func LoadLabelOverrides(path string) (map[string]map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, oops.In("config").With("path", path).Errorf("failed to read label overrides: %w", err)
	}

	var overrides map[string]map[string]string
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return nil, oops.In("config").With("path", path).Errorf("failed to parse label overrides: %w", err)
	}

	normalized := make(map[string]map[string]string, len(overrides))
	for kind, table := range overrides {
		normalized[strings.ToLower(strings.TrimSpace(kind))] = table
	}
	return normalized, nil
}

// EventsConfig 描述可选的 NATS 事件发布。
type EventsConfig struct {
	NATSURL   string
	NATSToken string
}

// LogConfig 描述日志输出。
type LogConfig struct {
	Level string `validate:"oneof=debug info warn error"`
	File  string
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
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
