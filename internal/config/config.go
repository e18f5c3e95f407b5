package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// 环境变量名
const (
	EnvAPIKey   = "RESUME_ENGINE_API_KEY"
	EnvAPIURL   = "RESUME_ENGINE_API_URL"
	EnvModel    = "RESUME_ENGINE_MODEL"
	EnvStoreDir = "RESUME_ENGINE_STORE_DIR"
)

// Config 引擎配置
type Config struct {
	LLM        LLMConfig        `yaml:"llm"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	OCR        OCRConfig        `yaml:"ocr"`
	Tika       TikaConfig       `yaml:"tika"`
	Store      StoreConfig      `yaml:"store"`
	MinIO      MinIOConfig      `yaml:"minio"`
	Redis      RedisConfig      `yaml:"redis"`
	Resilience ResilienceConfig `yaml:"resilience"`
	Layout     LayoutConfig     `yaml:"layout"`
	Match      MatchConfig      `yaml:"match"`
	Quality    QualityConfig    `yaml:"quality"`
	Logger     LoggerConfig     `yaml:"logger"`
	Tracing    TracingConfig    `yaml:"tracing"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// LLMConfig 叙述生成服务（OpenAI兼容的 chat completions 接口）
type LLMConfig struct {
	APIKey           string  `yaml:"api_key"`
	APIURL           string  `yaml:"api_url"`
	Model            string  `yaml:"model"`
	Temperature      float64 `yaml:"temperature"`
	MaxTokens        int     `yaml:"max_tokens"`
	MatchTimeout     string  `yaml:"match_timeout"`   // 整体匹配评估超时，例如 "30s"
	QualityTimeout   string  `yaml:"quality_timeout"` // 单个质量维度超时
	QPM              int     `yaml:"qpm"`             // 每分钟请求数限制
	MaxRetries       int     `yaml:"max_retries"`
	RetryWaitSeconds int     `yaml:"retry_wait_seconds"`
}

// EmbeddingConfig 向量服务配置
type EmbeddingConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	BaseURL    string `yaml:"base_url"`
	Timeout    string `yaml:"timeout"`
	CacheTTL   string `yaml:"cache_ttl"` // 0 或空表示不缓存
}

// OCRConfig 光栅路径外部命令配置
type OCRConfig struct {
	Tesseract     string  `yaml:"tesseract"`
	Pdftoppm      string  `yaml:"pdftoppm"`
	Lang          string  `yaml:"lang"`
	DPI           int     `yaml:"dpi"`
	PSM           int     `yaml:"psm"`
	OEM           int     `yaml:"oem"`
	TessdataDir   string  `yaml:"tessdata_dir"`
	HEICConverter string  `yaml:"heic_converter"` // heif-convert | magick | sips，空表示自动探测
	MaxPages      int     `yaml:"max_pages"`
	MinConfidence float64 `yaml:"min_confidence"`
	Timeout       string  `yaml:"timeout"`
}

// TikaConfig 矢量PDF连续文本的来源
type TikaConfig struct {
	Type        string `yaml:"type"`       // eino | tika
	ServerURL   string `yaml:"server_url"` // 例如 http://localhost:9998
	Timeout     int    `yaml:"timeout"`    // 秒
	Annotations bool   `yaml:"annotations"`
}

// StoreConfig 文档存储选择
type StoreConfig struct {
	Type     string `yaml:"type"` // local | minio
	LocalDir string `yaml:"local_dir"`
}

// MinIOConfig MinIO配置结构
type MinIOConfig struct {
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"accessKeyID"`
	SecretAccessKey string `yaml:"secretAccessKey"`
	UseSSL          bool   `yaml:"useSSL"`
	BucketName      string `yaml:"bucketName"`
	Location        string `yaml:"location"` // 可选，存储桶区域
}

// RedisConfig 向量缓存使用的 Redis
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	// 连接池设置
	PoolSize     int `yaml:"pool_size"`
	MinIdleConns int `yaml:"min_idle_conns"`
	// 超时设置(秒)
	DialTimeoutSeconds  int `yaml:"dial_timeout_seconds"`
	ReadTimeoutSeconds  int `yaml:"read_timeout_seconds"`
	WriteTimeoutSeconds int `yaml:"write_timeout_seconds"`
	MaxRetries          int `yaml:"max_retries"`
}

// ResilienceConfig 外部调用的重试与熔断
type ResilienceConfig struct {
	RetryMaxAttempts        int     `yaml:"retry_max_attempts"`
	RetryInitialBackoff     string  `yaml:"retry_initial_backoff"`
	RetryMaxBackoff         string  `yaml:"retry_max_backoff"`
	RetryMultiplier         float64 `yaml:"retry_multiplier"`
	BreakerEnabled          bool    `yaml:"breaker_enabled"`
	BreakerMinRequests      uint32  `yaml:"breaker_min_requests"`
	BreakerFailureRatio     float64 `yaml:"breaker_failure_ratio"`
	BreakerOpenTimeout      string  `yaml:"breaker_open_timeout"`
	BreakerHalfOpenMaxCalls uint32  `yaml:"breaker_half_open_max_calls"`
}

// LayoutConfig 版面分析阈值，零值表示使用内置默认值
type LayoutConfig struct {
	VectorColumnGapRatio float64 `yaml:"vector_column_gap_ratio"`
	RasterColumnGapRatio float64 `yaml:"raster_column_gap_ratio"`
	MaxColumns           int     `yaml:"max_columns"`
	HeaderStdDevFactor   float64 `yaml:"header_stddev_factor"`
	HeaderTopZoneRatio   float64 `yaml:"header_top_zone_ratio"`
	SectionGapFactor     float64 `yaml:"section_gap_factor"`
	MinBlocksForColumns  int     `yaml:"min_blocks_for_columns"`
	TopFontSizes         int     `yaml:"top_font_sizes"`
	MaxHeaderCandidates  int     `yaml:"max_header_candidates"`
	MaxSections          int     `yaml:"max_sections"`
}

// MatchConfig 匹配打分参数
type MatchConfig struct {
	TransformerWeight float64 `yaml:"transformer_weight"`
	ExternalWeight    float64 `yaml:"external_weight"`
	MaxMatchingSkills int     `yaml:"max_matching_skills"`
	MaxMissingSkills  int     `yaml:"max_missing_skills"`
	MaxSuggestions    int     `yaml:"max_suggestions"`
	ResumeCharLimit   int     `yaml:"resume_char_limit"`
	Concurrency       int     `yaml:"concurrency"`
	DefaultSkillsTopN int     `yaml:"default_skills_top_n"`
}

// QualityConfig 质量评估参数
type QualityConfig struct {
	Weights      map[string]float64 `yaml:"weights"`
	DefaultScore int                `yaml:"default_score"`
}

// LoggerConfig 日志配置
type LoggerConfig struct {
	Level        string `yaml:"level"`         // debug, info, warn, error
	Format       string `yaml:"format"`        // json, pretty
	TimeFormat   string `yaml:"time_format"`   // 时间格式
	ReportCaller bool   `yaml:"report_caller"` // 是否报告调用位置
}

// TracingConfig 链路追踪配置
type TracingConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Endpoint    string  `yaml:"endpoint"`
	Insecure    bool    `yaml:"insecure"`
	ServiceName string  `yaml:"service_name"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
}

// LoadConfig 从文件加载配置
// configPath 为空时在常见位置查找；都找不到时使用默认配置。
// 环境变量覆盖总是生效。
func LoadConfig(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = findConfigFile()
		if configPath == "" {
			config := createDefaultConfig()
			applyEnvOverrides(config)
			return config, nil
		}
	}

	config, err := readConfigFile(configPath)
	if err != nil {
		return nil, err
	}
	applyEnvOverrides(config)
	return config, nil
}

// LoadConfigFromFileOnly 从文件加载配置，不从环境变量覆盖
func LoadConfigFromFileOnly(configPath string) (*Config, error) {
	if configPath == "" {
		return nil, fmt.Errorf("必须提供配置文件路径")
	}
	return readConfigFile(configPath)
}

func findConfigFile() string {
	searchPaths := []string{
		"config.yaml",
		"../config.yaml",
		"../../config.yaml",
		filepath.Join(os.Getenv("HOME"), ".resume-engine", "config.yaml"),
	}

	// 可执行文件所在目录及其上级
	if execPath, err := os.Executable(); err == nil {
		execDir := filepath.Dir(execPath)
		searchPaths = append(searchPaths,
			filepath.Join(execDir, "config.yaml"),
			filepath.Join(execDir, "..", "config.yaml"),
		)
	}

	for _, path := range searchPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

func readConfigFile(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); err != nil {
		return nil, fmt.Errorf("配置文件不存在: %s", configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	// 先填默认值，YAML 中出现的字段再覆盖
	config := createDefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}
	return config, nil
}

func applyEnvOverrides(config *Config) {
	if v := os.Getenv(EnvAPIKey); v != "" {
		config.LLM.APIKey = v
	}
	if v := os.Getenv(EnvAPIURL); v != "" {
		config.LLM.APIURL = v
	}
	if v := os.Getenv(EnvModel); v != "" {
		config.LLM.Model = v
	}
	if v := os.Getenv(EnvStoreDir); v != "" {
		config.Store.LocalDir = v
	}
}

// createDefaultConfig 默认配置
func createDefaultConfig() *Config {
	config := &Config{}

	config.LLM.APIURL = "https://dashscope.aliyuncs.com/compatible-mode/v1/chat/completions"
	config.LLM.Model = "qwen-turbo"
	config.LLM.Temperature = 0.1
	config.LLM.MaxTokens = 1024
	config.LLM.MatchTimeout = "30s"
	config.LLM.QualityTimeout = "30s"
	config.LLM.QPM = 1200
	config.LLM.MaxRetries = 3
	config.LLM.RetryWaitSeconds = 2

	config.Embedding.Enabled = true
	config.Embedding.Model = "text-embedding-v3"
	config.Embedding.Dimensions = 1024
	config.Embedding.BaseURL = "https://dashscope.aliyuncs.com/compatible-mode/v1/embeddings"
	config.Embedding.Timeout = "20s"
	config.Embedding.CacheTTL = "24h"

	config.OCR.Tesseract = "tesseract"
	config.OCR.Pdftoppm = "pdftoppm"
	config.OCR.Lang = "eng+deu"
	config.OCR.DPI = 300
	config.OCR.PSM = 3
	config.OCR.OEM = 1
	config.OCR.MaxPages = 10
	config.OCR.MinConfidence = 0.2
	config.OCR.Timeout = "60s"

	config.Tika.Type = "eino"
	config.Tika.Timeout = 30

	config.Store.Type = "local"
	config.Store.LocalDir = "./uploads"

	config.MinIO.Endpoint = "localhost:9000"
	config.MinIO.AccessKeyID = "minioadmin"
	config.MinIO.SecretAccessKey = "minioadmin"
	config.MinIO.BucketName = "resumes"

	config.Redis.Address = "localhost:6379"
	config.Redis.PoolSize = 10
	config.Redis.MinIdleConns = 2
	config.Redis.DialTimeoutSeconds = 5
	config.Redis.ReadTimeoutSeconds = 3
	config.Redis.WriteTimeoutSeconds = 3
	config.Redis.MaxRetries = 3

	config.Resilience.RetryMaxAttempts = 3
	config.Resilience.RetryInitialBackoff = "200ms"
	config.Resilience.RetryMaxBackoff = "2s"
	config.Resilience.RetryMultiplier = 2
	config.Resilience.BreakerEnabled = true
	config.Resilience.BreakerMinRequests = 10
	config.Resilience.BreakerFailureRatio = 0.5
	config.Resilience.BreakerOpenTimeout = "30s"
	config.Resilience.BreakerHalfOpenMaxCalls = 2

	config.Match.TransformerWeight = 0.4
	config.Match.ExternalWeight = 0.6
	config.Match.MaxMatchingSkills = 15
	config.Match.MaxMissingSkills = 10
	config.Match.MaxSuggestions = 5
	config.Match.ResumeCharLimit = 3000
	config.Match.Concurrency = 1
	config.Match.DefaultSkillsTopN = 10

	config.Quality.Weights = map[string]float64{
		"layout":    0.2,
		"structure": 0.3,
		"language":  0.2,
		"outcome":   0.3,
	}
	config.Quality.DefaultScore = 50

	config.Logger.Level = "info"
	config.Logger.Format = "json"
	config.Logger.TimeFormat = "2006-01-02 15:04:05"

	config.Tracing.ServiceName = "resume-engine"
	config.Tracing.SampleRatio = 1
	config.Tracing.Insecure = true

	config.Metrics.Namespace = "resume_engine"

	return config
}

// Default 返回一份默认配置
func Default() *Config {
	return createDefaultConfig()
}

// CreateSampleConfig 创建一个示例配置文件
func CreateSampleConfig(filePath string) error {
	if _, err := os.Stat(filePath); err == nil {
		return fmt.Errorf("文件 '%s' 已存在，不会覆盖", filePath)
	}

	data, err := yaml.Marshal(createDefaultConfig())
	if err != nil {
		return fmt.Errorf("序列化配置失败: %w", err)
	}

	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return fmt.Errorf("写入示例配置文件 '%s' 失败: %w", filePath, err)
	}
	return nil
}

// GetDuration 解析配置中的时长字符串，失败时返回默认值
func GetDuration(durationStr string, defaultDuration time.Duration) time.Duration {
	if durationStr == "" {
		return defaultDuration
	}
	d, err := time.ParseDuration(durationStr)
	if err != nil {
		return defaultDuration
	}
	return d
}
