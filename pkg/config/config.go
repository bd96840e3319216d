package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// requestTimeoutCeilingSeconds is the hard upper bound imposed by the
// platform's request timeout. The solve deadline must stay below it so the
// loop finishes before the caller gives up.
const requestTimeoutCeilingSeconds = 180

type RateLimitBucketConfig struct {
	RequestsPerMinute int `yaml:"requestsPerMinute"`
	BurstSize         int `yaml:"burstSize"`
}

type RateLimitConfig struct {
	Solve RateLimitBucketConfig `yaml:"solve"`
}

type TracingConfig struct {
	Enabled      bool    `yaml:"enabled"`
	ServiceName  string  `yaml:"serviceName"`
	OTLPEndpoint string  `yaml:"otlpEndpoint"`
	OTLPInsecure bool    `yaml:"otlpInsecure"`
	SampleRatio  float64 `yaml:"sampleRatio"`
}

type Config struct {
	Port          int    `yaml:"port"`
	RedisAddr     string `yaml:"redisAddr"`
	RedisPassword string `yaml:"redisPassword"`
	LogLevel      string `yaml:"logLevel"`
	LogFormat     string `yaml:"logFormat"`
	Env           string `yaml:"env"`

	// QuizSecret is the shared credential sent with every submission and
	// required from callers of the solve endpoint. Startup fails without it.
	QuizSecret   string `yaml:"quizSecret"`
	DefaultEmail string `yaml:"defaultEmail"`

	SolveDeadlineSeconds  int    `yaml:"solveDeadlineSeconds"`
	PerQuestionRetries    int    `yaml:"perQuestionRetries"`
	SubmitTimeoutSeconds  int    `yaml:"submitTimeoutSeconds"`
	PageRenderWaitMs      int    `yaml:"pageRenderWaitMs"`
	RenderTimeoutMs       int    `yaml:"renderTimeoutMs"`
	RetryBackoffMs        int    `yaml:"retryBackoffMs"`
	MinRetryWindowSeconds int    `yaml:"minRetryWindowSeconds"`
	FallbackScanChars     int    `yaml:"fallbackScanChars"`
	PDFColumnName         string `yaml:"pdfColumnName"`
	Renderer              string `yaml:"renderer"` // "chrome" or "static"
	RunRetentionHours     int    `yaml:"runRetentionHours"`

	RateLimit RateLimitConfig `yaml:"rateLimit"`
	Tracing   TracingConfig   `yaml:"tracing"`
}

// LoadConfigOptional behaves like LoadConfig but tolerates an empty path,
// falling back to env vars and defaults only.
func LoadConfigOptional(filePath string) (*Config, error) {
	if strings.TrimSpace(filePath) == "" {
		c := &Config{}
		c.applyEnv()
		c.applyDefaults()
		return c, nil
	}
	return LoadConfig(filePath)
}

func LoadConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	c.applyEnv()
	c.applyDefaults()
	return &c, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Port = p
		}
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.RedisPassword = v
	}
	if v := os.Getenv("QUIZ_SECRET"); v != "" {
		c.QuizSecret = v
	}
	if v := os.Getenv("QUIZ_EMAIL"); v != "" {
		c.DefaultEmail = v
	}
	if v := os.Getenv("QUIZ_RENDERER"); v != "" {
		c.Renderer = v
	}
	if v := os.Getenv("SOLVE_DEADLINE_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.SolveDeadlineSeconds = n
		}
	}
	if v := os.Getenv("PER_QUESTION_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.PerQuestionRetries = n
		}
	}
	if v := os.Getenv("SUBMIT_TIMEOUT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.SubmitTimeoutSeconds = n
		}
	}
	if v := os.Getenv("PAGE_RENDER_WAIT_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.PageRenderWaitMs = n
		}
	}
	if v := os.Getenv("RENDER_TIMEOUT_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.RenderTimeoutMs = n
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		c.LogFormat = v
	}
	if v := os.Getenv("ENV"); v != "" {
		c.Env = v
	}
}

func (c *Config) applyDefaults() {
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.RedisAddr == "" {
		c.RedisAddr = "localhost:6379"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "json"
	}
	if c.Env == "" {
		c.Env = "dev"
	}
	if c.SolveDeadlineSeconds <= 0 {
		c.SolveDeadlineSeconds = 170
	}
	if c.PerQuestionRetries <= 0 {
		c.PerQuestionRetries = 2
	}
	if c.SubmitTimeoutSeconds <= 0 {
		c.SubmitTimeoutSeconds = 25
	}
	if c.PageRenderWaitMs <= 0 {
		c.PageRenderWaitMs = 800
	}
	if c.RenderTimeoutMs <= 0 {
		c.RenderTimeoutMs = 30000
	}
	if c.RetryBackoffMs <= 0 {
		c.RetryBackoffMs = 500
	}
	if c.MinRetryWindowSeconds <= 0 {
		c.MinRetryWindowSeconds = 8
	}
	if c.FallbackScanChars <= 0 {
		c.FallbackScanChars = 3000
	}
	if c.PDFColumnName == "" {
		c.PDFColumnName = "value"
	}
	if c.Renderer == "" {
		c.Renderer = "chrome"
	}
	if c.RunRetentionHours <= 0 {
		c.RunRetentionHours = 24
	}
}

func (c *Config) Validate() error {
	var errs []string
	if strings.TrimSpace(c.QuizSecret) == "" {
		errs = append(errs, "quizSecret is required (set QUIZ_SECRET)")
	}
	if c.SolveDeadlineSeconds >= requestTimeoutCeilingSeconds {
		errs = append(errs, fmt.Sprintf("solveDeadlineSeconds must be below %d", requestTimeoutCeilingSeconds))
	}
	switch strings.ToLower(strings.TrimSpace(c.Renderer)) {
	case "chrome", "static":
	default:
		errs = append(errs, "renderer must be \"chrome\" or \"static\"")
	}
	if len(errs) > 0 {
		return fmt.Errorf("config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) SolveDeadline() time.Duration {
	return time.Duration(c.SolveDeadlineSeconds) * time.Second
}

func (c *Config) SubmitTimeout() time.Duration {
	return time.Duration(c.SubmitTimeoutSeconds) * time.Second
}

func (c *Config) PageRenderWait() time.Duration {
	return time.Duration(c.PageRenderWaitMs) * time.Millisecond
}

func (c *Config) RenderTimeout() time.Duration {
	return time.Duration(c.RenderTimeoutMs) * time.Millisecond
}

func (c *Config) RetryBackoff() time.Duration {
	return time.Duration(c.RetryBackoffMs) * time.Millisecond
}

func (c *Config) MinRetryWindow() time.Duration {
	return time.Duration(c.MinRetryWindowSeconds) * time.Second
}

func (c *Config) RunRetention() time.Duration {
	return time.Duration(c.RunRetentionHours) * time.Hour
}
