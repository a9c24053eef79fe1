// File: internal/config/config.go
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"` // remote entry expiry
}

type CacheConfig struct {
	TTL     time.Duration `yaml:"ttl"`      // local tier entry lifetime
	MaxSize int           `yaml:"max_size"` // local tier capacity
}

type QueueConfig struct {
	MaxConcurrent int           `yaml:"max_concurrent"` // parallel job pipelines
	IdleShutdown  time.Duration `yaml:"idle_shutdown"`  // coordinator exit after idle
	JobTimeout    time.Duration `yaml:"job_timeout"`    // umbrella pipeline timeout
	RateLimit     int           `yaml:"rate_limit"`     // submissions per window, 0 = off
	RateWindow    time.Duration `yaml:"rate_window"`
}

type AnalysisConfig struct {
	MaxRows int `yaml:"max_rows"` // row cap before analysis
	Workers int `yaml:"workers"`  // column fan-out pool size
}

type AIConfig struct {
	GroqKey         string  `yaml:"groq_key"`
	GroqBaseURL     string  `yaml:"groq_base_url"`
	GeminiKey       string  `yaml:"gemini_key"`
	DefaultModel    string  `yaml:"default_model"`
	Temperature     float64 `yaml:"temperature"`
	MaxTokens       int     `yaml:"max_tokens"`
	ConcurrentLimit int     `yaml:"concurrent_limit"` // max concurrent LLM calls
}

type RetrievalConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
	TopK         int `yaml:"top_k"`
}

type MailConfig struct {
	SMTPServer string `yaml:"smtp_server"`
	SMTPPort   int    `yaml:"smtp_port"`
	Username   string `yaml:"username"`
	Password   string `yaml:"password"`
	From       string `yaml:"from"`
}

type DatabaseConfig struct {
	URL string `yaml:"url"` // optional; enables the terminal-job archive
}

type Config struct {
	Log       LogConfig       `yaml:"log"`
	Server    ServerConfig    `yaml:"server"`
	Redis     RedisConfig     `yaml:"redis"`
	Cache     CacheConfig     `yaml:"cache"`
	Queue     QueueConfig     `yaml:"queue"`
	Analysis  AnalysisConfig  `yaml:"analysis"`
	AI        AIConfig        `yaml:"ai"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Mail      MailConfig      `yaml:"mail"`
	Database  DatabaseConfig  `yaml:"database"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.ApplyDefaults()

	// Minimal validation. The remote cache tier and the job archive are
	// optional by design; the AI backend falls back to noop in dev mode.
	if !dev && cfg.AI.GroqKey == "" && cfg.AI.GeminiKey == "" {
		return nil, fmt.Errorf("no AI provider configured: set ai.groq_key or ai.gemini_key in %s", path)
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

// ApplyDefaults fills zero values; split out so tests can build configs
// without a file.
func (cfg *Config) ApplyDefaults() {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8085
	}
	if cfg.Redis.URL == "" {
		cfg.Redis.URL = "localhost:6379"
	}
	if cfg.Redis.TTL <= 0 {
		cfg.Redis.TTL = time.Hour
	}
	if cfg.Cache.TTL <= 0 {
		cfg.Cache.TTL = time.Hour
	}
	if cfg.Cache.MaxSize <= 0 {
		cfg.Cache.MaxSize = 100
	}
	if cfg.Queue.MaxConcurrent <= 0 {
		cfg.Queue.MaxConcurrent = 2
	}
	if cfg.Queue.IdleShutdown <= 0 {
		cfg.Queue.IdleShutdown = 2 * time.Second
	}
	if cfg.Queue.JobTimeout <= 0 {
		cfg.Queue.JobTimeout = 30 * time.Minute
	}
	if cfg.Queue.RateWindow <= 0 {
		cfg.Queue.RateWindow = time.Minute
	}
	if cfg.Analysis.MaxRows <= 0 {
		cfg.Analysis.MaxRows = 100
	}
	if cfg.Analysis.Workers <= 0 {
		cfg.Analysis.Workers = 4
	}
	if cfg.AI.DefaultModel == "" {
		cfg.AI.DefaultModel = "llama-3.3-70b-versatile"
	}
	if cfg.AI.GroqBaseURL == "" {
		cfg.AI.GroqBaseURL = "https://api.groq.com/openai/v1"
	}
	if cfg.AI.Temperature <= 0 {
		cfg.AI.Temperature = 0.7
	}
	if cfg.AI.MaxTokens <= 0 {
		cfg.AI.MaxTokens = 2000
	}
	if cfg.AI.ConcurrentLimit <= 0 {
		cfg.AI.ConcurrentLimit = 16
	}
	if cfg.Retrieval.ChunkSize <= 0 {
		cfg.Retrieval.ChunkSize = 500
	}
	if cfg.Retrieval.ChunkOverlap <= 0 {
		cfg.Retrieval.ChunkOverlap = 50
	}
	if cfg.Retrieval.TopK <= 0 {
		cfg.Retrieval.TopK = 10
	}
	if cfg.Mail.SMTPServer == "" {
		cfg.Mail.SMTPServer = "smtp.gmail.com"
	}
	if cfg.Mail.SMTPPort <= 0 {
		cfg.Mail.SMTPPort = 587
	}
}
