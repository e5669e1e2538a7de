package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	LogLevel string `json:"log_level" env:"DOSTIFY_LOG_LEVEL"`
	Server   struct {
		Addr string `json:"addr" env:"DOSTIFY_ADDR"`
	} `json:"server"`
	Database struct {
		URL      string `json:"url" env:"DATABASE_URL"`
		MaxConns int32  `json:"max_conns" env:"DOSTIFY_DB_MAX_CONNS"`
	} `json:"database"`
	LLM struct {
		BaseURL     string  `json:"base_url" env:"POLLINATIONS_BASE_URL"`
		APIKey      string  `json:"api_key" env:"POLLINATIONS_API_KEY"`
		Model       string  `json:"model" env:"DOSTIFY_MODEL"`
		Referrer    string  `json:"referrer" env:"DOSTIFY_REFERRER"`
		MaxTokens   int     `json:"max_tokens"`
		Temperature float32 `json:"temperature"`
		MaxInFlight int64   `json:"max_in_flight"`
	} `json:"llm"`
	Chat struct {
		SystemPromptPath string `json:"system_prompt_path"`
		HistoryWindow    int    `json:"history_window"`
		TokenBudget      int    `json:"token_budget"`
	} `json:"chat"`
	Auth struct {
		JWTSecret    string `json:"jwt_secret" env:"DOSTIFY_JWT_SECRET"`
		TokenTTLMins int    `json:"token_ttl_mins"`
		BcryptCost   int    `json:"bcrypt_cost"`
	} `json:"auth"`
	Telegram struct {
		Token string `json:"token" env:"TELEGRAM_BOT_TOKEN"`
	} `json:"telegram"`
	Scheduler struct {
		ReminderSpec   string `json:"reminder_spec"`
		LookaheadHours int    `json:"lookahead_hours"`
	} `json:"scheduler"`
}

func Load(path string) (*Config, error) {
	cfg := &Config{}
	cfg.LogLevel = "info"
	cfg.Server.Addr = ":8080"
	cfg.Database.MaxConns = 10
	cfg.LLM.BaseURL = "https://text.pollinations.ai/openai"
	cfg.LLM.Model = "openai"
	cfg.LLM.Referrer = "dostify"
	cfg.LLM.MaxTokens = 2000
	cfg.LLM.Temperature = 0.7
	cfg.LLM.MaxInFlight = 4
	cfg.Chat.HistoryWindow = 10
	cfg.Chat.TokenBudget = 8000
	cfg.Auth.TokenTTLMins = 24 * 60
	cfg.Auth.BcryptCost = 10
	cfg.Scheduler.ReminderSpec = "@every 15m"
	cfg.Scheduler.LookaheadHours = 24

	// Load from file if exists, otherwise write defaults
	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	} else if os.IsNotExist(err) {
		if err := writeDefaults(path, cfg); err != nil {
			return nil, err
		}
	}

	// Env overrides take highest precedence.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env overrides: %w", err)
	}

	return cfg, nil
}

func writeDefaults(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal default config: %w", err)
	}
	data = append(data, '\n')
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("write default config: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename default config: %w", err)
	}
	return nil
}
