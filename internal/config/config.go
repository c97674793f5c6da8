package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix              = "ARCHIVARA"
	defaultHTTPAddress     = "0.0.0.0:8080"
	defaultDatabasePath    = "archivara.db"
	defaultLogLevel        = "info"
	defaultTokenTTLMinutes = 60
	defaultJudgeBaseURL    = "https://openrouter.ai/api/v1"
	defaultJudgeModel      = "openai/gpt-4o-mini"
	defaultJudgeTimeoutSec = 60
)

// AppConfig captures runtime configuration for the API server.
type AppConfig struct {
	HTTPAddress   string
	DatabasePath  string
	LogLevel      string
	SigningSecret string
	TokenTTL      time.Duration
	JudgeBaseURL  string
	JudgeAPIKey   string
	JudgeModel    string
	JudgeTimeout  time.Duration
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("database.path", defaultDatabasePath)
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("auth.token_ttl_minutes", defaultTokenTTLMinutes)
	configViper.SetDefault("judge.base_url", defaultJudgeBaseURL)
	configViper.SetDefault("judge.model", defaultJudgeModel)
	configViper.SetDefault("judge.timeout_seconds", defaultJudgeTimeoutSec)
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:   configViper.GetString("http.address"),
		DatabasePath:  configViper.GetString("database.path"),
		LogLevel:      configViper.GetString("log.level"),
		SigningSecret: configViper.GetString("auth.signing_secret"),
		TokenTTL:      time.Duration(configViper.GetInt("auth.token_ttl_minutes")) * time.Minute,
		JudgeBaseURL:  configViper.GetString("judge.base_url"),
		JudgeAPIKey:   configViper.GetString("judge.api_key"),
		JudgeModel:    configViper.GetString("judge.model"),
		JudgeTimeout:  time.Duration(configViper.GetInt("judge.timeout_seconds")) * time.Second,
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

func (c AppConfig) validate() error {
	if strings.TrimSpace(c.SigningSecret) == "" {
		return fmt.Errorf("auth.signing_secret is required")
	}
	if strings.TrimSpace(c.DatabasePath) == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("auth.token_ttl_minutes must be positive")
	}
	if c.JudgeTimeout <= 0 {
		return fmt.Errorf("judge.timeout_seconds must be positive")
	}
	return nil
}
