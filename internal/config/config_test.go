package config

import (
	"testing"
	"time"
)

func TestLoadAppliesDefaults(t *testing.T) {
	configViper := NewViper()
	configViper.Set("auth.signing_secret", "secret")

	cfg, err := Load(configViper)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTPAddress != "0.0.0.0:8080" {
		t.Fatalf("unexpected http address: %s", cfg.HTTPAddress)
	}
	if cfg.DatabasePath != "archivara.db" {
		t.Fatalf("unexpected database path: %s", cfg.DatabasePath)
	}
	if cfg.TokenTTL != 60*time.Minute {
		t.Fatalf("unexpected token ttl: %s", cfg.TokenTTL)
	}
	if cfg.JudgeTimeout != 60*time.Second {
		t.Fatalf("unexpected judge timeout: %s", cfg.JudgeTimeout)
	}
	if cfg.JudgeModel != "openai/gpt-4o-mini" {
		t.Fatalf("unexpected judge model: %s", cfg.JudgeModel)
	}
}

func TestLoadRequiresSigningSecret(t *testing.T) {
	if _, err := Load(NewViper()); err == nil {
		t.Fatalf("expected error without signing secret")
	}
}

func TestLoadRejectsNonPositiveTTL(t *testing.T) {
	configViper := NewViper()
	configViper.Set("auth.signing_secret", "secret")
	configViper.Set("auth.token_ttl_minutes", 0)

	if _, err := Load(configViper); err == nil {
		t.Fatalf("expected error for zero ttl")
	}
}

func TestLoadOverrides(t *testing.T) {
	configViper := NewViper()
	configViper.Set("auth.signing_secret", "secret")
	configViper.Set("http.address", "127.0.0.1:9999")
	configViper.Set("judge.api_key", "key")

	cfg, err := Load(configViper)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTPAddress != "127.0.0.1:9999" {
		t.Fatalf("unexpected http address: %s", cfg.HTTPAddress)
	}
	if cfg.JudgeAPIKey != "key" {
		t.Fatalf("unexpected judge api key: %s", cfg.JudgeAPIKey)
	}
}
