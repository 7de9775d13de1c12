// Package config loads server configuration from an optional YAML file with
// environment-variable overrides on top.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/suncoastfinancialfootball-cloud/financial-football-sub001/internal/match"
)

// Config is the full server configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Mongo  MongoConfig  `yaml:"mongo"`
	NATS   NATSConfig   `yaml:"nats"`
	Match  MatchConfig  `yaml:"match"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// MongoConfig holds the database connection settings.
type MongoConfig struct {
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`
}

// NATSConfig holds the optional external relay settings.
type NATSConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	SubjectPrefix string `yaml:"subject_prefix"`
}

// MatchConfig holds the live-match rule parameters. Durations are seconds in
// YAML and env; the grace window is milliseconds.
type MatchConfig struct {
	QuestionsPerTeam     int     `yaml:"questions_per_team"`
	PrimarySeconds       int     `yaml:"primary_seconds"`
	StealSeconds         int     `yaml:"steal_seconds"`
	PrimaryPoints        float64 `yaml:"primary_points"`
	StealPoints          float64 `yaml:"steal_points"`
	AnswerGraceMs        int     `yaml:"answer_grace_ms"`
	CoinRevealDelaySecs  int     `yaml:"coin_reveal_delay_seconds"`
}

func defaults() Config {
	rules := match.DefaultRules()
	return Config{
		Server: ServerConfig{Host: "0.0.0.0", Port: 8080},
		Mongo:  MongoConfig{URI: "mongodb://localhost:27017", Database: "financial_football"},
		NATS:   NATSConfig{Enabled: false, URL: "nats://localhost:4222", SubjectPrefix: "trivia.events"},
		Match: MatchConfig{
			QuestionsPerTeam:    rules.QuestionsPerTeam,
			PrimarySeconds:      int(rules.PrimaryDuration.Seconds()),
			StealSeconds:        int(rules.StealDuration.Seconds()),
			PrimaryPoints:       rules.PrimaryPoints,
			StealPoints:         rules.StealPoints,
			AnswerGraceMs:       int(rules.AnswerGrace.Milliseconds()),
			CoinRevealDelaySecs: int(rules.CoinRevealDelay.Seconds()),
		},
	}
}

// Load reads the YAML file at path (skipped when empty or missing) and then
// applies environment overrides.
func Load(path string) (Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config file: %w", err)
			}
		}
	}

	cfg.Server.Host = getEnv("SERVER_HOST", cfg.Server.Host)
	cfg.Server.Port = getEnvAsInt("SERVER_PORT", cfg.Server.Port)
	cfg.Mongo.URI = getEnv("MONGO_URI", cfg.Mongo.URI)
	cfg.Mongo.Database = getEnv("MONGO_DATABASE", cfg.Mongo.Database)
	cfg.NATS.Enabled = getEnvAsBool("NATS_ENABLED", cfg.NATS.Enabled)
	cfg.NATS.URL = getEnv("NATS_URL", cfg.NATS.URL)
	cfg.NATS.SubjectPrefix = getEnv("NATS_SUBJECT_PREFIX", cfg.NATS.SubjectPrefix)
	cfg.Match.QuestionsPerTeam = getEnvAsInt("MATCH_QUESTIONS_PER_TEAM", cfg.Match.QuestionsPerTeam)
	cfg.Match.PrimarySeconds = getEnvAsInt("MATCH_PRIMARY_SECONDS", cfg.Match.PrimarySeconds)
	cfg.Match.StealSeconds = getEnvAsInt("MATCH_STEAL_SECONDS", cfg.Match.StealSeconds)
	cfg.Match.AnswerGraceMs = getEnvAsInt("MATCH_ANSWER_GRACE_MS", cfg.Match.AnswerGraceMs)
	cfg.Match.CoinRevealDelaySecs = getEnvAsInt("MATCH_COIN_REVEAL_SECONDS", cfg.Match.CoinRevealDelaySecs)

	if cfg.Match.QuestionsPerTeam <= 0 {
		return Config{}, fmt.Errorf("questions_per_team must be positive, got %d", cfg.Match.QuestionsPerTeam)
	}
	if cfg.Match.PrimarySeconds <= 0 || cfg.Match.StealSeconds <= 0 {
		return Config{}, fmt.Errorf("timer durations must be positive")
	}
	return cfg, nil
}

// Rules converts the match section to engine rules.
func (c MatchConfig) Rules() match.Rules {
	return match.Rules{
		QuestionsPerTeam: c.QuestionsPerTeam,
		PrimaryDuration:  time.Duration(c.PrimarySeconds) * time.Second,
		StealDuration:    time.Duration(c.StealSeconds) * time.Second,
		PrimaryPoints:    c.PrimaryPoints,
		StealPoints:      c.StealPoints,
		AnswerGrace:      time.Duration(c.AnswerGraceMs) * time.Millisecond,
		CoinRevealDelay:  time.Duration(c.CoinRevealDelaySecs) * time.Second,
	}
}

// Addr returns the listen address.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
