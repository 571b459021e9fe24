package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// AppConfig is the game server configuration, read from the environment.
type AppConfig struct {
	ListenAddr string `env:"LISTEN_ADDR" envDefault:":8080"`

	// Empty RedisURL keeps matches and lobbies in process memory.
	RedisURL string        `env:"REDIS_URL"`
	MatchTTL time.Duration `env:"MATCH_TTL" envDefault:"24h"`
	LobbyTTL time.Duration `env:"LOBBY_TTL" envDefault:"30m"`

	// Empty DatabaseURL disables the result archive.
	DatabaseURL    string `env:"DATABASE_URL"`
	DatabaseDriver string `env:"DATABASE_DRIVER" envDefault:"postgres"`

	CheckersMoveTime time.Duration `env:"CHECKERS_MOVE_TIME" envDefault:"0s"`
	CheckersGameTime time.Duration `env:"CHECKERS_GAME_TIME" envDefault:"0s"`
	ChessMoveTime    time.Duration `env:"CHESS_MOVE_TIME" envDefault:"0s"`
	ChessGameTime    time.Duration `env:"CHESS_GAME_TIME" envDefault:"0s"`
	ScoreLimit       int           `env:"SCORE_LIMIT" envDefault:"0"`

	WebhookURL   string `env:"WEBHOOK_URL"`
	WebhookToken string `env:"WEBHOOK_TOKEN"`

	MessagesDir   string        `env:"MESSAGES_DIR"`
	SweepInterval time.Duration `env:"SWEEP_INTERVAL" envDefault:"1s"`

	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:","`
}

// Load parses the process environment.
func Load() (*AppConfig, error) {
	return parse(env.Options{})
}

// LoadFrom parses vars instead of the process environment.
func LoadFrom(vars map[string]string) (*AppConfig, error) {
	return parse(env.Options{Environment: vars})
}

func parse(opts env.Options) (*AppConfig, error) {
	cfg := &AppConfig{}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.RedisURL = strings.TrimSpace(cfg.RedisURL)
	cfg.DatabaseURL = strings.TrimSpace(cfg.DatabaseURL)
	cfg.DatabaseDriver = strings.ToLower(strings.TrimSpace(cfg.DatabaseDriver))
	cfg.WebhookURL = strings.TrimSpace(cfg.WebhookURL)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot start with.
func (c *AppConfig) Validate() error {
	var errs []error
	if strings.TrimSpace(c.ListenAddr) == "" {
		errs = append(errs, errors.New("LISTEN_ADDR is required"))
	}
	if c.DatabaseURL != "" && c.DatabaseDriver != "postgres" && c.DatabaseDriver != "sqlite" {
		errs = append(errs, fmt.Errorf("DATABASE_DRIVER must be postgres or sqlite, got %q", c.DatabaseDriver))
	}
	for name, d := range map[string]time.Duration{
		"CHECKERS_MOVE_TIME": c.CheckersMoveTime,
		"CHECKERS_GAME_TIME": c.CheckersGameTime,
		"CHESS_MOVE_TIME":    c.ChessMoveTime,
		"CHESS_GAME_TIME":    c.ChessGameTime,
		"SWEEP_INTERVAL":     c.SweepInterval,
	} {
		if d < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative", name))
		}
	}
	if c.MatchTTL <= 0 {
		errs = append(errs, errors.New("MATCH_TTL must be positive"))
	}
	if c.LobbyTTL <= 0 {
		errs = append(errs, errors.New("LOBBY_TTL must be positive"))
	}
	if c.ScoreLimit < 0 {
		errs = append(errs, errors.New("SCORE_LIMIT must not be negative"))
	}
	return errors.Join(errs...)
}
