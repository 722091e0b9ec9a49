package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/park285/chessboard-client/internal/board"
	"github.com/spf13/viper"
)

const (
	HistoryLocal  = "local"
	HistoryRemote = "remote"
)

type AppConfig struct {
	EngineBaseURL  string        `mapstructure:"ENGINE_BASE_URL"`
	EngineTimeout  time.Duration `mapstructure:"ENGINE_TIMEOUT"`
	EngineRetryMax int           `mapstructure:"ENGINE_RETRY_MAX"`

	DefaultMode    string        `mapstructure:"DEFAULT_MODE"`
	AITickInterval time.Duration `mapstructure:"AI_TICK_INTERVAL"`
	AIAutoStart    bool          `mapstructure:"AI_AUTO_START"`
	HistorySource  string        `mapstructure:"HISTORY_SOURCE"`

	SessionID   string        `mapstructure:"SESSION_ID"`
	RedisURL    string        `mapstructure:"REDIS_URL"`
	SessionTTL  time.Duration `mapstructure:"SESSION_TTL"`
	DatabaseURL string        `mapstructure:"DATABASE_URL"`

	FeedAddr    string `mapstructure:"FEED_ADDR"`
	MessagesDir string `mapstructure:"MESSAGES_DIR"`
	RenderDir   string `mapstructure:"RENDER_DIR"`

	// Mode is DefaultMode parsed.
	Mode board.PlayMode `mapstructure:"-"`
}

var defaults = map[string]any{
	"ENGINE_BASE_URL":  "http://127.0.0.1:8005",
	"ENGINE_TIMEOUT":   "8s",
	"ENGINE_RETRY_MAX": 2,
	"DEFAULT_MODE":     "player:white",
	"AI_TICK_INTERVAL": "500ms",
	"AI_AUTO_START":    true,
	"HISTORY_SOURCE":   HistoryLocal,
	"SESSION_ID":       "",
	"REDIS_URL":        "",
	"SESSION_TTL":      "24h",
	"DATABASE_URL":     "",
	"FEED_ADDR":        "",
	"MESSAGES_DIR":     "",
	"RENDER_DIR":       "boards",
}

// Load reads the environment, layered over the optional file named by
// CHESSBOARD_CONFIG.
func Load() (*AppConfig, error) {
	v := viper.New()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}
	v.AutomaticEnv()

	if path := strings.TrimSpace(os.Getenv("CHESSBOARD_CONFIG")); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *AppConfig) normalize() error {
	c.EngineBaseURL = strings.TrimRight(strings.TrimSpace(c.EngineBaseURL), "/")
	c.HistorySource = strings.ToLower(strings.TrimSpace(c.HistorySource))
	c.SessionID = strings.TrimSpace(c.SessionID)
	c.RedisURL = strings.TrimSpace(c.RedisURL)
	c.DatabaseURL = strings.TrimSpace(c.DatabaseURL)
	c.FeedAddr = strings.TrimSpace(c.FeedAddr)
	c.RenderDir = strings.TrimSpace(c.RenderDir)

	if c.EngineBaseURL == "" {
		return errors.New("ENGINE_BASE_URL is required")
	}
	if u, err := url.Parse(c.EngineBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("ENGINE_BASE_URL must be an absolute http url: %q", c.EngineBaseURL)
	}
	if c.EngineTimeout <= 0 {
		return errors.New("ENGINE_TIMEOUT must be positive")
	}
	if c.EngineRetryMax < 0 {
		c.EngineRetryMax = 0
	}
	if c.AITickInterval <= 0 {
		return errors.New("AI_TICK_INTERVAL must be positive")
	}
	switch c.HistorySource {
	case "":
		c.HistorySource = HistoryLocal
	case HistoryLocal, HistoryRemote:
	default:
		return fmt.Errorf("HISTORY_SOURCE must be %q or %q, got %q", HistoryLocal, HistoryRemote, c.HistorySource)
	}
	mode, err := board.ParseMode(c.DefaultMode)
	if err != nil {
		return fmt.Errorf("DEFAULT_MODE: %w", err)
	}
	c.Mode = mode
	if c.RenderDir == "" {
		c.RenderDir = "boards"
	}
	return nil
}

func (c *AppConfig) RemoteHistory() bool { return c.HistorySource == HistoryRemote }
