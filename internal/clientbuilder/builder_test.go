package clientbuilder

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/park285/chessboard-client/internal/board"
	"github.com/park285/chessboard-client/internal/config"
	"github.com/park285/chessboard-client/internal/session"
)

func baseConfig() *config.AppConfig {
	return &config.AppConfig{
		EngineBaseURL:  "http://127.0.0.1:1",
		EngineTimeout:  time.Second,
		AITickInterval: 10 * time.Millisecond,
		HistorySource:  config.HistoryLocal,
		SessionID:      "builder-test",
		SessionTTL:     time.Hour,
		Mode:           board.PlayerVsAI(board.White, ""),
	}
}

func TestNewWithoutStores(t *testing.T) {
	d, err := New(context.Background(), baseConfig(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer d.Close()
	if d.Store != nil {
		t.Fatalf("store wired without REDIS_URL")
	}
	if d.Archive == nil || d.Catalog == nil || d.Formatter == nil || d.Renderer == nil {
		t.Fatalf("deps incomplete: %+v", d)
	}
	if got := d.Controller.SessionID(); got != "builder-test" {
		t.Fatalf("session id = %q", got)
	}
	if d.Controller.View().Phase != session.Uninitialized {
		t.Fatalf("controller started early")
	}
}

func TestNewWithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := baseConfig()
	cfg.RedisURL = "redis://" + mr.Addr() + "/0"

	d, err := New(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if d.Store == nil {
		t.Fatalf("store not wired")
	}
	if err := d.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	// Close archives a never-started session without touching Redis.
	if keys := mr.Keys(); len(keys) != 0 {
		t.Fatalf("unexpected keys %v", keys)
	}
}

func TestNewRejects(t *testing.T) {
	if _, err := New(context.Background(), nil, nil); err == nil {
		t.Fatalf("nil config accepted")
	}
	cfg := baseConfig()
	cfg.RedisURL = "redis://127.0.0.1:1/0"
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := New(ctx, cfg, nil); err == nil {
		t.Fatalf("unreachable redis accepted")
	}
}
