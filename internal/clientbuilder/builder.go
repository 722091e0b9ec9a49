package clientbuilder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/park285/chessboard-client/internal/adapter/viewpresenter"
	"github.com/park285/chessboard-client/internal/archive"
	"github.com/park285/chessboard-client/internal/config"
	"github.com/park285/chessboard-client/internal/enginefast"
	"github.com/park285/chessboard-client/internal/msgcat"
	"github.com/park285/chessboard-client/internal/render"
	"github.com/park285/chessboard-client/internal/session"
	"github.com/park285/chessboard-client/internal/sessionstore"
	"go.uber.org/zap"
)

type Deps struct {
	Controller *session.Controller
	Engine     *enginefast.Client
	Store      *sessionstore.Store
	Archive    archive.Repository
	Catalog    *msgcat.Catalog
	Formatter  *viewpresenter.Formatter
	Renderer   render.Renderer

	closers []func() error
}

// New wires the engine client, the optional Redis session store and the game
// archive (Postgres when DATABASE_URL is set, in memory otherwise) into a
// controller. The controller is not started.
func New(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) (*Deps, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Deps{Renderer: render.NewRenderer()}

	d.Engine = enginefast.NewClient(cfg.EngineBaseURL,
		enginefast.WithTimeout(cfg.EngineTimeout),
		enginefast.WithRetry(cfg.EngineRetryMax),
	)

	cat, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	d.Catalog = cat
	d.Formatter = viewpresenter.NewFormatter(cat)

	opts := session.Options{
		SessionID:      cfg.SessionID,
		DefaultMode:    cfg.Mode,
		TickInterval:   cfg.AITickInterval,
		RequestTimeout: cfg.EngineTimeout,
		RemoteHistory:  cfg.RemoteHistory(),
		AutoStartAI:    cfg.AIAutoStart,
		Logger:         logger,
	}

	// Session store (Redis optional)
	if cfg.RedisURL != "" {
		store, err := sessionstore.Open(ctx, cfg.RedisURL, cfg.SessionTTL)
		if err != nil {
			return nil, fmt.Errorf("init session store: %w", err)
		}
		d.Store = store
		d.closers = append(d.closers, store.Close)
		opts.Store = store
	}

	// Archive (Postgres optional)
	if cfg.DatabaseURL != "" {
		repo, err := archive.NewPostgresRepository(ctx, cfg.DatabaseURL)
		if err != nil {
			_ = d.Close()
			return nil, fmt.Errorf("init archive: %w", err)
		}
		sctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = repo.EnsureSchema(sctx)
		cancel()
		if err != nil {
			_ = repo.Close()
			_ = d.Close()
			return nil, fmt.Errorf("archive schema: %w", err)
		}
		d.Archive = repo
		d.closers = append(d.closers, repo.Close)
	} else {
		d.Archive = archive.NewMemoryRepository()
	}
	opts.Archive = d.Archive

	ctrl, err := session.NewController(d.Engine, opts)
	if err != nil {
		_ = d.Close()
		return nil, err
	}
	d.Controller = ctrl
	logger.Info("client_built",
		zap.String("session_id", ctrl.SessionID()),
		zap.String("engine", cfg.EngineBaseURL),
		zap.Bool("redis", d.Store != nil),
		zap.Bool("postgres", cfg.DatabaseURL != ""),
	)
	return d, nil
}

// Close closes the controller and then the stores it writes to.
func (d *Deps) Close() error {
	var errs []error
	if d.Controller != nil {
		errs = append(errs, d.Controller.Close())
	}
	for i := len(d.closers) - 1; i >= 0; i-- {
		errs = append(errs, d.closers[i]())
	}
	d.closers = nil
	return errors.Join(errs...)
}
