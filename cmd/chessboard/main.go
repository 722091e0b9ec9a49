package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/park285/chessboard-client/internal/adapter/viewpresenter"
	"github.com/park285/chessboard-client/internal/clientbuilder"
	appcfg "github.com/park285/chessboard-client/internal/config"
	"github.com/park285/chessboard-client/internal/msgcat"
	"github.com/park285/chessboard-client/internal/obslog"
	"github.com/park285/chessboard-client/internal/session"
	"github.com/park285/chessboard-client/internal/tui"
	"github.com/park285/chessboard-client/internal/viewfeed"
	"github.com/park285/chessboard-client/pkg/viewdto"
	"go.uber.org/zap"
)

func main() {
	cmd := "play"
	args := os.Args[1:]
	if len(args) > 0 {
		cmd, args = strings.ToLower(args[0]), args[1:]
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var err error
	switch cmd {
	case "play":
		err = runPlay(ctx)
	case "serve":
		err = runServe(ctx)
	case "watch":
		err = runWatch(ctx, args)
	case "help", "-h", "--help":
		fmt.Println(helpText())
		return
	default:
		fmt.Fprintln(os.Stderr, helpText())
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("%s: %v", cmd, err)
	}
}

func helpText() string {
	return strings.Join([]string{
		"chessboard - terminal client for the chess engine service",
		"",
		"  chessboard [play]     interactive board (FEED_ADDR also publishes the view)",
		"  chessboard serve      headless session publishing on FEED_ADDR",
		"  chessboard watch URL  follow a published view feed (ws://host:port/ws)",
		"",
		"Configuration comes from the environment (ENGINE_BASE_URL, DEFAULT_MODE, ...)",
		"or the file named by CHESSBOARD_CONFIG.",
	}, "\n")
}

func setupLogger(console bool) (*zap.Logger, error) {
	lc := obslog.ConfigFromEnv()
	// The terminal UI owns stdout.
	lc.Console = lc.Console && console
	if err := obslog.Init(lc); err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return obslog.L(), nil
}

func build(ctx context.Context, console bool) (*appcfg.AppConfig, *clientbuilder.Deps, *zap.Logger, error) {
	cfg, err := appcfg.Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("config: %w", err)
	}
	logger, err := setupLogger(console)
	if err != nil {
		return nil, nil, nil, err
	}
	bctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	deps, err := clientbuilder.New(bctx, cfg, logger)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, deps, logger, nil
}

func startFeed(ctx context.Context, cfg *appcfg.AppConfig, deps *clientbuilder.Deps, logger *zap.Logger) <-chan error {
	done := make(chan error, 1)
	if cfg.FeedAddr == "" {
		close(done)
		return done
	}
	srv := viewfeed.NewServer(deps.Controller, deps.Renderer, logger)
	if deps.Archive != nil {
		srv.WithGames(deps.Archive)
	}
	if deps.Store != nil {
		srv.WithSessions(deps.Store)
	}
	go func() {
		done <- srv.ListenAndServe(ctx, cfg.FeedAddr)
		close(done)
	}()
	return done
}

func runPlay(ctx context.Context) error {
	cfg, deps, logger, err := build(ctx, false)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	defer deps.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	feed := startFeed(ctx, cfg, deps, logger)

	if err := deps.Controller.Start(ctx); err != nil {
		return err
	}
	app := tui.New(deps.Controller, tui.Options{
		Modes:     tui.DefaultModes(cfg.Mode),
		RenderDir: cfg.RenderDir,
		Renderer:  deps.Renderer,
		Formatter: deps.Formatter,
		Logger:    logger,
	})
	runErr := app.Run(ctx)
	cancel()
	if err := <-feed; err != nil {
		logger.Warn("feed_stopped", zap.Error(err))
	}
	return runErr
}

func runServe(ctx context.Context) error {
	cfg, deps, logger, err := build(ctx, true)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	defer deps.Close()
	if cfg.FeedAddr == "" {
		return fmt.Errorf("FEED_ADDR is required for serve")
	}

	feed := startFeed(ctx, cfg, deps, logger)
	var lastTurn atomic.Int64
	deps.Controller.OnChange(func(v session.View) {
		if v.HasBoard && v.Offset == 0 && lastTurn.Swap(int64(v.Turn)) != int64(v.Turn) {
			logger.Info("turn_advanced", zap.Int("turn", v.Turn), zap.String("to_move", v.CurrentPlayer.String()))
		}
	})
	if err := deps.Controller.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return <-feed
}

func runWatch(ctx context.Context, args []string) error {
	url := os.Getenv("FEED_URL")
	if len(args) > 0 {
		url = args[0]
	}
	if strings.TrimSpace(url) == "" {
		return fmt.Errorf("feed url required: chessboard watch ws://host:port/ws")
	}
	logger, err := setupLogger(true)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	cat, err := msgcat.New(os.Getenv("MESSAGES_DIR"))
	if err != nil {
		return fmt.Errorf("load messages: %w", err)
	}
	presenter := viewpresenter.NewPresenter(viewpresenter.NewFormatter(cat),
		func(message string) error {
			_, err := fmt.Println(message + "\n")
			return err
		},
		nil,
	)

	client := viewfeed.NewClient(url, 5, logger)
	client.OnStateChange(func(s viewfeed.State) {
		logger.Info("feed_state", zap.Stringer("state", s))
	})
	client.OnView(func(v viewdto.View) {
		if err := presenter.Board(v, "", nil); err != nil {
			logger.Warn("watch_print_failed", zap.Error(err))
		}
	})

	cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	err = client.Connect(cctx)
	cancel()
	if err != nil {
		return fmt.Errorf("connect %s: %w", url, err)
	}
	<-ctx.Done()

	sctx, scancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer scancel()
	return client.Close(sctx)
}
