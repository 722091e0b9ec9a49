// Package tui is the terminal front end of the session controller.
package tui

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/park285/chessboard-client/internal/adapter/viewpresenter"
	"github.com/park285/chessboard-client/internal/board"
	"github.com/park285/chessboard-client/internal/render"
	"github.com/park285/chessboard-client/internal/session"
	"github.com/park285/chessboard-client/internal/viewfeed"
	"github.com/rivo/tview"
	"go.uber.org/zap"
)

// Controller is the part of session.Controller the terminal drives.
type Controller interface {
	SessionID() string
	View() session.View
	OnChange(fn func(session.View)) int
	RemoveOnChange(id int)
	SubmitMove(at board.Coord) error
	Promote(kind board.PromotionKind) error
	SetPlayMode(mode board.PlayMode) error
	Press(k session.Key) bool
	StartAutoPlay() (*session.AutoPlay, error)
	StopAutoPlay() bool
}

type Options struct {
	// Modes are bound to the 1, 2 and 3 keys.
	Modes     [3]board.PlayMode
	RenderDir string
	Renderer  render.Renderer
	Formatter *viewpresenter.Formatter
	Logger    *zap.Logger
}

// DefaultModes derives the three mode keys from the configured mode: white
// and black against its opponent engine, then engine against engine.
func DefaultModes(base board.PlayMode) [3]board.PlayMode {
	opp := base.Opponent
	a, b := base.EngineA, base.EngineB
	if base.IsAIVsAI() {
		opp = a
	}
	if a == "" {
		a = board.MiniMaxAI
	}
	if b == "" {
		b = board.DummyAI
	}
	return [3]board.PlayMode{
		board.PlayerVsAI(board.White, opp),
		board.PlayerVsAI(board.Black, opp),
		board.AIVsAI(a, b, base.DepthA, base.DepthB),
	}
}

type App struct {
	ctrl   Controller
	opts   Options
	logger *zap.Logger

	app   *tview.Application
	box   *tview.Box
	info  *tview.TextView
	dirty chan struct{}

	mu       sync.Mutex
	view     session.View
	cursor   board.Coord
	flash    string
	flashAt  time.Time
	exporter sync.WaitGroup
}

func New(ctrl Controller, opts Options) *App {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Renderer == nil {
		opts.Renderer = render.NewRenderer()
	}
	if opts.Formatter == nil {
		opts.Formatter = viewpresenter.NewFormatter(nil)
	}
	a := &App{
		ctrl:   ctrl,
		opts:   opts,
		logger: opts.Logger,
		app:    tview.NewApplication(),
		box:    tview.NewBox(),
		info:   tview.NewTextView().SetDynamicColors(false).SetWrap(true),
		dirty:  make(chan struct{}, 1),
		view:   ctrl.View(),
		cursor: board.Coord{X: 6, Y: 4},
	}
	a.box.SetBorder(true).SetTitle(" chessboard ")
	a.box.SetDrawFunc(a.draw)
	a.box.SetMouseCapture(a.mouse)
	a.info.SetBorder(true)

	layout := tview.NewFlex().
		AddItem(a.box, boardWidth+2, 0, true).
		AddItem(a.info, 0, 1, false)
	a.app.SetRoot(layout, true).EnableMouse(true)
	a.app.SetInputCapture(a.key)
	return a
}

// Run blocks until the user quits or ctx is done.
func (a *App) Run(ctx context.Context) error {
	id := a.ctrl.OnChange(a.onChange)
	defer a.ctrl.RemoveOnChange(id)

	pumpCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go a.pump(pumpCtx)
	go func() {
		<-pumpCtx.Done()
		a.app.Stop()
	}()

	a.refreshInfo()
	err := a.app.Run()
	a.exporter.Wait()
	return err
}

func (a *App) onChange(v session.View) {
	a.mu.Lock()
	if v.Version < a.view.Version {
		a.mu.Unlock()
		return
	}
	a.view = v
	a.mu.Unlock()
	a.markDirty()
}

func (a *App) markDirty() {
	select {
	case a.dirty <- struct{}{}:
	default:
	}
}

// pump coalesces change notifications into redraws so controller goroutines never block on the UI.
func (a *App) pump(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-a.dirty:
			a.app.QueueUpdateDraw(a.refreshInfo)
		}
	}
}

func (a *App) snapshot() (session.View, board.Coord, string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	flash := a.flash
	if !a.flashAt.IsZero() && time.Since(a.flashAt) > 10*time.Second {
		flash = ""
	}
	return a.view, a.cursor, flash
}

func (a *App) setFlash(s string) {
	a.mu.Lock()
	a.flash = s
	a.flashAt = time.Now()
	a.mu.Unlock()
	a.markDirty()
}

func (a *App) flipped(v session.View) bool {
	return !v.Mode.IsAIVsAI() && v.Mode.Player == board.Black
}

func (a *App) refreshInfo() {
	v, _, flash := a.snapshot()
	lines := a.opts.Formatter.Lines(viewfeed.ToDTO(v))
	if flash != "" {
		lines = append(lines, "", flash)
	}
	a.info.SetText(strings.Join(lines, "\n"))
}

func (a *App) draw(screen tcell.Screen, x, y, width, height int) (int, int, int, int) {
	ix, iy, iw, ih := x+1, y+1, max(width-2, 0), max(height-2, 0)
	v, cursor, _ := a.snapshot()
	if !v.HasBoard {
		return ix, iy, iw, ih
	}
	var cur *board.Coord
	if v.CanMove() {
		cur = &cursor
	}
	drawBoard(screen, grid{x: ix, y: iy, flip: a.flipped(v)}, v.Board, cur)
	return ix, iy, iw, ih
}

func (a *App) mouse(action tview.MouseAction, ev *tcell.EventMouse) (tview.MouseAction, *tcell.EventMouse) {
	if action != tview.MouseLeftClick {
		return action, ev
	}
	ix, iy, _, _ := a.box.GetInnerRect()
	v, _, _ := a.snapshot()
	sx, sy := ev.Position()
	c, ok := grid{x: ix, y: iy, flip: a.flipped(v)}.at(sx, sy)
	if !ok {
		return action, ev
	}
	a.mu.Lock()
	a.cursor = c
	a.mu.Unlock()
	a.dispatch(Input{Action: ActSelect})
	return tview.MouseConsumed, nil
}

func (a *App) key(ev *tcell.EventKey) *tcell.EventKey {
	in := Decode(ev)
	if in.Action == ActNone {
		return ev
	}
	a.dispatch(in)
	return nil
}

// dispatch runs one input against the controller.
func (a *App) dispatch(in Input) {
	v, cursor, _ := a.snapshot()
	f := a.opts.Formatter
	switch in.Action {
	case ActCursorUp, ActCursorDown, ActCursorLeft, ActCursorRight:
		a.mu.Lock()
		a.cursor = moveCursor(a.cursor, in.Action, a.flipped(v))
		a.mu.Unlock()
		a.markDirty()
	case ActSelect:
		if err := a.ctrl.SubmitMove(cursor); err != nil {
			a.setFlash(f.Rejected("play", err))
		}
	case ActHistoryBack:
		a.ctrl.Press(session.KeyLeft)
	case ActHistoryForward:
		a.ctrl.Press(session.KeyRight)
	case ActPromote:
		if err := a.ctrl.Promote(in.Promotion); err != nil {
			a.setFlash(f.Rejected("promote", err))
		}
	case ActMode:
		if err := a.ctrl.SetPlayMode(a.opts.Modes[in.Mode]); err != nil {
			a.setFlash(f.Rejected("set_play_mode", err))
		}
	case ActToggleAuto:
		if a.ctrl.StopAutoPlay() {
			return
		}
		if _, err := a.ctrl.StartAutoPlay(); err != nil {
			a.setFlash(f.Rejected("auto_play", err))
		}
	case ActExport:
		a.export(v, cursor)
	case ActQuit:
		a.app.Stop()
	}
}

func (a *App) export(v session.View, cursor board.Coord) {
	f := a.opts.Formatter
	if !v.HasBoard {
		a.setFlash(f.Export("", errors.New("no board to save")))
		return
	}
	dto := viewfeed.ToDTO(v)
	opts := render.Options{Title: f.Mode(dto.Mode), Caption: f.Phase(dto), Flip: a.flipped(v)}
	if v.CanMove() {
		opts.Cursor = &cursor
	}
	name := render.FileName(a.ctrl.SessionID(), v.Turn, v.Offset)
	a.exporter.Add(1)
	go func() {
		defer a.exporter.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		path, err := render.Export(ctx, a.opts.Renderer, a.opts.RenderDir, name, v.Board, opts)
		if err != nil {
			a.logger.Warn("board_export_failed", zap.Error(err))
		} else {
			a.logger.Info("board_exported", zap.String("path", path))
		}
		a.setFlash(f.Export(path, err))
	}()
}
