package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/park285/chessboard-client/internal/archive"
	"github.com/park285/chessboard-client/internal/board"
	"github.com/park285/chessboard-client/internal/sessionstore"
	"go.uber.org/zap"
)

const (
	defaultTickInterval   = 500 * time.Millisecond
	defaultRequestTimeout = 8 * time.Second
	persistTimeout        = 3 * time.Second
)

// Engine is the remote chess engine as the controller sees it.
type Engine interface {
	ResetBoard(ctx context.Context) (board.Snapshot, error)
	SetPlayMode(ctx context.Context, mode board.PlayMode) (*board.GameState, error)
	Play(ctx context.Context, at board.Coord) (*board.GameState, error)
	Promote(ctx context.Context, kind board.PromotionKind) (*board.GameState, error)
	PreviousBoard(ctx context.Context) (board.Snapshot, error)
	NextBoard(ctx context.Context) (board.Snapshot, error)
}

// Store persists the latest session view.
type Store interface {
	SaveSession(ctx context.Context, rec *sessionstore.Record) error
	LoadSession(ctx context.Context, id string) (*sessionstore.Record, error)
}

// Archive receives games that leave the session.
type Archive interface {
	SaveGame(ctx context.Context, g *archive.Game) error
}

type Options struct {
	SessionID      string
	DefaultMode    board.PlayMode
	TickInterval   time.Duration
	RequestTimeout time.Duration
	// RemoteHistory also asks the engine for the stepped-to snapshot.
	RemoteHistory bool
	// AutoStartAI starts the auto-play loop after every successful AI-vs-AI setup.
	AutoStartAI bool

	Store   Store
	Archive Archive
	Logger  *zap.Logger
	Now     func() time.Time
}

// Key is a history navigation key.
type Key uint8

const (
	KeyLeft Key = iota
	KeyRight
)

const (
	dirBack = iota
	dirForward
)

type remoteView struct {
	offset int
	gen    uint64
	board  board.Snapshot
}

// Controller owns the game state, the history offset and every request to the
// engine. All mutation goes through its methods; the presentation layer reads
// copies via View and OnChange.
type Controller struct {
	engine Engine
	opts   Options
	logger *zap.Logger
	now    func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	autoWG sync.WaitGroup

	mu               sync.Mutex
	phase            Phase
	closed           bool
	state            *board.GameState
	preview          *board.Snapshot
	mode             board.PlayMode
	gameID           string
	gameStarted      time.Time
	offset           int
	gen              uint64
	seq              uint64
	setupSeq         uint64
	actionSeq        uint64
	promotionPending bool
	remote           *remoteView
	stepInFlight     [2]bool
	held             map[Key]bool
	status           Status
	version          uint64
	auto             *AutoPlay
	listeners        map[int]func(View)
	nextListener     int
}

func NewController(engine Engine, opts Options) (*Controller, error) {
	if engine == nil {
		return nil, errors.New("engine is required")
	}
	if opts.DefaultMode.Kind == board.ModeUnset {
		opts.DefaultMode = board.PlayerVsAI(board.White, "")
	}
	if err := opts.DefaultMode.Validate(); err != nil {
		return nil, fmt.Errorf("default mode: %w", err)
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = defaultTickInterval
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = defaultRequestTimeout
	}
	if opts.SessionID == "" {
		opts.SessionID = uuid.NewString()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Controller{
		engine:    engine,
		opts:      opts,
		logger:    logger.With(zap.String("session_id", opts.SessionID)),
		now:       now,
		held:      make(map[Key]bool),
		listeners: make(map[int]func(View)),
	}, nil
}

func (c *Controller) SessionID() string { return c.opts.SessionID }

// Start moves to AwaitingSetup, previews a fresh board and sends the initial
// play mode: the stored one for this session if any, else the default.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.phase != Uninitialized {
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	c.ctx, c.cancel = context.WithCancel(ctx)
	c.phase = AwaitingSetup
	c.version++
	c.mu.Unlock()
	c.logger.Info("session_start")

	mode := c.opts.DefaultMode
	if c.opts.Store != nil {
		lctx, cancel := context.WithTimeout(c.ctx, persistTimeout)
		rec, err := c.opts.Store.LoadSession(lctx, c.opts.SessionID)
		cancel()
		switch {
		case err != nil:
			c.logger.Warn("session_restore_failed", zap.Error(err))
		case rec != nil && rec.Mode.Validate() == nil:
			mode = rec.Mode
			c.logger.Info("session_mode_restored", zap.String("mode", mode.String()))
		}
	}
	c.notify()

	if err := c.ResetBoard(); err != nil {
		return err
	}
	return c.SetPlayMode(mode)
}

// Close stops the auto-play loop, waits for outstanding requests and archives
// the current game.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.stopAutoPlayLocked()
	game := c.archiveLocked(archive.ReasonShutdown)
	cancel := c.cancel
	c.version++
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	c.wg.Wait()
	c.autoWG.Wait()
	c.saveArchive(game)
	c.logger.Info("session_closed")
	return nil
}

// Wait blocks until every dispatched request has been applied or discarded.
// The auto-play loop is not included.
func (c *Controller) Wait() { c.wg.Wait() }

// ResetBoard fetches a starting board. It is only displayed while no game
// state has arrived yet.
func (c *Controller) ResetBoard() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.startedLocked(); err != nil {
		return err
	}
	gen := c.gen
	c.dispatchLocked(func(ctx context.Context) {
		snap, err := c.engine.ResetBoard(ctx)
		c.mu.Lock()
		if err != nil {
			c.failLocked("reset_board", err, 0)
		} else if c.state == nil && c.gen == gen {
			c.preview = &snap
			c.version++
		}
		c.mu.Unlock()
		c.notify()
	})
	return nil
}

// SetPlayMode starts a new engine game. It is allowed at any time after Start;
// any in-flight move or setup becomes stale and the auto-play loop stops. The
// session stays in AwaitingSetup until the engine answers; on failure the
// previous game, if any, is shown again.
func (c *Controller) SetPlayMode(mode board.PlayMode) error {
	if err := mode.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMode, err)
	}
	c.mu.Lock()
	if err := c.startedLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	c.stopAutoPlayLocked()
	c.seq++
	seq := c.seq
	c.setupSeq = seq
	c.phase = AwaitingSetup
	c.actionSeq = 0
	c.version++
	c.dispatchLocked(func(ctx context.Context) {
		st, err := c.engine.SetPlayMode(ctx, mode)
		c.finishSetup(seq, mode, st, err)
	})
	c.mu.Unlock()
	c.logger.Info("set_play_mode", zap.String("mode", mode.String()), zap.Uint64("seq", seq))
	c.notify()
	return nil
}

func (c *Controller) finishSetup(seq uint64, mode board.PlayMode, st *board.GameState, err error) {
	c.mu.Lock()
	if c.setupSeq == seq {
		c.setupSeq = 0
	}
	if seq != c.seq || c.closed {
		c.mu.Unlock()
		c.logger.Debug("stale_response_discarded", zap.String("op", "set_play_mode"), zap.Uint64("seq", seq))
		return
	}
	if err != nil {
		if c.state != nil {
			c.phase = phaseFor(c.offset)
		}
		c.failLocked("set_play_mode", err, seq)
		c.mu.Unlock()
		c.notify()
		return
	}

	old := c.archiveLocked(archive.ReasonModeChange)
	m := mode
	st.Mode = &m
	c.mode = mode
	c.gameID = uuid.NewString()
	c.gameStarted = c.now()
	c.state = st
	c.preview = nil
	c.offset = 0
	c.phase = Live
	c.promotionPending = false
	c.remote = nil
	c.gen++
	c.status = Status{}
	c.version++
	rec := c.recordLocked()
	autoStart := mode.IsAIVsAI() && c.opts.AutoStartAI && !c.closed
	c.mu.Unlock()

	c.logger.Info("game_started", zap.String("mode", mode.String()), zap.Int("turn", st.Turn))
	c.saveArchive(old)
	c.saveRecord(rec)
	c.notify()
	if autoStart {
		if _, err := c.StartAutoPlay(); err != nil && !errors.Is(err, ErrAutoPlayRunning) {
			c.logger.Warn("auto_play_start_failed", zap.Error(err))
		}
	}
}

// SubmitMove sends a square selection. Guard failures are returned and no
// request is made; engine failures are logged and shown in the status.
func (c *Controller) SubmitMove(at board.Coord) error {
	c.mu.Lock()
	if err := c.moveGuardLocked(); err != nil {
		c.mu.Unlock()
		c.logger.Debug("move_rejected", zap.Stringer("at", at), zap.Error(err))
		return err
	}
	if !at.InBounds() {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrOutOfBoard, at)
	}
	c.seq++
	seq := c.seq
	c.actionSeq = seq
	c.version++
	c.dispatchLocked(func(ctx context.Context) {
		st, err := c.engine.Play(ctx, at)
		c.finishAction("play", seq, st, err)
	})
	c.mu.Unlock()
	c.notify()
	return nil
}

// Promote resolves a pending promotion.
func (c *Controller) Promote(kind board.PromotionKind) error {
	c.mu.Lock()
	err := c.liveGuardLocked()
	switch {
	case err != nil:
	case !c.promotionPending:
		err = ErrNoPromotionPending
	case c.actionSeq != 0:
		err = ErrMoveInFlight
	case !kind.Valid():
		err = fmt.Errorf("%w: %q", ErrInvalidPromotion, kind)
	}
	if err != nil {
		c.mu.Unlock()
		c.logger.Debug("promote_rejected", zap.String("kind", string(kind)), zap.Error(err))
		return err
	}
	c.seq++
	seq := c.seq
	c.actionSeq = seq
	c.version++
	c.dispatchLocked(func(ctx context.Context) {
		st, err := c.engine.Promote(ctx, kind)
		c.finishAction("promote", seq, st, err)
	})
	c.mu.Unlock()
	c.notify()
	return nil
}

func (c *Controller) finishAction(op string, seq uint64, st *board.GameState, err error) {
	c.mu.Lock()
	if c.actionSeq == seq {
		c.actionSeq = 0
		c.version++
	}
	if seq != c.seq || c.closed {
		c.mu.Unlock()
		c.logger.Debug("stale_response_discarded", zap.String("op", op), zap.Uint64("seq", seq))
		c.notify()
		return
	}
	if err != nil {
		c.failLocked(op, err, seq)
		c.mu.Unlock()
		c.notify()
		return
	}
	c.applyStateLocked(st)
	rec := c.recordLocked()
	c.mu.Unlock()
	c.saveRecord(rec)
	c.notify()
}

// StepBack shows the previous snapshot. It reports false when there is no
// older snapshot, a setup is in flight or an identical remote step is still
// outstanding.
func (c *Controller) StepBack() bool {
	c.mu.Lock()
	if c.closed || c.state == nil || c.setupSeq != 0 {
		c.mu.Unlock()
		return false
	}
	next, ok := StepBack(c.state, c.offset)
	if !ok {
		c.mu.Unlock()
		return false
	}
	return c.stepLocked(dirBack, next)
}

// StepForward moves back toward the live board.
func (c *Controller) StepForward() bool {
	c.mu.Lock()
	if c.closed || c.state == nil || c.setupSeq != 0 {
		c.mu.Unlock()
		return false
	}
	next, ok := StepForward(c.offset)
	if !ok {
		c.mu.Unlock()
		return false
	}
	return c.stepLocked(dirForward, next)
}

// stepLocked applies a validated offset change and unlocks.
func (c *Controller) stepLocked(dir, next int) bool {
	if c.opts.RemoteHistory && c.stepInFlight[dir] {
		c.mu.Unlock()
		c.logger.Debug("step_debounced", zap.Int("dir", dir))
		return false
	}
	prev := c.offset
	c.offset = next
	c.phase = phaseFor(next)
	c.remote = nil
	c.version++
	if c.opts.RemoteHistory {
		c.stepInFlight[dir] = true
		gen := c.gen
		c.dispatchLocked(func(ctx context.Context) {
			var (
				snap board.Snapshot
				err  error
				op   = "get_previous_board"
			)
			if dir == dirBack {
				snap, err = c.engine.PreviousBoard(ctx)
			} else {
				op = "get_next_board"
				snap, err = c.engine.NextBoard(ctx)
			}
			c.finishStep(op, dir, gen, prev, next, snap, err)
		})
	}
	c.mu.Unlock()
	c.notify()
	return true
}

// finishStep pins a remote snapshot. A failed step is undone so the local
// offset keeps matching the engine's history cursor.
func (c *Controller) finishStep(op string, dir int, gen uint64, prev, target int, snap board.Snapshot, err error) {
	c.mu.Lock()
	c.stepInFlight[dir] = false
	switch {
	case err != nil:
		if c.gen == gen && c.offset == target {
			c.offset = prev
			if c.setupSeq == 0 {
				c.phase = phaseFor(prev)
			}
		}
		c.failLocked(op, err, 0)
	case c.gen == gen && c.offset == target && target > 0:
		c.remote = &remoteView{offset: target, gen: gen, board: snap}
		c.version++
	default:
		c.logger.Debug("stale_response_discarded", zap.String("op", op), zap.Int("offset", target))
	}
	c.mu.Unlock()
	c.notify()
}

// KeyDown handles a key-down edge. Repeats of a held key are ignored until KeyUp.
func (c *Controller) KeyDown(k Key) bool {
	c.mu.Lock()
	if c.held[k] {
		c.mu.Unlock()
		return false
	}
	c.held[k] = true
	c.mu.Unlock()
	switch k {
	case KeyLeft:
		return c.StepBack()
	case KeyRight:
		return c.StepForward()
	default:
		return false
	}
}

func (c *Controller) KeyUp(k Key) {
	c.mu.Lock()
	delete(c.held, k)
	c.mu.Unlock()
}

// Press is KeyDown followed by KeyUp, for input sources without release events.
func (c *Controller) Press(k Key) bool {
	defer c.KeyUp(k)
	return c.KeyDown(k)
}

// View returns a copy of what should be displayed now.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

// OnChange registers fn to receive a fresh View after every change. Callbacks
// run on the goroutine that made the change; use View.Version to drop
// out-of-order deliveries.
func (c *Controller) OnChange(fn func(View)) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextListener++
	c.listeners[c.nextListener] = fn
	return c.nextListener
}

func (c *Controller) RemoveOnChange(id int) {
	c.mu.Lock()
	delete(c.listeners, id)
	c.mu.Unlock()
}

func (c *Controller) notify() {
	c.mu.Lock()
	v := c.viewLocked()
	ids := make([]int, 0, len(c.listeners))
	for id := range c.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(View), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, c.listeners[id])
	}
	c.mu.Unlock()
	for _, fn := range fns {
		fn(v)
	}
}

func (c *Controller) viewLocked() View {
	v := View{
		Version:          c.version,
		SessionID:        c.opts.SessionID,
		GameID:           c.gameID,
		Phase:            c.phase,
		Offset:           c.offset,
		Mode:             c.mode,
		PromotionPending: c.promotionPending,
		SetupInFlight:    c.setupSeq != 0,
		ActionInFlight:   c.actionSeq != 0,
		AutoPlaying:      c.auto != nil,
		Status:           c.status,
	}
	switch {
	case c.state != nil:
		v.Turn = c.state.Turn
		v.CurrentPlayer = c.state.CurrentPlayer
		if r := c.remote; r != nil && r.offset == c.offset && r.gen == c.gen {
			v.Board, v.HasBoard, v.RemoteSnapshot = r.board, true, true
		} else if snap, err := Navigate(c.state, c.offset); err == nil {
			v.Board, v.HasBoard = snap, true
		}
	case c.preview != nil:
		v.Board, v.HasBoard = *c.preview, true
	}
	return v
}

func (c *Controller) startedLocked() error {
	switch {
	case c.closed:
		return ErrClosed
	case c.phase == Uninitialized:
		return ErrNotStarted
	}
	return nil
}

func (c *Controller) liveGuardLocked() error {
	if err := c.startedLocked(); err != nil {
		return err
	}
	switch {
	case c.setupSeq != 0:
		return ErrSetupInFlight
	case c.state == nil:
		return ErrNotLive
	case c.offset > 0:
		return ErrViewingHistory
	}
	return nil
}

func (c *Controller) moveGuardLocked() error {
	if err := c.liveGuardLocked(); err != nil {
		return err
	}
	switch {
	case c.mode.IsAIVsAI():
		return ErrAIControlled
	case c.promotionPending:
		return ErrPromotionPending
	case c.actionSeq != 0:
		return ErrMoveInFlight
	}
	return nil
}

// applyStateLocked replaces the game state wholesale with a fresh engine answer.
func (c *Controller) applyStateLocked(st *board.GameState) {
	if st.Mode == nil {
		m := c.mode
		st.Mode = &m
	}
	oldTurn := 0
	if c.state != nil {
		oldTurn = c.state.Turn
	}
	c.offset = followLive(c.offset, oldTurn, st.Turn)
	c.state = st
	c.phase = phaseFor(c.offset)
	c.promotionPending = st.NeedsPromotion()
	c.remote = nil
	c.gen++
	c.status = Status{}
	c.version++
}

func (c *Controller) failLocked(op string, err error, seq uint64) {
	kind := Classify(err)
	c.status = Status{Kind: kind, Op: op, Message: err.Error(), At: c.now()}
	c.version++
	c.logger.Warn("engine_request_failed",
		zap.String("op", op),
		zap.String("kind", kind.String()),
		zap.Uint64("seq", seq),
		zap.Error(err),
	)
}

// dispatchLocked runs fn on its own goroutine with a request deadline. The
// caller holds c.mu, which orders wg.Add before Close's Wait.
func (c *Controller) dispatchLocked(fn func(ctx context.Context)) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ctx, cancel := context.WithTimeout(c.ctx, c.opts.RequestTimeout)
		defer cancel()
		fn(ctx)
	}()
}

func (c *Controller) recordLocked() *sessionstore.Record {
	if c.opts.Store == nil || c.state == nil {
		return nil
	}
	return &sessionstore.Record{
		SessionID: c.opts.SessionID,
		GameID:    c.gameID,
		Mode:      c.mode,
		State:     c.state,
		Offset:    c.offset,
		UpdatedAt: c.now(),
	}
}

func (c *Controller) archiveLocked(reason string) *archive.Game {
	if c.opts.Archive == nil || c.state == nil {
		return nil
	}
	return archive.FromState(c.gameID, c.opts.SessionID, c.mode, c.state, c.gameStarted, c.now(), reason)
}

func (c *Controller) persistContext() (context.Context, context.CancelFunc) {
	parent := context.Background()
	if c.ctx != nil {
		parent = context.WithoutCancel(c.ctx)
	}
	return context.WithTimeout(parent, persistTimeout)
}

func (c *Controller) saveRecord(rec *sessionstore.Record) {
	if rec == nil {
		return
	}
	ctx, cancel := c.persistContext()
	defer cancel()
	if err := c.opts.Store.SaveSession(ctx, rec); err != nil {
		c.logger.Warn("session_save_failed", zap.Error(err))
	}
}

func (c *Controller) saveArchive(g *archive.Game) {
	if g == nil {
		return
	}
	ctx, cancel := c.persistContext()
	defer cancel()
	if err := c.opts.Archive.SaveGame(ctx, g); err != nil {
		c.logger.Warn("archive_save_failed", zap.String("game_id", g.ID), zap.Error(err))
		return
	}
	c.logger.Info("game_archived", zap.String("game_id", g.ID), zap.Int("turns", g.Turns), zap.String("reason", g.Reason))
}

func phaseFor(offset int) Phase {
	if offset > 0 {
		return Viewing
	}
	return Live
}
