package session

import (
	"context"
	"sync"
	"time"

	"github.com/park285/chessboard-client/internal/board"
	"go.uber.org/zap"
)

// AutoPlay is the handle of a running AI-vs-AI loop.
type AutoPlay struct {
	c    *Controller
	stop chan struct{}
	done chan struct{}
	once sync.Once

	// cancelTick aborts the request of the current tick. Guarded by c.mu.
	cancelTick context.CancelFunc
}

// Stop cancels the loop. A response still pending is discarded when it arrives.
func (a *AutoPlay) Stop() {
	a.c.mu.Lock()
	stopped := a.c.stopLoopLocked(a)
	a.c.mu.Unlock()
	if stopped {
		a.c.notify()
	}
}

// Done is closed once the loop goroutine has exited.
func (a *AutoPlay) Done() <-chan struct{} { return a.done }

// StartAutoPlay begins ticking the engine with the auto-play coordinate. The
// first tick is sent immediately and each following one TickInterval after the
// previous response.
func (c *Controller) StartAutoPlay() (*AutoPlay, error) {
	c.mu.Lock()
	err := c.startedLocked()
	switch {
	case err != nil:
	case c.setupSeq != 0:
		err = ErrSetupInFlight
	case c.state == nil:
		err = ErrNotLive
	case !c.mode.IsAIVsAI():
		err = ErrNotAIVsAI
	case c.auto != nil:
		err = ErrAutoPlayRunning
	}
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}
	a := &AutoPlay{c: c, stop: make(chan struct{}), done: make(chan struct{})}
	c.auto = a
	c.version++
	c.autoWG.Add(1)
	go c.runAutoPlay(a)
	c.mu.Unlock()

	c.logger.Info("auto_play_started", zap.Duration("interval", c.opts.TickInterval))
	c.notify()
	return a, nil
}

// StopAutoPlay stops the running loop, if any.
func (c *Controller) StopAutoPlay() bool {
	c.mu.Lock()
	stopped := c.stopAutoPlayLocked()
	c.mu.Unlock()
	if stopped {
		c.notify()
	}
	return stopped
}

func (c *Controller) stopAutoPlayLocked() bool { return c.stopLoopLocked(c.auto) }

func (c *Controller) stopLoopLocked(a *AutoPlay) bool {
	if a == nil {
		return false
	}
	a.once.Do(func() { close(a.stop) })
	if a.cancelTick != nil {
		a.cancelTick()
	}
	if c.auto != a {
		return false
	}
	c.auto = nil
	c.version++
	c.logger.Info("auto_play_stopped")
	return true
}

func (c *Controller) runAutoPlay(a *AutoPlay) {
	defer c.autoWG.Done()
	defer close(a.done)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-a.stop:
			return
		case <-timer.C:
		}

		c.mu.Lock()
		if c.auto != a {
			c.mu.Unlock()
			return
		}
		c.seq++
		seq := c.seq
		ctx, cancel := context.WithTimeout(c.ctx, c.opts.RequestTimeout)
		a.cancelTick = cancel
		c.mu.Unlock()

		st, err := c.tick(ctx, a)
		cancel()

		c.mu.Lock()
		if c.auto != a {
			c.mu.Unlock()
			c.logger.Debug("stale_response_discarded", zap.String("op", "auto_play"), zap.Uint64("seq", seq))
			return
		}
		switch {
		case seq != c.seq:
			c.mu.Unlock()
			c.logger.Debug("stale_response_discarded", zap.String("op", "auto_play"), zap.Uint64("seq", seq))
		case err != nil:
			c.failLocked("auto_play", err, seq)
			c.mu.Unlock()
			c.notify()
		default:
			c.applyStateLocked(st)
			rec := c.recordLocked()
			c.mu.Unlock()
			c.saveRecord(rec)
			c.notify()
		}
		timer.Reset(c.opts.TickInterval)
	}
}

// tick sends one auto-play request. ctx is cancelled by Stop, so a loop
// stopped before this point sends nothing.
func (c *Controller) tick(ctx context.Context, a *AutoPlay) (*board.GameState, error) {
	select {
	case <-a.stop:
		return nil, context.Canceled
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	return c.engine.Play(ctx, board.AutoPlayCoord)
}
