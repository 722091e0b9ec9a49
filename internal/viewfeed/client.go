package viewfeed

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/park285/chessboard-client/pkg/viewdto"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateFailed:
		return "failed"
	default:
		return "disconnected"
	}
}

type ViewCallback func(v viewdto.View)

type StateCallback func(s State)

type callbackEntry[T any] struct {
	id int
	cb T
}

// Client follows a view feed and reconnects with backoff when the socket drops.
type Client struct {
	url    string
	logger *zap.Logger

	mu    sync.Mutex
	conn  *websocket.Conn
	state State

	cbM      sync.RWMutex
	viewCbs  []callbackEntry[ViewCallback]
	stateCbs []callbackEntry[StateCallback]
	nextID   int

	maxReconnectAttempts int
	pingInterval         time.Duration
	backoff              func(attempt int) time.Duration

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	rootCtx    context.Context
	rootCancel context.CancelFunc
}

func NewClient(url string, maxReconnectAttempts int, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		url:                  url,
		logger:               logger,
		maxReconnectAttempts: maxReconnectAttempts,
		pingInterval:         30 * time.Second,
		backoff:              reconnectBackoff,
		stopCh:               make(chan struct{}),
		rootCtx:              ctx,
		rootCancel:           cancel,
	}
}

func reconnectBackoff(attempt int) time.Duration {
	d := time.Duration(attempt) * 500 * time.Millisecond
	if d > 5*time.Second {
		return 5 * time.Second
	}
	return d
}

func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.state == StateConnected || c.state == StateConnecting {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()
	c.setState(StateConnecting)

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	conn, err := c.dial(dialCtx)
	if err != nil {
		c.setState(StateFailed)
		c.scheduleReconnect()
		return err
	}
	c.attach(conn)
	return nil
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	conn, _, err := websocket.Dial(ctx, c.url, &websocket.DialOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	return conn, err
}

func (c *Client) attach(conn *websocket.Conn) {
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	c.setState(StateConnected)
	c.wg.Add(2)
	go c.listen(conn)
	go c.pingLoop(conn)
}

func (c *Client) listen(conn *websocket.Conn) {
	defer c.wg.Done()
	for {
		var env viewdto.Envelope
		if err := wsjson.Read(c.rootCtx, conn, &env); err != nil {
			if c.isStopping() {
				return
			}
			c.logger.Info("feed_disconnected", zap.Error(err))
			c.dropConn(conn, websocket.StatusGoingAway, "reconnect")
			c.setState(StateDisconnected)
			c.scheduleReconnect()
			return
		}
		if env.View == nil {
			continue
		}
		c.cbM.RLock()
		cbs := append([]callbackEntry[ViewCallback](nil), c.viewCbs...)
		c.cbM.RUnlock()
		for _, e := range cbs {
			e.cb(*env.View)
		}
	}
}

func (c *Client) pingLoop(conn *websocket.Conn) {
	defer c.wg.Done()
	t := time.NewTicker(c.pingInterval)
	defer t.Stop()
	failures := 0
	for {
		select {
		case <-c.stopCh:
			return
		case <-c.rootCtx.Done():
			return
		case <-t.C:
		}
		if !c.current(conn) {
			return
		}
		ctx, cancel := context.WithTimeout(c.rootCtx, 3*time.Second)
		err := conn.Ping(ctx)
		cancel()
		if err == nil {
			failures = 0
			continue
		}
		failures++
		if failures >= 2 {
			// listen observes the close and reconnects.
			c.dropConn(conn, websocket.StatusGoingAway, "ping failure")
			return
		}
	}
}

func (c *Client) scheduleReconnect() {
	if c.maxReconnectAttempts <= 0 || c.isStopping() {
		return
	}
	c.setState(StateReconnecting)
	go func() {
		for attempt := 1; attempt <= c.maxReconnectAttempts; attempt++ {
			select {
			case <-c.stopCh:
				return
			case <-time.After(c.backoff(attempt)):
			}
			dialCtx, cancel := context.WithTimeout(c.rootCtx, 10*time.Second)
			conn, err := c.dial(dialCtx)
			cancel()
			if err != nil {
				c.logger.Debug("feed_reconnect_failed", zap.Int("attempt", attempt), zap.Error(err))
				continue
			}
			if c.isStopping() {
				_ = conn.Close(websocket.StatusNormalClosure, "close")
				return
			}
			c.attach(conn)
			return
		}
		c.setState(StateFailed)
	}()
}

func (c *Client) OnView(cb ViewCallback) int {
	c.cbM.Lock()
	defer c.cbM.Unlock()
	c.nextID++
	c.viewCbs = append(c.viewCbs, callbackEntry[ViewCallback]{id: c.nextID, cb: cb})
	return c.nextID
}

func (c *Client) RemoveViewCallback(id int) {
	c.cbM.Lock()
	defer c.cbM.Unlock()
	for i, e := range c.viewCbs {
		if e.id == id {
			c.viewCbs = append(c.viewCbs[:i], c.viewCbs[i+1:]...)
			return
		}
	}
}

func (c *Client) OnStateChange(cb StateCallback) int {
	c.cbM.Lock()
	defer c.cbM.Unlock()
	c.nextID++
	c.stateCbs = append(c.stateCbs, callbackEntry[StateCallback]{id: c.nextID, cb: cb})
	return c.nextID
}

func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()

	c.cbM.RLock()
	cbs := append([]callbackEntry[StateCallback](nil), c.stateCbs...)
	c.cbM.RUnlock()
	for _, e := range cbs {
		e.cb(s)
	}
}

func (c *Client) Close(ctx context.Context) error {
	c.stopOnce.Do(func() { close(c.stopCh) })
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn != nil {
		c.dropConn(conn, websocket.StatusNormalClosure, "close")
	}
	c.rootCancel()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		c.setState(StateDisconnected)
		return nil
	}
}

func (c *Client) current(conn *websocket.Conn) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn == conn
}

func (c *Client) dropConn(conn *websocket.Conn, code websocket.StatusCode, reason string) {
	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	c.mu.Unlock()
	if err := conn.Close(code, reason); err != nil && !errors.Is(err, context.Canceled) {
		c.logger.Debug("feed_close", zap.Error(err))
	}
}

func (c *Client) isStopping() bool {
	select {
	case <-c.stopCh:
		return true
	default:
		return false
	}
}
