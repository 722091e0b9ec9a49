package enginefast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/park285/chessboard-client/internal/board"
	"github.com/valyala/fasthttp"
)

const (
	PathResetBoard    = "/api/reset_board"
	PathSetPlayMode   = "/api/set_play_mode"
	PathPlay          = "/api/play"
	PathPromote       = "/api/promote"
	PathPreviousBoard = "/api/get_previous_board"
	PathNextBoard     = "/api/get_next_board"
)

// Client talks to the remote chess engine. Every call returns a fully parsed,
// validated response or an error; it never returns partial state.
type Client struct {
	baseURL string
	http    *fasthttp.Client

	timeout  time.Duration
	attempts int
}

type Option func(*Client)

// WithTimeout bounds each attempt; a shorter context deadline wins.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithRetry sets how many attempts idempotent GETs get. POSTs are sent once.
func WithRetry(attempts int) Option {
	return func(c *Client) { c.attempts = max(attempts, 1) }
}

// WithDial replaces the connection dialer (in-memory listeners in tests).
func WithDial(dial fasthttp.DialFunc) Option {
	return func(c *Client) { c.http.Dial = dial }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     &fasthttp.Client{ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 4},
		timeout:  10 * time.Second,
		attempts: 3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) BaseURL() string { return c.baseURL }

// ResetBoard fetches a fresh starting board.
func (c *Client) ResetBoard(ctx context.Context) (board.Snapshot, error) {
	return c.getBoard(ctx, PathResetBoard, true)
}

// SetPlayMode starts a new engine game. The returned state carries mode.
func (c *Client) SetPlayMode(ctx context.Context, mode board.PlayMode) (*board.GameState, error) {
	if err := mode.Validate(); err != nil {
		return nil, fmt.Errorf("set play mode: %w", err)
	}
	st, err := c.postState(ctx, PathSetPlayMode, board.SetupRequest{Setup: mode})
	if err != nil {
		return nil, err
	}
	if st.Mode == nil {
		m := mode
		st.Mode = &m
	}
	return st, nil
}

// Play submits a square selection. AI ticks send board.AutoPlayCoord.
func (c *Client) Play(ctx context.Context, at board.Coord) (*board.GameState, error) {
	return c.postState(ctx, PathPlay, board.PlayRequest{X: at.X, Y: at.Y})
}

func (c *Client) Promote(ctx context.Context, kind board.PromotionKind) (*board.GameState, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("promote: invalid piece %q", kind)
	}
	return c.postState(ctx, PathPromote, board.PromoteRequest{PromoteTo: kind})
}

func (c *Client) PreviousBoard(ctx context.Context) (board.Snapshot, error) {
	return c.getBoard(ctx, PathPreviousBoard, false)
}

func (c *Client) NextBoard(ctx context.Context) (board.Snapshot, error) {
	return c.getBoard(ctx, PathNextBoard, false)
}

func (c *Client) postState(ctx context.Context, path string, in any) (*board.GameState, error) {
	var st board.GameState
	if err := c.doJSON(ctx, fasthttp.MethodPost, path, in, &st, false); err != nil {
		return nil, err
	}
	if err := st.Validate(); err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}
	return &st, nil
}

func (c *Client) getBoard(ctx context.Context, path string, retry bool) (board.Snapshot, error) {
	var resp board.BoardResponse
	if err := c.doJSON(ctx, fasthttp.MethodGet, path, nil, &resp, retry); err != nil {
		return board.Snapshot{}, err
	}
	if resp.Board == nil {
		return board.Snapshot{}, &DecodeError{Path: path, Err: errors.New("missing board")}
	}
	return *resp.Board, nil
}

// doJSON sends one request and decodes a 2xx body into out. With retry set,
// transport failures and gateway-class statuses are retried with backoff.
func (c *Client) doJSON(ctx context.Context, method, path string, in any, out any, retry bool) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.Header.SetMethod(method)
	req.SetRequestURI(c.baseURL + path)
	req.Header.SetContentType("application/json")
	req.Header.Set("Accept", "application/json")
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", path, err)
		}
		req.SetBody(payload)
	}

	attempts := 1
	if retry {
		attempts = c.attempts
	}
	var err error
	for attempt := 1; ; attempt++ {
		var again bool
		again, err = c.attempt(ctx, req, resp, path)
		if err == nil {
			break
		}
		if !again || attempt >= attempts {
			return err
		}
		if werr := wait(ctx, backoff(attempt)); werr != nil {
			return err
		}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return &DecodeError{Path: path, Err: err}
	}
	return nil
}

// attempt performs one round trip. again reports whether the failure is worth retrying.
func (c *Client) attempt(ctx context.Context, req *fasthttp.Request, resp *fasthttp.Response, path string) (again bool, err error) {
	if err := ctx.Err(); err != nil {
		return false, &TransportError{Path: path, Err: err}
	}
	deadline := time.Now().Add(c.timeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}
	if err := c.http.DoDeadline(req, resp, deadline); err != nil {
		return true, &TransportError{Path: path, Err: err}
	}
	if code := resp.StatusCode(); code < 200 || code > 299 {
		body := resp.Body()
		if len(body) > 512 {
			body = body[:512]
		}
		return retryableStatus(code), &StatusError{Path: path, Status: code, Body: string(body)}
	}
	return false, nil
}

func wait(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// backoff doubles from 100ms and caps at 1.6s.
func backoff(attempt int) time.Duration {
	return 100 * time.Millisecond << min(max(attempt-1, 0), 4)
}

func retryableStatus(code int) bool {
	return code == fasthttp.StatusBadGateway || code == fasthttp.StatusServiceUnavailable ||
		code == fasthttp.StatusGatewayTimeout || code == fasthttp.StatusInternalServerError
}
