// Package enginetest runs a scripted chess engine behind an in-memory fasthttp listener.
// It moves pieces without checking legality; it exists to drive clients through the
// real wire protocol.
package enginetest

import (
	"encoding/json"
	"net"
	"sync"
	"testing"

	"github.com/park285/chessboard-client/internal/board"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"
)

// BaseURL is the address clients should use; the dialer ignores the host.
const BaseURL = "http://engine.test"

var startRows = []string{
	"rnbqkbnr",
	"pppppppp",
	"........",
	"........",
	"........",
	"........",
	"PPPPPPPP",
	"RNBQKBNR",
}

// StartBoard is the initial position.
func StartBoard() board.Snapshot {
	b, err := board.ParseRows(startRows...)
	if err != nil {
		panic(err)
	}
	return b
}

// Request is one recorded call.
type Request struct {
	Method string
	Path   string
	Body   string
}

type Server struct {
	ln  *fasthttputil.InmemoryListener
	srv *fasthttp.Server

	mu          sync.Mutex
	state       board.GameState
	mode        *board.PlayMode
	selected    *board.Coord
	promoting   *board.Coord
	beforePromo board.Snapshot
	cursor      int
	requests    []Request
	failures    map[string]int
	gates       map[string]*gate
}

type gate struct {
	ch   chan struct{}
	once sync.Once
}

func (g *gate) open() { g.once.Do(func() { close(g.ch) }) }

// New starts a server and registers its shutdown with t.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		ln:       fasthttputil.NewInmemoryListener(),
		failures: make(map[string]int),
		gates:    make(map[string]*gate),
	}
	s.resetLocked()
	s.srv = &fasthttp.Server{Handler: s.handle}
	go func() { _ = s.srv.Serve(s.ln) }()
	t.Cleanup(func() {
		s.mu.Lock()
		for _, g := range s.gates {
			g.open()
		}
		s.mu.Unlock()
		_ = s.ln.Close()
	})
	return s
}

// Dial is a fasthttp.DialFunc connected to the in-memory listener.
func (s *Server) Dial(string) (net.Conn, error) { return s.ln.Dial() }

// FailNext makes the next n calls to path answer with 500.
func (s *Server) FailNext(path string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[path] = n
}

// Hold blocks calls to path until the returned release func runs.
func (s *Server) Hold(path string) (release func()) {
	g := &gate{ch: make(chan struct{})}
	s.mu.Lock()
	s.gates[path] = g
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		if s.gates[path] == g {
			delete(s.gates, path)
		}
		s.mu.Unlock()
		g.open()
	}
}

// SetState replaces the engine's game.
func (s *Server) SetState(st board.GameState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = *st.Clone()
	s.cursor = len(s.state.History)
}

func (s *Server) State() board.GameState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.state.Clone()
}

func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// Count returns how many calls hit path.
func (s *Server) Count(path string) int {
	n := 0
	for _, r := range s.Requests() {
		if r.Path == path {
			n++
		}
	}
	return n
}

func (s *Server) handle(ctx *fasthttp.RequestCtx) {
	path := string(ctx.Path())
	s.mu.Lock()
	s.requests = append(s.requests, Request{Method: string(ctx.Method()), Path: path, Body: string(ctx.PostBody())})
	g := s.gates[path]
	s.mu.Unlock()
	if g != nil {
		<-g.ch
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if n := s.failures[path]; n > 0 {
		s.failures[path] = n - 1
		ctx.Error("could not process play", fasthttp.StatusInternalServerError)
		return
	}

	switch path {
	case "/api/reset_board":
		writeJSON(ctx, board.BoardResponse{Board: ptr(StartBoard())})
	case "/api/set_play_mode":
		var req board.SetupRequest
		if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
			ctx.Error(err.Error(), fasthttp.StatusBadRequest)
			return
		}
		s.resetLocked()
		m := req.Setup
		s.mode = &m
		writeJSON(ctx, s.state)
	case "/api/play":
		var req board.PlayRequest
		if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
			ctx.Error(err.Error(), fasthttp.StatusBadRequest)
			return
		}
		if s.mode == nil {
			ctx.Error("could not process play", fasthttp.StatusInternalServerError)
			return
		}
		s.playLocked(board.Coord{X: req.X, Y: req.Y})
		writeJSON(ctx, s.state)
	case "/api/promote":
		var req board.PromoteRequest
		if err := json.Unmarshal(ctx.PostBody(), &req); err != nil || s.promoting == nil {
			ctx.Error("Bod promotion", fasthttp.StatusInternalServerError)
			return
		}
		at := *s.promoting
		s.state.Board[at.X][at.Y].Piece.Kind = req.PromoteTo.Kind()
		s.promoting = nil
		s.finishTurnLocked(s.beforePromo)
		writeJSON(ctx, s.state)
	case "/api/get_previous_board":
		if s.cursor > 0 {
			s.cursor--
		}
		writeJSON(ctx, board.BoardResponse{Board: ptr(s.boardAtCursorLocked())})
	case "/api/get_next_board":
		if s.cursor < len(s.state.History) {
			s.cursor++
		}
		writeJSON(ctx, board.BoardResponse{Board: ptr(s.boardAtCursorLocked())})
	default:
		ctx.Error("not found", fasthttp.StatusNotFound)
	}
}

func (s *Server) resetLocked() {
	s.state = board.GameState{CurrentPlayer: board.White, Board: StartBoard(), History: []board.Snapshot{}}
	s.selected = nil
	s.promoting = nil
	s.cursor = 0
}

func (s *Server) playLocked(at board.Coord) {
	if s.promoting != nil {
		return
	}
	if s.mode.IsAIVsAI() {
		s.finishTurnLocked(s.state.Board)
		s.state.CurrentPlayer = s.state.CurrentPlayer.Other()
		return
	}
	if !at.InBounds() {
		s.selected = nil
		return
	}
	if s.selected == nil {
		if s.state.Board.At(at).Empty() {
			return
		}
		s.selected = &at
		return
	}
	from := *s.selected
	s.selected = nil
	prev := s.state.Board
	s.state.Board[at.X][at.Y] = s.state.Board[from.X][from.Y]
	s.state.Board[from.X][from.Y] = board.Square{}
	if p := s.state.Board[at.X][at.Y].Piece; p.Kind == board.Pawn && (at.X == 0 || at.X == board.Size-1) {
		s.promoting = &at
		s.beforePromo = prev
		return
	}
	s.finishTurnLocked(prev)
}

func (s *Server) finishTurnLocked(prev board.Snapshot) {
	s.state.History = append(s.state.History, prev)
	s.state.Turn++
	s.cursor = len(s.state.History)
}

func (s *Server) boardAtCursorLocked() board.Snapshot {
	if s.cursor >= len(s.state.History) {
		return s.state.Board
	}
	return s.state.History[s.cursor]
}

func writeJSON(ctx *fasthttp.RequestCtx, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		ctx.Error(err.Error(), fasthttp.StatusInternalServerError)
		return
	}
	ctx.SetContentType("application/json")
	ctx.SetBody(b)
}

func ptr[T any](v T) *T { return &v }
