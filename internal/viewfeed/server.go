package viewfeed

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/park285/chessboard-client/internal/archive"
	"github.com/park285/chessboard-client/internal/render"
	"github.com/park285/chessboard-client/internal/session"
	"github.com/park285/chessboard-client/pkg/viewdto"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const (
	clientBuffer = 8
	writeTimeout = 5 * time.Second

	defaultGamesLimit = 20
	maxGamesLimit     = 100
)

// Source is the controller surface the feed reads.
type Source interface {
	View() session.View
	OnChange(fn func(session.View)) int
	RemoveOnChange(id int)
}

// Games is the archive served under /games.
type Games interface {
	GetGame(ctx context.Context, id string) (*archive.Game, error)
	RecentGames(ctx context.Context, sessionID string, limit int) ([]*archive.Game, error)
}

// Sessions is the stored-session index served under /sessions.
type Sessions interface {
	SessionIDs(ctx context.Context) ([]string, error)
	DeleteSession(ctx context.Context, id string) error
}

type subscriber struct {
	ch chan viewdto.View
}

// push delivers v, dropping the oldest queued view when the reader lags.
func (s *subscriber) push(v viewdto.View) {
	for {
		select {
		case s.ch <- v:
			return
		default:
		}
		select {
		case <-s.ch:
		default:
		}
	}
}

// Server publishes the controller's view over HTTP and WebSocket.
type Server struct {
	src      Source
	renderer render.Renderer
	logger   *zap.Logger
	games    Games
	sessions Sessions

	mu         sync.Mutex
	subs       map[*subscriber]struct{}
	latest     viewdto.View
	listenerID int
	started    bool
}

func NewServer(src Source, renderer render.Renderer, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if renderer == nil {
		renderer = render.NewRenderer()
	}
	return &Server{
		src:      src,
		renderer: renderer,
		logger:   logger,
		subs:     make(map[*subscriber]struct{}),
		latest:   ToDTO(src.View()),
	}
}

// WithGames enables the /games routes. Call it before Router.
func (s *Server) WithGames(g Games) *Server {
	s.games = g
	return s
}

// WithSessions enables the /sessions routes. Call it before Router.
func (s *Server) WithSessions(st Sessions) *Server {
	s.sessions = st
	return s
}

// Start subscribes to controller changes.
func (s *Server) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true
	s.listenerID = s.src.OnChange(s.publish)
}

// Stop unsubscribes and disconnects every socket.
func (s *Server) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	id := s.listenerID
	subs := s.subs
	s.subs = make(map[*subscriber]struct{})
	s.mu.Unlock()

	s.src.RemoveOnChange(id)
	for sub := range subs {
		close(sub.ch)
	}
}

func (s *Server) publish(v session.View) {
	dto := ToDTO(v)
	s.mu.Lock()
	defer s.mu.Unlock()
	// Listeners may run out of order; keep the newest.
	if dto.Version < s.latest.Version {
		return
	}
	s.latest = dto
	for sub := range s.subs {
		sub.push(dto)
	}
}

func (s *Server) Latest() viewdto.View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
	r.Get("/state", s.handleState)
	r.Get("/board.png", s.handleBoardPNG)
	r.Get("/ws", s.handleWS)
	if s.games != nil {
		r.Get("/games", s.handleGames)
		r.Get("/games/{id}", s.handleGame)
	}
	if s.sessions != nil {
		r.Get("/sessions", s.handleSessions)
		r.Delete("/sessions/{id}", s.handleDeleteSession)
	}
	return r
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Debug("feed_json_write_failed", zap.Error(err))
	}
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, s.Latest())
}

// handleGames lists archived games of ?session=, defaulting to the live session.
func (s *Server) handleGames(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		sessionID = s.src.View().SessionID
	}
	limit := defaultGamesLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = min(n, maxGamesLimit)
	}
	games, err := s.games.RecentGames(r.Context(), sessionID, limit)
	if err != nil {
		s.logger.Warn("feed_games_failed", zap.String("session_id", sessionID), zap.Error(err))
		http.Error(w, "archive unavailable", http.StatusBadGateway)
		return
	}
	if games == nil {
		games = []*archive.Game{}
	}
	s.writeJSON(w, games)
}

func (s *Server) handleGame(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	g, err := s.games.GetGame(r.Context(), id)
	switch {
	case errors.Is(err, archive.ErrNotFound):
		http.Error(w, "game not found", http.StatusNotFound)
	case err != nil:
		s.logger.Warn("feed_game_failed", zap.String("game_id", id), zap.Error(err))
		http.Error(w, "archive unavailable", http.StatusBadGateway)
	default:
		s.writeJSON(w, g)
	}
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	ids, err := s.sessions.SessionIDs(r.Context())
	if err != nil {
		s.logger.Warn("feed_sessions_failed", zap.Error(err))
		http.Error(w, "session store unavailable", http.StatusBadGateway)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	s.writeJSON(w, ids)
}

// handleDeleteSession forgets a stored session. The live one keeps saving
// itself, so it cannot be deleted here.
func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == s.src.View().SessionID {
		http.Error(w, "session is live", http.StatusConflict)
		return
	}
	if err := s.sessions.DeleteSession(r.Context(), id); err != nil {
		s.logger.Warn("feed_session_delete_failed", zap.String("session_id", id), zap.Error(err))
		http.Error(w, "session store unavailable", http.StatusBadGateway)
		return
	}
	s.logger.Info("session_forgotten", zap.String("session_id", id))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleBoardPNG(w http.ResponseWriter, r *http.Request) {
	v := s.src.View()
	if !v.HasBoard {
		http.Error(w, "no board yet", http.StatusServiceUnavailable)
		return
	}
	opts := render.Options{Title: v.Mode.String(), Caption: v.Phase.String(), Flip: r.URL.Query().Get("flip") == "1"}
	data, err := s.renderer.RenderPNG(r.Context(), v.Board, opts)
	if err != nil {
		s.logger.Warn("feed_render_failed", zap.Error(err))
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(data)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	if err != nil {
		s.logger.Debug("feed_accept_failed", zap.Error(err))
		return
	}
	defer conn.CloseNow()

	sub := &subscriber{ch: make(chan viewdto.View, clientBuffer)}
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		_ = conn.Close(websocket.StatusGoingAway, "feed stopped")
		return
	}
	s.subs[sub] = struct{}{}
	latest := s.latest
	s.mu.Unlock()
	defer s.drop(sub)

	s.logger.Info("feed_client_connected", zap.String("remote", r.RemoteAddr))
	ctx := conn.CloseRead(r.Context())

	if err := s.write(ctx, conn, viewdto.Envelope{Type: viewdto.TypeHello, View: &latest}); err != nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("feed_client_gone", zap.String("remote", r.RemoteAddr))
			return
		case v, ok := <-sub.ch:
			if !ok {
				_ = conn.Close(websocket.StatusGoingAway, "feed stopped")
				return
			}
			if err := s.write(ctx, conn, viewdto.Envelope{Type: viewdto.TypeView, View: &v}); err != nil {
				return
			}
		}
	}
}

func (s *Server) write(ctx context.Context, conn *websocket.Conn, env viewdto.Envelope) error {
	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	if err := wsjson.Write(wctx, conn, env); err != nil {
		if !errors.Is(err, context.Canceled) {
			s.logger.Debug("feed_write_failed", zap.Error(err))
		}
		return err
	}
	return nil
}

func (s *Server) drop(sub *subscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, sub)
}

// ListenAndServe serves the feed on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	s.Start()
	srv := &http.Server{Addr: addr, Handler: s.Router(), ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.logger.Info("feed_listening", zap.String("addr", addr))

	select {
	case <-ctx.Done():
		s.Stop()
		sctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		return srv.Shutdown(sctx)
	case err := <-errCh:
		s.Stop()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
