package viewfeed

import (
	"bytes"
	"context"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/park285/chessboard-client/internal/archive"
	"github.com/park285/chessboard-client/internal/board"
	"github.com/park285/chessboard-client/internal/session"
	"github.com/park285/chessboard-client/internal/sessionstore"
	"github.com/park285/chessboard-client/pkg/viewdto"
)

type fakeSource struct {
	mu        sync.Mutex
	view      session.View
	listeners map[int]func(session.View)
	next      int
}

func newFakeSource(v session.View) *fakeSource {
	return &fakeSource{view: v, listeners: make(map[int]func(session.View))}
}

func (f *fakeSource) View() session.View {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.view
}

func (f *fakeSource) OnChange(fn func(session.View)) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	f.listeners[f.next] = fn
	return f.next
}

func (f *fakeSource) RemoveOnChange(id int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.listeners, id)
}

func (f *fakeSource) set(v session.View) {
	f.mu.Lock()
	f.view = v
	fns := make([]func(session.View), 0, len(f.listeners))
	for _, fn := range f.listeners {
		fns = append(fns, fn)
	}
	f.mu.Unlock()
	for _, fn := range fns {
		fn(v)
	}
}

func (f *fakeSource) listenerCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.listeners)
}

func liveView(t *testing.T, version uint64, turn int) session.View {
	t.Helper()
	b, err := board.ParseRows("rnbqkbnr", "pppppppp", "........", "........", "....*...", "....*...", "PPPPPPPP", "RNBQKBNR")
	if err != nil {
		t.Fatalf("ParseRows: %v", err)
	}
	b[5][5].Threatened = true
	return session.View{
		Version:       version,
		SessionID:     "s1",
		GameID:        "g1",
		Phase:         session.Live,
		Board:         b,
		HasBoard:      true,
		Turn:          turn,
		CurrentPlayer: board.White,
		Mode:          board.PlayerVsAI(board.White, ""),
	}
}

func TestToDTO(t *testing.T) {
	dto := ToDTO(liveView(t, 3, 0))
	if dto.Phase != "live" || dto.Mode != "player:white" || dto.CurrentPlayer != "WHITE" || dto.Status.Kind != "none" {
		t.Fatalf("header = %+v", dto)
	}
	wantMarkers := []viewdto.Coord{{X: 4, Y: 4}, {X: 5, Y: 4}}
	if diff := cmp.Diff(wantMarkers, dto.Markers); diff != "" {
		t.Fatalf("markers (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]viewdto.Coord{{X: 5, Y: 5}}, dto.Threatened); diff != "" {
		t.Fatalf("threatened (-want +got):\n%s", diff)
	}
	if dto.Rows[4] != "....*..." || !strings.HasPrefix(dto.Placement, "rnbqkbnr/pppppppp/8/8/8/8/") {
		t.Fatalf("rows=%v placement=%s", dto.Rows, dto.Placement)
	}

	empty := ToDTO(session.View{})
	if empty.Rows != nil || empty.CurrentPlayer != "" || empty.Phase != "uninitialized" {
		t.Fatalf("empty view = %+v", empty)
	}
}

func TestStateAndBoardPNG(t *testing.T) {
	src := newFakeSource(session.View{})
	srv := NewServer(src, nil, nil)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/board.png")
	if err != nil {
		t.Fatalf("GET board.png: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("board.png without board: %d", resp.StatusCode)
	}

	srv.Start()
	defer srv.Stop()
	src.set(liveView(t, 5, 2))

	resp, err = http.Get(ts.URL + "/state")
	if err != nil {
		t.Fatalf("GET state: %v", err)
	}
	var got viewdto.View
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	resp.Body.Close()
	if got.Version != 5 || got.Turn != 2 || got.SessionID != "s1" {
		t.Fatalf("state = %+v", got)
	}

	resp, err = http.Get(ts.URL + "/board.png")
	if err != nil {
		t.Fatalf("GET board.png: %v", err)
	}
	defer resp.Body.Close()
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		t.Fatalf("read: %v", err)
	}
	if resp.Header.Get("Content-Type") != "image/png" {
		t.Fatalf("content type %q", resp.Header.Get("Content-Type"))
	}
	if _, err := png.Decode(&buf); err != nil {
		t.Fatalf("png: %v", err)
	}
}

func TestPublishKeepsNewest(t *testing.T) {
	src := newFakeSource(session.View{})
	srv := NewServer(src, nil, nil)
	srv.Start()
	src.set(liveView(t, 7, 3))
	src.set(liveView(t, 6, 2))
	if got := srv.Latest(); got.Version != 7 {
		t.Fatalf("latest version = %d", got.Version)
	}
	srv.Stop()
	if src.listenerCount() != 0 {
		t.Fatalf("listener not removed")
	}
}

func TestFeedClient(t *testing.T) {
	src := newFakeSource(liveView(t, 1, 0))
	srv := NewServer(src, nil, nil)
	srv.Start()
	defer srv.Stop()
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	views := make(chan viewdto.View, 8)
	c := NewClient("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", 0, nil)
	c.OnView(func(v viewdto.View) { views <- v })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	recv := func() viewdto.View {
		t.Helper()
		select {
		case v := <-views:
			return v
		case <-ctx.Done():
			t.Fatalf("no view received")
			return viewdto.View{}
		}
	}
	if hello := recv(); hello.Version != 1 {
		t.Fatalf("hello version = %d", hello.Version)
	}
	src.set(liveView(t, 2, 1))
	if v := recv(); v.Version != 2 || v.Turn != 1 {
		t.Fatalf("pushed view = %+v", v)
	}
	if c.State() != StateConnected {
		t.Fatalf("state = %s", c.State())
	}
	if err := c.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if c.State() != StateDisconnected {
		t.Fatalf("state after close = %s", c.State())
	}
}

func TestArchiveAndSessionRoutes(t *testing.T) {
	ctx := context.Background()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer mr.Close()
	store, err := sessionstore.Open(ctx, "redis://"+mr.Addr(), time.Hour)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()
	for _, id := range []string{"s1", "old"} {
		if err := store.SaveSession(ctx, &sessionstore.Record{SessionID: id}); err != nil {
			t.Fatalf("SaveSession: %v", err)
		}
	}
	repo := archive.NewMemoryRepository()
	ended := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	for i, id := range []string{"g1", "g2"} {
		g := &archive.Game{ID: id, SessionID: "s1", Mode: "player:white", Turns: i + 1, EndedAt: ended.Add(time.Duration(i) * time.Minute)}
		if err := repo.SaveGame(ctx, g); err != nil {
			t.Fatalf("SaveGame: %v", err)
		}
	}

	srv := NewServer(newFakeSource(liveView(t, 1, 0)), nil, nil).WithGames(repo).WithSessions(store)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	getJSON := func(path string, want int, out any) {
		t.Helper()
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != want {
			t.Fatalf("GET %s = %d, want %d", path, resp.StatusCode, want)
		}
		if out != nil {
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				t.Fatalf("decode %s: %v", path, err)
			}
		}
	}

	var games []archive.Game
	getJSON("/games", http.StatusOK, &games)
	if len(games) != 2 || games[0].ID != "g2" {
		t.Fatalf("games = %+v", games)
	}
	getJSON("/games?limit=1", http.StatusOK, &games)
	if len(games) != 1 {
		t.Fatalf("limited games = %d", len(games))
	}
	getJSON("/games?session=nobody", http.StatusOK, &games)
	if len(games) != 0 {
		t.Fatalf("foreign session games = %d", len(games))
	}
	getJSON("/games?limit=x", http.StatusBadRequest, nil)

	var g archive.Game
	getJSON("/games/g1", http.StatusOK, &g)
	if g.Turns != 1 || g.SessionID != "s1" {
		t.Fatalf("game = %+v", g)
	}
	getJSON("/games/missing", http.StatusNotFound, nil)

	var ids []string
	getJSON("/sessions", http.StatusOK, &ids)
	if diff := cmp.Diff([]string{"old", "s1"}, sortedCopy(ids)); diff != "" {
		t.Fatalf("sessions (-want +got):\n%s", diff)
	}

	del := func(id string) int {
		t.Helper()
		req, err := http.NewRequest(http.MethodDelete, ts.URL+"/sessions/"+id, nil)
		if err != nil {
			t.Fatalf("request: %v", err)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("DELETE %s: %v", id, err)
		}
		resp.Body.Close()
		return resp.StatusCode
	}
	if code := del("s1"); code != http.StatusConflict {
		t.Fatalf("delete live session = %d", code)
	}
	if code := del("old"); code != http.StatusNoContent {
		t.Fatalf("delete old session = %d", code)
	}
	getJSON("/sessions", http.StatusOK, &ids)
	if diff := cmp.Diff([]string{"s1"}, ids); diff != "" {
		t.Fatalf("sessions after delete (-want +got):\n%s", diff)
	}
}

func TestOptionalRoutesDisabled(t *testing.T) {
	ts := httptest.NewServer(NewServer(newFakeSource(session.View{}), nil, nil).Router())
	defer ts.Close()
	for _, path := range []string{"/games", "/sessions"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("%s without backend = %d", path, resp.StatusCode)
		}
	}
}

func sortedCopy(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}
