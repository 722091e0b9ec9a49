package sessionstore

import (
	"context"
	"sort"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/park285/chessboard-client/internal/board"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	s, err := Open(context.Background(), "redis://"+mr.Addr()+"/0", time.Hour)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func TestSaveLoadSession(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	mode := board.AIVsAI(board.MiniMaxAI, board.DummyAI, 3, 1)
	rec := &Record{
		SessionID: "s1",
		GameID:    "g1",
		Mode:      mode,
		State:     &board.GameState{CurrentPlayer: board.Black, Turn: 1, History: make([]board.Snapshot, 1), Mode: &mode},
		Offset:    1,
		UpdatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	if err := s.SaveSession(ctx, rec); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}
	got, err := s.LoadSession(ctx, "s1")
	if err != nil || got == nil {
		t.Fatalf("LoadSession: %v %v", got, err)
	}
	if diff := cmp.Diff(rec, got); diff != "" {
		t.Fatalf("record mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadMissing(t *testing.T) {
	s, _ := newTestStore(t)
	got, err := s.LoadSession(context.Background(), "nope")
	if err != nil || got != nil {
		t.Fatalf("want nil, nil; got %v, %v", got, err)
	}
}

func TestTTLAndIndex(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()
	for _, id := range []string{"a", "b"} {
		if err := s.SaveSession(ctx, &Record{SessionID: id, Mode: board.PlayerVsAI(board.White, "")}); err != nil {
			t.Fatalf("SaveSession %s: %v", id, err)
		}
	}
	if ttl := mr.TTL("cb:session:a"); ttl != time.Hour {
		t.Fatalf("ttl = %v", ttl)
	}
	ids, err := s.SessionIDs(ctx)
	sort.Strings(ids)
	if err != nil || !cmp.Equal(ids, []string{"a", "b"}) {
		t.Fatalf("SessionIDs = %v, %v", ids, err)
	}
	mr.Del("cb:session:b")
	ids, _ = s.SessionIDs(ctx)
	if !cmp.Equal(ids, []string{"a"}) {
		t.Fatalf("expired entry not pruned: %v", ids)
	}
	if err := s.DeleteSession(ctx, "a"); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}
	if ids, _ = s.SessionIDs(ctx); len(ids) != 0 {
		t.Fatalf("ids after delete: %v", ids)
	}
}

func TestSaveRequiresID(t *testing.T) {
	s, _ := newTestStore(t)
	if err := s.SaveSession(context.Background(), &Record{}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestOpenRejectsScheme(t *testing.T) {
	if _, err := Open(context.Background(), "http://localhost:6379", 0); err == nil {
		t.Fatalf("expected scheme error")
	}
}
