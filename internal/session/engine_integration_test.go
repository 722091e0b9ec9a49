package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/park285/chessboard-client/internal/board"
	"github.com/park285/chessboard-client/internal/enginefast"
	"github.com/park285/chessboard-client/internal/enginefast/enginetest"
	"github.com/park285/chessboard-client/internal/session"
)

func newLiveController(t *testing.T, opts session.Options) (*session.Controller, *enginetest.Server) {
	t.Helper()
	srv := enginetest.New(t)
	client := enginefast.NewClient(enginetest.BaseURL, enginefast.WithDial(srv.Dial), enginefast.WithTimeout(2*time.Second))
	c, err := session.NewController(client, opts)
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	c.Wait()
	if v := c.View(); v.Phase != session.Live {
		t.Fatalf("not live after start: %+v", v)
	}
	return c, srv
}

func click(t *testing.T, c *session.Controller, x, y int) {
	t.Helper()
	if err := c.SubmitMove(board.Coord{X: x, Y: y}); err != nil {
		t.Fatalf("SubmitMove(%d,%d): %v", x, y, err)
	}
	c.Wait()
}

func TestEngineRoundTrip(t *testing.T) {
	c, srv := newLiveController(t, session.Options{RequestTimeout: 2 * time.Second})

	click(t, c, 6, 4)
	click(t, c, 4, 4)
	click(t, c, 1, 3)
	click(t, c, 3, 3)
	v := c.View()
	if v.Turn != 2 || v.Board != srv.State().Board {
		t.Fatalf("turn=%d rows=%v", v.Turn, v.Board.Rows())
	}

	c.StepBack()
	c.StepBack()
	if got := c.View().Board; got != enginetest.StartBoard() {
		t.Fatalf("offset 2 should show the start position, got %v", got.Rows())
	}
	if srv.Count("/api/get_previous_board") != 0 {
		t.Fatalf("local history must not call the engine")
	}
}

func TestEngineFailureSurfaces(t *testing.T) {
	c, srv := newLiveController(t, session.Options{RequestTimeout: 2 * time.Second})
	srv.FailNext("/api/play", 1)
	click(t, c, 6, 4)
	v := c.View()
	if v.Status.Kind != session.NetworkFailure || v.Turn != 0 {
		t.Fatalf("status=%+v turn=%d", v.Status, v.Turn)
	}
	if srv.Count("/api/play") != 1 {
		t.Fatalf("play must not be retried")
	}
}

func TestEnginePromotion(t *testing.T) {
	c, srv := newLiveController(t, session.Options{RequestTimeout: 2 * time.Second})
	b, err := board.ParseRows("....k...", "P.......", "........", "........", "........", "........", "........", "....K...")
	if err != nil {
		t.Fatalf("ParseRows: %v", err)
	}
	st := srv.State()
	st.Board = b
	srv.SetState(st)

	click(t, c, 1, 0)
	click(t, c, 0, 0)
	if v := c.View(); !v.PromotionPending || v.CanMove() {
		t.Fatalf("expected pending promotion: %+v", v)
	}
	if err := c.Promote(board.PromoteKnight); err != nil {
		t.Fatalf("Promote: %v", err)
	}
	c.Wait()
	v := c.View()
	if v.PromotionPending || v.Turn != 1 {
		t.Fatalf("after promote: pending=%v turn=%d", v.PromotionPending, v.Turn)
	}
	if p := v.Board[0][0].Piece; p != (board.Piece{Kind: board.Knight, Color: board.White}) {
		t.Fatalf("promoted piece = %+v", p)
	}
}

func TestEngineRemoteHistory(t *testing.T) {
	c, srv := newLiveController(t, session.Options{RequestTimeout: 2 * time.Second, RemoteHistory: true})
	click(t, c, 6, 4)
	click(t, c, 4, 4)

	if !c.StepBack() {
		t.Fatalf("StepBack failed")
	}
	c.Wait()
	v := c.View()
	if !v.RemoteSnapshot || v.Board != enginetest.StartBoard() {
		t.Fatalf("remote snapshot not shown")
	}
	if srv.Count("/api/get_previous_board") != 1 {
		t.Fatalf("expected one previous-board request")
	}
}
