package viewpresenter

import (
	"errors"
	"strings"
	"testing"

	"github.com/park285/chessboard-client/internal/msgcat"
	"github.com/park285/chessboard-client/pkg/viewdto"
)

func newFormatter(t *testing.T) *Formatter {
	t.Helper()
	cat, err := msgcat.New("")
	if err != nil {
		t.Fatalf("msgcat.New: %v", err)
	}
	return NewFormatter(cat)
}

func TestModeAndPhase(t *testing.T) {
	f := newFormatter(t)
	if got := f.Mode("player:white:MiniMaxAi"); got != "You play white vs MiniMaxAi" {
		t.Fatalf("mode = %q", got)
	}
	if got := f.Mode("ai:DummyAi:MiniMaxAi:1:3"); got != "DummyAi (depth 1) vs MiniMaxAi (depth 3)" {
		t.Fatalf("ai mode = %q", got)
	}
	if got := f.Mode(""); got != "" {
		t.Fatalf("empty mode = %q", got)
	}

	live := viewdto.View{Phase: "live", CurrentPlayer: "BLACK", Turn: 4}
	if got := f.Phase(live); got != "black to move | turn 4" {
		t.Fatalf("live = %q", got)
	}
	viewing := viewdto.View{Phase: "viewing", Offset: 2, Turn: 4}
	if got := f.Phase(viewing); !strings.HasPrefix(got, "History 2/4") {
		t.Fatalf("viewing = %q", got)
	}
}

func TestStatusAndHint(t *testing.T) {
	f := newFormatter(t)
	if got := f.Status(viewdto.Status{Kind: "none"}); got != "" {
		t.Fatalf("ok status = %q", got)
	}
	got := f.Status(viewdto.Status{Kind: "network_failure", Op: "play", Message: "refused"})
	if got != "play failed: engine unreachable (refused)" {
		t.Fatalf("status = %q", got)
	}

	cases := []struct {
		name string
		v    viewdto.View
		want string
	}{
		{"setup", viewdto.View{SetupInFlight: true, PromotionPending: true}, "waiting for the engine to start a game"},
		{"promotion", viewdto.View{PromotionPending: true}, "Promote: q queen | r rook | b bishop | n knight"},
		{"auto", viewdto.View{Mode: "ai:DummyAi:DummyAi:0:0", AutoPlaying: true}, "AI vs AI running | space stop"},
		{"paused", viewdto.View{Mode: "ai:DummyAi:DummyAi:0:0"}, "AI vs AI paused | space start"},
	}
	for _, tc := range cases {
		if got := f.Hint(tc.v); got != tc.want {
			t.Fatalf("%s: hint = %q", tc.name, got)
		}
	}
}

func TestNilCatalogFallback(t *testing.T) {
	f := NewFormatter(nil)
	if got := f.Phase(viewdto.View{}); got != "Starting..." {
		t.Fatalf("phase = %q", got)
	}
	if got := f.Status(viewdto.Status{Kind: "malformed_response", Op: "play", Message: "x"}); got != "play failed: x" {
		t.Fatalf("status = %q", got)
	}
}

func TestPresenterBoard(t *testing.T) {
	f := newFormatter(t)
	var sent []string
	var images []string
	p := NewPresenter(f,
		func(m string) error { sent = append(sent, m); return nil },
		func(name string, png []byte) error { images = append(images, name); return nil },
	)
	v := viewdto.View{
		Phase:         "live",
		CurrentPlayer: "WHITE",
		Mode:          "player:white",
		Rows:          []string{"rnbqkbnr", "pppppppp", "........", "........", "....*...", "........", "PPPPPPPP", "RNBQKBNR"},
	}
	if err := p.Board(v, "", nil); err != nil {
		t.Fatalf("Board: %v", err)
	}
	if len(sent) != 1 || len(images) != 0 {
		t.Fatalf("sent=%d images=%d", len(sent), len(images))
	}
	if !strings.HasPrefix(sent[0], "8 r n b q k b n r") || !strings.Contains(sent[0], "4 . . . . * . . .") {
		t.Fatalf("diagram:\n%s", sent[0])
	}
	if !strings.Contains(sent[0], "white to move | turn 0") {
		t.Fatalf("lines:\n%s", sent[0])
	}

	if err := p.Board(v, "b.png", []byte{1}); err != nil || len(images) != 1 {
		t.Fatalf("image not sent: %v %v", err, images)
	}

	boom := errors.New("boom")
	failing := NewPresenter(f, func(string) error { return boom }, nil)
	if err := failing.Board(v, "", nil); !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
}
