package board

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

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

func mustRows(t *testing.T, rows ...string) Snapshot {
	t.Helper()
	s, err := ParseRows(rows...)
	if err != nil {
		t.Fatalf("ParseRows: %v", err)
	}
	return s
}

func TestSquareUnmarshal(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want Square
	}{
		{"idx", `{"piece":{"idx":5,"color":"WHITE","name":"PAWN"},"threatened":true}`, Square{Piece: Piece{Kind: Pawn, Color: White}, Threatened: true}},
		{"name only", `{"piece":{"color":"BLACK","name":"KNIGHT"},"threatened":false,"control":"BOTH"}`, Square{Piece: Piece{Kind: Knight, Color: Black}, Control: ControlBoth}},
		{"empty", `{"piece":{"idx":10,"color":null,"name":"EMPTY"},"threatened":false}`, Square{}},
		{"marker", `{"piece":{"idx":6,"color":null,"name":"MOVE_MARKER"},"threatened":false}`, Square{Piece: Piece{Kind: MoveMarker}}},
		{"mixed case color", `{"piece":{"idx":0,"color":"White"},"threatened":false}`, Square{Piece: Piece{Kind: King, Color: White}}},
	}
	for _, tc := range cases {
		var got Square
		if err := json.Unmarshal([]byte(tc.in), &got); err != nil {
			t.Fatalf("%s: unmarshal: %v", tc.name, err)
		}
		if diff := cmp.Diff(tc.want, got); diff != "" {
			t.Fatalf("%s: mismatch (-want +got):\n%s", tc.name, diff)
		}
	}
}

func TestSquareUnmarshalRejects(t *testing.T) {
	for _, in := range []string{
		`{"piece":{"idx":7,"color":"WHITE"}}`,
		`{"piece":{"name":"DRAGON","color":"WHITE"}}`,
		`{"piece":{"idx":1}}`,
		`{"piece":{"idx":1,"color":"GREEN"}}`,
		`{"control":"SOME"}`,
	} {
		var s Square
		if err := json.Unmarshal([]byte(in), &s); err == nil {
			t.Fatalf("expected error for %s", in)
		}
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	b := mustRows(t, startRows...)
	b[4][4].Threatened = true
	b[5][4] = Square{Piece: Piece{Kind: MoveMarker}, Control: ControlWhite}
	raw, err := json.Marshal(b)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got Snapshot
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got != b {
		t.Fatalf("round trip changed snapshot: %v", cmp.Diff(b, got))
	}
}

func TestSnapshotUnmarshalShape(t *testing.T) {
	row := `[` + strings.TrimSuffix(strings.Repeat(`{"piece":{"idx":10}},`, 8), ",") + `]`
	seven := `[` + strings.TrimSuffix(strings.Repeat(row+",", 7), ",") + `]`
	var s Snapshot
	if err := json.Unmarshal([]byte(seven), &s); err == nil {
		t.Fatalf("expected error for 7 rows")
	}
	short := `[` + strings.TrimSuffix(strings.Repeat(row+",", 7), ",") + `,[{"piece":{"idx":10}}]]`
	if err := json.Unmarshal([]byte(short), &s); err == nil {
		t.Fatalf("expected error for short row")
	}
}

func TestMarkersAndRows(t *testing.T) {
	b := mustRows(t,
		"rnbqkbnr",
		"pppppppp",
		"........",
		"........",
		"....*...",
		"....*...",
		"PPPPPPPP",
		"RNBQKBNR",
	)
	want := []Coord{{X: 4, Y: 4}, {X: 5, Y: 4}}
	if diff := cmp.Diff(want, b.Markers()); diff != "" {
		t.Fatalf("markers mismatch (-want +got):\n%s", diff)
	}
	if got := b.Rows()[4]; got != "....*..." {
		t.Fatalf("row 4 = %q", got)
	}
}

func TestPlacement(t *testing.T) {
	b := mustRows(t, startRows...)
	if got := b.Placement(); got != "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR" {
		t.Fatalf("placement = %q", got)
	}
}

func TestPlayModeJSON(t *testing.T) {
	cases := []struct {
		mode PlayMode
		want string
	}{
		{PlayerVsAI(White, ""), `{"Setup":{"PlayerVsAi":"White"}}`},
		{PlayerVsAI(Black, MiniMaxAI), `{"Setup":{"PlayerVsAi":["Black","MiniMaxAi"]}}`},
		{AIVsAI(MiniMaxAI, DummyAI, 3, 1), `{"Setup":{"AiVsAi":["MiniMaxAi","DummyAi",3,1]}}`},
	}
	for _, tc := range cases {
		raw, err := json.Marshal(SetupRequest{Setup: tc.mode})
		if err != nil {
			t.Fatalf("marshal %v: %v", tc.mode, err)
		}
		if string(raw) != tc.want {
			t.Fatalf("marshal = %s, want %s", raw, tc.want)
		}
		var back SetupRequest
		if err := json.Unmarshal(raw, &back); err != nil {
			t.Fatalf("unmarshal %s: %v", raw, err)
		}
		if back.Setup != tc.mode {
			t.Fatalf("round trip = %+v, want %+v", back.Setup, tc.mode)
		}
	}
	if _, err := json.Marshal(PlayMode{}); err == nil {
		t.Fatalf("expected error for unset mode")
	}
}

func TestParseMode(t *testing.T) {
	cases := map[string]PlayMode{
		"player:white":                PlayerVsAI(White, ""),
		"player:Black:minimax":        PlayerVsAI(Black, MiniMaxAI),
		"ai:MiniMaxAi":                AIVsAI(MiniMaxAI, MiniMaxAI, 0, 0),
		"ai:minimax:dummy:3:1":        AIVsAI(MiniMaxAI, DummyAI, 3, 1),
		"ai:BestPlayDephtOneAi:dummy": AIVsAI(BestPlayDepthOne, DummyAI, 0, 0),
	}
	for in, want := range cases {
		got, err := ParseMode(in)
		if err != nil {
			t.Fatalf("ParseMode(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseMode(%q) = %+v, want %+v", in, got, want)
		}
		again, err := ParseMode(got.String())
		if err != nil || again != got {
			t.Fatalf("String round trip for %q: %+v %v", in, again, err)
		}
	}
	for _, bad := range []string{"", "player", "player:red", "ai:deepblue", "ai:minimax:dummy:x:1", "ai:minimax:dummy:-1:1"} {
		if _, err := ParseMode(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestNeedsPromotion(t *testing.T) {
	b := mustRows(t,
		"....P..k",
		"........",
		"........",
		"........",
		"........",
		"........",
		"........",
		"K.......",
	)
	g := &GameState{CurrentPlayer: White, Board: b}
	if !g.NeedsPromotion() {
		t.Fatalf("white pawn on row 0 should need promotion")
	}
	g.CurrentPlayer = Black
	if g.NeedsPromotion() {
		t.Fatalf("black to move should not need promotion")
	}
	flag := true
	g.PromotionPending = &flag
	if !g.NeedsPromotion() {
		t.Fatalf("explicit flag should win")
	}
}

func TestGameStateValidate(t *testing.T) {
	g := &GameState{Turn: 2, History: make([]Snapshot, 1)}
	if err := g.Validate(); err == nil {
		t.Fatalf("expected short history error")
	}
	g.History = append(g.History, Snapshot{})
	if err := g.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	c := g.Clone()
	c.History[0][0][0].Threatened = true
	if g.History[0][0][0].Threatened {
		t.Fatalf("clone shares history")
	}
}

func TestPromotionParse(t *testing.T) {
	for in, want := range map[string]PromotionKind{"q": PromoteQueen, "Knight": PromoteKnight, " rook ": PromoteRook, "B": PromoteBishop} {
		got, err := ParsePromotion(in)
		if err != nil || got != want {
			t.Fatalf("ParsePromotion(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParsePromotion("king"); err == nil {
		t.Fatalf("king is not a promotion choice")
	}
	if PromoteQueen.Kind() != Queen {
		t.Fatalf("queen kind")
	}
}
