package board

import (
	"errors"
	"fmt"
)

// GameState is the engine's authoritative session record. It is replaced wholesale
// on every successful engine response and never patched.
type GameState struct {
	CurrentPlayer Color      `json:"current_player"`
	Turn          int        `json:"turn"`
	Board         Snapshot   `json:"board"`
	History       []Snapshot `json:"board_history"`
	Mode          *PlayMode  `json:"mode,omitempty"`

	// PromotionPending is set when the engine reports it explicitly.
	PromotionPending *bool `json:"promotion_pending,omitempty"`
}

var ErrShortHistory = errors.New("board history shorter than turn")

// Validate checks the shape invariants the navigator relies on.
func (g *GameState) Validate() error {
	if g == nil {
		return errors.New("nil game state")
	}
	if g.Turn < 0 {
		return fmt.Errorf("negative turn %d", g.Turn)
	}
	if len(g.History) < g.Turn {
		return fmt.Errorf("%w: turn=%d history=%d", ErrShortHistory, g.Turn, len(g.History))
	}
	if g.Mode != nil {
		if err := g.Mode.Validate(); err != nil {
			return fmt.Errorf("mode: %w", err)
		}
	}
	return nil
}

// NeedsPromotion reports whether the engine is waiting for a promotion choice.
// Without an explicit flag, a pawn of the side to move standing on its last rank
// means the engine is holding the turn open.
func (g *GameState) NeedsPromotion() bool {
	if g == nil {
		return false
	}
	if g.PromotionPending != nil {
		return *g.PromotionPending
	}
	_, ok := g.Board.PawnOnLastRank(g.CurrentPlayer)
	return ok
}

// Clone returns a deep copy; the history slice is not shared.
func (g *GameState) Clone() *GameState {
	if g == nil {
		return nil
	}
	out := *g
	if g.History != nil {
		out.History = append([]Snapshot(nil), g.History...)
	}
	if g.Mode != nil {
		m := *g.Mode
		out.Mode = &m
	}
	if g.PromotionPending != nil {
		v := *g.PromotionPending
		out.PromotionPending = &v
	}
	return &out
}

// PlayRequest is the body of POST /api/play.
type PlayRequest struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// PromoteRequest is the body of POST /api/promote.
type PromoteRequest struct {
	PromoteTo PromotionKind `json:"promote_to"`
}

// BoardResponse wraps endpoints that return a bare snapshot.
type BoardResponse struct {
	Board *Snapshot `json:"board"`
}

// AutoPlayCoord is sent on AI ticks. It lies outside the board so the engine can
// never mistake it for a human selection.
var AutoPlayCoord = Coord{X: Size, Y: Size}
