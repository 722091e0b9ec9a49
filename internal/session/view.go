package session

import (
	"time"

	"github.com/park285/chessboard-client/internal/board"
)

// Phase is the controller's position in its lifecycle.
type Phase uint8

const (
	Uninitialized Phase = iota
	AwaitingSetup
	Live
	Viewing
)

func (p Phase) String() string {
	switch p {
	case AwaitingSetup:
		return "awaiting_setup"
	case Live:
		return "live"
	case Viewing:
		return "viewing"
	default:
		return "uninitialized"
	}
}

// Status is the visible failure indicator. Kind is KindNone after a success.
type Status struct {
	Kind    ErrorKind
	Op      string
	Message string
	At      time.Time
}

func (s Status) OK() bool { return s.Kind == KindNone }

// View is what the presentation layer renders. It is a copy; mutating it has no effect.
type View struct {
	Version   uint64
	SessionID string
	GameID    string

	Phase    Phase
	Board    board.Snapshot
	HasBoard bool
	Offset   int
	Turn     int

	CurrentPlayer    board.Color
	Mode             board.PlayMode
	PromotionPending bool

	SetupInFlight  bool
	ActionInFlight bool
	AutoPlaying    bool
	RemoteSnapshot bool

	Status Status
}

// Markers lists move-marker squares on the displayed board.
func (v View) Markers() []board.Coord {
	if !v.HasBoard {
		return nil
	}
	return v.Board.Markers()
}

// CanMove reports whether a square click would be dispatched right now.
func (v View) CanMove() bool {
	return v.Phase == Live && v.Offset == 0 && !v.Mode.IsAIVsAI() &&
		!v.PromotionPending && !v.ActionInFlight && !v.SetupInFlight
}
