package archive

import (
	"context"
	"errors"
	"time"

	"github.com/park285/chessboard-client/internal/board"
)

var (
	ErrNotFound  = errors.New("archived game not found")
	ErrEmptyGame = errors.New("archived game has no id")
)

// Reasons a game leaves the live session.
const (
	ReasonModeChange = "mode_change"
	ReasonShutdown   = "shutdown"
)

// Game is one finished or abandoned engine game as seen by this client.
type Game struct {
	ID            string    `json:"id"`
	SessionID     string    `json:"session_id"`
	Mode          string    `json:"mode"`
	Turns         int       `json:"turns"`
	CurrentPlayer string    `json:"current_player"`
	Placements    []string  `json:"placements"`
	Reason        string    `json:"reason"`
	StartedAt     time.Time `json:"started_at"`
	EndedAt       time.Time `json:"ended_at"`
}

// Duration is the wall time the game stayed live.
func (g *Game) Duration() time.Duration {
	if g == nil || g.EndedAt.Before(g.StartedAt) {
		return 0
	}
	return g.EndedAt.Sub(g.StartedAt)
}

type Repository interface {
	SaveGame(ctx context.Context, game *Game) error
	GetGame(ctx context.Context, id string) (*Game, error)
	RecentGames(ctx context.Context, sessionID string, limit int) ([]*Game, error)
}

// FromState builds an archive entry. Placements run oldest first and end with the live board.
func FromState(gameID, sessionID string, mode board.PlayMode, st *board.GameState, startedAt, endedAt time.Time, reason string) *Game {
	g := &Game{
		ID:        gameID,
		SessionID: sessionID,
		Mode:      mode.String(),
		Reason:    reason,
		StartedAt: startedAt,
		EndedAt:   endedAt,
	}
	if st == nil {
		return g
	}
	g.Turns = st.Turn
	g.CurrentPlayer = st.CurrentPlayer.String()
	g.Placements = make([]string, 0, len(st.History)+1)
	for _, snap := range st.History {
		g.Placements = append(g.Placements, snap.Placement())
	}
	g.Placements = append(g.Placements, st.Board.Placement())
	return g
}
