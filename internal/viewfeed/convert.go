package viewfeed

import (
	"github.com/park285/chessboard-client/internal/board"
	"github.com/park285/chessboard-client/internal/session"
	"github.com/park285/chessboard-client/pkg/viewdto"
)

// ToDTO flattens a controller view for the feed.
func ToDTO(v session.View) viewdto.View {
	out := viewdto.View{
		Version:          v.Version,
		SessionID:        v.SessionID,
		GameID:           v.GameID,
		Phase:            v.Phase.String(),
		Offset:           v.Offset,
		Turn:             v.Turn,
		Mode:             v.Mode.String(),
		PromotionPending: v.PromotionPending,
		SetupInFlight:    v.SetupInFlight,
		ActionInFlight:   v.ActionInFlight,
		AutoPlaying:      v.AutoPlaying,
		RemoteSnapshot:   v.RemoteSnapshot,
		Status: viewdto.Status{
			Kind:    v.Status.Kind.String(),
			Op:      v.Status.Op,
			Message: v.Status.Message,
			At:      v.Status.At,
		},
	}
	if v.CurrentPlayer != board.NoColor {
		out.CurrentPlayer = v.CurrentPlayer.String()
	}
	if !v.HasBoard {
		return out
	}
	out.Rows = v.Board.Rows()
	out.Placement = v.Board.Placement()
	for _, c := range v.Board.Markers() {
		out.Markers = append(out.Markers, viewdto.Coord{X: c.X, Y: c.Y})
	}
	for x := range board.Size {
		for y := range board.Size {
			if v.Board[x][y].Threatened {
				out.Threatened = append(out.Threatened, viewdto.Coord{X: x, Y: y})
			}
		}
	}
	return out
}
