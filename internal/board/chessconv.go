package board

import (
	nchess "github.com/corentings/chess/v2"
)

// ChessBoard converts the snapshot into a *chess.Board. Move markers are dropped.
// Row 0 maps to rank 8 and column 0 to the a-file.
func (b Snapshot) ChessBoard() *nchess.Board {
	m := make(map[nchess.Square]nchess.Piece)
	for x := range Size {
		for y := range Size {
			p := chessPiece(b[x][y].Piece)
			if p == nchess.NoPiece {
				continue
			}
			m[ChessSquare(Coord{X: x, Y: y})] = p
		}
	}
	return nchess.NewBoard(m)
}

// Placement is the FEN piece-placement field of the snapshot.
func (b Snapshot) Placement() string {
	return b.ChessBoard().String()
}

// ChessSquare maps a board coordinate to the library square.
func ChessSquare(c Coord) nchess.Square {
	return nchess.NewSquare(nchess.File(c.Y), nchess.Rank(Size-1-c.X))
}

func chessPiece(p Piece) nchess.Piece {
	var color nchess.Color
	switch p.Color {
	case White:
		color = nchess.White
	case Black:
		color = nchess.Black
	default:
		return nchess.NoPiece
	}
	var t nchess.PieceType
	switch p.Kind {
	case King:
		t = nchess.King
	case Queen:
		t = nchess.Queen
	case Rook:
		t = nchess.Rook
	case Bishop:
		t = nchess.Bishop
	case Knight:
		t = nchess.Knight
	case Pawn:
		t = nchess.Pawn
	default:
		return nchess.NoPiece
	}
	return nchess.NewPiece(t, color)
}
