package board

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Size is the board edge length.
const Size = 8

// Control tells which sides attack a square.
type Control uint8

const (
	ControlNone Control = iota
	ControlWhite
	ControlBlack
	ControlBoth
)

var controlNames = [...]string{"NONE", "WHITE", "BLACK", "BOTH"}

func (c Control) String() string {
	if int(c) < len(controlNames) {
		return controlNames[c]
	}
	return fmt.Sprintf("Control(%d)", uint8(c))
}

func (c Control) MarshalJSON() ([]byte, error) { return json.Marshal(c.String()) }

func (c *Control) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*c = ControlNone
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("control: %w", err)
	}
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		*c = ControlNone
		return nil
	}
	for i, n := range controlNames {
		if n == s {
			*c = Control(i)
			return nil
		}
	}
	return fmt.Errorf("unknown control %q", s)
}

// Coord addresses a square: X is the row (0 = black back rank), Y the column (0 = a-file).
type Coord struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (c Coord) InBounds() bool {
	return c.X >= 0 && c.X < Size && c.Y >= 0 && c.Y < Size
}

func (c Coord) String() string { return fmt.Sprintf("(%d,%d)", c.X, c.Y) }

// Square is one cell of a snapshot.
type Square struct {
	Piece      Piece
	Threatened bool
	Control    Control
}

func (s Square) Empty() bool { return s.Piece.IsEmpty() }

type pieceWire struct {
	Idx   *int    `json:"idx"`
	Color Color   `json:"color"`
	Name  *string `json:"name"`
}

type squareWire struct {
	Piece      *pieceWire `json:"piece"`
	Threatened bool       `json:"threatened"`
	Control    Control    `json:"control"`
}

func (s Square) MarshalJSON() ([]byte, error) {
	code := s.Piece.Kind.Code()
	name := s.Piece.Kind.String()
	return json.Marshal(squareWire{
		Piece:      &pieceWire{Idx: &code, Color: s.Piece.Color, Name: &name},
		Threatened: s.Threatened,
		Control:    s.Control,
	})
}

func (s *Square) UnmarshalJSON(b []byte) error {
	var w squareWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	var p Piece
	if w.Piece != nil {
		var err error
		switch {
		case w.Piece.Idx != nil:
			p.Kind, err = KindFromCode(*w.Piece.Idx)
		case w.Piece.Name != nil:
			p.Kind, err = KindFromName(*w.Piece.Name)
		}
		if err != nil {
			return err
		}
		switch p.Kind {
		case NoPiece, MoveMarker:
		default:
			if w.Piece.Color == NoColor {
				return fmt.Errorf("%s without color", p.Kind)
			}
			p.Color = w.Piece.Color
		}
	}
	*s = Square{Piece: p, Threatened: w.Threatened, Control: w.Control}
	return nil
}

// Snapshot is an immutable 8x8 board record. It is a value type: copies never alias.
type Snapshot [Size][Size]Square

func (b Snapshot) At(c Coord) Square {
	if !c.InBounds() {
		return Square{}
	}
	return b[c.X][c.Y]
}

// Markers lists squares holding move markers in row-major order.
func (b Snapshot) Markers() []Coord {
	var out []Coord
	for x := range Size {
		for y := range Size {
			if b[x][y].Piece.IsMarker() {
				out = append(out, Coord{X: x, Y: y})
			}
		}
	}
	return out
}

// PawnOnLastRank finds a pawn of color standing on the rank it promotes on.
// White advances toward row 0, black toward row 7.
func (b Snapshot) PawnOnLastRank(color Color) (Coord, bool) {
	row := 0
	if color == Black {
		row = Size - 1
	} else if color != White {
		return Coord{}, false
	}
	for y := range Size {
		p := b[row][y].Piece
		if p.Kind == Pawn && p.Color == color {
			return Coord{X: row, Y: y}, true
		}
	}
	return Coord{}, false
}

// Rows renders the board as eight strings of piece letters, row 0 first.
func (b Snapshot) Rows() []string {
	out := make([]string, Size)
	for x := range Size {
		var sb strings.Builder
		for y := range Size {
			sb.WriteRune(b[x][y].Piece.Letter())
		}
		out[x] = sb.String()
	}
	return out
}

func (b *Snapshot) UnmarshalJSON(data []byte) error {
	var rows [][]Square
	if err := json.Unmarshal(data, &rows); err != nil {
		return err
	}
	if len(rows) != Size {
		return fmt.Errorf("board has %d rows, want %d", len(rows), Size)
	}
	var out Snapshot
	for x, row := range rows {
		if len(row) != Size {
			return fmt.Errorf("board row %d has %d squares, want %d", x, len(row), Size)
		}
		copy(out[x][:], row)
	}
	*b = out
	return nil
}

// ParseRows builds a snapshot from eight strings of piece letters, the inverse of Rows.
// Upper case is white, lower case black, '*' a move marker and '.' empty.
func ParseRows(rows ...string) (Snapshot, error) {
	var out Snapshot
	if len(rows) != Size {
		return out, fmt.Errorf("got %d rows, want %d", len(rows), Size)
	}
	for x, row := range rows {
		runes := []rune(row)
		if len(runes) != Size {
			return out, fmt.Errorf("row %d has %d squares, want %d", x, len(runes), Size)
		}
		for y, r := range runes {
			p, err := pieceFromLetter(r)
			if err != nil {
				return out, fmt.Errorf("row %d col %d: %w", x, y, err)
			}
			out[x][y].Piece = p
		}
	}
	return out, nil
}

func pieceFromLetter(r rune) (Piece, error) {
	switch r {
	case '.':
		return Piece{}, nil
	case '*':
		return Piece{Kind: MoveMarker}, nil
	}
	color := Black
	lower := r
	if r >= 'A' && r <= 'Z' {
		color = White
		lower = r + ('a' - 'A')
	}
	var k Kind
	switch lower {
	case 'k':
		k = King
	case 'q':
		k = Queen
	case 'r':
		k = Rook
	case 'b':
		k = Bishop
	case 'n':
		k = Knight
	case 'p':
		k = Pawn
	default:
		return Piece{}, fmt.Errorf("unknown piece letter %q", r)
	}
	return Piece{Kind: k, Color: color}, nil
}
