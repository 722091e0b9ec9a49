package board

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Color identifies a side. The zero value is NoColor (empty squares, move markers).
type Color uint8

const (
	NoColor Color = iota
	White
	Black
)

func (c Color) String() string {
	switch c {
	case White:
		return "WHITE"
	case Black:
		return "BLACK"
	default:
		return ""
	}
}

// SetupName is the spelling used inside play mode payloads.
func (c Color) SetupName() string {
	switch c {
	case White:
		return "White"
	case Black:
		return "Black"
	default:
		return ""
	}
}

// Other returns the opposing side.
func (c Color) Other() Color {
	switch c {
	case White:
		return Black
	case Black:
		return White
	default:
		return NoColor
	}
}

// ParseColor accepts WHITE/White/white (and the short w/b forms).
func ParseColor(s string) (Color, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "white", "w":
		return White, nil
	case "black", "b":
		return Black, nil
	default:
		return NoColor, fmt.Errorf("unknown color %q", s)
	}
}

func (c Color) MarshalJSON() ([]byte, error) {
	if c == NoColor {
		return []byte("null"), nil
	}
	return json.Marshal(c.String())
}

func (c *Color) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*c = NoColor
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("color: %w", err)
	}
	if strings.TrimSpace(s) == "" {
		*c = NoColor
		return nil
	}
	v, err := ParseColor(s)
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// Kind is the piece kind occupying a square. NoPiece is the zero value.
type Kind uint8

const (
	NoPiece Kind = iota
	King
	Queen
	Rook
	Bishop
	Knight
	Pawn
	MoveMarker
)

// emptyCode is what the engine sends as idx for an empty square.
const emptyCode = 10

var kindNames = [...]string{
	NoPiece:    "EMPTY",
	King:       "KING",
	Queen:      "QUEEN",
	Rook:       "ROOK",
	Bishop:     "BISHOP",
	Knight:     "KNIGHT",
	Pawn:       "PAWN",
	MoveMarker: "MOVE_MARKER",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Code returns the numeric wire code: 0-6 for real kinds, 10 for empty.
func (k Kind) Code() int {
	if k == NoPiece {
		return emptyCode
	}
	return int(k) - 1
}

// KindFromCode maps a wire code back to a Kind.
func KindFromCode(code int) (Kind, error) {
	switch {
	case code == emptyCode:
		return NoPiece, nil
	case code >= 0 && code <= 6:
		return Kind(code + 1), nil
	default:
		return NoPiece, fmt.Errorf("unknown piece code %d", code)
	}
}

// KindFromName maps a wire name (KING, MOVE_MARKER, EMPTY, ...) to a Kind.
func KindFromName(name string) (Kind, error) {
	n := strings.ToUpper(strings.TrimSpace(name))
	n = strings.ReplaceAll(n, " ", "_")
	if n == "MOVEMARKER" {
		n = "MOVE_MARKER"
	}
	for k, v := range kindNames {
		if v == n {
			return Kind(k), nil
		}
	}
	return NoPiece, fmt.Errorf("unknown piece name %q", name)
}

// Piece is a kind plus color. Move markers carry no color.
type Piece struct {
	Kind  Kind
	Color Color
}

func (p Piece) IsEmpty() bool  { return p.Kind == NoPiece }
func (p Piece) IsMarker() bool { return p.Kind == MoveMarker }

// Letter returns the FEN-style letter (upper case for white); markers are '*', empty is '.'.
func (p Piece) Letter() rune {
	var r rune
	switch p.Kind {
	case King:
		r = 'k'
	case Queen:
		r = 'q'
	case Rook:
		r = 'r'
	case Bishop:
		r = 'b'
	case Knight:
		r = 'n'
	case Pawn:
		r = 'p'
	case MoveMarker:
		return '*'
	default:
		return '.'
	}
	if p.Color == White {
		r -= 'a' - 'A'
	}
	return r
}

// PromotionKind is the piece name sent with a promote request.
type PromotionKind string

const (
	PromoteBishop PromotionKind = "Bishop"
	PromoteKnight PromotionKind = "Knight"
	PromoteRook   PromotionKind = "Rook"
	PromoteQueen  PromotionKind = "Queen"
)

// PromotionKinds lists the choices in picker order.
var PromotionKinds = []PromotionKind{PromoteBishop, PromoteKnight, PromoteRook, PromoteQueen}

// ParsePromotion accepts full names in any case and the b/n/r/q letters.
func ParsePromotion(s string) (PromotionKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bishop", "b":
		return PromoteBishop, nil
	case "knight", "n":
		return PromoteKnight, nil
	case "rook", "r":
		return PromoteRook, nil
	case "queen", "q":
		return PromoteQueen, nil
	default:
		return "", fmt.Errorf("unknown promotion piece %q", s)
	}
}

func (k PromotionKind) Valid() bool {
	for _, v := range PromotionKinds {
		if v == k {
			return true
		}
	}
	return false
}

// Kind returns the board kind this promotion produces.
func (k PromotionKind) Kind() Kind {
	switch k {
	case PromoteBishop:
		return Bishop
	case PromoteKnight:
		return Knight
	case PromoteRook:
		return Rook
	case PromoteQueen:
		return Queen
	default:
		return NoPiece
	}
}
