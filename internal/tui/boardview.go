package tui

import (
	"github.com/gdamore/tcell/v2"
	"github.com/park285/chessboard-client/internal/board"
)

const (
	cellWidth   = 3
	labelWidth  = 2
	boardWidth  = labelWidth + board.Size*cellWidth
	boardHeight = board.Size + 1
)

var (
	lightBG    = tcell.NewRGBColor(233, 207, 163)
	darkBG     = tcell.NewRGBColor(187, 136, 96)
	threatBG   = tcell.NewRGBColor(205, 92, 80)
	cursorBG   = tcell.NewRGBColor(250, 220, 110)
	whiteFG    = tcell.NewRGBColor(255, 255, 255)
	blackFG    = tcell.NewRGBColor(20, 20, 20)
	markerFG   = tcell.NewRGBColor(60, 60, 60)
	labelStyle = tcell.StyleDefault.Foreground(tcell.ColorGreen)
)

// grid maps board coordinates to terminal cells inside a rectangle.
type grid struct {
	x, y int
	flip bool
}

func (g grid) cell(c board.Coord) (int, int) {
	row, col := c.X, c.Y
	if g.flip {
		row, col = board.Size-1-row, board.Size-1-col
	}
	return g.x + labelWidth + col*cellWidth, g.y + row
}

// at is the inverse of cell; ok is false outside the squares.
func (g grid) at(sx, sy int) (board.Coord, bool) {
	dx, dy := sx-g.x-labelWidth, sy-g.y
	if dx < 0 || dy < 0 || dy >= board.Size || dx >= board.Size*cellWidth {
		return board.Coord{}, false
	}
	row, col := dy, dx/cellWidth
	if g.flip {
		row, col = board.Size-1-row, board.Size-1-col
	}
	return board.Coord{X: row, Y: col}, true
}

// glyph is the three-column text of one square.
func glyph(sq board.Square) string {
	switch {
	case sq.Piece.IsMarker():
		return " · "
	case sq.Empty():
		return "   "
	default:
		return " " + string(sq.Piece.Letter()) + " "
	}
}

func squareStyle(c board.Coord, sq board.Square, cursor *board.Coord) tcell.Style {
	bg := lightBG
	if (c.X+c.Y)%2 == 1 {
		bg = darkBG
	}
	if sq.Threatened {
		bg = threatBG
	}
	if cursor != nil && *cursor == c {
		bg = cursorBG
	}
	fg := blackFG
	switch {
	case sq.Piece.IsMarker():
		fg = markerFG
	case sq.Piece.Color == board.White:
		fg = whiteFG
	}
	style := tcell.StyleDefault.Background(bg).Foreground(fg)
	if !sq.Empty() && !sq.Piece.IsMarker() {
		style = style.Bold(true)
	}
	return style
}

// drawBoard paints snap with rank and file labels. cursor may be nil.
func drawBoard(screen tcell.Screen, g grid, snap board.Snapshot, cursor *board.Coord) {
	for x := range board.Size {
		for y := range board.Size {
			c := board.Coord{X: x, Y: y}
			sx, sy := g.cell(c)
			style := squareStyle(c, snap[x][y], cursor)
			for i, r := range []rune(glyph(snap[x][y])) {
				screen.SetContent(sx+i, sy, r, nil, style)
			}
		}
	}
	for i := range board.Size {
		_, sy := g.cell(board.Coord{X: i, Y: 0})
		screen.SetContent(g.x, sy, rune('0'+board.Size-i), nil, labelStyle)
		sx, _ := g.cell(board.Coord{X: 0, Y: i})
		screen.SetContent(sx+1, g.y+board.Size, rune('a'+i), nil, labelStyle)
	}
}
