package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	"image/png"
	"strings"

	nchess "github.com/corentings/chess/v2"
	"github.com/park285/chessboard-client/internal/board"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const defaultSquareSize = 64

// Options tune one rendering. Zero value draws the board from white's side
// with threatened squares tinted.
type Options struct {
	Title   string
	Caption string
	Cursor  *board.Coord
	Flip    bool

	HideThreats bool
	SquareSize  int
}

type Renderer interface {
	RenderPNG(ctx context.Context, snap board.Snapshot, opts Options) ([]byte, error)
}

type svgRenderer struct{}

func NewRenderer() Renderer { return &svgRenderer{} }

var (
	lightSquare      = color.RGBA{233, 207, 163, 255}
	darkSquare       = color.RGBA{187, 136, 96, 255}
	threatenedFill   = color.NRGBA{R: 220, G: 60, B: 60, A: 90}
	markerFill       = color.NRGBA{R: 40, G: 40, B: 40, A: 110}
	cursorFill       = color.NRGBA{R: 255, G: 228, B: 120, A: 140}
	hudPanelColor    = color.NRGBA{R: 28, G: 31, B: 46, A: 250}
	hudTextPrimary   = color.NRGBA{R: 236, G: 239, B: 255, A: 255}
	backgroundColor  = color.NRGBA{R: 44, G: 47, B: 62, A: 255}
	coordinateColour = color.NRGBA{R: 8, G: 214, B: 120, A: 255}
)

type layout struct {
	square int
	origin image.Point
	flip   bool
}

// cellRect is the pixel rectangle of board coordinate c.
func (l layout) cellRect(c board.Coord) image.Rectangle {
	row, col := c.X, c.Y
	if l.flip {
		row, col = board.Size-1-row, board.Size-1-col
	}
	x := l.origin.X + col*l.square
	y := l.origin.Y + row*l.square
	return image.Rect(x, y, x+l.square, y+l.square)
}

func coordOf(sq nchess.Square) board.Coord {
	return board.Coord{X: board.Size - 1 - int(sq.Rank()), Y: int(sq.File())}
}

func (r *svgRenderer) RenderPNG(ctx context.Context, snap board.Snapshot, opts Options) ([]byte, error) {
	size := opts.SquareSize
	if size <= 0 {
		size = defaultSquareSize
	}
	const (
		sideMargin  = 28
		hudHeight   = 40
		gapToBoard  = 12
		panelRadius = 10
	)
	boardSize := size * board.Size
	top := sideMargin
	hud := strings.TrimSpace(opts.Title) != "" || strings.TrimSpace(opts.Caption) != ""
	if hud {
		top += hudHeight + gapToBoard
	}
	img := image.NewRGBA(image.Rect(0, 0, boardSize+sideMargin*2, boardSize+top+sideMargin))
	imagedraw.Draw(img, img.Bounds(), image.NewUniform(backgroundColor), image.Point{}, imagedraw.Src)

	l := layout{square: size, origin: image.Point{X: sideMargin, Y: top}, flip: opts.Flip}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if hud {
		panel := image.Rect(sideMargin, sideMargin, sideMargin+boardSize, sideMargin+hudHeight)
		drawRoundedPanel(img, panel, panelRadius, hudPanelColor)
		drawHUDText(img, panel, opts.Title, opts.Caption)
	}
	drawSquares(img, l)
	if !opts.HideThreats {
		drawThreats(img, snap, l)
	}
	if opts.Cursor != nil && opts.Cursor.InBounds() {
		drawOverlay(img, l.cellRect(*opts.Cursor), cursorFill)
	}
	if err := drawPieces(img, snap, l); err != nil {
		return nil, err
	}
	drawMarkers(img, snap, l)
	drawCoordinates(img, l, sideMargin)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func drawSquares(dst imagedraw.Image, l layout) {
	for x := range board.Size {
		for y := range board.Size {
			clr := lightSquare
			if (x+y)%2 == 1 {
				clr = darkSquare
			}
			imagedraw.Draw(dst, l.cellRect(board.Coord{X: x, Y: y}), image.NewUniform(clr), image.Point{}, imagedraw.Src)
		}
	}
}

func drawThreats(img *image.RGBA, snap board.Snapshot, l layout) {
	for x := range board.Size {
		for y := range board.Size {
			if snap[x][y].Threatened {
				drawOverlay(img, l.cellRect(board.Coord{X: x, Y: y}), threatenedFill)
			}
		}
	}
}

func drawPieces(dst imagedraw.Image, snap board.Snapshot, l layout) error {
	for sq, piece := range snap.ChessBoard().SquareMap() {
		if piece == nchess.NoPiece {
			continue
		}
		img, err := renderPieceImage(piece, l.square)
		if err != nil {
			return err
		}
		rect := l.cellRect(coordOf(sq))
		imagedraw.Draw(dst, rect, img, image.Point{}, imagedraw.Over)
	}
	return nil
}

// drawMarkers puts a dot on every legal-destination hint.
func drawMarkers(img *image.RGBA, snap board.Snapshot, l layout) {
	for _, c := range snap.Markers() {
		rect := l.cellRect(c)
		center := image.Point{X: rect.Min.X + l.square/2, Y: rect.Min.Y + l.square/2}
		drawDisc(img, center, l.square/6, markerFill)
	}
}

func drawOverlay(img *image.RGBA, rect image.Rectangle, clr color.Color) {
	imagedraw.Draw(img, rect, image.NewUniform(clr), image.Point{}, imagedraw.Over)
}

func drawHUDText(img *image.RGBA, panel image.Rectangle, title, caption string) {
	drawer := &font.Drawer{Dst: img, Face: basicfont.Face7x13, Src: image.NewUniform(hudTextPrimary)}
	text := strings.TrimSpace(title)
	if c := strings.TrimSpace(caption); c != "" {
		if text != "" {
			text += " | "
		}
		text += c
	}
	text = truncateWithEllipsis(drawer.Face, text, panel.Dx()-24)
	drawCenteredString(drawer, panel, text)
}

func drawCoordinates(dst imagedraw.Image, l layout, margin int) {
	face := basicfont.Face7x13
	drawer := &font.Drawer{Dst: dst, Face: face, Src: image.NewUniform(coordinateColour)}
	ascent := face.Metrics().Ascent.Ceil()
	for i := range board.Size {
		row := l.cellRect(board.Coord{X: i, Y: 0})
		if l.flip {
			row = l.cellRect(board.Coord{X: i, Y: board.Size - 1})
		}
		rank := fmt.Sprintf("%d", board.Size-i)
		drawCenteredText(drawer, rank, l.origin.X-margin/2, row.Min.Y+l.square/2+ascent/2)

		col := l.cellRect(board.Coord{X: board.Size - 1, Y: i})
		if l.flip {
			col = l.cellRect(board.Coord{X: 0, Y: i})
		}
		file := string(rune('a' + i))
		drawCenteredText(drawer, file, col.Min.X+l.square/2, l.origin.Y+board.Size*l.square+ascent+2)
	}
}

func truncateWithEllipsis(face font.Face, text string, maxWidth int) string {
	if text == "" || maxWidth <= 0 {
		return text
	}
	drawer := font.Drawer{Face: face}
	if drawer.MeasureString(text).Round() <= maxWidth {
		return text
	}
	const ellipsis = "..."
	runes := []rune(text)
	for len(runes) > 0 {
		runes = runes[:len(runes)-1]
		if candidate := string(runes) + ellipsis; drawer.MeasureString(candidate).Round() <= maxWidth {
			return candidate
		}
	}
	return ellipsis
}

func drawCenteredString(drawer *font.Drawer, rect image.Rectangle, text string) {
	if text == "" {
		return
	}
	metrics := drawer.Face.Metrics()
	width := drawer.MeasureString(text).Round()
	x := max(rect.Min.X+(rect.Dx()-width)/2, rect.Min.X)
	baseline := rect.Min.Y + (rect.Dy()+metrics.Ascent.Ceil()-metrics.Descent.Ceil())/2
	drawer.Dot = fixed.P(x, baseline)
	drawer.DrawString(text)
}

func drawCenteredText(drawer *font.Drawer, text string, centerX, baseline int) {
	width := drawer.MeasureString(text).Round()
	drawer.Dot = fixed.P(centerX-width/2, baseline)
	drawer.DrawString(text)
}
