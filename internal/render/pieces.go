package render

import (
	"bytes"
	"embed"
	"fmt"
	"image"
	"sync"

	nchess "github.com/corentings/chess/v2"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

//go:embed assets/pieces/*.svg
var pieceFiles embed.FS

var pieceLetters = map[nchess.PieceType]string{
	nchess.King:   "K",
	nchess.Queen:  "Q",
	nchess.Rook:   "R",
	nchess.Bishop: "B",
	nchess.Knight: "N",
	nchess.Pawn:   "P",
}

type spriteKey struct {
	piece nchess.Piece
	size  int
}

// sprites caches rasterised pieces per square size.
var sprites sync.Map

func renderPieceImage(piece nchess.Piece, size int) (image.Image, error) {
	key := spriteKey{piece: piece, size: size}
	if img, ok := sprites.Load(key); ok {
		return img.(image.Image), nil
	}
	img, err := rasterisePiece(piece, size)
	if err != nil {
		return nil, err
	}
	actual, _ := sprites.LoadOrStore(key, img)
	return actual.(image.Image), nil
}

func rasterisePiece(piece nchess.Piece, size int) (*image.RGBA, error) {
	name := pieceAssetName(piece)
	data, err := pieceFiles.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("piece asset %s: %w", name, err)
	}
	icon, err := oksvg.ReadIconStream(bytes.NewReader(sanitizeSVG(data)))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	s := float64(size)
	icon.SetTarget(0, 0, s, s)

	rgba := image.NewRGBA(image.Rect(0, 0, size, size))
	scanner := rasterx.NewScannerGV(size, size, rgba, rgba.Bounds())
	icon.Draw(rasterx.NewDasher(size, size, scanner), 1)
	return rgba, nil
}

func pieceAssetName(piece nchess.Piece) string {
	side := "b"
	if piece.Color() == nchess.White {
		side = "w"
	}
	return "assets/pieces/" + side + pieceLetters[piece.Type()] + ".svg"
}

// sanitizeSVG drops the space after style colons, which oksvg rejects.
func sanitizeSVG(svg []byte) []byte {
	for _, prop := range []string{"fill", "stroke", "stop-color"} {
		svg = bytes.ReplaceAll(svg, []byte(prop+": #"), []byte(prop+":#"))
	}
	return svg
}
