package render

import (
	"image"
	"image/color"
	imagedraw "image/draw"
)

// shapeMask is an alpha mask that is opaque where inside reports true.
type shapeMask struct {
	bounds image.Rectangle
	inside func(x, y int) bool
}

func (m shapeMask) ColorModel() color.Model { return color.AlphaModel }
func (m shapeMask) Bounds() image.Rectangle { return m.bounds }

func (m shapeMask) At(x, y int) color.Color {
	if m.inside(x, y) {
		return color.Alpha{A: 255}
	}
	return color.Alpha{}
}

func fillMasked(img *image.RGBA, m shapeMask, clr color.Color) {
	imagedraw.DrawMask(img, m.bounds, image.NewUniform(clr), image.Point{}, m, m.bounds.Min, imagedraw.Over)
}

// drawRoundedPanel fills rect with corners rounded to radius.
func drawRoundedPanel(img *image.RGBA, rect image.Rectangle, radius int, clr color.Color) {
	if rect.Empty() {
		return
	}
	radius = max(0, min(radius, rect.Dx()/2, rect.Dy()/2))
	left, right := rect.Min.X+radius, rect.Max.X-radius-1
	top, bottom := rect.Min.Y+radius, rect.Max.Y-radius-1
	r2 := radius * radius
	fillMasked(img, shapeMask{bounds: rect, inside: func(x, y int) bool {
		cx := min(max(x, left), right)
		cy := min(max(y, top), bottom)
		dx, dy := x-cx, y-cy
		return dx*dx+dy*dy <= r2
	}}, clr)
}

func drawDisc(img *image.RGBA, center image.Point, radius int, clr color.Color) {
	radius = max(radius, 0)
	r2 := radius * radius
	bounds := image.Rect(center.X-radius, center.Y-radius, center.X+radius+1, center.Y+radius+1)
	fillMasked(img, shapeMask{bounds: bounds, inside: func(x, y int) bool {
		dx, dy := x-center.X, y-center.Y
		return dx*dx+dy*dy <= r2
	}}, clr)
}
