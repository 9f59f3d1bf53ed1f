// SPDX-License-Identifier: MIT

// Package badge rasterises the short remaining-time label into the small
// square bitmap shown by the tray indicator. Labels are drawn onto an
// accent-coloured chip at four times the target size and downsampled, which
// keeps the glyph edges smooth at indicator resolution.
package badge

import (
	"errors"
	"image"
	"image/color"
	"image/draw"
	"sync"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/mleitner/leavetray/internal/metrics"
)

// ErrBusy reports a render request that arrived while another render was in
// flight. Busy requests are dropped, not queued; the next tick retries.
var ErrBusy = errors.New("badge: render already in flight")

const (
	// IndicatorSize is the edge length of the produced bitmap in pixels.
	IndicatorSize = 32

	renderScale  = 4
	canvasSize   = IndicatorSize * renderScale
	cornerRadius = canvasSize / 5
	glyphScale   = 6
)

var (
	chipColor  = color.RGBA{R: 0x3b, G: 0x82, B: 0xf6, A: 0xff}
	labelColor = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
)

// Renderer produces indicator bitmaps. At most one render is in flight at a
// time; the rendering surface is initialised lazily on first use and kept
// for the process lifetime.
type Renderer struct {
	mu sync.Mutex

	initOnce sync.Once
	face     font.Face
	chip     *image.RGBA
}

// New returns an idle Renderer. No surface is allocated until the first
// RenderLabel call.
func New() *Renderer {
	return &Renderer{}
}

// RenderLabel draws the label centered on the accent chip and returns the
// downsampled indicator bitmap. An empty label yields a blank chip.
func (r *Renderer) RenderLabel(text string) (image.Image, error) {
	if !r.mu.TryLock() {
		metrics.BadgeRender("dropped")
		return nil, ErrBusy
	}
	defer r.mu.Unlock()

	r.initOnce.Do(r.initSurface)

	canvas := image.NewRGBA(image.Rect(0, 0, canvasSize, canvasSize))
	draw.Draw(canvas, canvas.Bounds(), r.chip, image.Point{}, draw.Src)

	if text != "" {
		r.drawLabel(canvas, text)
	}

	out := image.NewRGBA(image.Rect(0, 0, IndicatorSize, IndicatorSize))
	xdraw.CatmullRom.Scale(out, out.Bounds(), canvas, canvas.Bounds(), xdraw.Over, nil)

	metrics.BadgeRender("success")
	return out, nil
}

// initSurface builds the reusable chip backdrop and the glyph face.
func (r *Renderer) initSurface() {
	r.face = basicfont.Face7x13

	chip := image.NewRGBA(image.Rect(0, 0, canvasSize, canvasSize))
	for y := 0; y < canvasSize; y++ {
		for x := 0; x < canvasSize; x++ {
			if insideChip(x, y) {
				chip.SetRGBA(x, y, chipColor)
			}
		}
	}
	r.chip = chip
}

// insideChip tests a pixel against the rounded-rectangle chip outline.
func insideChip(x, y int) bool {
	cx := clampToCore(x)
	cy := clampToCore(y)
	dx := x - cx
	dy := y - cy
	return dx*dx+dy*dy <= cornerRadius*cornerRadius
}

func clampToCore(v int) int {
	if v < cornerRadius {
		return cornerRadius
	}
	if v > canvasSize-1-cornerRadius {
		return canvasSize - 1 - cornerRadius
	}
	return v
}

// drawLabel rasterises the label at glyph-face resolution and upscales it
// into the canvas center.
func (r *Renderer) drawLabel(canvas *image.RGBA, text string) {
	m := r.face.Metrics()
	width := font.MeasureString(r.face, text).Ceil()
	height := (m.Ascent + m.Descent).Ceil()
	if width <= 0 || height <= 0 {
		return
	}

	glyphs := image.NewRGBA(image.Rect(0, 0, width, height))
	drawer := font.Drawer{
		Dst:  glyphs,
		Src:  image.NewUniform(labelColor),
		Face: r.face,
		Dot:  fixed.Point26_6{X: 0, Y: m.Ascent},
	}
	drawer.DrawString(text)

	dw := width * glyphScale
	dh := height * glyphScale
	// Shrink to fit when a long label would overflow the chip.
	if limit := canvasSize * 9 / 10; dw > limit {
		dh = dh * limit / dw
		dw = limit
	}
	x0 := (canvasSize - dw) / 2
	y0 := (canvasSize - dh) / 2
	dst := image.Rect(x0, y0, x0+dw, y0+dh)
	xdraw.ApproxBiLinear.Scale(canvas, dst, glyphs, glyphs.Bounds(), xdraw.Over, nil)
}
