package export

import (
	"fmt"
	"io"
	"math"

	"github.com/dyluth/ideaboard/pkg/board"
	"github.com/dyluth/ideaboard/pkg/geometry"
	"github.com/fogleman/gg"
)

// MaxPNGSide caps the longer side of a PNG export in pixels. Larger boards are
// scaled down to fit.
const MaxPNGSide = 8192

// PNG renders doc as a PNG image with a white background.
func PNG(w io.Writer, doc *board.Document, opts Options) error {
	f, entries, err := newFrame(doc, opts)
	if err != nil {
		return err
	}
	if side := math.Max(f.width, f.height); side > MaxPNGSide {
		opts.Scale = f.scale * MaxPNGSide / side
		if f, entries, err = newFrame(doc, opts); err != nil {
			return err
		}
	}

	dc := gg.NewContext(int(math.Round(f.width)), int(math.Round(f.height)))
	dc.SetRGB255(0xFF, 0xFF, 0xFF)
	dc.Clear()
	dc.SetLineCapRound()
	dc.SetLineJoinRound()

	if err := paint(&pngSurface{dc: dc, f: f}, entries); err != nil {
		return err
	}
	if err := dc.EncodePNG(w); err != nil {
		return fmt.Errorf("failed to encode png: %w", err)
	}
	return nil
}

// pngSurface draws with gg. Text uses gg's built-in bitmap face, so the size
// argument only affects line spacing.
type pngSurface struct {
	dc *gg.Context
	f  frame
}

func (s *pngSurface) setColor(c board.Color) {
	s.dc.SetRGB255(int(c.R), int(c.G), int(c.B))
}

func (s *pngSurface) Rect(r geometry.Rect, fill board.Color, outline bool) {
	r = s.f.rect(r)
	s.dc.DrawRectangle(r.X, r.Y, r.Width, r.Height)
	s.setColor(fill)
	if !outline {
		s.dc.Fill()
		return
	}
	s.dc.FillPreserve()
	s.setColor(colorOutline)
	s.dc.SetLineWidth(s.f.scaled(1))
	s.dc.Stroke()
}

func (s *pngSurface) Ellipse(r geometry.Rect, fill board.Color) {
	r = s.f.rect(r)
	s.dc.DrawEllipse(r.X+r.Width/2, r.Y+r.Height/2, r.Width/2, r.Height/2)
	s.setColor(fill)
	s.dc.Fill()
}

func (s *pngSurface) Curve(c curve, color board.Color, width float64) {
	if len(c.Segments) == 0 {
		return
	}
	start := s.f.point(c.Start)
	s.dc.NewSubPath()
	s.dc.MoveTo(start.X, start.Y)
	for _, seg := range c.Segments {
		ctrl, to := s.f.point(seg.Ctrl), s.f.point(seg.To)
		s.dc.QuadraticTo(ctrl.X, ctrl.Y, to.X, to.Y)
	}
	s.setColor(color)
	s.dc.SetLineWidth(s.f.scaled(width))
	s.dc.Stroke()
}

func (s *pngSurface) Text(r geometry.Rect, lines []string, color board.Color, size float64) {
	if len(lines) == 0 {
		return
	}
	r = s.f.rect(r)
	pad := s.f.scaled(6)

	s.dc.Push()
	defer s.dc.Pop()
	s.dc.DrawRectangle(r.X, r.Y, r.Width, r.Height)
	s.dc.Clip()

	s.setColor(color)
	_, lineHeight := s.dc.MeasureString("M")
	spacing := math.Max(1, size*1.2/math.Max(lineHeight, 1))
	y := r.Y + pad
	for _, line := range lines {
		wrapped := s.dc.WordWrap(line, math.Max(r.Width-2*pad, 1))
		for _, w := range wrapped {
			s.dc.DrawStringAnchored(w, r.X+pad, y, 0, 1)
			y += lineHeight * spacing
		}
	}
}
