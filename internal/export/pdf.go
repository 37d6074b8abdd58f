package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/dyluth/ideaboard/pkg/board"
	"github.com/dyluth/ideaboard/pkg/geometry"
	"github.com/jung-kurt/gofpdf"
)

// PDF renders doc as a single-page PDF in points.
func PDF(w io.Writer, doc *board.Document, opts Options) error {
	f, entries, err := newFrame(doc, opts)
	if err != nil {
		return err
	}

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           gofpdf.SizeType{Wd: f.width, Ht: f.height},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()
	pdf.SetLineCapStyle("round")
	pdf.SetLineJoinStyle("round")

	s := &pdfSurface{pdf: pdf, f: f, tr: pdf.UnicodeTranslatorFromDescriptor("")}
	if err := paint(s, entries); err != nil {
		return err
	}
	if err := pdf.Error(); err != nil {
		return fmt.Errorf("failed to render pdf: %w", err)
	}
	return pdf.Output(w)
}

type pdfSurface struct {
	pdf *gofpdf.Fpdf
	f   frame
	tr  func(string) string
}

func (s *pdfSurface) Rect(r geometry.Rect, fill board.Color, outline bool) {
	r = s.f.rect(r)
	s.pdf.SetFillColor(int(fill.R), int(fill.G), int(fill.B))
	style := "F"
	if outline {
		s.pdf.SetDrawColor(int(colorOutline.R), int(colorOutline.G), int(colorOutline.B))
		s.pdf.SetLineWidth(s.f.scaled(1))
		style = "FD"
	}
	s.pdf.Rect(r.X, r.Y, r.Width, r.Height, style)
}

func (s *pdfSurface) Ellipse(r geometry.Rect, fill board.Color) {
	r = s.f.rect(r)
	s.pdf.SetFillColor(int(fill.R), int(fill.G), int(fill.B))
	s.pdf.Ellipse(r.X+r.Width/2, r.Y+r.Height/2, r.Width/2, r.Height/2, 0, "F")
}

func (s *pdfSurface) Curve(c curve, color board.Color, width float64) {
	if len(c.Segments) == 0 {
		return
	}
	s.pdf.SetDrawColor(int(color.R), int(color.G), int(color.B))
	s.pdf.SetLineWidth(s.f.scaled(width))
	start := s.f.point(c.Start)
	s.pdf.MoveTo(start.X, start.Y)
	for _, seg := range c.Segments {
		ctrl, to := s.f.point(seg.Ctrl), s.f.point(seg.To)
		s.pdf.CurveTo(ctrl.X, ctrl.Y, to.X, to.Y)
	}
	s.pdf.DrawPath("D")
}

func (s *pdfSurface) Text(r geometry.Rect, lines []string, color board.Color, size float64) {
	if len(lines) == 0 {
		return
	}
	r = s.f.rect(r)
	pad := s.f.scaled(6)
	pt := s.f.scaled(size)

	s.pdf.ClipRect(r.X, r.Y, r.Width, r.Height, false)
	defer s.pdf.ClipEnd()

	s.pdf.SetFont("Helvetica", "", pt)
	s.pdf.SetTextColor(int(color.R), int(color.G), int(color.B))
	s.pdf.SetXY(r.X+pad, r.Y+pad)
	s.pdf.MultiCell(r.Width-2*pad, pt*1.2, s.tr(strings.Join(lines, "\n")), "", "L", false)
}
