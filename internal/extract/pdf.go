package extract

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFExtractor reads the text layer of a PDF page by page.
type PDFExtractor struct{}

// NewPDFExtractor creates a new PDF extractor.
func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{}
}

func (e *PDFExtractor) Name() string { return "pdf" }

func (e *PDFExtractor) CanExtract(fileName string) bool {
	return hasSuffix(fileName, ".pdf")
}

// Extract renders every page as its visual lines, top to bottom, followed by a
// page marker.
func (e *PDFExtractor) Extract(ctx context.Context, data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	var b strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		var fragments []textFragment
		page := reader.Page(i)
		if !page.V.IsNull() {
			fragments = mergeGlyphs(page.Content().Text)
		}

		for _, line := range layoutLines(fragments) {
			b.WriteString(line)
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "\n---- PAGE %d ----\n\n", i)
	}
	return b.String(), nil
}

// textFragment is a run of text at a position on the page.
type textFragment struct {
	X, Y float64
	S    string
}

// glyphGap is how far apart, relative to the font size, two glyphs on the
// same baseline may be and still belong to the same run.
const glyphGap = 0.2

// mergeGlyphs joins the per-glyph output of the content stream into runs.
// Glyphs continue the current run when they share its baseline and start where
// the previous glyph ended.
func mergeGlyphs(texts []pdf.Text) []textFragment {
	var (
		out  []textFragment
		cur  *textFragment
		endX float64
	)
	for _, t := range texts {
		if t.S == "" {
			continue
		}
		tolerance := math.Max(t.FontSize*glyphGap, 0.5)
		if cur != nil && math.Round(t.Y) == math.Round(cur.Y) &&
			t.X >= endX-tolerance && t.X-endX <= tolerance {
			cur.S += t.S
			endX = t.X + t.W
			continue
		}
		out = append(out, textFragment{X: t.X, Y: t.Y, S: t.S})
		cur = &out[len(out)-1]
		endX = t.X + t.W
	}
	return out
}

// layoutLines groups fragments whose rounded Y coordinates are equal into one
// line, joins each line with single spaces in encounter order and returns the
// non-empty lines ordered from the top of the page (largest Y) down.
func layoutLines(fragments []textFragment) []string {
	type line struct {
		y     float64
		parts []string
	}

	index := make(map[float64]int)
	var lines []line
	for _, f := range fragments {
		y := math.Round(f.Y)
		i, ok := index[y]
		if !ok {
			i = len(lines)
			index[y] = i
			lines = append(lines, line{y: y})
		}
		lines[i].parts = append(lines[i].parts, f.S)
	}

	sort.SliceStable(lines, func(a, b int) bool {
		return lines[a].y > lines[b].y
	})

	out := make([]string, 0, len(lines))
	for _, l := range lines {
		text := strings.TrimSpace(strings.Join(l.parts, " "))
		if text == "" {
			continue
		}
		out = append(out, text)
	}
	return out
}
