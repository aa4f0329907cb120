package extract

import (
	"strings"
	"unicode/utf8"
)

// RenderTable renders rows as a fixed-width text table:
//
//	+-------+-----+
//	| Name  | Age |
//	| Alice | 30  |
//	+-------+-----+
//
// Column widths are measured in runes. Ragged rows are padded with empty cells.
// The table is followed by a blank line. Zero rows render as "".
func RenderTable(rows [][]string) string {
	if len(rows) == 0 {
		return ""
	}

	var widths []int
	for _, row := range rows {
		for i, cell := range row {
			n := utf8.RuneCountInString(cell)
			if i >= len(widths) {
				widths = append(widths, n)
			} else if n > widths[i] {
				widths[i] = n
			}
		}
	}

	var b strings.Builder
	border := tableBorder(widths)

	b.WriteString(border)
	b.WriteByte('\n')
	for i, row := range rows {
		if i > 0 {
			b.WriteByte('\n')
		}
		writeTableRow(&b, row, widths)
	}
	b.WriteByte('\n')
	b.WriteString(border)
	b.WriteString("\n\n")

	return b.String()
}

func tableBorder(widths []int) string {
	parts := make([]string, len(widths))
	for i, w := range widths {
		parts[i] = strings.Repeat("-", w)
	}
	return "+-" + strings.Join(parts, "-+-") + "-+"
}

func writeTableRow(b *strings.Builder, row []string, widths []int) {
	b.WriteString("| ")
	for i, w := range widths {
		if i > 0 {
			b.WriteString(" | ")
		}
		var cell string
		if i < len(row) {
			cell = row[i]
		}
		b.WriteString(cell)
		if pad := w - utf8.RuneCountInString(cell); pad > 0 {
			b.WriteString(strings.Repeat(" ", pad))
		}
	}
	b.WriteString(" |")
}
