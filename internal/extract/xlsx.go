package extract

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// XLSXExtractor renders every worksheet of a workbook as a text table.
type XLSXExtractor struct{}

// NewXLSXExtractor creates a new spreadsheet extractor.
func NewXLSXExtractor() *XLSXExtractor {
	return &XLSXExtractor{}
}

func (e *XLSXExtractor) Name() string { return "xlsx" }

func (e *XLSXExtractor) CanExtract(fileName string) bool {
	return hasSuffix(fileName, ".xlsx")
}

func (e *XLSXExtractor) Extract(ctx context.Context, data []byte) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	var b strings.Builder
	for _, sheet := range f.GetSheetList() {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		rows, err := f.GetRows(sheet)
		if err != nil {
			return "", fmt.Errorf("read sheet %q: %w", sheet, err)
		}

		fmt.Fprintf(&b, "\n=== %s ===\n\n", sheet)
		b.WriteString(RenderTable(rows))
	}
	return b.String(), nil
}
