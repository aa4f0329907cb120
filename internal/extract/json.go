package extract

import (
	"bytes"
	"context"
	"encoding/json"
)

// invalidJSON is the extraction result for a .json file that does not parse.
const invalidJSON = "Invalid JSON"

// JSONExtractor pretty-prints JSON documents.
type JSONExtractor struct{}

// NewJSONExtractor creates a new JSON extractor.
func NewJSONExtractor() *JSONExtractor {
	return &JSONExtractor{}
}

func (e *JSONExtractor) Name() string { return "json" }

func (e *JSONExtractor) CanExtract(fileName string) bool {
	return hasSuffix(fileName, ".json")
}

// Extract re-indents the document with four spaces. Key order and number
// spelling are kept as written. Unparseable input is not an error.
func (e *JSONExtractor) Extract(ctx context.Context, data []byte) (string, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if !json.Valid(data) {
		return invalidJSON, nil
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, bytes.TrimSpace(data), "", "    "); err != nil {
		return invalidJSON, nil
	}
	return buf.String(), nil
}
