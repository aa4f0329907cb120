package dashboard

import (
	"bufio"
	"bytes"
	"io"
)

// maxEventSize bounds a single SSE line.
const maxEventSize = 1 << 20

// ReadEvents parses a text/event-stream body and calls fn with the data of
// each dispatched message. Multi-line data fields are joined with "\n".
// It returns nil at EOF, or the first error from the reader or fn.
func ReadEvents(r io.Reader, fn func(data []byte) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64<<10), maxEventSize)

	var (
		data    bytes.Buffer
		hasData bool
	)
	dispatch := func() error {
		if !hasData {
			return nil
		}
		payload := append([]byte(nil), data.Bytes()...)
		data.Reset()
		hasData = false
		return fn(payload)
	}

	for scanner.Scan() {
		line := bytes.TrimSuffix(scanner.Bytes(), []byte("\r"))

		if len(line) == 0 {
			if err := dispatch(); err != nil {
				return err
			}
			continue
		}
		if line[0] == ':' {
			continue
		}

		field, value, _ := bytes.Cut(line, []byte(":"))
		value = bytes.TrimPrefix(value, []byte(" "))

		if string(field) == "data" {
			if hasData {
				data.WriteByte('\n')
			}
			data.Write(value)
			hasData = true
		}
	}
	// A message not terminated by a blank line is discarded.
	return scanner.Err()
}
