package dashboard

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadEvents(t *testing.T) {
	input := ": connected\n\n" +
		"data: {\"a\":1}\n\n" +
		"event: message\r\n" +
		"id: 7\r\n" +
		"data: line one\r\n" +
		"data:line two\r\n" +
		"\r\n" +
		"retry: 1000\n\n" +
		"data: unterminated"

	var got []string
	err := ReadEvents(strings.NewReader(input), func(data []byte) error {
		got = append(got, string(data))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{`{"a":1}`, "line one\nline two"}, got)
}

func TestReadEvents_CallbackError(t *testing.T) {
	stop := errors.New("stop")
	calls := 0
	err := ReadEvents(strings.NewReader("data: 1\n\ndata: 2\n\n"), func([]byte) error {
		calls++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}
