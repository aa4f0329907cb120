// sse.go - Server-sent event helpers
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// sseHeartbeat keeps idle event streams open through proxies.
var sseHeartbeat = 15 * time.Second

// startSSE writes the event-stream headers and lifts the server write deadline.
func startSSE(c echo.Context) {
	_ = http.NewResponseController(c.Response().Writer).SetWriteDeadline(time.Time{})
	c.Response().Header().Set("Content-Type", "text/event-stream")
	c.Response().Header().Set("Cache-Control", "no-cache")
	c.Response().Header().Set("Connection", "keep-alive")
	c.Response().Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering
	c.Response().WriteHeader(http.StatusOK)
	c.Response().Flush()
}

// writeSSE sends v as one JSON data message.
func writeSSE(c echo.Context, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(c.Response(), "data: %s\n\n", data); err != nil {
		return err
	}
	c.Response().Flush()
	return nil
}

// writeSSEComment sends a comment line, ignored by clients.
func writeSSEComment(c echo.Context, text string) error {
	if _, err := fmt.Fprintf(c.Response(), ": %s\n\n", text); err != nil {
		return err
	}
	c.Response().Flush()
	return nil
}
