// Server-Sent Events helpers shared by the streaming endpoints.
package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// clearWriteDeadline lifts the server's WriteTimeout for the current
// connection so a long-lived stream is not cut off mid-flight. Not every
// ResponseWriter supports per-request deadlines (httptest recorders do not);
// those errors are ignored.
func clearWriteDeadline(c *gin.Context) {
	_ = http.NewResponseController(c.Writer).SetWriteDeadline(time.Time{})
}

// writeSSEJSON writes one SSE data frame containing v as JSON.
func writeSSEJSON(w io.Writer, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", b)
	return err
}

// writeSSENamed writes one SSE frame with an explicit event name.
func writeSSENamed(w io.Writer, event string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, b)
	return err
}
