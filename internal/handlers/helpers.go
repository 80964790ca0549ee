package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"account-market/internal/auth"
	"account-market/internal/notify"
)

// uintParam parses a numeric path parameter.
func uintParam(c *gin.Context, name string) (uint, bool) {
	v, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return uint(v), true
}

// queryInt parses an integer query parameter with a default and an upper cap.
func queryInt(c *gin.Context, name string, def, max int) int {
	v, err := strconv.Atoi(c.Query(name))
	if err != nil || v < 0 {
		return def
	}
	if max > 0 && v > max {
		return max
	}
	return v
}

// streamClaims authenticates an SSE request via its token query parameter.
// EventSource cannot set headers, so streams carry the JWT in the URL.
func streamClaims(c *gin.Context) (*auth.Claims, bool) {
	claims, err := auth.ValidateToken(c.Query("token"))
	if err != nil {
		c.Status(http.StatusUnauthorized)
		return nil, false
	}
	return claims, true
}

// streamEvents writes hub events to the client as SSE frames until the
// client disconnects or the channel closes.
func streamEvents(c *gin.Context, ch <-chan notify.Event, hello *notify.Event) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Writer.Flush()

	if hello != nil {
		writeEvent(c.Writer, *hello)
	}

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-ch:
			if !ok {
				return
			}
			writeEvent(c.Writer, e)
		}
	}
}

func writeEvent(w io.Writer, e notify.Event) {
	payload, err := json.Marshal(e)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", payload)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}
