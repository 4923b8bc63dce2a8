package dashboard

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/leadyard/internal/lead"
)

const (
	heartbeatInterval = 15 * time.Second
	// streamBatch bounds how many new leads one poll can emit.
	streamBatch = 50
)

// handleStream is a server-sent event endpoint that polls the store and
// emits a "lead" event for each lead created after the client connected.
func handleStream(store lead.Store, loc *time.Location, interval time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		c.Header("X-Accel-Buffering", "no")

		ctx := c.Request.Context()

		// Only leads newer than the current newest are announced.
		var lastSeenID uint
		if newest, err := store.ListActive(ctx, 1, true); err == nil && len(newest) > 0 {
			lastSeenID = newest[0].ID
		}

		writeSSE(c.Writer, "connected", map[string]uint{"last_id": lastSeenID})
		c.Writer.Flush()

		ticker := time.NewTicker(interval)
		heartbeat := time.NewTicker(heartbeatInterval)
		defer ticker.Stop()
		defer heartbeat.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-heartbeat.C:
				writeSSE(c.Writer, "heartbeat", map[string]string{
					"timestamp": time.Now().UTC().Format(time.RFC3339),
				})
				c.Writer.Flush()
			case <-ticker.C:
				recent, err := store.ListActive(ctx, streamBatch, true)
				if err != nil {
					continue
				}
				// recent is newest first; emit in creation order.
				for i := len(recent) - 1; i >= 0; i-- {
					if recent[i].ID <= lastSeenID {
						continue
					}
					writeSSE(c.Writer, "lead", toLeadView(&recent[i], loc))
					lastSeenID = recent[i].ID
				}
				c.Writer.Flush()
			}
		}
	}
}

// writeSSE writes a single SSE event to the writer.
func writeSSE(w io.Writer, event string, data any) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, string(jsonData))
}
