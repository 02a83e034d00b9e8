package dashboard

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/gin-gonic/gin"
)

// heartbeatInterval keeps intermediaries from dropping idle streams.
const heartbeatInterval = 15 * time.Second

// statusEvent is the payload for a reach-status change.
type statusEvent struct {
	LeadID    string `json:"lead_id"`
	NewStatus string `json:"new_status"`
}

// litigatorEvent is the payload for a litigator flag.
type litigatorEvent struct {
	LeadID string  `json:"lead_id"`
	Score  float64 `json:"score"`
}

// handleSSE streams bus events to the browser. Each connection gets its
// own buffered channel; a slow client drops events rather than blocking
// the publishers.
func handleSSE(opts StartOpts) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		c.Header("X-Accel-Buffering", "no")

		writeSSE(c.Writer, "connected", map[string]string{"type": "connected"})
		c.Writer.Flush()

		if opts.Bus == nil {
			return
		}

		type envelope struct {
			event string
			data  any
		}
		ctx := c.Request.Context()
		inbox := make(chan envelope, 64)
		push := func(event string, data any) {
			if ctx.Err() != nil {
				return
			}
			select {
			case inbox <- envelope{event: event, data: data}:
			default:
			}
		}
		cancelStatus := opts.Bus.OnReachStatusChanged(func(leadID, newStatus string) {
			push("reach_status_changed", statusEvent{LeadID: leadID, NewStatus: newStatus})
		})
		defer cancelStatus()
		cancelLitigator := opts.Bus.OnLitigatorFlagged(func(leadID string, score float64) {
			push("litigator_flagged", litigatorEvent{LeadID: leadID, Score: score})
		})
		defer cancelLitigator()

		heartbeat := time.NewTicker(heartbeatInterval)
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
			case env := <-inbox:
				writeSSE(c.Writer, env.event, env.data)
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
