package server

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/ayusetu/setu/internal/models"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// batchChangeEvent holds data for a batch-change SSE event.
type batchChangeEvent struct {
	BatchID   string    `json:"batch_id"`
	Type      string    `json:"type"`
	Status    string    `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
}

// handleSSE streams batch-change events by polling the batches table on
// an updated_at watermark. Clients use this to refresh their view after
// engine operations and transfers.
func handleSSE(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		c.Header("X-Accel-Buffering", "no")

		writeSSE(c.Writer, "connected", map[string]string{"type": "connected"})
		c.Writer.Flush()

		// Tests use a nil DB to exercise just the handshake.
		if db == nil {
			return
		}

		watermark := time.Now()

		ctx := c.Request.Context()
		ticker := time.NewTicker(3 * time.Second)
		heartbeat := time.NewTicker(15 * time.Second)
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
				var changed []models.Batch
				db.Where("updated_at > ?", watermark).
					Order("updated_at ASC").
					Find(&changed)

				if len(changed) == 0 {
					continue
				}
				watermark = changed[len(changed)-1].UpdatedAt

				for _, b := range changed {
					writeSSE(c.Writer, "batch-change", batchChangeEvent{
						BatchID:   b.BatchID,
						Type:      b.Type,
						Status:    b.Status,
						UpdatedAt: b.UpdatedAt,
					})
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
