// Package digest posts periodic recall summaries to the alert channels.
package digest

import (
	"context"
	"fmt"
	"time"

	"github.com/ayusetu/setu/internal/alert"
	"github.com/ayusetu/setu/internal/models"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// cronParser uses standard 5-field cron expressions (minute, hour, dom, month, dow).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// NextCronDuration parses a 5-field cron expression and returns the
// duration until the next fire time. Returns 0 on parse error.
func NextCronDuration(expr string) time.Duration {
	sched, err := cronParser.Parse(expr)
	if err != nil {
		return 0
	}
	next := sched.Next(time.Now())
	d := time.Until(next)
	if d < 0 {
		return 0
	}
	return d
}

// Summarize builds a digest message covering recalls recorded since the
// given time. The second return value is the number of recalls covered.
func Summarize(db *gorm.DB, since time.Time) (alert.Message, int, error) {
	var entries []models.BatchHistory
	err := db.Where("event_type = ? AND timestamp > ?", models.EventRecall, since).
		Order("timestamp ASC").Find(&entries).Error
	if err != nil {
		return alert.Message{}, 0, fmt.Errorf("digest: query recalls: %w", err)
	}
	if len(entries) == 0 {
		return alert.Message{}, 0, nil
	}

	// Resolve business keys for the recalled batches.
	fields := make([]alert.Field, 0, len(entries))
	for _, e := range entries {
		var b models.Batch
		label := e.BatchID
		if err := db.Where("id = ?", e.BatchID).First(&b).Error; err == nil {
			label = b.BatchID
		}
		fields = append(fields, alert.Field{
			Name:  label,
			Value: e.Timestamp.UTC().Format(time.RFC3339),
		})
	}

	msg := alert.Message{
		Title:    "Recall Digest",
		Body:     fmt.Sprintf("%d recall(s) since %s", len(entries), since.UTC().Format(time.RFC3339)),
		Severity: "info",
		Fields:   fields,
	}
	return msg, len(entries), nil
}

// Run posts a recall digest on the given cron schedule until ctx is
// cancelled. An unparseable expression returns an error immediately.
func Run(ctx context.Context, db *gorm.DB, notifier *alert.Notifier, expr string) error {
	if _, err := cronParser.Parse(expr); err != nil {
		return fmt.Errorf("digest: parse schedule %q: %w", expr, err)
	}

	last := time.Now()
	for {
		wait := NextCronDuration(expr)
		if wait <= 0 {
			wait = time.Minute
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}

		now := time.Now()
		msg, count, err := Summarize(db, last)
		if err != nil {
			return err
		}
		last = now
		if count == 0 {
			continue
		}
		notifier.Broadcast(msg)
	}
}
