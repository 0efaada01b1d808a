package digest

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/ayusetu/setu/internal/alert"
	"github.com/ayusetu/setu/internal/models"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(&models.Batch{}, &models.BatchHistory{}); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

func addRecall(t *testing.T, db *gorm.DB, batchID string, ts time.Time) {
	t.Helper()
	b := models.Batch{
		ID:      uuid.New().String(),
		BatchID: batchID,
		Type:    models.TypeLot,
		Status:  models.StatusRecalled,
	}
	if err := db.Create(&b).Error; err != nil {
		t.Fatalf("seed batch: %v", err)
	}
	h := models.BatchHistory{
		BatchID:   b.ID,
		EventType: models.EventRecall,
		Details:   `{"reason":"test"}`,
		Timestamp: ts,
	}
	if err := db.Create(&h).Error; err != nil {
		t.Fatalf("seed history: %v", err)
	}
}

func TestNextCronDuration(t *testing.T) {
	// Every minute: the next fire is at most 60s away.
	d := NextCronDuration("* * * * *")
	if d <= 0 || d > time.Minute {
		t.Errorf("duration = %v, want (0, 1m]", d)
	}

	if d := NextCronDuration("not a cron"); d != 0 {
		t.Errorf("invalid expression duration = %v, want 0", d)
	}
}

func TestSummarize(t *testing.T) {
	db := testDB(t)
	now := time.Now()
	addRecall(t, db, "LOT1", now.Add(-2*time.Hour))
	addRecall(t, db, "LOT2", now.Add(-30*time.Minute))

	msg, count, err := Summarize(db, now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if count != 1 {
		t.Fatalf("count = %d, want 1 (only recalls inside the window)", count)
	}
	if msg.Title != "Recall Digest" {
		t.Errorf("title = %q", msg.Title)
	}
	if !strings.Contains(msg.Body, "1 recall(s)") {
		t.Errorf("body = %q", msg.Body)
	}
	if len(msg.Fields) != 1 || msg.Fields[0].Name != "LOT2" {
		t.Errorf("fields = %+v", msg.Fields)
	}
}

func TestSummarize_Empty(t *testing.T) {
	db := testDB(t)
	_, count, err := Summarize(db, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if count != 0 {
		t.Errorf("count = %d, want 0", count)
	}
}

func TestRun_InvalidSchedule(t *testing.T) {
	db := testDB(t)
	err := Run(context.Background(), db, alert.NewNotifier(), "every tuesday")
	if err == nil {
		t.Fatal("expected error for invalid schedule")
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	db := testDB(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- Run(ctx, db, alert.NewNotifier(), "* * * * *") }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v after cancel", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
