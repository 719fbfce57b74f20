package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/onedaybetter/tracker/internal/models"
	"github.com/onedaybetter/tracker/internal/testutil"
)

func TestDBHandlerStoresErrors(t *testing.T) {
	db, _ := testutil.SetupTestDB(t)

	h := NewDBHandler(db, time.Hour)
	logger := slog.New(h).With("request_id", "req-1")

	logger.Info("ignored")
	logger.Error("toggle failed", "error", "boom", "user_id", "u-1", "latency_ms", 12.6, "habit_id", "h-1")
	h.Stop()

	var logs []models.SystemLog
	if err := db.Find(&logs).Error; err != nil {
		t.Fatal(err)
	}
	if len(logs) != 1 {
		t.Fatalf("stored %d logs, want 1", len(logs))
	}

	got := logs[0]
	if got.Message != "toggle failed" || got.Level != "ERROR" || got.RequestID != "req-1" {
		t.Errorf("log = %+v", got)
	}
	if got.Error != "boom" || got.UserID == nil || *got.UserID != "u-1" || got.LatencyMs != 13 {
		t.Errorf("log fields = %+v", got)
	}
	if !bytes.Contains(got.Extra, []byte(`"habit_id":"h-1"`)) {
		t.Errorf("extra = %s", got.Extra)
	}
}

func TestPurge(t *testing.T) {
	db, _ := testutil.SetupTestDB(t)
	now := time.Now().UTC()

	h := NewDBHandler(db, time.Hour)
	for _, age := range []int{40, 31, 2} {
		r := slog.NewRecord(now.AddDate(0, 0, -age), slog.LevelError, "old", 0)
		if err := h.Handle(context.Background(), r); err != nil {
			t.Fatal(err)
		}
	}
	h.Stop()

	deleted, err := Purge(db, now.AddDate(0, 0, -30))
	if err != nil {
		t.Fatalf("Purge: %v", err)
	}
	if deleted != 2 {
		t.Errorf("deleted = %d, want 2", deleted)
	}
}

type recordingHandler struct {
	level slog.Level
	got   []string
}

func (r *recordingHandler) Enabled(_ context.Context, l slog.Level) bool { return l >= r.level }
func (r *recordingHandler) Handle(_ context.Context, rec slog.Record) error {
	r.got = append(r.got, rec.Message)
	return nil
}
func (r *recordingHandler) WithAttrs([]slog.Attr) slog.Handler { return r }
func (r *recordingHandler) WithGroup(string) slog.Handler { return r }

func TestMultiHandlerRespectsLevels(t *testing.T) {
	all := &recordingHandler{level: slog.LevelDebug}
	errorsOnly := &recordingHandler{level: slog.LevelError}

	logger := slog.New(NewMultiHandler(all, errorsOnly))
	logger.Info("hello")
	logger.Error("failure")

	if len(all.got) != 2 {
		t.Errorf("all = %v", all.got)
	}
	if len(errorsOnly.got) != 1 || errorsOnly.got[0] != "failure" {
		t.Errorf("errorsOnly = %v", errorsOnly.got)
	}
}

func TestDBHandlerStopWaitsForBatchFlush(t *testing.T) {
	db, _ := testutil.SetupTestDB(t)

	h := NewDBHandler(db, time.Hour)
	logger := slog.New(h)
	for i := 0; i < batchSize; i++ {
		logger.Error("batch")
	}
	h.Stop()

	var count int64
	if err := db.Model(&models.SystemLog{}).Count(&count).Error; err != nil {
		t.Fatal(err)
	}
	if count != batchSize {
		t.Errorf("stored %d logs after Stop, want %d", count, batchSize)
	}
}

func TestDBHandlerDropsRecordsAfterStop(t *testing.T) {
	db, _ := testutil.SetupTestDB(t)

	h := NewDBHandler(db, time.Hour)
	h.Stop()

	logger := slog.New(h)
	for i := 0; i < batchSize+1; i++ {
		logger.Error("late")
	}
	h.Stop()

	var count int64
	if err := db.Model(&models.SystemLog{}).Count(&count).Error; err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("stored %d logs after Stop, want 0", count)
	}
}
