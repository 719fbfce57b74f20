package database

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/onedaybetter/tracker/internal/config"
	"github.com/onedaybetter/tracker/internal/models"
	"gorm.io/gorm"
)

func openWithLog(t *testing.T) (*gorm.DB, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	db, err := Open(&config.Config{
		DBDriver: "sqlite",
		DBPath:   "file:" + uuid.NewString() + "?mode=memory&cache=shared&_foreign_keys=1",
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	if err := MigrateShared(db); err != nil {
		t.Fatalf("MigrateShared: %v", err)
	}
	return db, &buf
}

func TestRecordNotFoundIsNotLogged(t *testing.T) {
	db, buf := openWithLog(t)

	var user models.User
	err := db.First(&user, "email = ?", "nobody@example.com").Error
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("First error = %v", err)
	}
	if strings.Contains(buf.String(), "record not found") {
		t.Errorf("missing row was logged: %s", buf.String())
	}
}

func TestQueryErrorsAreLogged(t *testing.T) {
	db, buf := openWithLog(t)

	var rows []map[string]interface{}
	if err := db.Table("no_such_table").Find(&rows).Error; err == nil {
		t.Fatal("expected an error for a missing table")
	}
	if !strings.Contains(buf.String(), "no_such_table") {
		t.Errorf("query error not logged, got %q", buf.String())
	}
}
