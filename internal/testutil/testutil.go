// Package testutil opens throwaway databases and builds authenticated
// requests for package tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/onedaybetter/tracker/internal/config"
	"github.com/onedaybetter/tracker/internal/database"
	"github.com/onedaybetter/tracker/internal/models"
	"gorm.io/gorm"
)

const TestJWTSecret = "test-secret"

// Config returns a configuration pointing at a private in-memory SQLite database.
func Config() *config.Config {
	return &config.Config{
		DBDriver:         "sqlite",
		DBPath:           "file:" + uuid.NewString() + "?mode=memory&cache=shared&_foreign_keys=1",
		JWTSecret:        TestJWTSecret,
		JWTAccessExpiry:  15 * time.Minute,
		JWTRefreshExpiry: 24 * time.Hour,
		Timezone:         "UTC",
		StatsCacheTTL:    time.Minute,
		LogRetentionDays: 30,
	}
}

// SetupTestDB creates a fresh database with every table migrated.
func SetupTestDB(t *testing.T) (*gorm.DB, *config.Config) {
	t.Helper()

	cfg := Config()
	db, err := database.Open(cfg)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := database.MigrateShared(db); err != nil {
		t.Fatalf("failed to migrate shared models: %v", err)
	}
	err = database.MigrateModels(db, []interface{}{
		&models.Habit{},
		&models.HabitCompletion{},
		&models.Goal{},
		&models.GoalCompletion{},
	})
	if err != nil {
		t.Fatalf("failed to migrate models: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db, cfg
}

// CreateUser inserts a user row directly. The password is not usable for login.
func CreateUser(t *testing.T, db *gorm.DB, email string) models.User {
	t.Helper()
	user := models.User{
		ID:       uuid.New(),
		Email:    email,
		Name:     "Test User",
		Password: "not-a-bcrypt-hash",
		Role:     "user",
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return user
}

// Token signs an access token for user with the test secret.
func Token(t *testing.T, user models.User) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":   user.ID.String(),
		"email": user.Email,
		"role":  user.Role,
		"iat":   time.Now().Unix(),
		"exp":   time.Now().Add(time.Hour).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(TestJWTSecret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

// Do sends a request through app and decodes the JSON response into out when
// out is non-nil. It returns the status code.
func Do(t *testing.T, app *fiber.App, method, path, token string, body interface{}, out interface{}) int {
	t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}
	defer resp.Body.Close()

	if out != nil {
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			t.Fatalf("failed to read response: %v", err)
		}
		if err := json.Unmarshal(data, out); err != nil {
			t.Fatalf("failed to decode %s %s response %q: %v", method, path, string(data), err)
		}
	}
	return resp.StatusCode
}

// AssertStatus fails the test when got != want.
func AssertStatus(t *testing.T, got, want int) {
	t.Helper()
	if got != want {
		t.Fatalf("status = %d, want %d (%s)", got, want, http.StatusText(want))
	}
}
