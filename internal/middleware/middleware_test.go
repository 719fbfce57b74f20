package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/onedaybetter/tracker/internal/session"
	"github.com/onedaybetter/tracker/internal/testutil"
)

func TestTimezone(t *testing.T) {
	app := fiber.New()
	app.Get("/", Timezone(time.UTC), func(c *fiber.Ctx) error {
		return c.SendString(session.Location(c).String())
	})

	tests := []struct {
		name       string
		header     string
		query      string
		wantStatus int
		wantBody   string
	}{
		{"fallback", "", "", http.StatusOK, "UTC"},
		{"header", "Europe/Istanbul", "", http.StatusOK, "Europe/Istanbul"},
		{"query", "", "?tz=Asia/Tokyo", http.StatusOK, "Asia/Tokyo"},
		{"header wins", "America/New_York", "?tz=Asia/Tokyo", http.StatusOK, "America/New_York"},
		{"unknown zone", "Mars/Olympus", "", http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("X-Timezone", tt.header)
			}
			resp, err := app.Test(req)
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			if tt.wantBody == "" {
				return
			}
			buf := make([]byte, 64)
			n, _ := resp.Body.Read(buf)
			if got := string(buf[:n]); got != tt.wantBody {
				t.Errorf("location = %q, want %q", got, tt.wantBody)
			}
		})
	}
}

func TestAdminRequired(t *testing.T) {
	db, cfg := testutil.SetupTestDB(t)
	cfg.AdminEmails = "Boss@Example.com"
	cfg.AdminToken = "s3cret"

	app := fiber.New()
	app.Get("/admin", JWTOrAdminToken(cfg), AdminRequired(db, cfg), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	boss := testutil.CreateUser(t, db, "boss@example.com")
	regular := testutil.CreateUser(t, db, "user@example.com")
	promoted := testutil.CreateUser(t, db, "promoted@example.com")
	if err := db.Model(&promoted).Update("role", "admin").Error; err != nil {
		t.Fatal(err)
	}
	promoted.Role = "user" // claims say user; the stored role decides

	tests := []struct {
		name   string
		token  string
		admin  string
		status int
	}{
		{"no credentials", "", "", http.StatusUnauthorized},
		{"admin token only", "", "s3cret", http.StatusOK},
		{"wrong admin token", "", "guess", http.StatusUnauthorized},
		{"email allowlist", testutil.Token(t, boss), "", http.StatusOK},
		{"stored role", testutil.Token(t, promoted), "", http.StatusOK},
		{"regular user", testutil.Token(t, regular), "", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			if tt.admin != "" {
				req.Header.Set("X-Admin-Token", tt.admin)
			}
			resp, err := app.Test(req)
			if err != nil {
				t.Fatal(err)
			}
			resp.Body.Close()
			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.status)
			}
		})
	}
}
