package services

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/onedaybetter/tracker/internal/calendar"
	"github.com/onedaybetter/tracker/internal/dto"
	"github.com/onedaybetter/tracker/internal/models"
	"github.com/onedaybetter/tracker/internal/testutil"
	"gorm.io/gorm"
)

func newService(t *testing.T) (*AuthService, *gorm.DB) {
	t.Helper()
	db, cfg := testutil.SetupTestDB(t)
	return NewAuthService(db, cfg), db
}

func register(t *testing.T, s *AuthService, email string) *dto.AuthResponse {
	t.Helper()
	resp, err := s.Register(&dto.RegisterRequest{Email: email, Password: "correct horse"})
	if err != nil {
		t.Fatalf("Register(%s): %v", email, err)
	}
	return resp
}

func TestRegisterValidation(t *testing.T) {
	s, _ := newService(t)
	register(t, s, "taken@example.com")

	tests := []struct {
		name string
		req  dto.RegisterRequest
		want error
	}{
		{"missing email", dto.RegisterRequest{Password: "longenough"}, ErrInvalidEmail},
		{"malformed email", dto.RegisterRequest{Email: "not-an-email", Password: "longenough"}, ErrInvalidEmail},
		{"short password", dto.RegisterRequest{Email: "a@example.com", Password: "short"}, ErrWeakPassword},
		{"password over 72 bytes", dto.RegisterRequest{Email: "a@example.com", Password: strings.Repeat("p", 73)}, ErrPasswordTooLong},
		{"duplicate ignores case", dto.RegisterRequest{Email: " Taken@Example.com ", Password: "longenough"}, ErrEmailTaken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.Register(&tt.req); !errors.Is(err, tt.want) {
				t.Errorf("Register() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestRegisterDefaultsName(t *testing.T) {
	s, _ := newService(t)
	resp := register(t, s, "Jamie.Doe@Example.com")
	if resp.User.Email != "jamie.doe@example.com" || resp.User.Name != "jamie.doe" {
		t.Errorf("user = %+v", resp.User)
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Error("expected both tokens")
	}
}

func TestLogin(t *testing.T) {
	s, _ := newService(t)
	register(t, s, "login@example.com")

	if _, err := s.Login(&dto.LoginRequest{Email: "LOGIN@example.com", Password: "correct horse"}); err != nil {
		t.Errorf("Login: %v", err)
	}
	if _, err := s.Login(&dto.LoginRequest{Email: "login@example.com", Password: "wrong"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password error = %v", err)
	}
	if _, err := s.Login(&dto.LoginRequest{Email: "nobody@example.com", Password: "correct horse"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown email error = %v", err)
	}
}

func TestRefreshRotates(t *testing.T) {
	s, _ := newService(t)
	first := register(t, s, "rotate@example.com")

	second, err := s.Refresh(&dto.RefreshRequest{RefreshToken: first.RefreshToken})
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if second.RefreshToken == first.RefreshToken {
		t.Error("refresh token was not rotated")
	}
	if _, err := s.Refresh(&dto.RefreshRequest{RefreshToken: first.RefreshToken}); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("reused token error = %v", err)
	}

	if err := s.Logout(&dto.LogoutRequest{RefreshToken: second.RefreshToken}); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, err := s.Refresh(&dto.RefreshRequest{RefreshToken: second.RefreshToken}); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("revoked token error = %v", err)
	}
}

func TestRefreshRevokedAfterLookup(t *testing.T) {
	s, db := newService(t)
	resp := register(t, s, "race@example.com")

	// Another refresh of the same token commits between lookup and revoke.
	revoked := false
	err := db.Callback().Query().After("gorm:query").Register("test:concurrent_refresh", func(tx *gorm.DB) {
		if revoked || tx.Statement.Table != "refresh_tokens" {
			return
		}
		revoked = true
		tx.Session(&gorm.Session{NewDB: true}).Exec("UPDATE refresh_tokens SET revoked = ?", true)
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := s.Refresh(&dto.RefreshRequest{RefreshToken: resp.RefreshToken}); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Refresh after concurrent rotation error = %v, want %v", err, ErrInvalidToken)
	}
	if !revoked {
		t.Error("concurrent rotation did not run")
	}
}

func TestRefreshExpired(t *testing.T) {
	s, _ := newService(t)
	resp := register(t, s, "expired@example.com")

	s.now = func() time.Time { return time.Now().Add(48 * time.Hour) }
	if _, err := s.Refresh(&dto.RefreshRequest{RefreshToken: resp.RefreshToken}); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expired token error = %v", err)
	}
}

func TestProfile(t *testing.T) {
	s, db := newService(t)
	resp := register(t, s, "profile@example.com")

	habit := models.Habit{ID: uuid.New(), UserID: resp.User.ID, Name: "Walk", Category: models.CategoryExercise, Days: calendar.EveryDay}
	goal := models.Goal{ID: uuid.New(), UserID: resp.User.ID, Name: "Sleep 8h", Category: models.CategorySleep, Days: calendar.EveryDay, TargetDate: calendar.NewDate(2030, time.January, 1)}
	if err := db.Create(&habit).Error; err != nil {
		t.Fatal(err)
	}
	if err := db.Create(&goal).Error; err != nil {
		t.Fatal(err)
	}

	profile, err := s.GetProfile(resp.User.ID)
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if profile.HabitCount != 1 || profile.GoalCount != 1 {
		t.Errorf("profile = %+v", profile)
	}

	updated, err := s.UpdateProfile(resp.User.ID, &dto.UpdateProfileRequest{Name: "  Sam  "})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if updated.Name != "Sam" {
		t.Errorf("Name = %q", updated.Name)
	}
	if _, err := s.UpdateProfile(resp.User.ID, &dto.UpdateProfileRequest{Name: " "}); !errors.Is(err, ErrInvalidName) {
		t.Errorf("blank name error = %v", err)
	}
	if _, err := s.GetProfile(uuid.New()); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("unknown user error = %v", err)
	}
}

func TestDeleteAccountCascades(t *testing.T) {
	s, db := newService(t)
	resp := register(t, s, "leaving@example.com")
	userID := resp.User.ID

	habit := models.Habit{ID: uuid.New(), UserID: userID, Name: "Stretch", Category: models.CategoryExercise, Days: calendar.EveryDay}
	if err := db.Create(&habit).Error; err != nil {
		t.Fatal(err)
	}
	completion := models.HabitCompletion{ID: uuid.New(), HabitID: habit.ID, Date: calendar.NewDate(2025, time.November, 1), Done: true}
	if err := db.Create(&completion).Error; err != nil {
		t.Fatal(err)
	}

	if err := s.DeleteAccount(userID, ""); !errors.Is(err, ErrPasswordRequired) {
		t.Errorf("empty password error = %v", err)
	}
	if err := s.DeleteAccount(userID, "nope"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password error = %v", err)
	}
	if err := s.DeleteAccount(userID, "correct horse"); err != nil {
		t.Fatalf("DeleteAccount: %v", err)
	}

	for name, model := range map[string]interface{}{
		"users":             &models.User{},
		"habits":            &models.Habit{},
		"habit_completions": &models.HabitCompletion{},
		"refresh_tokens":    &models.RefreshToken{},
	} {
		var count int64
		db.Model(model).Count(&count)
		if count != 0 {
			t.Errorf("%s left = %d", name, count)
		}
	}
}
