package goals

import (
	"net/http"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/onedaybetter/tracker/internal/cache"
	"github.com/onedaybetter/tracker/internal/middleware"
	"github.com/onedaybetter/tracker/internal/testutil"
)

func newTestApp(t *testing.T) (*fiber.App, string) {
	t.Helper()
	db, cfg := testutil.SetupTestDB(t)

	app := fiber.New()
	api := app.Group("/api/v1", middleware.JWTProtected(cfg), middleware.Timezone(time.UTC))
	New(cache.NewMemory()).RegisterRoutes(api, db, cfg)

	user := testutil.CreateUser(t, db, "goals@example.com")
	return app, testutil.Token(t, user)
}

func TestGoalEndpoints(t *testing.T) {
	app, token := newTestApp(t)

	// Legacy day-first format is accepted.
	target := time.Now().UTC().AddDate(0, 0, 10).Format("02/01/2006")

	var created GoalResponse
	status := testutil.Do(t, app, http.MethodPost, "/api/v1/goals", token, map[string]interface{}{
		"name":        "Read 3 books",
		"category":    "VALUE",
		"target_date": target,
		"days":        []int{1, 2, 3, 4, 5, 6, 7},
	}, &created)
	testutil.AssertStatus(t, status, http.StatusCreated)
	if !created.Active || created.DaysUntilTarget != 10 || created.Icon != "💎" {
		t.Fatalf("created = %+v", created)
	}
	path := "/api/v1/goals/" + created.ID.String()

	var toggled CompletionResponse
	status = testutil.Do(t, app, http.MethodPost, path+"/toggle", token, nil, &toggled)
	testutil.AssertStatus(t, status, http.StatusOK)
	if !toggled.Done {
		t.Errorf("toggled = %+v", toggled)
	}

	var week WeekResponse
	status = testutil.Do(t, app, http.MethodGet, path+"/week", token, nil, &week)
	testutil.AssertStatus(t, status, http.StatusOK)
	if len(week.Days) != 7 || week.Days[0].Weekday != 7 {
		t.Errorf("week = %+v", week)
	}

	var list GoalListResponse
	status = testutil.Do(t, app, http.MethodGet, "/api/v1/goals?include_expired=true", token, nil, &list)
	testutil.AssertStatus(t, status, http.StatusOK)
	if list.Total != 1 {
		t.Errorf("total = %d", list.Total)
	}
}

func TestGoalRequiresTarget(t *testing.T) {
	app, token := newTestApp(t)
	status := testutil.Do(t, app, http.MethodPost, "/api/v1/goals", token, map[string]interface{}{
		"name": "Someday", "category": "SLEEP",
	}, nil)
	testutil.AssertStatus(t, status, http.StatusBadRequest)

	status = testutil.Do(t, app, http.MethodPost, "/api/v1/goals", token, map[string]interface{}{
		"name": "Someday", "category": "SLEEP", "target_date": "31-12-2030",
	}, nil)
	testutil.AssertStatus(t, status, http.StatusBadRequest)
}
