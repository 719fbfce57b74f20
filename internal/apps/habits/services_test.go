package habits

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/onedaybetter/tracker/internal/cache"
	"github.com/onedaybetter/tracker/internal/calendar"
	"github.com/onedaybetter/tracker/internal/models"
	"github.com/onedaybetter/tracker/internal/testutil"
	"github.com/onedaybetter/tracker/internal/tracking"
)

var ctx = context.Background()

func day(d int) calendar.Date {
	return calendar.NewDate(2025, time.November, d)
}

// clock returns a now func pinned to noon UTC on the given November day.
func clock(d int) func() time.Time {
	return func() time.Time {
		return time.Date(2025, time.November, d, 12, 0, 0, 0, time.UTC)
	}
}

func setup(t *testing.T) (*HabitService, uuid.UUID) {
	t.Helper()
	db, _ := testutil.SetupTestDB(t)
	user := testutil.CreateUser(t, db, "habits@example.com")
	svc := NewHabitService(db, cache.NewMemory(), time.Hour)
	svc.now = clock(15)
	return svc, user.ID
}

func createHabit(t *testing.T, svc *HabitService, userID uuid.UUID, createdOn int, days ...int) *HabitResponse {
	t.Helper()
	now := svc.now
	svc.now = clock(createdOn)
	defer func() { svc.now = now }()

	req := &CreateHabitRequest{Name: "Run", Category: models.CategoryExercise}
	if len(days) > 0 {
		req.Days = days
	}
	h, err := svc.Create(ctx, userID, req, time.UTC)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return h
}

func TestCreateValidation(t *testing.T) {
	svc, userID := setup(t)

	tests := []struct {
		name string
		req  CreateHabitRequest
		want error
	}{
		{"blank name", CreateHabitRequest{Name: "  ", Category: models.CategorySleep}, ErrNameRequired},
		{"unknown category", CreateHabitRequest{Name: "Read", Category: "STUDY"}, models.ErrInvalidCategory},
		{"explicit empty days", CreateHabitRequest{Name: "Read", Category: models.CategoryValue, Days: []int{}}, calendar.ErrInvalidWeekdays},
		{"weekday out of range", CreateHabitRequest{Name: "Read", Category: models.CategoryValue, Days: []int{0, 8}}, calendar.ErrInvalidWeekdays},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Create(ctx, userID, &tt.req, time.UTC); !errors.Is(err, tt.want) {
				t.Errorf("Create() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestCreateDefaultsToEveryDay(t *testing.T) {
	svc, userID := setup(t)

	h, err := svc.Create(ctx, userID, &CreateHabitRequest{Name: " Sleep early ", Category: models.CategorySleep}, time.UTC)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if h.Days != calendar.EveryDay {
		t.Errorf("Days = %v, want every day", h.Days.Days())
	}
	if h.Name != "Sleep early" {
		t.Errorf("Name = %q", h.Name)
	}
	if h.Icon != "😴" {
		t.Errorf("Icon = %q", h.Icon)
	}
	if h.Stats.ActiveDays != 1 || h.Stats.Percentage != 0 {
		t.Errorf("Stats = %+v", h.Stats)
	}
}

func TestToggle(t *testing.T) {
	svc, userID := setup(t)
	// Monday the 10th, tracked Mon/Wed/Fri. Today is Saturday the 15th.
	h := createHabit(t, svc, userID, 10, 1, 3, 5)

	for _, d := range []int{10, 12, 14} {
		resp, err := svc.Toggle(ctx, userID, h.ID, day(d), time.UTC)
		if err != nil {
			t.Fatalf("Toggle(%d): %v", d, err)
		}
		if !resp.Done {
			t.Errorf("Toggle(%d) done = false, want true", d)
		}
	}

	detail, err := svc.Get(ctx, userID, h.ID, time.UTC)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	want := tracking.Stats{
		ActiveDays: 3, CompletedDays: 3, Percentage: 100,
		CurrentStreak: 3, LongestStreak: 3, LastCompleted: day(14),
	}
	if detail.Stats != want {
		t.Errorf("Stats = %+v\nwant %+v", detail.Stats, want)
	}

	resp, err := svc.Toggle(ctx, userID, h.ID, day(12), time.UTC)
	if err != nil {
		t.Fatalf("second Toggle: %v", err)
	}
	if resp.Done {
		t.Error("second toggle should clear the day")
	}
	if resp.Stats.CompletedDays != 2 || resp.Stats.Percentage != 66 || resp.Stats.CurrentStreak != 1 {
		t.Errorf("Stats after untoggle = %+v", resp.Stats)
	}
}

func TestToggleRejectsUnrecordableDates(t *testing.T) {
	svc, userID := setup(t)
	h := createHabit(t, svc, userID, 10, 1, 3, 5)

	tests := []struct {
		date calendar.Date
		want error
	}{
		{day(11), tracking.ErrNotScheduled},
		{day(17), tracking.ErrFutureDate},
		{day(3), tracking.ErrBeforeStart},
	}
	for _, tt := range tests {
		if _, err := svc.Toggle(ctx, userID, h.ID, tt.date, time.UTC); !errors.Is(err, tt.want) {
			t.Errorf("Toggle(%s) error = %v, want %v", tt.date, err, tt.want)
		}
	}
}

func TestToggleDefaultsToToday(t *testing.T) {
	svc, userID := setup(t)
	h := createHabit(t, svc, userID, 10)

	resp, err := svc.Toggle(ctx, userID, h.ID, calendar.Date{}, time.UTC)
	if err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	if !resp.Date.Equal(day(15)) || !resp.Stats.DoneToday {
		t.Errorf("resp = %+v", resp)
	}
}

func TestOtherUsersHabitIsNotFound(t *testing.T) {
	svc, userID := setup(t)
	h := createHabit(t, svc, userID, 10)
	other := testutil.CreateUser(t, svc.db, "other@example.com")

	if _, err := svc.Get(ctx, other.ID, h.ID, time.UTC); !errors.Is(err, ErrHabitNotFound) {
		t.Errorf("Get error = %v", err)
	}
	if _, err := svc.Toggle(ctx, other.ID, h.ID, day(14), time.UTC); !errors.Is(err, ErrHabitNotFound) {
		t.Errorf("Toggle error = %v", err)
	}
	if err := svc.Delete(ctx, other.ID, h.ID); !errors.Is(err, ErrHabitNotFound) {
		t.Errorf("Delete error = %v", err)
	}
}

func TestSetCompletionIsIdempotent(t *testing.T) {
	svc, userID := setup(t)
	h := createHabit(t, svc, userID, 10)

	for i := 0; i < 2; i++ {
		if _, err := svc.SetCompletion(ctx, userID, h.ID, day(13), true, time.UTC); err != nil {
			t.Fatalf("SetCompletion: %v", err)
		}
	}

	var count int64
	svc.db.Model(&models.HabitCompletion{}).Where("habit_id = ?", h.ID).Count(&count)
	if count != 1 {
		t.Fatalf("rows = %d, want 1", count)
	}

	resp, err := svc.SetCompletion(ctx, userID, h.ID, day(13), false, time.UTC)
	if err != nil {
		t.Fatalf("SetCompletion(false): %v", err)
	}
	if resp.Done || resp.Stats.CompletedDays != 0 {
		t.Errorf("resp = %+v", resp)
	}

	list, err := svc.Completions(ctx, userID, h.ID, day(1), day(15))
	if err != nil {
		t.Fatalf("Completions: %v", err)
	}
	if len(list.Completions) != 1 || list.Completions[0].Done {
		t.Errorf("completions = %+v", list.Completions)
	}
}

func TestCompletionsRange(t *testing.T) {
	svc, userID := setup(t)
	h := createHabit(t, svc, userID, 10)

	for _, d := range []int{14, 11, 12} {
		if _, err := svc.Toggle(ctx, userID, h.ID, day(d), time.UTC); err != nil {
			t.Fatal(err)
		}
	}

	list, err := svc.Completions(ctx, userID, h.ID, day(11), day(13))
	if err != nil {
		t.Fatalf("Completions: %v", err)
	}
	if len(list.Completions) != 2 || !list.Completions[0].Date.Equal(day(11)) || !list.Completions[1].Date.Equal(day(12)) {
		t.Errorf("completions = %+v", list.Completions)
	}

	if _, err := svc.Completions(ctx, userID, h.ID, day(13), day(11)); !errors.Is(err, ErrInvalidRange) {
		t.Errorf("reversed range error = %v", err)
	}
}

func TestForDate(t *testing.T) {
	svc, userID := setup(t)
	mwf := createHabit(t, svc, userID, 10, 1, 3, 5)
	daily := createHabit(t, svc, userID, 12)

	if _, err := svc.Toggle(ctx, userID, mwf.ID, day(14), time.UTC); err != nil {
		t.Fatal(err)
	}

	friday, err := svc.ForDate(ctx, userID, day(14), time.UTC)
	if err != nil {
		t.Fatalf("ForDate: %v", err)
	}
	if friday.Total != 2 || friday.Done != 1 {
		t.Errorf("friday = %+v", friday)
	}

	thursday, err := svc.ForDate(ctx, userID, day(13), time.UTC)
	if err != nil {
		t.Fatalf("ForDate: %v", err)
	}
	if thursday.Total != 1 || thursday.Habits[0].ID != daily.ID {
		t.Errorf("thursday = %+v", thursday)
	}

	// Created on the 12th: not listed on the 11th.
	tuesday, err := svc.ForDate(ctx, userID, day(11), time.UTC)
	if err != nil {
		t.Fatalf("ForDate: %v", err)
	}
	if tuesday.Total != 0 {
		t.Errorf("tuesday = %+v", tuesday)
	}
}

func TestListReflectsNewCompletions(t *testing.T) {
	svc, userID := setup(t)
	older := createHabit(t, svc, userID, 10)
	newer := createHabit(t, svc, userID, 14)

	first, err := svc.List(ctx, userID, time.UTC)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if first.Total != 2 || first.Habits[0].ID != newer.ID {
		t.Fatalf("list should be newest first: %+v", first.Habits)
	}

	if _, err := svc.Toggle(ctx, userID, older.ID, day(15), time.UTC); err != nil {
		t.Fatal(err)
	}

	second, err := svc.List(ctx, userID, time.UTC)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if got := second.Habits[1].Stats; got.CompletedDays != 1 || !got.DoneToday {
		t.Errorf("stale stats after toggle: %+v", got)
	}
}

func TestUpdate(t *testing.T) {
	svc, userID := setup(t)
	h := createHabit(t, svc, userID, 10)

	name := "Morning run"
	days := []int{6, 7}
	updated, err := svc.Update(ctx, userID, h.ID, &UpdateHabitRequest{Name: &name, Days: &days}, time.UTC)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Name != name || updated.Category != models.CategoryExercise {
		t.Errorf("updated = %+v", updated.Habit)
	}
	// Sat 15 only, since Sun 16 is tomorrow.
	if updated.Stats.ActiveDays != 1 {
		t.Errorf("ActiveDays = %d", updated.Stats.ActiveDays)
	}

	empty := []int{}
	if _, err := svc.Update(ctx, userID, h.ID, &UpdateHabitRequest{Days: &empty}, time.UTC); !errors.Is(err, calendar.ErrInvalidWeekdays) {
		t.Errorf("empty days error = %v", err)
	}
}

func TestDeleteCascadesCompletions(t *testing.T) {
	svc, userID := setup(t)
	h := createHabit(t, svc, userID, 10)
	if _, err := svc.Toggle(ctx, userID, h.ID, day(11), time.UTC); err != nil {
		t.Fatal(err)
	}

	if err := svc.Delete(ctx, userID, h.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	var count int64
	svc.db.Model(&models.HabitCompletion{}).Where("habit_id = ?", h.ID).Count(&count)
	if count != 0 {
		t.Errorf("completions left = %d", count)
	}
	if _, err := svc.Get(ctx, userID, h.ID, time.UTC); !errors.Is(err, ErrHabitNotFound) {
		t.Errorf("Get after delete = %v", err)
	}
}

func TestCalendar(t *testing.T) {
	svc, userID := setup(t)
	daily := createHabit(t, svc, userID, 10)
	createHabit(t, svc, userID, 10, 1)

	for _, d := range []int{10, 11} {
		if _, err := svc.Toggle(ctx, userID, daily.ID, day(d), time.UTC); err != nil {
			t.Fatal(err)
		}
	}

	cal, err := svc.Calendar(ctx, userID, day(1), time.UTC)
	if err != nil {
		t.Fatalf("Calendar: %v", err)
	}
	if cal.Month != "2025-11" || len(cal.Days) != 30 {
		t.Fatalf("calendar = %s with %d days", cal.Month, len(cal.Days))
	}
	if d := cal.Days[9]; d.Scheduled != 2 || d.Done != 1 {
		t.Errorf("10th = %+v", d)
	}
	if d := cal.Days[10]; d.Scheduled != 1 || d.Done != 1 {
		t.Errorf("11th = %+v", d)
	}
	if d := cal.Days[8]; d.Scheduled != 0 {
		t.Errorf("9th = %+v", d)
	}
}

// racingCache runs write once, just before the first Set it forwards.
type racingCache struct {
	cache.Cache
	write func()
}

func (c *racingCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if write := c.write; write != nil {
		c.write = nil
		write()
	}
	return c.Cache.Set(ctx, key, value, ttl)
}

func TestStatsStoredByRacingReaderAreIgnored(t *testing.T) {
	db, _ := testutil.SetupTestDB(t)
	user := testutil.CreateUser(t, db, "race@example.com")
	shared := cache.NewMemory()

	writer := NewHabitService(db, shared, time.Hour)
	writer.now = clock(15)
	h := createHabit(t, writer, user.ID, 10)

	racing := &racingCache{Cache: shared}
	reader := NewHabitService(db, racing, time.Hour)
	reader.now = clock(15)
	racing.write = func() {
		if _, err := writer.Toggle(ctx, user.ID, h.ID, day(15), time.UTC); err != nil {
			t.Errorf("Toggle: %v", err)
		}
	}

	// The reader loads completions before the toggle commits and stores its
	// result after the toggle has invalidated the entry.
	if _, err := reader.List(ctx, user.ID, time.UTC); err != nil {
		t.Fatalf("List: %v", err)
	}

	list, err := reader.List(ctx, user.ID, time.UTC)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if got := list.Habits[0].Stats; got.CompletedDays != 1 || !got.DoneToday {
		t.Errorf("stats after toggle = %+v", got)
	}

	detail, err := reader.Get(ctx, user.ID, h.ID, time.UTC)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if detail.Stats.CompletedDays != 1 {
		t.Errorf("Get stats = %+v", detail.Stats)
	}
}

func TestUpdateDaysRefreshesCachedStats(t *testing.T) {
	svc, userID := setup(t)
	h := createHabit(t, svc, userID, 10)

	if _, err := svc.Get(ctx, userID, h.ID, time.UTC); err != nil {
		t.Fatalf("Get: %v", err)
	}
	monday := []int{1}
	if _, err := svc.Update(ctx, userID, h.ID, &UpdateHabitRequest{Days: &monday}, time.UTC); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, err := svc.Get(ctx, userID, h.ID, time.UTC)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	// Nov 10 2025 is a Monday; the habit was created that day.
	if got.Stats.ActiveDays != 1 {
		t.Errorf("ActiveDays = %d, want 1", got.Stats.ActiveDays)
	}
}
