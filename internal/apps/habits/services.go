package habits

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/onedaybetter/tracker/internal/cache"
	"github.com/onedaybetter/tracker/internal/calendar"
	"github.com/onedaybetter/tracker/internal/metrics"
	"github.com/onedaybetter/tracker/internal/models"
	"github.com/onedaybetter/tracker/internal/session"
	"github.com/onedaybetter/tracker/internal/tracking"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrHabitNotFound = errors.New("habit not found")
	ErrNameRequired  = errors.New("name is required")
	ErrNameTooLong   = errors.New("name must be at most 120 characters")
	ErrInvalidRange  = errors.New("from must not be after to")
	ErrRangeTooLarge = errors.New("range must not exceed 366 days")
)

const (
	kind         = "habit"
	maxNameLen   = 120
	maxRangeDays = 366
)

type HabitService struct {
	db    *gorm.DB
	cache cache.Cache
	ttl   time.Duration
	now   func() time.Time
}

func NewHabitService(db *gorm.DB, statsCache cache.Cache, ttl time.Duration) *HabitService {
	if statsCache == nil {
		statsCache = cache.Noop{}
	}
	return &HabitService{db: db, cache: statsCache, ttl: ttl, now: time.Now}
}

func (s *HabitService) today(loc *time.Location) calendar.Date {
	return calendar.FromTime(s.now(), loc)
}

func (s *HabitService) Create(ctx context.Context, userID uuid.UUID, req *CreateHabitRequest, loc *time.Location) (*HabitResponse, error) {
	name, err := validateName(req.Name)
	if err != nil {
		return nil, err
	}
	if !req.Category.Valid() {
		return nil, models.ErrInvalidCategory
	}
	days := calendar.EveryDay
	if req.Days != nil {
		if days, err = calendar.NewWeekdayMask(req.Days...); err != nil {
			return nil, err
		}
	}

	habit := models.Habit{
		ID:          uuid.New(),
		UserID:      userID,
		Name:        name,
		Category:    req.Category,
		Description: strings.TrimSpace(req.Description),
		Days:        days,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&habit).Error; err != nil {
		return nil, fmt.Errorf("failed to create habit: %w", err)
	}

	metrics.IncrementItemsCreated(kind)
	slog.Info("habit created", "habit_id", habit.ID.String(), "user_id", userID.String())

	today := s.today(loc)
	stats := tracking.Progress(schedule(&habit, loc), tracking.Completions{}, today)
	return toResponse(habit, stats), nil
}

// List returns the user's habits newest first, each with progress through today.
func (s *HabitService) List(ctx context.Context, userID uuid.UUID, loc *time.Location) (*HabitListResponse, error) {
	var habits []models.Habit
	err := s.db.WithContext(ctx).Scopes(session.ForUser(userID)).
		Order("created_at DESC").
		Find(&habits).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list habits: %w", err)
	}

	today := s.today(loc)
	out := make([]HabitResponse, len(habits))

	hit := make([]bool, len(habits))
	var missing []uuid.UUID
	for i := range habits {
		if stats, ok := s.cachedStats(ctx, &habits[i], loc, today); ok {
			out[i] = *toResponse(habits[i], stats)
			hit[i] = true
			continue
		}
		missing = append(missing, habits[i].ID)
	}

	if len(missing) > 0 {
		done, err := loadCompletions(s.db.WithContext(ctx), missing, calendar.Date{}, calendar.Date{})
		if err != nil {
			return nil, err
		}
		for i := range habits {
			if hit[i] {
				continue
			}
			stats := s.compute(ctx, &habits[i], done[habits[i].ID], loc, today)
			out[i] = *toResponse(habits[i], stats)
		}
	}

	return &HabitListResponse{Habits: out, Total: len(out), Today: today}, nil
}

// Get returns one habit with its progress and the current week.
func (s *HabitService) Get(ctx context.Context, userID, habitID uuid.UUID, loc *time.Location) (*HabitDetailResponse, error) {
	habit, err := findHabit(s.db.WithContext(ctx), userID, habitID)
	if err != nil {
		return nil, err
	}

	today := s.today(loc)
	done, err := loadCompletions(s.db.WithContext(ctx), []uuid.UUID{habit.ID}, calendar.Date{}, calendar.Date{})
	if err != nil {
		return nil, err
	}

	stats, ok := s.cachedStats(ctx, habit, loc, today)
	if !ok {
		stats = s.compute(ctx, habit, done[habit.ID], loc, today)
	}

	return &HabitDetailResponse{
		HabitResponse: *toResponse(*habit, stats),
		Week:          tracking.Week(schedule(habit, loc), done[habit.ID], today, today),
	}, nil
}

func (s *HabitService) Update(ctx context.Context, userID, habitID uuid.UUID, req *UpdateHabitRequest, loc *time.Location) (*HabitResponse, error) {
	updates := map[string]interface{}{}
	if req.Name != nil {
		name, err := validateName(*req.Name)
		if err != nil {
			return nil, err
		}
		updates["name"] = name
	}
	if req.Category != nil {
		if !req.Category.Valid() {
			return nil, models.ErrInvalidCategory
		}
		updates["category"] = *req.Category
	}
	if req.Description != nil {
		updates["description"] = strings.TrimSpace(*req.Description)
	}
	if req.Days != nil {
		days, err := calendar.NewWeekdayMask(*req.Days...)
		if err != nil {
			return nil, err
		}
		updates["days"] = days
	}

	var habit *models.Habit
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if habit, err = findHabit(tx, userID, habitID); err != nil {
			return err
		}
		if len(updates) == 0 {
			return nil
		}
		updates["revision"] = gorm.Expr("revision + 1")
		if err := tx.Model(habit).Updates(updates).Error; err != nil {
			return err
		}
		return tx.First(habit, "id = ?", habit.ID).Error
	})
	if err != nil {
		if errors.Is(err, ErrHabitNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update habit: %w", err)
	}

	s.invalidate(ctx, habit.ID)

	done, err := loadCompletions(s.db.WithContext(ctx), []uuid.UUID{habit.ID}, calendar.Date{}, calendar.Date{})
	if err != nil {
		return nil, err
	}
	stats := s.compute(ctx, habit, done[habit.ID], loc, s.today(loc))
	return toResponse(*habit, stats), nil
}

// Delete removes the habit and all of its completions.
func (s *HabitService) Delete(ctx context.Context, userID, habitID uuid.UUID) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		habit, err := findHabit(tx, userID, habitID)
		if err != nil {
			return err
		}
		if err := tx.Where("habit_id = ?", habit.ID).Delete(&models.HabitCompletion{}).Error; err != nil {
			return err
		}
		return tx.Delete(habit).Error
	})
	if err != nil {
		if errors.Is(err, ErrHabitNotFound) {
			return err
		}
		return fmt.Errorf("failed to delete habit: %w", err)
	}

	s.invalidate(ctx, habitID)
	metrics.IncrementItemsDeleted(kind)
	slog.Info("habit deleted", "habit_id", habitID.String(), "user_id", userID.String())
	return nil
}

// ForDate lists the habits scheduled on date together with their done flag.
func (s *HabitService) ForDate(ctx context.Context, userID uuid.UUID, date calendar.Date, loc *time.Location) (*DayResponse, error) {
	var habits []models.Habit
	err := s.db.WithContext(ctx).Scopes(session.ForUser(userID)).
		Order("created_at ASC").
		Find(&habits).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list habits: %w", err)
	}

	var ids []uuid.UUID
	for i := range habits {
		if schedule(&habits[i], loc).IsActive(date) {
			ids = append(ids, habits[i].ID)
		}
	}

	resp := &DayResponse{Date: date, Habits: []DayHabit{}}
	if len(ids) == 0 {
		return resp, nil
	}

	done, err := loadCompletions(s.db.WithContext(ctx), ids, date, date)
	if err != nil {
		return nil, err
	}

	for i := range habits {
		h := &habits[i]
		if !schedule(h, loc).IsActive(date) {
			continue
		}
		item := DayHabit{
			ID:       h.ID,
			Name:     h.Name,
			Category: h.Category,
			Icon:     h.Category.Icon(),
			Days:     h.Days,
			Done:     done[h.ID][date],
		}
		if item.Done {
			resp.Done++
		}
		resp.Habits = append(resp.Habits, item)
	}
	resp.Total = len(resp.Habits)
	return resp, nil
}

// Toggle flips the completion for date. A day with no row becomes done.
func (s *HabitService) Toggle(ctx context.Context, userID, habitID uuid.UUID, date calendar.Date, loc *time.Location) (*CompletionResponse, error) {
	today := s.today(loc)
	if date.IsZero() {
		date = today
	}

	var habit *models.Habit
	var completion models.HabitCompletion
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if habit, err = findHabit(tx, userID, habitID); err != nil {
			return err
		}
		if err := schedule(habit, loc).CheckRecordable(date, today); err != nil {
			return err
		}

		err = tx.Where("habit_id = ? AND date = ?", habit.ID, date).First(&completion).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			completion = models.HabitCompletion{ID: uuid.New(), HabitID: habit.ID, Date: date, Done: true}
			if err := tx.Create(&completion).Error; err != nil {
				return err
			}
			return bumpRevision(tx, habit)
		}
		if err != nil {
			return err
		}
		completion.Done = !completion.Done
		if err := tx.Model(&completion).Update("done", completion.Done).Error; err != nil {
			return err
		}
		return bumpRevision(tx, habit)
	})
	if err != nil {
		return nil, wrapWrite(err)
	}

	return s.afterWrite(ctx, habit, completion.Date, completion.Done, loc, today)
}

// SetCompletion records done for date regardless of the previous value.
func (s *HabitService) SetCompletion(ctx context.Context, userID, habitID uuid.UUID, date calendar.Date, done bool, loc *time.Location) (*CompletionResponse, error) {
	today := s.today(loc)

	var habit *models.Habit
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if habit, err = findHabit(tx, userID, habitID); err != nil {
			return err
		}
		if err := schedule(habit, loc).CheckRecordable(date, today); err != nil {
			return err
		}

		completion := models.HabitCompletion{ID: uuid.New(), HabitID: habit.ID, Date: date, Done: done}
		err = tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "habit_id"}, {Name: "date"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"done": done, "updated_at": s.now().UTC()}),
		}).Create(&completion).Error
		if err != nil {
			return err
		}
		return bumpRevision(tx, habit)
	})
	if err != nil {
		return nil, wrapWrite(err)
	}

	return s.afterWrite(ctx, habit, date, done, loc, today)
}

func (s *HabitService) afterWrite(ctx context.Context, habit *models.Habit, date calendar.Date, done bool, loc *time.Location, today calendar.Date) (*CompletionResponse, error) {
	s.invalidate(ctx, habit.ID)
	metrics.RecordCompletion(kind, done)

	completions, err := loadCompletions(s.db.WithContext(ctx), []uuid.UUID{habit.ID}, calendar.Date{}, calendar.Date{})
	if err != nil {
		return nil, err
	}
	return &CompletionResponse{
		HabitID: habit.ID,
		Date:    date,
		Done:    done,
		Stats:   s.compute(ctx, habit, completions[habit.ID], loc, today),
	}, nil
}

// Completions returns the stored rows between from and to inclusive, oldest first.
func (s *HabitService) Completions(ctx context.Context, userID, habitID uuid.UUID, from, to calendar.Date) (*CompletionListResponse, error) {
	if from.After(to) {
		return nil, ErrInvalidRange
	}
	if from.DaysUntil(to) >= maxRangeDays {
		return nil, ErrRangeTooLarge
	}

	habit, err := findHabit(s.db.WithContext(ctx), userID, habitID)
	if err != nil {
		return nil, err
	}

	rows := []models.HabitCompletion{}
	err = s.db.WithContext(ctx).
		Where("habit_id = ? AND date >= ? AND date <= ?", habit.ID, from, to).
		Order("date ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list completions: %w", err)
	}
	return &CompletionListResponse{Completions: rows, From: from, To: to}, nil
}

// Week returns the Sunday-to-Saturday view containing ref.
func (s *HabitService) Week(ctx context.Context, userID, habitID uuid.UUID, ref calendar.Date, loc *time.Location) (*WeekResponse, error) {
	habit, err := findHabit(s.db.WithContext(ctx), userID, habitID)
	if err != nil {
		return nil, err
	}
	today := s.today(loc)
	if ref.IsZero() {
		ref = today
	}

	start := ref.StartOfWeek()
	done, err := loadCompletions(s.db.WithContext(ctx), []uuid.UUID{habit.ID}, start, start.AddDays(6))
	if err != nil {
		return nil, err
	}
	return &WeekResponse{
		HabitID: habit.ID,
		Start:   start,
		Days:    tracking.Week(schedule(habit, loc), done[habit.ID], ref, today),
	}, nil
}

// Calendar summarises every day of the month containing ref across all habits.
func (s *HabitService) Calendar(ctx context.Context, userID uuid.UUID, ref calendar.Date, loc *time.Location) (*CalendarResponse, error) {
	today := s.today(loc)
	if ref.IsZero() {
		ref = today
	}

	var habits []models.Habit
	if err := s.db.WithContext(ctx).Scopes(session.ForUser(userID)).Find(&habits).Error; err != nil {
		return nil, fmt.Errorf("failed to list habits: %w", err)
	}

	first := ref.StartOfMonth()
	last := first.AddDays(first.DaysInMonth() - 1)
	ids := make([]uuid.UUID, len(habits))
	for i := range habits {
		ids[i] = habits[i].ID
	}
	done, err := loadCompletions(s.db.WithContext(ctx), ids, first, last)
	if err != nil {
		return nil, err
	}

	items := make([]tracking.Item, len(habits))
	for i := range habits {
		items[i] = tracking.Item{Schedule: schedule(&habits[i], loc), Done: done[habits[i].ID]}
	}
	return &CalendarResponse{
		Month: first.Time().Format("2006-01"),
		Days:  tracking.Month(items, ref, today),
	}, nil
}

// --- stats ---

func statsKey(id uuid.UUID) string {
	return "habit:" + id.String() + ":stats"
}

// cachedStats returns stats computed earlier for the same revision, day and
// start date. A reader that lost a race with a write may still store an entry
// after invalidate, so the revision check is what keeps it from being served.
func (s *HabitService) cachedStats(ctx context.Context, h *models.Habit, loc *time.Location, today calendar.Date) (tracking.Stats, bool) {
	var entry cachedStats
	ok, err := s.cache.Get(ctx, statsKey(h.ID), &entry)
	if err != nil {
		metrics.RecordCacheLookup(kind, "error")
		slog.Warn("stats cache read failed", "habit_id", h.ID.String(), "error", err)
		return tracking.Stats{}, false
	}
	if !ok || entry.Revision != h.Revision ||
		!entry.Day.Equal(today) || !entry.Start.Equal(schedule(h, loc).Start) {
		metrics.RecordCacheLookup(kind, "miss")
		return tracking.Stats{}, false
	}
	metrics.RecordCacheLookup(kind, "hit")
	return entry.Stats, true
}

// compute runs Progress and stores the result in the stats cache.
func (s *HabitService) compute(ctx context.Context, h *models.Habit, done tracking.Completions, loc *time.Location, today calendar.Date) tracking.Stats {
	start := time.Now()
	sched := schedule(h, loc)
	stats := tracking.Progress(sched, done, today)
	metrics.RecordStatsCompute(kind, time.Since(start))

	entry := cachedStats{Revision: h.Revision, Day: today, Start: sched.Start, Stats: stats}
	if err := s.cache.Set(ctx, statsKey(h.ID), entry, s.ttl); err != nil {
		slog.Warn("stats cache write failed", "habit_id", h.ID.String(), "error", err)
	}
	return stats
}

func (s *HabitService) invalidate(ctx context.Context, id uuid.UUID) {
	if err := s.cache.Delete(ctx, statsKey(id)); err != nil {
		slog.Warn("stats cache invalidation failed", "habit_id", id.String(), "error", err)
	}
}

// --- helpers ---

// bumpRevision advances h's revision inside tx and reloads it into h.
func bumpRevision(tx *gorm.DB, h *models.Habit) error {
	if err := tx.Model(&models.Habit{}).Where("id = ?", h.ID).
		UpdateColumn("revision", gorm.Expr("revision + 1")).Error; err != nil {
		return err
	}
	var revs []int64
	if err := tx.Model(&models.Habit{}).Where("id = ?", h.ID).Pluck("revision", &revs).Error; err != nil {
		return err
	}
	if len(revs) == 1 {
		h.Revision = revs[0]
	}
	return nil
}

func findHabit(db *gorm.DB, userID, habitID uuid.UUID) (*models.Habit, error) {
	var habit models.Habit
	err := db.Scopes(session.ForUser(userID)).First(&habit, "id = ?", habitID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrHabitNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load habit: %w", err)
	}
	return &habit, nil
}

// loadCompletions returns the done days per habit. Zero bounds are open.
func loadCompletions(db *gorm.DB, ids []uuid.UUID, from, to calendar.Date) (map[uuid.UUID]tracking.Completions, error) {
	out := make(map[uuid.UUID]tracking.Completions, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	q := db.Model(&models.HabitCompletion{}).Where("habit_id IN ? AND done = ?", ids, true)
	if !from.IsZero() {
		q = q.Where("date >= ?", from)
	}
	if !to.IsZero() {
		q = q.Where("date <= ?", to)
	}

	var rows []models.HabitCompletion
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load completions: %w", err)
	}
	for _, r := range rows {
		if out[r.HabitID] == nil {
			out[r.HabitID] = tracking.Completions{}
		}
		out[r.HabitID][r.Date] = true
	}
	return out, nil
}

func schedule(h *models.Habit, loc *time.Location) tracking.Schedule {
	return tracking.Schedule{Start: calendar.FromTime(h.CreatedAt, loc), Days: h.Days}
}

func toResponse(h models.Habit, stats tracking.Stats) *HabitResponse {
	return &HabitResponse{Habit: h, Icon: h.Category.Icon(), Stats: stats}
}

func validateName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", ErrNameRequired
	}
	if len([]rune(name)) > maxNameLen {
		return "", ErrNameTooLong
	}
	return name, nil
}

func wrapWrite(err error) error {
	if errors.Is(err, ErrHabitNotFound) || isScheduleError(err) {
		return err
	}
	return fmt.Errorf("failed to record completion: %w", err)
}

func isScheduleError(err error) bool {
	return errors.Is(err, tracking.ErrFutureDate) ||
		errors.Is(err, tracking.ErrBeforeStart) ||
		errors.Is(err, tracking.ErrAfterTarget) ||
		errors.Is(err, tracking.ErrNotScheduled)
}
