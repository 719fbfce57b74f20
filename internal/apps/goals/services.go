package goals

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
	ErrGoalNotFound   = errors.New("goal not found")
	ErrTargetRequired = errors.New("target_date is required")
	ErrNameRequired   = errors.New("name is required")
	ErrNameTooLong    = errors.New("name must be at most 120 characters")
	ErrInvalidRange   = errors.New("from must not be after to")
	ErrRangeTooLarge  = errors.New("range must not exceed 366 days")
)

const (
	kind         = "goal"
	maxNameLen   = 120
	maxRangeDays = 366
)

type GoalService struct {
	db    *gorm.DB
	cache cache.Cache
	ttl   time.Duration
	now   func() time.Time
}

func NewGoalService(db *gorm.DB, statsCache cache.Cache, ttl time.Duration) *GoalService {
	if statsCache == nil {
		statsCache = cache.Noop{}
	}
	return &GoalService{db: db, cache: statsCache, ttl: ttl, now: time.Now}
}

func (s *GoalService) today(loc *time.Location) calendar.Date {
	return calendar.FromTime(s.now(), loc)
}

func (s *GoalService) Create(ctx context.Context, userID uuid.UUID, req *CreateGoalRequest, loc *time.Location) (*GoalResponse, error) {
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
	if req.TargetDate.IsZero() {
		return nil, ErrTargetRequired
	}
	today := s.today(loc)
	if req.TargetDate.Before(today) {
		return nil, tracking.ErrInvalidPeriod
	}

	goal := models.Goal{
		ID:          uuid.New(),
		UserID:      userID,
		Name:        name,
		Category:    req.Category,
		Description: strings.TrimSpace(req.Description),
		TargetDate:  req.TargetDate,
		Days:        days,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&goal).Error; err != nil {
		return nil, fmt.Errorf("failed to create goal: %w", err)
	}

	metrics.IncrementItemsCreated(kind)
	slog.Info("goal created", "goal_id", goal.ID.String(), "user_id", userID.String())

	stats := tracking.Progress(schedule(&goal, loc), tracking.Completions{}, today)
	return toResponse(goal, stats, today), nil
}

// List returns the user's goals newest first, each with progress through
// today. Goals past their target date are left out unless includeExpired.
func (s *GoalService) List(ctx context.Context, userID uuid.UUID, includeExpired bool, loc *time.Location) (*GoalListResponse, error) {
	today := s.today(loc)

	q := s.db.WithContext(ctx).Scopes(session.ForUser(userID))
	if !includeExpired {
		q = q.Where("target_date >= ?", today)
	}

	var goals []models.Goal
	if err := q.Order("created_at DESC").Find(&goals).Error; err != nil {
		return nil, fmt.Errorf("failed to list goals: %w", err)
	}

	out := make([]GoalResponse, len(goals))

	hit := make([]bool, len(goals))
	var missing []uuid.UUID
	for i := range goals {
		if stats, ok := s.cachedStats(ctx, &goals[i], loc, today); ok {
			out[i] = *toResponse(goals[i], stats, today)
			hit[i] = true
			continue
		}
		missing = append(missing, goals[i].ID)
	}

	if len(missing) > 0 {
		done, err := loadCompletions(s.db.WithContext(ctx), missing, calendar.Date{}, calendar.Date{})
		if err != nil {
			return nil, err
		}
		for i := range goals {
			if hit[i] {
				continue
			}
			stats := s.compute(ctx, &goals[i], done[goals[i].ID], loc, today)
			out[i] = *toResponse(goals[i], stats, today)
		}
	}

	return &GoalListResponse{Goals: out, Total: len(out), Today: today}, nil
}

// Get returns one goal with its progress and the current week.
func (s *GoalService) Get(ctx context.Context, userID, goalID uuid.UUID, loc *time.Location) (*GoalDetailResponse, error) {
	goal, err := findGoal(s.db.WithContext(ctx), userID, goalID)
	if err != nil {
		return nil, err
	}

	today := s.today(loc)
	done, err := loadCompletions(s.db.WithContext(ctx), []uuid.UUID{goal.ID}, calendar.Date{}, calendar.Date{})
	if err != nil {
		return nil, err
	}

	stats, ok := s.cachedStats(ctx, goal, loc, today)
	if !ok {
		stats = s.compute(ctx, goal, done[goal.ID], loc, today)
	}

	return &GoalDetailResponse{
		GoalResponse: *toResponse(*goal, stats, today),
		Week:         tracking.Week(schedule(goal, loc), done[goal.ID], today, today),
	}, nil
}

func (s *GoalService) Update(ctx context.Context, userID, goalID uuid.UUID, req *UpdateGoalRequest, loc *time.Location) (*GoalResponse, error) {
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
	if req.TargetDate != nil && req.TargetDate.IsZero() {
		return nil, ErrTargetRequired
	}

	var goal *models.Goal
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if goal, err = findGoal(tx, userID, goalID); err != nil {
			return err
		}
		if req.TargetDate != nil {
			if req.TargetDate.Before(schedule(goal, loc).Start) {
				return tracking.ErrInvalidPeriod
			}
			updates["target_date"] = *req.TargetDate
		}
		if len(updates) == 0 {
			return nil
		}
		updates["revision"] = gorm.Expr("revision + 1")
		if err := tx.Model(goal).Updates(updates).Error; err != nil {
			return err
		}
		return tx.First(goal, "id = ?", goal.ID).Error
	})
	if err != nil {
		if errors.Is(err, ErrGoalNotFound) || errors.Is(err, tracking.ErrInvalidPeriod) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update goal: %w", err)
	}

	s.invalidate(ctx, goal.ID)

	done, err := loadCompletions(s.db.WithContext(ctx), []uuid.UUID{goal.ID}, calendar.Date{}, calendar.Date{})
	if err != nil {
		return nil, err
	}
	today := s.today(loc)
	stats := s.compute(ctx, goal, done[goal.ID], loc, today)
	return toResponse(*goal, stats, today), nil
}

// Delete removes the goal and all of its completions.
func (s *GoalService) Delete(ctx context.Context, userID, goalID uuid.UUID) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		goal, err := findGoal(tx, userID, goalID)
		if err != nil {
			return err
		}
		if err := tx.Where("goal_id = ?", goal.ID).Delete(&models.GoalCompletion{}).Error; err != nil {
			return err
		}
		return tx.Delete(goal).Error
	})
	if err != nil {
		if errors.Is(err, ErrGoalNotFound) {
			return err
		}
		return fmt.Errorf("failed to delete goal: %w", err)
	}

	s.invalidate(ctx, goalID)
	metrics.IncrementItemsDeleted(kind)
	slog.Info("goal deleted", "goal_id", goalID.String(), "user_id", userID.String())
	return nil
}

// ForDate lists the goals scheduled on date together with their done flag.
func (s *GoalService) ForDate(ctx context.Context, userID uuid.UUID, date calendar.Date, loc *time.Location) (*DayResponse, error) {
	var goals []models.Goal
	err := s.db.WithContext(ctx).Scopes(session.ForUser(userID)).
		Order("created_at ASC").
		Find(&goals).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list goals: %w", err)
	}

	var ids []uuid.UUID
	for i := range goals {
		if schedule(&goals[i], loc).IsActive(date) {
			ids = append(ids, goals[i].ID)
		}
	}

	resp := &DayResponse{Date: date, Goals: []DayGoal{}}
	if len(ids) == 0 {
		return resp, nil
	}

	done, err := loadCompletions(s.db.WithContext(ctx), ids, date, date)
	if err != nil {
		return nil, err
	}

	for i := range goals {
		g := &goals[i]
		if !schedule(g, loc).IsActive(date) {
			continue
		}
		item := DayGoal{
			ID:         g.ID,
			Name:       g.Name,
			Category:   g.Category,
			Icon:       g.Category.Icon(),
			TargetDate: g.TargetDate,
			Days:       g.Days,
			Done:       done[g.ID][date],
		}
		if item.Done {
			resp.Done++
		}
		resp.Goals = append(resp.Goals, item)
	}
	resp.Total = len(resp.Goals)
	return resp, nil
}

// Toggle flips the completion for date. A day with no row becomes done.
func (s *GoalService) Toggle(ctx context.Context, userID, goalID uuid.UUID, date calendar.Date, loc *time.Location) (*CompletionResponse, error) {
	today := s.today(loc)
	if date.IsZero() {
		date = today
	}

	var goal *models.Goal
	var completion models.GoalCompletion
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if goal, err = findGoal(tx, userID, goalID); err != nil {
			return err
		}
		if err := schedule(goal, loc).CheckRecordable(date, today); err != nil {
			return err
		}

		err = tx.Where("goal_id = ? AND date = ?", goal.ID, date).First(&completion).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			completion = models.GoalCompletion{ID: uuid.New(), GoalID: goal.ID, Date: date, Done: true}
			if err := tx.Create(&completion).Error; err != nil {
				return err
			}
			return bumpRevision(tx, goal)
		}
		if err != nil {
			return err
		}
		completion.Done = !completion.Done
		if err := tx.Model(&completion).Update("done", completion.Done).Error; err != nil {
			return err
		}
		return bumpRevision(tx, goal)
	})
	if err != nil {
		return nil, wrapWrite(err)
	}

	return s.afterWrite(ctx, goal, completion.Date, completion.Done, loc, today)
}

// SetCompletion records done for date regardless of the previous value.
func (s *GoalService) SetCompletion(ctx context.Context, userID, goalID uuid.UUID, date calendar.Date, done bool, loc *time.Location) (*CompletionResponse, error) {
	today := s.today(loc)

	var goal *models.Goal
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if goal, err = findGoal(tx, userID, goalID); err != nil {
			return err
		}
		if err := schedule(goal, loc).CheckRecordable(date, today); err != nil {
			return err
		}

		completion := models.GoalCompletion{ID: uuid.New(), GoalID: goal.ID, Date: date, Done: done}
		err = tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "goal_id"}, {Name: "date"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"done": done, "updated_at": s.now().UTC()}),
		}).Create(&completion).Error
		if err != nil {
			return err
		}
		return bumpRevision(tx, goal)
	})
	if err != nil {
		return nil, wrapWrite(err)
	}

	return s.afterWrite(ctx, goal, date, done, loc, today)
}

func (s *GoalService) afterWrite(ctx context.Context, goal *models.Goal, date calendar.Date, done bool, loc *time.Location, today calendar.Date) (*CompletionResponse, error) {
	s.invalidate(ctx, goal.ID)
	metrics.RecordCompletion(kind, done)

	completions, err := loadCompletions(s.db.WithContext(ctx), []uuid.UUID{goal.ID}, calendar.Date{}, calendar.Date{})
	if err != nil {
		return nil, err
	}
	return &CompletionResponse{
		GoalID: goal.ID,
		Date:   date,
		Done:   done,
		Stats:  s.compute(ctx, goal, completions[goal.ID], loc, today),
	}, nil
}

// Completions returns the stored rows between from and to inclusive, oldest first.
func (s *GoalService) Completions(ctx context.Context, userID, goalID uuid.UUID, from, to calendar.Date) (*CompletionListResponse, error) {
	if from.After(to) {
		return nil, ErrInvalidRange
	}
	if from.DaysUntil(to) >= maxRangeDays {
		return nil, ErrRangeTooLarge
	}

	goal, err := findGoal(s.db.WithContext(ctx), userID, goalID)
	if err != nil {
		return nil, err
	}

	rows := []models.GoalCompletion{}
	err = s.db.WithContext(ctx).
		Where("goal_id = ? AND date >= ? AND date <= ?", goal.ID, from, to).
		Order("date ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list completions: %w", err)
	}
	return &CompletionListResponse{Completions: rows, From: from, To: to}, nil
}

// Week returns the Sunday-to-Saturday view containing ref.
func (s *GoalService) Week(ctx context.Context, userID, goalID uuid.UUID, ref calendar.Date, loc *time.Location) (*WeekResponse, error) {
	goal, err := findGoal(s.db.WithContext(ctx), userID, goalID)
	if err != nil {
		return nil, err
	}
	today := s.today(loc)
	if ref.IsZero() {
		ref = today
	}

	start := ref.StartOfWeek()
	done, err := loadCompletions(s.db.WithContext(ctx), []uuid.UUID{goal.ID}, start, start.AddDays(6))
	if err != nil {
		return nil, err
	}
	return &WeekResponse{
		GoalID: goal.ID,
		Start:  start,
		Days:   tracking.Week(schedule(goal, loc), done[goal.ID], ref, today),
	}, nil
}

// Calendar summarises every day of the month containing ref across all goals.
func (s *GoalService) Calendar(ctx context.Context, userID uuid.UUID, ref calendar.Date, loc *time.Location) (*CalendarResponse, error) {
	today := s.today(loc)
	if ref.IsZero() {
		ref = today
	}

	var goals []models.Goal
	if err := s.db.WithContext(ctx).Scopes(session.ForUser(userID)).Find(&goals).Error; err != nil {
		return nil, fmt.Errorf("failed to list goals: %w", err)
	}

	first := ref.StartOfMonth()
	last := first.AddDays(first.DaysInMonth() - 1)
	ids := make([]uuid.UUID, len(goals))
	for i := range goals {
		ids[i] = goals[i].ID
	}
	done, err := loadCompletions(s.db.WithContext(ctx), ids, first, last)
	if err != nil {
		return nil, err
	}

	items := make([]tracking.Item, len(goals))
	for i := range goals {
		items[i] = tracking.Item{Schedule: schedule(&goals[i], loc), Done: done[goals[i].ID]}
	}
	return &CalendarResponse{
		Month: first.Time().Format("2006-01"),
		Days:  tracking.Month(items, ref, today),
	}, nil
}

// --- stats ---

func statsKey(id uuid.UUID) string {
	return "goal:" + id.String() + ":stats"
}

// cachedStats returns stats computed earlier for the same revision, day and
// schedule. Entries stored by a reader that raced a write carry the old
// revision and are ignored.
func (s *GoalService) cachedStats(ctx context.Context, g *models.Goal, loc *time.Location, today calendar.Date) (tracking.Stats, bool) {
	var entry cachedStats
	ok, err := s.cache.Get(ctx, statsKey(g.ID), &entry)
	if err != nil {
		metrics.RecordCacheLookup(kind, "error")
		slog.Warn("stats cache read failed", "goal_id", g.ID.String(), "error", err)
		return tracking.Stats{}, false
	}
	sched := schedule(g, loc)
	if !ok || entry.Revision != g.Revision || !entry.Day.Equal(today) ||
		!entry.Start.Equal(sched.Start) || !entry.Until.Equal(sched.Until) {
		metrics.RecordCacheLookup(kind, "miss")
		return tracking.Stats{}, false
	}
	metrics.RecordCacheLookup(kind, "hit")
	return entry.Stats, true
}

// compute runs Progress and stores the result in the stats cache.
func (s *GoalService) compute(ctx context.Context, g *models.Goal, done tracking.Completions, loc *time.Location, today calendar.Date) tracking.Stats {
	start := time.Now()
	sched := schedule(g, loc)
	stats := tracking.Progress(sched, done, today)
	metrics.RecordStatsCompute(kind, time.Since(start))

	entry := cachedStats{Revision: g.Revision, Day: today, Start: sched.Start, Until: sched.Until, Stats: stats}
	if err := s.cache.Set(ctx, statsKey(g.ID), entry, s.ttl); err != nil {
		slog.Warn("stats cache write failed", "goal_id", g.ID.String(), "error", err)
	}
	return stats
}

func (s *GoalService) invalidate(ctx context.Context, id uuid.UUID) {
	if err := s.cache.Delete(ctx, statsKey(id)); err != nil {
		slog.Warn("stats cache invalidation failed", "goal_id", id.String(), "error", err)
	}
}

// --- helpers ---

// bumpRevision advances g's revision inside tx and reloads it into g.
func bumpRevision(tx *gorm.DB, g *models.Goal) error {
	if err := tx.Model(&models.Goal{}).Where("id = ?", g.ID).
		UpdateColumn("revision", gorm.Expr("revision + 1")).Error; err != nil {
		return err
	}
	var revs []int64
	if err := tx.Model(&models.Goal{}).Where("id = ?", g.ID).Pluck("revision", &revs).Error; err != nil {
		return err
	}
	if len(revs) == 1 {
		g.Revision = revs[0]
	}
	return nil
}

func findGoal(db *gorm.DB, userID, goalID uuid.UUID) (*models.Goal, error) {
	var goal models.Goal
	err := db.Scopes(session.ForUser(userID)).First(&goal, "id = ?", goalID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrGoalNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load goal: %w", err)
	}
	return &goal, nil
}

// loadCompletions returns the done days per goal. Zero bounds are open.
func loadCompletions(db *gorm.DB, ids []uuid.UUID, from, to calendar.Date) (map[uuid.UUID]tracking.Completions, error) {
	out := make(map[uuid.UUID]tracking.Completions, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	q := db.Model(&models.GoalCompletion{}).Where("goal_id IN ? AND done = ?", ids, true)
	if !from.IsZero() {
		q = q.Where("date >= ?", from)
	}
	if !to.IsZero() {
		q = q.Where("date <= ?", to)
	}

	var rows []models.GoalCompletion
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load completions: %w", err)
	}
	for _, r := range rows {
		if out[r.GoalID] == nil {
			out[r.GoalID] = tracking.Completions{}
		}
		out[r.GoalID][r.Date] = true
	}
	return out, nil
}

func schedule(g *models.Goal, loc *time.Location) tracking.Schedule {
	return tracking.Schedule{
		Start: calendar.FromTime(g.CreatedAt, loc),
		Until: g.TargetDate,
		Days:  g.Days,
	}
}

func toResponse(g models.Goal, stats tracking.Stats, today calendar.Date) *GoalResponse {
	return &GoalResponse{
		Goal:            g,
		Icon:            g.Category.Icon(),
		Active:          !today.After(g.TargetDate),
		DaysUntilTarget: today.DaysUntil(g.TargetDate),
		Stats:           stats,
	}
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
	if errors.Is(err, ErrGoalNotFound) || isScheduleError(err) {
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
