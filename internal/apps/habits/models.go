package habits

import (
	"github.com/google/uuid"
	"github.com/onedaybetter/tracker/internal/calendar"
	"github.com/onedaybetter/tracker/internal/models"
	"github.com/onedaybetter/tracker/internal/tracking"
)

// --- DTOs ---

// CreateHabitRequest omits Days to mean every day; an explicit empty list is rejected.
type CreateHabitRequest struct {
	Name        string          `json:"name"`
	Category    models.Category `json:"category"`
	Description string          `json:"description"`
	Days        []int           `json:"days"`
}

type UpdateHabitRequest struct {
	Name        *string          `json:"name"`
	Category    *models.Category `json:"category"`
	Description *string          `json:"description"`
	Days        *[]int           `json:"days"`
}

type ToggleRequest struct {
	Date calendar.Date `json:"date"`
}

type SetCompletionRequest struct {
	Done bool `json:"done"`
}

type HabitResponse struct {
	models.Habit
	Icon  string         `json:"icon"`
	Stats tracking.Stats `json:"stats"`
}

type HabitDetailResponse struct {
	HabitResponse
	Week []tracking.Day `json:"week"`
}

type HabitListResponse struct {
	Habits []HabitResponse `json:"habits"`
	Total  int             `json:"total"`
	Today  calendar.Date   `json:"today"`
}

// DayHabit is one row of the daily agenda.
type DayHabit struct {
	ID       uuid.UUID            `json:"id"`
	Name     string               `json:"name"`
	Category models.Category      `json:"category"`
	Icon     string               `json:"icon"`
	Days     calendar.WeekdayMask `json:"days"`
	Done     bool                 `json:"done"`
}

type DayResponse struct {
	Date   calendar.Date `json:"date"`
	Habits []DayHabit    `json:"habits"`
	Done   int           `json:"done"`
	Total  int           `json:"total"`
}

type CompletionResponse struct {
	HabitID uuid.UUID      `json:"habit_id"`
	Date    calendar.Date  `json:"date"`
	Done    bool           `json:"done"`
	Stats   tracking.Stats `json:"stats"`
}

type CompletionListResponse struct {
	Completions []models.HabitCompletion `json:"completions"`
	From        calendar.Date            `json:"from"`
	To          calendar.Date            `json:"to"`
}

type WeekResponse struct {
	HabitID uuid.UUID      `json:"habit_id"`
	Start   calendar.Date  `json:"start"`
	Days    []tracking.Day `json:"days"`
}

type CalendarResponse struct {
	Month string                `json:"month"`
	Days  []tracking.DaySummary `json:"days"`
}

// cachedStats is what the stats cache stores per habit.
type cachedStats struct {
	Revision int64          `json:"revision"`
	Day      calendar.Date  `json:"day"`
	Start    calendar.Date  `json:"start"`
	Stats    tracking.Stats `json:"stats"`
}
