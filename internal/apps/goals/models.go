package goals

import (
	"github.com/google/uuid"
	"github.com/onedaybetter/tracker/internal/calendar"
	"github.com/onedaybetter/tracker/internal/models"
	"github.com/onedaybetter/tracker/internal/tracking"
)

// --- DTOs ---

// CreateGoalRequest accepts target_date as YYYY-MM-DD or DD/MM/YYYY.
type CreateGoalRequest struct {
	Name        string          `json:"name"`
	Category    models.Category `json:"category"`
	Description string          `json:"description"`
	TargetDate  calendar.Date   `json:"target_date"`
	Days        []int           `json:"days"`
}

type UpdateGoalRequest struct {
	Name        *string          `json:"name"`
	Category    *models.Category `json:"category"`
	Description *string          `json:"description"`
	TargetDate  *calendar.Date   `json:"target_date"`
	Days        *[]int           `json:"days"`
}

type ToggleRequest struct {
	Date calendar.Date `json:"date"`
}

type SetCompletionRequest struct {
	Done bool `json:"done"`
}

type GoalResponse struct {
	models.Goal
	Icon            string         `json:"icon"`
	Active          bool           `json:"active"`
	DaysUntilTarget int            `json:"days_until_target"`
	Stats           tracking.Stats `json:"stats"`
}

type GoalDetailResponse struct {
	GoalResponse
	Week []tracking.Day `json:"week"`
}

type GoalListResponse struct {
	Goals []GoalResponse `json:"goals"`
	Total int            `json:"total"`
	Today calendar.Date  `json:"today"`
}

type DayGoal struct {
	ID         uuid.UUID            `json:"id"`
	Name       string               `json:"name"`
	Category   models.Category      `json:"category"`
	Icon       string               `json:"icon"`
	TargetDate calendar.Date        `json:"target_date"`
	Days       calendar.WeekdayMask `json:"days"`
	Done       bool                 `json:"done"`
}

type DayResponse struct {
	Date  calendar.Date `json:"date"`
	Goals []DayGoal     `json:"goals"`
	Done  int           `json:"done"`
	Total int           `json:"total"`
}

type CompletionResponse struct {
	GoalID uuid.UUID      `json:"goal_id"`
	Date   calendar.Date  `json:"date"`
	Done   bool           `json:"done"`
	Stats  tracking.Stats `json:"stats"`
}

type CompletionListResponse struct {
	Completions []models.GoalCompletion `json:"completions"`
	From        calendar.Date           `json:"from"`
	To          calendar.Date           `json:"to"`
}

type WeekResponse struct {
	GoalID uuid.UUID      `json:"goal_id"`
	Start  calendar.Date  `json:"start"`
	Days   []tracking.Day `json:"days"`
}

type CalendarResponse struct {
	Month string                `json:"month"`
	Days  []tracking.DaySummary `json:"days"`
}

type cachedStats struct {
	Revision int64          `json:"revision"`
	Day      calendar.Date  `json:"day"`
	Start    calendar.Date  `json:"start"`
	Until    calendar.Date  `json:"until"`
	Stats    tracking.Stats `json:"stats"`
}
