package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/onedaybetter/tracker/internal/calendar"
)

// Habit is a recurring activity expected on the weekdays in Days.
// Revision increases with every write that changes its stats.
type Habit struct {
	ID          uuid.UUID            `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      uuid.UUID            `gorm:"type:uuid;not null;index" json:"user_id"`
	Name        string               `gorm:"size:120;not null" json:"name"`
	Category    Category             `gorm:"size:20;not null" json:"category"`
	Description string               `gorm:"type:text" json:"description"`
	Days        calendar.WeekdayMask `gorm:"not null" json:"days"`
	CreatedAt   time.Time            `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
	Revision    int64                `gorm:"not null;default:0" json:"-"`
	User        User                 `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// HabitCompletion records whether a habit was done on one calendar day.
// (HabitID, Date) is unique, so toggling a day flips a single row.
type HabitCompletion struct {
	ID        uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	HabitID   uuid.UUID     `gorm:"type:uuid;not null;uniqueIndex:idx_habit_completion_day" json:"habit_id"`
	Date      calendar.Date `gorm:"type:varchar(10);not null;uniqueIndex:idx_habit_completion_day;index" json:"date"`
	Done      bool          `gorm:"not null;default:false" json:"done"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
	Habit     Habit         `gorm:"foreignKey:HabitID;constraint:OnDelete:CASCADE" json:"-"`
}
