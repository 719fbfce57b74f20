package habits

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/onedaybetter/tracker/internal/calendar"
	"github.com/onedaybetter/tracker/internal/dto"
	"github.com/onedaybetter/tracker/internal/models"
	"github.com/onedaybetter/tracker/internal/session"
)

type HabitHandler struct {
	habitService *HabitService
}

func NewHabitHandler(habitService *HabitService) *HabitHandler {
	return &HabitHandler{habitService: habitService}
}

// Create handles POST /habits.
func (h *HabitHandler) Create(c *fiber.Ctx) error {
	userID, err := session.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	var req CreateHabitRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	habit, err := h.habitService.Create(c.UserContext(), userID, &req, session.Location(c))
	if err != nil {
		return respondError(c, err, "Failed to create habit")
	}
	return c.Status(fiber.StatusCreated).JSON(habit)
}

// List handles GET /habits.
func (h *HabitHandler) List(c *fiber.Ctx) error {
	userID, err := session.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	resp, err := h.habitService.List(c.UserContext(), userID, session.Location(c))
	if err != nil {
		return respondError(c, err, "Failed to fetch habits")
	}
	return c.JSON(resp)
}

// Today handles GET /habits/today?date=YYYY-MM-DD. The date defaults to today.
func (h *HabitHandler) Today(c *fiber.Ctx) error {
	userID, err := session.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	loc := session.Location(c)
	date, err := queryDate(c, "date")
	if err != nil {
		return badRequest(c, err.Error())
	}
	if date.IsZero() {
		date = calendar.Today(loc)
	}

	resp, err := h.habitService.ForDate(c.UserContext(), userID, date, loc)
	if err != nil {
		return respondError(c, err, "Failed to fetch habits")
	}
	return c.JSON(resp)
}

// Calendar handles GET /habits/calendar?month=YYYY-MM.
func (h *HabitHandler) Calendar(c *fiber.Ctx) error {
	userID, err := session.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	ref, err := queryMonth(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	resp, err := h.habitService.Calendar(c.UserContext(), userID, ref, session.Location(c))
	if err != nil {
		return respondError(c, err, "Failed to build calendar")
	}
	return c.JSON(resp)
}

// Get handles GET /habits/:id.
func (h *HabitHandler) Get(c *fiber.Ctx) error {
	userID, habitID, ok := ids(c)
	if !ok {
		return nil
	}

	resp, err := h.habitService.Get(c.UserContext(), userID, habitID, session.Location(c))
	if err != nil {
		return respondError(c, err, "Failed to fetch habit")
	}
	return c.JSON(resp)
}

// Update handles PUT /habits/:id.
func (h *HabitHandler) Update(c *fiber.Ctx) error {
	userID, habitID, ok := ids(c)
	if !ok {
		return nil
	}

	var req UpdateHabitRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	resp, err := h.habitService.Update(c.UserContext(), userID, habitID, &req, session.Location(c))
	if err != nil {
		return respondError(c, err, "Failed to update habit")
	}
	return c.JSON(resp)
}

// Delete handles DELETE /habits/:id.
func (h *HabitHandler) Delete(c *fiber.Ctx) error {
	userID, habitID, ok := ids(c)
	if !ok {
		return nil
	}

	if err := h.habitService.Delete(c.UserContext(), userID, habitID); err != nil {
		return respondError(c, err, "Failed to delete habit")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Week handles GET /habits/:id/week?date=YYYY-MM-DD.
func (h *HabitHandler) Week(c *fiber.Ctx) error {
	userID, habitID, ok := ids(c)
	if !ok {
		return nil
	}

	ref, err := queryDate(c, "date")
	if err != nil {
		return badRequest(c, err.Error())
	}

	resp, err := h.habitService.Week(c.UserContext(), userID, habitID, ref, session.Location(c))
	if err != nil {
		return respondError(c, err, "Failed to fetch week")
	}
	return c.JSON(resp)
}

// Completions handles GET /habits/:id/completions?from=&to=.
// The range defaults to the first of the current month through today.
func (h *HabitHandler) Completions(c *fiber.Ctx) error {
	userID, habitID, ok := ids(c)
	if !ok {
		return nil
	}

	today := calendar.Today(session.Location(c))
	from, err := queryDate(c, "from")
	if err != nil {
		return badRequest(c, err.Error())
	}
	to, err := queryDate(c, "to")
	if err != nil {
		return badRequest(c, err.Error())
	}
	if to.IsZero() {
		to = today
	}
	if from.IsZero() {
		from = to.StartOfMonth()
	}

	resp, err := h.habitService.Completions(c.UserContext(), userID, habitID, from, to)
	if err != nil {
		return respondError(c, err, "Failed to fetch completions")
	}
	return c.JSON(resp)
}

// Toggle handles POST /habits/:id/toggle. An empty body toggles today.
func (h *HabitHandler) Toggle(c *fiber.Ctx) error {
	userID, habitID, ok := ids(c)
	if !ok {
		return nil
	}

	var req ToggleRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "Invalid request body")
		}
	}

	resp, err := h.habitService.Toggle(c.UserContext(), userID, habitID, req.Date, session.Location(c))
	if err != nil {
		return respondError(c, err, "Failed to toggle completion")
	}
	return c.JSON(resp)
}

// SetCompletion handles PUT /habits/:id/completions/:date.
func (h *HabitHandler) SetCompletion(c *fiber.Ctx) error {
	userID, habitID, ok := ids(c)
	if !ok {
		return nil
	}

	date, err := calendar.Parse(c.Params("date"))
	if err != nil {
		return badRequest(c, err.Error())
	}

	var req SetCompletionRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	resp, err := h.habitService.SetCompletion(c.UserContext(), userID, habitID, date, req.Done, session.Location(c))
	if err != nil {
		return respondError(c, err, "Failed to record completion")
	}
	return c.JSON(resp)
}

// --- helpers ---

// ids returns the caller and the :id path parameter. When ok is false the
// error response has already been written.
func ids(c *fiber.Ctx) (userID, habitID uuid.UUID, ok bool) {
	userID, err := session.GetUserID(c)
	if err != nil {
		unauthorized(c)
		return uuid.Nil, uuid.Nil, false
	}
	habitID, err = uuid.Parse(c.Params("id"))
	if err != nil {
		badRequest(c, "Invalid habit ID")
		return uuid.Nil, uuid.Nil, false
	}
	return userID, habitID, true
}

func queryDate(c *fiber.Ctx, key string) (calendar.Date, error) {
	raw := c.Query(key)
	if raw == "" {
		return calendar.Date{}, nil
	}
	return calendar.Parse(raw)
}

// queryMonth reads ?month=YYYY-MM and returns its first day.
func queryMonth(c *fiber.Ctx) (calendar.Date, error) {
	raw := c.Query("month")
	if raw == "" {
		return calendar.Date{}, nil
	}
	t, err := time.Parse("2006-01", raw)
	if err != nil {
		return calendar.Date{}, errors.New("month must be formatted as YYYY-MM")
	}
	return calendar.NewDate(t.Year(), t.Month(), 1), nil
}

func respondError(c *fiber.Ctx, err error, fallback string) error {
	switch {
	case errors.Is(err, ErrHabitNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
			Error: true, Message: "Habit not found",
		})
	case errors.Is(err, ErrNameRequired),
		errors.Is(err, ErrNameTooLong),
		errors.Is(err, ErrInvalidRange),
		errors.Is(err, ErrRangeTooLarge),
		errors.Is(err, models.ErrInvalidCategory),
		errors.Is(err, calendar.ErrInvalidWeekdays),
		errors.Is(err, calendar.ErrInvalidDate),
		isScheduleError(err):
		return badRequest(c, err.Error())
	}

	slog.Error(fallback, "error", err, "request_id", c.Locals("requestid"))
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
		Error: true, Message: fallback,
	})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
		Error: true, Message: msg,
	})
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
		Error: true, Message: "Unauthorized",
	})
}
