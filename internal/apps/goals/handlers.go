package goals

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
	"github.com/onedaybetter/tracker/internal/tracking"
)

type GoalHandler struct {
	goalService *GoalService
}

func NewGoalHandler(goalService *GoalService) *GoalHandler {
	return &GoalHandler{goalService: goalService}
}

// Create handles POST /goals.
func (h *GoalHandler) Create(c *fiber.Ctx) error {
	userID, err := session.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	var req CreateGoalRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	goal, err := h.goalService.Create(c.UserContext(), userID, &req, session.Location(c))
	if err != nil {
		return respondError(c, err, "Failed to create goal")
	}
	return c.Status(fiber.StatusCreated).JSON(goal)
}

// List handles GET /goals?include_expired=true.
func (h *GoalHandler) List(c *fiber.Ctx) error {
	userID, err := session.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	includeExpired := c.QueryBool("include_expired", false)
	resp, err := h.goalService.List(c.UserContext(), userID, includeExpired, session.Location(c))
	if err != nil {
		return respondError(c, err, "Failed to fetch goals")
	}
	return c.JSON(resp)
}

// Today handles GET /goals/today?date=YYYY-MM-DD. The date defaults to today.
func (h *GoalHandler) Today(c *fiber.Ctx) error {
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

	resp, err := h.goalService.ForDate(c.UserContext(), userID, date, loc)
	if err != nil {
		return respondError(c, err, "Failed to fetch goals")
	}
	return c.JSON(resp)
}

// Calendar handles GET /goals/calendar?month=YYYY-MM.
func (h *GoalHandler) Calendar(c *fiber.Ctx) error {
	userID, err := session.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	ref, err := queryMonth(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	resp, err := h.goalService.Calendar(c.UserContext(), userID, ref, session.Location(c))
	if err != nil {
		return respondError(c, err, "Failed to build calendar")
	}
	return c.JSON(resp)
}

// Get handles GET /goals/:id.
func (h *GoalHandler) Get(c *fiber.Ctx) error {
	userID, goalID, ok := ids(c)
	if !ok {
		return nil
	}

	resp, err := h.goalService.Get(c.UserContext(), userID, goalID, session.Location(c))
	if err != nil {
		return respondError(c, err, "Failed to fetch goal")
	}
	return c.JSON(resp)
}

// Update handles PUT /goals/:id.
func (h *GoalHandler) Update(c *fiber.Ctx) error {
	userID, goalID, ok := ids(c)
	if !ok {
		return nil
	}

	var req UpdateGoalRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	resp, err := h.goalService.Update(c.UserContext(), userID, goalID, &req, session.Location(c))
	if err != nil {
		return respondError(c, err, "Failed to update goal")
	}
	return c.JSON(resp)
}

// Delete handles DELETE /goals/:id.
func (h *GoalHandler) Delete(c *fiber.Ctx) error {
	userID, goalID, ok := ids(c)
	if !ok {
		return nil
	}

	if err := h.goalService.Delete(c.UserContext(), userID, goalID); err != nil {
		return respondError(c, err, "Failed to delete goal")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Week handles GET /goals/:id/week?date=YYYY-MM-DD.
func (h *GoalHandler) Week(c *fiber.Ctx) error {
	userID, goalID, ok := ids(c)
	if !ok {
		return nil
	}

	ref, err := queryDate(c, "date")
	if err != nil {
		return badRequest(c, err.Error())
	}

	resp, err := h.goalService.Week(c.UserContext(), userID, goalID, ref, session.Location(c))
	if err != nil {
		return respondError(c, err, "Failed to fetch week")
	}
	return c.JSON(resp)
}

// Completions handles GET /goals/:id/completions?from=&to=.
// The range defaults to the first of the current month through today.
func (h *GoalHandler) Completions(c *fiber.Ctx) error {
	userID, goalID, ok := ids(c)
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

	resp, err := h.goalService.Completions(c.UserContext(), userID, goalID, from, to)
	if err != nil {
		return respondError(c, err, "Failed to fetch completions")
	}
	return c.JSON(resp)
}

// Toggle handles POST /goals/:id/toggle. An empty body toggles today.
func (h *GoalHandler) Toggle(c *fiber.Ctx) error {
	userID, goalID, ok := ids(c)
	if !ok {
		return nil
	}

	var req ToggleRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "Invalid request body")
		}
	}

	resp, err := h.goalService.Toggle(c.UserContext(), userID, goalID, req.Date, session.Location(c))
	if err != nil {
		return respondError(c, err, "Failed to toggle completion")
	}
	return c.JSON(resp)
}

// SetCompletion handles PUT /goals/:id/completions/:date.
func (h *GoalHandler) SetCompletion(c *fiber.Ctx) error {
	userID, goalID, ok := ids(c)
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

	resp, err := h.goalService.SetCompletion(c.UserContext(), userID, goalID, date, req.Done, session.Location(c))
	if err != nil {
		return respondError(c, err, "Failed to record completion")
	}
	return c.JSON(resp)
}

// --- helpers ---

// ids returns the caller and the :id path parameter. When ok is false the
// error response has already been written.
func ids(c *fiber.Ctx) (userID, goalID uuid.UUID, ok bool) {
	userID, err := session.GetUserID(c)
	if err != nil {
		unauthorized(c)
		return uuid.Nil, uuid.Nil, false
	}
	goalID, err = uuid.Parse(c.Params("id"))
	if err != nil {
		badRequest(c, "Invalid goal ID")
		return uuid.Nil, uuid.Nil, false
	}
	return userID, goalID, true
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
	case errors.Is(err, ErrGoalNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
			Error: true, Message: "Goal not found",
		})
	case errors.Is(err, ErrNameRequired),
		errors.Is(err, ErrTargetRequired),
		errors.Is(err, tracking.ErrInvalidPeriod),
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
