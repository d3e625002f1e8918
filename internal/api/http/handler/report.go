package handler

import (
	"github.com/gofiber/fiber/v3"

	"github.com/Alijeyrad/ambulanz_backend/internal/appointment"
	"github.com/Alijeyrad/ambulanz_backend/internal/service/report"
)

type ReportHandler struct {
	svc report.Service
}

func NewReportHandler(svc report.Service) *ReportHandler {
	return &ReportHandler{svc: svc}
}

// GET /reports/quarters/:quarter?practice=intern|extern
func (h *ReportHandler) Forecast(c fiber.Ctx) error {
	q, err := appointment.ParseQuarter(c.Params("quarter"))
	if err != nil {
		return badRequest(c, err.Error())
	}

	f, err := h.svc.Forecast(c.Context(), q, c.Query("practice"))
	if err != nil {
		return mapError(c, err)
	}
	return ok(c, f)
}

// GET /reports/supervision?due=YYYY-MM-DD
func (h *ReportHandler) Supervision(c fiber.Ctx) error {
	due, valid := dateQuery(c, "due", today())
	if !valid {
		return badRequest(c, "invalid due date")
	}
	return ok(c, h.svc.Supervision(c.Context(), due))
}

// GET /reports/progress
func (h *ReportHandler) Progress(c fiber.Ctx) error {
	day, valid := dateQuery(c, "today", today())
	if !valid {
		return badRequest(c, "invalid date")
	}
	return ok(c, h.svc.Progress(c.Context(), day))
}

// POST /reports/capacity
func (h *ReportHandler) Capacity(c fiber.Ctx) error {
	var in report.CapacityInput
	if err := c.Bind().JSON(&in); err != nil {
		return badRequest(c, "invalid request body")
	}

	res, err := h.svc.Capacity(c.Context(), in)
	if err != nil {
		return mapError(c, err)
	}
	return ok(c, res)
}

// GET /calendar/events
func (h *ReportHandler) Calendar(c fiber.Ctx) error {
	return ok(c, h.svc.CalendarEvents(c.Context()))
}
