package handler

import (
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/Alijeyrad/ambulanz_backend/internal/appointment"
	"github.com/Alijeyrad/ambulanz_backend/internal/service/scheduling"
)

// ScheduleHandler serves the schedule-wide endpoints: absences, date ranges
// and supervision entries.
type ScheduleHandler struct {
	svc scheduling.Service
}

func NewScheduleHandler(svc scheduling.Service) *ScheduleHandler {
	return &ScheduleHandler{svc: svc}
}

// POST /absences
// client_id is required; "ALL" applies the absence to every client.
func (h *ScheduleHandler) Absence(c fiber.Ctx) error {
	var body struct {
		ClientID string `json:"client_id"`
		Start    string `json:"start"`
		End      string `json:"end"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	target := strings.TrimSpace(body.ClientID)
	if target == "" {
		return badRequest(c, "client_id is required, use "+scheduling.AllClients+" for every client")
	}
	start, err := appointment.ParseDate(body.Start)
	if err != nil {
		return badRequest(c, err.Error())
	}
	end, err := appointment.ParseDate(body.End)
	if err != nil {
		return badRequest(c, err.Error())
	}

	res, err := h.svc.ShiftAbsence(c.Context(), target, start, end)
	if err != nil {
		return mapError(c, err)
	}
	return ok(c, res)
}

// GET /appointments?from=&to=
// Without a range the current quarter is returned.
func (h *ScheduleHandler) Appointments(c fiber.Ctx) error {
	q := appointment.QuarterOf(today())
	from, valid := dateQuery(c, "from", q.Start())
	if !valid {
		return badRequest(c, "invalid from date")
	}
	to, valid := dateQuery(c, "to", q.End())
	if !valid {
		return badRequest(c, "invalid to date")
	}

	entries, err := h.svc.Appointments(c.Context(), from, to)
	if err != nil {
		return mapError(c, err)
	}
	return ok(c, scheduleEntries(entries))
}

// ---------------------------------------------------------------------------
// Supervisions
// ---------------------------------------------------------------------------

// GET /supervisions
func (h *ScheduleHandler) ListSupervisions(c fiber.Ctx) error {
	return ok(c, supervisionEntries(h.svc.Supervisions(c.Context())))
}

// POST /supervisions
func (h *ScheduleHandler) AddSupervision(c fiber.Ctx) error {
	var body struct {
		Date  string `json:"date"`
		Kind  string `json:"kind"`
		Hours int    `json:"hours"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	date, err := appointment.ParseDate(body.Date)
	if err != nil {
		return badRequest(c, err.Error())
	}
	kind, err := appointment.ParseSupervisionKind(body.Kind)
	if err != nil {
		return badRequest(c, err.Error())
	}

	entry, err := h.svc.AddSupervision(c.Context(), date, kind, body.Hours)
	if err != nil {
		return mapError(c, err)
	}
	return created(c, supervisionEntry(entry))
}

// DELETE /supervisions/:date
func (h *ScheduleHandler) DeleteSupervision(c fiber.Ctx) error {
	date, valid := dateParam(c, "date")
	if !valid {
		return badRequest(c, "invalid date")
	}
	if err := h.svc.DeleteSupervision(c.Context(), date); err != nil {
		return mapError(c, err)
	}
	return noContent(c)
}
