package handler

import (
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/Alijeyrad/ambulanz_backend/internal/appointment"
	"github.com/Alijeyrad/ambulanz_backend/internal/catalog"
	"github.com/Alijeyrad/ambulanz_backend/internal/service/scheduling"
)

type ClientHandler struct {
	svc scheduling.Service
}

func NewClientHandler(svc scheduling.Service) *ClientHandler {
	return &ClientHandler{svc: svc}
}

type chainResponse struct {
	ClientID     string  `json:"client_id"`
	Appointments []Entry `json:"appointments"`
}

func chainResult(c fiber.Ctx, clientID string, chain appointment.Chain) error {
	return ok(c, chainResponse{ClientID: clientID, Appointments: chainEntries(chain)})
}

// ---------------------------------------------------------------------------
// Clients
// ---------------------------------------------------------------------------

// GET /clients
func (h *ClientHandler) List(c fiber.Ctx) error {
	return ok(c, h.svc.Clients(c.Context()))
}

// POST /clients
func (h *ClientHandler) Onboard(c fiber.Ctx) error {
	var body struct {
		ClientID  string `json:"client_id"`
		StartDate string `json:"start_date"`
		Count     int    `json:"count"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	start, err := appointment.ParseDate(body.StartDate)
	if err != nil {
		return badRequest(c, err.Error())
	}

	chain, err := h.svc.Onboard(c.Context(), body.ClientID, start, body.Count)
	if err != nil {
		return mapError(c, err)
	}
	return created(c, chainResponse{ClientID: strings.TrimSpace(body.ClientID), Appointments: chainEntries(chain)})
}

// GET /clients/:client/appointments
func (h *ClientHandler) Chain(c fiber.Ctx) error {
	clientID := c.Params("client")
	chain := h.svc.Chain(c.Context(), clientID)
	if len(chain) == 0 {
		return notFound(c, scheduling.ErrClientNotFound.Error())
	}
	return chainResult(c, clientID, chain)
}

// GET /clients/:client/overview
func (h *ClientHandler) Overview(c fiber.Ctx) error {
	ov, err := h.svc.Overview(c.Context(), c.Params("client"))
	if err != nil {
		return mapError(c, err)
	}
	return ok(c, ov)
}

// ---------------------------------------------------------------------------
// Phases
// ---------------------------------------------------------------------------

// POST /clients/:client/phases
func (h *ClientHandler) StartPhase(c fiber.Ctx) error {
	var body struct {
		SessionType string `json:"session_type"`
		StartNumber int    `json:"start_number"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	typ, err := catalog.ParseSessionType(body.SessionType)
	if err != nil {
		return badRequest(c, err.Error())
	}
	if body.StartNumber == 0 {
		body.StartNumber = 1
	}

	clientID := c.Params("client")
	chain, err := h.svc.StartPhase(c.Context(), clientID, typ, body.StartNumber)
	if err != nil {
		return mapError(c, err)
	}
	return chainResult(c, clientID, chain)
}

// POST /clients/:client/conversion
func (h *ClientHandler) Convert(c fiber.Ctx) error {
	var body struct {
		FromNumber int `json:"from_number"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}

	clientID := c.Params("client")
	chain, err := h.svc.ConvertKZTToLZT(c.Context(), clientID, body.FromNumber)
	if err != nil {
		return mapError(c, err)
	}
	return chainResult(c, clientID, chain)
}

// ---------------------------------------------------------------------------
// Single appointments
// ---------------------------------------------------------------------------

// POST /clients/:client/appointments/:date/cancel
func (h *ClientHandler) Cancel(c fiber.Ctx) error {
	date, valid := dateParam(c, "date")
	if !valid {
		return badRequest(c, "invalid date")
	}

	clientID := c.Params("client")
	chain, err := h.svc.Cancel(c.Context(), clientID, date)
	if err != nil {
		return mapError(c, err)
	}
	return chainResult(c, clientID, chain)
}

// POST /clients/:client/appointments/:date/ptg
func (h *ClientHandler) MarkPTG(c fiber.Ctx) error {
	date, valid := dateParam(c, "date")
	if !valid {
		return badRequest(c, "invalid date")
	}

	clientID := c.Params("client")
	chain, err := h.svc.MarkPTG(c.Context(), clientID, date)
	if err != nil {
		return mapError(c, err)
	}
	return chainResult(c, clientID, chain)
}

// POST /clients/:client/appointments/:date/realign
func (h *ClientHandler) Realign(c fiber.Ctx) error {
	date, valid := dateParam(c, "date")
	if !valid {
		return badRequest(c, "invalid date")
	}
	var body struct {
		Weekday *int `json:"weekday"`
	}
	if err := c.Bind().JSON(&body); err != nil || body.Weekday == nil {
		return badRequest(c, "weekday is required (0 = Monday .. 6 = Sunday)")
	}

	clientID := c.Params("client")
	chain, err := h.svc.RealignWeekday(c.Context(), clientID, date, *body.Weekday)
	if err != nil {
		return mapError(c, err)
	}
	return chainResult(c, clientID, chain)
}

// POST /clients/:client/end
func (h *ClientHandler) End(c fiber.Ctx) error {
	var body struct {
		Date string `json:"date"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	date, err := appointment.ParseDate(body.Date)
	if err != nil {
		return badRequest(c, err.Error())
	}

	clientID := c.Params("client")
	chain, err := h.svc.EndTherapy(c.Context(), clientID, date)
	if err != nil {
		return mapError(c, err)
	}
	return chainResult(c, clientID, chain)
}
