package router

import (
	"github.com/gofiber/fiber/v3"

	"github.com/Alijeyrad/ambulanz_backend/internal/api/http/handler"
)

func (r *Router) registerClientRoutes(api fiber.Router, ch *handler.ClientHandler) {
	clients := api.Group("/clients")

	clients.Get("/", ch.List)
	clients.Post("/", ch.Onboard)

	clients.Get("/:client/appointments", ch.Chain)
	clients.Get("/:client/overview", ch.Overview)

	clients.Post("/:client/phases", ch.StartPhase)
	clients.Post("/:client/conversion", ch.Convert)
	clients.Post("/:client/end", ch.End)

	clients.Post("/:client/appointments/:date/cancel", ch.Cancel)
	clients.Post("/:client/appointments/:date/ptg", ch.MarkPTG)
	clients.Post("/:client/appointments/:date/realign", ch.Realign)
}

func (r *Router) registerScheduleRoutes(api fiber.Router, sh *handler.ScheduleHandler) {
	api.Post("/absences", sh.Absence)
	api.Get("/appointments", sh.Appointments)

	api.Get("/supervisions", sh.ListSupervisions)
	api.Post("/supervisions", sh.AddSupervision)
	api.Delete("/supervisions/:date", sh.DeleteSupervision)
}
