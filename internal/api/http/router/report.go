package router

import (
	"github.com/gofiber/fiber/v3"

	"github.com/Alijeyrad/ambulanz_backend/internal/api/http/handler"
)

func (r *Router) registerReportRoutes(api fiber.Router, rh *handler.ReportHandler) {
	api.Get("/calendar/events", rh.Calendar)

	reports := api.Group("/reports")
	reports.Get("/quarters/:quarter", rh.Forecast)
	reports.Get("/supervision", rh.Supervision)
	reports.Get("/progress", rh.Progress)
	reports.Post("/capacity", rh.Capacity)
}

func (r *Router) registerTransferRoutes(api fiber.Router, th *handler.TransferHandler) {
	api.Get("/export", th.Export)
	api.Post("/export/backup", th.Backup)
	api.Post("/import", th.Import)
}
