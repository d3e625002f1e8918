package handler

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v3"

	"github.com/Alijeyrad/ambulanz_backend/internal/appointment"
	"github.com/Alijeyrad/ambulanz_backend/internal/service/report"
	"github.com/Alijeyrad/ambulanz_backend/internal/service/scheduling"
	"github.com/Alijeyrad/ambulanz_backend/internal/service/transfer"
	"github.com/Alijeyrad/ambulanz_backend/internal/store"
)

// mapError turns service errors into the JSON error envelope. Rejected
// operations never changed anything, so the message is safe to show.
func mapError(c fiber.Ctx, err error) error {
	var quota *scheduling.QuotaExceededError
	switch {
	case errors.As(err, &quota):
		dates := make([]string, len(quota.Dates))
		for i, d := range quota.Dates {
			dates[i] = d.Format(appointment.DateLayout)
		}
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error":   err.Error(),
			"quarter": quota.Quarter.String(),
			"dates":   dates,
		})

	case errors.Is(err, scheduling.ErrClientNotFound),
		errors.Is(err, scheduling.ErrAppointmentNotFound),
		errors.Is(err, scheduling.ErrSupervisionNotFound):
		return notFound(c, err.Error())

	case errors.Is(err, scheduling.ErrInvalidTransition),
		errors.Is(err, scheduling.ErrClientExists),
		errors.Is(err, scheduling.ErrSupervisionExists):
		return conflict(c, err.Error())

	case errors.Is(err, scheduling.ErrInvalidRange),
		errors.Is(err, report.ErrInvalidPractice),
		errors.Is(err, report.ErrInvalidInput),
		errors.Is(err, transfer.ErrInvalidFile):
		return unprocessable(c, err.Error())

	case errors.Is(err, store.ErrPersistence):
		slog.ErrorContext(c.Context(), "schedule not persisted", "path", c.Path(), "err", err)
		return unavailable(c, store.ErrPersistence.Error())

	case errors.Is(err, transfer.ErrBackupDisabled):
		return unavailable(c, err.Error())

	default:
		slog.ErrorContext(c.Context(), "request failed", "path", c.Path(), "err", err)
		return internalError(c)
	}
}
