package handler

import (
	"bytes"

	"github.com/gofiber/fiber/v3"

	"github.com/Alijeyrad/ambulanz_backend/internal/service/transfer"
)

const exportFilename = "termine.csv"

type TransferHandler struct {
	svc transfer.Service
}

func NewTransferHandler(svc transfer.Service) *TransferHandler {
	return &TransferHandler{svc: svc}
}

// GET /export
func (h *TransferHandler) Export(c fiber.Ctx) error {
	var buf bytes.Buffer
	if _, err := h.svc.Export(c.Context(), &buf); err != nil {
		return mapError(c, err)
	}
	c.Attachment(exportFilename)
	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	return c.Send(buf.Bytes())
}

// POST /import
// Accepts a multipart upload in the "file" field or the raw CSV as body.
func (h *TransferHandler) Import(c fiber.Ctx) error {
	body := c.Body()
	if fh, err := c.FormFile("file"); err == nil {
		f, err := fh.Open()
		if err != nil {
			return badRequest(c, "unreadable upload")
		}
		defer f.Close()

		var buf bytes.Buffer
		if _, err := buf.ReadFrom(f); err != nil {
			return badRequest(c, "unreadable upload")
		}
		body = buf.Bytes()
	}
	if len(body) == 0 {
		return badRequest(c, "empty schedule file")
	}

	rows, err := h.svc.Import(c.Context(), bytes.NewReader(body))
	if err != nil {
		return mapError(c, err)
	}
	return ok(c, fiber.Map{"rows": rows})
}

// POST /export/backup
func (h *TransferHandler) Backup(c fiber.Ctx) error {
	b, err := h.svc.Backup(c.Context())
	if err != nil {
		return mapError(c, err)
	}
	return created(c, b)
}
