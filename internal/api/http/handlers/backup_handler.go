package handlers

import (
	"bytes"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/service-desk/internal/service"
)

// BackupHandler exposes the local fallback store.
type BackupHandler struct {
	service *service.BackupService
}

// NewBackupHandler constructs handler.
func NewBackupHandler(backupService *service.BackupService) *BackupHandler {
	return &BackupHandler{service: backupService}
}

// Export GET /api/backup/export.
func (h *BackupHandler) Export(c *fiber.Ctx) error {
	var buf bytes.Buffer
	if err := h.service.Export(c.UserContext(), &buf); err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", h.service.ExportFileName()))
	return c.Send(buf.Bytes())
}

// Import POST /api/backup/import.
func (h *BackupHandler) Import(c *fiber.Ctx) error {
	count, err := h.service.Import(c.UserContext(), bytes.NewReader(c.Body()))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"imported": count}})
}

// Snapshot POST /api/backup/snapshot.
func (h *BackupHandler) Snapshot(c *fiber.Ctx) error {
	count, err := h.service.Snapshot(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"saved": count}})
}
