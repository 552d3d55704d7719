package handlers

import (
	"errors"
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/water-reports/internal/dto"
	"github.com/ahmetcoskunkizilkaya/water-reports/internal/storage"
	"github.com/gofiber/fiber/v2"
)

// ImageHandler serves stored report images at the URLs the gateway hands
// out.
type ImageHandler struct {
	objects storage.ObjectStore
}

func NewImageHandler(objects storage.ObjectStore) *ImageHandler {
	return &ImageHandler{objects: objects}
}

func (h *ImageHandler) Serve(c *fiber.Ctx) error {
	key := c.Params("key")
	if !storage.ValidKey(key) {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
			Error: true, Message: "Image not found",
		})
	}

	data, contentType, err := h.objects.Get(c.UserContext(), key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
				Error: true, Message: "Image not found",
			})
		}
		slog.Error("image read failed", "image_path", key, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to read image",
		})
	}

	if contentType == "" {
		contentType = storage.ContentTypeForKey(key)
	}
	c.Set(fiber.HeaderContentType, contentType)
	// Keys are never reused, so the bytes behind a URL never change.
	c.Set(fiber.HeaderCacheControl, "public, max-age=31536000, immutable")
	return c.Send(data)
}
