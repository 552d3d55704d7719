package handlers

import (
	"errors"
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/water-reports/internal/dto"
	"github.com/ahmetcoskunkizilkaya/water-reports/internal/services"
	"github.com/gofiber/fiber/v2"
)

type AuthHandler struct {
	authService *services.AuthService
}

func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	resp, err := h.authService.Login(&req)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			slog.Warn("admin login rejected", "action", "login", "ip", c.IP())
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error: true, Message: "Invalid email or password",
			})
		}
		slog.Error("admin login failed", "action", "login", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Login failed",
		})
	}

	return c.JSON(resp)
}
