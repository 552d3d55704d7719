package middleware

import (
	"github.com/ahmetcoskunkizilkaya/water-reports/internal/config"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

func CORS(cfg *config.Config) fiber.Handler {
	return cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowHeaders:     "Origin, Content-Type, Authorization, Accept, Cache-Control",
		AllowMethods:     "GET, POST, PATCH, OPTIONS",
		AllowCredentials: false,
	})
}
