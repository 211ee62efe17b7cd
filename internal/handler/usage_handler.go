package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/mansoorceksport/storeit/internal/service"
)

// UsageHandler serves storage usage endpoints
type UsageHandler struct {
	usageService *service.UsageService
}

func NewUsageHandler(usageService *service.UsageService) *UsageHandler {
	return &UsageHandler{usageService: usageService}
}

// GetUsage handles GET /v1/usage
func (h *UsageHandler) GetUsage(c *fiber.Ctx) error {
	report, err := h.usageService.GetUsage(c.UserContext(), currentUser(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    report,
	})
}

// GetDashboard handles GET /v1/dashboard
func (h *UsageHandler) GetDashboard(c *fiber.Ctx) error {
	dashboard, err := h.usageService.GetDashboard(c.UserContext(), currentUser(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    dashboard,
	})
}
