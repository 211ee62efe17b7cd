package handler

import (
	"errors"
	"log"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/mansoorceksport/storeit/internal/domain"
	"github.com/mansoorceksport/storeit/internal/middleware"
	"github.com/mansoorceksport/storeit/internal/service"
)

var validate = validator.New()

// parseBody decodes the JSON body into req and runs its validate tags
func parseBody(c *fiber.Ctx, req interface{}) error {
	if err := c.BodyParser(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, strings.ToLower(fe.Field())+" is "+describeTag(fe.Tag()))
			}
			return fiber.NewError(fiber.StatusBadRequest, strings.Join(fields, "; "))
		}
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return nil
}

func describeTag(tag string) string {
	switch tag {
	case "required":
		return "required"
	case "email":
		return "not a valid email"
	case "len", "numeric":
		return "malformed"
	default:
		return "invalid"
	}
}

// currentUser builds the caller from the session claims
func currentUser(c *fiber.Ctx) *domain.User {
	return &domain.User{
		ID:        middleware.GetUserID(c),
		Email:     middleware.GetEmail(c),
		AccountID: middleware.GetAccountID(c),
	}
}

// statusFor maps service errors to HTTP status codes
func statusFor(err error) int {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe.Code
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrUserNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, domain.ErrForbidden):
		return fiber.StatusForbidden
	case errors.Is(err, domain.ErrInvalidName), errors.Is(err, domain.ErrEmptyFile):
		return fiber.StatusBadRequest
	case errors.Is(err, domain.ErrFileTooLarge):
		return fiber.StatusRequestEntityTooLarge
	case errors.Is(err, domain.ErrRateLimited):
		return fiber.StatusTooManyRequests
	case errors.Is(err, domain.ErrInvalidCode),
		errors.Is(err, domain.ErrCodeExpired),
		errors.Is(err, domain.ErrTooManyAttempts),
		errors.Is(err, service.ErrInvalidRefreshToken):
		return fiber.StatusUnauthorized
	case errors.Is(err, domain.ErrUserExists):
		return fiber.StatusConflict
	case errors.Is(err, service.ErrFirebaseDisabled):
		return fiber.StatusNotImplemented
	default:
		return fiber.StatusInternalServerError
	}
}

// respondError writes the error envelope. Unexpected errors are logged and hidden.
func respondError(c *fiber.Ctx, err error) error {
	status := statusFor(err)
	message := err.Error()
	if status == fiber.StatusInternalServerError {
		log.Printf("❌ %s %s: %v", c.Method(), c.Path(), err)
		message = "internal server error"
	}
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"error":   message,
	})
}
