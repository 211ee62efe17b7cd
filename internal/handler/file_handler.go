package handler

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/mansoorceksport/storeit/internal/domain"
	"github.com/mansoorceksport/storeit/internal/service"
	"github.com/mansoorceksport/storeit/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

// FileHandler handles HTTP requests for file operations
type FileHandler struct {
	fileService *service.FileService
}

// NewFileHandler creates a new file handler
func NewFileHandler(fileService *service.FileService) *FileHandler {
	return &FileHandler{fileService: fileService}
}

type renameRequest struct {
	Name string `json:"name" validate:"required,max=255"`
}

type shareRequest struct {
	Emails []string `json:"emails"`
}

// cleanEmails trims entries and drops blanks before checking each address
func (r *shareRequest) cleanEmails() error {
	emails := make([]string, 0, len(r.Emails))
	for _, email := range r.Emails {
		email = strings.TrimSpace(email)
		if email == "" {
			continue
		}
		if err := validate.Var(email, "email"); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("%q is %s", email, describeTag("email")))
		}
		emails = append(emails, email)
	}
	r.Emails = emails
	return nil
}

// Upload handles POST /v1/files (multipart field "file")
func (h *FileHandler) Upload(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "missing 'file' field in form data",
		})
	}

	body, err := fileHeader.Open()
	if err != nil {
		return respondError(c, err)
	}
	defer body.Close()

	file, err := h.fileService.Upload(c.UserContext(), currentUser(c), service.UploadInput{
		Filename:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get(fiber.HeaderContentType),
		Size:        fileHeader.Size,
		Body:        body,
	})
	if err != nil {
		return respondError(c, err)
	}
	telemetry.AddSpanEvent(c, "file.uploaded",
		attribute.String("file.type", string(file.Type)),
		attribute.Int64("file.size", file.Size),
	)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    file,
	})
}

// List handles GET /v1/files?category=&types=&q=&sort=&limit=
func (h *FileHandler) List(c *fiber.Ctx) error {
	in := service.ListInput{
		Category: c.Query("category"),
		Search:   c.Query("q"),
		Sort:     c.Query("sort"),
		Limit:    int64(c.QueryInt("limit", 0)),
	}
	if types := c.Query("types"); types != "" {
		in.Types = strings.Split(types, ",")
	}

	files, err := h.fileService.List(c.UserContext(), currentUser(c), in)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"documents": files,
			"total":     len(files),
		},
	})
}

// Get handles GET /v1/files/:id
func (h *FileHandler) Get(c *fiber.Ctx) error {
	file, err := h.fileService.Get(c.UserContext(), currentUser(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    file,
	})
}

// Download handles GET /v1/files/:id/download by redirecting to a presigned URL
func (h *FileHandler) Download(c *fiber.Ctx) error {
	url, err := h.fileService.DownloadURL(c.UserContext(), currentUser(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.Redirect(url, fiber.StatusFound)
}

// Rename handles PATCH /v1/files/:id
func (h *FileHandler) Rename(c *fiber.Ctx) error {
	var req renameRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}

	file, err := h.fileService.Rename(c.UserContext(), currentUser(c), c.Params("id"), req.Name)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    file,
	})
}

// UpdateShares handles PUT /v1/files/:id/users
func (h *FileHandler) UpdateShares(c *fiber.Ctx) error {
	var req shareRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}
	if err := req.cleanEmails(); err != nil {
		return respondError(c, err)
	}

	file, err := h.fileService.UpdateShares(c.UserContext(), currentUser(c), c.Params("id"), req.Emails)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    file,
	})
}

// Options handles GET /v1/files/options: the sort keys and type filters List accepts
func (h *FileHandler) Options(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"sort_options": domain.SortOptions,
			"default_sort": domain.DefaultSortKey,
			"types":        domain.AllFileTypes,
		},
	})
}

// Delete handles DELETE /v1/files/:id
func (h *FileHandler) Delete(c *fiber.Ctx) error {
	if err := h.fileService.Delete(c.UserContext(), currentUser(c), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "File deleted",
	})
}
