// Package v1 provides the versioned REST handlers.
package v1

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/roundtable/internal/domain"
	"github.com/xiaot623/roundtable/internal/service"
)

// Handler handles HTTP requests.
type Handler struct {
	service *service.Service
}

// NewHandler creates a new handler.
func NewHandler(service *service.Service) *Handler {
	return &Handler{
		service: service,
	}
}

// RegisterRoutes registers routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	// Discussions
	e.POST("/v1/discussions", h.CreateDiscussion)
	e.GET("/v1/discussions", h.ListDiscussions)
	e.GET("/v1/discussions/:discussion_id", h.GetDiscussion)
	e.GET("/v1/discussions/:discussion_id/participants", h.GetParticipants)

	// Messages
	e.GET("/v1/discussions/:discussion_id/messages", h.GetMessages)
	e.POST("/v1/discussions/:discussion_id/messages", h.SubmitMessage)

	// Runs
	e.GET("/v1/discussions/:discussion_id/runs", h.ListRuns)
	e.GET("/v1/runs/:run_id", h.GetRun)

	e.GET("/health", h.Health)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": "0.1.0",
	})
}

// errorResponse maps service errors onto status codes.
func errorResponse(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrDiscussionNotFound), errors.Is(err, domain.ErrRunNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidParent), errors.Is(err, domain.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrSubmissionRejected):
		status = http.StatusUnprocessableEntity
	}
	return c.JSON(status, map[string]string{"error": err.Error()})
}
