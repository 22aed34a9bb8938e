package http

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"sift_server/core/domain"
	"sift_server/core/port/in"
	"sift_server/pkg/apperr"
	"sift_server/pkg/logger"
	"sift_server/pkg/response"
)

type EmailHandler struct {
	processService in.ProcessService
}

func NewEmailHandler(processService in.ProcessService) *EmailHandler {
	return &EmailHandler{processService: processService}
}

func (h *EmailHandler) Register(app fiber.Router) {
	api := app.Group("/api")
	api.Post("/process-emails", h.ProcessEmails)
	api.Get("/emails", h.ListEmails)
	api.Get("/emails/:id", h.GetEmail)
}

// emailDTO is the wire representation of a classified email. The verdict is
// flattened: LLM runs carry importance_level, rule runs carry categories.
type emailDTO struct {
	ID              string   `json:"id"`
	Subject         string   `json:"subject"`
	From            string   `json:"from"`
	FromName        string   `json:"from_name,omitempty"`
	FromEmail       string   `json:"from_email,omitempty"`
	Summary         string   `json:"summary"`
	Mode            string   `json:"mode"`
	ImportanceLevel string   `json:"importance_level,omitempty"`
	Categories      []string `json:"categories,omitempty"`
	IsImportant     bool     `json:"is_important"`
	HasDeadline     bool     `json:"has_deadline"`
	ProcessedAt     string   `json:"processed_at"`
	ReceivedTime    string   `json:"received_time,omitempty"`
}

func toEmailDTO(e *domain.ProcessedEmail) emailDTO {
	dto := emailDTO{
		ID:           e.ID,
		Subject:      e.Subject,
		From:         e.FromRaw,
		FromName:     e.FromName,
		FromEmail:    e.FromEmail,
		Summary:      e.Summary,
		IsImportant:  e.IsImportant,
		HasDeadline:  e.HasDeadline,
		ProcessedAt:  e.ProcessedAt.UTC().Format(time.RFC3339),
		ReceivedTime: e.ReceivedTime,
	}
	if e.Verdict != nil {
		dto.Mode = e.Verdict.Mode()
	}
	if level, ok := e.ImportanceLevel(); ok {
		dto.ImportanceLevel = string(level)
	}
	if cats, ok := e.Categories(); ok {
		for _, cat := range cats {
			dto.Categories = append(dto.Categories, string(cat))
		}
	}
	return dto
}

// ProcessEmails runs one triage pass over the unread inbox.
// POST /api/process-emails
func (h *EmailHandler) ProcessEmails(c *fiber.Ctx) error {
	result, err := h.processService.ProcessInbox(c.Context())
	if err != nil {
		if appErr, ok := apperr.AsAppError(err); ok {
			return appErr
		}
		logger.WithError(err).Error("Inbox processing failed")
		return apperr.Internal("failed to process inbox", err)
	}

	dtos := make([]emailDTO, 0, len(result.Emails))
	for _, e := range result.Emails {
		dtos = append(dtos, toEmailDTO(e))
	}

	return response.OKWithMeta(c, fiber.Map{
		"emails":  dtos,
		"fetched": result.Fetched,
		"skipped": result.Skipped,
	}, &response.Meta{Total: len(dtos), Method: result.Method})
}

// ListEmails returns previously processed emails, newest first.
// GET /api/emails?limit=50&fields=id,subject,summary
func (h *EmailHandler) ListEmails(c *fiber.Ctx) error {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 500 {
			return response.BadRequest(c, "limit must be an integer between 1 and 500")
		}
		limit = parsed
	}

	emails, err := h.processService.ListProcessed(c.Context(), limit)
	if err != nil {
		logger.WithError(err).Error("Failed to list processed emails")
		return apperr.Internal("failed to list emails", err)
	}

	dtos := make([]emailDTO, 0, len(emails))
	for _, e := range emails {
		dtos = append(dtos, toEmailDTO(e))
	}

	return response.OKWithMeta(c, response.SelectFields(c, dtos), &response.Meta{Total: len(dtos)})
}

// GetEmail returns one processed email by message ID.
// GET /api/emails/:id
func (h *EmailHandler) GetEmail(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return response.BadRequest(c, "email id is required")
	}

	email, err := h.processService.GetProcessed(c.Context(), id)
	if err != nil {
		logger.WithError(err).WithField("email_id", id).Error("Failed to load processed email")
		return apperr.Internal("failed to load email", err)
	}
	if email == nil {
		return response.NotFound(c, "email not found")
	}

	return response.OK(c, toEmailDTO(email))
}
