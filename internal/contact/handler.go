// Package contact accepts contact-form messages. Submissions are logged,
// not delivered.
package contact

import (
	"net/http"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"docproc-backend/internal/shared/server/respond"
	"docproc-backend/internal/shared/telemetry"
)

const maxMessageRunes = 5000

// Submission is a contact-form message. Subject is optional.
type Submission struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

type Handler struct{}

func NewHandler() *Handler {
	return &Handler{}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/contact", h.submit)
}

func (h *Handler) submit(c *gin.Context) {
	var in Submission
	if err := c.ShouldBindJSON(&in); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Message = strings.TrimSpace(in.Message)

	var missing []string
	if in.Name == "" {
		missing = append(missing, "name")
	}
	if in.Email == "" {
		missing = append(missing, "email")
	}
	if in.Message == "" {
		missing = append(missing, "message")
	}
	if len(missing) > 0 {
		respond.Error(c, http.StatusBadRequest, "validation_error", "missing required fields", gin.H{"fields": missing})
		return
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid email address", nil)
		return
	}
	if utf8.RuneCountInString(in.Message) > maxMessageRunes {
		respond.Error(c, http.StatusBadRequest, "validation_error", "message too long", gin.H{"maxLength": maxMessageRunes})
		return
	}

	telemetry.Info("contact.submitted", map[string]any{
		"request_id": telemetry.RequestIDFromContext(c.Request.Context()),
		"name":       in.Name,
		"email":      in.Email,
		"subject":    in.Subject,
		"length":     utf8.RuneCountInString(in.Message),
	})
	respond.OK(c, gin.H{"message": "Message sent successfully"})
}
