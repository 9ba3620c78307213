package documents

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"docproc-backend/internal/extract"
	"docproc-backend/internal/llm"
	"docproc-backend/internal/shared/server/middleware"
	"docproc-backend/internal/shared/server/respond"
)

// multipartOverhead is the slack allowed on top of the file limit for form
// boundaries and headers.
const multipartOverhead = 1 << 20

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches document routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/formats", h.formats)
	rg.POST("/documents/upload", h.upload)
	rg.GET("/documents", h.list)
	rg.GET("/documents/:id", h.get)
	rg.POST("/documents/:id/extract-text", h.extract)
	rg.POST("/documents/:id/summarize", h.summarize)
	rg.POST("/documents/:id/analyze", h.analyze)
}

func (h *Handler) formats(c *gin.Context) {
	formats := h.Svc.SupportedTypes()
	if formats == nil {
		formats = []string{}
	}
	respond.OK(c, gin.H{"formats": formats})
}

func (h *Handler) upload(c *gin.Context) {
	limit := h.Svc.maxUploadBytes()
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+multipartOverhead)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respond.Error(c, http.StatusRequestEntityTooLarge, "file_too_large", ErrTooLarge.Error(), gin.H{"limitBytes": limit})
			return
		}
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", nil)
		return
	}

	rawOwner := c.PostForm("userId")
	if strings.TrimSpace(rawOwner) == "" {
		rawOwner = middleware.UserIDFromContext(c)
	}
	userID, err := parseOwner(rawOwner)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "userId must be a positive integer", nil)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}
	defer file.Close()

	doc, err := h.Svc.Upload(c.Request.Context(), UploadInput{
		OriginalName: fileHeader.Filename,
		MimeType:     BaseMediaType(fileHeader.Header.Get("Content-Type")),
		Size:         fileHeader.Size,
		Body:         file,
		UserID:       userID,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrTooLarge):
			respond.Error(c, http.StatusRequestEntityTooLarge, "file_too_large", err.Error(), gin.H{"limitBytes": limit})
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), gin.H{"supported": h.Svc.SupportedTypes()})
		default:
			respond.Error(c, http.StatusInternalServerError, "upload_failed", "failed to upload document", nil)
		}
		return
	}

	c.Set("documentId", doc.ID)
	c.Set("statusTransition", "->pending")
	respond.JSON(c, http.StatusCreated, ToResponse(doc))
}

func (h *Handler) list(c *gin.Context) {
	userID, err := parseOwner(c.Query("userId"))
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "userId must be a positive integer", nil)
		return
	}
	docs, err := h.Svc.List(c.Request.Context(), userID)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "list_failed", "failed to list documents", nil)
		return
	}
	respond.OK(c, toResponses(docs))
}

func (h *Handler) get(c *gin.Context) {
	id, ok := documentID(c)
	if !ok {
		return
	}
	doc, err := h.Svc.Get(c.Request.Context(), id)
	if err != nil {
		writeLookupError(c, err)
		return
	}
	respond.OK(c, ToResponse(doc))
}

func (h *Handler) extract(c *gin.Context) {
	id, ok := documentID(c)
	if !ok {
		return
	}

	if c.Query("async") == "true" {
		doc, err := h.Svc.ExtractAsync(c.Request.Context(), id)
		if err != nil {
			writeLookupError(c, err)
			return
		}
		respond.JSON(c, http.StatusAccepted, ToResponse(doc))
		return
	}

	out, err := h.Svc.Extract(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", err.Error(), nil)
			return
		}
		c.Set("statusTransition", "processing->error")
		respond.Error(c, http.StatusInternalServerError, extractionCode(err), UserMessage(err), gin.H{"documentId": id})
		return
	}

	c.Set("statusTransition", "processing->completed")
	respond.OK(c, ExtractionResponse{
		Text:     out.Text,
		Metadata: out.Metadata,
		Document: ToResponse(out.Document),
	})
}

func (h *Handler) summarize(c *gin.Context) {
	id, ok := documentID(c)
	if !ok {
		return
	}
	summary, doc, err := h.Svc.Summarize(c.Request.Context(), id)
	if err != nil {
		writeLLMError(c, err)
		return
	}
	respond.OK(c, SummaryResponse{Summary: summary, Document: ToResponse(doc)})
}

func (h *Handler) analyze(c *gin.Context) {
	id, ok := documentID(c)
	if !ok {
		return
	}
	analysis, err := h.Svc.Analyze(c.Request.Context(), id)
	if err != nil {
		writeLLMError(c, err)
		return
	}
	respond.OK(c, analysis)
}

// BaseMediaType drops parameters from a Content-Type value.
func BaseMediaType(contentType string) string {
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	return strings.TrimSpace(contentType)
}

func documentID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid document id", nil)
		return 0, false
	}
	c.Set("documentId", id)
	return id, true
}

func parseOwner(raw string) (*int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil, ErrInvalidInput
	}
	return &id, nil
}

func extractionCode(err error) string {
	var extErr *extract.ExtractionError
	switch {
	case errors.Is(err, extract.ErrTimeout):
		return "extraction_timeout"
	case errors.Is(err, extract.ErrFileNotFound):
		return "file_missing"
	case errors.Is(err, extract.ErrUnsupportedFormat):
		return "unsupported_format"
	case errors.As(err, &extErr):
		return "extraction_failed"
	}
	return "internal_error"
}

func writeLookupError(c *gin.Context, err error) {
	if errors.Is(err, ErrNotFound) {
		respond.Error(c, http.StatusNotFound, "not_found", err.Error(), nil)
		return
	}
	respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load document", nil)
}

func writeLLMError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", err.Error(), nil)
	case errors.Is(err, ErrPrecondition):
		respond.Error(c, http.StatusBadRequest, "precondition_failed", err.Error(), nil)
	case errors.Is(err, llm.ErrNotConfigured):
		respond.Error(c, http.StatusServiceUnavailable, "llm_unavailable", err.Error(), nil)
	default:
		respond.Error(c, http.StatusBadGateway, "llm_failed", UserMessage(err), nil)
	}
}
