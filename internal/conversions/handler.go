package conversions

import (
	"context"
	"errors"
	"io"
	"net/http"
	"path"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"docproc-backend/internal/documents"
	"docproc-backend/internal/shared/server/respond"
	"docproc-backend/internal/shared/telemetry"
)

const maxWait = 30 * time.Second

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches conversion routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/documents/:id/convert", h.create)
	rg.GET("/documents/:id/conversions", h.listByDocument)
	rg.GET("/conversions/:id", h.get)
	rg.GET("/conversions/:id/download", h.download)
}

func (h *Handler) create(c *gin.Context) {
	docID, ok := pathID(c, "documentId")
	if !ok {
		return
	}
	var req convertRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ToFormat == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "toFormat is required", gin.H{"formats": FormatNames()})
		return
	}

	conv, err := h.Svc.Create(c.Request.Context(), docID, req.ToFormat)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), gin.H{"formats": FormatNames()})
		case errors.Is(err, documents.ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", err.Error(), nil)
		default:
			respond.Error(c, http.StatusServiceUnavailable, "enqueue_failed", "failed to schedule conversion", nil)
		}
		return
	}

	c.Set("conversionId", conv.ID)
	c.Set("statusTransition", "->pending")
	respond.JSON(c, http.StatusAccepted, toResponse(conv))
}

func (h *Handler) listByDocument(c *gin.Context) {
	docID, ok := pathID(c, "documentId")
	if !ok {
		return
	}
	convs, err := h.Svc.ListByDocument(c.Request.Context(), docID)
	if err != nil {
		if errors.Is(err, documents.ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", err.Error(), nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "list_failed", "failed to list conversions", nil)
		return
	}
	out := make([]ConversionResponse, 0, len(convs))
	for _, conv := range convs {
		out = append(out, toResponse(conv))
	}
	respond.OK(c, out)
}

// get returns a conversion. With ?waitMs=N it blocks up to N milliseconds
// for the conversion to finish.
func (h *Handler) get(c *gin.Context) {
	id, ok := pathID(c, "conversionId")
	if !ok {
		return
	}

	var (
		conv Conversion
		err  error
	)
	if raw := c.Query("waitMs"); raw != "" {
		ms, perr := strconv.Atoi(raw)
		if perr != nil || ms < 0 {
			respond.Error(c, http.StatusBadRequest, "validation_error", "waitMs must be a non-negative integer", nil)
			return
		}
		wait := min(time.Duration(ms)*time.Millisecond, maxWait)
		ctx, cancel := context.WithTimeout(c.Request.Context(), wait)
		conv, err = h.Svc.Await(ctx, id)
		cancel()
		if errors.Is(err, context.DeadlineExceeded) {
			err = nil
		}
	} else {
		conv, err = h.Svc.Get(c.Request.Context(), id)
	}
	if err != nil {
		writeLookupError(c, err)
		return
	}
	respond.OK(c, toResponse(conv))
}

func (h *Handler) download(c *gin.Context) {
	id, ok := pathID(c, "conversionId")
	if !ok {
		return
	}
	body, conv, err := h.Svc.Open(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotReady) {
			respond.Error(c, http.StatusConflict, "not_ready", err.Error(), gin.H{"status": conv.Status})
			return
		}
		writeLookupError(c, err)
		return
	}
	defer body.Close()

	format, _ := LookupFormat(conv.ToFormat)
	c.Header("Content-Type", format.ContentType)
	c.Header("Content-Disposition", `attachment; filename="`+path.Base(*conv.OutputFilename)+`"`)
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, body); err != nil {
		telemetry.Warn("conversion.download.aborted", map[string]any{
			"conversion_id": id,
			"error":         err.Error(),
		})
	}
}

func pathID(c *gin.Context, key string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid id", nil)
		return 0, false
	}
	c.Set(key, id)
	return id, true
}

func writeLookupError(c *gin.Context, err error) {
	if errors.Is(err, ErrNotFound) {
		respond.Error(c, http.StatusNotFound, "not_found", err.Error(), nil)
		return
	}
	respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load conversion", nil)
}
