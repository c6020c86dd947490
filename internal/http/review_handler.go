package http

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/example/room-booking/internal/application"
	"github.com/example/room-booking/internal/persistence"
	"github.com/example/room-booking/internal/scheduler"
)

type reviewService interface {
	Approve(ctx context.Context, params application.ReviewParams) (application.ApproveResult, error)
	Reject(ctx context.Context, params application.RejectParams) (persistence.RoomRequest, error)
	PrepareRevert(ctx context.Context, params application.ReviewParams) (application.RevertPreview, error)
	Revert(ctx context.Context, params application.RevertParams) (application.RevertResult, error)
}

// ReviewHandler serves administrator decisions on requests.
type ReviewHandler struct {
	service   reviewService
	responder responder
}

func NewReviewHandler(service reviewService, logger *slog.Logger) *ReviewHandler {
	return &ReviewHandler{service: service, responder: newResponder(logger)}
}

func (h *ReviewHandler) Approve(c *gin.Context) {
	id, ok := h.begin(c)
	if !ok {
		return
	}
	result, err := h.service.Approve(c.Request.Context(), application.ReviewParams{
		Principal: principalFrom(c),
		RequestID: id,
	})
	if err != nil {
		h.responder.handleServiceError(c, err)
		return
	}
	h.responder.writeJSON(c, http.StatusOK, approveResponse{
		Request: toRequestDTO(result.Request),
		Written: result.Written,
	})
}

func (h *ReviewHandler) Reject(c *gin.Context) {
	id, ok := h.begin(c)
	if !ok {
		return
	}
	var body rejectBody
	if !h.bindOptional(c, &body) {
		return
	}
	req, err := h.service.Reject(c.Request.Context(), application.RejectParams{
		Principal: principalFrom(c),
		RequestID: id,
		Reason:    body.Reason,
	})
	if err != nil {
		h.responder.handleServiceError(c, err)
		return
	}
	h.responder.writeJSON(c, http.StatusOK, requestResponse{Request: toRequestDTO(req)})
}

func (h *ReviewHandler) PrepareRevert(c *gin.Context) {
	id, ok := h.begin(c)
	if !ok {
		return
	}
	preview, err := h.service.PrepareRevert(c.Request.Context(), application.ReviewParams{
		Principal: principalFrom(c),
		RequestID: id,
	})
	if err != nil {
		h.responder.handleServiceError(c, err)
		return
	}
	h.responder.writeJSON(c, http.StatusOK, revertPreviewResponse{
		Request:      toRequestDTO(preview.Request),
		Cells:        preview.Cells,
		Confirmation: preview.Confirmation,
		ExpiresAt:    preview.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

func (h *ReviewHandler) Revert(c *gin.Context) {
	id, ok := h.begin(c)
	if !ok {
		return
	}
	var body revertBody
	if !h.bindOptional(c, &body) {
		return
	}
	result, err := h.service.Revert(c.Request.Context(), application.RevertParams{
		Principal:    principalFrom(c),
		RequestID:    id,
		Confirmation: body.Confirmation,
	})
	if err != nil {
		h.responder.handleServiceError(c, err)
		return
	}
	if len(result.Failed) > 0 {
		handlerLogger(c.Request.Context(), h.responder.logger, "ReviewHandler", "Revert", "request_id", id).
			WarnContext(c.Request.Context(), "revert left cells behind", "failed", len(result.Failed), "targeted", result.Targeted)
	}
	h.responder.writeJSON(c, http.StatusOK, revertResponse{
		Request:  toRequestDTO(result.Request),
		Targeted: result.Targeted,
		Deleted:  result.Deleted,
		Failed:   append([]scheduler.Cell{}, result.Failed...),
	})
}

func (h *ReviewHandler) begin(c *gin.Context) (string, bool) {
	if h == nil || h.service == nil {
		c.AbortWithStatus(http.StatusInternalServerError)
		return "", false
	}
	id, ok := requestIDParam(c)
	if !ok {
		h.responder.writeError(c, http.StatusBadRequest, errInvalidRequestID)
		return "", false
	}
	return id, true
}

// bindOptional decodes a JSON body when one is present.
func (h *ReviewHandler) bindOptional(c *gin.Context, target any) bool {
	if err := c.ShouldBindJSON(target); err != nil && !errors.Is(err, io.EOF) {
		h.responder.writeError(c, http.StatusBadRequest, errBadRequestBody)
		return false
	}
	return true
}

type rejectBody struct {
	Reason string `json:"reason"`
}

type revertBody struct {
	Confirmation string `json:"confirmation"`
}

type approveResponse struct {
	Request requestDTO `json:"request"`
	Written int        `json:"written"`
}

type revertPreviewResponse struct {
	Request      requestDTO `json:"request"`
	Cells        int        `json:"cells"`
	Confirmation string     `json:"confirmation"`
	ExpiresAt    string     `json:"expires_at"`
}

type revertResponse struct {
	Request  requestDTO       `json:"request"`
	Targeted int              `json:"targeted"`
	Deleted  int              `json:"deleted"`
	Failed   []scheduler.Cell `json:"failed"`
}
