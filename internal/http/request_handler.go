package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/example/room-booking/internal/application"
	"github.com/example/room-booking/internal/persistence"
)

type requestService interface {
	Submit(ctx context.Context, params application.SubmitRequestParams) (persistence.RoomRequest, error)
	List(ctx context.Context, params application.ListRequestsParams) ([]persistence.RoomRequest, error)
	Get(ctx context.Context, principal application.Principal, id string) (persistence.RoomRequest, error)
}

// RequestHandler serves request submission and listing.
type RequestHandler struct {
	service   requestService
	responder responder
}

func NewRequestHandler(service requestService, logger *slog.Logger) *RequestHandler {
	return &RequestHandler{service: service, responder: newResponder(logger)}
}

func (h *RequestHandler) Submit(c *gin.Context) {
	if h == nil || h.service == nil {
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	var body submitRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.responder.writeError(c, http.StatusBadRequest, errBadRequestBody)
		return
	}

	req, err := h.service.Submit(c.Request.Context(), application.SubmitRequestParams{
		Principal: principalFrom(c),
		Input:     body.toInput(),
	})
	if err != nil {
		h.responder.handleServiceError(c, err)
		return
	}
	h.responder.writeJSON(c, http.StatusCreated, requestResponse{Request: toRequestDTO(req)})
}

func (h *RequestHandler) List(c *gin.Context) {
	if h == nil || h.service == nil {
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	params := application.ListRequestsParams{
		Principal: principalFrom(c),
		RoomCode:  strings.TrimSpace(c.Query("room")),
	}
	statuses, ok := parseStatuses(c.Query("status"))
	if !ok {
		h.responder.writeError(c, http.StatusBadRequest, errInvalidStatusList)
		return
	}
	params.Statuses = statuses
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			h.responder.writeError(c, http.StatusBadRequest, errBadRequestBody)
			return
		}
		params.Limit = limit
	}

	requests, err := h.service.List(c.Request.Context(), params)
	if err != nil {
		h.responder.handleServiceError(c, err)
		return
	}
	h.responder.writeJSON(c, http.StatusOK, listRequestsResponse{Requests: toRequestDTOs(requests)})
}

func (h *RequestHandler) Get(c *gin.Context) {
	if h == nil || h.service == nil {
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	id, ok := requestIDParam(c)
	if !ok {
		h.responder.writeError(c, http.StatusBadRequest, errInvalidRequestID)
		return
	}
	req, err := h.service.Get(c.Request.Context(), principalFrom(c), id)
	if err != nil {
		h.responder.handleServiceError(c, err)
		return
	}
	h.responder.writeJSON(c, http.StatusOK, requestResponse{Request: toRequestDTO(req)})
}

func requestIDParam(c *gin.Context) (string, bool) {
	id := strings.TrimSpace(c.Param("id"))
	return id, id != ""
}

func parseStatuses(raw string) ([]persistence.RequestStatus, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, true
	}
	var statuses []persistence.RequestStatus
	for _, part := range strings.Split(raw, ",") {
		status := persistence.RequestStatus(strings.TrimSpace(part))
		if !status.Valid() {
			return nil, false
		}
		statuses = append(statuses, status)
	}
	return statuses, true
}

type submitRequestBody struct {
	RoomCode     string `json:"room_code"`
	BuildingCode string `json:"building_code"`
	BaseDate     string `json:"base_date"`
	StartHour    string `json:"start_hour"`
	EndHour      string `json:"end_hour"`
	SlotCategory string `json:"slot_category"`
	WeekCount    int    `json:"week_count"`
	CourseName   string `json:"course_name"`
	BookedBy     string `json:"booked_by"`
	Notes        string `json:"notes"`
}

func (b submitRequestBody) toInput() application.RequestInput {
	return application.RequestInput{
		RoomCode:     strings.TrimSpace(b.RoomCode),
		BuildingCode: strings.TrimSpace(b.BuildingCode),
		BaseDate:     strings.TrimSpace(b.BaseDate),
		StartHour:    strings.TrimSpace(b.StartHour),
		EndHour:      strings.TrimSpace(b.EndHour),
		SlotCategory: strings.TrimSpace(b.SlotCategory),
		WeekCount:    b.WeekCount,
		CourseName:   b.CourseName,
		BookedBy:     b.BookedBy,
		Notes:        b.Notes,
	}
}

type requestResponse struct {
	Request requestDTO `json:"request"`
}

type listRequestsResponse struct {
	Requests []requestDTO `json:"requests"`
}

type requestDTO struct {
	ID              string `json:"id"`
	RequesterID     string `json:"requester_id"`
	RequesterName   string `json:"requester_name,omitempty"`
	RoomCode        string `json:"room_code"`
	BuildingCode    string `json:"building_code,omitempty"`
	BaseDate        string `json:"base_date"`
	StartHour       string `json:"start_hour"`
	EndHour         string `json:"end_hour"`
	SlotCategory    string `json:"slot_category,omitempty"`
	WeekCount       int    `json:"week_count"`
	CourseName      string `json:"course_name,omitempty"`
	BookedBy        string `json:"booked_by,omitempty"`
	Notes           string `json:"notes,omitempty"`
	Status          string `json:"status"`
	ReviewerID      string `json:"reviewer_id,omitempty"`
	ReviewerName    string `json:"reviewer_name,omitempty"`
	RejectionReason string `json:"rejection_reason,omitempty"`
	CreatedAt       string `json:"created_at"`
	ReviewedAt      string `json:"reviewed_at,omitempty"`
}

func toRequestDTO(req persistence.RoomRequest) requestDTO {
	dto := requestDTO{
		ID:              req.ID,
		RequesterID:     req.RequesterID,
		RequesterName:   req.RequesterName,
		RoomCode:        req.RoomCode,
		BuildingCode:    req.BuildingCode,
		BaseDate:        req.BaseDate,
		StartHour:       req.StartHour,
		EndHour:         req.EndHour,
		SlotCategory:    req.SlotCategory,
		WeekCount:       req.WeekCount,
		CourseName:      req.CourseName,
		BookedBy:        req.BookedBy,
		Notes:           req.Notes,
		Status:          string(req.Status),
		ReviewerID:      req.ReviewerID,
		ReviewerName:    req.ReviewerName,
		RejectionReason: req.RejectionReason,
		CreatedAt:       req.CreatedAt.UTC().Format(time.RFC3339),
	}
	if req.ReviewedAt != nil {
		dto.ReviewedAt = req.ReviewedAt.UTC().Format(time.RFC3339)
	}
	return dto
}

func toRequestDTOs(requests []persistence.RoomRequest) []requestDTO {
	result := make([]requestDTO, 0, len(requests))
	for _, req := range requests {
		result = append(result, toRequestDTO(req))
	}
	return result
}
