package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/example/room-booking/internal/application"
	"github.com/example/room-booking/internal/persistence"
	"github.com/example/room-booking/internal/scheduler"
)

type viewService interface {
	Day(ctx context.Context, params application.DayViewParams) (application.DayView, error)
}

type scheduleService interface {
	SetEntry(ctx context.Context, params application.SetEntryParams) (persistence.ScheduleEntry, error)
	ClearEntry(ctx context.Context, params application.ClearEntryParams) error
}

// ScheduleHandler serves the day grid and direct cell edits.
type ScheduleHandler struct {
	views     viewService
	schedule  scheduleService
	responder responder
}

func NewScheduleHandler(views viewService, schedule scheduleService, logger *slog.Logger) *ScheduleHandler {
	return &ScheduleHandler{views: views, schedule: schedule, responder: newResponder(logger)}
}

func (h *ScheduleHandler) Day(c *gin.Context) {
	if h == nil || h.views == nil {
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	view, err := h.views.Day(c.Request.Context(), application.DayViewParams{
		Principal: principalFrom(c),
		Date:      strings.TrimSpace(c.Param("date")),
		Rooms:     splitList(c.Query("rooms")),
	})
	if err != nil {
		h.responder.handleServiceError(c, err)
		return
	}
	h.responder.writeJSON(c, http.StatusOK, dayViewResponse{
		Grid:    view.Grid,
		Blocked: append([]scheduler.Cell{}, view.Blocked...),
	})
}

func (h *ScheduleHandler) SetEntry(c *gin.Context) {
	if h == nil || h.schedule == nil {
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	var body entryBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.responder.writeError(c, http.StatusBadRequest, errBadRequestBody)
		return
	}
	entry, err := h.schedule.SetEntry(c.Request.Context(), application.SetEntryParams{
		Principal: principalFrom(c),
		Input: application.EntryInput{
			Date:       c.Param("date"),
			RoomCode:   c.Param("room"),
			SlotHour:   c.Param("slot"),
			Status:     persistence.EntryStatus(strings.TrimSpace(body.Status)),
			CourseName: body.CourseName,
			BookedBy:   body.BookedBy,
		},
	})
	if err != nil {
		h.responder.handleServiceError(c, err)
		return
	}
	h.responder.writeJSON(c, http.StatusOK, entryResponse{Entry: toEntryDTO(entry)})
}

func (h *ScheduleHandler) ClearEntry(c *gin.Context) {
	if h == nil || h.schedule == nil {
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	err := h.schedule.ClearEntry(c.Request.Context(), application.ClearEntryParams{
		Principal: principalFrom(c),
		Date:      c.Param("date"),
		RoomCode:  c.Param("room"),
		SlotHour:  c.Param("slot"),
	})
	if err != nil {
		h.responder.handleServiceError(c, err)
		return
	}
	h.responder.writeJSON(c, http.StatusNoContent, nil)
}

func splitList(raw string) []string {
	var values []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			values = append(values, part)
		}
	}
	return values
}

type entryBody struct {
	Status     string `json:"status"`
	CourseName string `json:"course_name"`
	BookedBy   string `json:"booked_by"`
}

type dayViewResponse struct {
	Grid    scheduler.DayGrid `json:"grid"`
	Blocked []scheduler.Cell  `json:"blocked"`
}

type entryResponse struct {
	Entry entryDTO `json:"entry"`
}

type entryDTO struct {
	Date       string `json:"date"`
	RoomCode   string `json:"room_code"`
	SlotHour   string `json:"slot_hour"`
	Status     string `json:"status"`
	CourseName string `json:"course_name,omitempty"`
	BookedBy   string `json:"booked_by,omitempty"`
}

func toEntryDTO(entry persistence.ScheduleEntry) entryDTO {
	return entryDTO{
		Date:       entry.ScheduleDate,
		RoomCode:   entry.RoomCode,
		SlotHour:   entry.SlotHour,
		Status:     string(entry.Status),
		CourseName: entry.CourseName,
		BookedBy:   entry.BookedBy,
	}
}
