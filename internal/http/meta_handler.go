package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/example/room-booking/internal/freshness"
	"github.com/example/room-booking/internal/slots"
)

// MetaHandler serves reference data clients need to render and refresh views.
type MetaHandler struct {
	catalog   *slots.Catalog
	policy    freshness.Policy
	responder responder
}

func NewMetaHandler(catalog *slots.Catalog, policy freshness.Policy, logger *slog.Logger) *MetaHandler {
	return &MetaHandler{catalog: catalog, policy: policy.Normalize(), responder: newResponder(logger)}
}

func (h *MetaHandler) Slots(c *gin.Context) {
	if h == nil || h.catalog == nil {
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}
	category := slots.Category(strings.TrimSpace(c.Param("category")))
	if !category.Valid() {
		h.responder.writeError(c, http.StatusNotFound, errUnknownCategory)
		return
	}
	h.responder.writeJSON(c, http.StatusOK, slotsResponse{
		Category: category,
		Slots:    append([]slots.TimeSlot{}, h.catalog.Ordered(category)...),
	})
}

func (h *MetaHandler) Freshness(c *gin.Context) {
	h.responder.writeJSON(c, http.StatusOK, freshnessResponse{
		RequestIntervalSeconds:  int(h.policy.RequestInterval.Seconds()),
		ScheduleIntervalSeconds: int(h.policy.ScheduleInterval.Seconds()),
	})
}

type slotsResponse struct {
	Category slots.Category   `json:"category"`
	Slots    []slots.TimeSlot `json:"slots"`
}

type freshnessResponse struct {
	RequestIntervalSeconds  int `json:"request_interval_seconds"`
	ScheduleIntervalSeconds int `json:"schedule_interval_seconds"`
}
