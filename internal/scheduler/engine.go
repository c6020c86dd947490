// Package scheduler reconciles room requests with the confirmed schedule.
//
// It expands recurring requests into concrete cells, checks them against
// confirmed entries and overlays pending requests onto a day grid. Nothing in
// this package writes to a store.
package scheduler

import (
	"sort"

	"github.com/example/room-booking/internal/dates"
	"github.com/example/room-booking/internal/persistence"
	"github.com/example/room-booking/internal/slots"
)

// Engine evaluates requests against a slot catalog.
type Engine struct {
	catalog *slots.Catalog
}

// New constructs an Engine. A nil catalog selects slots.DefaultCatalog.
func New(catalog *slots.Catalog) *Engine {
	if catalog == nil {
		catalog = slots.DefaultCatalog()
	}
	return &Engine{catalog: catalog}
}

// Catalog exposes the slot catalog the engine resolves against.
func (e *Engine) Catalog() *slots.Catalog {
	return e.catalog
}

// Category returns the category a request's slots are drawn from: the
// recorded category when valid, otherwise the room's default.
func (e *Engine) Category(req persistence.RoomRequest) slots.Category {
	if recorded := slots.Category(req.SlotCategory); recorded.Valid() {
		return recorded
	}
	return e.catalog.RoomCategory(req.RoomCode)
}

// Hours lists the slot identifiers of a request in catalog order.
func (e *Engine) Hours(req persistence.RoomRequest) []string {
	category := e.Category(req)
	start := e.catalog.NormalizeIn(req.StartHour, category)
	end := e.catalog.NormalizeIn(req.EndHour, category)
	return e.catalog.ExpandRange(start, end, category)
}

// sortSlots orders slot identifiers by catalog position, unknown identifiers
// last and lexically.
func (e *Engine) sortSlots(category slots.Category, ids []string) {
	sort.SliceStable(ids, func(i, j int) bool {
		return e.catalog.Less(category, ids[i], ids[j])
	})
}

// coversDate reports whether date is one of the request's weekly occurrences.
func coversDate(req persistence.RoomRequest, date string) bool {
	days, err := dates.DaysBetween(req.BaseDate, date)
	if err != nil || days < 0 || days%7 != 0 {
		return false
	}
	return days/7 < req.WeekCount
}

// coversSlot reports whether slotID lies in the request's inclusive range.
// Positions are compared through the catalog; when any endpoint cannot be
// resolved the identifier must equal one of the endpoints.
func (e *Engine) coversSlot(req persistence.RoomRequest, slotID string) bool {
	category := e.Category(req)
	start := e.catalog.NormalizeIn(req.StartHour, category)
	end := e.catalog.NormalizeIn(req.EndHour, category)
	slotID = e.catalog.NormalizeIn(slotID, category)

	startIdx, sok := e.catalog.Index(category, start)
	endIdx, eok := e.catalog.Index(category, end)
	idx, ok := e.catalog.Index(category, slotID)
	if !sok || !eok || !ok {
		return slotID == start || slotID == end
	}
	if startIdx > endIdx {
		startIdx, endIdx = endIdx, startIdx
	}
	return idx >= startIdx && idx <= endIdx
}

// Covers reports whether req claims the (room, date, slot) cell.
func (e *Engine) Covers(req persistence.RoomRequest, cell Cell) bool {
	if req.RoomCode != cell.RoomCode {
		return false
	}
	if !coversDate(req, cell.Date) {
		return false
	}
	return e.coversSlot(req, cell.SlotHour)
}
