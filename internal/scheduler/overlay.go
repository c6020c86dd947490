package scheduler

import (
	"sort"

	"github.com/example/room-booking/internal/persistence"
	"github.com/example/room-booking/internal/slots"
)

// GridCell is one slot of a room row as shown to a viewer.
type GridCell struct {
	SlotHour string `json:"slot_hour"`
	Label    string `json:"label"`
	// Status is the display status. It is pending when a pending request
	// covers an otherwise free cell.
	Status          persistence.EntryStatus `json:"status"`
	ConfirmedStatus persistence.EntryStatus `json:"confirmed_status"`
	CourseName      string                  `json:"course_name,omitempty"`
	BookedBy        string                  `json:"booked_by,omitempty"`
	// PendingRequestIDs lists every pending request covering the cell,
	// including those hidden behind a confirmed entry.
	PendingRequestIDs []string `json:"pending_request_ids,omitempty"`
	BlockedForViewer  bool     `json:"blocked_for_viewer,omitempty"`
}

// GridRow is the slot row of one room.
type GridRow struct {
	RoomCode string         `json:"room_code"`
	Category slots.Category `json:"category"`
	Cells    []GridCell     `json:"cells"`
}

// DayGrid is the decorated schedule of a single date.
type DayGrid struct {
	Date string    `json:"date"`
	Rows []GridRow `json:"rows"`
}

// OverlayPending builds the display grid for date. Confirmed entries are
// copied as they are; each pending request covering a cell marks it pending
// unless a blocking confirmed entry occupies it. Cells covered by the
// viewer's own pending requests are flagged BlockedForViewer. When rooms is
// empty the rows are the rooms that have entries or covering requests.
//
// The entries slice is never modified.
func (e *Engine) OverlayPending(date string, rooms []string, entries []persistence.ScheduleEntry, requests []persistence.RoomRequest, viewerID string) DayGrid {
	covering := make([]persistence.RoomRequest, 0, len(requests))
	for _, req := range requests {
		if req.Status == persistence.RequestStatusPending && coversDate(req, date) {
			covering = append(covering, req)
		}
	}

	if len(rooms) == 0 {
		rooms = deriveRooms(entries, covering)
	}

	confirmed := e.indexEntries(entries)
	grid := DayGrid{Date: date, Rows: make([]GridRow, 0, len(rooms))}

	for _, room := range rooms {
		category := e.catalog.RoomCategory(room)
		slotIDs := e.rowSlots(room, category, entries, covering)

		row := GridRow{RoomCode: room, Category: category, Cells: make([]GridCell, 0, len(slotIDs))}
		for _, slotID := range slotIDs {
			cell := GridCell{
				SlotHour:        slotID,
				Label:           e.catalog.Label(slotID),
				Status:          persistence.EntryStatusEmpty,
				ConfirmedStatus: persistence.EntryStatusEmpty,
			}
			if entry, ok := confirmed[entryKey{room: room, slot: slotID}]; ok && entry.Status.Valid() {
				cell.Status = entry.Status
				cell.ConfirmedStatus = entry.Status
				cell.CourseName = entry.CourseName
				cell.BookedBy = entry.BookedBy
			}

			target := Cell{Date: date, RoomCode: room, SlotHour: slotID}
			for _, req := range covering {
				if !e.Covers(req, target) {
					continue
				}
				cell.PendingRequestIDs = append(cell.PendingRequestIDs, req.ID)
				if !cell.ConfirmedStatus.Blocking() {
					cell.Status = persistence.EntryStatusPending
				}
				if viewerID != "" && req.RequesterID == viewerID {
					cell.BlockedForViewer = true
				}
			}
			row.Cells = append(row.Cells, cell)
		}
		grid.Rows = append(grid.Rows, row)
	}
	return grid
}

// rowSlots lists the catalog slots of the room's category followed by any
// identifiers that only appear in stored rows or unresolved request ranges.
func (e *Engine) rowSlots(room string, category slots.Category, entries []persistence.ScheduleEntry, covering []persistence.RoomRequest) []string {
	ordered := e.catalog.Ordered(category)
	ids := make([]string, 0, len(ordered))
	seen := make(map[string]struct{}, len(ordered))
	for _, slot := range ordered {
		ids = append(ids, slot.ID)
		seen[slot.ID] = struct{}{}
	}

	var extra []string
	add := func(id string) {
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		extra = append(extra, id)
	}
	for _, entry := range entries {
		if entry.RoomCode == room {
			add(e.catalog.NormalizeForRoom(room, entry.SlotHour))
		}
	}
	for _, req := range covering {
		if req.RoomCode == room {
			for _, id := range e.Hours(req) {
				add(id)
			}
		}
	}
	sort.Strings(extra)
	return append(ids, extra...)
}

func deriveRooms(entries []persistence.ScheduleEntry, covering []persistence.RoomRequest) []string {
	seen := make(map[string]struct{})
	var rooms []string
	add := func(room string) {
		if room == "" {
			return
		}
		if _, ok := seen[room]; ok {
			return
		}
		seen[room] = struct{}{}
		rooms = append(rooms, room)
	}
	for _, entry := range entries {
		add(entry.RoomCode)
	}
	for _, req := range covering {
		add(req.RoomCode)
	}
	sort.Strings(rooms)
	return rooms
}

// RequesterBlocks returns the cells on date that requesterID's own pending
// requests already claim, in room then slot order.
func (e *Engine) RequesterBlocks(requesterID, date string, requests []persistence.RoomRequest) []Cell {
	if requesterID == "" {
		return nil
	}
	byRoom := make(map[string][]string)
	categories := make(map[string]slots.Category)
	seen := make(map[Cell]struct{})
	for _, req := range requests {
		if req.Status != persistence.RequestStatusPending || req.RequesterID != requesterID {
			continue
		}
		if !coversDate(req, date) {
			continue
		}
		categories[req.RoomCode] = e.Category(req)
		for _, hour := range e.Hours(req) {
			cell := Cell{Date: date, RoomCode: req.RoomCode, SlotHour: hour}
			if _, ok := seen[cell]; ok {
				continue
			}
			seen[cell] = struct{}{}
			byRoom[req.RoomCode] = append(byRoom[req.RoomCode], hour)
		}
	}

	rooms := make([]string, 0, len(byRoom))
	for room := range byRoom {
		rooms = append(rooms, room)
	}
	sort.Strings(rooms)

	var out []Cell
	for _, room := range rooms {
		hours := byRoom[room]
		e.sortSlots(categories[room], hours)
		for _, hour := range hours {
			out = append(out, Cell{Date: date, RoomCode: room, SlotHour: hour})
		}
	}
	return out
}

// FirstOverlap returns the first cell of set claimed by one of the pending
// requests, together with that request.
func (e *Engine) FirstOverlap(set CellSet, requests []persistence.RoomRequest) (Cell, persistence.RoomRequest, bool) {
	for _, cell := range set.Cells() {
		for _, req := range requests {
			if req.Status != persistence.RequestStatusPending {
				continue
			}
			if e.Covers(req, cell) {
				return cell, req, true
			}
		}
	}
	return Cell{}, persistence.RoomRequest{}, false
}
