// Package slots holds the bookable time units of a day.
//
// Slots are reference data: they are loaded once at startup and never
// created or destroyed by the scheduling core. Each slot belongs to exactly
// one category and is totally ordered within it by Order, ties broken by ID.
package slots

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Category groups slots that share a room type.
type Category string

const (
	// CategoryClassroom is used by teaching rooms, booked per hour.
	CategoryClassroom Category = "classroom"
	// CategoryAdministrative is used by offices and meeting rooms, booked in blocks.
	CategoryAdministrative Category = "administrative"
)

// Valid reports whether the category is one of the known categories.
func (c Category) Valid() bool {
	return c == CategoryClassroom || c == CategoryAdministrative
}

// TimeSlot is one bookable unit within a category.
type TimeSlot struct {
	ID       string   `yaml:"id" json:"id"`
	Label    string   `yaml:"label" json:"label"`
	Category Category `yaml:"category" json:"category"`
	Order    int      `yaml:"order" json:"order"`
}

var (
	// ErrEmptyCatalog is returned when no slots are supplied.
	ErrEmptyCatalog = errors.New("slots: catalog is empty")
	// ErrDuplicateSlot is returned when a slot identifier appears twice.
	ErrDuplicateSlot = errors.New("slots: duplicate slot id")
	// ErrUnknownCategory is returned for slots outside the known categories.
	ErrUnknownCategory = errors.New("slots: unknown category")
)

// Catalog indexes slots by category and identifier.
type Catalog struct {
	ordered map[Category][]TimeSlot
	index   map[Category]map[string]int
	byID    map[string]TimeSlot

	administrativeRooms map[string]struct{}
}

// NewCatalog validates the slots and builds the per-category ordering.
// Rooms listed in administrativeRooms default to the administrative
// category; every other room defaults to classroom.
func NewCatalog(list []TimeSlot, administrativeRooms []string) (*Catalog, error) {
	if len(list) == 0 {
		return nil, ErrEmptyCatalog
	}

	c := &Catalog{
		ordered:             make(map[Category][]TimeSlot),
		index:               make(map[Category]map[string]int),
		byID:                make(map[string]TimeSlot, len(list)),
		administrativeRooms: make(map[string]struct{}, len(administrativeRooms)),
	}

	for _, slot := range list {
		slot.ID = strings.TrimSpace(slot.ID)
		if slot.ID == "" {
			return nil, fmt.Errorf("slots: slot id is required")
		}
		if !slot.Category.Valid() {
			return nil, fmt.Errorf("%w: %q (slot %s)", ErrUnknownCategory, slot.Category, slot.ID)
		}
		if _, exists := c.byID[slot.ID]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateSlot, slot.ID)
		}
		if slot.Label == "" {
			slot.Label = slot.ID
		}
		c.byID[slot.ID] = slot
		c.ordered[slot.Category] = append(c.ordered[slot.Category], slot)
	}

	for category, slots := range c.ordered {
		sort.SliceStable(slots, func(i, j int) bool {
			if slots[i].Order == slots[j].Order {
				return slots[i].ID < slots[j].ID
			}
			return slots[i].Order < slots[j].Order
		})
		positions := make(map[string]int, len(slots))
		for i, slot := range slots {
			positions[slot.ID] = i
		}
		c.ordered[category] = slots
		c.index[category] = positions
	}

	for _, room := range administrativeRooms {
		room = strings.TrimSpace(room)
		if room != "" {
			c.administrativeRooms[room] = struct{}{}
		}
	}

	return c, nil
}

// Category resolves the category a slot identifier belongs to.
func (c *Catalog) Category(slotID string) (Category, bool) {
	if c == nil {
		return "", false
	}
	slot, ok := c.byID[slotID]
	if !ok {
		return "", false
	}
	return slot.Category, true
}

// Slot returns the slot with the given identifier.
func (c *Catalog) Slot(slotID string) (TimeSlot, bool) {
	if c == nil {
		return TimeSlot{}, false
	}
	slot, ok := c.byID[slotID]
	return slot, ok
}

// Ordered returns a copy of the category's slots sorted by Order.
func (c *Catalog) Ordered(category Category) []TimeSlot {
	if c == nil {
		return nil
	}
	slots := c.ordered[category]
	out := make([]TimeSlot, len(slots))
	copy(out, slots)
	return out
}

// Index returns the position of slotID within the category ordering.
func (c *Catalog) Index(category Category, slotID string) (int, bool) {
	if c == nil {
		return 0, false
	}
	positions, ok := c.index[category]
	if !ok {
		return 0, false
	}
	idx, ok := positions[slotID]
	return idx, ok
}

// Label returns the display label for a slot, or the identifier itself when
// the slot is not part of the catalog.
func (c *Catalog) Label(slotID string) string {
	if slot, ok := c.Slot(slotID); ok {
		return slot.Label
	}
	return slotID
}

// ExpandRange lists the slot identifiers from start to end inclusive within
// the category. The direction is normalized, so ExpandRange("9", "7") and
// ExpandRange("7", "9") agree.
//
// When either endpoint is absent from the category the two literal endpoints
// are returned unresolved (a single identifier when they are equal), ordered
// as Less orders them. Upstream
// rows may reference slots that are no longer part of the loaded catalog.
func (c *Catalog) ExpandRange(start, end string, category Category) []string {
	startIdx, startOK := c.Index(category, start)
	endIdx, endOK := c.Index(category, end)
	if !startOK || !endOK {
		if start == end {
			return []string{start}
		}
		if c.Less(category, end, start) {
			start, end = end, start
		}
		return []string{start, end}
	}

	if startIdx > endIdx {
		startIdx, endIdx = endIdx, startIdx
	}

	ordered := c.ordered[category]
	out := make([]string, 0, endIdx-startIdx+1)
	for i := startIdx; i <= endIdx; i++ {
		out = append(out, ordered[i].ID)
	}
	return out
}

// RoomCategory returns the default slot category for a room.
func (c *Catalog) RoomCategory(roomCode string) Category {
	if c != nil {
		if _, ok := c.administrativeRooms[strings.TrimSpace(roomCode)]; ok {
			return CategoryAdministrative
		}
	}
	return CategoryClassroom
}

// Normalize maps the identifier variants seen in stored rows onto the
// catalog identifier. Identifiers and labels match first ("a2",
// "08:00-10:00"), then hour forms ("07", "7:00", "P7") resolve to the slot
// whose identifier is that hour. Unknown identifiers are returned trimmed but
// otherwise unchanged.
func (c *Catalog) Normalize(slotID string) string {
	return c.NormalizeIn(slotID, "")
}

// NormalizeIn is Normalize scoped to a category: hour forms resolve to the
// category's slot starting at that hour, so "08:00" is "A1" among the
// administrative blocks. Exact identifiers of any category are kept as is.
// An invalid category behaves like Normalize.
func (c *Catalog) NormalizeIn(slotID string, category Category) string {
	trimmed := strings.TrimSpace(slotID)
	if c == nil || trimmed == "" {
		return trimmed
	}
	if _, ok := c.byID[trimmed]; ok {
		return trimmed
	}

	if category.Valid() {
		if id, ok := matchLabel(c.ordered[category], trimmed); ok {
			return id
		}
	}
	for _, cat := range []Category{CategoryClassroom, CategoryAdministrative} {
		if id, ok := matchLabel(c.ordered[cat], trimmed); ok {
			return id
		}
	}
	hour, ok := leadingHour(trimmed)
	if !ok {
		return trimmed
	}
	if category.Valid() {
		if id, ok := matchHour(c.ordered[category], hour); ok {
			return id
		}
	}
	if _, ok := c.byID[hour]; ok {
		return hour
	}
	return trimmed
}

// NormalizeForRoom normalizes within the room's default category.
func (c *Catalog) NormalizeForRoom(roomCode, slotID string) string {
	return c.NormalizeIn(slotID, c.RoomCategory(roomCode))
}

func matchLabel(list []TimeSlot, value string) (string, bool) {
	for _, slot := range list {
		if strings.EqualFold(slot.ID, value) || strings.EqualFold(slot.Label, value) {
			return slot.ID, true
		}
	}
	return "", false
}

// matchHour prefers the slot identified by the hour, then the slot whose
// label starts at it.
func matchHour(list []TimeSlot, hour string) (string, bool) {
	for _, slot := range list {
		if slot.ID == hour {
			return slot.ID, true
		}
	}
	for _, slot := range list {
		if labelHour, ok := leadingHour(slot.Label); ok && labelHour == hour {
			return slot.ID, true
		}
	}
	return "", false
}

// leadingHour extracts the starting hour of "7", "07", "7:00", "07:00-08:00"
// or "P7" without leading zeros.
func leadingHour(value string) (string, bool) {
	v := strings.TrimSpace(value)
	if len(v) > 1 && (v[0] == 'P' || v[0] == 'p') {
		v = v[1:]
	}
	if i := strings.IndexAny(v, ":-"); i >= 0 {
		v = v[:i]
	}
	if v == "" {
		return "", false
	}
	for _, r := range v {
		if r < '0' || r > '9' {
			return "", false
		}
	}
	v = strings.TrimLeft(v, "0")
	if v == "" {
		v = "0"
	}
	return v, true
}

// Less orders slot identifiers by position within the category. Identifiers
// outside the category sort after it, lexically.
func (c *Catalog) Less(category Category, a, b string) bool {
	ai, aok := c.Index(category, a)
	bi, bok := c.Index(category, b)
	switch {
	case aok && bok:
		return ai < bi
	case aok != bok:
		return aok
	default:
		return a < b
	}
}
