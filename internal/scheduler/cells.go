package scheduler

// Cell is one (room, date, slot) position in the schedule.
type Cell struct {
	Date     string `json:"date"`
	RoomCode string `json:"room_code"`
	SlotHour string `json:"slot_hour"`
}

// DateGroup holds the cells of a cell set that fall on one date.
type DateGroup struct {
	Date  string
	Cells []Cell
}

// CellSet is the expansion of a request: cells grouped by date in
// chronological order, slots within a date in catalog order.
type CellSet struct {
	Groups []DateGroup
}

// Len returns the number of cells in the set.
func (s CellSet) Len() int {
	n := 0
	for _, group := range s.Groups {
		n += len(group.Cells)
	}
	return n
}

// Dates lists the distinct dates of the set in chronological order.
func (s CellSet) Dates() []string {
	out := make([]string, 0, len(s.Groups))
	for _, group := range s.Groups {
		out = append(out, group.Date)
	}
	return out
}

// Cells flattens the set in date then slot order.
func (s CellSet) Cells() []Cell {
	out := make([]Cell, 0, s.Len())
	for _, group := range s.Groups {
		out = append(out, group.Cells...)
	}
	return out
}

// Contains reports whether the set includes the cell.
func (s CellSet) Contains(cell Cell) bool {
	for _, group := range s.Groups {
		if group.Date != cell.Date {
			continue
		}
		for _, c := range group.Cells {
			if c == cell {
				return true
			}
		}
	}
	return false
}
