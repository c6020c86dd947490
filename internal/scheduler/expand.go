package scheduler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/example/room-booking/internal/dates"
	"github.com/example/room-booking/internal/persistence"
)

// ErrInvalidRequest is returned when a request cannot be expanded.
var ErrInvalidRequest = errors.New("scheduler: invalid request")

// Expand computes the cells a request claims: for week 0..WeekCount-1 the
// date BaseDate+7*week, and for each date every slot in the request's range.
// The result depends only on the request and the catalog.
func (e *Engine) Expand(req persistence.RoomRequest) (CellSet, error) {
	if strings.TrimSpace(req.RoomCode) == "" {
		return CellSet{}, fmt.Errorf("%w: room code is required", ErrInvalidRequest)
	}
	if req.WeekCount < 1 {
		return CellSet{}, fmt.Errorf("%w: week count %d", ErrInvalidRequest, req.WeekCount)
	}
	if !dates.Valid(req.BaseDate) {
		return CellSet{}, fmt.Errorf("%w: base date %q", ErrInvalidRequest, req.BaseDate)
	}

	hours := e.Hours(req)
	set := CellSet{Groups: make([]DateGroup, 0, req.WeekCount)}
	for week := 0; week < req.WeekCount; week++ {
		date, err := dates.AddDays(req.BaseDate, 7*week)
		if err != nil {
			return CellSet{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		group := DateGroup{Date: date, Cells: make([]Cell, 0, len(hours))}
		for _, hour := range hours {
			group.Cells = append(group.Cells, Cell{Date: date, RoomCode: req.RoomCode, SlotHour: hour})
		}
		set.Groups = append(set.Groups, group)
	}
	return set, nil
}
