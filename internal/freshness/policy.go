// Package freshness keeps client views current by re-fetching them on a
// fixed interval and discarding responses that arrive out of order.
package freshness

import "time"

// Policy holds the polling intervals clients are told to use.
type Policy struct {
	// RequestInterval applies to request lists under active management.
	RequestInterval time.Duration `json:"request_interval"`
	// ScheduleInterval applies to open schedule views.
	ScheduleInterval time.Duration `json:"schedule_interval"`
}

// DefaultPolicy returns the standard intervals.
func DefaultPolicy() Policy {
	return Policy{
		RequestInterval:  5 * time.Second,
		ScheduleInterval: 15 * time.Second,
	}
}

// Normalize fills zero or negative intervals from DefaultPolicy.
func (p Policy) Normalize() Policy {
	def := DefaultPolicy()
	if p.RequestInterval <= 0 {
		p.RequestInterval = def.RequestInterval
	}
	if p.ScheduleInterval <= 0 {
		p.ScheduleInterval = def.ScheduleInterval
	}
	return p
}
