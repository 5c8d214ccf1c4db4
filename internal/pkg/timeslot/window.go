package timeslot

import (
	"errors"
	"fmt"
)

var (
	ErrMissingTime  = errors.New("start and end time are required")
	ErrEndNotAfter  = errors.New("end time must be after start time")
	ErrOutsideHours = errors.New("time is outside operating hours")
)

// OperatingHours bounds the bookable part of a day.
type OperatingHours struct {
	OpenHour    int `json:"open_hour"`
	CloseHour   int `json:"close_hour"`
	StepMinutes int `json:"step_minutes"`
}

// DefaultOperatingHours is the college day: 08:00 to 18:00 on a 30 minute grid.
var DefaultOperatingHours = OperatingHours{OpenHour: 8, CloseHour: 18, StepMinutes: 30}

func (h OperatingHours) Validate() error {
	return checkHours(h.OpenHour, h.CloseHour, h.StepMinutes)
}

// Window is a validated [Start, End) interval in minutes since midnight.
type Window struct {
	Start int
	End   int
}

func (w Window) StartTime() string { return FormatMinutes(w.Start) }
func (w Window) EndTime() string   { return FormatMinutes(w.End) }

func (w Window) Overlaps(o Window) bool {
	return Overlaps(w.Start, w.End, o.Start, o.End)
}

// ValidateWindow is the one set of rules for a booking's time range. Every
// entry point that accepts start/end times goes through it.
func ValidateWindow(start, end string, hours OperatingHours) (Window, error) {
	if start == "" || end == "" {
		return Window{}, ErrMissingTime
	}
	if err := hours.Validate(); err != nil {
		return Window{}, err
	}
	s, err := ToMinutes(start)
	if err != nil {
		return Window{}, err
	}
	e, err := ToMinutes(end)
	if err != nil {
		return Window{}, err
	}
	if e <= s {
		return Window{}, fmt.Errorf("%w: %s-%s", ErrEndNotAfter, start, end)
	}
	open, close := hours.OpenHour*60, hours.CloseHour*60
	if s < open || s >= close {
		return Window{}, fmt.Errorf("%w: start %s not in %02d:00-%02d:00", ErrOutsideHours, start, hours.OpenHour, hours.CloseHour)
	}
	if e <= open || e > close {
		return Window{}, fmt.Errorf("%w: end %s not in %02d:00-%02d:00", ErrOutsideHours, end, hours.OpenHour, hours.CloseHour)
	}
	return Window{Start: s, End: e}, nil
}
