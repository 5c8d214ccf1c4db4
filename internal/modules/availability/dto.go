package availability

import "examroom/internal/pkg/timeslot"

type Slot struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

func toSlots(ws []timeslot.Window) []Slot {
	out := make([]Slot, len(ws))
	for i, w := range ws {
		out[i] = Slot{Start: w.StartTime(), End: w.EndTime()}
	}
	return out
}

type PeriodsResponse struct {
	ClassroomID int64        `json:"classroom_id"`
	Date        string       `json:"date"`
	Duration    float64      `json:"duration"`
	Periods     []ExamPeriod `json:"periods"`
	Summary     Summary      `json:"summary"`
}

type BusyResponse struct {
	ClassroomID   int64        `json:"classroom_id"`
	Date          string       `json:"date"`
	Busy          []BusySlot   `json:"busy"`
	Free          []Slot       `json:"free"`
	BookedMinutes int          `json:"booked_minutes"`
	Occupancy     float64      `json:"occupancy"`
	Current       CurrentState `json:"current"`
}
