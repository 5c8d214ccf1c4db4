package availability

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"examroom/internal/domain"
	"examroom/internal/pkg/timeslot"
)

// ExamPeriod is a candidate exam slot on the grid. It is derived on demand
// and never stored.
type ExamPeriod struct {
	Start    string  `json:"start"`
	End      string  `json:"end"`
	Duration float64 `json:"duration"`
	IsFree   bool    `json:"is_free"`
}

type Status string

const (
	StatusAvailable Status = "available"
	StatusFull      Status = "full"
	StatusPartial   Status = "partial"
)

type Summary struct {
	Status     Status `json:"status"`
	FreeCount  int    `json:"free_count"`
	BusyCount  int    `json:"busy_count"`
	TotalCount int    `json:"total_count"`
}

// ComputeExamPeriods lays a durationHours-long period at every grid start and
// marks it free when no pending or approved booking of the classroom and
// date overlaps it. Periods that would end after closing are dropped.
func ComputeExamPeriods(existing []domain.Booking, classroomID int64, date string, durationHours float64, hours timeslot.OperatingHours) ([]ExamPeriod, error) {
	if _, ok := timeslot.DurationMinutes(durationHours); !ok {
		return nil, ErrInvalidDuration
	}

	grid, err := timeslot.GenerateSlotGrid(hours.OpenHour, hours.CloseHour, hours.StepMinutes)
	if err != nil {
		return nil, err
	}

	busy, err := BusyPeriods(existing, classroomID, date)
	if err != nil {
		return nil, err
	}

	closeMin := hours.CloseHour * 60
	periods := make([]ExamPeriod, 0, len(grid))
	for _, start := range grid {
		end, err := timeslot.ComputeEndTime(start, durationHours)
		if errors.Is(err, timeslot.ErrOutOfDay) {
			continue
		}
		if err != nil {
			return nil, err
		}

		w := timeslot.Window{}
		if w.Start, err = timeslot.ToMinutes(start); err != nil {
			return nil, err
		}
		if w.End, err = timeslot.ToMinutes(end); err != nil {
			return nil, err
		}
		if w.End > closeMin {
			continue
		}

		periods = append(periods, ExamPeriod{
			Start:    start,
			End:      end,
			Duration: durationHours,
			IsFree:   !overlapsAny(w, busy),
		})
	}
	return periods, nil
}

func overlapsAny(w timeslot.Window, busy []timeslot.Window) bool {
	for _, b := range busy {
		if w.Overlaps(b) {
			return true
		}
	}
	return false
}

// ClassroomStatus summarizes a period list. An empty list counts as available.
func ClassroomStatus(periods []ExamPeriod) Summary {
	s := Summary{TotalCount: len(periods)}
	for _, p := range periods {
		if p.IsFree {
			s.FreeCount++
		}
	}
	s.BusyCount = s.TotalCount - s.FreeCount

	switch {
	case s.FreeCount == s.TotalCount:
		s.Status = StatusAvailable
	case s.FreeCount == 0:
		s.Status = StatusFull
	default:
		s.Status = StatusPartial
	}
	return s
}

// BusyPeriods returns the intervals held by pending or approved bookings of
// one classroom on one date, sorted by start.
func BusyPeriods(existing []domain.Booking, classroomID int64, date string) ([]timeslot.Window, error) {
	busy := make([]timeslot.Window, 0)
	for _, b := range existing {
		if b.ClassroomID != classroomID || b.Date != date || !b.Status.Active() {
			continue
		}
		start, err := timeslot.ToMinutes(b.StartTime)
		if err != nil {
			return nil, fmt.Errorf("booking %d: %w", b.ID, err)
		}
		end, err := timeslot.ToMinutes(b.EndTime)
		if err != nil {
			return nil, fmt.Errorf("booking %d: %w", b.ID, err)
		}
		busy = append(busy, timeslot.Window{Start: start, End: end})
	}

	sort.Slice(busy, func(i, j int) bool {
		if busy[i].Start != busy[j].Start {
			return busy[i].Start < busy[j].Start
		}
		return busy[i].End < busy[j].End
	})
	return busy, nil
}

// BusySlot is a held interval together with the booking that holds it.
type BusySlot struct {
	Start            string               `json:"start"`
	End              string               `json:"end"`
	BookingID        int64                `json:"booking_id"`
	SubjectNumber    string               `json:"subject_number"`
	SubjectName      string               `json:"subject_name"`
	SubjectSubNumber string               `json:"subject_sub_number,omitempty"`
	TeacherName      string               `json:"teacher_name"`
	Status           domain.BookingStatus `json:"status"`
}

// BusySlots is BusyPeriods with the holder of each interval attached.
func BusySlots(existing []domain.Booking, classroomID int64, date string) ([]BusySlot, error) {
	type keyed struct {
		w    timeslot.Window
		slot BusySlot
	}
	rows := make([]keyed, 0)
	for _, b := range existing {
		if b.ClassroomID != classroomID || b.Date != date || !b.Status.Active() {
			continue
		}
		start, err := timeslot.ToMinutes(b.StartTime)
		if err != nil {
			return nil, fmt.Errorf("booking %d: %w", b.ID, err)
		}
		end, err := timeslot.ToMinutes(b.EndTime)
		if err != nil {
			return nil, fmt.Errorf("booking %d: %w", b.ID, err)
		}
		rows = append(rows, keyed{
			w: timeslot.Window{Start: start, End: end},
			slot: BusySlot{
				Start:            timeslot.FormatMinutes(start),
				End:              timeslot.FormatMinutes(end),
				BookingID:        b.ID,
				SubjectNumber:    b.SubjectNumber,
				SubjectName:      b.SubjectName,
				SubjectSubNumber: b.SubjectSubNumber,
				TeacherName:      b.TeacherName,
				Status:           b.Status,
			},
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].w.Start != rows[j].w.Start {
			return rows[i].w.Start < rows[j].w.Start
		}
		if rows[i].w.End != rows[j].w.End {
			return rows[i].w.End < rows[j].w.End
		}
		return rows[i].slot.BookingID < rows[j].slot.BookingID
	})

	out := make([]BusySlot, len(rows))
	for i, r := range rows {
		out[i] = r.slot
	}
	return out, nil
}

// DayStatus is a classroom's state on one date as seen at a given moment.
type DayStatus string

const (
	DayAvailable   DayStatus = "available"
	DayBusy        DayStatus = "busy"
	DayFullyBooked DayStatus = "fully_booked"
)

// fullyBookedShare is the share of operating minutes above which a day
// counts as fully booked.
const fullyBookedShare = 0.8

type CurrentState struct {
	Status   DayStatus `json:"status"`
	Occupied bool      `json:"occupied"`
}

// CurrentStatus reports whether the classroom is in use at now and how loaded
// its day is. Occupied can only be set when date is now's calendar date. An
// occupied room is busy regardless of load.
func CurrentStatus(hours timeslot.OperatingHours, date string, busy []timeslot.Window, now time.Time) CurrentState {
	if len(busy) == 0 {
		return CurrentState{Status: DayAvailable}
	}

	st := CurrentState{Status: DayBusy}
	if date == timeslot.FormatDate(now) {
		minute := now.Hour()*60 + now.Minute()
		for _, b := range busy {
			if b.Start <= minute && minute < b.End {
				st.Occupied = true
				break
			}
		}
	}
	if st.Occupied {
		return st
	}

	day := (hours.CloseHour - hours.OpenHour) * 60
	if day > 0 && float64(BookedMinutes(hours, busy)) > float64(day)*fullyBookedShare {
		st.Status = DayFullyBooked
	}
	return st
}

// FreeWindows returns the maximal gaps between busy intervals inside
// operating hours. busy must be sorted by start.
func FreeWindows(hours timeslot.OperatingHours, busy []timeslot.Window) []timeslot.Window {
	open, close := hours.OpenHour*60, hours.CloseHour*60
	merged := mergeBusy(open, close, busy)

	out := make([]timeslot.Window, 0, len(merged)+1)
	cur := open
	for _, b := range merged {
		if b.Start > cur {
			out = append(out, timeslot.Window{Start: cur, End: b.Start})
		}
		if b.End > cur {
			cur = b.End
		}
	}
	if cur < close {
		out = append(out, timeslot.Window{Start: cur, End: close})
	}
	return out
}

// BookedMinutes is the total time covered by busy intervals inside
// operating hours, with overlaps counted once.
func BookedMinutes(hours timeslot.OperatingHours, busy []timeslot.Window) int {
	total := 0
	for _, b := range mergeBusy(hours.OpenHour*60, hours.CloseHour*60, busy) {
		total += b.End - b.Start
	}
	return total
}

func mergeBusy(open, close int, busy []timeslot.Window) []timeslot.Window {
	merged := make([]timeslot.Window, 0, len(busy))
	for _, s := range busy {
		if s.End <= open || s.Start >= close {
			continue
		}
		if s.Start < open {
			s.Start = open
		}
		if s.End > close {
			s.End = close
		}

		if len(merged) == 0 {
			merged = append(merged, s)
			continue
		}
		last := &merged[len(merged)-1]
		if s.Start <= last.End {
			if s.End > last.End {
				last.End = s.End
			}
		} else {
			merged = append(merged, s)
		}
	}
	return merged
}
