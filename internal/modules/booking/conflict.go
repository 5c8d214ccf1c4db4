package booking

import (
	"fmt"

	"examroom/internal/domain"
	"examroom/internal/pkg/timeslot"
)

// Proposal is a requested classroom slot. ExcludeID skips one booking, so an
// existing booking can be checked against everything but itself.
type Proposal struct {
	ClassroomID int64
	Date        string
	StartTime   string
	EndTime     string
	ExcludeID   int64
}

type ConflictResult struct {
	HasConflict        bool
	ConflictingBooking *domain.Booking
}

func (p Proposal) missingField() string {
	switch {
	case p.ClassroomID == 0:
		return "classroom_id"
	case p.Date == "":
		return "date"
	case p.StartTime == "":
		return "start_time"
	case p.EndTime == "":
		return "end_time"
	}
	return ""
}

// CheckConflict returns the first pending or approved booking of the same
// classroom and date whose interval overlaps the proposal.
func CheckConflict(p Proposal, existing []domain.Booking) (ConflictResult, error) {
	if field := p.missingField(); field != "" {
		return ConflictResult{}, fmt.Errorf("%w: %s", ErrMissingField, field)
	}

	start, err := timeslot.ToMinutes(p.StartTime)
	if err != nil {
		return ConflictResult{}, err
	}
	end, err := timeslot.ToMinutes(p.EndTime)
	if err != nil {
		return ConflictResult{}, err
	}

	for i := range existing {
		b := &existing[i]
		if b.ClassroomID != p.ClassroomID || b.Date != p.Date || !b.Status.Active() {
			continue
		}
		if p.ExcludeID != 0 && b.ID == p.ExcludeID {
			continue
		}

		bStart, err := timeslot.ToMinutes(b.StartTime)
		if err != nil {
			return ConflictResult{}, fmt.Errorf("booking %d: %w", b.ID, err)
		}
		bEnd, err := timeslot.ToMinutes(b.EndTime)
		if err != nil {
			return ConflictResult{}, fmt.Errorf("booking %d: %w", b.ID, err)
		}

		if timeslot.Overlaps(start, end, bStart, bEnd) {
			found := *b
			return ConflictResult{HasConflict: true, ConflictingBooking: &found}, nil
		}
	}

	return ConflictResult{}, nil
}
