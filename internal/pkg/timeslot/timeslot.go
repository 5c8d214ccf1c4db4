// Package timeslot holds the clock arithmetic used by availability and
// conflict checks. Times of day are "HH:MM" strings on a 24-hour clock and
// dates are "YYYY-MM-DD"; both are local, with no time zone attached.
package timeslot

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	minutesPerDay = 24 * 60
	dateLayout    = "2006-01-02"
)

var (
	ErrInvalidFormat = errors.New("invalid time format")
	ErrOutOfDay      = errors.New("time falls outside the day")
	ErrInvalidHours  = errors.New("invalid operating hours")
)

// ToMinutes converts "HH:MM" to minutes since midnight.
func ToMinutes(s string) (int, error) {
	hh, mm, ok := strings.Cut(s, ":")
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidFormat, s)
	}
	if !digits(hh, 1, 2) || !digits(mm, 2, 2) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidFormat, s)
	}
	h, _ := strconv.Atoi(hh)
	m, _ := strconv.Atoi(mm)
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidFormat, s)
	}
	return h*60 + m, nil
}

// FormatMinutes renders minutes since midnight as zero-padded "HH:MM".
func FormatMinutes(m int) string {
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

// Normalize re-renders a valid time in canonical zero-padded form, so that
// lexicographic order matches chronological order.
func Normalize(s string) (string, error) {
	m, err := ToMinutes(s)
	if err != nil {
		return "", err
	}
	return FormatMinutes(m), nil
}

// ParseDate validates a "YYYY-MM-DD" calendar date.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q", ErrInvalidFormat, s)
	}
	return d, nil
}

// FormatDate renders the calendar date of t as "YYYY-MM-DD".
func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}

// Overlaps is the half-open interval test on minute values: [s1,e1) and
// [s2,e2) share an instant. Touching intervals do not overlap.
func Overlaps(s1, e1, s2, e2 int) bool {
	return s1 < e2 && e1 > s2
}

// TimesOverlap applies Overlaps to "HH:MM" strings.
func TimesOverlap(start1, end1, start2, end2 string) (bool, error) {
	var mins [4]int
	for i, s := range [4]string{start1, end1, start2, end2} {
		m, err := ToMinutes(s)
		if err != nil {
			return false, err
		}
		mins[i] = m
	}
	return Overlaps(mins[0], mins[1], mins[2], mins[3]), nil
}

// IsWithinOperatingHours checks t against [openHour, closeHour). With
// boundaryInclusive the window becomes (openHour, closeHour], which is the
// rule for end times: an exam may end exactly at closing but not at opening.
func IsWithinOperatingHours(t string, openHour, closeHour int, boundaryInclusive bool) (bool, error) {
	m, err := ToMinutes(t)
	if err != nil {
		return false, err
	}
	open, close := openHour*60, closeHour*60
	if boundaryInclusive {
		return m > open && m <= close, nil
	}
	return m >= open && m < close, nil
}

// GenerateSlotGrid lists candidate start times from openHour:00 in steps of
// stepMinutes, keeping only starts whose step-long slot ends by closeHour.
func GenerateSlotGrid(openHour, closeHour, stepMinutes int) ([]string, error) {
	if err := checkHours(openHour, closeHour, stepMinutes); err != nil {
		return nil, err
	}
	close := closeHour * 60
	grid := make([]string, 0, (close-openHour*60)/stepMinutes)
	for m := openHour * 60; m+stepMinutes <= close && m < minutesPerDay; m += stepMinutes {
		grid = append(grid, FormatMinutes(m))
	}
	return grid, nil
}

// DurationMinutes rounds a duration in hours to whole minutes. ok is false
// unless the result is at least one minute.
func DurationMinutes(durationHours float64) (int, bool) {
	if math.IsNaN(durationHours) || math.IsInf(durationHours, 0) {
		return 0, false
	}
	m := math.Round(durationHours * 60)
	if m < 1 || m > minutesPerDay {
		return 0, false
	}
	return int(m), true
}

// ComputeEndTime adds durationHours to start, rounded to the minute. Results
// that would reach or pass midnight are rejected with ErrOutOfDay.
func ComputeEndTime(start string, durationHours float64) (string, error) {
	m, err := ToMinutes(start)
	if err != nil {
		return "", err
	}
	minutes, ok := DurationMinutes(durationHours)
	if !ok {
		return "", fmt.Errorf("%w: duration %v", ErrInvalidFormat, durationHours)
	}
	end := m + minutes
	if end >= minutesPerDay {
		return "", fmt.Errorf("%w: %s + %vh", ErrOutOfDay, start, durationHours)
	}
	return FormatMinutes(end), nil
}

func digits(s string, minLen, maxLen int) bool {
	if len(s) < minLen || len(s) > maxLen {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func checkHours(openHour, closeHour, stepMinutes int) error {
	if openHour < 0 || closeHour > 24 || openHour >= closeHour {
		return fmt.Errorf("%w: %d-%d", ErrInvalidHours, openHour, closeHour)
	}
	if stepMinutes <= 0 {
		return fmt.Errorf("%w: step %d", ErrInvalidHours, stepMinutes)
	}
	return nil
}
