package timeslot

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToMinutes(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"00:00", 0},
		{"08:30", 510},
		{"9:05", 545},
		{"23:59", 1439},
	}
	for _, tc := range cases {
		got, err := ToMinutes(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestToMinutes_InvalidFormat(t *testing.T) {
	for _, in := range []string{"", "0900", "24:00", "12:60", "ab:cd", "12:5", "-1:00", "+9:00", "12:00:00", "123:00", " 09:00 ", "09:00 ", "\t9:00"} {
		_, err := ToMinutes(in)
		assert.ErrorIs(t, err, ErrInvalidFormat, in)
	}
}

func TestFormatMinutes(t *testing.T) {
	assert.Equal(t, "08:00", FormatMinutes(480))
	assert.Equal(t, "17:30", FormatMinutes(1050))

	n, err := Normalize("9:00")
	require.NoError(t, err)
	assert.Equal(t, "09:00", n)
}

func TestTimesOverlap(t *testing.T) {
	ok, err := TimesOverlap("09:00", "10:30", "10:00", "11:00")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = TimesOverlap("09:00", "10:00", "10:00", "11:00")
	require.NoError(t, err)
	assert.False(t, ok, "touching intervals must not overlap")

	ok, err = TimesOverlap("08:00", "12:00", "09:00", "10:00")
	require.NoError(t, err)
	assert.True(t, ok, "containment is an overlap")

	_, err = TimesOverlap("9", "10:00", "10:00", "11:00")
	assert.ErrorIs(t, err, ErrInvalidFormat)
}

func TestTimesOverlap_Symmetric(t *testing.T) {
	grid, err := GenerateSlotGrid(8, 12, 30)
	require.NoError(t, err)
	grid = append(grid, "12:00")

	for i := range grid {
		for j := i + 1; j < len(grid); j++ {
			for k := range grid {
				for l := k + 1; l < len(grid); l++ {
					ab, err := TimesOverlap(grid[i], grid[j], grid[k], grid[l])
					require.NoError(t, err)
					ba, err := TimesOverlap(grid[k], grid[l], grid[i], grid[j])
					require.NoError(t, err)
					if ab != ba {
						t.Fatalf("asymmetric: %s-%s vs %s-%s", grid[i], grid[j], grid[k], grid[l])
					}
				}
			}
		}
	}
}

func TestIsWithinOperatingHours(t *testing.T) {
	cases := []struct {
		time      string
		inclusive bool
		want      bool
	}{
		{"08:00", false, true},
		{"07:59", false, false},
		{"17:59", false, true},
		{"18:00", false, false},
		{"18:00", true, true},
		{"08:00", true, false},
		{"18:01", true, false},
	}
	for _, tc := range cases {
		got, err := IsWithinOperatingHours(tc.time, 8, 18, tc.inclusive)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "%s inclusive=%v", tc.time, tc.inclusive)
	}

	_, err := IsWithinOperatingHours("8am", 8, 18, false)
	assert.ErrorIs(t, err, ErrInvalidFormat)
}

func TestGenerateSlotGrid(t *testing.T) {
	grid, err := GenerateSlotGrid(8, 18, 30)
	require.NoError(t, err)
	require.Len(t, grid, 20)
	assert.Equal(t, "08:00", grid[0])
	assert.Equal(t, "08:30", grid[1])
	assert.Equal(t, "17:30", grid[len(grid)-1])

	hourly, err := GenerateSlotGrid(8, 10, 60)
	require.NoError(t, err)
	assert.Equal(t, []string{"08:00", "09:00"}, hourly)

	odd, err := GenerateSlotGrid(8, 9, 45)
	require.NoError(t, err)
	assert.Equal(t, []string{"08:00"}, odd)

	_, err = GenerateSlotGrid(18, 8, 30)
	assert.ErrorIs(t, err, ErrInvalidHours)
	_, err = GenerateSlotGrid(8, 18, 0)
	assert.ErrorIs(t, err, ErrInvalidHours)
}

func TestComputeEndTime(t *testing.T) {
	end, err := ComputeEndTime("09:00", 1.5)
	require.NoError(t, err)
	assert.Equal(t, "10:30", end)

	end, err = ComputeEndTime("16:00", 2)
	require.NoError(t, err)
	assert.Equal(t, "18:00", end)

	end, err = ComputeEndTime("08:00", 1.0/3)
	require.NoError(t, err)
	assert.Equal(t, "08:20", end)

	_, err = ComputeEndTime("23:00", 1)
	assert.ErrorIs(t, err, ErrOutOfDay)

	for _, d := range []float64{0, -1, 0.004, math.NaN(), math.Inf(1)} {
		_, err = ComputeEndTime("09:00", d)
		assert.ErrorIs(t, err, ErrInvalidFormat, "duration %v", d)
	}

	end, err = ComputeEndTime("09:00", 0.01)
	require.NoError(t, err)
	assert.Equal(t, "09:01", end)
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-05-01")
	require.NoError(t, err)
	assert.Equal(t, "2025-05-01", FormatDate(d))

	for _, in := range []string{"", "2025-13-01", "01/05/2025", "2025-5-1", " 2025-05-01"} {
		_, err := ParseDate(in)
		assert.ErrorIs(t, err, ErrInvalidFormat, in)
	}
}
