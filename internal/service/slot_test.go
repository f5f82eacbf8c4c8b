package service

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeekOfStartsOnSunday(t *testing.T) {
	week := WeekOf(time.Date(2024, 6, 13, 18, 30, 0, 0, time.UTC), time.UTC)
	assert.Equal(t, "2024-06-09", week.Key())
	assert.Equal(t, time.Sunday, week.Start.Weekday())
	assert.True(t, week.End().Equal(time.Date(2024, 6, 16, 0, 0, 0, 0, time.UTC)))
	assert.True(t, week.Contains(time.Date(2024, 6, 15, 23, 0, 0, 0, time.UTC)))
	assert.False(t, week.Contains(week.End()))
}

func TestParseWeekDate(t *testing.T) {
	week, err := ParseWeekDate("2024-06-12", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, "2024-06-09", week.Key())

	week, err = ParseWeekDate("2024-06-09T02:00:00Z", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, "2024-06-09", week.Key())

	_, err = ParseWeekDate("09/06/2024", time.UTC)
	assert.Error(t, err)
}

func TestWeekAtUsesBusinessTimezone(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Jerusalem")
	require.NoError(t, err)
	week, err := ParseWeekDate("2024-06-09", loc)
	require.NoError(t, err)

	at := week.At(1, 9)
	assert.Equal(t, 9, at.In(loc).Hour())
	assert.Equal(t, time.Monday, at.In(loc).Weekday())
	assert.Equal(t, 6, at.UTC().Hour())
	assert.Equal(t, "Mon 09:00", LabelAt(at, loc))
}

func TestSlotLabelRoundTrip(t *testing.T) {
	for day := 0; day < 7; day++ {
		for _, hour := range []int{0, 7, 9, 15, 23} {
			label := SlotLabel(day, hour)
			gotDay, gotHour, minute, err := ParseSlotLabel(label)
			require.NoError(t, err, label)
			assert.Equal(t, day, gotDay, label)
			assert.Equal(t, hour, gotHour, label)
			assert.Zero(t, minute, label)
		}
	}
	assert.Equal(t, "Mon 09:00", SlotLabel(1, 9))

	for _, bad := range []string{"", "Monday 09:00", "Mon", "Mon 9am", "Xyz 09:00"} {
		_, _, _, err := ParseSlotLabel(bad)
		assert.Error(t, err, bad)
	}
}

func TestWeekSlotRejectsSkippedHour(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Jerusalem")
	require.NoError(t, err)
	week, err := ParseWeekDate("2024-03-24", loc)
	require.NoError(t, err)

	_, ok := week.Slot(5, 2)
	assert.False(t, ok)
	assert.Equal(t, 3, week.At(5, 2).In(loc).Hour())

	at, ok := week.Slot(5, 3)
	assert.True(t, ok)
	assert.Equal(t, "Fri 03:00", LabelAt(at, loc))

	at, ok = week.Slot(1, 9)
	assert.True(t, ok)
	assert.Equal(t, "Mon 09:00", LabelAt(at, loc))
}
