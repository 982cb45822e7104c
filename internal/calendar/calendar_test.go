package calendar

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDayOf(t *testing.T) {
	t.Parallel()

	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	// 23:30 UTC on March 1st is already March 2nd in Berlin.
	instant := time.Date(2024, time.March, 1, 23, 30, 0, 0, time.UTC)

	assert.Equal(t, Day{2024, time.March, 1}, New(nil).DayOf(instant))
	assert.Equal(t, Day{2024, time.March, 2}, New(berlin).DayOf(instant))
}

func TestDaysBetween(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		a, b Day
		want int
	}{
		{"same day", Day{2024, 1, 1}, Day{2024, 1, 1}, 0},
		{"next day", Day{2024, 1, 1}, Day{2024, 1, 2}, 1},
		{"across month", Day{2024, 1, 31}, Day{2024, 2, 1}, 1},
		{"leap day", Day{2024, 2, 28}, Day{2024, 3, 1}, 2},
		{"backwards", Day{2024, 1, 5}, Day{2024, 1, 1}, -4},
		{"across year", Day{2023, 12, 31}, Day{2024, 1, 1}, 1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DaysBetween(tc.a, tc.b))
		})
	}
}

func TestDaysBetweenAcrossDST(t *testing.T) {
	t.Parallel()

	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	cal := New(ny)

	// Clocks spring forward on 2024-03-10; that day has 23 hours.
	before := time.Date(2024, time.March, 9, 23, 0, 0, 0, ny)
	after := time.Date(2024, time.March, 10, 23, 0, 0, 0, ny)

	assert.Equal(t, 1, cal.DaysBetween(before, after))
	assert.Equal(t, time.Date(2024, time.March, 10, 0, 0, 0, 0, ny), cal.StartOfDay(after))
}

func TestDayStringAndParse(t *testing.T) {
	t.Parallel()

	d := Day{2024, time.July, 4}
	assert.Equal(t, "2024-07-04", d.String())

	parsed, err := ParseDay("2024-07-04")
	require.NoError(t, err)
	assert.Equal(t, d, parsed)

	_, err = ParseDay("07/04/2024")
	assert.Error(t, err)

	assert.Equal(t, Day{2024, time.August, 3}, d.AddDays(30))
	assert.True(t, d.Before(d.AddDays(1)))
	assert.False(t, d.Before(d))
	assert.True(t, Day{}.IsZero())
}

func TestDayTextEncoding(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(map[string]Day{"due": {2024, time.February, 29}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"due":"2024-02-29"}`, string(data))

	var decoded map[string]Day
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, Day{2024, time.February, 29}, decoded["due"])

	var d Day
	assert.Error(t, d.UnmarshalText([]byte("tomorrow")))
}

func TestLoadLocation(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		input      string
		wantOffset int
		wantErr    bool
	}{
		{input: "", wantOffset: 0},
		{input: "UTC", wantOffset: 0},
		{input: "gmt", wantOffset: 0},
		{input: "UTC+3", wantOffset: 3 * 3600},
		{input: "UTC-7", wantOffset: -7 * 3600},
		{input: "UTC+5:30", wantOffset: 5*3600 + 30*60},
		{input: "-03:30", wantOffset: -(3*3600 + 30*60)},
		{input: "UTC+15", wantErr: true},
		{input: "Mars/Olympus", wantErr: true},
	}

	ref := time.Date(2024, time.January, 15, 12, 0, 0, 0, time.UTC)
	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			loc, err := LoadLocation(tc.input)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			_, offset := ref.In(loc).Zone()
			assert.Equal(t, tc.wantOffset, offset)
		})
	}
}
