// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package calendar

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestLocalDate_SecondsAndMillisecondsAgree(t *testing.T) {
	secs, err := LocalDate(1704067200, 0)
	require.NoError(t, err)
	millis, err := LocalDate(1704067200000, 0)
	require.NoError(t, err)

	assert.Equal(t, secs, millis)
	assert.Equal(t, "2024-01-01", secs.String())
}

func TestLocalDate_Offsets(t *testing.T) {
	// 2024-01-01T00:00:00Z
	const ts = int64(1704067200)

	tests := []struct {
		name   string
		offset int
		want   string
	}{
		{name: "utc", offset: 0, want: "2024-01-01"},
		{name: "west of utc falls on previous day", offset: -60, want: "2023-12-31"},
		{name: "east of utc", offset: 120, want: "2024-01-01"},
		{name: "half hour offset", offset: -30, want: "2023-12-31"},
		{name: "max offset", offset: MaxOffsetMinutes, want: "2024-01-01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := LocalDate(ts, tt.offset)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestLocalDate_RejectsOutOfRange(t *testing.T) {
	for _, ts := range []int64{0, -5, 999_999_999_999_999_999} {
		_, err := LocalDate(ts, 0)
		assert.ErrorIs(t, err, ErrInvalidTimestamp, "timestamp %d", ts)
	}
}

func TestNormalizeTimestamp_Threshold(t *testing.T) {
	// exactly 10^12 is still read as seconds, which lands past year 9999
	_, err := NormalizeTimestamp(MillisecondThreshold)
	assert.ErrorIs(t, err, ErrInvalidTimestamp)

	secs, err := NormalizeTimestamp(MillisecondThreshold + 1000)
	require.NoError(t, err)
	assert.Equal(t, int64(1_000_000_001), secs)
}

func TestToday(t *testing.T) {
	now := time.Date(2024, 1, 15, 23, 30, 0, 0, time.UTC)

	assert.Equal(t, "2024-01-15", Today(now, 0).String())
	assert.Equal(t, "2024-01-16", Today(now, 60).String())
	assert.Equal(t, "2024-01-15", Today(now, -600).String())
}

func TestDate_Arithmetic(t *testing.T) {
	d := MustParseDate("2024-03-01")

	assert.Equal(t, "2024-02-29", d.Prev().String())
	assert.Equal(t, "2024-03-15", d.AddDays(14).String())
	assert.True(t, d.Prev().Before(d))
	assert.True(t, d.After(d.Prev()))
}

func TestDate_Weekday(t *testing.T) {
	tests := map[string]int{
		"2024-01-01": Monday,
		"2024-01-03": Wednesday,
		"2024-01-06": Saturday,
		"2024-01-07": Sunday,
		"1970-01-01": Thursday,
		"1969-12-29": Monday,
	}
	for s, want := range tests {
		assert.Equal(t, want, MustParseDate(s).Weekday(), s)
	}
}

func TestDate_JSON(t *testing.T) {
	type wrapper struct {
		Day  Date  `json:"day"`
		Last *Date `json:"last,omitempty"`
	}

	d := MustParseDate("2024-01-15")
	data, err := json.Marshal(wrapper{Day: d})
	require.NoError(t, err)
	assert.JSONEq(t, `{"day":"2024-01-15"}`, string(data))

	var out wrapper
	require.NoError(t, json.Unmarshal([]byte(`{"day":"2024-02-01","last":"2024-01-31"}`), &out))
	assert.Equal(t, "2024-02-01", out.Day.String())
	require.NotNil(t, out.Last)
	assert.Equal(t, "2024-01-31", out.Last.String())

	assert.Error(t, json.Unmarshal([]byte(`{"day":20240101}`), &out))
}

func TestValidateOffset(t *testing.T) {
	assert.NoError(t, ValidateOffset(0))
	assert.NoError(t, ValidateOffset(-720))
	assert.NoError(t, ValidateOffset(840))
	assert.ErrorIs(t, ValidateOffset(841), ErrInvalidOffset)
	assert.ErrorIs(t, ValidateOffset(-721), ErrInvalidOffset)
}

func TestWeekdaySet_Parse(t *testing.T) {
	tests := []struct {
		name    string
		raw     []string
		want    WeekdaySet
		wantErr bool
	}{
		{name: "indices", raw: []string{"4", "0", "2"}, want: WeekdaySet{0, 2, 4}},
		{name: "seven is sunday", raw: []string{"7", "6"}, want: WeekdaySet{6}},
		{name: "english names", raw: []string{"Mon", "wed", "FRI"}, want: WeekdaySet{0, 2, 4}},
		{name: "german names", raw: []string{"Montag", "di", "sonntag"}, want: WeekdaySet{0, 1, 6}},
		{name: "empty means every day", raw: []string{}, want: WeekdaySet{}},
		{name: "unknown name", raw: []string{"someday"}, wantErr: true},
		{name: "out of range", raw: []string{"8"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseWeekdaySet(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWeekdaySet_Decoding(t *testing.T) {
	var fromJSON WeekdaySet
	require.NoError(t, json.Unmarshal([]byte(`[0, "wed", 7]`), &fromJSON))
	assert.Equal(t, WeekdaySet{0, 2, 6}, fromJSON)

	var fromYAML WeekdaySet
	require.NoError(t, yaml.Unmarshal([]byte("[mon, 4, so]"), &fromYAML))
	assert.Equal(t, WeekdaySet{0, 4, 6}, fromYAML)

	assert.True(t, fromYAML.Contains(Friday))
	assert.False(t, fromYAML.Contains(Tuesday))
}
