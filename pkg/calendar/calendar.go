// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package calendar

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const (
	// MillisecondThreshold separates second and millisecond timestamps.
	// Any timestamp whose magnitude exceeds it is treated as milliseconds,
	// which holds for every realistic timestamp after 2001-09-09.
	MillisecondThreshold = int64(1_000_000_000_000)

	// MinOffsetMinutes and MaxOffsetMinutes bound real-world UTC offsets (UTC-12:00 .. UTC+14:00).
	MinOffsetMinutes = -12 * 60
	MaxOffsetMinutes = 14 * 60

	dateLayout  = "2006-01-02"
	secondsDay  = 24 * 60 * 60
	maxUnixSecs = int64(253402300799) // 9999-12-31T23:59:59Z
)

var (
	ErrInvalidTimestamp = errors.New("invalid timestamp")
	ErrInvalidOffset    = errors.New("invalid timezone offset")
)

// Date is a local calendar day counted from 1970-01-01.
type Date int

// FromCivil builds a Date from year, month and day.
func FromCivil(year int, month time.Month, day int) Date {
	return Date(floorDiv(time.Date(year, month, day, 0, 0, 0, 0, time.UTC).Unix(), secondsDay))
}

// FromTime returns the calendar day of t in t's own location.
func FromTime(t time.Time) Date {
	y, m, d := t.Date()
	return FromCivil(y, m, d)
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return 0, fmt.Errorf("failed to parse date %q: %w", s, err)
	}
	return FromTime(t), nil
}

// MustParseDate is ParseDate for literals in tests and seed data.
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Zone returns the fixed zone for an offset in minutes east of UTC.
func Zone(tzOffsetMinutes int) *time.Location {
	sign, m := '+', tzOffsetMinutes
	if m < 0 {
		sign, m = '-', -m
	}
	return time.FixedZone(fmt.Sprintf("UTC%c%02d:%02d", sign, m/60, m%60), tzOffsetMinutes*60)
}

// ValidateOffset reports whether the offset is a real-world UTC offset.
func ValidateOffset(tzOffsetMinutes int) error {
	if tzOffsetMinutes < MinOffsetMinutes || tzOffsetMinutes > MaxOffsetMinutes {
		return fmt.Errorf("%w: %d minutes (must be %d..%d)", ErrInvalidOffset, tzOffsetMinutes, MinOffsetMinutes, MaxOffsetMinutes)
	}
	return nil
}

// NormalizeTimestamp converts a second or millisecond epoch timestamp to seconds.
func NormalizeTimestamp(ts int64) (int64, error) {
	if ts > MillisecondThreshold || ts < -MillisecondThreshold {
		ts /= 1000
	}
	if ts <= 0 || ts > maxUnixSecs {
		return 0, fmt.Errorf("%w: %d", ErrInvalidTimestamp, ts)
	}
	return ts, nil
}

// LocalDate converts an epoch timestamp to the calendar day seen at the given UTC offset.
func LocalDate(ts int64, tzOffsetMinutes int) (Date, error) {
	secs, err := NormalizeTimestamp(ts)
	if err != nil {
		return 0, err
	}
	return FromTime(time.Unix(secs, 0).In(Zone(tzOffsetMinutes))), nil
}

// Today returns the local calendar day of now at the given UTC offset.
func Today(now time.Time, tzOffsetMinutes int) Date {
	return FromTime(now.In(Zone(tzOffsetMinutes)))
}

// Prev returns the day immediately before d.
func (d Date) Prev() Date {
	return d - 1
}

// AddDays returns d shifted by n days.
func (d Date) AddDays(n int) Date {
	return d + Date(n)
}

// Before reports whether d is earlier than o.
func (d Date) Before(o Date) bool {
	return d < o
}

// After reports whether d is later than o.
func (d Date) After(o Date) bool {
	return d > o
}

// Weekday returns the weekday index with 0=Monday .. 6=Sunday.
func (d Date) Weekday() int {
	// 1970-01-01 was a Thursday.
	return int(((int64(d)+3)%7 + 7) % 7)
}

// Time returns midnight UTC of d.
func (d Date) Time() time.Time {
	return time.Unix(int64(d)*secondsDay, 0).UTC()
}

func (d Date) String() string {
	return d.Time().Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("date must be a YYYY-MM-DD string: %w", err)
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
