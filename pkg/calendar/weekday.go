// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package calendar

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	Monday = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

var weekdayNames = map[string]int{
	"mo": Monday, "mon": Monday, "montag": Monday, "monday": Monday,
	"di": Tuesday, "tue": Tuesday, "dienstag": Tuesday, "tuesday": Tuesday,
	"mi": Wednesday, "wed": Wednesday, "mittwoch": Wednesday, "wednesday": Wednesday,
	"do": Thursday, "thu": Thursday, "donnerstag": Thursday, "thursday": Thursday,
	"fr": Friday, "fri": Friday, "freitag": Friday, "friday": Friday,
	"sa": Saturday, "sat": Saturday, "samstag": Saturday, "saturday": Saturday,
	"so": Sunday, "sun": Sunday, "sonntag": Sunday, "sunday": Sunday,
}

// WeekdaySet is a sorted set of weekday indices (0=Monday .. 6=Sunday).
// An empty set means every day.
type WeekdaySet []int

// ParseWeekday accepts an index 0..6, 7 for Sunday, or an English/German day name.
func ParseWeekday(raw string) (int, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if n, err := strconv.Atoi(s); err == nil {
		return weekdayFromInt(n)
	}
	if d, ok := weekdayNames[s]; ok {
		return d, nil
	}
	return 0, fmt.Errorf("unknown weekday %q", raw)
}

func weekdayFromInt(n int) (int, error) {
	switch {
	case n >= Monday && n <= Sunday:
		return n, nil
	case n == 7:
		return Sunday, nil
	}
	return 0, fmt.Errorf("weekday %d out of range", n)
}

// NewWeekdaySet normalises indices into a sorted set without duplicates.
func NewWeekdaySet(days ...int) (WeekdaySet, error) {
	seen := make(map[int]bool, len(days))
	out := make(WeekdaySet, 0, len(days))
	for _, n := range days {
		d, err := weekdayFromInt(n)
		if err != nil {
			return nil, err
		}
		if !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}
	sort.Ints(out)
	return out, nil
}

// ParseWeekdaySet normalises raw weekday tokens (numbers or names).
func ParseWeekdaySet(raw []string) (WeekdaySet, error) {
	days := make([]int, 0, len(raw))
	for _, r := range raw {
		d, err := ParseWeekday(r)
		if err != nil {
			return nil, err
		}
		days = append(days, d)
	}
	return NewWeekdaySet(days...)
}

// Contains reports whether the weekday index is in the set.
func (s WeekdaySet) Contains(weekday int) bool {
	for _, d := range s {
		if d == weekday {
			return true
		}
	}
	return false
}

// Validate checks that every entry is a canonical index.
func (s WeekdaySet) Validate() error {
	for _, d := range s {
		if d < Monday || d > Sunday {
			return fmt.Errorf("weekday %d out of range", d)
		}
	}
	return nil
}

// UnmarshalJSON accepts a list mixing numbers and day names.
func (s *WeekdaySet) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("weekdays must be a list: %w", err)
	}
	tokens := make([]string, 0, len(raw))
	for _, r := range raw {
		var str string
		if err := json.Unmarshal(r, &str); err == nil {
			tokens = append(tokens, str)
			continue
		}
		var n int
		if err := json.Unmarshal(r, &n); err != nil {
			return fmt.Errorf("invalid weekday %s", string(r))
		}
		tokens = append(tokens, strconv.Itoa(n))
	}
	parsed, err := ParseWeekdaySet(tokens)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// UnmarshalYAML accepts the same forms as UnmarshalJSON.
func (s *WeekdaySet) UnmarshalYAML(node *yaml.Node) error {
	var tokens []string
	if err := node.Decode(&tokens); err != nil {
		return fmt.Errorf("weekdays must be a list: %w", err)
	}
	parsed, err := ParseWeekdaySet(tokens)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
