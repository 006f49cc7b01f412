// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package catalog

import (
	"fmt"
	"os"
	"strings"

	"github.com/AccelByte/extend-habit-challenge/pkg/calendar"
	"gopkg.in/yaml.v3"
)

// Config is the seed catalog of challenges created at boot.
type Config struct {
	Challenges []ChallengeConfig `yaml:"challenges"`
}

// ChallengeConfig describes one seeded challenge and its initial members.
type ChallengeConfig struct {
	ID              string              `yaml:"id"`
	OwnerID         string              `yaml:"ownerId"`
	Name            string              `yaml:"name"`
	Description     string              `yaml:"description,omitempty"`
	StartDate       string              `yaml:"startDate,omitempty"` // YYYY-MM-DD in the challenge's offset
	StartAt         int64               `yaml:"startAt,omitempty"`   // epoch seconds or milliseconds
	TZOffsetMinutes int                 `yaml:"tzOffsetMinutes,omitempty"`
	DueWeekdays     calendar.WeekdaySet `yaml:"dueWeekdays,omitempty"`
	DurationDays    *int                `yaml:"durationDays,omitempty"`
	AllowedFailures *int                `yaml:"allowedFailures,omitempty"`
	Members         []string            `yaml:"members,omitempty"`
}

// LoadConfig loads a catalog from a YAML file.
// Supports environment variable expansion in the form ${VAR_NAME} or ${VAR_NAME:default}.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file %s: %w", path, err)
	}

	return ParseConfig(data)
}

// ParseConfig parses and validates catalog YAML.
func ParseConfig(data []byte) (*Config, error) {
	expanded := expandEnvVars(string(data))

	var config Config
	if err := yaml.Unmarshal([]byte(expanded), &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML catalog: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid catalog: %w", err)
	}

	return &config, nil
}

// Validate validates the catalog for common errors.
func (c *Config) Validate() error {
	ids := make(map[string]bool)
	for _, ch := range c.Challenges {
		if ch.ID == "" {
			return fmt.Errorf("challenge with empty ID found")
		}
		if ids[ch.ID] {
			return fmt.Errorf("duplicate challenge ID: %s", ch.ID)
		}
		ids[ch.ID] = true

		if ch.OwnerID == "" {
			return fmt.Errorf("challenge %s has empty ownerId", ch.ID)
		}
		if ch.StartDate != "" && ch.StartAt != 0 {
			return fmt.Errorf("challenge %s sets both startDate and startAt", ch.ID)
		}
		if ch.StartDate != "" {
			if _, err := calendar.ParseDate(ch.StartDate); err != nil {
				return fmt.Errorf("challenge %s: %w", ch.ID, err)
			}
		}
		if err := calendar.ValidateOffset(ch.TZOffsetMinutes); err != nil {
			return fmt.Errorf("challenge %s: %w", ch.ID, err)
		}

		members := make(map[string]bool)
		for _, m := range ch.Members {
			if m == "" {
				return fmt.Errorf("challenge %s has an empty member", ch.ID)
			}
			if members[m] {
				return fmt.Errorf("challenge %s lists member %s twice", ch.ID, m)
			}
			members[m] = true
		}
	}

	return nil
}

// ResolveStartAt returns the start timestamp, converting StartDate to local midnight.
func (c ChallengeConfig) ResolveStartAt() (int64, error) {
	if c.StartDate == "" {
		return c.StartAt, nil
	}
	d, err := calendar.ParseDate(c.StartDate)
	if err != nil {
		return 0, err
	}
	return d.Time().Unix() - int64(c.TZOffsetMinutes)*60, nil
}

// expandEnvVars expands environment variables in the format ${VAR} or ${VAR:default}.
func expandEnvVars(s string) string {
	return os.Expand(s, func(key string) string {
		// Support ${VAR:default} syntax
		parts := strings.SplitN(key, ":", 2)
		varName := parts[0]
		defaultValue := ""
		if len(parts) == 2 {
			defaultValue = parts[1]
		}

		value := os.Getenv(varName)
		if value == "" {
			return defaultValue
		}
		return value
	})
}
