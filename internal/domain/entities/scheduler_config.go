package entities

import (
	"errors"
	"strings"
)

// SchedulerConfigScheduleKey is the key under which the comma-separated
// "HH:MM" UTC schedule is stored.
const SchedulerConfigScheduleKey = "schedule"

// DefaultSchedule is the schedule seeded into a fresh scheduler_config table
// and used as the final fallback when POST_TIMES is also unset.
const DefaultSchedule = "08:00,12:00,16:00,20:00"

var errSchedulerConfigKeyMissing = errors.New("scheduler config key is required")

// SchedulerConfigEntity is a key/value row in the scheduler_config table.
type SchedulerConfigEntity struct {
	Key   string
	Value string
}

// Validate ensures the entity adheres to domain invariants.
func (s SchedulerConfigEntity) Validate() error {
	if strings.TrimSpace(s.Key) == "" {
		return errSchedulerConfigKeyMissing
	}
	return nil
}

// ParseSchedule splits the stored schedule value into trimmed "HH:MM" tokens,
// dropping empty entries produced by stray commas.
func ParseSchedule(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	times := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			times = append(times, p)
		}
	}
	return times
}

// FormatSchedule joins "HH:MM" tokens back into the stored representation.
func FormatSchedule(times []string) string {
	return strings.Join(times, ",")
}
