// Package schedule computes feeding times from schedules and feeding history.
// Everything here is pure: no storage, no clock.
package schedule

import (
	"strconv"
	"strings"
	"time"

	"pet-feeding/internal/model"
)

// Clock is a wall-clock time of day.
type Clock struct {
	Hour   int
	Minute int
}

// ParseClock parses an HH:MM string.
func ParseClock(s string) (Clock, bool) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return Clock{}, false
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return Clock{}, false
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return Clock{}, false
	}
	return Clock{Hour: hour, Minute: minute}, true
}

// ParseTimes parses a comma-separated HH:MM list. Malformed entries are skipped.
func ParseTimes(times string) []Clock {
	var clocks []Clock
	for _, raw := range strings.Split(times, ",") {
		if c, ok := ParseClock(raw); ok {
			clocks = append(clocks, c)
		}
	}
	return clocks
}

// NextOccurrence returns the first instant at or after now whose wall clock in
// loc reads c. Day arithmetic happens on the calendar in loc, so a DST switch
// does not shift the result by an hour.
func NextOccurrence(c Clock, now time.Time, loc *time.Location) time.Time {
	local := now.In(loc)
	y, m, d := local.Date()
	candidate := time.Date(y, m, d, c.Hour, c.Minute, 0, 0, loc)
	if candidate.Before(now) {
		candidate = time.Date(y, m, d+1, c.Hour, c.Minute, 0, 0, loc)
	}
	return candidate
}

// NextFeeding returns when cat should be fed next.
//
// Fixed-time schedules win over interval schedules, which win over the cat's
// own interval. While any schedule has an override in effect (OverrideUntil
// after now), only those overriding schedules are considered. last may be nil.
// The second result is false when nothing is configured.
func NextFeeding(cat model.Cat, schedules []model.Schedule, last *model.FeedingLog, now time.Time, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.UTC
	}
	active := effectiveSchedules(schedules, now)

	var fixed []Clock
	interval := 0
	for _, s := range active {
		switch s.Type {
		case model.ScheduleFixedTime:
			fixed = append(fixed, ParseTimes(s.Times)...)
		case model.ScheduleInterval:
			if interval == 0 && s.Interval != nil && *s.Interval > 0 {
				interval = *s.Interval
			}
		}
	}

	if len(fixed) > 0 {
		var next time.Time
		for _, c := range fixed {
			occ := NextOccurrence(c, now, loc)
			if next.IsZero() || occ.Before(next) {
				next = occ
			}
		}
		return next, true
	}

	if interval == 0 {
		interval = cat.IntervalHours()
	}
	if interval == 0 {
		return time.Time{}, false
	}

	step := time.Duration(interval) * time.Hour
	if last == nil {
		return now.Add(step), true
	}
	return last.FedAt.Add(step), true
}

// IsOverdue reports whether next is strictly before now.
func IsOverdue(next, now time.Time) bool {
	return next.Before(now)
}

func effectiveSchedules(schedules []model.Schedule, now time.Time) []model.Schedule {
	var enabled, overriding []model.Schedule
	for _, s := range schedules {
		if !s.Enabled {
			continue
		}
		enabled = append(enabled, s)
		if s.OverrideUntil != nil && s.OverrideUntil.After(now) {
			overriding = append(overriding, s)
		}
	}
	if len(overriding) > 0 {
		return overriding
	}
	return enabled
}
