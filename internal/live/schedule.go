package live

import (
	"fmt"
	"time"

	"github.com/TruWeaveTrader/statarb/internal/config"
)

// Schedule is a daily trading window on selected weekdays
type Schedule struct {
	start int // minutes after midnight
	end   int
	days  map[time.Weekday]bool
	loc   *time.Location
}

// NewSchedule builds a schedule from config. Missing fields default to
// 09:30-16:00 Monday to Friday in UTC.
func NewSchedule(cfg *config.ScheduleConfig) (*Schedule, error) {
	if cfg == nil {
		return nil, nil
	}

	startStr, endStr := cfg.StartTime, cfg.EndTime
	if startStr == "" {
		startStr = "09:30"
	}
	if endStr == "" {
		endStr = "16:00"
	}

	start, err := parseClock(startStr)
	if err != nil {
		return nil, err
	}
	end, err := parseClock(endStr)
	if err != nil {
		return nil, err
	}
	if end <= start {
		return nil, fmt.Errorf("schedule end %s must be after start %s", endStr, startStr)
	}

	loc := time.UTC
	if cfg.Timezone != "" {
		loc, err = time.LoadLocation(cfg.Timezone)
		if err != nil {
			return nil, fmt.Errorf("invalid schedule timezone: %w", err)
		}
	}

	days := cfg.Days
	if len(days) == 0 {
		days = []int{1, 2, 3, 4, 5}
	}
	s := &Schedule{start: start, end: end, days: make(map[time.Weekday]bool), loc: loc}
	for _, d := range days {
		if d < 1 || d > 7 {
			return nil, fmt.Errorf("invalid schedule day %d, expected 1 (Monday) to 7 (Sunday)", d)
		}
		s.days[time.Weekday(d%7)] = true
	}

	return s, nil
}

// Allows reports whether t falls inside the window
func (s *Schedule) Allows(t time.Time) bool {
	if s == nil {
		return true
	}
	local := t.In(s.loc)
	if !s.days[local.Weekday()] {
		return false
	}
	minute := local.Hour()*60 + local.Minute()
	return minute >= s.start && minute <= s.end
}

func parseClock(v string) (int, error) {
	t, err := time.Parse("15:04", v)
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q: %w", v, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}
