package pipeline

import (
	"time"

	"github.com/zaka-ai/paperpush/config"
)

// Schedule fires once per day at a fixed wall-clock time.
type Schedule struct {
	hour, min int
	next      time.Time
}

// NewSchedule parses an "HH:MM" time and anchors the first firing at or after
// now: today if the time is still ahead, otherwise tomorrow.
func NewSchedule(hhmm string, now time.Time) (*Schedule, error) {
	hour, min, err := config.ParseClock(hhmm)
	if err != nil {
		return nil, err
	}
	s := &Schedule{hour: hour, min: min}
	s.next = s.nextAfter(now)
	return s, nil
}

// Due reports whether the scheduled time has been reached.
func (s *Schedule) Due(now time.Time) bool {
	return !now.Before(s.next)
}

// Advance moves the schedule to the next firing after now.
// Call it after running the scheduled task.
func (s *Schedule) Advance(now time.Time) {
	s.next = s.nextAfter(now)
}

// Next returns the pending firing time.
func (s *Schedule) Next() time.Time {
	return s.next
}

func (s *Schedule) nextAfter(now time.Time) time.Time {
	at := time.Date(now.Year(), now.Month(), now.Day(), s.hour, s.min, 0, 0, now.Location())
	if !at.After(now) {
		at = at.AddDate(0, 0, 1)
	}
	return at
}
