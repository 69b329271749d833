// Package timewindow gates standup submissions to a daily local-time window.
package timewindow

import (
	"fmt"
	"time"
)

type Status string

const (
	StatusBefore Status = "before"
	StatusDuring Status = "during"
	StatusAfter  Status = "after"
)

// ClockTime is a wall-clock time of day in the policy location.
type ClockTime struct {
	Hour   int
	Minute int
}

func (c ClockTime) offset() time.Duration {
	return time.Duration(c.Hour)*time.Hour + time.Duration(c.Minute)*time.Minute
}

// Label renders a 12-hour clock string such as "9:30 AM".
func (c ClockTime) Label() string {
	return time.Date(2000, 1, 1, c.Hour, c.Minute, 0, 0, time.UTC).Format("3:04 PM")
}

// Policy is the [Start, End] submission window. Both bounds are inclusive;
// a window ending at 12:30 closes after 12:30:00.
type Policy struct {
	loc   *time.Location
	start ClockTime
	end   ClockTime
	now   func() time.Time
}

func New(loc *time.Location, start, end ClockTime, now func() time.Time) *Policy {
	if loc == nil {
		loc = DefaultLocation()
	}
	if now == nil {
		now = time.Now
	}
	return &Policy{loc: loc, start: start, end: end, now: now}
}

// LoadLocation resolves a zone name, falling back to a fixed UTC+1 WAT zone
// when the zone database is unavailable.
func LoadLocation(name string) *time.Location {
	if name != "" {
		if loc, err := time.LoadLocation(name); err == nil {
			return loc
		}
	}
	return DefaultLocation()
}

func DefaultLocation() *time.Location {
	return time.FixedZone("WAT", 60*60)
}

func (p *Policy) Location() *time.Location { return p.loc }
func (p *Policy) Start() ClockTime          { return p.start }
func (p *Policy) End() ClockTime            { return p.end }

// Now is the current time in the policy location.
func (p *Policy) Now() time.Time { return p.now().In(p.loc) }

// Today is local midnight of the current day.
func (p *Policy) Today() time.Time {
	n := p.Now()
	return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, p.loc)
}

// Zone is the abbreviation shown next to clock times, e.g. "WAT".
func (p *Policy) Zone() string {
	name, _ := p.Now().Zone()
	return name
}

func (p *Policy) StatusAt(t time.Time) Status {
	t = t.In(p.loc)
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, p.loc)
	tod := t.Sub(midnight)
	switch {
	case tod < p.start.offset():
		return StatusBefore
	case tod > p.end.offset():
		return StatusAfter
	default:
		return StatusDuring
	}
}

func (p *Policy) CurrentStatus() Status { return p.StatusAt(p.Now()) }

func (p *Policy) IsWithinWindow() bool { return p.CurrentStatus() == StatusDuring }

// Describe is "9:30 AM - 12:30 PM WAT".
func (p *Policy) Describe() string {
	return fmt.Sprintf("%s - %s %s", p.start.Label(), p.end.Label(), p.Zone())
}

// Message is the guidance shown to a user for the given status.
func (p *Policy) Message(userName string, status Status) string {
	zone := p.Zone()
	switch status {
	case StatusBefore:
		return fmt.Sprintf(`Thanks for being so early, %s!

However, standup submissions don't open until %s %s.
Please come back then to submit your update.

In the meantime, feel free to ask me for yesterday's summary!`, userName, p.start.Label(), zone)
	case StatusAfter:
		return fmt.Sprintf(`Hey %s!

Unfortunately, today's standup window closed at %s %s.
Your update for today can no longer be included in the daily summary.

You can submit your standup tomorrow starting at %s %s.

Want to see today's summary? Just ask!`, userName, p.end.Label(), zone, p.start.Label(), zone)
	default:
		return fmt.Sprintf("Perfect timing, %s!", userName)
	}
}
