// Package dateparse turns natural-language date phrases into calendar days.
//
// Parsing is permissive: anything unrecognized resolves to today rather than
// failing, so a typo in a date phrase silently means "today".
package dateparse

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jinzhu/now"
)

const (
	ISOLayout  = "2006-01-02"
	longLayout = "January 02, 2006"

	// maxRangeDays bounds "last N days" so a range can't explode into an
	// unbounded per-day matrix.
	maxRangeDays = 366
)

var (
	isoRe       = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)
	lastDayRe   = regexp.MustCompile(`\blast\s+(monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`)
	daysAgoRe   = regexp.MustCompile(`(\d+)\s+days?\s+ago`)
	nDaysRe     = regexp.MustCompile(`\b(?:last|past)\s+(\d+)\s+days?\b`)
	lastTwoWkRe = regexp.MustCompile(`\blast\s+(?:two|2)\s+weeks\b`)
	pastTwoWkRe = regexp.MustCompile(`\bpast\s+(?:two|2)\s+weeks\b`)

	weekdays = map[string]time.Weekday{
		"sunday":    time.Sunday,
		"monday":    time.Monday,
		"tuesday":   time.Tuesday,
		"wednesday": time.Wednesday,
		"thursday":  time.Thursday,
		"friday":    time.Friday,
		"saturday":  time.Saturday,
	}
)

type Parser struct {
	loc *time.Location
	now func() time.Time
}

func New(loc *time.Location, clock func() time.Time) *Parser {
	if loc == nil {
		loc = time.UTC
	}
	if clock == nil {
		clock = time.Now
	}
	return &Parser{loc: loc, now: clock}
}

func (p *Parser) Location() *time.Location { return p.loc }

// Today is local midnight of the current day.
func (p *Parser) Today() time.Time {
	return Day(p.now().In(p.loc))
}

// Day truncates t to midnight in its own location.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// ISO formats a day as YYYY-MM-DD, the storage key for report dates.
func ISO(d time.Time) string { return d.Format(ISOLayout) }

func (p *Parser) ParseISO(s string) (time.Time, error) {
	return time.ParseInLocation(ISOLayout, s, p.loc)
}

// Days lists every day in [start, end].
func Days(start, end time.Time) []time.Time {
	start, end = Day(start), Day(end)
	var out []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		out = append(out, d)
	}
	return out
}

// ParseDate resolves a single day. Rules are tried in order; the first match
// wins and unmatched input means today.
func (p *Parser) ParseDate(query string) time.Time {
	q := strings.ToLower(strings.TrimSpace(query))
	today := p.Today()

	if strings.Contains(q, "today") {
		return today
	}
	if strings.Contains(q, "yesterday") && !strings.Contains(q, "day before yesterday") {
		return today.AddDate(0, 0, -1)
	}
	if strings.Contains(q, "day before yesterday") {
		return today.AddDate(0, 0, -2)
	}
	for _, s := range isoRe.FindAllString(q, -1) {
		if d, err := p.ParseISO(s); err == nil {
			return d
		}
	}
	if m := lastDayRe.FindStringSubmatch(q); m != nil {
		back := (int(today.Weekday()) - int(weekdays[m[1]]) + 7) % 7
		if back == 0 {
			back = 7
		}
		return today.AddDate(0, 0, -back)
	}
	if m := daysAgoRe.FindStringSubmatch(q); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return today.AddDate(0, 0, -n)
		}
	}
	return today
}

// ParseDateRange resolves an inclusive [start, end] range.
func (p *Parser) ParseDateRange(query string) (time.Time, time.Time) {
	q := strings.ToLower(strings.TrimSpace(query))
	today := p.Today()

	switch {
	case strings.Contains(q, "this week"):
		return p.ThisWeek()
	case lastTwoWkRe.MatchString(q):
		monday := p.weekStart(today)
		return monday.AddDate(0, 0, -14), monday.AddDate(0, 0, -1)
	case strings.Contains(q, "last week"):
		return p.LastWeek()
	case pastTwoWkRe.MatchString(q):
		return today.AddDate(0, 0, -13), today
	case strings.Contains(q, "past week"):
		return today.AddDate(0, 0, -6), today
	}

	if m := nDaysRe.FindStringSubmatch(q); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			n = min(max(n, 1), maxRangeDays)
			return today.AddDate(0, 0, -(n - 1)), today
		}
	}

	var dates []time.Time
	for _, s := range isoRe.FindAllString(q, -1) {
		if d, err := p.ParseISO(s); err == nil {
			dates = append(dates, d)
		}
	}
	switch {
	case len(dates) >= 2:
		start, end := dates[0], dates[1]
		if end.Before(start) {
			start, end = end, start
		}
		return start, end
	case len(dates) == 1:
		return dates[0], dates[0]
	}

	if strings.Contains(q, "today") || strings.Contains(q, "yesterday") {
		d := p.ParseDate(q)
		return d, d
	}
	return today, today
}

// ThisWeek is Monday of the current week through today.
func (p *Parser) ThisWeek() (time.Time, time.Time) {
	today := p.Today()
	return p.weekStart(today), today
}

// LastWeek is Monday through Sunday of the previous calendar week.
func (p *Parser) LastWeek() (time.Time, time.Time) {
	monday := p.weekStart(p.Today())
	return monday.AddDate(0, 0, -7), monday.AddDate(0, 0, -1)
}

func (p *Parser) weekStart(d time.Time) time.Time {
	cfg := &now.Config{WeekStartDay: time.Monday, TimeLocation: p.loc}
	return cfg.With(d).BeginningOfWeek()
}

// FormatFriendly renders "Today", "Yesterday", "Day Before Yesterday" or a
// long calendar date.
func (p *Parser) FormatFriendly(d time.Time) string {
	today := p.Today()
	switch ISO(d) {
	case ISO(today):
		return "Today"
	case ISO(today.AddDate(0, 0, -1)):
		return "Yesterday"
	case ISO(today.AddDate(0, 0, -2)):
		return "Day Before Yesterday"
	}
	return FormatLong(d)
}

func FormatLong(d time.Time) string { return d.Format(longLayout) }

func (p *Parser) FormatRangeFriendly(start, end time.Time) string {
	if ISO(start) == ISO(end) {
		return p.FormatFriendly(start)
	}
	if ws, we := p.ThisWeek(); ISO(ws) == ISO(start) && ISO(we) == ISO(end) {
		return "This Week"
	}
	if ws, we := p.LastWeek(); ISO(ws) == ISO(start) && ISO(we) == ISO(end) {
		return "Last Week"
	}
	return FormatLong(start) + " to " + FormatLong(end)
}
