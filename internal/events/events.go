// Package events carries standup.submitted notifications over RabbitMQ so a
// worker can warm the team summary cache off the request path.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/suPer8Hu/standup-agent/internal/common"
	"github.com/suPer8Hu/standup-agent/internal/dateparse"
)

const TypeSubmitted = "standup.submitted"

var ErrBadEvent = errors.New("events: malformed event")

type SubmittedEvent struct {
	EventID    string    `json:"event_id"`
	Type       string    `json:"type"`
	UserName   string    `json:"user_name"`
	ReportDate string    `json:"report_date"`
	OccurredAt time.Time `json:"occurred_at"`
}

func newSubmitted(userName, reportDate string, now time.Time) (SubmittedEvent, error) {
	id, err := common.NewULID()
	if err != nil {
		return SubmittedEvent{}, err
	}
	return SubmittedEvent{
		EventID:    id,
		Type:       TypeSubmitted,
		UserName:   userName,
		ReportDate: reportDate,
		OccurredAt: now.UTC(),
	}, nil
}

func decodeSubmitted(body []byte) (SubmittedEvent, error) {
	var ev SubmittedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return ev, fmt.Errorf("%w: %v", ErrBadEvent, err)
	}
	if ev.Type != TypeSubmitted || ev.ReportDate == "" {
		return ev, fmt.Errorf("%w: type=%q report_date=%q", ErrBadEvent, ev.Type, ev.ReportDate)
	}
	if _, err := time.Parse(dateparse.ISOLayout, ev.ReportDate); err != nil {
		return ev, fmt.Errorf("%w: report_date=%q", ErrBadEvent, ev.ReportDate)
	}
	return ev, nil
}

// Noop drops every event. Used when no broker is configured.
type Noop struct{}

func (Noop) PublishSubmitted(context.Context, string, string) error { return nil }
