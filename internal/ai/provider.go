package ai

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

var (
	ErrEmptyResponse = errors.New("ai: empty response")
	ErrNoJSON        = errors.New("ai: no json in response")
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Provider maps a conversation to one completion. Implementations must be
// safe for concurrent use.
type Provider interface {
	Chat(ctx context.Context, messages []Message) (string, error)
}

// Complete sends a single user prompt and returns the trimmed completion.
func Complete(ctx context.Context, p Provider, prompt string) (string, error) {
	out, err := p.Chat(ctx, []Message{{Role: RoleUser, Content: prompt}})
	if err != nil {
		return "", err
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", ErrEmptyResponse
	}
	return out, nil
}

// DecodeJSON unmarshals the JSON value embedded in a model answer. Models
// wrap JSON in ```json fences or chatter around it, so the outermost object or
// array is located first.
func DecodeJSON(raw string, v any) error {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```JSON")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	s = strings.TrimSpace(s)

	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return ErrNoJSON
	}
	closer := "}"
	if s[start] == '[' {
		closer = "]"
	}
	end := strings.LastIndex(s, closer)
	if end < start {
		return ErrNoJSON
	}
	if err := json.Unmarshal([]byte(s[start:end+1]), v); err != nil {
		return errors.Join(ErrNoJSON, err)
	}
	return nil
}

// Present reports whether an extracted field carries a value. Models use a
// literal "null" as the absence marker.
func Present(s *string) bool {
	if s == nil {
		return false
	}
	v := strings.TrimSpace(*s)
	return v != "" && !strings.EqualFold(v, "null")
}

// Clean returns nil for absent fields and the trimmed value otherwise.
func Clean(s *string) *string {
	if !Present(s) {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}
