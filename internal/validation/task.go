// Package validation holds the field rules for tasks and credentials.
// Every rule is a pure function returning a sentinel error so handlers
// can map failures to HTTP responses without string matching.
package validation

import (
	"errors"
	"strings"
	"time"

	"github.com/davitm/taskboard/internal/model"
)

const (
	MaxTitleLen       = 200
	MaxDescriptionLen = 1000
	MaxTagLen         = 50
)

var (
	ErrTitleRequired      = errors.New("task title is required")
	ErrTitleTooLong       = errors.New("task title cannot exceed 200 characters")
	ErrDescriptionTooLong = errors.New("task description cannot exceed 1000 characters")
	ErrInvalidPriority    = errors.New("invalid priority level")
	ErrInvalidStatus      = errors.New("invalid status")
	ErrTagTooLong         = errors.New("tags cannot exceed 50 characters")
	ErrInvalidDueDate     = errors.New("invalid due date")
)

// TaskTitle trims the title and enforces the 1–200 character rule.
// The trimmed value is returned so callers persist the normalized form.
func TaskTitle(s string) (string, error) {
	t := strings.TrimSpace(s)
	if t == "" {
		return "", ErrTitleRequired
	}
	if len([]rune(t)) > MaxTitleLen {
		return "", ErrTitleTooLong
	}
	return t, nil
}

// TaskDescription trims the description and enforces the 1000 character cap.
func TaskDescription(s string) (string, error) {
	d := strings.TrimSpace(s)
	if len([]rune(d)) > MaxDescriptionLen {
		return "", ErrDescriptionTooLong
	}
	return d, nil
}

// TaskPriority checks membership in {low, medium, high}.
func TaskPriority(s string) error {
	switch s {
	case model.PriorityLow, model.PriorityMedium, model.PriorityHigh:
		return nil
	}
	return ErrInvalidPriority
}

// TaskStatus checks membership in {todo, in-progress, done}.
func TaskStatus(s string) error {
	switch s {
	case model.StatusTodo, model.StatusInProgress, model.StatusDone:
		return nil
	}
	return ErrInvalidStatus
}

// TaskTags trims each tag, drops empties, and enforces the per-tag cap.
func TaskTags(tags []string) ([]string, error) {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		t := strings.TrimSpace(tag)
		if t == "" {
			continue
		}
		if len([]rune(t)) > MaxTagLen {
			return nil, ErrTagTooLong
		}
		out = append(out, t)
	}
	return out, nil
}

// dueDateLayouts are the accepted wire formats for due dates, tried in order.
var dueDateLayouts = []string{time.RFC3339, "2006-01-02"}

// TaskDueDate parses a due date string. An empty string means "no due
// date" and yields a nil time without error.
func TaskDueDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range dueDateLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return &ts, nil
		}
	}
	return nil, ErrInvalidDueDate
}
