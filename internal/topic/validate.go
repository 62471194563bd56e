package topic

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when a topic id does not exist.
var ErrNotFound = errors.New("topic not found")

// Year level bounds.
const (
	MinYearLevel = 7
	MaxYearLevel = 11

	MinOptions = 2
	MaxOptions = 6
)

// ValidationError reports a malformed topic payload. Field uses the JSON path.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Normalize fills defaults that do not change meaning: the default icon and trimmed names.
func Normalize(t Topic) Topic {
	t.ID = strings.TrimSpace(t.ID)
	t.Name = strings.TrimSpace(t.Name)
	if t.Icon == "" {
		t.Icon = IconDefault
	}
	if t.Questions == nil {
		t.Questions = []Question{}
	}
	return t
}

// Validate checks a topic payload before it reaches storage.
func Validate(t Topic) error {
	if t.ID == "" {
		return invalid("id", "is required")
	}
	if t.Name == "" {
		return invalid("name", "is required")
	}
	if t.YearLevel == 0 {
		return invalid("yearLevel", "is required")
	}
	if t.YearLevel < MinYearLevel || t.YearLevel > MaxYearLevel {
		return invalid("yearLevel", "must be between %d and %d", MinYearLevel, MaxYearLevel)
	}
	if t.Icon != "" && !t.Icon.Known() {
		return invalid("icon", "unknown icon %q", string(t.Icon))
	}
	if t.Mode != "" && !t.Mode.Valid() {
		return invalid("mode", "unknown mode %q", string(t.Mode))
	}

	seen := make(map[string]struct{}, len(t.Questions))
	for i, q := range t.Questions {
		field := fmt.Sprintf("questions[%d]", i)
		if err := validateQuestion(field, q); err != nil {
			return err
		}
		if _, dup := seen[q.ID]; dup {
			return invalid(field+".id", "duplicate question id %q", q.ID)
		}
		seen[q.ID] = struct{}{}
	}
	return nil
}

func validateQuestion(field string, q Question) error {
	if strings.TrimSpace(q.ID) == "" {
		return invalid(field+".id", "is required")
	}
	if strings.TrimSpace(q.Prompt) == "" {
		return invalid(field+".question", "is required")
	}
	if len(q.Options) < MinOptions || len(q.Options) > MaxOptions {
		return invalid(field+".options", "must have %d-%d entries, got %d", MinOptions, MaxOptions, len(q.Options))
	}
	if q.CorrectAnswer < 0 || q.CorrectAnswer >= len(q.Options) {
		return invalid(field+".correctAnswer", "index %d out of range", q.CorrectAnswer)
	}
	if err := q.Difficulty.validate(); err != nil {
		return invalid(field+".difficulty", "%v", err)
	}
	if q.Mode != "" && !q.Mode.Valid() {
		return invalid(field+".mode", "unknown mode %q", string(q.Mode))
	}
	return nil
}
