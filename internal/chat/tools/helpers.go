// Package tools implements the chat tools the model may invoke: mood
// logging and history, task management, session summary, and feedback.
package tools

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// asInt coerces a decoded JSON value to an integer. Models send numbers as
// floats, quoted strings, or integers depending on provider.
func asInt(v any) (int, error) {
	switch n := v.(type) {
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("%v is not an integer", n)
		}
		return int(n), nil
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, fmt.Errorf("%q is not an integer", n)
		}
		return i, nil
	case nil:
		return 0, fmt.Errorf("value is missing")
	default:
		return 0, fmt.Errorf("unsupported value %v", v)
	}
}

// asBool coerces a decoded JSON value to a bool, accepting the string forms
// models occasionally produce.
func asBool(v any) (bool, error) {
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(b))
		if err != nil {
			return false, fmt.Errorf("%q is not a boolean", b)
		}
		return parsed, nil
	default:
		return false, fmt.Errorf("unsupported value %v", v)
	}
}

var dueDateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04",
	time.RFC3339,
	"01/02/2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
}

// parseDueDate parses a free-form date string on a best-effort basis. The
// second return value is false when no supported form matches.
func parseDueDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	switch strings.ToLower(s) {
	case "today":
		return endOfDay(time.Now()), true
	case "tomorrow":
		return endOfDay(time.Now().AddDate(0, 0, 1)), true
	}

	for _, layout := range dueDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 0, 0, t.Location())
}
