// Package intent turns free-form chat text into structured records: epic
// fields, priorities, meeting arguments, and document fragments. Everything
// here is a pure function so the conversation layer stays deterministic.
package intent

import (
	"errors"
	"strings"
	"unicode/utf8"
)

// Canonical priority values accepted by the tracker.
const (
	PriorityLow      = "Low"
	PriorityMedium   = "Medium"
	PriorityHigh     = "High"
	PriorityCritical = "Critical"
)

// ErrEpicFormat is returned when epic text lacks the mandatory fields.
// Callers re-prompt with the format help rather than logging an error.
var ErrEpicFormat = errors.New("epic details missing title or description")

// EpicIntent is a parsed epic creation request.
type EpicIntent struct {
	Title             string
	Description       string
	PreferredFeatures []string
	Priority          string
	Labels            []string
}

// Field alias tables, all matched case-insensitively on the key left of the
// first colon.
var (
	titleKeys       = map[string]bool{"title": true, "name": true, "epic title": true, "epic name": true}
	descriptionKeys = map[string]bool{"description": true, "desc": true, "summary": true}
	featureKeys     = map[string]bool{"features": true, "feature": true, "preferred features": true}
	priorityKeys    = map[string]bool{"priority": true, "prio": true}
	labelKeys       = map[string]bool{"labels": true, "label": true, "tags": true, "tag": true}
)

// ParseEpic parses structured epic details from user text. Each line of the
// form "key: value" is classified by the alias tables; the first colon splits
// key from value. It fails only when title or description is absent after all
// lines are consumed; every other field is optional. Priority defaults to
// Medium.
func ParseEpic(text string) (*EpicIntent, error) {
	in := &EpicIntent{}

	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || !strings.Contains(line, ":") {
			continue
		}

		parts := strings.SplitN(line, ":", 2)
		key := strings.ToLower(strings.TrimSpace(parts[0]))
		value := strings.TrimSpace(parts[1])

		switch {
		case titleKeys[key]:
			in.Title = value
		case descriptionKeys[key]:
			in.Description = value
		case featureKeys[key]:
			in.PreferredFeatures = splitList(value)
		case priorityKeys[key]:
			if value != "" {
				in.Priority = NormalizePriority(value)
			}
		case labelKeys[key]:
			in.Labels = splitList(value)
		}
	}

	if in.Title == "" || in.Description == "" {
		return nil, ErrEpicFormat
	}
	if in.Priority == "" {
		in.Priority = PriorityMedium
	}
	return in, nil
}

// splitList splits a comma-separated value, trimming items and dropping
// empties.
func splitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// priorityAliases maps every accepted spelling to its canonical value.
var priorityAliases = map[string]string{
	"low":       PriorityLow,
	"l":         PriorityLow,
	"minor":     PriorityLow,
	"medium":    PriorityMedium,
	"med":       PriorityMedium,
	"m":         PriorityMedium,
	"normal":    PriorityMedium,
	"high":      PriorityHigh,
	"h":         PriorityHigh,
	"important": PriorityHigh,
	"critical":  PriorityCritical,
	"crit":      PriorityCritical,
	"urgent":    PriorityCritical,
	"blocker":   PriorityCritical,
}

// NormalizePriority maps a raw priority string to a canonical value. Unknown
// spellings fall back to Medium; the function is total and never fails.
func NormalizePriority(raw string) string {
	if p, ok := priorityAliases[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return p
	}
	return PriorityMedium
}

// Epic field constraints.
const (
	titleMinLen       = 5
	titleMaxLen       = 200
	descriptionMinLen = 20
	maxFeatures       = 10
	maxLabels         = 5
)

// ValidateEpic checks field constraints and collects violations into a
// field→message map. An empty map means the intent is valid. Validation never
// fails outright; the caller decides whether to block or warn.
func ValidateEpic(in *EpicIntent) map[string]string {
	errs := make(map[string]string)

	switch n := utf8.RuneCountInString(in.Title); {
	case in.Title == "":
		errs["title"] = "Title is required"
	case n < titleMinLen:
		errs["title"] = "Title must be at least 5 characters long"
	case n > titleMaxLen:
		errs["title"] = "Title must be less than 200 characters"
	}

	switch {
	case in.Description == "":
		errs["description"] = "Description is required"
	case utf8.RuneCountInString(in.Description) < descriptionMinLen:
		errs["description"] = "Description must be at least 20 characters long"
	}

	if len(in.PreferredFeatures) > maxFeatures {
		errs["features"] = "Maximum 10 features allowed"
	}
	if len(in.Labels) > maxLabels {
		errs["labels"] = "Maximum 5 labels allowed"
	}

	return errs
}

// validationOrder fixes the rendering order of validation errors so replies
// are deterministic.
var validationOrder = []string{"title", "description", "features", "labels"}

// FormatValidationErrors renders a validation error map as a bulleted chat
// message. Returns "" for an empty map.
func FormatValidationErrors(errs map[string]string) string {
	if len(errs) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("Validation errors:")
	for _, field := range validationOrder {
		if msg, ok := errs[field]; ok {
			b.WriteString("\n• ")
			b.WriteString(strings.Title(field))
			b.WriteString(": ")
			b.WriteString(msg)
		}
	}
	return b.String()
}
