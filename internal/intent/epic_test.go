package intent

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEpic_RoundTrip(t *testing.T) {
	text := "Title: User Authentication System\n" +
		"Description: Implement login, registration and password reset\n" +
		"Features: user registration, login/logout\n" +
		"Priority: High\n" +
		"Labels: security, authentication"

	in, err := ParseEpic(text)
	require.NoError(t, err)
	assert.Equal(t, "User Authentication System", in.Title)
	assert.Equal(t, "Implement login, registration and password reset", in.Description)
	assert.Equal(t, []string{"user registration", "login/logout"}, in.PreferredFeatures)
	assert.Equal(t, PriorityHigh, in.Priority)
	assert.Equal(t, []string{"security", "authentication"}, in.Labels)
}

func TestParseEpic_KeyAliases(t *testing.T) {
	in, err := ParseEpic("Epic Name: Billing\nSummary: Charge customers on a monthly schedule\nTags: billing")
	require.NoError(t, err)
	assert.Equal(t, "Billing", in.Title)
	assert.Equal(t, "Charge customers on a monthly schedule", in.Description)
	assert.Equal(t, []string{"billing"}, in.Labels)
}

func TestParseEpic_DefaultsToMediumPriority(t *testing.T) {
	in, err := ParseEpic("Title: Auth\nDescription: Build login and signup flows for the platform")
	require.NoError(t, err)
	assert.Equal(t, PriorityMedium, in.Priority)
}

func TestParseEpic_FirstColonOnly(t *testing.T) {
	in, err := ParseEpic("Title: Search: phase two\nDescription: Rework the ranking pipeline end to end")
	require.NoError(t, err)
	assert.Equal(t, "Search: phase two", in.Title)
}

func TestParseEpic_MissingMandatoryFields(t *testing.T) {
	_, err := ParseEpic("Title: Only a title here")
	assert.ErrorIs(t, err, ErrEpicFormat)

	_, err = ParseEpic("Description: a description without any title at all")
	assert.ErrorIs(t, err, ErrEpicFormat)

	_, err = ParseEpic("free text with no structure")
	assert.ErrorIs(t, err, ErrEpicFormat)
}

func TestNormalizePriority_Totality(t *testing.T) {
	cases := map[string]string{
		"low": PriorityLow, "L": PriorityLow, "minor": PriorityLow,
		"medium": PriorityMedium, "MED": PriorityMedium, "m": PriorityMedium, "normal": PriorityMedium,
		"High": PriorityHigh, "h": PriorityHigh, "important": PriorityHigh,
		"critical": PriorityCritical, "crit": PriorityCritical, "urgent": PriorityCritical, "blocker": PriorityCritical,
	}
	for raw, want := range cases {
		assert.Equal(t, want, NormalizePriority(raw), "raw=%q", raw)
	}

	// Everything outside the alias table maps to Medium.
	for _, raw := range []string{"", "whatever", "p0", "  ", "hıgh?"} {
		assert.Equal(t, PriorityMedium, NormalizePriority(raw), "raw=%q", raw)
	}
}

func TestValidateEpic_Boundaries(t *testing.T) {
	valid := func() *EpicIntent {
		return &EpicIntent{
			Title:       "Valid",
			Description: strings.Repeat("d", 20),
		}
	}

	in := valid()
	in.Title = "abcd" // 4 chars
	assert.Contains(t, ValidateEpic(in), "title")
	in.Title = "abcde" // 5 chars
	assert.NotContains(t, ValidateEpic(in), "title")
	in.Title = strings.Repeat("t", 201)
	assert.Contains(t, ValidateEpic(in), "title")

	in = valid()
	in.Description = strings.Repeat("d", 19)
	assert.Contains(t, ValidateEpic(in), "description")
	in.Description = strings.Repeat("d", 20)
	assert.Empty(t, ValidateEpic(in))

	in = valid()
	in.PreferredFeatures = make([]string, 11)
	assert.Contains(t, ValidateEpic(in), "features")
	in.PreferredFeatures = make([]string, 10)
	assert.Empty(t, ValidateEpic(in))

	in = valid()
	in.Labels = make([]string, 6)
	assert.Contains(t, ValidateEpic(in), "labels")
	in.Labels = make([]string, 5)
	assert.Empty(t, ValidateEpic(in))
}

func TestFormatValidationErrors(t *testing.T) {
	assert.Empty(t, FormatValidationErrors(nil))

	msg := FormatValidationErrors(map[string]string{
		"labels": "Maximum 5 labels allowed",
		"title":  "Title is required",
	})
	// Deterministic field order regardless of map iteration.
	assert.Equal(t, "Validation errors:\n• Title: Title is required\n• Labels: Maximum 5 labels allowed", msg)
}
