package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/p-blackswan/pm-agent/internal/models"
)

// ProcessMeetingNotes structures a meeting's raw notes and transcript.
// A malformed reply degrades to notes wrapping the raw text in Summary.
func (c *Client) ProcessMeetingNotes(ctx context.Context, meeting models.Meeting) (models.StructuredNotes, error) {
	attendees := "Not specified"
	if len(meeting.Attendees) > 0 {
		attendees = strings.Join(meeting.Attendees, ", ")
	}
	prompt := fmt.Sprintf(meetingUserPrompt,
		meeting.Title,
		meeting.Date.Format("2006-01-02"),
		attendees,
		meeting.Notes,
		meeting.Transcript,
	)
	text, err := c.complete(ctx, meetingSystemPrompt, prompt)
	if err != nil {
		return models.StructuredNotes{}, err
	}
	return parseStructuredNotes(text, meeting), nil
}

func parseStructuredNotes(content string, meeting models.Meeting) models.StructuredNotes {
	fallback := models.StructuredNotes{
		Title:   meeting.Title,
		Summary: strings.TrimSpace(meeting.Notes),
		Tags:    []string{"meeting", "notes"},
	}
	if fallback.Title == "" {
		fallback.Title = "Meeting Notes"
	}
	if fallback.Summary == "" {
		fallback.Summary = "Meeting notes processed automatically"
	}

	raw, ok := extractJSON(content)
	if !ok {
		return fallback
	}
	var notes models.StructuredNotes
	if err := json.Unmarshal([]byte(raw), &notes); err != nil {
		return fallback
	}
	if notes.Title == "" {
		notes.Title = fallback.Title
	}
	return notes
}

// CreateConfluenceContent renders structured notes as Confluence wiki markup.
// The rendering is local and deterministic apart from the generated-on footer.
func (c *Client) CreateConfluenceContent(_ context.Context, meeting models.Meeting, notes models.StructuredNotes) (string, string, error) {
	title := notes.Title
	if title == "" {
		title = meeting.Title
	}

	attendees := "Not specified"
	if len(meeting.Attendees) > 0 {
		attendees = strings.Join(meeting.Attendees, ", ")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "h1. %s\n\n", title)
	fmt.Fprintf(&b, "*Date:* %s\n", meeting.Date.Format("2006-01-02"))
	fmt.Fprintf(&b, "*Attendees:* %s\n\n", attendees)
	fmt.Fprintf(&b, "h2. Summary\n%s\n\n", notes.Summary)

	if len(notes.KeyPoints) > 0 {
		b.WriteString("h2. Key Discussion Points\n")
		for _, p := range notes.KeyPoints {
			fmt.Fprintf(&b, "* %s\n", p)
		}
		b.WriteString("\n")
	}

	if len(notes.Decisions) > 0 {
		b.WriteString("h2. Decisions Made\n")
		for _, d := range notes.Decisions {
			fmt.Fprintf(&b, "* %s\n", d)
		}
		b.WriteString("\n")
	}

	if len(notes.ActionItems) > 0 {
		b.WriteString("h2. Action Items\n")
		b.WriteString("|| Item || Owner || Due Date ||\n")
		for _, item := range notes.ActionItems {
			owner := item.Owner
			if owner == "" {
				owner = "TBD"
			}
			due := item.Due
			if due == "" {
				due = "TBD"
			}
			fmt.Fprintf(&b, "| %s | %s | %s |\n", item.Text, owner, due)
		}
		b.WriteString("\n")
	}

	if len(notes.NextSteps) > 0 {
		b.WriteString("h2. Next Steps\n")
		for _, s := range notes.NextSteps {
			fmt.Fprintf(&b, "* %s\n", s)
		}
		b.WriteString("\n")
	}

	if len(notes.Tags) > 0 {
		fmt.Fprintf(&b, "*Tags:* %s\n\n", strings.Join(notes.Tags, ", "))
	}

	fmt.Fprintf(&b, "----\n_This page was automatically generated from meeting notes on %s_",
		c.now().Format("2006-01-02 15:04"))

	return title, b.String(), nil
}
