package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/p-blackswan/pm-agent/internal/models"
)

// ErrNoPendingProposals is returned when an approval or regeneration is
// requested for a user with no stored (or an expired) proposal set.
var ErrNoPendingProposals = errors.New("no pending epic proposals")

// Kind identifies which workflow produced an outcome.
type Kind string

const (
	KindEpicCreation         Kind = "epic_creation"
	KindMeetingProcessing    Kind = "meeting_processing"
	KindMeetingSearch        Kind = "meeting_search"
	KindDocumentAnalysis     Kind = "document_analysis"
	KindProposalApproval     Kind = "proposal_approval"
	KindProposalRegeneration Kind = "proposal_regeneration"
)

// Title returns the human-readable workflow name used in chat replies.
func (k Kind) Title() string {
	switch k {
	case KindEpicCreation:
		return "Epic creation"
	case KindMeetingProcessing:
		return "Meeting documentation"
	case KindMeetingSearch:
		return "Meeting search"
	case KindDocumentAnalysis:
		return "Document analysis"
	case KindProposalApproval:
		return "Proposal approval"
	case KindProposalRegeneration:
		return "Proposal regeneration"
	}
	return string(k)
}

// Result is the aggregate outcome of one workflow run. Success reflects the
// workflow's own definition of success: an epic run succeeds iff the epic was
// created, a meeting run succeeds iff retrieval worked, even when individual
// items failed along the way.
type Result struct {
	Success bool
	Err     string

	// Epic creation.
	Epic          *models.Epic
	Stories       []models.Story
	FailedStories []string

	// Meeting processing and search.
	MeetingsProcessed int
	Pages             []models.Page
	FailedItems       []string

	// Document analysis and regeneration.
	Proposals []models.EpicProposal
	Markdown  string

	// Proposal approval.
	CreatedEpics []models.Epic
	FailedEpics  []string
}

func failure(format string, args ...any) Result {
	return Result{Err: fmt.Sprintf(format, args...)}
}

// Outcome pairs a finished workflow with the conversation it belongs to.
type Outcome struct {
	Kind      Kind
	UserID    string
	ChannelID string
	Result    Result
}

// Notifier receives finished workflow outcomes. The conversation machine
// implements it to post the reply and advance or reset the user's state.
type Notifier interface {
	WorkflowFinished(ctx context.Context, out Outcome)
}

// RenderEpicResult formats a successful epic-creation result for chat.
func RenderEpicResult(r Result) string {
	var b strings.Builder
	b.WriteString("✅ *Epic created successfully!*\n\n")
	if r.Epic != nil {
		fmt.Fprintf(&b, "🎯 *%s* (`%s`)\n", r.Epic.Title, r.Epic.Key)
		if r.Epic.URL != "" {
			b.WriteString(r.Epic.URL + "\n")
		}
	}
	if len(r.Stories) > 0 {
		fmt.Fprintf(&b, "\n📝 Created %d user stories:\n", len(r.Stories))
		for _, s := range r.Stories {
			fmt.Fprintf(&b, "• `%s` %s\n", s.Key, s.Title)
		}
	} else {
		b.WriteString("\n📝 No user stories were created.\n")
	}
	if len(r.FailedStories) > 0 {
		fmt.Fprintf(&b, "\n⚠️ %d stories could not be created:\n", len(r.FailedStories))
		for _, t := range r.FailedStories {
			fmt.Fprintf(&b, "• %s\n", t)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// RenderMeetingResult formats a meeting-processing or search result for chat.
func RenderMeetingResult(r Result) string {
	var b strings.Builder
	b.WriteString("✅ *Meeting documentation complete!*\n\n")
	fmt.Fprintf(&b, "📋 Processed %d meetings", r.MeetingsProcessed)
	if len(r.Pages) > 0 {
		fmt.Fprintf(&b, ", published %d pages:\n", len(r.Pages))
		for _, p := range r.Pages {
			if p.URL != "" {
				fmt.Fprintf(&b, "• <%s|%s>\n", p.URL, p.Title)
			} else {
				fmt.Fprintf(&b, "• %s\n", p.Title)
			}
		}
	} else {
		b.WriteString(".\n")
	}
	if len(r.FailedItems) > 0 {
		fmt.Fprintf(&b, "\n⚠️ %d meetings could not be documented:\n", len(r.FailedItems))
		for _, it := range r.FailedItems {
			fmt.Fprintf(&b, "• %s\n", it)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// RenderApprovalResult formats a proposal-approval result for chat.
func RenderApprovalResult(r Result) string {
	var b strings.Builder
	b.WriteString("✅ *Approval received!*\n\n")
	fmt.Fprintf(&b, "🎉 Created %d epics from your documents:\n", len(r.CreatedEpics))
	for _, e := range r.CreatedEpics {
		fmt.Fprintf(&b, "• `%s` %s\n", e.Key, e.Title)
	}
	if len(r.FailedEpics) > 0 {
		fmt.Fprintf(&b, "\n⚠️ %d proposals could not be created:\n", len(r.FailedEpics))
		for _, t := range r.FailedEpics {
			fmt.Fprintf(&b, "• %s\n", t)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// RenderProposals formats a proposal set as markdown for the review step.
func RenderProposals(proposals []models.EpicProposal) string {
	var b strings.Builder
	fmt.Fprintf(&b, "I found %d epic proposals in your documents:\n", len(proposals))
	for i, p := range proposals {
		fmt.Fprintf(&b, "\n*%d. %s* (Priority: %s)\n", i+1, p.Title, p.Priority)
		if p.Description != "" {
			b.WriteString(p.Description + "\n")
		}
		if len(p.Features) > 0 {
			b.WriteString("Features:\n")
			for _, f := range p.Features {
				fmt.Fprintf(&b, "  • %s\n", f)
			}
		}
		if len(p.AcceptanceCriteria) > 0 {
			b.WriteString("Acceptance criteria:\n")
			for _, c := range p.AcceptanceCriteria {
				fmt.Fprintf(&b, "  • %s\n", c)
			}
		}
		if len(p.Labels) > 0 {
			fmt.Fprintf(&b, "Labels: %s\n", strings.Join(p.Labels, ", "))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
