package conversation

import (
	"fmt"
	"strings"

	"github.com/p-blackswan/pm-agent/internal/intent"
	"github.com/p-blackswan/pm-agent/internal/workflow"
)

// All reply templates live here so machine transitions stay readable and
// tests can assert on stable fragments. Replies are Slack mrkdwn text.

func renderMenu() string {
	return "👋 Hi! I'm your Project Management Assistant. What would you like to do?\n\n" +
		"*1.* Create an epic with user stories\n" +
		"*2.* Process recent meeting notes to Confluence\n" +
		"*3.* Search meetings by keyword\n" +
		"*4.* Help\n\n" +
		"Reply with a number or describe what you need."
}

func renderFarewell() string {
	return "👋 Thanks for using the Project Management Assistant. Message me any time to start again!"
}

func renderHelp() string {
	return "🤖 *Project Management Bot — what I can do:*\n\n" +
		"*Create epics* — I parse your epic details, generate features and user stories with AI, and create everything in Jira.\n" +
		"*Document-based epics* — paste Confluence/wiki links, PRDs or meeting notes and I'll propose epics for your approval.\n" +
		"*Process meetings* — I fetch recent meetings, structure the notes, and publish them to Confluence.\n" +
		"*Search meetings* — find meetings by keyword and process just those.\n\n" +
		"Slash commands: `/create-epic`, `/process-meetings space=KEY`, `/search-meetings keyword [space=KEY] [days=N]`\n" +
		"Say `done` at any point to stop."
}

func renderRetryChoice() string {
	return "❓ I didn't catch that. Please reply with *1* (create epic), *2* (process meetings), *3* (search meetings), or *4* (help)."
}

func renderEpicFormat() string {
	return "I'll help you create an epic! Please provide the details in this format:\n" +
		"```\n" +
		"Title: Your Epic Title\n" +
		"Description: Detailed description of the epic\n" +
		"Features: feature1, feature2, feature3 (optional)\n" +
		"Priority: High/Medium/Low (optional, default: Medium)\n" +
		"Labels: label1, label2 (optional)\n" +
		"```\n" +
		"Or reply with documents (Confluence links, PRDs, meeting notes) and I'll propose epics from them."
}

func renderEpicFormatError() string {
	return "❌ I couldn't find a title and description in that. " + renderEpicFormat()
}

func renderEpicConfirmation(in *intent.EpicIntent) string {
	var b strings.Builder
	b.WriteString("📋 *Please confirm the epic details:*\n\n")
	fmt.Fprintf(&b, "*Title:* %s\n", in.Title)
	fmt.Fprintf(&b, "*Description:* %s\n", in.Description)
	if len(in.PreferredFeatures) > 0 {
		fmt.Fprintf(&b, "*Features:* %s\n", strings.Join(in.PreferredFeatures, ", "))
	} else {
		b.WriteString("*Features:* will be generated by AI\n")
	}
	fmt.Fprintf(&b, "*Priority:* %s\n", in.Priority)
	if len(in.Labels) > 0 {
		fmt.Fprintf(&b, "*Labels:* %s\n", strings.Join(in.Labels, ", "))
	}
	b.WriteString("\nReply `confirm` to create, or `edit` to change the details.")
	return b.String()
}

func renderEpicCreating(title string) string {
	return fmt.Sprintf("🚀 Creating epic: *%s*\nPlease wait while I generate features and user stories...", title)
}

func renderSpacePrompt() string {
	return "📁 Which Confluence space should the meeting pages go to?\nReply with the space key (e.g. `ENG`)."
}

func renderSpaceError() string {
	return "❌ That doesn't look like a space key. Space keys are short identifiers like `ENG` or `TEAM` — please try again."
}

func renderMeetingConfirmation(spaceKey string) string {
	return fmt.Sprintf("📋 I'll process recent meeting notes into Confluence space *%s*.\nReply `confirm` to start.", spaceKey)
}

func renderMeetingProcessing(spaceKey string) string {
	return fmt.Sprintf("🔍 Processing recent meeting notes to Confluence space: *%s*\nThis may take a few moments...", spaceKey)
}

func renderKeywordPrompt() string {
	return "🔎 What keyword should I search meetings for?\nYou can add `space=KEY` to publish results and `days=N` to change the window (default 30)."
}

func renderSearchConfirmation(q intent.MeetingQuery) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📋 I'll search meetings for *%s* over the last %d days", q.Keyword, q.DaysBack)
	if q.SpaceKey != "" {
		fmt.Fprintf(&b, " and publish to space *%s*", q.SpaceKey)
	}
	b.WriteString(".\nReply `confirm` to start.")
	return b.String()
}

func renderSearching(q intent.MeetingQuery) string {
	return fmt.Sprintf("🔍 Searching for meetings with keyword: *%s*\nLooking back %d days...", q.Keyword, q.DaysBack)
}

func renderDocumentIntake() string {
	return "📚 *Document-based epic creation*\n\n" +
		"Send me your source material and I'll propose epics from it:\n" +
		"• Confluence/wiki page links\n" +
		"• Pasted PRD or requirement text\n" +
		"• Pasted meeting notes\n\n" +
		"You can send several messages; I'll collect everything. Reply `simple` to switch to the plain epic form instead."
}

func renderDocumentRetry() string {
	return "❓ I couldn't find any documents in that message. Paste a Confluence/wiki link or a substantial block of text, or reply `simple` for the plain epic form."
}

func renderDocumentSummary(frags []intent.DocumentFragment) string {
	counts := make(map[string]int)
	for _, f := range frags {
		counts[f.Kind]++
	}
	var b strings.Builder
	fmt.Fprintf(&b, "📥 *Collected %d document(s) so far:*\n", len(frags))
	for _, kind := range []string{intent.DocConfluenceLink, intent.DocPRD, intent.DocMeetingNotes, intent.DocAttachment} {
		if n := counts[kind]; n > 0 {
			fmt.Fprintf(&b, "• %s: %d\n", strings.ReplaceAll(kind, "_", " "), n)
		}
	}
	b.WriteString("\nReply `analyze` to generate epic proposals, `cancel` to stop, or keep sending documents.")
	return b.String()
}

func renderAnalyzing() string {
	return "📚 *Analyzing your documents...*\nI'll review the provided links, PRDs, and meeting notes and propose epics for your approval."
}

func renderDocumentCancelled() string {
	return "❌ Document collection cancelled. The collected documents have been discarded.\n\n" + renderMenu()
}

func renderProposalReview(markdown string) string {
	return "📝 *Epic Proposals Generated*\n\n" +
		"Here are the proposed epics based on your documents:\n\n" +
		"```\n" + markdown + "\n```\n\n" +
		"*Please review and respond:*\n" +
		"• `approve` to create these epics in Jira\n" +
		"• `reject` to provide feedback and regenerate\n" +
		"• `cancel` to stop the process"
}

func renderApprovalInvalid() string {
	return "❓ *Invalid response.*\nPlease reply `approve`, `reject`, or `cancel`."
}

func renderApprovalReceived() string {
	return "✅ *Approval received!*\nCreating epics and user stories in Jira..."
}

func renderProposalsCancelled() string {
	return "❌ *Epic creation cancelled.*\nThe proposals have been discarded.\n\n" + renderMenu()
}

func renderFeedbackPrompt() string {
	return "📝 *Please provide feedback:*\nWhat would you like to change about these epic proposals? I'll regenerate them based on your feedback."
}

func renderRegenerating() string {
	return "🔄 *Regenerating epic proposals based on your feedback...*"
}

func renderNoPendingProposals() string {
	return "❌ No pending epic proposals found. Please start a new epic creation process.\n\n" + renderMenu()
}

func renderBusy() string {
	return "⏳ I'm handling too many requests right now — please try again in a moment."
}

func renderTurnError(err error) string {
	return fmt.Sprintf("❌ Sorry, I encountered an error processing your request: %v\nLet's start over.\n\n%s", err, renderMenu())
}

// RenderWorkflowOutcome turns a finished workflow into the chat reply posted
// by the completion notifier.
func RenderWorkflowOutcome(out workflow.Outcome) string {
	if !out.Result.Success {
		return fmt.Sprintf("❌ *%s failed:* %s\n\n%s", out.Kind.Title(), out.Result.Err, renderMenu())
	}

	switch out.Kind {
	case workflow.KindEpicCreation:
		return workflow.RenderEpicResult(out.Result) + "\n\n" + renderMenu()
	case workflow.KindMeetingProcessing, workflow.KindMeetingSearch:
		return workflow.RenderMeetingResult(out.Result) + "\n\n" + renderMenu()
	case workflow.KindProposalApproval:
		return workflow.RenderApprovalResult(out.Result) + "\n\n" + renderMenu()
	case workflow.KindDocumentAnalysis, workflow.KindProposalRegeneration:
		return renderProposalReview(out.Result.Markdown)
	}
	return renderMenu()
}
