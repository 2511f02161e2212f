package intent

import (
	"regexp"
	"strings"
)

// Document fragment kinds recognized during document intake.
const (
	DocConfluenceLink = "confluence_link"
	DocPRD            = "prd"
	DocMeetingNotes   = "meeting_notes"
	DocAttachment     = "attachments"
)

// DocumentFragment is one piece of source material collected for epic
// analysis: either a Confluence/wiki link or a pasted text block classified
// by its content.
type DocumentFragment struct {
	Kind    string
	Source  string
	Content string
}

var urlPattern = regexp.MustCompile(`https?://\S+`)

// Minimum length for a pasted text block to count as a document rather than
// conversational filler.
const minDocumentLen = 200

// ExtractDocuments scans a message for document fragments. URLs containing
// "confluence" or "wiki" become confluence links. Failing that, a text block
// over the minimum length is classified by keyword: requirement/prd/product
// → prd, meeting/notes/discussion → meeting notes, anything else a generic
// attachment. Returns nil when the message carries no document material.
func ExtractDocuments(text string) []DocumentFragment {
	var frags []DocumentFragment

	for _, url := range urlPattern.FindAllString(text, -1) {
		lower := strings.ToLower(url)
		if strings.Contains(lower, "confluence") || strings.Contains(lower, "wiki") {
			frags = append(frags, DocumentFragment{
				Kind:    DocConfluenceLink,
				Source:  url,
				Content: url,
			})
		}
	}
	if len(frags) > 0 {
		return frags
	}

	if len(text) <= minDocumentLen {
		return nil
	}

	lower := strings.ToLower(text)
	kind := DocAttachment
	switch {
	case strings.Contains(lower, "requirement") || strings.Contains(lower, "prd") || strings.Contains(lower, "product"):
		kind = DocPRD
	case strings.Contains(lower, "meeting") || strings.Contains(lower, "notes") || strings.Contains(lower, "discussion"):
		kind = DocMeetingNotes
	}

	return []DocumentFragment{{
		Kind:    kind,
		Source:  "pasted text",
		Content: strings.TrimSpace(text),
	}}
}

// CombineDocuments concatenates fragments into one analysis blob, each
// prefixed by its kind and source tag, optionally led by user-supplied
// context.
func CombineDocuments(frags []DocumentFragment, userContext string) string {
	var b strings.Builder
	if userContext != "" {
		b.WriteString("User Context: ")
		b.WriteString(userContext)
		b.WriteString("\n\n")
	}
	for i, f := range frags {
		if i > 0 {
			b.WriteString("\n\n---\n\n")
		}
		b.WriteString("[")
		b.WriteString(strings.ToUpper(f.Kind))
		b.WriteString(" - ")
		b.WriteString(f.Source)
		b.WriteString("]\n")
		b.WriteString(f.Content)
	}
	return b.String()
}
