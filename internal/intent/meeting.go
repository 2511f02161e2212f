package intent

import (
	"strconv"
	"strings"
)

// DefaultDaysBack is the search window when no days= flag is given.
const DefaultDaysBack = 30

// MeetingQuery is a parsed meeting command: either "process recent meetings
// into a space" (Keyword empty) or "search meetings by keyword".
type MeetingQuery struct {
	Keyword  string
	SpaceKey string
	DaysBack int
}

// IsSearch reports whether the query targets a keyword search rather than
// recent-meeting processing.
func (q MeetingQuery) IsSearch() bool { return q.Keyword != "" }

// ParseMeetingArgs parses slash-command style arguments. Tokens are split on
// whitespace; "space=X" and "days=N" are recognized anywhere in the token
// list, and the first non-flag token becomes the keyword. An unparseable
// days= value is silently ignored and the default window applies.
func ParseMeetingArgs(text string) MeetingQuery {
	q := MeetingQuery{DaysBack: DefaultDaysBack}

	for _, tok := range strings.Fields(text) {
		switch {
		case strings.HasPrefix(tok, "space="):
			q.SpaceKey = strings.TrimPrefix(tok, "space=")
		case strings.HasPrefix(tok, "days="):
			if n, err := strconv.Atoi(strings.TrimPrefix(tok, "days=")); err == nil && n > 0 {
				q.DaysBack = n
			}
		default:
			if q.Keyword == "" {
				q.Keyword = tok
			}
		}
	}
	return q
}

// Space keys are short uppercase-ish identifiers; anything outside this range
// is almost certainly not a key.
const (
	spaceKeyMinLen = 2
	spaceKeyMaxLen = 10
)

// ValidSpaceKey reports whether a single token is plausible as a Confluence
// space key.
func ValidSpaceKey(token string) bool {
	token = strings.TrimSpace(token)
	if len(token) < spaceKeyMinLen || len(token) > spaceKeyMaxLen {
		return false
	}
	return len(strings.Fields(token)) == 1
}
