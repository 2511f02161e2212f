// Package conversation holds the per-user conversation state machine that
// drives the bot's multi-turn flows: epic creation, meeting processing,
// meeting search, and document-based epic proposal with approval. State is
// in-memory and per-user; workflows dispatched from terminal steps run
// elsewhere and report back through completion hooks.
package conversation

// Step is the closed set of conversation positions. The legacy design kept a
// step plus a free-form substep; here every (step, substep) pair is its own
// constant so invalid combinations cannot be represented.
type Step int

const (
	StepNone Step = iota
	StepAwaitingChoice
	StepEpicDetails
	StepEpicConfirm
	StepMeetingSpace
	StepMeetingConfirm
	StepSearchKeyword
	StepSearchConfirm
	StepDocCollect
	StepDocConfirm
	StepApproval
	StepFeedback
)

var stepNames = map[Step]string{
	StepNone:           "none",
	StepAwaitingChoice: "awaiting_choice",
	StepEpicDetails:    "epic_details",
	StepEpicConfirm:    "epic_confirm",
	StepMeetingSpace:   "meeting_space",
	StepMeetingConfirm: "meeting_confirm",
	StepSearchKeyword:  "search_keyword",
	StepSearchConfirm:  "search_confirm",
	StepDocCollect:     "doc_collect",
	StepDocConfirm:     "doc_confirm",
	StepApproval:       "approval",
	StepFeedback:       "feedback",
}

func (s Step) String() string {
	if n, ok := stepNames[s]; ok {
		return n
	}
	return "unknown"
}

// transitions is the closed transition table. Every step may additionally
// reach StepNone (termination) and StepAwaitingChoice (greeting or terminal
// error reset); those two targets are implicit to keep the table readable.
var transitions = map[Step][]Step{
	StepNone:           {StepAwaitingChoice},
	StepAwaitingChoice: {StepEpicDetails, StepMeetingSpace, StepSearchKeyword, StepDocCollect},
	StepEpicDetails:    {StepEpicConfirm},
	StepEpicConfirm:    {StepEpicDetails},
	StepMeetingSpace:   {StepMeetingConfirm},
	StepMeetingConfirm: {},
	StepSearchKeyword:  {StepSearchConfirm},
	StepSearchConfirm:  {},
	StepDocCollect:     {StepDocConfirm, StepEpicDetails},
	StepDocConfirm:     {StepDocCollect},
	StepApproval:       {StepFeedback},
	StepFeedback:       {StepApproval},
}

// CanTransition reports whether from→to is a legal move. Termination,
// menu reset, and self-loops are always legal.
func CanTransition(from, to Step) bool {
	if to == StepNone || to == StepAwaitingChoice || to == from {
		return true
	}
	// Workflow completion moves a user into approval from outside the table.
	if to == StepApproval && (from == StepDocConfirm || from == StepFeedback || from == StepAwaitingChoice) {
		return true
	}
	for _, t := range transitions[from] {
		if t == to {
			return true
		}
	}
	return false
}
