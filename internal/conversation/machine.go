package conversation

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/p-blackswan/pm-agent/internal/intent"
	"github.com/p-blackswan/pm-agent/internal/workflow"
)

// Incoming is one inbound chat message, already routed to this bot.
type Incoming struct {
	UserID    string
	ChannelID string
	Text      string
	IsDM      bool
}

// Dispatcher hands long-running work to the background runner. Every method
// returns once the work is queued; outcomes come back through
// WorkflowFinished. DispatchProposalApproval and DispatchProposalRegeneration
// fail fast with workflow.ErrNoPendingProposals.
type Dispatcher interface {
	DispatchEpicCreation(ctx context.Context, userID, channelID string, in intent.EpicIntent) error
	DispatchMeetingProcessing(ctx context.Context, userID, channelID, spaceKey string) error
	DispatchMeetingSearch(ctx context.Context, userID, channelID string, q intent.MeetingQuery) error
	DispatchDocumentAnalysis(ctx context.Context, userID, channelID string, frags []intent.DocumentFragment, userContext string) error
	DispatchProposalApproval(ctx context.Context, userID, channelID string) error
	DispatchProposalRegeneration(ctx context.Context, userID, channelID, feedback string) error
	CancelProposals(userID string)
}

// Sender posts chat messages outside a request/reply turn.
type Sender interface {
	Send(ctx context.Context, channelID, text string) error
}

// Recorder receives per-turn telemetry; the metrics registry implements it.
type Recorder interface {
	MessageHandled(step string)
	ConversationsActive(n int)
}

// Machine is the per-user conversation state machine. Turns are serialized
// per user through the store's lock; a turn reads the state, computes the
// transition, writes the state back, and returns the reply text.
type Machine struct {
	store      Store
	dispatcher Dispatcher
	sender     Sender
	recorder   Recorder
	logger     zerolog.Logger
}

// NewMachine wires the machine. sender is used only for workflow completion
// notifications; recorder may be nil.
func NewMachine(store Store, dispatcher Dispatcher, sender Sender, recorder Recorder, logger zerolog.Logger) *Machine {
	return &Machine{
		store:      store,
		dispatcher: dispatcher,
		sender:     sender,
		recorder:   recorder,
		logger:     logger.With().Str("component", "conversation").Logger(),
	}
}

// HandleMessage processes one chat turn and returns the reply text. It never
// panics: a panicking step handler is recovered, the user is reset to the
// menu, and the apology carries the failure.
func (m *Machine) HandleMessage(ctx context.Context, in Incoming) (reply string) {
	unlock := m.store.Lock(in.UserID)
	defer unlock()

	defer func() {
		if r := recover(); r != nil {
			m.logger.Error().Str("user", in.UserID).Interface("panic", r).Msg("turn handler panicked")
			m.reset(in)
			reply = renderTurnError(errors.New("internal error"))
		}
	}()

	text := strings.TrimSpace(in.Text)
	st, exists := m.store.Get(in.UserID)

	if m.recorder != nil {
		m.recorder.MessageHandled(st.Step.String())
		defer func() { m.recorder.ConversationsActive(m.store.Len()) }()
	}

	if exists && intent.IsTermination(text) {
		m.store.Delete(in.UserID)
		m.dispatcher.CancelProposals(in.UserID)
		return renderFarewell()
	}

	if !exists {
		m.reset(in)
		return renderMenu()
	}
	if st.Step != StepApproval && st.Step != StepFeedback && intent.IsGreetingPhrase(text) {
		m.reset(in)
		return renderMenu()
	}

	switch st.Step {
	case StepNone, StepAwaitingChoice:
		return m.handleChoice(in, text)
	case StepEpicDetails:
		return m.handleEpicDetails(in, st, text)
	case StepEpicConfirm:
		return m.handleEpicConfirm(ctx, in, st, text)
	case StepMeetingSpace:
		return m.handleMeetingSpace(in, st, text)
	case StepMeetingConfirm:
		return m.handleMeetingConfirm(ctx, in, st, text)
	case StepSearchKeyword:
		return m.handleSearchKeyword(in, st, text)
	case StepSearchConfirm:
		return m.handleSearchConfirm(ctx, in, st, text)
	case StepDocCollect:
		return m.handleDocCollect(in, st, text)
	case StepDocConfirm:
		return m.handleDocConfirm(ctx, in, st, text)
	case StepApproval:
		return m.handleApproval(ctx, in, text)
	case StepFeedback:
		return m.handleFeedback(ctx, in, text)
	}
	m.reset(in)
	return renderMenu()
}

func (m *Machine) reset(in Incoming) {
	m.store.Put(State{UserID: in.UserID, ChannelID: in.ChannelID, Step: StepAwaitingChoice})
}

func (m *Machine) advance(in Incoming, st State, to Step) {
	st.UserID = in.UserID
	st.ChannelID = in.ChannelID
	st.Step = to
	m.store.Put(st)
}

func (m *Machine) handleChoice(in Incoming, text string) string {
	lower := strings.ToLower(text)
	switch {
	case lower == "1" || strings.Contains(lower, "epic") || strings.Contains(lower, "create"):
		if hasDocumentKeyword(lower) {
			m.advance(in, State{}, StepDocCollect)
			return renderDocumentIntake()
		}
		m.advance(in, State{}, StepEpicDetails)
		return renderEpicFormat()
	case lower == "3" || strings.Contains(lower, "search"):
		m.advance(in, State{}, StepSearchKeyword)
		return renderKeywordPrompt()
	case lower == "2" || strings.Contains(lower, "process") || strings.Contains(lower, "meeting"):
		m.advance(in, State{}, StepMeetingSpace)
		return renderSpacePrompt()
	case lower == "4" || strings.Contains(lower, "help"):
		return renderHelp()
	case hasDocumentKeyword(lower):
		m.advance(in, State{}, StepDocCollect)
		return renderDocumentIntake()
	}
	if intent.IsGreeting(text) {
		return renderMenu()
	}
	return renderRetryChoice()
}

func hasDocumentKeyword(lower string) bool {
	for _, kw := range []string{"document", "prd", "confluence", "wiki", "analyze"} {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func (m *Machine) handleEpicDetails(in Incoming, st State, text string) string {
	draft, err := intent.ParseEpic(text)
	if err != nil {
		return renderEpicFormatError()
	}
	st.Payload.Draft = draft
	m.advance(in, st, StepEpicConfirm)

	reply := renderEpicConfirmation(draft)
	if problems := intent.ValidateEpic(draft); len(problems) > 0 {
		reply += "\n\n⚠️ " + intent.FormatValidationErrors(problems)
	}
	return reply
}

func (m *Machine) handleEpicConfirm(ctx context.Context, in Incoming, st State, text string) string {
	switch strings.ToLower(text) {
	case "confirm", "yes", "y":
		draft := st.Payload.Draft
		if draft == nil {
			m.reset(in)
			return renderMenu()
		}
		if err := m.dispatcher.DispatchEpicCreation(ctx, in.UserID, in.ChannelID, *draft); err != nil {
			m.logger.Warn().Err(err).Str("user", in.UserID).Msg("epic dispatch refused")
			return renderBusy()
		}
		m.reset(in)
		return renderEpicCreating(draft.Title)
	case "edit", "no", "n":
		st.Payload.Draft = nil
		m.advance(in, st, StepEpicDetails)
		return renderEpicFormat()
	}
	return renderEpicConfirmation(st.Payload.Draft)
}

func (m *Machine) handleMeetingSpace(in Incoming, st State, text string) string {
	if !intent.ValidSpaceKey(text) {
		return renderSpaceError()
	}
	st.Payload.SpaceKey = strings.ToUpper(strings.TrimSpace(text))
	m.advance(in, st, StepMeetingConfirm)
	return renderMeetingConfirmation(st.Payload.SpaceKey)
}

func (m *Machine) handleMeetingConfirm(ctx context.Context, in Incoming, st State, text string) string {
	if isConfirm(text) {
		space := st.Payload.SpaceKey
		if err := m.dispatcher.DispatchMeetingProcessing(ctx, in.UserID, in.ChannelID, space); err != nil {
			m.logger.Warn().Err(err).Str("user", in.UserID).Msg("meeting dispatch refused")
			return renderBusy()
		}
		m.reset(in)
		return renderMeetingProcessing(space)
	}
	return renderMeetingConfirmation(st.Payload.SpaceKey)
}

func (m *Machine) handleSearchKeyword(in Incoming, st State, text string) string {
	q := intent.ParseMeetingArgs(text)
	if q.Keyword == "" {
		return renderKeywordPrompt()
	}
	st.Payload.Query = q
	m.advance(in, st, StepSearchConfirm)
	return renderSearchConfirmation(q)
}

func (m *Machine) handleSearchConfirm(ctx context.Context, in Incoming, st State, text string) string {
	if isConfirm(text) {
		q := st.Payload.Query
		if err := m.dispatcher.DispatchMeetingSearch(ctx, in.UserID, in.ChannelID, q); err != nil {
			m.logger.Warn().Err(err).Str("user", in.UserID).Msg("search dispatch refused")
			return renderBusy()
		}
		m.reset(in)
		return renderSearching(q)
	}
	return renderSearchConfirmation(st.Payload.Query)
}

func (m *Machine) handleDocCollect(in Incoming, st State, text string) string {
	if strings.EqualFold(text, "simple") {
		st.Payload.Documents = nil
		m.advance(in, st, StepEpicDetails)
		return renderEpicFormat()
	}
	frags := intent.ExtractDocuments(text)
	if len(frags) == 0 {
		return renderDocumentRetry()
	}
	st.Payload.Documents = append(st.Payload.Documents, frags...)
	m.advance(in, st, StepDocConfirm)
	return renderDocumentSummary(st.Payload.Documents)
}

func (m *Machine) handleDocConfirm(ctx context.Context, in Incoming, st State, text string) string {
	switch strings.ToLower(text) {
	case "analyze", "confirm":
		if err := m.dispatcher.DispatchDocumentAnalysis(ctx, in.UserID, in.ChannelID, st.Payload.Documents, st.Payload.Context); err != nil {
			m.logger.Warn().Err(err).Str("user", in.UserID).Msg("analysis dispatch refused")
			return renderBusy()
		}
		m.reset(in)
		return renderAnalyzing()
	case "cancel":
		m.reset(in)
		return renderDocumentCancelled()
	}
	frags := intent.ExtractDocuments(text)
	if len(frags) == 0 {
		m.advance(in, st, StepDocCollect)
		return renderDocumentRetry()
	}
	st.Payload.Documents = append(st.Payload.Documents, frags...)
	m.advance(in, st, StepDocConfirm)
	return renderDocumentSummary(st.Payload.Documents)
}

func (m *Machine) handleApproval(ctx context.Context, in Incoming, text string) string {
	switch strings.ToLower(text) {
	case "approve", "approved", "yes", "y":
		err := m.dispatcher.DispatchProposalApproval(ctx, in.UserID, in.ChannelID)
		if errors.Is(err, workflow.ErrNoPendingProposals) {
			m.reset(in)
			return renderNoPendingProposals()
		}
		if err != nil {
			m.logger.Warn().Err(err).Str("user", in.UserID).Msg("approval dispatch refused")
			return renderBusy()
		}
		m.reset(in)
		return renderApprovalReceived()
	case "reject", "rejected", "no", "n":
		m.advance(in, State{}, StepFeedback)
		return renderFeedbackPrompt()
	case "cancel":
		m.dispatcher.CancelProposals(in.UserID)
		m.reset(in)
		return renderProposalsCancelled()
	}
	return renderApprovalInvalid()
}

func (m *Machine) handleFeedback(ctx context.Context, in Incoming, text string) string {
	if text == "" {
		return renderFeedbackPrompt()
	}
	err := m.dispatcher.DispatchProposalRegeneration(ctx, in.UserID, in.ChannelID, text)
	if errors.Is(err, workflow.ErrNoPendingProposals) {
		m.reset(in)
		return renderNoPendingProposals()
	}
	if err != nil {
		m.logger.Warn().Err(err).Str("user", in.UserID).Msg("regeneration dispatch refused")
		return renderBusy()
	}
	m.advance(in, State{}, StepApproval)
	return renderRegenerating()
}

func isConfirm(text string) bool {
	switch strings.ToLower(text) {
	case "confirm", "yes", "y", "ok":
		return true
	}
	return false
}

// EnterEpicFlow starts the epic flow directly, used by the slash command.
func (m *Machine) EnterEpicFlow(userID, channelID string) string {
	unlock := m.store.Lock(userID)
	defer unlock()
	m.store.Put(State{UserID: userID, ChannelID: channelID, Step: StepEpicDetails})
	return renderEpicFormat()
}

// EnterMeetingFlow starts the meeting flow, skipping the space prompt when
// the command arguments carry a valid key, either as a space= flag or as a
// bare token.
func (m *Machine) EnterMeetingFlow(userID, channelID, args string) string {
	unlock := m.store.Lock(userID)
	defer unlock()
	q := intent.ParseMeetingArgs(args)
	spaceKey := q.SpaceKey
	if spaceKey == "" {
		spaceKey = q.Keyword
	}
	if intent.ValidSpaceKey(spaceKey) {
		space := strings.ToUpper(strings.TrimSpace(spaceKey))
		m.store.Put(State{
			UserID:    userID,
			ChannelID: channelID,
			Step:      StepMeetingConfirm,
			Payload:   Payload{SpaceKey: space},
		})
		return renderMeetingConfirmation(space)
	}
	m.store.Put(State{UserID: userID, ChannelID: channelID, Step: StepMeetingSpace})
	return renderSpacePrompt()
}

// EnterSearchFlow starts the search flow, skipping the keyword prompt when
// the command arguments already carry one.
func (m *Machine) EnterSearchFlow(userID, channelID, args string) string {
	unlock := m.store.Lock(userID)
	defer unlock()
	q := intent.ParseMeetingArgs(args)
	if q.Keyword != "" {
		m.store.Put(State{
			UserID:    userID,
			ChannelID: channelID,
			Step:      StepSearchConfirm,
			Payload:   Payload{Query: q},
		})
		return renderSearchConfirmation(q)
	}
	m.store.Put(State{UserID: userID, ChannelID: channelID, Step: StepSearchKeyword})
	return renderKeywordPrompt()
}

// WorkflowFinished implements workflow.Notifier. It posts the outcome to the
// user's channel and moves the conversation: analysis and regeneration
// successes land on the approval step, everything else returns to the menu.
func (m *Machine) WorkflowFinished(ctx context.Context, out workflow.Outcome) {
	unlock := m.store.Lock(out.UserID)

	next := StepAwaitingChoice
	if out.Result.Success && (out.Kind == workflow.KindDocumentAnalysis || out.Kind == workflow.KindProposalRegeneration) {
		next = StepApproval
	}
	m.store.Put(State{UserID: out.UserID, ChannelID: out.ChannelID, Step: next})
	unlock()

	text := RenderWorkflowOutcome(out)
	if err := m.sender.Send(ctx, out.ChannelID, text); err != nil {
		m.logger.Error().Err(err).Str("user", out.UserID).Str("kind", string(out.Kind)).Msg("completion notification failed")
	}
	m.logger.Info().Str("user", out.UserID).Str("kind", string(out.Kind)).Bool("success", out.Result.Success).Msg("workflow finished")
}
