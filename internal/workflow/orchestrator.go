package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/p-blackswan/pm-agent/internal/intent"
	"github.com/p-blackswan/pm-agent/internal/models"
)

// Observer receives workflow-level telemetry. The metrics registry implements
// it; a nil observer disables recording.
type Observer interface {
	WorkflowStarted(kind string)
	WorkflowFinished(kind string, success bool)
}

// Auditor records durable workflow events. The SQLite store implements it.
type Auditor interface {
	Audit(ctx context.Context, event, userID, detail string) error
}

// Orchestrator runs the multi-step workflows against the capability ports.
// It never retries: transient upstream errors are retried inside the clients.
type Orchestrator struct {
	ai        AI
	tracker   Tracker
	publisher Publisher
	calendar  Calendar
	proposals *ProposalStore
	observer  Observer
	auditor   Auditor
	logger    zerolog.Logger
}

// NewOrchestrator wires the workflow ports. observer and auditor may be nil.
func NewOrchestrator(ai AI, tracker Tracker, publisher Publisher, calendar Calendar, proposals *ProposalStore, observer Observer, auditor Auditor, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		ai:        ai,
		tracker:   tracker,
		publisher: publisher,
		calendar:  calendar,
		proposals: proposals,
		observer:  observer,
		auditor:   auditor,
		logger:    logger.With().Str("component", "workflow").Logger(),
	}
}

// Proposals exposes the pending-proposal store for the cleanup sweeper.
func (o *Orchestrator) Proposals() *ProposalStore {
	return o.proposals
}

func (o *Orchestrator) observeStart(kind Kind) {
	if o.observer != nil {
		o.observer.WorkflowStarted(string(kind))
	}
}

func (o *Orchestrator) observeFinish(kind Kind, success bool) {
	if o.observer != nil {
		o.observer.WorkflowFinished(string(kind), success)
	}
}

func (o *Orchestrator) audit(ctx context.Context, event, userID, detail string) {
	if o.auditor == nil {
		return
	}
	if err := o.auditor.Audit(ctx, event, userID, detail); err != nil {
		o.logger.Warn().Err(err).Str("event", event).Msg("audit write failed")
	}
}

// CreateEpic runs the epic-creation workflow. Success reflects epic creation
// only: story generation and creation failures are recorded, not fatal.
func (o *Orchestrator) CreateEpic(ctx context.Context, userID string, in intent.EpicIntent) Result {
	o.observeStart(KindEpicCreation)
	res := o.createEpic(ctx, userID, in)
	o.observeFinish(KindEpicCreation, res.Success)
	return res
}

func (o *Orchestrator) createEpic(ctx context.Context, userID string, in intent.EpicIntent) Result {
	log := o.logger.With().Str("user", userID).Str("epic", in.Title).Logger()

	features := in.PreferredFeatures
	if len(features) == 0 {
		generated, err := o.ai.GenerateFeatures(ctx, in.Title, in.Description)
		if err != nil {
			log.Error().Err(err).Msg("feature generation failed")
			return failure("I couldn't generate features for this epic: %v", err)
		}
		if len(generated) == 0 {
			return failure("I couldn't derive any features from the epic description. Please try again with more detail.")
		}
		features = generated
	}

	epic, err := o.tracker.CreateEpic(ctx, in.Title, in.Description, in.Priority, in.Labels)
	if err != nil {
		log.Error().Err(err).Msg("epic creation failed")
		return failure("Epic creation failed: %v", err)
	}
	log.Info().Str("key", epic.Key).Int("features", len(features)).Msg("epic created")
	o.audit(ctx, "epic_created", userID, epic.Key)

	res := Result{Success: true, Epic: &epic}

	drafts, err := o.ai.GenerateUserStories(ctx, features, in.Title)
	if err != nil {
		// The epic exists; a story generation failure degrades the result
		// rather than failing it.
		log.Warn().Err(err).Msg("story generation failed")
		res.FailedStories = append(res.FailedStories, fmt.Sprintf("story generation failed: %v", err))
		return res
	}

	for _, draft := range drafts {
		story, err := o.tracker.CreateUserStory(ctx, draft)
		if err != nil {
			log.Warn().Err(err).Str("story", draft.Title).Msg("story creation failed")
			res.FailedStories = append(res.FailedStories, draft.Title)
			continue
		}
		if err := o.tracker.LinkStoryToEpic(ctx, story.Key, epic.Key); err != nil {
			log.Warn().Err(err).Str("story", story.Key).Msg("epic link failed")
		}
		res.Stories = append(res.Stories, story)
	}
	log.Info().Int("stories", len(res.Stories)).Int("failed", len(res.FailedStories)).Msg("epic workflow finished")
	return res
}

// ProcessMeetings runs the meeting-to-documentation workflow. Retrieval
// failures and an empty result set are terminal; per-meeting failures are
// recorded as failed items and never abort the batch.
func (o *Orchestrator) ProcessMeetings(ctx context.Context, userID string, q intent.MeetingQuery) Result {
	kind := KindMeetingProcessing
	if q.IsSearch() {
		kind = KindMeetingSearch
	}
	o.observeStart(kind)
	res := o.processMeetings(ctx, userID, q)
	o.observeFinish(kind, res.Success)
	return res
}

func (o *Orchestrator) processMeetings(ctx context.Context, userID string, q intent.MeetingQuery) Result {
	log := o.logger.With().Str("user", userID).Str("space", q.SpaceKey).Logger()

	daysBack := q.DaysBack
	if daysBack <= 0 {
		daysBack = intent.DefaultDaysBack
	}

	var (
		meetings []models.Meeting
		err      error
	)
	if q.IsSearch() {
		meetings, err = o.calendar.SearchMeetings(ctx, q.Keyword, daysBack)
	} else {
		meetings, err = o.calendar.RecentMeetings(ctx, daysBack)
	}
	if err != nil {
		log.Error().Err(err).Msg("meeting retrieval failed")
		return failure("I couldn't retrieve your meetings: %v", err)
	}
	if len(meetings) == 0 {
		if q.IsSearch() {
			return failure("No meetings matching %q were found in the last %d days.", q.Keyword, daysBack)
		}
		return failure("No meetings were found in the last %d days.", daysBack)
	}

	res := Result{Success: true, MeetingsProcessed: len(meetings)}
	for _, m := range meetings {
		page, err := o.documentMeeting(ctx, m, q.SpaceKey)
		if err != nil {
			log.Warn().Err(err).Str("meeting", m.Title).Msg("meeting documentation failed")
			res.FailedItems = append(res.FailedItems, fmt.Sprintf("%s: %v", m.Title, err))
			continue
		}
		if page != nil {
			res.Pages = append(res.Pages, *page)
			o.audit(ctx, "page_published", userID, page.Title)
		}
	}
	log.Info().Int("meetings", len(meetings)).Int("pages", len(res.Pages)).Int("failed", len(res.FailedItems)).Msg("meeting workflow finished")
	return res
}

func (o *Orchestrator) documentMeeting(ctx context.Context, m models.Meeting, spaceKey string) (*models.Page, error) {
	notes, err := o.ai.ProcessMeetingNotes(ctx, m)
	if err != nil {
		return nil, fmt.Errorf("processing notes: %w", err)
	}
	title, body, err := o.ai.CreateConfluenceContent(ctx, m, notes)
	if err != nil {
		return nil, fmt.Errorf("rendering content: %w", err)
	}
	if spaceKey == "" {
		return nil, nil
	}
	page, err := o.publisher.CreatePage(ctx, spaceKey, title, body, notes.Tags)
	if err != nil {
		return nil, fmt.Errorf("publishing page: %w", err)
	}
	return &page, nil
}

// AnalyzeDocuments runs document analysis and stores the resulting proposals
// pending the user's approval.
func (o *Orchestrator) AnalyzeDocuments(ctx context.Context, userID, channelID string, frags []intent.DocumentFragment, userContext string) Result {
	o.observeStart(KindDocumentAnalysis)
	res := o.analyzeDocuments(ctx, userID, channelID, frags, userContext)
	o.observeFinish(KindDocumentAnalysis, res.Success)
	return res
}

func (o *Orchestrator) analyzeDocuments(ctx context.Context, userID, channelID string, frags []intent.DocumentFragment, userContext string) Result {
	log := o.logger.With().Str("user", userID).Logger()

	combined := intent.CombineDocuments(frags, userContext)
	proposals, err := o.ai.AnalyzeDocumentsForEpics(ctx, combined)
	if err != nil {
		log.Error().Err(err).Msg("document analysis failed")
		return failure("Document analysis failed: %v", err)
	}
	if len(proposals) == 0 {
		return failure("I couldn't identify any epics in the provided documents.")
	}

	o.proposals.Put(userID, channelID, proposals)
	log.Info().Int("documents", len(frags)).Int("proposals", len(proposals)).Msg("documents analyzed")
	o.audit(ctx, "proposals_generated", userID, fmt.Sprintf("%d proposals", len(proposals)))

	return Result{
		Success:   true,
		Proposals: proposals,
		Markdown:  RenderProposals(proposals),
	}
}

// ResolveApproval creates one epic per pending proposal and clears the set.
// It returns ErrNoPendingProposals when the user has no live set.
func (o *Orchestrator) ResolveApproval(ctx context.Context, userID string) (Result, error) {
	proposals, ok := o.proposals.Get(userID)
	if !ok {
		return Result{}, ErrNoPendingProposals
	}
	o.observeStart(KindProposalApproval)

	res := Result{Success: true}
	for _, p := range proposals {
		in := intent.EpicIntent{
			Title:             p.Title,
			Description:       proposalDescription(p),
			PreferredFeatures: p.Features,
			Priority:          intent.NormalizePriority(p.Priority),
			Labels:            p.Labels,
		}
		epicRes := o.createEpic(ctx, userID, in)
		if !epicRes.Success || epicRes.Epic == nil {
			res.FailedEpics = append(res.FailedEpics, p.Title)
			continue
		}
		res.CreatedEpics = append(res.CreatedEpics, *epicRes.Epic)
	}
	o.proposals.Delete(userID)

	o.logger.Info().Str("user", userID).Int("created", len(res.CreatedEpics)).Int("failed", len(res.FailedEpics)).Msg("proposals approved")
	o.observeFinish(KindProposalApproval, res.Success)
	return res, nil
}

// proposalDescription folds a proposal's acceptance criteria into the epic
// description so they survive into the tracker.
func proposalDescription(p models.EpicProposal) string {
	if len(p.AcceptanceCriteria) == 0 {
		return p.Description
	}
	var b strings.Builder
	b.WriteString(p.Description)
	b.WriteString("\n\nAcceptance Criteria:\n")
	for i, c := range p.AcceptanceCriteria {
		fmt.Fprintf(&b, "%d. %s\n", i+1, c)
	}
	return strings.TrimRight(b.String(), "\n")
}

// Regenerate reruns analysis over the pending proposals with the user's
// feedback and replaces the pending set.
func (o *Orchestrator) Regenerate(ctx context.Context, userID, channelID, feedback string) (Result, error) {
	proposals, ok := o.proposals.Get(userID)
	if !ok {
		return Result{}, ErrNoPendingProposals
	}
	o.observeStart(KindProposalRegeneration)

	regenerated, err := o.ai.RegenerateEpicsWithFeedback(ctx, proposals, feedback)
	if err != nil {
		o.logger.Error().Err(err).Str("user", userID).Msg("proposal regeneration failed")
		o.observeFinish(KindProposalRegeneration, false)
		return failure("Proposal regeneration failed: %v", err), nil
	}
	if len(regenerated) == 0 {
		o.observeFinish(KindProposalRegeneration, false)
		return failure("Regeneration produced no proposals. Please try different feedback."), nil
	}

	o.proposals.Put(userID, channelID, regenerated)
	o.logger.Info().Str("user", userID).Int("proposals", len(regenerated)).Msg("proposals regenerated")
	o.observeFinish(KindProposalRegeneration, true)
	return Result{
		Success:   true,
		Proposals: regenerated,
		Markdown:  RenderProposals(regenerated),
	}, nil
}

// CancelProposals drops the user's pending set, if any.
func (o *Orchestrator) CancelProposals(userID string) {
	o.proposals.Delete(userID)
}
