package workflow

import (
	"context"

	"github.com/p-blackswan/pm-agent/internal/intent"
)

// Submitter enqueues background work. The task runner implements it.
type Submitter interface {
	Submit(kind, userID, channelID string, run func(ctx context.Context) error) error
}

// Dispatcher submits workflows to the task runner and routes the finished
// outcome back to the notifier. The conversation machine depends on it to
// keep chat turns fast: every dispatch returns as soon as the task is queued.
type Dispatcher struct {
	orch     *Orchestrator
	tasks    Submitter
	notifier Notifier
	defaults Defaults
}

// Defaults carries instance-level values applied when the user left a field
// unset. They come from the behavior file, not from env config.
type Defaults struct {
	EpicPriority string
	EpicLabels   []string
	MeetingDays  int
}

// NewDispatcher wires the orchestrator to the task runner and the notifier.
func NewDispatcher(orch *Orchestrator, tasks Submitter, notifier Notifier) *Dispatcher {
	return &Dispatcher{orch: orch, tasks: tasks, notifier: notifier}
}

// SetNotifier installs the outcome sink. The conversation machine holds the
// dispatcher, so it cannot exist before the dispatcher does; call this right
// after constructing the machine and before any dispatch.
func (d *Dispatcher) SetNotifier(n Notifier) {
	d.notifier = n
}

// SetDefaults installs the behavior-file defaults.
func (d *Dispatcher) SetDefaults(def Defaults) {
	d.defaults = def
}

func (d *Dispatcher) submit(kind Kind, userID, channelID string, run func(ctx context.Context) Result) error {
	return d.tasks.Submit(string(kind), userID, channelID, func(ctx context.Context) error {
		out := Outcome{
			Kind:      kind,
			UserID:    userID,
			ChannelID: channelID,
			Result:    run(ctx),
		}
		d.notifier.WorkflowFinished(ctx, out)
		return nil
	})
}

func (d *Dispatcher) DispatchEpicCreation(ctx context.Context, userID, channelID string, in intent.EpicIntent) error {
	if in.Priority == "" {
		in.Priority = d.defaults.EpicPriority
	}
	if len(in.Labels) == 0 {
		in.Labels = d.defaults.EpicLabels
	}
	return d.submit(KindEpicCreation, userID, channelID, func(ctx context.Context) Result {
		return d.orch.CreateEpic(ctx, userID, in)
	})
}

func (d *Dispatcher) DispatchMeetingProcessing(ctx context.Context, userID, channelID, spaceKey string) error {
	days := d.defaults.MeetingDays
	if days <= 0 {
		days = intent.DefaultDaysBack
	}
	q := intent.MeetingQuery{SpaceKey: spaceKey, DaysBack: days}
	return d.submit(KindMeetingProcessing, userID, channelID, func(ctx context.Context) Result {
		return d.orch.ProcessMeetings(ctx, userID, q)
	})
}

func (d *Dispatcher) DispatchMeetingSearch(ctx context.Context, userID, channelID string, q intent.MeetingQuery) error {
	return d.submit(KindMeetingSearch, userID, channelID, func(ctx context.Context) Result {
		return d.orch.ProcessMeetings(ctx, userID, q)
	})
}

func (d *Dispatcher) DispatchDocumentAnalysis(ctx context.Context, userID, channelID string, frags []intent.DocumentFragment, userContext string) error {
	return d.submit(KindDocumentAnalysis, userID, channelID, func(ctx context.Context) Result {
		return d.orch.AnalyzeDocuments(ctx, userID, channelID, frags, userContext)
	})
}

// DispatchProposalApproval fails fast with ErrNoPendingProposals so the
// machine can answer inside the turn instead of through the notifier.
func (d *Dispatcher) DispatchProposalApproval(ctx context.Context, userID, channelID string) error {
	if _, ok := d.orch.Proposals().Get(userID); !ok {
		return ErrNoPendingProposals
	}
	return d.submit(KindProposalApproval, userID, channelID, func(ctx context.Context) Result {
		res, err := d.orch.ResolveApproval(ctx, userID)
		if err != nil {
			return failure("%v", err)
		}
		return res
	})
}

func (d *Dispatcher) DispatchProposalRegeneration(ctx context.Context, userID, channelID, feedback string) error {
	if _, ok := d.orch.Proposals().Get(userID); !ok {
		return ErrNoPendingProposals
	}
	return d.submit(KindProposalRegeneration, userID, channelID, func(ctx context.Context) Result {
		res, err := d.orch.Regenerate(ctx, userID, channelID, feedback)
		if err != nil {
			return failure("%v", err)
		}
		return res
	})
}

func (d *Dispatcher) CancelProposals(userID string) {
	d.orch.CancelProposals(userID)
}
