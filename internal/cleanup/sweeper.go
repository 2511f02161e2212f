// Package cleanup periodically expires stale state: pending epic proposals
// past their TTL, abandoned conversations, and old persisted records.
package cleanup

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/p-blackswan/pm-agent/internal/store"
	"github.com/p-blackswan/pm-agent/internal/workflow"
)

// Proposals is the slice of the proposal store the sweeper needs.
type Proposals interface {
	SweepExpired() []workflow.ExpiredOwner
}

// Conversations is the slice of the conversation store the sweeper needs.
type Conversations interface {
	IdleSince(cutoff time.Time) []string
	Delete(userID string)
}

// Sender posts a message to a chat channel.
type Sender interface {
	Send(ctx context.Context, channelID, text string) error
}

// Observer counts sweep activity, implemented by the metrics package.
type Observer interface {
	Swept(kind string, count int)
}

// Config holds sweep cadence and retention windows.
type Config struct {
	Interval         time.Duration
	ConversationIdle time.Duration
	RecordRetention  time.Duration
}

// Sweeper runs the periodic cleanup loop.
type Sweeper struct {
	cfg           Config
	proposals     Proposals
	conversations Conversations
	sender        Sender
	observer      Observer
	records       *store.Store // optional
	logger        zerolog.Logger
}

// NewSweeper creates a sweeper. Zero config values fall back to defaults.
func NewSweeper(cfg Config, proposals Proposals, conversations Conversations, sender Sender, logger zerolog.Logger) *Sweeper {
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Minute
	}
	if cfg.ConversationIdle <= 0 {
		cfg.ConversationIdle = 24 * time.Hour
	}
	if cfg.RecordRetention <= 0 {
		cfg.RecordRetention = 30 * 24 * time.Hour
	}

	return &Sweeper{
		cfg:           cfg,
		proposals:     proposals,
		conversations: conversations,
		sender:        sender,
		logger:        logger.With().Str("component", "cleanup").Logger(),
	}
}

// SetObserver sets the sweep observer.
func (s *Sweeper) SetObserver(o Observer) {
	s.observer = o
}

// SetStore sets the optional SQLite store whose old records get pruned.
func (s *Sweeper) SetStore(st *store.Store) {
	s.records = st
}

// Run blocks, sweeping on the configured interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	s.logger.Info().Dur("interval", s.cfg.Interval).Msg("cleanup sweeper started")
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("cleanup sweeper stopped")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep performs one cleanup pass.
func (s *Sweeper) Sweep(ctx context.Context) {
	s.sweepProposals(ctx)
	s.sweepConversations()
	s.pruneRecords()
}

func (s *Sweeper) sweepProposals(ctx context.Context) {
	expired := s.proposals.SweepExpired()
	if len(expired) == 0 {
		return
	}

	s.logger.Info().Int("count", len(expired)).Msg("expired pending proposals")
	s.observed("proposals", len(expired))

	if s.records != nil {
		for _, owner := range expired {
			if err := s.records.Audit(ctx, "proposals_expired", owner.UserID, ""); err != nil {
				s.logger.Warn().Err(err).Msg("audit write failed")
			}
		}
	}

	for _, owner := range expired {
		// The approval flow is dead without its proposals, so drop the
		// conversation too instead of leaving the user stuck mid-step.
		s.conversations.Delete(owner.UserID)

		if owner.ChannelID == "" || s.sender == nil {
			continue
		}
		text := "⌛ Your pending epic proposals expired before a decision was made. Run document analysis again if you still want them."
		if err := s.sender.Send(ctx, owner.ChannelID, text); err != nil {
			s.logger.Warn().Err(err).
				Str("user_id", owner.UserID).
				Str("channel_id", owner.ChannelID).
				Msg("failed to notify proposal expiry")
		}
	}
}

func (s *Sweeper) sweepConversations() {
	cutoff := time.Now().Add(-s.cfg.ConversationIdle)
	idle := s.conversations.IdleSince(cutoff)
	if len(idle) == 0 {
		return
	}

	for _, userID := range idle {
		s.conversations.Delete(userID)
	}
	s.logger.Info().Int("count", len(idle)).Msg("cleared idle conversations")
	s.observed("conversations", len(idle))
}

func (s *Sweeper) pruneRecords() {
	if s.records == nil {
		return
	}

	tasks, err := s.records.PruneTasks(s.cfg.RecordRetention)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to prune task records")
	} else if tasks > 0 {
		s.logger.Info().Int64("count", tasks).Msg("pruned old task records")
		s.observed("tasks", int(tasks))
	}

	audit, err := s.records.PruneAudit(s.cfg.RecordRetention)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to prune audit entries")
	} else if audit > 0 {
		s.logger.Info().Int64("count", audit).Msg("pruned old audit entries")
		s.observed("audit", int(audit))
	}
}

func (s *Sweeper) observed(kind string, count int) {
	if s.observer != nil {
		s.observer.Swept(kind, count)
	}
}
