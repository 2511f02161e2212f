package cleanup

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p-blackswan/pm-agent/internal/workflow"
)

type fakeProposals struct {
	expired []workflow.ExpiredOwner
}

func (f *fakeProposals) SweepExpired() []workflow.ExpiredOwner {
	out := f.expired
	f.expired = nil
	return out
}

type fakeConversations struct {
	mu      sync.Mutex
	idle    []string
	deleted []string
}

func (f *fakeConversations) IdleSince(cutoff time.Time) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.idle
	f.idle = nil
	return out
}

func (f *fakeConversations) Delete(userID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, userID)
}

type fakeSender struct {
	mu       sync.Mutex
	err      error
	messages []string
	channels []string
}

func (f *fakeSender) Send(ctx context.Context, channelID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.channels = append(f.channels, channelID)
	f.messages = append(f.messages, text)
	return nil
}

type countingObserver struct {
	counts map[string]int
}

func (c *countingObserver) Swept(kind string, count int) {
	if c.counts == nil {
		c.counts = make(map[string]int)
	}
	c.counts[kind] += count
}

func setupSweeper(t *testing.T) (*Sweeper, *fakeProposals, *fakeConversations, *fakeSender, *countingObserver) {
	t.Helper()
	proposals := &fakeProposals{}
	conversations := &fakeConversations{}
	sender := &fakeSender{}
	observer := &countingObserver{}
	s := NewSweeper(Config{}, proposals, conversations, sender, zerolog.Nop())
	s.SetObserver(observer)
	return s, proposals, conversations, sender, observer
}

func TestSweepNotifiesExpiredProposalOwners(t *testing.T) {
	s, proposals, conversations, sender, observer := setupSweeper(t)
	proposals.expired = []workflow.ExpiredOwner{
		{UserID: "U1", ChannelID: "C1"},
		{UserID: "U2", ChannelID: "C2"},
	}

	s.Sweep(context.Background())

	require.Len(t, sender.messages, 2)
	assert.Contains(t, sender.messages[0], "proposals expired")
	assert.Equal(t, []string{"C1", "C2"}, sender.channels)
	assert.Equal(t, []string{"U1", "U2"}, conversations.deleted)
	assert.Equal(t, 2, observer.counts["proposals"])

	// A second pass has nothing left to notify.
	s.Sweep(context.Background())
	assert.Len(t, sender.messages, 2)
}

func TestSweepSkipsOwnerWithoutChannel(t *testing.T) {
	s, proposals, conversations, sender, _ := setupSweeper(t)
	proposals.expired = []workflow.ExpiredOwner{{UserID: "U1"}}

	s.Sweep(context.Background())

	assert.Empty(t, sender.messages)
	assert.Equal(t, []string{"U1"}, conversations.deleted)
}

func TestSweepToleratesSendFailure(t *testing.T) {
	s, proposals, conversations, sender, _ := setupSweeper(t)
	proposals.expired = []workflow.ExpiredOwner{{UserID: "U1", ChannelID: "C1"}}
	sender.err = errors.New("slack down")

	s.Sweep(context.Background())

	assert.Equal(t, []string{"U1"}, conversations.deleted)
}

func TestSweepClearsIdleConversations(t *testing.T) {
	s, _, conversations, _, observer := setupSweeper(t)
	conversations.idle = []string{"U5", "U6"}

	s.Sweep(context.Background())

	assert.Equal(t, []string{"U5", "U6"}, conversations.deleted)
	assert.Equal(t, 2, observer.counts["conversations"])
}

func TestRunStopsOnContextCancel(t *testing.T) {
	proposals := &fakeProposals{}
	conversations := &fakeConversations{}
	s := NewSweeper(Config{Interval: 5 * time.Millisecond}, proposals, conversations, &fakeSender{}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
