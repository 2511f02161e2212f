package conversation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_PutGetDelete(t *testing.T) {
	s := NewMemoryStore()

	_, ok := s.Get("U1")
	require.False(t, ok)

	s.Put(State{UserID: "U1", ChannelID: "C1", Step: StepEpicDetails})

	st, ok := s.Get("U1")
	require.True(t, ok)
	assert.Equal(t, StepEpicDetails, st.Step)
	assert.Equal(t, "C1", st.ChannelID)
	assert.False(t, st.UpdatedAt.IsZero())

	s.Delete("U1")
	_, ok = s.Get("U1")
	assert.False(t, ok)
	assert.Zero(t, s.Len())
}

func TestMemoryStore_GetReturnsCopy(t *testing.T) {
	s := NewMemoryStore()
	s.Put(State{UserID: "U1", Step: StepDocCollect})

	st, _ := s.Get("U1")
	st.Step = StepApproval

	again, _ := s.Get("U1")
	assert.Equal(t, StepDocCollect, again.Step)
}

func TestMemoryStore_Steps(t *testing.T) {
	s := NewMemoryStore()
	s.Put(State{UserID: "U1", Step: StepAwaitingChoice})
	s.Put(State{UserID: "U2", Step: StepAwaitingChoice})
	s.Put(State{UserID: "U3", Step: StepApproval})

	counts := s.Steps()
	assert.Equal(t, 2, counts["awaiting_choice"])
	assert.Equal(t, 1, counts["approval"])
}

func TestMemoryStore_IdleSince(t *testing.T) {
	s := NewMemoryStore()
	s.Put(State{UserID: "U1"})

	assert.Empty(t, s.IdleSince(time.Now().Add(-time.Minute)))
	assert.Equal(t, []string{"U1"}, s.IdleSince(time.Now().Add(time.Minute)))
}

func TestMemoryStore_LockSerializesTurns(t *testing.T) {
	s := NewMemoryStore()

	unlock := s.Lock("U1")
	acquired := make(chan struct{})
	go func() {
		u := s.Lock("U1")
		close(acquired)
		u()
	}()

	select {
	case <-acquired:
		t.Fatal("second lock acquired while first still held")
	case <-time.After(20 * time.Millisecond):
	}

	unlock()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second lock never acquired after release")
	}
}

func TestCanTransition(t *testing.T) {
	// Termination and menu reset are reachable from everywhere.
	for step := range stepNames {
		assert.True(t, CanTransition(step, StepNone), step.String())
		assert.True(t, CanTransition(step, StepAwaitingChoice), step.String())
	}

	assert.True(t, CanTransition(StepAwaitingChoice, StepEpicDetails))
	assert.True(t, CanTransition(StepEpicConfirm, StepEpicDetails))
	assert.True(t, CanTransition(StepDocConfirm, StepApproval))
	assert.True(t, CanTransition(StepFeedback, StepApproval))
	assert.False(t, CanTransition(StepEpicDetails, StepMeetingSpace))
	assert.False(t, CanTransition(StepMeetingConfirm, StepSearchConfirm))
}
