package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseMeetingArgs(t *testing.T) {
	q := ParseMeetingArgs("sprint space=ENG days=7")
	assert.Equal(t, "sprint", q.Keyword)
	assert.Equal(t, "ENG", q.SpaceKey)
	assert.Equal(t, 7, q.DaysBack)
	assert.True(t, q.IsSearch())
}

func TestParseMeetingArgs_FlagsAnywhere(t *testing.T) {
	q := ParseMeetingArgs("days=14 retro space=TEAM")
	assert.Equal(t, "retro", q.Keyword)
	assert.Equal(t, "TEAM", q.SpaceKey)
	assert.Equal(t, 14, q.DaysBack)
}

func TestParseMeetingArgs_SpaceOnly(t *testing.T) {
	q := ParseMeetingArgs("space=ENG")
	assert.Empty(t, q.Keyword)
	assert.Equal(t, "ENG", q.SpaceKey)
	assert.Equal(t, DefaultDaysBack, q.DaysBack)
	assert.False(t, q.IsSearch())
}

func TestParseMeetingArgs_BadDaysIgnored(t *testing.T) {
	q := ParseMeetingArgs("standup days=soon")
	assert.Equal(t, DefaultDaysBack, q.DaysBack)

	q = ParseMeetingArgs("standup days=-3")
	assert.Equal(t, DefaultDaysBack, q.DaysBack)
}

func TestParseMeetingArgs_Empty(t *testing.T) {
	q := ParseMeetingArgs("")
	assert.Equal(t, MeetingQuery{DaysBack: DefaultDaysBack}, q)
}

func TestValidSpaceKey(t *testing.T) {
	assert.True(t, ValidSpaceKey("ENG"))
	assert.True(t, ValidSpaceKey("TEAMDOCS"))
	assert.False(t, ValidSpaceKey("E"))
	assert.False(t, ValidSpaceKey("WAYTOOLONGKEY"))
	assert.False(t, ValidSpaceKey("two words"))
}
