package health

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestChecker_AllHealthy(t *testing.T) {
	c := NewChecker(zerolog.Nop())
	c.Register("jira", func(ctx context.Context) Status { return StatusOK })
	c.Register("confluence", func(ctx context.Context) Status { return StatusOK })

	assert.True(t, c.IsReady(context.Background()))
}

func TestChecker_OneDown(t *testing.T) {
	c := NewChecker(zerolog.Nop())
	c.Register("jira", func(ctx context.Context) Status { return StatusOK })
	c.Register("ai", func(ctx context.Context) Status { return StatusDown })

	assert.False(t, c.IsReady(context.Background()))
}

func TestChecker_NoChecks(t *testing.T) {
	c := NewChecker(zerolog.Nop())
	assert.True(t, c.IsReady(context.Background()))
}

func TestChecker_CachesResults(t *testing.T) {
	c := NewChecker(zerolog.Nop())
	c.Register("jira", func(ctx context.Context) Status { return StatusDown })

	assert.Empty(t, c.Cached())

	c.RunAll(context.Background())
	cached := c.Cached()
	assert.Equal(t, StatusDown, cached["jira"])
}

func TestPingCheck(t *testing.T) {
	ok := PingCheck(func(ctx context.Context) error { return nil })
	assert.Equal(t, StatusOK, ok(context.Background()))

	down := PingCheck(func(ctx context.Context) error { return errors.New("401") })
	assert.Equal(t, StatusDown, down(context.Background()))
}
