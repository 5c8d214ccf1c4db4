package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type countingExpirer struct {
	calls atomic.Int32
	n     int
	err   error
}

func (c *countingExpirer) ExpireStalePending(ctx context.Context) (int, error) {
	c.calls.Add(1)
	return c.n, c.err
}

func TestRunPendingExpiry(t *testing.T) {
	exp := &countingExpirer{n: 3}
	assert.Equal(t, 3, RunPendingExpiry(context.Background(), exp, zap.NewNop()))

	failing := &countingExpirer{err: errors.New("db down")}
	assert.Equal(t, 0, RunPendingExpiry(context.Background(), failing, zap.NewNop()))
	assert.Equal(t, int32(1), failing.calls.Load())
}

func TestScheduler_RunsOnSchedule(t *testing.T) {
	exp := &countingExpirer{}
	s := NewScheduler(zap.NewNop())
	require.NoError(t, s.AddPendingExpiry("@every 1s", exp))

	s.Start()
	defer s.Stop(context.Background())

	assert.Eventually(t, func() bool { return exp.calls.Load() > 0 }, 3*time.Second, 50*time.Millisecond)
}

func TestScheduler_RejectsBadSpec(t *testing.T) {
	s := NewScheduler(nil)
	assert.Error(t, s.AddPendingExpiry("whenever", &countingExpirer{}))
}
