package util

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHostLimiterSeparatesHosts(t *testing.T) {
	hl := NewHostLimiter(1, 1) // one token per host
	ctx := context.Background()

	start := time.Now()
	require.NoError(t, hl.WaitURL(ctx, "https://de.indeed.com/jobs"))
	require.NoError(t, hl.WaitURL(ctx, "https://www.glassdoor.com/Job/jobs.htm"))
	require.Less(t, time.Since(start), 200*time.Millisecond,
		"first request per host must not wait")
}

func TestHostLimiterBlocksSecondRequest(t *testing.T) {
	hl := NewHostLimiter(1000, 1)
	ctx := context.Background()

	require.NoError(t, hl.WaitURL(ctx, "https://de.indeed.com/a"))
	start := time.Now()
	require.NoError(t, hl.WaitURL(ctx, "https://de.indeed.com/b"))
	require.GreaterOrEqual(t, time.Since(start), 500*time.Microsecond)
}

func TestHostLimiterCancelledContext(t *testing.T) {
	hl := NewHostLimiter(0.001, 1)
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, hl.WaitURL(ctx, "https://de.indeed.com/a"))
	cancel()
	require.Error(t, hl.WaitURL(ctx, "https://de.indeed.com/b"))
}

func TestHostLimiterUnparseableURLStillLimits(t *testing.T) {
	hl := NewHostLimiter(1000, 1)
	require.NoError(t, hl.WaitURL(context.Background(), "not a url"))
}
