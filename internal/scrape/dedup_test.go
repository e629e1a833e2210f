package scrape

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDedupExactRepeat(t *testing.T) {
	d := NewDeduplicator()
	require.True(t, d.Accept("https://example.com/jobs/1"))
	require.False(t, d.Accept("https://example.com/jobs/1"))
	require.Equal(t, 1, d.Dropped())
	require.Equal(t, 1, d.Size())
}

func TestDedupStripsTrackingParams(t *testing.T) {
	d := NewDeduplicator()
	require.True(t, d.Accept("https://example.com/jobs/1?utm_source=digest"))
	require.False(t, d.Accept("https://example.com/jobs/1"))
	require.False(t, d.Accept("https://example.com/jobs/1?utm_campaign=x&gclid=123"))
	require.Equal(t, 2, d.Dropped())
}

func TestDedupTrailingSlashAndCase(t *testing.T) {
	d := NewDeduplicator()
	require.True(t, d.Accept("https://Example.com/jobs/1/"))
	require.False(t, d.Accept("https://example.com/jobs/1"))
}

func TestDedupDistinctURLsSurvive(t *testing.T) {
	d := NewDeduplicator()
	require.True(t, d.Accept("https://example.com/jobs/1"))
	require.True(t, d.Accept("https://example.com/jobs/2"))
	require.Equal(t, 0, d.Dropped())
	require.Equal(t, 2, d.Size())
}
