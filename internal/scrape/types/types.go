package types

import (
	"context"
	"time"

	"jobscout-engine/internal/domain"
)

// RawResult is one source-specific result row. Field names follow whatever
// the board's markup/API uses; the normalizer translates them.
type RawResult struct {
	Fields map[string]string
}

func (r RawResult) Get(key string) string {
	if r.Fields == nil {
		return ""
	}
	return r.Fields[key]
}

// FetchParams are the search knobs shared by every source client.
type FetchParams struct {
	ResultsPerSource int
	MaxAge           time.Duration
	JobType          string
	Remote           bool
}

// SourceClient fetches raw results for one job board.
type SourceClient interface {
	Name() domain.SourceID
	Fetch(ctx context.Context, role, country string, p FetchParams) ([]RawResult, error)
}
