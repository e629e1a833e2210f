package scrape

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"jobscout-engine/internal/domain"
	"jobscout-engine/internal/gate"
	"jobscout-engine/internal/scrape/types"
)

// stubClient replays canned results and records call order.
type stubClient struct {
	name    domain.SourceID
	results []types.RawResult
	err     error
	calls   []domain.SearchTask
}

func (s *stubClient) Name() domain.SourceID { return s.name }

func (s *stubClient) Fetch(ctx context.Context, role, country string, p types.FetchParams) ([]types.RawResult, error) {
	s.calls = append(s.calls, domain.SearchTask{Role: role, Country: country, Source: s.name})
	if s.err != nil {
		return nil, s.err
	}
	return s.results, nil
}

// blockedBrowser always shows the challenge marker.
type blockedBrowser struct{}

func (blockedBrowser) Open(ctx context.Context) error                  { return nil }
func (blockedBrowser) Navigate(ctx context.Context, url string) error  { return nil }
func (blockedBrowser) ChallengePresent(ctx context.Context) (bool, error) { return true, nil }
func (blockedBrowser) Close() error                                    { return nil }

func rawRow(title, url, desc string) types.RawResult {
	return types.RawResult{Fields: map[string]string{
		"title": title, "url": url, "description": desc, "company": "ACME",
	}}
}

func openPolicy() FilterPolicy {
	return FilterPolicy{
		InclusionKeywords: []string{"visa sponsorship"},
		ExclusionKeywords: []string{"EU citizenship required"},
		RequireInclusion:  true,
		ApplyExclusion:    true,
	}
}

func openGate() *gate.Gate {
	// no probe URLs: nothing is gated
	return gate.New(gate.Config{Enabled: true}, blockedBrowser{})
}

func TestRunPipelineEndToEnd(t *testing.T) {
	alpha := &stubClient{name: "alpha", results: []types.RawResult{
		rawRow("DevOps Engineer", "https://jobs.example.com/1?utm_source=alpha", "visa sponsorship available"),
		rawRow("SRE", "https://jobs.example.com/2", "EU citizenship required, visa sponsorship"),
		rawRow("Platform Engineer", "https://jobs.example.com/3", "no keywords here"),
	}}
	beta := &stubClient{name: "beta", results: []types.RawResult{
		// same posting as alpha's first, through a different tracking link
		rawRow("DevOps Engineer", "https://jobs.example.com/1?utm_source=beta", "visa sponsorship available"),
	}}

	r := &Runner{
		Clients: map[domain.SourceID]types.SourceClient{"alpha": alpha, "beta": beta},
		Gate:    openGate(),
		Policy:  openPolicy(),
	}

	res, err := r.Run(context.Background(), []string{"DevOps Engineer"}, []string{"germany"}, []domain.SourceID{"alpha", "beta"})
	require.NoError(t, err)

	require.Len(t, res.Records, 1, "dedup must collapse the cross-source duplicate")
	require.Equal(t, domain.SourceID("alpha"), res.Records[0].Source, "first seen wins")
	require.True(t, res.Records[0].VisaMentioned)

	require.Equal(t, 4, res.Stats.TotalFetched)
	require.Equal(t, 2, res.Stats.TotalFiltered)
	require.Equal(t, 1, res.Stats.TotalDeduplicated)
	require.Equal(t, 1, res.Stats.PerSource["alpha"])
	require.Equal(t, 0, res.Stats.PerSource["beta"])
	require.Equal(t, 1, res.Stats.PerCountry["germany"])
	require.Len(t, res.Rejected, 2)
}

func TestRunTaskOrderIsRoleMajor(t *testing.T) {
	alpha := &stubClient{name: "alpha"}
	beta := &stubClient{name: "beta"}
	r := &Runner{
		Clients: map[domain.SourceID]types.SourceClient{"alpha": alpha, "beta": beta},
		Gate:    openGate(),
		Policy:  FilterPolicy{},
	}

	_, err := r.Run(context.Background(),
		[]string{"r1", "r2"}, []string{"c1", "c2"}, []domain.SourceID{"alpha", "beta"})
	require.NoError(t, err)

	require.Equal(t, []domain.SearchTask{
		{Role: "r1", Country: "c1", Source: "alpha"},
		{Role: "r1", Country: "c2", Source: "alpha"},
		{Role: "r2", Country: "c1", Source: "alpha"},
		{Role: "r2", Country: "c2", Source: "alpha"},
	}, alpha.calls)
	require.Equal(t, []domain.SearchTask{
		{Role: "r1", Country: "c1", Source: "beta"},
		{Role: "r1", Country: "c2", Source: "beta"},
		{Role: "r2", Country: "c1", Source: "beta"},
		{Role: "r2", Country: "c2", Source: "beta"},
	}, beta.calls)
}

func TestRunGatedSourceTimeoutDoesNotAbortRun(t *testing.T) {
	blocked := &stubClient{name: domain.SourceGlassdoor}
	open := &stubClient{name: "alpha", results: []types.RawResult{
		rawRow("DevOps Engineer", "https://jobs.example.com/1", "visa sponsorship"),
	}}

	g := gate.New(gate.Config{
		Enabled:      true,
		ProbeURLs:    map[domain.SourceID]string{domain.SourceGlassdoor: "https://gated.example/probe"},
		WaitTimeout:  5 * time.Millisecond,
		PollInterval: time.Millisecond,
	}, blockedBrowser{})

	r := &Runner{
		Clients: map[domain.SourceID]types.SourceClient{domain.SourceGlassdoor: blocked, "alpha": open},
		Gate:    g,
		Policy:  openPolicy(),
	}

	res, err := r.Run(context.Background(), []string{"DevOps Engineer"}, []string{"germany", "sweden"},
		[]domain.SourceID{domain.SourceGlassdoor, "alpha"})
	require.NoError(t, err)

	require.Empty(t, blocked.calls, "gated source must never be fetched after the gate fails")
	require.Len(t, open.calls, 2)
	require.Len(t, res.Stats.Failures, 2)
	for _, f := range res.Stats.Failures {
		require.Equal(t, domain.SourceGlassdoor, f.Task.Source)
		require.Equal(t, "challenge_timeout", f.Reason)
	}
	require.Len(t, res.Records, 1)
}

func TestRunFetchErrorIsCountedAndSkipped(t *testing.T) {
	broken := &stubClient{name: "alpha", err: errors.New("connection reset")}
	fine := &stubClient{name: "beta", results: []types.RawResult{
		rawRow("SRE", "https://jobs.example.com/9", "visa sponsorship"),
	}}

	r := &Runner{
		Clients: map[domain.SourceID]types.SourceClient{"alpha": broken, "beta": fine},
		Gate:    openGate(),
		Policy:  openPolicy(),
	}

	res, err := r.Run(context.Background(), []string{"SRE"}, []string{"spain"}, []domain.SourceID{"alpha", "beta"})
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	require.Len(t, res.Stats.Failures, 1)
	require.Equal(t, "fetch_error", res.Stats.Failures[0].Reason)
}

func TestRunMalformedResultsAreDroppedAndCounted(t *testing.T) {
	c := &stubClient{name: "alpha", results: []types.RawResult{
		{Fields: map[string]string{"title": "no url here", "description": "visa sponsorship"}},
		rawRow("SRE", "https://jobs.example.com/1", "visa sponsorship"),
	}}

	r := &Runner{
		Clients: map[domain.SourceID]types.SourceClient{"alpha": c},
		Gate:    openGate(),
		Policy:  openPolicy(),
	}

	res, err := r.Run(context.Background(), []string{"SRE"}, []string{"spain"}, []domain.SourceID{"alpha"})
	require.NoError(t, err)
	require.Equal(t, 1, res.Stats.Malformed)
	require.Len(t, res.Records, 1)
}

func TestRunCancelledContextKeepsPartialResults(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	first := &stubClient{name: "alpha", results: []types.RawResult{
		rawRow("SRE", "https://jobs.example.com/1", "visa sponsorship"),
	}}
	cancelling := &cancellingClient{stub: stubClient{name: "beta"}, cancel: cancel}

	r := &Runner{
		Clients: map[domain.SourceID]types.SourceClient{"alpha": first, "beta": cancelling},
		Gate:    openGate(),
		Policy:  openPolicy(),
	}

	res, err := r.Run(ctx, []string{"SRE"}, []string{"spain", "sweden"}, []domain.SourceID{"alpha", "beta"})
	require.NoError(t, err)
	require.Len(t, res.Records, 1, "results up to the cancellation stay valid")
	require.Len(t, first.calls, 1, "no further tasks after cancellation")
}

// cancellingClient cancels the run context during its first fetch.
type cancellingClient struct {
	stub   stubClient
	cancel context.CancelFunc
}

func (c *cancellingClient) Name() domain.SourceID { return c.stub.name }

func (c *cancellingClient) Fetch(ctx context.Context, role, country string, p types.FetchParams) ([]types.RawResult, error) {
	c.cancel()
	return nil, ctx.Err()
}

func TestBuildTasksCartesianOrder(t *testing.T) {
	tasks := BuildTasks([]string{"r1", "r2"}, []string{"c1"}, []domain.SourceID{"s1", "s2"})
	require.Equal(t, []domain.SearchTask{
		{Role: "r1", Country: "c1", Source: "s1"},
		{Role: "r1", Country: "c1", Source: "s2"},
		{Role: "r2", Country: "c1", Source: "s1"},
		{Role: "r2", Country: "c1", Source: "s2"},
	}, tasks)
}
