package scrape

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"jobscout-engine/internal/domain"
	"jobscout-engine/internal/scrape/types"
)

var normTask = domain.SearchTask{Role: "DevOps Engineer", Country: "germany", Source: domain.SourceIndeed}

func indeedRaw() types.RawResult {
	return types.RawResult{Fields: map[string]string{
		"jobTitle":        "  DevOps Engineer ",
		"companyName":     "ACME GmbH",
		"companyLocation": "Berlin",
		"jobUrl":          "https://de.indeed.com/viewjob?jk=abc123",
		"snippet":         "We offer visa sponsorship.",
		"datePosted":      "2026-08-20",
	}}
}

func TestNormalizeIndeedMapping(t *testing.T) {
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	rec, err := NormalizeResult(indeedRaw(), domain.SourceIndeed, normTask, now)
	require.NoError(t, err)

	require.Equal(t, domain.SourceIndeed, rec.Source)
	require.Equal(t, "DevOps Engineer", rec.Title)
	require.Equal(t, "ACME GmbH", rec.Company)
	require.Equal(t, "Berlin", rec.Location)
	require.Equal(t, "https://de.indeed.com/viewjob?jk=abc123", rec.URL)
	require.Equal(t, "We offer visa sponsorship.", rec.Description)
	require.Equal(t, "germany", rec.SearchCountry)
	require.Equal(t, "DevOps Engineer", rec.SearchRole)
	require.Equal(t, now, rec.ScrapedAt)
	require.NotNil(t, rec.DatePosted)
	require.Equal(t, "2026-08-20", rec.DatePosted.Format("2006-01-02"))
}

func TestNormalizeIsIdempotent(t *testing.T) {
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	a, err := NormalizeResult(indeedRaw(), domain.SourceIndeed, normTask, now)
	require.NoError(t, err)
	b, err := NormalizeResult(indeedRaw(), domain.SourceIndeed, normTask, now)
	require.NoError(t, err)
	require.Equal(t, a, b)

	// only ScrapedAt moves with the clock
	later, err := NormalizeResult(indeedRaw(), domain.SourceIndeed, normTask, now.Add(time.Hour))
	require.NoError(t, err)
	later.ScrapedAt = now
	require.Equal(t, a, later)
}

func TestNormalizeMissingURLIsMalformed(t *testing.T) {
	raw := indeedRaw()
	delete(raw.Fields, "jobUrl")
	_, err := NormalizeResult(raw, domain.SourceIndeed, normTask, time.Now())
	require.ErrorIs(t, err, ErrMalformedResult)
}

func TestNormalizeMissingTitleIsMalformed(t *testing.T) {
	raw := indeedRaw()
	raw.Fields["jobTitle"] = "   "
	_, err := NormalizeResult(raw, domain.SourceIndeed, normTask, time.Now())
	require.ErrorIs(t, err, ErrMalformedResult)
}

func TestNormalizeDefaultsMissingOptionalFields(t *testing.T) {
	raw := types.RawResult{Fields: map[string]string{
		"jobTitle": "SRE",
		"jobUrl":   "https://de.indeed.com/viewjob?jk=x",
	}}
	rec, err := NormalizeResult(raw, domain.SourceIndeed, normTask, time.Now())
	require.NoError(t, err)
	require.Equal(t, "Unknown", rec.Company)
	require.Equal(t, "Unknown", rec.Location)
	require.Nil(t, rec.DatePosted)
}

func TestNormalizeUnknownSourceUsesCanonicalNames(t *testing.T) {
	raw := types.RawResult{Fields: map[string]string{
		"title": "SRE",
		"url":   "https://boards.example.com/jobs/1",
	}}
	task := domain.SearchTask{Role: "SRE", Country: "sweden", Source: "customboard"}
	rec, err := NormalizeResult(raw, "customboard", task, time.Now())
	require.NoError(t, err)
	require.Equal(t, "SRE", rec.Title)
	require.Equal(t, "https://boards.example.com/jobs/1", rec.URL)
}
