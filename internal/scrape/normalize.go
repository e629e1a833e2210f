package scrape

import (
	"errors"
	"fmt"
	"time"

	"jobscout-engine/internal/domain"
	"jobscout-engine/internal/scrape/types"
	"jobscout-engine/internal/scrape/util"
)

// ErrMalformedResult marks a raw result missing a required field. Such
// results are dropped and counted, never propagated.
var ErrMalformedResult = errors.New("malformed result")

// fieldMapping translates one board's field names into the canonical record.
type fieldMapping struct {
	Title       string
	Company     string
	Location    string
	URL         string
	Description string
	DatePosted  string
	JobType     string
	DateLayouts []string
}

// One mapping per source; unknown sources fall back to canonical names.
var fieldMappings = map[domain.SourceID]fieldMapping{
	domain.SourceIndeed: {
		Title:       "jobTitle",
		Company:     "companyName",
		Location:    "companyLocation",
		URL:         "jobUrl",
		Description: "snippet",
		DatePosted:  "datePosted",
		JobType:     "jobType",
		DateLayouts: []string{time.RFC3339, "2006-01-02"},
	},
	domain.SourceGlassdoor: {
		Title:       "job_title",
		Company:     "employer",
		Location:    "loc",
		URL:         "job_link",
		Description: "job_desc",
		DatePosted:  "posted",
		JobType:     "employment_type",
		DateLayouts: []string{"2006-01-02", time.RFC3339},
	},
	domain.SourceLinkedInAlerts: {
		Title:       "anchor_text",
		Company:     "company",
		Location:    "location",
		URL:         "link",
		Description: "context",
		DatePosted:  "received",
		DateLayouts: []string{time.RFC3339},
	},
}

var defaultMapping = fieldMapping{
	Title:       "title",
	Company:     "company",
	Location:    "location",
	URL:         "url",
	Description: "description",
	DatePosted:  "date_posted",
	JobType:     "job_type",
	DateLayouts: []string{time.RFC3339, "2006-01-02"},
}

func mappingFor(src domain.SourceID) fieldMapping {
	if m, ok := fieldMappings[src]; ok {
		return m
	}
	return defaultMapping
}

// NormalizeResult maps one raw result into the canonical record and stamps
// the search metadata. now becomes ScrapedAt; everything else is a pure
// function of the inputs.
func NormalizeResult(raw types.RawResult, src domain.SourceID, task domain.SearchTask, now time.Time) (domain.JobRecord, error) {
	m := mappingFor(src)

	rawURL := util.CleanText(raw.Get(m.URL))
	title := util.CleanText(raw.Get(m.Title))
	if rawURL == "" {
		return domain.JobRecord{}, fmt.Errorf("%w: missing url", ErrMalformedResult)
	}
	if title == "" {
		return domain.JobRecord{}, fmt.Errorf("%w: missing title", ErrMalformedResult)
	}

	rec := domain.JobRecord{
		Source:        src,
		Title:         title,
		Company:       util.CleanText(raw.Get(m.Company)),
		Location:      util.CleanText(raw.Get(m.Location)),
		JobType:       util.CleanText(raw.Get(m.JobType)),
		URL:           rawURL,
		Description:   raw.Get(m.Description),
		SearchCountry: task.Country,
		SearchRole:    task.Role,
		ScrapedAt:     now,
	}

	if ds := util.CleanText(raw.Get(m.DatePosted)); ds != "" {
		for _, layout := range m.DateLayouts {
			if t, err := time.Parse(layout, ds); err == nil {
				rec.DatePosted = &t
				break
			}
		}
	}

	if rec.Company == "" {
		rec.Company = "Unknown"
	}
	if rec.Location == "" {
		rec.Location = "Unknown"
	}

	return rec, nil
}
