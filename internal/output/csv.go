package output

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"
	"time"

	"jobscout-engine/internal/domain"
)

// csvHeader mirrors the column order people actually read the sheet in.
// Description is dropped on purpose: multi-kilobyte markdown blobs wreck
// spreadsheet imports.
var csvHeader = []string{
	"source", "title", "company", "location", "date_posted", "job_type",
	"url", "search_country", "search_role", "visa_mentioned", "note",
}

func WriteCSV(path string, recs []domain.JobRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range recs {
		datePosted := ""
		if r.DatePosted != nil {
			datePosted = r.DatePosted.Format("2006-01-02")
		}
		row := []string{
			string(r.Source), r.Title, r.Company, r.Location, datePosted, r.JobType,
			r.URL, r.SearchCountry, r.SearchRole, fmt.Sprint(r.VisaMentioned), r.Note,
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// SplitBySource groups records preserving their order within each source.
func SplitBySource(recs []domain.JobRecord) map[domain.SourceID][]domain.JobRecord {
	out := make(map[domain.SourceID][]domain.JobRecord)
	for _, r := range recs {
		out[r.Source] = append(out[r.Source], r)
	}
	return out
}

// TimestampedName renders the results filename pattern, e.g.
// jobs_20260102_150405.csv.
func TimestampedName(prefix, suffix, ext string, now time.Time) string {
	name := fmt.Sprintf("%s_%s", prefix, now.Format("20060102_150405"))
	if suffix != "" {
		name += suffix
	}
	return name + "." + strings.TrimPrefix(ext, ".")
}
