package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"jobscout-engine/internal/config"
	"jobscout-engine/internal/domain"
	"jobscout-engine/internal/events"
	"jobscout-engine/internal/output"
	"jobscout-engine/internal/scrape"
)

// startEventJournal drains run progress events into an ndjson file next to
// the archive so a run can be replayed after the fact.
func startEventJournal(hub *events.Hub, path string) (stop func()) {
	f, err := os.Create(path)
	if err != nil {
		log.Printf("[events] journal disabled: %v", err)
		return func() {}
	}

	ch := hub.Subscribe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for evt := range ch {
			fmt.Fprintln(f, evt)
		}
	}()

	return func() {
		hub.Unsubscribe(ch)
		<-done
		_ = f.Close()
	}
}

func writeOutputs(cfg config.Config, outPath string, res *scrape.RunResult) error {
	if len(res.Records) == 0 && len(res.Rejected) == 0 {
		log.Printf("[output] no jobs found, nothing to write")
		return nil
	}

	format := strings.ToLower(strings.TrimSpace(cfg.Output.Format))
	if format != "json" {
		format = "csv"
	}

	outDir := cfg.Output.Directory
	if outDir == "" {
		outDir = "results"
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}

	now := time.Now()
	pathFor := func(suffix string) string {
		if outPath != "" {
			if suffix == "" {
				return outPath
			}
			ext := filepath.Ext(outPath)
			return strings.TrimSuffix(outPath, ext) + suffix + ext
		}
		return filepath.Join(outDir, output.TimestampedName("jobs", suffix, format, now))
	}

	write := func(path string, recs []domain.JobRecord) error {
		if format == "json" {
			return output.WriteJSON(path, recs)
		}
		return output.WriteCSV(path, recs)
	}

	// Everything was filtered out: save what we fetched anyway, flagged
	// for manual review, instead of producing an empty file.
	if len(res.Records) == 0 {
		log.Printf("[output] no jobs matched the keyword filters; saving %d unfiltered jobs for review", len(res.Rejected))
		return write(pathFor("_unfiltered"), res.Rejected)
	}

	mainPath := pathFor("")
	if err := write(mainPath, res.Records); err != nil {
		return err
	}
	log.Printf("[output] %d jobs written to %s", len(res.Records), mainPath)

	// Per-source splits only when more than one source contributed.
	bySource := output.SplitBySource(res.Records)
	if len(bySource) > 1 {
		for src, recs := range bySource {
			p := pathFor("_" + string(src))
			if err := write(p, recs); err != nil {
				return err
			}
			log.Printf("[output] %s: %d jobs written to %s", src, len(recs), p)
		}
	}
	return nil
}

func printSummary(stats *domain.RunStatistics) {
	fmt.Println(strings.Repeat("=", 60))
	fmt.Println("RUN STATISTICS")
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("Total fetched:      %d\n", stats.TotalFetched)
	fmt.Printf("Accepted:           %d\n", stats.Accepted())
	fmt.Printf("Filtered out:       %d\n", stats.TotalFiltered)
	fmt.Printf("Duplicates removed: %d\n", stats.TotalDeduplicated)
	fmt.Printf("Malformed dropped:  %d\n", stats.Malformed)

	if len(stats.PerSource) > 0 {
		fmt.Println("\nBy source:")
		for _, kv := range sortedCounts(sourceCounts(stats.PerSource)) {
			fmt.Printf("  %-18s %d\n", kv.key, kv.n)
		}
	}
	if len(stats.PerCountry) > 0 {
		fmt.Println("\nBy country:")
		for _, kv := range sortedCounts(stats.PerCountry) {
			fmt.Printf("  %-18s %d\n", kv.key, kv.n)
		}
	}

	if len(stats.Failures) > 0 {
		fmt.Printf("\nFailed tasks (%d):\n", len(stats.Failures))
		for _, f := range stats.Failures {
			fmt.Printf("  %s / %s / %s: %s\n", f.Task.Source, f.Task.Country, f.Task.Role, f.Reason)
		}
	}
	fmt.Println(strings.Repeat("=", 60))
}

type countPair struct {
	key string
	n   int
}

func sortedCounts(m map[string]int) []countPair {
	out := make([]countPair, 0, len(m))
	for k, n := range m {
		out = append(out, countPair{k, n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].n != out[j].n {
			return out[i].n > out[j].n
		}
		return out[i].key < out[j].key
	})
	return out
}

func sourceCounts(m map[domain.SourceID]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, n := range m {
		out[string(k)] = n
	}
	return out
}
