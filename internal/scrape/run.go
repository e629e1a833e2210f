package scrape

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"jobscout-engine/internal/domain"
	"jobscout-engine/internal/events"
	"jobscout-engine/internal/gate"
	"jobscout-engine/internal/scrape/types"
	"jobscout-engine/internal/store"
)

// Runner drives the whole aggregation run: expands the search plan, clears
// the access gate for protected sources, fetches, and threads every raw
// result through normalize → filter → dedup.
type Runner struct {
	Clients map[domain.SourceID]types.SourceClient
	Gate    *gate.Gate
	Policy  FilterPolicy
	Params  types.FetchParams

	// FetchTimeout bounds one source client call. Zero means 2 minutes.
	FetchTimeout time.Duration

	// Archive persists accepted records across runs. Optional.
	Archive *store.DB

	// Hub receives progress events. Optional.
	Hub *events.Hub
}

type RunResult struct {
	Records  []domain.JobRecord // accepted, unique
	Rejected []domain.JobRecord // failed the keyword filter (for the unfiltered fallback file)
	Stats    *domain.RunStatistics
}

// Run processes every task sequentially. Task-level failures are counted
// and skipped; only a cancelled context ends the run early, and partial
// results up to the last completed task remain valid.
func (r *Runner) Run(ctx context.Context, roles, countries []string, sources []domain.SourceID) (*RunResult, error) {
	tasks := BuildTasks(roles, countries, sources)
	stats := domain.NewRunStatistics()
	dedup := NewDeduplicator()
	res := &RunResult{Stats: stats}

	if err := r.preflightGate(ctx, sources); err != nil {
		return nil, err
	}

	log.Printf("[run] starting tasks=%d roles=%d countries=%d sources=%d",
		len(tasks), len(roles), len(countries), len(sources))

	for i, task := range tasks {
		if ctx.Err() != nil {
			log.Printf("[run] aborted after %d/%d tasks: %v", i, len(tasks), ctx.Err())
			break
		}

		r.publish("task_started", map[string]any{
			"n": i + 1, "total": len(tasks),
			"role": task.Role, "country": task.Country, "source": task.Source,
		})

		if err := r.Gate.EnsureAccessible(ctx, task.Source); err != nil {
			reason := "challenge_timeout"
			if errors.Is(err, gate.ErrGateUnavailable) {
				reason = "gate_unavailable"
			} else if ctx.Err() != nil {
				break
			}
			log.Printf("[run:%s] gate: %v role=%q country=%q", task.Source, err, task.Role, task.Country)
			stats.Fail(task, reason)
			continue
		}

		raws, err := r.fetch(ctx, task)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			log.Printf("[run:%s] fetch error: %v role=%q country=%q", task.Source, err, task.Role, task.Country)
			stats.Fail(task, "fetch_error")
			continue
		}

		stats.TotalFetched += len(raws)
		accepted := 0
		for _, raw := range raws {
			rec, err := NormalizeResult(raw, task.Source, task, time.Now().UTC())
			if err != nil {
				stats.Malformed++
				continue
			}

			rec, keep, why := r.Policy.Apply(rec)
			if !keep {
				stats.TotalFiltered++
				rec.Note = "filtered: " + why
				res.Rejected = append(res.Rejected, rec)
				continue
			}

			if !dedup.Accept(rec.URL) {
				stats.TotalDeduplicated++
				continue
			}

			res.Records = append(res.Records, rec)
			stats.PerSource[rec.Source]++
			stats.PerCountry[rec.SearchCountry]++
			accepted++

			r.archive(ctx, rec)
			r.publish("job_accepted", map[string]any{
				"source": rec.Source, "title": rec.Title, "company": rec.Company, "url": rec.URL,
			})
		}

		log.Printf("[run:%s] role=%q country=%q fetched=%d accepted=%d",
			task.Source, task.Role, task.Country, len(raws), accepted)
	}

	log.Printf("[run] done accepted=%d fetched=%d filtered=%d deduped=%d malformed=%d failures=%d",
		stats.Accepted(), stats.TotalFetched, stats.TotalFiltered,
		stats.TotalDeduplicated, stats.Malformed, len(stats.Failures))

	return res, nil
}

// preflightGate launches the browser before the first task when the plan
// contains gated sources, so an unusable gate surfaces as a run
// initialization failure unless ungated sources can still make progress.
func (r *Runner) preflightGate(ctx context.Context, sources []domain.SourceID) error {
	gated, ungated := 0, 0
	for _, src := range sources {
		if r.Gate.Gated(src) {
			gated++
		} else {
			ungated++
		}
	}
	if gated == 0 {
		return nil
	}

	if err := r.Gate.Open(ctx); err != nil {
		if ungated == 0 {
			return fmt.Errorf("run init: %w", err)
		}
		log.Printf("[run] gate unavailable, gated sources will be skipped: %v", err)
	}
	return nil
}

func (r *Runner) fetch(ctx context.Context, task domain.SearchTask) ([]types.RawResult, error) {
	client, ok := r.Clients[task.Source]
	if !ok {
		return nil, fmt.Errorf("no client for source %q", task.Source)
	}

	timeout := r.FetchTimeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	fctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	return client.Fetch(fctx, task.Role, task.Country, r.Params)
}

func (r *Runner) archive(ctx context.Context, rec domain.JobRecord) {
	if r.Archive == nil {
		return
	}
	if _, err := store.InsertIfNew(ctx, r.Archive.Pool, rec); err != nil {
		log.Printf("[archive] insert error url=%q err=%v", rec.URL, err)
	}
}

func (r *Runner) publish(typ string, data any) {
	if r.Hub == nil {
		return
	}
	r.Hub.Publish(events.MakeEvent(typ, data))
}
