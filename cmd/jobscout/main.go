package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gofrs/flock"

	"jobscout-engine/internal/config"
	"jobscout-engine/internal/domain"
	"jobscout-engine/internal/events"
	"jobscout-engine/internal/gate"
	"jobscout-engine/internal/scrape"
	"jobscout-engine/internal/scrape/emaildigest"
	"jobscout-engine/internal/scrape/glassdoor"
	"jobscout-engine/internal/scrape/indeed"
	"jobscout-engine/internal/scrape/types"
	"jobscout-engine/internal/scrape/util"
	"jobscout-engine/internal/secrets"
	"jobscout-engine/internal/store"
)

func main() {
	var (
		cfgPath      = flag.String("config", "", "path to config YAML (defaults to <data-dir>/config.yml)")
		dataDir      = flag.String("data-dir", "", "engine data directory (default $JOBSCOUT_DATA_DIR or .)")
		roles        = flag.String("roles", "", "comma-separated job roles (overrides config)")
		countries    = flag.String("countries", "", "comma-separated countries (overrides config)")
		excludeSites = flag.String("exclude-sites", "", "comma-separated sites to disable (overrides config)")
		results      = flag.Int("results", 0, "results per site (overrides config)")
		days         = flag.Int("days", 0, "max job age in days (overrides config)")
		noVisaFilter = flag.Bool("no-visa-filter", false, "disable the visa sponsorship filter")
		outPath      = flag.String("o", "", "output file path (default <output.directory>/jobs_<timestamp>.<ext>)")
		format       = flag.String("format", "", "output format: csv or json (overrides config)")
	)
	flag.Parse()

	dir := *dataDir
	if dir == "" {
		dir = os.Getenv("JOBSCOUT_DATA_DIR")
	}
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Fatal(err)
	}

	// One engine per data dir: the browser session and the archive don't
	// tolerate a second writer.
	runLock := flock.New(filepath.Join(dir, "jobscout.lock"))
	locked, err := runLock.TryLock()
	if err != nil {
		log.Fatalf("run lock: %v", err)
	}
	if !locked {
		log.Fatalf("another jobscout instance is already running in %s", dir)
	}
	defer func() { _ = runLock.Unlock() }()

	userCfgPath := *cfgPath
	if userCfgPath == "" {
		userCfgPath, err = config.EnsureUserConfig(dir, filepath.Join("config", "config.yml"))
		if err != nil {
			log.Fatalf("config bootstrap failed: %v", err)
		}
	}

	cfg, err := config.Load(userCfgPath)
	if err != nil {
		log.Fatalf("config load failed (%s): %v", userCfgPath, err)
	}
	applyFlagOverrides(&cfg, *roles, *countries, *excludeSites, *results, *days, *noVisaFilter, *format)

	cfg, validation := config.NormalizeAndValidate(cfg)
	for _, w := range validation.Warnings {
		log.Printf("[config] warning: %s", w)
	}
	if !validation.OK() {
		for _, e := range validation.Errors {
			log.Printf("[config] error: %s", e)
		}
		log.Fatalf("config invalid (%d errors)", len(validation.Errors))
	}

	db, err := store.Open(filepath.Join(dir, "jobscout.db"))
	if err != nil {
		log.Fatalf("open archive: %v", err)
	}
	defer db.Close()
	if err := store.Migrate(db.Pool); err != nil {
		log.Fatalf("migrate archive: %v", err)
	}
	if n, err := store.CleanupOldJobs(db.Pool); err != nil {
		log.Printf("[archive] cleanup: %v", err)
	} else if n > 0 {
		log.Printf("[archive] dropped %d stale rows", n)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sources := config.EnabledSources(cfg)
	limiter := util.NewHostLimiter(1.0, 2)
	clients, sources := buildClients(cfg, sources, limiter)

	// Fresh profile each run: cookie persistence across restarts is
	// deliberately not supported.
	browser := gate.NewChromeBrowser(cfg.Gate.Markers, "")
	g := gate.New(gate.Config{
		Enabled:    cfg.Gate.Enabled,
		OnlySource: domain.SourceID(cfg.Gate.OnlySource),
		ProbeURLs: map[domain.SourceID]string{
			domain.SourceGlassdoor: glassdoor.ProbeURL,
		},
		WaitTimeout:  time.Duration(cfg.Gate.WaitTimeoutSeconds) * time.Second,
		PollInterval: time.Duration(cfg.Gate.PollIntervalSeconds) * time.Second,
	}, browser)
	defer func() {
		if err := g.Close(); err != nil {
			log.Printf("[gate] close: %v", err)
		}
	}()

	hub := events.NewHub()
	stopJournal := startEventJournal(hub, filepath.Join(dir, "run_events.ndjson"))
	defer stopJournal()

	runner := &scrape.Runner{
		Clients: clients,
		Gate:    g,
		Policy: scrape.FilterPolicy{
			InclusionKeywords: cfg.Filters.VisaKeywords,
			ExclusionKeywords: cfg.Filters.ExclusionKeywords,
			RequireInclusion:  cfg.Filters.VisaFilter,
			ApplyExclusion:    cfg.Filters.ExclusionFilter,
		},
		Params: types.FetchParams{
			ResultsPerSource: cfg.Search.ResultsPerSite,
			MaxAge:           time.Duration(cfg.Search.HoursOld) * time.Hour,
			JobType:          cfg.Search.JobType,
			Remote:           cfg.Search.Remote,
		},
		Archive: db,
		Hub:     hub,
	}

	res, err := runner.Run(ctx, cfg.Search.Roles, cfg.Search.Countries, sources)
	if err != nil {
		log.Fatalf("run failed: %v", err)
	}

	if err := writeOutputs(cfg, *outPath, res); err != nil {
		log.Fatalf("write outputs: %v", err)
	}
	printSummary(res.Stats)
}

func applyFlagOverrides(cfg *config.Config, roles, countries, excludeSites string, results, days int, noVisaFilter bool, format string) {
	if roles != "" {
		cfg.Search.Roles = splitList(roles)
	}
	if countries != "" {
		cfg.Search.Countries = lowerAll(splitList(countries))
	}
	if excludeSites != "" {
		cfg.Sites.Disabled = lowerAll(splitList(excludeSites))
	}
	if results > 0 {
		cfg.Search.ResultsPerSite = results
	}
	if days > 0 {
		cfg.Search.HoursOld = days * 24
	}
	if noVisaFilter {
		cfg.Filters.VisaFilter = false
	}
	if format != "" {
		cfg.Output.Format = format
	}
}

// buildClients constructs a source client per enabled source, dropping
// sources that cannot run (e.g. the email digest without credentials).
func buildClients(cfg config.Config, sources []domain.SourceID, limiter *util.HostLimiter) (map[domain.SourceID]types.SourceClient, []domain.SourceID) {
	clients := make(map[domain.SourceID]types.SourceClient)
	var usable []domain.SourceID

	for _, src := range sources {
		switch src {
		case domain.SourceIndeed:
			clients[src] = indeed.New(limiter)
		case domain.SourceGlassdoor:
			clients[src] = glassdoor.New(limiter)
		case domain.SourceLinkedInAlerts:
			if !cfg.Email.Enabled {
				log.Printf("[config] site %q listed but email.enabled=false; skipping", src)
				continue
			}
			pw, err := secrets.GetIMAPPassword(secrets.IMAPKeyringAccount(cfg))
			if err != nil {
				log.Printf("[config] site %q skipped: %v", src, err)
				continue
			}
			clients[src] = emaildigest.New(emaildigest.Config{
				IMAPHost:   cfg.Email.IMAPHost,
				IMAPPort:   cfg.Email.IMAPPort,
				Username:   cfg.Email.Username,
				Password:   pw,
				Mailbox:    cfg.Email.Mailbox,
				SubjectAny: cfg.Email.SubjectAny,
				MaxEmails:  cfg.Email.MaxEmails,
			})
		default:
			log.Printf("[config] unknown site %q; skipping", src)
			continue
		}
		usable = append(usable, src)
	}

	return clients, usable
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func lowerAll(xs []string) []string {
	for i := range xs {
		xs[i] = strings.ToLower(xs[i])
	}
	return xs
}
