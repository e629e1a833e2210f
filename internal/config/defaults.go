package config

import (
	"strings"

	"jobscout-engine/internal/domain"
)

// Default mirrors the shipped config/config.yml so the engine runs with no
// config file at all.
func Default() Config {
	var cfg Config

	cfg.App.DataDir = "."

	cfg.Search.Roles = []string{"DevOps Engineer", "Site Reliability Engineer"}
	cfg.Search.Countries = []string{"germany", "netherlands", "sweden", "spain", "belgium", "austria"}
	cfg.Search.ResultsPerSite = 50
	cfg.Search.HoursOld = 168 // 7 days
	cfg.Search.JobType = "fulltime"

	cfg.Sites.Priority = []string{"indeed", "glassdoor"}
	cfg.Sites.Secondary = []string{"linkedin-alerts"}

	cfg.Filters.VisaFilter = true
	cfg.Filters.ExclusionFilter = true
	cfg.Filters.VisaKeywords = []string{
		"visa sponsorship",
		"visa",
		"visa support",
		"relocation package",
		"relocation assistance",
		"work permit",
		"sponsorship available",
		"relocation",
	}
	cfg.Filters.ExclusionKeywords = []string{
		"national of an EU member state",
		"EU member state national",
		"EU citizen",
		"European Union citizen",
		"EU citizenship required",
		"must be an EU national",
		"EU passport required",
		"citizenship of an EU country",
		"only EU nationals",
		"restricted to EU citizens",
		"EU/EEA nationals only",
		"EEA nationals only",
		"Swiss nationals only",
	}

	cfg.Gate.Enabled = true
	cfg.Gate.OnlySource = string(domain.SourceGlassdoor)
	cfg.Gate.WaitTimeoutSeconds = 300
	cfg.Gate.PollIntervalSeconds = 2

	cfg.Email.Mailbox = "INBOX"
	cfg.Email.SubjectAny = []string{"job alert", "new jobs for"}
	cfg.Email.MaxEmails = 200

	cfg.Output.Format = "csv"
	cfg.Output.Directory = "results"

	return cfg
}

// EnabledSources resolves the priority/secondary/disabled lists into the
// ordered set of sources the run will query.
func EnabledSources(cfg Config) []domain.SourceID {
	disabled := map[string]bool{}
	for _, s := range cfg.Sites.Disabled {
		disabled[strings.ToLower(strings.TrimSpace(s))] = true
	}

	var out []domain.SourceID
	seen := map[string]bool{}
	for _, s := range append(append([]string{}, cfg.Sites.Priority...), cfg.Sites.Secondary...) {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" || disabled[s] || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, domain.SourceID(s))
	}
	return out
}
