package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		DataDir string `yaml:"data_dir"`
	} `yaml:"app"`

	Search struct {
		Roles          []string `yaml:"roles"`
		Countries      []string `yaml:"countries"`
		ResultsPerSite int      `yaml:"results_per_site"`
		HoursOld       int      `yaml:"hours_old"`
		JobType        string   `yaml:"job_type"`
		Remote         bool     `yaml:"is_remote"`
	} `yaml:"search"`

	Sites struct {
		Priority  []string `yaml:"priority"`
		Secondary []string `yaml:"secondary"`
		Disabled  []string `yaml:"disabled"`
	} `yaml:"sites"`

	Filters struct {
		VisaFilter        bool     `yaml:"visa_filter"`
		ExclusionFilter   bool     `yaml:"exclusion_filter"`
		VisaKeywords      []string `yaml:"visa_keywords"`
		ExclusionKeywords []string `yaml:"exclusion_keywords"`
	} `yaml:"filters"`

	Gate struct {
		Enabled             bool     `yaml:"enabled"`
		OnlySource          string   `yaml:"only_source"`
		WaitTimeoutSeconds  int      `yaml:"wait_timeout_seconds"`
		PollIntervalSeconds int      `yaml:"poll_interval_seconds"`
		Markers             []string `yaml:"markers"`
	} `yaml:"gate"`

	Email struct {
		Enabled    bool     `yaml:"enabled"`
		IMAPHost   string   `yaml:"imap_host"`
		IMAPPort   int      `yaml:"imap_port"`
		Username   string   `yaml:"username"`
		Mailbox    string   `yaml:"mailbox"`
		SubjectAny []string `yaml:"search_subject_any"`
		MaxEmails  int      `yaml:"max_emails"`
	} `yaml:"email"`

	Output struct {
		Format    string `yaml:"format"` // csv | json
		Directory string `yaml:"directory"`
	} `yaml:"output"`
}

// Load reads path over the built-in defaults, so a partial user config only
// overrides what it names.
func Load(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	err = yaml.Unmarshal(b, &cfg)
	return cfg, err
}
