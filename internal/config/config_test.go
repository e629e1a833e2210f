package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"jobscout-engine/internal/domain"
)

func TestDefaultConfigValidates(t *testing.T) {
	_, res := NormalizeAndValidate(Default())
	require.True(t, res.OK(), "defaults must validate: %v", res.Errors)
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
search:
  roles: ["Platform Engineer"]
output:
  format: json
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, []string{"Platform Engineer"}, cfg.Search.Roles)
	require.Equal(t, "json", cfg.Output.Format)
	// untouched sections keep their defaults
	require.Equal(t, Default().Search.Countries, cfg.Search.Countries)
	require.Equal(t, 50, cfg.Search.ResultsPerSite)
	require.True(t, cfg.Gate.Enabled)
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yml"))
	require.Error(t, err)
	require.Equal(t, Default().Search.Roles, cfg.Search.Roles)
}

func TestEnabledSourcesOrderAndDisabled(t *testing.T) {
	cfg := Default()
	require.Equal(t,
		[]domain.SourceID{domain.SourceIndeed, domain.SourceGlassdoor, domain.SourceLinkedInAlerts},
		EnabledSources(cfg))

	cfg.Sites.Disabled = []string{" Glassdoor "}
	require.Equal(t,
		[]domain.SourceID{domain.SourceIndeed, domain.SourceLinkedInAlerts},
		EnabledSources(cfg))
}

func TestEnabledSourcesDeduplicates(t *testing.T) {
	var cfg Config
	cfg.Sites.Priority = []string{"indeed", "indeed"}
	cfg.Sites.Secondary = []string{"Indeed", "glassdoor"}
	require.Equal(t,
		[]domain.SourceID{domain.SourceIndeed, domain.SourceGlassdoor},
		EnabledSources(cfg))
}

func TestValidateCatchesEmptyPlan(t *testing.T) {
	cfg := Default()
	cfg.Search.Roles = nil
	cfg.Search.Countries = []string{"  "}
	cfg.Search.ResultsPerSite = 0

	_, res := NormalizeAndValidate(cfg)
	require.False(t, res.OK())
	require.Len(t, res.Errors, 3)
}

func TestValidateAllSitesDisabled(t *testing.T) {
	cfg := Default()
	cfg.Sites.Disabled = append(cfg.Sites.Priority, cfg.Sites.Secondary...)

	_, res := NormalizeAndValidate(cfg)
	require.False(t, res.OK())
	require.Contains(t, res.Errors[0], "no sites enabled")
}

func TestValidateVisaFilterNeedsKeywords(t *testing.T) {
	cfg := Default()
	cfg.Filters.VisaKeywords = nil

	_, res := NormalizeAndValidate(cfg)
	require.False(t, res.OK())
}

func TestValidateGateIntervals(t *testing.T) {
	cfg := Default()
	cfg.Gate.WaitTimeoutSeconds = 2
	cfg.Gate.PollIntervalSeconds = 5

	_, res := NormalizeAndValidate(cfg)
	require.False(t, res.OK())

	cfg.Gate.Enabled = false
	_, res = NormalizeAndValidate(cfg)
	require.True(t, res.OK(), "gate values are ignored when the gate is off")
}

func TestValidateEmailSection(t *testing.T) {
	cfg := Default()
	cfg.Email.Enabled = true

	_, res := NormalizeAndValidate(cfg)
	require.False(t, res.OK(), "enabled email needs host and username")

	cfg.Email.IMAPHost = "imap.example.com"
	cfg.Email.Username = "user@example.com"
	_, res = NormalizeAndValidate(cfg)
	require.True(t, res.OK())
}

func TestValidateWarningsDoNotFail(t *testing.T) {
	cfg := Default()
	cfg.Output.Format = "parquet"
	cfg.Sites.Disabled = []string{"indeed"}

	_, res := NormalizeAndValidate(cfg)
	require.True(t, res.OK())
	require.Len(t, res.Warnings, 2)
}

func TestNormalizeTrimsAndDeduplicatesLists(t *testing.T) {
	cfg := Default()
	cfg.Search.Roles = []string{" DevOps Engineer ", "devops engineer", "", "SRE"}

	out, res := NormalizeAndValidate(cfg)
	require.True(t, res.OK())
	require.Equal(t, []string{"DevOps Engineer", "SRE"}, out.Search.Roles)
}
