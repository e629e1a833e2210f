package config

import (
	"fmt"
	"strings"
)

type Validation struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (v *Validation) addErr(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}
func (v *Validation) addWarn(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}
func (v Validation) OK() bool { return len(v.Errors) == 0 }

// NormalizeAndValidate trims list entries and checks the config for values
// that would make the run useless or surprising.
func NormalizeAndValidate(cfg Config) (Config, Validation) {
	var out = cfg
	var res Validation

	trimList := func(xs []string) []string {
		seen := map[string]bool{}
		var ys []string
		for _, x := range xs {
			x = strings.TrimSpace(x)
			if x == "" {
				continue
			}
			key := strings.ToLower(x)
			if seen[key] {
				continue
			}
			seen[key] = true
			ys = append(ys, x)
		}
		return ys
	}

	out.Search.Roles = trimList(out.Search.Roles)
	out.Search.Countries = trimList(out.Search.Countries)
	out.Sites.Priority = trimList(out.Sites.Priority)
	out.Sites.Secondary = trimList(out.Sites.Secondary)
	out.Sites.Disabled = trimList(out.Sites.Disabled)
	out.Filters.VisaKeywords = trimList(out.Filters.VisaKeywords)
	out.Filters.ExclusionKeywords = trimList(out.Filters.ExclusionKeywords)
	out.Email.SubjectAny = trimList(out.Email.SubjectAny)

	// ---- Validation rules ----

	if len(out.Search.Roles) == 0 {
		res.addErr("search.roles is empty; nothing to search for")
	}
	if len(out.Search.Countries) == 0 {
		res.addErr("search.countries is empty; nowhere to search")
	}
	if out.Search.ResultsPerSite <= 0 {
		res.addErr("search.results_per_site must be > 0")
	}
	if out.Search.HoursOld <= 0 {
		res.addErr("search.hours_old must be > 0")
	}

	if len(EnabledSources(out)) == 0 {
		res.addErr("no sites enabled after applying sites.disabled")
	}

	if out.Filters.VisaFilter && len(out.Filters.VisaKeywords) == 0 {
		res.addErr("filters.visa_filter is on but filters.visa_keywords is empty; every job would be rejected")
	}
	if out.Filters.ExclusionFilter && len(out.Filters.ExclusionKeywords) == 0 {
		res.addWarn("filters.exclusion_filter is on but filters.exclusion_keywords is empty; it will match nothing.")
	}

	if out.Gate.Enabled {
		if out.Gate.WaitTimeoutSeconds <= 0 {
			res.addErr("gate.wait_timeout_seconds must be > 0")
		}
		if out.Gate.PollIntervalSeconds <= 0 {
			res.addErr("gate.poll_interval_seconds must be > 0")
		}
		if out.Gate.PollIntervalSeconds > 0 && out.Gate.WaitTimeoutSeconds > 0 &&
			out.Gate.PollIntervalSeconds >= out.Gate.WaitTimeoutSeconds {
			res.addErr("gate.poll_interval_seconds must be smaller than gate.wait_timeout_seconds")
		}
	}

	if out.Email.Enabled {
		if strings.TrimSpace(out.Email.IMAPHost) == "" {
			res.addErr("email.imap_host is required when email.enabled=true")
		}
		if strings.TrimSpace(out.Email.Username) == "" {
			res.addErr("email.username is required when email.enabled=true")
		}
		if strings.TrimSpace(out.Email.Mailbox) == "" {
			res.addErr("email.mailbox is required when email.enabled=true")
		}
		if len(out.Email.SubjectAny) == 0 {
			res.addWarn("email.search_subject_any is empty; the digest source may find nothing.")
		}
	}

	switch strings.ToLower(strings.TrimSpace(out.Output.Format)) {
	case "", "csv", "json":
	default:
		res.addWarn("output.format %q is unknown; falling back to csv", out.Output.Format)
	}

	// simple conflict check
	disabledSet := map[string]bool{}
	for _, d := range out.Sites.Disabled {
		disabledSet[strings.ToLower(d)] = true
	}
	for _, p := range out.Sites.Priority {
		if disabledSet[strings.ToLower(p)] {
			res.addWarn("site appears in both priority and disabled: %q", p)
		}
	}

	return out, res
}
