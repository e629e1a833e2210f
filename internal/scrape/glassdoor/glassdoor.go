package glassdoor

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"jobscout-engine/internal/domain"
	"jobscout-engine/internal/scrape/types"
	"jobscout-engine/internal/scrape/util"
)

// ProbeURL is what the access gate navigates to before this client is
// allowed to query: Glassdoor sits behind a bot challenge.
const ProbeURL = "https://www.glassdoor.com/Job/index.htm"

type Client struct {
	hc      *http.Client
	limiter *util.HostLimiter
}

func New(limiter *util.HostLimiter) *Client {
	return &Client{
		hc:      &http.Client{Timeout: 20 * time.Second},
		limiter: limiter,
	}
}

func (c *Client) Name() domain.SourceID { return domain.SourceGlassdoor }

func (c *Client) Fetch(ctx context.Context, role, country string, p types.FetchParams) ([]types.RawResult, error) {
	q := url.Values{}
	q.Set("sc.keyword", role)
	q.Set("locKeyword", country)
	q.Set("locT", "N") // nation-level location
	if p.MaxAge > 0 {
		days := int(p.MaxAge.Hours() / 24)
		if days < 1 {
			days = 1
		}
		q.Set("fromAge", fmt.Sprint(days))
	}

	searchURL := "https://www.glassdoor.com/Job/jobs.htm?" + q.Encode()

	if c.limiter != nil {
		if err := c.limiter.WaitURL(ctx, searchURL); err != nil {
			return nil, err
		}
	}

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	req.Header.Set("User-Agent", "Mozilla/5.0")
	req.Header.Set("Accept-Language", "en")

	res, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("glassdoor search: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode >= 400 {
		return nil, fmt.Errorf("glassdoor search status %d", res.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(res.Body)
	if err != nil {
		return nil, fmt.Errorf("glassdoor parse: %w", err)
	}

	results := parseListings(doc)
	if p.ResultsPerSource > 0 && len(results) > p.ResultsPerSource {
		results = results[:p.ResultsPerSource]
	}
	return results, nil
}

func parseListings(doc *goquery.Document) []types.RawResult {
	var out []types.RawResult
	seen := map[string]bool{}

	doc.Find("li[data-test=jobListing], li.react-job-listing").Each(func(_ int, li *goquery.Selection) {
		a := li.Find("a[data-test=job-link], a.jobLink").First()
		href, ok := a.Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			return
		}
		abs := strings.TrimSpace(href)
		if strings.HasPrefix(abs, "/") {
			abs = "https://www.glassdoor.com" + abs
		}
		if seen[abs] {
			return
		}
		seen[abs] = true

		out = append(out, types.RawResult{Fields: map[string]string{
			"job_title": util.CleanText(a.Text()),
			"employer":  util.CleanText(li.Find("[data-test=employer-name], .jobEmpolyerName").First().Text()),
			"loc":       util.CleanText(li.Find("[data-test=emp-location], .jobLocation").First().Text()),
			"job_link":  abs,
			"job_desc":  util.CleanText(li.Find("[data-test=descSnippet], .jobDescriptionContent").First().Text()),
			"posted":    util.CleanText(li.Find("[data-test=job-age]").First().Text()),
		}})
	})

	return out
}
