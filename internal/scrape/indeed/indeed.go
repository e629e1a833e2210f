package indeed

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"

	"jobscout-engine/internal/domain"
	"jobscout-engine/internal/scrape/types"
	"jobscout-engine/internal/scrape/util"
)

// Indeed runs per-country sites; searches must hit the right one or results
// come back empty.
var countryHosts = map[string]string{
	"germany":     "de.indeed.com",
	"netherlands": "nl.indeed.com",
	"sweden":      "se.indeed.com",
	"spain":       "es.indeed.com",
	"belgium":     "be.indeed.com",
	"austria":     "at.indeed.com",
	"france":      "fr.indeed.com",
	"usa":         "www.indeed.com",
	"uk":          "uk.indeed.com",
}

type Client struct {
	hc      *http.Client
	limiter *util.HostLimiter

	// hydrate detail pages with at most this many parallel fetches
	hydrateParallel int
}

func New(limiter *util.HostLimiter) *Client {
	return &Client{
		hc:              &http.Client{Timeout: 20 * time.Second},
		limiter:         limiter,
		hydrateParallel: 4,
	}
}

func (c *Client) Name() domain.SourceID { return domain.SourceIndeed }

func (c *Client) Fetch(ctx context.Context, role, country string, p types.FetchParams) ([]types.RawResult, error) {
	host, ok := countryHosts[strings.ToLower(strings.TrimSpace(country))]
	if !ok {
		host = "www.indeed.com"
	}

	searchURL := c.searchURL(host, role, p)
	doc, err := c.get(ctx, searchURL)
	if err != nil {
		return nil, fmt.Errorf("indeed search: %w", err)
	}

	results := parseSearchPage(doc, host)
	if len(results) > p.ResultsPerSource && p.ResultsPerSource > 0 {
		results = results[:p.ResultsPerSource]
	}

	c.hydrate(ctx, results)
	return results, nil
}

func (c *Client) searchURL(host, role string, p types.FetchParams) string {
	q := url.Values{}
	q.Set("q", role)
	if p.MaxAge > 0 {
		days := int(p.MaxAge.Hours() / 24)
		if days < 1 {
			days = 1
		}
		q.Set("fromage", fmt.Sprint(days))
	}
	if p.JobType != "" {
		q.Set("jt", p.JobType)
	}
	if p.Remote {
		q.Set("sc", "0kf:attr(DSQF7);")
	}
	return fmt.Sprintf("https://%s/jobs?%s", host, q.Encode())
}

func (c *Client) get(ctx context.Context, rawURL string) (*goquery.Document, error) {
	if c.limiter != nil {
		if err := c.limiter.WaitURL(ctx, rawURL); err != nil {
			return nil, err
		}
	}

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	req.Header.Set("User-Agent", "Mozilla/5.0")
	req.Header.Set("Accept-Language", "en")

	res, err := c.hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.StatusCode >= 400 {
		return nil, fmt.Errorf("status %d", res.StatusCode)
	}
	return goquery.NewDocumentFromReader(res.Body)
}

// parseSearchPage extracts raw rows from a result page. Indeed renders
// result cards as .job_seen_beacon blocks inside tapItem anchors.
func parseSearchPage(doc *goquery.Document, host string) []types.RawResult {
	var out []types.RawResult
	seen := map[string]bool{}

	doc.Find(".job_seen_beacon, a.tapItem").Each(func(_ int, card *goquery.Selection) {
		href, ok := card.Attr("href")
		if !ok {
			href, _ = card.Find("h2.jobTitle a").Attr("href")
		}
		href = strings.TrimSpace(href)
		if href == "" {
			return
		}
		abs := href
		if strings.HasPrefix(href, "/") {
			abs = "https://" + host + href
		}
		if seen[abs] {
			return
		}
		seen[abs] = true

		title := util.CleanText(card.Find("h2.jobTitle span").First().Text())
		if title == "" {
			title = util.CleanText(card.Find("h2.jobTitle").First().Text())
		}

		out = append(out, types.RawResult{Fields: map[string]string{
			"jobTitle":        title,
			"companyName":     util.CleanText(card.Find("[data-testid=company-name], .companyName").First().Text()),
			"companyLocation": util.CleanText(card.Find("[data-testid=text-location], .companyLocation").First().Text()),
			"jobUrl":          abs,
			"snippet":         util.CleanText(card.Find(".job-snippet, [data-testid=jobsnippet]").First().Text()),
			"datePosted":      util.CleanText(card.Find(".date, [data-testid=myJobsStateDate]").First().Text()),
		}})
	})

	return out
}

// hydrate replaces card snippets with the full posting description so the
// keyword filter sees the same text a reader would.
func (c *Client) hydrate(ctx context.Context, results []types.RawResult) {
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.hydrateParallel)

	for i := range results {
		i := i
		g.Go(func() error {
			jobURL := results[i].Get("jobUrl")
			doc, err := c.get(gctx, jobURL)
			if err != nil {
				return nil // keep the snippet; don't fail the batch
			}
			desc := util.CleanText(doc.Find("#jobDescriptionText").First().Text())
			if desc == "" {
				return nil
			}
			mu.Lock()
			results[i].Fields["snippet"] = desc
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
}
