package gate

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
)

// Challenge interstitials we can recognize without solving anything.
var DefaultChallengeMarkers = []string{
	"just a moment",
	"challenge-platform",
	"cf-chl",
	"verify you are human",
	"checking your browser",
}

// ChromeBrowser drives a visible Chrome window via chromedp. Headless is
// deliberately off: the whole point is letting the operator click through
// the challenge while we watch the page.
type ChromeBrowser struct {
	markers     []string
	userDataDir string

	ctx         context.Context
	cancelCtx   context.CancelFunc
	cancelAlloc context.CancelFunc
}

func NewChromeBrowser(markers []string, userDataDir string) *ChromeBrowser {
	if len(markers) == 0 {
		markers = DefaultChallengeMarkers
	}
	return &ChromeBrowser{markers: markers, userDataDir: userDataDir}
}

func (b *ChromeBrowser) Open(ctx context.Context) error {
	if b.ctx != nil {
		return nil
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", false),
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
	)
	if b.userDataDir != "" {
		opts = append(opts, chromedp.UserDataDir(b.userDataDir))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	bctx, cancelCtx := chromedp.NewContext(allocCtx)

	// Start the browser now so launch failures surface here, not on the
	// first navigation.
	startCtx, cancel := context.WithTimeout(bctx, 30*time.Second)
	defer cancel()
	if err := chromedp.Run(startCtx, chromedp.Navigate("about:blank")); err != nil {
		cancelCtx()
		cancelAlloc()
		return err
	}

	b.ctx = bctx
	b.cancelCtx = cancelCtx
	b.cancelAlloc = cancelAlloc
	return nil
}

func (b *ChromeBrowser) Navigate(ctx context.Context, url string) error {
	if b.ctx == nil {
		return errors.New("browser not open")
	}
	navCtx, cancel := context.WithTimeout(b.ctx, 45*time.Second)
	defer cancel()
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-navCtx.Done():
		}
	}()
	return chromedp.Run(navCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
}

func (b *ChromeBrowser) ChallengePresent(ctx context.Context) (bool, error) {
	if b.ctx == nil {
		return false, errors.New("browser not open")
	}
	inspectCtx, cancel := context.WithTimeout(b.ctx, 15*time.Second)
	defer cancel()

	var title, html string
	err := chromedp.Run(inspectCtx,
		chromedp.Title(&title),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return false, err
	}

	blob := strings.ToLower(title + " " + html)
	for _, m := range b.markers {
		if strings.Contains(blob, strings.ToLower(m)) {
			return true, nil
		}
	}
	return false, nil
}

func (b *ChromeBrowser) Close() error {
	if b.ctx == nil {
		return nil
	}
	b.cancelCtx()
	b.cancelAlloc()
	b.ctx = nil
	return nil
}
