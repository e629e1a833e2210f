package emaildigest

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"

	"jobscout-engine/internal/domain"
	"jobscout-engine/internal/scrape/types"
)

// Config for the job-alert digest mailbox.
type Config struct {
	IMAPHost   string
	IMAPPort   int
	Username   string
	Password   string
	Mailbox    string
	SubjectAny []string
	MaxEmails  int
}

// Client turns LinkedIn job-alert digest emails into raw results. Digests
// are not query-specific, so one mailbox sweep serves every task in the
// run; the aggregation pipeline dedupes the repeats.
type Client struct {
	cfg Config

	mu      sync.Mutex
	fetched bool
	cached  []types.RawResult
}

func New(cfg Config) *Client {
	if cfg.Mailbox == "" {
		cfg.Mailbox = "INBOX"
	}
	if cfg.MaxEmails <= 0 {
		cfg.MaxEmails = 200
	}
	return &Client{cfg: cfg}
}

func (c *Client) Name() domain.SourceID { return domain.SourceLinkedInAlerts }

func (c *Client) Fetch(ctx context.Context, role, country string, p types.FetchParams) ([]types.RawResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.fetched {
		return c.cached, nil
	}

	results, err := c.sweep(ctx, p)
	if err != nil {
		return nil, err
	}
	c.fetched = true
	c.cached = results
	return results, nil
}

func (c *Client) sweep(ctx context.Context, p types.FetchParams) ([]types.RawResult, error) {
	if c.cfg.IMAPHost == "" || c.cfg.Username == "" {
		return nil, errors.New("email digest enabled but missing imap_host/username")
	}
	if c.cfg.Password == "" {
		return nil, errors.New("missing email password (store it in the OS keychain)")
	}

	addr := c.cfg.IMAPHost
	if c.cfg.IMAPPort != 0 && !strings.Contains(addr, ":") {
		addr = fmt.Sprintf("%s:%d", addr, c.cfg.IMAPPort)
	} else if !strings.Contains(addr, ":") {
		addr += ":993"
	}

	cl, err := dialAndLogin(ctx, addr, c.cfg.Username, c.cfg.Password)
	if err != nil {
		return nil, err
	}
	defer logoutAndClose(cl)

	if _, err := cl.Select(c.cfg.Mailbox, &imap.SelectOptions{ReadOnly: false}).Wait(); err != nil {
		return nil, fmt.Errorf("imap select %s: %w", c.cfg.Mailbox, err)
	}

	cutoff := time.Now().Add(-p.MaxAge)
	if p.MaxAge <= 0 {
		cutoff = time.Now().AddDate(0, 0, -7)
	}

	criteria := &imap.SearchCriteria{
		NotFlag: []imap.Flag{imap.FlagSeen},
		Since:   cutoff,
	}
	searchData, err := cl.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("imap uid search: %w", err)
	}

	uids := searchData.AllUIDs()
	if len(uids) == 0 {
		return nil, nil
	}
	if len(uids) > c.cfg.MaxEmails {
		uids = uids[len(uids)-c.cfg.MaxEmails:]
	}

	bodyAll := &imap.FetchItemBodySection{
		Specifier: imap.PartSpecifierNone,
		Peek:      true,
	}
	fetchCmd := cl.Fetch(imap.UIDSetNum(uids...), &imap.FetchOptions{
		UID:         true,
		Envelope:    true,
		BodySection: []*imap.FetchItemBodySection{bodyAll},
	})
	defer func() { _ = fetchCmd.Close() }()

	var results []types.RawResult
	var processed []imap.UID

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		msgData := fetchCmd.Next()
		if msgData == nil {
			break
		}
		buf, err := msgData.Collect()
		if err != nil {
			return nil, fmt.Errorf("imap fetch collect: %w", err)
		}

		subject := ""
		received := time.Now()
		if buf.Envelope != nil {
			subject = buf.Envelope.Subject
			if !buf.Envelope.Date.IsZero() {
				received = buf.Envelope.Date
			}
		}
		if !subjectMatches(subject, c.cfg.SubjectAny) {
			continue
		}

		raw := buf.FindBodySection(bodyAll)
		if len(raw) == 0 {
			continue
		}

		htmlBody := htmlPartOf(raw)
		if htmlBody == "" {
			continue
		}

		rows := extractJobAnchors(htmlBody, received)
		results = append(results, rows...)
		processed = append(processed, buf.UID)
		log.Printf("[email] digest subject=%q jobs=%d", subject, len(rows))
	}

	if err := fetchCmd.Close(); err != nil {
		return nil, fmt.Errorf("imap fetch close: %w", err)
	}

	if err := markSeen(cl, processed); err != nil {
		log.Printf("[email] mark seen: %v", err)
	}

	return results, nil
}

func subjectMatches(subject string, any []string) bool {
	if len(any) == 0 {
		return true
	}
	low := strings.ToLower(subject)
	for _, s := range any {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" && strings.Contains(low, s) {
			return true
		}
	}
	return false
}

func dialAndLogin(ctx context.Context, addr, username, password string) (*imapclient.Client, error) {
	host := addr
	if i := strings.IndexByte(host, ':'); i >= 0 {
		host = host[:i]
	}

	cl, err := imapclient.DialTLS(addr, &imapclient.Options{
		TLSConfig: &tls.Config{MinVersion: tls.VersionTLS12, ServerName: host},
	})
	if err != nil {
		return nil, fmt.Errorf("imap dial tls: %w", err)
	}

	// Best-effort close on context cancel.
	go func() {
		<-ctx.Done()
		_ = cl.Close()
	}()

	if err := cl.Login(username, password).Wait(); err != nil {
		_ = cl.Close()
		return nil, fmt.Errorf("imap login: %w", err)
	}
	return cl, nil
}

func markSeen(cl *imapclient.Client, uids []imap.UID) error {
	if len(uids) == 0 {
		return nil
	}
	cmd := cl.Store(imap.UIDSetNum(uids...), &imap.StoreFlags{
		Op:     imap.StoreFlagsAdd,
		Silent: true,
		Flags:  []imap.Flag{imap.FlagSeen},
	}, nil)
	return cmd.Close()
}

func logoutAndClose(cl *imapclient.Client) {
	if cl == nil {
		return
	}
	if err := cl.Logout().Wait(); err != nil {
		log.Printf("[email] imap logout: %v", err)
	}
	_ = cl.Close()
}
