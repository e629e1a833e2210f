package emaildigest

import (
	"bytes"
	"encoding/base64"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"jobscout-engine/internal/scrape/types"
	"jobscout-engine/internal/scrape/util"
)

// htmlPartOf digs the text/html part out of a raw RFC822 message.
func htmlPartOf(raw []byte) string {
	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		return ""
	}
	body, _ := io.ReadAll(io.LimitReader(msg.Body, 6<<20))
	_, htmlPart := textParts(msg.Header, body)
	return htmlPart
}

func textParts(h mail.Header, body []byte) (plain, htmlPart string) {
	ct := h.Get("Content-Type")
	cte := strings.ToLower(strings.TrimSpace(h.Get("Content-Transfer-Encoding")))

	mediaType, params, err := mime.ParseMediaType(ct)
	if err != nil {
		return string(decodeCTE(body, cte)), ""
	}
	mediaType = strings.ToLower(mediaType)

	if strings.HasPrefix(mediaType, "multipart/") {
		boundary := params["boundary"]
		if boundary == "" {
			return string(decodeCTE(body, cte)), ""
		}
		mr := multipart.NewReader(bytes.NewReader(body), boundary)

		var bestPlain, bestHTML string
		for {
			p, err := mr.NextPart()
			if err != nil {
				break
			}
			partCTE := strings.ToLower(strings.TrimSpace(p.Header.Get("Content-Transfer-Encoding")))
			pMedia, _, _ := mime.ParseMediaType(p.Header.Get("Content-Type"))
			pMedia = strings.ToLower(pMedia)

			b, _ := io.ReadAll(io.LimitReader(p, 6<<20))
			b = decodeCTE(b, partCTE)

			if strings.HasPrefix(pMedia, "multipart/") {
				pl, ht := textParts(mail.Header(p.Header), b)
				if len(pl) > len(bestPlain) {
					bestPlain = pl
				}
				if len(ht) > len(bestHTML) {
					bestHTML = ht
				}
				continue
			}

			switch {
			case strings.HasPrefix(pMedia, "text/plain"):
				if len(b) > len(bestPlain) {
					bestPlain = string(b)
				}
			case strings.HasPrefix(pMedia, "text/html"):
				if len(b) > len(bestHTML) {
					bestHTML = string(b)
				}
			}
		}
		return bestPlain, bestHTML
	}

	s := decodeCTE(body, cte)
	if strings.HasPrefix(mediaType, "text/html") {
		return "", string(s)
	}
	return string(s), ""
}

func decodeCTE(b []byte, cte string) []byte {
	switch cte {
	case "base64":
		dec := base64.NewDecoder(base64.StdEncoding, bytes.NewReader(b))
		out, _ := io.ReadAll(io.LimitReader(dec, 6<<20))
		return out
	case "quoted-printable":
		dec := quotedprintable.NewReader(bytes.NewReader(b))
		out, _ := io.ReadAll(io.LimitReader(dec, 6<<20))
		return out
	default:
		return b
	}
}

// extractJobAnchors pulls job posting links out of a digest's HTML body.
// LinkedIn digests render each job as an anchor to /jobs/view/ whose text is
// the title, with a nearby "Company · Location" line.
func extractJobAnchors(htmlBody string, received time.Time) []types.RawResult {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlBody))
	if err != nil {
		return nil
	}

	var out []types.RawResult
	seen := map[string]bool{}

	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || !strings.Contains(href, "linkedin.com/jobs/view/") {
			return
		}
		key := util.CanonicalizeURL(href)
		if seen[key] {
			return
		}

		title := util.CleanText(a.Text())
		if title == "" || looksLikeAction(title) {
			return
		}
		seen[key] = true

		company, location := companyLocationNear(a)

		out = append(out, types.RawResult{Fields: map[string]string{
			"anchor_text": title,
			"company":     company,
			"location":    location,
			"link":        href,
			"context":     util.Clip(util.CleanText(a.Parent().Parent().Text()), 500),
			"received":    received.UTC().Format(time.RFC3339),
		}})
	})

	return out
}

// companyLocationNear walks up from the anchor looking for the digest's
// "Company · Location" line.
func companyLocationNear(a *goquery.Selection) (company, location string) {
	node := a.Parent()
	for depth := 0; depth < 3 && node.Length() > 0; depth++ {
		text := util.CleanText(node.Text())
		if i := strings.Index(text, "·"); i > 0 {
			company = util.CleanText(strings.TrimPrefix(text[:i], a.Text()))
			location = util.CleanText(firstLine(text[i+len("·"):]))
			if company != "" {
				return company, location
			}
		}
		node = node.Parent()
	}
	return "", ""
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, "\r\n"); i >= 0 {
		s = s[:i]
	}
	// the location phrase ends at the next digest boilerplate word
	for _, stop := range []string{"View job", "See all", "Apply"} {
		if i := strings.Index(s, stop); i >= 0 {
			s = s[:i]
		}
	}
	return strings.TrimSpace(s)
}

func looksLikeAction(t string) bool {
	l := strings.ToLower(t)
	return strings.Contains(l, "view job") || strings.Contains(l, "see all") || strings.Contains(l, "apply")
}
