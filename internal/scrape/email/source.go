package email

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/emersion/go-imap/v2"
	"go.uber.org/zap"

	"jobfeed-engine/internal/config"
	"jobfeed-engine/internal/domain"
	"jobfeed-engine/internal/scrape/types"
	"jobfeed-engine/internal/scrape/util"
)

const (
	maxEmails        = 500
	maxLinksPerEmail = 100
)

// Fetcher scans unseen job-alert mails and extracts postings from their HTML
// bodies. Processed mails are flagged \Seen only after the postings were
// ingested (via Result.Finalize), so a crashed run re-reads them.
type Fetcher struct {
	Cfg      config.Config
	Password string
	Log      *zap.Logger
}

func (f *Fetcher) Name() string { return "email" }

func (f *Fetcher) Fetch(ctx context.Context) (types.Result, error) {
	cfg := f.Cfg.Email
	if !cfg.Enabled {
		return types.Result{Source: f.Name()}, nil
	}

	addr := cfg.IMAPHost
	if !strings.Contains(addr, ":") {
		port := cfg.IMAPPort
		if port == 0 {
			port = 993
		}
		addr = fmt.Sprintf("%s:%d", addr, port)
	}

	mailbox := cfg.Mailbox
	if mailbox == "" {
		mailbox = "INBOX"
	}

	c, err := dialAndLogin(ctx, addr, cfg.Username, f.Password)
	if err != nil {
		return types.Result{}, err
	}

	if _, err := c.Select(mailbox, &imap.SelectOptions{ReadOnly: false}).Wait(); err != nil {
		logoutAndClose(c)
		return types.Result{}, fmt.Errorf("imap select %q: %w", mailbox, err)
	}

	msgs, err := fetchUnseen(ctx, c, maxEmails)
	if err != nil {
		logoutAndClose(c)
		return types.Result{}, err
	}

	var postings []domain.JobPosting
	processed := make([]imap.UID, 0, len(msgs))

	for _, m := range msgs {
		if len(cfg.SearchSubjectAny) > 0 && !containsAnyCI(m.Subject, cfg.SearchSubjectAny) {
			continue
		}
		processed = append(processed, m.UID)

		html := htmlBody(m.RawMessage)
		if html == "" {
			continue
		}

		found := postingsFromAlertHTML(html, m.Date)
		f.Log.Debug("parsed alert mail",
			zap.String("subject", m.Subject), zap.Int("postings", len(found)))
		postings = append(postings, found...)
	}

	finalize := func(context.Context) error {
		defer logoutAndClose(c)
		return markSeen(c, processed)
	}
	if len(processed) == 0 {
		logoutAndClose(c)
		finalize = nil
	}

	return types.Result{Source: f.Name(), Postings: postings, Finalize: finalize}, nil
}

// postingsFromAlertHTML walks anchor tags that look like job links. Alert
// mails render each job as a titled link followed by a "Company · Location"
// line, which is what the sibling-text heuristic picks up.
func postingsFromAlertHTML(html string, receivedAt time.Time) []domain.JobPosting {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	if receivedAt.IsZero() {
		receivedAt = time.Now().UTC()
	}

	var out []domain.JobPosting
	doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if len(out) >= maxLinksPerEmail {
			return false
		}

		href := strings.TrimSpace(a.AttrOr("href", ""))
		if !looksLikeJobLink(href) {
			return true
		}

		title := util.CleanText(a.Text())
		if title == "" || util.LooksLikeJunkTitle(title) {
			return true
		}

		company, location := companyLocationNear(a)
		if company == "" {
			company = "unknown"
		}
		if location == "" {
			location = "unspecified"
		}

		out = append(out, domain.JobPosting{
			Title:         title,
			Company:       company,
			Location:      location,
			URL:           href,
			PublishedDate: receivedAt.UTC(),
			Source:        "email",
		})
		return true
	})
	return out
}

func looksLikeJobLink(href string) bool {
	if href == "" || !strings.HasPrefix(strings.ToLower(href), "http") {
		return false
	}
	low := strings.ToLower(href)
	return strings.Contains(low, "/jobs/") ||
		strings.Contains(low, "/job/") ||
		strings.Contains(low, "currentjobid=")
}

// companyLocationNear reads the text right after the title link, expecting
// the "Company · Location" line alert mails use.
func companyLocationNear(a *goquery.Selection) (company, location string) {
	for _, sel := range []*goquery.Selection{a.Parent().Next(), a.Next(), a.Parent()} {
		text := util.CleanText(sel.Text())
		if text == "" {
			continue
		}
		if i := strings.Index(text, "·"); i >= 0 {
			company = util.CleanText(text[:i])
			location = util.CleanText(text[i+len("·"):])
			if j := strings.Index(location, "·"); j >= 0 {
				location = util.CleanText(location[:j])
			}
			if company != "" {
				return company, location
			}
		}
	}
	return "", ""
}

func containsAnyCI(s string, terms []string) bool {
	low := strings.ToLower(s)
	for _, t := range terms {
		if t == "" {
			continue
		}
		if strings.Contains(low, strings.ToLower(t)) {
			return true
		}
	}
	return false
}

var _ types.Fetcher = (*Fetcher)(nil)
