package greenhouse

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"jobfeed-engine/internal/domain"
	"jobfeed-engine/internal/scrape/types"
	"jobfeed-engine/internal/scrape/util"
)

type Config struct {
	Companies []Company // boards.greenhouse.io/<slug>
}

type Company struct {
	Slug string
	Name string
}

type Scraper struct {
	cfg     Config
	hc      *http.Client
	limiter *util.HostLimiter
	log     *zap.Logger
}

func New(cfg Config, limiter *util.HostLimiter, log *zap.Logger) *Scraper {
	return &Scraper{
		cfg:     cfg,
		hc:      &http.Client{Timeout: 20 * time.Second},
		limiter: limiter,
		log:     log,
	}
}

func (s *Scraper) Name() string { return "greenhouse" }

func (s *Scraper) Fetch(ctx context.Context) (types.Result, error) {
	var out []domain.JobPosting
	for _, co := range s.cfg.Companies {
		postings, err := s.fetchBoard(ctx, co)
		if err != nil {
			// one broken board must not sink the whole run
			s.log.Warn("greenhouse board failed",
				zap.String("slug", co.Slug), zap.Error(err))
			continue
		}
		out = append(out, postings...)
	}
	return types.Result{Source: s.Name(), Postings: out}, nil
}

var jobIDPattern = regexp.MustCompile(`/jobs/(\d+)`)

func (s *Scraper) fetchBoard(ctx context.Context, co Company) ([]domain.JobPosting, error) {
	boardURL := fmt.Sprintf("https://boards.greenhouse.io/%s", co.Slug)

	if err := s.limiter.WaitURL(ctx, boardURL); err != nil {
		return nil, err
	}

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, boardURL, nil)
	req.Header.Set("User-Agent", "jobfeed/1.0 (+local)")

	res, err := s.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("greenhouse get board: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode >= 400 {
		return nil, fmt.Errorf("greenhouse board status %d", res.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(res.Body)
	if err != nil {
		return nil, fmt.Errorf("greenhouse parse board html: %w", err)
	}

	seen := map[string]bool{}
	scrapedAt := time.Now().UTC()

	var postings []domain.JobPosting
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href := strings.TrimSpace(a.AttrOr("href", ""))
		if href == "" {
			return
		}

		abs := href
		if strings.HasPrefix(href, "/") {
			abs = "https://boards.greenhouse.io" + href
		}
		low := strings.ToLower(abs)
		if !strings.Contains(low, "boards.greenhouse.io") || !jobIDPattern.MatchString(low) {
			return
		}
		if seen[abs] {
			return
		}
		seen[abs] = true

		title := util.CleanText(a.Text())
		if title == "" || util.LooksLikeJunkTitle(title) {
			return
		}

		location := util.CleanText(a.Parent().Find(".location").First().Text())
		if location == "" {
			location = "unspecified"
		}

		postings = append(postings, domain.JobPosting{
			Title:    title,
			Company:  co.Name,
			Location: location,
			URL:      abs,
			// boards expose no posted-at; first sight is the best we have
			PublishedDate: scrapedAt,
			Source:        s.Name(),
		})
	})

	return postings, nil
}
