package lever

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"jobfeed-engine/internal/domain"
	"jobfeed-engine/internal/scrape/types"
	"jobfeed-engine/internal/scrape/util"
)

type Config struct {
	Companies []Company // api.lever.co/v0/postings/<slug>
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

func (s *Scraper) Name() string { return "lever" }

type leverPosting struct {
	ID         string `json:"id"`
	Text       string `json:"text"` // title
	HostedURL  string `json:"hostedUrl"`
	CreatedAt  int64  `json:"createdAt"` // ms epoch
	Categories struct {
		Location   string `json:"location"`
		Commitment string `json:"commitment"`
	} `json:"categories"`
	Description string `json:"description"` // html
}

func (s *Scraper) Fetch(ctx context.Context) (types.Result, error) {
	const workers = 8

	companies := s.cfg.Companies
	batchCh := make(chan []domain.JobPosting, len(companies))
	workCh := make(chan Company)

	var wg sync.WaitGroup
	wg.Add(workers)

	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for co := range workCh {
				cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
				postings, err := s.fetchCompany(cctx, co)
				cancel()

				if err != nil {
					s.log.Warn("lever company failed",
						zap.String("slug", co.Slug), zap.Error(err))
					continue
				}
				if len(postings) > 0 {
					batchCh <- postings
				}
			}
		}()
	}

	go func() {
		defer close(workCh)
		for _, co := range companies {
			select {
			case <-ctx.Done():
				return
			case workCh <- co:
			}
		}
	}()

	wg.Wait()
	close(batchCh)

	var out []domain.JobPosting
	for batch := range batchCh {
		out = append(out, batch...)
	}

	return types.Result{Source: s.Name(), Postings: out}, nil
}

func (s *Scraper) fetchCompany(ctx context.Context, co Company) ([]domain.JobPosting, error) {
	apiURL := fmt.Sprintf("https://api.lever.co/v0/postings/%s?mode=json", co.Slug)

	if s.limiter != nil {
		if err := s.limiter.WaitURL(ctx, apiURL); err != nil {
			return nil, err
		}
	}

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	req.Header.Set("User-Agent", "jobfeed/1.0 (+local)")

	res, err := s.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("lever get postings: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode >= 400 {
		return nil, fmt.Errorf("lever postings status %d", res.StatusCode)
	}

	var raw []leverPosting
	if err := json.NewDecoder(res.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("lever decode postings: %w", err)
	}

	out := make([]domain.JobPosting, 0, len(raw))
	for _, lp := range raw {
		title := util.CleanText(lp.Text)
		if title == "" || lp.HostedURL == "" {
			continue
		}

		published := time.UnixMilli(lp.CreatedAt).UTC()
		if lp.CreatedAt == 0 {
			published = time.Now().UTC()
		}

		location := util.CleanText(lp.Categories.Location)
		if location == "" {
			location = "unspecified"
		}

		out = append(out, domain.JobPosting{
			Title:              title,
			Company:            co.Name,
			Location:           location,
			URL:                lp.HostedURL,
			PublishedDate:      published,
			Source:             s.Name(),
			EmploymentType:     employmentFromCommitment(lp.Categories.Commitment),
			DescriptionSnippet: util.Snippet(stripTags(lp.Description), 280),
		})
	}
	return out, nil
}

var tagPattern = regexp.MustCompile(`(?s)<[^>]+>`)

func stripTags(html string) string {
	return tagPattern.ReplaceAllString(html, " ")
}

func employmentFromCommitment(commitment string) domain.EmploymentType {
	c := strings.ToLower(commitment)
	switch {
	case c == "":
		return ""
	case strings.Contains(c, "intern"):
		return domain.EmploymentInternship
	case strings.Contains(c, "contract") || strings.Contains(c, "b2b"):
		return domain.EmploymentContractB2B
	case strings.Contains(c, "full") || strings.Contains(c, "permanent"):
		return domain.EmploymentPermanent
	default:
		return domain.EmploymentOther
	}
}
