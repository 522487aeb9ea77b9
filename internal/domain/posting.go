package domain

import (
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

type Seniority string

const (
	SeniorityJunior Seniority = "junior"
	SeniorityMid    Seniority = "mid"
	SenioritySenior Seniority = "senior"
	SeniorityLead   Seniority = "lead"
	SeniorityExpert Seniority = "expert"
)

type EmploymentType string

const (
	EmploymentPermanent   EmploymentType = "permanent"
	EmploymentContractB2B EmploymentType = "contract_b2b"
	EmploymentInternship  EmploymentType = "internship"
	EmploymentOther       EmploymentType = "other"
)

// JobPosting is one scraped posting as handed over by a source. It carries no
// identity of its own; the calculator derives one from it on every ingest.
// Treated as immutable after construction.
type JobPosting struct {
	Title         string    `json:"title"`
	Company       string    `json:"company"`
	Location      string    `json:"location"`
	URL           string    `json:"url"`
	PublishedDate time.Time `json:"published_date"`

	Source             string         `json:"source,omitempty"`
	Seniority          Seniority      `json:"seniority,omitempty"`
	EmploymentType     EmploymentType `json:"employment_type,omitempty"`
	TechKeywords       []string       `json:"tech_keywords,omitempty"`
	Salary             string         `json:"salary,omitempty"`
	DescriptionSnippet string         `json:"description_snippet,omitempty"`
}

// Validate rejects postings with blank required fields. Runs before any state
// change, so a bad posting fails the whole batch without touching the store.
func (p JobPosting) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"title", p.Title},
		{"company", p.Company},
		{"location", p.Location},
		{"url", p.URL},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return errors.Wrapf(ErrInvalidInput, "posting %s is blank", f.name)
		}
	}
	if p.PublishedDate.IsZero() {
		return errors.Wrap(ErrInvalidInput, "posting published_date is missing")
	}
	return nil
}
