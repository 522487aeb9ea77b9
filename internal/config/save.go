package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

func Validate(cfg Config) error {
	var errs []string

	if cfg.App.Port <= 0 || cfg.App.Port > 65535 {
		errs = append(errs, "app.port must be 1..65535")
	}
	if cfg.Polling.ScrapeSeconds <= 0 {
		errs = append(errs, "polling.scrape_seconds must be > 0")
	}
	if cfg.Polling.SweepSeconds <= 0 {
		errs = append(errs, "polling.sweep_seconds must be > 0")
	}
	if cfg.Consumer.FetchLimit < 0 {
		errs = append(errs, "consumer.fetch_limit must be >= 0")
	}

	checkCompanies := func(source string, companies []Company) {
		for i, co := range companies {
			if strings.TrimSpace(co.Slug) == "" {
				errs = append(errs, fmt.Sprintf("sources.%s.companies[%d].slug is required", source, i))
			}
		}
	}
	if cfg.Sources.Greenhouse.Enabled {
		checkCompanies("greenhouse", cfg.Sources.Greenhouse.Companies)
	}
	if cfg.Sources.Lever.Enabled {
		checkCompanies("lever", cfg.Sources.Lever.Companies)
	}

	// Password is not in the config; it lives in the OS keychain.
	if cfg.Email.Enabled {
		if strings.TrimSpace(cfg.Email.IMAPHost) == "" {
			errs = append(errs, "email.imap_host is required when email.enabled=true")
		}
		if strings.TrimSpace(cfg.Email.Username) == "" {
			errs = append(errs, "email.username is required when email.enabled=true")
		}
		if strings.TrimSpace(cfg.Email.Mailbox) == "" {
			errs = append(errs, "email.mailbox is required when email.enabled=true")
		}
	}

	if len(errs) > 0 {
		return errors.Newf("config validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

func SaveAtomic(path string, cfg Config) error {
	if err := Validate(cfg); err != nil {
		return err
	}

	b, err := yaml.Marshal(&cfg)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	tmp := path + ".tmp"
	bak := path + ".bak"

	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}

	_ = os.Remove(bak)
	_ = os.Rename(path, bak)

	return os.Rename(tmp, path)
}
