package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Company struct {
	Slug string `yaml:"slug" json:"slug"`
	Name string `yaml:"name" json:"name"`
}

type Config struct {
	App struct {
		Port    int    `yaml:"port" json:"port"`
		DataDir string `yaml:"data_dir" json:"data_dir"`
	} `yaml:"app" json:"app"`

	Polling struct {
		ScrapeSeconds int `yaml:"scrape_seconds" json:"scrape_seconds"`
		SweepSeconds  int `yaml:"sweep_seconds" json:"sweep_seconds"`
	} `yaml:"polling" json:"polling"`

	Sources struct {
		Greenhouse struct {
			Enabled   bool      `yaml:"enabled" json:"enabled"`
			Companies []Company `yaml:"companies" json:"companies"`
		} `yaml:"greenhouse" json:"greenhouse"`
		Lever struct {
			Enabled   bool      `yaml:"enabled" json:"enabled"`
			Companies []Company `yaml:"companies" json:"companies"`
		} `yaml:"lever" json:"lever"`
	} `yaml:"sources" json:"sources"`

	Email struct {
		Enabled          bool     `yaml:"enabled" json:"enabled"`
		IMAPHost         string   `yaml:"imap_host" json:"imap_host"`
		IMAPPort         int      `yaml:"imap_port" json:"imap_port"`
		Username         string   `yaml:"username" json:"username"`
		Mailbox          string   `yaml:"mailbox" json:"mailbox"`
		SearchSubjectAny []string `yaml:"search_subject_any" json:"search_subject_any"`
	} `yaml:"email" json:"email"`

	Consumer struct {
		FetchLimit int `yaml:"fetch_limit" json:"fetch_limit"`
	} `yaml:"consumer" json:"consumer"`
}

func Load(path string) (Config, error) {
	var cfg Config
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	err = yaml.Unmarshal(b, &cfg)
	return cfg, err
}
