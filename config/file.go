package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// fileConfig mirrors Config with pointer fields so the overlay can tell
// "not set" apart from a zero value.
type fileConfig struct {
	Server struct {
		Host *string `yaml:"host"`
		Port *int    `yaml:"port"`
		Mode *string `yaml:"mode"`
	} `yaml:"server"`
	Browser struct {
		Headless          *bool   `yaml:"headless"`
		MaxPages          *int    `yaml:"max_pages"`
		NoSandbox         *bool   `yaml:"no_sandbox"`
		BrowserBin        *string `yaml:"browser_bin"`
		NavigationTimeout *string `yaml:"navigation_timeout"`
	} `yaml:"browser"`
	Pipeline struct {
		MaxLinksPerQuery *int     `yaml:"max_links_per_query"`
		MaxTotalLinks    *int     `yaml:"max_total_links"`
		MaxConcurrency   *int     `yaml:"max_concurrency"`
		PerFetchTimeout  *string  `yaml:"per_fetch_timeout"`
		OverallDeadline  *string  `yaml:"overall_deadline"`
		UPCStrictness    *string  `yaml:"upc_strictness"`
		HostRPS          *float64 `yaml:"host_rps"`
		BrowserDomains   []string `yaml:"browser_domains"`
	} `yaml:"pipeline"`
	Search struct {
		BackendOrder []string `yaml:"backends"`
		Denylist     []string `yaml:"denylist"`
		UseBrowser   *bool    `yaml:"use_browser"`
	} `yaml:"search"`
	Prose struct {
		Enabled *bool   `yaml:"enabled"`
		BaseURL *string `yaml:"base_url"`
		APIKey  *string `yaml:"api_key"`
		Model   *string `yaml:"model"`
	} `yaml:"prose"`
	Store struct {
		PostgresDSN   *string `yaml:"postgres_dsn"`
		WebhookURL    *string `yaml:"webhook_url"`
		WebhookSecret *string `yaml:"webhook_secret"`
	} `yaml:"store"`
	Auth struct {
		Enabled *bool    `yaml:"enabled"`
		APIKeys []string `yaml:"api_keys"`
	} `yaml:"auth"`
	RateLimit struct {
		RequestsPerSecond *float64 `yaml:"requests_per_second"`
		Burst             *int     `yaml:"burst"`
	} `yaml:"rate_limit"`
	Cache struct {
		MaxEntries *int `yaml:"max_entries"`
	} `yaml:"cache"`
	Log struct {
		Level  *string `yaml:"level"`
		Format *string `yaml:"format"`
	} `yaml:"log"`
}

// applyFile overlays settings from a YAML file onto c. Fields absent from
// the file keep their current (env or default) values.
func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	setString(&c.Server.Host, fc.Server.Host)
	setInt(&c.Server.Port, fc.Server.Port)
	setString(&c.Server.Mode, fc.Server.Mode)

	setBool(&c.Browser.Headless, fc.Browser.Headless)
	setInt(&c.Browser.MaxPages, fc.Browser.MaxPages)
	setBool(&c.Browser.NoSandbox, fc.Browser.NoSandbox)
	setString(&c.Browser.BrowserBin, fc.Browser.BrowserBin)
	setDuration(&c.Browser.NavigationTimeout, fc.Browser.NavigationTimeout)

	setInt(&c.Pipeline.MaxLinksPerQuery, fc.Pipeline.MaxLinksPerQuery)
	setInt(&c.Pipeline.MaxTotalLinks, fc.Pipeline.MaxTotalLinks)
	setInt(&c.Pipeline.MaxConcurrency, fc.Pipeline.MaxConcurrency)
	setDuration(&c.Pipeline.PerFetchTimeout, fc.Pipeline.PerFetchTimeout)
	setDuration(&c.Pipeline.OverallDeadline, fc.Pipeline.OverallDeadline)
	setString(&c.Pipeline.UPCStrictness, fc.Pipeline.UPCStrictness)
	setFloat(&c.Pipeline.HostRPS, fc.Pipeline.HostRPS)
	if fc.Pipeline.BrowserDomains != nil {
		c.Pipeline.BrowserDomains = fc.Pipeline.BrowserDomains
	}

	if fc.Search.BackendOrder != nil {
		c.Search.BackendOrder = fc.Search.BackendOrder
	}
	if fc.Search.Denylist != nil {
		c.Search.Denylist = fc.Search.Denylist
	}
	setBool(&c.Search.UseBrowser, fc.Search.UseBrowser)

	setBool(&c.Prose.Enabled, fc.Prose.Enabled)
	setString(&c.Prose.BaseURL, fc.Prose.BaseURL)
	setString(&c.Prose.APIKey, fc.Prose.APIKey)
	setString(&c.Prose.Model, fc.Prose.Model)

	setString(&c.Store.PostgresDSN, fc.Store.PostgresDSN)
	setString(&c.Store.WebhookURL, fc.Store.WebhookURL)
	setString(&c.Store.WebhookSecret, fc.Store.WebhookSecret)

	setBool(&c.Auth.Enabled, fc.Auth.Enabled)
	if fc.Auth.APIKeys != nil {
		c.Auth.APIKeys = fc.Auth.APIKeys
	}

	setFloat(&c.RateLimit.RequestsPerSecond, fc.RateLimit.RequestsPerSecond)
	setInt(&c.RateLimit.Burst, fc.RateLimit.Burst)

	setInt(&c.Cache.MaxEntries, fc.Cache.MaxEntries)

	setString(&c.Log.Level, fc.Log.Level)
	setString(&c.Log.Format, fc.Log.Format)

	return nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

func setBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}

func setFloat(dst *float64, src *float64) {
	if src != nil {
		*dst = *src
	}
}

func setDuration(dst *time.Duration, src *string) {
	if src == nil {
		return
	}
	if d, err := time.ParseDuration(*src); err == nil {
		*dst = d
	}
}
