package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ValidatorConfig is the probing agent's configuration, read from a YAML
// file. The target list is either static or pulled from the collector each
// iteration.
type ValidatorConfig struct {
	Server    string `yaml:"server"`     // collector base URL
	PublicKey string `yaml:"public_key"` // this agent's registered identity

	Targets           []string `yaml:"targets"`             // static target list
	TargetsFromServer bool     `yaml:"targets_from_server"` // pull active websites instead

	IntervalSeconds int    `yaml:"interval_seconds"`
	TimeoutSeconds  int    `yaml:"timeout_seconds"`
	Overlap         string `yaml:"overlap"`         // "allow" or "skip"
	ReportFailures  *bool  `yaml:"report_failures"` // default true
}

// LoadValidator reads and checks a validator config file.
func LoadValidator(path string) (*ValidatorConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg ValidatorConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if cfg.Server == "" {
		return nil, fmt.Errorf("config: server is required")
	}
	if cfg.PublicKey == "" {
		return nil, fmt.Errorf("config: public_key is required")
	}
	if len(cfg.Targets) == 0 && !cfg.TargetsFromServer {
		return nil, fmt.Errorf("config: no targets defined and targets_from_server is off")
	}
	if cfg.Overlap != "" && cfg.Overlap != "allow" && cfg.Overlap != "skip" {
		return nil, fmt.Errorf("config: overlap must be \"allow\" or \"skip\"")
	}

	return &cfg, nil
}

func (c *ValidatorConfig) Interval() time.Duration {
	if c.IntervalSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.IntervalSeconds) * time.Second
}

func (c *ValidatorConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c *ValidatorConfig) ShouldReportFailures() bool {
	if c.ReportFailures == nil {
		return true
	}
	return *c.ReportFailures
}
