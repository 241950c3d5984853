// Package config loads the campaign configuration file and the
// runtime credentials.
//
// Credentials are never embedded in config files or defaults: they come
// from the environment (or flags layered on top by the CLI) and loading
// fails fast with instructions when they are absent.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables holding the runtime credentials.
const (
	EnvToken    = "QPARITY_TOKEN"
	EnvInstance = "QPARITY_INSTANCE"
)

// ErrMissingCredentials is returned when no token or instance is configured.
var ErrMissingCredentials = errors.New("missing credentials")

// Duration wraps time.Duration so YAML configs can say "1s" or "500ms".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Campaign is the experiment configuration surface.
type Campaign struct {
	Shots             int      `yaml:"shots"`
	Repetitions       int      `yaml:"repetitions"`
	Variant           string   `yaml:"variant"`
	SubmitDelay       Duration `yaml:"submit_delay"`
	PollInterval      Duration `yaml:"poll_interval"`
	OptimizationLevel int      `yaml:"optimization_level"`
	MaxPending        int      `yaml:"max_pending"`
	BackendPriority   []string `yaml:"backend_priority"`
	ServiceURL        string   `yaml:"service_url"`
	LedgerPath        string   `yaml:"ledger"`
	StorePath         string   `yaml:"store"`
}

// Default returns the campaign defaults used when no config file is given.
func Default() Campaign {
	return Campaign{
		Shots:             8192,
		Repetitions:       5,
		Variant:           "triple",
		SubmitDelay:       Duration(time.Second),
		PollInterval:      Duration(5 * time.Second),
		OptimizationLevel: 1,
		MaxPending:        500,
		BackendPriority: []string{
			"ibm_torino", "ibm_fez", "ibm_sherbrooke",
			"ibm_brisbane", "ibm_kyoto", "ibm_osaka",
		},
		ServiceURL: "https://api.quantum.ibm.com/runtime",
		LedgerPath: "quantum_campaign.csv",
		StorePath:  ".qparity/qparity.db",
	}
}

// Load reads a YAML campaign config, layered over Default().
func Load(path string) (Campaign, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config yaml: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Campaign) validate() error {
	if c.Shots <= 0 {
		return fmt.Errorf("shots must be positive, got %d", c.Shots)
	}
	if c.Repetitions <= 0 {
		return fmt.Errorf("repetitions must be positive, got %d", c.Repetitions)
	}
	if c.Variant != "dual" && c.Variant != "triple" {
		return fmt.Errorf("variant must be dual or triple, got %q", c.Variant)
	}
	return nil
}

// Credentials hold the remote service token and resource instance.
type Credentials struct {
	Token    string
	Instance string
}

// CredentialsFromEnv reads credentials from the environment. Either value
// missing is a startup failure with instructions; there are no defaults.
func CredentialsFromEnv() (Credentials, error) {
	creds := Credentials{
		Token:    os.Getenv(EnvToken),
		Instance: os.Getenv(EnvInstance),
	}
	if creds.Token == "" || creds.Instance == "" {
		return Credentials{}, fmt.Errorf(
			"%w: set both environment variables:\n  export %s='your token'\n  export %s='your service instance'",
			ErrMissingCredentials, EnvToken, EnvInstance)
	}
	return creds, nil
}
