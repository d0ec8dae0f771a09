package serve

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds daemon configuration. Zero values fall back to defaults;
// command-line flags override file values.
type Config struct {
	// Addr is the HTTP listen address.
	Addr string `yaml:"addr"`

	// SecretsFile is the path to the JSON file holding the API's basic
	// auth credentials.
	SecretsFile string `yaml:"secrets_file"`

	// PollInterval is the delay between container monitor polls.
	PollInterval Duration `yaml:"poll_interval"`

	// StopTimeoutSeconds is the grace period given to a container on
	// stop before the engine kills it.
	StopTimeoutSeconds int `yaml:"stop_timeout_seconds"`
}

// DefaultConfig returns the configuration used when no file or flags are
// given.
func DefaultConfig() Config {
	return Config{
		Addr:               ":8000",
		SecretsFile:        "secrets.json",
		PollInterval:       Duration(time.Second),
		StopTimeoutSeconds: 10,
	}
}

// LoadConfig reads a YAML config file over the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	return cfg, nil
}

// Duration decodes YAML values like "500ms" or "2s" into a time.Duration.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}
