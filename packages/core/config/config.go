package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	paraerrors "github.com/abdul-hamid-achik/paraspec/packages/core/errors"
	"gopkg.in/yaml.v3"
)

// Config represents the paraspec configuration
type Config struct {
	MaxParallel     int            `json:"maxParallel,omitempty" yaml:"maxParallel,omitempty"`
	Retry           *int           `json:"retry,omitempty" yaml:"retry,omitempty"`
	Reporter        string         `json:"reporter,omitempty" yaml:"reporter,omitempty"`
	ReporterOptions map[string]any `json:"reporterOptions,omitempty" yaml:"reporterOptions,omitempty"`
	Compilers       []string       `json:"compilers,omitempty" yaml:"compilers,omitempty"` // ext:module pairs
	Require         []string       `json:"require,omitempty" yaml:"require,omitempty"`
	Recursive       *bool          `json:"recursive,omitempty" yaml:"recursive,omitempty"`
	Timeouts        *bool          `json:"timeouts,omitempty" yaml:"timeouts,omitempty"`
	Timeout         int            `json:"timeout,omitempty" yaml:"timeout,omitempty"` // milliseconds
	DispatchRate    float64        `json:"dispatchRate,omitempty" yaml:"dispatchRate,omitempty"`
	NoColor         *bool          `json:"noColor,omitempty" yaml:"noColor,omitempty"`
	Verbose         *bool          `json:"verbose,omitempty" yaml:"verbose,omitempty"`
	Spec            []string       `json:"spec,omitempty" yaml:"spec,omitempty"` // default patterns
}

// BoolPtr returns a pointer to b.
func BoolPtr(b bool) *bool {
	return &b
}

// IntPtr returns a pointer to i.
func IntPtr(i int) *int {
	return &i
}

// getBool returns the value of a bool pointer, or the default if nil
func getBool(b *bool, defaultVal bool) bool {
	if b == nil {
		return defaultVal
	}
	return *b
}

// GetRetry returns the retry count, defaulting to 0
func (c *Config) GetRetry() int {
	if c.Retry == nil {
		return 0
	}
	return *c.Retry
}

// GetRecursive returns the recursive setting, defaulting to false
func (c *Config) GetRecursive() bool {
	return getBool(c.Recursive, false)
}

// GetTimeouts returns whether timeouts are enforced, defaulting to true
func (c *Config) GetTimeouts() bool {
	return getBool(c.Timeouts, true)
}

// GetNoColor returns the no color setting, defaulting to false
func (c *Config) GetNoColor() bool {
	return getBool(c.NoColor, false)
}

// GetVerbose returns the verbose setting, defaulting to false
func (c *Config) GetVerbose() bool {
	return getBool(c.Verbose, false)
}

// TimeoutDuration returns Timeout as a duration.
func (c *Config) TimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Millisecond
}

// ConfigFilenames contains the possible config file names, in lookup order
var ConfigFilenames = []string{
	".paraspec.json",
	"paraspec.config.json",
	".paraspecrc",
	".paraspec.yaml",
	".paraspec.yml",
}

// LoadConfig loads configuration from the specified path or searches the
// current directory for a config file
func LoadConfig(path string) (*Config, error) {
	if path != "" {
		return loadConfigFromFile(path)
	}
	return FindAndLoadConfig(".")
}

// FindAndLoadConfig searches for a config file in the given directory
func FindAndLoadConfig(dir string) (*Config, error) {
	for _, filename := range ConfigFilenames {
		configPath := filepath.Join(dir, filename)
		if _, err := os.Stat(configPath); err == nil {
			return loadConfigFromFile(configPath)
		}
	}

	// Return defaults if no config file found
	return DefaultConfig(), nil
}

// loadConfigFromFile loads configuration from a specific file. YAML files are
// recognised by extension; .paraspecrc may hold either format.
func loadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	config := DefaultConfig()
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, config)
	case ".json":
		err = json.Unmarshal(data, config)
	default:
		if err = json.Unmarshal(data, config); err != nil {
			config = DefaultConfig()
			err = yaml.Unmarshal(data, config)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return config, nil
}

// Merge merges another config into this one, with other taking precedence
func (c *Config) Merge(other *Config) *Config {
	if other == nil {
		return c
	}

	result := *c // Copy

	if other.MaxParallel > 0 {
		result.MaxParallel = other.MaxParallel
	}
	if other.Reporter != "" {
		result.Reporter = other.Reporter
	}
	if other.Timeout > 0 {
		result.Timeout = other.Timeout
	}
	if other.DispatchRate > 0 {
		result.DispatchRate = other.DispatchRate
	}

	// Pointer fields - only override if explicitly set in other config
	if other.Retry != nil {
		result.Retry = other.Retry
	}
	if other.Recursive != nil {
		result.Recursive = other.Recursive
	}
	if other.Timeouts != nil {
		result.Timeouts = other.Timeouts
	}
	if other.NoColor != nil {
		result.NoColor = other.NoColor
	}
	if other.Verbose != nil {
		result.Verbose = other.Verbose
	}

	if len(other.ReporterOptions) > 0 {
		merged := make(map[string]any, len(result.ReporterOptions)+len(other.ReporterOptions))
		for k, v := range result.ReporterOptions {
			merged[k] = v
		}
		for k, v := range other.ReporterOptions {
			merged[k] = v
		}
		result.ReporterOptions = merged
	}

	if len(other.Compilers) > 0 {
		result.Compilers = other.Compilers
	}
	if len(other.Require) > 0 {
		result.Require = other.Require
	}
	if len(other.Spec) > 0 {
		result.Spec = other.Spec
	}

	return &result
}

// Validate reports the first invalid setting as a configuration error.
func (c *Config) Validate() error {
	switch {
	case c.MaxParallel < 1:
		return paraerrors.Configf("maxParallel must be at least 1, got %d", c.MaxParallel)
	case c.GetRetry() < 0:
		return paraerrors.Configf("retry must not be negative, got %d", c.GetRetry())
	case c.Timeout < 0:
		return paraerrors.Configf("timeout must not be negative, got %d", c.Timeout)
	case c.DispatchRate < 0:
		return paraerrors.Configf("dispatchRate must not be negative, got %g", c.DispatchRate)
	case strings.TrimSpace(c.Reporter) == "":
		return paraerrors.Configf("reporter must not be empty")
	}
	return nil
}

// SaveConfig saves the configuration to a file, as YAML when the path ends
// in .yaml or .yml and as JSON otherwise
func (c *Config) SaveConfig(path string) error {
	var (
		data []byte
		err  error
	)
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
