// Package config provides configuration loading and validation for .testshard.yaml.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	tserrors "github.com/AndreyAkinshin/testshard/internal/errors"
	"github.com/AndreyAkinshin/testshard/internal/schema"
)

// FileName is the name of the configuration file looked up from the working
// directory towards the filesystem root.
const FileName = ".testshard.yaml"

// ErrNotFound is returned when no configuration file exists in the
// directory or any parent.
var ErrNotFound = errors.New(FileName + " not found in this directory or any parent")

// Config represents the complete testshard configuration. Every field can
// also be set by a command line flag; flags win over the file.
type Config struct {
	ShardCount     int               `json:"shard_count,omitempty"`
	WorkerCount    int               `json:"worker_count,omitempty"`
	Retry          int               `json:"retry,omitempty"`
	FailFast       bool              `json:"fail_fast,omitempty"`
	FailFastPolicy string            `json:"fail_fast_policy,omitempty"`
	Strategy       string            `json:"strategy,omitempty"`
	Timeout        string            `json:"timeout,omitempty"`
	Suite          []string          `json:"suite,omitempty"`
	Enumerator     string            `json:"enumerator,omitempty"`
	ListPattern    string            `json:"list_pattern,omitempty"`
	ListCommand    string            `json:"list_command,omitempty"`
	Manifest       string            `json:"manifest,omitempty"`
	Exec           string            `json:"exec,omitempty"`
	OutputFormat   string            `json:"output_format,omitempty"`
	Workdir        string            `json:"workdir,omitempty"`
	LogDir         string            `json:"log_dir,omitempty"`
	Report         string            `json:"report,omitempty"`
	ReportFormat   string            `json:"report_format,omitempty"`
	MetricsFile    string            `json:"metrics_file,omitempty"`
	Env            map[string]string `json:"env,omitempty"`
}

// Load reads and parses a configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, tserrors.WrapConfig(err, "failed to read config file")
	}
	return Parse(data, path)
}

// Parse decodes YAML (or JSON, which is valid YAML) configuration data and
// validates it against the embedded config schema. Unknown keys are errors.
// Relative paths in the file are resolved against the file's directory.
func Parse(data []byte, source string) (*Config, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, tserrors.WrapConfig(err, fmt.Sprintf("failed to parse %s", source))
	}
	if doc == nil {
		doc = map[string]any{}
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, tserrors.WrapConfig(err, fmt.Sprintf("failed to parse %s", source))
	}
	if err := schema.ValidateConfig(raw); err != nil {
		return nil, tserrors.WrapConfig(err, source)
	}

	var cfg Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, tserrors.WrapConfig(err, fmt.Sprintf("failed to parse %s", source))
	}
	cfg.resolvePaths(filepath.Dir(source))
	return &cfg, nil
}

// resolvePaths makes file references relative to base absolute.
func (c *Config) resolvePaths(base string) {
	for _, p := range []*string{&c.Manifest, &c.Workdir, &c.LogDir, &c.Report, &c.MetricsFile} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(base, *p)
		}
	}
}

// Find walks up from startDir until it finds FileName and returns its path.
func Find(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		path := filepath.Join(dir, FileName)
		if fi, err := os.Stat(path); err == nil && !fi.IsDir() {
			return path, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrNotFound
		}
		dir = parent
	}
}

// Discover loads the nearest configuration file above startDir. A missing
// file is not an error: the returned Config is empty and path is "".
func Discover(startDir string) (cfg *Config, path string, err error) {
	path, err = Find(startDir)
	if errors.Is(err, ErrNotFound) {
		return &Config{}, "", nil
	}
	if err != nil {
		return nil, "", tserrors.WrapConfig(err, "failed to locate config file")
	}
	cfg, err = Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}
