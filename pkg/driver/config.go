package driver

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is looked up in the working directory when no path is given.
const DefaultConfigFile = "osho.yml"

// Target names accepted by Config.Target.
const (
	TargetC        = "c"
	TargetLLVM     = "llvm"
	TargetBytecode = "bytecode"
)

// Color modes accepted by Config.Color.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// Config holds project settings.
type Config struct {
	Path            string // file the config was loaded from, empty for defaults
	Source          string
	OutDir          string
	Target          string
	CC              string
	CCFlags         []string
	Gas             int
	MaxArtifactSize int64
	Timeout         time.Duration
	Color           string
}

// ValidationError aggregates config validation failures.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return "config: invalid configuration"
	}
	var b strings.Builder
	b.WriteString("config validation failed:")
	for _, issue := range e.Issues {
		b.WriteString("\n- ")
		b.WriteString(issue)
	}
	return b.String()
}

// DefaultConfig returns the settings used when no osho.yml exists.
func DefaultConfig() *Config {
	return &Config{
		OutDir:          "build",
		Target:          TargetC,
		CC:              "cc",
		Gas:             1_000_000,
		MaxArtifactSize: 1 << 20,
		Timeout:         30 * time.Second,
		Color:           ColorAuto,
	}
}

type configFile struct {
	Source          string   `yaml:"source"`
	OutDir          string   `yaml:"out_dir"`
	Target          string   `yaml:"target"`
	CC              string   `yaml:"cc"`
	CCFlags         []string `yaml:"cc_flags"`
	Gas             *int     `yaml:"gas"`
	MaxArtifactSize string   `yaml:"max_artifact_size"`
	Timeout         string   `yaml:"timeout"`
	Color           string   `yaml:"color"`
}

// LoadConfig reads an osho.yml. An empty path tries DefaultConfigFile and
// falls back to defaults when it does not exist.
func LoadConfig(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultConfigFile
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrapf(err, "config: resolve %s", path)
	}
	file, err := os.Open(absPath)
	if err != nil {
		if !explicit && os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, errors.Wrapf(err, "config: open %s", absPath)
	}
	defer file.Close()

	cfg, err := DecodeConfig(file)
	if err != nil {
		return nil, errors.Wrapf(err, "config: %s", absPath)
	}
	cfg.Path = absPath
	return cfg, nil
}

// DecodeConfig parses YAML from r over the defaults. Unknown keys are errors.
func DecodeConfig(r io.Reader) (*Config, error) {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)

	var raw configFile
	if err := decoder.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Wrap(err, "parse")
	}
	return raw.toConfig()
}

func (raw *configFile) toConfig() (*Config, error) {
	cfg := DefaultConfig()
	var issues []string

	cfg.Source = strings.TrimSpace(raw.Source)
	if v := strings.TrimSpace(raw.OutDir); v != "" {
		cfg.OutDir = v
	}
	if v := strings.TrimSpace(raw.Target); v != "" {
		cfg.Target = v
	}
	if v := strings.TrimSpace(raw.CC); v != "" {
		cfg.CC = v
	}
	if len(raw.CCFlags) > 0 {
		cfg.CCFlags = append([]string(nil), raw.CCFlags...)
	}
	if raw.Gas != nil {
		cfg.Gas = *raw.Gas
	}
	if v := strings.TrimSpace(raw.MaxArtifactSize); v != "" {
		size, err := humanize.ParseBytes(v)
		if err != nil {
			issues = append(issues, "max_artifact_size: "+err.Error())
		} else {
			cfg.MaxArtifactSize = int64(size)
		}
	}
	if v := strings.TrimSpace(raw.Timeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			issues = append(issues, "timeout: "+err.Error())
		} else {
			cfg.Timeout = d
		}
	}
	if v := strings.TrimSpace(raw.Color); v != "" {
		cfg.Color = v
	}

	issues = append(issues, cfg.validate()...)
	if len(issues) > 0 {
		return nil, &ValidationError{Issues: issues}
	}
	return cfg, nil
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	if issues := c.validate(); len(issues) > 0 {
		return &ValidationError{Issues: issues}
	}
	return nil
}

func (c *Config) validate() []string {
	var issues []string
	switch c.Target {
	case TargetC, TargetLLVM, TargetBytecode:
	default:
		issues = append(issues, "target: must be one of c, llvm, bytecode (got "+c.Target+")")
	}
	switch c.Color {
	case ColorAuto, ColorAlways, ColorNever:
	default:
		issues = append(issues, "color: must be one of auto, always, never (got "+c.Color+")")
	}
	if c.Gas <= 0 {
		issues = append(issues, "gas: must be positive")
	}
	if c.Timeout < 0 {
		issues = append(issues, "timeout: must not be negative")
	}
	if c.OutDir == "" {
		issues = append(issues, "out_dir: must not be empty")
	}
	return issues
}
