// Package config loads the service settings from defaults, an optional
// config file and OTS_POTATO_* environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/LdDl/ots-potato/prover"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. OTS_POTATO_PORT
const EnvPrefix = "OTS_POTATO"

// Verification modes
const (
	VerifyExplorer = "explorer"
	VerifyNode     = "node"
	VerifyProbe    = "probe"
)

// Log formats
const (
	LogJSON = "json"
	LogText = "text"
	LogAuto = "auto"
)

// DefaultMaxBodyBytes caps uploads: they only hold digests and proofs
const DefaultMaxBodyBytes = 5 * 1024

// Sentinel errors
var (
	ErrInvalidConfig = fmt.Errorf("invalid configuration")
)

// Config holds every tunable of the service
type Config struct {
	Host          string        `mapstructure:"host"`
	Port          int           `mapstructure:"port"`
	PublicDir     string        `mapstructure:"public_dir"`
	ScratchDir    string        `mapstructure:"scratch_dir"`
	Tool          string        `mapstructure:"tool"`
	VerifyMode    string        `mapstructure:"verify_mode"`
	ProbeTTL      time.Duration `mapstructure:"probe_ttl"`
	ToolTimeout   time.Duration `mapstructure:"tool_timeout"`
	MaxBodyBytes  int64         `mapstructure:"max_body_bytes"`
	EnableUpgrade bool          `mapstructure:"enable_upgrade"`
	LogFormat     string        `mapstructure:"log_format"`
}

// Addr is the listen address
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Load reads the configuration. path may be empty, in which case only
// defaults and environment are used.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "failed to read config file %s", path)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to decode config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("host", "127.0.0.1")
	v.SetDefault("port", 7777)
	v.SetDefault("public_dir", DefaultPublicDir())
	v.SetDefault("scratch_dir", os.TempDir())
	v.SetDefault("tool", prover.DefaultTool)
	v.SetDefault("verify_mode", VerifyExplorer)
	v.SetDefault("probe_ttl", prover.DefaultProbeTTL)
	v.SetDefault("tool_timeout", prover.DefaultTimeout)
	v.SetDefault("max_body_bytes", DefaultMaxBodyBytes)
	v.SetDefault("enable_upgrade", true)
	v.SetDefault("log_format", LogAuto)
}

// Validate checks values that would only fail later at request time
func (c *Config) Validate() error {
	if c.Tool == "" {
		return errors.Wrap(ErrInvalidConfig, "tool is empty")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return errors.Wrapf(ErrInvalidConfig, "port %d out of range", c.Port)
	}
	switch c.VerifyMode {
	case VerifyExplorer, VerifyNode, VerifyProbe:
	default:
		return errors.Wrapf(ErrInvalidConfig, "unknown verify_mode %q", c.VerifyMode)
	}
	switch c.LogFormat {
	case LogJSON, LogText, LogAuto:
	default:
		return errors.Wrapf(ErrInvalidConfig, "unknown log_format %q", c.LogFormat)
	}
	if c.ToolTimeout <= 0 {
		return errors.Wrap(ErrInvalidConfig, "tool_timeout must be positive")
	}
	if c.ProbeTTL <= 0 {
		return errors.Wrap(ErrInvalidConfig, "probe_ttl must be positive")
	}
	if c.MaxBodyBytes <= 0 {
		return errors.Wrap(ErrInvalidConfig, "max_body_bytes must be positive")
	}
	return nil
}

// ModeSelector turns verify_mode into the selector the gateway uses
func (c *Config) ModeSelector(runner prover.Runner) prover.ModeSelector {
	switch c.VerifyMode {
	case VerifyNode:
		return prover.FixedMode(prover.ModeNode)
	case VerifyProbe:
		return prover.NewVersionProbe(c.Tool, runner, c.ProbeTTL)
	default:
		return prover.FixedMode(prover.ModeExplorer)
	}
}

// DefaultPublicDir is the "public" directory two levels above the directory
// holding the executable, matching an install laid out as
// <prefix>/public next to <prefix>/build/bin/<exe>
func DefaultPublicDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "public"
	}
	return filepath.Join(filepath.Dir(exe), "..", "..", "public")
}
