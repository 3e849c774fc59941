// Package config loads and validates the offboard runner configuration.
//
// Sources are applied lowest to highest precedence: built-in defaults, an
// optional YAML file, then OFFBOARD_* environment variables. Command-line flags
// are applied on top by the caller before Resolve.
package config

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"go.viam.com/offboard/control"
	"go.viam.com/offboard/link/mqtt"
	"go.viam.com/offboard/link/sim"
	"go.viam.com/offboard/logging"
	"go.viam.com/offboard/trajectory"
)

// ErrInvalidConfig is matched by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Link types.
const (
	LinkSim  = "sim"
	LinkMQTT = "mqtt"
)

// Config is the raw, unresolved configuration.
type Config struct {
	Mode  string `yaml:"mode" env:"OFFBOARD_MODE"`
	Shape string `yaml:"shape" env:"OFFBOARD_SHAPE"`
	// ConvergenceTimeout bounds a single convergence wait. Zero waits forever.
	ConvergenceTimeout time.Duration `yaml:"convergence_timeout" env:"OFFBOARD_CONVERGENCE_TIMEOUT"`
	LogLevel           string        `yaml:"log_level" env:"OFFBOARD_LOG_LEVEL"`
	// LogFile, when set, also writes logs to a rotated file.
	LogFile string     `yaml:"log_file" env:"OFFBOARD_LOG_FILE"`
	Link    LinkConfig `yaml:"link"`
}

// LinkConfig selects and configures the vehicle link.
type LinkConfig struct {
	Type string      `yaml:"type" env:"OFFBOARD_LINK"`
	MQTT mqtt.Config `yaml:"mqtt"`
	Sim  sim.Config  `yaml:"sim"`
}

// Resolved is a validated configuration with the selectors parsed.
type Resolved struct {
	Mode               control.Mode
	Shape              trajectory.Shape
	ConvergenceTimeout time.Duration
	LogLevel           logging.Level
	LogFile            string
	Link               LinkConfig
}

// Default returns the built-in defaults.
func Default() *Config {
	return &Config{
		Mode:     "position",
		Shape:    "square",
		LogLevel: "info",
		Link:     LinkConfig{Type: LinkSim},
	}
}

// Load returns the defaults overlaid with the YAML file at path, if any, and
// then the environment.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.readFile(path); err != nil {
			return nil, err
		}
	}
	if err := env.Parse(cfg); err != nil {
		return nil, &ValidationError{Errs: []error{errors.Wrap(err, "reading environment")}}
	}
	return cfg, nil
}

func (c *Config) readFile(path string) (err error) {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "opening config %q", path)
	}
	defer func() {
		err = multierr.Append(err, f.Close())
	}()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return &ValidationError{Errs: []error{errors.Wrapf(err, "parsing config %q", path)}}
	}
	return nil
}

// ValidationError lists every problem found by Resolve.
type ValidationError struct {
	Errs []error
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Errs))
	for _, err := range e.Errs {
		msgs = append(msgs, err.Error())
	}
	return ErrInvalidConfig.Error() + ": " + strings.Join(msgs, "; ")
}

// Is reports ErrInvalidConfig.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidConfig //nolint:errorlint
}

// Unwrap exposes the individual field errors.
func (e *ValidationError) Unwrap() []error {
	return e.Errs
}

// Resolve validates the config, fills link defaults and parses the selectors.
// All problems are reported at once.
func (c *Config) Resolve() (Resolved, error) {
	var (
		res  Resolved
		errs error
		err  error
	)

	if res.Mode, err = control.ParseMode(c.Mode); err != nil {
		errs = multierr.Append(errs, errors.Wrap(err, "mode"))
	}
	if res.Shape, err = trajectory.ParseShape(c.Shape); err != nil {
		errs = multierr.Append(errs, errors.Wrap(err, "shape"))
	}
	if res.LogLevel, err = logging.LevelFromString(c.LogLevel); err != nil {
		errs = multierr.Append(errs, errors.Wrap(err, "log_level"))
	}
	if c.ConvergenceTimeout < 0 {
		errs = multierr.Append(errs, errors.Errorf("convergence_timeout must not be negative, got %v", c.ConvergenceTimeout))
	}
	res.ConvergenceTimeout = c.ConvergenceTimeout
	res.LogFile = c.LogFile

	switch c.Link.Type {
	case LinkSim:
		if err := c.Link.Sim.Validate(); err != nil {
			errs = multierr.Append(errs, errors.Wrap(err, "link.sim"))
		}
	case LinkMQTT:
		if err := c.Link.MQTT.Validate(); err != nil {
			errs = multierr.Append(errs, errors.Wrap(err, "link.mqtt"))
		}
	default:
		errs = multierr.Append(errs, errors.Errorf("link.type %q must be %q or %q", c.Link.Type, LinkSim, LinkMQTT))
	}
	res.Link = c.Link

	if errs != nil {
		return Resolved{}, &ValidationError{Errs: multierr.Errors(errs)}
	}
	return res, nil
}
