// Package main runs a single offboard trajectory test against a vehicle link.
package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"

	"go.viam.com/offboard/config"
	"go.viam.com/offboard/logging"
	"go.viam.com/offboard/sequencer"
)

const (
	// Flags.
	flagConfig             = "config"
	flagMode               = "mode"
	flagShape              = "shape"
	flagLink               = "link"
	flagMQTTBroker         = "mqtt-broker"
	flagConvergenceTimeout = "convergence-timeout"
	flagDebug              = "debug"
	flagLogFile            = "log-file"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "offboard",
		Usage: "fly a test path in offboard control mode",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "load configuration from `FILE`",
			},
			&cli.StringFlag{
				Name:  flagMode,
				Usage: "control mode: position, velocity or acceleration",
			},
			&cli.StringFlag{
				Name:  flagShape,
				Usage: "path shape: square, circle, eight or ellipse",
			},
			&cli.StringFlag{
				Name:  flagLink,
				Usage: "vehicle link: sim or mqtt",
			},
			&cli.StringFlag{
				Name:  flagMQTTBroker,
				Usage: "mqtt broker `URL`, e.g. tcp://localhost:1883",
			},
			&cli.DurationFlag{
				Name:  flagConvergenceTimeout,
				Usage: "give up on a target after this long; 0 waits forever",
			},
			&cli.BoolFlag{
				Name:  flagDebug,
				Usage: "enable debug logging",
			},
			&cli.StringFlag{
				Name:  flagLogFile,
				Usage: "also write logs to `FILE`, rotated by size",
			},
		},
		Action: runAction,
	}
}

// applyFlags overlays the flags the user set on cfg.
func applyFlags(c *cli.Context, cfg *config.Config) {
	if c.IsSet(flagMode) {
		cfg.Mode = c.String(flagMode)
	}
	if c.IsSet(flagShape) {
		cfg.Shape = c.String(flagShape)
	}
	if c.IsSet(flagLink) {
		cfg.Link.Type = c.String(flagLink)
	}
	if c.IsSet(flagMQTTBroker) {
		cfg.Link.MQTT.Broker = c.String(flagMQTTBroker)
	}
	if c.IsSet(flagConvergenceTimeout) {
		cfg.ConvergenceTimeout = c.Duration(flagConvergenceTimeout)
	}
	if c.IsSet(flagLogFile) {
		cfg.LogFile = c.String(flagLogFile)
	}
	if c.Bool(flagDebug) {
		cfg.LogLevel = logging.DEBUG.String()
	}
}

func runAction(c *cli.Context) error {
	cfg, err := config.Load(c.String(flagConfig))
	if err != nil {
		return err
	}
	applyFlags(c, cfg)
	res, err := cfg.Resolve()
	if err != nil {
		return err
	}

	logger, closeLogger := newLogger(res)
	defer goutils.UncheckedErrorFunc(closeLogger)

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := run(ctx, res, logger)
	switch {
	case result == sequencer.ResultComplete, result == sequencer.ResultUnsupported:
		return nil
	case result == sequencer.ResultCanceled && ctx.Err() != nil:
		logger.Info("shutdown requested")
		return nil
	default:
		return err
	}
}

// newLogger returns the run logger and a func that flushes and releases it.
func newLogger(res config.Resolved) (logging.Logger, func() error) {
	if res.LogFile == "" {
		if res.LogLevel == logging.DEBUG {
			logger := logging.NewDebugLogger("offboard")
			return logger, logger.Sync
		}
		logger := logging.NewLogger("offboard")
		logger.SetLevel(res.LogLevel)
		return logger, logger.Sync
	}
	logger, closeFile := logging.NewFileLogger("offboard", res.LogFile, res.LogLevel)
	return logger, func() error {
		return multierr.Combine(logger.Sync(), closeFile())
	}
}
