package main

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/offboard/config"
	"go.viam.com/offboard/control"
	"go.viam.com/offboard/feedback"
	"go.viam.com/offboard/link"
	"go.viam.com/offboard/link/mqtt"
	"go.viam.com/offboard/link/sim"
	"go.viam.com/offboard/logging"
	"go.viam.com/offboard/sequencer"
)

const closeTimeout = 2 * time.Second

// run wires the link, feedback, gate and sequencer together and flies one
// path. Completing the path cancels the run context.
func run(
	ctx context.Context,
	res config.Resolved,
	logger logging.Logger,
	gateOpts ...control.GateOption,
) (result sequencer.Result, err error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lnk, err := openLink(ctx, res.Link, logger)
	if err != nil {
		return sequencer.ResultFailed, err
	}
	defer func() {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), closeTimeout)
		defer closeCancel()
		err = multierr.Combine(err, lnk.Close(closeCtx))
	}()

	position := feedback.NewPosition()
	if err := link.Bind(lnk, position); err != nil {
		return sequencer.ResultFailed, errors.Wrap(err, "subscribing to position telemetry")
	}

	if res.ConvergenceTimeout > 0 {
		gateOpts = append(gateOpts, control.WithTimeout(res.ConvergenceTimeout))
	}
	gate := control.NewGate(position, lnk, logger.Sublogger("gate"), gateOpts...)
	seq := sequencer.New(
		sequencer.Config{Mode: res.Mode, Shape: res.Shape},
		gate,
		logger.Sublogger("sequencer"),
		sequencer.WithOnComplete(cancel),
	)

	result, err = seq.Run(ctx)
	logger.Infow("run finished",
		"result", result,
		"progress", seq.Progress(),
		"position", position.Latest(),
		"position_updates", position.Updates(),
	)
	if stats, ok := lnk.(interface{ Stats() mqtt.Stats }); ok {
		logger.Infow("mqtt link stats", "stats", stats.Stats())
	}
	return result, err
}

func openLink(ctx context.Context, cfg config.LinkConfig, logger logging.Logger) (link.Link, error) {
	switch cfg.Type {
	case config.LinkSim:
		vehicle, err := sim.NewVehicle(cfg.Sim, nil, logger.Sublogger("sim"))
		if err != nil {
			return nil, err
		}
		vehicle.Start()
		return vehicle, nil
	case config.LinkMQTT:
		l, err := mqtt.NewLink(cfg.MQTT, logger.Sublogger("mqtt"))
		if err != nil {
			return nil, err
		}
		if err := l.Connect(ctx); err != nil {
			return nil, errors.Wrapf(err, "connecting to %s", cfg.MQTT.Broker)
		}
		return l, nil
	default:
		return nil, errors.Errorf("unknown link type %q", cfg.Type)
	}
}
