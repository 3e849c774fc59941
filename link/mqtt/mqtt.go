// Package mqtt is a vehicle link over an MQTT broker bridged to the flight stack.
package mqtt

import (
	"context"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/atomic"

	"go.viam.com/offboard/control"
	"go.viam.com/offboard/link"
	"go.viam.com/offboard/logging"
)

const (
	defaultConnectTimeout = 5 * time.Second
	disconnectQuiesceMs   = 250
)

var errNotConnected = errors.New("mqtt not connected")

// Config configures the MQTT link.
type Config struct {
	Broker                string        `yaml:"broker" env:"OFFBOARD_MQTT_BROKER"`
	ClientID              string        `yaml:"client_id" env:"OFFBOARD_MQTT_CLIENT_ID"`
	QoS                   byte          `yaml:"qos" env:"OFFBOARD_MQTT_QOS"`
	Codec                 string        `yaml:"codec" env:"OFFBOARD_MQTT_CODEC"`
	ConnectTimeout        time.Duration `yaml:"connect_timeout" env:"OFFBOARD_MQTT_CONNECT_TIMEOUT"`
	PositionSetpointTopic string        `yaml:"position_setpoint_topic"`
	VelocitySetpointTopic string        `yaml:"velocity_setpoint_topic"`
	LocalPositionTopic    string        `yaml:"local_position_topic"`
}

// Validate checks the config and fills in defaults.
func (cfg *Config) Validate() error {
	if cfg.Broker == "" {
		return errors.New("mqtt broker is required")
	}
	if cfg.QoS > 2 {
		return errors.Errorf("mqtt qos must be 0, 1 or 2, got %d", cfg.QoS)
	}
	if _, err := link.CodecByName(cfg.Codec); err != nil {
		return err
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "offboard-" + uuid.NewString()
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = defaultConnectTimeout
	}
	if cfg.PositionSetpointTopic == "" {
		cfg.PositionSetpointTopic = link.DefaultPositionSetpointTopic
	}
	if cfg.VelocitySetpointTopic == "" {
		cfg.VelocitySetpointTopic = link.DefaultVelocitySetpointTopic
	}
	if cfg.LocalPositionTopic == "" {
		cfg.LocalPositionTopic = link.DefaultLocalPositionTopic
	}
	return nil
}

// Stats counts link traffic.
type Stats struct {
	Published     map[string]uint64
	PublishErrors uint64
	Received      uint64
	DecodeErrors  uint64
}

// Link publishes setpoints to and reads local position from an MQTT broker.
type Link struct {
	cfg    Config
	codec  link.Codec
	client paho.Client
	logger logging.Logger

	seq          atomic.Uint32
	received     atomic.Uint64
	decodeErrors atomic.Uint64

	mu            sync.Mutex
	handlers      []link.PositionHandler
	published     map[string]uint64
	publishErrors uint64
}

// NewLink validates cfg and prepares a client. Call Connect before use.
func NewLink(cfg Config, logger logging.Logger) (*Link, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	l, err := newLink(cfg, nil, logger)
	if err != nil {
		return nil, err
	}

	opts := paho.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)
	opts.SetOnConnectHandler(l.onConnect)
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		logger.Warnw("mqtt connection lost, will auto-reconnect", "broker", cfg.Broker, "error", err)
	})
	l.client = paho.NewClient(opts)
	return l, nil
}

func newLink(cfg Config, client paho.Client, logger logging.Logger) (*Link, error) {
	codec, err := link.CodecByName(cfg.Codec)
	if err != nil {
		return nil, err
	}
	return &Link{
		cfg:       cfg,
		codec:     codec,
		client:    client,
		logger:    logger,
		published: map[string]uint64{},
	}, nil
}

// Connect connects to the broker and subscribes to local position telemetry.
func (l *Link) Connect(ctx context.Context) error {
	l.logger.Infow("connecting to mqtt broker", "broker", l.cfg.Broker, "client_id", l.cfg.ClientID, "codec", l.codec.Name())
	if err := waitToken(ctx, l.client.Connect(), l.cfg.ConnectTimeout); err != nil {
		// stops the client's connect retry loop
		l.client.Disconnect(disconnectQuiesceMs)
		return errors.Wrapf(err, "connecting to %s", l.cfg.Broker)
	}
	return nil
}

// onConnect runs on every (re)connection; subscriptions do not survive a clean session.
func (l *Link) onConnect(client paho.Client) {
	l.logger.Infow("mqtt connection established", "broker", l.cfg.Broker)
	token := client.Subscribe(l.cfg.LocalPositionTopic, l.cfg.QoS, l.onMessage)
	go func() {
		if err := waitToken(context.Background(), token, l.cfg.ConnectTimeout); err != nil {
			l.logger.Errorw("subscribing to local position failed", "topic", l.cfg.LocalPositionTopic, "error", err)
		}
	}()
}

func (l *Link) onMessage(_ paho.Client, msg paho.Message) {
	var pose link.PoseStamped
	if err := l.codec.Unmarshal(msg.Payload(), &pose); err != nil {
		l.decodeErrors.Inc()
		l.logger.Warnw("dropping undecodable position", "topic", msg.Topic(), "error", err)
		return
	}
	l.received.Inc()

	l.mu.Lock()
	handlers := l.handlers
	l.mu.Unlock()
	for _, handler := range handlers {
		handler(pose.Point(), pose.Header.Stamp.Time())
	}
}

// SubscribePosition registers handler for every decoded position message.
func (l *Link) SubscribePosition(handler link.PositionHandler) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.handlers = append(l.handlers[:len(l.handlers):len(l.handlers)], handler)
	return nil
}

// Publish encodes cmd onto the setpoint topic for its mode. Delivery is not awaited.
func (l *Link) Publish(ctx context.Context, cmd control.Command) error {
	seq := l.seq.Inc()
	var (
		topic string
		msg   interface{}
	)
	switch cmd.Mode {
	case control.ModePosition:
		topic, msg = l.cfg.PositionSetpointTopic, link.NewPoseStamped(seq, cmd.Stamp, cmd.Vector)
	case control.ModeVelocity:
		topic, msg = l.cfg.VelocitySetpointTopic, link.NewTwistStamped(seq, cmd.Stamp, cmd.Vector)
	default:
		return errors.Wrap(control.ErrUnsupportedMode, cmd.Mode.String())
	}

	if !l.client.IsConnectionOpen() {
		l.countPublish(topic, errNotConnected)
		return errNotConnected
	}
	payload, err := l.codec.Marshal(msg)
	if err != nil {
		l.countPublish(topic, err)
		return errors.Wrap(err, "encoding setpoint")
	}
	l.client.Publish(topic, l.cfg.QoS, false, payload)
	l.countPublish(topic, nil)
	return nil
}

func (l *Link) countPublish(topic string, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err != nil {
		l.publishErrors++
		return
	}
	l.published[topic]++
}

// Stats returns a snapshot of the traffic counters.
func (l *Link) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	published := make(map[string]uint64, len(l.published))
	for k, v := range l.published {
		published[k] = v
	}
	return Stats{
		Published:     published,
		PublishErrors: l.publishErrors,
		Received:      l.received.Load(),
		DecodeErrors:  l.decodeErrors.Load(),
	}
}

// Close unsubscribes if the connection is open and always disconnects, which
// also ends any pending reconnect attempts.
func (l *Link) Close(ctx context.Context) error {
	var err error
	if l.client.IsConnectionOpen() {
		err = errors.Wrap(waitToken(ctx, l.client.Unsubscribe(l.cfg.LocalPositionTopic), l.cfg.ConnectTimeout), "unsubscribing")
	}
	l.client.Disconnect(disconnectQuiesceMs)
	l.logger.Info("mqtt disconnected")
	return err
}

func waitToken(ctx context.Context, token paho.Token, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-token.Done():
		return token.Error()
	case <-timer.C:
		return errors.New("timed out waiting for broker")
	case <-ctx.Done():
		return ctx.Err()
	}
}
