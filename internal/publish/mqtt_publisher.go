package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dbehnke/jjyd/internal/transmitter"
)

const (
	PUBLISH_TIMEOUT = 5 * time.Second // Wait for the broker to acknowledge
	FRAME_TOPIC     = "frame"         // Appended to the configured prefix
)

// Config describes the broker connection
type Config struct {
	Broker      string
	TopicPrefix string
	Username    string
	Password    string
	QoS         byte
	Station     string
}

// FramePayload is the JSON document published for every minute
type FramePayload struct {
	Timestamp int64  `json:"timestamp"` // Unix seconds of the minute start
	Minute    string `json:"minute"`    // Minute start in the station timezone, RFC 3339
	Bits      string `json:"bits"`      // One character per slot, "-" if not sent
	Complete  bool   `json:"complete"`
	Station   string `json:"station,omitempty"`
}

// publisher is the part of mqtt.Client used here
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTTPublisher sends each transmitted minute to an MQTT broker
type MQTTPublisher struct {
	client publisher
	config Config
	topic  string
	log    zerolog.Logger
}

// NewMQTTPublisher connects to the broker
func NewMQTTPublisher(config Config, log zerolog.Logger) (*MQTTPublisher, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(config.Broker)
	opts.SetClientID("jjyd_" + uuid.NewString()[:8])

	if config.Username != "" {
		opts.SetUsername(config.Username)
	}
	if config.Password != "" {
		opts.SetPassword(config.Password)
	}

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(10 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	opts.SetOnConnectHandler(func(client mqtt.Client) {
		log.Info().Str("broker", config.Broker).Msg("MQTT connected")
	})
	opts.SetConnectionLostHandler(func(client mqtt.Client, err error) {
		log.Warn().Err(err).Msg("MQTT connection lost")
	})
	opts.SetReconnectingHandler(func(client mqtt.Client, opts *mqtt.ClientOptions) {
		log.Debug().Msg("MQTT reconnecting")
	})

	client := mqtt.NewClient(opts)
	if err := awaitConnect(client.Connect(), config.Broker, log); err != nil {
		return nil, err
	}

	return newPublisher(client, config, log), nil
}

// awaitConnect waits for the first connection attempt. With connect retry
// enabled an unreachable broker never fails the token, it only times out; the
// client keeps retrying in the background and frames published meanwhile fail.
func awaitConnect(token mqtt.Token, broker string, log zerolog.Logger) error {
	if !token.WaitTimeout(PUBLISH_TIMEOUT) {
		log.Warn().
			Str("broker", broker).
			Dur("waited", PUBLISH_TIMEOUT).
			Msg("MQTT broker not reachable yet, retrying in background")
		return nil
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to connect to MQTT broker: %w", err)
	}
	return nil
}

func newPublisher(client publisher, config Config, log zerolog.Logger) *MQTTPublisher {
	return &MQTTPublisher{
		client: client,
		config: config,
		topic:  Topic(config.TopicPrefix),
		log:    log,
	}
}

// Topic returns the frame topic below prefix
func Topic(prefix string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return FRAME_TOPIC
	}
	return prefix + "/" + FRAME_TOPIC
}

// NewFramePayload builds the document published for m
func NewFramePayload(m transmitter.Minute, station string) FramePayload {
	return FramePayload{
		Timestamp: m.Frame.Start.Unix(),
		Minute:    m.Frame.Start.Format(time.RFC3339),
		Bits:      m.Bits(),
		Complete:  m.Complete(),
		Station:   station,
	}
}

// FrameSent implements transmitter.Sink
func (p *MQTTPublisher) FrameSent(ctx context.Context, m transmitter.Minute) error {
	data, err := json.Marshal(NewFramePayload(m, p.config.Station))
	if err != nil {
		return fmt.Errorf("failed to marshal frame: %w", err)
	}

	token := p.client.Publish(p.topic, p.config.QoS, false, data)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(PUBLISH_TIMEOUT):
		return fmt.Errorf("publish to %s timed out", p.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", p.topic, err)
	}

	p.log.Debug().Str("topic", p.topic).Int("bytes", len(data)).Msg("frame published")
	return nil
}

// Close disconnects from the broker
func (p *MQTTPublisher) Close() {
	p.client.Disconnect(250)
}
