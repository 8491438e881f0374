package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"analogfinder/internal/config"
	"analogfinder/internal/modules/climate/types"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

var (
	ErrNotConnected = errors.New("mqtt client not connected")
	ErrStopped      = errors.New("mqtt client stopped")
)

const publishTimeout = 5 * time.Second

// Publisher announces dataset summaries as retained messages, so late
// subscribers always see the last load. The last summary is published again
// whenever the connection is (re)established.
type Publisher struct {
	client    mqtt.Client
	topic     string
	logger    *slog.Logger
	mu        sync.RWMutex
	connected bool
	last      *types.DatasetSummary

	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewPublisher(cfg config.Config, logger *slog.Logger) *Publisher {
	p := &Publisher{
		topic:  cfg.MQTTTopic,
		logger: logger,
		stopCh: make(chan struct{}),
	}
	opts := clientOptions(cfg, cfg.MQTTClientID, logger, func(connected bool) {
		p.setConnected(connected)
		if connected {
			go p.republish()
		}
	})
	p.client = mqtt.NewClient(opts)
	return p
}

// newPublisherWithClient wires an existing client; used by tests.
func newPublisherWithClient(client mqtt.Client, topic string, logger *slog.Logger) *Publisher {
	return &Publisher{
		client:    client,
		topic:     topic,
		logger:    logger,
		connected: true,
		stopCh:    make(chan struct{}),
	}
}

// clientOptions holds the connection settings shared by publisher and
// subscriber. setConnected tracks the connection state from paho callbacks.
func clientOptions(cfg config.Config, clientID string, logger *slog.Logger, setConnected func(bool)) *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.MQTTBroker, cfg.MQTTPort))
	opts.SetClientID(clientID)
	opts.SetCleanSession(true)

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)

	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	opts.SetOnConnectHandler(func(_ mqtt.Client) {
		setConnected(true)
		logger.Info("mqtt connected", "broker", cfg.MQTTBroker, "port", cfg.MQTTPort, "client_id", clientID)
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		setConnected(false)
		logger.Warn("mqtt connection lost", "error", err)
	})
	return opts
}

// Connect waits for the initial connection, honouring ctx and Disconnect.
func (p *Publisher) Connect(ctx context.Context) error {
	select {
	case <-p.stopCh:
		return ErrStopped
	default:
	}

	if p.IsConnected() {
		return nil
	}

	return waitToken(ctx, p.client.Connect(), p.stopCh)
}

// waitToken polls token so a blocked connect still reacts to ctx and stop.
func waitToken(ctx context.Context, token mqtt.Token, stopCh <-chan struct{}) error {
	const poll = 200 * time.Millisecond
	for {
		if token.WaitTimeout(poll) {
			if err := token.Error(); err != nil {
				return fmt.Errorf("mqtt connect: %w", err)
			}
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stopCh:
			return ErrStopped
		default:
		}
	}
}

// PublishDatasetSummary publishes summary as a retained QoS 1 message.
func (p *Publisher) PublishDatasetSummary(ctx context.Context, summary types.DatasetSummary) error {
	p.mu.Lock()
	p.last = &summary
	p.mu.Unlock()

	if !p.IsConnected() {
		return ErrNotConnected
	}

	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal dataset summary: %w", err)
	}

	token := p.client.Publish(p.topic, 1, true, data)
	select {
	case <-token.Done():
	case <-time.After(publishTimeout):
		return fmt.Errorf("publish timeout for topic %s", p.topic)
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := token.Error(); err != nil {
		p.logger.Error("failed to publish dataset summary", "topic", p.topic, "error", err)
		return fmt.Errorf("publish dataset summary: %w", err)
	}

	p.logger.Debug("published dataset summary",
		"topic", p.topic,
		"records", summary.Records,
		"loaded_at", summary.LoadedAt,
	)
	return nil
}

// republish sends the last summary after a (re)connect.
func (p *Publisher) republish() {
	p.mu.RLock()
	last := p.last
	p.mu.RUnlock()
	if last == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := p.PublishDatasetSummary(ctx, *last); err != nil {
		p.logger.Warn("republish dataset summary failed", "topic", p.topic, "error", err)
	}
}

func (p *Publisher) IsConnected() bool {
	p.mu.RLock()
	connected := p.connected
	p.mu.RUnlock()
	return connected && p.client.IsConnected()
}

// Disconnect is idempotent. After it, Connect returns ErrStopped.
func (p *Publisher) Disconnect() {
	p.stopOnce.Do(func() { close(p.stopCh) })

	if p.client != nil {
		p.client.Disconnect(250)
	}

	p.setConnected(false)
	p.logger.Info("mqtt publisher disconnected")
}

func (p *Publisher) setConnected(v bool) {
	p.mu.Lock()
	p.connected = v
	p.mu.Unlock()
}
