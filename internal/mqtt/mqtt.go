package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"analogfinder/internal/config"
	"analogfinder/internal/modules/climate/types"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// SummaryHandler receives each valid dataset summary.
type SummaryHandler func(summary types.DatasetSummary) error

// Subscriber follows the dataset summary topic. The retained message is
// delivered right after subscribing.
type Subscriber struct {
	client    mqtt.Client
	topic     string
	logger    *slog.Logger
	handler   SummaryHandler
	mu        sync.RWMutex
	connected bool

	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewSubscriber(cfg config.Config, logger *slog.Logger, handler SummaryHandler) *Subscriber {
	s := &Subscriber{
		topic:   cfg.MQTTTopic,
		logger:  logger,
		handler: handler,
		stopCh:  make(chan struct{}),
	}
	opts := clientOptions(cfg, cfg.MQTTClientID+"-watch", logger, s.setConnected)
	s.client = mqtt.NewClient(opts)
	return s
}

// Connect connects to the broker and subscribes to the summary topic.
func (s *Subscriber) Connect(ctx context.Context) error {
	select {
	case <-s.stopCh:
		return ErrStopped
	default:
	}

	if s.IsConnected() {
		return nil
	}

	if err := waitToken(ctx, s.client.Connect(), s.stopCh); err != nil {
		s.client.Disconnect(0)
		return err
	}

	if err := s.subscribe(); err != nil {
		s.client.Disconnect(0)
		return fmt.Errorf("subscribe: %w", err)
	}
	return nil
}

func (s *Subscriber) subscribe() error {
	const qos = byte(1)

	token := s.client.Subscribe(s.topic, qos, func(_ mqtt.Client, msg mqtt.Message) {
		s.handleMessage(msg.Topic(), msg.Payload())
	})
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("subscribe timeout for topic %s", s.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe to %s: %w", s.topic, err)
	}

	s.logger.Info("subscribed to mqtt topic", "topic", s.topic, "qos", qos)
	return nil
}

func (s *Subscriber) handleMessage(topic string, payload []byte) {
	s.logger.Debug("received mqtt message", "topic", topic, "size", len(payload))

	var summary types.DatasetSummary
	if err := json.Unmarshal(payload, &summary); err != nil {
		s.logger.Warn("failed to parse dataset summary", "topic", topic, "error", err)
		return
	}
	if err := validateSummary(summary); err != nil {
		s.logger.Warn("invalid dataset summary", "topic", topic, "error", err)
		return
	}

	if s.handler == nil {
		return
	}
	if err := s.handler(summary); err != nil {
		s.logger.Error("summary handler failed", "topic", topic, "error", err)
	}
}

func validateSummary(s types.DatasetSummary) error {
	if s.LoadedAt.IsZero() {
		return fmt.Errorf("loadedAt is required")
	}
	if s.Records < 0 {
		return fmt.Errorf("records must be >= 0: %d", s.Records)
	}
	for _, c := range s.Indices {
		if c.Index == "" {
			return fmt.Errorf("index name is required")
		}
	}
	return nil
}

func (s *Subscriber) IsConnected() bool {
	s.mu.RLock()
	connected := s.connected
	s.mu.RUnlock()
	return connected && s.client.IsConnected()
}

// Disconnect unsubscribes and closes the connection. Idempotent.
func (s *Subscriber) Disconnect() {
	s.stopOnce.Do(func() { close(s.stopCh) })

	if s.client != nil && s.IsConnected() {
		token := s.client.Unsubscribe(s.topic)
		token.WaitTimeout(2 * time.Second)
	}
	if s.client != nil {
		s.client.Disconnect(250)
	}

	s.setConnected(false)
	s.logger.Info("mqtt subscriber disconnected")
}

func (s *Subscriber) setConnected(v bool) {
	s.mu.Lock()
	s.connected = v
	s.mu.Unlock()
}
