package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/config"
	"go.uber.org/zap"
)

// Event is a fire-and-forget domain notification published after a
// mutation commits. Consumers (notifier, analytics) subscribe by type.
type Event struct {
	Type       string                 `json:"type"`
	OrgID      uuid.UUID              `json:"orgId"`
	ActorID    uuid.UUID              `json:"actorId,omitempty"`
	EntityType string                 `json:"entityType,omitempty"`
	EntityID   uuid.UUID              `json:"entityId,omitempty"`
	Payload    map[string]interface{} `json:"payload,omitempty"`
	OccurredAt time.Time              `json:"occurredAt"`
}

// Publisher delivers events without blocking the request path
type Publisher interface {
	Publish(ctx context.Context, event Event)
	Close()
}

// MQTTPublisher publishes JSON events to <prefix>/<type>, fire and
// forget at QoS 0.
type MQTTPublisher struct {
	client mqtt.Client
	prefix string
	logger *zap.Logger
}

// NewMQTTPublisher connects to the broker. Connection failures are
// returned so the caller can fall back to the nop publisher.
func NewMQTTPublisher(cfg *config.EventsConfig, logger *zap.Logger) (*MQTTPublisher, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.BrokerURL).
		SetClientID(cfg.ClientID).
		SetUsername(cfg.Username).
		SetPassword(cfg.Password).
		SetAutoReconnect(true).
		SetConnectTimeout(5 * time.Second)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(5*time.Second) || token.Error() != nil {
		return nil, fmt.Errorf("connect to event broker: %w", token.Error())
	}

	return &MQTTPublisher{client: client, prefix: cfg.TopicPrefix, logger: logger}, nil
}

// Publish serializes and sends the event. Errors are logged only.
func (p *MQTTPublisher) Publish(ctx context.Context, event Event) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Warn("event encode failed", zap.String("type", event.Type), zap.Error(err))
		return
	}
	topic := p.prefix + "/" + event.Type
	token := p.client.Publish(topic, 0, false, payload)
	go func() {
		if token.WaitTimeout(5*time.Second) && token.Error() != nil {
			p.logger.Warn("event publish failed",
				zap.String("topic", topic),
				zap.Error(token.Error()),
			)
		}
	}()
}

// Close disconnects from the broker
func (p *MQTTPublisher) Close() {
	p.client.Disconnect(250)
}

// NopPublisher drops all events; used when the bus is disabled and in
// tests.
type NopPublisher struct{}

// Publish implements Publisher
func (NopPublisher) Publish(ctx context.Context, event Event) {}

// Close implements Publisher
func (NopPublisher) Close() {}
