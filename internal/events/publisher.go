package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// SubjectTurn is the NATS subject for completed conversation turns.
const SubjectTurn = "storyscout.conversation.turn"

// SubjectRegistered announces service startup.
const SubjectRegistered = "storyscout.service.registered"

// TurnEvent describes one completed conversational turn for downstream
// consumers (analytics, usage dashboards).
type TurnEvent struct {
	TurnID      uuid.UUID `json:"turn_id"`
	SessionKey  string    `json:"session_key"`
	Action      string    `json:"action"`
	Term        string    `json:"term,omitempty"`
	ResultCount int       `json:"result_count"`
	Timestamp   string    `json:"timestamp"`
}

type Publisher struct {
	conn   *nats.Conn
	logger *slog.Logger
}

func NewPublisher(url, token string, logger *slog.Logger) (*Publisher, error) {
	opts := []nats.Option{
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats reconnected")
		}),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	return &Publisher{conn: nc, logger: logger}, nil
}

// PublishTurn emits a turn event. Failures are returned for the caller to
// log; they never affect the turn itself.
func (p *Publisher) PublishTurn(evt TurnEvent) error {
	if evt.Timestamp == "" {
		evt.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	return p.publish(SubjectTurn, evt)
}

// PublishRegistered announces that the service is up.
func (p *Publisher) PublishRegistered(port int) error {
	return p.publish(SubjectRegistered, map[string]any{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"port":      port,
	})
}

func (p *Publisher) publish(subject string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return p.conn.Publish(subject, payload)
}

func (p *Publisher) Close() {
	p.conn.Close()
}
