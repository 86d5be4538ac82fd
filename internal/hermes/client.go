package hermes

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

const (
	// SubjectTurnProcessed carries a TurnEvent after every completed turn.
	SubjectTurnProcessed = "swarm.sentinel.turn.processed"
	// SubjectEscalationRequested carries an EscalationEvent when a caller is
	// handed to a specialist.
	SubjectEscalationRequested = "swarm.sentinel.escalation.requested"
	// SubjectRegistered announces the agent on startup.
	SubjectRegistered = "swarm.agent.sentinel.registered"
)

// TurnEvent summarises one processed turn.
type TurnEvent struct {
	SessionID  string            `json:"session_id"`
	Intent     string            `json:"intent"`
	FromState  string            `json:"from_state"`
	ToState    string            `json:"to_state"`
	Extracted  map[string]string `json:"extracted,omitempty"`
	Escalated  bool              `json:"escalated"`
	Failed     bool              `json:"failed"`
	Modality   string            `json:"modality"`
	Model      string            `json:"model,omitempty"`
	LatencyMS  float64           `json:"latency_ms"`
	TokenCount int               `json:"token_count"`
	Timestamp  time.Time         `json:"timestamp"`
}

// EscalationEvent asks the specialist desk to call a customer back.
type EscalationEvent struct {
	TicketID  string    `json:"ticket_id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Issue     string    `json:"issue"`
	CreatedAt time.Time `json:"created_at"`
}

type Client struct {
	conn   *nats.Conn
	logger *zap.Logger
}

func NewClient(ctx context.Context, url, token string, logger *zap.Logger) (*Client, error) {
	opts := []nats.Option{
		nats.Name("sentinel"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", zap.Error(err))
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

	return &Client{conn: nc, logger: logger}, nil
}

func (c *Client) Publish(subject string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return c.conn.Publish(subject, payload)
}

func (c *Client) Close() {
	if err := c.conn.Drain(); err != nil {
		c.logger.Warn("nats drain failed", zap.Error(err))
		c.conn.Close()
	}
}
