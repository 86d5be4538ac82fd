package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/MikeSquared-Agency/sentinel/internal/escalation"
)

const defaultPostMessageURL = "https://slack.com/api/chat.postMessage"

// Poster announces escalation tickets in the specialist desk channel.
type Poster struct {
	token   string
	channel string
	client  *http.Client
	logger  *zap.Logger
	apiURL  string
}

func NewPoster(token, channel string, logger *zap.Logger) *Poster {
	return &Poster{
		token:   token,
		channel: channel,
		client:  &http.Client{Timeout: 10 * time.Second},
		apiURL:  defaultPostMessageURL,
		logger:  logger,
	}
}

// NotifyEscalation posts t to the desk channel.
func (p *Poster) NotifyEscalation(ctx context.Context, t escalation.Ticket) error {
	ts, err := p.post(ctx, map[string]any{
		"channel": p.channel,
		"text":    fmt.Sprintf("Escalation %s: call %s at %s", t.ID, t.Name, t.Phone),
		"blocks": []map[string]any{
			{
				"type": "section",
				"text": map[string]any{
					"type": "mrkdwn",
					"text": formatTicket(t),
				},
			},
			{
				"type": "context",
				"elements": []map[string]any{
					{
						"type": "mrkdwn",
						"text": "React :white_check_mark: once the caller has been contacted.",
					},
				},
			},
		},
	})
	if err != nil {
		return err
	}
	p.logger.Info("posted escalation to slack", zap.String("ts", ts), zap.String("ticket_id", t.ID))
	return nil
}

func (p *Poster) post(ctx context.Context, payload map[string]any) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "Bearer "+p.token)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("slack post: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var slackResp struct {
		OK    bool   `json:"ok"`
		TS    string `json:"ts"`
		Error string `json:"error,omitempty"`
	}
	if err := json.Unmarshal(respBody, &slackResp); err != nil {
		return "", fmt.Errorf("parse slack response: %w", err)
	}
	if !slackResp.OK {
		return "", fmt.Errorf("slack error: %s", slackResp.Error)
	}
	return slackResp.TS, nil
}

func formatTicket(t escalation.Ticket) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "*Escalation:* %s\n", t.ID)
	fmt.Fprintf(&sb, "*Caller:* %s\n", t.Name)
	fmt.Fprintf(&sb, "*Call back:* %s\n", t.Phone)
	fmt.Fprintf(&sb, "*Opened:* %s\n", t.CreatedAt.UTC().Format(time.RFC1123))

	issue := strings.TrimSpace(t.Issue)
	if issue == "" {
		sb.WriteString("_No issue text captured._")
	} else {
		fmt.Fprintf(&sb, "\n> %s", strings.ReplaceAll(issue, "\n", "\n> "))
	}
	return sb.String()
}
