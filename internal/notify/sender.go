package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"lectern/internal/config"
)

const userAgent = "Lectern-Go/0.1.0"

// Sender delivers one rendered notification.
type Sender interface {
	Send(ctx context.Context, notification *Notification) error
}

// NewSender builds a push sender when an endpoint is configured, otherwise a
// noop implementation so the rest of the pipeline never special-cases it.
func NewSender(cfg config.Notifications) Sender {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return noopSender{}
	}
	timeout := time.Duration(cfg.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfySender{
		endpoint: endpoint,
		registry: NewRegistry(),
		client:   &http.Client{Timeout: timeout},
	}
}

type ntfySender struct {
	endpoint string
	registry *Registry
	client   *http.Client
}

func (n *ntfySender) Send(ctx context.Context, notification *Notification) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(notification.Body))
	if err != nil {
		return fmt.Errorf("notification request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-Title", notification.Subject)
	req.Header.Set("X-Priority", ntfyPriority(notification.Priority))
	if template, err := n.registry.Lookup(notification.TemplateKey); err == nil && len(template.Tags) > 0 {
		req.Header.Set("X-Tags", strings.Join(template.Tags, ","))
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("notification send: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("notification send: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}

func ntfyPriority(priority int) string {
	switch {
	case priority <= PriorityHigh:
		return "high"
	case priority >= PriorityLow:
		return "low"
	default:
		return "default"
	}
}

type noopSender struct{}

func (noopSender) Send(context.Context, *Notification) error { return nil }
