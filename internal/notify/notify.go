package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Notifier is the interface for sending fetch run notifications.
type Notifier interface {
	SendSuccess(ctx context.Context, outcome Outcome) error
	SendFailure(ctx context.Context, outcome Outcome, err error) error
}

// notification is one ntfy publish request.
type notification struct {
	title    string
	body     string
	tags     []string
	priority string
}

// successNotification flags a snapshot built without every source.
func successNotification(cfg *Config, o Outcome) notification {
	n := notification{
		title:    fmt.Sprintf("Options Chain Saved: %s %s", o.Exchange, o.Ticker),
		body:     FormatSuccessMessage(o),
		tags:     []string{cfg.Tags, "white_check_mark"},
		priority: cfg.Priority,
	}
	if failed := failedSources(o); len(failed) > 0 {
		n.title = fmt.Sprintf("Options Chain Saved (partial): %s %s", o.Exchange, o.Ticker)
		n.tags = append(n.tags, "warning")
	}
	return n
}

func failureNotification(cfg *Config, o Outcome, err error) notification {
	return notification{
		title:    fmt.Sprintf("Options Chain Failed: %s %s", o.Exchange, o.Ticker),
		body:     FormatFailureMessage(o, err),
		tags:     []string{cfg.Tags, "x"},
		priority: "high",
	}
}

func failedSources(o Outcome) []string {
	if o.Report == nil {
		return nil
	}
	var failed []string
	for _, s := range o.Report.Sources {
		if s.Err != nil {
			failed = append(failed, string(s.Source))
		}
	}
	return failed
}

// request builds the publish request for the configured topic.
func (n notification) request(ctx context.Context, cfg *Config) (*http.Request, error) {
	url := fmt.Sprintf("%s/%s", strings.TrimSuffix(cfg.Server, "/"), cfg.Topic)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(n.body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	var tags []string
	for _, t := range n.tags {
		if t != "" {
			tags = append(tags, t)
		}
	}
	req.Header.Set("Title", n.title)
	req.Header.Set("Priority", n.priority)
	req.Header.Set("Tags", strings.Join(tags, ","))
	if cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+cfg.Token)
	}
	return req, nil
}

// Client publishes run outcomes to an ntfy topic.
type Client struct {
	httpClient *http.Client
	config     *Config
	logger     *zap.Logger
}

func NewClient(cfg *Config, logger *zap.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		config: cfg,
		logger: logger,
	}
}

func (c *Client) SendSuccess(ctx context.Context, outcome Outcome) error {
	if !c.config.Enabled {
		return nil
	}
	return c.publish(ctx, successNotification(c.config, outcome))
}

func (c *Client) SendFailure(ctx context.Context, outcome Outcome, err error) error {
	if !c.config.Enabled {
		return nil
	}
	return c.publish(ctx, failureNotification(c.config, outcome, err))
}

func (c *Client) publish(ctx context.Context, n notification) error {
	req, err := n.request(ctx, c.config)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("failed to send notification", zap.String("title", n.title), zap.Error(err))
		return fmt.Errorf("sending notification: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("notification rejected",
			zap.Int("status", resp.StatusCode),
			zap.String("topic", c.config.Topic),
		)
		return fmt.Errorf("notification failed with status: %d", resp.StatusCode)
	}

	c.logger.Debug("notification sent", zap.String("title", n.title))
	return nil
}

// NoopNotifier is used when notifications are disabled.
type NoopNotifier struct{}

func (n *NoopNotifier) SendSuccess(_ context.Context, _ Outcome) error {
	return nil
}

func (n *NoopNotifier) SendFailure(_ context.Context, _ Outcome, _ error) error {
	return nil
}

// New creates the appropriate notifier based on config.
func New(cfg *Config, logger *zap.Logger) Notifier {
	if !cfg.Enabled {
		return &NoopNotifier{}
	}
	return NewClient(cfg, logger)
}
