// Package notify posts operator notifications. Delivery is best effort:
// failures are logged and never reach the caller.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/OldStager01/staging-autoscaler/internal/logger"
)

type Notifier interface {
	Warn(ctx context.Context, cat Category, subject, details string)
	Fail(ctx context.Context, cat Category, subject, details string)
}

// Noop drops every notification. It is used when no Slack token is set.
type Noop struct{}

func (Noop) Warn(context.Context, Category, string, string) {}
func (Noop) Fail(context.Context, Category, string, string) {}

const (
	footer     = "Pod Autoscaler"
	footerIcon = "https://cncf-branding.netlify.app/img/projects/argo/stacked/color/argo-stacked-color.png"
)

type SlackConfig struct {
	Token    string
	Channel  string
	Redirect string
	// APIURL is the Slack Web API base, https://slack.com/api by default.
	APIURL  string
	Timeout time.Duration
}

// Slack posts attachments with chat.postMessage.
type Slack struct {
	client   *http.Client
	endpoint string
	token    string
	channel  string
	redirect string
	now      func() time.Time
}

func NewSlack(cfg SlackConfig) *Slack {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	apiURL := cfg.APIURL
	if apiURL == "" {
		apiURL = "https://slack.com/api"
	}

	return &Slack{
		client:   &http.Client{Timeout: timeout},
		endpoint: strings.TrimRight(apiURL, "/") + "/chat.postMessage",
		token:    cfg.Token,
		channel:  cfg.Channel,
		redirect: cfg.Redirect,
		now:      time.Now,
	}
}

type attachment struct {
	Color      string `json:"color"`
	Title      string `json:"title"`
	TitleLink  string `json:"title_link"`
	Text       string `json:"text"`
	Footer     string `json:"footer"`
	FooterIcon string `json:"footer_icon"`
	Ts         int64  `json:"ts"`
}

type postResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

func (s *Slack) Warn(ctx context.Context, cat Category, subject, details string) {
	s.post(ctx, Format(SeverityWarning, cat, subject, details))
}

func (s *Slack) Fail(ctx context.Context, cat Category, subject, details string) {
	s.post(ctx, Format(SeverityFailure, cat, subject, details))
}

func (s *Slack) post(ctx context.Context, m Message) {
	if err := s.send(ctx, m); err != nil {
		logger.WithFields(map[string]interface{}{
			"category": m.Category,
			"severity": m.Severity.String(),
		}).Warnf("Failed to post slack notification %q: %v", m.Title, err)
	}
}

func (s *Slack) send(ctx context.Context, m Message) error {
	attachments, err := json.Marshal([]attachment{{
		Color:      m.Color(),
		Title:      m.Title,
		TitleLink:  s.redirect,
		Text:       m.Text,
		Footer:     footer,
		FooterIcon: footerIcon,
		Ts:         s.now().Unix(),
	}})
	if err != nil {
		return err
	}

	form := url.Values{
		"token":       {s.token},
		"channel":     {s.channel},
		"attachments": {string(attachments)},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack returned %d: %s", resp.StatusCode, body)
	}

	var out postResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return fmt.Errorf("invalid slack response: %w", err)
	}
	if !out.OK {
		return fmt.Errorf("slack error: %s", out.Error)
	}
	return nil
}

type counted struct {
	next  Notifier
	count func(Category, Severity)
}

// WithCounter reports every notification to count before delivering it.
func WithCounter(n Notifier, count func(Category, Severity)) Notifier {
	return &counted{next: n, count: count}
}

func (c *counted) Warn(ctx context.Context, cat Category, subject, details string) {
	c.count(cat, SeverityWarning)
	c.next.Warn(ctx, cat, subject, details)
}

func (c *counted) Fail(ctx context.Context, cat Category, subject, details string) {
	c.count(cat, SeverityFailure)
	c.next.Fail(ctx, cat, subject, details)
}
