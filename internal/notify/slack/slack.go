// Package slack implements the notify Adapter for Slack over the Web API.
// Alerts are outbound-only, so no Socket Mode connection is held.
package slack

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dealscout/dealscout/internal/notify"
	slackapi "github.com/slack-go/slack"
)

// maxRetries is the max number of retries for rate-limited API calls.
const maxRetries = 3

// slackClient abstracts the Slack API methods we use, enabling test mocks.
type slackClient interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error)
}

// Adapter posts alerts to one Slack channel.
type Adapter struct {
	client    slackClient
	channelID string
}

// AdapterOpts holds parameters for creating a Slack Adapter.
type AdapterOpts struct {
	BotToken  string // xoxb-... Slack bot token
	ChannelID string // channel to post alerts to
	// For testing: inject a mock client instead of the real Slack API.
	Client slackClient
}

// New creates a Slack Adapter.
func New(opts AdapterOpts) (*Adapter, error) {
	if opts.Client == nil && opts.BotToken == "" {
		return nil, fmt.Errorf("slack: bot token is required")
	}
	if opts.ChannelID == "" {
		return nil, fmt.Errorf("slack: channel id is required")
	}
	a := &Adapter{channelID: opts.ChannelID}
	if opts.Client != nil {
		a.client = opts.Client
	} else {
		a.client = slackapi.New(opts.BotToken)
	}
	return a, nil
}

// Send posts an alert as an attachment, retrying on rate limiting.
func (a *Adapter) Send(ctx context.Context, alert notify.Alert) error {
	attachment := slackapi.Attachment{
		Color: alert.Color,
		Title: alert.Title,
		Text:  alert.Body,
	}
	for _, f := range alert.Fields {
		attachment.Fields = append(attachment.Fields, slackapi.AttachmentField{
			Title: f.Name,
			Value: f.Value,
			Short: f.Short,
		})
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		_, _, err := a.client.PostMessageContext(ctx, a.channelID,
			slackapi.MsgOptionAttachments(attachment))
		if err == nil {
			return nil
		}
		lastErr = err

		var rle *slackapi.RateLimitedError
		if !errors.As(err, &rle) {
			return fmt.Errorf("slack: post alert: %w", err)
		}
		select {
		case <-time.After(rle.RetryAfter):
		case <-ctx.Done():
			return fmt.Errorf("slack: post alert: %w", ctx.Err())
		}
	}
	return fmt.Errorf("slack: post alert: rate limited after %d retries: %w", maxRetries, lastErr)
}

// Close is a no-op; the Web API client holds no connection.
func (a *Adapter) Close() error {
	return nil
}
