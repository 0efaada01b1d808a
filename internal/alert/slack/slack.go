// Package slack implements the alert Adapter for Slack using the Web API.
package slack

import (
	"fmt"

	"github.com/ayusetu/setu/internal/alert"
	slackapi "github.com/slack-go/slack"
)

// client abstracts the Slack API methods we use, enabling test mocks.
type client interface {
	PostMessage(channelID string, options ...slackapi.MsgOption) (string, string, error)
}

// Adapter posts alerts to a single Slack channel.
type Adapter struct {
	client    client
	channelID string
}

// New returns an Adapter authenticated with the given bot token.
func New(botToken, channelID string) *Adapter {
	return &Adapter{
		client:    slackapi.New(botToken),
		channelID: channelID,
	}
}

// Name implements alert.Adapter.
func (a *Adapter) Name() string { return "slack" }

// severityColor maps an alert severity to a Slack attachment color.
func severityColor(severity string) string {
	switch severity {
	case "warning":
		return "#e8a317"
	case "error":
		return "#d00000"
	default:
		return "#36a64f"
	}
}

// Send implements alert.Adapter.
func (a *Adapter) Send(msg alert.Message) error {
	fields := make([]slackapi.AttachmentField, 0, len(msg.Fields))
	for _, f := range msg.Fields {
		fields = append(fields, slackapi.AttachmentField{
			Title: f.Name,
			Value: f.Value,
			Short: true,
		})
	}

	attachment := slackapi.Attachment{
		Title:  msg.Title,
		Text:   msg.Body,
		Color:  severityColor(msg.Severity),
		Fields: fields,
	}

	_, _, err := a.client.PostMessage(a.channelID, slackapi.MsgOptionAttachments(attachment))
	if err != nil {
		return fmt.Errorf("slack: post to %s: %w", a.channelID, err)
	}
	return nil
}
