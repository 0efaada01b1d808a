// Package discord implements the alert Adapter for Discord.
package discord

import (
	"fmt"

	"github.com/ayusetu/setu/internal/alert"
	"github.com/bwmarrin/discordgo"
)

// session abstracts the discordgo.Session methods we use, enabling test mocks.
type session interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Adapter posts alerts to a single Discord channel via the REST API.
type Adapter struct {
	sess      session
	channelID string
}

// New returns an Adapter authenticated with the given bot token.
func New(botToken, channelID string) (*Adapter, error) {
	s, err := discordgo.New("Bot " + botToken)
	if err != nil {
		return nil, fmt.Errorf("discord: create session: %w", err)
	}
	return &Adapter{sess: s, channelID: channelID}, nil
}

// Name implements alert.Adapter.
func (a *Adapter) Name() string { return "discord" }

// severityColor maps an alert severity to a Discord embed color.
func severityColor(severity string) int {
	switch severity {
	case "warning":
		return 0xe8a317
	case "error":
		return 0xd00000
	default:
		return 0x36a64f
	}
}

// Send implements alert.Adapter.
func (a *Adapter) Send(msg alert.Message) error {
	fields := make([]*discordgo.MessageEmbedField, 0, len(msg.Fields))
	for _, f := range msg.Fields {
		// Discord rejects embed fields with empty values.
		if f.Value == "" {
			continue
		}
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:   f.Name,
			Value:  f.Value,
			Inline: true,
		})
	}

	embed := &discordgo.MessageEmbed{
		Title:       msg.Title,
		Description: msg.Body,
		Color:       severityColor(msg.Severity),
		Fields:      fields,
	}

	if _, err := a.sess.ChannelMessageSendEmbed(a.channelID, embed); err != nil {
		return fmt.Errorf("discord: post to %s: %w", a.channelID, err)
	}
	return nil
}
