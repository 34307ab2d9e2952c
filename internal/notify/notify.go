// Package notify delivers commentary alerts to Discord channels.
package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// Delivery is the outcome for one destination.
type Delivery struct {
	Destination string
	Err         error
}

// OK reports whether the message was accepted.
func (d Delivery) OK() bool {
	return d.Err == nil
}

// Notifier sends a text message to zero or more destinations. Every
// destination is tried once, independently of the others.
type Notifier interface {
	Notify(ctx context.Context, message string, destinations []string) []Delivery
}

// ChannelSender is the part of *discordgo.Session used for delivery.
type ChannelSender interface {
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// DiscordNotifier posts plain text messages to Discord channels over REST.
type DiscordNotifier struct {
	sender ChannelSender
	logger *zap.Logger
}

// NewDiscordSession returns a REST-only session for token. The gateway is
// never opened. Retries are left to the next alert rather than the client.
func NewDiscordSession(token string) (*discordgo.Session, error) {
	if !strings.HasPrefix(token, "Bot ") {
		token = "Bot " + token
	}
	session, err := discordgo.New(token)
	if err != nil {
		return nil, fmt.Errorf("creating Discord session: %w", err)
	}
	session.ShouldRetryOnRateLimit = false
	session.MaxRestRetries = 0
	return session, nil
}

// NewDiscord builds a notifier backed by a fresh session for token.
func NewDiscord(token string, logger *zap.Logger) (*DiscordNotifier, error) {
	session, err := NewDiscordSession(token)
	if err != nil {
		return nil, err
	}
	return NewDiscordWithSender(session, logger), nil
}

// NewDiscordWithSender wraps an existing sender.
func NewDiscordWithSender(sender ChannelSender, logger *zap.Logger) *DiscordNotifier {
	return &DiscordNotifier{sender: sender, logger: logger.Named("discord")}
}

// Notify posts message to every channel in destinations.
func (n *DiscordNotifier) Notify(ctx context.Context, message string, destinations []string) []Delivery {
	if len(destinations) == 0 {
		n.logger.Warn("Discord integration not configured, skipping message")
		return nil
	}

	deliveries := make([]Delivery, 0, len(destinations))
	for _, channelID := range destinations {
		_, err := n.sender.ChannelMessageSend(channelID, message, discordgo.WithContext(ctx))
		if err != nil {
			n.logger.Error("failed to send message to Discord channel",
				zap.String("channel_id", channelID),
				zap.Error(err),
			)
		} else {
			n.logger.Info("sent message to Discord channel", zap.String("channel_id", channelID))
		}
		deliveries = append(deliveries, Delivery{Destination: channelID, Err: err})
	}
	return deliveries
}

// NoopNotifier stands in when notifications are disabled.
type NoopNotifier struct {
	logger *zap.Logger
}

// NewNoop returns a notifier that only logs.
func NewNoop(logger *zap.Logger) *NoopNotifier {
	return &NoopNotifier{logger: logger.Named("notify")}
}

// Notify logs and drops the message.
func (n *NoopNotifier) Notify(_ context.Context, message string, _ []string) []Delivery {
	n.logger.Debug("notifications disabled, dropping message", zap.String("message", message))
	return nil
}
