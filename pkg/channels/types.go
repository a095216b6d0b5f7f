// Package channels defines the pluggable messaging surfaces a gateway
// instance can bridge conversations through.
package channels

import "context"

// IncomingMessage is one inbound user message normalized across plugins.
type IncomingMessage struct {
	Channel  string
	ChatID   string
	SenderID string
	Content  string
}

type OutgoingMessage struct {
	Channel string
	ChatID  string
	Content string
}

// MessageHandler receives inbound messages. The reply text returned is
// sent back on the originating channel; an empty reply sends nothing.
type MessageHandler func(ctx context.Context, msg *IncomingMessage) (string, error)

// ChannelPlugin is one messaging backend. Plugins run their own receive
// loops after Start and must stop them when the context is cancelled.
type ChannelPlugin interface {
	Name() string
	Start(ctx context.Context, handler MessageHandler) error
	Send(ctx context.Context, msg *OutgoingMessage) error
	React(ctx context.Context, chatID, messageID, emoji string) error
	IsConnected() bool
}
