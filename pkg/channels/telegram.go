package channels

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"github.com/clawgate/clawgate/pkg/config"
	"github.com/clawgate/clawgate/pkg/logger"
)

const telegramMaxMessageLength = 4096

// TelegramChannel bridges Telegram chats over long polling.
type TelegramChannel struct {
	bot       *telego.Bot
	allowFrom []string
	connected atomic.Bool
}

func NewTelegramChannel(cfg config.TelegramConfig) (*TelegramChannel, error) {
	bot, err := telego.NewBot(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return &TelegramChannel{
		bot:       bot,
		allowFrom: cfg.AllowFrom,
	}, nil
}

func (c *TelegramChannel) Name() string {
	return "telegram"
}

func (c *TelegramChannel) IsConnected() bool {
	return c.connected.Load()
}

func (c *TelegramChannel) Start(ctx context.Context, handler MessageHandler) error {
	updates, err := c.bot.UpdatesViaLongPolling(ctx, &telego.GetUpdatesParams{
		Timeout: 30,
	})
	if err != nil {
		return fmt.Errorf("failed to start long polling: %w", err)
	}

	c.connected.Store(true)
	logger.InfoC("telegram", "Telegram bot connected")

	go func() {
		defer c.connected.Store(false)
		for {
			select {
			case <-ctx.Done():
				return
			case update, ok := <-updates:
				if !ok {
					logger.WarnC("telegram", "updates channel closed")
					return
				}
				if update.Message != nil {
					c.handleMessage(ctx, update.Message, handler)
				}
			}
		}
	}()

	return nil
}

func (c *TelegramChannel) handleMessage(ctx context.Context, message *telego.Message, handler MessageHandler) {
	if message.From == nil || message.Text == "" {
		return
	}

	senderID := strconv.FormatInt(message.From.ID, 10)
	if !c.senderAllowed(senderID, message.From.Username) {
		logger.WarnCF("telegram", "sender not in allow list", map[string]any{
			"sender": senderID,
		})
		return
	}

	chatID := strconv.FormatInt(message.Chat.ID, 10)
	reply, err := handler(ctx, &IncomingMessage{
		Channel:  "telegram",
		ChatID:   chatID,
		SenderID: senderID,
		Content:  message.Text,
	})
	if err != nil {
		logger.ErrorCF("telegram", "message handler failed", map[string]any{
			"chat_id": chatID,
			"error":   err.Error(),
		})
		return
	}
	if reply == "" {
		return
	}

	if err := c.Send(ctx, &OutgoingMessage{Channel: "telegram", ChatID: chatID, Content: reply}); err != nil {
		logger.ErrorCF("telegram", "failed to send reply", map[string]any{
			"chat_id": chatID,
			"error":   err.Error(),
		})
	}
}

// senderAllowed applies the allow-from filter. An empty list allows
// everyone; entries match either the numeric user ID or the username.
func (c *TelegramChannel) senderAllowed(senderID, username string) bool {
	if len(c.allowFrom) == 0 {
		return true
	}
	for _, allowed := range c.allowFrom {
		if allowed == senderID || (username != "" && allowed == username) {
			return true
		}
	}
	return false
}

func (c *TelegramChannel) Send(ctx context.Context, msg *OutgoingMessage) error {
	if !c.connected.Load() {
		return fmt.Errorf("telegram bot not running")
	}

	chatID, err := strconv.ParseInt(msg.ChatID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid chat ID %q: %w", msg.ChatID, err)
	}

	for _, chunk := range splitMessageContent(msg.Content, telegramMaxMessageLength) {
		if _, err := c.bot.SendMessage(ctx, tu.Message(tu.ID(chatID), chunk)); err != nil {
			return fmt.Errorf("telegram send: %w", err)
		}
	}
	return nil
}

// React sets a single emoji reaction on a message.
func (c *TelegramChannel) React(ctx context.Context, chatID, messageID, emoji string) error {
	if !c.connected.Load() {
		return fmt.Errorf("telegram bot not running")
	}

	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid chat ID %q: %w", chatID, err)
	}
	msgID, err := strconv.Atoi(messageID)
	if err != nil {
		return fmt.Errorf("invalid message ID %q: %w", messageID, err)
	}

	return c.bot.SetMessageReaction(ctx, &telego.SetMessageReactionParams{
		ChatID:    tu.ID(id),
		MessageID: msgID,
		Reaction: []telego.ReactionType{
			&telego.ReactionTypeEmoji{Type: telego.ReactionEmoji, Emoji: emoji},
		},
	})
}

// splitMessageContent chunks content to fit the platform message limit,
// splitting on rune boundaries.
func splitMessageContent(content string, limit int) []string {
	if content == "" {
		return nil
	}
	runes := []rune(content)
	var chunks []string
	for len(runes) > limit {
		chunks = append(chunks, string(runes[:limit]))
		runes = runes[limit:]
	}
	return append(chunks, string(runes))
}
