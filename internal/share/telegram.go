package share

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/storyloom/storyloom/internal/config"
	"github.com/storyloom/storyloom/internal/render"
)

const telegramChunkSize = 4000

// TelegramSharer posts the storyboard to a fixed Telegram chat.
type TelegramSharer struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegramSharer connects the bot with the configured token.
func NewTelegramSharer(cfg config.TelegramShareConfig) (*TelegramSharer, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("telegram: token not configured")
	}
	if cfg.ChatID == 0 {
		return nil, fmt.Errorf("telegram: chatId not configured")
	}
	bot, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("telegram: connect: %w", err)
	}
	return &TelegramSharer{bot: bot, chatID: cfg.ChatID}, nil
}

func (t *TelegramSharer) Name() string { return "telegram" }

// Share sends the story text first, then one photo per filled scene with
// its caption.
func (t *TelegramSharer) Share(_ context.Context, snap render.Snapshot) error {
	if text := storyText(snap); text != "" {
		for _, chunk := range splitText(text, telegramChunkSize) {
			m := tgbotapi.NewMessage(t.chatID, chunk)
			if _, err := t.bot.Send(m); err != nil {
				return fmt.Errorf("send text: %w", err)
			}
		}
	}

	for _, sc := range scenes(snap) {
		p := tgbotapi.NewPhoto(t.chatID, tgbotapi.FilePath(sc.Image))
		p.Caption = sc.Caption
		if _, err := t.bot.Send(p); err != nil {
			return fmt.Errorf("send photo %s: %w", sc.Image, err)
		}
	}
	return nil
}

// splitText chunks long messages at the platform's size limit, breaking
// on newlines where possible.
func splitText(text string, limit int) []string {
	if len(text) <= limit {
		return []string{text}
	}
	var chunks []string
	for len(text) > limit {
		cut := limit
		for i := limit - 1; i > limit/2; i-- {
			if text[i] == '\n' {
				cut = i
				break
			}
		}
		chunks = append(chunks, text[:cut])
		text = text[cut:]
	}
	if text != "" {
		chunks = append(chunks, text)
	}
	return chunks
}
