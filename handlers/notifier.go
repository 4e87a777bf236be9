package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"go_community_bot/config"
	"go_community_bot/database"
	"go_community_bot/messages"
)

// Notifier — внешние эффекты жизненного цикла поверх Telegram:
// зеркало в модераторский чат, публикация в канал, личные уведомления.
type Notifier struct {
	bot *bot.Bot
	cfg *config.Config
}

func NewNotifier(b *bot.Bot, cfg *config.Config) *Notifier {
	return &Notifier{bot: b, cfg: cfg}
}

// MirrorToModeration отправляет представление поста с кнопками
// одобрить/отклонить в модераторский чат. Возвращает id сообщения.
func (n *Notifier) MirrorToModeration(ctx context.Context, p *database.Post) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, n.cfg.RequestTimeout)
	defer cancel()

	text := formatModeration(p)
	keyboard := &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{{
			{Text: "✅ Одобрить", CallbackData: approveData(p.ID)},
			{Text: "❌ Отклонить", CallbackData: rejectData(p.ID)},
		}},
	}

	if len(p.Media) > 0 {
		msg, err := n.bot.SendPhoto(ctx, &bot.SendPhotoParams{
			ChatID:      n.cfg.ModerationChatID,
			Photo:       &models.InputFileString{Data: p.Media[0].FileID},
			Caption:     text,
			ParseMode:   models.ParseModeHTML,
			ReplyMarkup: keyboard,
		})
		if err != nil {
			return 0, err
		}
		return msg.ID, nil
	}

	msg, err := n.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      n.cfg.ModerationChatID,
		Text:        text,
		ParseMode:   models.ParseModeHTML,
		ReplyMarkup: keyboard,
	})
	if err != nil {
		return 0, err
	}
	return msg.ID, nil
}

// Publish публикует одобренный пост в канал по его типу.
func (n *Notifier) Publish(ctx context.Context, p *database.Post) error {
	ctx, cancel := context.WithTimeout(ctx, n.cfg.RequestTimeout)
	defer cancel()

	dest := n.cfg.DestinationFor(p.IsPiar)
	text := formatPublic(p)

	switch {
	case len(p.Media) > 1:
		media := make([]models.InputMedia, 0, len(p.Media))
		for i, m := range p.Media {
			item := &models.InputMediaPhoto{Media: m.FileID}
			if i == 0 {
				item.Caption = text
				item.ParseMode = models.ParseModeHTML
			}
			media = append(media, item)
		}
		_, err := n.bot.SendMediaGroup(ctx, &bot.SendMediaGroupParams{
			ChatID: dest,
			Media:  media,
		})
		return err
	case len(p.Media) == 1:
		_, err := n.bot.SendPhoto(ctx, &bot.SendPhotoParams{
			ChatID:    dest,
			Photo:     &models.InputFileString{Data: p.Media[0].FileID},
			Caption:   text,
			ParseMode: models.ParseModeHTML,
		})
		return err
	default:
		_, err := n.bot.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:    dest,
			Text:      text,
			ParseMode: models.ParseModeHTML,
		})
		return err
	}
}

func (n *Notifier) NotifyApproved(ctx context.Context, userID int64) error {
	return n.notify(ctx, userID, messages.MsgApproved)
}

func (n *Notifier) NotifyRejected(ctx context.Context, userID int64, reason string) error {
	return n.notify(ctx, userID, messages.FormatRejected(reason))
}

func (n *Notifier) notify(ctx context.Context, userID int64, text string) error {
	ctx, cancel := context.WithTimeout(ctx, n.cfg.RequestTimeout)
	defer cancel()
	_, err := n.bot.SendMessage(ctx, &bot.SendMessageParams{ChatID: userID, Text: text})
	return err
}

func formatModeration(p *database.Post) string {
	var sb strings.Builder
	kind := "Пост"
	if p.IsPiar {
		kind = "Услуга"
	}
	fmt.Fprintf(&sb, "📬 <b>%s #%d</b>\n", kind, p.ID)
	fmt.Fprintf(&sb, `👤 <a href="tg://user?id=%d">автор</a>`, p.UserID)
	if p.IsAnonymous {
		sb.WriteString(" (аноним для читателей)")
	}
	sb.WriteString("\n\n")
	sb.WriteString(p.ContentText)
	if len(p.Media) > 1 {
		fmt.Fprintf(&sb, "\n\n📎 вложений: %d", len(p.Media))
	}
	return sb.String()
}

func formatPublic(p *database.Post) string {
	var sb strings.Builder
	sb.WriteString(p.ContentText)
	if len(p.Hashtags) > 0 {
		sb.WriteString("\n\n")
		for i, tag := range p.Hashtags {
			if i > 0 {
				sb.WriteString(" ")
			}
			sb.WriteString("#" + tag)
		}
	}
	return sb.String()
}
