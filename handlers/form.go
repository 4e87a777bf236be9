package handlers

import (
	"fmt"
	"html"
	"strings"

	"github.com/go-telegram/bot/models"

	"go_community_bot/database"
	"go_community_bot/form"
	"go_community_bot/messages"
)

func (h *Handler) promptFor(step form.Step) string {
	switch step {
	case form.StepName:
		return messages.MsgAskName
	case form.StepProfession:
		return messages.MsgAskProfession
	case form.StepDistricts:
		return messages.MsgAskDistricts
	case form.StepPhone:
		return messages.MsgAskPhone
	case form.StepInstagram:
		return messages.MsgAskInstagram
	case form.StepTelegram:
		return messages.MsgAskTelegram
	case form.StepPrice:
		return messages.MsgAskPrice
	case form.StepDescription:
		return messages.MsgAskDescription
	case form.StepMedia:
		return messages.FormatAskMedia(h.cfg.MaxMediaCount)
	}
	return messages.MsgFormNotActive
}

func (h *Handler) formKeyboard(step form.Step) *models.InlineKeyboardMarkup {
	row := []models.InlineKeyboardButton{
		{Text: "⬅️ Назад", CallbackData: "form:back"},
		{Text: "❌ Отмена", CallbackData: "form:cancel"},
	}
	if step == form.StepMedia {
		row = append(row,
			models.InlineKeyboardButton{Text: "🕶 Анонимно", CallbackData: "form:anon"},
			models.InlineKeyboardButton{Text: "➡️ Далее", CallbackData: "form:done"})
	}
	return &models.InlineKeyboardMarkup{InlineKeyboard: [][]models.InlineKeyboardButton{row}}
}

// buildPost собирает durable-пост из завершённой анкеты.
// Текст рендерится один раз здесь и сохраняется как есть.
func buildPost(d *form.Draft) *database.Post {
	category := "объявления"
	icon := "📝"
	if d.Piar {
		category = "услуги"
		icon = "🛠"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s <b>%s</b> — %s\n", icon, html.EscapeString(d.Name), html.EscapeString(d.Profession))
	fmt.Fprintf(&sb, "📍 %s\n", html.EscapeString(strings.Join(d.Districts, ", ")))
	if d.Phone != "" {
		fmt.Fprintf(&sb, "📞 %s\n", html.EscapeString(d.Phone))
	}
	if d.Instagram != "" {
		fmt.Fprintf(&sb, "📷 instagram.com/%s\n", html.EscapeString(d.Instagram))
	}
	if d.Telegram != "" {
		fmt.Fprintf(&sb, "✈️ %s\n", html.EscapeString(d.Telegram))
	}
	fmt.Fprintf(&sb, "💰 %s\n\n%s", html.EscapeString(d.Price), html.EscapeString(d.Description))

	hashtags := make([]string, 0, len(d.Districts)+1)
	hashtags = append(hashtags, category)
	for _, district := range d.Districts {
		if tag := hashtag(district); tag != "" {
			hashtags = append(hashtags, tag)
		}
	}

	return &database.Post{
		Category:    category,
		ContentText: sb.String(),
		Media:       d.Media,
		Hashtags:    hashtags,
		IsAnonymous: d.Anonymous,
		IsPiar:      d.Piar,
	}
}

// hashtag выкидывает из значения всё, кроме букв и цифр.
func hashtag(s string) string {
	var sb strings.Builder
	for _, r := range s {
		if r == ' ' || r == '-' || r == '#' || r == ',' {
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
