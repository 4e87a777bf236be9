package handlers

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"

	"go_community_bot/access"
	"go_community_bot/config"
	"go_community_bot/cooldown"
	"go_community_bot/database"
	"go_community_bot/form"
	"go_community_bot/lifecycle"
	"go_community_bot/messages"
	"go_community_bot/tglog"
)

type Handler struct {
	bot       *bot.Bot
	cfg       *config.Config
	db        *database.DB
	roles     *access.Roles
	collector *form.Collector
	service   *lifecycle.Service
	gate      *cooldown.Gate
	logger    *zap.Logger

	// Модераторы, от которых ждём причину отклонения: id -> id поста
	mu            sync.Mutex
	rejectPending map[int64]int64
}

func New(b *bot.Bot, cfg *config.Config, db *database.DB, roles *access.Roles,
	collector *form.Collector, service *lifecycle.Service, gate *cooldown.Gate,
	logger *zap.Logger) *Handler {
	return &Handler{
		bot:           b,
		cfg:           cfg,
		db:            db,
		roles:         roles,
		collector:     collector,
		service:       service,
		gate:          gate,
		logger:        logger,
		rejectPending: make(map[int64]int64),
	}
}

func (h *Handler) OnMessage(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	msg := update.Message
	if msg.Chat.Type != "private" {
		return
	}
	userID := msg.From.ID

	u := h.upsertUser(ctx, msg)
	if u != nil {
		if u.Banned() {
			h.send(ctx, userID, messages.MsgBanned)
			return
		}
		if u.Muted(time.Now()) {
			return
		}
	}

	if strings.HasPrefix(msg.Text, "/start") {
		h.sendWelcome(ctx, userID)
		return
	}

	if strings.HasPrefix(msg.Text, "/") && h.roles.IsModerator(userID) {
		h.onModeratorCommand(ctx, userID, msg.Text)
		return
	}

	if postID, ok := h.takeRejectPending(userID); ok {
		h.decide(ctx, userID, postID, lifecycle.Reject, strings.TrimSpace(msg.Text))
		return
	}

	if step, active := h.collector.Active(userID); active {
		h.onFormMessage(ctx, userID, step, msg)
		return
	}

	h.sendWelcome(ctx, userID)
}

func (h *Handler) OnCallback(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}
	cb := update.CallbackQuery
	userID := cb.From.ID

	_, err := b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{CallbackQueryID: cb.ID})
	if err != nil {
		return
	}

	cmd, err := ParseCallback(cb.Data)
	if err != nil {
		h.logger.Debug("необрабатываемый callback", zap.String("data", cb.Data))
		return
	}

	switch c := cmd.(type) {
	case StartForm:
		step := h.collector.Start(userID, c.Piar)
		h.sendWithKeyboard(ctx, userID, h.promptFor(step), h.formKeyboard(step))
	case FormBack:
		step, moved := h.collector.Back(userID)
		if !moved {
			// С первого шага или без анкеты — просто перерисовываем начало
			if _, active := h.collector.Active(userID); !active {
				h.send(ctx, userID, messages.MsgFormNotActive)
				return
			}
		}
		h.sendWithKeyboard(ctx, userID, h.promptFor(step), h.formKeyboard(step))
	case FormCancel:
		h.collector.Cancel(userID)
		h.send(ctx, userID, messages.MsgFormCancelled)
	case FormDone:
		h.completeForm(ctx, userID)
	case FormAnon:
		anon, err := h.collector.ToggleAnonymous(userID)
		if err != nil {
			h.send(ctx, userID, messages.MsgFormNotActive)
			return
		}
		if anon {
			h.send(ctx, userID, messages.MsgAnonymousOn)
		} else {
			h.send(ctx, userID, messages.MsgAnonymousOff)
		}
	case ApprovePost:
		if !h.roles.IsModerator(userID) {
			h.send(ctx, userID, messages.MsgNoPermission)
			return
		}
		h.decide(ctx, userID, c.PostID, lifecycle.Approve, "")
		h.dropKeyboard(ctx, cb)
	case RejectPost:
		if !h.roles.IsModerator(userID) {
			h.send(ctx, userID, messages.MsgNoPermission)
			return
		}
		h.setRejectPending(userID, c.PostID)
		h.send(ctx, userID, messages.MsgAskRejectReason)
		h.dropKeyboard(ctx, cb)
	}
}

// ============================================
// Анкета
// ============================================

func (h *Handler) onFormMessage(ctx context.Context, userID int64, step form.Step, msg *models.Message) {
	if step == form.StepMedia {
		if len(msg.Photo) > 0 {
			photo := msg.Photo[len(msg.Photo)-1]
			n, full, err := h.collector.AddMedia(userID, database.MediaItem{Type: "photo", FileID: photo.FileID})
			if err != nil {
				h.send(ctx, userID, messages.FormatAskMedia(h.cfg.MaxMediaCount))
				return
			}
			if full {
				h.completeForm(ctx, userID)
				return
			}
			h.send(ctx, userID, messages.FormatMediaAccepted(n, h.cfg.MaxMediaCount))
			return
		}
		h.sendWithKeyboard(ctx, userID, messages.FormatAskMedia(h.cfg.MaxMediaCount), h.formKeyboard(step))
		return
	}

	next, err := h.collector.Input(userID, msg.Text)
	if err != nil {
		var verr *form.ValidationError
		if errors.As(err, &verr) {
			h.send(ctx, userID, messages.FormatValidation(verr.Reason))
			return
		}
		h.send(ctx, userID, messages.MsgTryLater)
		return
	}
	h.sendWithKeyboard(ctx, userID, h.promptFor(next), h.formKeyboard(next))
}

func (h *Handler) completeForm(ctx context.Context, userID int64) {
	draft, ok := h.collector.Take(userID)
	if !ok {
		h.send(ctx, userID, messages.MsgFormNotActive)
		return
	}

	p, err := h.service.Submit(ctx, userID, buildPost(draft))
	if err != nil {
		var cerr *lifecycle.CooldownActiveError
		switch {
		case errors.As(err, &cerr):
			h.send(ctx, userID, messages.FormatCooldown(cerr.Remaining))
		case errors.Is(err, lifecycle.ErrActorNotFound):
			h.send(ctx, userID, messages.MsgNotRegistered)
		default:
			h.logger.Error("отправка поста не удалась", zap.Int64("user_id", userID), zap.Error(err))
			h.send(ctx, userID, messages.MsgTryLater)
		}
		return
	}

	h.send(ctx, userID, messages.MsgSubmitted)
	tglog.Send("📬 Новый пост #%d от <a href=\"tg://user?id=%d\">пользователя</a>", p.ID, userID)
}

// ============================================
// Модерация
// ============================================

func (h *Handler) decide(ctx context.Context, moderatorID, postID int64, decision lifecycle.Decision, reason string) {
	err := h.service.Decide(ctx, postID, decision, moderatorID, reason)
	switch {
	case err == nil:
		verdict := "одобрен"
		if decision == lifecycle.Reject {
			verdict = "отклонён"
		}
		h.send(ctx, moderatorID, messages.FormatPostDecided(postID, verdict))
		tglog.Send("⚖️ Пост #%d %s модератором %d", postID, verdict, moderatorID)
	case errors.Is(err, lifecycle.ErrInvalidTransition):
		h.send(ctx, moderatorID, messages.MsgAlreadyDecided)
	case errors.Is(err, lifecycle.ErrUnauthorized):
		h.send(ctx, moderatorID, messages.MsgNoPermission)
	default:
		h.logger.Error("решение не применилось", zap.Int64("post_id", postID), zap.Error(err))
		h.send(ctx, moderatorID, messages.MsgTryLater)
	}
}

func (h *Handler) setRejectPending(moderatorID, postID int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.rejectPending[moderatorID] = postID
}

func (h *Handler) takeRejectPending(moderatorID int64) (int64, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	postID, ok := h.rejectPending[moderatorID]
	if ok {
		delete(h.rejectPending, moderatorID)
	}
	return postID, ok
}

func (h *Handler) onModeratorCommand(ctx context.Context, userID int64, text string) {
	cmd, err := ParseModCommand(text)
	if err != nil {
		return
	}

	switch c := cmd.(type) {
	case ResetCooldown:
		if err := h.gate.Reset(ctx, c.UserID); err != nil {
			h.logger.Warn("сброс кулдауна не удался", zap.Int64("target", c.UserID), zap.Error(err))
			h.send(ctx, userID, messages.MsgTryLater)
			return
		}
		h.send(ctx, userID, messages.MsgCooldownReset)
	case BanUser:
		if !h.roles.IsAdmin(userID) {
			return
		}
		if err := h.db.BanUser(ctx, c.UserID, c.Reason); err != nil {
			h.send(ctx, userID, messages.MsgTryLater)
			return
		}
		h.send(ctx, userID, messages.MsgUserBanned)
		tglog.Send("🚫 Пользователь %d забанен админом %d: %s", c.UserID, userID, c.Reason)
	case UnbanUser:
		if !h.roles.IsAdmin(userID) {
			return
		}
		if err := h.db.UnbanUser(ctx, c.UserID); err != nil {
			h.send(ctx, userID, messages.MsgTryLater)
			return
		}
		h.send(ctx, userID, messages.MsgUserUnbanned)
	case MuteUser:
		if err := h.db.MuteUser(ctx, c.UserID, time.Now().Add(c.Dur)); err != nil {
			h.send(ctx, userID, messages.MsgTryLater)
			return
		}
		h.send(ctx, userID, messages.MsgUserMuted)
		tglog.Send("🔇 Пользователь %d замьючен модератором %d на %s", c.UserID, userID, c.Dur)
	}
}

// ============================================
// Служебное
// ============================================

func (h *Handler) upsertUser(ctx context.Context, msg *models.Message) *database.User {
	u, err := h.db.GetOrCreateUser(ctx, msg.From.ID,
		optStr(msg.From.Username), optStr(msg.From.FirstName), optStr(msg.From.LastName))
	if err != nil {
		// Хранилище лежит — работаем дальше на памяти, отправка сама упадёт
		h.logger.Warn("upsert пользователя не удался", zap.Int64("user_id", msg.From.ID), zap.Error(err))
		return nil
	}
	return u
}

func (h *Handler) sendWelcome(ctx context.Context, userID int64) {
	h.sendWithKeyboard(ctx, userID, messages.MsgWelcome, &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{{Text: "📝 Предложить пост", CallbackData: "form:start"}},
			{{Text: "🛠 Разместить услугу", CallbackData: "form:start:piar"}},
		},
	})
}

func (h *Handler) send(ctx context.Context, chatID int64, text string) {
	_, err := h.bot.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text})
	if err != nil {
		return
	}
}

func (h *Handler) sendWithKeyboard(ctx context.Context, chatID int64, text string, kb *models.InlineKeyboardMarkup) {
	_, err := h.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        text,
		ReplyMarkup: kb,
	})
	if err != nil {
		return
	}
}

// dropKeyboard снимает кнопки с модераторского сообщения после решения.
func (h *Handler) dropKeyboard(ctx context.Context, cb *models.CallbackQuery) {
	if cb.Message.Message == nil {
		return
	}
	_, err := h.bot.EditMessageReplyMarkup(ctx, &bot.EditMessageReplyMarkupParams{
		ChatID:    cb.Message.Message.Chat.ID,
		MessageID: cb.Message.Message.ID,
	})
	if err != nil {
		return
	}
}

// CleanupInactiveUsers — периодическая чистка: удаляет незабаненных
// пользователей без постов, неактивных дольше RetentionDays.
func (h *Handler) CleanupInactiveUsers(ctx context.Context) {
	removed, err := h.db.DeleteInactiveUsers(ctx, time.Duration(h.cfg.RetentionDays)*24*time.Hour)
	if err != nil {
		h.logger.Warn("чистка пользователей не удалась", zap.Error(err))
		return
	}
	if removed > 0 {
		h.logger.Info("чистка пользователей", zap.Int64("removed", removed))
		tglog.Send("🧹 Удалено неактивных пользователей: %d", removed)
	}
}

func optStr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
