// Пакет lifecycle — жизненный цикл поста:
// pending --approve--> approved, pending --reject--> rejected.
// Терминальные статусы поглощающие, возврата в pending нет.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"go_community_bot/access"
	"go_community_bot/database"
)

type Decision int

const (
	Approve Decision = iota
	Reject
)

// Store — персистентная часть жизненного цикла.
type Store interface {
	GetUser(ctx context.Context, id int64) (*database.User, error)
	CreatePost(ctx context.Context, p *database.Post) (*database.Post, error)
	GetPost(ctx context.Context, id int64) (*database.Post, error)
	SetPostModerationMessage(ctx context.Context, postID int64, messageID int) error
	FinalizePostStatus(ctx context.Context, postID int64, status database.PostStatus) (bool, error)
}

// Notifier — внешние эффекты: зеркало в модераторский чат,
// публикация в канал, личные уведомления.
type Notifier interface {
	MirrorToModeration(ctx context.Context, p *database.Post) (int, error)
	Publish(ctx context.Context, p *database.Post) error
	NotifyApproved(ctx context.Context, userID int64) error
	NotifyRejected(ctx context.Context, userID int64, reason string) error
}

// Gate — кулдаун-гейт (см. пакет cooldown).
type Gate interface {
	CanPost(ctx context.Context, userID int64) (bool, time.Duration)
	Update(ctx context.Context, userID int64)
}

type Service struct {
	store    Store
	notifier Notifier
	gate     Gate
	roles    *access.Roles
	logger   *zap.Logger
}

func NewService(store Store, notifier Notifier, gate Gate, roles *access.Roles, logger *zap.Logger) *Service {
	return &Service{store: store, notifier: notifier, gate: gate, roles: roles, logger: logger}
}

// Submit создаёт pending-пост из завершённой анкеты или готовых полей.
// Провал зеркалирования в модераторский чат не валит отправку —
// страдает только интерфейс модераторов.
func (s *Service) Submit(ctx context.Context, userID int64, p *database.Post) (*database.Post, error) {
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrActorNotFound
		}
		return nil, fmt.Errorf("загрузка пользователя: %w", err)
	}

	if allowed, remaining := s.gate.CanPost(ctx, userID); !allowed {
		return nil, &CooldownActiveError{Remaining: remaining}
	}

	p.UserID = userID
	created, err := s.store.CreatePost(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("сохранение поста: %w", err)
	}

	msgID, err := s.notifier.MirrorToModeration(ctx, created)
	if err != nil {
		s.logger.Warn("не удалось отправить пост на модерацию",
			zap.Int64("post_id", created.ID), zap.Error(err))
	} else if err := s.store.SetPostModerationMessage(ctx, created.ID, msgID); err != nil {
		s.logger.Warn("не удалось сохранить id модераторского сообщения",
			zap.Int64("post_id", created.ID), zap.Error(err))
	} else {
		created.ModerationMessageID = &msgID
	}

	// Гейт сам пропускает модераторов
	s.gate.Update(ctx, userID)

	s.logger.Info("пост принят на модерацию",
		zap.Int64("post_id", created.ID), zap.Int64("user_id", userID))
	return created, nil
}

// Decide применяет решение модератора. Повторное решение по уже
// рассмотренному посту возвращает ErrInvalidTransition и ничего не меняет.
func (s *Service) Decide(ctx context.Context, postID int64, decision Decision, moderatorID int64, reason string) error {
	p, err := s.store.GetPost(ctx, postID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrInvalidTransition
		}
		return fmt.Errorf("загрузка поста: %w", err)
	}
	if p.Status != database.StatusPending {
		return ErrInvalidTransition
	}

	if !s.roles.IsModerator(moderatorID) {
		return ErrUnauthorized
	}

	status := database.StatusApproved
	if decision == Reject {
		status = database.StatusRejected
	}

	// Статус фиксируется до публикации: UPDATE с guard по pending
	// закрывает гонку двух одновременных решений.
	changed, err := s.store.FinalizePostStatus(ctx, postID, status)
	if err != nil {
		return fmt.Errorf("сохранение статуса: %w", err)
	}
	if !changed {
		return ErrInvalidTransition
	}
	p.Status = status

	if decision == Approve {
		if err := s.notifier.Publish(ctx, p); err != nil {
			// Статус уже зафиксирован, публикацию не откатываем
			s.logger.Error("не удалось опубликовать одобренный пост",
				zap.Int64("post_id", postID), zap.Error(err))
		}
		if err := s.notifier.NotifyApproved(ctx, p.UserID); err != nil {
			s.logger.Warn("не удалось уведомить автора об одобрении",
				zap.Int64("user_id", p.UserID), zap.Error(err))
		}
	} else {
		if err := s.notifier.NotifyRejected(ctx, p.UserID, reason); err != nil {
			s.logger.Warn("не удалось уведомить автора об отклонении",
				zap.Int64("user_id", p.UserID), zap.Error(err))
		}
	}

	s.logger.Info("решение по посту",
		zap.Int64("post_id", postID),
		zap.Int64("moderator_id", moderatorID),
		zap.String("status", string(status)))
	return nil
}
