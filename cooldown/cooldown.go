// Пакет cooldown — ограничение частоты публикаций.
// Два уровня состояния: expirable LRU-кэш (источник истины для "можно ли
// сейчас") и cooldown_until на строке пользователя (переживает рестарт).
package cooldown

import (
	"context"
	"errors"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"go_community_bot/access"
	"go_community_bot/database"
)

const cacheSize = 8192

// Store — персистентная часть кулдауна.
type Store interface {
	GetUser(ctx context.Context, id int64) (*database.User, error)
	SetCooldown(ctx context.Context, userID int64, until time.Time) error
	ClearCooldown(ctx context.Context, userID int64) error
}

// Gate решает, может ли пользователь отправить новый пост.
// Модераторы не имеют кулдауна. При недоступности хранилища гейт
// открывается (fail-open): инфраструктурный сбой никогда не блокирует
// пользователя навсегда.
type Gate struct {
	cache  *expirable.LRU[int64, time.Time]
	store  Store
	roles  *access.Roles
	window time.Duration
	logger *zap.Logger

	now func() time.Time
}

func New(store Store, roles *access.Roles, window time.Duration, logger *zap.Logger) *Gate {
	return &Gate{
		// TTL кэша равен окну: записи истекают сами
		cache:  expirable.NewLRU[int64, time.Time](cacheSize, nil, window),
		store:  store,
		roles:  roles,
		window: window,
		logger: logger,
		now:    time.Now,
	}
}

// CanPost возвращает (true, 0), если пользователь может публиковать,
// иначе (false, сколько осталось ждать).
func (g *Gate) CanPost(ctx context.Context, userID int64) (bool, time.Duration) {
	if g.roles.IsModerator(userID) {
		return true, 0
	}

	now := g.now()

	if last, ok := g.cache.Get(userID); ok {
		if elapsed := now.Sub(last); elapsed < g.window {
			return false, g.window - elapsed
		}
		return true, 0
	}

	u, err := g.store.GetUser(ctx, userID)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			g.logger.Warn("кулдаун: хранилище недоступно, пропускаем",
				zap.Int64("user_id", userID), zap.Error(err))
		}
		return true, 0
	}

	if u.CooldownUntil != nil && u.CooldownUntil.After(now) {
		// Подогреваем кэш, чтобы следующие проверки не ходили в БД
		g.cache.Add(userID, u.CooldownUntil.Add(-g.window))
		return false, u.CooldownUntil.Sub(now)
	}

	return true, 0
}

// Update фиксирует факт публикации. Кэш обновляется безусловно,
// запись в хранилище best-effort: её провал не откатывает кэш.
func (g *Gate) Update(ctx context.Context, userID int64) {
	if g.roles.IsModerator(userID) {
		return
	}

	now := g.now()
	g.cache.Add(userID, now)

	if err := g.store.SetCooldown(ctx, userID, now.Add(g.window)); err != nil {
		g.logger.Warn("кулдаун: не удалось сохранить",
			zap.Int64("user_id", userID), zap.Error(err))
	}
}

// Reset снимает кулдаун (модераторское действие). Идемпотентен.
func (g *Gate) Reset(ctx context.Context, userID int64) error {
	g.cache.Remove(userID)
	return g.store.ClearCooldown(ctx, userID)
}
