package cooldown

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"go_community_bot/access"
	"go_community_bot/database"
)

type fakeStore struct {
	users    map[int64]*database.User
	getCalls int
	setCalls int
	failAll  bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{users: make(map[int64]*database.User)}
}

func (s *fakeStore) GetUser(_ context.Context, id int64) (*database.User, error) {
	s.getCalls++
	if s.failAll {
		return nil, errors.New("хранилище недоступно")
	}
	u, ok := s.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return u, nil
}

func (s *fakeStore) SetCooldown(_ context.Context, userID int64, until time.Time) error {
	s.setCalls++
	if s.failAll {
		return errors.New("хранилище недоступно")
	}
	u, ok := s.users[userID]
	if !ok {
		u = &database.User{ID: userID}
		s.users[userID] = u
	}
	u.CooldownUntil = &until
	return nil
}

func (s *fakeStore) ClearCooldown(_ context.Context, userID int64) error {
	if s.failAll {
		return errors.New("хранилище недоступно")
	}
	if u, ok := s.users[userID]; ok {
		u.CooldownUntil = nil
	}
	return nil
}

func newGate(store Store, roles *access.Roles, window time.Duration) (*Gate, *time.Time) {
	g := New(store, roles, window, zap.NewNop())
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return now }
	return g, &now
}

func TestCooldownMonotonicity(t *testing.T) {
	store := newFakeStore()
	g, now := newGate(store, access.New(nil, nil), time.Hour)
	ctx := context.Background()

	allowed, remaining := g.CanPost(ctx, 111)
	if !allowed || remaining != 0 {
		t.Fatalf("до первой публикации: (%v, %v), ожидалось (true, 0)", allowed, remaining)
	}

	g.Update(ctx, 111)

	allowed, remaining = g.CanPost(ctx, 111)
	if allowed {
		t.Fatal("сразу после публикации гейт должен быть закрыт")
	}
	if remaining != time.Hour {
		t.Errorf("remaining = %v, ожидался %v", remaining, time.Hour)
	}

	// За секунду до конца окна — всё ещё закрыт
	*now = now.Add(time.Hour - time.Second)
	allowed, remaining = g.CanPost(ctx, 111)
	if allowed {
		t.Fatal("за секунду до конца окна гейт должен быть закрыт")
	}
	if remaining != time.Second {
		t.Errorf("remaining = %v, ожидалась секунда", remaining)
	}

	// Окно истекло
	*now = now.Add(time.Second)
	allowed, _ = g.CanPost(ctx, 111)
	if !allowed {
		t.Fatal("после окна гейт должен открыться")
	}
}

func TestModeratorBypass(t *testing.T) {
	store := newFakeStore()
	g, _ := newGate(store, access.New(nil, []int64{222}), time.Hour)
	ctx := context.Background()

	g.Update(ctx, 222)

	allowed, remaining := g.CanPost(ctx, 222)
	if !allowed || remaining != 0 {
		t.Errorf("модератор: (%v, %v), ожидалось (true, 0)", allowed, remaining)
	}
	if store.setCalls != 0 {
		t.Error("Update для модератора не должен трогать хранилище")
	}
}

// После рестарта кэш пуст — гейт читает cooldown_until из БД
// и подогревает кэш, чтобы не ходить в неё повторно.
func TestPersistedBackfill(t *testing.T) {
	store := newFakeStore()
	g, now := newGate(store, access.New(nil, nil), time.Hour)
	ctx := context.Background()

	until := now.Add(30 * time.Minute)
	store.users[111] = &database.User{ID: 111, CooldownUntil: &until}

	allowed, remaining := g.CanPost(ctx, 111)
	if allowed {
		t.Fatal("персистентный кулдаун должен закрывать гейт")
	}
	if remaining != 30*time.Minute {
		t.Errorf("remaining = %v, ожидалось 30m", remaining)
	}

	getCalls := store.getCalls
	g.CanPost(ctx, 111)
	if store.getCalls != getCalls {
		t.Error("после подогрева кэша повторная проверка не должна ходить в БД")
	}
}

func TestFailOpen(t *testing.T) {
	store := newFakeStore()
	store.failAll = true
	g, _ := newGate(store, access.New(nil, nil), time.Hour)

	allowed, remaining := g.CanPost(context.Background(), 999)
	if !allowed || remaining != 0 {
		t.Errorf("при сбое хранилища: (%v, %v), ожидалось (true, 0)", allowed, remaining)
	}
}

// Провал записи в БД не откатывает кэш: кулдаун действует в рамках процесса.
func TestCacheAuthoritativeOnWriteFailure(t *testing.T) {
	store := newFakeStore()
	store.failAll = true
	g, _ := newGate(store, access.New(nil, nil), time.Hour)
	ctx := context.Background()

	g.Update(ctx, 111)

	allowed, _ := g.CanPost(ctx, 111)
	if allowed {
		t.Error("кэш должен закрывать гейт даже при сбое записи в БД")
	}
}

func TestReset(t *testing.T) {
	store := newFakeStore()
	g, _ := newGate(store, access.New(nil, nil), time.Hour)
	ctx := context.Background()

	g.Update(ctx, 111)
	if err := g.Reset(ctx, 111); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	allowed, _ := g.CanPost(ctx, 111)
	if !allowed {
		t.Error("после Reset гейт должен быть открыт")
	}

	// Идемпотентность
	if err := g.Reset(ctx, 111); err != nil {
		t.Errorf("повторный Reset: %v", err)
	}
}
