package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"go_community_bot/access"
	"go_community_bot/cooldown"
	"go_community_bot/database"
)

// fakeStore реализует и lifecycle.Store, и cooldown.Store,
// чтобы гонять сервис с настоящим гейтом.
type fakeStore struct {
	users      map[int64]*database.User
	posts      map[int64]*database.Post
	nextID     int64
	failCreate bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:  make(map[int64]*database.User),
		posts:  make(map[int64]*database.Post),
		nextID: 1,
	}
}

func (s *fakeStore) GetUser(_ context.Context, id int64) (*database.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return u, nil
}

func (s *fakeStore) CreatePost(_ context.Context, p *database.Post) (*database.Post, error) {
	if s.failCreate {
		return nil, errors.New("хранилище недоступно")
	}
	out := *p
	out.ID = s.nextID
	out.Status = database.StatusPending
	out.CreatedAt = time.Now()
	s.nextID++
	s.posts[out.ID] = &out
	return &out, nil
}

func (s *fakeStore) GetPost(_ context.Context, id int64) (*database.Post, error) {
	p, ok := s.posts[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	out := *p
	return &out, nil
}

func (s *fakeStore) SetPostModerationMessage(_ context.Context, postID int64, messageID int) error {
	p, ok := s.posts[postID]
	if !ok {
		return pgx.ErrNoRows
	}
	p.ModerationMessageID = &messageID
	return nil
}

func (s *fakeStore) FinalizePostStatus(_ context.Context, postID int64, status database.PostStatus) (bool, error) {
	p, ok := s.posts[postID]
	if !ok || p.Status != database.StatusPending {
		return false, nil
	}
	p.Status = status
	return true, nil
}

func (s *fakeStore) SetCooldown(_ context.Context, userID int64, until time.Time) error {
	u, ok := s.users[userID]
	if !ok {
		return pgx.ErrNoRows
	}
	u.CooldownUntil = &until
	return nil
}

func (s *fakeStore) ClearCooldown(_ context.Context, userID int64) error {
	if u, ok := s.users[userID]; ok {
		u.CooldownUntil = nil
	}
	return nil
}

type fakeNotifier struct {
	mirrored   []int64
	published  []int64
	piarDest   map[int64]bool
	approved   []int64
	rejected   map[int64]string
	failMirror bool
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{piarDest: make(map[int64]bool), rejected: make(map[int64]string)}
}

func (n *fakeNotifier) MirrorToModeration(_ context.Context, p *database.Post) (int, error) {
	if n.failMirror {
		return 0, errors.New("telegram недоступен")
	}
	n.mirrored = append(n.mirrored, p.ID)
	return 1000 + int(p.ID), nil
}

func (n *fakeNotifier) Publish(_ context.Context, p *database.Post) error {
	n.published = append(n.published, p.ID)
	n.piarDest[p.ID] = p.IsPiar
	return nil
}

func (n *fakeNotifier) NotifyApproved(_ context.Context, userID int64) error {
	n.approved = append(n.approved, userID)
	return nil
}

func (n *fakeNotifier) NotifyRejected(_ context.Context, userID int64, reason string) error {
	n.rejected[userID] = reason
	return nil
}

const window = time.Hour

func newService(store *fakeStore, notifier *fakeNotifier, roles *access.Roles) (*Service, *cooldown.Gate) {
	logger := zap.NewNop()
	gate := cooldown.New(store, roles, window, logger)
	return NewService(store, notifier, gate, roles, logger), gate
}

func piarPost(text string) *database.Post {
	return &database.Post{ContentText: text, IsPiar: true}
}

// Сценарий: обычный пользователь отправляет анкету — появляется
// pending-пост, зеркало уходит модераторам, кулдаун закрывается.
func TestSubmit(t *testing.T) {
	store := newFakeStore()
	store.users[111] = &database.User{ID: 111}
	notifier := newFakeNotifier()
	roles := access.New(nil, nil)
	svc, gate := newService(store, notifier, roles)
	ctx := context.Background()

	p, err := svc.Submit(ctx, 111, piarPost("Анна, стилист"))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if p.Status != database.StatusPending {
		t.Errorf("Status = %v, ожидался pending", p.Status)
	}
	if !p.IsPiar {
		t.Error("флаг услуги потерян")
	}
	if len(notifier.mirrored) != 1 || notifier.mirrored[0] != p.ID {
		t.Errorf("зеркало на модерацию: %v", notifier.mirrored)
	}
	if p.ModerationMessageID == nil || *p.ModerationMessageID != 1000+int(p.ID) {
		t.Errorf("ModerationMessageID = %v", p.ModerationMessageID)
	}

	allowed, remaining := gate.CanPost(ctx, 111)
	if allowed {
		t.Error("после отправки кулдаун должен быть закрыт")
	}
	if remaining <= window-time.Minute || remaining > window {
		t.Errorf("remaining = %v, ожидалось ~%v", remaining, window)
	}
}

func TestSubmitActorNotFound(t *testing.T) {
	store := newFakeStore()
	svc, _ := newService(store, newFakeNotifier(), access.New(nil, nil))

	_, err := svc.Submit(context.Background(), 111, piarPost("x"))
	if !errors.Is(err, ErrActorNotFound) {
		t.Errorf("err = %v, ожидался ErrActorNotFound", err)
	}
}

func TestSubmitCooldownActive(t *testing.T) {
	store := newFakeStore()
	store.users[111] = &database.User{ID: 111}
	svc, _ := newService(store, newFakeNotifier(), access.New(nil, nil))
	ctx := context.Background()

	if _, err := svc.Submit(ctx, 111, piarPost("первый")); err != nil {
		t.Fatal(err)
	}

	_, err := svc.Submit(ctx, 111, piarPost("второй"))
	var cerr *CooldownActiveError
	if !errors.As(err, &cerr) {
		t.Fatalf("err = %v, ожидался CooldownActiveError", err)
	}
	if cerr.Remaining <= 0 || cerr.Remaining > window {
		t.Errorf("Remaining = %v", cerr.Remaining)
	}
	if len(store.posts) != 1 {
		t.Errorf("постов %d, ожидался 1", len(store.posts))
	}
}

// У модераторов кулдауна нет по построению.
func TestModeratorSubmitsWithoutCooldown(t *testing.T) {
	store := newFakeStore()
	store.users[222] = &database.User{ID: 222}
	svc, _ := newService(store, newFakeNotifier(), access.New(nil, []int64{222}))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := svc.Submit(ctx, 222, piarPost("пост")); err != nil {
			t.Fatalf("отправка %d: %v", i+1, err)
		}
	}
}

func TestSubmitSurvivesMirrorFailure(t *testing.T) {
	store := newFakeStore()
	store.users[111] = &database.User{ID: 111}
	notifier := newFakeNotifier()
	notifier.failMirror = true
	svc, _ := newService(store, notifier, access.New(nil, nil))

	p, err := svc.Submit(context.Background(), 111, piarPost("x"))
	if err != nil {
		t.Fatalf("провал зеркала не должен валить отправку: %v", err)
	}
	if p.ModerationMessageID != nil {
		t.Error("ModerationMessageID должен остаться nil")
	}
}

func TestSubmitStorageFailure(t *testing.T) {
	store := newFakeStore()
	store.users[111] = &database.User{ID: 111}
	store.failCreate = true
	svc, _ := newService(store, newFakeNotifier(), access.New(nil, nil))

	if _, err := svc.Submit(context.Background(), 111, piarPost("x")); err == nil {
		t.Error("недоступность хранилища фатальна для отправки")
	}
}

func TestDecideApprove(t *testing.T) {
	store := newFakeStore()
	store.users[111] = &database.User{ID: 111}
	notifier := newFakeNotifier()
	svc, _ := newService(store, notifier, access.New(nil, []int64{222}))
	ctx := context.Background()

	p, err := svc.Submit(ctx, 111, piarPost("Анна, стилист"))
	if err != nil {
		t.Fatal(err)
	}

	if err := svc.Decide(ctx, p.ID, Approve, 222, ""); err != nil {
		t.Fatalf("Decide: %v", err)
	}

	stored := store.posts[p.ID]
	if stored.Status != database.StatusApproved {
		t.Errorf("Status = %v, ожидался approved", stored.Status)
	}
	if len(notifier.published) != 1 {
		t.Fatalf("публикаций %d, ожидалась 1", len(notifier.published))
	}
	if !notifier.piarDest[p.ID] {
		t.Error("пост услуги должен уйти в каталог услуг")
	}
	if len(notifier.approved) != 1 || notifier.approved[0] != 111 {
		t.Errorf("уведомления автору: %v", notifier.approved)
	}
}

func TestDecideReject(t *testing.T) {
	store := newFakeStore()
	store.users[111] = &database.User{ID: 111}
	notifier := newFakeNotifier()
	svc, _ := newService(store, notifier, access.New(nil, []int64{222}))
	ctx := context.Background()

	p, _ := svc.Submit(ctx, 111, piarPost("x"))
	if err := svc.Decide(ctx, p.ID, Reject, 222, "реклама"); err != nil {
		t.Fatal(err)
	}

	if store.posts[p.ID].Status != database.StatusRejected {
		t.Errorf("Status = %v, ожидался rejected", store.posts[p.ID].Status)
	}
	if len(notifier.published) != 0 {
		t.Error("отклонённый пост не публикуется")
	}
	if notifier.rejected[111] != "реклама" {
		t.Errorf("причина отклонения = %q", notifier.rejected[111])
	}
}

// Терминальные статусы поглощающие: второе решение — ошибка, статус цел.
func TestDecideTerminalIsAbsorbing(t *testing.T) {
	store := newFakeStore()
	store.users[111] = &database.User{ID: 111}
	notifier := newFakeNotifier()
	svc, _ := newService(store, notifier, access.New(nil, []int64{222}))
	ctx := context.Background()

	p, _ := svc.Submit(ctx, 111, piarPost("x"))
	if err := svc.Decide(ctx, p.ID, Reject, 222, "спам"); err != nil {
		t.Fatal(err)
	}

	err := svc.Decide(ctx, p.ID, Approve, 222, "")
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("повторное решение: %v, ожидался ErrInvalidTransition", err)
	}
	if store.posts[p.ID].Status != database.StatusRejected {
		t.Error("статус изменился после повторного решения")
	}
	if len(notifier.published) != 0 {
		t.Error("публикация после повторного решения")
	}
}

func TestDecideUnauthorized(t *testing.T) {
	store := newFakeStore()
	store.users[111] = &database.User{ID: 111}
	svc, _ := newService(store, newFakeNotifier(), access.New(nil, []int64{222}))
	ctx := context.Background()

	p, _ := svc.Submit(ctx, 111, piarPost("x"))
	err := svc.Decide(ctx, p.ID, Approve, 333, "")
	if !errors.Is(err, ErrUnauthorized) {
		t.Errorf("err = %v, ожидался ErrUnauthorized", err)
	}
	if store.posts[p.ID].Status != database.StatusPending {
		t.Error("статус изменился без прав")
	}
}

func TestDecideMissingPost(t *testing.T) {
	svc, _ := newService(newFakeStore(), newFakeNotifier(), access.New(nil, []int64{222}))
	err := svc.Decide(context.Background(), 404, Approve, 222, "")
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("err = %v, ожидался ErrInvalidTransition", err)
	}
}
