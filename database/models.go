package database

import "time"

// PostStatus — статус поста в очереди модерации.
// pending — единственное начальное состояние; approved и rejected терминальны.
type PostStatus string

const (
	StatusPending  PostStatus = "pending"
	StatusApproved PostStatus = "approved"
	StatusRejected PostStatus = "rejected"
)

type User struct {
	ID            int64
	Username      *string
	FirstName     *string
	LastName      *string
	BannedAt      *time.Time
	BanReason     *string
	MutedUntil    *time.Time
	MessageCount  int
	LastActiveAt  time.Time
	CooldownUntil *time.Time
	CreatedAt     time.Time
}

// Banned — true, если пользователь забанен.
func (u *User) Banned() bool {
	return u.BannedAt != nil
}

// Muted — true, если мут ещё действует.
func (u *User) Muted(now time.Time) bool {
	return u.MutedUntil != nil && u.MutedUntil.After(now)
}

// MediaItem — вложение поста: тип и file_id на стороне Telegram.
type MediaItem struct {
	Type   string `json:"type"`
	FileID string `json:"file_id"`
}

type Post struct {
	ID          int64
	UserID      int64
	Category    string
	Subcategory *string
	ContentText string
	Media       []MediaItem
	Hashtags    []string
	IsAnonymous bool
	// IsPiar — объявление в каталог услуг, а не обычный пост
	IsPiar bool
	Status PostStatus
	// ID сообщения в модераторском чате; nil, пока зеркало не отправлено
	ModerationMessageID *int
	CreatedAt           time.Time
}
