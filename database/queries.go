package database

import (
	"context"
	"encoding/json"
	"time"
)

// ============================================
// Users
// ============================================

// GetOrCreateUser — ленивый upsert при каждом входящем событии:
// создаёт запись при первом контакте, обновляет профиль,
// счётчик сообщений и отметку активности.
func (db *DB) GetOrCreateUser(ctx context.Context, id int64, username, firstName, lastName *string) (*User, error) {
	query := `
		INSERT INTO users (id, username, first_name, last_name)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			username = COALESCE(EXCLUDED.username, users.username),
			first_name = COALESCE(EXCLUDED.first_name, users.first_name),
			last_name = COALESCE(EXCLUDED.last_name, users.last_name),
			message_count = users.message_count + 1,
			last_active_at = NOW()
		RETURNING id, username, first_name, last_name, banned_at, ban_reason,
		          muted_until, message_count, last_active_at, cooldown_until, created_at`

	var u User
	err := db.Pool.QueryRow(ctx, query, id, username, firstName, lastName).Scan(
		&u.ID, &u.Username, &u.FirstName, &u.LastName, &u.BannedAt, &u.BanReason,
		&u.MutedUntil, &u.MessageCount, &u.LastActiveAt, &u.CooldownUntil, &u.CreatedAt,
	)
	return &u, err
}

func (db *DB) GetUser(ctx context.Context, id int64) (*User, error) {
	query := `
		SELECT id, username, first_name, last_name, banned_at, ban_reason,
		       muted_until, message_count, last_active_at, cooldown_until, created_at
		FROM users
		WHERE id = $1`

	var u User
	err := db.Pool.QueryRow(ctx, query, id).Scan(
		&u.ID, &u.Username, &u.FirstName, &u.LastName, &u.BannedAt, &u.BanReason,
		&u.MutedUntil, &u.MessageCount, &u.LastActiveAt, &u.CooldownUntil, &u.CreatedAt,
	)
	return &u, err
}

func (db *DB) SetCooldown(ctx context.Context, userID int64, until time.Time) error {
	query := `UPDATE users SET cooldown_until = $1 WHERE id = $2`
	_, err := db.Pool.Exec(ctx, query, until, userID)
	return err
}

func (db *DB) ClearCooldown(ctx context.Context, userID int64) error {
	query := `UPDATE users SET cooldown_until = NULL WHERE id = $1`
	_, err := db.Pool.Exec(ctx, query, userID)
	return err
}

func (db *DB) BanUser(ctx context.Context, userID int64, reason string) error {
	query := `UPDATE users SET banned_at = NOW(), ban_reason = $1 WHERE id = $2`
	_, err := db.Pool.Exec(ctx, query, reason, userID)
	return err
}

func (db *DB) UnbanUser(ctx context.Context, userID int64) error {
	query := `UPDATE users SET banned_at = NULL, ban_reason = NULL WHERE id = $1`
	_, err := db.Pool.Exec(ctx, query, userID)
	return err
}

func (db *DB) MuteUser(ctx context.Context, userID int64, until time.Time) error {
	query := `UPDATE users SET muted_until = $1 WHERE id = $2`
	_, err := db.Pool.Exec(ctx, query, until, userID)
	return err
}

// DeleteInactiveUsers удаляет незабаненных пользователей,
// неактивных дольше заданного срока. Возвращает число удалённых.
func (db *DB) DeleteInactiveUsers(ctx context.Context, olderThan time.Duration) (int64, error) {
	query := `
		DELETE FROM users
		WHERE banned_at IS NULL
		  AND last_active_at < NOW() - $1::interval
		  AND NOT EXISTS (SELECT 1 FROM posts WHERE posts.user_id = users.id)`

	tag, err := db.Pool.Exec(ctx, query, olderThan)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// ============================================
// Posts
// ============================================

func (db *DB) CreatePost(ctx context.Context, p *Post) (*Post, error) {
	mediaJSON, err := json.Marshal(p.Media)
	if err != nil {
		return nil, err
	}

	query := `
		INSERT INTO posts (user_id, category, subcategory, content_text, media,
		                   hashtags, is_anonymous, is_piar, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'pending')
		RETURNING id, status, created_at`

	out := *p
	err = db.Pool.QueryRow(ctx, query,
		p.UserID, p.Category, p.Subcategory, p.ContentText, mediaJSON,
		p.Hashtags, p.IsAnonymous, p.IsPiar,
	).Scan(&out.ID, &out.Status, &out.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (db *DB) GetPost(ctx context.Context, id int64) (*Post, error) {
	query := `
		SELECT id, user_id, category, subcategory, content_text, media,
		       hashtags, is_anonymous, is_piar, status, moderation_message_id, created_at
		FROM posts
		WHERE id = $1`

	var p Post
	var mediaJSON []byte
	err := db.Pool.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.UserID, &p.Category, &p.Subcategory, &p.ContentText, &mediaJSON,
		&p.Hashtags, &p.IsAnonymous, &p.IsPiar, &p.Status, &p.ModerationMessageID, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(mediaJSON, &p.Media); err != nil {
		return nil, err
	}
	return &p, nil
}

func (db *DB) SetPostModerationMessage(ctx context.Context, postID int64, messageID int) error {
	query := `UPDATE posts SET moderation_message_id = $1 WHERE id = $2`
	_, err := db.Pool.Exec(ctx, query, messageID, postID)
	return err
}

// FinalizePostStatus переводит пост из pending в терминальный статус.
// Возвращает false, если пост уже не в pending (повторное решение).
func (db *DB) FinalizePostStatus(ctx context.Context, postID int64, status PostStatus) (bool, error) {
	query := `UPDATE posts SET status = $1 WHERE id = $2 AND status = 'pending'`
	tag, err := db.Pool.Exec(ctx, query, status, postID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
