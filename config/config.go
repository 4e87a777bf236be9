package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	BotToken    string
	DatabaseURL string

	// Статические роли
	AdminIDs     []int64
	ModeratorIDs []int64

	// Куда зеркалируются посты на модерацию и куда публикуются
	ModerationChatID int64
	ChannelID        int64
	PiarChannelID    int64
	LogChannelID     int64

	CooldownWindow time.Duration
	MaxMediaCount  int
	MaxTextLen     int
	BannedDomains  []string

	// Чистка неактивных пользователей
	RetentionDays int

	// Бюджет на один вызов Telegram/БД
	RequestTimeout time.Duration

	TestMode bool
}

func Load() *Config {
	cooldown, _ := strconv.Atoi(getEnv("COOLDOWN_WINDOW_SECONDS", "3600"))
	maxMedia, _ := strconv.Atoi(getEnv("MAX_MEDIA_PER_POST", "5"))
	maxText, _ := strconv.Atoi(getEnv("MAX_TEXT_LENGTH", "1000"))
	retention, _ := strconv.Atoi(getEnv("RETENTION_DAYS", "180"))
	reqTimeout, _ := strconv.Atoi(getEnv("REQUEST_TIMEOUT_SECONDS", "10"))

	moderationChat, _ := strconv.ParseInt(getEnv("MODERATION_CHAT_ID", "0"), 10, 64)
	channel, _ := strconv.ParseInt(getEnv("CHANNEL_ID", "0"), 10, 64)
	piarChannel, _ := strconv.ParseInt(getEnv("PIAR_CHANNEL_ID", "0"), 10, 64)
	logChannel, _ := strconv.ParseInt(getEnv("LOG_CHANNEL_ID", "0"), 10, 64)

	return &Config{
		BotToken:         getEnv("BOT_TOKEN", ""),
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		AdminIDs:         parseIDList(getEnv("ADMIN_IDS", "")),
		ModeratorIDs:     parseIDList(getEnv("MODERATOR_IDS", "")),
		ModerationChatID: moderationChat,
		ChannelID:        channel,
		PiarChannelID:    piarChannel,
		LogChannelID:     logChannel,
		CooldownWindow:   time.Duration(cooldown) * time.Second,
		MaxMediaCount:    maxMedia,
		MaxTextLen:       maxText,
		BannedDomains:    parseList(getEnv("BANNED_DOMAINS", "bit.ly,goo.gl,tinyurl.com,clck.ru,vk.cc")),
		RetentionDays:    retention,
		RequestTimeout:   time.Duration(reqTimeout) * time.Second,
		TestMode:         getEnv("TEST_MODE", "false") == "true",
	}
}

// DestinationFor возвращает канал публикации по типу поста.
func (c *Config) DestinationFor(isPiar bool) int64 {
	if isPiar {
		return c.PiarChannelID
	}
	return c.ChannelID
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseIDList(s string) []int64 {
	var out []int64
	for _, part := range parseList(s) {
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			continue
		}
		out = append(out, id)
	}
	return out
}
