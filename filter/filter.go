package filter

import (
	"regexp"
	"strings"
)

var (
	// Любые ссылки
	urlPattern = regexp.MustCompile(`(?i)https?://[^\s]+`)
	// Домены без http (bit.ly, vk.cc и т.д.)
	domainPattern = regexp.MustCompile(`(?i)\b[a-z0-9][-a-z0-9]*\.(ru|com|net|org|io|me|cc|ly|gl|su|рф|info|biz|xyz|online|site|shop|store)\b[^\s]*`)
	// t.me ссылки на аккаунты
	tmePattern = regexp.MustCompile(`(?i)t\.me/[a-zA-Z0-9_]+`)
)

// Filter проверяет текст на запрещённые ссылки по чёрному списку доменов.
// Без состояния, безопасен для конкурентного использования.
type Filter struct {
	bannedDomains []string
}

func New(bannedDomains []string) *Filter {
	domains := make([]string, 0, len(bannedDomains))
	for _, d := range bannedDomains {
		domains = append(domains, strings.ToLower(d))
	}
	return &Filter{bannedDomains: domains}
}

// ContainsBannedLink — true, если в тексте есть ссылка на домен из чёрного списка.
// Пустой текст чистый.
func (f *Filter) ContainsBannedLink(text string) bool {
	if text == "" {
		return false
	}
	textLower := strings.ToLower(text)

	for _, url := range urlPattern.FindAllString(textLower, -1) {
		if f.isBanned(url) {
			return true
		}
	}

	for _, domain := range domainPattern.FindAllString(textLower, -1) {
		if f.isBanned(domain) {
			return true
		}
	}

	if match := tmePattern.FindString(textLower); match != "" && f.isBanned("t.me") {
		return true
	}

	return false
}

func (f *Filter) isBanned(url string) bool {
	for _, domain := range f.bannedDomains {
		if strings.Contains(url, domain) {
			return true
		}
	}
	return false
}
