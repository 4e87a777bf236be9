// Пакет form — пошаговый сбор анкеты объявления.
// Черновик живёт только в памяти: отмена, завершение или рестарт
// процесса его стирают.
package form

import (
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"go_community_bot/database"
	"go_community_bot/filter"
)

// Step — явное состояние анкеты вместо строкового "waiting_for".
type Step int

const (
	StepName Step = iota
	StepProfession
	StepDistricts
	StepPhone
	StepInstagram
	StepTelegram
	StepPrice
	StepDescription
	StepMedia
)

var stepNames = map[Step]string{
	StepName:        "name",
	StepProfession:  "profession",
	StepDistricts:   "districts",
	StepPhone:       "phone",
	StepInstagram:   "instagram",
	StepTelegram:    "telegram",
	StepPrice:       "price",
	StepDescription: "description",
	StepMedia:       "media",
}

func (s Step) String() string { return stepNames[s] }

// SkipToken — ответ "пропустить" для необязательных полей.
const SkipToken = "-"

const (
	maxShortField = 100
	maxDesc       = 1000
	minPhoneLen   = 7
	maxDistricts  = 3
)

// Draft — частично заполненная анкета. Пустая строка в необязательном
// поле означает "пропущено".
type Draft struct {
	Name        string
	Profession  string
	Districts   []string
	Phone       string
	Instagram   string
	Telegram    string
	Price       string
	Description string
	Media       []database.MediaItem
	// Piar — анкета в каталог услуг, а не обычный пост
	Piar      bool
	Anonymous bool
}

// ValidationError возвращается при нарушении правила шага;
// пользователь повторяет тот же шаг.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("поле %s: %s", e.Field, e.Reason)
}

type session struct {
	step  Step
	draft Draft
}

// Collector держит по одному черновику на пользователя.
// Карта закрыта мьютексом: события одного пользователя не параллелятся
// на практике, но повторные доставки от Telegram случаются.
type Collector struct {
	mu       sync.Mutex
	sessions map[int64]*session
	filter   *filter.Filter
	maxMedia int
}

func NewCollector(f *filter.Filter, maxMedia int) *Collector {
	return &Collector{
		sessions: make(map[int64]*session),
		filter:   f,
		maxMedia: maxMedia,
	}
}

// Start начинает анкету заново, затирая прошлый черновик.
func (c *Collector) Start(userID int64, piar bool) Step {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessions[userID] = &session{step: StepName, draft: Draft{Piar: piar}}
	return StepName
}

// ToggleAnonymous переключает анонимность черновика.
// Возвращает новое значение флага.
func (c *Collector) ToggleAnonymous(userID int64) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sessions[userID]
	if !ok {
		return false, &ValidationError{Field: "form", Reason: "анкета не начата"}
	}
	s.draft.Anonymous = !s.draft.Anonymous
	return s.draft.Anonymous, nil
}

// Active возвращает текущий шаг, если пользователь заполняет анкету.
func (c *Collector) Active(userID int64) (Step, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sessions[userID]
	if !ok {
		return 0, false
	}
	return s.step, true
}

// Input принимает ответ на текущий текстовый шаг.
// При успехе возвращает следующий шаг; при нарушении правила —
// *ValidationError, и шаг не меняется.
func (c *Collector) Input(userID int64, text string) (Step, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.sessions[userID]
	if !ok {
		return 0, &ValidationError{Field: "form", Reason: "анкета не начата"}
	}
	if s.step == StepMedia {
		return StepMedia, &ValidationError{Field: "media", Reason: "ожидается фото или «Далее»"}
	}

	if err := c.applyInput(s, strings.TrimSpace(text)); err != nil {
		return s.step, err
	}
	s.step++
	return s.step, nil
}

func (c *Collector) applyInput(s *session, v string) error {
	switch s.step {
	case StepName:
		if err := c.shortText("name", v); err != nil {
			return err
		}
		s.draft.Name = v
	case StepProfession:
		if err := c.shortText("profession", v); err != nil {
			return err
		}
		s.draft.Profession = v
	case StepDistricts:
		districts, err := c.parseDistricts(v)
		if err != nil {
			return err
		}
		s.draft.Districts = districts
	case StepPhone:
		if v == SkipToken {
			s.draft.Phone = ""
			return nil
		}
		if utf8.RuneCountInString(v) < minPhoneLen {
			return &ValidationError{Field: "phone", Reason: "слишком короткий номер"}
		}
		s.draft.Phone = v
	case StepInstagram:
		// Контактные поля пропускают ссылки намеренно,
		// но пустой ответ (например, фото вместо текста) — не пропуск
		if v == "" {
			return &ValidationError{Field: "instagram", Reason: "пустой ответ; пропустить — «-»"}
		}
		s.draft.Instagram = normalizeInstagram(v)
	case StepTelegram:
		if v == "" {
			return &ValidationError{Field: "telegram", Reason: "пустой ответ; пропустить — «-»"}
		}
		s.draft.Telegram = normalizeTelegram(v)
	case StepPrice:
		if err := c.shortText("price", v); err != nil {
			return err
		}
		s.draft.Price = v
	case StepDescription:
		if v == "" {
			return &ValidationError{Field: "description", Reason: "пустое описание"}
		}
		if utf8.RuneCountInString(v) > maxDesc {
			return &ValidationError{Field: "description", Reason: "длиннее 1000 символов"}
		}
		if c.filter.ContainsBannedLink(v) {
			return &ValidationError{Field: "description", Reason: "запрещённая ссылка"}
		}
		s.draft.Description = v
	}
	return nil
}

func (c *Collector) shortText(field, v string) error {
	if v == "" {
		return &ValidationError{Field: field, Reason: "пустое значение"}
	}
	if utf8.RuneCountInString(v) > maxShortField {
		return &ValidationError{Field: field, Reason: "длиннее 100 символов"}
	}
	if c.filter.ContainsBannedLink(v) {
		return &ValidationError{Field: field, Reason: "запрещённая ссылка"}
	}
	return nil
}

func (c *Collector) parseDistricts(v string) ([]string, error) {
	if c.filter.ContainsBannedLink(v) {
		return nil, &ValidationError{Field: "districts", Reason: "запрещённая ссылка"}
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
		if len(out) == maxDistricts {
			break
		}
	}
	if len(out) == 0 {
		return nil, &ValidationError{Field: "districts", Reason: "укажите хотя бы один район"}
	}
	return out, nil
}

func normalizeInstagram(v string) string {
	if v == SkipToken {
		return ""
	}
	return strings.TrimPrefix(v, "@")
}

func normalizeTelegram(v string) string {
	if v == SkipToken {
		return ""
	}
	if strings.HasPrefix(v, "@") || strings.HasPrefix(v, "https://t.me/") {
		return v
	}
	if strings.HasPrefix(v, "t.me/") {
		return "https://" + v
	}
	return "@" + v
}

// AddMedia добавляет вложение на шаге медиа.
// Возвращает число собранных вложений и признак достижения максимума.
func (c *Collector) AddMedia(userID int64, item database.MediaItem) (int, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.sessions[userID]
	if !ok || s.step != StepMedia {
		return 0, false, &ValidationError{Field: "media", Reason: "сейчас не шаг медиа"}
	}
	if len(s.draft.Media) >= c.maxMedia {
		return len(s.draft.Media), true, nil
	}
	s.draft.Media = append(s.draft.Media, item)
	return len(s.draft.Media), len(s.draft.Media) >= c.maxMedia, nil
}

// Back откатывает указатель шага на один назад, не трогая уже
// принятые ответы. С первого шага — no-op (false).
func (c *Collector) Back(userID int64) (Step, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.sessions[userID]
	if !ok || s.step == StepName {
		return StepName, false
	}
	s.step--
	return s.step, true
}

// Cancel стирает черновик из любого состояния.
func (c *Collector) Cancel(userID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sessions, userID)
}

// Take завершает анкету на шаге медиа и отдаёт черновик.
// Черновик удаляется сразу: если дальнейшая отправка провалится,
// пользователь начинает анкету заново.
func (c *Collector) Take(userID int64) (*Draft, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.sessions[userID]
	if !ok || s.step != StepMedia {
		return nil, false
	}
	delete(c.sessions, userID)
	draft := s.draft
	return &draft, true
}
