package lifecycle

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrActorNotFound — автор не зарегистрирован в хранилище.
	ErrActorNotFound = errors.New("пользователь не найден")
	// ErrUnauthorized — решение принял не модератор.
	ErrUnauthorized = errors.New("нет прав модератора")
	// ErrInvalidTransition — пост отсутствует или уже в терминальном статусе.
	ErrInvalidTransition = errors.New("пост уже рассмотрен или не существует")
)

// CooldownActiveError — кулдаун ещё не истёк.
type CooldownActiveError struct {
	Remaining time.Duration
}

func (e *CooldownActiveError) Error() string {
	return fmt.Sprintf("кулдаун активен, осталось %s", e.Remaining)
}
