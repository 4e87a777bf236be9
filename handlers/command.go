package handlers

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Callback-data разбирается один раз на границе транспорта в закрытый
// набор команд; дальше по коду строки не сравниваются.
type Command interface {
	isCommand()
}

type StartForm struct {
	Piar bool
}

type FormBack struct{}

type FormCancel struct{}

// FormDone — явный сигнал "хватит медиа, отправляй".
type FormDone struct{}

// FormAnon переключает анонимность будущего поста.
type FormAnon struct{}

type ApprovePost struct {
	PostID int64
}

type RejectPost struct {
	PostID int64
}

// Текстовые команды модераторов, разобранные в типы тем же способом.
type ResetCooldown struct {
	UserID int64
}

type BanUser struct {
	UserID int64
	Reason string
}

type UnbanUser struct {
	UserID int64
}

type MuteUser struct {
	UserID int64
	Dur    time.Duration
}

func (StartForm) isCommand()     {}
func (FormBack) isCommand()      {}
func (FormCancel) isCommand()    {}
func (FormDone) isCommand()      {}
func (FormAnon) isCommand()      {}
func (ApprovePost) isCommand()   {}
func (RejectPost) isCommand()    {}
func (ResetCooldown) isCommand() {}
func (BanUser) isCommand()       {}
func (UnbanUser) isCommand()     {}
func (MuteUser) isCommand()      {}

// Форматы: form:start[:piar], form:back, form:cancel, form:done,
// mod:approve:<id>, mod:reject:<id>.
func ParseCallback(data string) (Command, error) {
	parts := strings.Split(data, ":")
	switch {
	case len(parts) >= 2 && parts[0] == "form":
		switch parts[1] {
		case "start":
			return StartForm{Piar: len(parts) > 2 && parts[2] == "piar"}, nil
		case "back":
			return FormBack{}, nil
		case "cancel":
			return FormCancel{}, nil
		case "done":
			return FormDone{}, nil
		case "anon":
			return FormAnon{}, nil
		}
	case len(parts) == 3 && parts[0] == "mod":
		id, err := strconv.ParseInt(parts[2], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("callback %q: некорректный id поста", data)
		}
		switch parts[1] {
		case "approve":
			return ApprovePost{PostID: id}, nil
		case "reject":
			return RejectPost{PostID: id}, nil
		}
	}
	return nil, fmt.Errorf("неизвестный callback %q", data)
}

// ParseModCommand разбирает текстовую команду модератора:
// /reset <id>, /ban <id> [причина], /unban <id>, /mute <id> <минуты>.
func ParseModCommand(text string) (Command, error) {
	parts := strings.Fields(text)
	if len(parts) < 2 {
		return nil, fmt.Errorf("неизвестная команда %q", text)
	}
	id, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("команда %q: некорректный id пользователя", text)
	}

	switch parts[0] {
	case "/reset":
		return ResetCooldown{UserID: id}, nil
	case "/ban":
		return BanUser{UserID: id, Reason: strings.Join(parts[2:], " ")}, nil
	case "/unban":
		return UnbanUser{UserID: id}, nil
	case "/mute":
		if len(parts) < 3 {
			return nil, fmt.Errorf("команда %q: не указаны минуты", text)
		}
		minutes, err := strconv.Atoi(parts[2])
		if err != nil || minutes <= 0 {
			return nil, fmt.Errorf("команда %q: некорректные минуты", text)
		}
		return MuteUser{UserID: id, Dur: time.Duration(minutes) * time.Minute}, nil
	}
	return nil, fmt.Errorf("неизвестная команда %q", text)
}

// Кодировщики для inline-кнопок.
func approveData(postID int64) string { return fmt.Sprintf("mod:approve:%d", postID) }
func rejectData(postID int64) string  { return fmt.Sprintf("mod:reject:%d", postID) }
