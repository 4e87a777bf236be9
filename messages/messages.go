package messages

import (
	"fmt"
	"time"
)

const (
	MsgWelcome = `👋 Бот объявлений сообщества.

📝 Разместить объявление — кнопка ниже.
После проверки модератором оно появится в канале.`

	MsgFormCancelled = `❌ Анкета отменена. Начать заново — /start`

	MsgFormNotActive = `Сначала начните анкету — /start`

	MsgAskName        = `1/8. Как вас зовут?`
	MsgAskProfession  = `2/8. Ваша профессия или услуга?`
	MsgAskDistricts   = `3/8. В каких районах работаете? (через запятую, до 3)`
	MsgAskPhone       = `4/8. Телефон для связи. Пропустить — «-»`
	MsgAskInstagram   = `5/8. Instagram. Пропустить — «-»`
	MsgAskTelegram    = `6/8. Telegram. Пропустить — «-»`
	MsgAskPrice       = `7/8. Стоимость услуг?`
	MsgAskDescription = `8/8. Короткое описание (до 1000 символов).`
	MsgAskMedia       = `📷 Пришлите фото (до %d шт.) или нажмите «Далее».`

	MsgMediaAccepted = `Фото %d из %d принято.`

	MsgSubmitted = `✅ Объявление отправлено на модерацию.
Мы сообщим о решении.`

	MsgApproved = `🎉 Ваше объявление одобрено и опубликовано!`

	MsgRejected = `😔 Ваше объявление отклонено.`

	MsgCooldown = `⏳ Следующее объявление можно отправить через %s.`

	MsgBanned = `🚫 Вы заблокированы и не можете отправлять объявления.`

	MsgMuted = `🔇 Вы временно не можете писать боту.`

	MsgNotRegistered = `Нажмите /start, чтобы зарегистрироваться.`

	MsgTryLater = `❌ Ошибка. Попробуйте позже.`

	MsgAlreadyDecided = `Пост уже рассмотрен другим модератором.`

	MsgNoPermission = `Недостаточно прав.`

	MsgAskRejectReason = `Укажите причину отклонения одним сообщением.`

	MsgAnonymousOn  = `🕶 Пост будет опубликован анонимно.`
	MsgAnonymousOff = `Анонимность отключена.`

	MsgCooldownReset = `Кулдаун сброшен.`
	MsgUserBanned    = `Пользователь забанен.`
	MsgUserUnbanned  = `Пользователь разбанен.`
	MsgUserMuted     = `Пользователь замьючен.`

	MsgPostDecided = `Пост #%d %s.`
)

func FormatAskMedia(maxMedia int) string {
	return fmt.Sprintf(MsgAskMedia, maxMedia)
}

func FormatMediaAccepted(n, max int) string {
	return fmt.Sprintf(MsgMediaAccepted, n, max)
}

func FormatCooldown(remaining time.Duration) string {
	return fmt.Sprintf(MsgCooldown, remaining.Round(time.Minute))
}

func FormatRejected(reason string) string {
	if reason == "" {
		return MsgRejected
	}
	return fmt.Sprintf("%s\n\nПричина: %s", MsgRejected, reason)
}

func FormatPostDecided(postID int64, verdict string) string {
	return fmt.Sprintf(MsgPostDecided, postID, verdict)
}

func FormatValidation(reason string) string {
	return fmt.Sprintf("❌ %s. Попробуйте ещё раз.", reason)
}
