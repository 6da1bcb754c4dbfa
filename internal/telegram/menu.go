package telegram

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Menu button labels. These exact strings arrive back as plain text messages
// when the user taps a reply-keyboard button, so dispatch matches on them
// before any link capture gets a chance to consume the text.
const (
	btnSetupRelay = "Подключить пересыл"
	btnCabinet    = "Личный кабинет"
	btnHelp       = "Помощь"
	btnAdminPanel = "Админ панель"
	btnConfirmSub = "✅ Да, хочу подписку"
	btnBack       = "Назад"
)

var menuKeywords = map[string]struct{}{
	btnSetupRelay: {},
	btnCabinet:    {},
	btnHelp:       {},
	btnAdminPanel: {},
	btnConfirmSub: {},
	btnBack:       {},
}

func isMenuKeyword(text string) bool {
	_, ok := menuKeywords[text]
	return ok
}

// mainMenu builds the reply keyboard. The admin row is shown only to the
// configured admin identity.
func (b *Bot) mainMenu(userID int64) tgbotapi.ReplyKeyboardMarkup {
	rows := [][]tgbotapi.KeyboardButton{
		{
			tgbotapi.NewKeyboardButton(btnSetupRelay),
			tgbotapi.NewKeyboardButton(btnCabinet),
		},
		{
			tgbotapi.NewKeyboardButton(btnHelp),
		},
	}
	if userID == b.cfg.AdminTelegramID {
		rows = append(rows, []tgbotapi.KeyboardButton{tgbotapi.NewKeyboardButton(btnAdminPanel)})
	}
	keyboard := tgbotapi.NewReplyKeyboard(rows...)
	keyboard.ResizeKeyboard = true
	return keyboard
}

func confirmSubscriptionMenu() tgbotapi.ReplyKeyboardMarkup {
	keyboard := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnConfirmSub)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnBack)),
	)
	keyboard.ResizeKeyboard = true
	return keyboard
}
