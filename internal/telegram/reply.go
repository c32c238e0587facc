package telegram

import (
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Main menu labels. Menu presses arrive as plain text messages and are
// matched exactly before anything reaches the completion gateway.
const (
	menuReset = "🧠 Reset Memory"
	menuRetry = "🔁 Ask Again"
	menuPhoto = "📷 Send Photo"
	menuVoice = "🎤 Send Voice"
	menuFile  = "📁 Send File"
)

// Inline callback tags.
const (
	retryCmd = "retry"
	clearCmd = "clear"
)

// errPrefix marks every error reply so users can tell a failure from a
// model answer.
const errPrefix = "⚠️ "

const helpText = "/start - Start and reset memory\n" +
	"/reset - Clear memory\n" +
	"/analyze - Analyze the last photo you sent\n" +
	"/help - This help\n\n" +
	"Send text, voice, a photo or a file and the assistant will handle it."

func isMenuLabel(text string) bool {
	switch text {
	case menuReset, menuRetry, menuPhoto, menuVoice, menuFile:
		return true
	}
	return false
}

func menuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuReset),
			tgbotapi.NewKeyboardButton(menuRetry),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuPhoto),
			tgbotapi.NewKeyboardButton(menuVoice),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuFile),
		),
	)
	kb.ResizeKeyboard = true
	return kb
}

func chatReplyKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔄 Ask again", retryCmd),
			tgbotapi.NewInlineKeyboardButtonData("❌ Clear memory", clearCmd),
		),
	)
}

func (b *Bot) send(msg tgbotapi.MessageConfig) {
	if _, err := b.s.Send(msg); err != nil {
		log.Printf("failed to send message: %v", err)
	}
}

// sendText sends a plain notice without any affordances.
func (b *Bot) sendText(chatID int64, text string) {
	b.send(tgbotapi.NewMessage(chatID, text))
}

// sendChatReply attaches the retry/clear affordances; used only for
// completion-path answers.
func (b *Bot) sendChatReply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = chatReplyKeyboard()
	b.send(msg)
}

// sendMenuReply attaches the main menu keyboard.
func (b *Bot) sendMenuReply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = menuKeyboard()
	b.send(msg)
}

func (b *Bot) sendError(chatID int64, text string) {
	b.send(tgbotapi.NewMessage(chatID, errPrefix+text))
}
