package telegram

import (
	"context"
	"fmt"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Button est un bouton inline ; Data est renvoyé tel quel dans le callback
type Button struct {
	Text string
	Data string
}

// Messenger est la partie sortante du canal chat
type Messenger interface {
	Send(ctx context.Context, chatID int64, text string, buttons [][]Button) (int, error)
	Edit(ctx context.Context, chatID int64, messageID int, text string) error
	SendDocument(ctx context.Context, chatID int64, filename string, data []byte, caption string) error
	AnswerCallback(ctx context.Context, callbackID, text string) error
}

// BotMessenger implémente Messenger sur l'API Bot Telegram
type BotMessenger struct {
	api *tgbotapi.BotAPI
}

func Connect(token string) (*BotMessenger, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("connexion Telegram: %w", err)
	}
	log.Printf("✅ Bot Telegram connecté : @%s", api.Self.UserName)
	return &BotMessenger{api: api}, nil
}

// Updates démarre le long polling ; le canal se ferme avec Stop
func (m *BotMessenger) Updates() tgbotapi.UpdatesChannel {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	return m.api.GetUpdatesChan(u)
}

func (m *BotMessenger) Stop() {
	m.api.StopReceivingUpdates()
}

func keyboard(buttons [][]Button) *tgbotapi.InlineKeyboardMarkup {
	if len(buttons) == 0 {
		return nil
	}
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(buttons))
	for _, row := range buttons {
		r := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			r = append(r, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Data))
		}
		rows = append(rows, r)
	}
	markup := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &markup
}

func (m *BotMessenger) Send(ctx context.Context, chatID int64, text string, buttons [][]Button) (int, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	if kb := keyboard(buttons); kb != nil {
		msg.ReplyMarkup = kb
	}
	sent, err := m.api.Send(msg)
	if err != nil {
		return 0, fmt.Errorf("envoi message à %d: %w", chatID, err)
	}
	return sent.MessageID, nil
}

// Edit remplace le texte d'un message et retire ses boutons
func (m *BotMessenger) Edit(ctx context.Context, chatID int64, messageID int, text string) error {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	if _, err := m.api.Send(edit); err != nil {
		return fmt.Errorf("édition message %d: %w", messageID, err)
	}
	return nil
}

func (m *BotMessenger) SendDocument(ctx context.Context, chatID int64, filename string, data []byte, caption string) error {
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: filename, Bytes: data})
	doc.Caption = caption
	if _, err := m.api.Send(doc); err != nil {
		return fmt.Errorf("envoi document à %d: %w", chatID, err)
	}
	return nil
}

func (m *BotMessenger) AnswerCallback(ctx context.Context, callbackID, text string) error {
	if _, err := m.api.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		return fmt.Errorf("réponse callback: %w", err)
	}
	return nil
}

// LogMessenger journalise les envois quand aucun jeton Telegram n'est configuré
type LogMessenger struct{}

func (LogMessenger) Send(ctx context.Context, chatID int64, text string, buttons [][]Button) (int, error) {
	log.Printf("💬 [chat %d] %s", chatID, text)
	return 0, nil
}

func (LogMessenger) Edit(ctx context.Context, chatID int64, messageID int, text string) error {
	log.Printf("💬 [chat %d, message %d modifié] %s", chatID, messageID, text)
	return nil
}

func (LogMessenger) SendDocument(ctx context.Context, chatID int64, filename string, data []byte, caption string) error {
	log.Printf("📎 [chat %d] %s (%d octets) %s", chatID, filename, len(data), caption)
	return nil
}

func (LogMessenger) AnswerCallback(ctx context.Context, callbackID, text string) error {
	return nil
}
