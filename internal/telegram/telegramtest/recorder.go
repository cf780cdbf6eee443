// Package telegramtest fournit un Messenger en mémoire pour les tests.
package telegramtest

import (
	"context"
	"errors"
	"strings"
	"sync"

	"storefront_back_end/internal/telegram"
)

type Sent struct {
	ChatID    int64
	MessageID int
	Text      string
	Buttons   [][]telegram.Button
}

type Edited struct {
	ChatID    int64
	MessageID int
	Text      string
}

type Document struct {
	ChatID   int64
	Filename string
	Data     []byte
	Caption  string
}

// Recorder enregistre tout ce qui est envoyé ; Fail force une erreur sur chaque appel
type Recorder struct {
	mu        sync.Mutex
	nextID    int
	Sent      []Sent
	Edited    []Edited
	Documents []Document
	Answers   []string
	Fail      bool
}

var ErrForced = errors.New("échec simulé")

var _ telegram.Messenger = (*Recorder)(nil)

func (r *Recorder) Send(ctx context.Context, chatID int64, text string, buttons [][]telegram.Button) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Fail {
		return 0, ErrForced
	}
	r.nextID++
	r.Sent = append(r.Sent, Sent{ChatID: chatID, MessageID: r.nextID, Text: text, Buttons: buttons})
	return r.nextID, nil
}

func (r *Recorder) Edit(ctx context.Context, chatID int64, messageID int, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Fail {
		return ErrForced
	}
	r.Edited = append(r.Edited, Edited{ChatID: chatID, MessageID: messageID, Text: text})
	return nil
}

func (r *Recorder) SendDocument(ctx context.Context, chatID int64, filename string, data []byte, caption string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Fail {
		return ErrForced
	}
	r.Documents = append(r.Documents, Document{ChatID: chatID, Filename: filename, Data: data, Caption: caption})
	return nil
}

func (r *Recorder) AnswerCallback(ctx context.Context, callbackID, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Answers = append(r.Answers, text)
	return nil
}

// SentTo retourne les messages envoyés à un chat, dans l'ordre
func (r *Recorder) SentTo(chatID int64) []Sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Sent
	for _, s := range r.Sent {
		if s.ChatID == chatID {
			out = append(out, s)
		}
	}
	return out
}

// LastTextTo retourne le dernier texte envoyé à un chat, ou ""
func (r *Recorder) LastTextTo(chatID int64) string {
	msgs := r.SentTo(chatID)
	if len(msgs) == 0 {
		return ""
	}
	return msgs[len(msgs)-1].Text
}

// AnySentContains indique si un message envoyé à chatID contient sub
func (r *Recorder) AnySentContains(chatID int64, sub string) bool {
	for _, s := range r.SentTo(chatID) {
		if strings.Contains(s.Text, sub) {
			return true
		}
	}
	return false
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Sent, r.Edited, r.Documents, r.Answers = nil, nil, nil, nil
}
