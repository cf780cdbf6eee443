package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"storefront_back_end/internal/auth"
	"storefront_back_end/internal/cart"
	"storefront_back_end/internal/catalog"
	"storefront_back_end/internal/lifecycle"
	"storefront_back_end/internal/models"
	"storefront_back_end/internal/telegram"
)

type Conversations interface {
	Get(ctx context.Context, chatID int64) (*models.Conversation, error)
	Save(ctx context.Context, conv *models.Conversation) error
	Clear(ctx context.Context, chatID int64) error
}

type Movements interface {
	StockMovements(ctx context.Context, productID int64, limit int) ([]models.StockMovement, error)
}

// Prompter renvoie au propriétaire l'invite d'une commande en attente
type Prompter interface {
	NotifyOwnerNewOrder(ctx context.Context, o *models.Order) error
}

// Bot traite les mises à jour Telegram du propriétaire et des clients
type Bot struct {
	messenger     telegram.Messenger
	engine        *lifecycle.Engine
	carts         *cart.Service
	catalog       *catalog.Service
	conversations Conversations
	authz         auth.Authorizer
	prompter      Prompter
	movements     Movements

	mu       sync.Mutex
	queues   map[int64]*chatQueue
	inflight sync.WaitGroup
}

// chatQueue retient les mises à jour arrivées pendant le traitement d'un chat
type chatQueue struct {
	pending []tgbotapi.Update
}

type Options struct {
	Messenger     telegram.Messenger
	Engine        *lifecycle.Engine
	Carts         *cart.Service
	Catalog       *catalog.Service
	Conversations Conversations
	Authorizer    auth.Authorizer
	Prompter      Prompter
	Movements     Movements // optionnel
}

func New(opts Options) *Bot {
	return &Bot{
		messenger:     opts.Messenger,
		engine:        opts.Engine,
		carts:         opts.Carts,
		catalog:       opts.Catalog,
		conversations: opts.Conversations,
		authz:         opts.Authorizer,
		prompter:      opts.Prompter,
		movements:     opts.Movements,
		queues:        map[int64]*chatQueue{},
	}
}

// Run consomme les mises à jour jusqu'à l'annulation du contexte ou la fermeture du canal.
// Les chats sont traités en parallèle, les mises à jour d'un même chat dans l'ordre d'arrivée.
func (b *Bot) Run(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	log.Println("🤖 Bot Telegram à l'écoute")
	defer b.inflight.Wait()
	for {
		select {
		case <-ctx.Done():
			return
		case upd, ok := <-updates:
			if !ok {
				return
			}
			b.dispatch(ctx, upd)
		}
	}
}

func (b *Bot) dispatch(ctx context.Context, upd tgbotapi.Update) {
	chatID := updateChatID(upd)

	b.mu.Lock()
	if q, busy := b.queues[chatID]; busy {
		q.pending = append(q.pending, upd)
		b.mu.Unlock()
		return
	}
	b.queues[chatID] = &chatQueue{}
	b.mu.Unlock()

	b.inflight.Add(1)
	go b.drain(ctx, chatID, upd)
}

// drain traite upd puis la file du chat ; la file disparaît une fois vide
func (b *Bot) drain(ctx context.Context, chatID int64, upd tgbotapi.Update) {
	defer b.inflight.Done()
	for {
		b.HandleUpdate(ctx, upd)

		b.mu.Lock()
		q := b.queues[chatID]
		if len(q.pending) == 0 {
			delete(b.queues, chatID)
			b.mu.Unlock()
			return
		}
		upd = q.pending[0]
		q.pending = q.pending[1:]
		b.mu.Unlock()
	}
}

func updateChatID(upd tgbotapi.Update) int64 {
	switch {
	case upd.CallbackQuery != nil:
		return callbackChatID(upd.CallbackQuery)
	case upd.Message != nil && upd.Message.Chat != nil:
		return upd.Message.Chat.ID
	}
	return 0
}

func callbackChatID(cq *tgbotapi.CallbackQuery) int64 {
	if cq.Message != nil && cq.Message.Chat != nil {
		return cq.Message.Chat.ID
	}
	if cq.From != nil {
		return cq.From.ID
	}
	return 0
}

func (b *Bot) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("❌ Panique pendant le traitement d'une mise à jour Telegram: %v", r)
		}
	}()

	switch {
	case upd.CallbackQuery != nil:
		b.handleCallback(ctx, upd.CallbackQuery)
	case upd.Message != nil && upd.Message.Chat != nil:
		b.handleMessage(ctx, upd.Message)
	}
}

func (b *Bot) isOwner(chatID int64) bool {
	return b.authz.IsOwner(auth.ChatActor(chatID))
}

func (b *Bot) reply(ctx context.Context, chatID int64, text string) {
	if _, err := b.messenger.Send(ctx, chatID, text, nil); err != nil {
		log.Printf("⚠️ Réponse au chat %d: %v", chatID, err)
	}
}

func (b *Bot) replyButtons(ctx context.Context, chatID int64, text string, buttons [][]telegram.Button) {
	if _, err := b.messenger.Send(ctx, chatID, text, buttons); err != nil {
		log.Printf("⚠️ Réponse au chat %d: %v", chatID, err)
	}
}

// replyError envoie le message métier tel quel ; les erreurs techniques restent dans les logs
func (b *Bot) replyError(ctx context.Context, chatID int64, err error) {
	switch {
	case errors.Is(err, models.ErrNotFound),
		errors.Is(err, models.ErrInvalidState),
		errors.Is(err, models.ErrInsufficientStock),
		errors.Is(err, models.ErrValidation):
		b.reply(ctx, chatID, "❌ "+capitalize(err.Error()))
	default:
		log.Printf("❌ Chat %d: %v", chatID, err)
		b.reply(ctx, chatID, "❌ Une erreur est survenue, réessayez plus tard.")
	}
}

// surfaceWarnings remonte au propriétaire les effets secondaires en échec
func (b *Bot) surfaceWarnings(ctx context.Context, chatID int64, warnings []string) {
	for _, w := range warnings {
		b.reply(ctx, chatID, "⚠️ "+w)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	if msg.IsCommand() {
		cmd := msg.Command()
		args := strings.TrimSpace(msg.CommandArguments())

		// Toute commande interrompt un échange guidé en cours
		if err := b.conversations.Clear(ctx, chatID); err != nil {
			log.Printf("⚠️ Conversation %d: %v", chatID, err)
		}
		if cmd == "abandon" {
			b.reply(ctx, chatID, "👌 Saisie abandonnée.")
			return
		}
		if b.ownerCommand(ctx, chatID, cmd, args) {
			return
		}
		b.customerCommand(ctx, msg, cmd, args)
		return
	}

	conv, err := b.conversations.Get(ctx, chatID)
	if err != nil {
		b.replyError(ctx, chatID, err)
		return
	}
	if conv == nil {
		b.reply(ctx, chatID, "Je n'ai pas compris. Tapez /start pour voir les commandes disponibles.")
		return
	}

	text := strings.TrimSpace(msg.Text)
	switch conv.Flow {
	case models.FlowAddProduct:
		if !b.isOwner(chatID) {
			_ = b.conversations.Clear(ctx, chatID)
			return
		}
		b.continueAddProduct(ctx, conv, text)
	case models.FlowCartQuantity:
		b.continueCartQuantity(ctx, conv, text)
	default:
		_ = b.conversations.Clear(ctx, chatID)
	}
}

func (b *Bot) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	chatID := callbackChatID(cq)

	action, id, err := telegram.ParseActionData(cq.Data)
	if err != nil {
		b.answer(ctx, cq.ID, "Action inconnue")
		return
	}

	switch action {
	case telegram.ActionApprove, telegram.ActionReject:
		if !b.isOwner(chatID) {
			b.answer(ctx, cq.ID, "⛔ Non autorisé")
			return
		}
		b.decide(ctx, cq.ID, chatID, action, id)
	case telegram.ActionAdd:
		b.answer(ctx, cq.ID, "")
		b.startCartQuantity(ctx, chatID, id)
	default:
		b.answer(ctx, cq.ID, "Action inconnue")
	}
}

func (b *Bot) answer(ctx context.Context, callbackID, text string) {
	if err := b.messenger.AnswerCallback(ctx, callbackID, text); err != nil {
		log.Printf("⚠️ Réponse callback: %v", err)
	}
}

// decide applique la décision du propriétaire sur une commande
func (b *Bot) decide(ctx context.Context, callbackID string, chatID int64, action string, id int64) {
	var (
		out *lifecycle.Outcome
		err error
	)
	if action == telegram.ActionApprove {
		out, err = b.engine.ApproveOrder(ctx, id)
	} else {
		out, err = b.engine.RejectOrder(ctx, id)
	}
	if err != nil {
		b.answer(ctx, callbackID, "Impossible")
		b.replyError(ctx, chatID, err)
		return
	}

	if action == telegram.ActionApprove {
		b.answer(ctx, callbackID, fmt.Sprintf("✅ Commande #%d approuvée", id))
	} else {
		b.answer(ctx, callbackID, fmt.Sprintf("❌ Commande #%d refusée", id))
	}
	b.surfaceWarnings(ctx, chatID, out.Warnings)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	return strings.ToUpper(string(r[0])) + string(r[1:])
}
