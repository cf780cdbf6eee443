package notify

import (
	"context"
	"errors"
	"fmt"
	"log"

	"storefront_back_end/internal/models"
	"storefront_back_end/internal/telegram"
)

type PromptStore interface {
	Save(ctx context.Context, orderID, chatID int64, messageID int) error
	Get(ctx context.Context, orderID int64) (chatID int64, messageID int, ok bool, err error)
	Delete(ctx context.Context, orderID int64) error
}

type WebPublisher interface {
	PublishOrderUpdate(ctx context.Context, sessionKey string, payload any) (int64, error)
}

type InvoiceMailer interface {
	SendInvoice(ctx context.Context, o *models.Order, pdf []byte) error
}

// Gateway achemine les notifications vers le propriétaire et vers le canal d'origine des commandes.
// Toutes les erreurs retournées enveloppent models.ErrNotificationDelivery.
type Gateway struct {
	messenger   telegram.Messenger
	ownerChatID int64
	prompts     PromptStore
	web         WebPublisher
	mailer      InvoiceMailer
}

type Options struct {
	Messenger   telegram.Messenger
	OwnerChatID int64
	Prompts     PromptStore
	Web         WebPublisher
	Mailer      InvoiceMailer // optionnel
}

func NewGateway(opts Options) *Gateway {
	return &Gateway{
		messenger:   opts.Messenger,
		ownerChatID: opts.OwnerChatID,
		prompts:     opts.Prompts,
		web:         opts.Web,
		mailer:      opts.Mailer,
	}
}

func deliveryError(what string, err error) error {
	return fmt.Errorf("%w: %s: %v", models.ErrNotificationDelivery, what, err)
}

var errNoOwner = errors.New("OWNER_CHAT_ID non configuré")

// NotifyOwnerNewOrder envoie le récapitulatif avec les boutons approuver/refuser
func (g *Gateway) NotifyOwnerNewOrder(ctx context.Context, o *models.Order) error {
	if g.ownerChatID == 0 {
		return deliveryError("invite propriétaire", errNoOwner)
	}
	buttons := [][]telegram.Button{{
		{Text: "✅ Approuver", Data: telegram.ActionData(telegram.ActionApprove, o.ID)},
		{Text: "❌ Refuser", Data: telegram.ActionData(telegram.ActionReject, o.ID)},
	}}
	msgID, err := g.messenger.Send(ctx, g.ownerChatID, OrderSummary(o), buttons)
	if err != nil {
		return deliveryError(fmt.Sprintf("invite commande #%d", o.ID), err)
	}
	if err := g.prompts.Save(ctx, o.ID, g.ownerChatID, msgID); err != nil {
		// L'invite est partie ; seule son édition ultérieure sera impossible
		log.Printf("⚠️ Invite commande #%d non mémorisée: %v", o.ID, err)
	}
	return nil
}

// NotifyOwnerOrderNoLongerActionable met à jour l'invite d'origine ; sans invite connue, envoie un message
func (g *Gateway) NotifyOwnerOrderNoLongerActionable(ctx context.Context, orderID int64, outcome models.OrderStatus) error {
	text := OutcomeText(orderID, outcome)

	chatID, msgID, ok, err := g.prompts.Get(ctx, orderID)
	if err != nil {
		log.Printf("⚠️ Lecture invite commande #%d: %v", orderID, err)
	}
	if ok {
		if err := g.messenger.Edit(ctx, chatID, msgID, text); err != nil {
			return deliveryError(fmt.Sprintf("édition invite #%d", orderID), err)
		}
		_ = g.prompts.Delete(ctx, orderID)
		return nil
	}

	if g.ownerChatID == 0 {
		return deliveryError("mise à jour propriétaire", errNoOwner)
	}
	if _, err := g.messenger.Send(ctx, g.ownerChatID, text, nil); err != nil {
		return deliveryError(fmt.Sprintf("mise à jour commande #%d", orderID), err)
	}
	return nil
}

// NotifyCustomer dispatche selon l'origine : message Telegram ou publication web.
// Sans client web connecté, la publication est sans effet.
func (g *Gateway) NotifyCustomer(ctx context.Context, origin models.Origin, message string) error {
	switch o := origin.(type) {
	case models.ChatOrigin:
		if _, err := g.messenger.Send(ctx, o.ChatID, message, nil); err != nil {
			return deliveryError(fmt.Sprintf("client chat %d", o.ChatID), err)
		}
	case models.WebOrigin:
		if g.web == nil {
			return nil
		}
		n, err := g.web.PublishOrderUpdate(ctx, o.Key(), map[string]string{"type": "order", "message": message})
		if err != nil {
			return deliveryError("client web", err)
		}
		if n == 0 {
			log.Printf("ℹ️ Aucun client web connecté pour la session %s", o.SessionID)
		}
	default:
		return deliveryError("client", fmt.Errorf("origine inconnue %T", origin))
	}
	return nil
}

// NotifyOwner envoie un message libre au propriétaire (avertissements, alertes de stock)
func (g *Gateway) NotifyOwner(ctx context.Context, text string) error {
	if g.ownerChatID == 0 {
		return deliveryError("message propriétaire", errNoOwner)
	}
	if _, err := g.messenger.Send(ctx, g.ownerChatID, text, nil); err != nil {
		return deliveryError("message propriétaire", err)
	}
	return nil
}

// SendOwnerInvoice transmet la facture au propriétaire sur Telegram et, si configuré, par e-mail
func (g *Gateway) SendOwnerInvoice(ctx context.Context, o *models.Order, pdf []byte) error {
	var errs []error
	if g.ownerChatID != 0 {
		caption := fmt.Sprintf("🧾 Facture commande #%d — %s", o.ID, money(o.Total))
		if err := g.messenger.SendDocument(ctx, g.ownerChatID, fmt.Sprintf("facture_%d.pdf", o.ID), pdf, caption); err != nil {
			errs = append(errs, err)
		}
	}
	if g.mailer != nil {
		if err := g.mailer.SendInvoice(ctx, o, pdf); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return deliveryError(fmt.Sprintf("facture #%d", o.ID), errors.Join(errs...))
	}
	return nil
}
