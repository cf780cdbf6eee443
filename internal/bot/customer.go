package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"storefront_back_end/internal/lifecycle"
	"storefront_back_end/internal/models"
	"storefront_back_end/internal/notify"
	"storefront_back_end/internal/telegram"
)

const helpText = `👋 Bienvenue dans la boutique !

🛍️ Commandes disponibles :
/catalogue - Voir les produits
/panier - Voir votre panier
/vider - Vider votre panier
/commander - Envoyer votre commande
/mescommandes - Suivre vos commandes
/annuler <id> - Annuler une commande en attente
/id - Obtenir votre identifiant de chat`

const ownerHelpText = `

🔑 Propriétaire :
/produits - Tous les produits
/ajouter - Ajouter un produit (guidé)
/ajouter Nom | Prix | Stock | Détails | oui/non
/supprimer <id> - Supprimer un produit
/attente - Commandes à valider
/mouvements <id> - Journal de stock
/reset CONFIRMER - Tout réinitialiser
/abandon - Abandonner une saisie`

func (b *Bot) customerCommand(ctx context.Context, msg *tgbotapi.Message, cmd, args string) {
	chatID := msg.Chat.ID
	origin := models.ChatOrigin{ChatID: chatID}

	switch cmd {
	case "start", "aide", "help":
		text := helpText
		if b.isOwner(chatID) {
			text += ownerHelpText
		}
		b.reply(ctx, chatID, text)
	case "id":
		b.reply(ctx, chatID, fmt.Sprintf("🆔 Votre identifiant de chat : %d", chatID))
	case "catalogue":
		b.showCatalog(ctx, chatID)
	case "panier":
		b.showCart(ctx, origin)
	case "vider":
		if err := b.carts.Clear(ctx, origin); err != nil {
			b.replyError(ctx, chatID, err)
			return
		}
		b.reply(ctx, chatID, "🗑️ Panier vidé.")
	case "commander":
		b.placeOrder(ctx, origin, customerName(msg.From, chatID))
	case "mescommandes":
		b.showOrders(ctx, origin)
	case "annuler":
		b.cancelOrder(ctx, origin, args)
	default:
		b.reply(ctx, chatID, "Commande inconnue. Tapez /start pour l'aide.")
	}
}

// customerName compose le nom affiché au propriétaire à partir du profil Telegram
func customerName(u *tgbotapi.User, chatID int64) string {
	if u != nil {
		name := strings.TrimSpace(u.FirstName + " " + u.LastName)
		if name != "" {
			return name
		}
		if u.UserName != "" {
			return "@" + u.UserName
		}
	}
	return fmt.Sprintf("Client %d", chatID)
}

func (b *Bot) showCatalog(ctx context.Context, chatID int64) {
	products, err := b.catalog.ListAvailable(ctx)
	if err != nil {
		b.replyError(ctx, chatID, err)
		return
	}
	if len(products) == 0 {
		b.reply(ctx, chatID, "📭 Le catalogue est vide pour le moment.")
		return
	}
	buttons := make([][]telegram.Button, 0, len(products))
	for _, p := range products {
		buttons = append(buttons, []telegram.Button{{
			Text: fmt.Sprintf("➕ %s (%s)", p.Name, money(p.Price)),
			Data: telegram.ActionData(telegram.ActionAdd, p.ID),
		}})
	}
	b.replyButtons(ctx, chatID, catalogText(products), buttons)
}

func (b *Bot) startCartQuantity(ctx context.Context, chatID, productID int64) {
	p, err := b.catalog.GetProduct(ctx, productID)
	if err != nil {
		b.replyError(ctx, chatID, err)
		return
	}
	if !p.Available() {
		b.reply(ctx, chatID, fmt.Sprintf("😕 %s n'est plus disponible.", p.Name))
		return
	}
	conv := &models.Conversation{ChatID: chatID, Flow: models.FlowCartQuantity, Step: models.StepQuantity, ProductID: p.ID}
	if err := b.conversations.Save(ctx, conv); err != nil {
		b.replyError(ctx, chatID, err)
		return
	}
	b.reply(ctx, chatID, fmt.Sprintf("🔢 Combien d'unités de %s ? (%d disponible(s))", p.Name, p.Stock))
}

func (b *Bot) continueCartQuantity(ctx context.Context, conv *models.Conversation, text string) {
	chatID := conv.ChatID
	qty, err := strconv.Atoi(text)
	if err != nil || qty <= 0 {
		b.reply(ctx, chatID, "❌ Entrez un nombre entier supérieur à 0 (ou /abandon).")
		return
	}
	_ = b.conversations.Clear(ctx, chatID)

	lines, err := b.carts.Add(ctx, models.ChatOrigin{ChatID: chatID}, conv.ProductID, qty)
	if err != nil {
		b.replyError(ctx, chatID, err)
		return
	}
	b.reply(ctx, chatID, fmt.Sprintf("🛒 Ajouté au panier.\n\n%s\n\n/commander pour valider, /catalogue pour continuer.", cartText(lines)))
}

func (b *Bot) showCart(ctx context.Context, origin models.ChatOrigin) {
	lines, err := b.carts.Get(ctx, origin)
	if err != nil {
		b.replyError(ctx, origin.ChatID, err)
		return
	}
	if len(lines) == 0 {
		b.reply(ctx, origin.ChatID, "🛒 Votre panier est vide. Parcourez le /catalogue !")
		return
	}
	b.reply(ctx, origin.ChatID, cartText(lines)+"\n\n/commander pour valider, /vider pour recommencer.")
}

// placeOrder transmet directement le panier au propriétaire, sans brouillon
func (b *Bot) placeOrder(ctx context.Context, origin models.ChatOrigin, name string) {
	out, err := b.engine.CreateOrder(ctx, lifecycle.CreateOrderInput{
		CustomerName: name,
		Origin:       origin,
		FromCart:     true,
	})
	var ve *models.ValidationError
	if errors.As(err, &ve) && ve.Field == "items" {
		b.reply(ctx, origin.ChatID, "🛒 Votre panier est vide. Parcourez le /catalogue !")
		return
	}
	if err != nil {
		b.replyError(ctx, origin.ChatID, err)
		return
	}
	b.reply(ctx, origin.ChatID, notify.CustomerStatusMessage(out.Order))
	if b.isOwner(origin.ChatID) {
		b.surfaceWarnings(ctx, origin.ChatID, out.Warnings)
	}
}

func (b *Bot) showOrders(ctx context.Context, origin models.ChatOrigin) {
	orders, err := b.engine.ListOrdersByOrigin(ctx, origin)
	if err != nil {
		b.replyError(ctx, origin.ChatID, err)
		return
	}
	if len(orders) == 0 {
		b.reply(ctx, origin.ChatID, "📭 Vous n'avez pas encore passé de commande.")
		return
	}
	b.reply(ctx, origin.ChatID, ordersText(orders))
}

// cancelOrder n'agit que sur une commande passée depuis ce chat
func (b *Bot) cancelOrder(ctx context.Context, origin models.ChatOrigin, args string) {
	id, ok := parseID(args)
	if !ok {
		b.reply(ctx, origin.ChatID, "⚠️ Format : /annuler <id commande>")
		return
	}
	order, err := b.engine.GetOrder(ctx, id)
	if err == nil && !models.SameOrigin(order.Origin, origin) {
		err = models.OrderNotFound(id)
	}
	if err != nil {
		b.replyError(ctx, origin.ChatID, err)
		return
	}
	out, err := b.engine.CancelOrder(ctx, id)
	if err != nil {
		b.replyError(ctx, origin.ChatID, err)
		return
	}
	b.reply(ctx, origin.ChatID, notify.CustomerStatusMessage(out.Order))
}
