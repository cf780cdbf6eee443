package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"storefront_back_end/internal/models"
)

const (
	resetConfirmation = "CONFIRMER"
	movementsLimit    = 15
)

var ownerCommands = map[string]bool{
	"produits":   true,
	"ajouter":    true,
	"supprimer":  true,
	"attente":    true,
	"mouvements": true,
	"reset":      true,
}

// ownerCommand traite les commandes propriétaire ; retourne false si cmd n'en est pas une
func (b *Bot) ownerCommand(ctx context.Context, chatID int64, cmd, args string) bool {
	if !ownerCommands[cmd] {
		return false
	}
	if !b.isOwner(chatID) {
		b.reply(ctx, chatID, "⛔ Commande réservée au propriétaire.")
		return true
	}

	switch cmd {
	case "produits":
		b.listAllProducts(ctx, chatID)
	case "ajouter":
		if args == "" {
			b.startAddProduct(ctx, chatID)
		} else {
			b.quickAddProduct(ctx, chatID, args)
		}
	case "supprimer":
		b.deleteProduct(ctx, chatID, args)
	case "attente":
		b.resendPending(ctx, chatID)
	case "mouvements":
		b.showMovements(ctx, chatID, args)
	case "reset":
		b.reset(ctx, chatID, args)
	}
	return true
}

func (b *Bot) listAllProducts(ctx context.Context, chatID int64) {
	products, err := b.catalog.ListProducts(ctx)
	if err != nil {
		b.replyError(ctx, chatID, err)
		return
	}
	if len(products) == 0 {
		b.reply(ctx, chatID, "📭 Aucun produit enregistré. Ajoutez-en avec /ajouter.")
		return
	}
	b.reply(ctx, chatID, ownerCatalogText(products))
}

// --- Ajout guidé : nom → prix → stock → détails → livraison ---

func (b *Bot) startAddProduct(ctx context.Context, chatID int64) {
	conv := &models.Conversation{ChatID: chatID, Flow: models.FlowAddProduct, Step: models.StepName}
	if err := b.conversations.Save(ctx, conv); err != nil {
		b.replyError(ctx, chatID, err)
		return
	}
	b.reply(ctx, chatID, "🆕 Nouveau produit (/abandon pour annuler)\n\n1/5 — Quel est le nom du produit ?")
}

func parsePrice(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "€"))
	return decimal.NewFromString(strings.Replace(s, ",", ".", 1))
}

func parseYesNo(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "oui", "o", "yes", "y", "si":
		return true, true
	case "non", "n", "no":
		return false, true
	}
	return false, false
}

func (b *Bot) continueAddProduct(ctx context.Context, conv *models.Conversation, text string) {
	chatID := conv.ChatID

	switch conv.Step {
	case models.StepName:
		if text == "" {
			b.reply(ctx, chatID, "❌ Le nom est obligatoire. Quel est le nom du produit ?")
			return
		}
		conv.Draft.Name = text
		conv.Step = models.StepPrice
		b.saveAndAsk(ctx, conv, "2/5 — Quel est le prix ? (ex : 12.50)")

	case models.StepPrice:
		price, err := parsePrice(text)
		if err != nil || !price.IsPositive() {
			b.reply(ctx, chatID, "❌ Prix invalide. Entrez un nombre supérieur à 0 (ex : 12.50).")
			return
		}
		conv.Draft.Price = price
		conv.Step = models.StepStock
		b.saveAndAsk(ctx, conv, "3/5 — Combien d'unités en stock ?")

	case models.StepStock:
		stock, err := strconv.Atoi(text)
		if err != nil || stock < 0 {
			b.reply(ctx, chatID, "❌ Stock invalide. Entrez un nombre entier positif ou nul.")
			return
		}
		conv.Draft.Stock = stock
		conv.Step = models.StepDetails
		b.saveAndAsk(ctx, conv, "4/5 — Détails du produit ? (tapez - pour aucun)")

	case models.StepDetails:
		if text == "-" {
			text = ""
		}
		conv.Draft.Details = text
		conv.Step = models.StepShipping
		b.saveAndAsk(ctx, conv, "5/5 — Livraison possible ? (oui/non)")

	case models.StepShipping:
		shipping, ok := parseYesNo(text)
		if !ok {
			b.reply(ctx, chatID, "❌ Répondez par oui ou non.")
			return
		}
		_ = b.conversations.Clear(ctx, chatID)
		b.createProduct(ctx, chatID, models.NewProduct{
			Name:        conv.Draft.Name,
			Price:       conv.Draft.Price,
			Stock:       conv.Draft.Stock,
			Details:     conv.Draft.Details,
			HasShipping: shipping,
		})

	default:
		_ = b.conversations.Clear(ctx, chatID)
	}
}

func (b *Bot) saveAndAsk(ctx context.Context, conv *models.Conversation, question string) {
	if err := b.conversations.Save(ctx, conv); err != nil {
		b.replyError(ctx, conv.ChatID, err)
		return
	}
	b.reply(ctx, conv.ChatID, question)
}

const quickAddUsage = "⚠️ Format : /ajouter Nom | Prix | Stock | Détails | oui/non"

// quickAddProduct accepte la forme en une ligne de /ajouter
func (b *Bot) quickAddProduct(ctx context.Context, chatID int64, args string) {
	parts := strings.Split(args, "|")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	if len(parts) < 3 || len(parts) > 5 {
		b.reply(ctx, chatID, quickAddUsage)
		return
	}

	price, err := parsePrice(parts[1])
	if err != nil {
		b.reply(ctx, chatID, "❌ Prix invalide.\n"+quickAddUsage)
		return
	}
	stock, err := strconv.Atoi(parts[2])
	if err != nil {
		b.reply(ctx, chatID, "❌ Stock invalide.\n"+quickAddUsage)
		return
	}
	in := models.NewProduct{Name: parts[0], Price: price, Stock: stock}
	if len(parts) > 3 {
		in.Details = parts[3]
	}
	if len(parts) > 4 {
		shipping, ok := parseYesNo(parts[4])
		if !ok {
			b.reply(ctx, chatID, "❌ Livraison : oui ou non.\n"+quickAddUsage)
			return
		}
		in.HasShipping = shipping
	}
	b.createProduct(ctx, chatID, in)
}

func (b *Bot) createProduct(ctx context.Context, chatID int64, in models.NewProduct) {
	p, err := b.catalog.CreateProduct(ctx, in)
	if err != nil {
		b.replyError(ctx, chatID, err)
		return
	}
	b.reply(ctx, chatID, fmt.Sprintf("✅ Produit « %s » ajouté avec l'ID %d\n💰 %s — 📦 stock %d", p.Name, p.ID, money(p.Price), p.Stock))
}

func parseID(args string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimPrefix(strings.TrimSpace(args), "#"), 10, 64)
	return id, err == nil && id > 0
}

func (b *Bot) deleteProduct(ctx context.Context, chatID int64, args string) {
	id, ok := parseID(args)
	if !ok {
		b.reply(ctx, chatID, "⚠️ Format : /supprimer <id>")
		return
	}
	if err := b.catalog.DeleteProduct(ctx, id); err != nil {
		b.replyError(ctx, chatID, err)
		return
	}
	b.reply(ctx, chatID, fmt.Sprintf("🗑️ Produit #%d supprimé.", id))
}

// resendPending renvoie une invite par commande en attente, la plus ancienne d'abord
func (b *Bot) resendPending(ctx context.Context, chatID int64) {
	orders, err := b.engine.ListPendingOrders(ctx)
	if err != nil {
		b.replyError(ctx, chatID, err)
		return
	}
	if len(orders) == 0 {
		b.reply(ctx, chatID, "✅ Aucune commande en attente.")
		return
	}
	b.reply(ctx, chatID, fmt.Sprintf("⏳ %d commande(s) en attente :", len(orders)))
	for i := range orders {
		if err := b.prompter.NotifyOwnerNewOrder(ctx, &orders[i]); err != nil {
			b.reply(ctx, chatID, fmt.Sprintf("⚠️ Invite de la commande #%d non envoyée", orders[i].ID))
		}
	}
}

func (b *Bot) showMovements(ctx context.Context, chatID int64, args string) {
	id, ok := parseID(args)
	if !ok {
		b.reply(ctx, chatID, "⚠️ Format : /mouvements <id produit>")
		return
	}
	if b.movements == nil {
		b.reply(ctx, chatID, "ℹ️ Journal des stocks non configuré.")
		return
	}
	moves, err := b.movements.StockMovements(ctx, id, movementsLimit)
	if err != nil {
		b.replyError(ctx, chatID, err)
		return
	}
	b.reply(ctx, chatID, movementsText(id, moves))
}

func (b *Bot) reset(ctx context.Context, chatID int64, args string) {
	if args != resetConfirmation {
		b.reply(ctx, chatID, "⚠️ Cette commande supprime tous les produits, commandes et paniers.\nPour confirmer : /reset "+resetConfirmation)
		return
	}
	if err := b.engine.Reset(ctx); err != nil {
		b.replyError(ctx, chatID, err)
		return
	}
	b.reply(ctx, chatID, "🧹 Boutique réinitialisée.")
}
