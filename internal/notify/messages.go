package notify

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"storefront_back_end/internal/models"
)

func money(d decimal.Decimal) string {
	return d.StringFixed(2) + " €"
}

// OrderSummary formate le récapitulatif envoyé au propriétaire
func OrderSummary(o *models.Order) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🛒 Nouvelle commande #%d\n", o.ID)
	fmt.Fprintf(&b, "👤 Client : %s\n", o.CustomerName)
	fmt.Fprintf(&b, "📍 Canal : %s\n", originLabel(o.Origin))
	if o.PaymentMethod != "" {
		fmt.Fprintf(&b, "💳 Paiement : %s\n", o.PaymentMethod)
	}
	b.WriteString("\n")
	for _, it := range o.Items {
		fmt.Fprintf(&b, "• %s x%d — %s\n", it.ProductName, it.Quantity, money(it.Subtotal()))
	}
	fmt.Fprintf(&b, "\n💰 Total : %s", money(o.Total))
	return b.String()
}

// OutcomeText remplace l'invite une fois la commande traitée
func OutcomeText(orderID int64, outcome models.OrderStatus) string {
	switch outcome {
	case models.StatusApproved:
		return fmt.Sprintf("✅ Commande #%d approuvée", orderID)
	case models.StatusRejected:
		return fmt.Sprintf("❌ Commande #%d refusée", orderID)
	case models.StatusCancelledByCustomer:
		return fmt.Sprintf("🚫 Commande #%d annulée par le client", orderID)
	}
	return fmt.Sprintf("Commande #%d : %s", orderID, outcome.Label())
}

// CustomerStatusMessage formate le message envoyé au client après une décision
func CustomerStatusMessage(o *models.Order) string {
	switch o.Status {
	case models.StatusPendingApproval:
		return fmt.Sprintf("📨 Votre commande #%d (%s) a bien été transmise. Vous serez prévenu dès sa validation.", o.ID, money(o.Total))
	case models.StatusApproved:
		return fmt.Sprintf("✅ Votre commande #%d a été approuvée ! Total : %s. Merci pour votre achat.", o.ID, money(o.Total))
	case models.StatusRejected:
		return fmt.Sprintf("❌ Votre commande #%d n'a pas pu être acceptée. N'hésitez pas à nous contacter.", o.ID)
	case models.StatusCancelledByCustomer:
		return fmt.Sprintf("🚫 Votre commande #%d a été annulée.", o.ID)
	}
	return fmt.Sprintf("Commande #%d : %s", o.ID, o.Status.Label())
}

func LowStockText(p models.StockChange, name string) string {
	if p.Remaining == 0 {
		return fmt.Sprintf("🚨 Rupture de stock : %s (#%d)", name, p.ProductID)
	}
	return fmt.Sprintf("⚠️ Stock bas : %s (#%d) — %d restant(s)", name, p.ProductID, p.Remaining)
}

func originLabel(o models.Origin) string {
	switch v := o.(type) {
	case models.ChatOrigin:
		return fmt.Sprintf("Telegram (%d)", v.ChatID)
	case models.WebOrigin:
		return "Web"
	}
	return "inconnu"
}
