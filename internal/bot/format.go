package bot

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"storefront_back_end/internal/models"
)

func money(d decimal.Decimal) string {
	return d.StringFixed(2) + " €"
}

func catalogText(products []models.Product) string {
	var b strings.Builder
	b.WriteString("🛍️ Catalogue\n")
	for _, p := range products {
		fmt.Fprintf(&b, "\n📌 %s — %s\n", p.Name, money(p.Price))
		if p.Details != "" {
			fmt.Fprintf(&b, "📝 %s\n", p.Details)
		}
		if p.HasShipping {
			b.WriteString("🚚 Livraison possible\n")
		}
	}
	b.WriteString("\nTouchez un produit pour l'ajouter au panier.")
	return b.String()
}

func ownerCatalogText(products []models.Product) string {
	var b strings.Builder
	b.WriteString("📦 Catalogue actuel :\n")
	for _, p := range products {
		details := p.Details
		if details == "" {
			details = "Sans détails"
		}
		shipping := "Sans livraison"
		if p.HasShipping {
			shipping = "Avec livraison"
		}
		fmt.Fprintf(&b, "\nID : %d\n📌 %s\n💰 %s\n📦 Stock : %d\n📝 %s\n🚚 %s\n",
			p.ID, p.Name, money(p.Price), p.Stock, details, shipping)
	}
	return b.String()
}

func cartText(lines []models.CartLine) string {
	var b strings.Builder
	b.WriteString("🛒 Votre panier :\n")
	for _, l := range lines {
		fmt.Fprintf(&b, "• %s x%d — %s\n", l.Name, l.Quantity, money(l.Subtotal()))
	}
	fmt.Fprintf(&b, "\n💰 Total : %s", money(models.CartTotal(lines)))
	return b.String()
}

func ordersText(orders []models.Order) string {
	var b strings.Builder
	b.WriteString("📋 Vos commandes :\n")
	for _, o := range orders {
		fmt.Fprintf(&b, "\n#%d — %s — %s (%s)", o.ID, o.CreatedAt.Format("02/01/2006"), money(o.Total), o.Status.Label())
	}
	return b.String()
}

func movementsText(productID int64, moves []models.StockMovement) string {
	if len(moves) == 0 {
		return fmt.Sprintf("📭 Aucun mouvement pour le produit #%d.", productID)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "📊 Mouvements du produit #%d :\n", productID)
	for _, m := range moves {
		fmt.Fprintf(&b, "\n%s  %+d → %d (%s", m.CreatedAt.Format("02/01 15:04"), m.Quantity, m.NewStock, m.Type)
		if m.OrderID != 0 {
			fmt.Fprintf(&b, ", commande #%d", m.OrderID)
		}
		b.WriteString(")")
	}
	return b.String()
}
