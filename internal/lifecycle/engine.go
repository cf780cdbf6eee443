package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"storefront_back_end/internal/invoice"
	"storefront_back_end/internal/models"
	"storefront_back_end/internal/notify"
)

const (
	actorCustomer = "customer"
	actorOwner    = "owner"
)

type ItemRequest struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

type CreateOrderInput struct {
	CustomerName  string
	Origin        models.Origin
	Items         []ItemRequest
	PaymentMethod string
	// FromCart prend les lignes du panier de l'origine quand Items est vide,
	// et vide ce panier dans la même transaction que l'insertion.
	FromCart bool
	// RequireConfirmation crée la commande en brouillon (flux web)
	RequireConfirmation bool
}

// Outcome est le résultat d'une transition. Warnings liste les effets
// secondaires qui ont échoué après validation (notification, facture).
type Outcome struct {
	Order    *models.Order
	Warnings []string
}

func (o *Outcome) warn(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	log.Printf("⚠️ %s", msg)
	o.Warnings = append(o.Warnings, msg)
}

// Engine applique la machine à états des commandes et la politique de stock
type Engine struct {
	ledger   Ledger
	catalog  Catalog
	carts    Carts
	notifier Notifier

	renderer Renderer
	archive  Archive
	journal  Journal
	events   Events
	live     CartPublisher
	hooks    []func(ctx context.Context) error

	lowStock int
	now      func() time.Time
}

func NewEngine(d Deps) *Engine {
	e := &Engine{
		ledger:   d.Ledger,
		catalog:  d.Catalog,
		carts:    d.Carts,
		notifier: d.Notifier,
		renderer: d.Renderer,
		archive:  d.Archive,
		journal:  d.Journal,
		events:   d.Events,
		live:     d.Live,
		hooks:    d.ResetHooks,
		lowStock: d.LowStockThreshold,
		now:      d.Now,
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e
}

// mergeItems fusionne les lignes d'un même produit en gardant l'ordre de première apparition
func mergeItems(items []ItemRequest) ([]ItemRequest, error) {
	merged := make([]ItemRequest, 0, len(items))
	index := make(map[int64]int, len(items))
	for _, it := range items {
		if it.Quantity <= 0 {
			return nil, &models.ValidationError{Field: "quantity", Reason: "la quantité doit être supérieure à 0"}
		}
		if i, ok := index[it.ProductID]; ok {
			merged[i].Quantity += it.Quantity
			continue
		}
		index[it.ProductID] = len(merged)
		merged = append(merged, it)
	}
	return merged, nil
}

// CreateOrder valide les lignes contre le catalogue courant puis enregistre la commande.
// Le stock n'est pas réservé : il ne sera décrémenté qu'à l'approbation.
func (e *Engine) CreateOrder(ctx context.Context, in CreateOrderInput) (*Outcome, error) {
	if in.Origin == nil {
		return nil, &models.ValidationError{Field: "origin", Reason: "origine de la commande manquante"}
	}
	name := strings.TrimSpace(in.CustomerName)
	if name == "" {
		return nil, &models.ValidationError{Field: "customerName", Reason: "le nom du client est obligatoire"}
	}

	items := in.Items
	clearKey := ""
	if in.FromCart {
		clearKey = in.Origin.Key()
		if len(items) == 0 {
			lines, err := e.carts.LoadCart(ctx, clearKey)
			if err != nil {
				return nil, err
			}
			for _, l := range lines {
				items = append(items, ItemRequest{ProductID: l.ProductID, Quantity: l.Quantity})
			}
		}
	}
	if len(items) == 0 {
		return nil, &models.ValidationError{Field: "items", Reason: "la commande doit contenir au moins un produit"}
	}

	merged, err := mergeItems(items)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, len(merged))
	for i, it := range merged {
		ids[i] = it.ProductID
	}
	products, err := e.catalog.GetProducts(ctx, ids)
	if err != nil {
		return nil, err
	}

	orderItems := make([]models.OrderItem, 0, len(merged))
	for _, it := range merged {
		p, ok := products[it.ProductID]
		if !ok {
			return nil, models.ProductNotFound(it.ProductID)
		}
		if p.Stock < it.Quantity {
			return nil, &models.StockError{ProductID: p.ID, ProductName: p.Name, Requested: it.Quantity, Available: p.Stock}
		}
		id := p.ID
		orderItems = append(orderItems, models.OrderItem{
			ProductID:   &id,
			ProductName: p.Name,
			Quantity:    it.Quantity,
			UnitPrice:   p.Price,
		})
	}

	status := models.StatusPendingApproval
	if in.RequireConfirmation {
		status = models.StatusDraft
	}
	order := &models.Order{
		CustomerName:  name,
		Origin:        in.Origin,
		PaymentMethod: strings.TrimSpace(in.PaymentMethod),
		Status:        status,
		CreatedAt:     e.now(),
		Items:         orderItems,
		Total:         models.ItemsTotal(orderItems),
	}
	if err := e.ledger.InsertOrder(ctx, order, clearKey); err != nil {
		return nil, err
	}
	log.Printf("🛒 Commande #%d créée (%s, %s)", order.ID, order.Status, order.Total.StringFixed(2))

	out := &Outcome{Order: order}
	if clearKey != "" && e.live != nil {
		if err := e.live.PublishCartUpdate(ctx, clearKey); err != nil {
			log.Printf("⚠️ Publication panier %s: %v", clearKey, err)
		}
	}
	e.record(ctx, order, actorCustomer)
	if order.Status == models.StatusPendingApproval {
		if err := e.notifier.NotifyOwnerNewOrder(ctx, order); err != nil {
			out.warn("Commande #%d : le propriétaire n'a pas été prévenu (%v)", order.ID, err)
		}
	}
	return out, nil
}

// ConfirmOrder soumet un brouillon au propriétaire
func (e *Engine) ConfirmOrder(ctx context.Context, id int64) (*Outcome, error) {
	order, err := e.transition(ctx, id, "confirmer", []models.OrderStatus{models.StatusDraft}, models.StatusPendingApproval)
	if err != nil {
		return nil, err
	}
	out := &Outcome{Order: order}
	e.record(ctx, order, actorCustomer)
	if err := e.notifier.NotifyOwnerNewOrder(ctx, order); err != nil {
		out.warn("Commande #%d : le propriétaire n'a pas été prévenu (%v)", id, err)
	}
	return out, nil
}

// CancelOrder annule une commande non traitée, sans effet sur le stock
func (e *Engine) CancelOrder(ctx context.Context, id int64) (*Outcome, error) {
	wasPending := true
	order, err := e.ledger.UpdateStatus(ctx, id,
		[]models.OrderStatus{models.StatusPendingApproval}, models.StatusCancelledByCustomer)
	var se *models.StateError
	if errors.As(err, &se) && se.Status == models.StatusDraft {
		wasPending = false
		order, err = e.ledger.UpdateStatus(ctx, id,
			[]models.OrderStatus{models.StatusDraft}, models.StatusCancelledByCustomer)
	}
	if err != nil {
		if errors.As(err, &se) {
			se.Action = "annuler"
		}
		return nil, err
	}

	out := &Outcome{Order: order}
	e.record(ctx, order, actorCustomer)
	// Un brouillon n'a jamais été présenté au propriétaire
	if wasPending {
		if err := e.notifier.NotifyOwnerOrderNoLongerActionable(ctx, id, models.StatusCancelledByCustomer); err != nil {
			out.warn("Commande #%d : invite du propriétaire non mise à jour (%v)", id, err)
		}
	}
	return out, nil
}

// RejectOrder refuse une commande en attente, sans effet sur le stock
func (e *Engine) RejectOrder(ctx context.Context, id int64) (*Outcome, error) {
	order, err := e.transition(ctx, id, "refuser", []models.OrderStatus{models.StatusPendingApproval}, models.StatusRejected)
	if err != nil {
		return nil, err
	}
	log.Printf("❌ Commande #%d refusée", id)
	out := &Outcome{Order: order}
	e.record(ctx, order, actorOwner)
	if err := e.notifier.NotifyCustomer(ctx, order.Origin, notify.CustomerStatusMessage(order)); err != nil {
		out.warn("Commande #%d : client non prévenu du refus (%v)", id, err)
	}
	if err := e.notifier.NotifyOwnerOrderNoLongerActionable(ctx, id, models.StatusRejected); err != nil {
		out.warn("Commande #%d : invite du propriétaire non mise à jour (%v)", id, err)
	}
	return out, nil
}

// ApproveOrder décrémente le stock de toutes les lignes en une transaction puis
// déclenche la facture et les notifications. Les étapes après validation ne
// font jamais échouer l'approbation.
func (e *Engine) ApproveOrder(ctx context.Context, id int64) (*Outcome, error) {
	order, changes, err := e.ledger.ApproveOrder(ctx, id, e.now())
	if err != nil {
		var se *models.StateError
		if errors.As(err, &se) {
			se.Action = "approuver"
		}
		return nil, err
	}
	log.Printf("✅ Commande #%d approuvée (%s)", id, order.Total.StringFixed(2))

	out := &Outcome{Order: order}
	e.deliverInvoice(ctx, order, out)

	if err := e.notifier.NotifyCustomer(ctx, order.Origin, notify.CustomerStatusMessage(order)); err != nil {
		out.warn("Commande #%d : client non prévenu de l'approbation (%v)", id, err)
	}
	if err := e.notifier.NotifyOwnerOrderNoLongerActionable(ctx, id, models.StatusApproved); err != nil {
		out.warn("Commande #%d : invite du propriétaire non mise à jour (%v)", id, err)
	}

	e.record(ctx, order, actorOwner)
	e.journalStock(ctx, order, changes)
	e.alertLowStock(ctx, order, changes, out)
	return out, nil
}

func (e *Engine) deliverInvoice(ctx context.Context, order *models.Order, out *Outcome) {
	if e.renderer == nil {
		return
	}
	snapshot, err := invoice.SnapshotFromOrder(order)
	if err != nil {
		out.warn("Commande #%d : facture non générée (%v)", order.ID, err)
		return
	}
	doc, err := e.renderer.Render(snapshot)
	if err != nil {
		out.warn("Commande #%d : facture non générée (%v)", order.ID, err)
		return
	}
	if err := e.notifier.SendOwnerInvoice(ctx, order, doc.Data); err != nil {
		out.warn("Commande #%d : facture non transmise (%v)", order.ID, err)
	}
	if e.archive != nil {
		if key, err := e.archive.Put(ctx, order.ID, doc); err != nil {
			log.Printf("⚠️ %v", err)
		} else {
			log.Printf("🪣 Facture archivée : %s", key)
		}
	}
}

func (e *Engine) journalStock(ctx context.Context, order *models.Order, changes []models.StockChange) {
	if e.journal == nil {
		return
	}
	at := e.now()
	if order.ApprovedAt != nil {
		at = *order.ApprovedAt
	}
	for _, c := range changes {
		err := e.journal.RecordStockMovement(ctx, models.StockMovement{
			ProductID: c.ProductID,
			OrderID:   order.ID,
			Type:      "sale",
			Quantity:  -c.Quantity,
			NewStock:  c.Remaining,
			CreatedAt: at,
		})
		if err != nil {
			log.Printf("⚠️ Journal stock: %v", err)
		}
	}
}

func (e *Engine) alertLowStock(ctx context.Context, order *models.Order, changes []models.StockChange, out *Outcome) {
	if e.lowStock <= 0 {
		return
	}
	names := make(map[int64]string, len(order.Items))
	for _, it := range order.Items {
		if it.ProductID != nil {
			names[*it.ProductID] = it.ProductName
		}
	}
	for _, c := range changes {
		if c.Remaining > e.lowStock {
			continue
		}
		if err := e.notifier.NotifyOwner(ctx, notify.LowStockText(c, names[c.ProductID])); err != nil {
			out.warn("Alerte de stock non envoyée pour le produit #%d (%v)", c.ProductID, err)
		}
	}
}

// transition applique un changement de statut conditionnel et nomme l'action refusée
func (e *Engine) transition(ctx context.Context, id int64, action string, from []models.OrderStatus, to models.OrderStatus) (*models.Order, error) {
	order, err := e.ledger.UpdateStatus(ctx, id, from, to)
	if err != nil {
		var se *models.StateError
		if errors.As(err, &se) {
			se.Action = action
		}
		return nil, err
	}
	return order, nil
}

// record journalise la transition et publie l'événement associé
func (e *Engine) record(ctx context.Context, order *models.Order, actor string) {
	at := e.now()
	if e.journal != nil {
		err := e.journal.RecordAudit(ctx, models.AuditEntry{
			OrderID:   order.ID,
			Status:    order.Status,
			Actor:     actor,
			CreatedAt: at,
		})
		if err != nil {
			log.Printf("⚠️ Audit commande #%d: %v", order.ID, err)
		}
	}
	if e.events != nil {
		if err := e.events.PublishOrderEvent(ctx, models.NewOrderEvent(order, at)); err != nil {
			log.Printf("⚠️ Événement commande #%d: %v", order.ID, err)
		}
	}
}

func (e *Engine) GetOrder(ctx context.Context, id int64) (*models.Order, error) {
	return e.ledger.GetOrder(ctx, id)
}

// ListOrdersByOrigin retourne les commandes d'un client, les plus récentes d'abord
func (e *Engine) ListOrdersByOrigin(ctx context.Context, origin models.Origin) ([]models.Order, error) {
	return e.ledger.ListOrdersByOrigin(ctx, origin)
}

// ListPendingOrders retourne la file d'attente du propriétaire, la plus ancienne d'abord
func (e *Engine) ListPendingOrders(ctx context.Context) ([]models.Order, error) {
	return e.ledger.ListOrdersByStatus(ctx, models.StatusPendingApproval)
}

// Reset purge produits, commandes et paniers puis nettoie les données dérivées
func (e *Engine) Reset(ctx context.Context) error {
	if err := e.ledger.Reset(ctx); err != nil {
		return err
	}
	log.Println("🧹 Boutique réinitialisée")
	if e.journal != nil {
		if err := e.journal.Truncate(ctx); err != nil {
			log.Printf("⚠️ Purge du journal: %v", err)
		}
	}
	for _, hook := range e.hooks {
		if err := hook(ctx); err != nil {
			log.Printf("⚠️ Réinitialisation: %v", err)
		}
	}
	return nil
}
