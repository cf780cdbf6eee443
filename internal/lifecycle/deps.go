package lifecycle

import (
	"context"
	"time"

	"storefront_back_end/internal/invoice"
	"storefront_back_end/internal/models"
)

// Ledger persiste les commandes ; chaque transition est conditionnelle au statut courant
type Ledger interface {
	InsertOrder(ctx context.Context, order *models.Order, clearCartKey string) error
	GetOrder(ctx context.Context, id int64) (*models.Order, error)
	ListOrdersByOrigin(ctx context.Context, origin models.Origin) ([]models.Order, error)
	ListOrdersByStatus(ctx context.Context, status models.OrderStatus) ([]models.Order, error)
	UpdateStatus(ctx context.Context, id int64, from []models.OrderStatus, to models.OrderStatus) (*models.Order, error)
	ApproveOrder(ctx context.Context, id int64, at time.Time) (*models.Order, []models.StockChange, error)
	Reset(ctx context.Context) error
}

type Catalog interface {
	GetProducts(ctx context.Context, ids []int64) (map[int64]models.Product, error)
}

type Carts interface {
	LoadCart(ctx context.Context, sessionKey string) ([]models.CartLine, error)
}

type Notifier interface {
	NotifyOwnerNewOrder(ctx context.Context, o *models.Order) error
	NotifyOwnerOrderNoLongerActionable(ctx context.Context, orderID int64, outcome models.OrderStatus) error
	NotifyCustomer(ctx context.Context, origin models.Origin, message string) error
	NotifyOwner(ctx context.Context, text string) error
	SendOwnerInvoice(ctx context.Context, o *models.Order, pdf []byte) error
}

type Renderer interface {
	Render(s invoice.Snapshot) (*invoice.Document, error)
}

type Archive interface {
	Put(ctx context.Context, orderID int64, doc *invoice.Document) (string, error)
}

type Journal interface {
	RecordStockMovement(ctx context.Context, m models.StockMovement) error
	RecordAudit(ctx context.Context, e models.AuditEntry) error
	Truncate(ctx context.Context) error
}

type Events interface {
	PublishOrderEvent(ctx context.Context, ev models.OrderEvent) error
}

// CartPublisher prévient les clients web qu'un panier vient d'être vidé par une commande
type CartPublisher interface {
	PublishCartUpdate(ctx context.Context, sessionKey string) error
}

// Deps regroupe les collaborateurs du moteur. Ledger, Catalog, Carts et Notifier
// sont obligatoires ; les autres peuvent rester nil.
type Deps struct {
	Ledger   Ledger
	Catalog  Catalog
	Carts    Carts
	Notifier Notifier

	Renderer Renderer
	Archive  Archive
	Journal  Journal
	Events   Events
	Live     CartPublisher

	// ResetHooks sont appelés après la purge du stockage (cache, index de recherche)
	ResetHooks []func(ctx context.Context) error

	LowStockThreshold int
	Now               func() time.Time
}
