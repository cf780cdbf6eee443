package cart

import (
	"context"
	"log"

	"storefront_back_end/internal/models"
)

// Storage persiste les paniers par clé de session (upsert, dernier écrit gagnant)
type Storage interface {
	LoadCart(ctx context.Context, sessionKey string) ([]models.CartLine, error)
	SaveCart(ctx context.Context, sessionKey string, lines []models.CartLine) error
	DeleteCart(ctx context.Context, sessionKey string) error
}

type Catalog interface {
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
}

// Notifier prévient les clients web connectés qu'un panier a changé
type Notifier interface {
	PublishCartUpdate(ctx context.Context, sessionKey string) error
}

type Service struct {
	storage Storage
	catalog Catalog
	live    Notifier
}

func NewService(storage Storage, catalog Catalog, live Notifier) *Service {
	return &Service{storage: storage, catalog: catalog, live: live}
}

// Get retourne le panier ; un panier inexistant est vide, jamais une erreur
func (s *Service) Get(ctx context.Context, origin models.Origin) ([]models.CartLine, error) {
	return s.storage.LoadCart(ctx, origin.Key())
}

// Add ajoute qty unités du produit ; si la ligne existe, la quantité cumulée
// est revalidée contre le stock actuel.
func (s *Service) Add(ctx context.Context, origin models.Origin, productID int64, qty int) ([]models.CartLine, error) {
	if qty <= 0 {
		return nil, &models.ValidationError{Field: "quantity", Reason: "la quantité doit être supérieure à 0"}
	}

	product, err := s.catalog.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	key := origin.Key()
	lines, err := s.storage.LoadCart(ctx, key)
	if err != nil {
		return nil, err
	}

	idx := indexOf(lines, productID)
	newQty := qty
	if idx >= 0 {
		newQty += lines[idx].Quantity
	}
	if newQty > product.Stock {
		return nil, &models.StockError{ProductID: product.ID, ProductName: product.Name, Requested: newQty, Available: product.Stock}
	}

	if idx >= 0 {
		lines[idx].Quantity = newQty
	} else {
		lines = append(lines, models.CartLine{
			ProductID: product.ID,
			Name:      product.Name,
			Price:     product.Price,
			Quantity:  qty,
		})
	}

	if err := s.save(ctx, key, lines); err != nil {
		return nil, err
	}
	return lines, nil
}

// SetQuantity fixe la quantité d'une ligne ; 0 ou moins retire la ligne
func (s *Service) SetQuantity(ctx context.Context, origin models.Origin, productID int64, qty int) ([]models.CartLine, error) {
	if qty <= 0 {
		return s.Remove(ctx, origin, productID)
	}

	key := origin.Key()
	lines, err := s.storage.LoadCart(ctx, key)
	if err != nil {
		return nil, err
	}
	idx := indexOf(lines, productID)
	if idx < 0 {
		return s.Add(ctx, origin, productID, qty)
	}

	product, err := s.catalog.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if qty > product.Stock {
		return nil, &models.StockError{ProductID: product.ID, ProductName: product.Name, Requested: qty, Available: product.Stock}
	}

	lines[idx].Quantity = qty
	if err := s.save(ctx, key, lines); err != nil {
		return nil, err
	}
	return lines, nil
}

// Remove retire la ligne si elle existe ; sans effet sinon
func (s *Service) Remove(ctx context.Context, origin models.Origin, productID int64) ([]models.CartLine, error) {
	key := origin.Key()
	lines, err := s.storage.LoadCart(ctx, key)
	if err != nil {
		return nil, err
	}
	idx := indexOf(lines, productID)
	if idx < 0 {
		return lines, nil
	}

	lines = append(lines[:idx], lines[idx+1:]...)
	if err := s.save(ctx, key, lines); err != nil {
		return nil, err
	}
	return lines, nil
}

func (s *Service) Clear(ctx context.Context, origin models.Origin) error {
	key := origin.Key()
	if err := s.storage.DeleteCart(ctx, key); err != nil {
		return err
	}
	s.publish(ctx, key)
	return nil
}

func (s *Service) save(ctx context.Context, key string, lines []models.CartLine) error {
	if err := s.storage.SaveCart(ctx, key, lines); err != nil {
		return err
	}
	s.publish(ctx, key)
	return nil
}

func (s *Service) publish(ctx context.Context, key string) {
	if s.live == nil {
		return
	}
	if err := s.live.PublishCartUpdate(ctx, key); err != nil {
		log.Printf("⚠️ Publication mise à jour panier %s: %v", key, err)
	}
}

func indexOf(lines []models.CartLine, productID int64) int {
	for i, l := range lines {
		if l.ProductID == productID {
			return i
		}
	}
	return -1
}
