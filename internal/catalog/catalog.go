package catalog

import (
	"context"
	"log"

	"storefront_back_end/internal/models"
	"storefront_back_end/internal/search"
)

type Store interface {
	ListAvailable(ctx context.Context) ([]models.Product, error)
	ListProducts(ctx context.Context) ([]models.Product, error)
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
	GetProducts(ctx context.Context, ids []int64) (map[int64]models.Product, error)
	CreateProduct(ctx context.Context, in models.NewProduct) (*models.Product, error)
	UpdateProduct(ctx context.Context, id int64, upd models.ProductUpdate) (*models.Product, error)
	DeleteProduct(ctx context.Context, id int64) error
}

// Index est l'index de recherche optionnel du catalogue
type Index interface {
	IndexProduct(ctx context.Context, p *models.Product) error
	DeleteProduct(ctx context.Context, id int64) error
	Search(ctx context.Context, query string, limit int) ([]int64, error)
}

const searchLimit = 20

// Service expose le catalogue aux surfaces HTTP et chat et garde l'index synchronisé
type Service struct {
	store Store
	index Index
}

// NewService accepte un index nil : la recherche retombe alors sur une correspondance de sous-chaîne
func NewService(store Store, index Index) *Service {
	return &Service{store: store, index: index}
}

func (s *Service) ListAvailable(ctx context.Context) ([]models.Product, error) {
	return s.store.ListAvailable(ctx)
}

func (s *Service) ListProducts(ctx context.Context) ([]models.Product, error) {
	return s.store.ListProducts(ctx)
}

func (s *Service) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	return s.store.GetProduct(ctx, id)
}

func (s *Service) CreateProduct(ctx context.Context, in models.NewProduct) (*models.Product, error) {
	p, err := s.store.CreateProduct(ctx, in)
	if err != nil {
		return nil, err
	}
	log.Printf("📦 Produit #%d créé : %s (stock %d)", p.ID, p.Name, p.Stock)
	if s.index != nil {
		if err := s.index.IndexProduct(ctx, p); err != nil {
			log.Printf("⚠️ Indexation produit #%d: %v", p.ID, err)
		}
	}
	return p, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id int64, upd models.ProductUpdate) (*models.Product, error) {
	p, err := s.store.UpdateProduct(ctx, id, upd)
	if err != nil {
		return nil, err
	}
	log.Printf("✏️ Produit #%d modifié : prix %s, stock %d", p.ID, p.Price.StringFixed(2), p.Stock)
	if s.index != nil {
		if err := s.index.IndexProduct(ctx, p); err != nil {
			log.Printf("⚠️ Indexation produit #%d: %v", p.ID, err)
		}
	}
	return p, nil
}

// DeleteProduct supprime le produit ; les lignes de commandes passées gardent leur snapshot
func (s *Service) DeleteProduct(ctx context.Context, id int64) error {
	if err := s.store.DeleteProduct(ctx, id); err != nil {
		return err
	}
	log.Printf("🗑️ Produit #%d supprimé", id)
	if s.index != nil {
		if err := s.index.DeleteProduct(ctx, id); err != nil {
			log.Printf("⚠️ Désindexation produit #%d: %v", id, err)
		}
	}
	return nil
}

// Search retourne les produits disponibles correspondant à la requête, par pertinence
func (s *Service) Search(ctx context.Context, query string) ([]models.Product, error) {
	if s.index != nil && query != "" {
		ids, err := s.index.Search(ctx, query, searchLimit)
		if err == nil {
			return s.available(ctx, ids)
		}
		log.Printf("⚠️ Recherche Elastic indisponible, repli local: %v", err)
	}
	products, err := s.store.ListAvailable(ctx)
	if err != nil {
		return nil, err
	}
	return search.MatchSubstring(products, query), nil
}

func (s *Service) available(ctx context.Context, ids []int64) ([]models.Product, error) {
	found, err := s.store.GetProducts(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := []models.Product{}
	for _, id := range ids {
		if p, ok := found[id]; ok && p.Available() {
			out = append(out, p)
		}
	}
	return out, nil
}
