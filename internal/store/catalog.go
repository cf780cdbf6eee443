package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"storefront_back_end/internal/models"
)

const productColumns = `id, name, price, stock, details, has_shipping, created_at`

func scanProduct(row pgx.Row) (models.Product, error) {
	var p models.Product
	err := row.Scan(&p.ID, &p.Name, &p.Price, &p.Stock, &p.Details, &p.HasShipping, &p.CreatedAt)
	return p, err
}

func (p *Postgres) queryProducts(ctx context.Context, sql string, args ...any) ([]models.Product, error) {
	rows, err := p.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("lecture produits: %w", err)
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		prod, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan produit: %w", err)
		}
		products = append(products, prod)
	}
	return products, rows.Err()
}

// ListAvailable retourne les produits en stock
func (p *Postgres) ListAvailable(ctx context.Context) ([]models.Product, error) {
	return p.queryProducts(ctx, `SELECT `+productColumns+` FROM products WHERE stock > 0 ORDER BY id`)
}

func (p *Postgres) ListProducts(ctx context.Context) ([]models.Product, error) {
	return p.queryProducts(ctx, `SELECT `+productColumns+` FROM products ORDER BY id`)
}

func (p *Postgres) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	prod, err := scanProduct(p.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ProductNotFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("lecture produit %d: %w", id, err)
	}
	return &prod, nil
}

// GetProducts charge plusieurs produits ; les identifiants absents sont simplement omis
func (p *Postgres) GetProducts(ctx context.Context, ids []int64) (map[int64]models.Product, error) {
	products, err := p.queryProducts(ctx, `SELECT `+productColumns+` FROM products WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[int64]models.Product, len(products))
	for _, prod := range products {
		out[prod.ID] = prod
	}
	return out, nil
}

func (p *Postgres) CreateProduct(ctx context.Context, in models.NewProduct) (*models.Product, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	prod, err := scanProduct(p.pool.QueryRow(ctx,
		`INSERT INTO products (name, price, stock, details, has_shipping)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+productColumns,
		in.Name, in.Price, in.Stock, in.Details, in.HasShipping))
	if err != nil {
		return nil, fmt.Errorf("création produit: %w", err)
	}
	return &prod, nil
}

// UpdateProduct applique une modification partielle ; les champs nil gardent leur valeur
func (p *Postgres) UpdateProduct(ctx context.Context, id int64, upd models.ProductUpdate) (*models.Product, error) {
	if err := upd.Validate(); err != nil {
		return nil, err
	}
	var price *decimal.Decimal
	if upd.Price != nil {
		rounded := upd.Price.Round(2)
		price = &rounded
	}
	prod, err := scanProduct(p.pool.QueryRow(ctx,
		`UPDATE products SET
		   price = COALESCE($2, price),
		   stock = COALESCE($3, stock),
		   details = COALESCE($4, details),
		   has_shipping = COALESCE($5, has_shipping)
		 WHERE id = $1
		 RETURNING `+productColumns,
		id, price, upd.Stock, upd.Details, upd.HasShipping))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ProductNotFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("modification produit %d: %w", id, err)
	}
	return &prod, nil
}

func (p *Postgres) DeleteProduct(ctx context.Context, id int64) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("suppression produit %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return models.ProductNotFound(id)
	}
	return nil
}

// DecrementStock retire qty du stock en une seule instruction conditionnelle
func (p *Postgres) DecrementStock(ctx context.Context, id int64, qty int) (int, error) {
	return decrementStock(ctx, p.pool, id, qty)
}

type queryer interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func decrementStock(ctx context.Context, q queryer, id int64, qty int) (int, error) {
	if qty <= 0 {
		return 0, &models.ValidationError{Field: "quantity", Reason: "la quantité doit être supérieure à 0"}
	}

	var remaining int
	err := q.QueryRow(ctx,
		`UPDATE products SET stock = stock - $2 WHERE id = $1 AND stock >= $2 RETURNING stock`,
		id, qty).Scan(&remaining)
	if err == nil {
		return remaining, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("décrément stock produit %d: %w", id, err)
	}

	// Garde refusée : produit absent ou stock trop bas
	var name string
	var stock int
	err = q.QueryRow(ctx, `SELECT name, stock FROM products WHERE id = $1`, id).Scan(&name, &stock)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, models.ProductNotFound(id)
	}
	if err != nil {
		return 0, fmt.Errorf("lecture stock produit %d: %w", id, err)
	}
	return 0, &models.StockError{ProductID: id, ProductName: name, Requested: qty, Available: stock}
}
