package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"storefront_back_end/internal/models"
)

// LoadCart retourne les lignes du panier ; un panier absent est un panier vide
func (p *Postgres) LoadCart(ctx context.Context, sessionKey string) ([]models.CartLine, error) {
	var raw []byte
	err := p.pool.QueryRow(ctx, `SELECT lines FROM carts WHERE session_key = $1`, sessionKey).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return []models.CartLine{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lecture panier: %w", err)
	}

	lines := []models.CartLine{}
	if err := json.Unmarshal(raw, &lines); err != nil {
		return nil, fmt.Errorf("décodage panier: %w", err)
	}
	return lines, nil
}

// SaveCart remplace le contenu du panier (upsert par clé de session)
func (p *Postgres) SaveCart(ctx context.Context, sessionKey string, lines []models.CartLine) error {
	if lines == nil {
		lines = []models.CartLine{}
	}
	raw, err := json.Marshal(lines)
	if err != nil {
		return fmt.Errorf("encodage panier: %w", err)
	}
	_, err = p.pool.Exec(ctx,
		`INSERT INTO carts (session_key, lines, updated_at) VALUES ($1, $2, NOW())
		 ON CONFLICT (session_key) DO UPDATE SET lines = EXCLUDED.lines, updated_at = NOW()`,
		sessionKey, raw)
	if err != nil {
		return fmt.Errorf("sauvegarde panier: %w", err)
	}
	return nil
}

func (p *Postgres) DeleteCart(ctx context.Context, sessionKey string) error {
	if _, err := p.pool.Exec(ctx, `DELETE FROM carts WHERE session_key = $1`, sessionKey); err != nil {
		return fmt.Errorf("suppression panier: %w", err)
	}
	return nil
}
