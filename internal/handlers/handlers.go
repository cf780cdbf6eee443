package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"storefront_back_end/internal/cache"
	"storefront_back_end/internal/cart"
	"storefront_back_end/internal/catalog"
	"storefront_back_end/internal/invoice"
	"storefront_back_end/internal/lifecycle"
	"storefront_back_end/internal/models"
)

// Movements lit le journal de stock
type Movements interface {
	StockMovements(ctx context.Context, productID int64, limit int) ([]models.StockMovement, error)
}

// InvoiceLinks fournit un lien temporaire vers une facture archivée
type InvoiceLinks interface {
	Exists(ctx context.Context, orderID int64) (bool, error)
	PresignedURL(ctx context.Context, orderID int64, ttl time.Duration) (string, error)
}

type InvoiceRenderer interface {
	Render(s invoice.Snapshot) (*invoice.Document, error)
}

// Handler sert l'API HTTP de la boutique
type Handler struct {
	engine    *lifecycle.Engine
	carts     *cart.Service
	catalog   *catalog.Service
	live      *cache.Live
	movements Movements
	invoices  InvoiceLinks
	renderer  InvoiceRenderer
}

type Options struct {
	Engine    *lifecycle.Engine
	Carts     *cart.Service
	Catalog   *catalog.Service
	Live      *cache.Live
	Movements Movements    // optionnel
	Invoices  InvoiceLinks // optionnel
	Renderer  InvoiceRenderer
}

func New(opts Options) *Handler {
	return &Handler{
		engine:    opts.Engine,
		carts:     opts.Carts,
		catalog:   opts.Catalog,
		live:      opts.Live,
		movements: opts.Movements,
		invoices:  opts.Invoices,
		renderer:  opts.Renderer,
	}
}

// respondError traduit les erreurs métier en codes HTTP ; le détail des erreurs
// internes reste dans les logs.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrInvalidState),
		errors.Is(err, models.ErrInsufficientStock),
		errors.Is(err, models.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		log.Printf("❌ %s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur interne"})
	}
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Identifiant invalide"})
		return 0, false
	}
	return id, true
}

// Ping répond au contrôle de santé
func (h *Handler) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "pong"})
}
