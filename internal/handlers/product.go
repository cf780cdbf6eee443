package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"storefront_back_end/internal/models"
)

// 🟢 GET /products
func (h *Handler) ListProducts(c *gin.Context) {
	products, err := h.catalog.ListAvailable(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

// 🟢 GET /products/search?q=
func (h *Handler) SearchProducts(c *gin.Context) {
	products, err := h.catalog.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

// 🟢 GET /products/:id
func (h *Handler) GetProduct(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	p, err := h.catalog.GetProduct(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// 🔒 GET /admin/products
func (h *Handler) ListAllProducts(c *gin.Context) {
	products, err := h.catalog.ListProducts(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

// 🔒 POST /admin/products
func (h *Handler) CreateProduct(c *gin.Context) {
	var in models.NewProduct
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides"})
		return
	}
	p, err := h.catalog.CreateProduct(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// 🔒 PATCH /admin/products/:id
// Les commandes déjà passées gardent leur prix unitaire.
func (h *Handler) UpdateProduct(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var upd models.ProductUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides"})
		return
	}
	p, err := h.catalog.UpdateProduct(c.Request.Context(), id, upd)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// 🔒 DELETE /admin/products/:id
func (h *Handler) DeleteProduct(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.catalog.DeleteProduct(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Produit supprimé"})
}

// 🔒 GET /admin/products/:id/movements?limit=
func (h *Handler) ProductMovements(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 {
		limit = 50
	}
	movements := []models.StockMovement{}
	if h.movements != nil {
		found, err := h.movements.StockMovements(c.Request.Context(), id, limit)
		if err != nil {
			respondError(c, err)
			return
		}
		movements = append(movements, found...)
	}
	c.JSON(http.StatusOK, gin.H{"movements": movements})
}
