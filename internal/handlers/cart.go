package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront_back_end/internal/models"
)

type cartItemRequest struct {
	SessionID string `json:"sessionId" binding:"required"`
	ProductID int64  `json:"productId" binding:"required"`
	Quantity  int    `json:"quantity"`
}

type sessionRequest struct {
	SessionID string `json:"sessionId" binding:"required"`
}

func cartResponse(sessionID string, lines []models.CartLine) gin.H {
	if lines == nil {
		lines = []models.CartLine{}
	}
	return gin.H{
		"sessionId": sessionID,
		"items":     lines,
		"total":     models.CartTotal(lines),
	}
}

// 🟢 GET /cart/:sessionId
func (h *Handler) GetCart(c *gin.Context) {
	sid := c.Param("sessionId")
	lines, err := h.carts.Get(c.Request.Context(), models.WebOrigin{SessionID: sid})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cartResponse(sid, lines))
}

// 🟢 POST /cart/add
func (h *Handler) AddToCart(c *gin.Context) {
	var req cartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides"})
		return
	}
	lines, err := h.carts.Add(c.Request.Context(), models.WebOrigin{SessionID: req.SessionID}, req.ProductID, req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cartResponse(req.SessionID, lines))
}

// 🟢 POST /cart/update
func (h *Handler) UpdateCart(c *gin.Context) {
	var req cartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides"})
		return
	}
	lines, err := h.carts.SetQuantity(c.Request.Context(), models.WebOrigin{SessionID: req.SessionID}, req.ProductID, req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cartResponse(req.SessionID, lines))
}

// 🟢 POST /cart/remove
func (h *Handler) RemoveFromCart(c *gin.Context) {
	var req cartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides"})
		return
	}
	lines, err := h.carts.Remove(c.Request.Context(), models.WebOrigin{SessionID: req.SessionID}, req.ProductID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cartResponse(req.SessionID, lines))
}

// 🟢 POST /cart/clear
func (h *Handler) ClearCart(c *gin.Context) {
	var req sessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides"})
		return
	}
	if err := h.carts.Clear(c.Request.Context(), models.WebOrigin{SessionID: req.SessionID}); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cartResponse(req.SessionID, nil))
}
