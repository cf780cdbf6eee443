package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront_back_end/internal/lifecycle"
	"storefront_back_end/internal/models"
)

type orderRequest struct {
	SessionID     string                  `json:"sessionId" binding:"required"`
	CustomerName  string                  `json:"customerName"`
	PaymentMethod string                  `json:"paymentMethod"`
	Items         []lifecycle.ItemRequest `json:"items"`
}

// sessionOf lit l'identifiant de session dans l'en-tête, la query ou le corps JSON
func sessionOf(c *gin.Context) string {
	if sid := c.GetHeader("X-Session-ID"); sid != "" {
		return sid
	}
	if sid := c.Query("sessionId"); sid != "" {
		return sid
	}
	var body struct {
		SessionID string `json:"sessionId"`
	}
	_ = c.ShouldBindJSON(&body)
	return body.SessionID
}

// ownedOrder charge la commande et vérifie qu'elle appartient à la session ;
// une commande d'une autre session est traitée comme introuvable.
func (h *Handler) ownedOrder(c *gin.Context) (*models.Order, bool) {
	id, ok := pathID(c)
	if !ok {
		return nil, false
	}
	sid := sessionOf(c)
	order, err := h.engine.GetOrder(c.Request.Context(), id)
	if err == nil && (sid == "" || !models.SameOrigin(order.Origin, models.WebOrigin{SessionID: sid})) {
		err = models.OrderNotFound(id)
	}
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	return order, true
}

// 🟢 POST /order : crée un brouillon, à confirmer ensuite
func (h *Handler) CreateOrder(c *gin.Context) {
	var req orderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides"})
		return
	}

	out, err := h.engine.CreateOrder(c.Request.Context(), lifecycle.CreateOrderInput{
		CustomerName:        req.CustomerName,
		Origin:              models.WebOrigin{SessionID: req.SessionID},
		Items:               req.Items,
		PaymentMethod:       req.PaymentMethod,
		FromCart:            len(req.Items) == 0,
		RequireConfirmation: true,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"order": out.Order})
}

// 🟢 GET /orders/:sessionId
func (h *Handler) GetMyOrders(c *gin.Context) {
	orders, err := h.engine.ListOrdersByOrigin(c.Request.Context(), models.WebOrigin{SessionID: c.Param("sessionId")})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders, "count": len(orders)})
}

// 🟢 GET /order/:id?sessionId=
func (h *Handler) GetOrder(c *gin.Context) {
	order, ok := h.ownedOrder(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order, "status_label": order.Status.Label()})
}

// 🟢 POST /order/:id/confirm
func (h *Handler) ConfirmOrder(c *gin.Context) {
	order, ok := h.ownedOrder(c)
	if !ok {
		return
	}
	out, err := h.engine.ConfirmOrder(c.Request.Context(), order.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": out.Order, "message": "Commande transmise au vendeur"})
}

// 🟢 POST /order/:id/cancel
func (h *Handler) CancelOrder(c *gin.Context) {
	order, ok := h.ownedOrder(c)
	if !ok {
		return
	}
	out, err := h.engine.CancelOrder(c.Request.Context(), order.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": out.Order, "message": "Commande annulée"})
}
