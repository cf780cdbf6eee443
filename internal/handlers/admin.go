package handlers

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"storefront_back_end/internal/invoice"
	"storefront_back_end/internal/models"
)

const invoiceLinkTTL = 15 * time.Minute

// 🔒 GET /admin/orders/pending
func (h *Handler) PendingOrders(c *gin.Context) {
	orders, err := h.engine.ListPendingOrders(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders, "count": len(orders)})
}

// 🔒 POST /admin/order/:id/approve
func (h *Handler) ApproveOrder(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	out, err := h.engine.ApproveOrder(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": out.Order, "warnings": warnings(out.Warnings)})
}

// 🔒 POST /admin/order/:id/reject
func (h *Handler) RejectOrder(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	out, err := h.engine.RejectOrder(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": out.Order, "warnings": warnings(out.Warnings)})
}

func warnings(w []string) []string {
	if w == nil {
		return []string{}
	}
	return w
}

// 🔒 GET /admin/order/:id/invoice
// Si la facture est archivée dans MinIO, retourne un lien signé ; sinon le PDF est généré à la volée.
func (h *Handler) OrderInvoice(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	order, err := h.engine.GetOrder(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if order.Status != models.StatusApproved {
		respondError(c, &models.StateError{OrderID: id, Status: order.Status, Action: "facturer"})
		return
	}

	if h.invoices != nil && h.archived(c, id) {
		url, err := h.invoices.PresignedURL(c.Request.Context(), id, invoiceLinkTTL)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"url": url, "expires_in": int(invoiceLinkTTL.Seconds())})
		return
	}

	snapshot, err := invoice.SnapshotFromOrder(order)
	if err != nil {
		respondError(c, err)
		return
	}
	doc, err := h.renderer.Render(snapshot)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, doc.Filename))
	c.Data(http.StatusOK, "application/pdf", doc.Data)
}

// archived indique si la facture est dans l'archive ; sinon elle est rendue à la volée
func (h *Handler) archived(c *gin.Context, id int64) bool {
	ok, err := h.invoices.Exists(c.Request.Context(), id)
	if err != nil {
		log.Printf("⚠️ Archive facture commande #%d: %v", id, err)
		return false
	}
	return ok
}

// 🔒 POST /admin/reset
func (h *Handler) Reset(c *gin.Context) {
	var req struct {
		Confirm string `json:"confirm" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Confirm != "CONFIRMER" {
		c.JSON(http.StatusBadRequest, gin.H{"error": `Confirmation requise : {"confirm": "CONFIRMER"}`})
		return
	}
	if err := h.engine.Reset(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	log.Println("🧹 Réinitialisation demandée via l'API")
	c.JSON(http.StatusOK, gin.H{"message": "Boutique réinitialisée"})
}
