package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"storefront_back_end/internal/cache"
	"storefront_back_end/internal/models"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Les origines sont déjà filtrées par le middleware CORS
		return true
	},
}

const pingInterval = 30 * time.Second

// 🟢 POST /session : nouvel identifiant de session web
func (h *Handler) NewSession(c *gin.Context) {
	c.JSON(http.StatusCreated, gin.H{"sessionId": uuid.NewString()})
}

// SessionWebSocket relaie au navigateur les changements de panier et les décisions sur ses commandes
func (h *Handler) SessionWebSocket(c *gin.Context) {
	sid := c.Param("sessionId")
	if sid == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Session manquante"})
		return
	}
	origin := models.WebOrigin{SessionID: sid}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("❌ Erreur upgrade WebSocket: %v", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pubsub := h.live.Subscribe(ctx, origin.Key())
	defer pubsub.Close()
	ch := pubsub.Channel()

	// Lecture en tâche de fond : seule la fermeture côté client nous intéresse
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := conn.WriteJSON(gin.H{"type": "connected", "message": "Synchronisation activée"}); err != nil {
		return
	}

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if err := h.relay(ctx, conn, origin, msg.Channel, msg.Payload); err != nil {
				log.Printf("❌ Erreur envoi WebSocket: %v", err)
				return
			}
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Handler) relay(ctx context.Context, conn *websocket.Conn, origin models.WebOrigin, channel, payload string) error {
	if channel == cache.OrderChannel(origin.Key()) {
		// Déjà encodé en JSON par la passerelle de notifications
		return conn.WriteMessage(websocket.TextMessage, []byte(payload))
	}
	if channel != cache.CartChannel(origin.Key()) {
		return nil
	}
	lines, err := h.carts.Get(ctx, origin)
	if err != nil {
		log.Printf("⚠️ Lecture panier %s: %v", origin.Key(), err)
		lines = []models.CartLine{}
	}
	return conn.WriteJSON(gin.H{
		"type":  "cart_updated",
		"items": lines,
		"total": models.CartTotal(lines),
		"count": len(lines),
	})
}
