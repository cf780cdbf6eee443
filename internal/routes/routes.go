package routes

import (
	"log"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"storefront_back_end/internal/auth"
	"storefront_back_end/internal/handlers"
	"storefront_back_end/internal/middleware"
)

type Options struct {
	Authorizer    auth.Authorizer
	JWTSecret     string
	Redis         *redis.Client
	CartRateLimit int
	CORSOrigins   []string
}

func RegisterRoutes(r *gin.Engine, h *handlers.Handler, opts Options) {
	corsConfig := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Session-ID"},
		ExposeHeaders:    []string{"Content-Disposition", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(opts.CORSOrigins) == 0 {
		corsConfig.AllowAllOrigins = true
		corsConfig.AllowCredentials = false
	} else {
		corsConfig.AllowOrigins = opts.CORSOrigins
	}
	r.Use(cors.New(corsConfig))
	r.Use(middleware.APIRateLimit(opts.Redis))

	r.GET("/ping", h.Ping)
	r.POST("/session", h.NewSession)

	// Catalogue
	r.GET("/products", h.ListProducts)
	r.GET("/products/search", h.SearchProducts)
	r.GET("/products/:id", h.GetProduct)

	// Panier
	limit := middleware.CartRateLimit(opts.Redis, opts.CartRateLimit)
	r.GET("/cart/:sessionId", h.GetCart)
	cart := r.Group("/cart", limit)
	{
		cart.POST("/add", h.AddToCart)
		cart.POST("/update", h.UpdateCart)
		cart.POST("/remove", h.RemoveFromCart)
		cart.POST("/clear", h.ClearCart)
	}

	// Commandes
	r.POST("/order", limit, h.CreateOrder)
	r.GET("/orders/:sessionId", h.GetMyOrders)
	r.GET("/order/:id", h.GetOrder)
	r.POST("/order/:id/confirm", limit, h.ConfirmOrder)
	r.POST("/order/:id/cancel", limit, h.CancelOrder)

	// Temps réel
	r.GET("/ws/:sessionId", h.SessionWebSocket)

	// Propriétaire
	if opts.JWTSecret == "" {
		log.Println("❌ JWT_SECRET absent — routes /admin désactivées")
		return
	}
	admin := r.Group("/admin", middleware.AuthRequired(opts.JWTSecret), middleware.RequireOwner(opts.Authorizer))
	{
		admin.GET("/products", h.ListAllProducts)
		admin.POST("/products", h.CreateProduct)
		admin.PATCH("/products/:id", h.UpdateProduct)
		admin.DELETE("/products/:id", h.DeleteProduct)
		admin.GET("/products/:id/movements", h.ProductMovements)
		admin.GET("/orders/pending", h.PendingOrders)
		admin.POST("/order/:id/approve", h.ApproveOrder)
		admin.POST("/order/:id/reject", h.RejectOrder)
		admin.GET("/order/:id/invoice", h.OrderInvoice)
		admin.POST("/reset", h.Reset)
	}
}
