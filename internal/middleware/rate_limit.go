package middleware

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"storefront_back_end/internal/cache"
)

const (
	APIMaxRequests = 100 // Par minute pour les endpoints généraux
	APICooldown    = 1 * time.Minute
)

// limit compte les requêtes par clé sur une fenêtre fixe. Si Redis ne répond
// pas, la requête passe.
func limit(rdb *redis.Client, prefix string, max int, window time.Duration, keyOf func(*gin.Context) string, message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := keyOf(c)
		if id == "" || max <= 0 {
			c.Next()
			return
		}

		count, err := cache.IncrementRateLimit(c.Request.Context(), rdb, prefix+id, window)
		if err != nil {
			log.Printf("⚠️ Rate limit %s indisponible: %v", prefix, err)
			c.Next()
			return
		}
		if count > int64(max) {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       message,
				"retry_after": int(window.Seconds()),
			})
			c.Abort()
			return
		}

		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", max))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", int64(max)-count))
		c.Next()
	}
}

// APIRateLimit limite le nombre de requêtes par IP (général)
func APIRateLimit(rdb *redis.Client) gin.HandlerFunc {
	return limit(rdb, "api_requests:", APIMaxRequests, APICooldown, func(c *gin.Context) string {
		return c.ClientIP()
	}, "Trop de requêtes. Réessayez dans 1 minute")
}

// CartRateLimit limite les modifications de panier par IP (anti-spam)
func CartRateLimit(rdb *redis.Client, perMinute int) gin.HandlerFunc {
	return limit(rdb, "cart_add:", perMinute, time.Minute, func(c *gin.Context) string {
		return c.ClientIP()
	}, "Trop d'ajouts au panier. Ralentissez un peu")
}
