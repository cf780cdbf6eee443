package middleware

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront_back_end/internal/auth"
)

// RequireOwner vérifie que le sujet authentifié est le propriétaire de la boutique.
// À placer après AuthRequired.
func RequireOwner(authz auth.Authorizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		subject := c.GetString(SubjectKey)
		if subject == "" || !authz.IsOwner(auth.SubjectActor(subject)) {
			log.Printf("⚠️ Accès propriétaire refusé pour %q", subject)
			c.JSON(http.StatusForbidden, gin.H{"error": "Accès réservé au propriétaire"})
			c.Abort()
			return
		}
		c.Next()
	}
}
