package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront_back_end/internal/models"
)

func TestRespondErrorMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name string
		err  error
		code int
		body string
	}{
		{"not found", models.OrderNotFound(3), http.StatusNotFound, "commande #3 introuvable"},
		{"invalid state", &models.StateError{OrderID: 3, Status: models.StatusApproved, Action: "refuser"}, http.StatusBadRequest, ""},
		{"stock", &models.StockError{ProductID: 1, ProductName: "Bonnet", Requested: 4, Available: 2}, http.StatusBadRequest, ""},
		{"validation", &models.ValidationError{Field: "quantity", Reason: "la quantité doit être supérieure à 0"}, http.StatusBadRequest, "la quantité doit être supérieure à 0"},
		{"wrapped", fmt.Errorf("approbation: %w", &models.StockError{ProductID: 1, Requested: 1}), http.StatusBadRequest, ""},
		{"internal", errors.New("connexion perdue"), http.StatusInternalServerError, "Erreur interne"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			respondError(c, tc.err)

			assert.Equal(t, tc.code, w.Code)
			var body map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			if tc.body != "" {
				assert.Equal(t, tc.body, body["error"])
			}
			assert.NotContains(t, body["error"], "connexion perdue")
		})
	}
}
