package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/olamide-dev/tunepurse/gateway"
	"github.com/olamide-dev/tunepurse/services"
	"github.com/olamide-dev/tunepurse/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func recordServiceError(t *testing.T, err error) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	respondServiceError(c, err)
	return w
}

func TestRespondServiceErrorMapsTaxonomy(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"validation", &services.ValidationError{Message: "tip amount must be positive"}, http.StatusBadRequest},
		{"insufficient funds", &services.InsufficientFundsError{Required: 50, Available: 30, Currency: "coins"}, http.StatusUnprocessableEntity},
		{"gateway failure", &services.GatewayVerificationError{Reference: "plink_x", Status: gateway.StatusFailed}, http.StatusPaymentRequired},
		{"unknown reference", services.ErrNotFound, http.StatusNotFound},
		{"missing row", gorm.ErrRecordNotFound, http.StatusNotFound},
		{"app error passthrough", utils.NotFoundError("Reference not found", nil), http.StatusNotFound},
		{"unexpected", errors.New("connection reset"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := recordServiceError(t, tc.err)
			assert.Equal(t, tc.wantStatus, w.Code)

			var resp utils.StandardResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, "error", resp.Status)
			assert.NotEmpty(t, resp.Message)
		})
	}
}

func TestRespondServiceErrorCarriesBalanceDetail(t *testing.T) {
	w := recordServiceError(t, &services.InsufficientFundsError{Required: 2000, Available: 1999, Currency: "INR"})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var resp struct {
		Data struct {
			Error struct {
				Required  float64 `json:"required"`
				Available float64 `json:"available"`
				Currency  string  `json:"currency"`
			} `json:"error"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2000.0, resp.Data.Error.Required)
	assert.Equal(t, 1999.0, resp.Data.Error.Available)
	assert.Equal(t, "INR", resp.Data.Error.Currency)
}
