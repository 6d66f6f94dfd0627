package controllers

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/olamide-dev/tunepurse/config"
	"github.com/olamide-dev/tunepurse/gateway"
	"github.com/olamide-dev/tunepurse/models"
	"github.com/olamide-dev/tunepurse/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testWebhookSecret = "whsec_test"

type stubGateway struct {
	mu       sync.Mutex
	sessions int
	statuses map[string]gateway.Status
}

func (s *stubGateway) CreateSession(req gateway.SessionRequest) (*gateway.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions++
	ref := fmt.Sprintf("plink_%03d", s.sessions)
	return &gateway.Session{Reference: ref, PaymentLink: "https://rzp.io/l/" + ref}, nil
}

func (s *stubGateway) VerifyReference(reference string) (*gateway.VerifyResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	status, ok := s.statuses[reference]
	if !ok {
		status = gateway.StatusNotFound
	}
	return &gateway.VerifyResult{Status: status, Reference: reference}, nil
}

func (s *stubGateway) Transfer(account string, amount float64, currency string) error {
	return nil
}

func (s *stubGateway) markPaid(reference string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses[reference] = gateway.StatusSuccessful
}

func setupWebhookTest(t *testing.T) (*gin.Engine, *services.SettlementEngine, *stubGateway, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, config.Migrate(db))
	require.NoError(t, config.SeedDefaults(db))

	gw := &stubGateway{statuses: make(map[string]gateway.Status)}
	engine := services.NewSettlementEngine(db, gw, "https://app.test/payments/callback")

	router := gin.New()
	wc := NewWebhookController(engine, testWebhookSecret)
	router.POST("/webhook/razorpay", wc.HandleGatewayWebhook)
	return router, engine, gw, db
}

func paidEventBody(t *testing.T, reference string) []byte {
	t.Helper()
	body, err := json.Marshal(gin.H{
		"event": "payment_link.paid",
		"payload": gin.H{
			"payment_link": gin.H{
				"entity": gin.H{"id": reference, "status": "paid"},
			},
		},
	})
	require.NoError(t, err)
	return body
}

func signBody(body []byte) string {
	mac := hmac.New(sha256.New, []byte(testWebhookSecret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func postWebhook(router *gin.Engine, body []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhook/razorpay", bytes.NewReader(body))
	if signature != "" {
		req.Header.Set("X-Razorpay-Signature", signature)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func responseMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Message
}

func initPurchase(t *testing.T, engine *services.SettlementEngine, db *gorm.DB, userID uint) *services.InitResult {
	t.Helper()
	var pkg models.CoinPackage
	require.NoError(t, db.Where("coins = ?", 500).First(&pkg).Error)
	init, err := engine.InitializePurchase(userID, "fan@example.com", pkg.ID, 7)
	require.NoError(t, err)
	return init
}

func TestWebhookSettlesPaidEvent(t *testing.T) {
	router, engine, gw, db := setupWebhookTest(t)
	init := initPurchase(t, engine, db, 3)
	gw.markPaid(init.Reference)

	body := paidEventBody(t, init.Reference)
	w := postWebhook(router, body, signBody(body))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Settled", responseMessage(t, w))

	var wallet models.Wallet
	require.NoError(t, db.Where("user_id = ? AND creator_id = ?", 3, 7).First(&wallet).Error)
	assert.Equal(t, int64(500), wallet.Coins)
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	router, engine, gw, db := setupWebhookTest(t)
	init := initPurchase(t, engine, db, 3)
	gw.markPaid(init.Reference)

	body := paidEventBody(t, init.Reference)
	w := postWebhook(router, body, "deadbeef")
	require.Equal(t, http.StatusUnauthorized, w.Code)

	// A tampered body with a stale signature must also be rejected
	sig := signBody(body)
	tampered := bytes.Replace(body, []byte(init.Reference), []byte("plink_999"), 1)
	w = postWebhook(router, tampered, sig)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = postWebhook(router, body, "")
	require.Equal(t, http.StatusUnauthorized, w.Code)

	// Nothing was settled
	var count int64
	require.NoError(t, db.Model(&models.Wallet{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestWebhookDuplicateDeliveryIsAcknowledged(t *testing.T) {
	router, engine, gw, db := setupWebhookTest(t)
	init := initPurchase(t, engine, db, 3)
	gw.markPaid(init.Reference)

	body := paidEventBody(t, init.Reference)
	w := postWebhook(router, body, signBody(body))
	require.Equal(t, http.StatusOK, w.Code)

	w = postWebhook(router, body, signBody(body))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Already processed", responseMessage(t, w))

	var wallet models.Wallet
	require.NoError(t, db.Where("user_id = ? AND creator_id = ?", 3, 7).First(&wallet).Error)
	assert.Equal(t, int64(500), wallet.Coins, "coins credited exactly once")
}

func TestWebhookIgnoresOtherEvents(t *testing.T) {
	router, _, _, _ := setupWebhookTest(t)

	body, err := json.Marshal(gin.H{"event": "payment.captured"})
	require.NoError(t, err)
	w := postWebhook(router, body, signBody(body))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Event ignored", responseMessage(t, w))
}

func TestWebhookUnknownReference(t *testing.T) {
	router, _, _, _ := setupWebhookTest(t)

	body := paidEventBody(t, "plink_unknown")
	w := postWebhook(router, body, signBody(body))
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestWebhookMalformedPayload(t *testing.T) {
	router, _, _, _ := setupWebhookTest(t)

	body := []byte("{not json")
	w := postWebhook(router, body, signBody(body))
	require.Equal(t, http.StatusBadRequest, w.Code)

	body = paidEventBody(t, "")
	w = postWebhook(router, body, signBody(body))
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestValidWebhookSignature(t *testing.T) {
	body := []byte(`{"event":"payment_link.paid"}`)
	assert.True(t, ValidWebhookSignature(body, signBody(body), testWebhookSecret))
	assert.False(t, ValidWebhookSignature(body, signBody(body), "other_secret"))
	assert.False(t, ValidWebhookSignature(body, "", testWebhookSecret))
	assert.False(t, ValidWebhookSignature(body, signBody(body), ""))
}
