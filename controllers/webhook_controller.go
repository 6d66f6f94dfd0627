package controllers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/olamide-dev/tunepurse/services"
	"github.com/olamide-dev/tunepurse/utils"
)

// WebhookController ingests the gateway's signed asynchronous callbacks. It
// is the second transport into the same settle path the synchronous verify
// flow uses; delivery is at-least-once, so the idempotency guard inside
// settlement is the only duplicate defense needed here.
type WebhookController struct {
	engine *services.SettlementEngine
	secret string
}

func NewWebhookController(engine *services.SettlementEngine, webhookSecret string) *WebhookController {
	return &WebhookController{engine: engine, secret: webhookSecret}
}

type webhookEvent struct {
	Event   string `json:"event"`
	Payload struct {
		PaymentLink struct {
			Entity struct {
				ID string `json:"id"`
			} `json:"entity"`
		} `json:"payment_link"`
	} `json:"payload"`
}

// HandleGatewayWebhook validates the signature and settles paid events.
// POST /webhook/razorpay
func (wc *WebhookController) HandleGatewayWebhook(c *gin.Context) {
	utils.LogInfo("HandleGatewayWebhook called")

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		utils.LogError("Failed to read webhook body: %v", err)
		utils.BadRequest(c, "Unable to read request body", nil)
		return
	}

	signature := c.GetHeader("X-Razorpay-Signature")
	if !ValidWebhookSignature(body, signature, wc.secret) {
		utils.LogError("Webhook signature mismatch")
		utils.Unauthorized(c, "Invalid webhook signature")
		return
	}

	var event webhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		utils.LogError("Failed to parse webhook payload: %v", err)
		utils.BadRequest(c, "Malformed webhook payload", nil)
		return
	}

	if event.Event != "payment_link.paid" {
		utils.LogInfo("Ignoring webhook event %q", event.Event)
		utils.Success(c, "Event ignored", nil)
		return
	}

	reference := event.Payload.PaymentLink.Entity.ID
	if reference == "" {
		utils.BadRequest(c, "Webhook payload missing payment link id", nil)
		return
	}

	result, err := wc.engine.Verify(reference)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			utils.LogError("Webhook for unknown reference %s", reference)
			utils.NotFound(c, "Reference not found")
			return
		}
		var gatewayErr *services.GatewayVerificationError
		if errors.As(err, &gatewayErr) {
			// The row is terminally failed; acknowledge so the gateway
			// stops redelivering.
			utils.Success(c, "Payment not successful, transaction marked failed", nil)
			return
		}
		utils.LogError("Webhook settlement failed for %s: %v", reference, err)
		utils.InternalServerError(c, "Settlement failed", nil)
		return
	}

	message := "Settled"
	if result.AlreadyProcessed {
		message = "Already processed"
	}
	utils.LogInfo("Webhook settled reference %s: %s", reference, message)
	utils.Success(c, message, result)
}

// ValidWebhookSignature checks the HMAC-SHA256 hex signature of the raw body
// against the shared webhook secret in constant time.
func ValidWebhookSignature(body []byte, signature, secret string) bool {
	if signature == "" || secret == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
