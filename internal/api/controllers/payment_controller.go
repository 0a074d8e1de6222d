package controllers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"luxscaler/internal/services"
	"luxscaler/pkg/utils"
)

// Stripe caps event payloads well below this.
const maxWebhookBody = 1 << 20

type PaymentController struct {
	entitlements services.EntitlementService
	packs        services.CreditPackServiceInterface
	log          *zap.Logger
}

func NewPaymentController(entitlements services.EntitlementService, packs services.CreditPackServiceInterface, log *zap.Logger) *PaymentController {
	return &PaymentController{
		entitlements: entitlements,
		packs:        packs,
		log:          log,
	}
}

// HandleStripeWebhook godoc
// @Summary Receive a Stripe event
// @Description Verifies the Stripe-Signature header against the raw body, then applies checkout and subscription events exactly once
// @Tags Payments
// @Accept json
// @Produce json
// @Param Stripe-Signature header string true "Stripe signature header"
// @Success 200 {object} map[string]bool
// @Failure 400 {object} utils.APIResponse
// @Failure 500 {object} utils.APIResponse
// @Router /webhooks/stripe [post]
func (p *PaymentController) HandleStripeWebhook(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			utils.RespondError(c, http.StatusRequestEntityTooLarge, "payload too large")
			return
		}
		utils.RespondError(c, http.StatusBadRequest, "Unable to read request body")
		return
	}

	out, err := p.entitlements.HandleWebhook(c.Request.Context(), body, c.GetHeader("Stripe-Signature"))
	if err != nil {
		if errors.Is(err, utils.ErrInvalidSignature) || errors.Is(err, utils.ErrMissingSignature) {
			p.log.Warn("webhook rejected", zap.Error(err), zap.String("ip", c.ClientIP()))
		}
		utils.HandleServiceError(c, err)
		return
	}

	resp := gin.H{"received": true}
	if out.Duplicate {
		resp["duplicate"] = true
	}
	c.JSON(http.StatusOK, resp)
}

// RejectWebhookMethod answers every non-POST delivery to the webhook path.
func (p *PaymentController) RejectWebhookMethod(c *gin.Context) {
	c.Header("Allow", http.MethodPost)
	utils.RespondError(c, http.StatusBadRequest, "Method not allowed, use POST")
}

// ListCreditPacks godoc
// @Summary List credit packs
// @Description Active token packs with their Stripe price ids
// @Tags Payments
// @Produce json
// @Success 200 {object} utils.APIResponse
// @Router /credit-packs [get]
func (p *PaymentController) ListCreditPacks(c *gin.Context) {
	packs, err := p.packs.ListActive(c.Request.Context())
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	utils.RespondSuccess(c, packs, "Credit packs fetched successfully")
}
