package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	webhookdomain "github.com/smallbiznis/stripesync/internal/webhook/domain"
)

const stripeSignatureHeader = "Stripe-Signature"

// HandleStripeWebhook reads the raw body, hands it to the ingest service and
// renders the outcome. Signature failures answer 400 with the verifier's
// message as plain text; anything Stripe should retry answers 5xx.
func (s *Server) HandleStripeWebhook(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxBodyBytes)
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			AbortWithError(c, ErrPayloadTooLarge)
			return
		}
		AbortWithError(c, invalidRequestError())
		return
	}

	err = s.webhookSvc.IngestWebhook(c.Request.Context(), payload, c.GetHeader(stripeSignatureHeader))
	if err != nil {
		var verr *webhookdomain.VerificationError
		if errors.As(err, &verr) {
			_ = c.Error(err)
			c.String(http.StatusBadRequest, verr.Reason)
			return
		}
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "nice!"})
}
