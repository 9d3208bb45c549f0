package handler

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/tastecircle/tastecircle/internal/payment"
	"github.com/tastecircle/tastecircle/pkg/logger"
	"go.uber.org/zap"
)

// NewWebhookHandler returns the payment webhook endpoint bound to an
// injected processor. The route must receive the unparsed body: signature
// verification needs the exact bytes as sent by the provider, so no
// body-parsing middleware may sit in front of this handler.
func NewWebhookHandler(processor *payment.Processor) echo.HandlerFunc {
	return func(c echo.Context) error {
		log := logger.FromContext(c)

		raw, err := io.ReadAll(c.Request().Body)
		if err != nil {
			log.Error("Failed to read webhook body", zap.Error(err))
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "unreadable body"})
		}

		status, body := processor.HandleWebhook(raw, c.Request().Header.Get("Stripe-Signature"))
		return c.JSON(status, body)
	}
}
