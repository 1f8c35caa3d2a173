package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/ultravioletadao/x402-go/types"
)

// GinPaymentKey is the gin context key holding the settlement result.
const GinPaymentKey = "x402_payment"

// Gin returns the paywall as gin middleware.
func Gin(p Processor, cfg Config) gin.HandlerFunc {
	pw := newPaywall(p, cfg)
	return func(c *gin.Context) {
		out := pw.evaluate(c.Request)
		if out.exempt {
			c.Next()
			return
		}
		if out.result == nil {
			c.AbortWithStatusJSON(out.status, out.body)
			return
		}
		if out.header != "" {
			c.Header(HeaderPaymentResponse, out.header)
		}
		c.Set(GinPaymentKey, out.result)
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), contextKey{}, out.result))
		c.Next()
	}
}

// GinPayment returns the settlement result stored by Gin.
func GinPayment(c *gin.Context) (*types.SettlementResult, bool) {
	v, ok := c.Get(GinPaymentKey)
	if !ok {
		return nil, false
	}
	res, ok := v.(*types.SettlementResult)
	return res, ok
}
