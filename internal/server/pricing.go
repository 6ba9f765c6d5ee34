package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	pricingdomain "github.com/smallbiznis/workrate/internal/pricing/domain"
)

func (s *Server) CalculatePrice(c *gin.Context) {
	var req pricingdomain.QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	req.CustomerID = strings.TrimSpace(req.CustomerID)
	req.ActivityID = strings.TrimSpace(req.ActivityID)

	resp, err := s.pricingSvc.Quote(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func isPricingValidationError(err error) bool {
	switch err {
	case pricingdomain.ErrInvalidCustomer,
		pricingdomain.ErrInvalidActivity,
		pricingdomain.ErrInvalidQuantity:
		return true
	default:
		return false
	}
}
