package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	customerpricedomain "github.com/smallbiznis/workrate/internal/customerprice/domain"
)

func (s *Server) ListCustomerPrices(c *gin.Context) {
	resp, err := s.customerPriceSvc.List(c.Request.Context(), customerpricedomain.ListRequest{
		CustomerID: strings.TrimSpace(c.Param("id")),
		ActivityID: strings.TrimSpace(c.Query("activity_id")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CreateCustomerPrice(c *gin.Context) {
	var req customerpricedomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	req.CustomerID = strings.TrimSpace(c.Param("id"))
	req.ActivityID = strings.TrimSpace(req.ActivityID)

	resp, err := s.customerPriceSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateCustomerPrice(c *gin.Context) {
	var req customerpricedomain.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	req.CustomerID = strings.TrimSpace(c.Param("id"))
	req.ID = strings.TrimSpace(c.Param("priceId"))

	resp, err := s.customerPriceSvc.Update(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteCustomerPrice(c *gin.Context) {
	err := s.customerPriceSvc.Delete(c.Request.Context(), customerpricedomain.DeleteRequest{
		CustomerID: strings.TrimSpace(c.Param("id")),
		ID:         strings.TrimSpace(c.Param("priceId")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"deleted": true}})
}

func isCustomerPriceValidationError(err error) bool {
	switch err {
	case customerpricedomain.ErrInvalidCustomer,
		customerpricedomain.ErrInvalidActivity,
		customerpricedomain.ErrInvalidQuantityRange,
		customerpricedomain.ErrInvalidPrice,
		customerpricedomain.ErrInvalidCurrency,
		customerpricedomain.ErrInvalidEffectiveFrom,
		customerpricedomain.ErrInvalidEffectiveTo,
		customerpricedomain.ErrInvalidID,
		customerpricedomain.ErrTierOverlap:
		return true
	default:
		return false
	}
}
