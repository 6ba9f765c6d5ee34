package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	orderdomain "github.com/smallbiznis/workrate/internal/order/domain"
	"github.com/smallbiznis/workrate/pkg/db/pagination"
)

func (s *Server) CreateOrder(c *gin.Context) {
	var req orderdomain.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	req.CustomerID = strings.TrimSpace(req.CustomerID)

	resp, err := s.orderSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListOrders(c *gin.Context) {
	var query struct {
		pagination.Pagination
		CustomerID    string `form:"customer_id"`
		ScheduledFrom string `form:"scheduled_from"`
		ScheduledTo   string `form:"scheduled_to"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	scheduledFrom, err := parseOptionalTime(query.ScheduledFrom, false)
	if err != nil {
		AbortWithError(c, newValidationError("scheduled_from", "invalid_scheduled_from", "invalid scheduled_from"))
		return
	}

	scheduledTo, err := parseOptionalTime(query.ScheduledTo, true)
	if err != nil {
		AbortWithError(c, newValidationError("scheduled_to", "invalid_scheduled_to", "invalid scheduled_to"))
		return
	}

	resp, err := s.orderSvc.List(c.Request.Context(), orderdomain.ListOrderRequest{
		PageToken:     query.PageToken,
		PageSize:      int32(query.PageSize),
		CustomerID:    strings.TrimSpace(query.CustomerID),
		ScheduledFrom: scheduledFrom,
		ScheduledTo:   scheduledTo,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetOrderByID(c *gin.Context) {
	resp, err := s.orderSvc.Get(c.Request.Context(), orderdomain.GetOrderRequest{
		ID: strings.TrimSpace(c.Param("id")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) AddOrderActivity(c *gin.Context) {
	var req orderdomain.AddActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	req.OrderID = strings.TrimSpace(c.Param("id"))
	req.ActivityID = strings.TrimSpace(req.ActivityID)

	resp, err := s.orderSvc.AddActivity(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeactivateOrderActivity(c *gin.Context) {
	resp, err := s.orderSvc.DeactivateLine(c.Request.Context(), orderdomain.DeactivateLineRequest{
		OrderID: strings.TrimSpace(c.Param("id")),
		LineID:  strings.TrimSpace(c.Param("lineId")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListCatalogActivities(c *gin.Context) {
	resp, err := s.orderSvc.ListCatalogActivities(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) AttachCatalogActivity(c *gin.Context) {
	var req orderdomain.AttachCatalogActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	req.CustomerID = strings.TrimSpace(c.Param("id"))
	req.ActivityID = strings.TrimSpace(req.ActivityID)

	resp, err := s.orderSvc.AttachCatalogActivity(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func isOrderValidationError(err error) bool {
	switch err {
	case orderdomain.ErrInvalidCustomer,
		orderdomain.ErrInvalidActivity,
		orderdomain.ErrInvalidQuantity,
		orderdomain.ErrNoLines,
		orderdomain.ErrInvalidID:
		return true
	default:
		return false
	}
}
