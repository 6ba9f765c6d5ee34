package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	activitydomain "github.com/smallbiznis/workrate/internal/activity/domain"
)

func (s *Server) CreateActivity(c *gin.Context) {
	var req activitydomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Unit = strings.TrimSpace(req.Unit)

	resp, err := s.activitySvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListActivities(c *gin.Context) {
	active, err := parseOptionalBool(c.Query("active"))
	if err != nil {
		AbortWithError(c, newValidationError("active", "invalid_active", "invalid active"))
		return
	}

	resp, err := s.activitySvc.List(c.Request.Context(), activitydomain.ListRequest{
		Active: active,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetActivityByID(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	resp, err := s.activitySvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateActivity(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))

	var req activitydomain.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.activitySvc.Update(c.Request.Context(), id, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ArchiveActivity(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	resp, err := s.activitySvc.Archive(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func isActivityValidationError(err error) bool {
	switch err {
	case activitydomain.ErrInvalidName,
		activitydomain.ErrInvalidUnit,
		activitydomain.ErrInvalidDefaultPrice,
		activitydomain.ErrInvalidCurrency,
		activitydomain.ErrInvalidID:
		return true
	default:
		return false
	}
}
