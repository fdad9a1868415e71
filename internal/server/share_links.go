package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	sharelinkdomain "github.com/smallbiznis/quoteshare/internal/sharelink/domain"
)

type issueShareLinkRequest struct {
	ProductLine string  `json:"product_line"`
	ExpiresAt   *string `json:"expires_at"`
}

func (s *Server) IssueShareLink(c *gin.Context) {
	var req issueShareLinkRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}

	expiresAt, err := parseOptionalTime(req.ExpiresAt)
	if err != nil {
		AbortWithError(c, newValidationError("expires_at", "invalid_expires_at", "invalid expires_at"))
		return
	}

	link, err := s.shareSvc.Issue(c.Request.Context(), sharelinkdomain.IssueLinkRequest{
		JobID:       c.Param("id"),
		ProductLine: req.ProductLine,
		ExpiresAt:   expiresAt,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": link})
}

func (s *Server) ListShareLinks(c *gin.Context) {
	links, err := s.shareSvc.ListForJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": links})
}

func (s *Server) RevokeShareLink(c *gin.Context) {
	if err := s.shareSvc.Revoke(c.Request.Context(), c.Param("token")); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
