package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	chatdomain "github.com/smallbiznis/quoteshare/internal/chat/domain"
	"github.com/smallbiznis/quoteshare/pkg/db/pagination"
)

type createChatSessionRequest struct {
	UserID string  `json:"user_id"`
	Source string  `json:"source"`
	Title  *string `json:"title"`
}

type appendChatMessageRequest struct {
	Role     string         `json:"role"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata"`
}

func (s *Server) CreateChatSession(c *gin.Context) {
	var req createChatSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	session, err := s.chatSvc.CreateSession(c.Request.Context(), chatdomain.CreateSessionRequest{
		UserID: req.UserID,
		Source: req.Source,
		Title:  req.Title,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": session})
}

func (s *Server) ListChatSessions(c *gin.Context) {
	var query struct {
		pagination.Pagination
		UserID string `form:"user_id"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.chatSvc.ListSessions(c.Request.Context(), chatdomain.ListSessionsRequest{
		UserID:     query.UserID,
		Pagination: query.Pagination,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":      resp.Sessions,
		"page_info": resp.PageInfo,
	})
}

func (s *Server) DeleteChatSession(c *gin.Context) {
	id, err := parseSnowflakeID(c.Param("id"))
	if err != nil {
		AbortWithError(c, ErrNotFound)
		return
	}

	if err := s.chatSvc.DeleteSession(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) AppendChatMessage(c *gin.Context) {
	id, err := parseSnowflakeID(c.Param("id"))
	if err != nil {
		AbortWithError(c, ErrNotFound)
		return
	}

	var req appendChatMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	msg, err := s.chatSvc.AppendMessage(c.Request.Context(), id, chatdomain.AppendMessageRequest{
		Role:     chatdomain.Role(req.Role),
		Content:  req.Content,
		Metadata: req.Metadata,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": msg})
}

func (s *Server) ListChatMessages(c *gin.Context) {
	id, err := parseSnowflakeID(c.Param("id"))
	if err != nil {
		AbortWithError(c, ErrNotFound)
		return
	}

	messages, err := s.chatSvc.ListMessages(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": messages})
}
