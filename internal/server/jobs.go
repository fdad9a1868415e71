package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	jobdomain "github.com/smallbiznis/quoteshare/internal/job/domain"
)

type createJobRequest struct {
	ID          string `json:"id"`
	SubjectRef  string `json:"subject_ref"`
	ProductLine string `json:"product_line"`
}

func (s *Server) CreateJob(c *gin.Context) {
	var req createJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	job, err := s.jobSvc.Create(c.Request.Context(), jobdomain.CreateJobRequest{
		ID:          req.ID,
		SubjectRef:  req.SubjectRef,
		ProductLine: req.ProductLine,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": job})
}

func (s *Server) GetJob(c *gin.Context) {
	job, err := s.jobSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": job})
}

func (s *Server) DeleteJob(c *gin.Context) {
	if err := s.jobSvc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) ListJobOffers(c *gin.Context) {
	offers, err := s.jobSvc.ListOffers(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": offers})
}
