package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	offerdomain "github.com/smallbiznis/quoteshare/internal/offer/domain"
)

const maxQueryLimit = 500

type recordOfferRequest struct {
	Insurer          string         `json:"insurer"`
	SubjectRef       string         `json:"subject_ref"`
	InsuredEntity    *string        `json:"insured_entity"`
	LegacyInquiryID  *string        `json:"legacy_inquiry_id"`
	InsuredAmount    *float64       `json:"insured_amount"`
	Currency         string         `json:"currency"`
	PremiumTotal     *float64       `json:"premium_total"`
	PremiumBreakdown map[string]any `json:"premium_breakdown"`
	Territory        *string        `json:"territory"`
	PeriodFrom       *string        `json:"period_from"`
	PeriodTo         *string        `json:"period_to"`
	Coverage         map[string]any `json:"coverage"`
	RawText          *string        `json:"raw_text"`
}

// offerPatchRequest mirrors offerdomain.OfferPatch. Coverage keys set to
// null are removed.
type offerPatchRequest struct {
	Insurer          *string        `json:"insurer"`
	InsuredEntity    *string        `json:"insured_entity"`
	LegacyInquiryID  *string        `json:"legacy_inquiry_id"`
	InsuredAmount    *float64       `json:"insured_amount"`
	Currency         *string        `json:"currency"`
	PremiumTotal     *float64       `json:"premium_total"`
	PremiumBreakdown map[string]any `json:"premium_breakdown"`
	Territory        *string        `json:"territory"`
	PeriodFrom       *string        `json:"period_from"`
	PeriodTo         *string        `json:"period_to"`
	Coverage         map[string]any `json:"coverage"`
	RawText          *string        `json:"raw_text"`
}

func (r offerPatchRequest) toPatch() (offerdomain.OfferPatch, error) {
	periodFrom, err := parseOptionalTime(r.PeriodFrom)
	if err != nil {
		return offerdomain.OfferPatch{}, newValidationError("period_from", "invalid_period_from", "invalid period_from")
	}
	periodTo, err := parseOptionalTime(r.PeriodTo)
	if err != nil {
		return offerdomain.OfferPatch{}, newValidationError("period_to", "invalid_period_to", "invalid period_to")
	}
	return offerdomain.OfferPatch{
		Insurer:          r.Insurer,
		InsuredEntity:    r.InsuredEntity,
		LegacyInquiryID:  r.LegacyInquiryID,
		InsuredAmount:    r.InsuredAmount,
		Currency:         r.Currency,
		PremiumTotal:     r.PremiumTotal,
		PremiumBreakdown: r.PremiumBreakdown,
		Territory:        r.Territory,
		PeriodFrom:       periodFrom,
		PeriodTo:         periodTo,
		Coverage:         r.Coverage,
		RawText:          r.RawText,
	}, nil
}

func (s *Server) RecordOffer(c *gin.Context) {
	var req recordOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	periodFrom, err := parseOptionalTime(req.PeriodFrom)
	if err != nil {
		AbortWithError(c, newValidationError("period_from", "invalid_period_from", "invalid period_from"))
		return
	}
	periodTo, err := parseOptionalTime(req.PeriodTo)
	if err != nil {
		AbortWithError(c, newValidationError("period_to", "invalid_period_to", "invalid period_to"))
		return
	}

	offer, err := s.offerSvc.Record(c.Request.Context(), c.Param("id"), offerdomain.RecordOfferRequest{
		Insurer:          req.Insurer,
		SubjectRef:       req.SubjectRef,
		InsuredEntity:    req.InsuredEntity,
		LegacyInquiryID:  req.LegacyInquiryID,
		InsuredAmount:    req.InsuredAmount,
		Currency:         req.Currency,
		PremiumTotal:     req.PremiumTotal,
		PremiumBreakdown: req.PremiumBreakdown,
		Territory:        req.Territory,
		PeriodFrom:       periodFrom,
		PeriodTo:         periodTo,
		Coverage:         req.Coverage,
		RawText:          req.RawText,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": offer})
}

func (s *Server) GetOffer(c *gin.Context) {
	id, err := parseSnowflakeID(c.Param("id"))
	if err != nil {
		AbortWithError(c, ErrNotFound)
		return
	}

	offer, err := s.offerSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": offer})
}

func (s *Server) UpdateOffer(c *gin.Context) {
	id, err := parseSnowflakeID(c.Param("id"))
	if err != nil {
		AbortWithError(c, ErrNotFound)
		return
	}

	var req offerPatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	patch, err := req.toPatch()
	if err != nil {
		AbortWithError(c, err)
		return
	}

	offer, err := s.offerSvc.Update(c.Request.Context(), id, patch)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": offer})
}

func (s *Server) QueryOffers(c *gin.Context) {
	var query struct {
		SubjectRef  string `form:"subject_ref"`
		Insurer     string `form:"insurer"`
		JobID       string `form:"job_id"`
		ProductLine string `form:"product_line"`
		Limit       string `form:"limit"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	limit, err := parseOptionalInt(query.Limit)
	if err != nil || limit > maxQueryLimit {
		AbortWithError(c, newValidationError("limit", "invalid_limit", "invalid limit"))
		return
	}
	if limit == 0 {
		limit = maxQueryLimit
	}

	offers := []offerdomain.Offer{}
	for offer, err := range s.offerSvc.Query(c.Request.Context(), offerdomain.OfferFilter{
		SubjectRef:  strings.TrimSpace(query.SubjectRef),
		Insurer:     strings.TrimSpace(query.Insurer),
		JobID:       strings.TrimSpace(query.JobID),
		ProductLine: strings.TrimSpace(query.ProductLine),
		Limit:       limit,
	}) {
		if err != nil {
			AbortWithError(c, err)
			return
		}
		offers = append(offers, offer)
	}

	c.JSON(http.StatusOK, gin.H{"data": offers})
}
