package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	sharelinkdomain "github.com/smallbiznis/quoteshare/internal/sharelink/domain"
)

const maxEditPatches = 100

type shareOfferEdit struct {
	OfferID string `json:"offer_id"`
	offerPatchRequest
}

type shareEditRequest struct {
	Patches []shareOfferEdit `json:"patches"`
}

type viewPrefsRequest struct {
	ViewPrefs map[string]any `json:"view_prefs"`
}

func (s *Server) ViewShare(c *gin.Context) {
	view, err := s.shareSvc.ResolveForView(c.Request.Context(), c.Param("token"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": view})
}

func (s *Server) EditShare(c *gin.Context) {
	var req shareEditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if len(req.Patches) > maxEditPatches {
		AbortWithError(c, newValidationError("patches", "too_many_patches", "too many patches"))
		return
	}

	mutation := sharelinkdomain.EditMutation{
		Patches: make([]sharelinkdomain.OfferEdit, 0, len(req.Patches)),
	}
	for _, edit := range req.Patches {
		offerID, err := parseSnowflakeID(edit.OfferID)
		if err != nil {
			AbortWithError(c, newValidationError("offer_id", "invalid_offer_id", "invalid offer_id"))
			return
		}
		patch, err := edit.toPatch()
		if err != nil {
			AbortWithError(c, err)
			return
		}
		mutation.Patches = append(mutation.Patches, sharelinkdomain.OfferEdit{OfferID: offerID, Patch: patch})
	}

	view, err := s.shareSvc.ResolveForEdit(c.Request.Context(), c.Param("token"), mutation)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": view})
}

func (s *Server) UpdateShareViewPrefs(c *gin.Context) {
	var req viewPrefsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	link, err := s.shareSvc.UpdateViewPrefs(c.Request.Context(), c.Param("token"), req.ViewPrefs)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"view_prefs": link.ViewPrefs}})
}
