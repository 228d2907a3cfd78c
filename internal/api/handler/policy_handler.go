package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/post-policy/internal/api/middleware"
	"github.com/d60-Lab/post-policy/internal/service"
	"github.com/d60-Lab/post-policy/pkg/response"
)

type policyRequest struct {
	PostID string `json:"post_id" binding:"required"`
}

// AcceptPolicy records the calling user's acceptance of a post's policy.
// @Summary Accept a post policy
// @Tags policy
// @Accept json
// @Produce json
// @Param request body policyRequest true "target post"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Security BearerAuth
// @Router /api/v1/policy/accept [put]
func (h *Handler) AcceptPolicy(c *gin.Context) {
	h.changeAccepted(c, true)
}

// UnacceptPolicy revokes the calling user's acceptance.
// @Summary Revoke a post policy acceptance
// @Tags policy
// @Accept json
// @Produce json
// @Param request body policyRequest true "target post"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Security BearerAuth
// @Router /api/v1/policy/unaccept [put]
func (h *Handler) UnacceptPolicy(c *gin.Context) {
	h.changeAccepted(c, false)
}

func (h *Handler) changeAccepted(c *gin.Context, add bool) {
	var req policyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	userID := c.GetString(middleware.ContextUserID)

	var err error
	if add {
		err = h.acceptance.Accept(c.Request.Context(), req.PostID, userID)
	} else {
		err = h.acceptance.Unaccept(c.Request.Context(), req.PostID, userID)
	}
	if err != nil {
		h.policyError(c, err)
		return
	}
	response.Success(c, nil)
}

// policyError maps the acceptance error taxonomy onto the wire: disabled
// feature and unknown post hide behind 404, the rest are recoverable
// domain failures returned in a 200 envelope.
func (h *Handler) policyError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrFeatureDisabled),
		errors.Is(err, service.ErrPostNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, service.ErrNoPolicy),
		errors.Is(err, service.ErrGroupNotFound),
		errors.Is(err, service.ErrUserNotInGroup),
		errors.Is(err, service.ErrGroupTooLarge),
		errors.Is(err, service.ErrStaffOnly):
		response.Failed(c, err.Error())
	default:
		response.InternalError(c, err)
	}
}
