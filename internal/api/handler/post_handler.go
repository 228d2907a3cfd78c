package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/post-policy/internal/service"
	"github.com/d60-Lab/post-policy/pkg/response"
)

type editPostRequest struct {
	Raw string `json:"raw" binding:"required"`
}

// GetPost serializes a post; when its policy binds a group the payload
// carries policy_accepted_by / policy_not_accepted_by member lists.
// @Summary Get a post with its policy acceptance view
// @Tags posts
// @Produce json
// @Param id path string true "post id"
// @Success 200 {object} response.Response{data=service.PostView}
// @Failure 404 {object} response.Response
// @Router /api/v1/posts/{id} [get]
func (h *Handler) GetPost(c *gin.Context) {
	view, err := h.posts.View(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrPostNotFound) {
			response.NotFound(c, err.Error())
			return
		}
		response.InternalError(c, err)
		return
	}
	response.Success(c, view)
}

// UpdatePost replaces a post's raw content, re-renders it and reconciles
// the embedded policy declaration.
// @Summary Edit a post (triggers policy reconciliation)
// @Tags posts
// @Accept json
// @Produce json
// @Param id path string true "post id"
// @Param request body editPostRequest true "new raw markdown"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Security BearerAuth
// @Router /api/v1/posts/{id} [put]
func (h *Handler) UpdatePost(c *gin.Context) {
	var req editPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := h.posts.Edit(c.Request.Context(), c.Param("id"), req.Raw); err != nil {
		if errors.Is(err, service.ErrPostNotFound) {
			response.NotFound(c, err.Error())
			return
		}
		response.InternalError(c, err)
		return
	}
	response.Success(c, nil)
}
