package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/post-policy/internal/api/middleware"
	"github.com/d60-Lab/post-policy/pkg/response"
)

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login exchanges credentials for a bearer token.
// @Summary Log in
// @Tags auth
// @Accept json
// @Produce json
// @Param request body loginRequest true "credentials"
// @Success 200 {object} response.Response{data=map[string]string}
// @Failure 401 {object} response.Response
// @Router /api/v1/auth/login [post]
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	user, err := h.users.GetByUsername(c.Request.Context(), req.Username)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if user == nil || !user.CheckPassword(req.Password) {
		response.Unauthorized(c, "invalid credentials")
		return
	}

	ttl := time.Duration(h.cfg.JWT.ExpireHours) * time.Hour
	token, err := middleware.IssueToken(h.cfg.JWT.Secret, user.ID, ttl)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, gin.H{"token": token})
}
