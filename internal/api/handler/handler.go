package handler

import (
	"github.com/d60-Lab/post-policy/config"
	"github.com/d60-Lab/post-policy/internal/repository"
	"github.com/d60-Lab/post-policy/internal/service"
)

type Handler struct {
	cfg        *config.Config
	acceptance service.AcceptanceService
	posts      service.PostService
	users      repository.UserRepository
}

func New(cfg *config.Config, acceptance service.AcceptanceService, posts service.PostService, users repository.UserRepository) *Handler {
	return &Handler{cfg: cfg, acceptance: acceptance, posts: posts, users: users}
}
