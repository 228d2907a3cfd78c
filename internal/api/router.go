package api

import (
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"golang.org/x/time/rate"

	"github.com/d60-Lab/post-policy/config"
	_ "github.com/d60-Lab/post-policy/docs"
	"github.com/d60-Lab/post-policy/internal/api/handler"
	"github.com/d60-Lab/post-policy/internal/api/middleware"
)

// NewRouter assembles the gin engine with the full middleware chain.
func NewRouter(cfg *config.Config, h *handler.Handler) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(
		gin.Recovery(),
		middleware.RequestLogger(),
		otelgin.Middleware("post-policy"),
		gzip.Gzip(gzip.DefaultCompression),
		middleware.RateLimit(rate.Limit(50), 100),
	)

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := r.Group("/api/v1")
	v1.POST("/auth/login", h.Login)
	v1.GET("/posts/:id", h.GetPost)

	authed := v1.Group("", middleware.JWT(cfg.JWT.Secret))
	authed.PUT("/posts/:id", h.UpdatePost)
	authed.PUT("/policy/accept", h.AcceptPolicy)
	authed.PUT("/policy/unaccept", h.UnacceptPolicy)

	return r
}
