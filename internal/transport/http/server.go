package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"legalrag-backend/internal/bootstrap"
	"legalrag-backend/internal/transport/http/handler"
	"legalrag-backend/internal/transport/http/middleware"
	"legalrag-backend/internal/transport/http/response"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery(), middleware.CORS())

	router.NoRoute(func(c *gin.Context) {
		response.Error(c, http.StatusNotFound, response.CodeNotFound, "API Not Found.")
	})

	legalHandler := handler.NewLegalHandler(app.LegalService)
	authHandler := handler.NewAuthHandler(app.AuthService)
	serverHandler := handler.NewServerHandler(app)

	v1 := router.Group("/api/v1")

	legalGroup := v1.Group("/legal")
	legalGroup.POST("", legalHandler.Upsert)
	legalGroup.POST("/auto-parse", legalHandler.AutoParse)
	legalGroup.POST("/question", legalHandler.Question)
	legalGroup.POST("/search", legalHandler.Search)
	legalGroup.POST("/batch", legalHandler.BatchUpsert)
	legalGroup.DELETE("/:vectorId", legalHandler.Delete)

	serverGroup := v1.Group("/server")
	serverGroup.GET("/health", serverHandler.Health)
	serverGroup.GET("/status", serverHandler.Status)

	authGroup := v1.Group("/auth")
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)
	authGroup.GET("/me", middleware.AuthJWT(app.Config.Auth.JWTSecret), authHandler.Me)

	return router
}
