package handlers

import (
	"issuetracker/database"
	"issuetracker/middleware"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// NewRouter wires middleware, the health check and the issue routes.
func NewRouter(store database.Store, logger zerolog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.RequestLogger(logger))

	r.GET("/health", HealthCheck(store))
	NewIssueHandler(store, logger).Register(r)

	return r
}
