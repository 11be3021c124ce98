package handlers

import (
	"context"
	"net/http"
	"time"

	"issuetracker/database"

	"github.com/gin-gonic/gin"
)

const healthTimeout = 2 * time.Second

func HealthCheck(store database.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
		defer cancel()

		if err := store.Ping(ctx); err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unavailable",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
	}
}
