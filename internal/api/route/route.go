package route

import (
	"net/http"

	"github.com/bassista/go_devbytes/internal/app"
	"github.com/gin-gonic/gin"
)

func SetupRoutes(r *gin.Engine, appCtx *app.App) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "UP",
		})
	})

	api := r.Group("/api")
	NewPlaylistRouter(appCtx.Config.Server.RequestTimeout, api, appCtx.Repo)
}
