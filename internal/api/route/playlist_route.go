package route

import (
	"time"

	"github.com/bassista/go_devbytes/internal/api/controller"
	"github.com/bassista/go_devbytes/internal/api/middleware"
	"github.com/gin-gonic/gin"
)

// NewPlaylistRouter registers the playlist endpoints. The stream is long-lived and has no timeout.
func NewPlaylistRouter(timeout time.Duration, group *gin.RouterGroup, pc controller.PlaylistCache) {
	ctrl := controller.NewPlaylistController(pc)
	timeoutMiddleware := middleware.RequestTimeout(timeout)

	group.GET("items", timeoutMiddleware, ctrl.Items)
	group.GET("items/stream", ctrl.Stream)
	group.POST("refresh", timeoutMiddleware, ctrl.Refresh)
	group.GET("refresh/state", timeoutMiddleware, ctrl.RefreshState)
}
