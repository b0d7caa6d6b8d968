package controller

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/bassista/go_devbytes/internal/cache"
	"github.com/bassista/go_devbytes/internal/logger"
	"github.com/bassista/go_devbytes/internal/model"
	"github.com/gin-gonic/gin"
	"github.com/lithammer/fuzzysearch/fuzzy"
)

// PlaylistCache is the part of cache.Repository the HTTP layer uses.
type PlaylistCache interface {
	ObserveAll(ctx context.Context) <-chan []model.Item
	Items() ([]model.Item, error)
	Refresh(ctx context.Context) error
	State() cache.State
	Policy() cache.Policy
	Waiters() int
	LastSuccess() time.Time
}

// ItemResponse is the JSON shape of a playlist item.
type ItemResponse struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	ShortDescription string    `json:"shortDescription"`
	URL              string    `json:"url"`
	ThumbnailURL     string    `json:"thumbnail"`
	UpdatedAt        time.Time `json:"updated"`
}

// RefreshStateResponse reports the refresh state machine.
type RefreshStateResponse struct {
	State       string     `json:"state"`
	Policy      string     `json:"policy"`
	Waiters     int        `json:"waiters"`
	LastSuccess *time.Time `json:"lastSuccess,omitempty"`
}

type PlaylistController struct {
	cache PlaylistCache
}

func NewPlaylistController(pc PlaylistCache) *PlaylistController {
	return &PlaylistController{cache: pc}
}

// Items returns the committed playlist. ?q= keeps items whose title fuzzy-matches q.
func (pc *PlaylistController) Items(c *gin.Context) {
	items, err := pc.cache.Items()
	if err != nil {
		logger.WithComponent("playlist_controller").Errorf("failed to read playlist: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read playlist"})
		return
	}

	if q := strings.TrimSpace(c.Query("q")); q != "" {
		items = filterByTitle(items, q)
	}
	c.JSON(http.StatusOK, toResponse(items))
}

// Stream sends one "items" server-sent event per view emission until the client goes away.
func (pc *PlaylistController) Stream(c *gin.Context) {
	ctx := c.Request.Context()
	view := pc.cache.ObserveAll(ctx)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)

	log := logger.WithComponent("playlist_controller")
	log.Debugf("stream opened from %s", c.ClientIP())
	for {
		select {
		case items, ok := <-view:
			if !ok {
				return
			}
			c.SSEvent("items", toResponse(items))
			c.Writer.Flush()
		case <-ctx.Done():
			log.Debugf("stream closed from %s", c.ClientIP())
			return
		}
	}
}

// Refresh runs a refresh on the request context and maps its outcome to a status code.
func (pc *PlaylistController) Refresh(c *gin.Context) {
	if err := pc.cache.Refresh(c.Request.Context()); err != nil {
		status := statusFor(err)
		body := gin.H{"error": err.Error(), "kind": cache.Kind(err)}
		if status == http.StatusConflict {
			body["state"] = pc.cache.State().String()
		}
		c.JSON(status, body)
		return
	}

	items, err := pc.cache.Items()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read playlist"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(items)})
}

func (pc *PlaylistController) RefreshState(c *gin.Context) {
	resp := RefreshStateResponse{
		State:   pc.cache.State().String(),
		Policy:  pc.cache.Policy().String(),
		Waiters: pc.cache.Waiters(),
	}
	if last := pc.cache.LastSuccess(); !last.IsZero() {
		resp.LastSuccess = &last
	}
	c.JSON(http.StatusOK, resp)
}

func filterByTitle(items []model.Item, q string) []model.Item {
	out := make([]model.Item, 0, len(items))
	for _, it := range items {
		if fuzzy.MatchFold(q, it.Title) {
			out = append(out, it)
		}
	}
	return out
}

func toResponse(items []model.Item) []ItemResponse {
	out := make([]ItemResponse, len(items))
	for i, it := range items {
		out[i] = ItemResponse{
			ID:               it.ID,
			Title:            it.Title,
			Description:      it.Description,
			ShortDescription: it.ShortDescription(),
			URL:              it.URL,
			ThumbnailURL:     it.ThumbnailURL,
			UpdatedAt:        it.UpdatedAt,
		}
	}
	return out
}
