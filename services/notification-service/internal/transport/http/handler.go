package httpx

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Kaiser2484/bida-booking/pkg/auth"
	"github.com/Kaiser2484/bida-booking/services/notification-service/internal/notifier"
)

type FeedReader interface {
	List(ctx context.Context, userID string, limit int64) ([]notifier.Message, int64, error)
	UnreadCount(ctx context.Context, userID string) (int64, error)
	MarkRead(ctx context.Context, userID, msgID string) error
	MarkAllRead(ctx context.Context, userID string) error
}

type FeedHandler struct {
	feed FeedReader
}

func NewFeedHandler(feed FeedReader) *FeedHandler {
	return &FeedHandler{feed: feed}
}

// List returns the caller's own feed; the user id comes from the token, never
// from the URL.
func (h *FeedHandler) List(c *gin.Context) {
	userID := c.GetString("sub")
	limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "50"), 10, 64)
	msgs, unread, err := h.feed.List(c.Request.Context(), userID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": msgs, "unread": unread})
}

func (h *FeedHandler) Unread(c *gin.Context) {
	n, err := h.feed.UnreadCount(c.Request.Context(), c.GetString("sub"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread": n})
}

func (h *FeedHandler) Read(c *gin.Context) {
	if err := h.feed.MarkRead(c.Request.Context(), c.GetString("sub"), c.Param("id")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *FeedHandler) ReadAll(c *gin.Context) {
	if err := h.feed.MarkAllRead(c.Request.Context(), c.GetString("sub")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func Register(r *gin.Engine, h *FeedHandler) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api/notifications", auth.JWTAuth())
	api.GET("", h.List)
	api.GET("/unread", h.Unread)
	api.PATCH("/:id/read", h.Read)
	api.POST("/read-all", h.ReadAll)
}
