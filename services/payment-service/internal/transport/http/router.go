package httpx

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Kaiser2484/bida-booking/pkg/auth"
)

func Register(r *gin.Engine, h *PaymentHandler) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api/payments", auth.JWTAuth())
	api.GET("/:bookingId", h.Get)

	staff := api.Group("", auth.RequireRole("staff", "admin"))
	staff.POST("/:bookingId/complete", h.Complete)
	staff.POST("/:bookingId/refund", h.Refund)
	staff.GET("/stats", h.Stats)
}
