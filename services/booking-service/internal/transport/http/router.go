package httpx

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Kaiser2484/bida-booking/pkg/auth"
)

func Register(r *gin.Engine, h *BookingHandler) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "booking-service"})
	})

	api := r.Group("/api/bookings")
	{
		api.GET("/:id", h.Get)
		api.GET("", h.List)

		authed := api.Group("")
		authed.Use(auth.JWTAuth())
		authed.POST("", h.Create)
		authed.PATCH("/:id/cancel", h.Cancel)
		authed.GET("/user/:userId", h.ListByUser)

		staff := api.Group("")
		staff.Use(auth.JWTAuth(), auth.RequireRole("staff", "admin"))
		staff.PATCH("/:id/confirm", h.Confirm)
		staff.PATCH("/:id/complete", h.Complete)
		staff.PATCH("/:id/no-show", h.NoShow)
	}
}
