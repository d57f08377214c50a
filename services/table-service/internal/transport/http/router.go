package httpx

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Kaiser2484/bida-booking/pkg/auth"
)

func Register(r *gin.Engine, h *TableHandler) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	api.GET("/clubs", h.Clubs)
	api.GET("/table-types", h.TableTypes)

	tables := api.Group("/tables")
	tables.GET("", h.List)
	tables.GET("/available", h.Available)
	tables.GET("/:id", h.Get)

	staff := tables.Group("", auth.JWTAuth(), auth.RequireRole("staff", "admin"))
	staff.PATCH("/:id/status", h.UpdateStatus)

	admin := tables.Group("", auth.JWTAuth(), auth.RequireRole("admin"))
	admin.POST("", h.Create)
}
