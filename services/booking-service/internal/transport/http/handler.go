package httpx

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Kaiser2484/bida-booking/services/booking-service/internal/domain"
	"github.com/Kaiser2484/bida-booking/services/booking-service/internal/repository"
	"github.com/Kaiser2484/bida-booking/services/booking-service/internal/service"
)

// BookingService is what the HTTP layer needs from the core.
type BookingService interface {
	Create(ctx context.Context, in service.CreateInput) (*domain.Booking, error)
	Confirm(ctx context.Context, id string) (*domain.Booking, error)
	Cancel(ctx context.Context, id, reason string) (*domain.Booking, error)
	Complete(ctx context.Context, id string) (*domain.Booking, error)
	NoShow(ctx context.Context, id string) (*domain.Booking, error)
	Get(ctx context.Context, id string) (*domain.Booking, error)
	List(ctx context.Context, f repository.ListFilter) ([]domain.Booking, error)
}

type BookingHandler struct {
	svc BookingService
}

func NewBookingHandler(svc BookingService) *BookingHandler {
	return &BookingHandler{svc: svc}
}

// statusFor maps the core's typed errors onto the HTTP surface: 409 for lock
// contention, 400 for conflict/validation/illegal-transition, 503 when the
// ledger or bus is down.
func statusFor(err error) int {
	var ve *domain.ValidationError
	var it *domain.IllegalTransitionError
	switch {
	case errors.As(err, &ve), errors.As(err, &it):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrSchedulingConflict):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrLockContention):
		return http.StatusConflict
	case errors.Is(err, domain.ErrBookingNotFound), errors.Is(err, domain.ErrTableNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrDownstreamUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func abortWith(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}

// POST /api/bookings
func (h *BookingHandler) Create(c *gin.Context) {
	var in struct {
		UserID    string `json:"userId"`
		TableID   string `json:"tableId" binding:"required"`
		StartTime string `json:"startTime" binding:"required"` // RFC3339
		EndTime   string `json:"endTime" binding:"required"`
		Notes     string `json:"notes"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	st, err := time.Parse(time.RFC3339, in.StartTime)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "startTime must be RFC3339"})
		return
	}
	et, err := time.Parse(time.RFC3339, in.EndTime)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "endTime must be RFC3339"})
		return
	}
	userID := in.UserID
	if userID == "" {
		sub, _ := c.Get("sub") // set by JWTAuth
		userID, _ = sub.(string)
	}

	b, err := h.svc.Create(c.Request.Context(), service.CreateInput{
		UserID:    userID,
		TableID:   in.TableID,
		StartTime: st,
		EndTime:   et,
		Notes:     in.Notes,
	})
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"booking": b})
}

// PATCH /api/bookings/:id/confirm
func (h *BookingHandler) Confirm(c *gin.Context) {
	b, err := h.svc.Confirm(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking": b})
}

// PATCH /api/bookings/:id/cancel
func (h *BookingHandler) Cancel(c *gin.Context) {
	var in struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&in) // reason is optional
	b, err := h.svc.Cancel(c.Request.Context(), c.Param("id"), in.Reason)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking": b})
}

// PATCH /api/bookings/:id/complete
func (h *BookingHandler) Complete(c *gin.Context) {
	b, err := h.svc.Complete(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking": b})
}

// PATCH /api/bookings/:id/no-show
func (h *BookingHandler) NoShow(c *gin.Context) {
	b, err := h.svc.NoShow(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking": b})
}

// GET /api/bookings/:id
func (h *BookingHandler) Get(c *gin.Context) {
	b, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking": b})
}

// GET /api/bookings?date=YYYY-MM-DD&status=&clubId=
func (h *BookingHandler) List(c *gin.Context) {
	f := repository.ListFilter{
		Date:   c.Query("date"),
		Status: domain.Status(c.Query("status")),
		ClubID: c.Query("clubId"),
	}
	if f.Status != "" && !f.Status.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status"})
		return
	}
	out, err := h.svc.List(c.Request.Context(), f)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": out})
}

// GET /api/bookings/user/:userId
func (h *BookingHandler) ListByUser(c *gin.Context) {
	f := repository.ListFilter{
		UserID: c.Param("userId"),
		Status: domain.Status(c.Query("status")),
	}
	if f.Status != "" && !f.Status.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status"})
		return
	}
	out, err := h.svc.List(c.Request.Context(), f)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": out})
}
