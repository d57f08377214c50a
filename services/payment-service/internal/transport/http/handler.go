package httpx

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Kaiser2484/bida-booking/services/payment-service/internal/domain"
)

type PaymentService interface {
	Complete(ctx context.Context, bookingID, method string) (*domain.Payment, error)
	Refund(ctx context.Context, bookingID, reason string) (*domain.Payment, error)
	Get(ctx context.Context, bookingID string) (*domain.Payment, error)
	Stats(ctx context.Context) (*domain.Stats, error)
}

type PaymentHandler struct {
	svc PaymentService
}

func NewPaymentHandler(svc PaymentService) *PaymentHandler {
	return &PaymentHandler{svc: svc}
}

func statusFor(err error) int {
	var ill *domain.IllegalStateError
	switch {
	case errors.Is(err, domain.ErrPaymentNotFound):
		return http.StatusNotFound
	case errors.As(err, &ill):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

type completeReq struct {
	Method string `json:"method"`
}

func (h *PaymentHandler) Complete(c *gin.Context) {
	var req completeReq
	_ = c.ShouldBindJSON(&req)
	p, err := h.svc.Complete(c.Request.Context(), c.Param("bookingId"), req.Method)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, p)
}

type refundReq struct {
	Reason string `json:"reason"`
}

func (h *PaymentHandler) Refund(c *gin.Context) {
	var req refundReq
	_ = c.ShouldBindJSON(&req)
	p, err := h.svc.Refund(c.Request.Context(), c.Param("bookingId"), req.Reason)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *PaymentHandler) Get(c *gin.Context) {
	p, err := h.svc.Get(c.Request.Context(), c.Param("bookingId"))
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *PaymentHandler) Stats(c *gin.Context) {
	s, err := h.svc.Stats(c.Request.Context())
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, s)
}
