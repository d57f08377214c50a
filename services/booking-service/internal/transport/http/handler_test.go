package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Kaiser2484/bida-booking/services/booking-service/internal/domain"
	"github.com/Kaiser2484/bida-booking/services/booking-service/internal/repository"
	"github.com/Kaiser2484/bida-booking/services/booking-service/internal/service"
)

type mockSvc struct{ mock.Mock }

func (m *mockSvc) Create(ctx context.Context, in service.CreateInput) (*domain.Booking, error) {
	args := m.Called(in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *mockSvc) Confirm(ctx context.Context, id string) (*domain.Booking, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *mockSvc) Cancel(ctx context.Context, id, reason string) (*domain.Booking, error) {
	args := m.Called(id, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *mockSvc) Complete(ctx context.Context, id string) (*domain.Booking, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *mockSvc) NoShow(ctx context.Context, id string) (*domain.Booking, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *mockSvc) Get(ctx context.Context, id string) (*domain.Booking, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *mockSvc) List(ctx context.Context, f repository.ListFilter) ([]domain.Booking, error) {
	args := m.Called(f)
	return args.Get(0).([]domain.Booking), args.Error(1)
}

// testRouter registers the handler without the auth middleware so tests
// exercise the mapping layer only.
func testRouter(h *BookingHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/api/bookings", h.Create)
	r.PATCH("/api/bookings/:id/confirm", h.Confirm)
	r.PATCH("/api/bookings/:id/cancel", h.Cancel)
	r.PATCH("/api/bookings/:id/complete", h.Complete)
	r.GET("/api/bookings/:id", h.Get)
	r.GET("/api/bookings", h.List)
	return r
}

func doJSON(r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func createBody() map[string]any {
	return map[string]any{
		"userId":    "u1",
		"tableId":   "t1",
		"startTime": "2024-06-01T08:00:00Z",
		"endTime":   "2024-06-01T10:00:00Z",
	}
}

func TestCreateReturns201(t *testing.T) {
	svc := &mockSvc{}
	b := &domain.Booking{ID: "b1", Status: domain.StatusPending, TotalPrice: 100_000}
	svc.On("Create", mock.MatchedBy(func(in service.CreateInput) bool {
		return in.TableID == "t1" && in.EndTime.Sub(in.StartTime) == 2*time.Hour
	})).Return(b, nil)

	w := doJSON(testRouter(NewBookingHandler(svc)), http.MethodPost, "/api/bookings", createBody())
	require.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		Booking domain.Booking `json:"booking"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "b1", resp.Booking.ID)
}

func TestCreateErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"lock contention", domain.ErrLockContention, http.StatusConflict},
		{"scheduling conflict", domain.ErrSchedulingConflict, http.StatusBadRequest},
		{"validation", domain.Validationf("end before start"), http.StatusBadRequest},
		{"table missing", domain.ErrTableNotFound, http.StatusNotFound},
		{"downstream", domain.ErrDownstreamUnavailable, http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &mockSvc{}
			svc.On("Create", mock.Anything).Return(nil, tc.err)
			w := doJSON(testRouter(NewBookingHandler(svc)), http.MethodPost, "/api/bookings", createBody())
			assert.Equal(t, tc.code, w.Code)
		})
	}
}

func TestCreateRejectsBadTimestamps(t *testing.T) {
	svc := &mockSvc{}
	body := createBody()
	body["startTime"] = "yesterday"
	w := doJSON(testRouter(NewBookingHandler(svc)), http.MethodPost, "/api/bookings", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNotCalled(t, "Create", mock.Anything)
}

func TestConfirmIllegalTransitionIs400(t *testing.T) {
	svc := &mockSvc{}
	svc.On("Confirm", "b1").Return(nil, &domain.IllegalTransitionError{
		Current: domain.StatusCancelled, Target: domain.StatusConfirmed,
	})
	w := doJSON(testRouter(NewBookingHandler(svc)), http.MethodPatch, "/api/bookings/b1/confirm", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCancelPassesReason(t *testing.T) {
	svc := &mockSvc{}
	b := &domain.Booking{ID: "b1", Status: domain.StatusCancelled}
	svc.On("Cancel", "b1", "running late").Return(b, nil)

	w := doJSON(testRouter(NewBookingHandler(svc)), http.MethodPatch,
		"/api/bookings/b1/cancel", map[string]any{"reason": "running late"})
	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestGetUnknownBookingIs404(t *testing.T) {
	svc := &mockSvc{}
	svc.On("Get", "nope").Return(nil, domain.ErrBookingNotFound)
	w := doJSON(testRouter(NewBookingHandler(svc)), http.MethodGet, "/api/bookings/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListPassesFilters(t *testing.T) {
	svc := &mockSvc{}
	svc.On("List", repository.ListFilter{
		Date: "2024-06-01", Status: domain.StatusPending, ClubID: "c1",
	}).Return([]domain.Booking{}, nil)

	w := doJSON(testRouter(NewBookingHandler(svc)), http.MethodGet,
		"/api/bookings?date=2024-06-01&status=pending&clubId=c1", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestListRejectsUnknownStatus(t *testing.T) {
	svc := &mockSvc{}
	w := doJSON(testRouter(NewBookingHandler(svc)), http.MethodGet, "/api/bookings?status=parked", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNotCalled(t, "List", mock.Anything)
}
