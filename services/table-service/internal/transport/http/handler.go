package httpx

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Kaiser2484/bida-booking/services/table-service/internal/cache"
	"github.com/Kaiser2484/bida-booking/services/table-service/internal/domain"
)

type TableStore interface {
	List(ctx context.Context, clubID string, status domain.TableStatus) ([]domain.TableInfo, error)
	ByID(ctx context.Context, id string) (*domain.Table, error)
	Create(ctx context.Context, t *domain.Table) error
	UpdateStatus(ctx context.Context, id string, status domain.TableStatus) (*domain.Table, error)
	AvailableForSlot(ctx context.Context, clubID string, start, end time.Time) ([]domain.TableInfo, error)
	Clubs(ctx context.Context) ([]domain.Club, error)
	TableTypes(ctx context.Context) ([]domain.TableType, error)
}

type ListingCache interface {
	Get(ctx context.Context, key string) ([]domain.TableInfo, bool, error)
	Set(ctx context.Context, key string, rows []domain.TableInfo) error
	Invalidate(ctx context.Context, clubID string) error
}

type Broadcaster interface {
	Broadcast(ctx context.Context, v any) error
}

type TableHandler struct {
	store TableStore
	cache ListingCache
	bcast Broadcaster
}

func NewTableHandler(store TableStore, c ListingCache, b Broadcaster) *TableHandler {
	return &TableHandler{store: store, cache: c, bcast: b}
}

// List serves the filtered listing through the read cache. Cache errors fall
// back to the database rather than failing the request.
func (h *TableHandler) List(c *gin.Context) {
	clubID := c.Query("clubId")
	status := domain.TableStatus(c.Query("status"))
	if status != "" && !status.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status " + string(status)})
		return
	}

	key := cache.Key(clubID, status)
	if rows, ok, err := h.cache.Get(c.Request.Context(), key); err != nil {
		log.Printf("[table] cache read failed for %s: %v", key, err)
	} else if ok {
		c.JSON(http.StatusOK, gin.H{"tables": rows, "cached": true})
		return
	}

	rows, err := h.store.List(c.Request.Context(), clubID, status)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if err := h.cache.Set(c.Request.Context(), key, rows); err != nil {
		log.Printf("[table] cache write failed for %s: %v", key, err)
	}
	c.JSON(http.StatusOK, gin.H{"tables": rows, "cached": false})
}

func (h *TableHandler) Available(c *gin.Context) {
	start, err := time.Parse(time.RFC3339, c.Query("start"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start must be RFC3339"})
		return
	}
	end, err := time.Parse(time.RFC3339, c.Query("end"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "end must be RFC3339"})
		return
	}
	if !end.After(start) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "end must be after start"})
		return
	}
	rows, err := h.store.AvailableForSlot(c.Request.Context(), c.Query("clubId"), start, end)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"tables": rows})
}

func (h *TableHandler) Get(c *gin.Context) {
	tbl, err := h.store.ByID(c.Request.Context(), c.Param("id"))
	if errors.Is(err, domain.ErrTableNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, tbl)
}

type createTableReq struct {
	ClubID      string `json:"clubId" binding:"required"`
	TableTypeID string `json:"tableTypeId" binding:"required"`
	TableNumber int32  `json:"tableNumber" binding:"required"`
	Floor       int32  `json:"floor"`
	HourlyRate  *int64 `json:"hourlyRate"`
}

func (h *TableHandler) Create(c *gin.Context) {
	var req createTableReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tbl := &domain.Table{
		ClubID:      req.ClubID,
		TableTypeID: req.TableTypeID,
		TableNumber: req.TableNumber,
		Floor:       req.Floor,
		HourlyRate:  req.HourlyRate,
		IsActive:    true,
	}
	if err := h.store.Create(c.Request.Context(), tbl); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if err := h.cache.Invalidate(c.Request.Context(), tbl.ClubID); err != nil {
		log.Printf("[table] cache invalidation failed for club %s: %v", tbl.ClubID, err)
	}
	c.JSON(http.StatusCreated, tbl)
}

type statusReq struct {
	Status domain.TableStatus `json:"status" binding:"required"`
}

// UpdateStatus is the staff override path; the regular path is the projector
// consuming booking events.
func (h *TableHandler) UpdateStatus(c *gin.Context) {
	var req statusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !req.Status.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status " + string(req.Status)})
		return
	}
	tbl, err := h.store.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status)
	if errors.Is(err, domain.ErrTableNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if err := h.cache.Invalidate(c.Request.Context(), tbl.ClubID); err != nil {
		log.Printf("[table] cache invalidation failed for club %s: %v", tbl.ClubID, err)
	}
	if err := h.bcast.Broadcast(c.Request.Context(), tbl); err != nil {
		log.Printf("[table] broadcast failed for table %s: %v", tbl.ID, err)
	}
	c.JSON(http.StatusOK, tbl)
}

func (h *TableHandler) Clubs(c *gin.Context) {
	clubs, err := h.store.Clubs(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"clubs": clubs})
}

func (h *TableHandler) TableTypes(c *gin.Context) {
	types, err := h.store.TableTypes(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"tableTypes": types})
}
