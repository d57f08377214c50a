package projector

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Kaiser2484/bida-booking/pkg/events"
	"github.com/Kaiser2484/bida-booking/services/table-service/internal/domain"
)

type mockLedger struct{ mock.Mock }

func (m *mockLedger) UpdateStatus(ctx context.Context, id string, status domain.TableStatus) (*domain.Table, error) {
	args := m.Called(id, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Table), args.Error(1)
}

type mockInvalidator struct{ mock.Mock }

func (m *mockInvalidator) Invalidate(ctx context.Context, clubID string) error {
	args := m.Called(clubID)
	return args.Error(0)
}

type mockBroadcaster struct{ mock.Mock }

func (m *mockBroadcaster) Broadcast(ctx context.Context, v any) error {
	args := m.Called(v)
	return args.Error(0)
}

func statusBody(t *testing.T, ev events.TableStatus) []byte {
	t.Helper()
	b, err := json.Marshal(ev)
	require.NoError(t, err)
	return b
}

func TestHandleProjectsInvalidatesAndBroadcasts(t *testing.T) {
	ledger := &mockLedger{}
	cache := &mockInvalidator{}
	bcast := &mockBroadcaster{}
	p := NewProjector(ledger, cache, bcast, nil)

	tbl := &domain.Table{ID: "t1", ClubID: "c1", Status: domain.TableReserved}
	ledger.On("UpdateStatus", "t1", domain.TableReserved).Return(tbl, nil)
	cache.On("Invalidate", "c1").Return(nil)
	bcast.On("Broadcast", tbl).Return(nil)

	err := p.Handle(context.Background(), statusBody(t, events.TableStatus{TableID: "t1", Status: "reserved"}))
	require.NoError(t, err)
	ledger.AssertExpectations(t)
	cache.AssertExpectations(t)
	bcast.AssertExpectations(t)
}

func TestHandleNacksWhenInvalidationFails(t *testing.T) {
	ledger := &mockLedger{}
	cache := &mockInvalidator{}
	bcast := &mockBroadcaster{}
	p := NewProjector(ledger, cache, bcast, nil)

	tbl := &domain.Table{ID: "t1", ClubID: "c1"}
	ledger.On("UpdateStatus", "t1", domain.TableAvailable).Return(tbl, nil)
	cache.On("Invalidate", "c1").Return(errors.New("redis down"))

	err := p.Handle(context.Background(), statusBody(t, events.TableStatus{TableID: "t1", Status: "available"}))
	require.Error(t, err)
	bcast.AssertNotCalled(t, "Broadcast", mock.Anything)
}

func TestHandleBroadcastFailureStillSettles(t *testing.T) {
	ledger := &mockLedger{}
	cache := &mockInvalidator{}
	bcast := &mockBroadcaster{}
	p := NewProjector(ledger, cache, bcast, nil)

	tbl := &domain.Table{ID: "t1", ClubID: "c1"}
	ledger.On("UpdateStatus", "t1", domain.TableOccupied).Return(tbl, nil)
	cache.On("Invalidate", "c1").Return(nil)
	bcast.On("Broadcast", tbl).Return(errors.New("channel gone"))

	err := p.Handle(context.Background(), statusBody(t, events.TableStatus{TableID: "t1", Status: "occupied"}))
	assert.NoError(t, err)
}

func TestHandleDropsUnknownTable(t *testing.T) {
	ledger := &mockLedger{}
	cache := &mockInvalidator{}
	p := NewProjector(ledger, cache, &mockBroadcaster{}, nil)

	ledger.On("UpdateStatus", "ghost", domain.TableAvailable).Return(nil, domain.ErrTableNotFound)

	err := p.Handle(context.Background(), statusBody(t, events.TableStatus{TableID: "ghost", Status: "available"}))
	assert.NoError(t, err)
	cache.AssertNotCalled(t, "Invalidate", mock.Anything)
}

func TestHandleDropsMalformed(t *testing.T) {
	ledger := &mockLedger{}
	p := NewProjector(ledger, &mockInvalidator{}, &mockBroadcaster{}, nil)

	assert.NoError(t, p.Handle(context.Background(), []byte("not json")))
	assert.NoError(t, p.Handle(context.Background(), statusBody(t, events.TableStatus{TableID: "", Status: "available"})))
	assert.NoError(t, p.Handle(context.Background(), statusBody(t, events.TableStatus{TableID: "t1", Status: "broken"})))
	ledger.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything)
}

func TestHandleRequeuesOnLedgerError(t *testing.T) {
	ledger := &mockLedger{}
	cache := &mockInvalidator{}
	p := NewProjector(ledger, cache, &mockBroadcaster{}, nil)

	ledger.On("UpdateStatus", "t1", domain.TableAvailable).Return(nil, errors.New("db down"))

	err := p.Handle(context.Background(), statusBody(t, events.TableStatus{TableID: "t1", Status: "available"}))
	require.Error(t, err)
	cache.AssertNotCalled(t, "Invalidate", mock.Anything)
}
