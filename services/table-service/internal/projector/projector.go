package projector

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/Kaiser2484/bida-booking/pkg/events"
	"github.com/Kaiser2484/bida-booking/services/table-service/internal/domain"
)

type Ledger interface {
	UpdateStatus(ctx context.Context, id string, status domain.TableStatus) (*domain.Table, error)
}

type Invalidator interface {
	Invalidate(ctx context.Context, clubID string) error
}

type Broadcaster interface {
	Broadcast(ctx context.Context, v any) error
}

type Deliverer interface {
	Deliveries(ctx context.Context) (<-chan amqp.Delivery, error)
}

// Projector drains table_status_update and keeps the tables ledger and the
// listing cache in step with the booking lifecycle.
type Projector struct {
	ledger Ledger
	cache  Invalidator
	bcast  Broadcaster
	cons   Deliverer
}

func NewProjector(ledger Ledger, cache Invalidator, bcast Broadcaster, cons Deliverer) *Projector {
	return &Projector{ledger: ledger, cache: cache, bcast: bcast, cons: cons}
}

func (p *Projector) Run(ctx context.Context) error {
	deliveries, err := p.cons.Deliveries(ctx)
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("delivery channel closed")
			}
			if err := p.Handle(ctx, d.Body); err != nil {
				log.Printf("[table] projection failed, requeueing: %v", err)
				_ = d.Nack(false, true)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// Handle applies one status event. A nil return means the message is settled:
// either projected or dropped as malformed. Cache invalidation must succeed
// before the message is acked, otherwise stale listings outlive the TTL on a
// crash between write and invalidate.
func (p *Projector) Handle(ctx context.Context, body []byte) error {
	var ev events.TableStatus
	if err := json.Unmarshal(body, &ev); err != nil {
		log.Printf("[table] dropping malformed status event: %v", err)
		return nil
	}
	status := domain.TableStatus(ev.Status)
	if ev.TableID == "" || !status.Valid() {
		log.Printf("[table] dropping status event tableId=%q status=%q", ev.TableID, ev.Status)
		return nil
	}

	tbl, err := p.ledger.UpdateStatus(ctx, ev.TableID, status)
	if errors.Is(err, domain.ErrTableNotFound) {
		log.Printf("[table] dropping status event for unknown table %s", ev.TableID)
		return nil
	}
	if err != nil {
		return err
	}

	if err := p.cache.Invalidate(ctx, tbl.ClubID); err != nil {
		return err
	}

	if err := p.bcast.Broadcast(ctx, tbl); err != nil {
		// Live push is best-effort; clients reconcile from the listing API.
		log.Printf("[table] broadcast failed for table %s: %v", tbl.ID, err)
	}
	return nil
}
