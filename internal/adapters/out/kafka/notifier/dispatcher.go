// Package notifier publishes partner offers and store status changes to Kafka.
// The partner app and the store dashboard consume these topics; delivery to
// devices is their concern.
package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/order"
	"dispatch/internal/core/domain/model/store"

	"github.com/twmb/franz-go/pkg/kgo"
)

const (
	DefaultOffersTopic      = "dispatch.partner-offers"
	DefaultStoreStatusTopic = "dispatch.store-order-status"

	phaseHeader = "notification-phase"
)

type producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// Config names the topics records are produced to.
type Config struct {
	OffersTopic      string
	StoreStatusTopic string
}

// OfferMessage is the value of a partner offer record.
type OfferMessage struct {
	OrderID       string          `json:"orderId"`
	StoreID       string          `json:"storeId"`
	StoreName     string          `json:"storeName"`
	PartnerID     string          `json:"partnerId"`
	Phase         string          `json:"phase"`
	StoreLocation LocationMessage `json:"storeLocation"`
	PaymentMethod string          `json:"paymentMethod"`
	OfferedAt     time.Time       `json:"offeredAt"`
}

type LocationMessage struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// StoreStatusMessage is the value of a store status record.
type StoreStatusMessage struct {
	OrderID    string    `json:"orderId"`
	StoreID    string    `json:"storeId"`
	Status     string    `json:"status"`
	OccurredAt time.Time `json:"occurredAt"`
}

// Dispatcher implements ports.NotificationDispatcher on a Kafka producer.
type Dispatcher struct {
	producer producer
	cfg      Config
	now      func() time.Time
}

func NewDispatcher(p producer, cfg Config, now func() time.Time) (*Dispatcher, error) {
	if p == nil {
		return nil, errors.New("kafka producer required for notification dispatcher")
	}
	if cfg.OffersTopic == "" {
		cfg.OffersTopic = DefaultOffersTopic
	}
	if cfg.StoreStatusTopic == "" {
		cfg.StoreStatusTopic = DefaultStoreStatusTopic
	}
	if now == nil {
		now = time.Now
	}
	return &Dispatcher{producer: p, cfg: cfg, now: now}, nil
}

// NewClient builds the producer client used by the dispatcher.
func NewClient(brokers []string, clientID string) (*kgo.Client, error) {
	if len(brokers) == 0 {
		return nil, errors.New("at least one kafka broker is required")
	}
	return kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ClientID(clientID),
		kgo.ProduceRequestTimeout(10*time.Second),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	)
}

// DispatchOffer produces one record per partner, keyed by partner id so each
// partner's offers stay ordered within a partition.
func (d *Dispatcher) DispatchOffer(
	ctx context.Context,
	aggregate *order.Order,
	origin *store.Store,
	partnerIDs []kernel.UUID,
	phase order.NotificationPhase,
) error {
	if err := errors.Join(aggregate.Validate(), origin.Validate(), phase.Validate()); err != nil {
		return err
	}
	if len(partnerIDs) == 0 {
		return nil
	}

	offeredAt := d.now().UTC()
	records := make([]*kgo.Record, 0, len(partnerIDs))
	for _, partnerID := range partnerIDs {
		value, err := json.Marshal(OfferMessage{
			OrderID:   aggregate.ID().String(),
			StoreID:   origin.ID().String(),
			StoreName: origin.Name(),
			PartnerID: partnerID.String(),
			Phase:     phase.String(),
			StoreLocation: LocationMessage{
				Lat: origin.Location().Lat(),
				Lng: origin.Location().Lng(),
			},
			PaymentMethod: string(aggregate.Payment().Method),
			OfferedAt:     offeredAt,
		})
		if err != nil {
			return err
		}
		records = append(records, &kgo.Record{
			Topic:   d.cfg.OffersTopic,
			Key:     []byte(partnerID.String()),
			Value:   value,
			Headers: []kgo.RecordHeader{{Key: phaseHeader, Value: []byte(phase.String())}},
		})
	}

	if err := d.producer.ProduceSync(ctx, records...).FirstErr(); err != nil {
		return fmt.Errorf("produce %d offers for order %s: %w", len(records), aggregate.ID(), err)
	}
	return nil
}

// NotifyStoreStatusChange produces a status record keyed by store id.
func (d *Dispatcher) NotifyStoreStatusChange(ctx context.Context, orderID, storeID kernel.UUID, status order.Status) error {
	if err := errors.Join(orderID.Validate(), storeID.Validate(), status.Validate()); err != nil {
		return err
	}

	value, err := json.Marshal(StoreStatusMessage{
		OrderID:    orderID.String(),
		StoreID:    storeID.String(),
		Status:     status.String(),
		OccurredAt: d.now().UTC(),
	})
	if err != nil {
		return err
	}

	record := &kgo.Record{
		Topic: d.cfg.StoreStatusTopic,
		Key:   []byte(storeID.String()),
		Value: value,
	}
	if err := d.producer.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce store status for order %s: %w", orderID, err)
	}
	return nil
}
