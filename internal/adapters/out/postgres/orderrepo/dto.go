// Package orderrepo provides data transfer objects and mapping functions for order persistence.
// This package implements the repository pattern for the order aggregate, handling
// the conversion between domain entities and database representations.
package orderrepo

import (
	"time"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/order"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// OrderDTO represents the database structure for persisting order aggregates.
// Assignment bookkeeping lives in flat columns so that each phase can be
// written as a partial, conditional UPDATE.
type OrderDTO struct {
	ID                uuid.UUID           `gorm:"type:uuid;primaryKey"`
	StoreID           uuid.UUID           `gorm:"type:uuid;not null;index"`
	Status            string              `gorm:"type:varchar(32);not null;index:idx_orders_due,priority:1"`
	DeliveryPartnerID *uuid.UUID          `gorm:"type:uuid;index"`
	Assignment        AssignmentDTO       `gorm:"embedded"`
	Schedule          ScheduleDTO         `gorm:"embedded"`
	Payment           PaymentDTO          `gorm:"embedded;embeddedPrefix:payment_"`
	Tracking          TrackingDTO         `gorm:"type:jsonb;serializer:json;not null;default:'{}'"`
	PostOrderActions  PostOrderActionsDTO `gorm:"embedded"`
}

// TableName specifies the database table name for order entities.
func (OrderDTO) TableName() string {
	return "orders"
}

// AssignmentDTO holds the notification-phase bookkeeping.
type AssignmentDTO struct {
	Phase              string         `gorm:"column:assignment_phase;type:varchar(16);not null;default:''"`
	PriorityNotifiedAt *time.Time     `gorm:"column:priority_notified_at"`
	PriorityPartnerIDs pq.StringArray `gorm:"column:priority_partner_ids;type:text[]"`
	ExpandedNotifiedAt *time.Time     `gorm:"column:expanded_notified_at"`
	ExpandedPartnerIDs pq.StringArray `gorm:"column:expanded_partner_ids;type:text[]"`
}

// ScheduleDTO is present only for deferred orders.
type ScheduleDTO struct {
	IsScheduled  bool       `gorm:"column:is_scheduled;not null;default:false"`
	ScheduledFor *time.Time `gorm:"column:scheduled_for;index:idx_orders_due,priority:2"`
}

type PaymentDTO struct {
	Method string `gorm:"type:varchar(16);not null"`
	Status string `gorm:"type:varchar(16);not null"`
}

// TrackingDTO maps stage names to entries; stored as a JSONB object.
type TrackingDTO map[string]TrackingEntryDTO

type TrackingEntryDTO struct {
	Status    bool      `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

type PostOrderActionsDTO struct {
	ModificationWindowStartAt   *time.Time `gorm:"column:modification_window_start_at"`
	ModificationWindowExpiresAt *time.Time `gorm:"column:modification_window_expires_at"`
}

// fromDomain converts an order domain aggregate to its database representation.
func fromDomain(aggregate *order.Order) OrderDTO {
	var partnerID *uuid.UUID
	if id := aggregate.DeliveryPartnerID(); id != nil {
		raw := id.Bytes()
		partnerID = &raw
	}

	info := aggregate.Assignment()
	dto := OrderDTO{
		ID:                aggregate.ID().Bytes(),
		StoreID:           aggregate.StoreID().Bytes(),
		Status:            aggregate.Status().String(),
		DeliveryPartnerID: partnerID,
		Assignment: AssignmentDTO{
			Phase:              info.Phase.String(),
			PriorityNotifiedAt: utcPtr(info.PriorityNotifiedAt),
			PriorityPartnerIDs: toStringArray(info.PriorityPartnerIDs),
			ExpandedNotifiedAt: utcPtr(info.ExpandedNotifiedAt),
			ExpandedPartnerIDs: toStringArray(info.ExpandedPartnerIDs),
		},
		Payment: PaymentDTO{
			Method: string(aggregate.Payment().Method),
			Status: string(aggregate.Payment().Status),
		},
		Tracking: TrackingDTO{},
		PostOrderActions: PostOrderActionsDTO{
			ModificationWindowStartAt:   utcPtr(aggregate.PostOrderActions().ModificationWindowStartAt),
			ModificationWindowExpiresAt: utcPtr(aggregate.PostOrderActions().ModificationWindowExpiresAt),
		},
	}

	if sd := aggregate.ScheduledDelivery(); sd != nil {
		scheduledFor := sd.ScheduledFor.UTC()
		dto.Schedule = ScheduleDTO{IsScheduled: sd.IsScheduled, ScheduledFor: &scheduledFor}
	}

	for stage, entry := range aggregate.Tracking() {
		dto.Tracking[string(stage)] = TrackingEntryDTO{Status: entry.Status, Timestamp: entry.Timestamp.UTC()}
	}

	return dto
}

// toDomain converts a database DTO to an order domain aggregate using RestoreOrder.
func toDomain(dto OrderDTO) (*order.Order, error) {
	id, err := kernel.UUIDFromBytes(dto.ID[:])
	if err != nil {
		return nil, err
	}
	storeID, err := kernel.UUIDFromBytes(dto.StoreID[:])
	if err != nil {
		return nil, err
	}

	var partnerID *kernel.UUID
	if dto.DeliveryPartnerID != nil {
		pID, partnerErr := kernel.UUIDFromBytes((*dto.DeliveryPartnerID)[:])
		if partnerErr != nil {
			return nil, partnerErr
		}
		partnerID = &pID
	}

	priorityIDs, err := fromStringArray(dto.Assignment.PriorityPartnerIDs)
	if err != nil {
		return nil, err
	}
	expandedIDs, err := fromStringArray(dto.Assignment.ExpandedPartnerIDs)
	if err != nil {
		return nil, err
	}

	var scheduled *order.ScheduledDelivery
	if dto.Schedule.ScheduledFor != nil {
		scheduled = &order.ScheduledDelivery{
			IsScheduled:  dto.Schedule.IsScheduled,
			ScheduledFor: dto.Schedule.ScheduledFor.UTC(),
		}
	}

	tracking := make(order.Tracking, len(dto.Tracking))
	for stage, entry := range dto.Tracking {
		tracking[order.Stage(stage)] = order.TrackingEntry{Status: entry.Status, Timestamp: entry.Timestamp.UTC()}
	}

	return order.RestoreOrder(order.Snapshot{
		ID:                id,
		StoreID:           storeID,
		Status:            order.Status(dto.Status),
		DeliveryPartnerID: partnerID,
		Assignment: order.AssignmentInfo{
			Phase:              order.NotificationPhase(dto.Assignment.Phase),
			PriorityNotifiedAt: utcPtr(dto.Assignment.PriorityNotifiedAt),
			PriorityPartnerIDs: priorityIDs,
			ExpandedNotifiedAt: utcPtr(dto.Assignment.ExpandedNotifiedAt),
			ExpandedPartnerIDs: expandedIDs,
		},
		ScheduledDelivery: scheduled,
		Payment: order.Payment{
			Method: order.PaymentMethod(dto.Payment.Method),
			Status: order.PaymentStatus(dto.Payment.Status),
		},
		Tracking: tracking,
		PostOrderActions: order.PostOrderActions{
			ModificationWindowStartAt:   utcPtr(dto.PostOrderActions.ModificationWindowStartAt),
			ModificationWindowExpiresAt: utcPtr(dto.PostOrderActions.ModificationWindowExpiresAt),
		},
	})
}

func toStringArray(ids []kernel.UUID) pq.StringArray {
	if len(ids) == 0 {
		return nil
	}
	return pq.StringArray(kernel.UUIDsToStrings(ids))
}

func fromStringArray(values pq.StringArray) ([]kernel.UUID, error) {
	if len(values) == 0 {
		return nil, nil
	}
	return kernel.UUIDsFromStrings(values)
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
