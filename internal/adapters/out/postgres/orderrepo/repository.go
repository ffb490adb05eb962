package orderrepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/order"
	"dispatch/internal/pkg/errs"

	"gorm.io/gorm"
)

// GormOrderRepository implements OrderRepository using GORM.
type GormOrderRepository struct {
	db      *gorm.DB
	tracker aggregateTracker
}

// aggregateTracker defines the interface for tracking aggregates.
type aggregateTracker interface {
	TrackAggregate(id kernel.UUID, aggregate any)
}

// NewGormOrderRepository creates a new GORM order repository.
func NewGormOrderRepository(db *gorm.DB, tracker aggregateTracker) *GormOrderRepository {
	return &GormOrderRepository{
		db:      db,
		tracker: tracker,
	}
}

// Add saves a new order to the database.
func (r *GormOrderRepository) Add(ctx context.Context, aggregate *order.Order) error {
	if err := aggregate.Validate(); err != nil {
		return err
	}

	dto := fromDomain(aggregate)
	if err := r.db.WithContext(ctx).Create(&dto).Error; err != nil {
		return err
	}

	r.tracker.TrackAggregate(aggregate.ID(), aggregate)
	return nil
}

// Get retrieves an order by ID.
func (r *GormOrderRepository) Get(ctx context.Context, id kernel.UUID) (*order.Order, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}

	var dto OrderDTO
	if err := r.db.WithContext(ctx).First(&dto, "id = ?", id.Bytes()).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NewObjectNotFoundError("order", id.String())
		}
		return nil, err
	}

	return toDomain(dto)
}

// ApplyAssignmentPatch writes only the patch's non-nil fields, guarded by
//
//	delivery_partner_id IS NULL AND status <> 'cancelled'
//
// plus assignment_phase = 'priority' for the expanded phase, or
// assignment_phase = '' for a first phase.
func (r *GormOrderRepository) ApplyAssignmentPatch(ctx context.Context, id kernel.UUID, patch order.AssignmentPatch) error {
	if err := id.Validate(); err != nil {
		return err
	}
	if patch.Phase == order.PhaseNone {
		return errs.NewValueIsRequiredError("notification phase")
	}
	if err := patch.Phase.Validate(); err != nil {
		return err
	}

	updates := map[string]any{"assignment_phase": patch.Phase.String()}
	if patch.PriorityNotifiedAt != nil {
		updates["priority_notified_at"] = patch.PriorityNotifiedAt.UTC()
	}
	if patch.PriorityPartnerIDs != nil {
		updates["priority_partner_ids"] = toStringArray(patch.PriorityPartnerIDs)
	}
	if patch.ExpandedNotifiedAt != nil {
		updates["expanded_notified_at"] = patch.ExpandedNotifiedAt.UTC()
	}
	if patch.ExpandedPartnerIDs != nil {
		updates["expanded_partner_ids"] = toStringArray(patch.ExpandedPartnerIDs)
	}

	query := r.db.WithContext(ctx).
		Model(&OrderDTO{}).
		Where("id = ?", id.Bytes()).
		Where("delivery_partner_id IS NULL").
		Where("status <> ?", order.StatusCancelled.String()).
		Where("assignment_phase = ?", patch.RequiredCurrentPhase().String())

	result := query.Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return r.staleOrMissing(ctx, id)
	}
	return nil
}

// SavePromotion persists a promoted order while the stored row is still
// scheduled. The confirmed tracking entry is merged so that an existing one
// takes precedence.
func (r *GormOrderRepository) SavePromotion(ctx context.Context, aggregate *order.Order) error {
	if err := aggregate.Validate(); err != nil {
		return err
	}
	if aggregate.Status() != order.StatusConfirmed {
		return errs.NewValueIsInvalidErrorWithCause(
			"status",
			fmt.Errorf("promoted order must be %s, got %s", order.StatusConfirmed, aggregate.Status()),
		)
	}

	dto := fromDomain(aggregate)
	confirmed, ok := dto.Tracking[string(order.StageConfirmed)]
	if !ok {
		return errs.NewValueIsRequiredError("confirmed tracking entry")
	}
	entry, err := json.Marshal(confirmed)
	if err != nil {
		return err
	}

	result := r.db.WithContext(ctx).
		Model(&OrderDTO{}).
		Where("id = ? AND status = ?", dto.ID, order.StatusScheduled.String()).
		Updates(map[string]any{
			"status":                         dto.Status,
			"modification_window_start_at":   dto.PostOrderActions.ModificationWindowStartAt,
			"modification_window_expires_at": dto.PostOrderActions.ModificationWindowExpiresAt,
			"tracking": gorm.Expr(
				"jsonb_build_object(?::text, ?::jsonb) || COALESCE(tracking, '{}'::jsonb)",
				string(order.StageConfirmed), string(entry),
			),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return r.staleOrMissing(ctx, aggregate.ID())
	}

	r.tracker.TrackAggregate(aggregate.ID(), aggregate)
	return nil
}

// FindDueScheduled returns scheduled orders whose slot is at or before now.
func (r *GormOrderRepository) FindDueScheduled(ctx context.Context, now time.Time) ([]*order.Order, error) {
	var dtos []OrderDTO
	err := r.db.WithContext(ctx).
		Where("status = ? AND is_scheduled = ? AND scheduled_for <= ?", order.StatusScheduled.String(), true, now.UTC()).
		Order("scheduled_for").
		Find(&dtos).Error
	if err != nil {
		return nil, err
	}

	orders := make([]*order.Order, 0, len(dtos))
	for _, dto := range dtos {
		o, err := toDomain(dto)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}

	return orders, nil
}

func (r *GormOrderRepository) staleOrMissing(ctx context.Context, id kernel.UUID) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(&OrderDTO{}).Where("id = ?", id.Bytes()).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return errs.NewObjectNotFoundError("order", id.String())
	}
	return order.ErrStaleOrder
}
