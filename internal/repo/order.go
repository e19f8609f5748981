package repo

import (
	"context"
	"fmt"

	"gorm.io/gorm/clause"

	"github.com/wingx/dashboard/internal/models"
)

// ListPending is the live feed query: pending orders, newest first.
func (r *GormRepo) ListPending(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	if err := r.DB.WithContext(ctx).
		Where("status = ?", models.StatusPendingVerification).
		Order("created_at DESC").
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *GormRepo) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// InsertOrder stores an order coming from the storefront. Replays of an
// already stored order are ignored.
func (r *GormRepo) InsertOrder(ctx context.Context, order *models.Order) (bool, error) {
	res := r.DB.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(order)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *GormRepo) MarkPaid(ctx context.Context, id string) (*models.Order, error) {
	now := r.DB.NowFunc()
	return r.transition(ctx, id, models.StatusPaid, map[string]any{
		"verified_at": now,
		"updated_at":  now,
	})
}

func (r *GormRepo) MarkRejected(ctx context.Context, id, reason string) (*models.Order, error) {
	return r.transition(ctx, id, models.StatusRejected, map[string]any{
		"rejection_reason": reason,
		"updated_at":       r.DB.NowFunc(),
	})
}

// transition applies the whole field set in one conditional UPDATE so an
// order that already left pending_verification is never touched.
func (r *GormRepo) transition(ctx context.Context, id string, to models.OrderStatus, fields map[string]any) (*models.Order, error) {
	if !models.CanTransition(models.StatusPendingVerification, to) {
		return nil, fmt.Errorf("transition to %s: %w", to, ErrNotPending)
	}
	fields["status"] = to

	res := r.DB.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", id, models.StatusPendingVerification).
		Updates(fields)
	if res.Error != nil {
		return nil, res.Error
	}

	if res.RowsAffected == 0 {
		current, err := r.GetOrder(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("order %s is %s: %w", id, current.Status, ErrNotPending)
	}

	return r.GetOrder(ctx, id)
}
