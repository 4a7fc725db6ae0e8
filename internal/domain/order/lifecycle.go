// internal/domain/order/lifecycle.go
package order

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront/internal/domain/checkout"
	"github.com/your-org/storefront/internal/domain/loyalty"
	"gorm.io/gorm"
)

// UpdateStatusRequest represents an admin status change
type UpdateStatusRequest struct {
	Status OrderStatus `json:"status" binding:"required"`
	Note   string      `json:"note" binding:"max=500"`
}

// UpdateStatus moves an order along its lifecycle. Setting the current
// status again only appends a history note. Cancelling goes through the
// compensating path that returns stock, coupon use and points.
func (s *Service) UpdateStatus(ctx context.Context, id uint, to OrderStatus, note string, actor *uint) (*Order, error) {
	if !to.Valid() {
		return nil, ErrInvalidStatus.Messagef("unknown order status %q", to)
	}

	o, err := s.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if to == OrderStatusCancelled {
		return s.cancel(ctx, o, note, actor)
	}

	previous := o.Status
	if previous != to && !CanTransition(previous, to) {
		return nil, ErrInvalidTransition.Messagef("cannot move order %s from %s to %s", o.OrderNumber, previous, to)
	}

	now := s.now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if previous != to {
			updates := map[string]interface{}{
				"status":     to,
				"updated_at": now,
			}
			switch to {
			case OrderStatusConfirmed:
				updates["confirmed_at"] = now
			case OrderStatusShipped:
				updates["shipped_at"] = now
			case OrderStatusDelivered:
				updates["delivered_at"] = now
				if o.PaymentMethod == checkout.PaymentCOD && o.PaymentStatus == PaymentStatusPending {
					updates["payment_status"] = PaymentStatusPaid
				}
			}

			result := tx.Model(&Order{}).
				Where("id = ? AND status = ?", o.ID, previous).
				Updates(updates)
			if result.Error != nil {
				return fmt.Errorf("failed to update order status: %w", result.Error)
			}
			if result.RowsAffected == 0 {
				return ErrConcurrentUpdate
			}
		}

		if err := s.appendHistory(tx, o.ID, to, statusNote(previous, to, note), actor, now); err != nil {
			return err
		}
		if to == OrderStatusDelivered {
			return s.accrueLoyalty(tx, o)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"order_id":     updated.ID,
		"order_number": updated.OrderNumber,
		"from":         previous,
		"to":           to,
		"actor":        actor,
	}).Info("Order status updated")

	if previous != to {
		s.dispatch("notify_status_changed", updated, func(ctx context.Context) error {
			return s.notifier.OrderStatusChanged(ctx, updated, previous)
		})
		s.publish(updated, EventOrderStatusChanged, previous, note)
	}
	return updated, nil
}

// CancelUserOrder cancels an order on behalf of its owner
func (s *Service) CancelUserOrder(ctx context.Context, userID, orderID uint, reason string) (*Order, error) {
	o, err := s.GetOrderForUser(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	return s.cancel(ctx, o, customerNote(reason), nil)
}

// CancelGuestOrder cancels a guest order after checking its access token
func (s *Service) CancelGuestOrder(ctx context.Context, orderNumber, token, reason string) (*Order, error) {
	o, err := s.GetGuestOrder(ctx, orderNumber, token)
	if err != nil {
		return nil, err
	}
	return s.cancel(ctx, o, customerNote(reason), nil)
}

func customerNote(reason string) string {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return "Cancelled by customer"
	}
	return "Cancelled by customer: " + reason
}

// cancel reverses everything checkout did in one transaction
func (s *Service) cancel(ctx context.Context, o *Order, note string, actor *uint) (*Order, error) {
	if !o.CanBeCancelled() {
		return nil, ErrCannotCancel.Messagef("order %s is %s and can no longer be cancelled", o.OrderNumber, o.Status)
	}

	previous := o.Status
	payment := PaymentStatusCancelled
	if o.PaymentStatus == PaymentStatusPaid {
		payment = PaymentStatusRefunded
	}
	now := s.now()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&Order{}).
			Where("id = ? AND status = ?", o.ID, previous).
			Updates(map[string]interface{}{
				"status":          OrderStatusCancelled,
				"payment_status":  payment,
				"cancelled_at":    now,
				"coupon_redeemed": false,
				"updated_at":      now,
			})
		if result.Error != nil {
			return fmt.Errorf("failed to cancel order: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrConcurrentUpdate
		}

		if err := s.deps.Inventory.Restore(tx, o.ID, o.StockLines()); err != nil {
			return err
		}
		if o.CouponRedeemed {
			if err := s.deps.Coupons.Release(tx, o.CouponCode); err != nil {
				return err
			}
		}
		if o.UserID != nil && o.LoyaltyPointsUsed > 0 {
			if err := s.deps.Ledger.Credit(tx, *o.UserID, o.LoyaltyPointsUsed, o.ID, loyalty.TxRefund, "order "+o.OrderNumber+" cancelled"); err != nil {
				return err
			}
		}
		return s.appendHistory(tx, o.ID, OrderStatusCancelled, statusNote(previous, OrderStatusCancelled, note), actor, now)
	})
	if err != nil {
		return nil, err
	}

	cancelled, err := s.GetOrder(ctx, o.ID)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"order_id":        cancelled.ID,
		"order_number":    cancelled.OrderNumber,
		"from":            previous,
		"points_refunded": o.LoyaltyPointsUsed,
		"coupon_released": o.CouponRedeemed,
		"actor":           actor,
	}).Info("Order cancelled")

	s.dispatch("notify_status_changed", cancelled, func(ctx context.Context) error {
		return s.notifier.OrderStatusChanged(ctx, cancelled, previous)
	})
	s.publish(cancelled, EventOrderCancelled, previous, note)
	return cancelled, nil
}

// accrueLoyalty credits earned points once per order. The flag flip is
// conditional, so a repeated or concurrent delivery credits nothing.
func (s *Service) accrueLoyalty(tx *gorm.DB, o *Order) error {
	if o.UserID == nil || o.LoyaltyPointsEarned <= 0 {
		return nil
	}
	result := tx.Model(&Order{}).
		Where("id = ? AND loyalty_points_applied = ?", o.ID, false).
		Update("loyalty_points_applied", true)
	if result.Error != nil {
		return fmt.Errorf("failed to mark loyalty accrual: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil
	}
	return s.deps.Ledger.Credit(tx, *o.UserID, o.LoyaltyPointsEarned, o.ID, loyalty.TxEarn, "order "+o.OrderNumber+" delivered")
}

func (s *Service) appendHistory(tx *gorm.DB, orderID uint, status OrderStatus, note string, actor *uint, at time.Time) error {
	entry := &OrderStatusHistory{
		OrderID:   orderID,
		Status:    status,
		Note:      note,
		CreatedBy: actor,
		CreatedAt: at,
	}
	if err := tx.Create(entry).Error; err != nil {
		return fmt.Errorf("failed to record status history: %w", err)
	}
	return nil
}

func statusNote(from, to OrderStatus, note string) string {
	note = strings.TrimSpace(note)
	if note != "" {
		return note
	}
	if from == to {
		return fmt.Sprintf("Status reconfirmed as %s", to)
	}
	return fmt.Sprintf("Status changed from %s to %s", from, to)
}
