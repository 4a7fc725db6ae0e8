package loyalty

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront/internal/domain/user"
	"gorm.io/gorm"
)

// Ledger moves points on the user balance and writes history rows
type Ledger struct {
	db     *gorm.DB
	logger *logrus.Logger
	rules  Rules
}

// NewLedger creates a points ledger
func NewLedger(db *gorm.DB, logger *logrus.Logger, rules Rules) *Ledger {
	return &Ledger{
		db:     db,
		logger: logger,
		rules:  rules,
	}
}

// Rules returns the rates the ledger was built with
func (l *Ledger) Rules() Rules {
	return l.rules
}

// Debit spends points inside tx. The decrement is conditional on the
// balance covering it, so concurrent redemptions cannot overdraw.
func (l *Ledger) Debit(tx *gorm.DB, userID uint, points int64, orderID uint) error {
	if points < 0 {
		return ErrInvalidPoints
	}
	if points == 0 {
		return nil
	}
	result := tx.Model(&user.User{}).
		Where("id = ? AND loyalty_points >= ?", userID, points).
		Update("loyalty_points", gorm.Expr("loyalty_points - ?", points))
	if result.Error != nil {
		return fmt.Errorf("failed to debit points: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrInsufficientPoints
	}
	return l.record(tx, userID, &orderID, TxRedeem, -points, "redeemed at checkout")
}

// Credit adds points inside tx, for accrual or refunds
func (l *Ledger) Credit(tx *gorm.DB, userID uint, points int64, orderID uint, kind TxType, reason string) error {
	if points < 0 {
		return ErrInvalidPoints
	}
	if points == 0 {
		return nil
	}
	result := tx.Model(&user.User{}).
		Where("id = ?", userID).
		Update("loyalty_points", gorm.Expr("loyalty_points + ?", points))
	if result.Error != nil {
		return fmt.Errorf("failed to credit points: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		l.logger.WithFields(logrus.Fields{
			"user_id":  userID,
			"order_id": orderID,
			"points":   points,
		}).Warn("Points credit skipped: user no longer exists")
		return nil
	}
	return l.record(tx, userID, &orderID, kind, points, reason)
}

// Balance returns the user's current points
func (l *Ledger) Balance(ctx context.Context, userID uint) (int64, error) {
	return balance(l.db.WithContext(ctx), userID)
}

// History lists the user's points movements, newest first
func (l *Ledger) History(ctx context.Context, userID uint, limit int) ([]PointsTransaction, error) {
	if limit < 1 || limit > 100 {
		limit = 20
	}
	var txs []PointsTransaction
	if err := l.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id DESC").
		Limit(limit).
		Find(&txs).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve points history: %w", err)
	}
	return txs, nil
}

func balance(db *gorm.DB, userID uint) (int64, error) {
	var points []int64
	if err := db.Model(&user.User{}).Where("id = ?", userID).Pluck("loyalty_points", &points).Error; err != nil {
		return 0, fmt.Errorf("failed to read points balance: %w", err)
	}
	if len(points) == 0 {
		return 0, user.ErrNotFound
	}
	return points[0], nil
}

func (l *Ledger) record(tx *gorm.DB, userID uint, orderID *uint, kind TxType, delta int64, reason string) error {
	after, err := balance(tx, userID)
	if err != nil {
		return err
	}
	row := &PointsTransaction{
		UserID:       userID,
		OrderID:      orderID,
		Type:         kind,
		Points:       delta,
		BalanceAfter: after,
		Reason:       reason,
	}
	if err := tx.Create(row).Error; err != nil {
		return fmt.Errorf("failed to record points transaction: %w", err)
	}
	return nil
}
