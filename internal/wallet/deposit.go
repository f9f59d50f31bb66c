package wallet

import (
	"context"                     // Request scoped context
	"errors"                      // Error matching
	"ticketflow/internal/domain"  // Importing domain models
	"ticketflow/internal/metrics" // Prometheus collectors
	"ticketflow/internal/utils"   // Deposit references

	"github.com/shopspring/decimal" // Money
	"github.com/sirupsen/logrus"    // Logrus for structured logging
	"gorm.io/gorm"                  // GORM ORM library
)

// RequestDeposit records a pending top-up of amount under a fresh gateway reference.
// The balance does not move until the gateway confirms that reference.
func (l *Ledger) RequestDeposit(ctx context.Context, userID uint, amount decimal.Decimal) (*domain.Transaction, error) {
	if !amount.IsPositive() {
		return nil, domain.NewError(domain.ErrValidation, "deposit amount must be positive")
	}
	entry := &domain.Transaction{
		Amount:      amount,
		Type:        domain.TxDeposit,
		ReferenceID: utils.DepositReference(),
		Status:      domain.TxPending,
		Description: "Wallet top-up",
	}
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		w, err := l.loadOrCreate(tx, userID)
		if err != nil {
			return err
		}
		entry.WalletID = w.ID
		return tx.Create(entry).Error
	})
	if err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{
		"user_id":      userID,            // Wallet owner
		"amount":       amount.String(),   // Requested amount
		"reference_id": entry.ReferenceID, // Gateway reference
	}).Info("Deposit requested")
	return entry, nil
}

// ConfirmDeposit settles a pending top-up with the gateway's verdict. An approved deposit
// becomes a success entry and credits the wallet; a declined one becomes failed and credits
// nothing. A deposit already settled is returned unchanged, so repeated notifications never
// credit twice.
func (l *Ledger) ConfirmDeposit(ctx context.Context, reference string, approved bool) (*domain.Transaction, error) {
	var entry domain.Transaction
	repeated := false
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("reference_id = ? AND type = ?", reference, domain.TxDeposit).First(&entry).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.NewError(domain.ErrNotFound, "deposit %s", reference)
			}
			return err
		}
		if entry.Status != domain.TxPending {
			repeated = true
			return nil // Already settled
		}

		status := domain.TxFailed
		if approved {
			status = domain.TxSuccess
		}
		res := tx.Model(&domain.Transaction{}).
			Where("id = ? AND status = ?", entry.ID, domain.TxPending).
			Update("status", status)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.NewError(domain.ErrConflict, "deposit %s was settled concurrently", reference)
		}
		if approved {
			var w domain.Wallet
			if err := tx.First(&w, "id = ?", entry.WalletID).Error; err != nil {
				return err
			}
			if err := l.move(tx, &w, Entry{Amount: entry.Amount, Type: domain.TxDeposit}); err != nil {
				return err
			}
		}
		entry.Status = status
		return nil
	})
	if !repeated {
		metrics.ObserveWalletTransaction(domain.TxDeposit, err)
	}
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"reference_id": reference,   // Gateway reference
			"error":        err.Error(), // Error message
		}).Warn("Deposit confirmation rejected")
		return nil, err
	}
	logrus.WithFields(logrus.Fields{
		"reference_id": reference,             // Gateway reference
		"status":       entry.Status,          // Resulting status
		"amount":       entry.Amount.String(), // Deposit amount
		"repeated":     repeated,              // Notification for a settled deposit
	}).Info("Deposit confirmed")
	return &entry, nil
}
