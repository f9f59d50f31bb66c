// Package wallet is the wallet ledger: a per-user balance plus an append-only
// history of transactions, both written in one unit and guarded by a version column.
package wallet

import (
	"context"                     // Request scoped context
	"errors"                      // Error matching
	"ticketflow/internal/domain"  // Importing domain models
	"ticketflow/internal/metrics" // Prometheus collectors

	"github.com/shopspring/decimal" // Money
	"github.com/sirupsen/logrus"    // Logrus for structured logging
	"gorm.io/gorm"                  // GORM ORM library
)

// Entry is one ledger movement requested by a caller
type Entry struct {
	Amount      decimal.Decimal        // Always positive, or zero for a free order payment
	Type        domain.TransactionType // deposit, payment, refund
	ReferenceID string                 // Order code or gateway reference
	Description string                 // Free text
}

// Ledger applies entries to wallets
type Ledger struct {
	db       *gorm.DB
	currency string
}

// NewLedger creates a wallet ledger. New wallets get currency.
func NewLedger(db *gorm.DB, currency string) *Ledger {
	return &Ledger{db: db, currency: currency}
}

// GetBalance returns the balance of a user, zero when no wallet exists yet
func (l *Ledger) GetBalance(ctx context.Context, userID uint) (decimal.Decimal, error) {
	w, err := l.Wallet(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	return w.Balance, nil
}

// Wallet returns the wallet of a user without creating it.
// A user without a wallet gets an unsaved zero wallet.
func (l *Ledger) Wallet(ctx context.Context, userID uint) (*domain.Wallet, error) {
	var w domain.Wallet
	err := l.db.WithContext(ctx).Where("user_id = ?", userID).First(&w).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &domain.Wallet{UserID: userID, Balance: decimal.Zero, Currency: l.currency}, nil
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// ApplyTransaction applies e to the user's wallet in its own database transaction
func (l *Ledger) ApplyTransaction(ctx context.Context, userID uint, e Entry) (*domain.Transaction, error) {
	var entry *domain.Transaction
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		_, entry, err = l.Apply(tx, userID, e)
		return err
	})
	metrics.ObserveWalletTransaction(e.Type, err)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"user_id": userID,            // Wallet owner
			"type":    e.Type,            // Transaction type
			"amount":  e.Amount.String(), // Amount
			"error":   err.Error(),       // Error message
		}).Warn("Wallet transaction rejected")
		return nil, err
	}
	logrus.WithFields(logrus.Fields{
		"user_id":      userID,            // Wallet owner
		"type":         e.Type,            // Transaction type
		"amount":       e.Amount.String(), // Amount
		"reference_id": e.ReferenceID,     // Order code or gateway reference
	}).Info("Wallet transaction")
	return entry, nil
}

// Apply is ApplyTransaction inside a transaction owned by the caller.
// The wallet is created on first use. A credit whose reference already has a success entry on
// this wallet returns that entry and changes nothing.
func (l *Ledger) Apply(tx *gorm.DB, userID uint, e Entry) (*domain.Wallet, *domain.Transaction, error) {
	if err := validate(e); err != nil {
		return nil, nil, err
	}
	w, err := l.loadOrCreate(tx, userID)
	if err != nil {
		return nil, nil, err
	}

	if e.Type.Credit() && e.ReferenceID != "" {
		var prior domain.Transaction
		err := tx.Where("wallet_id = ? AND type = ? AND reference_id = ? AND status = ?",
			w.ID, e.Type, e.ReferenceID, domain.TxSuccess).First(&prior).Error
		if err == nil {
			return w, &prior, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, err
		}
	}

	if err := l.move(tx, w, e); err != nil {
		return nil, nil, err
	}

	entry := &domain.Transaction{
		WalletID:    w.ID,
		Amount:      e.Amount,
		Type:        e.Type,
		ReferenceID: e.ReferenceID,
		Status:      domain.TxSuccess,
		Description: e.Description,
	}
	if err := tx.Create(entry).Error; err != nil {
		return nil, nil, err
	}
	return w, entry, nil
}

// move changes the balance of w by e under its version, without writing a ledger row
func (l *Ledger) move(tx *gorm.DB, w *domain.Wallet, e Entry) error {
	balance := w.Balance.Add(e.Amount)
	if !e.Type.Credit() {
		balance = w.Balance.Sub(e.Amount)
		if balance.IsNegative() {
			return domain.NewError(domain.ErrInsufficientFunds, "balance %s is below %s", w.Balance.StringFixed(2), e.Amount.StringFixed(2))
		}
	}

	res := tx.Model(&domain.Wallet{}).
		Where("id = ? AND version = ?", w.ID, w.Version).
		Updates(map[string]any{
			"balance": balance,
			"version": gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.NewError(domain.ErrConflict, "wallet of user %d was modified concurrently", w.UserID)
	}
	w.Balance = balance
	w.Version++
	return nil
}

// loadOrCreate reads the wallet row or inserts a zero one.
// Two first transactions racing on the insert surface as ErrConflict through the unique user index.
func (l *Ledger) loadOrCreate(tx *gorm.DB, userID uint) (*domain.Wallet, error) {
	var w domain.Wallet
	err := tx.Where("user_id = ?", userID).First(&w).Error
	if err == nil {
		return &w, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	w = domain.Wallet{UserID: userID, Balance: decimal.Zero, Currency: l.currency}
	if err := tx.Create(&w).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, domain.NewError(domain.ErrConflict, "wallet of user %d created concurrently", userID)
		}
		return nil, err
	}
	return &w, nil
}

func validate(e Entry) error {
	if !e.Type.Valid() {
		return domain.NewError(domain.ErrValidation, "unknown transaction type %q", e.Type)
	}
	if e.Amount.IsNegative() {
		return domain.NewError(domain.ErrValidation, "amount must not be negative")
	}
	if e.Type.Credit() && !e.Amount.IsPositive() {
		return domain.NewError(domain.ErrValidation, "%s amount must be positive", e.Type)
	}
	return nil
}
