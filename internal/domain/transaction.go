package domain

import (
	"github.com/google/uuid"        // UUID generation
	"github.com/shopspring/decimal" // Money
	"gorm.io/gorm"                  // GORM ORM library
)

// TransactionType says which way a ledger entry moves the balance
type TransactionType string

const (
	TxDeposit TransactionType = "deposit" // Credit from an external top-up
	TxPayment TransactionType = "payment" // Debit for an order
	TxRefund  TransactionType = "refund"  // Credit back to the buyer
)

// TransactionStatus of a ledger entry
type TransactionStatus string

const (
	TxPending TransactionStatus = "pending"
	TxSuccess TransactionStatus = "success"
	TxFailed  TransactionStatus = "failed"
)

// Transaction Model. Ledger rows are append-only; only a pending deposit changes status, once.
type Transaction struct {
	ID          string            `gorm:"primaryKey;type:varchar(36)"`     // Primary key (UUID)
	WalletID    string            `gorm:"type:varchar(36);index;not null"` // Owning wallet
	Amount      decimal.Decimal   `gorm:"type:decimal(18,2);not null"`     // Always positive
	Type        TransactionType   `gorm:"type:varchar(20);not null"`       // deposit, payment, refund
	ReferenceID string            `gorm:"type:varchar(64);index"`          // Order code or gateway reference
	Status      TransactionStatus `gorm:"type:varchar(20);not null"`       // pending, success, failed
	Description string            // Free text
	CreatedAt   int64             `gorm:"autoCreateTime:milli"` // Timestamp of creation in milliseconds
}

// BeforeCreate assigns a UUID when none was set
func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

// Credit reports whether the type increases the balance
func (t TransactionType) Credit() bool {
	return t == TxDeposit || t == TxRefund
}

// Valid reports whether t is a known type
func (t TransactionType) Valid() bool {
	return t == TxDeposit || t == TxPayment || t == TxRefund
}
