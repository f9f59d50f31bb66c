package domain

import (
	"time" // Timestamps

	"github.com/google/uuid"        // UUID generation
	"github.com/shopspring/decimal" // Money
	"gorm.io/gorm"                  // GORM ORM library
)

// Wallet Model
type Wallet struct {
	ID        string          `gorm:"primaryKey;type:varchar(36)"` // Primary key (UUID)
	UserID    uint            `gorm:"uniqueIndex;not null"`        // Owner user ID
	Balance   decimal.Decimal `gorm:"type:decimal(18,2);not null"` // Wallet balance, never negative
	Currency  string          `gorm:"type:varchar(3);not null"`    // ISO currency code
	Version   uint            `gorm:"not null"`                    // Optimistic concurrency token
	CreatedAt time.Time       // Creation time
	UpdatedAt time.Time       // Last update time
}

// BeforeCreate assigns a UUID and the initial version
func (w *Wallet) BeforeCreate(tx *gorm.DB) error {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	if w.Version == 0 {
		w.Version = 1
	}
	return nil
}
