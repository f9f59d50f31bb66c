package domain

import (
	"time" // Timestamps

	"github.com/google/uuid"        // UUID generation
	"github.com/shopspring/decimal" // Money
	"gorm.io/gorm"                  // GORM ORM library
)

// OrderStatus moves pending -> paid or pending -> cancelled and never back
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"   // Reserved, awaiting payment
	OrderPaid      OrderStatus = "paid"      // Settled
	OrderCancelled OrderStatus = "cancelled" // Reclaimed
)

// Order Model
type Order struct {
	ID          string          `gorm:"primaryKey;type:varchar(36)"`           // Primary key (UUID)
	BuyerID     uint            `gorm:"index;not null"`                        // Buyer user ID
	Code        string          `gorm:"type:varchar(16);uniqueIndex;not null"` // Human readable order code
	TotalAmount decimal.Decimal `gorm:"type:decimal(18,2);not null"`           // Sum of ticket prices
	Status      OrderStatus     `gorm:"type:varchar(20);index;not null"`       // Lifecycle state
	Tickets     []Ticket        `gorm:"constraint:OnDelete:CASCADE;"`          // Tickets of this order
	CreatedAt   time.Time       `gorm:"index"`                                 // Reservation time
	UpdatedAt   time.Time       // Last update time
	PaidAt      *time.Time      // Settlement time
}

// BeforeCreate assigns a UUID when none was set
func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	return nil
}
