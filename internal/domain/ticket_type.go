package domain

import (
	"time" // Timestamps

	"github.com/google/uuid"        // UUID generation
	"github.com/shopspring/decimal" // Money
	"gorm.io/gorm"                  // GORM ORM library
)

// TicketType Model. Every write bumps Version; writers compare it in their WHERE clause.
type TicketType struct {
	ID                string          `gorm:"primaryKey;type:varchar(36)"`     // Primary key (UUID)
	EventID           string          `gorm:"type:varchar(36);index;not null"` // Owning event
	Event             *Event          `json:",omitempty"`                      // Owning event, loaded on demand
	Name              string          `gorm:"not null"`                        // Display name
	UnitPrice         decimal.Decimal `gorm:"type:decimal(18,2);not null"`     // Price per ticket
	TotalQuantity     int             `gorm:"not null"`                        // Units ever offered
	AvailableQuantity int             `gorm:"not null"`                        // Units still for sale
	Version           uint            `gorm:"not null"`                        // Optimistic concurrency token
	CreatedAt         time.Time       // Creation time
	UpdatedAt         time.Time       // Last update time
}

// BeforeCreate assigns a UUID and the initial version
func (t *TicketType) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Version == 0 {
		t.Version = 1
	}
	return nil
}

// Sold returns the number of units currently held by orders
func (t *TicketType) Sold() int {
	return t.TotalQuantity - t.AvailableQuantity
}
