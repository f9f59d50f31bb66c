package domain

import (
	"time" // Timestamps

	"github.com/google/uuid" // UUID generation
	"gorm.io/gorm"           // GORM ORM library
)

// TicketStatus is the redemption state of a ticket
type TicketStatus string

const (
	TicketActive    TicketStatus = "active"    // Valid for entry once its order is paid
	TicketUsed      TicketStatus = "used"      // Checked in
	TicketCancelled TicketStatus = "cancelled" // Order reclaimed
)

// Ticket Model
type Ticket struct {
	ID           string       `gorm:"primaryKey;type:varchar(36)"`           // Primary key (UUID)
	OrderID      string       `gorm:"type:varchar(36);index;not null"`       // Owning order
	TicketTypeID string       `gorm:"type:varchar(36);index;not null"`       // Ticket type
	Code         string       `gorm:"type:varchar(64);uniqueIndex;not null"` // Redemption code
	Status       TicketStatus `gorm:"type:varchar(20);not null"`             // Redemption state
	CheckedInAt  *time.Time   // Entry time
	CreatedAt    time.Time    // Creation time
}

// BeforeCreate assigns a UUID and the default status
func (t *Ticket) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Status == "" {
		t.Status = TicketActive
	}
	return nil
}
