package domain

import (
	"time" // Sale window timestamps

	"github.com/google/uuid" // UUID generation
	"gorm.io/gorm"           // GORM ORM library
)

// EventStatus is the lifecycle state of an event
type EventStatus string

const (
	EventPublished EventStatus = "published" // Open for sale inside its window
	EventCancelled EventStatus = "cancelled" // No further reservations
)

// Event Model
type Event struct {
	ID                string       `gorm:"primaryKey;type:varchar(36)"`                 // Primary key (UUID)
	Name              string       `gorm:"not null"`                                    // Display name
	Slug              string       `gorm:"type:varchar(191);uniqueIndex"`               // URL friendly name
	Status            EventStatus  `gorm:"type:varchar(20);not null;default:published"` // Lifecycle state
	SaleStart         time.Time    `gorm:"not null"`                                    // Ticket sale opens
	SaleEnd           *time.Time   // Ticket sale closes, nil means open ended
	MaxTicketsPerUser int          `gorm:"not null;default:0"`           // Per-buyer cap, 0 means unlimited
	TicketTypes       []TicketType `gorm:"constraint:OnDelete:CASCADE;"` // Stock rows of this event
	CreatedAt         time.Time    // Creation time
	UpdatedAt         time.Time    // Last update time
}

// BeforeCreate assigns a UUID when none was set
func (e *Event) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Status == "" {
		e.Status = EventPublished
	}
	return nil
}

// SaleOpen reports whether tickets can be sold at t
func (e *Event) SaleOpen(t time.Time) bool {
	if t.Before(e.SaleStart) {
		return false
	}
	return e.SaleEnd == nil || !t.After(*e.SaleEnd)
}
