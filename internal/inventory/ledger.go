package inventory

import (
	"context"                    // Request scoped context
	"errors"                     // Error matching
	"ticketflow/internal/domain" // Importing domain models
	"ticketflow/internal/notify" // Change broadcaster
	"time"                       // Sale window

	"github.com/go-playground/validator/v10" // Struct validation
	"github.com/google/uuid"                 // Slug suffix
	"github.com/gosimple/slug"               // URL friendly names
	"github.com/shopspring/decimal"          // Money
	"github.com/sirupsen/logrus"             // Logrus for structured logging
	"gorm.io/gorm"                           // GORM ORM library
)

// Ledger owns events and their stock rows outside the reservation flows
type Ledger struct {
	db          *gorm.DB
	broadcaster notify.Broadcaster
	validate    *validator.Validate
}

// NewLedger creates a stock ledger
func NewLedger(db *gorm.DB, broadcaster notify.Broadcaster) *Ledger {
	return &Ledger{db: db, broadcaster: broadcaster, validate: validator.New()}
}

// NewEvent describes an event to create
type NewEvent struct {
	Name              string     `json:"name" validate:"required,max=200"`
	SaleStart         time.Time  `json:"sale_start" validate:"required"`
	SaleEnd           *time.Time `json:"sale_end"`
	MaxTicketsPerUser int        `json:"max_tickets_per_user" validate:"gte=0"`
}

// NewTicketType describes a stock row to create
type NewTicketType struct {
	Name          string          `json:"name" validate:"required,max=100"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	TotalQuantity int             `json:"total_quantity" validate:"gte=0"`
}

// TicketTypeUpdate is an admin edit; nil fields are left alone
type TicketTypeUpdate struct {
	Name          *string          `json:"name" validate:"omitempty,max=100"`
	UnitPrice     *decimal.Decimal `json:"unit_price"`
	TotalQuantity *int             `json:"total_quantity" validate:"omitempty,gte=0"`
}

// CreateEvent stores a published event with a unique slug
func (l *Ledger) CreateEvent(ctx context.Context, in NewEvent) (*domain.Event, error) {
	if err := l.validate.Struct(in); err != nil {
		return nil, domain.NewError(domain.ErrValidation, "%s", err.Error())
	}
	if in.SaleEnd != nil && in.SaleEnd.Before(in.SaleStart) {
		return nil, domain.NewError(domain.ErrValidation, "sale end precedes sale start")
	}
	ev := &domain.Event{
		Name:              in.Name,
		Slug:              slug.Make(in.Name) + "-" + uuid.NewString()[:8],
		Status:            domain.EventPublished,
		SaleStart:         in.SaleStart.UTC(),
		SaleEnd:           in.SaleEnd,
		MaxTicketsPerUser: in.MaxTicketsPerUser,
	}
	if err := l.db.WithContext(ctx).Create(ev).Error; err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{"event_id": ev.ID, "slug": ev.Slug}).Info("Event created")
	return ev, nil
}

// CancelEvent stops further reservations for an event. Existing orders are untouched and
// cancelling an already cancelled event is a no-op.
func (l *Ledger) CancelEvent(ctx context.Context, eventID string) error {
	var ev domain.Event
	if err := l.db.WithContext(ctx).First(&ev, "id = ?", eventID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.NewError(domain.ErrNotFound, "event %s", eventID)
		}
		return err
	}
	if ev.Status == domain.EventCancelled {
		return nil
	}
	// MySQL reports zero affected rows when a concurrent cancel already wrote the same status.
	if err := l.db.WithContext(ctx).Model(&domain.Event{}).Where("id = ?", ev.ID).Update("status", domain.EventCancelled).Error; err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{"event_id": ev.ID, "slug": ev.Slug}).Info("Event cancelled")
	return nil
}

// AddTicketType creates a stock row with available == total
func (l *Ledger) AddTicketType(ctx context.Context, eventID string, in NewTicketType) (*domain.TicketType, error) {
	if err := l.validate.Struct(in); err != nil {
		return nil, domain.NewError(domain.ErrValidation, "%s", err.Error())
	}
	if in.UnitPrice.IsNegative() {
		return nil, domain.NewError(domain.ErrValidation, "unit price must not be negative")
	}
	var ev domain.Event
	if err := l.db.WithContext(ctx).First(&ev, "id = ?", eventID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewError(domain.ErrNotFound, "event %s", eventID)
		}
		return nil, err
	}
	tt := &domain.TicketType{
		EventID:           ev.ID,
		Name:              in.Name,
		UnitPrice:         in.UnitPrice,
		TotalQuantity:     in.TotalQuantity,
		AvailableQuantity: in.TotalQuantity,
	}
	if err := l.db.WithContext(ctx).Create(tt).Error; err != nil {
		return nil, err
	}
	l.broadcaster.InventoryChanged(ctx, tt.EventID, tt.ID, tt.AvailableQuantity)
	return tt, nil
}

// Get returns one stock row
func (l *Ledger) Get(ctx context.Context, id string) (*domain.TicketType, error) {
	var tt domain.TicketType
	if err := l.db.WithContext(ctx).First(&tt, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewError(domain.ErrNotFound, "ticket type %s", id)
		}
		return nil, err
	}
	return &tt, nil
}

// UpdateTicketType applies an admin edit. Changing the total keeps available = total - sold,
// where sold is what orders hold at read time; a total below sold is rejected.
func (l *Ledger) UpdateTicketType(ctx context.Context, id string, in TicketTypeUpdate) (*domain.TicketType, error) {
	if err := l.validate.Struct(in); err != nil {
		return nil, domain.NewError(domain.ErrValidation, "%s", err.Error())
	}
	if in.UnitPrice != nil && in.UnitPrice.IsNegative() {
		return nil, domain.NewError(domain.ErrValidation, "unit price must not be negative")
	}
	var updated domain.TicketType
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var tt domain.TicketType
		if err := tx.First(&tt, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.NewError(domain.ErrNotFound, "ticket type %s", id)
			}
			return err
		}
		changes := map[string]any{"version": gorm.Expr("version + 1")}
		if in.Name != nil {
			changes["name"] = *in.Name
			tt.Name = *in.Name
		}
		if in.UnitPrice != nil {
			changes["unit_price"] = *in.UnitPrice
			tt.UnitPrice = *in.UnitPrice
		}
		if in.TotalQuantity != nil {
			sold := tt.Sold()
			if *in.TotalQuantity < sold {
				return domain.NewError(domain.ErrValidation, "total %d is below the %d units already sold", *in.TotalQuantity, sold)
			}
			tt.TotalQuantity = *in.TotalQuantity
			tt.AvailableQuantity = *in.TotalQuantity - sold
			changes["total_quantity"] = tt.TotalQuantity
			changes["available_quantity"] = tt.AvailableQuantity
		}
		res := tx.Model(&domain.TicketType{}).Where("id = ? AND version = ?", tt.ID, tt.Version).Updates(changes)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.NewError(domain.ErrConflict, "ticket type %q was modified concurrently", tt.Name)
		}
		tt.Version++
		updated = tt
		return nil
	})
	if err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{
		"ticket_type_id": updated.ID,
		"total":          updated.TotalQuantity,
		"available":      updated.AvailableQuantity,
	}).Info("Ticket type updated")
	l.broadcaster.InventoryChanged(ctx, updated.EventID, updated.ID, updated.AvailableQuantity)
	return &updated, nil
}
