package order

import (
	"context"                    // Request scoped context
	"errors"                     // Error matching
	"ticketflow/internal/domain" // Importing domain models
	"ticketflow/internal/utils"  // Ticket codes
	"time"                       // Check-in time

	"github.com/sirupsen/logrus" // Logrus for structured logging
	"gorm.io/gorm"               // GORM ORM library
)

// Get returns an order with its tickets. Only the buyer may read it.
func (e *Engine) Get(ctx context.Context, orderID string, callerID uint) (*domain.Order, error) {
	var order domain.Order
	if err := e.db.WithContext(ctx).Preload("Tickets").First(&order, "id = ?", orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewError(domain.ErrNotFound, "order %s", orderID)
		}
		return nil, err
	}
	if order.BuyerID != callerID {
		return nil, domain.NewError(domain.ErrUnauthorized, "order %s belongs to another buyer", orderID)
	}
	return &order, nil
}

// Summary returns the status view of an order, from the cache when possible
func (e *Engine) Summary(ctx context.Context, orderID string, callerID uint) (*Summary, error) {
	if s, ok := e.cache.Get(ctx, orderID); ok {
		if s.BuyerID != callerID {
			return nil, domain.NewError(domain.ErrUnauthorized, "order %s belongs to another buyer", orderID)
		}
		return s, nil
	}
	order, err := e.Get(ctx, orderID, callerID)
	if err != nil {
		return nil, err
	}
	s := SummaryOf(order)
	e.cache.Put(ctx, s)
	return &s, nil
}

// List returns the buyer's orders, newest first
func (e *Engine) List(ctx context.Context, buyerID uint, status domain.OrderStatus) ([]domain.Order, error) {
	query := e.db.WithContext(ctx).Where("buyer_id = ?", buyerID)
	if status != "" {
		query = query.Where("status = ?", status) // Filter by status
	}
	orders := []domain.Order{}
	if err := query.Order("created_at desc").Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// CheckIn redeems a ticket at the venue. Only final codes of paid orders are accepted,
// and a ticket can be used once.
func (e *Engine) CheckIn(ctx context.Context, code string) (*domain.Ticket, error) {
	if code == "" || utils.IsProvisional(code) {
		return nil, domain.NewError(domain.ErrValidation, "ticket code is not redeemable")
	}
	var ticket domain.Ticket
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&ticket, "code = ?", code).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.NewError(domain.ErrNotFound, "ticket %s", code)
			}
			return err
		}
		var order domain.Order
		if err := tx.First(&order, "id = ?", ticket.OrderID).Error; err != nil {
			return err
		}
		if order.Status != domain.OrderPaid {
			return domain.NewError(domain.ErrValidation, "order %s is %s", order.Code, order.Status)
		}
		switch ticket.Status {
		case domain.TicketUsed:
			return domain.NewError(domain.ErrValidation, "ticket %s was already checked in", code)
		case domain.TicketCancelled:
			return domain.NewError(domain.ErrValidation, "ticket %s is cancelled", code)
		}

		checkedIn := e.now()
		res := tx.Model(&domain.Ticket{}).
			Where("id = ? AND status = ?", ticket.ID, domain.TicketActive).
			Updates(map[string]any{"status": domain.TicketUsed, "checked_in_at": checkedIn})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.NewError(domain.ErrConflict, "ticket %s was checked in concurrently", code)
		}
		ticket.Status = domain.TicketUsed
		ticket.CheckedInAt = &checkedIn
		return nil
	})
	if err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{
		"ticket_id": ticket.ID,
		"order_id":  ticket.OrderID,
		"at":        ticket.CheckedInAt.Format(time.RFC3339),
	}).Info("Ticket checked in")
	return &ticket, nil
}
