package order

import (
	"context"                       // Request scoped context
	"sort"                          // Deterministic item order
	"ticketflow/internal/domain"    // Importing domain models
	"ticketflow/internal/inventory" // Stock ledger
	"ticketflow/internal/metrics"   // Prometheus collectors
	"ticketflow/internal/utils"     // Order and ticket codes

	"github.com/shopspring/decimal"      // Money
	"github.com/sirupsen/logrus"         // Logrus for structured logging
	"go.opentelemetry.io/otel/attribute" // Span attributes
	"go.opentelemetry.io/otel/codes"     // Span status
	"gorm.io/gorm"                       // GORM ORM library
)

// Item is one line of a reservation request
type Item struct {
	TicketTypeID string `json:"ticket_type_id" validate:"required"` // Ticket type to reserve
	Quantity     int    `json:"quantity" validate:"gte=1"`          // Units, at least one
}

type reserveInput struct {
	Items []Item `validate:"required,min=1,dive"`
}

// Reserve creates a pending order for buyerID and takes its units from stock, all in one
// transaction. A lost race on any stock row aborts everything with ErrConflict; the caller
// restarts the whole operation.
func (e *Engine) Reserve(ctx context.Context, buyerID uint, items []Item) (*domain.Order, error) {
	ctx, span := tracer.Start(ctx, "order.Reserve")
	defer span.End()
	span.SetAttributes(attribute.Int("order.buyer_id", int(buyerID)))

	order, touched, err := e.reserve(ctx, buyerID, items)
	if err != nil {
		metrics.ObserveReservation(err, 0)
		span.RecordError(err)
		span.SetStatus(codes.Error, domain.Kind(err))
		logrus.WithFields(logrus.Fields{
			"buyer_id": buyerID,          // Buyer
			"result":   domain.Kind(err), // Error kind
			"error":    err.Error(),      // Error message
		}).Warn("Reservation rejected")
		return nil, err
	}
	metrics.ObserveReservation(nil, len(order.Tickets))
	span.SetAttributes(attribute.String("order.id", order.ID), attribute.Int("order.tickets", len(order.Tickets)))

	logrus.WithFields(logrus.Fields{
		"order_id": order.ID,                   // Order
		"code":     order.Code,                 // Order code
		"buyer_id": buyerID,                    // Buyer
		"tickets":  len(order.Tickets),         // Ticket count
		"total":    order.TotalAmount.String(), // Total amount
	}).Info("Order reserved")

	for _, tt := range touched {
		e.broadcaster.InventoryChanged(ctx, tt.EventID, tt.ID, tt.AvailableQuantity)
	}
	e.cache.Put(ctx, SummaryOf(order))
	return order, nil
}

func (e *Engine) reserve(ctx context.Context, buyerID uint, items []Item) (*domain.Order, []*domain.TicketType, error) {
	if err := e.validate.Struct(reserveInput{Items: items}); err != nil {
		return nil, nil, domain.NewError(domain.ErrValidation, "%s", err.Error())
	}
	ids, quantities := merge(items)
	now := e.now()

	var order *domain.Order
	var touched []*domain.TicketType
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		stock, err := inventory.Load(tx, ids)
		if err != nil {
			return err
		}
		event, err := singleEvent(stock, ids)
		if err != nil {
			return err
		}
		if event.Status == domain.EventCancelled {
			return domain.NewError(domain.ErrValidation, "event %q is cancelled", event.Name)
		}
		if !event.SaleOpen(now) {
			return domain.NewError(domain.ErrValidation, "ticket sale for %q is not open", event.Name)
		}
		requested := 0
		for _, q := range quantities {
			requested += q
		}
		if err := checkCap(tx, event, buyerID, requested); err != nil {
			return err
		}

		// Every shortfall is reported before the first write.
		for _, id := range ids {
			if tt := stock[id]; tt.AvailableQuantity < quantities[id] {
				return domain.NewError(domain.ErrValidation, "ticket type %q has only %d remaining", tt.Name, tt.AvailableQuantity)
			}
		}

		order = &domain.Order{
			BuyerID:   buyerID,
			Code:      utils.OrderCode(),
			Status:    domain.OrderPending,
			CreatedAt: now,
		}
		total := decimal.Zero
		for _, id := range ids {
			tt := stock[id]
			if err := inventory.Decrement(tx, tt, quantities[id]); err != nil {
				return err
			}
			total = total.Add(tt.UnitPrice.Mul(decimal.NewFromInt(int64(quantities[id]))))
			for i := 0; i < quantities[id]; i++ {
				order.Tickets = append(order.Tickets, domain.Ticket{
					TicketTypeID: tt.ID,
					Code:         utils.ProvisionalTicketCode(),
					Status:       domain.TicketActive,
					CreatedAt:    now,
				})
			}
			touched = append(touched, tt)
		}
		order.TotalAmount = total

		if err := tx.Create(order).Error; err != nil {
			return mapWriteError(err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return order, touched, nil
}

// merge folds repeated ticket types into one line and returns the ids sorted, so concurrent
// reservations touch rows in the same order.
func merge(items []Item) ([]string, map[string]int) {
	quantities := make(map[string]int, len(items))
	for _, it := range items {
		quantities[it.TicketTypeID] += it.Quantity
	}
	ids := make([]string, 0, len(quantities))
	for id := range quantities {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, quantities
}

func singleEvent(stock map[string]*domain.TicketType, ids []string) (*domain.Event, error) {
	first := stock[ids[0]]
	for _, id := range ids[1:] {
		if stock[id].EventID != first.EventID {
			return nil, domain.NewError(domain.ErrValidation, "an order may only contain tickets of one event")
		}
	}
	if first.Event == nil {
		return nil, domain.NewError(domain.ErrNotFound, "event %s", first.EventID)
	}
	return first.Event, nil
}

// checkCap counts the buyer's tickets of non-cancelled orders for the event
func checkCap(tx *gorm.DB, event *domain.Event, buyerID uint, requested int) error {
	if event.MaxTicketsPerUser <= 0 {
		return nil
	}
	var held int64
	err := tx.Model(&domain.Ticket{}).
		Joins("JOIN orders ON orders.id = tickets.order_id").
		Joins("JOIN ticket_types ON ticket_types.id = tickets.ticket_type_id").
		Where("orders.buyer_id = ? AND orders.status <> ? AND ticket_types.event_id = ?", buyerID, domain.OrderCancelled, event.ID).
		Count(&held).Error
	if err != nil {
		return err
	}
	if int(held)+requested > event.MaxTicketsPerUser {
		return domain.NewError(domain.ErrValidation, "at most %d tickets per buyer for %q: %d held, %d requested",
			event.MaxTicketsPerUser, event.Name, held, requested)
	}
	return nil
}
