package order

import (
	"context"                     // Request scoped context
	"errors"                      // Error matching
	"fmt"                         // Messages
	"ticketflow/internal/domain"  // Importing domain models
	"ticketflow/internal/metrics" // Prometheus collectors
	"ticketflow/internal/notify"  // Order paid event
	"ticketflow/internal/utils"   // Ticket codes
	"ticketflow/internal/wallet"  // Wallet ledger

	"github.com/sirupsen/logrus"         // Logrus for structured logging
	"go.opentelemetry.io/otel/attribute" // Span attributes
	"go.opentelemetry.io/otel/codes"     // Span status
	"gorm.io/gorm"                       // GORM ORM library
)

// Settle pays a pending order from the caller's wallet and finalizes its ticket codes.
// Settling an order that is already paid succeeds without writing anything, so a repeated
// payment confirmation never charges twice.
func (e *Engine) Settle(ctx context.Context, orderID string, callerID uint) (*domain.Order, error) {
	ctx, span := tracer.Start(ctx, "order.Settle")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", orderID))

	order, fresh, err := e.settle(ctx, orderID, callerID)
	metrics.ObserveSettlement(err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, domain.Kind(err))
		logrus.WithFields(logrus.Fields{
			"order_id":  orderID,          // Order
			"caller_id": callerID,         // Caller
			"result":    domain.Kind(err), // Error kind
			"error":     err.Error(),      // Error message
		}).Warn("Settlement rejected")
		return nil, err
	}
	if !fresh {
		return order, nil // Already paid earlier
	}

	logrus.WithFields(logrus.Fields{
		"order_id": order.ID,                   // Order
		"code":     order.Code,                 // Order code
		"buyer_id": order.BuyerID,              // Buyer
		"amount":   order.TotalAmount.String(), // Debited amount
	}).Info("Order paid")

	if e.bus != nil {
		e.bus.Publish(notify.OrderPaid{OrderID: order.ID, PaidAt: *order.PaidAt})
	}
	e.broadcaster.NotifyUser(ctx, order.BuyerID, fmt.Sprintf("Order %s is paid. Your tickets are ready.", order.Code))
	e.cache.Put(ctx, SummaryOf(order))
	return order, nil
}

// settle reports fresh=false when the order was already paid before this call
func (e *Engine) settle(ctx context.Context, orderID string, callerID uint) (*domain.Order, bool, error) {
	var order domain.Order
	fresh := false
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Tickets").First(&order, "id = ?", orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.NewError(domain.ErrNotFound, "order %s", orderID)
			}
			return err
		}
		if order.BuyerID != callerID {
			return domain.NewError(domain.ErrUnauthorized, "order %s belongs to another buyer", orderID)
		}
		switch order.Status {
		case domain.OrderPaid:
			return nil
		case domain.OrderCancelled:
			return domain.NewError(domain.ErrOrderExpired, "order %s was cancelled and can no longer be paid", order.Code)
		}

		if _, _, err := e.wallets.Apply(tx, callerID, wallet.Entry{
			Amount:      order.TotalAmount,
			Type:        domain.TxPayment,
			ReferenceID: order.Code,
			Description: "Payment for order " + order.Code,
		}); err != nil {
			return err
		}

		paidAt := e.now()
		res := tx.Model(&domain.Order{}).
			Where("id = ? AND status = ?", order.ID, domain.OrderPending).
			Updates(map[string]any{"status": domain.OrderPaid, "paid_at": paidAt})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.NewError(domain.ErrConflict, "order %s changed state concurrently", order.Code)
		}
		order.Status = domain.OrderPaid
		order.PaidAt = &paidAt

		for i := range order.Tickets {
			code := utils.TicketCode()
			if err := tx.Model(&domain.Ticket{}).Where("id = ?", order.Tickets[i].ID).Update("code", code).Error; err != nil {
				return mapWriteError(err)
			}
			order.Tickets[i].Code = code
		}
		fresh = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return &order, fresh, nil
}

// mapWriteError turns a unique violation into ErrConflict; the caller retries the whole operation
func mapWriteError(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domain.NewError(domain.ErrConflict, "%s", err.Error())
	}
	return err
}
