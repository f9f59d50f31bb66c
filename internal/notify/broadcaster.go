// Package notify delivers best-effort change notifications and order paid events.
package notify

import (
	"context" // Request scoped context

	"github.com/sirupsen/logrus" // Logrus for structured logging
)

// Broadcaster pushes live updates to connected clients. Implementations never fail the caller.
type Broadcaster interface {
	// InventoryChanged announces the new available count of a ticket type
	InventoryChanged(ctx context.Context, eventID, ticketTypeID string, available int)
	// NotifyUser sends a text notice to one user
	NotifyUser(ctx context.Context, userID uint, message string)
}

// LogBroadcaster writes notifications to the log, used when no realtime provider is configured
type LogBroadcaster struct{}

// InventoryChanged logs the new available count
func (LogBroadcaster) InventoryChanged(ctx context.Context, eventID, ticketTypeID string, available int) {
	logrus.WithFields(logrus.Fields{
		"event_id":       eventID,
		"ticket_type_id": ticketTypeID,
		"available":      available,
	}).Info("Inventory changed")
}

// NotifyUser logs the notice
func (LogBroadcaster) NotifyUser(ctx context.Context, userID uint, message string) {
	logrus.WithFields(logrus.Fields{
		"user_id": userID,
		"message": message,
	}).Info("User notification")
}

// Multi fans out to several broadcasters
type Multi []Broadcaster

// InventoryChanged forwards to every broadcaster
func (m Multi) InventoryChanged(ctx context.Context, eventID, ticketTypeID string, available int) {
	for _, b := range m {
		b.InventoryChanged(ctx, eventID, ticketTypeID, available)
	}
}

// NotifyUser forwards to every broadcaster
func (m Multi) NotifyUser(ctx context.Context, userID uint, message string) {
	for _, b := range m {
		b.NotifyUser(ctx, userID, message)
	}
}
