package order

import (
	"context"                    // Redis calls
	"ticketflow/internal/domain" // Importing domain models
	"ticketflow/internal/utils"  // JSON cache helpers
	"time"                       // TTL

	"github.com/redis/go-redis/v9"  // Redis client
	"github.com/shopspring/decimal" // Money
	"github.com/sirupsen/logrus"    // Logrus for structured logging
)

// Summary is the cached view of an order
type Summary struct {
	ID          string             `json:"id"`           // Order ID
	BuyerID     uint               `json:"buyer_id"`     // Buyer user ID
	Status      domain.OrderStatus `json:"status"`       // Lifecycle state
	TotalAmount decimal.Decimal    `json:"total_amount"` // Sum of ticket prices
}

// SummaryOf builds the cached view of o
func SummaryOf(o *domain.Order) Summary {
	return Summary{ID: o.ID, BuyerID: o.BuyerID, Status: o.Status, TotalAmount: o.TotalAmount}
}

// Cache mirrors order summaries into Redis. It is advisory: every failure is logged and
// swallowed, and a nil *Cache is a valid disabled cache.
type Cache struct {
	rdb redis.Cmdable
	ttl time.Duration
}

// NewCache creates a cache with the given TTL
func NewCache(rdb redis.Cmdable, ttl time.Duration) *Cache {
	return &Cache{rdb: rdb, ttl: ttl}
}

// Key returns the Redis key of an order
func Key(orderID string) string {
	return "Order:" + orderID
}

// Put stores s
func (c *Cache) Put(ctx context.Context, s Summary) {
	if c == nil {
		return
	}
	if err := utils.SetCache(ctx, c.rdb, Key(s.ID), s, c.ttl); err != nil {
		logrus.WithFields(logrus.Fields{"order_id": s.ID, "error": err.Error()}).Warn("Order cache write failed")
	}
}

// Get returns the cached summary, if any
func (c *Cache) Get(ctx context.Context, orderID string) (*Summary, bool) {
	if c == nil {
		return nil, false
	}
	var s Summary
	found, err := utils.GetCache(ctx, c.rdb, Key(orderID), &s)
	if err != nil {
		logrus.WithFields(logrus.Fields{"order_id": orderID, "error": err.Error()}).Warn("Order cache read failed")
		return nil, false
	}
	if !found {
		return nil, false
	}
	return &s, true
}
