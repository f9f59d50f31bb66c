// Package order holds the reservation and settlement engines and the order queries.
package order

import (
	"ticketflow/internal/notify" // Broadcaster and order paid bus
	"ticketflow/internal/wallet" // Wallet ledger
	"time"                       // Clock

	"github.com/go-playground/validator/v10" // Struct validation
	"go.opentelemetry.io/otel"               // Tracer provider
	"gorm.io/gorm"                           // GORM ORM library
)

var tracer = otel.Tracer("ticketflow/order")

// Engine reserves and settles orders. All methods are safe for concurrent use.
type Engine struct {
	db          *gorm.DB
	wallets     *wallet.Ledger
	broadcaster notify.Broadcaster
	bus         *notify.Bus
	cache       *Cache
	validate    *validator.Validate
	now         func() time.Time
}

// Option configures an Engine
type Option func(*Engine)

// WithCache mirrors order summaries into cache
func WithCache(c *Cache) Option {
	return func(e *Engine) { e.cache = c }
}

// WithClock replaces time.Now, for tests
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates an engine. bus may be nil when nobody consumes order paid events.
func NewEngine(db *gorm.DB, wallets *wallet.Ledger, broadcaster notify.Broadcaster, bus *notify.Bus, opts ...Option) *Engine {
	e := &Engine{
		db:          db,
		wallets:     wallets,
		broadcaster: broadcaster,
		bus:         bus,
		validate:    validator.New(),
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}
