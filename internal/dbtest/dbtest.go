// Package dbtest opens migrated in-memory databases for package tests.
package dbtest

import (
	"testing"
	"ticketflow/internal/db"
	"ticketflow/internal/domain"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Open returns a fresh migrated SQLite database private to the test.
// The pool holds one connection so concurrent transactions queue instead of failing with SQLITE_BUSY.
func Open(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared&_busy_timeout=5000"
	gdb, err := gorm.Open(sqlite.Open(dsn), db.GormConfig(true))
	require.NoError(t, err)

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.Migrate(gdb))
	return gdb
}

// EventOption tweaks a seeded event
type EventOption func(*domain.Event)

// WithCap sets the per-user ticket cap
func WithCap(n int) EventOption {
	return func(e *domain.Event) { e.MaxTicketsPerUser = n }
}

// WithSaleWindow sets the sale window
func WithSaleWindow(start time.Time, end *time.Time) EventOption {
	return func(e *domain.Event) {
		e.SaleStart = start
		e.SaleEnd = end
	}
}

// SeedEvent creates an event whose sale opened an hour ago
func SeedEvent(t testing.TB, gdb *gorm.DB, opts ...EventOption) *domain.Event {
	t.Helper()
	ev := &domain.Event{
		Name:      "Concert",
		Slug:      "concert-" + uuid.NewString()[:8],
		Status:    domain.EventPublished,
		SaleStart: time.Now().UTC().Add(-time.Hour),
	}
	for _, opt := range opts {
		opt(ev)
	}
	require.NoError(t, gdb.Create(ev).Error)
	return ev
}

// SeedTicketType creates a stock row with available == total
func SeedTicketType(t testing.TB, gdb *gorm.DB, eventID string, price int64, total int) *domain.TicketType {
	t.Helper()
	tt := &domain.TicketType{
		EventID:           eventID,
		Name:              "GA-" + uuid.NewString()[:4],
		UnitPrice:         decimal.NewFromInt(price),
		TotalQuantity:     total,
		AvailableQuantity: total,
	}
	require.NoError(t, gdb.Create(tt).Error)
	return tt
}

// Reload reads a ticket type back from the database
func Reload(t testing.TB, gdb *gorm.DB, id string) *domain.TicketType {
	t.Helper()
	var tt domain.TicketType
	require.NoError(t, gdb.First(&tt, "id = ?", id).Error)
	return &tt
}

// RaceOnce simulates a concurrent writer: right before the first UPDATE issued against table,
// it bumps the version of every row in that table on the same connection.
func RaceOnce(t testing.TB, gdb *gorm.DB, table string) {
	t.Helper()
	fired := false
	err := gdb.Callback().Update().Before("gorm:update").Register("dbtest:race_"+table, func(db *gorm.DB) {
		if fired || db.Statement.Table != table {
			return
		}
		fired = true
		db.Session(&gorm.Session{NewDB: true}).Exec("UPDATE " + table + " SET version = version + 1")
	})
	require.NoError(t, err)
}
