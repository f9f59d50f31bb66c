package inventory

import (
	"context"
	"regexp"
	"testing"
	"ticketflow/internal/db"
	"ticketflow/internal/dbtest"
	"ticketflow/internal/domain"
	"ticketflow/internal/notify"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type recorder struct {
	inventory map[string]int
}

func (r *recorder) InventoryChanged(ctx context.Context, eventID, ticketTypeID string, available int) {
	if r.inventory == nil {
		r.inventory = map[string]int{}
	}
	r.inventory[ticketTypeID] = available
}

func (r *recorder) NotifyUser(ctx context.Context, userID uint, message string) {}

var _ notify.Broadcaster = (*recorder)(nil)

func TestDecrementBumpsVersion(t *testing.T) {
	gdb := dbtest.Open(t)
	ev := dbtest.SeedEvent(t, gdb)
	tt := dbtest.SeedTicketType(t, gdb, ev.ID, 100, 5)

	require.NoError(t, Decrement(gdb, tt, 3))
	assert.Equal(t, 2, tt.AvailableQuantity)

	stored := dbtest.Reload(t, gdb, tt.ID)
	assert.Equal(t, 2, stored.AvailableQuantity)
	assert.Equal(t, uint(2), stored.Version)
}

func TestDecrementStaleVersionConflicts(t *testing.T) {
	gdb := dbtest.Open(t)
	ev := dbtest.SeedEvent(t, gdb)
	tt := dbtest.SeedTicketType(t, gdb, ev.ID, 100, 5)
	stale := *tt

	require.NoError(t, Decrement(gdb, tt, 1))
	err := Decrement(gdb, &stale, 1)

	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.Equal(t, 4, dbtest.Reload(t, gdb, tt.ID).AvailableQuantity)
}

func TestDecrementShortfall(t *testing.T) {
	gdb := dbtest.Open(t)
	ev := dbtest.SeedEvent(t, gdb)
	tt := dbtest.SeedTicketType(t, gdb, ev.ID, 100, 1)

	err := Decrement(gdb, tt, 2)

	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, 1, dbtest.Reload(t, gdb, tt.ID).AvailableQuantity)
}

func TestDecrementConflictWithPostgresDialect(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()
	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), db.GormConfig(true))
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "ticket_types" SET`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	tt := &domain.TicketType{ID: "tt-1", Name: "VIP", AvailableQuantity: 3, Version: 7}
	err = Decrement(gdb, tt, 1)

	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.Equal(t, 3, tt.AvailableQuantity, "in-memory row untouched on conflict")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadMissingTicketType(t *testing.T) {
	gdb := dbtest.Open(t)
	ev := dbtest.SeedEvent(t, gdb)
	tt := dbtest.SeedTicketType(t, gdb, ev.ID, 100, 5)

	rows, err := Load(gdb, []string{tt.ID})
	require.NoError(t, err)
	require.NotNil(t, rows[tt.ID].Event)
	assert.Equal(t, ev.ID, rows[tt.ID].Event.ID)

	_, err = Load(gdb, []string{tt.ID, "missing"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRestoreNeverExceedsTotal(t *testing.T) {
	gdb := dbtest.Open(t)
	ev := dbtest.SeedEvent(t, gdb)
	tt := dbtest.SeedTicketType(t, gdb, ev.ID, 100, 5)
	require.NoError(t, Decrement(gdb, tt, 2))

	restored, err := Restore(gdb, tt.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, 5, restored.AvailableQuantity)
	assert.Equal(t, uint(3), restored.Version)

	_, err = Restore(gdb, tt.ID, 1)
	assert.Error(t, err)
	assert.Equal(t, 5, dbtest.Reload(t, gdb, tt.ID).AvailableQuantity)
}

func TestUpdateTicketTypeKeepsSoldUnits(t *testing.T) {
	gdb := dbtest.Open(t)
	rec := &recorder{}
	ledger := NewLedger(gdb, rec)
	ev := dbtest.SeedEvent(t, gdb)
	tt := dbtest.SeedTicketType(t, gdb, ev.ID, 100, 10)
	require.NoError(t, Decrement(gdb, tt, 4)) // 4 sold, 6 available

	total := 20
	updated, err := ledger.UpdateTicketType(context.Background(), tt.ID, TicketTypeUpdate{TotalQuantity: &total})
	require.NoError(t, err)
	assert.Equal(t, 20, updated.TotalQuantity)
	assert.Equal(t, 16, updated.AvailableQuantity)
	assert.Equal(t, 16, rec.inventory[tt.ID])

	total = 4
	updated, err = ledger.UpdateTicketType(context.Background(), tt.ID, TicketTypeUpdate{TotalQuantity: &total})
	require.NoError(t, err)
	assert.Equal(t, 0, updated.AvailableQuantity)

	total = 3
	_, err = ledger.UpdateTicketType(context.Background(), tt.ID, TicketTypeUpdate{TotalQuantity: &total})
	assert.ErrorIs(t, err, domain.ErrValidation)

	stored := dbtest.Reload(t, gdb, tt.ID)
	assert.Equal(t, 4, stored.TotalQuantity)
	assert.Equal(t, 0, stored.AvailableQuantity)
}

func TestUpdateTicketTypePriceAndName(t *testing.T) {
	gdb := dbtest.Open(t)
	ledger := NewLedger(gdb, &recorder{})
	ev := dbtest.SeedEvent(t, gdb)
	tt := dbtest.SeedTicketType(t, gdb, ev.ID, 100, 10)

	name := "Early bird"
	price := decimal.NewFromInt(80)
	updated, err := ledger.UpdateTicketType(context.Background(), tt.ID, TicketTypeUpdate{Name: &name, UnitPrice: &price})
	require.NoError(t, err)
	assert.Equal(t, "Early bird", updated.Name)
	assert.Equal(t, 10, updated.AvailableQuantity)

	stored := dbtest.Reload(t, gdb, tt.ID)
	assert.True(t, price.Equal(stored.UnitPrice))

	_, err = ledger.UpdateTicketType(context.Background(), "missing", TicketTypeUpdate{Name: &name})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCreateEventAndTicketType(t *testing.T) {
	gdb := dbtest.Open(t)
	rec := &recorder{}
	ledger := NewLedger(gdb, rec)
	ctx := context.Background()

	ev, err := ledger.CreateEvent(ctx, NewEvent{Name: "Rock Night 2026", SaleStart: time.Now(), MaxTicketsPerUser: 4})
	require.NoError(t, err)
	assert.Regexp(t, `^rock-night-2026-[0-9a-f]{8}$`, ev.Slug)

	tt, err := ledger.AddTicketType(ctx, ev.ID, NewTicketType{Name: "GA", UnitPrice: decimal.NewFromInt(50), TotalQuantity: 100})
	require.NoError(t, err)
	assert.Equal(t, 100, tt.AvailableQuantity)
	assert.Equal(t, 100, rec.inventory[tt.ID])

	_, err = ledger.AddTicketType(ctx, "missing", NewTicketType{Name: "GA", TotalQuantity: 1})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = ledger.CreateEvent(ctx, NewEvent{SaleStart: time.Now()})
	assert.ErrorIs(t, err, domain.ErrValidation)

	require.NoError(t, ledger.CancelEvent(ctx, ev.ID))
	var stored domain.Event
	require.NoError(t, gdb.First(&stored, "id = ?", ev.ID).Error)
	assert.Equal(t, domain.EventCancelled, stored.Status)
}

func TestCancelEventTwiceIsNoop(t *testing.T) {
	gdb := dbtest.Open(t)
	ledger := NewLedger(gdb, &recorder{})
	ctx := context.Background()
	ev := dbtest.SeedEvent(t, gdb)

	require.NoError(t, ledger.CancelEvent(ctx, ev.ID))
	require.NoError(t, ledger.CancelEvent(ctx, ev.ID), "second cancel")

	var stored domain.Event
	require.NoError(t, gdb.First(&stored, "id = ?", ev.ID).Error)
	assert.Equal(t, domain.EventCancelled, stored.Status)

	assert.ErrorIs(t, ledger.CancelEvent(ctx, "missing"), domain.ErrNotFound)
}

// Drivers that count changed rows instead of matched rows report zero for a write that
// changes nothing; that must not read as a missing event.
func TestCancelEventIgnoresZeroAffectedRows(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()
	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), db.GormConfig(true))
	require.NoError(t, err)
	ledger := NewLedger(gdb, &recorder{})

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "events"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "slug", "status"}).AddRow("ev-1", "Gala", "gala-1", "published"))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "events" SET`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	assert.NoError(t, ledger.CancelEvent(context.Background(), "ev-1"))

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "events"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "slug", "status"}).AddRow("ev-1", "Gala", "gala-1", "cancelled"))

	assert.NoError(t, ledger.CancelEvent(context.Background(), "ev-1"), "no write for a cancelled event")
	assert.NoError(t, mock.ExpectationsWereMet())
}
