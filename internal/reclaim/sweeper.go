// Package reclaim cancels pending orders that outlived their hold window and returns their
// units to stock.
package reclaim

import (
	"context"                       // Sweep deadline
	"fmt"                           // Messages
	"sort"                          // Deterministic restore order
	"ticketflow/internal/domain"    // Importing domain models
	"ticketflow/internal/inventory" // Stock ledger
	"ticketflow/internal/metrics"   // Prometheus collectors
	"ticketflow/internal/notify"    // Broadcaster
	"ticketflow/internal/order"     // Order cache
	"time"                          // Hold window and schedule

	"github.com/go-co-op/gocron/v2" // Job scheduler
	"github.com/sirupsen/logrus"    // Logrus for structured logging
	"gorm.io/gorm"                  // GORM ORM library
)

// Config holds the sweeper schedule
type Config struct {
	HoldWindow time.Duration // Age after which a pending order is reclaimed
	Interval   time.Duration // Time between sweeps
	BatchSize  int           // Orders per sweep
}

// Sweeper periodically reclaims stale pending orders
type Sweeper struct {
	db          *gorm.DB
	broadcaster notify.Broadcaster
	cache       *order.Cache
	cfg         Config
	now         func() time.Time
	scheduler   gocron.Scheduler
}

// NewSweeper creates a sweeper. cache may be nil.
func NewSweeper(db *gorm.DB, broadcaster notify.Broadcaster, cache *order.Cache, cfg Config) *Sweeper {
	if cfg.HoldWindow <= 0 {
		cfg.HoldWindow = 10 * time.Minute
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	return &Sweeper{
		db:          db,
		broadcaster: broadcaster,
		cache:       cache,
		cfg:         cfg,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Start schedules the sweep. A run that overlaps the next tick delays it instead of running twice.
func (s *Sweeper) Start() error {
	sched, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}
	_, err = sched.NewJob(
		gocron.DurationJob(s.cfg.Interval),
		gocron.NewTask(s.run),
		gocron.WithName("reclaim-expired-orders"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("schedule reclaim job: %w", err)
	}
	sched.Start()
	s.scheduler = sched
	logrus.WithFields(logrus.Fields{
		"interval":    s.cfg.Interval.String(),   // Sweep period
		"hold_window": s.cfg.HoldWindow.String(), // Pending lifetime
	}).Info("Reclaim sweeper started")
	return nil
}

// Stop waits for a running sweep and stops the schedule
func (s *Sweeper) Stop() error {
	if s.scheduler == nil {
		return nil
	}
	return s.scheduler.Shutdown()
}

func (s *Sweeper) run() {
	defer func() {
		if r := recover(); r != nil {
			logrus.WithField("panic", r).Error("Reclaim sweep panicked")
		}
	}()
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Interval)
	defer cancel()

	started := time.Now()
	n, err := s.Sweep(ctx)
	metrics.ObserveSweep(time.Since(started).Seconds())
	if err != nil {
		logrus.WithField("error", err.Error()).Error("Reclaim sweep failed")
		return
	}
	if n > 0 {
		logrus.WithField("orders", n).Info("Reclaim sweep finished")
	}
}

// Sweep cancels up to one batch of pending orders created before now minus the hold window and
// returns how many it cancelled. Each order is reclaimed in its own transaction; an order that
// got paid or cancelled meanwhile is skipped. Orders are picked least recently attempted first,
// so an order that keeps failing moves behind the rest of the backlog.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.cfg.HoldWindow)
	var ids []string
	err := s.db.WithContext(ctx).Model(&domain.Order{}).
		Where("status = ? AND created_at < ?", domain.OrderPending, cutoff).
		Order("updated_at asc, created_at asc").
		Limit(s.cfg.BatchSize).
		Pluck("id", &ids).Error
	if err != nil {
		return 0, fmt.Errorf("select expired orders: %w", err)
	}

	reclaimed := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			return reclaimed, ctx.Err()
		}
		o, restored, err := s.reclaim(ctx, id)
		metrics.ObserveReclaim(err)
		if err != nil {
			logrus.WithFields(logrus.Fields{"order_id": id, "error": err.Error()}).Warn("Order reclaim failed")
			s.deferRetry(ctx, id)
			continue
		}
		if o == nil {
			continue // Settled or cancelled meanwhile
		}
		reclaimed++
		logrus.WithFields(logrus.Fields{
			"order_id": o.ID,           // Order
			"code":     o.Code,         // Order code
			"buyer_id": o.BuyerID,      // Buyer
			"tickets":  len(o.Tickets), // Units returned
		}).Info("Order reclaimed")

		for _, tt := range restored {
			s.broadcaster.InventoryChanged(ctx, tt.EventID, tt.ID, tt.AvailableQuantity)
		}
		s.broadcaster.NotifyUser(ctx, o.BuyerID, fmt.Sprintf("Order %s expired before payment and was cancelled.", o.Code))
		s.cache.Put(ctx, order.SummaryOf(o))
	}
	return reclaimed, nil
}

// deferRetry stamps a failed order so the next selection tries it after the others
func (s *Sweeper) deferRetry(ctx context.Context, orderID string) {
	err := s.db.WithContext(ctx).Model(&domain.Order{}).
		Where("id = ? AND status = ?", orderID, domain.OrderPending).
		Update("updated_at", s.now()).Error
	if err != nil {
		logrus.WithFields(logrus.Fields{"order_id": orderID, "error": err.Error()}).Error("Failed to defer order reclaim")
	}
}

// reclaim returns a nil order when o is no longer pending
func (s *Sweeper) reclaim(ctx context.Context, orderID string) (*domain.Order, []*domain.TicketType, error) {
	var o domain.Order
	var restored []*domain.TicketType
	cancelled := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.Order{}).
			Where("id = ? AND status = ?", orderID, domain.OrderPending).
			Update("status", domain.OrderCancelled)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		if err := tx.Preload("Tickets").First(&o, "id = ?", orderID).Error; err != nil {
			return err
		}
		if err := tx.Model(&domain.Ticket{}).
			Where("order_id = ?", orderID).
			Update("status", domain.TicketCancelled).Error; err != nil {
			return err
		}

		counts := map[string]int{}
		for _, t := range o.Tickets {
			counts[t.TicketTypeID]++
		}
		ids := make([]string, 0, len(counts))
		for id := range counts {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			tt, err := inventory.Restore(tx, id, counts[id])
			if err != nil {
				return err
			}
			restored = append(restored, tt)
		}
		cancelled = true
		return nil
	})
	if err != nil || !cancelled {
		return nil, nil, err
	}
	for i := range o.Tickets {
		o.Tickets[i].Status = domain.TicketCancelled
	}
	return &o, restored, nil
}
