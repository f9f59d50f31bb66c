// Package inventory is the stock ledger: per ticket type available/total counters
// guarded by a version column.
package inventory

import (
	"fmt"                        // Error wrapping
	"sort"                       // Deterministic row order
	"ticketflow/internal/domain" // Importing domain models

	"gorm.io/gorm" // GORM ORM library
)

// Load reads the stock rows for ids together with their events and versions.
// Missing ids yield ErrNotFound naming the first absent one.
func Load(tx *gorm.DB, ids []string) (map[string]*domain.TicketType, error) {
	var rows []domain.TicketType
	if err := tx.Preload("Event").Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	byID := make(map[string]*domain.TicketType, len(rows))
	for i := range rows {
		byID[rows[i].ID] = &rows[i]
	}
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	for _, id := range sorted {
		if _, ok := byID[id]; !ok {
			return nil, domain.NewError(domain.ErrNotFound, "ticket type %s", id)
		}
	}
	return byID, nil
}

// Decrement takes qty units from tt, comparing tt.Version with the stored one.
// A mismatch means another writer got there first and yields ErrConflict.
func Decrement(tx *gorm.DB, tt *domain.TicketType, qty int) error {
	if qty > tt.AvailableQuantity {
		return domain.NewError(domain.ErrValidation, "ticket type %q has only %d remaining", tt.Name, tt.AvailableQuantity)
	}
	res := tx.Model(&domain.TicketType{}).
		Where("id = ? AND version = ?", tt.ID, tt.Version).
		Updates(map[string]any{
			"available_quantity": gorm.Expr("available_quantity - ?", qty),
			"version":            gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.NewError(domain.ErrConflict, "ticket type %q was modified concurrently", tt.Name)
	}
	tt.AvailableQuantity -= qty // Mirror the stored row
	tt.Version++
	return nil
}

// Restore gives qty units back to a ticket type and returns the updated row.
// The increment is atomic and bumps the version so in-flight reservations that read the old
// count fail on their compare-and-swap. It never lifts available above total.
func Restore(tx *gorm.DB, ticketTypeID string, qty int) (*domain.TicketType, error) {
	res := tx.Model(&domain.TicketType{}).
		Where("id = ? AND available_quantity + ? <= total_quantity", ticketTypeID, qty).
		Updates(map[string]any{
			"available_quantity": gorm.Expr("available_quantity + ?", qty),
			"version":            gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("restore %d units to ticket type %s: row missing or already at total", qty, ticketTypeID)
	}
	var tt domain.TicketType
	if err := tx.First(&tt, "id = ?", ticketTypeID).Error; err != nil {
		return nil, err
	}
	return &tt, nil
}
