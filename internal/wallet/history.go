package wallet

import (
	"context"                    // Request scoped context
	"ticketflow/internal/domain" // Importing domain models

	"github.com/shopspring/decimal" // Money
	"gorm.io/gorm"                  // GORM ORM library
)

// Page is one page of ledger entries
type Page struct {
	Transactions []domain.Transaction `json:"transactions"` // Entries, newest first
	Page         int                  `json:"page"`         // Current page
	PageSize     int                  `json:"page_size"`    // Page size
	Total        int64                `json:"total"`        // Total number of entries
	TotalPages   int                  `json:"total_pages"`  // Total pages
}

// History returns the ledger entries of a user, newest first
func (l *Ledger) History(ctx context.Context, userID uint, page, pageSize int) (*Page, error) {
	if page < 1 {
		page = 1 // Default page number
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20 // Default page size
	}
	out := &Page{Transactions: []domain.Transaction{}, Page: page, PageSize: pageSize}

	w, err := l.Wallet(ctx, userID)
	if err != nil {
		return nil, err
	}
	if w.ID == "" {
		return out, nil // No wallet, no history
	}

	query := l.db.WithContext(ctx).Model(&domain.Transaction{}).Where("wallet_id = ?", w.ID).Session(&gorm.Session{})
	if err := query.Count(&out.Total).Error; err != nil {
		return nil, err
	}
	offset := (page - 1) * pageSize // Calculate offset for pagination
	if err := query.Order("created_at desc").Offset(offset).Limit(pageSize).Find(&out.Transactions).Error; err != nil {
		return nil, err
	}
	out.TotalPages = (int(out.Total) + pageSize - 1) / pageSize
	return out, nil
}

// Reconcile recomputes a balance from the success entries of the user's wallet.
// It equals the stored balance whenever every write went through Apply.
func (l *Ledger) Reconcile(ctx context.Context, userID uint) (decimal.Decimal, error) {
	w, err := l.Wallet(ctx, userID)
	if err != nil || w.ID == "" {
		return decimal.Zero, err
	}
	var entries []domain.Transaction
	if err := l.db.WithContext(ctx).
		Where("wallet_id = ? AND status = ?", w.ID, domain.TxSuccess).
		Find(&entries).Error; err != nil {
		return decimal.Zero, err
	}
	sum := decimal.Zero
	for _, e := range entries {
		if e.Type.Credit() {
			sum = sum.Add(e.Amount)
		} else {
			sum = sum.Sub(e.Amount)
		}
	}
	return sum, nil
}
