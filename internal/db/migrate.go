package db

import (
	"ticketflow/internal/domain" // Importing domain models

	"github.com/sirupsen/logrus" // Logrus for structured logging
	"gorm.io/gorm"               // GORM ORM library
)

// Models lists every table owned by the service, parents first
func Models() []any {
	return []any{
		&domain.User{},
		&domain.Event{},
		&domain.TicketType{},
		&domain.Order{},
		&domain.Ticket{},
		&domain.Wallet{},
		&domain.Transaction{},
	}
}

// Migrate performs automatic migration for the database schema
func Migrate(gdb *gorm.DB) error {
	// AutoMigrate will create tables, missing foreign keys, constraints, columns and indexes
	if err := gdb.AutoMigrate(Models()...); err != nil {
		return err
	}
	logrus.Info("Migration completed.") // Log successful migration
	return nil
}
