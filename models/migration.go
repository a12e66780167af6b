package models

import (
	"context"

	"bitbucket.org/mmdatafocus/pos_backend/config"
	"gorm.io/gorm"
)

// MigrateTable creates or updates every table and makes sure a primary location exists.
func MigrateTable(db *gorm.DB) error {
	err := db.AutoMigrate(
		&Account{},
		&BankAccount{},
		&CashRegister{},
		&Customer{},
		&ExpenseCategory{},
		&Invoice{}, &InvoiceItem{}, &InvoiceNumberSeries{},
		&Location{},
		&Product{}, &ProductCategory{}, &ProductStock{}, &ProductUnit{},
		&Supplier{},
		&Transaction{},
		&TransferDocument{}, &TransferItem{},
	)
	if err != nil {
		config.LogError(config.GetLogger(), "Migration", "MigrateTable", "auto migrate", nil, err)
		return err
	}
	if _, err := EnsurePrimaryLocation(context.Background(), db); err != nil {
		config.LogError(config.GetLogger(), "Migration", "MigrateTable", "primary location", nil, err)
		return err
	}
	return nil
}
