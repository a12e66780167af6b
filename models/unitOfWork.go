package models

import (
	"context"

	"bitbucket.org/mmdatafocus/pos_backend/utils"
	"gorm.io/gorm"
)

// UnitOfWork groups every write of one business operation into a single database transaction.
// Steps are named so a failure can be reported as the step that broke.
type UnitOfWork struct {
	tx          *gorm.DB
	afterCommit []func()
}

// RunUnitOfWork begins a transaction, runs fn and commits. Any error from fn rolls back everything.
// Callbacks registered with AfterCommit only run once the commit succeeded.
func RunUnitOfWork(ctx context.Context, db *gorm.DB, fn func(uow *UnitOfWork) error) (err error) {
	tx := db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return &utils.CommitStepError{Step: "begin", Err: tx.Error}
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	uow := &UnitOfWork{tx: tx}
	if err = fn(uow); err != nil {
		tx.Rollback()
		return err
	}
	if err = tx.Commit().Error; err != nil {
		return &utils.CommitStepError{Step: "commit", Err: err}
	}
	for _, f := range uow.afterCommit {
		f()
	}
	return nil
}

// Tx exposes the transaction for reads that must see the unit's own writes.
func (u *UnitOfWork) Tx() *gorm.DB {
	return u.tx
}

func (u *UnitOfWork) Step(name string, fn func(tx *gorm.DB) error) error {
	if err := fn(u.tx); err != nil {
		return &utils.CommitStepError{Step: name, Err: err}
	}
	return nil
}

func (u *UnitOfWork) AfterCommit(fn func()) {
	u.afterCommit = append(u.afterCommit, fn)
}
