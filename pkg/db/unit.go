package db

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	pkgerrors "github.com/angelmondragon/kardex-pos/pkg/errors"
)

// Unit is an open unit of work. Every stock mutation receives one explicitly so
// nested operations cannot write outside the caller's transaction.
type Unit struct {
	tx *gorm.DB
}

// Tx returns the transaction handle bound to the unit.
func (u *Unit) Tx() *gorm.DB {
	if u == nil {
		return nil
	}
	return u.tx
}

// Require returns the transaction handle or a TRANSACTION_ERROR when no unit is open.
func (u *Unit) Require(op string) (*gorm.DB, error) {
	if u == nil || u.tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeTransaction, op+" requires an open unit of work")
	}
	return u.tx, nil
}

// IsPostgres reports whether the handle talks to postgres.
func IsPostgres(tx *gorm.DB) bool {
	return tx != nil && tx.Dialector != nil && tx.Dialector.Name() == "postgres"
}

// LockForUpdate adds SELECT ... FOR UPDATE on postgres. sqlite serializes
// writers on its own and has no row locks.
func LockForUpdate(tx *gorm.DB) *gorm.DB {
	if IsPostgres(tx) {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}
