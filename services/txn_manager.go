package services

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TxnManager provides atomic critical sections over the shared connection.
// Every settlement flow runs inside RunAtomic and acquires its row locks
// before branching on balance or status.
type TxnManager struct {
	db *gorm.DB
}

func NewTxnManager(db *gorm.DB) *TxnManager {
	return &TxnManager{db: db}
}

// RunAtomic executes fn inside a database transaction, committing iff fn
// returns nil; any error rolls back every write and is propagated.
func (m *TxnManager) RunAtomic(fn func(tx *gorm.DB) error) error {
	return m.db.Transaction(fn)
}

// LockForUpdate adds SELECT ... FOR UPDATE to the query so the matched row
// stays exclusively locked until the enclosing transaction ends. It must be
// chained before any read that informs a later write decision. SQLite (used
// by the test suite) has no row locks and serializes writers itself, so the
// clause is skipped there.
func LockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}
