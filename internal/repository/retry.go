package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

const (
	mysqlErrDuplicateKey = 1062
	mysqlErrDeadlock     = 1213
)

// retryOnConflict runs fn in a transaction and runs it once more when two writers
// collided on the same key. fn must reset any state it captures.
func retryOnConflict(db *gorm.DB, fn func(tx *gorm.DB) error) error {
	err := db.Transaction(fn)
	if isWriteConflict(err) {
		err = db.Transaction(fn)
	}
	return err
}

func isWriteConflict(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == mysqlErrDuplicateKey || me.Number == mysqlErrDeadlock
	}
	return false
}
