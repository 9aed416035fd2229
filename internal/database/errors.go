package database

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mattn/go-sqlite3"

	"recall/internal/recall"
)

// storeErr wraps an I/O failure so callers can match recall.ErrStoreUnavailable.
func storeErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, recall.ErrStoreUnavailable, err)
}

// insertErr classifies a failed INSERT into table. A primary key clash becomes
// recall.ErrIdentifierCollision and a users.email clash recall.ErrDuplicateEmail.
func insertErr(table string, err error) error {
	var se sqlite3.Error
	if errors.As(err, &se) && se.Code == sqlite3.ErrConstraint {
		switch se.ExtendedCode {
		case sqlite3.ErrConstraintPrimaryKey, sqlite3.ErrConstraintUnique:
			msg := se.Error()
			if strings.HasSuffix(msg, " "+table+".id") {
				return recall.ErrIdentifierCollision
			}
			if strings.HasSuffix(msg, " users.email") {
				return recall.ErrDuplicateEmail
			}
		}
	}
	return storeErr("inserting into "+table, err)
}

// updateErr is insertErr for UPDATE statements; only the email clash is recoverable.
func updateErr(table string, err error) error {
	var se sqlite3.Error
	if errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique && strings.HasSuffix(se.Error(), " users.email") {
		return recall.ErrDuplicateEmail
	}
	return storeErr("updating "+table, err)
}
