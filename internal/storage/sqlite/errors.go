package sqlite

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"

	"github.com/Togather-Foundation/conflicts/internal/storage"
	moderncsqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

func classifyError(op string, err error) error {
	if err == nil {
		return nil
	}
	kind, retriable := classify(err)
	return storage.Classify(op, kind, retriable, err)
}

func classify(err error) (storage.ErrorKind, bool) {
	var sqliteErr *moderncsqlite.Error
	if errors.As(err, &sqliteErr) {
		// Extended result codes carry the primary code in the low byte.
		switch sqliteErr.Code() & 0xff {
		case sqlite3.SQLITE_CONSTRAINT:
			return storage.KindConstraint, false
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return storage.KindConnection, true
		case sqlite3.SQLITE_CANTOPEN, sqlite3.SQLITE_IOERR, sqlite3.SQLITE_NOTADB:
			return storage.KindConnection, false
		}
		return storage.KindOther, false
	}

	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return storage.KindOther, false
	case errors.Is(err, sql.ErrConnDone), errors.Is(err, driver.ErrBadConn):
		return storage.KindConnection, true
	}
	return storage.KindOther, false
}
