package postgres

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"

	"github.com/Togather-Foundation/conflicts/internal/storage"
	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE codes outside the connection_exception class that still mean the
// session is gone or could not be started.
var connectionStates = map[string]struct{}{
	"53300": {}, // too_many_connections
	"57P01": {}, // admin_shutdown
	"57P02": {}, // crash_shutdown
	"57P03": {}, // cannot_connect_now
}

func classifyError(op string, err error) error {
	if err == nil {
		return nil
	}
	kind, retriable := classify(err)
	return storage.Classify(op, kind, retriable, err)
}

func classify(err error) (storage.ErrorKind, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case strings.HasPrefix(pgErr.Code, "23"):
			return storage.KindConstraint, false
		case strings.HasPrefix(pgErr.Code, "08"):
			return storage.KindConnection, true
		}
		if _, ok := connectionStates[pgErr.Code]; ok {
			return storage.KindConnection, true
		}
		return storage.KindOther, false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return storage.KindOther, false
	}

	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return storage.KindConnection, true
	}

	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return storage.KindConnection, true
	}
	if pgconn.SafeToRetry(err) {
		return storage.KindConnection, true
	}
	return storage.KindOther, false
}
