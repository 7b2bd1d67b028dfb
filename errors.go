package oracle

import (
	"database/sql"
	"database/sql/driver"
	"fmt"
	"io"
	"net"

	"github.com/pkg/errors"
)

var (
	// ErrConnectionLost the transport to the server is gone; a statement
	// that failed this way may be retried after a reconnect
	ErrConnectionLost = errors.New("connection lost")
	// ErrConnectionException the session is alive but its state is unusable
	ErrConnectionException = errors.New("connection exception")
	// ErrStatement malformed SQL, a bind mismatch or any other server error
	ErrStatement = errors.New("statement error")
	// ErrNotFound describe could not resolve a name
	ErrNotFound = errors.New("object not found")
	// ErrArgument invalid configuration or bind value
	ErrArgument = errors.New("invalid argument")
	// ErrLOBStaging a LOB value could not be written after the row
	ErrLOBStaging = errors.New("LOB staging failed")
	// ErrInvalidTransaction commit or rollback without a transaction, or a nested begin
	ErrInvalidTransaction = errors.New("no valid transaction")
)

// Error is a server or transport failure classified into one of the
// sentinel errors above. The backend message is kept as is.
type Error struct {
	Kind    error
	Code    int
	Message string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%v: %s", e.Kind, e.Message)
}

// Is matches the sentinel the error was classified as.
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Err
}

// OraCode returns the ORA-nnnnn number, zero when there is none.
func (e *Error) OraCode() int {
	return e.Code
}

// Codes that mean the session or its transport is gone.
var lostConnectionCodes = map[int]struct{}{
	28:    {}, // your session has been killed
	1012:  {}, // not logged on
	2396:  {}, // exceeded maximum idle time
	3113:  {}, // end-of-file on communication channel
	3114:  {}, // not connected to ORACLE
	3135:  {}, // connection lost contact
	12153: {}, // TNS:not connected
	12537: {}, // TNS:connection closed
	12547: {}, // TNS:lost contact
	12570: {}, // TNS:packet reader failure
	12583: {}, // TNS:no reader
}

// Codes that mean the session survived but its state was discarded.
var sessionStateCodes = map[int]struct{}{
	1001: {}, // invalid cursor
	4061: {}, // existing state of package has been invalidated
	4065: {}, // not executed, altered or dropped stored procedure
	4068: {}, // existing state of packages has been discarded
}

// IsConnectionLost reports whether code or err mean the session is gone.
func IsConnectionLost(code int, err error) bool {
	if _, ok := lostConnectionCodes[code]; ok {
		return true
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// classify converts a backend error into the error taxonomy. Errors that
// are already classified pass through unchanged.
func classify(d Dialect, err error) error {
	if err == nil {
		return nil
	}
	var classified *Error
	if errors.As(err, &classified) {
		return err
	}

	code := d.ErrorCode(err)
	kind := ErrStatement
	if IsConnectionLost(code, err) {
		kind = ErrConnectionLost
	} else if _, ok := sessionStateCodes[code]; ok {
		kind = ErrConnectionException
	}
	return &Error{Kind: kind, Code: code, Message: err.Error(), Err: err}
}
