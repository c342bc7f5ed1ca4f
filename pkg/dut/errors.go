package dut

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
)

// FailureKind is the two-level failure taxonomy every engine error is
// bucketed into.
type FailureKind int

const (
	// StatementFailure: the statement was rejected or errored but the
	// session is still usable. Expected, frequent fuzzing noise.
	StatementFailure FailureKind = iota

	// BrokenSession: the connection or session itself is unusable and
	// must be torn down and recreated before fuzzing can continue.
	BrokenSession
)

func (k FailureKind) String() string {
	switch k {
	case StatementFailure:
		return "statement"
	case BrokenSession:
		return "broken-session"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// EngineError is the classified failure a DUT raises on execution.
type EngineError struct {
	Kind     FailureKind
	Dialect  string
	SQLState string
	Err      error
}

func (e *EngineError) Error() string {
	if e.SQLState != "" {
		return fmt.Sprintf("%s (%s, sqlstate %s): %v", e.Kind, e.Dialect, e.SQLState, e.Err)
	}
	return fmt.Sprintf("%s (%s): %v", e.Kind, e.Dialect, e.Err)
}

func (e *EngineError) Unwrap() error { return e.Err }

// IsBroken reports whether err carries a broken-session classification.
func IsBroken(err error) bool {
	var ee *EngineError
	return errors.As(err, &ee) && ee.Kind == BrokenSession
}

// connectionLost recognizes the transport-level signals that mean the
// session is gone, independent of engine dialect.
func connectionLost(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	msg := err.Error()
	for _, marker := range []string{
		"bad connection",
		"broken pipe",
		"connection refused",
		"connection reset",
		"database is closed",
		"server closed the connection",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
