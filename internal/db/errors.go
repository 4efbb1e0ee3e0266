package db

import (
	"context"
	"errors"
	"fmt"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Code classifies database failures the way a hosted document store reports them.
type Code string

const (
	CodePermissionDenied   Code = "permission-denied"
	CodeNotFound           Code = "not-found"
	CodeAlreadyExists      Code = "already-exists"
	CodeInvalidArgument    Code = "invalid-argument"
	CodeFailedPrecondition Code = "failed-precondition"
	CodeUnavailable        Code = "unavailable"
	CodeDeadlineExceeded   Code = "deadline-exceeded"
	CodeCancelled          Code = "cancelled"
	CodeUnknown            Code = "unknown"
)

type Error struct {
	Code    Code
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Op == "" {
		return fmt.Sprintf("%s: %s", e.Code, msg)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Code, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(code Code, op, format string, args ...any) *Error {
	return &Error{Code: code, Op: op, Message: fmt.Sprintf(format, args...)}
}

// wrapError attaches a code to a driver or context error.
func wrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	var dbErr *Error
	if errors.As(err, &dbErr) {
		return err
	}
	return &Error{Code: codeFromCause(err), Op: op, Err: err}
}

func codeFromCause(err error) Code {
	switch {
	case errors.Is(err, context.Canceled):
		return CodeCancelled
	case errors.Is(err, context.DeadlineExceeded):
		return CodeDeadlineExceeded
	}

	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return CodeUnavailable
		case sqlite3.SQLITE_CONSTRAINT:
			return CodeAlreadyExists
		}
	}
	return CodeUnknown
}

// CodeOf reports the code carried by err, or "" for a nil error.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var dbErr *Error
	if errors.As(err, &dbErr) {
		return dbErr.Code
	}
	return codeFromCause(err)
}

func IsCode(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}

var ErrRevoked = &Error{Code: CodePermissionDenied, Message: "session has ended"}
