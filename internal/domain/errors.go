package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrWriteFailed     = errors.New("write failed")
	ErrReadFailed      = errors.New("read failed")
	ErrMalformedInput  = errors.New("malformed input")
	ErrVersionConflict = errors.New("version conflict")
	ErrCycle           = errors.New("relation cycle")
)

// Error is the typed failure surfaced by the store boundary. Kind is one of
// the sentinels above; Err is the underlying cause, kept for diagnostics.
type Error struct {
	Op   string
	Kind error
	ID   string
	Err  error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.ID != "" {
		b.WriteString(" ")
		b.WriteString(e.ID)
	}
	b.WriteString(": ")
	b.WriteString(e.Kind.Error())
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func NotFound(op, id string) error {
	return &Error{Op: op, Kind: ErrNotFound, ID: id}
}

func Malformed(op string, format string, args ...any) error {
	return &Error{Op: op, Kind: ErrMalformedInput, Err: fmt.Errorf(format, args...)}
}

// CycleError reports a child edge cycle found during tree assembly.
// Path lists the member ids on the descent path, ending with the revisited id.
type CycleError struct {
	MemberID string
	Path     []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("relation cycle at member %s: %s", e.MemberID, strings.Join(e.Path, " -> "))
}

func (e *CycleError) Is(target error) bool {
	return target == ErrCycle
}
