package submission

import (
	"fmt"

	"github.com/baely/txnsync/internal/common/errors"
)

// Kind classifies a submission failure
type Kind int

const (
	KindValidation Kind = iota + 1
	KindAccountNotFound
	KindEncoding
	KindPushMismatch
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAccountNotFound:
		return "account_not_found"
	case KindEncoding:
		return "encoding"
	case KindPushMismatch:
		return "push_mismatch"
	case KindUnavailable:
		return "unavailable"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is the single failure type returned by Coordinator.Submit
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() []error {
	errs := []error{e.sentinel()}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func (e *Error) sentinel() error {
	switch e.Kind {
	case KindAccountNotFound:
		return errors.ErrNotFound
	case KindEncoding:
		return errors.ErrEncoding
	case KindPushMismatch:
		return errors.ErrDeltaMismatch
	case KindUnavailable:
		return errors.ErrUnavailable
	}
	return errors.ErrInvalidInput
}

// KindOf returns the kind of a submission error, or 0
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
