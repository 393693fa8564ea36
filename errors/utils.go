package errors

import (
	"errors"
	"fmt"

	"github.com/leisurelyrcxf/tsoracle/utils/trace"
)

var TraceEnabled = true

type TracedError struct {
	Stack trace.Stack
	Cause error
}

func (e *TracedError) Error() string {
	return e.Cause.Error()
}

func (e *TracedError) Unwrap() error {
	return e.Cause
}

func New(s string) error {
	return errors.New(s)
}

func Is(err, target error) bool {
	return errors.Is(err, target)
}

func Trace(err error) error {
	if err == nil || !TraceEnabled {
		return err
	}
	_, ok := err.(*TracedError)
	if ok {
		return err
	}
	return &TracedError{
		Stack: trace.TraceN(1, 32),
		Cause: err,
	}
}

func Errorf(format string, v ...interface{}) error {
	err := fmt.Errorf(format, v...)
	if !TraceEnabled {
		return err
	}
	return &TracedError{
		Stack: trace.TraceN(1, 32),
		Cause: err,
	}
}

func Stack(err error) trace.Stack {
	if err == nil {
		return nil
	}
	e, ok := err.(*TracedError)
	if ok {
		return e.Stack
	}
	return nil
}

func Cause(err error) error {
	for err != nil {
		e, ok := err.(*TracedError)
		if ok {
			err = e.Cause
		} else {
			return err
		}
	}
	return nil
}

func Annotatef(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	if ve, ok := Cause(err).(*Error); ok && ve != nil {
		return &Error{
			Code: ve.Code,
			Msg:  trimMsg(ve.Msg) + ": " + fmt.Sprintf(format, args...),
		}
	}
	return errors.New(trimMsg(err.Error()) + ": " + fmt.Sprintf(format, args...))
}

func trimMsg(msg string) string {
	if len(msg) > 1024 {
		msg = msg[:1024-256]
	}
	return msg
}
