package errors

import (
	"fmt"

	"github.com/leisurelyrcxf/tsoracle/consts"
	"github.com/leisurelyrcxf/tsoracle/proto/oraclepb"
)

type Error struct {
	Code int
	Msg  string
}

func NewError(code int, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

func NewErrorFromPB(x *oraclepb.Error) *Error {
	if x == nil {
		return nil
	}
	return &Error{
		Code: int(x.Code),
		Msg:  x.Msg,
	}
}

func ToPBError(err error) *oraclepb.Error {
	if err == nil {
		return nil
	}
	if ve, ok := Cause(err).(*Error); ok && ve != nil {
		return &oraclepb.Error{
			Code: int32(ve.Code),
			Msg:  ve.Msg,
		}
	}
	return &oraclepb.Error{
		Code: consts.ErrCodeUnknown,
		Msg:  err.Error(),
	}
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%v, err_code:%v", e.Msg, e.Code)
}

// Is reports whether target carries the same code, so that annotated copies
// still match the sentinel values in errors.go.
func (e *Error) Is(target error) bool {
	te, ok := target.(*Error)
	if !ok || e == nil || te == nil {
		return false
	}
	return e.Code == te.Code
}

func GetErrorCode(err error) int {
	if ve, ok := Cause(err).(*Error); ok && ve != nil {
		return ve.Code
	}
	return consts.ErrCodeUnknown
}

func hasCode(err error, code int) bool {
	return err != nil && GetErrorCode(err) == code
}

func IsInvalidRequestErr(err error) bool {
	return hasCode(err, consts.ErrCodeInvalidRequest)
}

func IsServiceInvalidatedErr(err error) bool {
	return hasCode(err, consts.ErrCodeServiceInvalidated)
}

func IsMultipleWritersErr(err error) bool {
	return hasCode(err, consts.ErrCodeMultipleWriters)
}

func IsServiceNotAvailableErr(err error) bool {
	return hasCode(err, consts.ErrCodeServiceNotAvailable)
}

func IsInterruptedErr(err error) bool {
	return hasCode(err, consts.ErrCodeInterrupted)
}

func IsNotSupportedErr(err error) bool {
	return hasCode(err, consts.ErrCodeNotSupported)
}
