package errors

import (
	"github.com/leisurelyrcxf/tsoracle/consts"
)

var (
	ErrNilResponse = &Error{
		Code: consts.ErrCodeNilResponse,
		Msg:  "response is nil",
	}
	ErrInvalidConfig = &Error{
		Code: consts.ErrCodeInvalidConfig,
		Msg:  "invalid config",
	}
	ErrCorruptedBound = &Error{
		Code: consts.ErrCodeCorruptedBound,
		Msg:  "persisted timestamp bound corrupted",
	}
	ErrNotSupported = &Error{
		Code: consts.ErrCodeNotSupported,
		Msg:  "not supported",
	}
	ErrInvalidRequest = &Error{
		Code: consts.ErrCodeInvalidRequest,
		Msg:  "invalid request",
	}
	ErrServiceInvalidated = &Error{
		Code: consts.ErrCodeServiceInvalidated,
		Msg:  "this timestamp service has been invalidated",
	}
	ErrMultipleWriters = &Error{
		Code: consts.ErrCodeMultipleWriters,
		Msg:  "timestamp bound changed by another writer, multiple timestamp services running",
	}
	ErrServiceNotAvailable = &Error{
		Code: consts.ErrCodeServiceNotAvailable,
		Msg:  "this server is no longer valid because another is running",
	}
	ErrAllocationFailed = &Error{
		Code: consts.ErrCodeAllocationFailed,
		Msg:  "failed to allocate more timestamps",
	}
	ErrInterrupted = &Error{
		Code: consts.ErrCodeInterrupted,
		Msg:  "interrupted while waiting for timestamp allocation",
	}
	ErrServiceClosed = &Error{
		Code: consts.ErrCodeServiceClosed,
		Msg:  "timestamp service closed",
	}
	ErrStoreClosed = &Error{
		Code: consts.ErrCodeStoreClosed,
		Msg:  "timestamp bound store closed",
	}
)
