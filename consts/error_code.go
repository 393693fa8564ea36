package consts

const (
	ErrCodeNilResponse         = 12
	ErrCodeInvalidConfig       = 13
	ErrCodeCorruptedBound      = 14
	ErrCodeNotSupported        = 111
	ErrCodeInvalidRequest      = 222
	ErrCodeServiceInvalidated  = 301
	ErrCodeMultipleWriters     = 302
	ErrCodeServiceNotAvailable = 303
	ErrCodeAllocationFailed    = 304
	ErrCodeInterrupted         = 305
	ErrCodeServiceClosed       = 306
	ErrCodeStoreClosed         = 307
	ErrCodeUnknown             = 1111
)
