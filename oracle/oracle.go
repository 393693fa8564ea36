package oracle

import (
	"context"

	"github.com/leisurelyrcxf/tsoracle/types"
)

type TimestampService interface {
	GetFreshTimestamp(ctx context.Context) (int64, error)
	// GetFreshTimestamps returns a contiguous range of at most count timestamps,
	// strictly above every timestamp this service handed out before.
	GetFreshTimestamps(ctx context.Context, count int64) (types.TimestampRange, error)
}

type FastForwarder interface {
	// FastForwardTimestamp guarantees no timestamp at or below minimum is served from now on.
	FastForwardTimestamp(ctx context.Context, minimum int64) error
}

type TimestampAdminService interface {
	FastForwarder
	// InvalidateTimestamps makes every later request fail, irreversibly.
	InvalidateTimestamps(ctx context.Context) error
}

// Observer receives allocation events. Implementations must not block.
type Observer interface {
	ServiceCreated(id string)
	HandedOut(r types.TimestampRange)
	WillStoreUpperLimit(limit int64)
	DidStoreUpperLimit(limit int64)
	AllocationFailed(err error)
}
