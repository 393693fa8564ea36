package consts

import (
	"math"
	"time"
)

const (
	// AllocationBufferSize is the distance kept between the last handed out
	// timestamp and the persisted upper limit.
	AllocationBufferSize int64 = 1000 * 1000
	// MaxRequestRangeSize caps the number of timestamps handed out per call.
	MaxRequestRangeSize int64 = 10 * 1000
	TopUpInterval             = time.Minute

	// InvalidatedTimestamp is the terminal counter value of an invalidated service.
	InvalidatedTimestamp int64 = math.MinInt64
)

const (
	DefaultAllocatorInitialBackoff = 100 * time.Millisecond
	DefaultBoundStoreTimeout       = 5 * time.Second
)

const (
	DefaultNamespace   = "default"
	DefaultClusterName = "tsoracle"
)

const (
	DefaultOracleServerPort  = 5555
	DefaultMetricsServerPort = 5556
)

const (
	DebugLevel = 101
)
