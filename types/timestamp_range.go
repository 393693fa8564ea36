package types

import (
	"fmt"

	"github.com/leisurelyrcxf/tsoracle/assert"
)

// TimestampRange is an inclusive block [Lower, Upper] of timestamps.
type TimestampRange struct {
	Lower int64 `json:"lower"`
	Upper int64 `json:"upper"`
}

func NewTimestampRange(lower, upper int64) TimestampRange {
	assert.Must(lower <= upper)
	return TimestampRange{Lower: lower, Upper: upper}
}

func (r TimestampRange) Size() int64 {
	return r.Upper - r.Lower + 1
}

func (r TimestampRange) Contains(ts int64) bool {
	return r.Lower <= ts && ts <= r.Upper
}

// Before reports whether every timestamp of r is smaller than every timestamp of other.
func (r TimestampRange) Before(other TimestampRange) bool {
	return r.Upper < other.Lower
}

func (r TimestampRange) String() string {
	return fmt.Sprintf("[%d, %d]", r.Lower, r.Upper)
}
