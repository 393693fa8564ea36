package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	testifyassert "github.com/stretchr/testify/assert"

	"github.com/leisurelyrcxf/tsoracle/errors"
	"github.com/leisurelyrcxf/tsoracle/types"
)

func TestObserver(t *testing.T) {
	assert := testifyassert.New(t)

	reg := prometheus.NewRegistry()
	m := New(reg)
	o := m.Observer("ns")

	o.ServiceCreated("id")
	o.HandedOut(types.NewTimestampRange(1, 10))
	o.HandedOut(types.NewTimestampRange(11, 15))
	o.WillStoreUpperLimit(1000)
	o.DidStoreUpperLimit(1000)
	o.AllocationFailed(errors.ErrMultipleWriters)

	assert.Equal(float64(1), testutil.ToFloat64(m.servicesCreated.WithLabelValues("ns")))
	assert.Equal(float64(15), testutil.ToFloat64(m.timestampsHandedOut.WithLabelValues("ns")))
	assert.Equal(float64(15), testutil.ToFloat64(m.lastHandedOut.WithLabelValues("ns")))
	assert.Equal(float64(1000), testutil.ToFloat64(m.upperLimit.WithLabelValues("ns")))
	assert.Equal(float64(1), testutil.ToFloat64(m.upperLimitStores.WithLabelValues("ns")))
	assert.Equal(float64(1), testutil.ToFloat64(m.allocationFailures.WithLabelValues("ns", "302")))

	assert.NoError(testutil.GatherAndCompare(reg, strings.NewReader(`
# HELP tsoracle_upper_limit Persisted timestamp upper limit.
# TYPE tsoracle_upper_limit gauge
tsoracle_upper_limit{namespace="ns"} 1000
`), "tsoracle_upper_limit"))
}
