package types

import (
	"runtime/debug"
	"strings"

	"github.com/golang/glog"

	testifyassert "github.com/stretchr/testify/assert"
)

type T interface {
	Errorf(format string, args ...interface{})
	Logf(format string, args ...interface{})
	Name() string
}

type myT struct {
	T
}

// Errorf fails loudly when called off the test goroutine, where testing.T
// would otherwise swallow the report after the test returned.
func (t myT) Errorf(format string, args ...interface{}) {
	if isTestGoroutine() {
		t.T.Errorf(format, args...)
		return
	}
	glog.Fatalf(format, args...)
}

func isTestGoroutine() bool {
	return strings.Contains(string(debug.Stack()), "testing.tRunner")
}

func NewAssertion(t T) *testifyassert.Assertions {
	return testifyassert.New(myT{T: t})
}
