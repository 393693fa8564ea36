package observer

import (
	"github.com/golang/glog"

	"github.com/leisurelyrcxf/tsoracle/types"
)

// TraceLevel is the glog -v level at which per request events are logged.
const TraceLevel = 10

// DebugLogger logs allocation events through glog, useful when tracking down
// a second timestamp service writing to the same bound.
type DebugLogger struct {
	Namespace string
}

func NewDebugLogger(namespace string) *DebugLogger {
	return &DebugLogger{Namespace: namespace}
}

func (l *DebugLogger) ServiceCreated(id string) {
	glog.Infof("[%s] creating persistent timestamp service %s, this should happen once per namespace per leadership term", l.Namespace, id)
}

func (l *DebugLogger) HandedOut(r types.TimestampRange) {
	if glog.V(TraceLevel) {
		glog.Infof("[%s] handing out %d timestamps, taking us to %d", l.Namespace, r.Size(), r.Upper)
	}
}

func (l *DebugLogger) WillStoreUpperLimit(limit int64) {
	if glog.V(TraceLevel) {
		glog.Infof("[%s] storing new upper limit: %d", l.Namespace, limit)
	}
}

func (l *DebugLogger) DidStoreUpperLimit(limit int64) {
	if glog.V(TraceLevel) {
		glog.Infof("[%s] stored, upper limit is now %d", l.Namespace, limit)
	}
}

// AllocationFailed is a no-op, the service logs failures with throttling itself.
func (l *DebugLogger) AllocationFailed(error) {}
