package persistent

import (
	"context"
	"sync"

	"github.com/golang/glog"

	"github.com/leisurelyrcxf/tsoracle/boundstore"
	"github.com/leisurelyrcxf/tsoracle/consts"
	"github.com/leisurelyrcxf/tsoracle/errors"
	"github.com/leisurelyrcxf/tsoracle/oracle"
	"github.com/leisurelyrcxf/tsoracle/oracle/observer"
)

// UpperLimit caches the highest durably reserved timestamp. The cached value
// never exceeds the durable one.
type UpperLimit struct {
	sync.Mutex

	store    boundstore.TimestampBoundStore
	observer oracle.Observer
	cached   int64
}

func NewUpperLimit(ctx context.Context, store boundstore.TimestampBoundStore, o oracle.Observer) (*UpperLimit, error) {
	limit, err := store.GetUpperLimit(ctx)
	if err != nil {
		return nil, errors.Annotatef(err, "load upper limit from %v", store)
	}
	if o == nil {
		o = observer.Nop{}
	}
	return &UpperLimit{store: store, observer: o, cached: limit}, nil
}

func (l *UpperLimit) Get() int64 {
	l.Lock()
	defer l.Unlock()

	return l.cached
}

// IncreaseToAtLeast persists target unless the cached limit already covers it.
// Errors are returned as the store reported them.
func (l *UpperLimit) IncreaseToAtLeast(ctx context.Context, target int64) error {
	l.Lock()
	defer l.Unlock()

	if l.cached >= target {
		return nil
	}

	l.observer.WillStoreUpperLimit(target)
	if err := l.store.StoreUpperLimit(ctx, target); err != nil {
		return err
	}
	if glog.V(consts.DebugLevel) {
		glog.Infof("[UpperLimit][%v] upper limit raised %d -> %d", l.store, l.cached, target)
	}
	l.cached = target
	l.observer.DidStoreUpperLimit(target)
	return nil
}

func (l *UpperLimit) Close() error {
	return l.store.Close()
}
