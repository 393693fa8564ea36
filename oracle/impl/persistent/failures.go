package persistent

import (
	"context"
	"fmt"
	"sync"

	"github.com/golang/glog"

	"github.com/leisurelyrcxf/tsoracle/consts"
	"github.com/leisurelyrcxf/tsoracle/errors"
)

// allocationFailures remembers the last failure to raise the upper limit.
// A multiple writers failure is never forgotten.
type allocationFailures struct {
	sync.Mutex

	desc      string
	last      error
	lastClass string
}

func (f *allocationFailures) splitBrain() error {
	f.Lock()
	defer f.Unlock()

	if f.last != nil && errors.IsMultipleWritersErr(f.last) {
		return errors.Annotatef(errors.ErrServiceNotAvailable, "%s: %v", f.desc, f.last)
	}
	return nil
}

func (f *allocationFailures) lastFailure() error {
	f.Lock()
	defer f.Unlock()

	return f.last
}

func (f *allocationFailures) clear() {
	f.Lock()
	defer f.Unlock()

	if f.last != nil && !errors.IsMultipleWritersErr(f.last) {
		glog.Infof("[%s] allocation recovered after %v", f.desc, f.last)
		f.last, f.lastClass = nil, ""
	}
}

// handle records err and maps it to the error surfaced to callers.
func (f *allocationFailures) handle(ctx context.Context, err error) error {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return errors.Annotatef(errors.ErrInterrupted, "%s: %v", f.desc, err)
	}

	f.Lock()
	defer f.Unlock()

	if errors.IsMultipleWritersErr(err) {
		glog.Errorf("[%s] this timestamp service is no longer the only writer of its bound, it will stop serving: %v", f.desc, err)
		f.last, f.lastClass = err, failureClass(err)
		return errors.Annotatef(errors.ErrServiceNotAvailable, "%s: %v", f.desc, err)
	}

	if class := failureClass(err); class != f.lastClass {
		glog.Errorf("[%s] failed to allocate more timestamps: %v", f.desc, err)
		f.lastClass = class
	} else {
		glog.Infof("[%s] failed to allocate more timestamps again: %v", f.desc, err)
	}
	f.last = err
	return errors.Annotatef(errors.ErrAllocationFailed, "%s: %v", f.desc, err)
}

func failureClass(err error) string {
	if code := errors.GetErrorCode(err); code != consts.ErrCodeUnknown {
		return fmt.Sprintf("code-%d", code)
	}
	return fmt.Sprintf("%T", errors.Cause(err))
}
