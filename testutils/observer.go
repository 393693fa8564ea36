package testutils

import (
	"sync"

	"github.com/leisurelyrcxf/tsoracle/types"
)

// RecordingObserver records every event it receives.
type RecordingObserver struct {
	sync.Mutex

	Created   []string
	HandOuts  []types.TimestampRange
	WillStore []int64
	DidStore  []int64
	Failures  []error
}

func (o *RecordingObserver) ServiceCreated(id string) {
	o.Lock()
	defer o.Unlock()
	o.Created = append(o.Created, id)
}

func (o *RecordingObserver) HandedOut(r types.TimestampRange) {
	o.Lock()
	defer o.Unlock()
	o.HandOuts = append(o.HandOuts, r)
}

func (o *RecordingObserver) WillStoreUpperLimit(limit int64) {
	o.Lock()
	defer o.Unlock()
	o.WillStore = append(o.WillStore, limit)
}

func (o *RecordingObserver) DidStoreUpperLimit(limit int64) {
	o.Lock()
	defer o.Unlock()
	o.DidStore = append(o.DidStore, limit)
}

func (o *RecordingObserver) AllocationFailed(err error) {
	o.Lock()
	defer o.Unlock()
	o.Failures = append(o.Failures, err)
}

func (o *RecordingObserver) StoreCounts() (will, did int) {
	o.Lock()
	defer o.Unlock()
	return len(o.WillStore), len(o.DidStore)
}

func (o *RecordingObserver) FailureCount() int {
	o.Lock()
	defer o.Unlock()
	return len(o.Failures)
}
