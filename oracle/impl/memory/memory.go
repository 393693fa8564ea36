package memory

import (
	"context"
	"sync/atomic"

	"github.com/golang/glog"

	"github.com/leisurelyrcxf/tsoracle/consts"
	"github.com/leisurelyrcxf/tsoracle/errors"
	"github.com/leisurelyrcxf/tsoracle/oracle"
	"github.com/leisurelyrcxf/tsoracle/types"
	"github.com/leisurelyrcxf/tsoracle/utils"
)

// Service hands out timestamps from an in-process counter. A negative counter
// means the service was invalidated, which is permanent.
type Service struct {
	counter atomic.Int64
}

var (
	_ oracle.TimestampService      = (*Service)(nil)
	_ oracle.TimestampAdminService = (*Service)(nil)
)

func NewService() *Service {
	return NewServiceStartingAt(0)
}

// NewServiceStartingAt creates a service whose first timestamp is start+1.
func NewServiceStartingAt(start int64) *Service {
	s := &Service{}
	s.counter.Store(start)
	return s
}

func (s *Service) GetFreshTimestamp(ctx context.Context) (int64, error) {
	r, err := s.GetFreshTimestamps(ctx, 1)
	if err != nil {
		return 0, err
	}
	return r.Lower, nil
}

func (s *Service) GetFreshTimestamps(_ context.Context, count int64) (types.TimestampRange, error) {
	if count <= 0 {
		return types.TimestampRange{}, errors.Annotatef(errors.ErrInvalidRequest, "count must be positive, got %d", count)
	}
	for {
		current := s.counter.Load()
		if current < 0 {
			return types.TimestampRange{}, errors.ErrServiceInvalidated
		}
		upper, overflow := utils.AddInt64(current, count)
		if overflow {
			if s.counter.CompareAndSwap(current, consts.InvalidatedTimestamp) {
				glog.Errorf("[MemoryTimestampService] timestamps overflowed after %d, invalidated", current)
				return types.TimestampRange{}, errors.Annotatef(errors.ErrServiceInvalidated, "timestamp overflow")
			}
			continue
		}
		if s.counter.CompareAndSwap(current, upper) {
			return types.NewTimestampRange(current+1, upper), nil
		}
	}
}

func (s *Service) FastForwardTimestamp(_ context.Context, minimum int64) error {
	for {
		current := s.counter.Load()
		if current < 0 {
			return errors.ErrServiceInvalidated
		}
		if current >= minimum {
			return nil
		}
		if s.counter.CompareAndSwap(current, minimum) {
			return nil
		}
	}
}

func (s *Service) InvalidateTimestamps(_ context.Context) error {
	s.invalidate()
	glog.Infof("[MemoryTimestampService] timestamps invalidated")
	return nil
}

func (s *Service) Close() error {
	return nil
}

func (s *Service) invalidate() {
	s.counter.Store(consts.InvalidatedTimestamp)
}
