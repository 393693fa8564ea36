package persistent

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/golang/glog"
	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/leisurelyrcxf/tsoracle/boundstore"
	"github.com/leisurelyrcxf/tsoracle/consts"
	"github.com/leisurelyrcxf/tsoracle/errors"
	"github.com/leisurelyrcxf/tsoracle/oracle"
	"github.com/leisurelyrcxf/tsoracle/types"
	"github.com/leisurelyrcxf/tsoracle/utils"
)

// Service hands out timestamps below an upper limit persisted in a
// boundstore.TimestampBoundStore. Only one Service may write a given bound;
// a second writer is detected on the next store and both stop serving.
type Service struct {
	id   string
	desc string

	cfg        Config
	clock      types.Clock
	observer   oracle.Observer
	upperLimit *UpperLimit

	// sem guards the fields below and every write of the upper limit.
	sem               *semaphore.Weighted
	lastReturned      int64
	lastAllocatedTime int64
	failures          allocationFailures

	trigger chan struct{}
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	closed  atomic.Bool
}

var (
	_ oracle.TimestampService = (*Service)(nil)
	_ oracle.FastForwarder    = (*Service)(nil)
)

func NewService(ctx context.Context, store boundstore.TimestampBoundStore, opts ...Option) (*Service, error) {
	o := newOptions(opts)
	if err := o.cfg.Validate(); err != nil {
		return nil, err
	}
	upperLimit, err := NewUpperLimit(ctx, store, o.observer)
	if err != nil {
		return nil, err
	}
	return NewServiceWithUpperLimit(upperLimit, opts...)
}

func NewServiceWithUpperLimit(upperLimit *UpperLimit, opts ...Option) (*Service, error) {
	o := newOptions(opts)
	if err := o.cfg.Validate(); err != nil {
		return nil, err
	}
	return newService(upperLimit, o), nil
}

func newService(upperLimit *UpperLimit, o options) *Service {
	id := uuid.New().String()
	s := &Service{
		id:   id,
		desc: fmt.Sprintf("TimestampService-%s(%v)", id, upperLimit.store),

		cfg:        o.cfg,
		clock:      o.clock,
		observer:   o.observer,
		upperLimit: upperLimit,

		sem:               semaphore.NewWeighted(1),
		lastReturned:      upperLimit.Get(),
		lastAllocatedTime: o.clock.CurrentTimeMillis(),

		trigger: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	s.failures.desc = s.desc
	s.ctx, s.cancel = context.WithCancel(context.Background())

	glog.Infof("[%s] created, starting from timestamp %d", s.desc, s.lastReturned)
	s.observer.ServiceCreated(id)
	go s.allocate()
	return s
}

func (s *Service) ID() string {
	return s.id
}

func (s *Service) GetFreshTimestamp(ctx context.Context) (int64, error) {
	r, err := s.GetFreshTimestamps(ctx, 1)
	if err != nil {
		return 0, err
	}
	return r.Lower, nil
}

// GetFreshTimestamps returns at most Config.MaxRequestRangeSize timestamps.
func (s *Service) GetFreshTimestamps(ctx context.Context, count int64) (types.TimestampRange, error) {
	if count <= 0 {
		return types.TimestampRange{}, errors.Annotatef(errors.ErrInvalidRequest, "count must be positive, got %d", count)
	}
	if count > s.cfg.MaxRequestRangeSize {
		count = s.cfg.MaxRequestRangeSize
	}

	if err := s.enter(ctx); err != nil {
		return types.TimestampRange{}, err
	}
	r, err := s.handOut(ctx, count)
	s.leave()
	if err != nil {
		return types.TimestampRange{}, err
	}

	s.triggerTopUp()
	return r, nil
}

func (s *Service) handOut(ctx context.Context, count int64) (types.TimestampRange, error) {
	if s.lastReturned == consts.InvalidatedTimestamp {
		return types.TimestampRange{}, errors.Annotatef(errors.ErrServiceInvalidated, "%s", s.desc)
	}
	candidate, overflow := utils.AddInt64(s.lastReturned, count)
	if overflow {
		glog.Errorf("[%s] timestamps overflowed after %d, invalidating service", s.desc, s.lastReturned)
		s.lastReturned = consts.InvalidatedTimestamp
		return types.TimestampRange{}, errors.Annotatef(errors.ErrServiceInvalidated, "%s: timestamp overflow", s.desc)
	}

	for s.upperLimit.Get() < candidate {
		if err := s.allocateMoreTimestamps(ctx); err != nil {
			return types.TimestampRange{}, err
		}
	}

	r := types.NewTimestampRange(s.lastReturned+1, candidate)
	s.lastReturned = candidate
	s.observer.HandedOut(r)
	if glog.V(consts.DebugLevel) {
		glog.Infof("[%s] handed out %s", s.desc, r)
	}
	return r, nil
}

// FastForwardTimestamp makes sure no timestamp at or below minimum is handed out later.
func (s *Service) FastForwardTimestamp(ctx context.Context, minimum int64) error {
	if err := s.enter(ctx); err != nil {
		return err
	}
	defer s.leave()

	if s.lastReturned == consts.InvalidatedTimestamp {
		return errors.Annotatef(errors.ErrServiceInvalidated, "%s", s.desc)
	}
	if err := s.failures.splitBrain(); err != nil {
		return err
	}
	if err := s.increaseUpperLimit(ctx, utils.SaturatingAddInt64(minimum, s.cfg.AllocationBufferSize)); err != nil {
		return err
	}
	if minimum > s.lastReturned {
		glog.Infof("[%s] fast forwarded %d -> %d", s.desc, s.lastReturned, minimum)
	}
	s.lastReturned = utils.MaxInt64(s.lastReturned, minimum)
	return nil
}

// Close stops the background allocator and closes the bound store.
func (s *Service) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.cancel()
	<-s.done
	glog.Infof("[%s] closed", s.desc)
	return s.upperLimit.Close()
}

func (s *Service) enter(ctx context.Context) error {
	if s.closed.Load() {
		return errors.Annotatef(errors.ErrServiceClosed, "%s", s.desc)
	}
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return errors.Annotatef(errors.ErrInterrupted, "%s: %v", s.desc, err)
	}
	if s.closed.Load() {
		s.sem.Release(1)
		return errors.Annotatef(errors.ErrServiceClosed, "%s", s.desc)
	}
	return nil
}

func (s *Service) leave() {
	s.sem.Release(1)
}

// allocateMoreTimestamps must be called inside the critical section.
func (s *Service) allocateMoreTimestamps(ctx context.Context) error {
	if err := s.failures.splitBrain(); err != nil {
		return err
	}
	return s.increaseUpperLimit(ctx, utils.SaturatingAddInt64(s.lastReturned, s.cfg.AllocationBufferSize))
}

func (s *Service) increaseUpperLimit(ctx context.Context, target int64) error {
	if err := s.upperLimit.IncreaseToAtLeast(ctx, target); err != nil {
		surfaced := s.failures.handle(ctx, err)
		if !errors.IsInterruptedErr(surfaced) {
			s.observer.AllocationFailed(err)
		}
		return surfaced
	}
	s.failures.clear()
	s.lastAllocatedTime = s.clock.CurrentTimeMillis()
	return nil
}

func (s *Service) triggerTopUp() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

func (s *Service) allocate() {
	defer close(s.done)

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.cfg.InitialBackoff
	b.MaxInterval = s.cfg.TopUpInterval
	b.MaxElapsedTime = 0
	b.Reset()

	var (
		retryTimer *time.Timer
		retry      <-chan time.Time
	)
	defer func() {
		if retryTimer != nil {
			retryTimer.Stop()
		}
	}()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-s.trigger:
			if retry != nil {
				// Backing off, the retry timer runs the next attempt.
				continue
			}
		case <-retry:
			retry = nil
		}

		err := s.topUpIfNeeded()
		if err == nil {
			b.Reset()
			if retryTimer != nil {
				retryTimer.Stop()
				retry = nil
			}
			continue
		}
		if s.ctx.Err() != nil || errors.IsServiceNotAvailableErr(err) || errors.IsServiceInvalidatedErr(err) {
			if retryTimer != nil {
				retryTimer.Stop()
				retry = nil
			}
			continue
		}
		if retry == nil {
			wait := b.NextBackOff()
			if glog.V(consts.DebugLevel) {
				glog.Infof("[%s] background allocation failed, retrying in %s: %v", s.desc, wait, err)
			}
			retryTimer = time.NewTimer(wait)
			retry = retryTimer.C
		}
	}
}

func (s *Service) topUpIfNeeded() error {
	if err := s.sem.Acquire(s.ctx, 1); err != nil {
		return err
	}
	defer s.sem.Release(1)

	if s.lastReturned == consts.InvalidatedTimestamp {
		return errors.ErrServiceInvalidated
	}
	if !s.shouldTopUp() {
		return nil
	}
	return s.allocateMoreTimestamps(s.ctx)
}

func (s *Service) shouldTopUp() bool {
	remaining := s.upperLimit.Get() - s.lastReturned
	if remaining <= s.cfg.AllocationBufferSize/2 {
		return true
	}
	return s.lastAllocatedTime+s.cfg.TopUpInterval.Milliseconds() < s.clock.CurrentTimeMillis()
}
