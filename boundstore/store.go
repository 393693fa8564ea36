// Package boundstore persists the timestamp upper limit. Every write is a
// compare-and-swap against the value this process last observed, so a
// second timestamp service writing to the same key is detected.
package boundstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/golang/glog"

	"github.com/leisurelyrcxf/tsoracle/consts"
	"github.com/leisurelyrcxf/tsoracle/errors"
)

type TimestampBoundStore interface {
	// GetUpperLimit returns the durable upper limit, 0 if it was never stored.
	GetUpperLimit(ctx context.Context) (int64, error)
	// StoreUpperLimit fails with errors.ErrMultipleWriters if the durable
	// value is not the one last observed by this store.
	StoreUpperLimit(ctx context.Context, limit int64) error
	Close() error
}

// Observed is a durable value as seen by a backend; Exists is false if the key is absent.
type Observed struct {
	Limit  int64
	Exists bool
}

func (o Observed) String() string {
	if !o.Exists {
		return "<absent>"
	}
	return fmt.Sprintf("%d", o.Limit)
}

// Backend is the primitive a durable medium has to provide.
type Backend interface {
	Load(ctx context.Context) (Observed, error)
	// CompareAndSwap stores limit iff the durable value equals expected. When
	// it does not, swapped is false and actual is the value found.
	CompareAndSwap(ctx context.Context, expected Observed, limit int64) (actual Observed, swapped bool, err error)
	Close() error
}

type Store struct {
	sync.Mutex

	desc    string
	backend Backend

	observed Observed
	loaded   bool
	closed   bool

	// Limits of writes whose outcome is unknown; any of them may be durable.
	pending []int64
	// observed was adopted from such a write, so callers may hold a lower limit.
	adopted bool
}

func NewStore(desc string, backend Backend) *Store {
	return &Store{desc: desc, backend: backend}
}

func (s *Store) GetUpperLimit(ctx context.Context) (int64, error) {
	s.Lock()
	defer s.Unlock()

	if s.closed {
		return 0, errors.ErrStoreClosed
	}
	return s.loadLocked(ctx)
}

func (s *Store) loadLocked(ctx context.Context) (int64, error) {
	o, err := s.backend.Load(ctx)
	if err != nil {
		return 0, errors.Trace(err)
	}
	if o.Exists && o.Limit < 0 {
		return 0, errors.Annotatef(errors.ErrCorruptedBound, "%s: negative bound %d", s.desc, o.Limit)
	}
	s.observed, s.loaded, s.pending, s.adopted = o, true, nil, false
	if glog.V(consts.DebugLevel) {
		glog.Infof("[Store][%s] loaded upper limit %s", s.desc, o)
	}
	return o.Limit, nil
}

func (s *Store) StoreUpperLimit(ctx context.Context, limit int64) error {
	s.Lock()
	defer s.Unlock()

	if s.closed {
		return errors.ErrStoreClosed
	}
	if !s.loaded {
		if _, err := s.loadLocked(ctx); err != nil {
			return err
		}
	}
	if s.observed.Exists && limit < s.observed.Limit {
		if s.adopted {
			return nil
		}
		return errors.Annotatef(errors.ErrInvalidRequest, "%s: new limit %d below current %d", s.desc, limit, s.observed.Limit)
	}

	for {
		actual, swapped, err := s.backend.CompareAndSwap(ctx, s.observed, limit)
		if err != nil {
			s.pending = append(s.pending, limit)
			return errors.Trace(err)
		}
		if swapped {
			s.observed, s.pending, s.adopted = Observed{Limit: limit, Exists: true}, nil, false
			return nil
		}
		if !s.ownsLocked(actual) {
			glog.Errorf("[Store][%s] expected upper limit %s but found %s, another timestamp service is running", s.desc, s.observed, actual)
			return errors.Annotatef(errors.ErrMultipleWriters, "%s: expected %s, found %s", s.desc, s.observed, actual)
		}
		glog.Warningf("[Store][%s] found upper limit %s written by an earlier unacknowledged attempt, adopting it", s.desc, actual)
		s.observed, s.pending, s.adopted = actual, nil, true
		if limit <= actual.Limit {
			return nil
		}
	}
}

// ownsLocked reports whether actual was written by one of this store's
// unacknowledged attempts.
func (s *Store) ownsLocked(actual Observed) bool {
	if !actual.Exists {
		return false
	}
	for _, p := range s.pending {
		if p == actual.Limit {
			return true
		}
	}
	return false
}

func (s *Store) Close() error {
	s.Lock()
	defer s.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.backend.Close()
}

func (s *Store) String() string {
	return s.desc
}
