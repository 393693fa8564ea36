package testutils

import (
	"fmt"
	"sync"

	"github.com/emirpasic/gods/sets/treeset"

	"github.com/leisurelyrcxf/tsoracle/types"
)

// RangeSet collects timestamp ranges handed out by concurrent callers and
// checks they never overlap.
type RangeSet struct {
	sync.Mutex

	ranges *treeset.Set
	total  int64
}

func NewRangeSet() *RangeSet {
	return &RangeSet{ranges: treeset.NewWith(func(a, b interface{}) int {
		ra, rb := a.(types.TimestampRange), b.(types.TimestampRange)
		switch {
		case ra.Lower < rb.Lower:
			return -1
		case ra.Lower > rb.Lower:
			return 1
		default:
			return 0
		}
	})}
}

func (s *RangeSet) Add(r types.TimestampRange) {
	s.Lock()
	defer s.Unlock()

	s.ranges.Add(r)
	s.total += r.Size()
}

func (s *RangeSet) AddTimestamp(ts int64) {
	s.Add(types.NewTimestampRange(ts, ts))
}

// Total is the sum of the sizes of all added ranges, duplicates included.
func (s *RangeSet) Total() int64 {
	s.Lock()
	defer s.Unlock()

	return s.total
}

// CheckDisjoint returns an error describing the first overlap found.
func (s *RangeSet) CheckDisjoint() error {
	s.Lock()
	defer s.Unlock()

	var (
		covered int64
		prev    *types.TimestampRange
	)
	for it := s.ranges.Iterator(); it.Next(); {
		r := it.Value().(types.TimestampRange)
		if prev != nil && r.Lower <= prev.Upper {
			return fmt.Errorf("range %s overlaps %s", r, *prev)
		}
		covered += r.Size()
		prev = &r
	}
	if covered != s.total {
		return fmt.Errorf("ranges sharing a lower bound: covered %d of %d", covered, s.total)
	}
	return nil
}

// CheckContiguous checks the ranges exactly cover [lower, upper].
func (s *RangeSet) CheckContiguous(lower, upper int64) error {
	if err := s.CheckDisjoint(); err != nil {
		return err
	}

	s.Lock()
	defer s.Unlock()

	expected := lower
	for it := s.ranges.Iterator(); it.Next(); {
		r := it.Value().(types.TimestampRange)
		if r.Lower != expected {
			return fmt.Errorf("gap before %s, expected lower %d", r, expected)
		}
		expected = r.Upper + 1
	}
	if expected != upper+1 {
		return fmt.Errorf("ranges end at %d, expected %d", expected-1, upper)
	}
	return nil
}
