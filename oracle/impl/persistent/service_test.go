package persistent

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	testifyassert "github.com/stretchr/testify/assert"

	"github.com/leisurelyrcxf/tsoracle/boundstore"
	"github.com/leisurelyrcxf/tsoracle/boundstore/impl/memory"
	"github.com/leisurelyrcxf/tsoracle/consts"
	"github.com/leisurelyrcxf/tsoracle/errors"
	"github.com/leisurelyrcxf/tsoracle/testutils"
	"github.com/leisurelyrcxf/tsoracle/types"
)

const boundKey = "/tsoracle/test/timestamp_bound/default"

var smallConfig = Config{
	AllocationBufferSize: 100,
	MaxRequestRangeSize:  10,
	TopUpInterval:        time.Minute,
	InitialBackoff:       10 * time.Millisecond,
}

func newTestService(assert *testifyassert.Assertions, db *memory.DB, opts ...Option) *Service {
	s, err := NewService(context.Background(), db.NewStore(boundKey), opts...)
	if !assert.NoError(err) {
		return nil
	}
	return s
}

func TestService_GetFreshTimestamps(t *testing.T) {
	assert := testifyassert.New(t)
	ctx := context.Background()

	db := memory.NewDB()
	s := newTestService(assert, db)
	if s == nil {
		return
	}
	defer s.Close()

	r, err := s.GetFreshTimestamps(ctx, 50000)
	if !assert.NoError(err) {
		return
	}
	assert.Equal(types.NewTimestampRange(1, consts.MaxRequestRangeSize), r)

	ts, err := s.GetFreshTimestamp(ctx)
	assert.NoError(err)
	assert.Equal(consts.MaxRequestRangeSize+1, ts)

	v, _ := db.Get(boundKey)
	assert.Equal(consts.AllocationBufferSize, v)
}

func TestService_InvalidRequest(t *testing.T) {
	assert := testifyassert.New(t)
	ctx := context.Background()

	s := newTestService(assert, memory.NewDB())
	if s == nil {
		return
	}
	defer s.Close()

	for _, count := range []int64{0, -1, math.MinInt64} {
		_, err := s.GetFreshTimestamps(ctx, count)
		errors.AssertIsInvalidRequestErr(assert, err)
	}
	ts, err := s.GetFreshTimestamp(ctx)
	assert.NoError(err)
	assert.Equal(int64(1), ts)
}

func TestService_Concurrent(t *testing.T) {
	testutils.RunTestForNRounds(t, 10, testServiceConcurrent)
}

func testServiceConcurrent(t types.T) (b bool) {
	assert := types.NewAssertion(t)
	ctx := context.Background()

	s := newTestService(assert, memory.NewDB(), WithConfig(smallConfig))
	if s == nil {
		return
	}
	defer s.Close()

	const (
		goroutines = 16
		requests   = 200
	)
	var (
		wg     sync.WaitGroup
		ranges = testutils.NewRangeSet()
		failed atomic.Bool
	)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			rnd := rand.New(rand.NewSource(int64(i)))
			for j := 0; j < requests; j++ {
				if j%2 == 0 {
					ts, err := s.GetFreshTimestamp(ctx)
					if err != nil {
						failed.Store(true)
						return
					}
					ranges.AddTimestamp(ts)
					continue
				}
				r, err := s.GetFreshTimestamps(ctx, 1+rnd.Int63n(smallConfig.MaxRequestRangeSize))
				if err != nil {
					failed.Store(true)
					return
				}
				ranges.Add(r)
			}
		}(i)
	}
	wg.Wait()

	if !assert.False(failed.Load()) {
		return
	}
	return assert.NoError(ranges.CheckContiguous(1, ranges.Total()))
}

func TestService_SequentialRangesIncrease(t *testing.T) {
	assert := testifyassert.New(t)
	ctx := context.Background()

	s := newTestService(assert, memory.NewDB(), WithConfig(smallConfig))
	if s == nil {
		return
	}
	defer s.Close()

	var prev types.TimestampRange
	for i := 0; i < 1000; i++ {
		r, err := s.GetFreshTimestamps(ctx, int64(1+i%7))
		if !assert.NoError(err) {
			return
		}
		if !assert.True(prev.Before(r), "%s not before %s", prev, r) {
			return
		}
		prev = r
	}
}

func TestService_FastForward(t *testing.T) {
	assert := testifyassert.New(t)
	ctx := context.Background()

	db := memory.NewDB()
	s := newTestService(assert, db, WithConfig(smallConfig))
	if s == nil {
		return
	}
	defer s.Close()

	assert.NoError(s.FastForwardTimestamp(ctx, 1000))
	v, _ := db.Get(boundKey)
	assert.Equal(int64(1000+smallConfig.AllocationBufferSize), v)

	ts, err := s.GetFreshTimestamp(ctx)
	assert.NoError(err)
	assert.Equal(int64(1001), ts)

	assert.NoError(s.FastForwardTimestamp(ctx, 5))
	ts, err = s.GetFreshTimestamp(ctx)
	assert.NoError(err)
	assert.Equal(int64(1002), ts)
}

func TestService_MultipleWriters(t *testing.T) {
	assert := testifyassert.New(t)
	ctx := context.Background()

	db := memory.NewDB()
	o := &testutils.RecordingObserver{}
	s := newTestService(assert, db, WithConfig(smallConfig), WithObserver(o))
	if s == nil {
		return
	}
	defer s.Close()

	_, err := s.GetFreshTimestamp(ctx)
	if !assert.NoError(err) {
		return
	}

	db.Set(boundKey, 5000)
	for i := 0; i < 100 && err == nil; i++ {
		_, err = s.GetFreshTimestamps(ctx, smallConfig.MaxRequestRangeSize)
	}
	if !errors.AssertIsErr(assert, err, errors.ErrServiceNotAvailable) {
		return
	}
	assert.GreaterOrEqual(o.FailureCount(), 1)

	writes := db.Writes()
	for i := 0; i < 10; i++ {
		_, err = s.GetFreshTimestamps(ctx, smallConfig.MaxRequestRangeSize)
		errors.AssertIsErr(assert, err, errors.ErrServiceNotAvailable)
	}
	errors.AssertIsErr(assert, s.FastForwardTimestamp(ctx, 10000), errors.ErrServiceNotAvailable)
	assert.Equal(writes, db.Writes())
	v, _ := db.Get(boundKey)
	assert.Equal(int64(5000), v)
}

func TestService_StoreFailureRecovers(t *testing.T) {
	assert := testifyassert.New(t)
	ctx := context.Background()

	db := memory.NewDB()
	o := &testutils.RecordingObserver{}
	s := newTestService(assert, db, WithConfig(smallConfig), WithObserver(o))
	if s == nil {
		return
	}
	defer s.Close()

	last, err := s.GetFreshTimestamp(ctx)
	if !assert.NoError(err) {
		return
	}

	db.InjectError(errors.New("disk failure"))
	for i := 0; i < 100 && err == nil; i++ {
		var r types.TimestampRange
		if r, err = s.GetFreshTimestamps(ctx, smallConfig.MaxRequestRangeSize); err == nil {
			last = r.Upper
		}
	}
	if !errors.AssertIsErr(assert, err, errors.ErrAllocationFailed) {
		return
	}
	assert.GreaterOrEqual(o.FailureCount(), 1)

	db.InjectError(nil)
	ts, err := s.GetFreshTimestamp(ctx)
	assert.NoError(err)
	assert.Equal(last+1, ts)
}

type blockingBackend struct {
	boundstore.Backend

	blocking atomic.Bool
}

func (b *blockingBackend) CompareAndSwap(ctx context.Context, expected boundstore.Observed, limit int64) (boundstore.Observed, bool, error) {
	if b.blocking.Load() {
		<-ctx.Done()
		return boundstore.Observed{}, false, ctx.Err()
	}
	return b.Backend.CompareAndSwap(ctx, expected, limit)
}

func TestService_Interrupted(t *testing.T) {
	assert := testifyassert.New(t)

	db := memory.NewDB()
	backend := &blockingBackend{Backend: db.NewBackend(boundKey)}
	backend.blocking.Store(true)
	s, err := NewService(context.Background(), boundstore.NewStore("blocking", backend))
	if !assert.NoError(err) {
		return
	}
	defer s.Close()

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.GetFreshTimestamp(cancelled)
	errors.AssertIsErr(assert, err, errors.ErrInterrupted)
	assert.Equal(context.Canceled, cancelled.Err())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = s.GetFreshTimestamp(ctx)
	errors.AssertIsErr(assert, err, errors.ErrInterrupted)
	assert.Equal(0, db.Writes())

	backend.blocking.Store(false)
	ts, err := s.GetFreshTimestamp(context.Background())
	assert.NoError(err)
	assert.Equal(int64(1), ts)
}

func TestService_BackgroundTopUp(t *testing.T) {
	assert := testifyassert.New(t)
	ctx := context.Background()

	db := memory.NewDB()
	s := newTestService(assert, db, WithConfig(smallConfig))
	if s == nil {
		return
	}
	defer s.Close()

	for i := 0; i < 5; i++ {
		_, err := s.GetFreshTimestamps(ctx, smallConfig.MaxRequestRangeSize)
		if !assert.NoError(err) {
			return
		}
	}
	assert.Eventually(func() bool {
		v, _ := db.Get(boundKey)
		return db.Writes() == 2 && v == 50+smallConfig.AllocationBufferSize
	}, 5*time.Second, time.Millisecond)
}

func TestService_TopUpAfterInterval(t *testing.T) {
	assert := testifyassert.New(t)
	ctx := context.Background()

	db := memory.NewDB()
	clock := testutils.NewManualClock(0)
	s := newTestService(assert, db, WithClock(clock))
	if s == nil {
		return
	}
	defer s.Close()

	_, err := s.GetFreshTimestamp(ctx)
	assert.NoError(err)
	assert.Equal(1, db.Writes())

	clock.Advance(consts.TopUpInterval + time.Second)
	_, err = s.GetFreshTimestamp(ctx)
	assert.NoError(err)
	assert.Eventually(func() bool {
		return db.Writes() == 2
	}, 5*time.Second, time.Millisecond)
	v, _ := db.Get(boundKey)
	assert.Greater(v, consts.AllocationBufferSize)
}

func TestService_Restart(t *testing.T) {
	assert := testifyassert.New(t)
	ctx := context.Background()

	db := memory.NewDB()
	var last int64
	for round := 0; round < 5; round++ {
		s := newTestService(assert, db, WithConfig(smallConfig))
		if s == nil {
			return
		}
		for i := 0; i < 20; i++ {
			r, err := s.GetFreshTimestamps(ctx, 7)
			if !assert.NoError(err) {
				_ = s.Close()
				return
			}
			assert.Greater(r.Lower, last)
			last = r.Upper
		}
		assert.NoError(s.Close())
	}
}

func TestService_Overflow(t *testing.T) {
	assert := testifyassert.New(t)
	ctx := context.Background()

	db := memory.NewDB()
	db.Set(boundKey, math.MaxInt64-5)
	s := newTestService(assert, db, WithConfig(smallConfig))
	if s == nil {
		return
	}
	defer s.Close()

	r, err := s.GetFreshTimestamps(ctx, 3)
	assert.NoError(err)
	assert.Equal(types.NewTimestampRange(math.MaxInt64-4, math.MaxInt64-2), r)
	v, _ := db.Get(boundKey)
	assert.Equal(int64(math.MaxInt64), v)

	_, err = s.GetFreshTimestamps(ctx, 10)
	errors.AssertIsServiceInvalidatedErr(assert, err)
	_, err = s.GetFreshTimestamp(ctx)
	errors.AssertIsServiceInvalidatedErr(assert, err)
	errors.AssertIsServiceInvalidatedErr(assert, s.FastForwardTimestamp(ctx, 1))
}

func TestService_FastForwardToEdge(t *testing.T) {
	assert := testifyassert.New(t)
	ctx := context.Background()

	db := memory.NewDB()
	s := newTestService(assert, db, WithConfig(smallConfig))
	if s == nil {
		return
	}
	defer s.Close()

	assert.NoError(s.FastForwardTimestamp(ctx, math.MaxInt64-3))
	v, _ := db.Get(boundKey)
	assert.Equal(int64(math.MaxInt64), v)

	r, err := s.GetFreshTimestamps(ctx, 3)
	assert.NoError(err)
	assert.Equal(types.NewTimestampRange(math.MaxInt64-2, math.MaxInt64), r)

	_, err = s.GetFreshTimestamp(ctx)
	errors.AssertIsServiceInvalidatedErr(assert, err)
}

func TestService_Close(t *testing.T) {
	assert := testifyassert.New(t)
	ctx := context.Background()

	db := memory.NewDB()
	o := &testutils.RecordingObserver{}
	s := newTestService(assert, db, WithObserver(o))
	if s == nil {
		return
	}
	assert.Equal([]string{s.ID()}, o.Created)

	_, err := s.GetFreshTimestamp(ctx)
	assert.NoError(err)
	assert.NoError(s.Close())
	assert.NoError(s.Close())

	_, err = s.GetFreshTimestamp(ctx)
	errors.AssertIsErr(assert, err, errors.ErrServiceClosed)
	errors.AssertIsErr(assert, s.FastForwardTimestamp(ctx, 100), errors.ErrServiceClosed)
}

func TestService_InvalidConfig(t *testing.T) {
	assert := testifyassert.New(t)

	for _, cfg := range []Config{
		{AllocationBufferSize: 100, MaxRequestRangeSize: 0, TopUpInterval: time.Minute, InitialBackoff: time.Second},
		{AllocationBufferSize: 10, MaxRequestRangeSize: 100, TopUpInterval: time.Minute, InitialBackoff: time.Second},
		{AllocationBufferSize: 100, MaxRequestRangeSize: 10},
	} {
		_, err := NewService(context.Background(), memory.NewStore(boundKey), WithConfig(cfg))
		errors.AssertIsErr(assert, err, errors.ErrInvalidConfig)
	}
	assert.NoError(NewDefaultConfig().Validate())
}

func TestService_LostStoreReplyRecovers(t *testing.T) {
	assert := testifyassert.New(t)
	ctx := context.Background()

	db := memory.NewDB()
	s := newTestService(assert, db, WithConfig(smallConfig))
	if s == nil {
		return
	}
	defer s.Close()

	last, err := s.GetFreshTimestamp(ctx)
	if !assert.NoError(err) {
		return
	}

	db.LoseReplies(errors.New("connection reset by peer"))
	for i := 0; i < 100 && err == nil; i++ {
		var r types.TimestampRange
		if r, err = s.GetFreshTimestamps(ctx, smallConfig.MaxRequestRangeSize); err == nil {
			last = r.Upper
		}
	}
	if !errors.AssertIsErr(assert, err, errors.ErrAllocationFailed) {
		return
	}
	durable, _ := db.Get(boundKey)
	assert.Greater(durable, last)

	db.LoseReplies(nil)
	ts, err := s.GetFreshTimestamp(ctx)
	if !assert.NoError(err) {
		return
	}
	assert.Equal(last+1, ts)
	for i := 0; i < 50; i++ {
		r, err := s.GetFreshTimestamps(ctx, smallConfig.MaxRequestRangeSize)
		if !assert.NoError(err) {
			return
		}
		v, _ := db.Get(boundKey)
		assert.LessOrEqual(r.Upper, v)
	}
}

func TestService_BackgroundFailureRetried(t *testing.T) {
	assert := testifyassert.New(t)
	ctx := context.Background()

	db := memory.NewDB()
	o := &testutils.RecordingObserver{}
	s := newTestService(assert, db, WithConfig(smallConfig), WithObserver(o))
	if s == nil {
		return
	}
	defer s.Close()

	_, err := s.GetFreshTimestamp(ctx)
	if !assert.NoError(err) {
		return
	}

	db.InjectError(errors.New("disk failure"))
	for i := 0; i < 5; i++ {
		_, err := s.GetFreshTimestamps(ctx, smallConfig.MaxRequestRangeSize)
		if !assert.NoError(err) {
			return
		}
	}
	assert.Eventually(func() bool {
		return o.FailureCount() >= 1 && s.failures.lastFailure() != nil
	}, 5*time.Second, time.Millisecond)
	assert.Equal(1, db.Writes())

	// No request arrives from now on, the retry timer alone has to recover.
	db.InjectError(nil)
	assert.Eventually(func() bool {
		return db.Writes() == 2 && s.failures.lastFailure() == nil
	}, 5*time.Second, time.Millisecond)
	v, _ := db.Get(boundKey)
	assert.Equal(51+smallConfig.AllocationBufferSize, v)
}

func TestService_BackgroundSplitBrainFailsFast(t *testing.T) {
	assert := testifyassert.New(t)
	ctx := context.Background()

	db := memory.NewDB()
	o := &testutils.RecordingObserver{}
	s := newTestService(assert, db, WithConfig(smallConfig), WithObserver(o))
	if s == nil {
		return
	}
	defer s.Close()

	_, err := s.GetFreshTimestamp(ctx)
	if !assert.NoError(err) {
		return
	}

	db.Set(boundKey, 5000)
	for i := 0; i < 5; i++ {
		_, err := s.GetFreshTimestamps(ctx, smallConfig.MaxRequestRangeSize)
		if !assert.NoError(err) {
			return
		}
	}
	if !assert.Eventually(func() bool {
		return s.failures.splitBrain() != nil
	}, 5*time.Second, time.Millisecond) {
		return
	}

	writes := db.Writes()
	will, _ := o.StoreCounts()
	for err == nil {
		_, err = s.GetFreshTimestamps(ctx, smallConfig.MaxRequestRangeSize)
	}
	errors.AssertIsErr(assert, err, errors.ErrServiceNotAvailable)
	errors.AssertIsErr(assert, s.FastForwardTimestamp(ctx, 10), errors.ErrServiceNotAvailable)

	assert.Equal(writes, db.Writes())
	willAfter, _ := o.StoreCounts()
	assert.Equal(will, willAfter)
	v, _ := db.Get(boundKey)
	assert.Equal(int64(5000), v)
}

func TestService_TriggersIgnoredWhileBackingOff(t *testing.T) {
	assert := testifyassert.New(t)
	ctx := context.Background()

	cfg := smallConfig
	cfg.InitialBackoff = time.Hour
	cfg.TopUpInterval = time.Hour

	db := memory.NewDB()
	o := &testutils.RecordingObserver{}
	s := newTestService(assert, db, WithConfig(cfg), WithObserver(o))
	if s == nil {
		return
	}
	defer s.Close()

	_, err := s.GetFreshTimestamp(ctx)
	if !assert.NoError(err) {
		return
	}

	db.InjectError(errors.New("disk failure"))
	for i := 0; i < 5; i++ {
		_, err := s.GetFreshTimestamps(ctx, cfg.MaxRequestRangeSize)
		if !assert.NoError(err) {
			return
		}
	}
	if !assert.Eventually(func() bool {
		will, _ := o.StoreCounts()
		return will == 2
	}, 5*time.Second, time.Millisecond) {
		return
	}

	for i := 0; i < 4; i++ {
		_, err := s.GetFreshTimestamps(ctx, cfg.MaxRequestRangeSize)
		if !assert.NoError(err) {
			return
		}
	}
	assert.Never(func() bool {
		will, _ := o.StoreCounts()
		return will > 2
	}, 200*time.Millisecond, 5*time.Millisecond)
}
