package impl

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	testifyassert "github.com/stretchr/testify/assert"

	boundstoreimpl "github.com/leisurelyrcxf/tsoracle/boundstore/impl"
	"github.com/leisurelyrcxf/tsoracle/consts"
	"github.com/leisurelyrcxf/tsoracle/errors"
	"github.com/leisurelyrcxf/tsoracle/oracle"
	"github.com/leisurelyrcxf/tsoracle/oracle/impl/persistent"
	"github.com/leisurelyrcxf/tsoracle/testutils"
)

func TestRegistry(t *testing.T) {
	assert := testifyassert.New(t)
	ctx := context.Background()

	created := map[string]int{}
	r := NewRegistry(func(ctx context.Context, namespace string) (Service, error) {
		created[namespace]++
		return NewMemoryFactory()(ctx, namespace)
	})

	a, err := r.Get(ctx, "")
	assert.NoError(err)
	b, err := r.Get(ctx, consts.DefaultNamespace)
	assert.NoError(err)
	assert.True(a == b)
	c, err := r.Get(ctx, "tenant-1")
	assert.NoError(err)
	assert.False(a == c)
	assert.Equal(map[string]int{consts.DefaultNamespace: 1, "tenant-1": 1}, created)
	assert.ElementsMatch([]string{consts.DefaultNamespace, "tenant-1"}, r.Namespaces())

	_, err = r.Get(ctx, "../etc")
	errors.AssertIsInvalidRequestErr(assert, err)

	assert.NoError(r.Close())
	assert.NoError(r.Close())
	_, err = r.Get(ctx, "tenant-1")
	errors.AssertIsErr(assert, err, errors.ErrServiceClosed)
}

func TestPersistentFactory(t *testing.T) {
	assert := testifyassert.New(t)
	ctx := context.Background()

	stores, err := boundstoreimpl.NewFactory(boundstoreimpl.Config{Type: boundstoreimpl.StoreTypeMemory, ClusterName: "test"})
	if !assert.NoError(err) {
		return
	}
	defer stores.Close()

	observers := map[string]*testutils.RecordingObserver{}
	r := NewRegistry(NewPersistentFactory(stores, func(namespace string) oracle.Observer {
		o := &testutils.RecordingObserver{}
		observers[namespace] = o
		return o
	}, persistent.WithConfig(persistent.Config{
		AllocationBufferSize: 100,
		MaxRequestRangeSize:  10,
		TopUpInterval:        consts.TopUpInterval,
		InitialBackoff:       consts.DefaultAllocatorInitialBackoff,
	})))
	defer r.Close()

	s, err := r.Get(ctx, "a")
	if !assert.NoError(err) {
		return
	}
	rg, err := s.GetFreshTimestamps(ctx, 1000)
	assert.NoError(err)
	assert.Equal(int64(10), rg.Size())

	_, err = r.Get(ctx, "b")
	assert.NoError(err)
	if assert.Contains(observers, "a") && assert.Contains(observers, "b") {
		assert.Len(observers["a"].Created, 1)
		assert.Len(observers["a"].HandOuts, 1)
		assert.Len(observers["b"].HandOuts, 0)
	}
}

func TestRegistry_SlowCreation(t *testing.T) {
	assert := testifyassert.New(t)
	ctx := context.Background()

	var (
		release = make(chan struct{})
		slow    atomic.Int32
	)
	r := NewRegistry(func(ctx context.Context, namespace string) (Service, error) {
		if namespace == "slow" {
			slow.Add(1)
			<-release
		}
		return NewMemoryFactory()(ctx, namespace)
	})
	defer r.Close()

	var (
		wg      sync.WaitGroup
		waiters = make([]Service, 8)
	)
	for i := range waiters {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			waiters[i], _ = r.Get(ctx, "slow")
		}(i)
	}
	assert.Eventually(func() bool { return slow.Load() == 1 }, 5*time.Second, time.Millisecond)

	fast, err := r.Get(ctx, "fast")
	assert.NoError(err)
	assert.NotNil(fast)

	cancelled, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err = r.Get(cancelled, "slow")
	errors.AssertIsErr(assert, err, errors.ErrInterrupted)

	close(release)
	wg.Wait()
	assert.Equal(int32(1), slow.Load())
	for _, s := range waiters {
		if assert.NotNil(s) {
			assert.True(s == waiters[0])
		}
	}
	s, err := r.Get(ctx, "slow")
	assert.NoError(err)
	assert.True(s == waiters[0])
}

func TestRegistry_CloseDuringCreation(t *testing.T) {
	assert := testifyassert.New(t)
	ctx := context.Background()

	var (
		started = make(chan struct{})
		release = make(chan struct{})
	)
	r := NewRegistry(func(ctx context.Context, namespace string) (Service, error) {
		close(started)
		<-release
		return NewMemoryFactory()(ctx, namespace)
	})

	errs := make(chan error, 1)
	go func() {
		_, err := r.Get(ctx, "late")
		errs <- err
	}()
	<-started
	assert.NoError(r.Close())
	close(release)
	errors.AssertIsErr(assert, <-errs, errors.ErrServiceClosed)
	assert.Empty(r.Namespaces())
}
