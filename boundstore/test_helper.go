package boundstore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	testifyassert "github.com/stretchr/testify/assert"

	"github.com/leisurelyrcxf/tsoracle/errors"
	"github.com/leisurelyrcxf/tsoracle/types"
)

// NewBackendFunc opens a backend on key. Backends opened on the same key must
// share the durable value, as two processes would.
type NewBackendFunc func(key string) (Backend, error)

// RunBackendTests runs the bound store contract against a backend implementation.
func RunBackendTests(t *testing.T, newBackend NewBackendFunc) {
	for _, tc := range []struct {
		name string
		f    func(types.T, NewBackendFunc) bool
	}{
		{"StoreAndGet", testStoreAndGet},
		{"DetectMultipleWriters", testDetectMultipleWriters},
		{"RejectDecrease", testRejectDecrease},
		{"StoreWithoutGet", testStoreWithoutGet},
		{"ConcurrentWriters", testConcurrentWriters},
	} {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if !tc.f(t, newBackend) {
				t.Errorf("%s failed", tc.name)
			}
		})
	}
}

func newTestKey() string {
	return "/tsoracle_test/" + uuid.New().String()
}

func newTestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 10*time.Second)
}

func openStore(assert *testifyassert.Assertions, newBackend NewBackendFunc, key string) *Store {
	b, err := newBackend(key)
	if !assert.NoError(err) {
		return nil
	}
	return NewStore("test:"+key, b)
}

func testStoreAndGet(t types.T, newBackend NewBackendFunc) (b bool) {
	assert := types.NewAssertion(t)
	ctx, cancel := newTestContext()
	defer cancel()

	key := newTestKey()
	store := openStore(assert, newBackend, key)
	if store == nil {
		return
	}
	defer store.Close()

	limit, err := store.GetUpperLimit(ctx)
	if !assert.NoError(err) || !assert.Equal(int64(0), limit) {
		return
	}
	for _, l := range []int64{100, 1000, 1000, 1000000} {
		if !assert.NoError(store.StoreUpperLimit(ctx, l)) {
			return
		}
	}

	other := openStore(assert, newBackend, key)
	if other == nil {
		return
	}
	defer other.Close()
	limit, err = other.GetUpperLimit(ctx)
	return assert.NoError(err) && assert.Equal(int64(1000000), limit)
}

func testDetectMultipleWriters(t types.T, newBackend NewBackendFunc) (b bool) {
	assert := types.NewAssertion(t)
	ctx, cancel := newTestContext()
	defer cancel()

	key := newTestKey()
	stale, fresh := openStore(assert, newBackend, key), openStore(assert, newBackend, key)
	if stale == nil || fresh == nil {
		return
	}
	defer stale.Close()
	defer fresh.Close()

	if _, err := stale.GetUpperLimit(ctx); !assert.NoError(err) {
		return
	}
	if !assert.NoError(stale.StoreUpperLimit(ctx, 10)) {
		return
	}
	if limit, err := fresh.GetUpperLimit(ctx); !assert.NoError(err) || !assert.Equal(int64(10), limit) {
		return
	}
	if !assert.NoError(fresh.StoreUpperLimit(ctx, 20)) {
		return
	}

	err := stale.StoreUpperLimit(ctx, 30)
	if !errors.AssertIsErr(assert, err, errors.ErrMultipleWriters) {
		return
	}
	limit, err := fresh.GetUpperLimit(ctx)
	return assert.NoError(err) && assert.Equal(int64(20), limit)
}

func testRejectDecrease(t types.T, newBackend NewBackendFunc) (b bool) {
	assert := types.NewAssertion(t)
	ctx, cancel := newTestContext()
	defer cancel()

	store := openStore(assert, newBackend, newTestKey())
	if store == nil {
		return
	}
	defer store.Close()

	if !assert.NoError(store.StoreUpperLimit(ctx, 50)) {
		return
	}
	if !errors.AssertIsInvalidRequestErr(assert, store.StoreUpperLimit(ctx, 49)) {
		return
	}
	limit, err := store.GetUpperLimit(ctx)
	return assert.NoError(err) && assert.Equal(int64(50), limit)
}

func testStoreWithoutGet(t types.T, newBackend NewBackendFunc) (b bool) {
	assert := types.NewAssertion(t)
	ctx, cancel := newTestContext()
	defer cancel()

	key := newTestKey()
	first := openStore(assert, newBackend, key)
	if first == nil {
		return
	}
	defer first.Close()
	if !assert.NoError(first.StoreUpperLimit(ctx, 7)) {
		return
	}

	second := openStore(assert, newBackend, key)
	if second == nil {
		return
	}
	defer second.Close()
	if !assert.NoError(second.StoreUpperLimit(ctx, 8)) {
		return
	}
	limit, err := second.GetUpperLimit(ctx)
	return assert.NoError(err) && assert.Equal(int64(8), limit)
}

func testConcurrentWriters(t types.T, newBackend NewBackendFunc) (b bool) {
	assert := types.NewAssertion(t)
	ctx, cancel := newTestContext()
	defer cancel()

	const writerNum = 8
	key := newTestKey()
	stores := make([]*Store, writerNum)
	for i := range stores {
		if stores[i] = openStore(assert, newBackend, key); stores[i] == nil {
			return
		}
		defer stores[i].Close()
		if _, err := stores[i].GetUpperLimit(ctx); !assert.NoError(err) {
			return
		}
	}

	var (
		wg   sync.WaitGroup
		errs [writerNum]error
	)
	for i := range stores {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = stores[i].StoreUpperLimit(ctx, int64(100+i))
		}(i)
	}
	wg.Wait()

	var winners int
	for _, err := range errs {
		if err == nil {
			winners++
			continue
		}
		if !assert.True(errors.IsMultipleWritersErr(err), "unexpected error: %v", err) {
			return
		}
	}
	return assert.Equal(1, winners)
}
