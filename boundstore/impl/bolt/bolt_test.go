package bolt

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	testifyassert "github.com/stretchr/testify/assert"

	"github.com/leisurelyrcxf/tsoracle/boundstore"
)

func TestBackend(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "bounds.db"), time.Second)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	boundstore.RunBackendTests(t, func(key string) (boundstore.Backend, error) {
		return db.NewBackend(key), nil
	})
}

func TestReopen(t *testing.T) {
	assert := testifyassert.New(t)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "bounds.db")

	store, err := NewStore(path, "/ns", time.Second)
	if !assert.NoError(err) {
		return
	}
	assert.NoError(store.StoreUpperLimit(ctx, 4242))
	assert.NoError(store.Close())

	store, err = NewStore(path, "/ns", time.Second)
	if !assert.NoError(err) {
		return
	}
	defer store.Close()
	limit, err := store.GetUpperLimit(ctx)
	assert.NoError(err)
	assert.Equal(int64(4242), limit)
}
