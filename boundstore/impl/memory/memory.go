package memory

import (
	"context"
	"sync"

	"github.com/leisurelyrcxf/tsoracle/boundstore"
	"github.com/leisurelyrcxf/tsoracle/errors"
)

// DB is an in-process medium shared by every backend created from it, which
// lets tests run several timestamp services against the same bound.
type DB struct {
	sync.Mutex

	values   map[string]int64
	injected error
	lost     error
	writes   int
}

func NewDB() *DB {
	return &DB{values: make(map[string]int64)}
}

func (db *DB) NewBackend(key string) *Backend {
	return &Backend{db: db, key: key}
}

func (db *DB) NewStore(key string) *boundstore.Store {
	return boundstore.NewStore("memory:"+key, db.NewBackend(key))
}

// Set overwrites key as a foreign writer would.
func (db *DB) Set(key string, limit int64) {
	db.Lock()
	defer db.Unlock()

	db.values[key] = limit
}

func (db *DB) Get(key string) (int64, bool) {
	db.Lock()
	defer db.Unlock()

	v, ok := db.values[key]
	return v, ok
}

// InjectError makes every later operation fail with err until it is cleared with nil.
func (db *DB) InjectError(err error) {
	db.Lock()
	defer db.Unlock()

	db.injected = err
}

// LoseReplies makes every later compare-and-swap commit and then fail with
// err, as a write whose acknowledgement never arrived. Cleared with nil.
func (db *DB) LoseReplies(err error) {
	db.Lock()
	defer db.Unlock()

	db.lost = err
}

// Writes returns the number of successful compare-and-swaps.
func (db *DB) Writes() int {
	db.Lock()
	defer db.Unlock()

	return db.writes
}

type Backend struct {
	db  *DB
	key string

	closed bool
}

func NewStore(key string) *boundstore.Store {
	return NewDB().NewStore(key)
}

func (b *Backend) Load(_ context.Context) (boundstore.Observed, error) {
	b.db.Lock()
	defer b.db.Unlock()

	if err := b.checkLocked(); err != nil {
		return boundstore.Observed{}, err
	}
	v, ok := b.db.values[b.key]
	return boundstore.Observed{Limit: v, Exists: ok}, nil
}

func (b *Backend) CompareAndSwap(_ context.Context, expected boundstore.Observed, limit int64) (boundstore.Observed, bool, error) {
	b.db.Lock()
	defer b.db.Unlock()

	if err := b.checkLocked(); err != nil {
		return boundstore.Observed{}, false, err
	}
	v, ok := b.db.values[b.key]
	if actual := (boundstore.Observed{Limit: v, Exists: ok}); actual != expected {
		return actual, false, nil
	}
	b.db.values[b.key] = limit
	b.db.writes++
	if b.db.lost != nil {
		return boundstore.Observed{}, false, b.db.lost
	}
	return boundstore.Observed{Limit: limit, Exists: true}, true, nil
}

func (b *Backend) checkLocked() error {
	if b.closed {
		return errors.ErrStoreClosed
	}
	return b.db.injected
}

func (b *Backend) Close() error {
	b.db.Lock()
	defer b.db.Unlock()

	b.closed = true
	return nil
}
