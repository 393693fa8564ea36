package bolt

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/golang/glog"
	bolt "go.etcd.io/bbolt"

	"github.com/leisurelyrcxf/tsoracle/boundstore"
	"github.com/leisurelyrcxf/tsoracle/errors"
)

var bucketBounds = []byte("timestamp_bounds")

// DB is a bbolt file. bbolt holds an exclusive file lock, so backends sharing
// one file inside a process must come from the same DB.
type DB struct {
	db   *bolt.DB
	path string
}

func Open(path string, timeout time.Duration) (*DB, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: timeout})
	if err != nil {
		return nil, errors.Annotatef(errors.Trace(err), "open bolt file %s", path)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketBounds)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, errors.Trace(err)
	}
	return &DB{db: db, path: path}, nil
}

func (db *DB) NewBackend(key string) *Backend {
	return &Backend{db: db, key: []byte(key)}
}

func (db *DB) Close() error {
	return db.db.Close()
}

type Backend struct {
	db      *DB
	key     []byte
	closeDB bool
}

func NewStore(path string, key string, timeout time.Duration) (*boundstore.Store, error) {
	db, err := Open(path, timeout)
	if err != nil {
		return nil, err
	}
	b := db.NewBackend(key)
	b.closeDB = true
	return boundstore.NewStore(fmt.Sprintf("bolt:%s%s", path, key), b), nil
}

func (b *Backend) read(tx *bolt.Tx) (boundstore.Observed, error) {
	v := tx.Bucket(bucketBounds).Get(b.key)
	if v == nil {
		return boundstore.Observed{}, nil
	}
	if len(v) != 8 {
		return boundstore.Observed{}, errors.Annotatef(errors.ErrCorruptedBound, "%s: %d bytes", b.key, len(v))
	}
	return boundstore.Observed{Limit: int64(binary.BigEndian.Uint64(v)), Exists: true}, nil
}

func (b *Backend) Load(ctx context.Context) (o boundstore.Observed, err error) {
	if err := ctx.Err(); err != nil {
		return o, err
	}
	err = b.db.db.View(func(tx *bolt.Tx) error {
		o, err = b.read(tx)
		return err
	})
	return o, err
}

func (b *Backend) CompareAndSwap(ctx context.Context, expected boundstore.Observed, limit int64) (actual boundstore.Observed, swapped bool, err error) {
	if err := ctx.Err(); err != nil {
		return actual, false, err
	}
	err = b.db.db.Update(func(tx *bolt.Tx) error {
		if actual, err = b.read(tx); err != nil || actual != expected {
			return err
		}
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], uint64(limit))
		if err := tx.Bucket(bucketBounds).Put(b.key, buf[:]); err != nil {
			glog.Warningf("bolt put %s to %d failed: %v", b.key, limit, err)
			return err
		}
		actual, swapped = boundstore.Observed{Limit: limit, Exists: true}, true
		return nil
	})
	if err != nil {
		return boundstore.Observed{}, false, errors.Trace(err)
	}
	return actual, swapped, nil
}

func (b *Backend) Close() error {
	if b.closeDB {
		return b.db.Close()
	}
	return nil
}
