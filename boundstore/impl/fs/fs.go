// Copyright 2016 CodisLabs. All Rights Reserved.
// Licensed under the MIT (MIT-LICENSE.txt) license.

package fs

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/golang/glog"

	"github.com/leisurelyrcxf/tsoracle/boundstore"
	"github.com/leisurelyrcxf/tsoracle/errors"
)

// Backend keeps the bound in a file under RootDir. An exclusive flock on
// LockFile makes compare-and-swap atomic across processes sharing the directory.
type Backend struct {
	sync.Mutex

	RootDir  string
	DataDir  string
	TempDir  string
	LockFile string

	path   string
	lockfd *os.File
	closed bool
}

func NewBackend(dir string, path string) (*Backend, error) {
	fullpath, err := filepath.Abs(dir)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return &Backend{
		RootDir:  fullpath,
		DataDir:  filepath.Join(fullpath, "data"),
		TempDir:  filepath.Join(fullpath, "temp"),
		LockFile: filepath.Join(fullpath, "data.lck"),
		path:     path,
	}, nil
}

func NewStore(dir string, path string) (*boundstore.Store, error) {
	b, err := NewBackend(dir, path)
	if err != nil {
		return nil, err
	}
	return boundstore.NewStore(fmt.Sprintf("fs:%s%s", b.RootDir, path), b), nil
}

func (b *Backend) realpath() string {
	return filepath.Join(b.DataDir, filepath.Clean(b.path))
}

func mkdirAll(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Trace(err)
	}
	return nil
}

func mkdirFor(file string) error {
	dir, _ := filepath.Split(file)
	if dir != "" {
		return mkdirAll(dir)
	}
	return nil
}

func (b *Backend) lockFs() error {
	if b.lockfd != nil {
		return errors.Errorf("lock again")
	}
	if err := mkdirFor(b.LockFile); err != nil {
		return err
	}
	f, err := os.OpenFile(b.LockFile, os.O_WRONLY|os.O_CREATE, 0644)
	if err != nil {
		return errors.Trace(err)
	}
	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX); err != nil {
		f.Close()
		return errors.Trace(err)
	}
	var data = map[string]interface{}{
		"pid": os.Getpid(),
		"now": time.Now().String(),
	}
	if bs, err := json.MarshalIndent(data, "", "    "); err != nil {
		glog.Warningf("fs bound store - lock encode json failed: %v", err)
	} else if err := f.Truncate(0); err != nil {
		glog.Warningf("fs bound store - lock truncate failed: %v", err)
	} else if _, err := f.WriteAt(bs, 0); err != nil {
		glog.Warningf("fs bound store - lock write failed: %v", err)
	}
	b.lockfd = f
	return nil
}

func (b *Backend) unlockFs() {
	var f = b.lockfd
	if f == nil {
		glog.Fatalf("unlock again")
	}
	defer func() {
		if err := f.Close(); err != nil {
			glog.Warningf("fs bound store - unlock close failed: %v", err)
		}
	}()

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_UN); err != nil {
		glog.Errorf("fs bound store - unlock flock failed: %v", err)
	}
	b.lockfd = nil
}

// withLock runs f holding both the in-process mutex and the directory flock.
func (b *Backend) withLock(ctx context.Context, f func() error) error {
	b.Lock()
	defer b.Unlock()
	if b.closed {
		return errors.ErrStoreClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := b.lockFs(); err != nil {
		return err
	}
	defer b.unlockFs()
	return f()
}

func (b *Backend) readLocked() (boundstore.Observed, error) {
	data, err := os.ReadFile(b.realpath())
	if err != nil {
		if os.IsNotExist(err) {
			return boundstore.Observed{}, nil
		}
		glog.Warningf("fs bound store - read %s failed", b.path)
		return boundstore.Observed{}, errors.Trace(err)
	}
	limit, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return boundstore.Observed{}, errors.Annotatef(errors.ErrCorruptedBound, "%s: %v", b.path, err)
	}
	return boundstore.Observed{Limit: limit, Exists: true}, nil
}

func (b *Backend) newTempFile() (*os.File, error) {
	if err := mkdirAll(b.TempDir); err != nil {
		return nil, err
	}
	prefix := fmt.Sprintf("%d.", int(time.Now().Unix()))
	f, err := os.CreateTemp(b.TempDir, prefix)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return f, nil
}

func (b *Backend) writeLocked(data []byte) error {
	realpath := b.realpath()
	if err := mkdirFor(realpath); err != nil {
		return err
	}

	f, err := b.newTempFile()
	if err != nil {
		return err
	}
	defer f.Close()

	var writeThenRename = func() error {
		if _, err := f.Write(data); err != nil {
			return errors.Trace(err)
		}
		if err := f.Sync(); err != nil {
			return errors.Trace(err)
		}
		if err := f.Close(); err != nil {
			return errors.Trace(err)
		}
		if err := os.Rename(f.Name(), realpath); err != nil {
			return errors.Trace(err)
		}
		return syncDir(filepath.Dir(realpath))
	}
	if err := writeThenRename(); err != nil {
		os.Remove(f.Name())
		return err
	}
	return nil
}

// syncDir makes a rename inside dir durable.
func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return errors.Trace(err)
	}
	defer d.Close()

	if err := d.Sync(); err != nil {
		return errors.Trace(err)
	}
	return nil
}

func (b *Backend) Load(ctx context.Context) (o boundstore.Observed, err error) {
	err = b.withLock(ctx, func() error {
		o, err = b.readLocked()
		return err
	})
	return o, err
}

func (b *Backend) CompareAndSwap(ctx context.Context, expected boundstore.Observed, limit int64) (actual boundstore.Observed, swapped bool, err error) {
	err = b.withLock(ctx, func() error {
		if actual, err = b.readLocked(); err != nil {
			return err
		}
		if actual != expected {
			return nil
		}
		if err := b.writeLocked([]byte(strconv.FormatInt(limit, 10))); err != nil {
			glog.Warningf("fs bound store - update %s to %d failed: %v", b.path, limit, err)
			return err
		}
		actual, swapped = boundstore.Observed{Limit: limit, Exists: true}, true
		return nil
	})
	return actual, swapped, err
}

func (b *Backend) Close() error {
	b.Lock()
	defer b.Unlock()

	b.closed = true
	return nil
}
