// Copyright 2016 CodisLabs. All Rights Reserved.
// Licensed under the MIT (MIT-LICENSE.txt) license.

package etcd

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang/glog"
	"go.etcd.io/etcd/api/v3/mvccpb"
	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/leisurelyrcxf/tsoracle/boundstore"
	"github.com/leisurelyrcxf/tsoracle/consts"
	"github.com/leisurelyrcxf/tsoracle/errors"
)

type Client struct {
	sync.Mutex

	addrlist string
	kapi     clientv3.KV
	c        *clientv3.Client

	closed  bool
	timeout time.Duration
}

func NewClient(addrlist string, auth string, timeout time.Duration) (*Client, error) {
	endpoints := strings.Split(addrlist, ",")
	for i, s := range endpoints {
		if s != "" && !strings.HasPrefix(s, "http://") {
			endpoints[i] = "http://" + s
		}
	}
	if timeout <= 0 {
		timeout = consts.DefaultBoundStoreTimeout
	}

	config := clientv3.Config{
		Endpoints:   endpoints,
		DialTimeout: timeout,
	}

	if auth != "" {
		split := strings.SplitN(auth, ":", 2)
		if len(split) != 2 || split[0] == "" {
			return nil, errors.Annotatef(errors.ErrInvalidConfig, "invalid etcd auth")
		}
		config.Username = split[0]
		config.Password = split[1]
	}

	c, err := clientv3.New(config)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return &Client{
		addrlist: addrlist,
		kapi:     clientv3.NewKV(c),
		c:        c,
		timeout:  timeout,
	}, nil
}

func (c *Client) AddrList() string {
	return c.addrlist
}

func (c *Client) Close() error {
	c.Lock()
	defer c.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.c.Close()
}

func (c *Client) isClosed() bool {
	c.Lock()
	defer c.Unlock()
	return c.closed
}

func (c *Client) newContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.timeout)
}

type Backend struct {
	c           *Client
	key         string
	closeClient bool
}

func NewBackend(c *Client, key string) *Backend {
	return &Backend{c: c, key: key}
}

func NewStore(addrlist string, auth string, key string, timeout time.Duration) (*boundstore.Store, error) {
	c, err := NewClient(addrlist, auth, timeout)
	if err != nil {
		return nil, err
	}
	b := NewBackend(c, key)
	b.closeClient = true
	return boundstore.NewStore(fmt.Sprintf("etcd:%s%s", addrlist, key), b), nil
}

func decode(kvs []*mvccpb.KeyValue) (boundstore.Observed, error) {
	if len(kvs) == 0 {
		return boundstore.Observed{}, nil
	}
	limit, err := strconv.ParseInt(string(kvs[0].Value), 10, 64)
	if err != nil {
		return boundstore.Observed{}, errors.Annotatef(errors.ErrCorruptedBound, "%s: %v", kvs[0].Key, err)
	}
	return boundstore.Observed{Limit: limit, Exists: true}, nil
}

func (b *Backend) Load(ctx context.Context) (boundstore.Observed, error) {
	if b.c.isClosed() {
		return boundstore.Observed{}, errors.ErrStoreClosed
	}
	cntx, cancel := b.c.newContext(ctx)
	defer cancel()

	r, err := b.c.kapi.Get(cntx, b.key)
	if err != nil {
		glog.Infof("etcd read node %s failed: %s", b.key, err)
		return boundstore.Observed{}, errors.Trace(err)
	}
	return decode(r.Kvs)
}

func (b *Backend) CompareAndSwap(ctx context.Context, expected boundstore.Observed, limit int64) (boundstore.Observed, bool, error) {
	if b.c.isClosed() {
		return boundstore.Observed{}, false, errors.ErrStoreClosed
	}
	cntx, cancel := b.c.newContext(ctx)
	defer cancel()

	cond := clientv3.Compare(clientv3.Version(b.key), "=", 0)
	if expected.Exists {
		cond = clientv3.Compare(clientv3.Value(b.key), "=", strconv.FormatInt(expected.Limit, 10))
	}
	resp, err := b.c.kapi.Txn(cntx).
		If(cond).
		Then(clientv3.OpPut(b.key, strconv.FormatInt(limit, 10))).
		Else(clientv3.OpGet(b.key)).
		Commit()
	if err != nil {
		glog.Infof("etcd update node %s to %d failed: %s", b.key, limit, err)
		return boundstore.Observed{}, false, errors.Trace(err)
	}
	if resp.Succeeded {
		return boundstore.Observed{Limit: limit, Exists: true}, true, nil
	}
	if len(resp.Responses) == 0 {
		return boundstore.Observed{}, false, errors.Annotatef(errors.ErrNilResponse, "etcd txn on %s", b.key)
	}
	actual, err := decode(resp.Responses[0].GetResponseRange().Kvs)
	return actual, false, err
}

func (b *Backend) Close() error {
	if b.closeClient {
		return b.c.Close()
	}
	return nil
}
