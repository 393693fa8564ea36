package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis"
	"github.com/golang/glog"

	"github.com/leisurelyrcxf/tsoracle/boundstore"
	"github.com/leisurelyrcxf/tsoracle/consts"
	"github.com/leisurelyrcxf/tsoracle/errors"
)

// casScript sets KEYS[1] to ARGV[2] iff its current value is ARGV[1], an
// empty ARGV[1] standing for an absent key. Returns {swapped, current}.
var casScript = redis.NewScript(`
local cur = redis.call('GET', KEYS[1])
if cur == false then
	cur = ''
end
if cur == ARGV[1] then
	redis.call('SET', KEYS[1], ARGV[2])
	return {1, ARGV[2]}
end
return {0, cur}
`)

func NewClient(addr string, auth string, timeout time.Duration) (*redis.Client, error) {
	if timeout <= 0 {
		timeout = consts.DefaultBoundStoreTimeout
	}
	cli := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     auth,
		DialTimeout:  timeout,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	})
	if _, err := cli.Ping().Result(); err != nil {
		_ = cli.Close()
		return nil, errors.Trace(err)
	}
	return cli, nil
}

type Backend struct {
	cli         *redis.Client
	key         string
	closeClient bool
}

func NewBackend(cli *redis.Client, key string) *Backend {
	return &Backend{cli: cli, key: key}
}

func NewStore(addr string, auth string, key string, timeout time.Duration) (*boundstore.Store, error) {
	cli, err := NewClient(addr, auth, timeout)
	if err != nil {
		return nil, err
	}
	b := NewBackend(cli, key)
	b.closeClient = true
	return boundstore.NewStore(fmt.Sprintf("redis:%s%s", addr, b.key), b), nil
}

func encode(o boundstore.Observed) string {
	if !o.Exists {
		return ""
	}
	return strconv.FormatInt(o.Limit, 10)
}

func (b *Backend) decode(s string) (boundstore.Observed, error) {
	if s == "" {
		return boundstore.Observed{}, nil
	}
	limit, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return boundstore.Observed{}, errors.Annotatef(errors.ErrCorruptedBound, "%s: %v", b.key, err)
	}
	return boundstore.Observed{Limit: limit, Exists: true}, nil
}

func (b *Backend) Load(ctx context.Context) (boundstore.Observed, error) {
	s, err := b.cli.WithContext(ctx).Get(b.key).Result()
	if err == redis.Nil {
		return boundstore.Observed{}, nil
	}
	if err != nil {
		glog.Warningf("redis get %s failed: %v", b.key, err)
		return boundstore.Observed{}, errors.Trace(err)
	}
	return b.decode(s)
}

func (b *Backend) CompareAndSwap(ctx context.Context, expected boundstore.Observed, limit int64) (boundstore.Observed, bool, error) {
	ret, err := casScript.Run(b.cli.WithContext(ctx), []string{b.key}, encode(expected), strconv.FormatInt(limit, 10)).Result()
	if err != nil {
		glog.Warningf("redis cas %s to %d failed: %v", b.key, limit, err)
		return boundstore.Observed{}, false, errors.Trace(err)
	}
	items, ok := ret.([]interface{})
	if !ok || len(items) != 2 {
		return boundstore.Observed{}, false, errors.Annotatef(errors.ErrNilResponse, "unexpected redis cas reply %v", ret)
	}
	swapped, _ := items[0].(int64)
	cur, _ := items[1].(string)
	actual, err := b.decode(cur)
	if err != nil {
		return boundstore.Observed{}, false, err
	}
	return actual, swapped == 1, nil
}

func (b *Backend) Close() error {
	if b.closeClient {
		return b.cli.Close()
	}
	return nil
}
