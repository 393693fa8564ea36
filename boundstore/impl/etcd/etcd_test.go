package etcd

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/leisurelyrcxf/tsoracle/boundstore"
)

func newTestClient(t *testing.T) *Client {
	addr := os.Getenv("TSORACLE_TEST_ETCD_ADDR")
	if addr == "" {
		addr = "127.0.0.1:2379"
	}
	cli, err := NewClient(addr, "", 2*time.Second)
	if err != nil {
		t.Skipf("etcd not available at %s: %v", addr, err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := cli.c.Status(ctx, cli.c.Endpoints()[0]); err != nil {
		_ = cli.Close()
		t.Skipf("etcd not available at %s: %v", addr, err)
	}
	return cli
}

func TestBackend(t *testing.T) {
	cli := newTestClient(t)
	defer cli.Close()

	boundstore.RunBackendTests(t, func(key string) (boundstore.Backend, error) {
		return NewBackend(cli, key), nil
	})
}
