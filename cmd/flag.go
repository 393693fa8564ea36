package cmd

import (
	"flag"
	"time"

	"github.com/golang/glog"

	boundstoreimpl "github.com/leisurelyrcxf/tsoracle/boundstore/impl"
	"github.com/leisurelyrcxf/tsoracle/consts"
	"github.com/leisurelyrcxf/tsoracle/oracle/impl/persistent"
)

var (
	FlagPort *int
)

func RegisterPortFlags(defaultPort int) {
	FlagPort = flag.Int("port", defaultPort, "port")
}

var (
	FlagMetricsPort *int
)

func RegisterMetricsFlags() {
	FlagMetricsPort = flag.Int("metrics-port", consts.DefaultMetricsServerPort, "prometheus metrics port, 0 to disable")
}

var (
	flagStoreType     *string
	flagStoreAddrList *string
	flagStoreAuth     *string
	flagStoreTimeout  *time.Duration
	FlagClusterName   *string
)

func RegisterStoreFlags() {
	FlagClusterName = flag.String("cluster-name", consts.DefaultClusterName, "cluster name")
	flagStoreType = flag.String("store", boundstoreimpl.StoreTypeEtcd, "timestamp bound store type, one of memory, fs, etcd, redis, mongodb, bolt")
	flagStoreAddrList = flag.String("store-addr-list", "127.0.0.1:2379", "store addr list, a directory for fs, a file for bolt")
	flagStoreAuth = flag.String("store-auth", "", "store auth")
	flagStoreTimeout = flag.Duration("store-timeout", consts.DefaultBoundStoreTimeout, "timeout of a single store operation")
}

func NewStoreFactory() *boundstoreimpl.Factory {
	f, err := boundstoreimpl.NewFactory(boundstoreimpl.Config{
		Type:        *flagStoreType,
		AddrList:    *flagStoreAddrList,
		Auth:        *flagStoreAuth,
		ClusterName: *FlagClusterName,
		Timeout:     *flagStoreTimeout,
	})
	if err != nil {
		glog.Fatalf("create %s store factory failed: '%v', addr: %v", *flagStoreType, err, *flagStoreAddrList)
	}
	return f
}

var (
	flagAllocationBufferSize *int64
	flagMaxRequestRangeSize  *int64
	flagTopUpInterval        *time.Duration
	flagInitialBackoff       *time.Duration
)

func RegisterOracleFlags() {
	flagAllocationBufferSize = flag.Int64("allocation-buffer-size", consts.AllocationBufferSize, "timestamps reserved ahead in the bound store")
	flagMaxRequestRangeSize = flag.Int64("max-request-range-size", consts.MaxRequestRangeSize, "max timestamps returned by one request")
	flagTopUpInterval = flag.Duration("top-up-interval", consts.TopUpInterval, "reserve more timestamps if nothing was reserved for this long")
	flagInitialBackoff = flag.Duration("allocator-initial-backoff", consts.DefaultAllocatorInitialBackoff, "initial retry backoff of background allocation")
}

func NewPersistentConfig() persistent.Config {
	cfg := persistent.Config{
		AllocationBufferSize: *flagAllocationBufferSize,
		MaxRequestRangeSize:  *flagMaxRequestRangeSize,
		TopUpInterval:        *flagTopUpInterval,
		InitialBackoff:       *flagInitialBackoff,
	}
	if err := cfg.Validate(); err != nil {
		glog.Fatalf("invalid oracle config: %v", err)
	}
	return cfg
}

func ParseFlags() {
	flag.Parse()
}
