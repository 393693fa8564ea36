package impl

import (
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/leisurelyrcxf/tsoracle/boundstore"
	"github.com/leisurelyrcxf/tsoracle/boundstore/impl/bolt"
	"github.com/leisurelyrcxf/tsoracle/boundstore/impl/etcd"
	"github.com/leisurelyrcxf/tsoracle/boundstore/impl/fs"
	"github.com/leisurelyrcxf/tsoracle/boundstore/impl/memory"
	"github.com/leisurelyrcxf/tsoracle/boundstore/impl/mongodb"
	"github.com/leisurelyrcxf/tsoracle/boundstore/impl/redis"
	"github.com/leisurelyrcxf/tsoracle/errors"
	"github.com/leisurelyrcxf/tsoracle/topo"
)

const (
	StoreTypeMemory  = "memory"
	StoreTypeFs      = "fs"
	StoreTypeEtcd    = "etcd"
	StoreTypeRedis   = "redis"
	StoreTypeMongoDB = "mongodb"
	StoreTypeBolt    = "bolt"
)

type Config struct {
	Type        string
	AddrList    string
	Auth        string
	ClusterName string
	Timeout     time.Duration
}

// Factory opens one bound store per namespace. Memory and bolt media are
// opened once per factory and shared by the namespaces.
type Factory struct {
	sync.Mutex

	cfg    Config
	mem    *memory.DB
	boltDB *bolt.DB
}

func NewFactory(cfg Config) (*Factory, error) {
	switch cfg.Type {
	case StoreTypeMemory, StoreTypeFs, "filesystem", StoreTypeEtcd, StoreTypeRedis, StoreTypeMongoDB, StoreTypeBolt:
	default:
		return nil, errors.Annotatef(errors.ErrInvalidConfig, "invalid bound store type '%s'", cfg.Type)
	}
	return &Factory{cfg: cfg, mem: memory.NewDB()}, nil
}

func (f *Factory) NewStore(namespace string) (*boundstore.Store, error) {
	path := topo.TimestampBoundPath(f.cfg.ClusterName, namespace)
	switch f.cfg.Type {
	case StoreTypeMemory:
		return f.mem.NewStore(path), nil
	case StoreTypeFs, "filesystem":
		return fs.NewStore(f.cfg.AddrList, path)
	case StoreTypeEtcd:
		return etcd.NewStore(f.cfg.AddrList, f.cfg.Auth, path, f.cfg.Timeout)
	case StoreTypeRedis:
		return redis.NewStore(f.cfg.AddrList, f.cfg.Auth, path, f.cfg.Timeout)
	case StoreTypeMongoDB:
		return mongodb.NewStore(f.cfg.AddrList, f.mongoCredential(), path, f.cfg.Timeout)
	case StoreTypeBolt:
		db, err := f.getBoltDB()
		if err != nil {
			return nil, err
		}
		return boundstore.NewStore("bolt:"+f.cfg.AddrList+path, db.NewBackend(path)), nil
	}
	return nil, errors.Annotatef(errors.ErrInvalidConfig, "invalid bound store type '%s'", f.cfg.Type)
}

func (f *Factory) getBoltDB() (*bolt.DB, error) {
	f.Lock()
	defer f.Unlock()

	if f.boltDB == nil {
		db, err := bolt.Open(f.cfg.AddrList, f.cfg.Timeout)
		if err != nil {
			return nil, err
		}
		f.boltDB = db
	}
	return f.boltDB, nil
}

func (f *Factory) mongoCredential() *options.Credential {
	if f.cfg.Auth == "" {
		return nil
	}
	split := strings.SplitN(f.cfg.Auth, ":", 2)
	cred := &options.Credential{Username: split[0]}
	if len(split) == 2 {
		cred.Password = split[1]
	}
	return cred
}

// Close releases media shared by the stores, call it after closing them.
func (f *Factory) Close() error {
	f.Lock()
	defer f.Unlock()

	if f.boltDB != nil {
		err := f.boltDB.Close()
		f.boltDB = nil
		return err
	}
	return nil
}
