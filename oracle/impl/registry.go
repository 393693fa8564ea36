package impl

import (
	"context"
	"sync"

	"github.com/golang/glog"
	"golang.org/x/sync/singleflight"

	"github.com/leisurelyrcxf/tsoracle/boundstore"
	"github.com/leisurelyrcxf/tsoracle/errors"
	"github.com/leisurelyrcxf/tsoracle/oracle"
	"github.com/leisurelyrcxf/tsoracle/oracle/impl/memory"
	"github.com/leisurelyrcxf/tsoracle/oracle/impl/persistent"
	"github.com/leisurelyrcxf/tsoracle/topo"
)

// Service is the per namespace oracle served by a Server.
type Service interface {
	oracle.TimestampService
	oracle.FastForwarder
	Close() error
}

// Factory creates the service of a namespace.
type Factory func(ctx context.Context, namespace string) (Service, error)

type BoundStoreFactory interface {
	NewStore(namespace string) (*boundstore.Store, error)
}

type ObserverFactory func(namespace string) oracle.Observer

// NewPersistentFactory creates persistent services on stores created by stores.
func NewPersistentFactory(stores BoundStoreFactory, newObserver ObserverFactory, opts ...persistent.Option) Factory {
	return func(ctx context.Context, namespace string) (Service, error) {
		store, err := stores.NewStore(namespace)
		if err != nil {
			return nil, err
		}
		serviceOpts := opts
		if newObserver != nil {
			serviceOpts = append(append([]persistent.Option(nil), opts...), persistent.WithObserver(newObserver(namespace)))
		}
		s, err := persistent.NewService(ctx, store, serviceOpts...)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		return s, nil
	}
}

func NewMemoryFactory() Factory {
	return func(context.Context, string) (Service, error) {
		return memory.NewService(), nil
	}
}

// Registry lazily creates one service per namespace. Creation runs outside
// the lock so a slow bound store only delays its own namespace.
type Registry struct {
	sync.Mutex

	factory  Factory
	services map[string]Service
	closed   bool

	creating singleflight.Group
}

func NewRegistry(factory Factory) *Registry {
	return &Registry{
		factory:  factory,
		services: make(map[string]Service),
	}
}

func (r *Registry) Get(ctx context.Context, namespace string) (Service, error) {
	namespace, err := topo.NormalizeNamespace(namespace)
	if err != nil {
		return nil, err
	}
	if s, err := r.lookup(namespace); s != nil || err != nil {
		return s, err
	}

	// Shared by every waiter, so the first caller's cancellation must not abort it.
	createCtx := context.WithoutCancel(ctx)
	ch := r.creating.DoChan(namespace, func() (interface{}, error) {
		return r.create(createCtx, namespace)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(Service), nil
	case <-ctx.Done():
		return nil, errors.Annotatef(errors.ErrInterrupted, "wait for timestamp service of namespace '%s': %v", namespace, ctx.Err())
	}
}

func (r *Registry) lookup(namespace string) (Service, error) {
	r.Lock()
	defer r.Unlock()

	if r.closed {
		return nil, errors.Annotatef(errors.ErrServiceClosed, "registry closed")
	}
	return r.services[namespace], nil
}

func (r *Registry) create(ctx context.Context, namespace string) (Service, error) {
	if s, err := r.lookup(namespace); s != nil || err != nil {
		return s, err
	}

	s, err := r.factory(ctx, namespace)
	if err != nil {
		glog.Errorf("[Registry] create timestamp service for namespace '%s' failed: %v", namespace, err)
		return nil, err
	}

	r.Lock()
	defer r.Unlock()

	if r.closed {
		_ = s.Close()
		return nil, errors.Annotatef(errors.ErrServiceClosed, "registry closed")
	}
	glog.Infof("[Registry] created timestamp service for namespace '%s'", namespace)
	r.services[namespace] = s
	return s, nil
}

func (r *Registry) Namespaces() []string {
	r.Lock()
	defer r.Unlock()

	namespaces := make([]string, 0, len(r.services))
	for ns := range r.services {
		namespaces = append(namespaces, ns)
	}
	return namespaces
}

func (r *Registry) Close() (err error) {
	r.Lock()
	defer r.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true
	for ns, s := range r.services {
		if closeErr := s.Close(); closeErr != nil {
			glog.Errorf("[Registry] close timestamp service for namespace '%s' failed: %v", ns, closeErr)
			err = closeErr
		}
	}
	r.services = nil
	return err
}
