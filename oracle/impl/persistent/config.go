package persistent

import (
	"time"

	"github.com/leisurelyrcxf/tsoracle/consts"
	"github.com/leisurelyrcxf/tsoracle/errors"
	"github.com/leisurelyrcxf/tsoracle/oracle"
	"github.com/leisurelyrcxf/tsoracle/oracle/observer"
	"github.com/leisurelyrcxf/tsoracle/types"
)

type Config struct {
	// AllocationBufferSize is how far ahead of the last handed out timestamp the upper limit is persisted.
	AllocationBufferSize int64
	// MaxRequestRangeSize caps the size of a single range request.
	MaxRequestRangeSize int64
	TopUpInterval       time.Duration
	InitialBackoff      time.Duration
}

func NewDefaultConfig() Config {
	return Config{
		AllocationBufferSize: consts.AllocationBufferSize,
		MaxRequestRangeSize:  consts.MaxRequestRangeSize,
		TopUpInterval:        consts.TopUpInterval,
		InitialBackoff:       consts.DefaultAllocatorInitialBackoff,
	}
}

func (cfg Config) Validate() error {
	if cfg.MaxRequestRangeSize <= 0 {
		return errors.Annotatef(errors.ErrInvalidConfig, "max request range size must be positive, got %d", cfg.MaxRequestRangeSize)
	}
	if cfg.AllocationBufferSize < cfg.MaxRequestRangeSize {
		return errors.Annotatef(errors.ErrInvalidConfig, "allocation buffer size %d smaller than max request range size %d",
			cfg.AllocationBufferSize, cfg.MaxRequestRangeSize)
	}
	if cfg.TopUpInterval <= 0 || cfg.InitialBackoff <= 0 {
		return errors.Annotatef(errors.ErrInvalidConfig, "top up interval and initial backoff must be positive")
	}
	return nil
}

type options struct {
	cfg      Config
	clock    types.Clock
	observer oracle.Observer
}

type Option func(*options)

func WithConfig(cfg Config) Option {
	return func(o *options) {
		o.cfg = cfg
	}
}

func WithClock(clock types.Clock) Option {
	return func(o *options) {
		o.clock = clock
	}
}

func WithObserver(observer oracle.Observer) Option {
	return func(o *options) {
		o.observer = observer
	}
}

func newOptions(opts []Option) options {
	o := options{
		cfg:      NewDefaultConfig(),
		clock:    types.NewSystemClock(),
		observer: observer.Nop{},
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.observer == nil {
		o.observer = observer.Nop{}
	}
	return o
}
