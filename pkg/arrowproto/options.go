package arrowproto

import (
	"github.com/apache/arrow-go/v18/arrow/memory"
	"go.uber.org/zap"
)

type options struct {
	mem    memory.Allocator
	logger *zap.Logger
}

// Option configures a single derive, encode, decode or cast call.
type Option func(*options)

// WithAllocator sets the allocator used for every buffer of the produced arrays.
func WithAllocator(mem memory.Allocator) Option {
	return func(o *options) {
		if mem != nil {
			o.mem = mem
		}
	}
}

// WithLogger sets the logger receiving debug events such as pruned cycles and ignored columns.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func newOptions(opts []Option) *options {
	o := &options{
		mem:    memory.DefaultAllocator,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
