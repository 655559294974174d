package arrowproto

import (
	"errors"

	"github.com/apache/arrow-go/v18/arrow"
	"google.golang.org/protobuf/reflect/protoreflect"
)

var errNilConfig = errors.New("arrowproto: nil config")

// DeriveSchema returns the schema of the records Encode produces for md
// under cfg. Fields follow the declaration order of md. The result depends
// only on md and cfg, so it can be computed before any message exists.
func DeriveSchema(md protoreflect.MessageDescriptor, cfg *Config, opts ...Option) (*arrow.Schema, error) {
	plan, err := newPlan(md, cfg, newOptions(opts))
	if err != nil {
		return nil, err
	}
	return plan.schema(), nil
}

// StructType returns the derived schema of md as a single struct type, the
// type md takes when it is nested in another message.
func StructType(md protoreflect.MessageDescriptor, cfg *Config, opts ...Option) (*arrow.StructType, error) {
	plan, err := newPlan(md, cfg, newOptions(opts))
	if err != nil {
		return nil, err
	}
	return plan.typ, nil
}

func newPlan(md protoreflect.MessageDescriptor, cfg *Config, o *options) (*messagePlan, error) {
	if cfg == nil {
		return nil, errNilConfig
	}
	if md == nil {
		return nil, errors.New("arrowproto: nil message descriptor")
	}
	return derive(md, cfg, o.logger)
}
