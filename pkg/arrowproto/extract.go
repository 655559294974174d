package arrowproto

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
)

// RowExtractor reads single rows of records sharing one schema. The
// per-column readers are bound once in NewRowExtractor, so ReadRow does
// no schema lookup. A RowExtractor is safe for concurrent use.
type RowExtractor struct {
	schema  *arrow.Schema
	mt      protoreflect.MessageType
	setters []columnSetter
}

func NewRowExtractor(schema *arrow.Schema, mt protoreflect.MessageType, opts ...Option) (*RowExtractor, error) {
	o := newOptions(opts)
	b := &binder{logger: o.logger}
	setters, err := b.fields(schema.Fields(), mt.Descriptor())
	if err != nil {
		return nil, err
	}
	return &RowExtractor{schema: schema, mt: mt, setters: setters}, nil
}

// ReadRow returns row of rec as a new message.
func (x *RowExtractor) ReadRow(rec arrow.Record, row int) (proto.Message, error) {
	if s := rec.Schema(); s != x.schema && !s.Equal(x.schema) {
		return nil, fmt.Errorf("%w: record schema differs from extractor schema", ErrColumnMismatch)
	}
	if row < 0 || int64(row) >= rec.NumRows() {
		return nil, fmt.Errorf("row %d out of range [0, %d)", row, rec.NumRows())
	}
	m := x.mt.New()
	for _, c := range x.setters {
		c.set(m, rec.Column(c.index), row)
	}
	return m.Interface(), nil
}
