package arrowproto

import (
	"errors"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
)

// Decode converts every row of rec into a message of type mt. Columns are
// matched to fields by name; columns without a field are ignored and
// fields without a column stay unset.
func Decode(rec arrow.Record, mt protoreflect.MessageType, opts ...Option) ([]proto.Message, error) {
	if rec == nil {
		return nil, errors.New("arrowproto: nil record")
	}
	o := newOptions(opts)
	b := &binder{logger: o.logger}
	setters, err := b.fields(rec.Schema().Fields(), mt.Descriptor())
	if err != nil {
		return nil, err
	}

	msgs := make([]protoreflect.Message, rec.NumRows())
	for i := range msgs {
		msgs[i] = mt.New()
	}
	for _, c := range setters {
		col := rec.Column(c.index)
		for row, m := range msgs {
			c.set(m, col, row)
		}
	}

	out := make([]proto.Message, len(msgs))
	for i, m := range msgs {
		out[i] = m.Interface()
	}
	return out, nil
}

// DecodeTable decodes every chunk of tbl in order.
func DecodeTable(tbl arrow.Table, mt protoreflect.MessageType, opts ...Option) ([]proto.Message, error) {
	tr := array.NewTableReader(tbl, -1)
	defer tr.Release()

	out := make([]proto.Message, 0, tbl.NumRows())
	for tr.Next() {
		msgs, err := Decode(tr.Record(), mt, opts...)
		if err != nil {
			return nil, err
		}
		out = append(out, msgs...)
	}
	if err := tr.Err(); err != nil {
		return nil, fmt.Errorf("reading table: %w", err)
	}
	return out, nil
}

// RecordToMessages decodes rec into generated messages of type T.
func RecordToMessages[T proto.Message](rec arrow.Record, opts ...Option) ([]T, error) {
	var zero T
	msgs, err := Decode(rec, zero.ProtoReflect().Type(), opts...)
	if err != nil {
		return nil, err
	}
	out := make([]T, len(msgs))
	for i, m := range msgs {
		out[i] = m.(T)
	}
	return out, nil
}
