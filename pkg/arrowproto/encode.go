package arrowproto

import (
	"fmt"
	"sort"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"
)

// Encode converts msgs into a record whose schema is DeriveSchema(md, cfg).
// A nil entry produces a row where every field is unset.
func Encode(msgs []proto.Message, md protoreflect.MessageDescriptor, cfg *Config, opts ...Option) (arrow.Record, error) {
	o := newOptions(opts)
	plan, err := newPlan(md, cfg, o)
	if err != nil {
		return nil, err
	}

	parents := make([]protoreflect.Value, len(msgs))
	for i, msg := range msgs {
		if msg == nil {
			continue
		}
		m := msg.ProtoReflect()
		if got := m.Descriptor().FullName(); got != md.FullName() {
			return nil, fmt.Errorf("message %d: expected %s, got %s", i, md.FullName(), got)
		}
		if m.IsValid() {
			parents[i] = protoreflect.ValueOfMessage(m)
		}
	}

	enc := &encoder{mem: o.mem}
	cols, err := enc.columns(plan, parents)
	if err != nil {
		return nil, err
	}
	defer releaseArrays(cols)
	return array.NewRecord(plan.schema(), cols, int64(len(msgs))), nil
}

// EncodeTable is Encode returning a single chunk table.
func EncodeTable(msgs []proto.Message, md protoreflect.MessageDescriptor, cfg *Config, opts ...Option) (arrow.Table, error) {
	rec, err := Encode(msgs, md, cfg, opts...)
	if err != nil {
		return nil, err
	}
	defer rec.Release()
	return array.NewTableFromRecords(rec.Schema(), []arrow.Record{rec}), nil
}

// MessagesToRecord encodes generated messages of type T.
func MessagesToRecord[T proto.Message](msgs []T, cfg *Config, opts ...Option) (arrow.Record, error) {
	var zero T
	in := make([]proto.Message, len(msgs))
	for i, m := range msgs {
		in[i] = m
	}
	return Encode(in, zero.ProtoReflect().Descriptor(), cfg, opts...)
}

type encoder struct {
	mem memory.Allocator
}

// columns encodes every field of mp over the parent messages. Invalid
// parents are absent rows.
func (e *encoder) columns(mp *messagePlan, parents []protoreflect.Value) ([]arrow.Array, error) {
	cols := make([]arrow.Array, len(mp.fields))
	vals := make([]protoreflect.Value, len(parents))
	for i, fp := range mp.fields {
		for r, p := range parents {
			if p.IsValid() {
				vals[r] = fp.get(p.Message())
			} else {
				vals[r] = protoreflect.Value{}
			}
		}
		col, err := e.field(fp, vals)
		if err != nil {
			releaseArrays(cols[:i])
			return nil, fmt.Errorf("field %s: %w", fp.fd.FullName(), err)
		}
		cols[i] = col
	}
	return cols, nil
}

func (e *encoder) field(fp *fieldPlan, vals []protoreflect.Value) (arrow.Array, error) {
	switch fp.shape {
	case listField:
		return e.list(fp, vals)
	case mapField:
		return e.mapped(fp, vals)
	default:
		return e.values(fp.value, vals, fp.field.Nullable)
	}
}

func (e *encoder) values(vp *valuePlan, vals []protoreflect.Value, nullable bool) (arrow.Array, error) {
	switch {
	case vp.kind == messageValue:
		return e.message(vp.msg, vals, nullable)
	case vp.kind == enumValue && vp.typ.ID() == arrow.DICTIONARY:
		return dictionaryEnum(e.mem, vp, vals, nullable)
	default:
		return leaf(e.mem, vp, vals, nullable)
	}
}

func (e *encoder) message(mp *messagePlan, vals []protoreflect.Value, nullable bool) (arrow.Array, error) {
	valid := make([]bool, len(vals))
	parents := make([]protoreflect.Value, len(vals))
	var empty protoreflect.Value
	for r, v := range vals {
		switch {
		case v.IsValid():
			valid[r], parents[r] = true, v
		case !nullable:
			if !empty.IsValid() {
				empty = protoreflect.ValueOfMessage(dynamicpb.NewMessage(mp.md))
			}
			valid[r], parents[r] = true, empty
		}
	}
	cols, err := e.columns(mp, parents)
	if err != nil {
		return nil, err
	}
	defer releaseArrays(cols)
	return newStructArray(e.mem, mp.typ, valid, cols), nil
}

// list flattens the elements of every row. An absent list is null when the
// column is nullable and empty otherwise.
func (e *encoder) list(fp *fieldPlan, vals []protoreflect.Value) (arrow.Array, error) {
	valid := make([]bool, len(vals))
	offsets := make([]int64, len(vals)+1)
	var elems []protoreflect.Value
	for r, v := range vals {
		valid[r] = v.IsValid() || !fp.field.Nullable
		if v.IsValid() {
			l := v.List()
			for j := 0; j < l.Len(); j++ {
				elems = append(elems, l.Get(j))
			}
		}
		offsets[r+1] = int64(len(elems))
	}
	child, err := e.values(fp.value, elems, fp.elemNullable)
	if err != nil {
		return nil, err
	}
	defer child.Release()
	return newListArray(e.mem, fp.field.Type, valid, offsets, child), nil
}

// mapped flattens the entries of every row, sorted by key.
func (e *encoder) mapped(fp *fieldPlan, vals []protoreflect.Value) (arrow.Array, error) {
	valid := make([]bool, len(vals))
	offsets := make([]int64, len(vals)+1)
	var keys, items []protoreflect.Value
	for r, v := range vals {
		valid[r] = v.IsValid() || !fp.field.Nullable
		if v.IsValid() {
			m := v.Map()
			mk := make([]protoreflect.MapKey, 0, m.Len())
			m.Range(func(k protoreflect.MapKey, _ protoreflect.Value) bool {
				mk = append(mk, k)
				return true
			})
			sort.Slice(mk, func(i, j int) bool { return lessMapKey(mk[i], mk[j]) })
			for _, k := range mk {
				keys = append(keys, k.Value())
				items = append(items, m.Get(k))
			}
		}
		offsets[r+1] = int64(len(keys))
	}

	keyArr, err := e.values(fp.key, keys, false)
	if err != nil {
		return nil, err
	}
	defer keyArr.Release()
	itemArr, err := e.values(fp.value, items, fp.elemNullable)
	if err != nil {
		return nil, err
	}
	defer itemArr.Release()
	return newMapArray(e.mem, fp.field.Type.(*arrow.MapType), valid, offsets, keyArr, itemArr), nil
}

func lessMapKey(a, b protoreflect.MapKey) bool {
	switch x := a.Interface().(type) {
	case bool:
		return !x && b.Bool()
	case int32, int64:
		return a.Int() < b.Int()
	case uint32, uint64:
		return a.Uint() < b.Uint()
	case string:
		return x < b.String()
	}
	return false
}
