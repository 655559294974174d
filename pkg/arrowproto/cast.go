package arrowproto

import (
	"errors"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"go.uber.org/zap"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"
)

// Cast re-projects rec onto DeriveSchema(md, cfg). Columns are matched by
// name and coerced to the target types; fields without a column are filled
// with nulls when they track presence and with defaults otherwise. The
// input is left untouched.
func Cast(rec arrow.Record, md protoreflect.MessageDescriptor, cfg *Config, opts ...Option) (arrow.Record, error) {
	if rec == nil {
		return nil, errors.New("arrowproto: nil record")
	}
	o := newOptions(opts)
	plan, err := newPlan(md, cfg, o)
	if err != nil {
		return nil, err
	}
	c := newCaster(o)
	c.ignored(plan, rec.Schema().Fields())
	lookup := func(name string) arrow.Array {
		if idx := rec.Schema().FieldIndices(name); len(idx) > 0 {
			return rec.Column(idx[0])
		}
		return nil
	}
	cols, err := c.columns(plan, lookup, int(rec.NumRows()))
	if err != nil {
		return nil, err
	}
	defer releaseArrays(cols)
	return array.NewRecord(plan.schema(), cols, rec.NumRows()), nil
}

// CastStruct casts a struct array onto StructType(md, cfg), keeping its validity.
func CastStruct(arr *array.Struct, md protoreflect.MessageDescriptor, cfg *Config, opts ...Option) (*array.Struct, error) {
	o := newOptions(opts)
	plan, err := newPlan(md, cfg, o)
	if err != nil {
		return nil, err
	}
	out, err := newCaster(o).message(plan, arr, true)
	if err != nil {
		return nil, err
	}
	return out.(*array.Struct), nil
}

// CastTable casts every chunk of tbl. The result has the derived schema even when tbl is empty.
func CastTable(tbl arrow.Table, md protoreflect.MessageDescriptor, cfg *Config, opts ...Option) (arrow.Table, error) {
	schema, err := DeriveSchema(md, cfg, opts...)
	if err != nil {
		return nil, err
	}
	tr := array.NewTableReader(tbl, -1)
	defer tr.Release()

	var recs []arrow.Record
	defer func() {
		for _, r := range recs {
			r.Release()
		}
	}()
	for tr.Next() {
		rec, err := Cast(tr.Record(), md, cfg, opts...)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	if err := tr.Err(); err != nil {
		return nil, fmt.Errorf("reading table: %w", err)
	}
	return array.NewTableFromRecords(schema, recs), nil
}

type caster struct {
	enc    *encoder
	bind   *binder
	logger *zap.Logger
}

func newCaster(o *options) *caster {
	return &caster{
		enc:    &encoder{mem: o.mem},
		bind:   &binder{logger: o.logger},
		logger: o.logger,
	}
}

// ignored logs the input columns that no field of mp reads.
func (c *caster) ignored(mp *messagePlan, fields []arrow.Field) {
	for _, f := range fields {
		if mp.md.Fields().ByName(protoreflect.Name(f.Name)) == nil {
			c.logger.Debug("ignoring column without matching field",
				zap.String("message", string(mp.md.FullName())),
				zap.String("column", f.Name))
		}
	}
}

func (c *caster) columns(mp *messagePlan, lookup func(string) arrow.Array, n int) ([]arrow.Array, error) {
	cols := make([]arrow.Array, len(mp.fields))
	for i, fp := range mp.fields {
		var (
			col arrow.Array
			err error
		)
		if src := lookup(fp.field.Name); src != nil {
			col, err = c.field(fp, src)
		} else {
			c.logger.Debug("synthesizing missing column", zap.String("field", string(fp.fd.FullName())))
			col, err = c.synthesize(fp, n)
		}
		if err != nil {
			releaseArrays(cols[:i])
			return nil, fmt.Errorf("field %s: %w", fp.fd.FullName(), err)
		}
		cols[i] = col
	}
	return cols, nil
}

// synthesize builds a column for a field missing from the input: nulls for
// fields with presence, defaults or empty containers for the others.
func (c *caster) synthesize(fp *fieldPlan, n int) (arrow.Array, error) {
	vals := make([]protoreflect.Value, n)
	if empty := fp.empty(); empty.IsValid() {
		for i := range vals {
			vals[i] = empty
		}
	}
	return c.enc.field(fp, vals)
}

func (c *caster) field(fp *fieldPlan, src arrow.Array) (arrow.Array, error) {
	switch fp.shape {
	case listField:
		return c.list(fp, src)
	case mapField:
		return c.mapped(fp, src)
	default:
		return c.values(fp.value, src, fp.field.Nullable)
	}
}

func (c *caster) values(vp *valuePlan, src arrow.Array, nullable bool) (arrow.Array, error) {
	if vp.kind == messageValue {
		return c.message(vp.msg, src, nullable)
	}
	read, err := c.bind.value(src.DataType(), vp.fd)
	if err != nil {
		return nil, err
	}
	md := vp.fd.Message()
	vals := make([]protoreflect.Value, src.Len())
	for row := range vals {
		if src.IsNull(row) {
			continue
		}
		var dst protoreflect.Value
		if md != nil {
			dst = protoreflect.ValueOfMessage(dynamicpb.NewMessage(md))
		}
		vals[row] = read(dst, src, row)
	}
	return c.enc.values(vp, vals, nullable)
}

func (c *caster) message(mp *messagePlan, src arrow.Array, nullable bool) (arrow.Array, error) {
	st, ok := src.(*array.Struct)
	if !ok {
		return nil, fmt.Errorf("%w: %s cast from %s", ErrColumnMismatch, mp.md.FullName(), src.DataType())
	}
	valid := make([]bool, st.Len())
	for row := range valid {
		valid[row] = !nullable || st.IsValid(row)
	}
	typ := st.DataType().(*arrow.StructType)
	c.ignored(mp, typ.Fields())
	lookup := func(name string) arrow.Array {
		if idx, ok := typ.FieldIdx(name); ok {
			return st.Field(idx)
		}
		return nil
	}
	cols, err := c.columns(mp, lookup, st.Len())
	if err != nil {
		return nil, err
	}
	defer releaseArrays(cols)
	return newStructArray(c.enc.mem, mp.typ, valid, cols), nil
}

// spans returns the validity and base zero offsets of a list like src, and
// the runs of its child that the valid rows cover.
func spans(src arrow.Array, ls array.ListLike, nullable bool) ([]bool, []int64, [][2]int64) {
	n := src.Len()
	valid := make([]bool, n)
	offsets := make([]int64, n+1)
	var runs [][2]int64
	for row := 0; row < n; row++ {
		if src.IsNull(row) {
			valid[row] = !nullable
			offsets[row+1] = offsets[row]
			continue
		}
		valid[row] = true
		start, end := ls.ValueOffsets(row)
		runs = addRun(runs, start, end)
		offsets[row+1] = offsets[row] + end - start
	}
	return valid, offsets, runs
}

func (c *caster) list(fp *fieldPlan, src arrow.Array) (arrow.Array, error) {
	id := src.DataType().ID()
	if id != arrow.LIST && id != arrow.LARGE_LIST {
		return nil, fmt.Errorf("%w: list cast from %s", ErrColumnMismatch, src.DataType())
	}
	ls := src.(array.ListLike)
	valid, offsets, runs := spans(src, ls, fp.field.Nullable)

	elems, err := gather(c.enc.mem, ls.ListValues(), runs)
	if err != nil {
		return nil, err
	}
	defer elems.Release()
	child, err := c.values(fp.value, elems, fp.elemNullable)
	if err != nil {
		return nil, err
	}
	defer child.Release()
	return newListArray(c.enc.mem, fp.field.Type, valid, offsets, child), nil
}

func (c *caster) mapped(fp *fieldPlan, src arrow.Array) (arrow.Array, error) {
	ma, ok := src.(*array.Map)
	if !ok {
		return nil, fmt.Errorf("%w: map cast from %s", ErrColumnMismatch, src.DataType())
	}
	valid, offsets, runs := spans(src, ma, fp.field.Nullable)

	keys, err := gather(c.enc.mem, ma.Keys(), runs)
	if err != nil {
		return nil, err
	}
	defer keys.Release()
	items, err := gather(c.enc.mem, ma.Items(), runs)
	if err != nil {
		return nil, err
	}
	defer items.Release()

	keyArr, err := c.values(fp.key, keys, false)
	if err != nil {
		return nil, err
	}
	defer keyArr.Release()
	itemArr, err := c.values(fp.value, items, fp.elemNullable)
	if err != nil {
		return nil, err
	}
	defer itemArr.Release()
	return newMapArray(c.enc.mem, fp.field.Type.(*arrow.MapType), valid, offsets, keyArr, itemArr), nil
}
