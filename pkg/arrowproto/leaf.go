package arrowproto

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"google.golang.org/protobuf/reflect/protoreflect"
)

// appendFn appends one present value to the builder it was set up with.
type appendFn func(protoreflect.Value)

// enumName returns the name of n in ed, falling back to the first declared
// value for numbers ed does not know.
func enumName(ed protoreflect.EnumDescriptor, n protoreflect.EnumNumber) string {
	if ev := ed.Values().ByNumber(n); ev != nil {
		return string(ev.Name())
	}
	return string(ed.Values().Get(0).Name())
}

// stringAppender returns a function appending s to b, converting to bytes
// for binary builders.
func stringAppender(b array.Builder) (func(string), bool) {
	switch b := b.(type) {
	case *array.StringBuilder:
		return b.Append, true
	case *array.LargeStringBuilder:
		return b.Append, true
	case *array.BinaryBuilder:
		return b.AppendString, true
	}
	return nil, false
}

func (vp *valuePlan) setup(b array.Builder) (appendFn, error) {
	switch vp.kind {
	case scalarValue:
		return scalarAppender(b, vp.fd)
	case enumValue:
		ed := vp.fd.Enum()
		if b, ok := b.(*array.Int32Builder); ok {
			return func(v protoreflect.Value) { b.Append(int32(v.Enum())) }, nil
		}
		if app, ok := stringAppender(b); ok {
			return func(v protoreflect.Value) { app(enumName(ed, v.Enum())) }, nil
		}
		return nil, &EnumTypeError{Field: vp.fd.FullName(), Type: vp.typ.String()}
	case wrapperValue:
		inner, err := vp.inner.setup(b)
		if err != nil {
			return nil, err
		}
		innerFd := vp.inner.fd
		return func(v protoreflect.Value) {
			m := v.Message()
			if fd := m.Descriptor().Fields().ByNumber(innerFd.Number()); fd != nil {
				inner(m.Get(fd))
				return
			}
			inner(innerFd.Default())
		}, nil
	}

	unit := vp.unit
	switch b := b.(type) {
	case *array.TimestampBuilder:
		return func(v protoreflect.Value) {
			b.Append(arrow.Timestamp(timestampToUnit(v.Message(), unit)))
		}, nil
	case *array.DurationBuilder:
		return func(v protoreflect.Value) {
			b.Append(arrow.Duration(durationToUnit(v.Message(), unit)))
		}, nil
	case *array.Time32Builder:
		return func(v protoreflect.Value) {
			b.Append(arrow.Time32(timeOfDayToUnit(v.Message(), unit)))
		}, nil
	case *array.Time64Builder:
		return func(v protoreflect.Value) {
			b.Append(arrow.Time64(timeOfDayToUnit(v.Message(), unit)))
		}, nil
	case *array.Date32Builder:
		return func(v protoreflect.Value) {
			b.Append(arrow.Date32(dateToDays(v.Message())))
		}, nil
	}
	return nil, fmt.Errorf("field %s: no writer for %s", vp.fd.FullName(), vp.typ)
}

func scalarAppender(b array.Builder, fd protoreflect.FieldDescriptor) (appendFn, error) {
	switch b := b.(type) {
	case *array.BooleanBuilder:
		return func(v protoreflect.Value) { b.Append(v.Bool()) }, nil
	case *array.Int32Builder:
		return func(v protoreflect.Value) { b.Append(int32(v.Int())) }, nil
	case *array.Int64Builder:
		return func(v protoreflect.Value) { b.Append(v.Int()) }, nil
	case *array.Uint32Builder:
		return func(v protoreflect.Value) { b.Append(uint32(v.Uint())) }, nil
	case *array.Uint64Builder:
		return func(v protoreflect.Value) { b.Append(v.Uint()) }, nil
	case *array.Float32Builder:
		return func(v protoreflect.Value) { b.Append(float32(v.Float())) }, nil
	case *array.Float64Builder:
		return func(v protoreflect.Value) { b.Append(v.Float()) }, nil
	case *array.StringBuilder:
		return func(v protoreflect.Value) { b.Append(v.String()) }, nil
	case *array.LargeStringBuilder:
		return func(v protoreflect.Value) { b.Append(v.String()) }, nil
	case *array.BinaryBuilder:
		return func(v protoreflect.Value) { b.Append(v.Bytes()) }, nil
	}
	return nil, &FieldKindError{Field: fd.FullName(), Kind: fd.Kind()}
}

// leaf encodes values that map to a single builder. Absent values are
// null when nullable, the field default otherwise.
func leaf(mem memory.Allocator, vp *valuePlan, vals []protoreflect.Value, nullable bool) (arrow.Array, error) {
	b := array.NewBuilder(mem, vp.typ)
	defer b.Release()

	appendValue, err := vp.setup(b)
	if err != nil {
		return nil, err
	}
	b.Reserve(len(vals))

	var placeholder protoreflect.Value
	for _, v := range vals {
		if !v.IsValid() {
			if nullable {
				b.AppendNull()
				continue
			}
			if !placeholder.IsValid() {
				placeholder = vp.placeholder()
			}
			v = placeholder
		}
		appendValue(v)
	}
	return b.NewArray(), nil
}

// dictionaryEnum encodes enum values as int32 indices into the names of
// every declared value, in declaration order. The dictionary depends only
// on the enum, so slices of a column and re-encodings of it agree.
func dictionaryEnum(mem memory.Allocator, vp *valuePlan, vals []protoreflect.Value, nullable bool) (arrow.Array, error) {
	dt := vp.typ.(*arrow.DictionaryType)
	ed := vp.fd.Enum()

	indices := array.NewInt32Builder(mem)
	defer indices.Release()
	dict := array.NewBuilder(mem, dt.ValueType)
	defer dict.Release()

	appendName, ok := stringAppender(dict)
	if !ok {
		return nil, &EnumTypeError{Field: vp.fd.FullName(), Type: dt.String()}
	}

	values := ed.Values()
	positions := make(map[string]int32, values.Len())
	for i := 0; i < values.Len(); i++ {
		name := string(values.Get(i).Name())
		positions[name] = int32(i)
		appendName(name)
	}

	indices.Reserve(len(vals))
	for _, v := range vals {
		if !v.IsValid() {
			if nullable {
				indices.AppendNull()
				continue
			}
			v = vp.fd.Default()
		}
		indices.Append(positions[enumName(ed, v.Enum())])
	}

	idxArr := indices.NewArray()
	defer idxArr.Release()
	dictArr := dict.NewArray()
	defer dictArr.Release()
	return array.NewDictionaryArray(dt, idxArr, dictArr), nil
}
