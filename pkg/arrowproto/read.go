package arrowproto

import (
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"go.uber.org/zap"
	"golang.org/x/exp/constraints"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
)

// readFn reads the value at row of arr. Message valued readers fill and
// return dst, which must be a fresh message of the field's type.
type readFn func(dst protoreflect.Value, arr arrow.Array, row int) protoreflect.Value

// setFn copies row of arr into its field of m. Null slots leave the field unset.
type setFn func(m protoreflect.Message, arr arrow.Array, row int)

type columnSetter struct {
	index int
	set   setFn
}

// binder builds readers and setters from a column type and the field
// descriptor it is read into. Readers depend only on the column layout,
// so any compatible column can be read regardless of the Config that
// produced it.
type binder struct {
	logger *zap.Logger
}

// fields binds each column to the field of md with the same name.
func (b *binder) fields(fields []arrow.Field, md protoreflect.MessageDescriptor) ([]columnSetter, error) {
	setters := make([]columnSetter, 0, len(fields))
	for i, f := range fields {
		fd := md.Fields().ByName(protoreflect.Name(f.Name))
		if fd == nil {
			b.logger.Debug("ignoring column without matching field",
				zap.String("message", string(md.FullName())),
				zap.String("column", f.Name))
			continue
		}
		set, err := b.field(f.Type, fd)
		if err != nil {
			return nil, err
		}
		setters = append(setters, columnSetter{index: i, set: set})
	}
	return setters, nil
}

func (b *binder) field(dt arrow.DataType, fd protoreflect.FieldDescriptor) (setFn, error) {
	switch {
	case fd.IsMap():
		return b.mapField(dt, fd)
	case fd.IsList():
		return b.listField(dt, fd)
	}
	read, err := b.value(dt, fd)
	if err != nil {
		return nil, err
	}
	isMessage := fd.Message() != nil
	return func(m protoreflect.Message, arr arrow.Array, row int) {
		if arr.IsNull(row) {
			return
		}
		var dst protoreflect.Value
		if isMessage {
			dst = m.NewField(fd)
		}
		m.Set(fd, read(dst, arr, row))
	}, nil
}

func (b *binder) listField(dt arrow.DataType, fd protoreflect.FieldDescriptor) (setFn, error) {
	var elem arrow.DataType
	switch lt := dt.(type) {
	case *arrow.ListType:
		elem = lt.Elem()
	case *arrow.LargeListType:
		elem = lt.Elem()
	default:
		return nil, columnMismatch(fd, "repeated field read from %s", dt)
	}
	read, err := b.value(elem, fd)
	if err != nil {
		return nil, err
	}
	isMessage := fd.Message() != nil
	return func(m protoreflect.Message, arr arrow.Array, row int) {
		if arr.IsNull(row) {
			return
		}
		ls := arr.(array.ListLike)
		start, end := ls.ValueOffsets(row)
		if start == end {
			return
		}
		values := ls.ListValues()
		list := m.Mutable(fd).List()
		for j := int(start); j < int(end); j++ {
			switch {
			case isMessage && values.IsNull(j):
				list.Append(list.NewElement())
			case isMessage:
				list.Append(read(list.NewElement(), values, j))
			case values.IsNull(j):
				list.Append(fd.Default())
			default:
				list.Append(read(protoreflect.Value{}, values, j))
			}
		}
	}, nil
}

func (b *binder) mapField(dt arrow.DataType, fd protoreflect.FieldDescriptor) (setFn, error) {
	mt, ok := dt.(*arrow.MapType)
	if !ok {
		return nil, columnMismatch(fd, "map field read from %s", dt)
	}
	readKey, err := b.value(mt.KeyType(), fd.MapKey())
	if err != nil {
		return nil, err
	}
	vfd := fd.MapValue()
	readValue, err := b.value(mt.ItemType(), vfd)
	if err != nil {
		return nil, err
	}
	isMessage := vfd.Message() != nil
	return func(m protoreflect.Message, arr arrow.Array, row int) {
		if arr.IsNull(row) {
			return
		}
		ma := arr.(*array.Map)
		start, end := ma.ValueOffsets(row)
		if start == end {
			return
		}
		keys, items := ma.Keys(), ma.Items()
		mv := m.Mutable(fd).Map()
		for j := int(start); j < int(end); j++ {
			if keys.IsNull(j) {
				continue
			}
			k := readKey(protoreflect.Value{}, keys, j).MapKey()
			var v protoreflect.Value
			switch {
			case isMessage && items.IsNull(j):
				v = mv.NewValue()
			case isMessage:
				v = readValue(mv.NewValue(), items, j)
			case items.IsNull(j):
				v = vfd.Default()
			default:
				v = readValue(protoreflect.Value{}, items, j)
			}
			if isMessage && mv.Has(k) {
				proto.Merge(mv.Mutable(k).Message().Interface(), v.Message().Interface())
				continue
			}
			mv.Set(k, v)
		}
	}, nil
}

// value returns the reader of a single value of fd from columns of type dt.
func (b *binder) value(dt arrow.DataType, fd protoreflect.FieldDescriptor) (readFn, error) {
	switch fd.Kind() {
	case protoreflect.MessageKind:
		return b.messageValue(dt, fd)
	case protoreflect.GroupKind:
		return nil, &FieldKindError{Field: fd.FullName(), Kind: fd.Kind()}
	case protoreflect.EnumKind:
		return enumReader(dt, fd)
	}
	get, err := scalarReader(dt, fd)
	if err != nil {
		return nil, err
	}
	return func(_ protoreflect.Value, arr arrow.Array, row int) protoreflect.Value {
		return get(arr, row)
	}, nil
}

func (b *binder) messageValue(dt arrow.DataType, fd protoreflect.FieldDescriptor) (readFn, error) {
	md := fd.Message()
	switch classify(md) {
	case timestampType:
		if t, ok := dt.(*arrow.TimestampType); ok {
			return func(dst protoreflect.Value, arr arrow.Array, row int) protoreflect.Value {
				timestampFromUnit(dst.Message(), int64(arr.(*array.Timestamp).Value(row)), t.Unit)
				return dst
			}, nil
		}
	case durationType:
		if t, ok := dt.(*arrow.DurationType); ok {
			return func(dst protoreflect.Value, arr arrow.Array, row int) protoreflect.Value {
				durationFromUnit(dst.Message(), int64(arr.(*array.Duration).Value(row)), t.Unit)
				return dst
			}, nil
		}
	case timeOfDayType:
		switch t := dt.(type) {
		case *arrow.Time32Type:
			return func(dst protoreflect.Value, arr arrow.Array, row int) protoreflect.Value {
				timeOfDayFromUnit(dst.Message(), int64(arr.(*array.Time32).Value(row)), t.Unit)
				return dst
			}, nil
		case *arrow.Time64Type:
			return func(dst protoreflect.Value, arr arrow.Array, row int) protoreflect.Value {
				timeOfDayFromUnit(dst.Message(), int64(arr.(*array.Time64).Value(row)), t.Unit)
				return dst
			}, nil
		}
	case dateType:
		switch dt.ID() {
		case arrow.DATE32:
			return func(dst protoreflect.Value, arr arrow.Array, row int) protoreflect.Value {
				dateFromDays(dst.Message(), int64(arr.(*array.Date32).Value(row)))
				return dst
			}, nil
		case arrow.DATE64:
			return func(dst protoreflect.Value, arr arrow.Array, row int) protoreflect.Value {
				dateFromDays(dst.Message(), floorDiv(int64(arr.(*array.Date64).Value(row)), 86_400_000))
				return dst
			}, nil
		}
	case wrapperType:
		inner := md.Fields().ByNumber(1)
		get, err := scalarReader(dt, inner)
		if err != nil {
			return nil, err
		}
		return func(dst protoreflect.Value, arr arrow.Array, row int) protoreflect.Value {
			m := dst.Message()
			m.Set(m.Descriptor().Fields().ByNumber(1), get(arr, row))
			return dst
		}, nil
	default:
		st, ok := dt.(*arrow.StructType)
		if !ok {
			break
		}
		setters, err := b.fields(st.Fields(), md)
		if err != nil {
			return nil, err
		}
		return func(dst protoreflect.Value, arr arrow.Array, row int) protoreflect.Value {
			s := arr.(*array.Struct)
			m := dst.Message()
			for _, c := range setters {
				c.set(m, s.Field(c.index), row)
			}
			return dst
		}, nil
	}
	return nil, columnMismatch(fd, "%s read from %s", md.FullName(), dt)
}

type scalarFn func(arr arrow.Array, row int) protoreflect.Value

func scalarReader(dt arrow.DataType, fd protoreflect.FieldDescriptor) (scalarFn, error) {
	switch fd.Kind() {
	case protoreflect.BoolKind:
		if dt.ID() == arrow.BOOL {
			return func(arr arrow.Array, row int) protoreflect.Value {
				return protoreflect.ValueOfBool(arr.(*array.Boolean).Value(row))
			}, nil
		}
	case protoreflect.Int32Kind, protoreflect.Sint32Kind, protoreflect.Sfixed32Kind:
		if get := int64Getter(dt); get != nil {
			return func(arr arrow.Array, row int) protoreflect.Value {
				return protoreflect.ValueOfInt32(int32(get(arr, row)))
			}, nil
		}
	case protoreflect.Int64Kind, protoreflect.Sint64Kind, protoreflect.Sfixed64Kind:
		if get := int64Getter(dt); get != nil {
			return func(arr arrow.Array, row int) protoreflect.Value {
				return protoreflect.ValueOfInt64(get(arr, row))
			}, nil
		}
	case protoreflect.Uint32Kind, protoreflect.Fixed32Kind:
		if get := uint64Getter(dt); get != nil {
			return func(arr arrow.Array, row int) protoreflect.Value {
				return protoreflect.ValueOfUint32(uint32(get(arr, row)))
			}, nil
		}
	case protoreflect.Uint64Kind, protoreflect.Fixed64Kind:
		if get := uint64Getter(dt); get != nil {
			return func(arr arrow.Array, row int) protoreflect.Value {
				return protoreflect.ValueOfUint64(get(arr, row))
			}, nil
		}
	case protoreflect.FloatKind:
		if get := float64Getter(dt); get != nil {
			return func(arr arrow.Array, row int) protoreflect.Value {
				return protoreflect.ValueOfFloat32(float32(get(arr, row)))
			}, nil
		}
	case protoreflect.DoubleKind:
		if get := float64Getter(dt); get != nil {
			return func(arr arrow.Array, row int) protoreflect.Value {
				return protoreflect.ValueOfFloat64(get(arr, row))
			}, nil
		}
	case protoreflect.StringKind:
		if get := stringGetter(dt); get != nil {
			return func(arr arrow.Array, row int) protoreflect.Value {
				return protoreflect.ValueOfString(get(arr, row))
			}, nil
		}
	case protoreflect.BytesKind:
		if get := stringGetter(dt); get != nil {
			return func(arr arrow.Array, row int) protoreflect.Value {
				return protoreflect.ValueOfBytes([]byte(get(arr, row)))
			}, nil
		}
	default:
		return nil, &FieldKindError{Field: fd.FullName(), Kind: fd.Kind()}
	}
	return nil, columnMismatch(fd, "%s read from %s", fd.Kind(), dt)
}

func enumReader(dt arrow.DataType, fd protoreflect.FieldDescriptor) (readFn, error) {
	ed := fd.Enum()
	if d, ok := dt.(*arrow.DictionaryType); ok {
		name := stringGetter(d.ValueType)
		if name == nil {
			return nil, &EnumTypeError{Field: fd.FullName(), Type: dt.String()}
		}
		return func(_ protoreflect.Value, arr arrow.Array, row int) protoreflect.Value {
			da := arr.(*array.Dictionary)
			return protoreflect.ValueOfEnum(enumNumber(ed, name(da.Dictionary(), da.GetValueIndex(row))))
		}, nil
	}
	if get := int64Getter(dt); get != nil {
		return func(_ protoreflect.Value, arr arrow.Array, row int) protoreflect.Value {
			return protoreflect.ValueOfEnum(protoreflect.EnumNumber(get(arr, row)))
		}, nil
	}
	if name := stringGetter(dt); name != nil {
		return func(_ protoreflect.Value, arr arrow.Array, row int) protoreflect.Value {
			return protoreflect.ValueOfEnum(enumNumber(ed, name(arr, row)))
		}, nil
	}
	return nil, &EnumTypeError{Field: fd.FullName(), Type: dt.String()}
}

// enumNumber resolves name in ed. Unknown names map to 0.
func enumNumber(ed protoreflect.EnumDescriptor, name string) protoreflect.EnumNumber {
	if ev := ed.Values().ByName(protoreflect.Name(name)); ev != nil {
		return ev.Number()
	}
	return 0
}

type valuer[T any] interface {
	Value(int) T
}

func intAt[T constraints.Integer](arr arrow.Array, row int) int64 {
	return int64(arr.(valuer[T]).Value(row))
}

func uintAt[T constraints.Integer](arr arrow.Array, row int) uint64 {
	return uint64(arr.(valuer[T]).Value(row))
}

func floatAt[T constraints.Integer | constraints.Float](arr arrow.Array, row int) float64 {
	return float64(arr.(valuer[T]).Value(row))
}

func int64Getter(dt arrow.DataType) func(arrow.Array, int) int64 {
	switch dt.ID() {
	case arrow.INT8:
		return intAt[int8]
	case arrow.INT16:
		return intAt[int16]
	case arrow.INT32:
		return intAt[int32]
	case arrow.INT64:
		return intAt[int64]
	case arrow.UINT8:
		return intAt[uint8]
	case arrow.UINT16:
		return intAt[uint16]
	case arrow.UINT32:
		return intAt[uint32]
	case arrow.UINT64:
		return intAt[uint64]
	}
	return nil
}

func uint64Getter(dt arrow.DataType) func(arrow.Array, int) uint64 {
	switch dt.ID() {
	case arrow.INT8:
		return uintAt[int8]
	case arrow.INT16:
		return uintAt[int16]
	case arrow.INT32:
		return uintAt[int32]
	case arrow.INT64:
		return uintAt[int64]
	case arrow.UINT8:
		return uintAt[uint8]
	case arrow.UINT16:
		return uintAt[uint16]
	case arrow.UINT32:
		return uintAt[uint32]
	case arrow.UINT64:
		return uintAt[uint64]
	}
	return nil
}

func float64Getter(dt arrow.DataType) func(arrow.Array, int) float64 {
	switch dt.ID() {
	case arrow.FLOAT32:
		return floatAt[float32]
	case arrow.FLOAT64:
		return floatAt[float64]
	case arrow.INT32:
		return floatAt[int32]
	case arrow.INT64:
		return floatAt[int64]
	case arrow.UINT32:
		return floatAt[uint32]
	case arrow.UINT64:
		return floatAt[uint64]
	}
	return nil
}

func stringGetter(dt arrow.DataType) func(arrow.Array, int) string {
	switch dt.ID() {
	case arrow.STRING:
		return func(arr arrow.Array, row int) string { return strings.Clone(arr.(*array.String).Value(row)) }
	case arrow.LARGE_STRING:
		return func(arr arrow.Array, row int) string { return strings.Clone(arr.(*array.LargeString).Value(row)) }
	case arrow.BINARY:
		return func(arr arrow.Array, row int) string { return string(arr.(*array.Binary).Value(row)) }
	case arrow.LARGE_BINARY:
		return func(arr arrow.Array, row int) string { return string(arr.(*array.LargeBinary).Value(row)) }
	}
	return nil
}
