package arrowproto

import (
	"github.com/apache/arrow-go/v18/arrow"
	"go.uber.org/zap"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"
)

type valueKind int

const (
	scalarValue valueKind = iota
	enumValue
	timestampValue
	durationValue
	timeOfDayValue
	dateValue
	wrapperValue
	messageValue
)

// valuePlan maps one protobuf value, singular or inside a list or map, to
// one slot of a column.
type valuePlan struct {
	kind valueKind
	fd   protoreflect.FieldDescriptor
	typ  arrow.DataType
	unit arrow.TimeUnit
	// inner is the plan of the value field of a wrapper.
	inner *valuePlan
	// msg is set for messageValue.
	msg *messagePlan
}

// placeholder is written in non nullable slots whose value is absent.
func (vp *valuePlan) placeholder() protoreflect.Value {
	if md := vp.fd.Message(); md != nil {
		return protoreflect.ValueOfMessage(dynamicpb.NewMessage(md))
	}
	return vp.fd.Default()
}

type fieldShape int

const (
	singularField fieldShape = iota
	listField
	mapField
)

type fieldPlan struct {
	fd    protoreflect.FieldDescriptor
	field arrow.Field
	shape fieldShape
	// value is the singular value, the list element or the map value.
	value *valuePlan
	key   *valuePlan
	// elemNullable applies to list elements and map values.
	elemNullable bool
}

// get returns the value of the field in m, or an invalid value when the
// field tracks presence and is unset.
func (fp *fieldPlan) get(m protoreflect.Message) protoreflect.Value {
	fd := fp.fd
	if md := m.Descriptor(); fd.ContainingMessage() != md {
		if fd = md.Fields().ByNumber(fp.fd.Number()); fd == nil {
			return protoreflect.Value{}
		}
	}
	if fp.shape == singularField && fd.HasPresence() && !m.Has(fd) {
		return protoreflect.Value{}
	}
	return m.Get(fd)
}

// empty returns the value of an unset field: an empty list or map for
// repeated fields, an invalid value otherwise.
func (fp *fieldPlan) empty() protoreflect.Value {
	if fp.shape == singularField {
		return protoreflect.Value{}
	}
	return dynamicpb.NewMessage(fp.fd.ContainingMessage()).Get(fp.fd)
}

type messagePlan struct {
	md     protoreflect.MessageDescriptor
	fields []*fieldPlan
	typ    *arrow.StructType
	pruned bool
}

func (mp *messagePlan) schema() *arrow.Schema {
	return arrow.NewSchema(mp.typ.Fields(), nil)
}

// deriver walks a message type and produces its plan. trace holds the
// message types being expanded on the current path, outermost first.
type deriver struct {
	cfg    *Config
	logger *zap.Logger
	trace  []protoreflect.MessageDescriptor
}

func derive(md protoreflect.MessageDescriptor, cfg *Config, logger *zap.Logger) (*messagePlan, error) {
	d := &deriver{cfg: cfg, logger: logger}
	return d.message(md)
}

func (d *deriver) message(md protoreflect.MessageDescriptor) (*messagePlan, error) {
	d.trace = append(d.trace, md)
	defer func() { d.trace = d.trace[:len(d.trace)-1] }()

	fields := md.Fields()
	mp := &messagePlan{md: md, fields: make([]*fieldPlan, fields.Len())}
	arrowFields := make([]arrow.Field, fields.Len())
	for i := 0; i < fields.Len(); i++ {
		fp, err := d.field(fields.Get(i))
		if err != nil {
			return nil, err
		}
		mp.fields[i] = fp
		arrowFields[i] = fp.field
	}
	mp.typ = arrow.StructOf(arrowFields...)
	return mp, nil
}

func (d *deriver) field(fd protoreflect.FieldDescriptor) (*fieldPlan, error) {
	fp := &fieldPlan{fd: fd}
	var (
		typ      arrow.DataType
		nullable bool
	)
	switch {
	case fd.IsMap():
		key, err := d.value(fd.MapKey())
		if err != nil {
			return nil, err
		}
		value, err := d.value(fd.MapValue())
		if err != nil {
			return nil, err
		}
		fp.shape, fp.key, fp.value = mapField, key, value
		fp.elemNullable = d.cfg.mapValueNullable
		typ, nullable = d.cfg.mapOf(key.typ, value.typ), d.cfg.mapNullable
	case fd.IsList():
		value, err := d.value(fd)
		if err != nil {
			return nil, err
		}
		fp.shape, fp.value = listField, value
		fp.elemNullable = d.cfg.listValueNullable
		typ, nullable = d.cfg.listOf(value.typ), d.cfg.listNullable
	default:
		value, err := d.value(fd)
		if err != nil {
			return nil, err
		}
		fp.shape, fp.value = singularField, value
		typ, nullable = value.typ, fd.HasPresence()
	}
	fp.field = arrow.Field{
		Name:     string(fd.Name()),
		Type:     typ,
		Nullable: nullable,
		Metadata: d.cfg.fieldMetadata(int32(fd.Number())),
	}
	return fp, nil
}

func (d *deriver) value(fd protoreflect.FieldDescriptor) (*valuePlan, error) {
	vp := &valuePlan{kind: scalarValue, fd: fd}
	switch fd.Kind() {
	case protoreflect.BoolKind:
		vp.typ = arrow.FixedWidthTypes.Boolean
	case protoreflect.Int32Kind, protoreflect.Sint32Kind, protoreflect.Sfixed32Kind:
		vp.typ = arrow.PrimitiveTypes.Int32
	case protoreflect.Uint32Kind, protoreflect.Fixed32Kind:
		vp.typ = arrow.PrimitiveTypes.Uint32
	case protoreflect.Int64Kind, protoreflect.Sint64Kind, protoreflect.Sfixed64Kind:
		vp.typ = arrow.PrimitiveTypes.Int64
	case protoreflect.Uint64Kind, protoreflect.Fixed64Kind:
		vp.typ = arrow.PrimitiveTypes.Uint64
	case protoreflect.FloatKind:
		vp.typ = arrow.PrimitiveTypes.Float32
	case protoreflect.DoubleKind:
		vp.typ = arrow.PrimitiveTypes.Float64
	case protoreflect.StringKind:
		vp.typ = d.cfg.stringType
	case protoreflect.BytesKind:
		vp.typ = d.cfg.binaryType
	case protoreflect.EnumKind:
		vp.kind, vp.typ = enumValue, d.cfg.enumType
	case protoreflect.MessageKind:
		return d.messageValue(fd)
	default:
		return nil, &FieldKindError{Field: fd.FullName(), Kind: fd.Kind()}
	}
	return vp, nil
}

func (d *deriver) messageValue(fd protoreflect.FieldDescriptor) (*valuePlan, error) {
	md := fd.Message()
	vp := &valuePlan{fd: fd}
	switch classify(md) {
	case timestampType:
		vp.kind, vp.typ, vp.unit = timestampValue, d.cfg.timestampType, d.cfg.timestampType.Unit
	case durationType:
		vp.kind, vp.typ, vp.unit = durationValue, d.cfg.durationType, d.cfg.durationType.Unit
	case timeOfDayType:
		vp.kind, vp.typ = timeOfDayValue, d.cfg.timeOfDayType
		switch t := d.cfg.timeOfDayType.(type) {
		case *arrow.Time32Type:
			vp.unit = t.Unit
		case *arrow.Time64Type:
			vp.unit = t.Unit
		}
	case dateType:
		vp.kind, vp.typ = dateValue, arrow.FixedWidthTypes.Date32
	case wrapperType:
		inner, err := d.value(md.Fields().ByNumber(1))
		if err != nil {
			return nil, err
		}
		vp.kind, vp.typ, vp.inner = wrapperValue, inner.typ, inner
	default:
		mp, err := d.nested(md)
		if err != nil {
			return nil, err
		}
		vp.kind, vp.typ, vp.msg = messageValue, mp.typ, mp
	}
	return vp, nil
}

func (d *deriver) nested(md protoreflect.MessageDescriptor) (*messagePlan, error) {
	for _, t := range d.trace {
		if t.FullName() != md.FullName() {
			continue
		}
		trace := make([]protoreflect.FullName, 0, len(d.trace)+1)
		for _, t := range d.trace {
			trace = append(trace, t.FullName())
		}
		trace = append(trace, md.FullName())
		if d.cfg.cyclePolicy == RejectCycles {
			return nil, &CycleError{Trace: trace}
		}
		d.logger.Debug("pruning cyclic message type",
			zap.String("message", string(md.FullName())),
			zap.Any("trace", trace))
		return &messagePlan{md: md, typ: arrow.StructOf(), pruned: true}, nil
	}
	return d.message(md)
}
