package arrowproto

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/dynamicpb"
)

type fieldType = descriptorpb.FieldDescriptorProto_Type

const (
	tDouble  = descriptorpb.FieldDescriptorProto_TYPE_DOUBLE
	tFloat   = descriptorpb.FieldDescriptorProto_TYPE_FLOAT
	tInt64   = descriptorpb.FieldDescriptorProto_TYPE_INT64
	tInt32   = descriptorpb.FieldDescriptorProto_TYPE_INT32
	tUint32  = descriptorpb.FieldDescriptorProto_TYPE_UINT32
	tBool    = descriptorpb.FieldDescriptorProto_TYPE_BOOL
	tString  = descriptorpb.FieldDescriptorProto_TYPE_STRING
	tBytes   = descriptorpb.FieldDescriptorProto_TYPE_BYTES
	tMessage = descriptorpb.FieldDescriptorProto_TYPE_MESSAGE
	tEnum    = descriptorpb.FieldDescriptorProto_TYPE_ENUM

	optional = descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL
	repeated = descriptorpb.FieldDescriptorProto_LABEL_REPEATED
)

func scalarField(name string, number int32, typ fieldType) *descriptorpb.FieldDescriptorProto {
	return &descriptorpb.FieldDescriptorProto{
		Name:   proto.String(name),
		Number: proto.Int32(number),
		Label:  optional.Enum(),
		Type:   typ.Enum(),
	}
}

func typedField(name string, number int32, typ fieldType, typeName string) *descriptorpb.FieldDescriptorProto {
	f := scalarField(name, number, typ)
	f.TypeName = proto.String(typeName)
	return f
}

func repeatedField(f *descriptorpb.FieldDescriptorProto) *descriptorpb.FieldDescriptorProto {
	f.Label = repeated.Enum()
	return f
}

func oneofField(f *descriptorpb.FieldDescriptorProto, index int32) *descriptorpb.FieldDescriptorProto {
	f.OneofIndex = proto.Int32(index)
	return f
}

func mapEntry(name string, key, value *descriptorpb.FieldDescriptorProto) *descriptorpb.DescriptorProto {
	return &descriptorpb.DescriptorProto{
		Name:    proto.String(name),
		Field:   []*descriptorpb.FieldDescriptorProto{key, value},
		Options: &descriptorpb.MessageOptions{MapEntry: proto.Bool(true)},
	}
}

// exampleFile describes:
//
//	enum Status { STATUS_UNKNOWN = 0; STATUS_ACTIVE = 1; }
//	message Inner { int32 value = 1; string label = 2; }
//	message Example { ...every supported field shape... }
//	message Node { Node next = 1; int32 depth = 2; }
//	message Tree { repeated Tree children = 1; int32 depth = 2; }
//	message Graph { map<string, Graph> edges = 1; string name = 2; }
//	message Left { Right right = 1; int32 id = 2; }
//	message Right { Left left = 1; }
//	message Holder { Left left = 1; }
//	message Diamond { Inner a = 1; Inner b = 2; }
func exampleFile() *descriptorpb.FileDescriptorProto {
	maybe := scalarField("maybe", 7, tInt32)
	maybe.Proto3Optional = proto.Bool(true)
	maybe.OneofIndex = proto.Int32(1)

	example := &descriptorpb.DescriptorProto{
		Name: proto.String("Example"),
		Field: []*descriptorpb.FieldDescriptorProto{
			scalarField("double_value", 1, tDouble),
			scalarField("int64_value", 2, tInt64),
			scalarField("string_value", 3, tString),
			scalarField("bytes_value", 4, tBytes),
			scalarField("bool_value", 5, tBool),
			typedField("status", 6, tEnum, ".example.v1.Status"),
			maybe,
			typedField("inner", 8, tMessage, ".example.v1.Inner"),
			repeatedField(scalarField("tags", 9, tString)),
			repeatedField(typedField("inners", 10, tMessage, ".example.v1.Inner")),
			repeatedField(typedField("labels", 11, tMessage, ".example.v1.Example.LabelsEntry")),
			repeatedField(typedField("inner_map", 12, tMessage, ".example.v1.Example.InnerMapEntry")),
			typedField("created_at", 13, tMessage, ".google.protobuf.Timestamp"),
			typedField("elapsed", 14, tMessage, ".google.protobuf.Duration"),
			typedField("wake_up", 15, tMessage, ".google.type.TimeOfDay"),
			typedField("birthday", 16, tMessage, ".google.type.Date"),
			typedField("nickname", 17, tMessage, ".google.protobuf.StringValue"),
			typedField("score", 18, tMessage, ".google.protobuf.DoubleValue"),
			repeatedField(typedField("statuses", 19, tEnum, ".example.v1.Status")),
			scalarField("uint_value", 20, tUint32),
			scalarField("float_value", 21, tFloat),
			repeatedField(typedField("stamps", 22, tMessage, ".google.protobuf.Timestamp")),
			oneofField(scalarField("text", 23, tString), 0),
			oneofField(typedField("nested", 24, tMessage, ".example.v1.Inner"), 0),
		},
		NestedType: []*descriptorpb.DescriptorProto{
			mapEntry("LabelsEntry", scalarField("key", 1, tInt32), scalarField("value", 2, tString)),
			mapEntry("InnerMapEntry", scalarField("key", 1, tString), typedField("value", 2, tMessage, ".example.v1.Inner")),
		},
		OneofDecl: []*descriptorpb.OneofDescriptorProto{
			{Name: proto.String("choice")},
			{Name: proto.String("_maybe")},
		},
	}

	return &descriptorpb.FileDescriptorProto{
		Name:    proto.String("example/v1/example.proto"),
		Package: proto.String("example.v1"),
		Syntax:  proto.String("proto3"),
		Dependency: []string{
			"google/protobuf/timestamp.proto",
			"google/protobuf/duration.proto",
			"google/protobuf/wrappers.proto",
			"google/type/timeofday.proto",
			"google/type/date.proto",
		},
		EnumType: []*descriptorpb.EnumDescriptorProto{{
			Name: proto.String("Status"),
			Value: []*descriptorpb.EnumValueDescriptorProto{
				{Name: proto.String("STATUS_UNKNOWN"), Number: proto.Int32(0)},
				{Name: proto.String("STATUS_ACTIVE"), Number: proto.Int32(1)},
			},
		}},
		MessageType: []*descriptorpb.DescriptorProto{
			{
				Name: proto.String("Inner"),
				Field: []*descriptorpb.FieldDescriptorProto{
					scalarField("value", 1, tInt32),
					scalarField("label", 2, tString),
				},
			},
			example,
			{
				Name: proto.String("Node"),
				Field: []*descriptorpb.FieldDescriptorProto{
					typedField("next", 1, tMessage, ".example.v1.Node"),
					scalarField("depth", 2, tInt32),
				},
			},
			{
				Name: proto.String("Tree"),
				Field: []*descriptorpb.FieldDescriptorProto{
					repeatedField(typedField("children", 1, tMessage, ".example.v1.Tree")),
					scalarField("depth", 2, tInt32),
				},
			},
			{
				Name: proto.String("Graph"),
				Field: []*descriptorpb.FieldDescriptorProto{
					repeatedField(typedField("edges", 1, tMessage, ".example.v1.Graph.EdgesEntry")),
					scalarField("name", 2, tString),
				},
				NestedType: []*descriptorpb.DescriptorProto{
					mapEntry("EdgesEntry", scalarField("key", 1, tString), typedField("value", 2, tMessage, ".example.v1.Graph")),
				},
			},
			{
				Name: proto.String("Left"),
				Field: []*descriptorpb.FieldDescriptorProto{
					typedField("right", 1, tMessage, ".example.v1.Right"),
					scalarField("id", 2, tInt32),
				},
			},
			{
				Name: proto.String("Right"),
				Field: []*descriptorpb.FieldDescriptorProto{
					typedField("left", 1, tMessage, ".example.v1.Left"),
				},
			},
			{
				Name: proto.String("Holder"),
				Field: []*descriptorpb.FieldDescriptorProto{
					typedField("left", 1, tMessage, ".example.v1.Left"),
				},
			},
			{
				Name: proto.String("Diamond"),
				Field: []*descriptorpb.FieldDescriptorProto{
					typedField("a", 1, tMessage, ".example.v1.Inner"),
					typedField("b", 2, tMessage, ".example.v1.Inner"),
				},
			},
		},
	}
}

var loadExampleFile = sync.OnceValues(func() (protoreflect.FileDescriptor, error) {
	return protodesc.NewFile(exampleFile(), protoregistry.GlobalFiles)
})

func exampleDescriptors(t testing.TB) protoreflect.FileDescriptor {
	t.Helper()
	fd, err := loadExampleFile()
	require.NoError(t, err)
	return fd
}

func messageDesc(t testing.TB, name protoreflect.Name) protoreflect.MessageDescriptor {
	t.Helper()
	md := exampleDescriptors(t).Messages().ByName(name)
	require.NotNil(t, md, "message %s", name)
	return md
}

// msg is a small builder over dynamic messages.
type msg struct {
	protoreflect.Message
}

func newMsg(md protoreflect.MessageDescriptor) msg {
	return msg{dynamicpb.NewMessage(md)}
}

func (m msg) fd(name string) protoreflect.FieldDescriptor {
	fd := m.Descriptor().Fields().ByName(protoreflect.Name(name))
	if fd == nil {
		panic("no field " + name + " in " + string(m.Descriptor().FullName()))
	}
	return fd
}

func (m msg) set(name string, v any) msg {
	m.Set(m.fd(name), protoreflect.ValueOf(v))
	return m
}

func (m msg) enum(name string, n int32) msg {
	m.Set(m.fd(name), protoreflect.ValueOfEnum(protoreflect.EnumNumber(n)))
	return m
}

// child returns the mutable message in field name, marking it present.
func (m msg) child(name string) msg {
	return msg{m.Mutable(m.fd(name)).Message()}
}

func (m msg) with(name string, fill func(msg)) msg {
	fill(m.child(name))
	return m
}

func (m msg) append(name string, vals ...any) msg {
	l := m.Mutable(m.fd(name)).List()
	for _, v := range vals {
		if c, ok := v.(msg); ok {
			l.Append(protoreflect.ValueOfMessage(c.Message))
			continue
		}
		l.Append(protoreflect.ValueOf(v))
	}
	return m
}

func (m msg) enums(name string, ns ...int32) msg {
	l := m.Mutable(m.fd(name)).List()
	for _, n := range ns {
		l.Append(protoreflect.ValueOfEnum(protoreflect.EnumNumber(n)))
	}
	return m
}

func (m msg) put(name string, key, value any) msg {
	mp := m.Mutable(m.fd(name)).Map()
	k := protoreflect.ValueOf(key).MapKey()
	if c, ok := value.(msg); ok {
		mp.Set(k, protoreflect.ValueOfMessage(c.Message))
		return m
	}
	mp.Set(k, protoreflect.ValueOf(value))
	return m
}

func (m msg) proto() proto.Message {
	return m.Interface()
}

func newInner(t testing.TB, value int32, label string) msg {
	return newMsg(messageDesc(t, "Inner")).set("value", value).set("label", label)
}

// sampleExamples returns a few Example messages covering every field shape.
func sampleExamples(t testing.TB) []proto.Message {
	md := messageDesc(t, "Example")

	full := newMsg(md).
		set("double_value", 1.5).
		set("int64_value", int64(-42)).
		set("string_value", "hello").
		set("bytes_value", []byte("raw")).
		set("bool_value", true).
		enum("status", 1).
		set("maybe", int32(0)).
		set("uint_value", uint32(7)).
		set("float_value", float32(2.25)).
		append("tags", "a", "b").
		append("inners", newInner(t, 1, "one"), newInner(t, 2, "two")).
		put("labels", int32(2), "b").
		put("labels", int32(1), "a").
		put("inner_map", "x", newInner(t, 3, "three")).
		enums("statuses", 1, 0, 1).
		set("text", "chosen")
	full.with("inner", func(c msg) { c.set("value", int32(5)).set("label", "five") })
	full.with("created_at", func(c msg) { c.set("seconds", int64(1_700_000_000)).set("nanos", int32(123_456_789)) })
	full.with("elapsed", func(c msg) { c.set("seconds", int64(-3)).set("nanos", int32(-500)) })
	full.with("wake_up", func(c msg) {
		c.set("hours", int32(7)).set("minutes", int32(30)).set("seconds", int32(15)).set("nanos", int32(999))
	})
	full.with("birthday", func(c msg) { c.set("year", int32(1990)).set("month", int32(6)).set("day", int32(15)) })
	full.with("nickname", func(c msg) { c.set("value", "nick") })
	full.with("score", func(c msg) { c.set("value", 0.0) })
	stamp := newMsg(full.fd("stamps").Message()).set("seconds", int64(-1)).set("nanos", int32(5))
	full.append("stamps", stamp)

	partial := newMsg(md).
		set("int64_value", int64(9)).
		set("nested", newInner(t, 4, "four").Message).
		append("tags", "only")
	partial.with("birthday", func(msg) {})

	empty := newMsg(md)

	return []proto.Message{full.proto(), partial.proto(), empty.proto()}
}
