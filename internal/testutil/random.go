package testutil

import (
	"math/rand/v2"

	"github.com/go-faker/faker/v4"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"
)

// Random fills dynamic messages with random content that survives a trip
// through the default columnar mapping: timestamps stay within the
// nanosecond range, dates and times of day are valid, durations are
// non negative and enums only take declared values.
type Random struct {
	rnd     *rand.Rand
	maxList int
}

func NewRandom(seed uint64) *Random {
	return &Random{rnd: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)), maxList: 3}
}

// Messages returns n random messages of type md.
func (r *Random) Messages(md protoreflect.MessageDescriptor, n, depth int) []proto.Message {
	out := make([]proto.Message, n)
	for i := range out {
		out[i] = r.Message(md, depth)
	}
	return out
}

// Message returns a random message of type md. Message fields are only
// populated while depth is positive, which bounds recursive types.
func (r *Random) Message(md protoreflect.MessageDescriptor, depth int) proto.Message {
	m := dynamicpb.NewMessage(md)
	r.fill(m, depth)
	return m
}

func (r *Random) fill(m protoreflect.Message, depth int) {
	fields := m.Descriptor().Fields()
	for i := 0; i < fields.Len(); i++ {
		fd := fields.Get(i)
		if od := fd.ContainingOneof(); od != nil && m.WhichOneof(od) != nil {
			continue
		}
		if fd.Message() != nil && !fd.IsMap() && depth <= 0 {
			continue
		}
		// leave some fields unset
		if r.rnd.IntN(4) == 0 {
			continue
		}
		switch {
		case fd.IsMap():
			if fd.MapValue().Message() != nil && depth <= 0 {
				continue
			}
			mv := m.Mutable(fd).Map()
			for n := r.rnd.IntN(r.maxList + 1); n > 0; n-- {
				k := r.scalar(fd.MapKey()).MapKey()
				if fd.MapValue().Message() != nil {
					v := mv.NewValue()
					r.message(v.Message(), depth-1)
					mv.Set(k, v)
					continue
				}
				mv.Set(k, r.scalar(fd.MapValue()))
			}
		case fd.IsList():
			l := m.Mutable(fd).List()
			for n := r.rnd.IntN(r.maxList + 1); n > 0; n-- {
				if fd.Message() != nil {
					v := l.NewElement()
					r.message(v.Message(), depth-1)
					l.Append(v)
					continue
				}
				l.Append(r.scalar(fd))
			}
		case fd.Message() != nil:
			r.message(m.Mutable(fd).Message(), depth-1)
		default:
			m.Set(fd, r.scalar(fd))
		}
	}
}

// message fills m, generating valid values for the well known types.
func (r *Random) message(m protoreflect.Message, depth int) {
	fields := m.Descriptor().Fields()
	set := func(number protoreflect.FieldNumber, v protoreflect.Value) {
		m.Set(fields.ByNumber(number), v)
	}
	switch m.Descriptor().FullName() {
	case "google.protobuf.Timestamp":
		set(1, protoreflect.ValueOfInt64(r.rnd.Int64N(8_000_000_000)-2_000_000_000))
		set(2, protoreflect.ValueOfInt32(r.rnd.Int32N(1_000_000_000)))
	case "google.protobuf.Duration":
		set(1, protoreflect.ValueOfInt64(r.rnd.Int64N(1_000_000)))
		set(2, protoreflect.ValueOfInt32(r.rnd.Int32N(1_000_000_000)))
	case "google.type.TimeOfDay":
		set(1, protoreflect.ValueOfInt32(r.rnd.Int32N(24)))
		set(2, protoreflect.ValueOfInt32(r.rnd.Int32N(60)))
		set(3, protoreflect.ValueOfInt32(r.rnd.Int32N(60)))
		set(4, protoreflect.ValueOfInt32(r.rnd.Int32N(1_000_000_000)))
	case "google.type.Date":
		set(1, protoreflect.ValueOfInt32(2+r.rnd.Int32N(9998)))
		set(2, protoreflect.ValueOfInt32(1+r.rnd.Int32N(12)))
		set(3, protoreflect.ValueOfInt32(1+r.rnd.Int32N(28)))
	default:
		r.fill(m, depth)
	}
}

func (r *Random) scalar(fd protoreflect.FieldDescriptor) protoreflect.Value {
	switch fd.Kind() {
	case protoreflect.BoolKind:
		return protoreflect.ValueOfBool(r.rnd.IntN(2) == 1)
	case protoreflect.Int32Kind, protoreflect.Sint32Kind, protoreflect.Sfixed32Kind:
		return protoreflect.ValueOfInt32(int32(r.rnd.Uint32()))
	case protoreflect.Int64Kind, protoreflect.Sint64Kind, protoreflect.Sfixed64Kind:
		return protoreflect.ValueOfInt64(int64(r.rnd.Uint64()))
	case protoreflect.Uint32Kind, protoreflect.Fixed32Kind:
		return protoreflect.ValueOfUint32(r.rnd.Uint32())
	case protoreflect.Uint64Kind, protoreflect.Fixed64Kind:
		return protoreflect.ValueOfUint64(r.rnd.Uint64())
	case protoreflect.FloatKind:
		return protoreflect.ValueOfFloat32(float32(r.rnd.NormFloat64()))
	case protoreflect.DoubleKind:
		return protoreflect.ValueOfFloat64(r.rnd.NormFloat64() * 1e6)
	case protoreflect.StringKind:
		return protoreflect.ValueOfString(faker.Word())
	case protoreflect.BytesKind:
		return protoreflect.ValueOfBytes([]byte(faker.Password()))
	case protoreflect.EnumKind:
		values := fd.Enum().Values()
		return protoreflect.ValueOfEnum(values.Get(r.rnd.IntN(values.Len())).Number())
	}
	return fd.Default()
}
