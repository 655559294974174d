package arrowproto

import (
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"google.golang.org/genproto/googleapis/type/date"
	"google.golang.org/genproto/googleapis/type/timeofday"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/known/durationpb"
	"google.golang.org/protobuf/types/known/timestamppb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

type wellKnown int

const (
	notWellKnown wellKnown = iota
	timestampType
	durationType
	timeOfDayType
	dateType
	wrapperType
)

var (
	timestampName = (&timestamppb.Timestamp{}).ProtoReflect().Descriptor().FullName()
	durationName  = (&durationpb.Duration{}).ProtoReflect().Descriptor().FullName()
	timeOfDayName = (&timeofday.TimeOfDay{}).ProtoReflect().Descriptor().FullName()
	dateName      = (&date.Date{}).ProtoReflect().Descriptor().FullName()

	// wrapperNames maps each wrapper message to the kind of its value field.
	wrapperNames = map[protoreflect.FullName]protoreflect.Kind{
		(&wrapperspb.BoolValue{}).ProtoReflect().Descriptor().FullName():   protoreflect.BoolKind,
		(&wrapperspb.BytesValue{}).ProtoReflect().Descriptor().FullName():  protoreflect.BytesKind,
		(&wrapperspb.DoubleValue{}).ProtoReflect().Descriptor().FullName(): protoreflect.DoubleKind,
		(&wrapperspb.FloatValue{}).ProtoReflect().Descriptor().FullName():  protoreflect.FloatKind,
		(&wrapperspb.Int32Value{}).ProtoReflect().Descriptor().FullName():  protoreflect.Int32Kind,
		(&wrapperspb.Int64Value{}).ProtoReflect().Descriptor().FullName():  protoreflect.Int64Kind,
		(&wrapperspb.StringValue{}).ProtoReflect().Descriptor().FullName(): protoreflect.StringKind,
		(&wrapperspb.UInt32Value{}).ProtoReflect().Descriptor().FullName(): protoreflect.Uint32Kind,
		(&wrapperspb.UInt64Value{}).ProtoReflect().Descriptor().FullName(): protoreflect.Uint64Kind,
	}
)

func classify(md protoreflect.MessageDescriptor) wellKnown {
	switch name := md.FullName(); name {
	case timestampName:
		return timestampType
	case durationName:
		return durationType
	case timeOfDayName:
		return timeOfDayType
	case dateName:
		return dateType
	default:
		if _, ok := wrapperNames[name]; ok {
			return wrapperType
		}
		return notWellKnown
	}
}

// minDateDays is 0001-01-01 counted in days from the unix epoch. A
// google.type.Date without a year is stored as this day.
const minDateDays = -719162

const nanosPerSecond = int64(time.Second)

func perSecond(unit arrow.TimeUnit) int64 {
	switch unit {
	case arrow.Second:
		return 1
	case arrow.Millisecond:
		return 1_000
	case arrow.Microsecond:
		return 1_000_000
	default:
		return nanosPerSecond
	}
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func floorMod(a, b int64) int64 {
	return a - floorDiv(a, b)*b
}

func getInt(m protoreflect.Message, number protoreflect.FieldNumber) int64 {
	return m.Get(m.Descriptor().Fields().ByNumber(number)).Int()
}

func setInt32(m protoreflect.Message, number protoreflect.FieldNumber, v int64) {
	m.Set(m.Descriptor().Fields().ByNumber(number), protoreflect.ValueOfInt32(int32(v)))
}

func setInt64(m protoreflect.Message, number protoreflect.FieldNumber, v int64) {
	m.Set(m.Descriptor().Fields().ByNumber(number), protoreflect.ValueOfInt64(v))
}

// Timestamp and Duration: seconds = 1, nanos = 2.

func timestampToUnit(m protoreflect.Message, unit arrow.TimeUnit) int64 {
	per := perSecond(unit)
	return getInt(m, 1)*per + getInt(m, 2)/(nanosPerSecond/per)
}

func timestampFromUnit(m protoreflect.Message, v int64, unit arrow.TimeUnit) {
	per := perSecond(unit)
	setInt64(m, 1, floorDiv(v, per))
	setInt32(m, 2, floorMod(v, per)*(nanosPerSecond/per))
}

func durationToUnit(m protoreflect.Message, unit arrow.TimeUnit) int64 {
	per := perSecond(unit)
	return getInt(m, 1)*per + getInt(m, 2)/(nanosPerSecond/per)
}

func durationFromUnit(m protoreflect.Message, v int64, unit arrow.TimeUnit) {
	per := perSecond(unit)
	setInt64(m, 1, v/per)
	setInt32(m, 2, (v%per)*(nanosPerSecond/per))
}

// TimeOfDay: hours = 1, minutes = 2, seconds = 3, nanos = 4.

func timeOfDayToUnit(m protoreflect.Message, unit arrow.TimeUnit) int64 {
	per := perSecond(unit)
	seconds := (getInt(m, 1)*60+getInt(m, 2))*60 + getInt(m, 3)
	return seconds*per + getInt(m, 4)/(nanosPerSecond/per)
}

func timeOfDayFromUnit(m protoreflect.Message, v int64, unit arrow.TimeUnit) {
	per := perSecond(unit)
	seconds, frac := v/per, v%per
	setInt32(m, 1, seconds/3600)
	setInt32(m, 2, seconds/60%60)
	setInt32(m, 3, seconds%60)
	setInt32(m, 4, frac*(nanosPerSecond/per))
}

// Date: year = 1, month = 2, day = 3.

func dateToDays(m protoreflect.Message) int64 {
	year, month, day := getInt(m, 1), getInt(m, 2), getInt(m, 3)
	if year == 0 {
		return minDateDays
	}
	t := time.Date(int(year), time.Month(month), int(day), 0, 0, 0, 0, time.UTC)
	return floorDiv(t.Unix(), 86400)
}

func dateFromDays(m protoreflect.Message, days int64) {
	if days == minDateDays {
		return
	}
	t := time.Unix(days*86400, 0).UTC()
	setInt32(m, 1, int64(t.Year()))
	setInt32(m, 2, int64(t.Month()))
	setInt32(m, 3, int64(t.Day()))
}
