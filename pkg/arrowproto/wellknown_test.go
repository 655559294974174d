package arrowproto

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/stretchr/testify/assert"
	"google.golang.org/genproto/googleapis/type/date"
	"google.golang.org/genproto/googleapis/type/timeofday"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/known/durationpb"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/timestamppb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		msg  proto.Message
		want wellKnown
	}{
		{&timestamppb.Timestamp{}, timestampType},
		{&durationpb.Duration{}, durationType},
		{&timeofday.TimeOfDay{}, timeOfDayType},
		{&date.Date{}, dateType},
		{&wrapperspb.StringValue{}, wrapperType},
		{&wrapperspb.UInt64Value{}, wrapperType},
		{&emptypb.Empty{}, notWellKnown},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, classify(tc.msg.ProtoReflect().Descriptor()), "%T", tc.msg)
	}
}

func TestFloorDivMod(t *testing.T) {
	cases := []struct{ a, b, div, mod int64 }{
		{7, 2, 3, 1},
		{-7, 2, -4, 1},
		{-6, 2, -3, 0},
		{-1, 1_000_000_000, -1, 999_999_999},
		{0, 5, 0, 0},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.div, floorDiv(tc.a, tc.b), "floorDiv(%d, %d)", tc.a, tc.b)
		assert.Equal(t, tc.mod, floorMod(tc.a, tc.b), "floorMod(%d, %d)", tc.a, tc.b)
	}
}

func TestTimestampConversion(t *testing.T) {
	ts := &timestamppb.Timestamp{Seconds: -2, Nanos: 250_000_000}
	m := ts.ProtoReflect()
	assert.Equal(t, int64(-1_750_000_000), timestampToUnit(m, arrow.Nanosecond))
	assert.Equal(t, int64(-1_750), timestampToUnit(m, arrow.Millisecond))
	assert.Equal(t, int64(-2), timestampToUnit(m, arrow.Second))

	out := &timestamppb.Timestamp{}
	timestampFromUnit(out.ProtoReflect(), -1_750, arrow.Millisecond)
	assert.True(t, proto.Equal(ts, out), "got %v", out)

	timestampFromUnit(out.ProtoReflect(), -1, arrow.Microsecond)
	assert.Equal(t, int64(-1), out.Seconds)
	assert.Equal(t, int32(999_999_000), out.Nanos)
}

func TestDurationConversion(t *testing.T) {
	d := &durationpb.Duration{Seconds: -1, Nanos: -500_000_000}
	assert.Equal(t, int64(-1_500), durationToUnit(d.ProtoReflect(), arrow.Millisecond))

	out := &durationpb.Duration{}
	durationFromUnit(out.ProtoReflect(), -1_500, arrow.Millisecond)
	assert.True(t, proto.Equal(d, out), "got %v", out)

	durationFromUnit(out.ProtoReflect(), 90, arrow.Second)
	assert.Equal(t, int64(90), out.Seconds)
	assert.Zero(t, out.Nanos)
}

func TestTimeOfDayConversion(t *testing.T) {
	tod := &timeofday.TimeOfDay{Hours: 23, Minutes: 59, Seconds: 58, Nanos: 123_000_000}
	assert.Equal(t, int64(86_398_123), timeOfDayToUnit(tod.ProtoReflect(), arrow.Millisecond))
	assert.Equal(t, int64(86_398), timeOfDayToUnit(tod.ProtoReflect(), arrow.Second))

	out := &timeofday.TimeOfDay{}
	timeOfDayFromUnit(out.ProtoReflect(), 86_398_123_000, arrow.Microsecond)
	assert.True(t, proto.Equal(tod, out), "got %v", out)
}

func TestDateConversion(t *testing.T) {
	cases := []struct {
		d    *date.Date
		days int64
	}{
		{&date.Date{Year: 1970, Month: 1, Day: 1}, 0},
		{&date.Date{Year: 1969, Month: 12, Day: 31}, -1},
		{&date.Date{Year: 2000, Month: 2, Day: 29}, 11_016},
		{&date.Date{}, minDateDays},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.days, dateToDays(tc.d.ProtoReflect()), "%v", tc.d)
		out := &date.Date{}
		dateFromDays(out.ProtoReflect(), tc.days)
		assert.True(t, proto.Equal(tc.d, out), "%d: got %v", tc.days, out)
	}
}

func TestDateWithoutYear(t *testing.T) {
	for _, d := range []*date.Date{{Month: 5, Day: 3}, {Month: 12}, {Day: 31}} {
		days := dateToDays(d.ProtoReflect())
		assert.Equal(t, int64(minDateDays), days, "%v", d)

		out := &date.Date{}
		dateFromDays(out.ProtoReflect(), days)
		assert.True(t, proto.Equal(&date.Date{}, out), "%v: got %v", d, out)
	}
}

func TestWrapperKinds(t *testing.T) {
	for name, kind := range wrapperNames {
		mt, err := protoregistry.GlobalTypes.FindMessageByName(name)
		if assert.NoError(t, err, name) {
			assert.Equal(t, kind, mt.Descriptor().Fields().ByNumber(1).Kind(), name)
		}
	}
}
