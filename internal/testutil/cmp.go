// Package testutil holds comparison and data generation helpers shared by
// the protoarrow tests.
package testutil

import (
	"math"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/google/go-cmp/cmp"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/testing/protocmp"
)

var (
	alwaysEqual = cmp.Comparer(func(_, _ any) bool { return true })

	messageCmpOptions = []cmp.Option{
		// Dynamic and generated messages compare field by field.
		protocmp.Transform(),
		// NaNs compare equal
		cmp.FilterValues(func(x, y float64) bool {
			return math.IsNaN(x) && math.IsNaN(y)
		}, alwaysEqual),
		cmp.FilterValues(func(x, y float32) bool {
			return math.IsNaN(float64(x)) && math.IsNaN(float64(y))
		}, alwaysEqual),
	}
)

// DiffMessages reports the differences between two message slices.
// DiffMessages(x, y) == "" iff every message pair is equal.
func DiffMessages(want, got []proto.Message, opts ...cmp.Option) string {
	opts = append(opts[:len(opts):len(opts)], messageCmpOptions...)
	return cmp.Diff(want, got, opts...)
}

// RequireMessages fails t with a field level diff when got differs from want.
func RequireMessages(t testing.TB, want, got []proto.Message, opts ...cmp.Option) {
	t.Helper()
	if diff := DiffMessages(want, got, opts...); diff != "" {
		t.Fatalf("messages differ (-want +got):\n%s", diff)
	}
}

// RequireRecordsEqual fails t when the records differ in schema or content.
// Schemas are compared with their metadata.
func RequireRecordsEqual(t testing.TB, want, got arrow.Record) {
	t.Helper()
	if !want.Schema().Equal(got.Schema()) {
		t.Fatalf("schemas differ:\nwant: %s\ngot:  %s", want.Schema(), got.Schema())
	}
	if !array.RecordEqual(want, got) {
		t.Fatalf("records differ:\nwant: %v\ngot:  %v", want, got)
	}
}
