package arrowproto

import (
	"sync"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/arrowarc/protoarrow/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
)

func TestRowExtractor(t *testing.T) {
	for name, cfg := range lossless(t) {
		t.Run(name, func(t *testing.T) {
			msgs := sampleExamples(t)
			rec := encodeExamples(t, cfg, msgs)

			x, err := NewRowExtractor(rec.Schema(), exampleType(t))
			require.NoError(t, err)

			got := make([]proto.Message, rec.NumRows())
			for row := range got {
				got[row], err = x.ReadRow(rec, row)
				require.NoError(t, err)
			}
			testutil.RequireMessages(t, msgs, got)
		})
	}
}

func TestRowExtractorMatchesDecode(t *testing.T) {
	rec := encodeExamples(t, DefaultConfig(), sampleExamples(t))
	x, err := NewRowExtractor(rec.Schema(), exampleType(t))
	require.NoError(t, err)

	decoded, err := Decode(rec, exampleType(t))
	require.NoError(t, err)
	for row := range decoded {
		m, err := x.ReadRow(rec, row)
		require.NoError(t, err)
		assert.True(t, proto.Equal(decoded[row], m), "row %d", row)
	}
}

func TestRowExtractorRowRange(t *testing.T) {
	rec := encodeExamples(t, DefaultConfig(), sampleExamples(t))
	x, err := NewRowExtractor(rec.Schema(), exampleType(t))
	require.NoError(t, err)

	_, err = x.ReadRow(rec, -1)
	assert.Error(t, err)
	_, err = x.ReadRow(rec, int(rec.NumRows()))
	assert.Error(t, err)
}

func TestRowExtractorSchemaMismatch(t *testing.T) {
	rec := encodeExamples(t, DefaultConfig(), sampleExamples(t))
	other := arrow.NewSchema([]arrow.Field{{Name: "int64_value", Type: arrow.PrimitiveTypes.Int64}}, nil)

	x, err := NewRowExtractor(other, exampleType(t))
	require.NoError(t, err)
	_, err = x.ReadRow(rec, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrColumnMismatch)
}

func TestRowExtractorRejectsIncompatibleSchema(t *testing.T) {
	schema := arrow.NewSchema([]arrow.Field{{Name: "status", Type: arrow.FixedWidthTypes.Boolean}}, nil)
	_, err := NewRowExtractor(schema, exampleType(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEnumTypeMismatch)
}

func TestRowExtractorConcurrentReads(t *testing.T) {
	msgs := sampleExamples(t)
	rec := encodeExamples(t, DefaultConfig(), msgs)
	x, err := NewRowExtractor(rec.Schema(), exampleType(t))
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 8*len(msgs))
	for i := 0; i < 8; i++ {
		for row := range msgs {
			wg.Add(1)
			go func(row int) {
				defer wg.Done()
				m, err := x.ReadRow(rec, row)
				if err == nil && !proto.Equal(msgs[row], m) {
					t.Errorf("row %d differs", row)
				}
				errs <- err
			}(row)
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
}
