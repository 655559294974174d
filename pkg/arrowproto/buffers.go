package arrowproto

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/bitutil"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// validityBitmap packs valid into a bitmap. It returns a nil buffer when
// every slot is valid.
func validityBitmap(mem memory.Allocator, valid []bool) (*memory.Buffer, int) {
	nulls := 0
	for _, v := range valid {
		if !v {
			nulls++
		}
	}
	if nulls == 0 {
		return nil, 0
	}
	buf := memory.NewResizableBuffer(mem)
	buf.Resize(int(bitutil.BytesForBits(int64(len(valid)))))
	memory.Set(buf.Bytes(), 0)

	wr := bitutil.NewBitmapWriter(buf.Bytes(), 0, len(valid))
	wr.AppendBools(valid)
	wr.Finish()
	return buf, nulls
}

func offsetsBuffer(offsets []int64, large bool) *memory.Buffer {
	if large {
		return memory.NewBufferBytes(arrow.Int64Traits.CastToBytes(offsets))
	}
	narrow := make([]int32, len(offsets))
	for i, o := range offsets {
		narrow[i] = int32(o)
	}
	return memory.NewBufferBytes(arrow.Int32Traits.CastToBytes(narrow))
}

func releaseBuffer(buf *memory.Buffer) {
	if buf != nil {
		buf.Release()
	}
}

func releaseArrays(arrs []arrow.Array) {
	for _, a := range arrs {
		if a != nil {
			a.Release()
		}
	}
}

func newStructArray(mem memory.Allocator, typ *arrow.StructType, valid []bool, cols []arrow.Array) arrow.Array {
	bitmap, nulls := validityBitmap(mem, valid)
	defer releaseBuffer(bitmap)

	children := make([]arrow.ArrayData, len(cols))
	for i, c := range cols {
		children[i] = c.Data()
	}
	data := array.NewData(typ, len(valid), []*memory.Buffer{bitmap}, children, nulls, 0)
	defer data.Release()
	return array.MakeFromData(data)
}

func newListArray(mem memory.Allocator, typ arrow.DataType, valid []bool, offsets []int64, values arrow.Array) arrow.Array {
	bitmap, nulls := validityBitmap(mem, valid)
	defer releaseBuffer(bitmap)

	offs := offsetsBuffer(offsets, typ.ID() == arrow.LARGE_LIST)
	defer offs.Release()

	data := array.NewData(typ, len(valid), []*memory.Buffer{bitmap, offs}, []arrow.ArrayData{values.Data()}, nulls, 0)
	defer data.Release()
	return array.MakeFromData(data)
}

func newMapArray(mem memory.Allocator, typ *arrow.MapType, valid []bool, offsets []int64, keys, items arrow.Array) arrow.Array {
	entries := array.NewData(typ.ValueType(), keys.Len(), []*memory.Buffer{nil},
		[]arrow.ArrayData{keys.Data(), items.Data()}, 0, 0)
	defer entries.Release()

	bitmap, nulls := validityBitmap(mem, valid)
	defer releaseBuffer(bitmap)

	offs := offsetsBuffer(offsets, false)
	defer offs.Release()

	data := array.NewData(typ, len(valid), []*memory.Buffer{bitmap, offs}, []arrow.ArrayData{entries}, nulls, 0)
	defer data.Release()
	return array.MakeFromData(data)
}

// gather returns the concatenation of the [start, end) runs of arr.
func gather(mem memory.Allocator, arr arrow.Array, runs [][2]int64) (arrow.Array, error) {
	switch len(runs) {
	case 0:
		return array.NewSlice(arr, 0, 0), nil
	case 1:
		return array.NewSlice(arr, runs[0][0], runs[0][1]), nil
	}
	parts := make([]arrow.Array, len(runs))
	for i, r := range runs {
		parts[i] = array.NewSlice(arr, r[0], r[1])
	}
	defer releaseArrays(parts)
	return array.Concatenate(parts, mem)
}

// addRun appends [start, end) to runs, merging it with the previous run when they touch.
func addRun(runs [][2]int64, start, end int64) [][2]int64 {
	if start == end {
		return runs
	}
	if n := len(runs); n > 0 && runs[n-1][1] == start {
		runs[n-1][1] = end
		return runs
	}
	return append(runs, [2]int64{start, end})
}
