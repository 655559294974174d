// --------------------------------------------------------------------------------
// Author: Thomas F McGeehan V
//
// This file is part of a software project developed by Thomas F McGeehan V.
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.
//
// For more information about the MIT License, please visit:
// https://opensource.org/licenses/MIT
//
// Acknowledgment appreciated but not required.
// --------------------------------------------------------------------------------

package utils

import (
	"bufio"
	"bytes"
	"strings"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/arrowarc/protoarrow/internal/arrio"
	"github.com/arrowarc/protoarrow/internal/testutil"
	"github.com/arrowarc/protoarrow/pkg/arrowproto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
)

const ordersJSONL = `{"id": "a-1", "placedAt": "2024-01-02T03:04:05.123Z", "quantities": ["1", "2"], "status": "STATUS_PAID"}
{"id": "a-2"}
{"quantities": [7], "status": 1}
`

func parseLines(t *testing.T, mt protoreflect.MessageType, text string) []proto.Message {
	t.Helper()
	var msgs []proto.Message
	sc := bufio.NewScanner(strings.NewReader(text))
	for sc.Scan() {
		if strings.TrimSpace(sc.Text()) == "" {
			continue
		}
		m := mt.New().Interface()
		require.NoError(t, protojson.Unmarshal(sc.Bytes(), m), sc.Text())
		msgs = append(msgs, m)
	}
	require.NoError(t, sc.Err())
	return msgs
}

func TestMessageBatchReader(t *testing.T) {
	mt := orderType(t)
	r := NewMessageBatchReader(strings.NewReader(ordersJSONL), mt, arrowproto.DefaultConfig(), 2,
		arrowproto.WithAllocator(memory.NewGoAllocator()))

	var rows []int64
	var msgs []proto.Message
	for {
		rec, err := r.Read()
		if err != nil {
			break
		}
		rows = append(rows, rec.NumRows())
		decoded, err := arrowproto.Decode(rec, mt)
		require.NoError(t, err)
		msgs = append(msgs, decoded...)
		rec.Release()
	}
	assert.Equal(t, []int64{2, 1}, rows)
	testutil.RequireMessages(t, parseLines(t, mt, ordersJSONL), msgs)
}

func TestMessageBatchReaderErrors(t *testing.T) {
	mt := orderType(t)

	r := NewMessageBatchReader(strings.NewReader(`{"id": "a"} {"unknown": 1}`), mt, arrowproto.DefaultConfig(), 10)
	_, err := r.Read()
	assert.ErrorContains(t, err, "message 2")

	r = NewMessageBatchReader(strings.NewReader(`{"id": `), mt, arrowproto.DefaultConfig(), 10)
	_, err = r.Read()
	assert.Error(t, err)
}

func TestCopyMessagesThroughRecords(t *testing.T) {
	mt := orderType(t)
	cfg, err := arrowproto.NewConfig(arrowproto.WithEnumType(arrow.BinaryTypes.String))
	require.NoError(t, err)

	var out bytes.Buffer
	w := NewMessageWriter(&out, mt)
	n, err := arrio.Copy(w, NewMessageBatchReader(strings.NewReader(ordersJSONL), mt, cfg, 2))
	require.NoError(t, err)
	require.NoError(t, w.Flush())
	assert.EqualValues(t, 2, n)

	assert.Equal(t, 3, strings.Count(out.String(), "\n"))
	assert.Contains(t, out.String(), `"placed_at"`)
	testutil.RequireMessages(t, parseLines(t, mt, ordersJSONL), parseLines(t, mt, out.String()))
}
