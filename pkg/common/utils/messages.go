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
	"errors"
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/arrowarc/protoarrow/internal/json"
	"github.com/arrowarc/protoarrow/pkg/arrowproto"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
)

// MessageBatchReader reads a stream of JSON encoded messages, one document
// after another as in JSON Lines, and encodes them into records of at most
// BatchSize rows.
type MessageBatchReader struct {
	dec       *json.Decoder
	mt        protoreflect.MessageType
	cfg       *arrowproto.Config
	opts      []arrowproto.Option
	batchSize int
	read      int
	done      bool
}

func NewMessageBatchReader(r io.Reader, mt protoreflect.MessageType, cfg *arrowproto.Config, batchSize int, opts ...arrowproto.Option) *MessageBatchReader {
	if batchSize <= 0 {
		batchSize = 1024
	}
	return &MessageBatchReader{
		dec:       json.NewDecoder(r),
		mt:        mt,
		cfg:       cfg,
		opts:      opts,
		batchSize: batchSize,
	}
}

// Read returns the next batch, or io.EOF once the input is exhausted.
func (r *MessageBatchReader) Read() (arrow.Record, error) {
	if r.done {
		return nil, io.EOF
	}
	msgs := make([]proto.Message, 0, r.batchSize)
	for len(msgs) < r.batchSize {
		var raw json.RawMessage
		if err := r.dec.Decode(&raw); err != nil {
			if errors.Is(err, io.EOF) {
				r.done = true
				break
			}
			return nil, fmt.Errorf("message %d: %w", r.read+1, err)
		}
		r.read++
		m := r.mt.New().Interface()
		if err := protojson.Unmarshal(raw, m); err != nil {
			return nil, fmt.Errorf("message %d: %w", r.read, err)
		}
		msgs = append(msgs, m)
	}
	if len(msgs) == 0 {
		return nil, io.EOF
	}
	return arrowproto.Encode(msgs, r.mt.Descriptor(), r.cfg, r.opts...)
}

// MessageWriter decodes records and writes every row as one line of
// protojson.
type MessageWriter struct {
	w    *bufio.Writer
	mt   protoreflect.MessageType
	opts []arrowproto.Option
	enc  protojson.MarshalOptions
}

func NewMessageWriter(w io.Writer, mt protoreflect.MessageType, opts ...arrowproto.Option) *MessageWriter {
	return &MessageWriter{
		w:    bufio.NewWriter(w),
		mt:   mt,
		opts: opts,
		enc:  protojson.MarshalOptions{UseProtoNames: true},
	}
}

func (w *MessageWriter) Write(rec arrow.Record) error {
	msgs, err := arrowproto.Decode(rec, w.mt, w.opts...)
	if err != nil {
		return err
	}
	for _, m := range msgs {
		line, err := w.enc.Marshal(m)
		if err != nil {
			return err
		}
		if _, err := w.w.Write(line); err != nil {
			return err
		}
		if err := w.w.WriteByte('\n'); err != nil {
			return err
		}
	}
	return nil
}

// Flush writes any buffered lines to the underlying writer.
func (w *MessageWriter) Flush() error {
	return w.w.Flush()
}
