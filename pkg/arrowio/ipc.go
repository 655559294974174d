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

// Package arrowio streams record batches to and from Arrow IPC and Parquet
// files over channels.
package arrowio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// ReadIPCFileStream sends every record of the IPC file at filePath. The
// receiver owns each record and must release it. The record channel is
// closed when the file is exhausted; at most one error is sent.
func ReadIPCFileStream(ctx context.Context, filePath string, mem memory.Allocator) (<-chan arrow.Record, <-chan error) {
	if mem == nil {
		mem = memory.DefaultAllocator
	}
	recordChan := make(chan arrow.Record)
	errChan := make(chan error, 1)

	go func() {
		defer close(recordChan)
		defer close(errChan)

		f, err := os.Open(filePath)
		if err != nil {
			errChan <- fmt.Errorf("failed to open IPC file: %w", err)
			return
		}
		defer f.Close()

		reader, err := ipc.NewFileReader(f, ipc.WithAllocator(mem))
		if err != nil {
			errChan <- fmt.Errorf("failed to create IPC reader: %w", err)
			return
		}
		defer reader.Close()

		for i := 0; i < reader.NumRecords(); i++ {
			record, err := reader.RecordAt(i)
			if err != nil {
				if !errors.Is(err, io.EOF) {
					errChan <- fmt.Errorf("error reading IPC record %d: %w", i, err)
				}
				return
			}
			select {
			case <-ctx.Done():
				record.Release()
				errChan <- ctx.Err()
				return
			case recordChan <- record:
			}
		}
	}()

	return recordChan, errChan
}

// ReadIPCSchema returns the schema stored in the IPC file at filePath.
func ReadIPCSchema(filePath string) (*arrow.Schema, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open IPC file: %w", err)
	}
	defer f.Close()

	reader, err := ipc.NewFileReader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to create IPC reader: %w", err)
	}
	defer reader.Close()
	return reader.Schema(), nil
}

// WriteIPCFileStream writes the records received on records to a new IPC
// file with the given schema, releasing each one once written. The file
// is complete when the returned channel closes without an error.
func WriteIPCFileStream(ctx context.Context, filePath string, schema *arrow.Schema, records <-chan arrow.Record, opts ...ipc.Option) <-chan error {
	errChan := make(chan error, 1)

	go func() {
		defer close(errChan)

		f, err := os.Create(filePath)
		if err != nil {
			errChan <- fmt.Errorf("could not create file: %w", err)
			return
		}
		defer f.Close()

		opts = append([]ipc.Option{ipc.WithSchema(schema)}, opts...)
		ww, err := ipc.NewFileWriter(f, opts...)
		if err != nil {
			errChan <- fmt.Errorf("could not create IPC writer: %w", err)
			return
		}

		if err := writeAll(ctx, records, ww.Write); err != nil {
			ww.Close()
			errChan <- err
			return
		}
		if err := ww.Close(); err != nil {
			errChan <- fmt.Errorf("could not close writer: %w", err)
		}
	}()

	return errChan
}

// IPCCompression maps a codec name to its IPC writer option. The empty
// name disables compression.
func IPCCompression(name string) ([]ipc.Option, error) {
	switch name {
	case "", "none", "uncompressed":
		return nil, nil
	case "zstd":
		return []ipc.Option{ipc.WithZstd()}, nil
	case "lz4", "lz4_frame":
		return []ipc.Option{ipc.WithLZ4()}, nil
	}
	return nil, fmt.Errorf("unsupported IPC compression %q, only lz4 or zstd is allowed", name)
}

// writeAll passes every record from records to write until the channel
// closes or ctx is done. Records left in the channel after an error are
// drained and released.
func writeAll(ctx context.Context, records <-chan arrow.Record, write func(arrow.Record) error) error {
	for {
		select {
		case <-ctx.Done():
			go drain(records)
			return ctx.Err()
		case record, ok := <-records:
			if !ok {
				return nil
			}
			err := write(record)
			record.Release()
			if err != nil {
				go drain(records)
				return fmt.Errorf("could not write record: %w", err)
			}
		}
	}
}

func drain(records <-chan arrow.Record) {
	for record := range records {
		record.Release()
	}
}
