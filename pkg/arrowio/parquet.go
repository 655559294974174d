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

package arrowio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
)

type ParquetWriteOptions struct {
	Compression       compress.Compression
	MaxRowGroupLength int64
	WriterAllocator   memory.Allocator
	// StoreSchema embeds the Arrow schema so readers restore the exact
	// column types, such as dictionaries and time32 columns.
	StoreSchema bool
}

func NewDefaultParquetWriteOptions() *ParquetWriteOptions {
	return &ParquetWriteOptions{
		Compression:       compress.Codecs.Snappy,
		MaxRowGroupLength: 64 * 1024,
		WriterAllocator:   memory.DefaultAllocator,
		StoreSchema:       true,
	}
}

func (o *ParquetWriteOptions) writerProperties() (*parquet.WriterProperties, pqarrow.ArrowWriterProperties) {
	props := parquet.NewWriterProperties(
		parquet.WithAllocator(o.WriterAllocator),
		parquet.WithCompression(o.Compression),
		parquet.WithMaxRowGroupLength(o.MaxRowGroupLength),
	)
	var arrowOpts []pqarrow.WriterOption
	if o.StoreSchema {
		arrowOpts = append(arrowOpts, pqarrow.WithStoreSchema())
	}
	return props, pqarrow.NewArrowWriterProperties(arrowOpts...)
}

var parquetCodecs = map[string]compress.Compression{
	"":             compress.Codecs.Snappy,
	"snappy":       compress.Codecs.Snappy,
	"uncompressed": compress.Codecs.Uncompressed,
	"none":         compress.Codecs.Uncompressed,
	"gzip":         compress.Codecs.Gzip,
	"brotli":       compress.Codecs.Brotli,
	"zstd":         compress.Codecs.Zstd,
	"lz4":          compress.Codecs.Lz4Raw,
}

// ParquetCompression resolves a codec name. The empty name selects snappy.
func ParquetCompression(name string) (compress.Compression, error) {
	if c, ok := parquetCodecs[strings.ToLower(name)]; ok {
		return c, nil
	}
	return compress.Codecs.Uncompressed, fmt.Errorf("unsupported parquet compression %q", name)
}

// ReadParquetFileStream sends the content of the Parquet file at filePath
// in batches of at most batchSize rows. The receiver owns each record and
// must release it.
func ReadParquetFileStream(ctx context.Context, filePath string, batchSize int64, mem memory.Allocator) (<-chan arrow.Record, <-chan error) {
	if batchSize <= 0 {
		batchSize = 1024
	}
	if mem == nil {
		mem = memory.DefaultAllocator
	}

	recordChan := make(chan arrow.Record)
	errChan := make(chan error, 1)

	go func() {
		defer close(recordChan)
		defer close(errChan)

		parquetRdr, err := file.OpenParquetFile(filePath, false)
		if err != nil {
			errChan <- fmt.Errorf("failed to open Parquet file: %w", err)
			return
		}
		defer parquetRdr.Close()

		arrowReadProps := pqarrow.ArrowReadProperties{BatchSize: batchSize}
		arrowRdr, err := pqarrow.NewFileReader(parquetRdr, arrowReadProps, mem)
		if err != nil {
			errChan <- fmt.Errorf("failed to create Arrow file reader: %w", err)
			return
		}

		recordReader, err := arrowRdr.GetRecordReader(ctx, nil, nil)
		if err != nil {
			errChan <- fmt.Errorf("failed to get record reader: %w", err)
			return
		}
		defer recordReader.Release()

		for recordReader.Next() {
			record := recordReader.Record()
			record.Retain()
			select {
			case <-ctx.Done():
				record.Release()
				errChan <- ctx.Err()
				return
			case recordChan <- record:
			}
		}
		if err := recordReader.Err(); err != nil && !errors.Is(err, io.EOF) {
			errChan <- fmt.Errorf("error reading Parquet file: %w", err)
		}
	}()

	return recordChan, errChan
}

// WriteParquetFileStream writes the records received on records to a new
// Parquet file with the given schema, releasing each one once written.
func WriteParquetFileStream(ctx context.Context, filePath string, schema *arrow.Schema, records <-chan arrow.Record, opts *ParquetWriteOptions) <-chan error {
	if opts == nil {
		opts = NewDefaultParquetWriteOptions()
	}
	errChan := make(chan error, 1)

	go func() {
		defer close(errChan)

		f, err := os.Create(filePath)
		if err != nil {
			errChan <- fmt.Errorf("failed to create file: %w", err)
			return
		}
		defer f.Close()

		props, arrowProps := opts.writerProperties()
		parquetWriter, err := pqarrow.NewFileWriter(schema, f, props, arrowProps)
		if err != nil {
			errChan <- fmt.Errorf("failed to create Parquet writer: %w", err)
			return
		}

		if err := writeAll(ctx, records, parquetWriter.Write); err != nil {
			parquetWriter.Close()
			errChan <- err
			return
		}
		if err := parquetWriter.Close(); err != nil {
			errChan <- fmt.Errorf("failed to close Parquet writer: %w", err)
		}
	}()

	return errChan
}
