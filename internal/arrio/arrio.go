// Package arrio moves records between pull-style readers, writers and the
// channels used by the file streams, with io-like interfaces.
package arrio

import (
	"context"
	"errors"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
)

// Reader is the interface that wraps the Read method.
type Reader interface {
	// Read returns the next record, owned by the caller. At the end of the
	// stream it returns (nil, io.EOF).
	Read() (arrow.Record, error)
}

// Writer is the interface that wraps the Write method. Write does not take
// ownership of rec.
type Writer interface {
	Write(rec arrow.Record) error
}

// Copy writes every record from src to dst and releases it. It returns the
// number of records copied and the first error encountered. Reaching the
// end of src is not an error.
func Copy(dst Writer, src Reader) (n int64, err error) {
	for {
		rec, err := src.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return n, nil
			}
			return n, err
		}
		err = dst.Write(rec)
		rec.Release()
		if err != nil {
			return n, err
		}
		n++
	}
}

// WriteAll writes every record received on records to dst and releases
// it. After the first error the remaining records are only released, so
// the sender never blocks. It returns the number of records written.
func WriteAll(dst Writer, records <-chan arrow.Record) (n int64, err error) {
	for rec := range records {
		if err == nil {
			if err = dst.Write(rec); err == nil {
				n++
			}
		}
		rec.Release()
	}
	return n, err
}

// Send pumps src into a channel until src is exhausted or ctx is done. The
// receiver owns every record sent; at most one error is sent.
func Send(ctx context.Context, src Reader) (<-chan arrow.Record, <-chan error) {
	records := make(chan arrow.Record)
	errs := make(chan error, 1)

	go func() {
		defer close(records)
		defer close(errs)
		for {
			rec, err := src.Read()
			if err != nil {
				if !errors.Is(err, io.EOF) {
					errs <- err
				}
				return
			}
			select {
			case <-ctx.Done():
				rec.Release()
				errs <- ctx.Err()
				return
			case records <- rec:
			}
		}
	}()

	return records, errs
}

type sliceReader struct {
	records []arrow.Record
}

// SliceReader reads the given records in order. Each is retained before it
// is returned, so the caller keeps its own references.
func SliceReader(records ...arrow.Record) Reader {
	return &sliceReader{records: records}
}

func (s *sliceReader) Read() (arrow.Record, error) {
	if len(s.records) == 0 {
		return nil, io.EOF
	}
	rec := s.records[0]
	s.records = s.records[1:]
	rec.Retain()
	return rec, nil
}
