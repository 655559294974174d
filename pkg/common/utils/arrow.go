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
	"context"
	"errors"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"golang.org/x/sync/errgroup"
)

// MapRecords applies fn to every record received on in and sends the
// results. Input records are released once fn returns. After the first
// failure the rest of in is drained and released.
func MapRecords(ctx context.Context, in <-chan arrow.Record, fn func(arrow.Record) (arrow.Record, error)) (<-chan arrow.Record, <-chan error) {
	out := make(chan arrow.Record)
	errChan := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errChan)
		defer drainRecords(in)

		for record := range in {
			mapped, err := fn(record)
			record.Release()
			if err != nil {
				errChan <- err
				return
			}
			select {
			case <-ctx.Done():
				mapped.Release()
				errChan <- ctx.Err()
				return
			case out <- mapped:
			}
		}
	}()

	return out, errChan
}

// CollectRecords gathers every record sent on records until the channel
// closes, then returns the first error from errs. On error the gathered
// records are released.
func CollectRecords(records <-chan arrow.Record, errs <-chan error) ([]arrow.Record, error) {
	var collected []arrow.Record
	for record := range records {
		collected = append(collected, record)
	}
	for err := range errs {
		if err != nil {
			for _, record := range collected {
				record.Release()
			}
			return nil, err
		}
	}
	return collected, nil
}

// MergeErrors forwards the errors of every channel to a single channel,
// closed once all inputs are closed.
func MergeErrors(errChans ...<-chan error) <-chan error {
	merged := make(chan error, len(errChans))
	var g errgroup.Group
	for _, errChan := range errChans {
		g.Go(func() error {
			for err := range errChan {
				merged <- err
			}
			return nil
		})
	}
	go func() {
		_ = g.Wait()
		close(merged)
	}()
	return merged
}

// ProcessStreams waits for both sides of a pipeline to finish and returns
// the first error seen, read errors first. Both channels are drained.
func ProcessStreams(readErrChan <-chan error, writeErrChan <-chan error) error {
	if readErrChan == nil || writeErrChan == nil {
		return errors.New("read and write error channels cannot be nil")
	}

	var readErr error
	var g errgroup.Group

	g.Go(func() error {
		for err := range readErrChan {
			if err != nil && readErr == nil {
				readErr = fmt.Errorf("error while reading: %w", err)
			}
		}
		return readErr
	})

	g.Go(func() error {
		var writeErr error
		for err := range writeErrChan {
			if err != nil && writeErr == nil {
				writeErr = fmt.Errorf("error while writing: %w", err)
			}
		}
		return writeErr
	})

	err := g.Wait()
	if readErr != nil {
		return readErr
	}
	return err
}

func drainRecords(records <-chan arrow.Record) {
	for record := range records {
		record.Release()
	}
}
