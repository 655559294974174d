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

package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/arrowarc/protoarrow/internal/arrio"
	"github.com/arrowarc/protoarrow/pkg/arrowio"
	"github.com/arrowarc/protoarrow/pkg/arrowproto"
	"github.com/arrowarc/protoarrow/pkg/common/config"
	"github.com/arrowarc/protoarrow/pkg/common/utils"
	"github.com/docopt/docopt-go"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"google.golang.org/protobuf/reflect/protoreflect"
)

const usage = `protoarrow converts protobuf messages to and from Arrow files.

Usage:
  protoarrow schema --descriptor-set=<file> --message=<name> [--config=<file>] [--verbose]
  protoarrow encode --descriptor-set=<file> --message=<name> --output=<file> [--input=<file>] [--config=<file>] [--format=<format>] [--compression=<codec>] [--verbose]
  protoarrow decode --descriptor-set=<file> --message=<name> --input=<file> [--output=<file>] [--config=<file>] [--verbose]
  protoarrow cast --descriptor-set=<file> --message=<name> --input=<file> --output=<file> [--config=<file>] [--format=<format>] [--compression=<codec>] [--verbose]
  protoarrow validate-config --config=<file>
  protoarrow -h | --help

Options:
  -h --help                 Show this screen.
  --descriptor-set=<file>   FileDescriptorSet written by protoc --descriptor_set_out.
  --message=<name>          Fully qualified message name, e.g. shop.v1.Order.
  --config=<file>           YAML or JSON configuration file.
  --input=<file>            Input file. encode reads JSON Lines from stdin when omitted.
  --output=<file>           Output file. decode writes JSON Lines to stdout when omitted.
  --format=<format>         Output format, ipc or parquet. Overrides settings.output_format.
  --compression=<codec>     Output compression codec.
  --verbose                 Log at debug level.
`

type command struct {
	cfg     *config.Config
	mapping *arrowproto.Config
	mt      protoreflect.MessageType
	logger  *zap.Logger

	input       string
	output      string
	format      string
	compression string
}

func main() {
	arguments, err := docopt.ParseDoc(usage)
	if err != nil {
		log.Fatalf("Error parsing arguments: %v", err)
	}

	cfg := config.Default()
	if path, _ := arguments.String("--config"); path != "" {
		if cfg, err = config.ParseConfig(path); err != nil {
			log.Fatalf("Failed to parse config: %v", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}
	if ok, _ := arguments.Bool("validate-config"); ok {
		fmt.Println("Configuration is valid.")
		return
	}

	verbose, _ := arguments.Bool("--verbose")
	logger, err := newLogger(cfg.Settings.LogLevel, verbose)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	mapping, err := cfg.Mapping.ArrowProto()
	if err != nil {
		logger.Fatal("invalid mapping", zap.Error(err))
	}
	descriptorSet, _ := arguments.String("--descriptor-set")
	messageName, _ := arguments.String("--message")
	mt, err := loadMessageType(descriptorSet, messageName)
	if err != nil {
		logger.Fatal("failed to load message type", zap.Error(err))
	}

	cmd := &command{cfg: cfg, mapping: mapping, mt: mt, logger: logger}
	cmd.input, _ = arguments.String("--input")
	cmd.output, _ = arguments.String("--output")
	cmd.compression, _ = arguments.String("--compression")
	cmd.format, _ = arguments.String("--format")
	if cmd.format == "" {
		cmd.format = cfg.Settings.OutputFormat
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	var run func(context.Context) error
	switch {
	case isSet(arguments, "schema"):
		run = cmd.schema
	case isSet(arguments, "encode"):
		run = cmd.encode
	case isSet(arguments, "decode"):
		run = cmd.decode
	case isSet(arguments, "cast"):
		run = cmd.cast
	}
	if err := run(ctx); err != nil {
		logger.Fatal("command failed", zap.Error(err))
	}
}

func isSet(arguments docopt.Opts, name string) bool {
	ok, _ := arguments.Bool(name)
	return ok
}

func newLogger(level string, verbose bool) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	zcfg.OutputPaths = []string{"stderr"}
	if level != "" {
		lvl, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, err
		}
		zcfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	if verbose {
		zcfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return zcfg.Build()
}

func loadMessageType(descriptorSet, name string) (protoreflect.MessageType, error) {
	files, err := utils.LoadFileDescriptorSet(descriptorSet)
	if err != nil {
		return nil, err
	}
	return utils.FindMessageType(files, name)
}

func (c *command) options() []arrowproto.Option {
	return []arrowproto.Option{arrowproto.WithLogger(c.logger)}
}

func (c *command) schema(ctx context.Context) error {
	schema, err := arrowproto.DeriveSchema(c.mt.Descriptor(), c.mapping, c.options()...)
	if err != nil {
		return err
	}
	fmt.Println(schema)
	return nil
}

func (c *command) encode(ctx context.Context) error {
	schema, err := arrowproto.DeriveSchema(c.mt.Descriptor(), c.mapping, c.options()...)
	if err != nil {
		return err
	}

	var in io.Reader = os.Stdin
	if c.input != "" {
		f, err := os.Open(c.input)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	write, err := c.writer(ctx, schema)
	if err != nil {
		return err
	}
	reader := utils.NewMessageBatchReader(in, c.mt, c.mapping, c.cfg.Settings.BatchSize, c.options()...)
	records, readErrs := arrio.Send(ctx, reader)
	if err := utils.ProcessStreams(readErrs, write(records)); err != nil {
		return err
	}
	c.logger.Info("encoded messages",
		zap.String("message", string(c.mt.Descriptor().FullName())),
		zap.String("output", c.output),
		zap.String("format", c.format))
	return nil
}

func (c *command) decode(ctx context.Context) error {
	var out io.Writer = os.Stdout
	if c.output != "" {
		f, err := os.Create(c.output)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	records, readErrs := c.read(ctx)
	w := utils.NewMessageWriter(out, c.mt, c.options()...)
	writeErrs := make(chan error, 1)
	go func() {
		defer close(writeErrs)
		n, err := arrio.WriteAll(w, records)
		if err == nil {
			err = w.Flush()
		}
		c.logger.Debug("decoded records", zap.Int64("records", n))
		writeErrs <- err
	}()
	return utils.ProcessStreams(readErrs, writeErrs)
}

func (c *command) cast(ctx context.Context) error {
	md := c.mt.Descriptor()
	schema, err := arrowproto.DeriveSchema(md, c.mapping, c.options()...)
	if err != nil {
		return err
	}

	write, err := c.writer(ctx, schema)
	if err != nil {
		return err
	}
	records, readErrs := c.read(ctx)
	casted, castErrs := utils.MapRecords(ctx, records, func(rec arrow.Record) (arrow.Record, error) {
		return arrowproto.Cast(rec, md, c.mapping, c.options()...)
	})
	return utils.ProcessStreams(utils.MergeErrors(readErrs, castErrs), write(casted))
}

func (c *command) read(ctx context.Context) (<-chan arrow.Record, <-chan error) {
	if isParquet(c.input) {
		return arrowio.ReadParquetFileStream(ctx, c.input, int64(c.cfg.Settings.BatchSize), nil)
	}
	return arrowio.ReadIPCFileStream(ctx, c.input, nil)
}

type writeFunc func(records <-chan arrow.Record) <-chan error

// writer resolves the output format and codec before any record is read.
func (c *command) writer(ctx context.Context, schema *arrow.Schema) (writeFunc, error) {
	switch c.format {
	case config.OutputFormatParquet:
		codec := c.compression
		if codec == "" {
			codec = c.cfg.Settings.ParquetCompression
		}
		compression, err := arrowio.ParquetCompression(codec)
		if err != nil {
			return nil, err
		}
		opts := arrowio.NewDefaultParquetWriteOptions()
		opts.Compression = compression
		return func(records <-chan arrow.Record) <-chan error {
			return arrowio.WriteParquetFileStream(ctx, c.output, schema, records, opts)
		}, nil
	case config.OutputFormatIPC:
		opts, err := arrowio.IPCCompression(c.compression)
		if err != nil {
			return nil, err
		}
		return func(records <-chan arrow.Record) <-chan error {
			return arrowio.WriteIPCFileStream(ctx, c.output, schema, records, opts...)
		}, nil
	}
	return nil, fmt.Errorf("unknown output format %q", c.format)
}

func isParquet(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".parquet", ".pq":
		return true
	}
	return false
}
