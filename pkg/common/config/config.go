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

// Package config loads protoarrow settings from YAML or JSON files.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/arrowarc/protoarrow/internal/json"
	"github.com/arrowarc/protoarrow/pkg/arrowproto"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Mapping  Mapping  `yaml:"mapping" json:"mapping"`
	Settings Settings `yaml:"settings" json:"settings"`
}

// Mapping mirrors arrowproto.Config. Empty values keep the arrowproto defaults.
type Mapping struct {
	EnumType          string  `yaml:"enum_type" json:"enum_type"`
	TimestampUnit     string  `yaml:"timestamp_unit" json:"timestamp_unit"`
	TimestampZone     *string `yaml:"timestamp_zone" json:"timestamp_zone"`
	TimeOfDayUnit     string  `yaml:"time_of_day_unit" json:"time_of_day_unit"`
	DurationUnit      string  `yaml:"duration_unit" json:"duration_unit"`
	StringType        string  `yaml:"string_type" json:"string_type"`
	BinaryType        string  `yaml:"binary_type" json:"binary_type"`
	ListNullable      bool    `yaml:"list_nullable" json:"list_nullable"`
	MapNullable       bool    `yaml:"map_nullable" json:"map_nullable"`
	ListValueNullable bool    `yaml:"list_value_nullable" json:"list_value_nullable"`
	MapValueNullable  bool    `yaml:"map_value_nullable" json:"map_value_nullable"`
	ListValueName     string  `yaml:"list_value_name" json:"list_value_name"`
	MapValueName      string  `yaml:"map_value_name" json:"map_value_name"`
	FieldNumberKey    string  `yaml:"field_number_key" json:"field_number_key"`
	ListArrayType     string  `yaml:"list_array_type" json:"list_array_type"`
	CyclePolicy       string  `yaml:"cycle_policy" json:"cycle_policy"`
}

type Settings struct {
	LogLevel           string `yaml:"log_level" json:"log_level"`
	BatchSize          int    `yaml:"batch_size" json:"batch_size"`
	OutputFormat       string `yaml:"output_format" json:"output_format"`
	ParquetCompression string `yaml:"parquet_compression" json:"parquet_compression"`
}

// OutputFormat enums
const (
	OutputFormatIPC     = "ipc"
	OutputFormatParquet = "parquet"
)

const DefaultBatchSize = 1024

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{Settings: Settings{
		LogLevel:     "info",
		BatchSize:    DefaultBatchSize,
		OutputFormat: OutputFormatIPC,
	}}
}

// ParseConfig reads configPath as JSON when it has a .json extension and
// as YAML otherwise. Unknown keys are rejected. Missing settings take
// their Default values.
func ParseConfig(configPath string) (*Config, error) {
	configFile, err := os.Open(configPath)
	if err != nil {
		return nil, err
	}
	defer configFile.Close()

	config := Default()
	if strings.EqualFold(filepath.Ext(configPath), ".json") {
		err = json.DecodeStrict(configFile, config)
	} else {
		decoder := yaml.NewDecoder(configFile)
		decoder.KnownFields(true)
		err = decoder.Decode(config)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", configPath, err)
	}
	return config, nil
}

func (c *Config) Validate() error {
	if err := c.validateSettings(); err != nil {
		return err
	}
	_, err := c.Mapping.ArrowProto()
	return err
}

func (c *Config) validateSettings() error {
	if c.Settings.BatchSize < 1 {
		return fmt.Errorf("batch_size must be greater than 0")
	}
	switch c.Settings.OutputFormat {
	case OutputFormatIPC, OutputFormatParquet:
	default:
		return fmt.Errorf("output_format must be %q or %q, got %q", OutputFormatIPC, OutputFormatParquet, c.Settings.OutputFormat)
	}
	switch c.Settings.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log_level %q", c.Settings.LogLevel)
	}
	return nil
}

// ArrowProto builds the arrowproto.Config described by m.
func (m Mapping) ArrowProto() (*arrowproto.Config, error) {
	opts, err := m.options()
	if err != nil {
		return nil, err
	}
	return arrowproto.NewConfig(opts...)
}

func (m Mapping) options() ([]arrowproto.ConfigOption, error) {
	var opts []arrowproto.ConfigOption

	if m.EnumType != "" {
		dt, err := enumType(m.EnumType)
		if err != nil {
			return nil, err
		}
		opts = append(opts, arrowproto.WithEnumType(dt))
	}
	if m.TimestampUnit != "" || m.TimestampZone != nil {
		def := arrowproto.DefaultConfig().TimestampType()
		ts := &arrow.TimestampType{Unit: def.Unit, TimeZone: def.TimeZone}
		if m.TimestampUnit != "" {
			unit, err := timeUnit("timestamp_unit", m.TimestampUnit)
			if err != nil {
				return nil, err
			}
			ts.Unit = unit
		}
		if m.TimestampZone != nil {
			ts.TimeZone = *m.TimestampZone
		}
		opts = append(opts, arrowproto.WithTimestampType(ts))
	}
	if m.TimeOfDayUnit != "" {
		unit, err := timeUnit("time_of_day_unit", m.TimeOfDayUnit)
		if err != nil {
			return nil, err
		}
		var dt arrow.DataType = &arrow.Time64Type{Unit: unit}
		if unit == arrow.Second || unit == arrow.Millisecond {
			dt = &arrow.Time32Type{Unit: unit}
		}
		opts = append(opts, arrowproto.WithTimeOfDayType(dt))
	}
	if m.DurationUnit != "" {
		unit, err := timeUnit("duration_unit", m.DurationUnit)
		if err != nil {
			return nil, err
		}
		opts = append(opts, arrowproto.WithDurationType(&arrow.DurationType{Unit: unit}))
	}
	if m.StringType != "" {
		dt, err := namedType("string_type", m.StringType)
		if err != nil {
			return nil, err
		}
		opts = append(opts, arrowproto.WithStringType(dt))
	}
	if m.BinaryType != "" {
		dt, err := namedType("binary_type", m.BinaryType)
		if err != nil {
			return nil, err
		}
		opts = append(opts, arrowproto.WithBinaryType(dt))
	}
	if m.ListValueName != "" {
		opts = append(opts, arrowproto.WithListValueName(m.ListValueName))
	}
	if m.MapValueName != "" {
		opts = append(opts, arrowproto.WithMapValueName(m.MapValueName))
	}
	if m.ListArrayType != "" {
		switch m.ListArrayType {
		case arrowproto.ListArray.String():
			opts = append(opts, arrowproto.WithListArrayType(arrowproto.ListArray))
		case arrowproto.LargeListArray.String():
			opts = append(opts, arrowproto.WithListArrayType(arrowproto.LargeListArray))
		default:
			return nil, &arrowproto.ConfigError{Option: "list_array_type", Value: m.ListArrayType}
		}
	}
	if m.CyclePolicy != "" {
		switch m.CyclePolicy {
		case arrowproto.RejectCycles.String():
			opts = append(opts, arrowproto.WithCyclePolicy(arrowproto.RejectCycles))
		case arrowproto.PruneCycles.String():
			opts = append(opts, arrowproto.WithCyclePolicy(arrowproto.PruneCycles))
		default:
			return nil, &arrowproto.ConfigError{Option: "cycle_policy", Value: m.CyclePolicy}
		}
	}
	return append(opts,
		arrowproto.WithListNullable(m.ListNullable),
		arrowproto.WithMapNullable(m.MapNullable),
		arrowproto.WithListValueNullable(m.ListValueNullable),
		arrowproto.WithMapValueNullable(m.MapValueNullable),
		arrowproto.WithFieldNumberKey(m.FieldNumberKey),
	), nil
}

var namedTypes = map[string]arrow.DataType{
	"int32":        arrow.PrimitiveTypes.Int32,
	"string":       arrow.BinaryTypes.String,
	"large_string": arrow.BinaryTypes.LargeString,
	"binary":       arrow.BinaryTypes.Binary,
	"large_binary": arrow.BinaryTypes.LargeBinary,
}

func namedType(option, name string) (arrow.DataType, error) {
	if dt, ok := namedTypes[name]; ok {
		return dt, nil
	}
	return nil, &arrowproto.ConfigError{Option: option, Value: name}
}

// enumType accepts the named types and "dictionary<name>" for a dictionary
// of int32 indices over name.
func enumType(name string) (arrow.DataType, error) {
	if inner, ok := strings.CutPrefix(name, "dictionary<"); ok && strings.HasSuffix(inner, ">") {
		value, err := namedType("enum_type", strings.TrimSuffix(inner, ">"))
		if err != nil {
			return nil, err
		}
		return &arrow.DictionaryType{IndexType: arrow.PrimitiveTypes.Int32, ValueType: value}, nil
	}
	return namedType("enum_type", name)
}

func timeUnit(option, name string) (arrow.TimeUnit, error) {
	switch name {
	case "s":
		return arrow.Second, nil
	case "ms":
		return arrow.Millisecond, nil
	case "us":
		return arrow.Microsecond, nil
	case "ns":
		return arrow.Nanosecond, nil
	}
	return 0, &arrowproto.ConfigError{Option: option, Value: name}
}
