package arrowproto

import (
	"strconv"

	"github.com/apache/arrow-go/v18/arrow"
)

// ListArrayType selects the offset width of list columns.
type ListArrayType int

const (
	// ListArray uses 32-bit offsets.
	ListArray ListArrayType = iota
	// LargeListArray uses 64-bit offsets.
	LargeListArray
)

func (t ListArrayType) String() string {
	switch t {
	case ListArray:
		return "list"
	case LargeListArray:
		return "large_list"
	default:
		return "ListArrayType(" + strconv.Itoa(int(t)) + ")"
	}
}

// CyclePolicy decides what happens when a message type reappears on its own expansion path.
type CyclePolicy int

const (
	// RejectCycles fails schema derivation with a *CycleError.
	RejectCycles CyclePolicy = iota
	// PruneCycles replaces the repeated occurrence with an empty struct.
	PruneCycles
)

func (p CyclePolicy) String() string {
	switch p {
	case RejectCycles:
		return "reject"
	case PruneCycles:
		return "prune"
	default:
		return "CyclePolicy(" + strconv.Itoa(int(p)) + ")"
	}
}

const (
	defaultListValueName = "item"
	defaultMapValueName  = "value"
)

// Config holds every policy choice of the mapping. A Config is immutable
// once NewConfig returns and can be shared between goroutines.
type Config struct {
	enumType          arrow.DataType
	timestampType     *arrow.TimestampType
	timeOfDayType     arrow.DataType
	durationType      *arrow.DurationType
	stringType        arrow.DataType
	binaryType        arrow.DataType
	listNullable      bool
	mapNullable       bool
	listValueNullable bool
	mapValueNullable  bool
	listValueName     string
	mapValueName      string
	fieldNumberKey    string
	listArrayType     ListArrayType
	cyclePolicy       CyclePolicy
}

// ConfigOption customizes a Config under construction.
type ConfigOption func(*Config)

// WithEnumType sets the enum representation: int32, string, large_string,
// binary, large_binary or a dictionary of int32 indices over one of the
// string or binary types.
func WithEnumType(dt arrow.DataType) ConfigOption {
	return func(c *Config) { c.enumType = dt }
}

// WithTimestampType sets the column type of google.protobuf.Timestamp fields.
func WithTimestampType(dt *arrow.TimestampType) ConfigOption {
	return func(c *Config) { c.timestampType = dt }
}

// WithTimeOfDayType sets the column type of google.type.TimeOfDay fields:
// time64 in ns or us, time32 in ms or s.
func WithTimeOfDayType(dt arrow.DataType) ConfigOption {
	return func(c *Config) { c.timeOfDayType = dt }
}

// WithDurationType sets the column type of google.protobuf.Duration fields.
func WithDurationType(dt *arrow.DurationType) ConfigOption {
	return func(c *Config) { c.durationType = dt }
}

// WithStringType selects string or large_string.
func WithStringType(dt arrow.DataType) ConfigOption {
	return func(c *Config) { c.stringType = dt }
}

// WithBinaryType selects binary or large_binary.
func WithBinaryType(dt arrow.DataType) ConfigOption {
	return func(c *Config) { c.binaryType = dt }
}

// WithListNullable makes the columns of repeated fields nullable. Only
// rows without a parent message are null; an unset field stays empty.
func WithListNullable(v bool) ConfigOption {
	return func(c *Config) { c.listNullable = v }
}

// WithMapNullable makes the columns of map fields nullable.
func WithMapNullable(v bool) ConfigOption {
	return func(c *Config) { c.mapNullable = v }
}

// WithListValueNullable marks the child field of list types nullable.
func WithListValueNullable(v bool) ConfigOption {
	return func(c *Config) { c.listValueNullable = v }
}

// WithMapValueNullable marks the value field of map entries nullable.
func WithMapValueNullable(v bool) ConfigOption {
	return func(c *Config) { c.mapValueNullable = v }
}

// WithListValueName names the child field of list types.
func WithListValueName(name string) ConfigOption {
	return func(c *Config) { c.listValueName = name }
}

// WithMapValueName names the value field of map entries. Arrow map types
// always call their entries key and value, so only "value" is accepted.
func WithMapValueName(name string) ConfigOption {
	return func(c *Config) { c.mapValueName = name }
}

// WithFieldNumberKey records each field's protobuf number under key in the field metadata.
func WithFieldNumberKey(key string) ConfigOption {
	return func(c *Config) { c.fieldNumberKey = key }
}

// WithListArrayType selects 32-bit (list) or 64-bit (large_list) offsets
// for repeated fields.
func WithListArrayType(t ListArrayType) ConfigOption {
	return func(c *Config) { c.listArrayType = t }
}

// WithCyclePolicy decides whether self-referencing message types are
// rejected or pruned to an empty struct.
func WithCyclePolicy(p CyclePolicy) ConfigOption {
	return func(c *Config) { c.cyclePolicy = p }
}

// DefaultConfig returns the default mapping: int32 enums, nanosecond UTC
// timestamps, nanosecond times and durations, normal strings and binaries,
// non nullable lists and maps, 32-bit list offsets and rejected cycles.
func DefaultConfig() *Config {
	return &Config{
		enumType:      arrow.PrimitiveTypes.Int32,
		timestampType: &arrow.TimestampType{Unit: arrow.Nanosecond, TimeZone: "UTC"},
		timeOfDayType: arrow.FixedWidthTypes.Time64ns,
		durationType:  &arrow.DurationType{Unit: arrow.Nanosecond},
		stringType:    arrow.BinaryTypes.String,
		binaryType:    arrow.BinaryTypes.Binary,
		listValueName: defaultListValueName,
		mapValueName:  defaultMapValueName,
		listArrayType: ListArray,
		cyclePolicy:   RejectCycles,
	}
}

// NewConfig applies opts over DefaultConfig and validates the result.
func NewConfig(opts ...ConfigOption) (*Config, error) {
	c := DefaultConfig()
	for _, opt := range opts {
		opt(c)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) validate() error {
	if err := c.validateEnumType(); err != nil {
		return err
	}
	if err := c.validateTemporalTypes(); err != nil {
		return err
	}
	if err := c.validateWidths(); err != nil {
		return err
	}
	return c.validateNames()
}

func (c *Config) validateEnumType() error {
	if c.enumType == nil {
		return &ConfigError{Option: "enum_type", Value: nil}
	}
	switch c.enumType.ID() {
	case arrow.INT32, arrow.STRING, arrow.LARGE_STRING, arrow.BINARY, arrow.LARGE_BINARY:
		return nil
	case arrow.DICTIONARY:
		dt := c.enumType.(*arrow.DictionaryType)
		if dt.IndexType.ID() != arrow.INT32 {
			return &ConfigError{Option: "enum_type", Value: c.enumType}
		}
		switch dt.ValueType.ID() {
		case arrow.STRING, arrow.LARGE_STRING, arrow.BINARY, arrow.LARGE_BINARY:
			return nil
		}
	}
	return &ConfigError{Option: "enum_type", Value: c.enumType}
}

func (c *Config) validateTemporalTypes() error {
	if c.timestampType == nil {
		return &ConfigError{Option: "timestamp_type", Value: nil}
	}
	if c.durationType == nil {
		return &ConfigError{Option: "duration_type", Value: nil}
	}
	switch dt := c.timeOfDayType.(type) {
	case *arrow.Time64Type:
		if dt.Unit == arrow.Nanosecond || dt.Unit == arrow.Microsecond {
			return nil
		}
	case *arrow.Time32Type:
		if dt.Unit == arrow.Millisecond || dt.Unit == arrow.Second {
			return nil
		}
	}
	return &ConfigError{Option: "time_of_day_type", Value: c.timeOfDayType}
}

func (c *Config) validateWidths() error {
	if c.stringType == nil || (c.stringType.ID() != arrow.STRING && c.stringType.ID() != arrow.LARGE_STRING) {
		return &ConfigError{Option: "string_type", Value: c.stringType}
	}
	if c.binaryType == nil || (c.binaryType.ID() != arrow.BINARY && c.binaryType.ID() != arrow.LARGE_BINARY) {
		return &ConfigError{Option: "binary_type", Value: c.binaryType}
	}
	if c.listArrayType != ListArray && c.listArrayType != LargeListArray {
		return &ConfigError{Option: "list_array_type", Value: c.listArrayType}
	}
	if c.cyclePolicy != RejectCycles && c.cyclePolicy != PruneCycles {
		return &ConfigError{Option: "cycle_policy", Value: c.cyclePolicy}
	}
	return nil
}

func (c *Config) validateNames() error {
	if c.listValueName == "" {
		return &ConfigError{Option: "list_value_name", Value: c.listValueName}
	}
	if c.mapValueName != defaultMapValueName {
		return &ConfigError{Option: "map_value_name", Value: c.mapValueName}
	}
	return nil
}

// EnumType is the column type of enum fields.
func (c *Config) EnumType() arrow.DataType { return c.enumType }

// TimestampType is the column type of google.protobuf.Timestamp fields.
func (c *Config) TimestampType() *arrow.TimestampType { return c.timestampType }

// TimeOfDayType is the column type of google.type.TimeOfDay fields.
func (c *Config) TimeOfDayType() arrow.DataType { return c.timeOfDayType }

// DurationType is the column type of google.protobuf.Duration fields.
func (c *Config) DurationType() *arrow.DurationType { return c.durationType }

// StringType is the column type of string fields.
func (c *Config) StringType() arrow.DataType { return c.stringType }

// BinaryType is the column type of bytes fields.
func (c *Config) BinaryType() arrow.DataType { return c.binaryType }

// ListNullable reports whether repeated field columns are nullable.
func (c *Config) ListNullable() bool { return c.listNullable }

// MapNullable reports whether map field columns are nullable.
func (c *Config) MapNullable() bool { return c.mapNullable }

// ListValueNullable reports whether list items are nullable.
func (c *Config) ListValueNullable() bool { return c.listValueNullable }

// MapValueNullable reports whether map values are nullable.
func (c *Config) MapValueNullable() bool { return c.mapValueNullable }

// ListValueName is the name of the child field of list types.
func (c *Config) ListValueName() string { return c.listValueName }

// MapValueName is the name of the value field of map entries.
func (c *Config) MapValueName() string { return c.mapValueName }

// FieldNumberKey is the metadata key holding field numbers, empty when
// numbers are not recorded.
func (c *Config) FieldNumberKey() string { return c.fieldNumberKey }

// ListArrayType is the offset width of list columns.
func (c *Config) ListArrayType() ListArrayType { return c.listArrayType }

// CyclePolicy is the handling of self-referencing message types.
func (c *Config) CyclePolicy() CyclePolicy { return c.cyclePolicy }

// fieldMetadata returns the metadata attached to a field derived from number.
func (c *Config) fieldMetadata(number int32) arrow.Metadata {
	if c.fieldNumberKey == "" {
		return arrow.Metadata{}
	}
	return arrow.NewMetadata([]string{c.fieldNumberKey}, []string{strconv.Itoa(int(number))})
}

// listOf wraps elem into the configured list type.
func (c *Config) listOf(elem arrow.DataType) arrow.DataType {
	f := arrow.Field{Name: c.listValueName, Type: elem, Nullable: c.listValueNullable}
	if c.listArrayType == LargeListArray {
		return arrow.LargeListOfField(f)
	}
	return arrow.ListOfField(f)
}

func (c *Config) mapOf(key, value arrow.DataType) *arrow.MapType {
	mt := arrow.MapOf(key, value)
	mt.SetItemNullable(c.mapValueNullable)
	return mt
}
