package arrowproto

import (
	"errors"
	"fmt"
	"strings"

	"google.golang.org/protobuf/reflect/protoreflect"
)

var (
	// ErrUnsupportedFieldKind is returned for protobuf fields that have no columnar mapping, such as groups.
	ErrUnsupportedFieldKind = errors.New("unsupported field kind")
	// ErrUnsupportedConfigValue is returned by NewConfig when an option is outside the supported set.
	ErrUnsupportedConfigValue = errors.New("unsupported config value")
	// ErrStructuralRecursion is returned when a message type refers to itself and cycles are rejected.
	ErrStructuralRecursion = errors.New("structural recursion")
	// ErrEnumTypeMismatch is returned when an enum field cannot be read from or written to a column type.
	ErrEnumTypeMismatch = errors.New("enum type mismatch")
	// ErrColumnMismatch is returned when a column's layout cannot hold the field it is matched with.
	ErrColumnMismatch = errors.New("column mismatch")
)

// FieldKindError names a field whose kind cannot be mapped.
type FieldKindError struct {
	Field protoreflect.FullName
	Kind  protoreflect.Kind
}

func (e *FieldKindError) Error() string {
	return fmt.Sprintf("field %s: %s: %v", e.Field, ErrUnsupportedFieldKind, e.Kind)
}

func (e *FieldKindError) Is(target error) bool { return target == ErrUnsupportedFieldKind }

// ConfigError reports an invalid option value.
type ConfigError struct {
	Option string
	Value  any
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s=%v", ErrUnsupportedConfigValue, e.Option, e.Value)
}

func (e *ConfigError) Is(target error) bool { return target == ErrUnsupportedConfigValue }

// CycleError carries the chain of message types, outermost first, that led
// back to a type already being expanded.
type CycleError struct {
	Trace []protoreflect.FullName
}

func (e *CycleError) Error() string {
	names := make([]string, len(e.Trace))
	for i, n := range e.Trace {
		names[i] = string(n)
	}
	return fmt.Sprintf("%s: cyclic message type: %s", ErrStructuralRecursion, strings.Join(names, ", "))
}

func (e *CycleError) Is(target error) bool { return target == ErrStructuralRecursion }

// EnumTypeError names the enum field and the column type that cannot serve it.
type EnumTypeError struct {
	Field protoreflect.FullName
	Type  string
}

func (e *EnumTypeError) Error() string {
	return fmt.Sprintf("field %s: %s: %s", e.Field, ErrEnumTypeMismatch, e.Type)
}

func (e *EnumTypeError) Is(target error) bool { return target == ErrEnumTypeMismatch }

func columnMismatch(fd protoreflect.FieldDescriptor, format string, args ...any) error {
	return fmt.Errorf("field %s: %w: %s", fd.FullName(), ErrColumnMismatch, fmt.Sprintf(format, args...))
}
