package operator

import "strings"

// Kind enumerates the operator type names used in the canonical encoding.
type Kind string

const (
	KindObject  Kind = "Object"
	KindString  Kind = "String"
	KindBoolean Kind = "Boolean"
	KindNumber  Kind = "Number"
	KindList    Kind = "List"
	KindEnum    Kind = "Enum"
	KindOneOf   Kind = "OneOf"
	KindTuple   Kind = "Tuple"
	KindMap     Kind = "Map"
	KindFile    Kind = "File"
)

var kindLookup = map[string]Kind{
	"object":  KindObject,
	"string":  KindString,
	"boolean": KindBoolean,
	"number":  KindNumber,
	"list":    KindList,
	"enum":    KindEnum,
	"oneof":   KindOneOf,
	"tuple":   KindTuple,
	"map":     KindMap,
	"file":    KindFile,
}

// ParseKind resolves a canonical type name case-insensitively.
func ParseKind(name string) (Kind, bool) {
	kind, ok := kindLookup[strings.ToLower(strings.TrimSpace(name))]
	return kind, ok
}

// Type is implemented by every operator type.
type Type interface {
	Kind() Kind
}

// NamedProperty pairs an object field name with its property.
type NamedProperty struct {
	Name     string
	Property *Property
}

// Object groups named properties. Order is significant and preserved by the
// decoders and the builder.
type Object struct {
	Properties []NamedProperty
}

func (*Object) Kind() Kind { return KindObject }

// Property returns the named child property.
func (o *Object) Property(name string) (*Property, bool) {
	if o == nil {
		return nil, false
	}
	for _, entry := range o.Properties {
		if entry.Name == name {
			return entry.Property, true
		}
	}
	return nil, false
}

// Names lists the property names in declaration order.
func (o *Object) Names() []string {
	if o == nil {
		return nil
	}
	names := make([]string, 0, len(o.Properties))
	for _, entry := range o.Properties {
		names = append(names, entry.Name)
	}
	return names
}

// String is free text with optional length and pattern constraints.
type String struct {
	MinLength *int
	MaxLength *int
	Pattern   string
}

func (*String) Kind() Kind { return KindString }

// Boolean is a true/false flag.
type Boolean struct{}

func (*Boolean) Kind() Kind { return KindBoolean }

// Number is a numeric value. Int restricts input to integers; Float is kept
// for parity with the canonical encoding.
type Number struct {
	Min   *float64
	Max   *float64
	Int   bool
	Float bool
}

func (*Number) Kind() Kind { return KindNumber }

// List is a homogeneous sequence.
type List struct {
	Element  Type
	MinItems *int
	MaxItems *int
}

func (*List) Kind() Kind { return KindList }

// Enum restricts a value to a fixed set of choices.
type Enum struct {
	Values []any
}

func (*Enum) Kind() Kind { return KindEnum }

// OneOf accepts a value matching any of the listed types.
type OneOf struct {
	Types []Type
}

func (*OneOf) Kind() Kind { return KindOneOf }

// Tuple is a fixed-length sequence with a type per position.
type Tuple struct {
	Items []Type
}

func (*Tuple) Kind() Kind { return KindTuple }

// Map is a dictionary with typed keys and values.
type Map struct {
	Key   Type
	Value Type
}

func (*Map) Kind() Kind { return KindMap }

// File is a reference to a file path chosen by the user.
type File struct{}

func (*File) Kind() Kind { return KindFile }
