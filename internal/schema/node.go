// Package schema holds the typed in-memory form of a JSON-Schema document.
//
// A document is parsed into a closed set of node variants, one per JSON-Schema
// type. Each variant carries only the keywords meaningful to it; UnknownNode
// covers documents without a single recognised type and keeps every keyword.
package schema

// Kind identifies a node variant.
type Kind int

const (
	KindUnknown Kind = iota
	KindString
	KindNumber
	KindInteger
	KindBoolean
	KindObject
	KindArray
	KindNull
)

// String returns the JSON-Schema type name, or "unknown".
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindInteger:
		return "integer"
	case KindBoolean:
		return "boolean"
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	case KindNull:
		return "null"
	default:
		return "unknown"
	}
}

// Node is a schema node. Implementations are the *Node structs in this package.
type Node interface {
	Kind() Kind
	Meta() Common
}

// Common holds keywords valid on every variant.
type Common struct {
	Title       string
	Description string
	// Enum is nil when the keyword is absent.
	Enum     []any
	Const    any
	HasConst bool
	AllOf    []Node
	OneOf    []Node
	AnyOf    []Node
}

// Property is one named entry of an object's properties, in document order.
type Property struct {
	Name   string
	Schema Node
}

// Additional models additionalProperties. The zero value means allowed.
type Additional struct {
	Forbidden bool
	Schema    Node
}

// Allowed reports whether extra properties are accepted.
func (a Additional) Allowed() bool { return !a.Forbidden }

// Shape is the object part of a node.
type Shape struct {
	Properties           []Property
	Required             []string
	AdditionalProperties Additional
}

// Property returns the named property schema.
func (s Shape) Property(name string) (Node, bool) {
	for _, p := range s.Properties {
		if p.Name == name {
			return p.Schema, true
		}
	}
	return nil, false
}

// IsRequired reports whether name is listed in required.
func (s Shape) IsRequired(name string) bool {
	for _, r := range s.Required {
		if r == name {
			return true
		}
	}
	return false
}

// NumericBounds are the keywords shared by number and integer.
type NumericBounds struct {
	Minimum          *float64
	Maximum          *float64
	ExclusiveMinimum *float64
	ExclusiveMaximum *float64
	MultipleOf       *float64
}

// StringNode is {"type": "string"}.
type StringNode struct {
	Common
	MinLength *int
	MaxLength *int
	Pattern   string
	Format    string
}

// NumberNode is {"type": "number"}.
type NumberNode struct {
	Common
	NumericBounds
}

// IntegerNode is {"type": "integer"}.
type IntegerNode struct {
	Common
	NumericBounds
}

// BooleanNode is {"type": "boolean"}.
type BooleanNode struct {
	Common
}

// NullNode is {"type": "null"}.
type NullNode struct {
	Common
}

// ObjectNode is {"type": "object"}.
type ObjectNode struct {
	Common
	Shape
}

// ArrayNode is {"type": "array"}.
type ArrayNode struct {
	Common
	Items       Node
	MinItems    *int
	MaxItems    *int
	UniqueItems bool
}

// UnknownNode is a schema without one recognised type. Declared keeps the raw
// type value ("" when absent, "null|string" for a type list).
type UnknownNode struct {
	Common
	Shape
	NumericBounds
	Declared    string
	Items       Node
	MinLength   *int
	MaxLength   *int
	Pattern     string
	Format      string
	MinItems    *int
	MaxItems    *int
	UniqueItems bool
}

func (n *StringNode) Kind() Kind  { return KindString }
func (n *NumberNode) Kind() Kind  { return KindNumber }
func (n *IntegerNode) Kind() Kind { return KindInteger }
func (n *BooleanNode) Kind() Kind { return KindBoolean }
func (n *NullNode) Kind() Kind    { return KindNull }
func (n *ObjectNode) Kind() Kind  { return KindObject }
func (n *ArrayNode) Kind() Kind   { return KindArray }
func (n *UnknownNode) Kind() Kind { return KindUnknown }

func (n *StringNode) Meta() Common  { return n.Common }
func (n *NumberNode) Meta() Common  { return n.Common }
func (n *IntegerNode) Meta() Common { return n.Common }
func (n *BooleanNode) Meta() Common { return n.Common }
func (n *NullNode) Meta() Common    { return n.Common }
func (n *ObjectNode) Meta() Common  { return n.Common }
func (n *ArrayNode) Meta() Common   { return n.Common }
func (n *UnknownNode) Meta() Common { return n.Common }

// TypeName returns the value of the type keyword, "" when absent.
func TypeName(n Node) string {
	if n == nil {
		return ""
	}
	if u, ok := n.(*UnknownNode); ok {
		return u.Declared
	}
	return n.Kind().String()
}

// ShapeOf returns the object shape of object and unknown nodes and an empty
// shape for every other variant.
func ShapeOf(n Node) Shape {
	switch v := n.(type) {
	case *ObjectNode:
		return v.Shape
	case *UnknownNode:
		return v.Shape
	default:
		return Shape{}
	}
}

// ItemsOf returns the items schema of array and unknown nodes.
func ItemsOf(n Node) Node {
	switch v := n.(type) {
	case *ArrayNode:
		return v.Items
	case *UnknownNode:
		return v.Items
	default:
		return nil
	}
}
