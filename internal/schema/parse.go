package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"schemagate/internal/errors"
)

// Document is a parsed schema file.
type Document struct {
	Root Node
	// Source is the file path, or "" for in-memory input.
	Source string
	// JSON is the document re-encoded as JSON with key order preserved.
	JSON []byte
}

// Fingerprint returns the content identity of the document.
func (d *Document) Fingerprint() (string, error) {
	return Fingerprint(d.JSON)
}

// ParseJSON parses a JSON-Schema document.
func ParseJSON(data []byte) (Node, error) {
	raw := bytes.TrimSpace(data)
	if !json.Valid(raw) {
		var probe any
		err := json.Unmarshal(raw, &probe)
		return nil, errors.NewSchemaGateError(errors.SchemaParseFailed, "schema is not valid JSON", err)
	}
	switch {
	case len(raw) > 0 && raw[0] == '{':
	case bytes.Equal(raw, []byte("true")), bytes.Equal(raw, []byte("false")):
	default:
		return nil, errors.NewSchemaGateError(errors.SchemaParseFailed, "schema document must be a JSON object", nil)
	}
	return parseNode(raw), nil
}

// ParseFile reads and parses a schema file. Files ending in .yaml or .yml
// are read as YAML, everything else as JSON.
func ParseFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewSchemaGateError(errors.SchemaNotFound, fmt.Sprintf("schema file %s not found", path), err)
		}
		return nil, fmt.Errorf("failed to read schema %s: %w", path, err)
	}

	doc, err := ParseBytes(data, isYAMLPath(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	doc.Source = path
	return doc, nil
}

// ParseBytes parses data as YAML or JSON into a Document.
func ParseBytes(data []byte, yamlInput bool) (*Document, error) {
	jsonData := data
	if yamlInput {
		converted, err := YAMLToJSON(data)
		if err != nil {
			return nil, err
		}
		jsonData = converted
	}

	root, err := ParseJSON(jsonData)
	if err != nil {
		return nil, err
	}
	return &Document{Root: root, JSON: bytes.TrimSpace(jsonData)}, nil
}

func isYAMLPath(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	default:
		return false
	}
}

// fields is one decoded JSON object with its key order.
type fields struct {
	keys   []string
	values map[string]json.RawMessage
}

// decodeObject decodes raw as an object, keeping key order. It returns
// false when raw is not an object.
func decodeObject(raw json.RawMessage) (fields, bool) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return fields{}, false
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fields{}, false
	}

	f := fields{values: make(map[string]json.RawMessage)}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fields{}, false
		}
		key, ok := tok.(string)
		if !ok {
			return fields{}, false
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return fields{}, false
		}
		if _, dup := f.values[key]; !dup {
			f.keys = append(f.keys, key)
		}
		f.values[key] = value
	}
	return f, true
}

func (f fields) str(key string) string {
	var s string
	if raw, ok := f.values[key]; ok {
		_ = json.Unmarshal(raw, &s)
	}
	return s
}

func (f fields) boolean(key string) (value bool, ok bool) {
	raw, present := f.values[key]
	if !present {
		return false, false
	}
	if err := json.Unmarshal(raw, &value); err != nil {
		return false, false
	}
	return value, true
}

func (f fields) num(key string) *float64 {
	raw, ok := f.values[key]
	if !ok {
		return nil
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	return &v
}

// count reads an integral keyword. Fractional values are treated as absent.
func (f fields) count(key string) *int {
	v := f.num(key)
	if v == nil || *v != math.Trunc(*v) || math.Abs(*v) > math.MaxInt32 {
		return nil
	}
	n := int(*v)
	return &n
}

func (f fields) stringList(key string) []string {
	raw, ok := f.values[key]
	if !ok {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			out = append(out, s)
		}
	}
	return out
}

func (f fields) nodes(key string) []Node {
	raw, ok := f.values[key]
	if !ok {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	out := make([]Node, 0, len(items))
	for _, item := range items {
		out = append(out, parseNode(item))
	}
	return out
}

// typeName reads the type keyword. A list of types is sorted, deduplicated
// and joined with "|", so its order in the document does not matter.
func (f fields) typeName() string {
	raw, ok := f.values["type"]
	if !ok {
		return ""
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return single
	}
	names := slices.Compact(slices.Sorted(slices.Values(f.stringList("type"))))
	if len(names) == 1 {
		return names[0]
	}
	return strings.Join(names, "|")
}

func (f fields) common() Common {
	c := Common{
		Title:       f.str("title"),
		Description: f.str("description"),
		AllOf:       f.nodes("allOf"),
		OneOf:       f.nodes("oneOf"),
		AnyOf:       f.nodes("anyOf"),
	}
	if raw, ok := f.values["enum"]; ok {
		var values []any
		if err := json.Unmarshal(raw, &values); err == nil {
			if values == nil {
				values = []any{}
			}
			c.Enum = values
		}
	}
	if raw, ok := f.values["const"]; ok {
		var v any
		if err := json.Unmarshal(raw, &v); err == nil {
			c.Const, c.HasConst = v, true
		}
	}
	return c
}

func (f fields) numericBounds() NumericBounds {
	nb := NumericBounds{
		Minimum:          f.num("minimum"),
		Maximum:          f.num("maximum"),
		ExclusiveMinimum: f.num("exclusiveMinimum"),
		ExclusiveMaximum: f.num("exclusiveMaximum"),
		MultipleOf:       f.num("multipleOf"),
	}
	// draft-04 spells exclusive bounds as booleans next to minimum/maximum
	if excl, ok := f.boolean("exclusiveMinimum"); ok {
		nb.ExclusiveMinimum = nil
		if excl && nb.Minimum != nil {
			nb.ExclusiveMinimum, nb.Minimum = nb.Minimum, nil
		}
	}
	if excl, ok := f.boolean("exclusiveMaximum"); ok {
		nb.ExclusiveMaximum = nil
		if excl && nb.Maximum != nil {
			nb.ExclusiveMaximum, nb.Maximum = nb.Maximum, nil
		}
	}
	return nb
}

func (f fields) shape() Shape {
	s := Shape{Required: f.stringList("required")}
	if raw, ok := f.values["properties"]; ok {
		if props, ok := decodeObject(raw); ok {
			for _, name := range props.keys {
				s.Properties = append(s.Properties, Property{Name: name, Schema: parseNode(props.values[name])})
			}
		}
	}
	if raw, ok := f.values["additionalProperties"]; ok {
		var allowed bool
		if err := json.Unmarshal(raw, &allowed); err == nil {
			s.AdditionalProperties.Forbidden = !allowed
		} else if _, isObj := decodeObject(raw); isObj {
			s.AdditionalProperties.Schema = parseNode(raw)
		}
	}
	return s
}

func (f fields) items() Node {
	raw, ok := f.values["items"]
	if !ok {
		return nil
	}
	if _, isObj := decodeObject(raw); isObj {
		return parseNode(raw)
	}
	if b, isBool := boolSchema(raw); isBool {
		return b
	}
	return nil
}

// boolSchema maps the boolean schemas true and false.
func boolSchema(raw json.RawMessage) (Node, bool) {
	var accept bool
	if err := json.Unmarshal(raw, &accept); err != nil {
		return nil, false
	}
	if accept {
		return &UnknownNode{}, true
	}
	// false accepts nothing, the same as an empty enum
	return &UnknownNode{Common: Common{Enum: []any{}}}, true
}

// parseNode never fails. Keywords of the wrong JSON type are dropped.
func parseNode(raw json.RawMessage) Node {
	f, ok := decodeObject(raw)
	if !ok {
		if b, isBool := boolSchema(raw); isBool {
			return b
		}
		return &UnknownNode{}
	}

	common := f.common()
	name := f.typeName()
	switch name {
	case "string":
		return &StringNode{
			Common:    common,
			MinLength: f.count("minLength"),
			MaxLength: f.count("maxLength"),
			Pattern:   f.str("pattern"),
			Format:    f.str("format"),
		}
	case "number":
		return &NumberNode{Common: common, NumericBounds: f.numericBounds()}
	case "integer":
		return &IntegerNode{Common: common, NumericBounds: f.numericBounds()}
	case "boolean":
		return &BooleanNode{Common: common}
	case "null":
		return &NullNode{Common: common}
	case "object":
		return &ObjectNode{Common: common, Shape: f.shape()}
	case "array":
		unique, _ := f.boolean("uniqueItems")
		return &ArrayNode{
			Common:      common,
			Items:       f.items(),
			MinItems:    f.count("minItems"),
			MaxItems:    f.count("maxItems"),
			UniqueItems: unique,
		}
	default:
		unique, _ := f.boolean("uniqueItems")
		return &UnknownNode{
			Common:        common,
			Shape:         f.shape(),
			NumericBounds: f.numericBounds(),
			Declared:      name,
			Items:         f.items(),
			MinLength:     f.count("minLength"),
			MaxLength:     f.count("maxLength"),
			Pattern:       f.str("pattern"),
			Format:        f.str("format"),
			MinItems:      f.count("minItems"),
			MaxItems:      f.count("maxItems"),
			UniqueItems:   unique,
		}
	}
}
