package schema

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"schemagate/internal/errors"
)

// ParseYAML parses a YAML JSON-Schema document.
func ParseYAML(data []byte) (Node, error) {
	converted, err := YAMLToJSON(data)
	if err != nil {
		return nil, err
	}
	return ParseJSON(converted)
}

// YAMLToJSON re-encodes a YAML document as JSON, keeping mapping order.
// Scalars are resolved with YAML 1.2 core rules, so 1 and 1.0 become JSON numbers.
func YAMLToJSON(data []byte) ([]byte, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.NewSchemaGateError(errors.SchemaParseFailed, "schema is not valid YAML", err)
	}
	if doc.Kind == 0 {
		return nil, errors.NewSchemaGateError(errors.SchemaParseFailed, "schema document is empty", nil)
	}

	w := &yamlWriter{limit: max(len(data)*expansionFactor, minExpansionLimit)}
	if err := w.write(&doc, 0); err != nil {
		return nil, errors.NewSchemaGateError(errors.SchemaParseFailed, "schema cannot be represented as JSON", err)
	}
	return w.buf.Bytes(), nil
}

const (
	// maxAliasDepth bounds aliases nested inside aliased nodes.
	maxAliasDepth = 64
	// expansionFactor and minExpansionLimit bound the JSON output size
	// relative to the YAML input, so alias fan-out cannot blow up memory.
	expansionFactor   = 10
	minExpansionLimit = 1 << 20
)

type yamlWriter struct {
	buf   bytes.Buffer
	limit int
}

func (w *yamlWriter) write(n *yaml.Node, aliasDepth int) error {
	if aliasDepth > maxAliasDepth {
		return fmt.Errorf("aliases nested deeper than %d at line %d", maxAliasDepth, n.Line)
	}
	if w.buf.Len() > w.limit {
		return fmt.Errorf("alias expansion exceeds %d bytes at line %d", w.limit, n.Line)
	}
	buf := &w.buf

	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			buf.WriteString("null")
			return nil
		}
		return w.write(n.Content[0], aliasDepth)

	case yaml.AliasNode:
		return w.write(n.Alias, aliasDepth+1)

	case yaml.MappingNode:
		buf.WriteByte('{')
		for i := 0; i+1 < len(n.Content); i += 2 {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(n.Content[i].Value)
			if err != nil {
				return err
			}
			buf.Write(key)
			buf.WriteByte(':')
			if err := w.write(n.Content[i+1], aliasDepth); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
		return nil

	case yaml.SequenceNode:
		buf.WriteByte('[')
		for i, item := range n.Content {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := w.write(item, aliasDepth); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil
	case yaml.ScalarNode:
		var v any
		if err := n.Decode(&v); err != nil {
			return err
		}
		out, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("line %d: %w", n.Line, err)
		}
		buf.Write(out)
		return nil

	default:
		return fmt.Errorf("unsupported YAML node at line %d", n.Line)
	}
}
