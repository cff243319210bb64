package validator

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"

	"github.com/go-openapi/strfmt"

	"schemagate/internal/schema"
)

// coreFormats are the JSON-Schema format names accepted whether or not the
// strfmt registry knows them.
var coreFormats = map[string]bool{
	"date":                  true,
	"date-time":             true,
	"time":                  true,
	"duration":              true,
	"email":                 true,
	"idn-email":             true,
	"hostname":              true,
	"idn-hostname":          true,
	"ipv4":                  true,
	"ipv6":                  true,
	"uri":                   true,
	"uri-reference":         true,
	"iri":                   true,
	"iri-reference":         true,
	"uri-template":          true,
	"uuid":                  true,
	"json-pointer":          true,
	"relative-json-pointer": true,
	"regex":                 true,
	"int32":                 true,
	"int64":                 true,
	"float":                 true,
	"double":                true,
}

// KnownFormat reports whether name is a recognised format.
func KnownFormat(name string) bool {
	return coreFormats[name] || strfmt.Default.ContainsName(name)
}

// boundPairs are checked for min > max.
var boundPairs = [][2]string{
	{"minimum", "maximum"},
	{"exclusiveMinimum", "exclusiveMaximum"},
	{"minLength", "maxLength"},
	{"minItems", "maxItems"},
}

var counts = []string{"minLength", "maxLength", "minItems", "maxItems"}

// CheckStructure reports structural problems in n and all of its subschemas.
// Issue paths start with root.
func CheckStructure(root string, n schema.Node) []ValidationIssue {
	if n == nil {
		return nil
	}
	w := &walker{issues: []ValidationIssue{}}
	w.walk(root, n)
	return w.issues
}

type walker struct {
	issues []ValidationIssue
}

func (w *walker) errorf(path, suggestion, format string, args ...any) {
	w.issues = append(w.issues, ValidationIssue{
		Path:       path,
		Severity:   SeverityError,
		Message:    fmt.Sprintf(format, args...),
		Suggestion: suggestion,
	})
}

func (w *walker) warnf(path, suggestion, format string, args ...any) {
	w.issues = append(w.issues, ValidationIssue{
		Path:       path,
		Severity:   SeverityWarning,
		Message:    fmt.Sprintf(format, args...),
		Suggestion: suggestion,
	})
}

func (w *walker) walk(path string, n schema.Node) {
	w.checkRequired(path, schema.ShapeOf(n))
	w.checkConstraints(path, schema.ConstraintMap(n))
	w.checkEnum(path, n.Meta())

	shape := schema.ShapeOf(n)
	for _, p := range shape.Properties {
		if p.Schema != nil {
			w.walk(path+"/properties/"+p.Name, p.Schema)
		}
	}
	if extra := shape.AdditionalProperties.Schema; extra != nil {
		w.walk(path+"/additionalProperties", extra)
	}
	if items := schema.ItemsOf(n); items != nil {
		w.walk(path+"/items", items)
	}

	meta := n.Meta()
	w.walkList(path+"/allOf", meta.AllOf)
	w.walkList(path+"/oneOf", meta.OneOf)
	w.walkList(path+"/anyOf", meta.AnyOf)
}

func (w *walker) walkList(path string, nodes []schema.Node) {
	for i, sub := range nodes {
		if sub != nil {
			w.walk(path+"/"+strconv.Itoa(i), sub)
		}
	}
}

// checkRequired only applies to schemas that declare their properties. A bare
// required list, as used inside oneOf branches, is left alone.
func (w *walker) checkRequired(path string, shape schema.Shape) {
	declares := len(shape.Properties) > 0 || shape.AdditionalProperties.Forbidden

	seen := make(map[string]bool, len(shape.Required))
	for _, name := range shape.Required {
		if seen[name] {
			w.warnf(path+"/required", "Remove the duplicate entry",
				"Required field '%s' is listed more than once", name)
			continue
		}
		seen[name] = true

		if _, ok := shape.Property(name); !ok && declares {
			w.errorf(path+"/required", fmt.Sprintf("Declare '%s' under properties or drop it from required", name),
				"Required field '%s' is not defined in properties", name)
		}
	}
}

func (w *walker) checkConstraints(path string, cons map[string]schema.Constraint) {
	for _, pair := range boundPairs {
		lo, hasLo := cons[pair[0]]
		hi, hasHi := cons[pair[1]]
		if hasLo && hasHi && lo.Num > hi.Num {
			w.errorf(path+"/"+pair[0], fmt.Sprintf("Lower %s or raise %s", pair[0], pair[1]),
				"%s (%s) is greater than %s (%s); no value can satisfy both", pair[0], lo.Display(), pair[1], hi.Display())
		}
	}

	for _, keyword := range counts {
		if c, ok := cons[keyword]; ok && c.Num < 0 {
			w.errorf(path+"/"+keyword, "Use a non-negative integer",
				"%s must not be negative, got %s", keyword, c.Display())
		}
	}

	if c, ok := cons["multipleOf"]; ok && c.Num <= 0 {
		w.errorf(path+"/multipleOf", "Use a number greater than zero",
			"multipleOf must be strictly positive, got %s", c.Display())
	}

	if c, ok := cons["pattern"]; ok {
		if _, err := regexp.Compile(c.Text); err != nil {
			w.errorf(path+"/pattern", "Check the regular expression syntax",
				"pattern %s does not compile: %v", c.Display(), err)
		}
	}

	if c, ok := cons["format"]; ok && !KnownFormat(c.Text) {
		w.warnf(path+"/format", "Use a standard format name or register the custom format with consumers",
			"Unknown format %s; validators may ignore it", c.Display())
	}
}

func (w *walker) checkEnum(path string, meta schema.Common) {
	if meta.Enum == nil {
		return
	}
	if len(meta.Enum) == 0 {
		w.warnf(path+"/enum", "Add at least one allowed value",
			"enum is empty; no value can satisfy this schema")
		return
	}
	if !meta.HasConst {
		return
	}

	key := literal(meta.Const)
	for _, v := range meta.Enum {
		if literal(v) == key {
			return
		}
	}
	w.errorf(path+"/const", "Add the const value to enum or remove one of the keywords",
		"const %s is not one of the enum values", key)
}

func literal(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
