package schema

import "strconv"

// ConstraintKind groups keywords by how a change to them is judged.
type ConstraintKind int

const (
	// Floor keywords exclude values below them.
	Floor ConstraintKind = iota
	// Ceiling keywords exclude values above them.
	Ceiling
	// Divisor is multipleOf.
	Divisor
	// Text keywords restrict strings by pattern or format name.
	Text
	// Flag keywords restrict when true.
	Flag
)

func (k ConstraintKind) String() string {
	switch k {
	case Floor:
		return "floor"
	case Ceiling:
		return "ceiling"
	case Divisor:
		return "divisor"
	case Text:
		return "text"
	default:
		return "flag"
	}
}

// Constraint is one present constraint keyword.
type Constraint struct {
	Keyword string
	Kind    ConstraintKind
	Num     float64
	Text    string
}

// Value returns the keyword value as it appears in the document.
func (c Constraint) Value() any {
	switch c.Kind {
	case Text:
		return c.Text
	case Flag:
		return c.Num != 0
	default:
		return c.Num
	}
}

// Display formats the value for messages.
func (c Constraint) Display() string {
	switch c.Kind {
	case Text:
		return strconv.Quote(c.Text)
	case Flag:
		return strconv.FormatBool(c.Num != 0)
	default:
		return strconv.FormatFloat(c.Num, 'g', -1, 64)
	}
}

// ConstraintKeywords lists every keyword Constraints can return, in output order.
var ConstraintKeywords = []string{
	"minimum", "exclusiveMinimum", "maximum", "exclusiveMaximum", "multipleOf",
	"minLength", "maxLength", "pattern", "format",
	"minItems", "maxItems", "uniqueItems",
}

// Constraints returns the constraint keywords present on n, in
// ConstraintKeywords order. uniqueItems is reported only when true.
func Constraints(n Node) []Constraint {
	var (
		nb                 NumericBounds
		minLen, maxLen     *int
		pattern, format    string
		minItems, maxItems *int
		unique             bool
	)

	switch v := n.(type) {
	case *NumberNode:
		nb = v.NumericBounds
	case *IntegerNode:
		nb = v.NumericBounds
	case *StringNode:
		minLen, maxLen, pattern, format = v.MinLength, v.MaxLength, v.Pattern, v.Format
	case *ArrayNode:
		minItems, maxItems, unique = v.MinItems, v.MaxItems, v.UniqueItems
	case *UnknownNode:
		nb = v.NumericBounds
		minLen, maxLen, pattern, format = v.MinLength, v.MaxLength, v.Pattern, v.Format
		minItems, maxItems, unique = v.MinItems, v.MaxItems, v.UniqueItems
	default:
		return nil
	}

	var out []Constraint
	addNum := func(keyword string, kind ConstraintKind, p *float64) {
		if p != nil {
			out = append(out, Constraint{Keyword: keyword, Kind: kind, Num: *p})
		}
	}
	addInt := func(keyword string, kind ConstraintKind, p *int) {
		if p != nil {
			out = append(out, Constraint{Keyword: keyword, Kind: kind, Num: float64(*p)})
		}
	}
	addText := func(keyword, s string) {
		if s != "" {
			out = append(out, Constraint{Keyword: keyword, Kind: Text, Text: s})
		}
	}

	addNum("minimum", Floor, nb.Minimum)
	addNum("exclusiveMinimum", Floor, nb.ExclusiveMinimum)
	addNum("maximum", Ceiling, nb.Maximum)
	addNum("exclusiveMaximum", Ceiling, nb.ExclusiveMaximum)
	addNum("multipleOf", Divisor, nb.MultipleOf)
	addInt("minLength", Floor, minLen)
	addInt("maxLength", Ceiling, maxLen)
	addText("pattern", pattern)
	addText("format", format)
	addInt("minItems", Floor, minItems)
	addInt("maxItems", Ceiling, maxItems)
	if unique {
		out = append(out, Constraint{Keyword: "uniqueItems", Kind: Flag, Num: 1})
	}
	return out
}

// ConstraintMap indexes Constraints(n) by keyword.
func ConstraintMap(n Node) map[string]Constraint {
	cs := Constraints(n)
	m := make(map[string]Constraint, len(cs))
	for _, c := range cs {
		m[c.Keyword] = c
	}
	return m
}
