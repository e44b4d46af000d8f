package criteria

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"ai-budtender-be/pkg/recommend/vocab"
)

// RawFilter is one filter as emitted by the query analyzer.
type RawFilter struct {
	Field    string          `json:"field"`
	Operator string          `json:"operator"`
	Value    json.RawMessage `json:"value"`
	Min      *float64        `json:"min,omitempty"`
	Max      *float64        `json:"max,omitempty"`
	Priority int             `json:"priority,omitempty"`
}

// Rejection explains why a raw filter was dropped.
type Rejection struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ParseOptions carries the potency buckets and the catalog's numeric bounds used to clamp them.
type ParseOptions struct {
	THC    Buckets
	CBD    Buckets
	Bounds map[Field]Bounds
}

func DefaultParseOptions() ParseOptions {
	return ParseOptions{
		THC: Buckets{LowMax: 12, HighMin: 20},
		CBD: Buckets{LowMax: 2, HighMin: 8},
	}
}

// Parse decodes a JSON array of raw filters. Invalid entries are discarded and reported; parsing never fails
// as a whole unless data is not an array.
func Parse(data []byte, opts ParseOptions) (Criteria, []Rejection, error) {
	var raws []RawFilter
	if err := json.Unmarshal(data, &raws); err != nil {
		return Criteria{}, nil, fmt.Errorf("criteria must be a JSON array: %w", err)
	}
	c, rejected := ParseFilters(raws, opts)
	return c, rejected, nil
}

// ParseFilters converts raw filters field by field.
func ParseFilters(raws []RawFilter, opts ParseOptions) (Criteria, []Rejection) {
	var (
		out      Criteria
		rejected []Rejection
	)
	for _, raw := range raws {
		f, err := parseOne(raw, opts)
		if err != nil {
			rejected = append(rejected, Rejection{Field: raw.Field, Reason: err.Error()})
			continue
		}
		out.Filters = append(out.Filters, f)
	}
	return out, rejected
}

func parseOne(raw RawFilter, opts ParseOptions) (Filter, error) {
	field, ok := ParseField(raw.Field)
	if !ok {
		return Filter{}, fmt.Errorf("unknown field %q", raw.Field)
	}
	op := Op(vocab.Fold(raw.Operator))
	if op == "" {
		op = defaultOp(field)
	}

	var (
		expr Expr
		err  error
	)
	switch {
	case field == FieldCategory:
		expr, err = parseCategory(op, raw.Value)
	case field.IsNumeric():
		expr, err = parseNumeric(field, op, raw, opts)
	default:
		expr, err = parseSet(op, raw.Value)
	}
	if err != nil {
		return Filter{}, err
	}

	priority := raw.Priority
	if priority < PrioritySafety || priority > PriorityCosmetic {
		priority = DefaultPriority(field, expr)
	}
	return Filter{Field: field, Expr: expr, Priority: priority}, nil
}

func defaultOp(field Field) Op {
	switch {
	case field == FieldCategory:
		return OpEq
	case field.IsNumeric():
		return OpRange
	default:
		return OpContains
	}
}

func parseCategory(op Op, value json.RawMessage) (Expr, error) {
	if op != OpEq && op != OpContains && op != OpAny {
		return nil, fmt.Errorf("operator %q not supported on category", op)
	}
	values, err := decodeStrings(value)
	if err != nil || len(values) == 0 {
		return nil, fmt.Errorf("category needs a value")
	}
	for _, c := range Categories {
		if vocab.EqualTerms(c, values[0]) {
			return Eq{Value: c}, nil
		}
	}
	return nil, fmt.Errorf("unknown category %q", values[0])
}

func parseSet(op Op, value json.RawMessage) (Expr, error) {
	values, err := decodeStrings(value)
	if err != nil {
		return nil, err
	}
	values = vocab.Dedupe(values)
	for i, v := range values {
		values[i] = vocab.Title(v)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("empty value list")
	}
	switch op {
	case OpContains, OpEq:
		return Contains{Values: values}, nil
	case OpNotContains:
		return NotContains{Values: values}, nil
	case OpAny:
		return Any{Values: values}, nil
	}
	return nil, fmt.Errorf("operator %q not supported on set field", op)
}

func parseNumeric(field Field, op Op, raw RawFilter, opts ParseOptions) (Expr, error) {
	buckets := opts.THC
	if field == FieldCBD {
		buckets = opts.CBD
	}

	// Coarse potency words become ranges regardless of operator.
	if level, ok := decodeLevel(raw.Value); ok {
		r, ok := buckets.Range(level, opts.Bounds[field])
		if !ok {
			return nil, fmt.Errorf("unknown potency level %q", level)
		}
		return r, nil
	}

	switch op {
	case OpGte, OpLte, OpGt, OpLt:
		v, err := decodeNumber(raw.Value)
		if err != nil {
			return nil, err
		}
		if v < 0 {
			return nil, fmt.Errorf("negative %s", field)
		}
		return Compare{Cmp: op, Value: v}, nil
	case OpEq:
		v, err := decodeNumber(raw.Value)
		if err != nil {
			return nil, err
		}
		return Eq{Value: formatNum(v)}, nil
	case OpRange:
		r := Range{Min: raw.Min, Max: raw.Max}
		if pair, err := decodeNumbers(raw.Value); err == nil && len(pair) == 2 {
			r.Min, r.Max = Float(pair[0]), Float(pair[1])
		}
		if r.Min == nil && r.Max == nil {
			return nil, fmt.Errorf("range needs min or max")
		}
		if r.Min != nil && r.Max != nil && *r.Min > *r.Max {
			r.Min, r.Max = r.Max, r.Min
		}
		return r, nil
	}
	return nil, fmt.Errorf("operator %q not supported on numeric field", op)
}

func decodeStrings(value json.RawMessage) ([]string, error) {
	if len(value) == 0 {
		return nil, fmt.Errorf("missing value")
	}
	var one string
	if err := json.Unmarshal(value, &one); err == nil {
		return splitList(one), nil
	}
	var many []string
	if err := json.Unmarshal(value, &many); err == nil {
		var out []string
		for _, v := range many {
			out = append(out, splitList(v)...)
		}
		return out, nil
	}
	return nil, fmt.Errorf("value must be a string or list of strings")
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func decodeLevel(value json.RawMessage) (string, bool) {
	var s string
	if err := json.Unmarshal(value, &s); err != nil {
		return "", false
	}
	switch l := vocab.Fold(s); l {
	case "low", "medium", "high", "bajo", "medio", "alto", "baja", "media", "alta":
		return l, true
	}
	return "", false
}

func decodeNumber(value json.RawMessage) (float64, error) {
	var f float64
	if err := json.Unmarshal(value, &f); err == nil {
		return f, nil
	}
	var s string
	if err := json.Unmarshal(value, &s); err == nil {
		s = strings.TrimSuffix(strings.TrimSpace(s), "%")
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f, nil
		}
	}
	return 0, fmt.Errorf("value must be numeric")
}

func decodeNumbers(value json.RawMessage) ([]float64, error) {
	var out []float64
	if err := json.Unmarshal(value, &out); err != nil {
		return nil, err
	}
	return out, nil
}
