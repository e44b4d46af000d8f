// Package criteria holds the structured search criteria produced from a user turn.
package criteria

import (
	"fmt"
	"strconv"
	"strings"
)

type Op string

const (
	OpEq          Op = "eq"
	OpGte         Op = "gte"
	OpLte         Op = "lte"
	OpGt          Op = "gt"
	OpLt          Op = "lt"
	OpContains    Op = "contains"
	OpNotContains Op = "not_contains"
	OpAny         Op = "any"
	OpRange       Op = "range"
)

// Expr is the closed set of filter expressions. Switches over Expr are expected to be exhaustive.
type Expr interface {
	Op() Op
	String() string
	isExpr()
}

// Eq matches a single value; numeric when the field is numeric.
type Eq struct {
	Value string
}

// Compare is a numeric comparison. Cmp is one of gte, lte, gt, lt.
type Compare struct {
	Cmp   Op
	Value float64
}

// Range is an inclusive numeric interval. A nil bound is open.
type Range struct {
	Min *float64
	Max *float64
}

// Contains requires every value to be present.
type Contains struct {
	Values []string
}

// NotContains excludes items holding any of the values.
type NotContains struct {
	Values []string
}

// Any requires at least one value to be present.
type Any struct {
	Values []string
}

func (Eq) isExpr()          {}
func (Compare) isExpr()     {}
func (Range) isExpr()       {}
func (Contains) isExpr()    {}
func (NotContains) isExpr() {}
func (Any) isExpr()         {}

func (Eq) Op() Op          { return OpEq }
func (c Compare) Op() Op   { return c.Cmp }
func (Range) Op() Op       { return OpRange }
func (Contains) Op() Op    { return OpContains }
func (NotContains) Op() Op { return OpNotContains }
func (Any) Op() Op         { return OpAny }

func (e Eq) String() string      { return e.Value }
func (c Compare) String() string { return fmt.Sprintf("%s %s", c.Cmp, formatNum(c.Value)) }
func (r Range) String() string {
	lo, hi := "-inf", "+inf"
	if r.Min != nil {
		lo = formatNum(*r.Min)
	}
	if r.Max != nil {
		hi = formatNum(*r.Max)
	}
	return fmt.Sprintf("[%s, %s]", lo, hi)
}
func (c Contains) String() string    { return strings.Join(c.Values, ", ") }
func (n NotContains) String() string { return "not " + strings.Join(n.Values, ", ") }
func (a Any) String() string         { return "any of " + strings.Join(a.Values, ", ") }

// Holds reports whether v satisfies a numeric expression. Set expressions report false.
func Holds(e Expr, v float64) bool {
	switch x := e.(type) {
	case Compare:
		switch x.Cmp {
		case OpGte:
			return v >= x.Value
		case OpLte:
			return v <= x.Value
		case OpGt:
			return v > x.Value
		case OpLt:
			return v < x.Value
		}
		return false
	case Range:
		if x.Min != nil && v < *x.Min {
			return false
		}
		if x.Max != nil && v > *x.Max {
			return false
		}
		return true
	case Eq:
		n, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(x.Value), "%"), 64)
		return err == nil && n == v
	case Contains, NotContains, Any:
		return false
	}
	return false
}

// Values returns the set values of a set expression, or the single Eq value.
func Values(e Expr) []string {
	switch x := e.(type) {
	case Contains:
		return x.Values
	case NotContains:
		return x.Values
	case Any:
		return x.Values
	case Eq:
		return []string{x.Value}
	case Compare, Range:
		return nil
	}
	return nil
}

// IsExclusion reports whether e removes items rather than selects them.
func IsExclusion(e Expr) bool {
	_, ok := e.(NotContains)
	return ok
}

func Float(v float64) *float64 {
	return &v
}

func formatNum(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
