// Package filter implements the subscription filter DSL (§4.5-4.8): a
// small boolean/arithmetic expression language evaluated against the
// Processor's per-fixture document to decide WebSocket delivery.
package filter

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Expr is a tagged-union node covering every DSL position: a boolean
// combinator, a compare, a vector aggregate, a field path, or an
// arithmetic/value operand. One Go type serves all of them (rather than
// a distinct FieldPath/ValueOrComputed pair) because their JSON shapes
// overlap completely; callers that need "this must be a path" simply
// don't populate the Number/Numbers arms.
type Expr struct {
	// Boolean combinators
	And        []Expr `json:"-"`
	Or         []Expr `json:"-"`
	Not        *Expr  `json:"-"`
	PerLineAnd []Expr `json:"-"`

	// Compare
	Compare *CompareExpr `json:"-"`

	// Vector
	Vector *VectorExpr `json:"-"`

	// Operand forms: path / literal / nested computed arithmetic
	Path     string   `json:"-"`
	IsPath   bool     `json:"-"`
	Number   float64  `json:"-"`
	IsNumber bool     `json:"-"`
	Numbers  []float64 `json:"-"`
	IsArray  bool     `json:"-"`
	Computed *ComputedExpr `json:"-"`
}

// CompareExpr is a leaf comparison: field `op` value.
type CompareExpr struct {
	Field Expr
	Op    string
	Value *Expr // absent for "exists"
}

// VectorExpr aggregates over a source path, optionally binding the
// result to a variable for later reference via "$name".
type VectorExpr struct {
	Function string
	Source   Expr
	As       string
}

// ComputedExpr is binary arithmetic (add/subtract/multiply/divide) or
// the history() pseudo-op (left = field path, right = age in ms).
type ComputedExpr struct {
	Op    string
	Left  Expr
	Right Expr
}

// raw mirrors the wire shape for unmarshaling into the tagged union.
type rawExpr struct {
	And        []rawExpr        `json:"and,omitempty"`
	Or         []rawExpr        `json:"or,omitempty"`
	Not        *rawExpr         `json:"not,omitempty"`
	PerLineAnd []rawExpr        `json:"per_line_and,omitempty"`
	Field      json.RawMessage  `json:"field,omitempty"`
	Op         string           `json:"op,omitempty"`
	Value      json.RawMessage  `json:"value,omitempty"`
	Function   string           `json:"function,omitempty"`
	Source     json.RawMessage  `json:"source,omitempty"`
	As         string           `json:"as,omitempty"`
	Left       json.RawMessage  `json:"left,omitempty"`
	Right      json.RawMessage  `json:"right,omitempty"`
}

// UnmarshalJSON disambiguates every DSL node by which keys are present.
// In operand positions a JSON string is always read as a field path (a
// leading "$" names a bound variable); there are no string literals, so
// a string without ".", "[" or "$" is taken as a path as well.
func (e *Expr) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		return nil
	}

	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		e.Path = s
		e.IsPath = true
		return nil
	case '[':
		var nums []float64
		if err := json.Unmarshal(data, &nums); err != nil {
			return err
		}
		e.Numbers = nums
		e.IsArray = true
		return nil
	case 't', 'f', 'n':
		// true/false/null literal operands are not part of this DSL
		return fmt.Errorf("filter: unsupported literal %s", trimmed)
	}

	if trimmed[0] != '{' {
		var n float64
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("filter: unrecognized operand %s: %w", trimmed, err)
		}
		e.Number = n
		e.IsNumber = true
		return nil
	}

	var raw rawExpr
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	return e.fromRaw(raw)
}

func (e *Expr) fromRaw(raw rawExpr) error {
	switch {
	case raw.And != nil:
		return e.unmarshalList(raw.And, &e.And)
	case raw.Or != nil:
		return e.unmarshalList(raw.Or, &e.Or)
	case raw.Not != nil:
		inner, err := decodeRaw(*raw.Not)
		if err != nil {
			return err
		}
		e.Not = inner
		return nil
	case raw.PerLineAnd != nil:
		return e.unmarshalList(raw.PerLineAnd, &e.PerLineAnd)
	case raw.Op != "" && raw.Left != nil && raw.Right != nil:
		left, err := decodeOperand(raw.Left)
		if err != nil {
			return err
		}
		right, err := decodeOperand(raw.Right)
		if err != nil {
			return err
		}
		e.Computed = &ComputedExpr{Op: raw.Op, Left: *left, Right: *right}
		return nil
	case raw.Field != nil:
		field, err := decodeOperand(raw.Field)
		if err != nil {
			return err
		}
		cmp := &CompareExpr{Field: *field, Op: raw.Op}
		if raw.Value != nil {
			val, err := decodeOperand(raw.Value)
			if err != nil {
				return err
			}
			cmp.Value = val
		}
		e.Compare = cmp
		return nil
	case raw.Function != "":
		source, err := decodeOperand(raw.Source)
		if err != nil {
			return err
		}
		e.Vector = &VectorExpr{Function: raw.Function, Source: *source, As: raw.As}
		return nil
	}
	return fmt.Errorf("filter: unrecognized expression shape")
}

func (e *Expr) unmarshalList(raws []rawExpr, dst *[]Expr) error {
	out := make([]Expr, len(raws))
	for i, r := range raws {
		inner, err := decodeRawValue(r)
		if err != nil {
			return err
		}
		out[i] = inner
	}
	*dst = out
	return nil
}

func decodeRaw(r rawExpr) (*Expr, error) {
	e, err := decodeRawValue(r)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func decodeRawValue(r rawExpr) (Expr, error) {
	var e Expr
	if err := e.fromRaw(r); err != nil {
		return Expr{}, err
	}
	return e, nil
}

func decodeOperand(data json.RawMessage) (*Expr, error) {
	var e Expr
	if err := e.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return &e, nil
}
