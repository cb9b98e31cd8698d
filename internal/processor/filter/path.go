package filter

import (
	"math"
	"strconv"
	"strings"
)

// ResolvedValue is a value sequence aligned with a path sequence (§4.6),
// plus a parallel line sequence (math.NaN() where a value has no line)
// so downstream arithmetic can pair by line without re-parsing paths.
type ResolvedValue struct {
	Values  []float64
	Paths   []string
	Lines   []float64
	Details []*ArithmeticDetail // parallel to Values; nil entries for plain field reads
}

const lineTolerance = 1e-3

func sameLine(a, b float64) bool {
	if math.IsNaN(a) || math.IsNaN(b) {
		return false
	}
	return math.Abs(a-b) < lineTolerance
}

// resolveExpr resolves any operand-position Expr: a numeric/array
// literal, a dotted path (or $var), or a nested computed expression.
func resolveExpr(doc map[string]interface{}, e Expr, ctx *Context) ResolvedValue {
	switch {
	case e.IsNumber:
		return ResolvedValue{Values: []float64{e.Number}, Paths: []string{""}, Lines: []float64{math.NaN()}}
	case e.IsArray:
		vals := append([]float64(nil), e.Numbers...)
		paths := make([]string, len(vals))
		lines := make([]float64, len(vals))
		for i := range lines {
			lines[i] = math.NaN()
		}
		return ResolvedValue{Values: vals, Paths: paths, Lines: lines}
	case e.IsPath:
		return resolvePath(doc, e.Path, ctx)
	case e.Computed != nil:
		return evaluateComputed(doc, *e.Computed, ctx)
	}
	return ResolvedValue{}
}

func navigate(doc map[string]interface{}, segments []string) (interface{}, bool) {
	var cur interface{} = doc
	for _, seg := range segments {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}
		cur, ok = m[seg]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// aggregateKind names the bookmaker-level aggregate suffixes §4.6 lists.
type aggregateKind int

const (
	aggX12 aggregateKind = iota
	aggFairX12
	aggAH
	aggFairAH
	aggOU
	aggFairOU
)

var aggregateSuffixes = map[string]aggregateKind{
	"x12": aggX12, "fair_x12": aggFairX12,
	"ah": aggAH, "fair_ah": aggFairAH,
	"ou": aggOU, "fair_ou": aggFairOU,
}

func resolvePath(doc map[string]interface{}, rawPath string, ctx *Context) ResolvedValue {
	if strings.HasPrefix(rawPath, "$") {
		if v, ok := ctx.lookup(rawPath[1:]); ok {
			return v
		}
		return ResolvedValue{}
	}

	base := rawPath
	var bracketLine *float64
	if i := strings.IndexByte(rawPath, '['); i >= 0 && strings.HasSuffix(rawPath, "]") {
		base = rawPath[:i]
		if v, err := strconv.ParseFloat(rawPath[i+1:len(rawPath)-1], 64); err == nil {
			bracketLine = &v
		}
	}

	segments := strings.Split(base, ".")
	last := segments[len(segments)-1]

	if kind, ok := aggregateSuffixes[last]; ok {
		parent, ok := navigate(doc, segments[:len(segments)-1])
		if !ok {
			return ResolvedValue{}
		}
		pm, ok := parent.(map[string]interface{})
		if !ok {
			return ResolvedValue{}
		}
		return resolveAggregate(pm, strings.Join(segments[:len(segments)-1], "."), kind)
	}

	if bracketLine != nil {
		return resolveBracketIndex(doc, segments, *bracketLine, base)
	}

	val, ok := navigate(doc, segments)
	if !ok {
		return ResolvedValue{}
	}
	return scalarOrArray(doc, val, base, segments)
}

func resolveAggregate(bookmaker map[string]interface{}, prefix string, kind aggregateKind) ResolvedValue {
	field := func(name string) (float64, bool) {
		v, ok := bookmaker[name]
		if !ok {
			return 0, false
		}
		return toFloat(v)
	}

	switch kind {
	case aggX12, aggFairX12:
		names := []string{"x12_h", "x12_x", "x12_a"}
		if kind == aggFairX12 {
			names = []string{"fair_x12_h", "fair_x12_x", "fair_x12_a"}
		}
		var out ResolvedValue
		for _, n := range names {
			if v, ok := field(n); ok {
				out.Values = append(out.Values, v)
				out.Paths = append(out.Paths, prefix+"."+n)
				out.Lines = append(out.Lines, math.NaN())
			}
		}
		return out
	case aggAH, aggFairAH, aggOU, aggFairOU:
		homeField, awayField, linesField := "ah_h", "ah_a", "ah_lines"
		switch kind {
		case aggFairAH:
			homeField, awayField = "fair_ah_h", "fair_ah_a"
		case aggOU:
			homeField, awayField, linesField = "ou_o", "ou_u", "ou_lines"
		case aggFairOU:
			homeField, awayField, linesField = "fair_ou_o", "fair_ou_u", "ou_lines"
		}
		lines, _ := bookmaker[linesField].([]float64)
		home := toFloatSlice(bookmaker[homeField])
		away := toFloatSlice(bookmaker[awayField])
		var out ResolvedValue
		for i, line := range lines {
			if i < len(home) && home[i] != 0 {
				out.Values = append(out.Values, home[i])
				out.Paths = append(out.Paths, prefix+"."+homeField+"[line]")
				out.Lines = append(out.Lines, line)
			}
			if i < len(away) && away[i] != 0 {
				out.Values = append(out.Values, away[i])
				out.Paths = append(out.Paths, prefix+"."+awayField+"[line]")
				out.Lines = append(out.Lines, line)
			}
		}
		return out
	}
	return ResolvedValue{}
}

func resolveBracketIndex(doc map[string]interface{}, segments []string, line float64, base string) ResolvedValue {
	parentSegs := segments[:len(segments)-1]
	field := segments[len(segments)-1]
	parent, ok := navigate(doc, parentSegs)
	if !ok {
		return ResolvedValue{}
	}
	pm, ok := parent.(map[string]interface{})
	if !ok {
		return ResolvedValue{}
	}

	linesField := "ah_lines"
	if strings.HasPrefix(field, "ou") {
		linesField = "ou_lines"
	}
	lines, _ := pm[linesField].([]float64)
	values := toFloatSlice(pm[field])

	for i, l := range lines {
		if sameLine(l, line) && i < len(values) {
			return ResolvedValue{
				Values: []float64{values[i]},
				Paths:  []string{base + "[line]"},
				Lines:  []float64{l},
			}
		}
	}
	return ResolvedValue{}
}

func scalarOrArray(doc map[string]interface{}, val interface{}, path string, segments []string) ResolvedValue {
	last := segments[len(segments)-1]

	switch v := val.(type) {
	case []float64:
		var lines []float64
		if strings.Contains(last, "ah") {
			if parent, ok := navigate(doc, segments[:len(segments)-1]); ok {
				if pm, ok := parent.(map[string]interface{}); ok {
					lines, _ = pm["ah_lines"].([]float64)
				}
			}
		} else if strings.Contains(last, "ou") {
			if parent, ok := navigate(doc, segments[:len(segments)-1]); ok {
				if pm, ok := parent.(map[string]interface{}); ok {
					lines, _ = pm["ou_lines"].([]float64)
				}
			}
		}
		var out ResolvedValue
		for i, f := range v {
			if f == 0 {
				continue
			}
			out.Values = append(out.Values, f)
			out.Paths = append(out.Paths, path)
			if i < len(lines) {
				out.Lines = append(out.Lines, lines[i])
			} else {
				out.Lines = append(out.Lines, math.NaN())
			}
		}
		return out
	default:
		f, ok := toFloat(val)
		if !ok {
			return ResolvedValue{}
		}
		return ResolvedValue{Values: []float64{f}, Paths: []string{path}, Lines: []float64{math.NaN()}}
	}
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

func toFloatSlice(v interface{}) []float64 {
	s, _ := v.([]float64)
	return s
}
