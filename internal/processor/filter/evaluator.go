package filter

import "math"

const valueTolerance = 1e-5
const minValidOdds = 1000 // > 1.00 decimal at decimals=3

// Evaluate runs expr against doc, writing every match it records into
// ctx's trace (§4.8). The root result is the filter's overall verdict.
func Evaluate(expr Expr, doc map[string]interface{}, ctx *Context) bool {
	switch {
	case expr.And != nil:
		for _, sub := range expr.And {
			if !Evaluate(sub, doc, ctx) {
				return false
			}
		}
		return true

	case expr.Or != nil:
		for _, sub := range expr.Or {
			if Evaluate(sub, doc, ctx) {
				return true
			}
		}
		return false

	case expr.Not != nil:
		return !Evaluate(*expr.Not, doc, ctx)

	case expr.PerLineAnd != nil:
		return evaluatePerLineAnd(expr.PerLineAnd, doc, ctx)

	case expr.Compare != nil:
		return evaluateCompare(*expr.Compare, doc, ctx)

	case expr.Vector != nil:
		return evaluateVector(*expr.Vector, doc, ctx)
	}
	return false
}

func evaluateCompare(cmp CompareExpr, doc map[string]interface{}, ctx *Context) bool {
	left := resolveExpr(doc, cmp.Field, ctx)

	if cmp.Op == "exists" {
		for i := range left.Values {
			ctx.addTrace(MatchTrace{Path: left.Paths[i], Value: left.Values[i], Line: lineOrNil(left, i)})
		}
		return len(left.Values) > 0
	}
	if cmp.Value == nil {
		return false
	}
	right := resolveExpr(doc, *cmp.Value, ctx)

	if cmp.Op == "in" {
		matched := false
		for i, lv := range left.Values {
			for _, rv := range right.Values {
				if math.Abs(lv-rv) < valueTolerance {
					matched = true
					ctx.addTrace(MatchTrace{Path: left.Paths[i], Value: lv, Line: lineOrNil(left, i)})
					break
				}
			}
		}
		return matched
	}

	pairs := pairOperands(left, right)
	matched := false
	for _, p := range pairs {
		if !compareOp(cmp.Op, p.left, p.right) {
			continue
		}
		matched = true
		var line *float64
		if !math.IsNaN(p.line) {
			l := p.line
			line = &l
		}
		var detail *ArithmeticDetail
		for i := range left.Details {
			if left.Details[i] != nil && left.Paths[i] == p.leftPath && left.Values[i] == p.left {
				detail = left.Details[i]
				break
			}
		}
		ctx.addTrace(MatchTrace{Path: p.leftPath, Value: p.left, Line: line, Arithmetic: detail})
	}
	return matched
}

func compareOp(op string, l, r float64) bool {
	switch op {
	case "eq":
		return math.Abs(l-r) < valueTolerance
	case "neq":
		return math.Abs(l-r) >= valueTolerance
	case "gt":
		return l > r
	case "gte":
		return l >= r
	case "lt":
		return l < r
	case "lte":
		return l <= r
	default:
		return false
	}
}

func lineOrNil(rv ResolvedValue, i int) *float64 {
	if i >= len(rv.Lines) || math.IsNaN(rv.Lines[i]) {
		return nil
	}
	l := rv.Lines[i]
	return &l
}

func evaluateVector(vec VectorExpr, doc map[string]interface{}, ctx *Context) bool {
	source := resolveExpr(doc, vec.Source, ctx)

	switch vec.Function {
	case "avg", "max", "min", "sum", "count":
		var valid []float64
		for _, v := range source.Values {
			if v > minValidOdds {
				valid = append(valid, v)
			}
		}
		if len(valid) == 0 {
			return false
		}
		result := aggregate(vec.Function, valid)
		ctx.bind(vec.As, ResolvedValue{
			Values: []float64{result},
			Paths:  []string{"$" + vec.As},
			Lines:  []float64{math.NaN()},
		})
		return true

	case "avg_per_line", "max_per_line", "min_per_line", "sum_per_line", "count_per_line":
		return evaluateVectorPerLine(vec, source, ctx)

	default:
		return false
	}
}

func evaluateVectorPerLine(vec VectorExpr, source ResolvedValue, ctx *Context) bool {
	groups := make(map[int64]map[string]float64)
	basePaths := make(map[string]bool)

	for i, v := range source.Values {
		if i >= len(source.Lines) || math.IsNaN(source.Lines[i]) {
			continue
		}
		key := lineKey(source.Lines[i])
		base := trimLineSuffix(source.Paths[i])
		basePaths[base] = true
		if groups[key] == nil {
			groups[key] = make(map[string]float64)
		}
		groups[key][base] = v
	}

	var values, lines []float64
	for key, g := range groups {
		if len(g) != len(basePaths) {
			continue // intersection semantics: every source must carry this line
		}
		vals := make([]float64, 0, len(g))
		for _, v := range g {
			vals = append(vals, v)
		}
		values = append(values, aggregate(vec.Function, vals))
		lines = append(lines, float64(key)/1000)
	}
	if len(values) == 0 {
		return false
	}

	paths := make([]string, len(values))
	ctx.bind(vec.As, ResolvedValue{Values: values, Paths: paths, Lines: lines})
	return true
}

func aggregate(fn string, vals []float64) float64 {
	switch fn {
	case "avg", "avg_per_line":
		sum := 0.0
		for _, v := range vals {
			sum += v
		}
		return sum / float64(len(vals))
	case "max", "max_per_line":
		max := vals[0]
		for _, v := range vals[1:] {
			if v > max {
				max = v
			}
		}
		return max
	case "min", "min_per_line":
		min := vals[0]
		for _, v := range vals[1:] {
			if v < min {
				min = v
			}
		}
		return min
	case "sum", "sum_per_line":
		sum := 0.0
		for _, v := range vals {
			sum += v
		}
		return sum
	case "count", "count_per_line":
		return float64(len(vals))
	default:
		return 0
	}
}

func lineKey(line float64) int64 {
	return int64(math.Round(line * 1000))
}

func trimLineSuffix(path string) string {
	const suffix = "[line]"
	if len(path) >= len(suffix) && path[len(path)-len(suffix):] == suffix {
		return path[:len(path)-len(suffix)]
	}
	return path
}

// evaluatePerLineAnd requires a single line value at which every clause
// is satisfied; clauses whose matches carry no line (x12/scalar
// comparisons) are treated as satisfied at every line (§4.8).
func evaluatePerLineAnd(clauses []Expr, doc map[string]interface{}, ctx *Context) bool {
	type clauseResult struct {
		lines    map[int64]bool
		agnostic bool
	}
	results := make([]clauseResult, len(clauses))
	overallStart := len(ctx.traces)

	for i, clause := range clauses {
		before := len(ctx.traces)
		if !Evaluate(clause, doc, ctx) {
			ctx.traces = ctx.traces[:overallStart]
			return false
		}
		added := ctx.traces[before:]
		cr := clauseResult{lines: make(map[int64]bool)}
		for _, t := range added {
			if t.Line == nil {
				cr.agnostic = true
			} else {
				cr.lines[lineKey(*t.Line)] = true
			}
		}
		if len(cr.lines) == 0 {
			cr.agnostic = true
		}
		results[i] = cr
	}

	var candidates map[int64]bool
	for _, r := range results {
		if r.agnostic {
			continue
		}
		if candidates == nil {
			candidates = make(map[int64]bool, len(r.lines))
			for k := range r.lines {
				candidates[k] = true
			}
			continue
		}
		for k := range candidates {
			if !r.lines[k] {
				delete(candidates, k)
			}
		}
	}
	if candidates == nil {
		return true // every clause was line-agnostic; keep every trace recorded
	}
	if len(candidates) == 0 {
		ctx.traces = ctx.traces[:overallStart]
		return false
	}

	// Prune every trace this per_line_and recorded down to the winning
	// lines: line-agnostic traces (x12/scalar) stay, line-carrying
	// traces at any other line are dropped (§4.8, §8 scenario 4).
	kept := ctx.traces[:overallStart]
	for _, t := range ctx.traces[overallStart:] {
		if t.Line == nil || candidates[lineKey(*t.Line)] {
			kept = append(kept, t)
		}
	}
	ctx.traces = kept
	return true
}
