package filter

import (
	"math"
	"strings"
)

// evaluateComputed dispatches a ComputedExpr node: binary arithmetic or
// the history() pseudo-op (§4.7, §9 "History as an arithmetic op").
func evaluateComputed(doc map[string]interface{}, c ComputedExpr, ctx *Context) ResolvedValue {
	if c.Op == "history" {
		return evaluateHistory(doc, c, ctx)
	}
	left := resolveExpr(doc, c.Left, ctx)
	right := resolveExpr(doc, c.Right, ctx)
	return applyBinary(left, right, c.Op)
}

// evaluateHistory resolves left's <rest> path against the oldest
// qualifying snapshot of left's bookmaker (§4.7 "history operator").
// Left must be a literal field path of the form "bookmakers.<label>.<rest>".
func evaluateHistory(doc map[string]interface{}, c ComputedExpr, ctx *Context) ResolvedValue {
	if !c.Left.IsPath {
		return ResolvedValue{}
	}
	parts := strings.SplitN(c.Left.Path, ".", 3)
	if len(parts) < 3 || parts[0] != "bookmakers" {
		return ResolvedValue{}
	}
	label, rest := parts[1], parts[2]

	ageVal := resolveExpr(doc, c.Right, ctx)
	if len(ageVal.Values) == 0 {
		return ResolvedValue{}
	}
	maxAge := int64(ageVal.Values[0])

	if ctx.history == nil {
		return ResolvedValue{}
	}
	raw, ok := ctx.history.GetSnapshot(label, maxAge)
	if !ok {
		return ResolvedValue{}
	}
	snapMap, ok := raw.(map[string]interface{})
	if !ok {
		return ResolvedValue{}
	}

	historyDoc := map[string]interface{}{"bookmakers": map[string]interface{}{label: snapMap}}
	return resolvePath(historyDoc, "bookmakers."+label+"."+rest, ctx)
}

type pairItem struct {
	left, right           float64
	leftPath, rightPath   string
	line                  float64
}

// applyBinary pairs left/right per §4.7's generic shape-matching rules
// (mode B) and applies op to each pair, dropping pairs op rejects
// (division by zero) and recording an ArithmeticDetail per surviving
// pair for the match trace.
func applyBinary(left, right ResolvedValue, op string) ResolvedValue {
	pairs := pairOperands(left, right)

	var out ResolvedValue
	for _, p := range pairs {
		res, ok := applyOp(p.left, p.right, op)
		if !ok {
			continue
		}
		label := p.leftPath
		if label == "" {
			label = p.rightPath
		}
		out.Values = append(out.Values, res)
		out.Paths = append(out.Paths, label)
		out.Lines = append(out.Lines, p.line)
		out.Details = append(out.Details, &ArithmeticDetail{
			Left:   OperandDetail{Path: p.leftPath, Value: p.left},
			Right:  OperandDetail{Path: p.rightPath, Value: p.right},
			Result: res,
			Op:     op,
		})
	}
	return out
}

func applyOp(l, r float64, op string) (float64, bool) {
	switch op {
	case "add":
		return l + r, true
	case "subtract":
		return l - r, true
	case "multiply":
		return l * r, true
	case "divide":
		if r == 0 {
			return 0, false
		}
		return l / r, true
	default:
		return 0, false
	}
}

func pairOperands(left, right ResolvedValue) []pairItem {
	at := func(rv ResolvedValue, i int) (float64, string, float64) {
		line := math.NaN()
		if i < len(rv.Lines) {
			line = rv.Lines[i]
		}
		return rv.Values[i], rv.Paths[i], line
	}

	switch {
	case len(left.Values) == 0 || len(right.Values) == 0:
		return nil

	case len(left.Values) == 1 && len(right.Values) == 1:
		lv, lp, ll := at(left, 0)
		rv, rp, rl := at(right, 0)
		line := ll
		if math.IsNaN(line) {
			line = rl
		}
		return []pairItem{{left: lv, right: rv, leftPath: lp, rightPath: rp, line: line}}

	case hasLineInfo(left) && hasLineInfo(right):
		var pairs []pairItem
		for i := range left.Values {
			lv, lp, ll := at(left, i)
			if math.IsNaN(ll) || !validOdds(lv) {
				continue
			}
			for j := range right.Values {
				rv, rp, rl := at(right, j)
				if !validOdds(rv) {
					continue
				}
				if sameLine(ll, rl) {
					pairs = append(pairs, pairItem{left: lv, right: rv, leftPath: lp, rightPath: rp, line: ll})
					break
				}
			}
		}
		if len(pairs) > 0 {
			return pairs
		}
		return pairByLength(left, right)

	default:
		return pairByLength(left, right)
	}
}

func pairByLength(left, right ResolvedValue) []pairItem {
	at := func(rv ResolvedValue, i int) (float64, string, float64) {
		line := math.NaN()
		if i < len(rv.Lines) {
			line = rv.Lines[i]
		}
		return rv.Values[i], rv.Paths[i], line
	}

	if len(left.Values) == 1 {
		lv, lp, _ := at(left, 0)
		var pairs []pairItem
		for i := range right.Values {
			rv, rp, rl := at(right, i)
			pairs = append(pairs, pairItem{left: lv, right: rv, leftPath: lp, rightPath: rp, line: rl})
		}
		return pairs
	}
	if len(right.Values) == 1 {
		rv, rp, _ := at(right, 0)
		var pairs []pairItem
		for i := range left.Values {
			lv, lp, ll := at(left, i)
			pairs = append(pairs, pairItem{left: lv, right: rv, leftPath: lp, rightPath: rp, line: ll})
		}
		return pairs
	}
	if len(left.Values) == len(right.Values) {
		var pairs []pairItem
		for i := range left.Values {
			lv, lp, ll := at(left, i)
			rv, rp, rl := at(right, i)
			line := ll
			if math.IsNaN(line) {
				line = rl
			}
			pairs = append(pairs, pairItem{left: lv, right: rv, leftPath: lp, rightPath: rp, line: line})
		}
		return pairs
	}
	return nil
}

// validOdds rejects a side of an ah/ou line-keyed pair whose decimal
// odds are ≤ 1.00 (§4.7 mode A: "require the odds value is > 1000 to
// be considered valid").
func validOdds(v float64) bool {
	return v > minValidOdds
}

func hasLineInfo(rv ResolvedValue) bool {
	for _, l := range rv.Lines {
		if !math.IsNaN(l) {
			return true
		}
	}
	return false
}
