package filter

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, raw string) Expr {
	t.Helper()
	var e Expr
	require.NoError(t, json.Unmarshal([]byte(raw), &e))
	return e
}

func TestPerLineAndMatchesSingleLine(t *testing.T) {
	doc := map[string]interface{}{
		"bookmakers": map[string]interface{}{
			"B": map[string]interface{}{
				"ah_lines": []float64{-0.5, -0.25, 0},
				"ah_h":     []float64{2100, 2200, 2300},
				"ah_a":     []float64{1800, 1750, 1700},
			},
		},
	}

	raw := `{
		"per_line_and": [
			{"field": "bookmakers.B.ah_h", "op": "gte", "value": 2150},
			{"field": "bookmakers.B.ah_a", "op": "gte", "value": 1750}
		]
	}`
	expr := mustParse(t, raw)

	ctx := NewContext(doc, nil)
	matched := Evaluate(expr, doc, ctx)

	assert.True(t, matched)
	assert.Len(t, ctx.Traces(), 2)
	for _, trace := range ctx.Traces() {
		require.NotNil(t, trace.Line)
		assert.InDelta(t, -0.25, *trace.Line, lineTolerance)
	}
}

func TestExistsRecordsTraceForEveryValue(t *testing.T) {
	doc := map[string]interface{}{
		"bookmakers": map[string]interface{}{
			"B": map[string]interface{}{"x12_h": 1900.0},
		},
	}
	expr := mustParse(t, `{"field": "bookmakers.B.x12_h", "op": "exists"}`)

	ctx := NewContext(doc, nil)
	assert.True(t, Evaluate(expr, doc, ctx))
	assert.Len(t, ctx.Traces(), 1)
}

func TestAndShortCircuitsOnFirstFailure(t *testing.T) {
	doc := map[string]interface{}{"bookmakers": map[string]interface{}{}}
	expr := mustParse(t, `{"and": [
		{"field": "bookmakers.Missing.x12_h", "op": "exists"},
		{"field": "bookmakers.Missing.x12_x", "op": "exists"}
	]}`)

	ctx := NewContext(doc, nil)
	assert.False(t, Evaluate(expr, doc, ctx))
}

func TestVectorAvgBindsVariable(t *testing.T) {
	doc := map[string]interface{}{
		"bookmakers": map[string]interface{}{
			"B": map[string]interface{}{"x12_h": 2000.0},
			"C": map[string]interface{}{"x12_h": 2200.0},
		},
	}
	expr := mustParse(t, `{
		"and": [
			{"function": "avg", "source": "bookmakers.B.x12_h", "as": "avgh"},
			{"field": "$avgh", "op": "gt", "value": 1000}
		]
	}`)

	ctx := NewContext(doc, nil)
	assert.True(t, Evaluate(expr, doc, ctx))
}
