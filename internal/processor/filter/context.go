package filter

import "github.com/fortuna/oddspipeline/pkg/contracts"

// OperandDetail records one side of an evaluated arithmetic/compare
// pairing, for the match trace attached to delivered messages (§4.7).
type OperandDetail struct {
	Path  string  `json:"path"`
	Value float64 `json:"value"`
}

// ArithmeticDetail is the full record of one binary evaluation: both
// operands and the result, so the trace can explain *why* a clause
// matched.
type ArithmeticDetail struct {
	Left   OperandDetail `json:"left"`
	Right  OperandDetail `json:"right"`
	Result float64       `json:"result"`
	Op     string        `json:"op"`
}

// MatchTrace is one row of the diagnostic trail attached to an outgoing
// message: which path(s) matched, at which line (if any), and the
// arithmetic that produced the value, when applicable.
type MatchTrace struct {
	Path        string             `json:"path"`
	Value       float64            `json:"value"`
	Line        *float64           `json:"line,omitempty"`
	Arithmetic  *ArithmeticDetail  `json:"arithmetic,omitempty"`
}

// Context carries the mutable state one top-level evaluation threads
// through the AST: bound vector variables, the accumulated match trace,
// and the fixture's history provider (§9 "AST traversal with shared
// bindings"). Its lifetime is exactly one Evaluate call.
type Context struct {
	vars    map[string]ResolvedValue
	traces  []MatchTrace
	history contracts.HistoryProvider
	doc     map[string]interface{}
}

// NewContext returns a Context evaluating doc, with an optional history
// provider (nil disables the history() operator, which then resolves to
// absence for every call).
func NewContext(doc map[string]interface{}, history contracts.HistoryProvider) *Context {
	return &Context{
		vars:    make(map[string]ResolvedValue),
		history: history,
		doc:     doc,
	}
}

// Traces returns the accumulated match trace.
func (c *Context) Traces() []MatchTrace {
	return c.traces
}

func (c *Context) addTrace(t MatchTrace) {
	c.traces = append(c.traces, t)
}

func (c *Context) bind(name string, v ResolvedValue) {
	if name != "" {
		c.vars[name] = v
	}
}

func (c *Context) lookup(name string) (ResolvedValue, bool) {
	v, ok := c.vars[name]
	return v, ok
}
