// Package signal evaluates buy and sell decisions and records every
// condition and input behind them.
package signal

import (
	"encoding/json"
	"math"
	"sort"
)

// Audit is the serializable record attached to every order as its tag.
type Audit struct {
	Symbol           string             `json:"Symbol"`
	Side             string             `json:"Side"`
	Reason           string             `json:"Reason,omitempty"`
	Conditions       map[string]bool    `json:"Conditions"`
	UnderlyingValues map[string]float64 `json:"UnderlyingValues"`
	Parameters       map[string]float64 `json:"Parameters"`

	order []string
}

func newAudit(symbol, side string) Audit {
	return Audit{
		Symbol:           symbol,
		Side:             side,
		Conditions:       make(map[string]bool),
		UnderlyingValues: make(map[string]float64),
		Parameters:       make(map[string]float64),
	}
}

// check records a condition. Disabled conditions pass.
func (a *Audit) check(name string, enabled, ok bool) {
	a.Conditions[name] = !enabled || ok
	a.order = append(a.order, name)
}

// Passed reports whether every condition holds.
func (a Audit) Passed() bool {
	for _, ok := range a.Conditions {
		if !ok {
			return false
		}
	}
	return true
}

// Failed returns the failing conditions in evaluation order. A parsed audit
// has no order and reports them sorted.
func (a Audit) Failed() []string {
	names := a.order
	if len(names) == 0 {
		for name := range a.Conditions {
			names = append(names, name)
		}
		sort.Strings(names)
	}
	var out []string
	for _, name := range names {
		if !a.Conditions[name] {
			out = append(out, name)
		}
	}
	return out
}

// Tag returns the audit as a JSON string. Non-finite values are dropped
// since JSON cannot carry them.
func (a Audit) Tag() string {
	out := a
	out.UnderlyingValues = finiteOnly(a.UnderlyingValues)
	out.Parameters = finiteOnly(a.Parameters)
	b, err := json.Marshal(out)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// ParseTag decodes an audit tag.
func ParseTag(tag string) (Audit, error) {
	var a Audit
	err := json.Unmarshal([]byte(tag), &a)
	return a, err
}

func finiteOnly(m map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out[k] = v
		}
	}
	return out
}
