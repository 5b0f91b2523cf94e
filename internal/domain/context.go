package domain

import "strings"

// RequestContext is the read-only business context a caller supplies with an
// orchestration request. The strategy router ranks candidates from it with
// cheap local heuristics; the engine never writes to it.
//
// Seed is the explicit uniqueness seed for this request. Callers control it,
// which keeps strategy output reproducible in tests instead of depending on
// process-wide randomness.
type RequestContext struct {
	BusinessName    string
	BusinessType    string
	Platform        string
	Locale          string
	Tone            string
	Keywords        []string
	PriorOutputs    []string
	AvoidRepetition bool
	Fields          map[string]string
	Seed            int64
}

// Richness counts how many meaningful context signals are present. The router
// prefers context-hungry strategies only when there is context to consume.
func (c RequestContext) Richness() int {
	n := 0
	for _, v := range []string{c.BusinessName, c.BusinessType, c.Platform, c.Tone} {
		if strings.TrimSpace(v) != "" {
			n++
		}
	}
	n += len(c.Keywords)
	n += len(c.Fields)
	return n
}

// StrategyDecision records which strategy the router chose and why. It is
// computed once per top-level request and immutable after creation.
type StrategyDecision struct {
	Strategy  string
	Fallback  string
	Reasoning []string
	Scores    map[string]float64
}
