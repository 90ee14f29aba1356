package fsm

import (
	"fmt"
)

// Violation is a single structural invariant failure.
type Violation struct {
	Invariant string // "steel_thread_required", "completeness"
	Message   string
}

// Warning is a non-fatal finding (currently only guard-linkage).
type Warning struct {
	Invariant string
	Message   string
}

// Thresholds configures the transition-coverage check. Values are used as
// given: a zero threshold is met by any coverage ratio.
type Thresholds struct {
	SteelThread    float64
	NonSteelThread float64
}

// Result is the full validator outcome: structural violations,
// guard-linkage warnings, and the computed transition-coverage ratio
// against the configured threshold for the machine's level.
type Result struct {
	Violations    []Violation
	Warnings      []Warning
	CoverageRatio float64
	CoverageMet   bool
}

// Valid reports whether the machine has no structural violations and its
// transition coverage meets the configured threshold.
func (r Result) Valid() bool {
	return len(r.Violations) == 0 && r.CoverageMet
}

// Validate checks m (and, for the steel-thread check, idx) against the
// structural invariants of spec.md §4.8: the primary machine must be the
// mandatory steel-thread flow, every machine must be internally complete
// (reachable, no dead ends, no dangling references), and every guard
// should be linked back to an invariant. idx may be nil when validating a
// non-primary machine standalone, in which case the steel-thread check is
// skipped.
func Validate(m *Machine, idx *Index, thresholds Thresholds, coveredTransitions int) Result {
	var res Result

	if idx != nil {
		res.Violations = append(res.Violations, checkSteelThreadRequired(m, idx)...)
	}
	res.Violations = append(res.Violations, checkCompleteness(m)...)
	res.Warnings = append(res.Warnings, checkGuardLinkage(m)...)

	threshold := thresholds.NonSteelThread
	if m.Level == LevelSteelThread {
		threshold = thresholds.SteelThread
	}
	if len(m.Transitions) > 0 {
		res.CoverageRatio = float64(coveredTransitions) / float64(len(m.Transitions))
	} else {
		res.CoverageRatio = 1.0
	}
	res.CoverageMet = res.CoverageRatio >= threshold

	return res
}

// checkSteelThreadRequired enforces "index.primary_machine exists and its
// level is steel_thread" against m when m is the machine named by
// idx.PrimaryMachine.
func checkSteelThreadRequired(m *Machine, idx *Index) []Violation {
	if idx.PrimaryMachine == "" {
		return []Violation{{Invariant: "steel_thread_required", Message: "index.primary_machine is not set"}}
	}
	if idx.PrimaryMachine != m.Slug {
		return nil // m is not the primary machine; the check doesn't apply to it
	}
	if m.Level != LevelSteelThread {
		return []Violation{{Invariant: "steel_thread_required", Message: fmt.Sprintf("primary machine %s has level %s, want steel_thread", m.Slug, m.Level)}}
	}
	return nil
}

// checkCompleteness enforces: a declared initial state, at least one
// terminal, every transition references declared states, no non-terminal
// dead ends, and full forward-BFS reachability from the initial state.
func checkCompleteness(m *Machine) []Violation {
	var violations []Violation

	if !m.HasState(m.Initial) {
		violations = append(violations, Violation{Invariant: "completeness", Message: fmt.Sprintf("initial state %q is not declared", m.Initial)})
	}
	if len(m.Terminals()) == 0 {
		violations = append(violations, Violation{Invariant: "completeness", Message: "machine has no terminal state"})
	}

	declared := make(map[string]bool, len(m.States))
	for _, s := range m.States {
		declared[s.Name] = true
	}

	outgoing := make(map[string]int, len(m.States))
	for _, t := range m.Transitions {
		if !declared[t.From] {
			violations = append(violations, Violation{Invariant: "completeness", Message: fmt.Sprintf("transition references undeclared state %q (from)", t.From)})
		}
		if !declared[t.To] {
			violations = append(violations, Violation{Invariant: "completeness", Message: fmt.Sprintf("transition references undeclared state %q (to)", t.To)})
		}
		outgoing[t.From]++
	}

	for _, s := range m.States {
		if !s.Terminal && outgoing[s.Name] == 0 {
			violations = append(violations, Violation{Invariant: "completeness", Message: fmt.Sprintf("state %q is a dead end", s.Name)})
		}
	}

	reachable := reachableFrom(m)
	for _, s := range m.States {
		if !reachable[s.Name] {
			violations = append(violations, Violation{Invariant: "completeness", Message: fmt.Sprintf("state %q is not reachable from %q", s.Name, m.Initial)})
		}
	}

	return violations
}

// reachableFrom runs a forward BFS from m.Initial over m.Transitions.
func reachableFrom(m *Machine) map[string]bool {
	adj := make(map[string][]string, len(m.States))
	for _, t := range m.Transitions {
		adj[t.From] = append(adj[t.From], t.To)
	}

	visited := map[string]bool{m.Initial: true}
	queue := []string{m.Initial}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range adj[cur] {
			if !visited[next] {
				visited[next] = true
				queue = append(queue, next)
			}
		}
	}
	return visited
}

// checkGuardLinkage reports every guard with no invariant_id as a warning,
// not an error, per spec.md §4.8.
func checkGuardLinkage(m *Machine) []Warning {
	var warnings []Warning
	for _, t := range m.Transitions {
		if t.Guard != nil && t.Guard.InvariantID == "" {
			warnings = append(warnings, Warning{
				Invariant: "guard_linkage",
				Message:   fmt.Sprintf("transition %s->%s guard %q is not linked to an invariant", t.From, t.To, t.Guard.Condition),
			})
		}
	}
	return warnings
}
