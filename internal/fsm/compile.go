package fsm

import (
	"fmt"
	"sort"
	"strings"
)

//nolint:gochecknoglobals // fixed heuristic vocabulary, not configuration
var policyKeywords = map[string]bool{
	"must":    true,
	"valid":   true,
	"require": true,
}

const initialStateName = "start"
const successTerminalName = "success"

// Compile turns wf into a Machine: an initial state, one state per step
// (named after its postcondition), one success terminal, and one failure
// terminal per distinct failure outcome across all steps. Transitions are
// added along the happy path first, then variant branches (guard derived
// from the variant condition and linked to an invariant where lexical
// overlap is non-trivial), then failure branches marked IsFailurePath.
func Compile(wf Workflow) (*Machine, error) {
	if wf.Slug == "" {
		return nil, fmt.Errorf("workflow slug is required")
	}
	if len(wf.Steps) == 0 {
		return nil, fmt.Errorf("workflow %s has no steps", wf.Slug)
	}

	m := &Machine{Slug: wf.Slug, Level: wf.Level, Initial: initialStateName}
	m.States = append(m.States, State{Name: initialStateName})

	stepState := make([]string, len(wf.Steps))
	for i, step := range wf.Steps {
		name := step.Postcondition
		if name == "" {
			name = step.Name
		}
		stepState[i] = name
		if !m.HasState(name) {
			m.States = append(m.States, State{Name: name})
		}
	}

	failureTerminals := map[string]bool{}
	for _, step := range wf.Steps {
		for _, f := range step.Failures {
			failureTerminals[f.Outcome] = true
		}
	}

	m.States = append(m.States, State{Name: successTerminalName, Terminal: true})
	for _, name := range sortedKeys(failureTerminals) {
		m.States = append(m.States, State{Name: name, Terminal: true})
	}

	// Happy path: start -> step1 -> step2 -> ... -> success.
	prev := initialStateName
	for i, step := range wf.Steps {
		_ = step
		m.Transitions = append(m.Transitions, Transition{From: prev, To: stepState[i]})
		prev = stepState[i]
	}
	m.Transitions = append(m.Transitions, Transition{From: prev, To: successTerminalName})

	// Variant branches.
	for i, step := range wf.Steps {
		for _, v := range step.Variants {
			target := v.Target
			if target == "" {
				target = nextStepOrSuccess(stepState, i)
			}
			m.Transitions = append(m.Transitions, Transition{
				From:  stepState[i],
				To:    target,
				Guard: linkGuard(v.Condition, wf.Invariants),
			})
		}
	}

	// Failure branches.
	for i, step := range wf.Steps {
		for _, f := range step.Failures {
			m.Transitions = append(m.Transitions, Transition{
				From:          stepState[i],
				To:            f.Outcome,
				Guard:         linkGuard(f.Condition, wf.Invariants),
				IsFailurePath: true,
			})
		}
	}

	return m, nil
}

func nextStepOrSuccess(stepState []string, i int) string {
	if i+1 < len(stepState) {
		return stepState[i+1]
	}
	return successTerminalName
}

// linkGuard builds a Guard from condition, linking it to the first
// invariant whose rule shares at least one word longer than three
// characters with condition. A policy keyword ("must", "valid", "require")
// in condition does not produce a link on its own: without a shared word
// the guard stays unlinked. Unlinked guards retain the bare condition text.
func linkGuard(condition string, invariants []Invariant) *Guard {
	g := &Guard{Condition: condition}

	condWords := significantWords(condition)
	if containsPolicyKeyword(condition) {
		if inv, ok := findFirstOverlap(condWords, invariants); ok {
			g.InvariantID = inv
			return g
		}
		// Policy keyword present but no invariant shares a word: still
		// leave unlinked, matching spec.md's "lexical overlap... or
		// presence of policy keywords" as the trigger for attempting a
		// link, not a guarantee one is found.
	}

	if inv, ok := findFirstOverlap(condWords, invariants); ok {
		g.InvariantID = inv
	}
	return g
}

func findFirstOverlap(condWords map[string]bool, invariants []Invariant) (string, bool) {
	for _, inv := range invariants {
		for _, w := range significantWordsSlice(inv.Rule) {
			if condWords[w] {
				return inv.ID, true
			}
		}
	}
	return "", false
}

func containsPolicyKeyword(s string) bool {
	for _, w := range significantWordsSlice(strings.ToLower(s)) {
		if policyKeywords[w] {
			return true
		}
	}
	return false
}

// significantWords returns the lowercase words of s longer than three
// characters, as a set for overlap testing.
func significantWords(s string) map[string]bool {
	out := make(map[string]bool)
	for _, w := range significantWordsSlice(s) {
		out[w] = true
	}
	return out
}

func significantWordsSlice(s string) []string {
	var out []string
	for _, w := range strings.Fields(strings.ToLower(s)) {
		w = strings.Trim(w, ".,;:!?()\"'")
		if len(w) > 3 {
			out = append(out, w)
		}
	}
	return out
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
