// Package constants defines the closed enumerations, file names, timeouts,
// and permission modes shared across forge's internal packages.
package constants

// PhaseName identifies a stage of the planning/execution pipeline.
type PhaseName string

// Canonical phase set, in pipeline order.
const (
	PhaseIngestion  PhaseName = "ingestion"
	PhaseSpecReview PhaseName = "spec_review"
	PhaseLogical    PhaseName = "logical"
	PhasePhysical   PhaseName = "physical"
	PhaseDefinition PhaseName = "definition"
	PhaseValidation PhaseName = "validation"
	PhaseSequencing PhaseName = "sequencing"
	PhaseReady      PhaseName = "ready"
	PhaseExecuting  PhaseName = "executing"
	PhaseComplete   PhaseName = "complete"
)

// PhaseOrder is the canonical, fixed sequence of phases.
//
//nolint:gochecknoglobals // canonical ordering table, read-only after init
var PhaseOrder = []PhaseName{
	PhaseIngestion,
	PhaseSpecReview,
	PhaseLogical,
	PhasePhysical,
	PhaseDefinition,
	PhaseValidation,
	PhaseSequencing,
	PhaseReady,
	PhaseExecuting,
	PhaseComplete,
}

//nolint:gochecknoglobals // derived from PhaseOrder in init
var (
	validPhases  map[PhaseName]bool
	phaseIndex   map[PhaseName]int
	nextPhase    map[PhaseName]PhaseName
	terminalPhase PhaseName
)

func init() {
	validPhases = make(map[PhaseName]bool, len(PhaseOrder))
	phaseIndex = make(map[PhaseName]int, len(PhaseOrder))
	nextPhase = make(map[PhaseName]PhaseName, len(PhaseOrder))

	for i, p := range PhaseOrder {
		validPhases[p] = true
		phaseIndex[p] = i
		if i+1 < len(PhaseOrder) {
			nextPhase[p] = PhaseOrder[i+1]
		}
	}
	terminalPhase = PhaseOrder[len(PhaseOrder)-1]
}

// IsValidPhase reports whether p belongs to the closed phase set.
func IsValidPhase(p PhaseName) bool {
	return validPhases[p]
}

// PhaseIndex returns the position of p in the canonical order, or -1 if unknown.
func PhaseIndex(p PhaseName) int {
	if idx, ok := phaseIndex[p]; ok {
		return idx
	}
	return -1
}

// NextPhase returns the phase immediately following p, and whether one exists.
func NextPhase(p PhaseName) (PhaseName, bool) {
	n, ok := nextPhase[p]
	return n, ok
}

// IsTerminalPhase reports whether p is the final phase in the pipeline.
func IsTerminalPhase(p PhaseName) bool {
	return p == terminalPhase
}

// String implements fmt.Stringer.
func (p PhaseName) String() string {
	return string(p)
}
