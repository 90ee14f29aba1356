// Package cli provides the command-line interface for forge.
package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/taskforge/forge/internal/config"
	"github.com/taskforge/forge/internal/constants"
	"github.com/taskforge/forge/internal/domain"
	"github.com/taskforge/forge/internal/errors"
	"github.com/taskforge/forge/internal/fsm"
	"github.com/taskforge/forge/internal/statestore"
	"github.com/taskforge/forge/internal/tui"
)

// AddValidateCommand adds the validate command to the root command.
func AddValidateCommand(root *cobra.Command, flags *GlobalFlags) {
	root.AddCommand(newValidateCmd(flags))
}

func newValidateCmd(flags *GlobalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [artifact]",
		Short: "Check the state document, or a single named artifact, for validity",
		Long: `With no argument, validate checks a loaded state.json against the
structural invariants: a known schema version, a known current phase, a
completed-phases prefix, and well-formed task IDs with no dangling
dependency references.

Given an artifact name (capability_map, physical_map, dependency_graph, or
behavior_model), validate instead checks that artifact's file on disk and
records the outcome on state.artifacts.<name> (path, checksum, valid,
validated_at, and, on failure, error). behavior_model additionally compiles
the workflow source into a state machine and runs the structural/coverage
checks, exporting the compiled machine under artifacts/fsm/ on success.

It reports the first violation found, if any.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFor(cmd, flags)
			dir, _ := cmd.Flags().GetString(dirFlagName)

			if len(args) == 0 {
				return runValidateStateDocument(out, dir)
			}
			return runValidateArtifact(out, dir, args[0])
		},
		SilenceUsage: true,
	}

	addDirFlag(cmd)
	return cmd
}

func runValidateStateDocument(out tui.Output, dir string) error {
	_, st, err := openStore(dir)
	if err != nil {
		return printErr(out, err)
	}

	if err := statestore.Validate(st); err != nil {
		return printErr(out, err)
	}

	out.Success("state document is valid")
	return nil
}

// runValidateArtifact validates the named artifact's file on disk, updates
// its ArtifactRef on the state document, and saves.
func runValidateArtifact(out tui.Output, dir, kind string) error {
	store, st, err := openStore(dir)
	if err != nil {
		return printErr(out, err)
	}

	ref, verr := validateArtifactByKind(dir, kind, st, now())
	if ref == nil {
		return printErr(out, verr)
	}
	setArtifactRef(st, kind, ref)

	if err := store.Save(st); err != nil {
		return printErr(out, err)
	}
	if verr != nil {
		return printErr(out, verr)
	}

	out.Success(fmt.Sprintf("artifact %s is valid", kind))
	return out.JSON(ref)
}

// validateArtifactByKind dispatches on kind, returning the ArtifactRef to
// record regardless of outcome (nil only for an unknown kind) and a
// non-nil error when the artifact failed validation.
func validateArtifactByKind(dir, kind string, st *domain.State, ts time.Time) (*domain.ArtifactRef, error) {
	switch kind {
	case constants.ArtifactCapabilityMap:
		return validateJSONArtifact(dir, constants.ArtifactsDir, constants.CapabilityMapFile, ts)
	case constants.ArtifactPhysicalMap:
		return validateJSONArtifact(dir, constants.ArtifactsDir, constants.PhysicalMapFile, ts)
	case constants.ArtifactDependencyGraph:
		return validateJSONArtifact(dir, constants.ArtifactsDir, constants.DependencyGraphFile, ts)
	case constants.ArtifactBehaviorModel:
		return validateBehaviorModel(dir, st, ts)
	default:
		return nil, errors.NewCodedError(errors.CategoryValidation, "INVALID_FIELD",
			fmt.Errorf("unknown artifact kind %q", kind))
	}
}

// validateJSONArtifact checks that dir/subdir/file exists and parses as
// JSON, returning an ArtifactRef recording the outcome either way.
func validateJSONArtifact(dir, subdir, file string, ts time.Time) (*domain.ArtifactRef, error) {
	path := filepath.Join(dir, subdir, file)
	ref := &domain.ArtifactRef{Path: path}
	t := ts
	ref.ValidatedAt = &t

	data, err := os.ReadFile(path)
	if err != nil {
		msg := err.Error()
		ref.Error = &msg
		return ref, errors.NewCodedError(errors.CategorySchema, "NOT_FOUND", errors.ErrSchemaNotFound)
	}

	var probe interface{}
	if err := json.Unmarshal(data, &probe); err != nil {
		msg := err.Error()
		ref.Error = &msg
		return ref, errors.NewCodedError(errors.CategorySchema, "VALIDATION_FAILED",
			fmt.Errorf("%w: %s", errors.ErrSchemaValidateFailed, err))
	}

	ref.Checksum = fsm.SpecChecksum(data)
	ref.Valid = true
	return ref, nil
}

// validateBehaviorModel reads dir/artifacts/fsm/behavior-model.json as an
// fsm.Workflow, compiles it, validates the compiled machine against the
// configured coverage thresholds, and on success exports the machine under
// artifacts/fsm/.
func validateBehaviorModel(dir string, st *domain.State, ts time.Time) (*domain.ArtifactRef, error) {
	path := filepath.Join(dir, constants.ArtifactsDir, constants.FSMDir, constants.BehaviorModelFile)
	ref := &domain.ArtifactRef{Path: path}
	t := ts
	ref.ValidatedAt = &t

	data, err := os.ReadFile(path)
	if err != nil {
		msg := err.Error()
		ref.Error = &msg
		return ref, errors.NewCodedError(errors.CategorySchema, "NOT_FOUND", errors.ErrSchemaNotFound)
	}

	var wf fsm.Workflow
	if err := json.Unmarshal(data, &wf); err != nil {
		msg := err.Error()
		ref.Error = &msg
		return ref, errors.NewCodedError(errors.CategorySchema, "COMPILE_FAILED",
			fmt.Errorf("%w: %s", errors.ErrSchemaCompileFailed, err))
	}

	machine, err := fsm.Compile(wf)
	if err != nil {
		msg := err.Error()
		ref.Error = &msg
		return ref, errors.NewCodedError(errors.CategorySchema, "COMPILE_FAILED",
			fmt.Errorf("%w: %s", errors.ErrSchemaCompileFailed, err))
	}

	cfg, err := config.Load(dir)
	if err != nil {
		msg := err.Error()
		ref.Error = &msg
		return ref, err
	}
	thresholds := fsm.Thresholds{
		SteelThread:    cfg.FSM.SteelThreadCoverageThreshold,
		NonSteelThread: cfg.FSM.NonSteelThreadCoverageThreshold,
	}

	idx := &fsm.Index{PrimaryMachine: wf.Slug, SpecChecksum: fsm.SpecChecksum(data)}
	result := fsm.Validate(machine, idx, thresholds, len(machine.Transitions))
	if !result.Valid() {
		msg := fmt.Sprintf("%d violation(s), coverage %.2f (need %.2f)",
			len(result.Violations), result.CoverageRatio, thresholdFor(machine, thresholds))
		ref.Error = &msg
		return ref, errors.NewCodedError(errors.CategorySchema, "VALIDATION_FAILED",
			fmt.Errorf("%w: %s", errors.ErrSchemaValidateFailed, msg))
	}

	fsmDir := filepath.Join(dir, constants.ArtifactsDir, constants.FSMDir)
	if err := fsm.Export(fsmDir, machine); err != nil {
		msg := err.Error()
		ref.Error = &msg
		return ref, err
	}
	entry := fsm.IndexEntry{
		Slug:            machine.Slug,
		Level:           machine.Level,
		StatesFile:      machine.Slug + ".states.json",
		TransitionsFile: machine.Slug + ".transitions.json",
	}
	if err := fsm.WriteIndex(fsmDir, wf.Slug, []fsm.IndexEntry{entry}, idx.SpecChecksum); err != nil {
		msg := err.Error()
		ref.Error = &msg
		return ref, err
	}

	ref.Checksum = idx.SpecChecksum
	ref.Valid = true
	return ref, nil
}

func thresholdFor(m *fsm.Machine, t fsm.Thresholds) float64 {
	if m.Level == fsm.LevelSteelThread {
		return t.SteelThread
	}
	return t.NonSteelThread
}

func setArtifactRef(st *domain.State, kind string, ref *domain.ArtifactRef) {
	switch kind {
	case constants.ArtifactCapabilityMap:
		st.Artifacts.CapabilityMap = ref
	case constants.ArtifactPhysicalMap:
		st.Artifacts.PhysicalMap = ref
	case constants.ArtifactDependencyGraph:
		st.Artifacts.DependencyGraph = ref
	case constants.ArtifactBehaviorModel:
		st.Artifacts.BehaviorModel = ref
	}
}
