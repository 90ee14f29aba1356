package constants

import "time"

// Filesystem layout under the planning directory (spec.md §6).
const (
	StateFileName          = "state.json"
	StateTempFileName       = "state.json.tmp"
	StateLockFileName       = "state.json.lock"
	StateCorruptedPrefix    = "state.json.corrupted."
	CheckpointFileName      = "orchestrator-checkpoint.json"
	CheckpointTempFileName  = "orchestrator-checkpoint.json.tmp"
	CheckpointLockFileName  = "orchestrator-checkpoint.json.lock"
	StopFileName            = "STOP"

	InputsDir       = "inputs"
	SpecInputFile   = "spec.md"
	ArtifactsDir    = "artifacts"
	FSMDir          = "fsm"
	TasksDir        = "tasks"
	BundlesDir      = "bundles"
	LogsDir         = "logs"

	CapabilityMapFile   = "capability-map.json"
	PhysicalMapFile     = "physical-map.json"
	DependencyGraphFile = "dependency-graph.json"
	BehaviorModelFile   = "behavior-model.json"
	FSMIndexFile        = "index.json"

	ForgeHome    = ".forge"
	CLILogFileName = "forge.log"
)

// Artifact kinds tracked on State.Artifacts.
const (
	ArtifactCapabilityMap   = "capability_map"
	ArtifactPhysicalMap     = "physical_map"
	ArtifactDependencyGraph = "dependency_graph"
	ArtifactBehaviorModel   = "behavior_model"
)

// State document schema version (spec.md §3).
const StateSchemaVersion = "2.0"

// Timeouts and retry/backoff tuning.
const (
	DefaultLockTimeout   = 10 * time.Second
	LockPollInterval     = 50 * time.Millisecond
	DefaultStopPollDelay = 2 * time.Second
)

// Parallel execution defaults.
const (
	DefaultBatchSize = 3
)

// Planning gate thresholds (spec.md §4.2).
const (
	DefaultCoverageThreshold = 0.90
)

// FSM validator coverage thresholds (spec.md §4.8).
const (
	DefaultSteelThreadCoverageThreshold    = 1.00
	DefaultNonSteelThreadCoverageThreshold = 0.90
)

// Log rotation tuning.
const (
	LogMaxSizeMB  = 10
	LogMaxBackups = 5
	LogMaxAgeDays = 30
	LogCompress   = true
)

// Topological-order cache tuning (internal/dag.TopoCache).
const (
	DefaultTopoCacheTTL = 5 * time.Minute
)

// Filesystem permission modes.
const (
	DirPerm  = 0o750
	FilePerm = 0o600
)

// TaskIDPattern is the regex fragment describing a valid task ID: T\d{3,}.
const TaskIDPattern = `^T\d{3,}$`
