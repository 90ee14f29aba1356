package domain

import "time"

// CheckpointStatus is the closed status set of an in-flight batch.
type CheckpointStatus string

// Checkpoint status enumeration.
const (
	CheckpointStatusActive   CheckpointStatus = "active"
	CheckpointStatusComplete CheckpointStatus = "complete"
)

// CheckpointTasks buckets the batch's task IDs by outcome.
type CheckpointTasks struct {
	Pending   []string `json:"pending"`
	Completed []string `json:"completed"`
	Failed    []string `json:"failed"`
}

// Checkpoint records a single in-flight batch of parallel worker execution
// (spec.md §4.5), persisted at orchestrator-checkpoint.json.
type Checkpoint struct {
	BatchID   string           `json:"batch_id"`
	SpawnedAt time.Time        `json:"spawned_at"`
	Status    CheckpointStatus `json:"status"`
	Tasks     CheckpointTasks  `json:"tasks"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// Clone returns a deep copy of the checkpoint, so callers can hold a
// read-only snapshot without risk of aliasing the slices under the lock.
func (c *Checkpoint) Clone() *Checkpoint {
	if c == nil {
		return nil
	}
	return &Checkpoint{
		BatchID:   c.BatchID,
		SpawnedAt: c.SpawnedAt,
		Status:    c.Status,
		Tasks: CheckpointTasks{
			Pending:   append([]string(nil), c.Tasks.Pending...),
			Completed: append([]string(nil), c.Tasks.Completed...),
			Failed:    append([]string(nil), c.Tasks.Failed...),
		},
		UpdatedAt: c.UpdatedAt,
	}
}

// contains reports whether id is present in ids.
func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// remove returns ids with every occurrence of id removed.
func remove(ids []string, id string) []string {
	out := ids[:0:0] //nolint:staticcheck // deliberate fresh backing array
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// MoveTask moves id into the bucket named by outcome ("success" or
// "failed"), removing it from whichever bucket currently holds it.
// Calling MoveTask twice with the same (id, outcome) is a no-op after the
// first call (spec.md §8 idempotence property).
func (c *Checkpoint) MoveTask(id, outcome string) {
	var target *[]string
	switch outcome {
	case "success":
		target = &c.Tasks.Completed
	case "failed":
		target = &c.Tasks.Failed
	default:
		return
	}

	if contains(*target, id) {
		return
	}

	c.Tasks.Pending = remove(c.Tasks.Pending, id)
	c.Tasks.Completed = remove(c.Tasks.Completed, id)
	c.Tasks.Failed = remove(c.Tasks.Failed, id)
	*target = append(*target, id)
}
