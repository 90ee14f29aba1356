// Package dag implements the task loader, ready-set computation, cycle
// detection, and phase-ordering check of spec.md §4.3.
//
// Load scans a directory and skips subdirectories and files without a .json
// extension. A .json file that cannot be read or parsed, or whose id is
// malformed, aborts the whole load with an error.
package dag

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/taskforge/forge/internal/constants"
	"github.com/taskforge/forge/internal/ctxutil"
	"github.com/taskforge/forge/internal/domain"
	"github.com/taskforge/forge/internal/errors"
)

var validTaskIDRegex = regexp.MustCompile(constants.TaskIDPattern)

// Load reads every *.json file in dir/tasks, materializing each as a
// pending domain.Task keyed by ID. A missing "id" field is fatal for the
// whole load. Re-loading is destructive only for IDs newly absent from
// disk: any task.ID in existing that has no corresponding file is dropped
// from the returned set, preserving all surviving tasks' current status
// rather than resetting them to pending (so a reload during `definition`
// never discards execution that has already started).
func Load(ctx context.Context, dir string, existing map[string]*domain.Task) (map[string]*domain.Task, error) {
	if err := ctxutil.Canceled(ctx); err != nil {
		return nil, err
	}

	tasksDir := filepath.Join(dir, constants.TasksDir)
	entries, err := os.ReadDir(tasksDir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]*domain.Task{}, nil
		}
		return nil, errors.Wrap(err, "read tasks directory")
	}

	result := make(map[string]*domain.Task, len(entries))
	seen := make(map[string]bool, len(entries))

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}

		def, err := loadDefinition(filepath.Join(tasksDir, entry.Name()))
		if err != nil {
			return nil, err
		}
		if def.ID == "" {
			return nil, fmt.Errorf("%s: %w", entry.Name(), errors.ErrMissingTaskID)
		}
		if seen[def.ID] {
			return nil, fmt.Errorf("%s: %w: %s", entry.Name(), errors.ErrDuplicateTaskID, def.ID)
		}
		seen[def.ID] = true

		if prior, ok := existing[def.ID]; ok {
			result[def.ID] = prior
			continue
		}
		result[def.ID] = domain.NewTaskFromDefinition(def, entry.Name())
	}

	return result, nil
}

func loadDefinition(path string) (domain.TaskDefinition, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path built from a fixed tasks/ directory under the planning dir
	if err != nil {
		return domain.TaskDefinition{}, errors.Wrap(err, "read task file")
	}

	var def domain.TaskDefinition
	if err := json.Unmarshal(data, &def); err != nil {
		return domain.TaskDefinition{}, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	if !validTaskIDRegex.MatchString(def.ID) && def.ID != "" {
		return domain.TaskDefinition{}, fmt.Errorf("%s: task id %q does not match %s", filepath.Base(path), def.ID, constants.TaskIDPattern)
	}
	return def, nil
}

// ReadySet returns the IDs of every pending or ready task whose dependencies are all
// complete or skipped, sorted by phase ascending then ID lexicographically
// — the canonical offer-order to the scheduler.
func ReadySet(tasks map[string]*domain.Task) []string {
	var ready []string

	for id, t := range tasks {
		if t.Status != constants.TaskStatusPending && t.Status != constants.TaskStatusReady {
			continue
		}
		if allDependenciesSatisfied(tasks, t) {
			ready = append(ready, id)
		}
	}

	sort.Slice(ready, func(i, j int) bool {
		ti, tj := tasks[ready[i]], tasks[ready[j]]
		if ti.Phase != tj.Phase {
			return ti.Phase < tj.Phase
		}
		return ready[i] < ready[j]
	})
	return ready
}

func allDependenciesSatisfied(tasks map[string]*domain.Task, t *domain.Task) bool {
	for _, dep := range t.DependsOn {
		d, ok := tasks[dep]
		if !ok || !constants.IsCountedComplete(d.Status) {
			return false
		}
	}
	return true
}

// Cycles runs Kahn's algorithm over the depends_on edges of tasks and
// returns the IDs still unprocessed when no more in-degree-zero nodes
// remain — the participant set of a dependency cycle. An empty result
// means the graph is acyclic.
func Cycles(tasks map[string]*domain.Task) []string {
	inDegree := make(map[string]int, len(tasks))
	dependents := make(map[string][]string, len(tasks))

	for id := range tasks {
		inDegree[id] = 0
	}
	for id, t := range tasks {
		for _, dep := range t.DependsOn {
			if _, ok := tasks[dep]; !ok {
				continue // dangling deps are a validate()-time concern, not a cycle
			}
			inDegree[id]++
			dependents[dep] = append(dependents[dep], id)
		}
	}

	queue := make([]string, 0, len(tasks))
	for id, deg := range inDegree {
		if deg == 0 {
			queue = append(queue, id)
		}
	}
	sort.Strings(queue)

	visited := 0
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		visited++

		next := append([]string(nil), dependents[id]...)
		sort.Strings(next)
		for _, d := range next {
			inDegree[d]--
			if inDegree[d] == 0 {
				queue = append(queue, d)
			}
		}
	}

	if visited == len(tasks) {
		return nil
	}

	var remaining []string
	for id, deg := range inDegree {
		if deg > 0 {
			remaining = append(remaining, id)
		}
	}
	sort.Strings(remaining)
	return remaining
}

// TopoOrder returns a deterministic topological ordering of tasks' depends_on
// edges, consulting cache first and storing the computed order back on a
// miss. cache may be nil, in which case the order is always recomputed.
// If tasks is not acyclic it returns a nil order and an error whose message
// lists the cycle participant set reported by Cycles; nothing is cached.
func TopoOrder(tasks map[string]*domain.Task, cache *TopoCache) ([]string, error) {
	if order, ok := cache.Order(tasks); ok {
		return order, nil
	}

	inDegree := make(map[string]int, len(tasks))
	dependents := make(map[string][]string, len(tasks))
	for id := range tasks {
		inDegree[id] = 0
	}
	for id, t := range tasks {
		for _, dep := range t.DependsOn {
			if _, ok := tasks[dep]; !ok {
				continue
			}
			inDegree[id]++
			dependents[dep] = append(dependents[dep], id)
		}
	}

	queue := make([]string, 0, len(tasks))
	for id, deg := range inDegree {
		if deg == 0 {
			queue = append(queue, id)
		}
	}
	sort.Strings(queue)

	order := make([]string, 0, len(tasks))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		order = append(order, id)

		next := append([]string(nil), dependents[id]...)
		sort.Strings(next)
		for _, d := range next {
			inDegree[d]--
			if inDegree[d] == 0 {
				queue = append(queue, d)
			}
		}
	}

	if len(order) != len(tasks) {
		return nil, fmt.Errorf("dependency cycle detected: %v", Cycles(tasks))
	}

	cache.StoreOrder(tasks, order)
	return order, nil
}

// PhaseViolation is one dependency edge whose phase ordering is invalid.
type PhaseViolation struct {
	TaskID       string
	DependencyID string
}

// CheckPhaseOrdering checks that for every task T depending on D,
// T.Phase >= D.Phase. Every violating pair is collected and returned.
func CheckPhaseOrdering(tasks map[string]*domain.Task) []PhaseViolation {
	var violations []PhaseViolation

	ids := make([]string, 0, len(tasks))
	for id := range tasks {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		t := tasks[id]
		deps := append([]string(nil), t.DependsOn...)
		sort.Strings(deps)
		for _, dep := range deps {
			d, ok := tasks[dep]
			if !ok {
				continue
			}
			if t.Phase < d.Phase {
				violations = append(violations, PhaseViolation{TaskID: id, DependencyID: dep})
			}
		}
	}
	return violations
}
