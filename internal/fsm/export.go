package fsm

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"github.com/taskforge/forge/internal/constants"
	"github.com/taskforge/forge/internal/errors"
)

// statesDocument is the <slug>.states.json export shape.
type statesDocument struct {
	Slug     string   `json:"slug"`
	Level    Level    `json:"level"`
	Initial  string   `json:"initial"`
	States   []State  `json:"states"`
	Terminal []string `json:"terminal"`
}

// transitionsDocument is the <slug>.transitions.json export shape.
type transitionsDocument struct {
	Slug        string              `json:"slug"`
	Transitions []Transition        `json:"transitions"`
	ByInvariant map[string][]string `json:"by_invariant"` // invariant ID -> "from->to" transition keys
}

// IndexEntry names one machine's export files in index.json.
type IndexEntry struct {
	Slug              string `json:"slug"`
	Level             Level  `json:"level"`
	StatesFile        string `json:"states_file"`
	TransitionsFile   string `json:"transitions_file"`
}

// Index is the index.json document: the primary machine, every linked
// machine's file names, and the spec checksum the machines were compiled
// against.
type Index struct {
	PrimaryMachine string       `json:"primary_machine"`
	Machines       []IndexEntry `json:"machines"`
	SpecChecksum   string       `json:"spec_checksum"`
}

// SpecChecksum returns the first 16 hex characters of the SHA256 of
// specText, the checksum recorded in index.json.
func SpecChecksum(specText []byte) string {
	sum := sha256.Sum256(specText)
	return hex.EncodeToString(sum[:])[:16]
}

// Export writes <slug>.states.json and <slug>.transitions.json for m under
// dir, using the same json.MarshalIndent + atomic-rename discipline as the
// rest of the module.
func Export(dir string, m *Machine) error {
	if err := os.MkdirAll(dir, constants.DirPerm); err != nil {
		return errors.Wrap(err, "create fsm directory")
	}

	statesDoc := statesDocument{
		Slug:     m.Slug,
		Level:    m.Level,
		Initial:  m.Initial,
		States:   m.States,
		Terminal: m.Terminals(),
	}
	if err := writeJSON(filepath.Join(dir, m.Slug+".states.json"), statesDoc); err != nil {
		return err
	}

	transDoc := transitionsDocument{
		Slug:        m.Slug,
		Transitions: m.Transitions,
		ByInvariant: reverseInvariantIndex(m.Transitions),
	}
	if err := writeJSON(filepath.Join(dir, m.Slug+".transitions.json"), transDoc); err != nil {
		return err
	}

	return nil
}

// WriteIndex writes index.json naming primary as the primary machine and
// every machine in entries, stamped with specChecksum.
func WriteIndex(dir, primary string, entries []IndexEntry, specChecksum string) error {
	idx := Index{PrimaryMachine: primary, Machines: entries, SpecChecksum: specChecksum}
	return writeJSON(filepath.Join(dir, constants.FSMIndexFile), idx)
}

func reverseInvariantIndex(transitions []Transition) map[string][]string {
	out := make(map[string][]string)
	for _, t := range transitions {
		if t.Guard == nil || t.Guard.InvariantID == "" {
			continue
		}
		key := t.From + "->" + t.To
		out[t.Guard.InvariantID] = append(out[t.Guard.InvariantID], key)
	}
	for id := range out {
		sort.Strings(out[id])
	}
	return out
}

func writeJSON(path string, v interface{}) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return errors.Wrap(err, "marshal fsm export")
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), constants.FilePerm); err != nil {
		return errors.Wrap(err, "write fsm export temp file")
	}
	if err := os.Rename(tmp, path); err != nil {
		return errors.Wrap(err, "rename fsm export temp file")
	}
	return nil
}
