// Package pointer locates game objects inside an unknown memory layout by trying
// candidate pointer chains in order and confirming each against a sentinel value.
package pointer

import (
	"fmt"
	"strings"

	"climbsplit/process"
)

// PointerChain is one hypothesis about how to reach an object from a module base.
// Every offset is followed by a pointer dereference, the last one included.
type PointerChain []process.ProcessMemorySize

func (c PointerChain) String() string {
	parts := make([]string, len(c))
	for i, off := range c {
		parts[i] = off.Hex()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Resolve walks the chain from base
func (c PointerChain) Resolve(mem process.Memory, base process.ProcessMemoryAddress) (process.ProcessMemoryAddress, error) {
	return process.Deref(mem, base, c...)
}

// Check is the validation rule for a resolved address: the value found by following
// Path from the address must equal Equals exactly. Path uses read-path semantics, so a
// single offset is a plain field of the object.
type Check struct {
	Path   []process.ProcessMemorySize `yaml:"path"`
	Kind   process.ValueKind           `yaml:"kind"`
	Equals process.Number              `yaml:"equals"`
}

// Expected is the sentinel as a raw value of the check's kind. An unparsable
// sentinel yields the zero Value, which matches nothing; Validate reports it.
func (c Check) Expected() process.Value {
	v, err := process.ParseValue(c.Kind, c.Equals)
	if err != nil {
		return process.Value{}
	}
	return v
}

// Matches reads the checked field at addr and compares it with the sentinel. Read
// failures are reported, a mismatch is not an error.
func (c Check) Matches(mem process.Memory, addr process.ProcessMemoryAddress) (bool, error) {
	val, err := process.ReadPath(mem, addr, c.Kind, c.Path...)
	if err != nil {
		return false, err
	}
	return val.Equal(c.Expected()), nil
}

func (c Check) Validate() error {
	if !c.Kind.IsValid() {
		return fmt.Errorf("unknown check kind %q", c.Kind)
	}
	if len(c.Path) == 0 {
		return fmt.Errorf("check has no path")
	}
	if _, err := process.ParseValue(c.Kind, c.Equals); err != nil {
		return fmt.Errorf("check sentinel: %w", err)
	}
	return nil
}

// Candidate pairs a chain with an optional check overriding the table's default
type Candidate struct {
	Chain PointerChain `yaml:"chain"`
	Check *Check       `yaml:"check,omitempty"`
}

// CandidateTable is an ordered list of candidates for one object. Order is the
// tie-break: the first candidate that validates wins.
type CandidateTable struct {
	Name       string      `yaml:"name"`
	Module     string      `yaml:"module"`
	Check      Check       `yaml:"check"`
	Candidates []Candidate `yaml:"candidates"`
}

// CheckFor returns the effective check of the i-th candidate
func (t CandidateTable) CheckFor(i int) Check {
	if c := t.Candidates[i].Check; c != nil {
		return *c
	}
	return t.Check
}

func (t CandidateTable) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("candidate table has no name")
	}
	if t.Module == "" {
		return fmt.Errorf("table %s: no module", t.Name)
	}
	if len(t.Candidates) == 0 {
		return fmt.Errorf("table %s: no candidates", t.Name)
	}
	for i, cand := range t.Candidates {
		if len(cand.Chain) == 0 {
			return fmt.Errorf("table %s: candidate %d has an empty chain", t.Name, i)
		}
		if err := t.CheckFor(i).Validate(); err != nil {
			return fmt.Errorf("table %s: candidate %d: %w", t.Name, i, err)
		}
	}
	return nil
}

// ResolvedObject is an address found through a table. It is only meaningful for the
// current attach and must be revalidated before every use.
type ResolvedObject struct {
	Table   string
	Index   int
	Address process.ProcessMemoryAddress
}

func (o ResolvedObject) String() string {
	return fmt.Sprintf("%s#%d@%s", o.Table, o.Index, o.Address)
}
