// Package profile holds the per-build data of the game: where the objects live, how
// the snapshot fields are laid out, and which zones split the run.
package profile

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"climbsplit/pointer"
	"climbsplit/progress"
	"climbsplit/sampler"
)

//go:embed builtin/*.yaml
var builtin embed.FS

const DefaultName = "current"

var ErrUnknownProfile = errors.New("unknown profile")

// Profile is everything that changes between game builds. Adapting to a game update
// is an edit of this data.
type Profile struct {
	Name        string                   `yaml:"name"`
	Description string                   `yaml:"description,omitempty"`
	ProcessName string                   `yaml:"process_name"`
	Objects     []pointer.CandidateTable `yaml:"objects"`
	Layout      sampler.Layout           `yaml:"layout"`
	Zones       progress.TransitionTable `yaml:"zones"`
	Rules       progress.Rules           `yaml:"rules"`
}

// Names lists the built-in profiles
func Names() []string {
	entries, err := builtin.ReadDir("builtin")
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if name, ok := strings.CutSuffix(e.Name(), ".yaml"); ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Load returns a built-in profile by name
func Load(name string) (*Profile, error) {
	if name == "" {
		name = DefaultName
	}
	data, err := builtin.ReadFile(path.Join("builtin", name+".yaml"))
	if err != nil {
		return nil, fmt.Errorf("%w %q (have %s)", ErrUnknownProfile, name, strings.Join(Names(), ", "))
	}
	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("profile %s: %w", name, err)
	}
	return p, nil
}

// LoadFile reads a profile from a YAML file
func LoadFile(filename string) (*Profile, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("profile file %s: %w", filename, err)
	}
	return p, nil
}

// Parse decodes and validates a profile. Unknown keys are rejected so a typo in an
// offset table does not silently drop a field.
func Parse(data []byte) (*Profile, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var p Profile
	if err := dec.Decode(&p); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Marshal renders the profile back to YAML
func (p *Profile) Marshal() ([]byte, error) {
	return yaml.Marshal(p)
}

func (p *Profile) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("profile has no name")
	}
	if p.ProcessName == "" {
		return fmt.Errorf("profile %s: no process name", p.Name)
	}
	if len(p.Objects) == 0 {
		return fmt.Errorf("profile %s: no objects", p.Name)
	}

	seen := make(map[string]bool, len(p.Objects))
	for _, table := range p.Objects {
		if err := table.Validate(); err != nil {
			return fmt.Errorf("profile %s: %w", p.Name, err)
		}
		if seen[table.Name] {
			return fmt.Errorf("profile %s: duplicate object %q", p.Name, table.Name)
		}
		seen[table.Name] = true
	}

	if err := p.Layout.Validate(p.ObjectNames()); err != nil {
		return fmt.Errorf("profile %s: layout: %w", p.Name, err)
	}
	if err := p.Zones.Validate(); err != nil {
		return fmt.Errorf("profile %s: %w", p.Name, err)
	}
	if err := p.Rules.Validate(); err != nil {
		return fmt.Errorf("profile %s: %w", p.Name, err)
	}
	if p.Rules.ResetPolicy != progress.ResetOnFall && p.Layout.Input == nil {
		return fmt.Errorf("profile %s: reset policy %q needs an input field in the layout", p.Name, p.Rules.ResetPolicy)
	}
	return nil
}

// ObjectNames lists the candidate tables in profile order
func (p *Profile) ObjectNames() []string {
	names := make([]string, len(p.Objects))
	for i, table := range p.Objects {
		names[i] = table.Name
	}
	return names
}

// Table returns the candidate table of one object
func (p *Profile) Table(name string) (pointer.CandidateTable, bool) {
	for _, table := range p.Objects {
		if table.Name == name {
			return table, true
		}
	}
	return pointer.CandidateTable{}, false
}

// WithOverrides returns a copy with a different process name and reset policy. Empty
// values keep the profile's own.
func (p *Profile) WithOverrides(processName string, policy progress.ResetPolicy) (*Profile, error) {
	out := *p
	if processName != "" {
		out.ProcessName = processName
	}
	if policy != "" {
		out.Rules.ResetPolicy = policy
	}
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return &out, nil
}
