// Package mod provides the modification registry: named post-translational
// modifications with their mass shifts and site specificity. The registry is
// built once at startup and is immutable afterwards, so it is safe to share
// across workers without locking.
package mod

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/peptidelab/ms2predict/internal/bio"
)

// Site values besides residue symbols.
const (
	SiteNTerm = "N-term"
	SiteCTerm = "C-term"
	SiteAny   = "*"
)

// Modification is a named mass shift with site specificity. Site is a single
// residue symbol ("M"), a terminus ("N-term"/"C-term"), or "*" for any
// position. Fixed modifications are always applied by upstream search
// engines; the distinction is carried through for reporting only.
type Modification struct {
	Name      string  `yaml:"name"`
	MassShift float64 `yaml:"mass_shift"`
	Site      string  `yaml:"site"`
	Fixed     bool    `yaml:"fixed"`
}

// Registry maps modification names to their definitions.
type Registry struct {
	mods map[string]Modification
}

// builtins covers the modifications every proteomics workflow encounters.
// Additional ones are loaded from a YAML file via LoadFile.
var builtins = []Modification{
	{Name: "Oxidation", MassShift: 15.994915, Site: "M"},
	{Name: "Carbamidomethyl", MassShift: 57.021464, Site: "C", Fixed: true},
	{Name: "Acetyl", MassShift: 42.010565, Site: SiteNTerm},
	{Name: "Phospho", MassShift: 79.966331, Site: SiteAny},
	{Name: "Deamidation", MassShift: 0.984016, Site: "N"},
	{Name: "Pyro-glu", MassShift: -17.026549, Site: "Q"},
	{Name: "TMT6plex", MassShift: 229.162932, Site: SiteAny},
	{Name: "iTRAQ", MassShift: 144.102063, Site: SiteAny},
}

// NewRegistry returns a registry containing the built-in modifications.
func NewRegistry() *Registry {
	r := &Registry{mods: make(map[string]Modification, len(builtins))}
	for _, m := range builtins {
		r.mods[m.Name] = m
	}
	return r
}

// LoadFile reads additional modification definitions from a YAML file and
// returns a registry containing built-ins plus the file's entries. File
// entries override built-ins with the same name.
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read modifications file: %w", err)
	}
	var entries []Modification
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse modifications file: %w", err)
	}
	r := NewRegistry()
	for _, m := range entries {
		if err := r.add(m); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) add(m Modification) error {
	if m.Name == "" {
		return fmt.Errorf("modification with empty name")
	}
	switch m.Site {
	case SiteNTerm, SiteCTerm, SiteAny:
	default:
		if len(m.Site) != 1 {
			return fmt.Errorf("modification %s: invalid site %q", m.Name, m.Site)
		}
		if _, ok := bio.Lookup(bio.Normalize(m.Site)[0]); !ok {
			return fmt.Errorf("modification %s: unknown residue site %q", m.Name, m.Site)
		}
	}
	r.mods[m.Name] = m
	return nil
}

// Get returns the modification with the given name.
func (r *Registry) Get(name string) (Modification, bool) {
	m, ok := r.mods[name]
	return m, ok
}

// Names returns the registered modification names (unordered).
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.mods))
	for n := range r.mods {
		names = append(names, n)
	}
	return names
}

// Compatible reports whether the modification may sit at the given position
// of a normalized sequence. Position 0 is the N-terminus, len(seq)+1 the
// C-terminus, 1..len(seq) internal residues.
func (m Modification) Compatible(sequence string, position int) bool {
	switch position {
	case 0:
		return m.Site == SiteNTerm || m.Site == SiteAny
	case len(sequence) + 1:
		return m.Site == SiteCTerm || m.Site == SiteAny
	}
	if position < 0 || position > len(sequence) {
		return false
	}
	if m.Site == SiteAny {
		return true
	}
	if m.Site == SiteNTerm || m.Site == SiteCTerm {
		return false
	}
	return bio.Normalize(m.Site)[0] == sequence[position-1]
}
