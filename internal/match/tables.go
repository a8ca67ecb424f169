package match

import (
	"fmt"

	_ "embed"

	"gopkg.in/yaml.v3"
)

//go:embed data/domains.yaml
var domainsYAML []byte

//go:embed data/equivalence_groups.yaml
var groupsYAML []byte

// DomainEntry maps a coarse clinical domain tag to keyword stems.
type DomainEntry struct {
	Tag      string   `yaml:"tag"`
	Keywords []string `yaml:"keywords"`
}

// EquivalenceGroup is a curated list of interchangeable strings plus a
// keyword net for partial matches.
type EquivalenceGroup struct {
	Name        string   `yaml:"name"`
	Equivalents []string `yaml:"equivalents"`
	Keywords    []string `yaml:"keywords"`
	RequireAll  bool     `yaml:"require_all"`
	Exclusions  []string `yaml:"exclusions"`
	Reason      string   `yaml:"reason"`
}

type domainFile struct {
	Domains []DomainEntry `yaml:"domains"`
}

type groupFile struct {
	Groups []EquivalenceGroup `yaml:"groups"`
}

// LoadDomainTable parses the embedded domain keyword table.
func LoadDomainTable() ([]DomainEntry, error) {
	var f domainFile
	if err := yaml.Unmarshal(domainsYAML, &f); err != nil {
		return nil, fmt.Errorf("parse domain table: %w", err)
	}
	if len(f.Domains) == 0 {
		return nil, fmt.Errorf("domain table is empty")
	}
	return f.Domains, nil
}

// LoadEquivalenceGroups parses the embedded equivalence group table.
func LoadEquivalenceGroups() ([]EquivalenceGroup, error) {
	var f groupFile
	if err := yaml.Unmarshal(groupsYAML, &f); err != nil {
		return nil, fmt.Errorf("parse equivalence groups: %w", err)
	}
	if len(f.Groups) == 0 {
		return nil, fmt.Errorf("equivalence group table is empty")
	}
	return f.Groups, nil
}
