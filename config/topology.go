// File: config/topology.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package config

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// HabitatSpec is one cell's static habitat assignment, as carved at boot.
type HabitatSpec struct {
	CellID string `yaml:"cell_id"`
	Prio   int    `yaml:"prio"`
	CPUs   []int  `yaml:"cpus"`
}

// Topology is the full boot-time CPU layout: the logical CPU count and the
// habitat every cell starts with.
type Topology struct {
	NumCPU   int           `yaml:"num_cpu"`
	Habitats []HabitatSpec `yaml:"habitats"`
}

// LoadTopology reads and validates a Topology from a YAML file.
func LoadTopology(path string) (*Topology, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "config: read %s", path)
	}
	var t Topology
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, errors.Wrapf(err, "config: parse %s", path)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// Validate checks invariant 1 of spec.md §3 at the configuration level: no
// CPU id may be claimed by two habitats, and every CPU id must be in range.
func (t *Topology) Validate() error {
	if t.NumCPU <= 0 {
		return errors.New("config: num_cpu must be positive")
	}
	seen := make(map[int]string, t.NumCPU)
	for _, h := range t.Habitats {
		for _, cpu := range h.CPUs {
			if cpu < 0 || cpu >= t.NumCPU {
				return errors.Errorf("config: habitat %s: cpu %d out of range [0,%d)", h.CellID, cpu, t.NumCPU)
			}
			if owner, dup := seen[cpu]; dup {
				return errors.Errorf("config: cpu %d claimed by both %s and %s", cpu, owner, h.CellID)
			}
			seen[cpu] = h.CellID
		}
	}
	return nil
}
