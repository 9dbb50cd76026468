// Package manifest reads the desired-state file: the instances that
// must exist on the cluster and the names that must not.
package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gntrecon/internal/reconcile"
	"gntrecon/internal/spec"

	"gopkg.in/yaml.v3"
)

// Manifest is the YAML desired-state document.
type Manifest struct {
	Instances []spec.InstanceSpec `yaml:"instances"`
	Absent    []string            `yaml:"absent"`
}

// Load reads and parses a manifest file. Unknown fields are rejected so
// a typoed key fails loudly instead of silently dropping a setting.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	return Parse(data)
}

// Parse decodes manifest bytes.
func Parse(data []byte) (*Manifest, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var m Manifest
	if err := dec.Decode(&m); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}

	if len(m.Instances) == 0 && len(m.Absent) == 0 {
		return nil, fmt.Errorf("manifest declares no instances")
	}
	return &m, nil
}

// Plan converts the manifest into a reconciliation plan.
func (m *Manifest) Plan() reconcile.Plan {
	return reconcile.Plan{
		Ensure: m.Instances,
		Remove: m.Absent,
	}
}
