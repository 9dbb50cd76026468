// Package spec holds the desired-state description of a Ganeti instance
// and translates it into the wire payload RAPI expects for creation.
package spec

import "fmt"

// DiskTemplate selects the storage backend for an instance's disks.
type DiskTemplate string

const (
	TemplatePlain      DiskTemplate = "plain"
	TemplateDRBD       DiskTemplate = "drbd"
	TemplateSharedFile DiskTemplate = "sharedfile"
	TemplateDiskless   DiskTemplate = "diskless"
	TemplateGluster    DiskTemplate = "gluster"
	TemplateBlockdev   DiskTemplate = "blockdev"
	TemplateExt        DiskTemplate = "ext"
	TemplateFile       DiskTemplate = "file"
	TemplateRBD        DiskTemplate = "rbd"
)

var diskTemplates = map[DiskTemplate]bool{
	TemplatePlain: true, TemplateDRBD: true, TemplateSharedFile: true,
	TemplateDiskless: true, TemplateGluster: true, TemplateBlockdev: true,
	TemplateExt: true, TemplateFile: true, TemplateRBD: true,
}

// Valid reports whether t is a disk template RAPI knows about.
func (t DiskTemplate) Valid() bool { return diskTemplates[t] }

// NICMode is the operation mode of a virtual network interface.
type NICMode string

const (
	NICBridged     NICMode = "bridged"
	NICRouted      NICMode = "routed"
	NICOpenvswitch NICMode = "openvswitch"
)

// Valid reports whether m is a supported NIC mode.
func (m NICMode) Valid() bool {
	return m == NICBridged || m == NICRouted || m == NICOpenvswitch
}

// Hypervisor overrides the cluster's default hypervisor for an instance.
type Hypervisor string

const (
	HypervisorKVM    Hypervisor = "kvm"
	HypervisorXenPVM Hypervisor = "xen-pvm"
	HypervisorXenHVM Hypervisor = "xen-hvm"
	HypervisorChroot Hypervisor = "chroot"
	HypervisorLXC    Hypervisor = "lxc"
	HypervisorFake   Hypervisor = "fake"
)

var hypervisors = map[Hypervisor]bool{
	HypervisorKVM: true, HypervisorXenPVM: true, HypervisorXenHVM: true,
	HypervisorChroot: true, HypervisorLXC: true, HypervisorFake: true,
}

// Valid reports whether h names a known hypervisor.
func (h Hypervisor) Valid() bool { return hypervisors[h] }

// Disk describes one virtual disk. Size accepts a bare number
// (megabytes) or a number with a binary suffix such as "20G".
type Disk struct {
	Name     string `yaml:"name,omitempty"`
	Size     string `yaml:"size"`
	Mode     string `yaml:"mode,omitempty"`
	Provider string `yaml:"provider,omitempty"`
}

// NIC describes one virtual network interface. Mode decides which of
// the remaining fields the cluster requires.
type NIC struct {
	Mode    NICMode `yaml:"mode"`
	Link    string  `yaml:"link,omitempty"`
	Bridge  string  `yaml:"bridge,omitempty"`
	Name    string  `yaml:"name,omitempty"`
	IP      string  `yaml:"ip,omitempty"`
	MAC     string  `yaml:"mac,omitempty"`
	VLAN    int     `yaml:"vlan,omitempty"`
	Network string  `yaml:"network,omitempty"`
}

// InstanceSpec is the desired state of a single instance. Name is the
// unique key within a cluster. The spec is constructed fresh per
// reconciliation and never mutated after translation.
type InstanceSpec struct {
	Name         string            `yaml:"name"`
	MemoryMB     int               `yaml:"memory_mb"`
	VCPUs        int               `yaml:"vcpus"`
	DiskTemplate DiskTemplate      `yaml:"disk_template,omitempty"`
	Disks        []Disk            `yaml:"disks"`
	NICs         []NIC             `yaml:"nics,omitempty"`
	OSType       string            `yaml:"os_type"`
	Hypervisor   Hypervisor        `yaml:"hypervisor,omitempty"`
	IAllocator   string            `yaml:"iallocator,omitempty"`
	PNode        string            `yaml:"pnode,omitempty"`
	SNode        string            `yaml:"snode,omitempty"`
	OSParams     map[string]string `yaml:"osparams,omitempty"`
}

// ValidationError reports a desired-state spec that cannot be
// translated into a create payload. Field names the offending field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid instance spec: field %q: %s", e.Field, e.Reason)
}

// Validate checks the spec for the fields instance creation requires.
// Placement needs either a primary node or an iallocator.
func (s *InstanceSpec) Validate() error {
	if s.Name == "" {
		return &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if s.MemoryMB <= 0 {
		return &ValidationError{Field: "memory_mb", Reason: "must be greater than zero"}
	}
	if s.VCPUs <= 0 {
		return &ValidationError{Field: "vcpus", Reason: "must be greater than zero"}
	}
	if s.DiskTemplate != "" && !s.DiskTemplate.Valid() {
		return &ValidationError{Field: "disk_template", Reason: fmt.Sprintf("unknown template %q", s.DiskTemplate)}
	}
	if s.Hypervisor != "" && !s.Hypervisor.Valid() {
		return &ValidationError{Field: "hypervisor", Reason: fmt.Sprintf("unknown hypervisor %q", s.Hypervisor)}
	}
	if s.OSType == "" {
		return &ValidationError{Field: "os_type", Reason: "must not be empty"}
	}
	if s.PNode == "" && s.IAllocator == "" {
		return &ValidationError{Field: "pnode", Reason: "must not be empty unless an iallocator is set"}
	}
	if s.SNode != "" && s.PNode == "" {
		return &ValidationError{Field: "snode", Reason: "requires pnode to be set"}
	}
	if len(s.Disks) == 0 {
		return &ValidationError{Field: "disks", Reason: "at least one disk is required"}
	}
	for i, d := range s.Disks {
		if d.Size == "" {
			return &ValidationError{Field: fmt.Sprintf("disks[%d].size", i), Reason: "must not be empty"}
		}
		if _, err := ParseSize(d.Size); err != nil {
			return &ValidationError{Field: fmt.Sprintf("disks[%d].size", i), Reason: err.Error()}
		}
		if s.DiskTemplate == TemplateExt && d.Provider == "" {
			return &ValidationError{Field: fmt.Sprintf("disks[%d].provider", i), Reason: "required when disk_template is ext"}
		}
	}
	for i, n := range s.NICs {
		if !n.Mode.Valid() {
			return &ValidationError{Field: fmt.Sprintf("nics[%d].mode", i), Reason: fmt.Sprintf("unknown mode %q", n.Mode)}
		}
	}
	return nil
}
