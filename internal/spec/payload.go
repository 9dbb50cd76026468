package spec

// Wire types for POST /2/instances, version 1 of the create request.
// Disk and NIC slices keep the spec's ordering: the index determines
// the device number Ganeti assigns.

// BEParams are the backend parameters of an instance.
type BEParams struct {
	Memory int `json:"memory"`
	VCPUs  int `json:"vcpus"`
}

// DiskParams is one entry of the create payload's disks list. Size is
// in megabytes.
type DiskParams struct {
	Size     int64  `json:"size"`
	Mode     string `json:"mode,omitempty"`
	Name     string `json:"name,omitempty"`
	Provider string `json:"provider,omitempty"`
}

// NICParams is one entry of the create payload's nics list.
type NICParams struct {
	Mode    string `json:"mode"`
	Link    string `json:"link,omitempty"`
	Bridge  string `json:"bridge,omitempty"`
	Name    string `json:"name,omitempty"`
	IP      string `json:"ip,omitempty"`
	MAC     string `json:"mac,omitempty"`
	VLAN    int    `json:"vlan,omitempty"`
	Network string `json:"network,omitempty"`
}

// CreatePayload is the body of an instance creation request.
type CreatePayload struct {
	Version      int               `json:"__version__"`
	Mode         string            `json:"mode"`
	InstanceName string            `json:"instance_name"`
	DiskTemplate string            `json:"disk_template"`
	Hypervisor   string            `json:"hypervisor,omitempty"`
	IAllocator   string            `json:"iallocator,omitempty"`
	OSType       string            `json:"os_type"`
	PNode        string            `json:"pnode,omitempty"`
	SNode        string            `json:"snode,omitempty"`
	BEParams     BEParams          `json:"beparams"`
	Disks        []DiskParams      `json:"disks"`
	NICs         []NICParams       `json:"nics,omitempty"`
	OSParams     map[string]string `json:"osparams,omitempty"`
}

// Translate validates the spec and builds the create payload. When both
// pnode and an iallocator are given, pnode wins and the iallocator is
// omitted: RAPI rejects requests that carry both.
func Translate(s *InstanceSpec) (*CreatePayload, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	template := s.DiskTemplate
	if template == "" {
		template = TemplatePlain
	}

	p := &CreatePayload{
		Version:      1,
		Mode:         "create",
		InstanceName: s.Name,
		DiskTemplate: string(template),
		Hypervisor:   string(s.Hypervisor),
		OSType:       s.OSType,
		PNode:        s.PNode,
		SNode:        s.SNode,
		BEParams: BEParams{
			Memory: s.MemoryMB,
			VCPUs:  s.VCPUs,
		},
	}
	if s.PNode == "" {
		p.IAllocator = s.IAllocator
	}

	p.Disks = make([]DiskParams, len(s.Disks))
	for i, d := range s.Disks {
		bytes, err := ParseSize(d.Size)
		if err != nil {
			// Validate already checked the sizes.
			return nil, &ValidationError{Field: "disks", Reason: err.Error()}
		}
		p.Disks[i] = DiskParams{
			Size:     BytesToMB(bytes),
			Mode:     d.Mode,
			Name:     d.Name,
			Provider: d.Provider,
		}
	}

	if len(s.NICs) > 0 {
		p.NICs = make([]NICParams, len(s.NICs))
		for i, n := range s.NICs {
			p.NICs[i] = NICParams{
				Mode:    string(n.Mode),
				Link:    n.Link,
				Bridge:  n.Bridge,
				Name:    n.Name,
				IP:      n.IP,
				MAC:     n.MAC,
				VLAN:    n.VLAN,
				Network: n.Network,
			}
		}
	}

	if len(s.OSParams) > 0 {
		p.OSParams = make(map[string]string, len(s.OSParams))
		for k, v := range s.OSParams {
			p.OSParams[k] = v
		}
	}

	return p, nil
}
