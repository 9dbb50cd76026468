package rapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Instance status values as RAPI reports them.
const (
	StatusRunning   = "running"
	StatusAdminDown = "ADMIN_down"
	StatusErrorDown = "ERROR_down"
)

// Instance is the subset of GET /2/instances/{name} the reconciler
// inspects. DiskSizes are megabytes, index-ordered like the devices.
type Instance struct {
	Name         string   `json:"name"`
	Status       string   `json:"status"`
	OS           string   `json:"os"`
	PNode        string   `json:"pnode"`
	DiskTemplate string   `json:"disk_template"`
	DiskSizes    []int64  `json:"disk.sizes"`
	NICModes     []string `json:"nic.modes"`
	NICLinks     []string `json:"nic.links"`
	BEParams     struct {
		Memory int `json:"memory"`
		VCPUs  int `json:"vcpus"`
	} `json:"beparams"`
}

// IsDown reports whether the instance is administratively stopped or
// down due to an error.
func (i *Instance) IsDown() bool {
	return i.Status == StatusAdminDown || i.Status == StatusErrorDown
}

// GetInstance fetches the current configuration of a named instance.
// A 404 from the cluster surfaces as NotFoundError.
func (c *Client) GetInstance(ctx context.Context, name string) (*Instance, error) {
	raw, err := c.Do(ctx, http.MethodGet, "/instances/"+name, nil)
	if err != nil {
		var httpErr *HTTPError
		if errors.As(err, &httpErr) && httpErr.Status == http.StatusNotFound {
			return nil, &NotFoundError{Name: name}
		}
		return nil, err
	}

	var inst Instance
	if err := json.Unmarshal(raw, &inst); err != nil {
		return nil, fmt.Errorf("failed to decode instance %q: %w", name, err)
	}
	return &inst, nil
}

// submit performs a mutating call and decodes the job id RAPI answers
// with.
func (c *Client) submit(ctx context.Context, method, path string, body any) (JobID, error) {
	raw, err := c.Do(ctx, method, path, body)
	if err != nil {
		return 0, err
	}

	var id JobID
	if err := json.Unmarshal(raw, &id); err != nil {
		return 0, fmt.Errorf("failed to decode job id from %s %s: %w", method, path, err)
	}
	return id, nil
}

// CreateInstance submits an instance creation job.
func (c *Client) CreateInstance(ctx context.Context, payload any) (JobID, error) {
	return c.submit(ctx, http.MethodPost, "/instances", payload)
}

// DeleteInstance submits an instance removal job. This cannot be undone.
func (c *Client) DeleteInstance(ctx context.Context, name string) (JobID, error) {
	return c.submit(ctx, http.MethodDelete, "/instances/"+name, nil)
}

// StartupInstance submits a startup job for a stopped instance.
func (c *Client) StartupInstance(ctx context.Context, name string) (JobID, error) {
	return c.submit(ctx, http.MethodPut, "/instances/"+name+"/startup", nil)
}

// ShutdownInstance submits a shutdown job for a running instance.
func (c *Client) ShutdownInstance(ctx context.Context, name string) (JobID, error) {
	return c.submit(ctx, http.MethodPut, "/instances/"+name+"/shutdown", nil)
}

// RebootInstance submits a reboot job for a running instance.
func (c *Client) RebootInstance(ctx context.Context, name string) (JobID, error) {
	return c.submit(ctx, http.MethodPost, "/instances/"+name+"/reboot", nil)
}
