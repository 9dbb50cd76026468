package e2e_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
)

// fakeRAPI is an in-memory Ganeti cluster behind the RAPI surface the
// reconciler uses: instance CRUD, power endpoints and pollable jobs.
// Jobs stay running for jobDelay polls before turning terminal, so the
// poller's loop is actually exercised.
type fakeRAPI struct {
	mu sync.Mutex

	user     string
	password string

	instances map[string]*clusterInstance
	jobs      map[int64]*clusterJob
	nextJob   int64

	jobDelay int
	// hangJobs keeps every job non-terminal forever
	hangJobs bool
	// failNextJob makes the next submitted job end in error with this message
	failNextJob string

	lastCreate map[string]any
}

type clusterInstance struct {
	Name      string
	Status    string
	OS        string
	PNode     string
	Memory    int
	VCPUs     int
	DiskSizes []int64
}

type clusterJob struct {
	id      int64
	polls   int
	status  string
	failMsg string
	apply   func()
}

func newFakeRAPI(user, password string) *fakeRAPI {
	return &fakeRAPI{
		user:      user,
		password:  password,
		instances: make(map[string]*clusterInstance),
		jobs:      make(map[int64]*clusterJob),
		nextJob:   1000,
		jobDelay:  2,
	}
}

func (f *fakeRAPI) serve() *httptest.Server {
	return httptest.NewTLSServer(http.HandlerFunc(f.handle))
}

func (f *fakeRAPI) submitJob(apply func()) int64 {
	f.nextJob++
	job := &clusterJob{id: f.nextJob, status: "queued", apply: apply}
	if f.failNextJob != "" {
		job.failMsg = f.failNextJob
		f.failNextJob = ""
	}
	f.jobs[job.id] = job
	return job.id
}

func (f *fakeRAPI) handle(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.user != "" {
		user, pass, ok := r.BasicAuth()
		if !ok || user != f.user || pass != f.password {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
	}

	path := strings.TrimPrefix(r.URL.Path, "/2")
	switch {
	case path == "/instances" && r.Method == http.MethodPost:
		f.handleCreate(w, r)
	case strings.HasPrefix(path, "/instances/"):
		f.handleInstance(w, r, strings.TrimPrefix(path, "/instances/"))
	case strings.HasPrefix(path, "/jobs/"):
		f.handleJob(w, strings.TrimPrefix(path, "/jobs/"))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *fakeRAPI) handleCreate(w http.ResponseWriter, r *http.Request) {
	var payload map[string]any
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	f.lastCreate = payload

	name, _ := payload["instance_name"].(string)
	if name == "" {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, "instance_name is required")
		return
	}
	if _, exists := f.instances[name]; exists {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "instance %s already exists", name)
		return
	}

	inst := &clusterInstance{Name: name, Status: "running"}
	if os, ok := payload["os_type"].(string); ok {
		inst.OS = os
	}
	if pnode, ok := payload["pnode"].(string); ok {
		inst.PNode = pnode
	}
	if be, ok := payload["beparams"].(map[string]any); ok {
		if m, ok := be["memory"].(float64); ok {
			inst.Memory = int(m)
		}
		if v, ok := be["vcpus"].(float64); ok {
			inst.VCPUs = int(v)
		}
	}
	if disks, ok := payload["disks"].([]any); ok {
		for _, d := range disks {
			if dm, ok := d.(map[string]any); ok {
				if size, ok := dm["size"].(float64); ok {
					inst.DiskSizes = append(inst.DiskSizes, int64(size))
				}
			}
		}
	}

	id := f.submitJob(func() { f.instances[name] = inst })
	json.NewEncoder(w).Encode(id)
}

func (f *fakeRAPI) handleInstance(w http.ResponseWriter, r *http.Request, rest string) {
	name, op, _ := strings.Cut(rest, "/")
	inst, exists := f.instances[name]

	if op == "" && r.Method == http.MethodGet {
		if !exists {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"name":       inst.Name,
			"status":     inst.Status,
			"os":         inst.OS,
			"pnode":      inst.PNode,
			"disk.sizes": inst.DiskSizes,
			"beparams":   map[string]int{"memory": inst.Memory, "vcpus": inst.VCPUs},
		})
		return
	}

	if !exists {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	var apply func()
	switch {
	case op == "" && r.Method == http.MethodDelete:
		apply = func() { delete(f.instances, name) }
	case op == "startup" && r.Method == http.MethodPut:
		apply = func() { inst.Status = "running" }
	case op == "shutdown" && r.Method == http.MethodPut:
		apply = func() { inst.Status = "ADMIN_down" }
	case op == "reboot" && r.Method == http.MethodPost:
		apply = func() {}
	default:
		w.WriteHeader(http.StatusNotFound)
		return
	}

	json.NewEncoder(w).Encode(f.submitJob(apply))
}

func (f *fakeRAPI) handleJob(w http.ResponseWriter, rest string) {
	var id int64
	if _, err := fmt.Sscanf(rest, "%d", &id); err != nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	job, ok := f.jobs[id]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	if !f.hangJobs && job.status != "success" && job.status != "error" {
		job.polls++
		switch {
		case job.polls <= f.jobDelay:
			job.status = "running"
		case job.failMsg != "":
			job.status = "error"
		default:
			job.status = "success"
			job.apply()
		}
	} else if f.hangJobs {
		job.status = "running"
	}

	resp := map[string]any{"id": job.id, "status": job.status}
	if job.status == "error" {
		resp["opresult"] = []any{[]any{"OpExecError", []string{job.failMsg}}}
	}
	json.NewEncoder(w).Encode(resp)
}
