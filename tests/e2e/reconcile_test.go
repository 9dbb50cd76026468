package e2e_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"net/url"
	"strconv"
	"time"

	"gntrecon/internal/rapi"
	"gntrecon/internal/reconcile"
	"gntrecon/internal/spec"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func clientFor(srv *httptest.Server, creds rapi.Credentials) *rapi.Client {
	u, err := url.Parse(srv.URL)
	Expect(err).NotTo(HaveOccurred())
	port, err := strconv.Atoi(u.Port())
	Expect(err).NotTo(HaveOccurred())

	return rapi.NewClient(rapi.Config{
		Address:     u.Hostname(),
		Port:        port,
		Credentials: creds,
	})
}

func desiredSpec() *spec.InstanceSpec {
	return &spec.InstanceSpec{
		Name:     "test-rre.psvm",
		MemoryMB: 2048,
		VCPUs:    2,
		Disks:    []spec.Disk{{Name: "root", Size: "20G"}},
		NICs:     []spec.NIC{{Mode: spec.NICBridged, Link: "br0"}},
		OSType:   "image+centos-8",
		PNode:    "ivc-06",
	}
}

var _ = Describe("Reconciling against a RAPI cluster", func() {
	var (
		cluster    *fakeRAPI
		srv        *httptest.Server
		reconciler *reconcile.Reconciler
		ctx        context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		cluster = newFakeRAPI("ansible", "supersecret")
		srv = cluster.serve()

		client := clientFor(srv, rapi.Credentials{User: "ansible", Password: "supersecret"})
		poller := rapi.NewPoller(client, 10*time.Millisecond, 500*time.Millisecond)
		reconciler = reconcile.New(client, poller)
	})

	AfterEach(func() {
		srv.Close()
	})

	Context("with desired state present", func() {
		It("creates a missing instance and reports created", func() {
			res := reconciler.Reconcile(ctx, desiredSpec(), reconcile.StatePresent)

			Expect(res.Err).NotTo(HaveOccurred())
			Expect(res.State).To(Equal(reconcile.Created))
			Expect(res.Changed).To(BeTrue())

			inst, ok := cluster.instances["test-rre.psvm"]
			Expect(ok).To(BeTrue(), "instance should exist on the cluster")
			Expect(inst.Memory).To(Equal(2048))
			Expect(inst.VCPUs).To(Equal(2))
			Expect(inst.DiskSizes).To(Equal([]int64{20480}), "20G must arrive as 20480 MB on the wire")

			disks := cluster.lastCreate["disks"].([]any)
			disk := disks[0].(map[string]any)
			Expect(disk["size"]).To(BeEquivalentTo(20480))
			Expect(cluster.lastCreate["__version__"]).To(BeEquivalentTo(1))
		})

		It("is idempotent on a second run", func() {
			first := reconciler.Reconcile(ctx, desiredSpec(), reconcile.StatePresent)
			Expect(first.State).To(Equal(reconcile.Created))

			second := reconciler.Reconcile(ctx, desiredSpec(), reconcile.StatePresent)
			Expect(second.Err).NotTo(HaveOccurred())
			Expect(second.State).To(Equal(reconcile.Unchanged))
			Expect(second.Changed).To(BeFalse())
		})

		It("surfaces a failed creation job with the cluster's error text", func() {
			cluster.failNextJob = "Can't compute nodes suitable for the instance"

			res := reconciler.Reconcile(ctx, desiredSpec(), reconcile.StatePresent)
			Expect(res.State).To(Equal(reconcile.Failed))

			var jobErr *rapi.JobError
			Expect(errors.As(res.Err, &jobErr)).To(BeTrue())
			Expect(jobErr.Message).To(ContainSubstring("suitable for the instance"))
		})

		It("times out on a job that never terminates, without reporting success", func() {
			cluster.hangJobs = true

			res := reconciler.Reconcile(ctx, desiredSpec(), reconcile.StatePresent)
			Expect(res.State).To(Equal(reconcile.Failed))
			Expect(res.Changed).To(BeFalse())

			var timeoutErr *rapi.TimeoutError
			Expect(errors.As(res.Err, &timeoutErr)).To(BeTrue())
		})
	})

	Context("with desired state absent", func() {
		It("destroys an existing instance, then reports unchanged", func() {
			Expect(reconciler.Reconcile(ctx, desiredSpec(), reconcile.StatePresent).Err).NotTo(HaveOccurred())

			res := reconciler.Reconcile(ctx, desiredSpec(), reconcile.StateAbsent)
			Expect(res.Err).NotTo(HaveOccurred())
			Expect(res.State).To(Equal(reconcile.Destroyed))
			Expect(res.Changed).To(BeTrue())
			Expect(cluster.instances).NotTo(HaveKey("test-rre.psvm"))

			again := reconciler.Reconcile(ctx, desiredSpec(), reconcile.StateAbsent)
			Expect(again.State).To(Equal(reconcile.Unchanged))
			Expect(again.Changed).To(BeFalse())
		})
	})

	Context("power management", func() {
		BeforeEach(func() {
			Expect(reconciler.Reconcile(ctx, desiredSpec(), reconcile.StatePresent).Err).NotTo(HaveOccurred())
		})

		It("stops and starts an instance idempotently", func() {
			target := &spec.InstanceSpec{Name: "test-rre.psvm"}

			res := reconciler.Reconcile(ctx, target, reconcile.StateStopped)
			Expect(res.State).To(Equal(reconcile.Stopped))
			Expect(cluster.instances["test-rre.psvm"].Status).To(Equal("ADMIN_down"))

			res = reconciler.Reconcile(ctx, target, reconcile.StateStopped)
			Expect(res.State).To(Equal(reconcile.Unchanged))

			res = reconciler.Reconcile(ctx, target, reconcile.StateStarted)
			Expect(res.State).To(Equal(reconcile.Started))
			Expect(cluster.instances["test-rre.psvm"].Status).To(Equal("running"))
		})
	})

	Context("batch reconciliation", func() {
		It("processes a mixed plan with per-item isolation", func() {
			broken := *desiredSpec()
			broken.Name = "broken.psvm"
			broken.PNode = ""

			second := *desiredSpec()
			second.Name = "other.psvm"

			plan := reconcile.Plan{
				Ensure: []spec.InstanceSpec{*desiredSpec(), broken, second},
				Remove: []string{"never-existed.psvm"},
			}

			results, err := reconciler.ReconcileAll(ctx, plan, 3)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(4))

			Expect(results[0].State).To(Equal(reconcile.Created))
			Expect(results[1].State).To(Equal(reconcile.Failed))
			Expect(results[2].State).To(Equal(reconcile.Created))
			Expect(results[3].State).To(Equal(reconcile.Unchanged))

			Expect(cluster.instances).To(HaveKey("test-rre.psvm"))
			Expect(cluster.instances).To(HaveKey("other.psvm"))
			Expect(cluster.instances).NotTo(HaveKey("broken.psvm"))
		})
	})

	Context("authentication", func() {
		It("rejects bad credentials with an auth error", func() {
			badClient := clientFor(srv, rapi.Credentials{User: "ansible", Password: "wrong"})
			poller := rapi.NewPoller(badClient, 10*time.Millisecond, 500*time.Millisecond)
			badReconciler := reconcile.New(badClient, poller)

			res := badReconciler.Reconcile(ctx, desiredSpec(), reconcile.StatePresent)
			Expect(res.State).To(Equal(reconcile.Failed))

			var authErr *rapi.AuthError
			Expect(errors.As(res.Err, &authErr)).To(BeTrue())
		})
	})
})
