package poller_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/kubev2v/vsphere-inspector/internal/config"
	"github.com/kubev2v/vsphere-inspector/internal/poller"
	"github.com/kubev2v/vsphere-inspector/internal/vsphere"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
)

type fakeSource struct {
	moids    map[string]string
	counters map[string]int32
	values   map[string]int64
	statErr  error

	aggregates []bool
}

func (f *fakeSource) GetVMMoid(_ context.Context, vmName string) (string, bool, error) {
	moid, ok := f.moids[vmName]
	return moid, ok, nil
}

func (f *fakeSource) GetPerfCounterID(_ context.Context, name string) (int32, error) {
	id, ok := f.counters[name]
	if !ok {
		return 0, &vsphere.UnknownCounterError{Name: name}
	}
	return id, nil
}

func (f *fakeSource) QueryVMCurrentStatValue(_ context.Context, moid string, _ int32, isAggregate bool) (int64, error) {
	f.aggregates = append(f.aggregates, isAggregate)
	if f.statErr != nil {
		return 0, f.statErr
	}
	return f.values[moid], nil
}

var _ = Describe("poller", func() {
	var (
		source  *fakeSource
		samples []poller.Sample
		publish func(poller.Sample)
	)

	BeforeEach(func() {
		source = &fakeSource{
			moids:    map[string]string{"instance-a": "vm-1", "instance-b": "vm-2"},
			counters: map[string]int32{"cpu:usagemhz:average": 6, "mem:consumed:average": 98},
			values:   map[string]int64{"vm-1": 42, "vm-2": 7},
		}
		samples = nil
		publish = func(s poller.Sample) { samples = append(samples, s) }
	})

	Context("poll once", func() {
		It("publishes one sample per target", func() {
			targets := []config.Target{
				{VM: "instance-a", Counter: "cpu:usagemhz:average", Aggregate: true},
				{VM: "instance-b", Counter: "mem:consumed:average"},
			}
			p := poller.New(source, targets, time.Second, publish)

			Expect(p.PollOnce(context.TODO())).To(Succeed())
			Expect(samples).To(HaveLen(2))
			Expect(samples[0].Moid).To(Equal("vm-1"))
			Expect(samples[0].Value).To(BeEquivalentTo(42))
			Expect(samples[1].Counter).To(Equal("mem:consumed:average"))
			Expect(samples[1].Value).To(BeEquivalentTo(7))
			Expect(source.aggregates).To(Equal([]bool{true, false}))
		})

		It("skips a vm that does not exist", func() {
			targets := []config.Target{
				{VM: "instance-gone", Counter: "cpu:usagemhz:average"},
				{VM: "instance-a", Counter: "cpu:usagemhz:average"},
			}
			p := poller.New(source, targets, time.Second, publish)

			Expect(p.PollOnce(context.TODO())).To(Succeed())
			Expect(samples).To(HaveLen(1))
			Expect(samples[0].VM).To(Equal("instance-a"))
		})

		It("keeps polling after a failing target and reports every failure", func() {
			targets := []config.Target{
				{VM: "instance-a", Counter: "cpu:bogus:average"},
				{VM: "instance-b", Counter: "mem:consumed:average"},
			}
			p := poller.New(source, targets, time.Second, publish)

			err := p.PollOnce(context.TODO())
			Expect(err).To(HaveOccurred())
			Expect(errors.Is(err, vsphere.ErrUnknownCounter)).To(BeTrue())
			Expect(samples).To(HaveLen(1))
			Expect(samples[0].VM).To(Equal("instance-b"))
		})

		It("aggregates transport failures", func() {
			source.statErr = errors.New("connection reset")
			targets := []config.Target{
				{VM: "instance-a", Counter: "cpu:usagemhz:average"},
				{VM: "instance-b", Counter: "cpu:usagemhz:average"},
			}
			p := poller.New(source, targets, time.Second, publish)

			err := p.PollOnce(context.TODO())
			Expect(err).To(MatchError(ContainSubstring("instance-a")))
			Expect(err).To(MatchError(ContainSubstring("instance-b")))
			Expect(samples).To(BeEmpty())
		})
	})

	Context("run", func() {
		It("polls until the context is cancelled", func() {
			ctx, cancel := context.WithCancel(context.TODO())
			published := make(chan poller.Sample, 16)
			targets := []config.Target{{VM: "instance-a", Counter: "cpu:usagemhz:average"}}
			p := poller.New(source, targets, 50*time.Millisecond, func(s poller.Sample) {
				select {
				case published <- s:
				default:
				}
			})

			done := make(chan struct{})
			go func() {
				defer close(done)
				p.Run(ctx)
			}()

			Eventually(published).Should(Receive())
			cancel()
			Eventually(done, 2*time.Second).Should(BeClosed())
		})
	})

	Context("metrics endpoint", func() {
		It("serves the polled values", func() {
			targets := []config.Target{{VM: "instance-a", Counter: "cpu:usagemhz:average"}}
			p := poller.New(source, targets, time.Second, nil)
			Expect(p.PollOnce(context.TODO())).To(Succeed())

			srv := httptest.NewServer(poller.NewRouter(prometheus.NewRegistry(), prometheus.DefaultGatherer))
			defer srv.Close()

			resp, err := http.Get(srv.URL + "/metrics")
			Expect(err).To(BeNil())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			body, err := io.ReadAll(resp.Body)
			Expect(err).To(BeNil())
			Expect(string(body)).To(ContainSubstring(`vsphere_inspector_vm_stat_value{counter="cpu:usagemhz:average",vm="instance-a"} 42`))
		})

		It("answers the health probe", func() {
			srv := httptest.NewServer(poller.NewRouter(prometheus.NewRegistry(), prometheus.DefaultGatherer))
			defer srv.Close()

			resp, err := http.Get(srv.URL + "/health")
			Expect(err).To(BeNil())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
		})
	})
})
