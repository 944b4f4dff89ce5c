package poller

import (
	"context"
	"fmt"
	"time"

	"github.com/kubev2v/vsphere-inspector/internal/config"
	"github.com/kubev2v/vsphere-inspector/pkg/correlation"
	"github.com/kubev2v/vsphere-inspector/pkg/metrics"
	"github.com/lthibault/jitterbug/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// StatSource is the part of vsphere.Operations the poller needs.
type StatSource interface {
	GetVMMoid(ctx context.Context, vmName string) (string, bool, error)
	GetPerfCounterID(ctx context.Context, counterFullName string) (int32, error)
	QueryVMCurrentStatValue(ctx context.Context, vmMoid string, counterID int32, isAggregate bool) (int64, error)
}

type Sample struct {
	VM        string    `json:"vm"`
	Moid      string    `json:"moid"`
	Counter   string    `json:"counter"`
	Value     int64     `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

// Poller reads the current value of every target once per interval.
type Poller struct {
	source   StatSource
	targets  []config.Target
	interval time.Duration
	publish  func(Sample)
	now      func() time.Time
}

func New(source StatSource, targets []config.Target, interval time.Duration, publish func(Sample)) *Poller {
	if interval <= 0 {
		interval = config.DefaultPollInterval
	}
	if publish == nil {
		publish = func(Sample) {}
	}
	return &Poller{
		source:   source,
		targets:  targets,
		interval: interval,
		publish:  publish,
		now:      time.Now,
	}
}

// Run polls immediately and then on every tick until ctx is done.
func (p *Poller) Run(ctx context.Context) {
	ticker := jitterbug.New(p.interval, &jitterbug.Norm{Stdev: 30 * time.Millisecond, Mean: 0})
	defer ticker.Stop()

	for {
		if err := p.PollOnce(ctx); err != nil {
			zap.S().Named("poller").Warnf("poll round finished with errors: %v", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// PollOnce queries every target once. A VM that does not exist is skipped
// with a warning; other failures are collected and returned together after
// all targets were tried.
func (p *Poller) PollOnce(ctx context.Context) error {
	round := correlation.NewID()
	ctx = correlation.ToContext(ctx, round)
	logger := zap.S().Named("poller").With("round", round)

	var errs error
	for _, target := range p.targets {
		sample, found, err := p.poll(ctx, target)
		if err != nil {
			metrics.IncreasePollErrorsTotalMetric(target.VM, target.Counter)
			logger.Debugw("poll failed", "vm", target.VM, "counter", target.Counter, "error", err)
			errs = multierr.Append(errs, fmt.Errorf("%s %s: %w", target.VM, target.Counter, err))
			continue
		}
		if !found {
			logger.Warnf("vm %q not found in vCenter", target.VM)
			continue
		}
		metrics.UpdateVMStatValueMetric(sample.VM, sample.Counter, float64(sample.Value))
		p.publish(sample)
	}
	return errs
}

func (p *Poller) poll(ctx context.Context, target config.Target) (Sample, bool, error) {
	moid, ok, err := p.source.GetVMMoid(ctx, target.VM)
	if err != nil || !ok {
		return Sample{}, false, err
	}
	counterID, err := p.source.GetPerfCounterID(ctx, target.Counter)
	if err != nil {
		return Sample{}, false, err
	}
	value, err := p.source.QueryVMCurrentStatValue(ctx, moid, counterID, target.Aggregate)
	if err != nil {
		return Sample{}, false, err
	}
	return Sample{
		VM:        target.VM,
		Moid:      moid,
		Counter:   target.Counter,
		Value:     value,
		Timestamp: p.now(),
	}, true, nil
}
