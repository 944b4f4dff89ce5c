package cli

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/kubev2v/vsphere-inspector/internal/config"
	"github.com/kubev2v/vsphere-inspector/internal/events"
	"github.com/kubev2v/vsphere-inspector/internal/poller"
	"github.com/kubev2v/vsphere-inspector/internal/vsphere"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

type PollOptions struct {
	GlobalOptions

	Targets   []string
	Aggregate bool
	Interval  time.Duration
	Once      bool
	Topic     string

	targets []config.Target
}

func DefaultPollOptions() *PollOptions {
	return &PollOptions{
		GlobalOptions: DefaultGlobalOptions(),
		Aggregate:     true,
	}
}

func NewCmdPoll() *cobra.Command {
	o := DefaultPollOptions()
	cmd := &cobra.Command{
		Use:   "poll",
		Short: "Poll performance counters of VMs and expose them as Prometheus metrics.",
		Long: "Poll the targets of the configuration file plus the ones given with --target.\n" +
			"Every value is written to stdout as a CloudEvent in JSON and exported on /metrics\n" +
			"of the metrics address until the command is interrupted.",
		Example: "  vsphere-inspector poll --target instance-00000001=cpu:usagemhz:average --interval 20s",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.Complete(cmd, args); err != nil {
				return err
			}
			if err := o.Validate(args); err != nil {
				return err
			}
			return o.Run(cmd.Context(), cmd.OutOrStdout())
		},
		SilenceUsage: true,
	}
	o.Bind(cmd.Flags())
	return cmd
}

func (o *PollOptions) Bind(fs *pflag.FlagSet) {
	o.GlobalOptions.Bind(fs)

	fs.StringArrayVarP(&o.Targets, "target", "t", o.Targets, "Target to poll, as VM=GROUP:NAME:ROLLUP. May be repeated.")
	fs.BoolVar(&o.Aggregate, "aggregate", o.Aggregate, "Query the aggregate instance for the --target counters.")
	fs.DurationVar(&o.Interval, "interval", o.Interval, "Polling interval. Overrides VSPHERE_INSPECTOR_POLL_INTERVAL.")
	fs.BoolVar(&o.Once, "once", o.Once, "Poll every target once, print the samples and exit.")
	fs.StringVar(&o.Topic, "topic", o.Topic, "Topic attribute set on every sample event.")
}

func (o *PollOptions) Complete(cmd *cobra.Command, args []string) error {
	if err := o.GlobalOptions.Complete(cmd, args); err != nil {
		return err
	}

	if o.config.Poll == nil {
		o.config.Poll = &config.PollConfig{}
	}
	for _, t := range o.Targets {
		target, err := parseTarget(t, o.Aggregate)
		if err != nil {
			return err
		}
		o.config.Poll.Targets = append(o.config.Poll.Targets, target)
	}
	if o.Interval > 0 {
		o.config.Poll.Interval.Duration = o.Interval
	}
	o.targets = o.config.Poll.Targets
	return nil
}

func (o *PollOptions) Validate(args []string) error {
	if err := o.GlobalOptions.Validate(args); err != nil {
		return err
	}
	if len(o.targets) == 0 {
		return fmt.Errorf("no poll targets configured")
	}
	for _, t := range o.targets {
		if _, err := vsphere.ParseCounterKey(t.Counter); err != nil {
			return fmt.Errorf("target %s: %w", t.VM, err)
		}
	}
	return o.ValidateVCenter()
}

func (o *PollOptions) Run(ctx context.Context, w io.Writer) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGHUP, syscall.SIGTERM, syscall.SIGQUIT)
	defer cancel()

	ops, logout, err := o.Operations(ctx)
	if err != nil {
		return err
	}
	defer logout()

	if o.Once {
		var samples []poller.Sample
		p := poller.New(ops, o.targets, o.config.Poll.Interval.Duration, func(s poller.Sample) {
			samples = append(samples, s)
		})
		if err := p.PollOnce(ctx); err != nil {
			return err
		}
		return printOutput(w, o.Output, samples)
	}

	listener, err := net.Listen("tcp", o.config.Service.MetricsAddress)
	if err != nil {
		return fmt.Errorf("creating listener: %w", err)
	}
	go func() {
		defer cancel()
		if err := poller.NewMetricServer(o.config.Service.MetricsAddress, listener).Run(ctx); err != nil {
			zap.S().Named("poll").Errorf("metrics server: %v", err)
		}
	}()

	producerOpts := []events.ProducerOptions{events.WithSource(o.config.VCenter.URL)}
	if o.Topic != "" {
		producerOpts = append(producerOpts, events.WithOutputTopic(o.Topic))
	}
	producer := events.NewEventProducer(events.NewJSONWriter(w), producerOpts...)
	defer func() { _ = producer.Close() }()

	p := poller.New(ops, o.targets, o.config.Poll.Interval.Duration, func(s poller.Sample) {
		zap.S().Named("poll").Debugw("sample", "vm", s.VM, "moid", s.Moid, "counter", s.Counter, "value", s.Value)
		if err := producer.Publish(ctx, events.StatSampleKind, s); err != nil {
			zap.S().Named("poll").Errorf("publishing sample: %v", err)
		}
	})
	p.Run(ctx)
	return nil
}

func parseTarget(s string, aggregate bool) (config.Target, error) {
	vm, counter, ok := strings.Cut(s, "=")
	if !ok || vm == "" || counter == "" {
		return config.Target{}, fmt.Errorf("invalid target %q, expected VM=GROUP:NAME:ROLLUP", s)
	}
	return config.Target{VM: vm, Counter: counter, Aggregate: aggregate}, nil
}
