package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/kubev2v/vsphere-inspector/internal/vsphere"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type StatOptions struct {
	GlobalOptions

	Aggregate bool
}

type statResult struct {
	VM        string `json:"vm"`
	Moid      string `json:"moid"`
	Counter   string `json:"counter"`
	CounterID int32  `json:"counterId"`
	Aggregate bool   `json:"aggregate"`
	Value     int64  `json:"value"`
}

func DefaultStatOptions() *StatOptions {
	return &StatOptions{
		GlobalOptions: DefaultGlobalOptions(),
		Aggregate:     true,
	}
}

func NewCmdStat() *cobra.Command {
	o := DefaultStatOptions()
	cmd := &cobra.Command{
		Use:     "stat VM COUNTER",
		Short:   "Read the latest real-time value of a performance counter for a VM.",
		Example: "  vsphere-inspector stat instance-00000001 cpu:usagemhz:average\n  vsphere-inspector stat instance-00000001 disk:read:average --aggregate=false",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.Complete(cmd, args); err != nil {
				return err
			}
			if err := o.Validate(args); err != nil {
				return err
			}
			return o.Run(cmd.Context(), cmd.OutOrStdout(), args)
		},
		SilenceUsage: true,
	}
	o.Bind(cmd.Flags())
	return cmd
}

func (o *StatOptions) Bind(fs *pflag.FlagSet) {
	o.GlobalOptions.Bind(fs)

	fs.BoolVar(&o.Aggregate, "aggregate", o.Aggregate, "Query the aggregate instance. When false, all instances are summed.")
}

func (o *StatOptions) Validate(args []string) error {
	if err := o.GlobalOptions.Validate(args); err != nil {
		return err
	}
	if _, err := vsphere.ParseCounterKey(args[1]); err != nil {
		return err
	}
	return o.ValidateVCenter()
}

func (o *StatOptions) Run(ctx context.Context, w io.Writer, args []string) error {
	ops, logout, err := o.Operations(ctx)
	if err != nil {
		return err
	}
	defer logout()

	vm, counter := args[0], args[1]
	moid, found, err := ops.GetVMMoid(ctx, vm)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("vm %q not found", vm)
	}
	counterID, err := ops.GetPerfCounterID(ctx, counter)
	if err != nil {
		return err
	}
	value, err := ops.QueryVMCurrentStatValue(ctx, moid, counterID, o.Aggregate)
	if err != nil {
		return err
	}
	return printOutput(w, o.Output, statResult{
		VM:        vm,
		Moid:      moid,
		Counter:   counter,
		CounterID: counterID,
		Aggregate: o.Aggregate,
		Value:     value,
	})
}
