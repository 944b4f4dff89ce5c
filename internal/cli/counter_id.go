package cli

import (
	"context"
	"io"

	"github.com/kubev2v/vsphere-inspector/internal/vsphere"
	"github.com/spf13/cobra"
)

type CounterIDOptions struct {
	GlobalOptions
}

type counterIDResult struct {
	Counter string `json:"counter"`
	ID      int32  `json:"id"`
}

func DefaultCounterIDOptions() *CounterIDOptions {
	return &CounterIDOptions{
		GlobalOptions: DefaultGlobalOptions(),
	}
}

func NewCmdCounterID() *cobra.Command {
	o := DefaultCounterIDOptions()
	cmd := &cobra.Command{
		Use:     "counter-id GROUP:NAME:ROLLUP...",
		Short:   "Resolve performance counter names to counter ids.",
		Example: "  vsphere-inspector counter-id cpu:usagemhz:average mem:consumed:average",
		Args:    cobra.MinimumNArgs(1),
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

func (o *CounterIDOptions) Validate(args []string) error {
	if err := o.GlobalOptions.Validate(args); err != nil {
		return err
	}
	for _, arg := range args {
		if _, err := vsphere.ParseCounterKey(arg); err != nil {
			return err
		}
	}
	return o.ValidateVCenter()
}

func (o *CounterIDOptions) Run(ctx context.Context, w io.Writer, args []string) error {
	ops, logout, err := o.Operations(ctx)
	if err != nil {
		return err
	}
	defer logout()

	results := make([]counterIDResult, 0, len(args))
	for _, name := range args {
		id, err := ops.GetPerfCounterID(ctx, name)
		if err != nil {
			return err
		}
		results = append(results, counterIDResult{Counter: name, ID: id})
	}
	return printOutput(w, o.Output, results)
}
