package cli

import (
	"context"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type VMMoidOptions struct {
	GlobalOptions

	Refresh bool
}

type vmMoidResult struct {
	Name  string `json:"name"`
	Moid  string `json:"moid,omitempty"`
	Found bool   `json:"found"`
}

func DefaultVMMoidOptions() *VMMoidOptions {
	return &VMMoidOptions{
		GlobalOptions: DefaultGlobalOptions(),
	}
}

func NewCmdVMMoid() *cobra.Command {
	o := DefaultVMMoidOptions()
	cmd := &cobra.Command{
		Use:   "vm-moid NAME...",
		Short: "Resolve VM names to managed object ids.",
		Args:  cobra.MinimumNArgs(1),
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

func (o *VMMoidOptions) Bind(fs *pflag.FlagSet) {
	o.GlobalOptions.Bind(fs)

	fs.BoolVar(&o.Refresh, "refresh", o.Refresh, "Enumerate all VMs before the first lookup.")
}

func (o *VMMoidOptions) Validate(args []string) error {
	if err := o.GlobalOptions.Validate(args); err != nil {
		return err
	}
	return o.ValidateVCenter()
}

func (o *VMMoidOptions) Run(ctx context.Context, w io.Writer, args []string) error {
	ops, logout, err := o.Operations(ctx)
	if err != nil {
		return err
	}
	defer logout()

	if o.Refresh {
		if err := ops.RefreshVMs(ctx); err != nil {
			return err
		}
	}

	results := make([]vmMoidResult, 0, len(args))
	for _, name := range args {
		moid, found, err := ops.GetVMMoid(ctx, name)
		if err != nil {
			return err
		}
		results = append(results, vmMoidResult{Name: name, Moid: moid, Found: found})
	}
	return printOutput(w, o.Output, results)
}
