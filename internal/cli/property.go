package cli

import (
	"context"
	"io"

	"github.com/kubev2v/vsphere-inspector/internal/vsphere"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type PropertyOptions struct {
	GlobalOptions

	Type string
}

type propertyResult struct {
	Moid  string `json:"moid"`
	Type  string `json:"type"`
	Path  string `json:"path"`
	Value any    `json:"value"`
}

func DefaultPropertyOptions() *PropertyOptions {
	return &PropertyOptions{
		GlobalOptions: DefaultGlobalOptions(),
		Type:          vsphere.VirtualMachineType,
	}
}

func NewCmdProperty() *cobra.Command {
	o := DefaultPropertyOptions()
	cmd := &cobra.Command{
		Use:     "property MOID PATH",
		Short:   "Read the current value of one property of a managed object.",
		Example: "  vsphere-inspector property vm-42 runtime.powerState",
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

func (o *PropertyOptions) Bind(fs *pflag.FlagSet) {
	o.GlobalOptions.Bind(fs)

	fs.StringVarP(&o.Type, "type", "t", o.Type, "Managed object type of MOID.")
}

func (o *PropertyOptions) Validate(args []string) error {
	if err := o.GlobalOptions.Validate(args); err != nil {
		return err
	}
	return o.ValidateVCenter()
}

func (o *PropertyOptions) Run(ctx context.Context, w io.Writer, args []string) error {
	ops, logout, err := o.Operations(ctx)
	if err != nil {
		return err
	}
	defer logout()

	moid, path := args[0], args[1]
	value, err := ops.QueryProperty(ctx, moid, o.Type, path)
	if err != nil {
		return err
	}
	return printOutput(w, o.Output, propertyResult{Moid: moid, Type: o.Type, Path: path, Value: value})
}
