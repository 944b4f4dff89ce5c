package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/kubev2v/vsphere-inspector/internal/nova"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type NovaVMOptions struct {
	GlobalOptions

	ResolveMoid bool
}

type novaVMResult struct {
	Instance string `json:"instance"`
	VMName   string `json:"vmName"`
	Status   string `json:"status,omitempty"`
	Moid     string `json:"moid,omitempty"`
}

func DefaultNovaVMOptions() *NovaVMOptions {
	return &NovaVMOptions{
		GlobalOptions: DefaultGlobalOptions(),
	}
}

func NewCmdNovaVM() *cobra.Command {
	o := DefaultNovaVMOptions()
	cmd := &cobra.Command{
		Use:   "nova-vm INSTANCE_NAME",
		Short: "Find the vSphere VM backing a Nova instance.",
		Long: "Look the instance up in Nova by name. The vSphere VM name is the Nova instance id.\n" +
			"With --moid the VM name is also resolved to its managed object id in vCenter.",
		Args: cobra.ExactArgs(1),
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

func (o *NovaVMOptions) Bind(fs *pflag.FlagSet) {
	o.GlobalOptions.Bind(fs)

	fs.BoolVar(&o.ResolveMoid, "moid", o.ResolveMoid, "Also resolve the managed object id in vCenter.")
}

func (o *NovaVMOptions) Validate(args []string) error {
	if err := o.GlobalOptions.Validate(args); err != nil {
		return err
	}
	if o.config.Nova == nil || o.config.Nova.AuthURL == "" {
		return fmt.Errorf("nova auth url is required")
	}
	if o.ResolveMoid {
		return o.ValidateVCenter()
	}
	return nil
}

func (o *NovaVMOptions) Run(ctx context.Context, w io.Writer, args []string) error {
	resolver, err := nova.Connect(ctx, o.config.Nova)
	if err != nil {
		return err
	}

	server, err := resolver.ServerByName(ctx, args[0])
	if err != nil {
		return err
	}
	result := novaVMResult{Instance: server.Name, VMName: server.ID, Status: server.Status}

	if o.ResolveMoid {
		ops, logout, err := o.Operations(ctx)
		if err != nil {
			return err
		}
		defer logout()

		moid, found, err := ops.GetVMMoid(ctx, server.ID)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("vm %q of instance %q not found in vCenter", server.ID, server.Name)
		}
		result.Moid = moid
	}
	return printOutput(w, o.Output, result)
}
