package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/kubev2v/vsphere-inspector/pkg/version"
	"github.com/spf13/cobra"
)

type VersionOptions struct {
	Output string
}

func DefaultVersionOptions() *VersionOptions {
	return &VersionOptions{
		Output: "",
	}
}

func NewCmdVersion() *cobra.Command {
	o := DefaultVersionOptions()
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print vsphere-inspector version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.Run(cmd.Context(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&o.Output, "output", "o", o.Output, "Output format. One of: (json, yaml). Plain text when empty.")
	return cmd
}

func (o *VersionOptions) Run(ctx context.Context, w io.Writer) error {
	versionInfo := version.Get()
	if o.Output != "" {
		return printOutput(w, o.Output, versionInfo)
	}
	_, err := fmt.Fprintf(w, "vsphere-inspector Version: %s\n", versionInfo.String())
	return err
}
