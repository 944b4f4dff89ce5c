package main

import (
	"os"

	"github.com/kubev2v/vsphere-inspector/internal/cli"
	"github.com/spf13/cobra"
)

func main() {
	command := NewInspectorCommand()
	if err := command.Execute(); err != nil {
		os.Exit(1)
	}
}

func NewInspectorCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vsphere-inspector [flags] [options]",
		Short: "vsphere-inspector resolves and queries VM performance data in vCenter.",
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
			os.Exit(1)
		},
	}
	cmd.AddCommand(cli.NewCmdVMMoid())
	cmd.AddCommand(cli.NewCmdCounterID())
	cmd.AddCommand(cli.NewCmdProperty())
	cmd.AddCommand(cli.NewCmdStat())
	cmd.AddCommand(cli.NewCmdPoll())
	cmd.AddCommand(cli.NewCmdNovaVM())
	cmd.AddCommand(cli.NewCmdVersion())

	return cmd
}
