package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/kubev2v/vsphere-inspector/internal/config"
	"github.com/kubev2v/vsphere-inspector/internal/session"
	"github.com/kubev2v/vsphere-inspector/internal/vsphere"
	"github.com/kubev2v/vsphere-inspector/pkg/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/thoas/go-funk"
	"go.uber.org/zap"
)

const (
	jsonFormat = "json"
	yamlFormat = "yaml"
)

var (
	legalOutputTypes = []string{jsonFormat, yamlFormat}
)

type GlobalOptions struct {
	ConfigFile string
	LogLevel   string
	Output     string

	config *config.Config
}

func DefaultGlobalOptions() GlobalOptions {
	return GlobalOptions{
		Output: yamlFormat,
	}
}

func (o *GlobalOptions) Bind(fs *pflag.FlagSet) {
	fs.StringVarP(&o.ConfigFile, "config", "c", o.ConfigFile, "Path to a YAML configuration file. Values from the file override the environment.")
	fs.StringVar(&o.LogLevel, "log-level", o.LogLevel, "Log level. Overrides VSPHERE_INSPECTOR_LOG_LEVEL.")
	fs.StringVarP(&o.Output, "output", "o", o.Output, fmt.Sprintf("Output format. One of: (%s).", strings.Join(legalOutputTypes, ", ")))
}

// Complete loads the configuration and installs the global logger.
func (o *GlobalOptions) Complete(cmd *cobra.Command, args []string) error {
	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("reading configuration from environment: %w", err)
	}
	if o.ConfigFile != "" {
		if err := cfg.ParseConfigFile(o.ConfigFile); err != nil {
			return err
		}
	}
	if o.LogLevel != "" {
		cfg.Service.LogLevel = o.LogLevel
	}
	o.config = cfg

	zap.ReplaceGlobals(log.InitLog(log.ParseLevel(cfg.Service.LogLevel)))

	zap.S().Named("cli").Debugf("using configuration: %s", cfg)
	return nil
}

func (o *GlobalOptions) Validate(args []string) error {
	if len(o.Output) > 0 && !funk.Contains(legalOutputTypes, o.Output) {
		return fmt.Errorf("output format must be one of %s", strings.Join(legalOutputTypes, ", "))
	}
	return nil
}

// ValidateVCenter is called by the commands that talk to vCenter.
func (o *GlobalOptions) ValidateVCenter() error {
	return o.config.Validate()
}

// Operations logs into vCenter. The returned function ends the session.
func (o *GlobalOptions) Operations(ctx context.Context) (*vsphere.Operations, func(), error) {
	s, err := session.Login(ctx, o.config.Credentials())
	if err != nil {
		return nil, nil, err
	}
	logout := func() {
		if err := s.Logout(context.Background()); err != nil {
			zap.S().Named("cli").Warnf("logout: %v", err)
		}
	}
	return vsphere.NewFromClient(s.Client, vsphere.WithPageSize(o.config.VCenter.PageSize)), logout, nil
}
