package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/kubev2v/vsphere-inspector/internal/session"
	"github.com/kubev2v/vsphere-inspector/internal/util"
	"sigs.k8s.io/yaml"
)

const (
	// DefaultPollInterval matches the vCenter real-time sampling interval
	DefaultPollInterval = 20 * time.Second
)

type Config struct {
	VCenter *VCenterConfig `json:"vcenter"`
	Service *ServiceConfig `json:"service"`
	Poll    *PollConfig    `json:"poll"`
	Nova    *NovaConfig    `json:"nova"`
}

type VCenterConfig struct {
	URL      string `envconfig:"VSPHERE_URL" json:"url" validate:"omitempty,url"`
	Username string `envconfig:"VSPHERE_USERNAME" json:"username"`
	Password string `envconfig:"VSPHERE_PASSWORD" json:"password"`
	Insecure bool   `envconfig:"VSPHERE_INSECURE" default:"false" json:"insecure"`
	// PageSize is the number of VMs requested per page when the VM cache is
	// rebuilt. vCenter caps it at 1000.
	PageSize int32 `envconfig:"VSPHERE_PAGE_SIZE" default:"1000" json:"page-size" validate:"min=1,max=1000"`
}

type ServiceConfig struct {
	// LogLevel is one of debug, info, warn, error
	LogLevel       string `envconfig:"VSPHERE_INSPECTOR_LOG_LEVEL" default:"info" json:"log-level"`
	MetricsAddress string `envconfig:"VSPHERE_INSPECTOR_METRICS_ADDRESS" default:":9273" json:"metrics-address"`
}

type PollConfig struct {
	Interval util.Duration `envconfig:"VSPHERE_INSPECTOR_POLL_INTERVAL" default:"20s" json:"interval"`
	Targets  []Target      `ignored:"true" json:"targets" validate:"dive"`
}

// Target is one VM counter polled by the poller.
type Target struct {
	VM        string `json:"vm" validate:"required"`
	Counter   string `json:"counter" validate:"required,counter_name"`
	Aggregate bool   `json:"aggregate"`
}

type NovaConfig struct {
	AuthURL           string `envconfig:"OS_AUTH_URL" json:"auth-url"`
	Username          string `envconfig:"OS_USERNAME" json:"username"`
	Password          string `envconfig:"OS_PASSWORD" json:"password"`
	ProjectName       string `envconfig:"OS_PROJECT_NAME" json:"project-name"`
	UserDomainName    string `envconfig:"OS_USER_DOMAIN_NAME" default:"Default" json:"user-domain-name"`
	ProjectDomainName string `envconfig:"OS_PROJECT_DOMAIN_NAME" default:"Default" json:"project-domain-name"`
	Region            string `envconfig:"OS_REGION_NAME" json:"region"`
	Availability      string `envconfig:"OS_INTERFACE" default:"public" json:"availability"`
}

// New reads the configuration from the environment, falling back to the
// defaults.
func New() (*Config, error) {
	cfg := new(Config)
	if err := envconfig.Process("", cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ParseConfigFile overlays the values of a YAML file on cfg. Keys absent
// from the file keep their current value.
func (cfg *Config) ParseConfigFile(cfgFile string) error {
	contents, err := os.ReadFile(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(contents, cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config file: %w", err)
	}
	return nil
}

// Validate checks the settings needed to talk to vCenter.
func (cfg *Config) Validate() error {
	if cfg.VCenter == nil {
		return errors.New("vcenter configuration is required")
	}
	requiredFields := []struct {
		value string
		name  string
	}{
		{cfg.VCenter.URL, "vcenter url"},
		{cfg.VCenter.Username, "vcenter username"},
		{cfg.VCenter.Password, "vcenter password"},
	}
	for _, field := range requiredFields {
		if field.value == "" {
			return fmt.Errorf("%s is required", field.name)
		}
	}
	return validateStruct(cfg)
}

func (cfg *Config) Credentials() session.Credentials {
	return session.Credentials{
		URL:      cfg.VCenter.URL,
		Username: cfg.VCenter.Username,
		Password: cfg.VCenter.Password,
		Insecure: cfg.VCenter.Insecure,
	}
}

// String renders the configuration without secrets.
func (cfg *Config) String() string {
	redacted := *cfg
	if cfg.VCenter != nil {
		vc := *cfg.VCenter
		vc.Password = "<redacted>"
		redacted.VCenter = &vc
	}
	if cfg.Nova != nil {
		nova := *cfg.Nova
		nova.Password = "<redacted>"
		redacted.Nova = &nova
	}
	contents, err := json.Marshal(redacted)
	if err != nil {
		return "<error>"
	}
	return string(contents)
}
