package nova

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/gophercloud/gophercloud/v2"
	"github.com/gophercloud/gophercloud/v2/openstack"
	"github.com/gophercloud/gophercloud/v2/openstack/compute/v2/servers"
	"github.com/kubev2v/vsphere-inspector/internal/config"
	"go.uber.org/zap"
)

var (
	ErrServerNotFound  = errors.New("nova server not found")
	ErrAmbiguousServer = errors.New("more than one nova server has this name")
)

// Server is the part of a Nova server needed to find its VM. With the
// VMware driver the VM display name is the Nova instance UUID.
type Server struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

// Resolver looks up Nova servers by name.
type Resolver struct {
	sc *gophercloud.ServiceClient
}

func NewResolver(sc *gophercloud.ServiceClient) *Resolver {
	return &Resolver{sc: sc}
}

// Connect authenticates against Keystone and returns a resolver bound to the
// compute endpoint of the service catalog.
func Connect(ctx context.Context, cfg *config.NovaConfig) (*Resolver, error) {
	provider, err := openstack.AuthenticatedClient(ctx, gophercloud.AuthOptions{
		IdentityEndpoint: cfg.AuthURL,
		Username:         cfg.Username,
		Password:         cfg.Password,
		DomainName:       cfg.UserDomainName,
		AllowReauth:      true,
		Scope: &gophercloud.AuthScope{
			ProjectName: cfg.ProjectName,
			DomainName:  cfg.ProjectDomainName,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to authenticate against keystone: %w", err)
	}
	sc, err := openstack.NewComputeV2(provider, gophercloud.EndpointOpts{
		Region:       cfg.Region,
		Availability: gophercloud.Availability(cfg.Availability),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to find the compute endpoint: %w", err)
	}
	zap.S().Named("nova").Infow("using nova endpoint", "url", sc.Endpoint)
	return NewResolver(sc), nil
}

// ServerByName returns the single server carrying exactly this name, across
// all projects the credentials can see.
func (r *Resolver) ServerByName(ctx context.Context, name string) (Server, error) {
	opts := servers.ListOpts{
		// nova matches names as a regular expression
		Name: "^" + regexp.QuoteMeta(name) + "$",
	}
	pages, err := servers.List(r.sc, opts).AllPages(ctx)
	if err != nil {
		return Server{}, fmt.Errorf("failed to list nova servers: %w", err)
	}
	var data = &struct {
		Servers []Server `json:"servers"`
	}{}
	if err := pages.(servers.ServerPage).ExtractInto(data); err != nil {
		return Server{}, err
	}

	var matches []Server
	for _, s := range data.Servers {
		if s.Name == name {
			matches = append(matches, s)
		}
	}
	switch len(matches) {
	case 0:
		return Server{}, fmt.Errorf("%w: %q", ErrServerNotFound, name)
	case 1:
		return matches[0], nil
	default:
		return Server{}, fmt.Errorf("%w: %q", ErrAmbiguousServer, name)
	}
}

// VMName returns the vSphere VM name of the named Nova instance.
func (r *Resolver) VMName(ctx context.Context, instanceName string) (string, error) {
	s, err := r.ServerByName(ctx, instanceName)
	if err != nil {
		return "", err
	}
	return s.ID, nil
}
