package vsphere

import (
	"context"
	"fmt"

	"github.com/vmware/govmomi/vim25"
	"github.com/vmware/govmomi/vim25/soap"
	"github.com/vmware/govmomi/vim25/types"
)

// Operations answers the metering queries against one vCenter. It owns the
// VM and counter caches; both are populated lazily and live as long as the
// Operations value.
//
// Concurrent use is safe. Concurrent misses share a single refresh.
type Operations struct {
	collector *Collector
	vms       *vmCache
	counters  *counterCache
	perf      *perfQuerier
}

type Option func(*options)

type options struct {
	pageSize int32
}

// WithPageSize sets the number of VMs requested per page when the VM cache
// is rebuilt.
func WithPageSize(pageSize int32) Option {
	return func(o *options) {
		o.pageSize = pageSize
	}
}

// New creates Operations on top of rt, the transport to the vCenter, using
// the managed objects listed in its service content.
func New(rt soap.RoundTripper, sc types.ServiceContent, opts ...Option) *Operations {
	o := options{pageSize: DefaultPageSize}
	for _, opt := range opts {
		opt(&o)
	}

	var perfManager types.ManagedObjectReference
	if sc.PerfManager != nil {
		perfManager = *sc.PerfManager
	}

	collector := NewCollector(rt, sc.PropertyCollector)
	return &Operations{
		collector: collector,
		vms:       newVMCache(collector, sc.RootFolder, o.pageSize),
		counters:  newCounterCache(collector, perfManager),
		perf:      &perfQuerier{rt: rt, perfManager: perfManager},
	}
}

// NewFromClient creates Operations for an authenticated vim25 client.
func NewFromClient(c *vim25.Client, opts ...Option) *Operations {
	return New(c, c.ServiceContent, opts...)
}

// GetVMMoid returns the managed object id of the VM with the given name.
// ok is false when no such VM exists after a refresh of the cache.
func (o *Operations) GetVMMoid(ctx context.Context, vmName string) (moid string, ok bool, err error) {
	return o.vms.getMoid(ctx, vmName)
}

// RefreshVMs rebuilds the VM cache unconditionally.
func (o *Operations) RefreshVMs(ctx context.Context) error {
	return o.vms.refresh(ctx)
}

// GetPerfCounterID returns the id of the counter named group:name:rollup,
// or an UnknownCounterError.
func (o *Operations) GetPerfCounterID(ctx context.Context, counterFullName string) (int32, error) {
	return o.counters.getCounterID(ctx, counterFullName)
}

// QueryProperty reads a single property of one managed object and returns
// the value exactly as decoded. An unset property yields nil.
func (o *Operations) QueryProperty(ctx context.Context, moid, entityType, propertyPath string) (any, error) {
	ref := Reference(entityType, moid)
	obj, err := o.collector.retrieveOne(ctx, ref, propertyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s of %s: %w", propertyPath, moid, err)
	}
	for _, missing := range obj.MissingSet {
		if missing.Path == propertyPath {
			return nil, &MissingPropertyError{Object: moid, Path: propertyPath, Fault: faultMessage(missing.Fault)}
		}
	}
	for _, prop := range obj.PropSet {
		if prop.Name == propertyPath {
			return prop.Val, nil
		}
	}
	return nil, nil
}

func (o *Operations) QueryVMProperty(ctx context.Context, vmMoid, propertyPath string) (any, error) {
	return o.QueryProperty(ctx, vmMoid, VirtualMachineType, propertyPath)
}

// QueryVMCurrentStatValue returns the latest real-time value of a counter for
// a VM. Instance counters are summed over their instances.
func (o *Operations) QueryVMCurrentStatValue(ctx context.Context, vmMoid string, counterID int32, isAggregate bool) (int64, error) {
	return o.perf.queryCurrentStat(ctx, vmMoid, counterID, isAggregate)
}

func faultMessage(fault types.LocalizedMethodFault) string {
	if fault.LocalizedMessage != "" {
		return fault.LocalizedMessage
	}
	if fault.Fault != nil {
		return fmt.Sprintf("%T", fault.Fault)
	}
	return "unknown fault"
}
