package vsphere

import (
	"context"
	"fmt"
	"sync"

	"github.com/kubev2v/vsphere-inspector/pkg/metrics"
	"github.com/vmware/govmomi/vim25/types"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultPageSize is the vCenter hard limit on objects per page.
	DefaultPageSize int32 = 1000

	vmCacheName = "vm_moid"
)

// vmCache maps VM display names to managed object ids. It is rebuilt as a
// whole on every miss and never expires on its own, so a renamed or removed
// VM goes unnoticed until the next miss triggers a refresh.
type vmCache struct {
	collector *Collector
	root      types.ManagedObjectReference
	pageSize  int32

	mu    sync.RWMutex
	moids map[string]string
	group singleflight.Group
}

func newVMCache(collector *Collector, root types.ManagedObjectReference, pageSize int32) *vmCache {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &vmCache{
		collector: collector,
		root:      root,
		pageSize:  pageSize,
		moids:     map[string]string{},
	}
}

func (c *vmCache) lookup(name string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	moid, ok := c.moids[name]
	return moid, ok
}

// getMoid returns the moid of the named VM. A miss costs exactly one full
// refresh; a VM still absent afterwards is reported with ok == false.
func (c *vmCache) getMoid(ctx context.Context, name string) (string, bool, error) {
	if moid, ok := c.lookup(name); ok {
		metrics.IncreaseCacheLookupsTotalMetric(vmCacheName, metrics.ResultHit)
		return moid, true, nil
	}
	metrics.IncreaseCacheLookupsTotalMetric(vmCacheName, metrics.ResultMiss)

	if err := c.refresh(ctx); err != nil {
		return "", false, err
	}
	moid, ok := c.lookup(name)
	if !ok {
		zap.S().Named("vsphere").Debugf("vm %q not found after refresh", name)
	}
	return moid, ok, nil
}

// refresh enumerates every VirtualMachine and replaces the map once the whole
// enumeration succeeded. Concurrent callers share one enumeration, which runs
// detached from any single caller's cancellation.
func (c *vmCache) refresh(ctx context.Context) error {
	ch := c.group.DoChan(vmCacheName, func() (any, error) {
		moids, err := c.enumerate(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.moids = moids
		c.mu.Unlock()
		metrics.IncreaseCacheRefreshesTotalMetric(vmCacheName)
		zap.S().Named("vsphere").Debugf("vm cache refreshed with %d entries", len(moids))
		return nil, nil
	})
	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		return res.Err
	}
}

func (c *vmCache) enumerate(ctx context.Context) (map[string]string, error) {
	moids := map[string]string{}
	page, err := c.collector.CollectObjects(ctx, c.root, VirtualMachineType, c.pageSize, []string{vmNameProperty}, false)
	for {
		if err != nil {
			return nil, fmt.Errorf("failed to enumerate virtual machines: %w", err)
		}
		for _, item := range page.Items {
			if name, ok := item.Props[vmNameProperty].(string); ok {
				moids[name] = item.Ref.Value
			}
		}
		if page.Done() {
			return moids, nil
		}
		page, err = c.collector.Continue(ctx, page)
	}
}
